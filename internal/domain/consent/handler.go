package consent

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/praktijk/praktijk/internal/platform/auth"
	"github.com/praktijk/praktijk/internal/platform/db"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequirePermission(auth.PermConsentRead))
	read.GET("/patients/:id/consents", h.ListByPatient)
	read.GET("/consents/:id", h.GetConsent)

	write := api.Group("", auth.RequirePermission(auth.PermConsentWrite))
	write.POST("/patients/:id/consents", h.GrantConsent)
	write.POST("/consents/:id/withdraw", h.WithdrawConsent)
}

func (h *Handler) GrantConsent(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var consent Consent
	if err := c.Bind(&consent); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	consent.PatientID = patientID
	if err := h.svc.GrantConsent(ctx, db.PracticeFromContext(ctx), &consent); err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusCreated, consent)
}

func (h *Handler) GetConsent(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	consent, err := h.svc.GetConsent(ctx, db.PracticeFromContext(ctx), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "consent not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, consent)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	consents, err := h.svc.ListByPatient(ctx, db.PracticeFromContext(ctx), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, consents)
}

func (h *Handler) WithdrawConsent(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.WithdrawConsent(ctx, db.PracticeFromContext(ctx), id); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "consent not found")
		case errors.Is(err, ErrAlreadyWithdrawn):
			return echo.NewHTTPError(http.StatusConflict, "consent already withdrawn")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
