package clinical

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/praktijk/praktijk/internal/platform/audit"
	"github.com/praktijk/praktijk/internal/platform/auth"
	"github.com/praktijk/praktijk/internal/platform/db"
	"github.com/praktijk/praktijk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequirePermission(auth.PermClinicalRead))
	read.GET("/patients/:id/chart", h.ListByPatient)
	read.GET("/chart-entries/:id", h.GetEntry)

	write := api.Group("", auth.RequirePermission(auth.PermClinicalWrite))
	write.POST("/patients/:id/chart", h.CreateEntry)
	write.PUT("/chart-entries/:id", h.UpdateEntry)
}

func (h *Handler) CreateEntry(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var e ChartEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.PatientID = patientID
	if e.AuthorID == uuid.Nil {
		if p := auth.PrincipalFromContext(ctx); p != nil {
			e.AuthorID = p.UserID
		}
	}
	if err := h.svc.CreateEntry(ctx, db.PracticeFromContext(ctx), &e); err != nil {
		if errors.Is(err, ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEntry(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEntry(ctx, db.PracticeFromContext(ctx), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "chart entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	entries, total, err := h.svc.ListByPatient(ctx, db.PracticeFromContext(ctx), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateEntry(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e ChartEntry
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = id
	ip, userAgent := audit.RequestMeta(c)
	if err := h.svc.UpdateEntry(ctx, db.PracticeFromContext(ctx), &e, ip, userAgent); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "chart entry not found")
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, e)
}
