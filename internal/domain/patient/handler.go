package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/praktijk/praktijk/internal/platform/audit"
	"github.com/praktijk/praktijk/internal/platform/auth"
	"github.com/praktijk/praktijk/internal/platform/db"
	"github.com/praktijk/praktijk/internal/platform/privacy"
	"github.com/praktijk/praktijk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequirePermission(auth.PermPatientRead))
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/search", h.SearchByBSN)
	read.GET("/patients/:id", h.GetPatient)

	write := api.Group("", auth.RequirePermission(auth.PermPatientWrite))
	write.POST("/patients", h.CreatePatient)
	write.PUT("/patients/:id", h.UpdatePatient)
	write.PUT("/patients/:id/bsn", h.SetBSN)
	write.DELETE("/patients/:id", h.DeactivatePatient)

	reveal := api.Group("", auth.RequirePermission(auth.PermBSNReveal))
	reveal.POST("/patients/:id/bsn/reveal", h.RevealBSN)
}

type createPatientRequest struct {
	Patient
	// BSN is the only place plaintext enters the system. It is encrypted in
	// the service before anything is stored.
	BSN string `json:"bsn,omitempty"`
}

func (h *Handler) CreatePatient(c echo.Context) error {
	ctx := c.Request().Context()
	var req createPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Patient.BSN = ""
	if err := h.svc.CreatePatient(ctx, db.PracticeFromContext(ctx), &req.Patient, req.BSN); err != nil {
		switch {
		case errors.Is(err, privacy.ErrInvalidBSN):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid bsn")
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusCreated, req.Patient)
}

func (h *Handler) GetPatient(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(ctx, db.PracticeFromContext(ctx), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(ctx, db.PracticeFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePatient(ctx, db.PracticeFromContext(ctx), &p); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SetBSN(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		BSN string `json:"bsn"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetBSN(ctx, db.PracticeFromContext(ctx), id, body.BSN); err != nil {
		switch {
		case errors.Is(err, privacy.ErrInvalidBSN):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid bsn")
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) DeactivatePatient(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivatePatient(ctx, db.PracticeFromContext(ctx), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SearchByBSN(c echo.Context) error {
	ctx := c.Request().Context()
	bsn := c.QueryParam("bsn")
	if bsn == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "bsn query parameter is required")
	}
	p, err := h.svc.SearchByBSN(ctx, db.PracticeFromContext(ctx), bsn)
	if err != nil {
		switch {
		case errors.Is(err, privacy.ErrInvalidBSN):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid bsn")
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RevealBSN(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Justification string `json:"justification"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ip, userAgent := audit.RequestMeta(c)
	bsn, err := h.svc.RevealBSN(ctx, db.PracticeFromContext(ctx), id, body.Justification, ip, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, ErrNoBSN):
			return echo.NewHTTPError(http.StatusNotFound, "patient has no bsn on file")
		case errors.Is(err, privacy.ErrJustificationTooShort):
			return echo.NewHTTPError(http.StatusBadRequest, "justification must be at least 5 characters")
		case errors.Is(err, privacy.ErrAuditWriteFailed):
			return echo.NewHTTPError(http.StatusInternalServerError, "audit write failed")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"bsn": bsn})
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
