package messaging

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

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
	read := api.Group("", auth.RequirePermission(auth.PermMessageRead))
	read.GET("/threads", h.ListThreads)
	read.GET("/threads/:id", h.GetThread)
	read.GET("/threads/:id/messages", h.ListMessages)
	read.GET("/patients/:id/threads", h.ListThreadsByPatient)

	write := api.Group("", auth.RequirePermission(auth.PermMessageWrite))
	write.POST("/threads", h.CreateThread)
	write.POST("/threads/:id/messages", h.PostMessage)
	write.POST("/threads/:id/messages/:message_id/read", h.MarkRead)
}

type createThreadRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}

func (h *Handler) CreateThread(c echo.Context) error {
	ctx := c.Request().Context()
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := &Thread{PatientID: req.PatientID, Subject: req.Subject}
	first, err := h.svc.CreateThread(ctx, db.PracticeFromContext(ctx), t, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "thread not found")
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"thread":  t,
		"message": first,
	})
}

func (h *Handler) GetThread(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetThread(ctx, db.PracticeFromContext(ctx), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "thread not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListThreads(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	threads, total, err := h.svc.ListThreads(ctx, db.PracticeFromContext(ctx), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(threads, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListThreadsByPatient(c echo.Context) error {
	ctx := c.Request().Context()
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	threads, total, err := h.svc.ListThreadsByPatient(ctx, db.PracticeFromContext(ctx), patientID, pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(threads, total, pg.Limit, pg.Offset))
}

func (h *Handler) PostMessage(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var body struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.PostMessage(ctx, db.PracticeFromContext(ctx), id, body.Body)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return echo.NewHTTPError(http.StatusNotFound, "thread not found")
		case errors.Is(err, ErrValidation):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMessages(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	messages, err := h.svc.ListMessages(ctx, db.PracticeFromContext(ctx), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "thread not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, messages)
}

func (h *Handler) MarkRead(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c)
	if err != nil {
		return err
	}
	messageID, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}
	if err := h.svc.MarkRead(ctx, db.PracticeFromContext(ctx), id, messageID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
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
