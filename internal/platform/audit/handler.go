package audit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/praktijk/praktijk/internal/platform/db"
	"github.com/praktijk/praktijk/pkg/pagination"
)

// ListFilter narrows the audit trail listing. All listings are implicitly
// scoped to the caller's practice.
type ListFilter struct {
	ActorID       *uuid.UUID
	ResourceType  string
	SensitiveOnly bool
}

// List returns audit entries for the current practice, newest first. There is
// deliberately no corresponding update or delete.
func (l *Logger) List(ctx context.Context, practiceID uuid.UUID, filter ListFilter, limit, offset int) ([]*Entry, int, error) {
	where := `WHERE practice_id = $1`
	args := []any{practiceID}
	idx := 2

	if filter.ActorID != nil {
		where += fmt.Sprintf(` AND actor_id = $%d`, idx)
		args = append(args, *filter.ActorID)
		idx++
	}
	if filter.ResourceType != "" {
		where += fmt.Sprintf(` AND resource_type = $%d`, idx)
		args = append(args, filter.ResourceType)
		idx++
	}
	if filter.SensitiveOnly {
		where += ` AND accessed_sensitive_identifier`
	}

	var total int
	if err := l.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_log `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit count: %w", err)
	}

	query := `
		SELECT id, practice_id, actor_id, actor_role, action, resource_type, resource_id,
			old_values, new_values, accessed_sensitive_identifier, justification,
			ip_address, user_agent, recorded_at
		FROM audit_log ` + where + fmt.Sprintf(` ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := l.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PracticeID, &e.ActorID, &e.ActorRole, &e.Action,
			&e.ResourceType, &e.ResourceID, &e.OldValues, &e.NewValues,
			&e.AccessedSensitiveIdentifier, &e.Justification,
			&e.IPAddress, &e.UserAgent, &e.RecordedAt); err != nil {
			return nil, 0, fmt.Errorf("audit scan: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}

// Handler exposes the read-only audit trail endpoint.
type Handler struct {
	log *Logger
}

// NewHandler creates the audit trail handler.
func NewHandler(log *Logger) *Handler {
	return &Handler{log: log}
}

// RegisterRoutes mounts the audit listing. Role gating is applied by the
// caller when building the group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-log", h.ListEntries)
}

// ListEntries lists the practice's audit trail.
func (h *Handler) ListEntries(c echo.Context) error {
	ctx := c.Request().Context()
	practiceID := db.PracticeFromContext(ctx)
	if practiceID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no practice context")
	}

	var filter ListFilter
	if actor := c.QueryParam("actor_id"); actor != "" {
		id, err := uuid.Parse(actor)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actor_id")
		}
		filter.ActorID = &id
	}
	filter.ResourceType = c.QueryParam("resource_type")
	filter.SensitiveOnly = c.QueryParam("sensitive") == "true"

	pg := pagination.FromContext(c)
	entries, total, err := h.log.List(ctx, practiceID, filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}
