// Package audit implements the append-only audit trail for privileged and
// sensitive actions. Entries are never updated or deleted; the only write API
// is Record.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/praktijk/praktijk/internal/platform/db"
	"github.com/praktijk/praktijk/internal/platform/metrics"
	"github.com/praktijk/praktijk/internal/platform/privacy"
)

// UnknownSentinel is recorded when the originating request's network metadata
// is unavailable.
const UnknownSentinel = "unknown"

// ErrJustificationRequired is returned when an entry flags a sensitive
// identifier access without a justification.
var ErrJustificationRequired = errors.New("justification required for sensitive identifier access")

// Entry is one immutable audit record.
type Entry struct {
	ID                          uuid.UUID  `json:"id"`
	PracticeID                  uuid.UUID  `json:"practice_id"`
	ActorID                     uuid.UUID  `json:"actor_id"`
	ActorRole                   string     `json:"actor_role"`
	Action                      string     `json:"action"`
	ResourceType                string     `json:"resource_type"`
	ResourceID                  *uuid.UUID `json:"resource_id,omitempty"`
	OldValues                   []byte     `json:"old_values,omitempty"`
	NewValues                   []byte     `json:"new_values,omitempty"`
	AccessedSensitiveIdentifier bool       `json:"accessed_sensitive_identifier"`
	Justification               string     `json:"justification,omitempty"`
	IPAddress                   string     `json:"ip_address"`
	UserAgent                   string     `json:"user_agent"`
	RecordedAt                  time.Time  `json:"recorded_at"`
}

// Logger writes audit entries. Record joins the practice-scoped transaction
// from context when present; RecordReveal always opens and commits its own
// transaction.
type Logger struct {
	pool db.Pool
}

// NewLogger creates a Logger backed by the given pool.
func NewLogger(pool db.Pool) *Logger {
	return &Logger{pool: pool}
}

func (l *Logger) conn(ctx context.Context) db.Querier {
	if q := db.FromContext(ctx); q != nil {
		return q
	}
	return l.pool
}

// Record validates and inserts an entry. Entries flagged as sensitive
// identifier accesses are rejected without a justification.
func (l *Logger) Record(ctx context.Context, entry *Entry) error {
	if entry.AccessedSensitiveIdentifier && entry.Justification == "" {
		return ErrJustificationRequired
	}
	if entry.IPAddress == "" {
		entry.IPAddress = UnknownSentinel
	}
	if entry.UserAgent == "" {
		entry.UserAgent = UnknownSentinel
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	err := l.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_log (
			practice_id, actor_id, actor_role, action, resource_type, resource_id,
			old_values, new_values, accessed_sensitive_identifier, justification,
			ip_address, user_agent, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		entry.PracticeID, entry.ActorID, entry.ActorRole, entry.Action,
		entry.ResourceType, entry.ResourceID, entry.OldValues, entry.NewValues,
		entry.AccessedSensitiveIdentifier, entry.Justification,
		entry.IPAddress, entry.UserAgent, entry.RecordedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("audit record: %w", err)
	}

	if entry.AccessedSensitiveIdentifier {
		metrics.SensitiveReveals.Inc()
	}
	return nil
}

// RecordReveal implements privacy.RevealRecorder: it persists the mandatory
// audit record for a BSN reveal. The entry is committed in its own
// transaction before this returns, independent of any request-scoped
// transaction in ctx. A reveal response is only ever written after the audit
// row is durable, and the row survives if the surrounding request later
// rolls back.
func (l *Logger) RecordReveal(ctx context.Context, req privacy.RevealRequest) error {
	patientID := req.PatientID
	entry := &Entry{
		PracticeID:                  req.PracticeID,
		ActorID:                     req.ActorID,
		ActorRole:                   req.ActorRole,
		Action:                      "bsn.reveal",
		ResourceType:                "patient",
		ResourceID:                  &patientID,
		AccessedSensitiveIdentifier: true,
		Justification:               req.Justification,
		IPAddress:                   req.IPAddress,
		UserAgent:                   req.UserAgent,
	}
	return db.WithPractice(ctx, l.pool, req.PracticeID, func(ctx context.Context) error {
		return l.Record(ctx, entry)
	})
}

// RequestMeta extracts client IP and user agent from the request, with the
// "unknown" sentinel when unavailable.
func RequestMeta(c echo.Context) (ip, userAgent string) {
	ip = c.RealIP()
	if ip == "" {
		ip = UnknownSentinel
	}
	userAgent = c.Request().UserAgent()
	if userAgent == "" {
		userAgent = UnknownSentinel
	}
	return ip, userAgent
}
