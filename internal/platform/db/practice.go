// Package db provides the connection pool, migrations, and the storage-layer
// half of practice (tenant) isolation: every tenant-scoped operation runs
// inside a single transaction whose app.practice_id session setting drives the
// row-level security policies.
package db

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	practiceIDKey contextKey = "practice_id"
	txKey         contextKey = "db_tx"
)

// Querier is the subset of pgx operations repositories need. Both pgx.Tx and
// *pgxpool.Pool satisfy it, so repository code is oblivious to whether it runs
// inside a practice-scoped transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Pool is the pool surface used by layers that both query directly and open
// their own transactions. *pgxpool.Pool satisfies it.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithPractice runs fn inside one transaction with app.practice_id set as a
// transaction-local session value. set_config(..., true) scopes the value to
// the transaction, so it cannot leak to other requests sharing the pooled
// connection. The setting and the queries in fn are atomic: if the setting
// cannot be applied the unit of work never executes.
//
// fn receives a context carrying the transaction and practice id; repositories
// pick the transaction up via FromContext. On error or panic the transaction
// is rolled back; it commits only when fn returns nil.
func WithPractice(ctx context.Context, pool Pool, practiceID uuid.UUID, fn func(ctx context.Context) error) error {
	if practiceID == uuid.Nil {
		return fmt.Errorf("practice scope: practice id is required")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("practice scope: begin: %w", err)
	}
	// Rollback after a successful commit is a no-op; this also covers panics
	// inside fn.
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT set_config('app.practice_id', $1, true)`, practiceID.String()); err != nil {
		return fmt.Errorf("practice scope: set practice context: %w", err)
	}

	scoped := context.WithValue(ctx, txKey, tx)
	scoped = context.WithValue(scoped, practiceIDKey, practiceID)

	if err := fn(scoped); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("practice scope: commit: %w", err)
	}
	return nil
}

// WithAllPractices runs fn inside one transaction with the RLS bypass setting
// enabled. This is the only cross-practice path; callers gate it behind the
// super_admin role before ever reaching this function.
func WithAllPractices(ctx context.Context, pool Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("practice scope: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT set_config('app.bypass_rls', 'on', true)`); err != nil {
		return fmt.Errorf("practice scope: set bypass context: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("practice scope: commit: %w", err)
	}
	return nil
}

// PracticeMiddleware wraps every request in a practice-scoped transaction.
// The practice id comes exclusively from the authenticated claims stashed by
// the auth middleware, never from client-supplied headers or parameters.
func PracticeMiddleware(pool *pgxpool.Pool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			pidStr, _ := c.Get("auth_practice_id").(string)
			practiceID, err := uuid.Parse(pidStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "no practice context")
			}

			return WithPractice(c.Request().Context(), pool, practiceID, func(ctx context.Context) error {
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			})
		}
	}
}

// FromContext returns the transaction bound to the current practice scope, or
// nil when the context carries none (e.g. startup tasks running on the pool).
func FromContext(ctx context.Context) Querier {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	if tx == nil {
		return nil
	}
	return tx
}

// PracticeFromContext returns the practice id of the current scope, or
// uuid.Nil outside a practice scope.
func PracticeFromContext(ctx context.Context) uuid.UUID {
	pid, _ := ctx.Value(practiceIDKey).(uuid.UUID)
	return pid
}
