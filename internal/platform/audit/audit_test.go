package audit

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"

	"github.com/praktijk/praktijk/internal/platform/db"
	"github.com/praktijk/praktijk/internal/platform/privacy"
)

// fakePool hands out in-memory transactions so the write path can be
// exercised without a database.
type fakePool struct {
	txs       []*fakeTx
	commitErr error
}

func (p *fakePool) Begin(_ context.Context) (pgx.Tx, error) {
	tx := &fakeTx{commitErr: p.commitErr}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func (p *fakePool) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (p *fakePool) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}

func (p *fakePool) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeRow{}
}

type fakeTx struct {
	execs      []string
	inserts    []string
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }

func (t *fakeTx) Commit(_ context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if strings.Contains(sql, "INSERT INTO audit_log") {
		t.inserts = append(t.inserts, sql)
	}
	return fakeRow{id: uuid.New()}
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type fakeRow struct {
	id uuid.UUID
}

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) > 0 {
		if p, ok := dest[0].(*uuid.UUID); ok {
			*p = r.id
		}
	}
	return nil
}

func revealRequest(practiceID uuid.UUID) privacy.RevealRequest {
	return privacy.RevealRequest{
		ActorID:       uuid.New(),
		ActorRole:     "dentist",
		PracticeID:    practiceID,
		PatientID:     uuid.New(),
		Justification: "insurance verification",
	}
}

func TestRecordRejectsSensitiveEntryWithoutJustification(t *testing.T) {
	l := NewLogger(nil)

	err := l.Record(context.Background(), &Entry{
		Action:                      "bsn.reveal",
		AccessedSensitiveIdentifier: true,
	})
	if !errors.Is(err, ErrJustificationRequired) {
		t.Fatalf("expected ErrJustificationRequired, got %v", err)
	}
}

func TestRecordRevealDurableBeforeReturn(t *testing.T) {
	outer := &fakePool{}
	own := &fakePool{}
	l := NewLogger(own)
	practiceID := uuid.New()

	err := db.WithPractice(context.Background(), outer, practiceID, func(ctx context.Context) error {
		if err := l.RecordReveal(ctx, revealRequest(practiceID)); err != nil {
			return err
		}
		// The request transaction is still open here; the reveal record
		// must already be committed on its own.
		if len(own.txs) != 1 {
			t.Fatalf("expected one dedicated transaction, got %d", len(own.txs))
		}
		if !own.txs[0].committed {
			t.Error("reveal record not committed before RecordReveal returned")
		}
		if len(own.txs[0].inserts) != 1 {
			t.Errorf("expected one audit insert, got %d", len(own.txs[0].inserts))
		}
		if len(outer.txs[0].inserts) != 0 {
			t.Error("reveal record must not ride the request transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecordRevealFailsWhenCommitFails(t *testing.T) {
	own := &fakePool{commitErr: errors.New("connection reset")}
	l := NewLogger(own)

	err := l.RecordReveal(context.Background(), revealRequest(uuid.New()))
	if err == nil {
		t.Fatal("expected error when the audit commit fails")
	}
	if len(own.txs) != 1 || own.txs[0].committed {
		t.Error("failed commit must not be reported as committed")
	}
}

func TestRequestMeta(t *testing.T) {
	e := echo.New()

	t.Run("captures ip and user agent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("User-Agent", "praktijk-test/1.0")
		req.RemoteAddr = "192.0.2.7:5522"
		c := e.NewContext(req, httptest.NewRecorder())

		ip, ua := RequestMeta(c)
		if ip != "192.0.2.7" {
			t.Errorf("expected ip 192.0.2.7, got %q", ip)
		}
		if ua != "praktijk-test/1.0" {
			t.Errorf("expected user agent praktijk-test/1.0, got %q", ua)
		}
	})

	t.Run("unknown sentinel when absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = ""
		c := e.NewContext(req, httptest.NewRecorder())

		ip, ua := RequestMeta(c)
		if ip != UnknownSentinel {
			t.Errorf("expected %q, got %q", UnknownSentinel, ip)
		}
		if ua != UnknownSentinel {
			t.Errorf("expected %q, got %q", UnknownSentinel, ua)
		}
	})
}
