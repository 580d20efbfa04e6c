package messaging

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praktijk/praktijk/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if q := db.FromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

const threadCols = `id, practice_id, patient_id, subject, created_at, updated_at`

func (r *repoPG) CreateThread(ctx context.Context, practiceID uuid.UUID, t *Thread) error {
	t.ID = uuid.New()
	t.PracticeID = practiceID
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO message_thread (id, practice_id, patient_id, subject)
		VALUES ($1,$2,$3,$4)`,
		t.ID, t.PracticeID, t.PatientID, t.Subject,
	)
	return err
}

func (r *repoPG) GetThread(ctx context.Context, practiceID, id uuid.UUID) (*Thread, error) {
	return scanThread(r.conn(ctx).QueryRow(ctx,
		`SELECT `+threadCols+` FROM message_thread WHERE practice_id = $1 AND id = $2`,
		practiceID, id))
}

func (r *repoPG) ListThreads(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Thread, int, error) {
	return r.listThreads(ctx,
		`FROM message_thread WHERE practice_id = $1`,
		[]any{practiceID}, limit, offset)
}

func (r *repoPG) ListThreadsByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Thread, int, error) {
	return r.listThreads(ctx,
		`FROM message_thread WHERE practice_id = $1 AND patient_id = $2`,
		[]any{practiceID, patientID}, limit, offset)
}

func (r *repoPG) listThreads(ctx context.Context, where string, args []any, limit, offset int) ([]*Thread, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+threadCols+` `+where+` ORDER BY updated_at DESC LIMIT $`+
			strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var threads []*Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.PracticeID, &t.PatientID, &t.Subject, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		threads = append(threads, &t)
	}
	return threads, total, rows.Err()
}

func (r *repoPG) AddMessage(ctx context.Context, practiceID uuid.UUID, m *Message) error {
	m.ID = uuid.New()
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO message (id, thread_id, sender_id, sender_role, body)
		SELECT $1, t.id, $3, $4, $5
		FROM message_thread t WHERE t.practice_id = $2 AND t.id = $6`,
		m.ID, practiceID, m.SenderID, m.SenderRole, m.Body, m.ThreadID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	_, err = r.conn(ctx).Exec(ctx,
		`UPDATE message_thread SET updated_at = NOW() WHERE practice_id = $1 AND id = $2`,
		practiceID, m.ThreadID)
	return err
}

func (r *repoPG) ListMessages(ctx context.Context, practiceID, threadID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT m.id, m.thread_id, m.sender_id, m.sender_role, m.body, m.read_at, m.created_at
		FROM message m
		JOIN message_thread t ON t.id = m.thread_id
		WHERE t.practice_id = $1 AND m.thread_id = $2
		ORDER BY m.created_at`,
		practiceID, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.SenderRole, &m.Body, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, practiceID, threadID, messageID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE message m SET read_at = NOW()
		FROM message_thread t
		WHERE t.id = m.thread_id AND t.practice_id = $1
		  AND m.thread_id = $2 AND m.id = $3 AND m.read_at IS NULL`,
		practiceID, threadID, messageID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanThread(row pgx.Row) (*Thread, error) {
	var t Thread
	if err := row.Scan(&t.ID, &t.PracticeID, &t.PatientID, &t.Subject, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
