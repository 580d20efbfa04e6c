package messaging

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateThread(ctx context.Context, practiceID uuid.UUID, t *Thread) error
	GetThread(ctx context.Context, practiceID, id uuid.UUID) (*Thread, error)
	ListThreads(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Thread, int, error)
	ListThreadsByPatient(ctx context.Context, practiceID, patientID uuid.UUID, limit, offset int) ([]*Thread, int, error)

	AddMessage(ctx context.Context, practiceID uuid.UUID, m *Message) error
	ListMessages(ctx context.Context, practiceID, threadID uuid.UUID) ([]*Message, error)
	MarkRead(ctx context.Context, practiceID, threadID, messageID uuid.UUID) error
}
