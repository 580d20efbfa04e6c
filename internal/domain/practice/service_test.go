package practice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -- Mock Repository --

type mockRepo struct {
	practices map[uuid.UUID]*Practice
}

func newMockRepo() *mockRepo {
	return &mockRepo{practices: make(map[uuid.UUID]*Practice)}
}

func (m *mockRepo) Create(_ context.Context, p *Practice) error {
	p.ID = uuid.New()
	p.Active = true
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.practices[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Practice, error) {
	p, ok := m.practices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) Update(_ context.Context, p *Practice) error {
	if _, ok := m.practices[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.practices[p.ID] = p
	return nil
}

func (m *mockRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	p, ok := m.practices[id]
	if !ok {
		return pgx.ErrNoRows
	}
	p.Active = false
	return nil
}

func (m *mockRepo) ListAll(_ context.Context, limit, offset int) ([]*Practice, int, error) {
	var result []*Practice
	for _, p := range m.practices {
		result = append(result, p)
	}
	return result, len(result), nil
}

// -- Tests --

func TestCreatePractice_NameRequired(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	err := svc.CreatePractice(context.Background(), &Practice{Email: "info@tandarts.nl"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing name, got %v", err)
	}
}

func TestCreatePractice_EmailRequired(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	err := svc.CreatePractice(context.Background(), &Practice{Name: "Tandartspraktijk Noord"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing email, got %v", err)
	}
}

func TestGetPractice(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	p := &Practice{Name: "Tandartspraktijk Noord", Email: "info@tandarts.nl"}
	repo.Create(context.Background(), p)

	fetched, err := svc.GetPractice(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.Name != "Tandartspraktijk Noord" {
		t.Errorf("unexpected name: %s", fetched.Name)
	}
}

func TestGetPractice_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.GetPractice(context.Background(), uuid.New())
	if err != pgx.ErrNoRows {
		t.Errorf("expected pgx.ErrNoRows, got %v", err)
	}
}

func TestUpdatePractice_Validates(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)

	p := &Practice{Name: "Tandartspraktijk Noord", Email: "info@tandarts.nl"}
	repo.Create(context.Background(), p)

	p.Name = ""
	if err := svc.UpdatePractice(context.Background(), p); err == nil {
		t.Error("expected error for empty name")
	}
}
