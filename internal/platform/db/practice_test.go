package db

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithPracticeRequiresPracticeID(t *testing.T) {
	err := WithPractice(context.Background(), nil, uuid.Nil, func(ctx context.Context) error {
		t.Fatal("unit of work must not run without a practice id")
		return nil
	})
	if err == nil {
		t.Fatal("expected error for nil practice id")
	}
}

func TestFromContextEmpty(t *testing.T) {
	if q := FromContext(context.Background()); q != nil {
		t.Fatalf("expected nil querier outside a practice scope, got %T", q)
	}
}

func TestPracticeFromContext(t *testing.T) {
	if pid := PracticeFromContext(context.Background()); pid != uuid.Nil {
		t.Fatalf("expected uuid.Nil outside a practice scope, got %s", pid)
	}

	want := uuid.New()
	ctx := context.WithValue(context.Background(), practiceIDKey, want)
	if got := PracticeFromContext(ctx); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
