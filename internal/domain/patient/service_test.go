package patient

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/praktijk/praktijk/internal/platform/auth"
	"github.com/praktijk/praktijk/internal/platform/privacy"
)

// validBSN passes the 11-proof.
const validBSN = "111222333"

// -- Mock Repository --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, practiceID uuid.UUID, p *Patient) error {
	p.ID = uuid.New()
	p.PracticeID = practiceID
	p.Active = true
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, practiceID, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok || p.PracticeID != practiceID {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) List(_ context.Context, practiceID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if p.PracticeID == practiceID {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) Update(_ context.Context, practiceID uuid.UUID, p *Patient) error {
	existing, ok := m.patients[p.ID]
	if !ok || existing.PracticeID != practiceID {
		return pgx.ErrNoRows
	}
	p.PracticeID = practiceID
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) UpdateBSN(_ context.Context, practiceID, id uuid.UUID, blob []byte, hash string, keyVersion int) error {
	p, ok := m.patients[id]
	if !ok || p.PracticeID != practiceID {
		return pgx.ErrNoRows
	}
	p.BSNEncrypted = blob
	p.BSNHash = &hash
	p.BSNKeyVersion = &keyVersion
	return nil
}

func (m *mockRepo) Deactivate(_ context.Context, practiceID, id uuid.UUID) error {
	p, ok := m.patients[id]
	if !ok || p.PracticeID != practiceID {
		return pgx.ErrNoRows
	}
	p.Active = false
	return nil
}

func (m *mockRepo) FindByBSNHash(_ context.Context, practiceID uuid.UUID, hash string) (*Patient, error) {
	for _, p := range m.patients {
		if p.PracticeID == practiceID && p.BSNHash != nil && *p.BSNHash == hash {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// -- Test fixtures --

type recorderStub struct {
	calls []privacy.RevealRequest
	err   error
}

func (r *recorderStub) RecordReveal(_ context.Context, req privacy.RevealRequest) error {
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, req)
	return nil
}

func newTestVault(t *testing.T, recorder privacy.RevealRecorder) *privacy.Vault {
	t.Helper()
	keyring, err := privacy.NewKeyring(bytes.Repeat([]byte{0x4b}, 32), 1)
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	vault, err := privacy.NewVault(keyring, bytes.Repeat([]byte{0x68}, 32), recorder)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	return vault
}

func principalCtx(role auth.Role, practiceID uuid.UUID) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{
		UserID:     uuid.New(),
		Role:       role,
		PracticeID: practiceID,
	})
}

// -- Tests --

func TestCreatePatient_WithBSN(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	if err := svc.CreatePatient(context.Background(), practiceID, p, validBSN); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(p.BSNEncrypted) == 0 {
		t.Error("expected encrypted blob to be stored")
	}
	if p.BSNHash == nil || *p.BSNHash == "" {
		t.Error("expected lookup hash to be stored")
	}
	if p.BSNKeyVersion == nil || *p.BSNKeyVersion != 1 {
		t.Error("expected key version 1")
	}
	if p.BSN != "***.***.**33" {
		t.Errorf("expected masked bsn on read, got %q", p.BSN)
	}
	if bytes.Contains(p.BSNEncrypted, []byte(validBSN)) {
		t.Error("plaintext must not appear in the stored blob")
	}
}

func TestCreatePatient_InvalidBSN(t *testing.T) {
	svc := NewService(newMockRepo(), newTestVault(t, &recorderStub{}))

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	err := svc.CreatePatient(context.Background(), uuid.New(), p, "123456789")
	if !errors.Is(err, privacy.ErrInvalidBSN) {
		t.Errorf("expected ErrInvalidBSN, got %v", err)
	}
}

func TestCreatePatient_WithoutBSN(t *testing.T) {
	svc := NewService(newMockRepo(), newTestVault(t, &recorderStub{}))

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	if err := svc.CreatePatient(context.Background(), uuid.New(), p, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HasBSN() {
		t.Error("expected no stored identifier")
	}
	if p.BSN != "" {
		t.Error("expected no masked value")
	}
}

func TestGetPatient_MasksBSN(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, validBSN)

	fetched, err := svc.GetPatient(context.Background(), practiceID, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.BSN != "***.***.**33" {
		t.Errorf("expected masked bsn, got %q", fetched.BSN)
	}
	if strings.Contains(fetched.BSN, validBSN[:7]) {
		t.Error("mask must not expose leading digits")
	}
}

func TestGetPatient_CrossPracticeNotFound(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, "")

	_, err := svc.GetPatient(context.Background(), uuid.New(), p.ID)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected pgx.ErrNoRows for other practice, got %v", err)
	}
}

func TestSearchByBSN(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, validBSN)

	found, err := svc.SearchByBSN(context.Background(), practiceID, validBSN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != p.ID {
		t.Error("expected matching patient")
	}
	if found.BSN != "***.***.**33" {
		t.Errorf("search result must be masked, got %q", found.BSN)
	}
}

func TestSearchByBSN_ScopedToPractice(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), uuid.New(), p, validBSN)

	_, err := svc.SearchByBSN(context.Background(), uuid.New(), validBSN)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected pgx.ErrNoRows for other practice, got %v", err)
	}
}

func TestRevealBSN(t *testing.T) {
	repo := newMockRepo()
	recorder := &recorderStub{}
	svc := NewService(repo, newTestVault(t, recorder))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, validBSN)

	ctx := principalCtx(auth.RoleDentist, practiceID)
	bsn, err := svc.RevealBSN(ctx, practiceID, p.ID, "verification of insurance claim", "192.0.2.1", "curl/8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bsn != validBSN {
		t.Errorf("expected plaintext %s, got %s", validBSN, bsn)
	}
	if len(recorder.calls) != 1 {
		t.Fatalf("expected exactly one audit record, got %d", len(recorder.calls))
	}
	rec := recorder.calls[0]
	if rec.PatientID != p.ID || rec.PracticeID != practiceID {
		t.Error("audit record must identify patient and practice")
	}
	if rec.IPAddress != "192.0.2.1" {
		t.Errorf("unexpected ip in audit record: %s", rec.IPAddress)
	}
}

func TestRevealBSN_ShortJustification(t *testing.T) {
	repo := newMockRepo()
	recorder := &recorderStub{}
	svc := NewService(repo, newTestVault(t, recorder))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, validBSN)

	ctx := principalCtx(auth.RoleDentist, practiceID)
	_, err := svc.RevealBSN(ctx, practiceID, p.ID, "ok", "192.0.2.1", "curl/8")
	if !errors.Is(err, privacy.ErrJustificationTooShort) {
		t.Errorf("expected ErrJustificationTooShort, got %v", err)
	}
	if len(recorder.calls) != 0 {
		t.Error("rejected reveal must not write an audit record")
	}
}

func TestRevealBSN_AuditFailureFailsClosed(t *testing.T) {
	repo := newMockRepo()
	recorder := &recorderStub{err: errors.New("audit store down")}
	svc := NewService(repo, newTestVault(t, recorder))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, validBSN)

	ctx := principalCtx(auth.RoleDentist, practiceID)
	bsn, err := svc.RevealBSN(ctx, practiceID, p.ID, "insurance verification", "192.0.2.1", "curl/8")
	if !errors.Is(err, privacy.ErrAuditWriteFailed) {
		t.Errorf("expected ErrAuditWriteFailed, got %v", err)
	}
	if bsn != "" {
		t.Error("no plaintext may be released when the audit write fails")
	}
}

func TestRevealBSN_NoBSNOnFile(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, "")

	ctx := principalCtx(auth.RoleAdmin, practiceID)
	_, err := svc.RevealBSN(ctx, practiceID, p.ID, "insurance verification", "192.0.2.1", "curl/8")
	if !errors.Is(err, ErrNoBSN) {
		t.Errorf("expected ErrNoBSN, got %v", err)
	}
}

func TestRevealBSN_RequiresPrincipal(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, validBSN)

	_, err := svc.RevealBSN(context.Background(), practiceID, p.ID, "insurance verification", "192.0.2.1", "curl/8")
	if err == nil {
		t.Error("expected error without authenticated principal")
	}
}

func TestMaskedBSN(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, validBSN)

	masked, err := svc.MaskedBSN(context.Background(), practiceID, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if masked != "***.***.**33" {
		t.Errorf("unexpected masked value: %q", masked)
	}
}

func TestReEncryptBSN_KeepsLookupHash(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, newTestVault(t, &recorderStub{}))
	practiceID := uuid.New()

	p := &Patient{FirstName: "Jan", LastName: "Jansen"}
	svc.CreatePatient(context.Background(), practiceID, p, validBSN)
	hashBefore := *p.BSNHash
	blobBefore := append([]byte(nil), p.BSNEncrypted...)

	if err := svc.ReEncryptBSN(context.Background(), practiceID, p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *p.BSNHash != hashBefore {
		t.Error("lookup hash must survive re-encryption")
	}
	if bytes.Equal(p.BSNEncrypted, blobBefore) {
		t.Error("expected a fresh blob after re-encryption")
	}

	// Equality search still finds the patient.
	if _, err := svc.SearchByBSN(context.Background(), practiceID, validBSN); err != nil {
		t.Errorf("search after re-encryption: %v", err)
	}
}

func TestCreatePatient_NameRequired(t *testing.T) {
	svc := NewService(newMockRepo(), newTestVault(t, &recorderStub{}))

	err := svc.CreatePatient(context.Background(), uuid.New(), &Patient{LastName: "Jansen"}, "")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}
