package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/praktijk/praktijk/internal/platform/auth"
	"github.com/praktijk/praktijk/internal/platform/privacy"
)

// ErrNoBSN is returned when a BSN operation targets a patient without a
// stored identifier.
var ErrNoBSN = errors.New("patient has no bsn on file")

// ErrValidation tags rejected input so handlers can separate it from storage
// failures.
var ErrValidation = errors.New("invalid input")

type Service struct {
	repo  Repository
	vault *privacy.Vault
}

func NewService(repo Repository, vault *privacy.Vault) *Service {
	return &Service{repo: repo, vault: vault}
}

// CreatePatient stores a new patient. A non-empty bsn is validated against the
// 11-proof and encrypted before the row is written; the plaintext is gone by
// the time the repo sees the model.
func (s *Service) CreatePatient(ctx context.Context, practiceID uuid.UUID, p *Patient, bsn string) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	if bsn != "" {
		if err := s.attachBSN(p, bsn); err != nil {
			return err
		}
	}
	if err := s.repo.Create(ctx, practiceID, p); err != nil {
		return err
	}
	return s.decorate(p)
}

func (s *Service) GetPatient(ctx context.Context, practiceID, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, practiceID, id)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPatients(ctx context.Context, practiceID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	patients, total, err := s.repo.List(ctx, practiceID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, p := range patients {
		if err := s.decorate(p); err != nil {
			return nil, 0, err
		}
	}
	return patients, total, nil
}

func (s *Service) UpdatePatient(ctx context.Context, practiceID uuid.UUID, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, practiceID, p)
}

// SetBSN stores or replaces the patient's identifier.
func (s *Service) SetBSN(ctx context.Context, practiceID, id uuid.UUID, bsn string) error {
	enc, err := s.vault.Store(bsn)
	if err != nil {
		return err
	}
	return s.repo.UpdateBSN(ctx, practiceID, id, enc.Blob, enc.LookupHash, enc.KeyVersion)
}

// DeactivatePatient disables the record. Patient rows are never hard deleted;
// clinical history and invoices keep referencing them.
func (s *Service) DeactivatePatient(ctx context.Context, practiceID, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, practiceID, id)
}

// SearchByBSN finds the patient holding the given identifier via the lookup
// hash. The stored blobs are never decrypted for the comparison.
func (s *Service) SearchByBSN(ctx context.Context, practiceID uuid.UUID, bsn string) (*Patient, error) {
	hash, err := s.vault.SearchHash(bsn)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByBSNHash(ctx, practiceID, hash)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RevealBSN returns the plaintext identifier for an explicitly justified
// request. The audit record is written before any plaintext leaves the vault.
func (s *Service) RevealBSN(ctx context.Context, practiceID, patientID uuid.UUID, justification, ip, userAgent string) (string, error) {
	p, err := s.repo.GetByID(ctx, practiceID, patientID)
	if err != nil {
		return "", err
	}
	if !p.HasBSN() {
		return "", ErrNoBSN
	}

	principal := auth.PrincipalFromContext(ctx)
	if principal == nil {
		return "", fmt.Errorf("reveal requires an authenticated principal")
	}

	return s.vault.Reveal(ctx, storedBSN(p), privacy.RevealRequest{
		ActorID:       principal.UserID,
		ActorRole:     string(principal.Role),
		PracticeID:    practiceID,
		PatientID:     patientID,
		Justification: justification,
		IPAddress:     ip,
		UserAgent:     userAgent,
	})
}

// MaskedBSN returns the masked identifier for use on other documents
// (invoices). Satisfies billing.PatientDirectory.
func (s *Service) MaskedBSN(ctx context.Context, practiceID, patientID uuid.UUID) (string, error) {
	p, err := s.repo.GetByID(ctx, practiceID, patientID)
	if err != nil {
		return "", err
	}
	if !p.HasBSN() {
		return "", nil
	}
	return s.vault.MaskedFromStored(storedBSN(p))
}

// ReEncryptBSN re-seals the stored identifier under the current key version.
// Used by the key rotation maintenance command; the lookup hash is unchanged.
func (s *Service) ReEncryptBSN(ctx context.Context, practiceID, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, practiceID, id)
	if err != nil {
		return err
	}
	if !p.HasBSN() {
		return ErrNoBSN
	}
	enc, err := s.vault.ReEncrypt(storedBSN(p))
	if err != nil {
		return err
	}
	return s.repo.UpdateBSN(ctx, practiceID, id, enc.Blob, enc.LookupHash, enc.KeyVersion)
}

// decorate fills the masked BSN on read paths.
func (s *Service) decorate(p *Patient) error {
	if !p.HasBSN() {
		return nil
	}
	masked, err := s.vault.MaskedFromStored(storedBSN(p))
	if err != nil {
		return err
	}
	p.BSN = masked
	return nil
}

// attachBSN encrypts the plaintext onto the model.
func (s *Service) attachBSN(p *Patient, bsn string) error {
	enc, err := s.vault.Store(bsn)
	if err != nil {
		return err
	}
	p.BSNEncrypted = enc.Blob
	p.BSNHash = &enc.LookupHash
	p.BSNKeyVersion = &enc.KeyVersion
	return nil
}

func storedBSN(p *Patient) *privacy.EncryptedBSN {
	enc := &privacy.EncryptedBSN{Blob: p.BSNEncrypted}
	if p.BSNHash != nil {
		enc.LookupHash = *p.BSNHash
	}
	if p.BSNKeyVersion != nil {
		enc.KeyVersion = *p.BSNKeyVersion
	}
	return enc
}

func validatePatient(p *Patient) error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("%w: first_name and last_name are required", ErrValidation)
	}
	return nil
}
