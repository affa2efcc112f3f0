package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no billing account matches the lookup.
var ErrNotFound = errors.New("billing account not found")

// demoAccountID is the canned account ID returned in demo mode.
const demoAccountID = "12345"

// Service creates and lists billing accounts.
//
// With a nil repository the service runs in demo mode: every request is
// acknowledged with a fixed account ID and OK status, and nothing is
// persisted. With a repository it assigns real account IDs and stores
// the accounts.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateAccount opens a billing account for a patient.
func (s *Service) CreateAccount(ctx context.Context, patientID, name, email string) (*Account, error) {
	if s.repo == nil {
		return &Account{
			AccountID: demoAccountID,
			PatientID: patientID,
			Name:      name,
			Email:     email,
			Status:    StatusOK,
		}, nil
	}

	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	// One account per patient; re-requesting returns the existing one.
	existing, err := s.repo.GetByPatientID(ctx, patientID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	a := &Account{
		ID:        uuid.New(),
		PatientID: patientID,
		Name:      name,
		Email:     email,
		Status:    StatusOK,
	}
	a.AccountID = a.ID.String()
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAccount returns the account with the given ID.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	if s.repo == nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// ListAccounts returns a page of accounts and the total count.
func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	if s.repo == nil {
		return []*Account{}, 0, nil
	}
	return s.repo.List(ctx, limit, offset)
}
