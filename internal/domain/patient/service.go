package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pm/platform/internal/platform/events"
)

var (
	// ErrNotFound is returned when no patient matches the given ID.
	ErrNotFound = errors.New("patient not found")
	// ErrEmailInUse is returned when another patient already has the email.
	ErrEmailInUse = errors.New("email address already in use")
	// ErrInvalid marks request validation failures. Repository errors are
	// never wrapped in it, so handlers can tell a bad request from a bad
	// store.
	ErrInvalid = errors.New("invalid request")
)

// BillingClient opens billing accounts for newly registered patients.
type BillingClient interface {
	CreateAccount(ctx context.Context, patientID, name, email string) (accountID, status string, err error)
}

// NopBillingClient skips billing account creation.
type NopBillingClient struct{}

func (NopBillingClient) CreateAccount(context.Context, string, string, string) (string, string, error) {
	return "", "", nil
}

type Service struct {
	repo      Repository
	billing   BillingClient
	publisher events.Publisher
}

func NewService(repo Repository, billing BillingClient, publisher events.Publisher) *Service {
	if billing == nil {
		billing = NopBillingClient{}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{repo: repo, billing: billing, publisher: publisher}
}

// Create registers a new patient. The email must not belong to any
// existing patient. A billing account is opened best-effort: a billing
// failure never rolls back the registration.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	taken, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailInUse
	}

	dob, _ := time.Parse(dateFormat, req.DateOfBirth)
	registered := time.Now()
	if req.RegisteredDate != "" {
		registered, _ = time.Parse(dateFormat, req.RegisteredDate)
	}

	p := &Patient{
		ID:             uuid.New(),
		Name:           req.Name,
		Email:          req.Email,
		Address:        req.Address,
		DateOfBirth:    dob,
		RegisteredDate: registered,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	accountID, status, err := s.billing.CreateAccount(ctx, p.ID.String(), p.Name, p.Email)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("billing account creation failed")
	} else if accountID != "" {
		log.Info().
			Str("patient_id", p.ID.String()).
			Str("account_id", accountID).
			Str("status", status).
			Msg("billing account created")
	}

	s.publish(ctx, events.TypePatientCreated, p)
	return p, nil
}

// ReconcileBilling re-requests a billing account for every stored
// patient. Account creation is idempotent on the billing side, so
// patients whose account opened on registration are unaffected; the
// pass recovers accounts missed during a billing outage. It returns
// the number of patients whose account request succeeded.
func (s *Service) ReconcileBilling(ctx context.Context) (int, error) {
	const pageSize = 100
	reconciled := 0
	for offset := 0; ; offset += pageSize {
		page, _, err := s.repo.List(ctx, pageSize, offset)
		if err != nil {
			return reconciled, err
		}
		if len(page) == 0 {
			return reconciled, nil
		}
		for _, p := range page {
			if _, _, err := s.billing.CreateAccount(ctx, p.ID.String(), p.Name, p.Email); err != nil {
				log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("billing reconciliation failed for patient")
				continue
			}
			reconciled++
		}
		if len(page) < pageSize {
			return reconciled, nil
		}
	}
}

// Get returns the patient with the given ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of patients and the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Update modifies an existing patient. The email must not belong to a
// different patient; keeping one's own email is allowed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByEmailAndIDNot(ctx, req.Email, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailInUse
	}

	dob, _ := time.Parse(dateFormat, req.DateOfBirth)
	p.Name = req.Name
	p.Email = req.Email
	p.Address = req.Address
	p.DateOfBirth = dob

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.publish(ctx, events.TypePatientUpdated, p)
	return p, nil
}

// Delete removes a patient.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.TypePatientDeleted, p)
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, p *Patient) {
	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	event := events.Event{
		Type:      eventType,
		Subject:   "patient",
		SubjectID: p.ID.String(),
		Payload:   payload,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Str("patient_id", p.ID.String()).Msg("event publish failed")
	}
}
