package patient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pm/platform/internal/platform/events"
)

// -- Mock Repository --

type mockRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for _, existing := range m.items {
		if existing.Email == p.Email {
			return ErrEmailInUse
		}
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[p.ID]; !ok {
		return ErrNotFound
	}
	m.items[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Patient
	for _, p := range m.items {
		result = append(result, p)
	}
	total := len(result)
	if offset >= total {
		return []*Patient{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return result[offset:end], total, nil
}

func (m *mockRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) ExistsByEmailAndIDNot(_ context.Context, email string, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.Email == email && p.ID != id {
			return true, nil
		}
	}
	return false, nil
}

// -- Mock Collaborators --

type mockBillingClient struct {
	calls []string
	err   error
}

func (m *mockBillingClient) CreateAccount(_ context.Context, patientID, _, _ string) (string, string, error) {
	m.calls = append(m.calls, patientID)
	if m.err != nil {
		return "", "", m.err
	}
	return "12345", "OK", nil
}

type capturingPublisher struct {
	events []events.Event
}

func (p *capturingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func validCreateRequest() *CreateRequest {
	return &CreateRequest{
		Name:        "Ana Diaz",
		Email:       "ana@example.com",
		Address:     "1 Main St",
		DateOfBirth: "1990-04-12",
	}
}

// -- Tests --

func TestService_Create(t *testing.T) {
	repo := newMockRepo()
	billing := &mockBillingClient{}
	pub := &capturingPublisher{}
	svc := NewService(repo, billing, pub)

	p, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected patient ID to be assigned")
	}
	if p.RegisteredDate.IsZero() {
		t.Error("expected registered date to default to now")
	}
	if len(billing.calls) != 1 || billing.calls[0] != p.ID.String() {
		t.Errorf("billing calls = %v", billing.calls)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypePatientCreated {
		t.Errorf("events = %+v, want one patient.created", pub.events)
	}
}

func TestService_Create_DuplicateEmail(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	if _, err := svc.Create(context.Background(), validCreateRequest()); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	req := validCreateRequest()
	req.Name = "Someone Else"
	_, err := svc.Create(context.Background(), req)
	if !errors.Is(err, ErrEmailInUse) {
		t.Errorf("expected ErrEmailInUse, got %v", err)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)

	tests := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"missing name", func(r *CreateRequest) { r.Name = "" }},
		{"missing email", func(r *CreateRequest) { r.Email = "" }},
		{"malformed email", func(r *CreateRequest) { r.Email = "not-an-email" }},
		{"missing dob", func(r *CreateRequest) { r.DateOfBirth = "" }},
		{"malformed dob", func(r *CreateRequest) { r.DateOfBirth = "12/04/1990" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			if _, err := svc.Create(context.Background(), req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestService_Create_BillingFailureDoesNotBlock(t *testing.T) {
	repo := newMockRepo()
	billing := &mockBillingClient{err: errors.New("billing unavailable")}
	svc := NewService(repo, billing, nil)

	p, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create should succeed despite billing failure, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), p.ID); err != nil {
		t.Errorf("patient not persisted: %v", err)
	}
}

func TestService_ReconcileBilling_RecoversAfterOutage(t *testing.T) {
	repo := newMockRepo()
	billing := &mockBillingClient{err: errors.New("billing unavailable")}
	svc := NewService(repo, billing, nil)

	ana, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	bo, err := svc.Create(context.Background(), &CreateRequest{
		Name: "Bo Chen", Email: "bo@example.com", DateOfBirth: "1985-01-01",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	failedCalls := len(billing.calls)

	// Billing comes back; the reconciliation pass opens the accounts
	// that registration could not.
	billing.err = nil
	n, err := svc.ReconcileBilling(context.Background())
	if err != nil {
		t.Fatalf("ReconcileBilling: %v", err)
	}
	if n != 2 {
		t.Errorf("reconciled = %d, want 2", n)
	}

	requested := make(map[string]bool)
	for _, id := range billing.calls[failedCalls:] {
		requested[id] = true
	}
	if !requested[ana.ID.String()] || !requested[bo.ID.String()] {
		t.Errorf("reconcile calls = %v, want both patients", billing.calls[failedCalls:])
	}
}

func TestService_Update(t *testing.T) {
	repo := newMockRepo()
	pub := &capturingPublisher{}
	svc := NewService(repo, nil, pub)

	p, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(context.Background(), p.ID, &UpdateRequest{
		Name:        "Ana Diaz-Lopez",
		Email:       "ana@example.com",
		Address:     "2 Oak Ave",
		DateOfBirth: "1990-04-12",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Ana Diaz-Lopez" || updated.Address != "2 Oak Ave" {
		t.Errorf("unexpected patient %+v", updated)
	}
	if len(pub.events) != 2 || pub.events[1].Type != events.TypePatientUpdated {
		t.Errorf("events = %+v, want patient.updated as second event", pub.events)
	}
}

func TestService_Update_KeepOwnEmail(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	p, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Re-submitting the same email for the same patient must not conflict.
	if _, err := svc.Update(context.Background(), p.ID, &UpdateRequest{
		Name:        p.Name,
		Email:       p.Email,
		Address:     p.Address,
		DateOfBirth: "1990-04-12",
	}); err != nil {
		t.Errorf("Update with own email: %v", err)
	}
}

func TestService_Update_EmailTakenByOther(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	if _, err := svc.Create(context.Background(), validCreateRequest()); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second := validCreateRequest()
	second.Email = "bo@example.com"
	p2, err := svc.Create(context.Background(), second)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	_, err = svc.Update(context.Background(), p2.ID, &UpdateRequest{
		Name:        p2.Name,
		Email:       "ana@example.com",
		DateOfBirth: "1990-04-12",
	})
	if !errors.Is(err, ErrEmailInUse) {
		t.Errorf("expected ErrEmailInUse, got %v", err)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)

	_, err := svc.Update(context.Background(), uuid.New(), &UpdateRequest{
		Name:        "Ghost",
		Email:       "ghost@example.com",
		DateOfBirth: "1990-01-01",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Delete(t *testing.T) {
	repo := newMockRepo()
	pub := &capturingPublisher{}
	svc := NewService(repo, nil, pub)

	p, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if len(pub.events) != 2 || pub.events[1].Type != events.TypePatientDeleted {
		t.Errorf("events = %+v, want patient.deleted as second event", pub.events)
	}
}

func TestService_Delete_NotFound(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)
	if err := svc.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_DeletedEmailReusable(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil)

	p, err := svc.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// The email frees up once its owner is gone.
	if _, err := svc.Create(context.Background(), validCreateRequest()); err != nil {
		t.Errorf("expected email to be reusable after delete, got %v", err)
	}
}
