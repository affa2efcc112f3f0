package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pm/platform/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	items map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.items[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.items {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range m.items {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func newTestService() *Service {
	issuer := auth.NewTokenIssuer([]byte("user-service-test-signing-secret"), "pm-auth", time.Hour)
	return NewService(newMockRepo(), issuer)
}

// -- Tests --

func TestService_RegisterAndLogin(t *testing.T) {
	svc := newTestService()

	u, err := svc.Register(context.Background(), &RegisterRequest{
		Email:    "ana@example.com",
		Password: "correct-horse",
		Role:     "admin",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "correct-horse" {
		t.Error("password must not be stored in plaintext")
	}

	token, err := svc.Login(context.Background(), "ana@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != u.ID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, u.ID)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "admin" {
		t.Errorf("roles = %v", claims.Roles)
	}
}

func TestService_Login_WrongPassword(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Register(context.Background(), &RegisterRequest{Email: "ana@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := svc.Login(context.Background(), "ana@example.com", "wrong-password")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_Login_UnknownEmail(t *testing.T) {
	svc := newTestService()
	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever-pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	svc := newTestService()
	req := &RegisterRequest{Email: "ana@example.com", Password: "correct-horse"}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrEmailInUse) {
		t.Errorf("expected ErrEmailInUse, got %v", err)
	}
}

func TestService_Register_Validation(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Register(context.Background(), &RegisterRequest{Email: "bad", Password: "long-enough"}); err == nil {
		t.Error("expected error for invalid email")
	}
	if _, err := svc.Register(context.Background(), &RegisterRequest{Email: "ok@example.com", Password: "short"}); err == nil {
		t.Error("expected error for short password")
	}
}

func TestService_Validate_Garbage(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Validate("not-a-token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
