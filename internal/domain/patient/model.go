package patient

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table.
type Patient struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Address        string    `db:"address" json:"address"`
	DateOfBirth    time.Time `db:"date_of_birth" json:"date_of_birth"`
	RegisteredDate time.Time `db:"registered_date" json:"registered_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// dateFormat is the wire format for date-only fields.
const dateFormat = "2006-01-02"

// CreateRequest is the JSON body for registering a patient.
type CreateRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	DateOfBirth    string `json:"date_of_birth"`
	RegisteredDate string `json:"registered_date"`
}

// UpdateRequest is the JSON body for updating a patient.
type UpdateRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
}

// Validate checks required fields and date formats.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.DateOfBirth == "" {
		return fmt.Errorf("date_of_birth is required")
	}
	if _, err := time.Parse(dateFormat, r.DateOfBirth); err != nil {
		return fmt.Errorf("invalid date_of_birth: %s", r.DateOfBirth)
	}
	if r.RegisteredDate != "" {
		if _, err := time.Parse(dateFormat, r.RegisteredDate); err != nil {
			return fmt.Errorf("invalid registered_date: %s", r.RegisteredDate)
		}
	}
	return nil
}

// Validate checks required fields and date formats.
func (r *UpdateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.DateOfBirth == "" {
		return fmt.Errorf("date_of_birth is required")
	}
	if _, err := time.Parse(dateFormat, r.DateOfBirth); err != nil {
		return fmt.Errorf("invalid date_of_birth: %s", r.DateOfBirth)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return fmt.Errorf("invalid email: %s", email)
	}
	return nil
}
