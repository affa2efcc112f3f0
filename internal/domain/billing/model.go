package billing

import (
	"time"

	"github.com/google/uuid"
)

// Account statuses.
const (
	StatusOK        = "OK"
	StatusSuspended = "SUSPENDED"
	StatusClosed    = "CLOSED"
)

// Account maps to the billing_accounts table.
type Account struct {
	ID        uuid.UUID `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"account_id"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
