package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines billing account persistence.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByPatientID(ctx context.Context, patientID string) (*Account, error)
	List(ctx context.Context, limit, offset int) ([]*Account, int, error)
}
