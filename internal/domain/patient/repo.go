package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines patient persistence.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmailAndIDNot(ctx context.Context, email string, id uuid.UUID) (bool, error)
}
