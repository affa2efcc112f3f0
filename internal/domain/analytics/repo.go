package analytics

import "context"

// Repository defines analytics event persistence and aggregation.
type Repository interface {
	Insert(ctx context.Context, e *Event) error
	ExistsByEventID(ctx context.Context, eventID string) (bool, error)
	List(ctx context.Context, eventType string, limit, offset int) ([]*Event, int, error)
	CountTotal(ctx context.Context) (int64, error)
	CountByType(ctx context.Context) ([]TypeCount, error)
	CountByDay(ctx context.Context, since int) ([]DailyCount, error)
}
