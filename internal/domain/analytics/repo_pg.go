package analytics

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pm/platform/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG creates a PostgreSQL-backed analytics repository.
func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const eventCols = `id, event_id, event_type, subject, subject_id, payload, occurred_at, received_at`

func (r *repoPG) Insert(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	// ON CONFLICT keeps replayed deliveries from double-counting.
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO analytics_events (id, event_id, event_type, subject, subject_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		e.ID, e.EventID, e.EventType, e.Subject, e.SubjectID, e.Payload, e.OccurredAt)
	return err
}

func (r *repoPG) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM analytics_events WHERE event_id = $1)`, eventID).Scan(&exists)
	return exists, err
}

func (r *repoPG) List(ctx context.Context, eventType string, limit, offset int) ([]*Event, int, error) {
	var (
		total int
		rows  pgx.Rows
		err   error
	)
	if eventType == "" {
		if err = r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM analytics_events`).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = r.conn(ctx).Query(ctx, `SELECT `+eventCols+` FROM analytics_events ORDER BY received_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		if err = r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM analytics_events WHERE event_type = $1`, eventType).Scan(&total); err != nil {
			return nil, 0, err
		}
		rows, err = r.conn(ctx).Query(ctx, `SELECT `+eventCols+` FROM analytics_events WHERE event_type = $1 ORDER BY received_at DESC LIMIT $2 OFFSET $3`, eventType, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.Subject, &e.SubjectID, &e.Payload, &e.OccurredAt, &e.ReceivedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}

func (r *repoPG) CountTotal(ctx context.Context) (int64, error) {
	var total int64
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM analytics_events`).Scan(&total)
	return total, err
}

func (r *repoPG) CountByType(ctx context.Context) ([]TypeCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT event_type, COUNT(*) FROM analytics_events
		GROUP BY event_type ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.EventType, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *repoPG) CountByDay(ctx context.Context, since int) ([]DailyCount, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT date_trunc('day', received_at) AS day, COUNT(*)
		FROM analytics_events
		WHERE received_at >= NOW() - ($1 || ' days')::interval
		GROUP BY day ORDER BY day`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}
