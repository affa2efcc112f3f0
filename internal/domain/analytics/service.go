package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pm/platform/internal/platform/events"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Ingest records a delivered domain event. Re-delivered events (same
// event ID) are accepted and dropped silently.
func (s *Service) Ingest(ctx context.Context, in *events.Event) error {
	if in.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if in.Type == "" {
		return fmt.Errorf("event type is required")
	}

	seen, err := s.repo.ExistsByEventID(ctx, in.ID)
	if err != nil {
		return err
	}
	if seen {
		log.Debug().Str("event_id", in.ID).Msg("duplicate event skipped")
		return nil
	}

	occurred := in.Timestamp
	if occurred.IsZero() {
		occurred = time.Now()
	}
	e := &Event{
		EventID:    in.ID,
		EventType:  in.Type,
		Subject:    in.Subject,
		SubjectID:  in.SubjectID,
		Payload:    in.Payload,
		OccurredAt: occurred,
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return err
	}

	log.Info().
		Str("event_id", in.ID).
		Str("event_type", in.Type).
		Str("subject_id", in.SubjectID).
		Msg("event ingested")
	return nil
}

// List returns a page of recorded events, optionally filtered by type.
func (s *Service) List(ctx context.Context, eventType string, limit, offset int) ([]*Event, int, error) {
	return s.repo.List(ctx, eventType, limit, offset)
}

// Stats returns aggregate counts over the recorded events. sinceDays
// bounds the per-day series.
func (s *Service) Stats(ctx context.Context, sinceDays int) (*Stats, error) {
	if sinceDays <= 0 {
		sinceDays = 30
	}

	total, err := s.repo.CountTotal(ctx)
	if err != nil {
		return nil, err
	}
	byType, err := s.repo.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	byDay, err := s.repo.CountByDay(ctx, sinceDays)
	if err != nil {
		return nil, err
	}

	if byType == nil {
		byType = []TypeCount{}
	}
	if byDay == nil {
		byDay = []DailyCount{}
	}
	return &Stats{TotalEvents: total, ByType: byType, ByDay: byDay}, nil
}
