package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pm/platform/internal/platform/events"
)

// -- Mock Repository --

type mockRepo struct {
	items []*Event
}

func newMockRepo() *mockRepo { return &mockRepo{} }

func (m *mockRepo) Insert(_ context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.ReceivedAt = time.Now()
	m.items = append(m.items, e)
	return nil
}

func (m *mockRepo) ExistsByEventID(_ context.Context, eventID string) (bool, error) {
	for _, e := range m.items {
		if e.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) List(_ context.Context, eventType string, limit, offset int) ([]*Event, int, error) {
	var filtered []*Event
	for _, e := range m.items {
		if eventType == "" || e.EventType == eventType {
			filtered = append(filtered, e)
		}
	}
	total := len(filtered)
	if offset >= total {
		return []*Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return filtered[offset:end], total, nil
}

func (m *mockRepo) CountTotal(_ context.Context) (int64, error) {
	return int64(len(m.items)), nil
}

func (m *mockRepo) CountByType(_ context.Context) ([]TypeCount, error) {
	counts := make(map[string]int64)
	for _, e := range m.items {
		counts[e.EventType]++
	}
	var out []TypeCount
	for t, n := range counts {
		out = append(out, TypeCount{EventType: t, Count: n})
	}
	return out, nil
}

func (m *mockRepo) CountByDay(_ context.Context, _ int) ([]DailyCount, error) {
	if len(m.items) == 0 {
		return nil, nil
	}
	return []DailyCount{{Day: time.Now().Truncate(24 * time.Hour), Count: int64(len(m.items))}}, nil
}

func sampleEvent(id, eventType string) *events.Event {
	return &events.Event{
		ID:        id,
		Type:      eventType,
		Subject:   "patient",
		SubjectID: "p-1",
		Payload:   json.RawMessage(`{"name":"Ana"}`),
		Timestamp: time.Now(),
	}
}

// -- Tests --

func TestService_Ingest(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	if err := svc.Ingest(context.Background(), sampleEvent("e-1", events.TypePatientCreated)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("stored events = %d, want 1", len(repo.items))
	}
	if repo.items[0].EventType != events.TypePatientCreated {
		t.Errorf("event_type = %q", repo.items[0].EventType)
	}
}

func TestService_Ingest_Duplicate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	if err := svc.Ingest(context.Background(), sampleEvent("e-1", events.TypePatientCreated)); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	if err := svc.Ingest(context.Background(), sampleEvent("e-1", events.TypePatientCreated)); err != nil {
		t.Fatalf("duplicate Ingest should not error: %v", err)
	}
	if len(repo.items) != 1 {
		t.Errorf("stored events = %d, want 1 after duplicate delivery", len(repo.items))
	}
}

func TestService_Ingest_Invalid(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.Ingest(context.Background(), &events.Event{Type: "patient.created"}); err == nil {
		t.Error("expected error for missing event id")
	}
	if err := svc.Ingest(context.Background(), &events.Event{ID: "e-1"}); err == nil {
		t.Error("expected error for missing event type")
	}
}

func TestService_Stats(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	for i, et := range []string{events.TypePatientCreated, events.TypePatientCreated, events.TypePatientDeleted} {
		if err := svc.Ingest(context.Background(), sampleEvent(string(rune('a'+i)), et)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}

	stats, err := svc.Stats(context.Background(), 0)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEvents != 3 {
		t.Errorf("total = %d, want 3", stats.TotalEvents)
	}
	byType := make(map[string]int64)
	for _, tc := range stats.ByType {
		byType[tc.EventType] = tc.Count
	}
	if byType[events.TypePatientCreated] != 2 || byType[events.TypePatientDeleted] != 1 {
		t.Errorf("by_type = %v", byType)
	}
}

func TestService_Stats_Empty(t *testing.T) {
	svc := NewService(newMockRepo())
	stats, err := svc.Stats(context.Background(), 7)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEvents != 0 || len(stats.ByType) != 0 || len(stats.ByDay) != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}
