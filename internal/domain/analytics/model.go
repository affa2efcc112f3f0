package analytics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event maps to the analytics_events table. It records every domain
// event consumed by the analytics service.
type Event struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	EventID    string          `db:"event_id" json:"event_id"`
	EventType  string          `db:"event_type" json:"event_type"`
	Subject    string          `db:"subject" json:"subject"`
	SubjectID  string          `db:"subject_id" json:"subject_id"`
	Payload    json.RawMessage `db:"payload" json:"payload"`
	OccurredAt time.Time       `db:"occurred_at" json:"occurred_at"`
	ReceivedAt time.Time       `db:"received_at" json:"received_at"`
}

// TypeCount is an aggregate of events per type.
type TypeCount struct {
	EventType string `db:"event_type" json:"event_type"`
	Count     int64  `db:"count" json:"count"`
}

// DailyCount is an aggregate of events per day.
type DailyCount struct {
	Day   time.Time `db:"day" json:"day"`
	Count int64     `db:"count" json:"count"`
}

// Stats is the summary returned by the stats endpoint.
type Stats struct {
	TotalEvents int64        `json:"total_events"`
	ByType      []TypeCount  `json:"by_type"`
	ByDay       []DailyCount `json:"by_day"`
}
