// Package events provides signed HTTP event delivery between services.
// Producers publish domain events; the dispatcher fans them out to
// subscribed endpoints with HMAC-SHA256 signed payloads and retries.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event types emitted by the platform.
const (
	TypePatientCreated = "patient.created"
	TypePatientUpdated = "patient.updated"
	TypePatientDeleted = "patient.deleted"
	TypeBillingCreated = "billing.account.created"
)

// Event is a domain event fanned out to subscribed endpoints.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Subject   string          `json:"subject"`
	SubjectID string          `json:"subject_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher is implemented by anything that can emit domain events.
// Publish must not block the caller's request path on delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards all events. Used when event delivery is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
