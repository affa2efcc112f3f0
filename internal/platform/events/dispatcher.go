package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Endpoint is a registered event subscriber.
type Endpoint struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"secret,omitempty"`
	Events    []string  `json:"events"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveryAttempt records one delivery of an event to one endpoint.
type DeliveryAttempt struct {
	ID         string        `json:"id"`
	EndpointID string        `json:"endpoint_id"`
	EventID    string        `json:"event_id"`
	EventType  string        `json:"event_type"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration_ns"`
	Attempt    int           `json:"attempt"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// EndpointStore persists subscriber endpoints and delivery history.
type EndpointStore interface {
	CreateEndpoint(ctx context.Context, ep *Endpoint) error
	GetEndpoint(ctx context.Context, id string) (*Endpoint, error)
	ListEndpoints(ctx context.Context) ([]*Endpoint, error)
	DeleteEndpoint(ctx context.Context, id string) error
	RecordDelivery(ctx context.Context, attempt *DeliveryAttempt) error
	ListDeliveries(ctx context.Context, endpointID string) ([]*DeliveryAttempt, error)
}

// MemoryStore is a thread-safe in-memory EndpointStore.
type MemoryStore struct {
	mu         sync.RWMutex
	endpoints  map[string]*Endpoint
	order      []string
	deliveries map[string][]*DeliveryAttempt
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		endpoints:  make(map[string]*Endpoint),
		deliveries: make(map[string][]*DeliveryAttempt),
	}
}

func (s *MemoryStore) CreateEndpoint(_ context.Context, ep *Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoints[ep.ID] = ep
	s.order = append(s.order, ep.ID)
	return nil
}

func (s *MemoryStore) GetEndpoint(_ context.Context, id string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("endpoint %s not found", id)
	}
	return ep, nil
}

func (s *MemoryStore) ListEndpoints(_ context.Context) ([]*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Endpoint, 0, len(s.order))
	for _, id := range s.order {
		if ep := s.endpoints[id]; ep != nil {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteEndpoint(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.endpoints[id]; !ok {
		return fmt.Errorf("endpoint %s not found", id)
	}
	delete(s.endpoints, id)
	for i, eid := range s.order {
		if eid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) RecordDelivery(_ context.Context, attempt *DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries[attempt.EndpointID] = append(s.deliveries[attempt.EndpointID], attempt)
	return nil
}

func (s *MemoryStore) ListDeliveries(_ context.Context, endpointID string) ([]*DeliveryAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deliveries[endpointID], nil
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.httpClient = c }
}

// WithMaxAttempts sets the number of delivery attempts per endpoint.
func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxAttempts = n }
}

// WithRetryDelays overrides the backoff between attempts.
func WithRetryDelays(delays []time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.retryDelays = delays }
}

// Dispatcher fans events out to subscribed endpoints.
type Dispatcher struct {
	store       EndpointStore
	httpClient  *http.Client
	maxAttempts int
	retryDelays []time.Duration
	wg          sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with sensible defaults.
func NewDispatcher(store EndpointStore, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store: store,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxAttempts: 3,
		retryDelays: []time.Duration{time.Second, 5 * time.Second},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Subscribe validates and registers a new endpoint.
func (d *Dispatcher) Subscribe(ctx context.Context, rawURL, secret string, eventTypes []string) (*Endpoint, error) {
	if err := validateEndpointURL(rawURL); err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, fmt.Errorf("secret is required")
	}
	ep := &Endpoint{
		ID:        uuid.New().String(),
		URL:       rawURL,
		Secret:    secret,
		Events:    eventTypes,
		Status:    "active",
		CreatedAt: time.Now(),
	}
	if err := d.store.CreateEndpoint(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}

func validateEndpointURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// eventMatches reports whether eventType matches a subscription pattern.
// Patterns are exact ("patient.created") or wildcard ("patient.*", "*.deleted").
func eventMatches(pattern, eventType string) bool {
	if pattern == eventType || pattern == "*" {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(eventType, pattern[1:])
	}
	if strings.HasSuffix(pattern, ".*") {
		return strings.HasPrefix(eventType, pattern[:len(pattern)-1])
	}
	return false
}

func endpointMatches(ep *Endpoint, eventType string) bool {
	for _, pat := range ep.Events {
		if eventMatches(pat, eventType) {
			return true
		}
	}
	return false
}

// Publish implements Publisher. Matching endpoints are resolved before
// returning; delivery itself runs on goroutines, so a slow or down
// subscriber never holds up the producer. Failures are logged, never
// returned.
func (d *Dispatcher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	endpoints, err := d.store.ListEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("listing endpoints: %w", err)
	}

	// Delivery outlives the producer's request context.
	deliveryCtx := context.WithoutCancel(ctx)
	for _, ep := range endpoints {
		if ep.Status != "active" || !endpointMatches(ep, event.Type) {
			continue
		}
		d.wg.Add(1)
		go func(ep *Endpoint) {
			defer d.wg.Done()
			attempt := d.deliverWithRetry(deliveryCtx, ep, event)
			if !attempt.Success {
				log.Warn().
					Str("endpoint_id", ep.ID).
					Str("event_type", event.Type).
					Str("event_id", event.ID).
					Int("attempts", attempt.Attempt).
					Str("error", attempt.Error).
					Msg("event delivery failed")
			}
		}(ep)
	}
	return nil
}

// Wait blocks until all in-flight deliveries have finished. Servers
// call it during shutdown so pending webhooks are not cut off.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// deliverWithRetry delivers the event, retrying on failure up to maxAttempts.
func (d *Dispatcher) deliverWithRetry(ctx context.Context, ep *Endpoint, event Event) *DeliveryAttempt {
	var attempt *DeliveryAttempt
	for i := 1; i <= d.maxAttempts; i++ {
		attempt = d.deliver(ctx, ep, event, i)
		if attempt.Success {
			return attempt
		}
		if i < d.maxAttempts {
			delay := d.retryDelays[len(d.retryDelays)-1]
			if i-1 < len(d.retryDelays) {
				delay = d.retryDelays[i-1]
			}
			select {
			case <-ctx.Done():
				return attempt
			case <-time.After(delay):
			}
		}
	}
	return attempt
}

func (d *Dispatcher) deliver(ctx context.Context, ep *Endpoint, event Event, attemptNo int) *DeliveryAttempt {
	payload, _ := json.Marshal(event)
	sig := Sign(payload, ep.Secret)
	now := time.Now()

	attempt := &DeliveryAttempt{
		ID:         uuid.New().String(),
		EndpointID: ep.ID,
		EventID:    event.ID,
		EventType:  event.Type,
		Attempt:    attemptNo,
		CreatedAt:  now,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		attempt.Error = err.Error()
		d.recordDelivery(ctx, attempt)
		return attempt
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, "sha256="+sig)
	req.Header.Set(EventIDHeader, event.ID)
	req.Header.Set(TimestampHeader, now.UTC().Format(time.RFC3339))

	start := time.Now()
	resp, err := d.httpClient.Do(req)
	attempt.Duration = time.Since(start)
	if err != nil {
		attempt.Error = err.Error()
		d.recordDelivery(ctx, attempt)
		return attempt
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	attempt.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		attempt.Success = true
	} else {
		attempt.Error = fmt.Sprintf("non-2xx response: %d", resp.StatusCode)
	}
	d.recordDelivery(ctx, attempt)
	return attempt
}

// recordDelivery writes the attempt to the store. The delivery log is
// the only audit trail for failed webhooks, so a write failure is
// logged rather than dropped.
func (d *Dispatcher) recordDelivery(ctx context.Context, attempt *DeliveryAttempt) {
	if err := d.store.RecordDelivery(ctx, attempt); err != nil {
		log.Error().
			Err(err).
			Str("endpoint_id", attempt.EndpointID).
			Str("event_id", attempt.EventID).
			Msg("recording delivery attempt failed")
	}
}

// Deliveries returns the delivery history for an endpoint.
func (d *Dispatcher) Deliveries(ctx context.Context, endpointID string) ([]*DeliveryAttempt, error) {
	return d.store.ListDeliveries(ctx, endpointID)
}
