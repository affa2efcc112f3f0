package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/pm/platform/internal/platform/events"
)

const testSecret = "analytics-ingest-test-secret"

func signedRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(events.SignatureHeader, "sha256="+events.Sign([]byte(body), testSecret))
	return req
}

func TestHandler_IngestEvent(t *testing.T) {
	e := echo.New()
	repo := newMockRepo()
	h := NewHandler(NewService(repo), testSecret)

	body := `{"id":"e-1","type":"patient.created","subject":"patient","subject_id":"p-1","payload":{"name":"Ana"}}`
	rec := httptest.NewRecorder()
	if err := h.IngestEvent(e.NewContext(signedRequest(body), rec)); err != nil {
		t.Fatalf("IngestEvent: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if len(repo.items) != 1 {
		t.Errorf("stored events = %d, want 1", len(repo.items))
	}
}

func TestHandler_IngestEvent_BadSignature(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewService(newMockRepo()), testSecret)

	body := `{"id":"e-1","type":"patient.created"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req.Header.Set(events.SignatureHeader, "sha256=deadbeef")

	err := h.IngestEvent(e.NewContext(req, httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_IngestEvent_MissingSignature(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewService(newMockRepo()), testSecret)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"id":"e-1","type":"x"}`))
	err := h.IngestEvent(e.NewContext(req, httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_IngestEvent_NoSecretSkipsVerification(t *testing.T) {
	e := echo.New()
	repo := newMockRepo()
	h := NewHandler(NewService(repo), "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"id":"e-1","type":"patient.created"}`))
	rec := httptest.NewRecorder()
	if err := h.IngestEvent(e.NewContext(req, rec)); err != nil {
		t.Fatalf("IngestEvent: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}

func TestHandler_IngestEvent_MalformedBody(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewService(newMockRepo()), testSecret)

	err := h.IngestEvent(e.NewContext(signedRequest(`{not json`), httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetStats(t *testing.T) {
	e := echo.New()
	repo := newMockRepo()
	h := NewHandler(NewService(repo), testSecret)

	body := `{"id":"e-1","type":"patient.created"}`
	if err := h.IngestEvent(e.NewContext(signedRequest(body), httptest.NewRecorder())); err != nil {
		t.Fatalf("IngestEvent: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	if err := h.GetStats(e.NewContext(req, rec)); err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	var stats Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats.TotalEvents != 1 {
		t.Errorf("total = %d, want 1", stats.TotalEvents)
	}
}

func TestHandler_ListEvents(t *testing.T) {
	e := echo.New()
	repo := newMockRepo()
	h := NewHandler(NewService(repo), testSecret)

	for _, id := range []string{"e-1", "e-2"} {
		body := `{"id":"` + id + `","type":"patient.created"}`
		if err := h.IngestEvent(e.NewContext(signedRequest(body), httptest.NewRecorder())); err != nil {
			t.Fatalf("IngestEvent: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events?type=patient.created", nil)
	rec := httptest.NewRecorder()
	if err := h.ListEvents(e.NewContext(req, rec)); err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	var resp struct {
		Data  []*Event `json:"data"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}
}
