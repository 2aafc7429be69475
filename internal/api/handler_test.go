package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/facturabot/facturabot/internal/agent"
	"github.com/facturabot/facturabot/internal/catalog"
	"github.com/facturabot/facturabot/internal/chatlog"
	"github.com/facturabot/facturabot/internal/config"
)

type fakeAgent struct {
	response agent.Response
	err      error
	requests []agent.Request
}

func (f *fakeAgent) HandleTurn(_ context.Context, req agent.Request) (agent.Response, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

type fakeCatalog struct {
	snapshot catalog.Snapshot
	err      error
}

func (f *fakeCatalog) Snapshot() (catalog.Snapshot, error) { return f.snapshot, f.err }

type fakeFeedback struct {
	err       error
	feedbacks []chatlog.Feedback
}

func (f *fakeFeedback) RecordFeedback(_ context.Context, feedback chatlog.Feedback) error {
	f.feedbacks = append(f.feedbacks, feedback)
	return f.err
}

func testConfig() config.Config {
	return config.Config{Service: config.ServiceConfig{Name: "facturabot"}}
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{})
	rec := doRequest(t, handler, http.MethodGet, "/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyFailsWhenCheckFails(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{
		Readiness: func(context.Context) error { return errors.New("catalog not loaded") },
	})
	rec := doRequest(t, handler, http.MethodGet, "/v1/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestChatTurn(t *testing.T) {
	agentFake := &fakeAgent{response: agent.Response{
		SessionID: "s1",
		Reply:     "El total es 100 €.",
		Intent:    agent.Intent{Type: agent.IntentSQLQuery, NeedsSQL: true, Confidence: 0.9},
		QueryType: "STATIC",
		SQL:       "SELECT SUM(importe) FROM portal_desglosado",
		Table: &agent.ResultTable{
			Columns:   []string{"total"},
			Rows:      [][]any{{float64(100)}},
			TotalRows: 1,
		},
		LatencyMS: 321,
	}}
	handler := NewHandler(testConfig(), Dependencies{Agent: agentFake})

	rec := doRequest(t, handler, http.MethodPost, "/v1/chat",
		`{"session_id": "s1", "user_id": "u1", "message": "total facturado", "filters": {"obras": ["Torre Sur"]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.Reply != "El total es 100 €." {
		t.Fatalf("unexpected reply: %q", response.Reply)
	}
	if response.QueryType != "STATIC" || response.Table == nil {
		t.Fatalf("query artifacts missing: %+v", response)
	}
	if len(agentFake.requests) != 1 {
		t.Fatalf("expected one turn, got %d", len(agentFake.requests))
	}
	if got := agentFake.requests[0].Filters.Projects; len(got) != 1 || got[0] != "Torre Sur" {
		t.Fatalf("filters not forwarded: %+v", agentFake.requests[0].Filters)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Agent: &fakeAgent{}})
	rec := doRequest(t, handler, http.MethodPost, "/v1/chat", `{"session_id": "s1", "message": "  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatRejectsUnknownFields(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Agent: &fakeAgent{}})
	rec := doRequest(t, handler, http.MethodPost, "/v1/chat", `{"message": "hola", "bogus": true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Catalog: &fakeCatalog{snapshot: catalog.Snapshot{
		Projects:  []string{"Torre Sur"},
		Suppliers: []string{"Gruas Levante"},
		LoadedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}}})

	rec := doRequest(t, handler, http.MethodGet, "/v1/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var response catalogResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response.Projects) != 1 || response.Projects[0] != "Torre Sur" {
		t.Fatalf("unexpected catalog: %+v", response)
	}
}

func TestCatalogNotLoaded(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Catalog: &fakeCatalog{err: catalog.ErrNotLoaded}})
	rec := doRequest(t, handler, http.MethodGet, "/v1/catalog", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestFeedback(t *testing.T) {
	feedback := &fakeFeedback{}
	handler := NewHandler(testConfig(), Dependencies{Feedback: feedback})

	rec := doRequest(t, handler, http.MethodPost, "/v1/feedback",
		`{"session_id": "s1", "rating": 5, "text": "perfecto"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(feedback.feedbacks) != 1 || feedback.feedbacks[0].Rating != 5 {
		t.Fatalf("feedback not recorded: %+v", feedback.feedbacks)
	}
}

func TestFeedbackRatingValidation(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Feedback: &fakeFeedback{}})
	rec := doRequest(t, handler, http.MethodPost, "/v1/feedback", `{"session_id": "s1", "rating": 9}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFeedbackUnknownSession(t *testing.T) {
	handler := NewHandler(testConfig(), Dependencies{Feedback: &fakeFeedback{err: chatlog.ErrSessionNotFound}})
	rec := doRequest(t, handler, http.MethodPost, "/v1/feedback", `{"session_id": "missing", "rating": 3}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
