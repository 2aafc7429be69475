package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, dims int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL:             server.URL,
		APIKey:              "test-key",
		EmbeddingDimensions: dims,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func completionResponse(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewClient(Config{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(completionResponse("SELECT 1;")))
	}, 0)

	content, err := client.Complete(context.Background(), "system", []Message{{Role: "user", Content: "hola"}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if content != "SELECT 1;" {
		t.Fatalf("content = %q", content)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}, 0)

	if _, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "q"}}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompleteSurfacesHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}, 0)

	_, err := client.Complete(context.Background(), "", []Message{{Role: "user", Content: "q"}})
	if err == nil || !strings.Contains(err.Error(), "status=429") {
		t.Fatalf("err = %v", err)
	}
}

func TestCompleteJSONDecodesStrictly(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if _, ok := payload["response_format"]; !ok {
			t.Fatal("response_format missing from payload")
		}
		_, _ = w.Write([]byte(completionResponse(`{"obra":"K. Las Vias"}`)))
	}, 0)

	var out struct {
		Obra string `json:"obra"`
	}
	err := client.CompleteJSON(context.Background(), "sys", []Message{{Role: "user", Content: "q"}},
		"entity_match", map[string]any{"type": "object"}, &out)
	if err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if out.Obra != "K. Las Vias" {
		t.Fatalf("Obra = %q", out.Obra)
	}
}

func TestCompleteJSONRejectsUnknownFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completionResponse(`{"obra":"X","extra":1}`)))
	}, 0)

	var out struct {
		Obra string `json:"obra"`
	}
	err := client.CompleteJSON(context.Background(), "", []Message{{Role: "user", Content: "q"}},
		"entity_match", map[string]any{"type": "object"}, &out)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestCompleteJSONRejectsMalformedOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completionResponse(`not json at all`)))
	}, 0)

	var out struct{}
	err := client.CompleteJSON(context.Background(), "", []Message{{Role: "user", Content: "q"}},
		"schema", map[string]any{"type": "object"}, &out)
	if err == nil {
		t.Fatal("expected error for malformed output")
	}
}

func TestEmbedReturnsVector(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}, 3)

	vector, err := client.Embed(context.Background(), "pasajuntas de herrería")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("len(vector) = %d", len(vector))
	}
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
	}, 3)

	if _, err := client.Embed(context.Background(), "cemento"); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	client := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	}, 0)

	if _, err := client.Embed(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty input")
	}
}
