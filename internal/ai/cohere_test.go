package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobimpact/internal/model"
)

func TestCohereComplete_JoinsTextContent(t *testing.T) {
	var gotReq cohereRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"role":"assistant","content":[{"type":"text","text":"{\"a\":"},{"type":"text","text":"1}"}]},"finish_reason":"COMPLETE"}`))
	}))
	defer srv.Close()

	provider := NewCohereProvider(srv.URL, "key", "command-a-reasoning-08-2025", srv.Client())
	got, err := provider.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a":1}` {
		t.Errorf("got %q", got)
	}
	if gotPath != "/chat" {
		t.Errorf("path = %q, want /chat", gotPath)
	}
	if gotReq.P != cohereMinTopP {
		t.Errorf("p = %v, want clamped %v", gotReq.P, cohereMinTopP)
	}
	if gotReq.ResponseFormat.Type != "json_object" || gotReq.ResponseFormat.JSONSchema == nil {
		t.Errorf("response_format = %+v", gotReq.ResponseFormat)
	}
}

func TestCohereComplete_RateLimited(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusTooManyRequests, map[string]string{"message": "trial key limit"})

	provider := NewCohereProvider(srv.URL, "key", "command-a", client)
	_, err := provider.Complete(context.Background(), testRequest())

	var perr *model.ProviderError
	if !errors.As(err, &perr) || !perr.Transient() {
		t.Fatalf("expected transient ProviderError, got %v", err)
	}
}

func TestCohereComplete_NoText(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, map[string]any{"message": map[string]any{"content": []any{}}, "finish_reason": "MAX_TOKENS"})

	provider := NewCohereProvider(srv.URL, "key", "command-a", client)
	if _, err := provider.Complete(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error for empty content")
	}
}
