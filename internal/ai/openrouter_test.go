package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/schema"
)

func makeTestServer(t *testing.T, statusCode int, body any) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if statusCode == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "7")
		}
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, srv.Client()
}

func choiceResponse(content string) chatResponse {
	var c chatChoice
	c.Message.Content = content
	return chatResponse{Choices: []chatChoice{c}}
}

func testRequest() Request {
	return Request{
		System:     SystemPrompt,
		User:       UserPrompt("Nurse"),
		SchemaName: schema.Name,
		Schema:     schema.JSONSchema(schema.V2),
		Params:     DefaultParams(),
	}
}

func TestOpenRouterComplete_Success(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, choiceResponse(`{"job_title":"Nurse"}`))

	provider := NewOpenRouterProvider(srv.URL, "test-key", "openai/gpt-5", client)
	got, err := provider.Complete(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"job_title":"Nurse"}` {
		t.Errorf("got %q, want json string", got)
	}
}

func TestOpenRouterComplete_RateLimitedIsTransient(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})

	provider := NewOpenRouterProvider(srv.URL, "test-key", "openai/gpt-5", client)
	_, err := provider.Complete(context.Background(), testRequest())

	var perr *model.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if !perr.Transient() || perr.StatusCode != 429 {
		t.Errorf("got kind %v status %d, want transient 429", perr.Kind, perr.StatusCode)
	}
	if perr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", perr.RetryAfter)
	}
}

func TestOpenRouterComplete_ServerErrorIsPermanent(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusUnauthorized, map[string]string{"error": "bad key"})

	provider := NewOpenRouterProvider(srv.URL, "test-key", "openai/gpt-5", client)
	_, err := provider.Complete(context.Background(), testRequest())

	var perr *model.ProviderError
	if !errors.As(err, &perr) || perr.Transient() {
		t.Fatalf("expected permanent ProviderError, got %v", err)
	}
}

func TestOpenRouterComplete_EmbeddedUpstreamError(t *testing.T) {
	body := map[string]any{"error": map[string]any{"message": "upstream rate limit", "code": 429}}
	srv, client := makeTestServer(t, http.StatusOK, body)

	provider := NewOpenRouterProvider(srv.URL, "test-key", "x-ai/grok-4", client)
	_, err := provider.Complete(context.Background(), testRequest())

	var perr *model.ProviderError
	if !errors.As(err, &perr) || !perr.Transient() {
		t.Fatalf("expected transient ProviderError, got %v", err)
	}
}

func TestOpenRouterComplete_EmptyChoices(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, chatResponse{})

	provider := NewOpenRouterProvider(srv.URL, "test-key", "openai/gpt-5", client)
	if _, err := provider.Complete(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error when LLM returns no choices")
	}
}

func TestOpenRouterComplete_SendsDeterministicStructuredRequest(t *testing.T) {
	var gotReq chatRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(choiceResponse("{}"))
	}))
	defer srv.Close()

	provider := NewOpenRouterProvider(srv.URL+"/", "my-secret-key", "anthropic/claude-4.5-sonnet", srv.Client())
	_, _ = provider.Complete(context.Background(), testRequest())

	if gotAuth != "Bearer my-secret-key" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
	if gotReq.Model != "anthropic/claude-4.5-sonnet" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if gotReq.ResponseFormat.Type != "json_schema" || gotReq.ResponseFormat.JSONSchema.Name != schema.Name {
		t.Errorf("response_format = %+v", gotReq.ResponseFormat)
	}
	if gotReq.Temperature != 0 || gotReq.TopP != 0 || gotReq.Seed != 42 || gotReq.MaxTokens != 1024 {
		t.Errorf("generation params = %v/%v/%v/%v, want 0/0/42/1024", gotReq.Temperature, gotReq.TopP, gotReq.Seed, gotReq.MaxTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "Job:\nNurse" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}
