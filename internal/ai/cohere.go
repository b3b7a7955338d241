package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultCohereBaseURL is the Cohere v2 API root.
const DefaultCohereBaseURL = "https://api.cohere.com/v2"

// Cohere rejects p outside [0.01, 0.99].
const cohereMinTopP = 0.01

// CohereProvider calls the Cohere v2 /chat endpoint in JSON mode.
type CohereProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewCohereProvider creates a provider for a Cohere model such as "command-a-reasoning-08-2025".
func NewCohereProvider(baseURL, apiKey, model string, httpClient *http.Client) *CohereProvider {
	return &CohereProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

type cohereRequest struct {
	Model          string               `json:"model"`
	Messages       []chatMessage        `json:"messages"`
	Temperature    float64              `json:"temperature"`
	P              float64              `json:"p"`
	Seed           int                  `json:"seed"`
	MaxTokens      int                  `json:"max_tokens"`
	ResponseFormat cohereResponseFormat `json:"response_format"`
}

type cohereResponseFormat struct {
	Type       string         `json:"type"`
	JSONSchema map[string]any `json:"json_schema,omitempty"`
}

type cohereResponse struct {
	Message struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// Complete sends req and returns the concatenated text content.
func (p *CohereProvider) Complete(ctx context.Context, req Request) (string, error) {
	topP := req.Params.TopP
	if topP < cohereMinTopP {
		topP = cohereMinTopP
	}

	reqBody := cohereRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Params.Temperature,
		P:           topP,
		Seed:        req.Params.Seed,
		MaxTokens:   req.Params.MaxTokens,
		ResponseFormat: cohereResponseFormat{
			Type:       "json_object",
			JSONSchema: req.Schema,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal cohere request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create cohere request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("cohere request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read cohere response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", httpError(string(FamilyCohere), resp, respBytes)
	}

	var cr cohereResponse
	if err := json.Unmarshal(respBytes, &cr); err != nil {
		return "", fmt.Errorf("parse cohere response: %w", err)
	}

	var sb strings.Builder
	for _, c := range cr.Message.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("cohere returned no text content (finish_reason %q)", cr.FinishReason)
	}
	return sb.String(), nil
}
