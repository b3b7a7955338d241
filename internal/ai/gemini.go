package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amishk599/jobimpact/internal/model"
)

// GeminiProvider calls Google Gemini with a response schema.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider opens a Gemini client for model. Close releases it.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Complete sends req and returns the text of the first candidate.
// The SDK exposes no seed parameter, so Params.Seed is not forwarded.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	m := p.client.GenerativeModel(p.model)
	m.SetTemperature(float32(req.Params.Temperature))
	m.SetTopP(float32(req.Params.TopP))
	m.SetMaxOutputTokens(int32(req.Params.MaxTokens))
	m.ResponseMIMEType = "application/json"
	m.ResponseSchema = toGeminiSchema(req.Schema)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}

	resp, err := m.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	return extractText(resp)
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// classifyGeminiError maps SDK errors onto ProviderError using the gRPC
// status first and the REST error code second.
func classifyGeminiError(err error) error {
	perr := &model.ProviderError{Provider: string(FamilyGemini), Kind: model.KindPermanent, Err: err}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		if st.Code() == codes.ResourceExhausted {
			perr.Kind = model.KindTransient
			perr.StatusCode = http.StatusTooManyRequests
		}
		return perr
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		perr.StatusCode = gerr.Code
		if gerr.Code == http.StatusTooManyRequests {
			perr.Kind = model.KindTransient
		}
		return perr
	}

	if model.MentionsRateLimit(err.Error()) {
		perr.Kind = model.KindTransient
	}
	return perr
}

// toGeminiSchema converts a JSON Schema document into the SDK's schema type.
// Only the keywords the prediction schema uses are translated.
func toGeminiSchema(doc map[string]any) *genai.Schema {
	if doc == nil {
		return nil
	}
	s := &genai.Schema{}

	switch doc["type"] {
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	}

	if d, ok := doc["description"].(string); ok {
		s.Description = d
	}
	s.Enum = stringList(doc["enum"])
	s.Required = stringList(doc["required"])

	if items, ok := doc["items"].(map[string]any); ok {
		s.Items = toGeminiSchema(items)
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				s.Properties[name] = toGeminiSchema(sub)
			}
		}
	}
	return s
}

func stringList(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, x := range vals {
			if str, ok := x.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
