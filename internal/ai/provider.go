package ai

import "context"

// GenerationParams are fixed per binding so repeated runs are reproducible
// and output cost is bounded.
type GenerationParams struct {
	Temperature float64
	TopP        float64
	Seed        int
	MaxTokens   int
}

// DefaultParams returns the deterministic generation settings.
func DefaultParams() GenerationParams {
	return GenerationParams{
		Temperature: 0,
		TopP:        0,
		Seed:        42,
		MaxTokens:   1024,
	}
}

// Request is one structured-output call.
type Request struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
	Params     GenerationParams
}

// Provider sends a structured-output request to one model and returns the raw
// JSON text of the response.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}
