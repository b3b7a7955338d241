package ai

import (
	"context"
	"encoding/json"
	"strings"
)

// StubProvider answers every request with a fixed prediction without any
// network call. Used by dry runs.
type StubProvider struct{}

// Complete echoes the job back as a human-only prediction shaped to req.Schema.
func (StubProvider) Complete(_ context.Context, req Request) (string, error) {
	title := strings.TrimPrefix(req.User, "Job:\n")
	out := map[string]any{
		"job_title":    title,
		"genai_impact": "likely_human_only",
		"explanation":  "dry run: no model was called",
	}
	if props, ok := req.Schema["properties"].(map[string]any); ok {
		if _, ok := props["skills"]; ok {
			out["skills"] = []string{}
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type stubBinding struct{ family Family }

// NewStubBinding returns a binding for family that always yields a StubProvider.
func NewStubBinding(family Family) Binding { return stubBinding{family: family} }

func (b stubBinding) Family() Family { return b.family }

func (b stubBinding) NewProvider(context.Context, string) (Provider, error) {
	return StubProvider{}, nil
}
