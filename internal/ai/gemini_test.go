package ai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/schema"
)

func TestToGeminiSchema(t *testing.T) {
	s := toGeminiSchema(schema.JSONSchema(schema.V2))

	if s.Type != genai.TypeObject {
		t.Fatalf("Type = %v, want object", s.Type)
	}
	if len(s.Required) != 4 {
		t.Errorf("Required = %v", s.Required)
	}
	impact := s.Properties["genai_impact"]
	if impact == nil || impact.Type != genai.TypeString || len(impact.Enum) != 3 {
		t.Errorf("genai_impact = %+v", impact)
	}
	skills := s.Properties["skills"]
	if skills == nil || skills.Type != genai.TypeArray || skills.Items == nil || skills.Items.Type != genai.TypeString {
		t.Errorf("skills = %+v", skills)
	}
}

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"grpc resource exhausted", status.Error(codes.ResourceExhausted, "quota"), true},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad schema"), false},
		{"rest 429", fmt.Errorf("call: %w", &googleapi.Error{Code: 429, Message: "slow down"}), true},
		{"rest 403", &googleapi.Error{Code: 403, Message: "forbidden"}, false},
		{"plain text", errors.New("googleapi: Error 429: Resource has been exhausted"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var perr *model.ProviderError
			if !errors.As(classifyGeminiError(tt.err), &perr) {
				t.Fatal("expected ProviderError")
			}
			if perr.Transient() != tt.transient {
				t.Errorf("Transient = %v, want %v", perr.Transient(), tt.transient)
			}
		})
	}
}
