// Package schema defines the structured-output contract every provider
// response must satisfy and decodes raw responses into model.Prediction.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/amishk599/jobimpact/internal/model"
)

// Version selects the shape of the prediction contract.
type Version string

const (
	// V1 omits the skills list.
	V1 Version = "v1"
	// V2 requires a list of impacted skills.
	V2 Version = "v2"
)

// Name is sent to providers that require a schema name.
const Name = "job_impact_prediction"

func impactEnum() []string {
	out := make([]string, len(model.Impacts))
	for i, v := range model.Impacts {
		out[i] = string(v)
	}
	return out
}

// JSONSchema returns the JSON Schema document for version v.
// Unknown versions fall back to V2.
func JSONSchema(v Version) map[string]any {
	props := map[string]any{
		"job_title": map[string]any{"type": "string"},
		"genai_impact": map[string]any{
			"type": "string",
			"enum": impactEnum(),
		},
		"explanation": map[string]any{
			"type":        "string",
			"description": "Explanation for the prediction. Maximum 100 words.",
		},
	}
	required := []string{"job_title", "genai_impact", "explanation"}

	if v != V1 {
		props["skills"] = map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Skills of the role that generative AI will impact.",
		}
		required = []string{"job_title", "genai_impact", "skills", "explanation"}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// FieldError is a single schema violation.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports every violation found in a provider response.
type ValidationError struct {
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	parts := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return "response does not match schema: " + strings.Join(parts, "; ")
}

var validate = validator.New()

// Decoder validates raw provider output against one schema version.
type Decoder struct {
	version Version
	schema  *gojsonschema.Schema
}

// NewDecoder compiles the schema for version v.
func NewDecoder(v Version) (*Decoder, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(JSONSchema(v)))
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", v, err)
	}
	return &Decoder{version: v, schema: s}, nil
}

// Version returns the schema version this decoder enforces.
func (d *Decoder) Version() Version { return d.version }

// Decode checks raw against the JSON Schema, unmarshals it, and runs the
// struct-level checks on the result.
func (d *Decoder) Decode(raw string) (model.Prediction, error) {
	var p model.Prediction

	result, err := d.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return p, fmt.Errorf("parse response JSON: %w", err)
	}
	if !result.Valid() {
		ve := &ValidationError{}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
		}
		return p, ve
	}

	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("unmarshal prediction: %w", err)
	}
	p.JobTitle = strings.TrimSpace(p.JobTitle)

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		ve := &ValidationError{}
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				ve.Errors = append(ve.Errors, FieldError{Field: fe.Field(), Message: "failed " + fe.Tag()})
			}
			return p, ve
		}
		return p, err
	}
	return p, nil
}
