package schema

import (
	"errors"
	"testing"

	"github.com/amishk599/jobimpact/internal/model"
)

func mustDecoder(t *testing.T, v Version) *Decoder {
	t.Helper()
	d, err := NewDecoder(v)
	if err != nil {
		t.Fatalf("NewDecoder(%s): %v", v, err)
	}
	return d
}

func TestDecode_ValidV2(t *testing.T) {
	d := mustDecoder(t, V2)
	raw := `{"job_title":" Data Entry Clerk ","genai_impact":"likely_automated_by_ai","skills":["typing","data validation"],"explanation":"Routine input work."}`

	p, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.JobTitle != "Data Entry Clerk" {
		t.Errorf("JobTitle = %q, want trimmed title", p.JobTitle)
	}
	if p.Impact != model.ImpactAutomated {
		t.Errorf("Impact = %q", p.Impact)
	}
	if len(p.Skills) != 2 {
		t.Errorf("Skills len = %d, want 2", len(p.Skills))
	}
}

func TestDecode_RejectsUnknownImpact(t *testing.T) {
	d := mustDecoder(t, V2)
	raw := `{"job_title":"Chef","genai_impact":"maybe","skills":[],"explanation":"x"}`

	_, err := d.Decode(raw)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDecode_V2RequiresSkills(t *testing.T) {
	d := mustDecoder(t, V2)
	raw := `{"job_title":"Chef","genai_impact":"likely_human_only","explanation":"Hands-on."}`

	if _, err := d.Decode(raw); err == nil {
		t.Fatal("expected error when skills missing under v2")
	}
}

func TestDecode_V1WithoutSkills(t *testing.T) {
	d := mustDecoder(t, V1)
	raw := `{"job_title":"Chef","genai_impact":"likely_human_only","explanation":"Hands-on."}`

	p, err := d.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Skills != nil {
		t.Errorf("Skills = %v, want nil", p.Skills)
	}
}

func TestDecode_RejectsExtraFields(t *testing.T) {
	d := mustDecoder(t, V1)
	raw := `{"job_title":"Chef","genai_impact":"likely_human_only","explanation":"x","confidence":0.9}`

	if _, err := d.Decode(raw); err == nil {
		t.Fatal("expected error for additional property")
	}
}

func TestDecode_RejectsBlankTitle(t *testing.T) {
	d := mustDecoder(t, V1)
	raw := `{"job_title":"   ","genai_impact":"likely_human_only","explanation":"x"}`

	_, err := d.Decode(raw)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	d := mustDecoder(t, V2)
	if _, err := d.Decode(`{"job_title":`); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
