package model

import (
	"context"
	"fmt"
	"time"
)

// Impact classifies how generative AI is expected to affect a role.
type Impact string

const (
	ImpactAutomated Impact = "likely_automated_by_ai"
	ImpactAugmented Impact = "likely_augmented_with_ai"
	ImpactHumanOnly Impact = "likely_human_only"
)

// Impacts lists every valid Impact in schema order.
var Impacts = []Impact{ImpactAutomated, ImpactAugmented, ImpactHumanOnly}

// Valid reports whether i is one of the enumerated impacts.
func (i Impact) Valid() bool {
	for _, v := range Impacts {
		if i == v {
			return true
		}
	}
	return false
}

// Prediction is the structured answer a provider must return for one job.
type Prediction struct {
	JobTitle    string   `json:"job_title" validate:"required"`
	Impact      Impact   `json:"genai_impact" validate:"required,oneof=likely_automated_by_ai likely_augmented_with_ai likely_human_only"`
	Skills      []string `json:"skills,omitempty"`
	Explanation string   `json:"explanation"`
}

// Predictor runs one structured-output inference for a job title.
type Predictor interface {
	Predict(ctx context.Context, job string) (Prediction, error)
}

// Status tags an Outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the result of processing one job against one model.
type Outcome struct {
	Job        string
	Status     Status
	Prediction Prediction // set when Status is StatusSuccess
	Err        error      // set when Status is StatusFailure
	Attempts   int
}

// Record flattens a successful outcome into the shape written to result files:
// the prediction fields plus the original job text under "job". Skills are
// omitted when the schema version never asked for them.
func (o Outcome) Record() map[string]any {
	rec := map[string]any{
		"job_title":    o.Prediction.JobTitle,
		"genai_impact": string(o.Prediction.Impact),
		"explanation":  o.Prediction.Explanation,
		"job":          o.Job,
	}
	if o.Prediction.Skills != nil {
		rec["skills"] = o.Prediction.Skills
	}
	return rec
}

// RunResult collects every outcome of one model run.
type RunResult struct {
	Model     string
	Timestamp time.Time
	Outcomes  []Outcome
}

// Successes returns the successful outcomes in input order.
func (r RunResult) Successes() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusSuccess {
			out = append(out, o)
		}
	}
	return out
}

// Failures returns the failed outcomes in input order.
func (r RunResult) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailure {
			out = append(out, o)
		}
	}
	return out
}

// Succeeded returns the number of successful outcomes.
func (r RunResult) Succeeded() int { return len(r.Successes()) }

// Failed returns the number of failed outcomes.
func (r RunResult) Failed() int { return len(r.Failures()) }

func (r RunResult) String() string {
	return fmt.Sprintf("%s: %d/%d succeeded", r.Model, r.Succeeded(), len(r.Outcomes))
}
