package ai

import (
	"context"

	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/schema"
)

// Client implements model.Predictor for one model on one provider binding.
type Client struct {
	provider Provider
	family   Family
	modelID  string
	decoder  *schema.Decoder
	params   GenerationParams
}

// NewClient binds a provider to a model and response schema.
func NewClient(provider Provider, family Family, modelID string, decoder *schema.Decoder, params GenerationParams) *Client {
	return &Client{
		provider: provider,
		family:   family,
		modelID:  modelID,
		decoder:  decoder,
		params:   params,
	}
}

// Model returns the model identifier this client targets.
func (c *Client) Model() string { return c.modelID }

// Family returns the provider family serving this client.
func (c *Client) Family() Family { return c.family }

// Predict classifies one job. Every failure, including a response that does
// not satisfy the schema, is returned as a *model.ProviderError.
func (c *Client) Predict(ctx context.Context, job string) (model.Prediction, error) {
	raw, err := c.provider.Complete(ctx, Request{
		System:     SystemPrompt,
		User:       UserPrompt(job),
		SchemaName: schema.Name,
		Schema:     schema.JSONSchema(c.decoder.Version()),
		Params:     c.params,
	})
	if err != nil {
		return model.Prediction{}, asProviderError(string(c.family), err)
	}

	pred, err := c.decoder.Decode(raw)
	if err != nil {
		return model.Prediction{}, &model.ProviderError{
			Provider: string(c.family),
			Kind:     model.KindPermanent,
			Err:      err,
		}
	}
	return pred, nil
}
