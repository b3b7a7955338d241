package sweep

import (
	"context"

	"github.com/amishk599/jobimpact/internal/ai"
	"github.com/amishk599/jobimpact/internal/model"
	"github.com/amishk599/jobimpact/internal/ratelimit"
	"github.com/amishk599/jobimpact/internal/retry"
	"github.com/amishk599/jobimpact/internal/schema"
)

// Target is everything needed to run a batch against one model.
type Target struct {
	Provider string
	Client   model.Predictor
	Slots    retry.Slots
	Close    func() error
}

// Binder builds the Target for a model id.
type Binder interface {
	Bind(ctx context.Context, modelID string) (Target, error)
}

// RouterBinder routes a model to its provider and gives it that provider's
// shared limiter.
type RouterBinder struct {
	router  *ai.Router
	pool    *ratelimit.Pool
	decoder *schema.Decoder
	params  ai.GenerationParams
}

// NewRouterBinder creates a binder over router and pool.
func NewRouterBinder(router *ai.Router, pool *ratelimit.Pool, decoder *schema.Decoder, params ai.GenerationParams) *RouterBinder {
	return &RouterBinder{router: router, pool: pool, decoder: decoder, params: params}
}

func (b *RouterBinder) Bind(ctx context.Context, modelID string) (Target, error) {
	client, err := b.router.NewClient(ctx, modelID, b.decoder, b.params)
	if err != nil {
		return Target{}, err
	}
	family := string(client.Family())
	return Target{
		Provider: family,
		Client:   client,
		Slots:    b.pool.ForProvider(family),
		Close:    client.Close,
	}, nil
}
