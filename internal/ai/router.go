package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amishk599/jobimpact/internal/schema"
)

// Family names a provider binding.
type Family string

const (
	FamilyOpenRouter Family = "openrouter"
	FamilyCohere     Family = "cohere"
	FamilyGemini     Family = "gemini"
)

// Binding constructs providers for one family.
type Binding interface {
	Family() Family
	NewProvider(ctx context.Context, model string) (Provider, error)
}

// Route sends model ids starting with Prefix to Family. When Strip is set the
// prefix is removed before the id is passed to the provider.
type Route struct {
	Prefix string
	Family Family
	Strip  bool
}

// DefaultRoutes binds Cohere and Gemini model ids to their dedicated providers.
// Everything else goes through the gateway.
var DefaultRoutes = []Route{
	{Prefix: "cohere/", Family: FamilyCohere, Strip: true},
	{Prefix: "command-", Family: FamilyCohere},
	{Prefix: "gemini-", Family: FamilyGemini},
}

// Router selects a binding for a model id from an explicit routing table.
type Router struct {
	routes   []Route
	fallback Family
	bindings map[Family]Binding
}

// NewRouter creates a router. Routes are matched in order; unmatched ids use fallback.
func NewRouter(routes []Route, fallback Family, bindings ...Binding) *Router {
	r := &Router{
		routes:   routes,
		fallback: fallback,
		bindings: make(map[Family]Binding, len(bindings)),
	}
	for _, b := range bindings {
		r.bindings[b.Family()] = b
	}
	return r
}

// Resolve returns the family serving modelID and the id to send to it.
func (r *Router) Resolve(modelID string) (Family, string) {
	for _, rt := range r.routes {
		if strings.HasPrefix(modelID, rt.Prefix) {
			if rt.Strip {
				return rt.Family, strings.TrimPrefix(modelID, rt.Prefix)
			}
			return rt.Family, modelID
		}
	}
	return r.fallback, modelID
}

// NewClient builds an inference client for modelID.
func (r *Router) NewClient(ctx context.Context, modelID string, decoder *schema.Decoder, params GenerationParams) (*Client, error) {
	family, apiModel := r.Resolve(modelID)
	b, ok := r.bindings[family]
	if !ok {
		return nil, fmt.Errorf("no binding registered for provider %q (model %s)", family, modelID)
	}
	p, err := b.NewProvider(ctx, apiModel)
	if err != nil {
		return nil, fmt.Errorf("create %s provider for %s: %w", family, modelID, err)
	}
	return NewClient(p, family, modelID, decoder, params), nil
}

// Close releases the provider if it holds resources.
func (c *Client) Close() error {
	if closer, ok := c.provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

type httpBinding struct {
	family     Family
	baseURL    string
	apiKey     string
	envVar     string
	httpClient *http.Client
	build      func(baseURL, apiKey, model string, hc *http.Client) Provider
}

func (b *httpBinding) Family() Family { return b.family }

func (b *httpBinding) NewProvider(_ context.Context, model string) (Provider, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("%s is not set", b.envVar)
	}
	return b.build(b.baseURL, b.apiKey, model, b.httpClient), nil
}

// NewOpenRouterBinding serves models through the OpenAI-compatible gateway.
func NewOpenRouterBinding(baseURL, apiKey string, httpClient *http.Client) Binding {
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	return &httpBinding{
		family:     FamilyOpenRouter,
		baseURL:    baseURL,
		apiKey:     apiKey,
		envVar:     "OPENROUTER_API_KEY",
		httpClient: httpClient,
		build: func(baseURL, apiKey, model string, hc *http.Client) Provider {
			return NewOpenRouterProvider(baseURL, apiKey, model, hc)
		},
	}
}

// NewCohereBinding serves Cohere models through the Cohere API.
func NewCohereBinding(baseURL, apiKey string, httpClient *http.Client) Binding {
	if baseURL == "" {
		baseURL = DefaultCohereBaseURL
	}
	return &httpBinding{
		family:     FamilyCohere,
		baseURL:    baseURL,
		apiKey:     apiKey,
		envVar:     "COHERE_API_KEY",
		httpClient: httpClient,
		build: func(baseURL, apiKey, model string, hc *http.Client) Provider {
			return NewCohereProvider(baseURL, apiKey, model, hc)
		},
	}
}

type geminiBinding struct {
	apiKey string
}

// NewGeminiBinding serves Gemini models through the Google SDK.
func NewGeminiBinding(apiKey string) Binding {
	return &geminiBinding{apiKey: apiKey}
}

func (b *geminiBinding) Family() Family { return FamilyGemini }

func (b *geminiBinding) NewProvider(ctx context.Context, model string) (Provider, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return NewGeminiProvider(ctx, b.apiKey, model)
}
