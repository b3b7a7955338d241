package model

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind separates failures worth retrying from those that are not.
type ErrorKind int

const (
	KindPermanent ErrorKind = iota
	KindTransient
)

func (k ErrorKind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// ProviderError wraps any failure of an inference call so retry logic can
// inspect it without parsing provider-specific error text.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int           // HTTP status, zero if not an HTTP failure
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is expected to clear after a delay.
func (e *ProviderError) Transient() bool {
	return e.Kind == KindTransient
}

// rateLimitMarkers are matched against error text that carries no structured status.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"rate-limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"resource_exhausted",
}

// MentionsRateLimit reports whether msg reads like a rate-limit failure.
// Only for errors with no structured status code.
func MentionsRateLimit(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
