package retry

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/amishk599/jobimpact/internal/model"
)

// Policy decides whether and how long to wait before retrying a failed call.
type Policy struct {
	MaxAttempts int           // total calls including the first
	BaseDelay   time.Duration // wait before the second call, doubled each retry
	MaxDelay    time.Duration // cap applied to every wait, zero means no cap
	Jitter      float64       // ±fraction applied to the computed wait, 0 disables
	IsTransient func(error) bool
}

// DefaultPolicy retries rate limits five times starting at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   10 * time.Second,
		MaxDelay:    160 * time.Second,
		IsTransient: IsTransient,
	}
}

// BoundedPolicy retries up to ten times with waits between 4s and 10s.
func BoundedPolicy() Policy {
	return Policy{
		MaxAttempts: 10,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
		IsTransient: IsTransient,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) transient(err error) bool {
	if p.IsTransient == nil {
		return IsTransient(err)
	}
	return p.IsTransient(err)
}

// Delay returns the wait after the given failed attempt (1-based).
// A Retry-After supplied by the provider takes precedence; both are capped.
func (p Policy) Delay(attempt int, err error) time.Duration {
	var perr *model.ProviderError
	if errors.As(err, &perr) && perr.RetryAfter > 0 {
		return p.capped(perr.RetryAfter)
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			break
		}
	}
	delay = p.capped(delay)

	if p.Jitter > 0 {
		j := float64(delay) * p.Jitter
		delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*j)
	}
	return p.capped(delay)
}

func (p Policy) capped(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// IsTransient reports whether err is a rate-limit signal. Structured provider
// errors are checked first; message text is only consulted for errors that
// carry no classification.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var perr *model.ProviderError
	if errors.As(err, &perr) {
		return perr.StatusCode == http.StatusTooManyRequests || perr.Transient()
	}

	return model.MentionsRateLimit(err.Error())
}
