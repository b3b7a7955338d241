package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/amishk599/jobimpact/internal/model"
)

// httpError classifies a non-2xx response from an HTTP provider.
func httpError(provider string, resp *http.Response, body []byte) *model.ProviderError {
	kind := model.KindPermanent
	if resp.StatusCode == http.StatusTooManyRequests {
		kind = model.KindTransient
	}
	return &model.ProviderError{
		Provider:   provider,
		Kind:       kind,
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Err:        fmt.Errorf("%s", truncate(string(body), 512)),
	}
}

// asProviderError returns err unchanged when it is already classified and
// otherwise wraps it, using the message text as the only signal.
func asProviderError(provider string, err error) error {
	var perr *model.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	kind := model.KindPermanent
	if model.MentionsRateLimit(err.Error()) {
		kind = model.KindTransient
	}
	return &model.ProviderError{Provider: provider, Kind: kind, Err: err}
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
