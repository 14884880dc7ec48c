// Package apierr classifies failures of the network-facing collaborators
// (the OpenAI transcription API and yt-dlp) and retries the transient ones.
//
// Adapters wrap with fmt.Errorf("%s: %w", msg, sentinel) and callers check
// with errors.Is(err, apierr.ErrRateLimit).
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRateLimit is a 429 that clears on its own. Retryable.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded is a 429 caused by billing. Not retryable.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout covers timeouts and transient 5xx responses. Retryable.
	ErrTimeout = errors.New("request timeout")

	// ErrAuthFailed means the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrTooLarge is an HTTP 413. The transcription fallback treats it as a
	// capacity signal.
	ErrTooLarge = errors.New("payload too large")

	// ErrBadRequest is any other client error.
	ErrBadRequest = errors.New("bad request")
)

// quotaMarkers identify a 429 that will not clear by waiting.
var quotaMarkers = []string{"quota", "billing"}

// FromStatus maps an HTTP status and server message to a wrapped sentinel.
// It returns nil for statuses that carry no classification (2xx, 3xx and
// unknown codes), leaving the caller to report the original error.
func FromStatus(status int, msg string) error {
	switch status {
	case http.StatusTooManyRequests:
		lower := strings.ToLower(msg)
		for _, marker := range quotaMarkers {
			if strings.Contains(lower, marker) {
				return fmt.Errorf("%s: %w", msg, ErrQuotaExceeded)
			}
		}
		return fmt.Errorf("%s: %w", msg, ErrRateLimit)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", msg, ErrAuthFailed)
	case http.StatusRequestEntityTooLarge:
		return fmt.Errorf("%s: %w", msg, ErrTooLarge)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout,
		http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%s: %w", msg, ErrTimeout)
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, ErrBadRequest)
	}
	return nil
}

// IsTransient reports whether err is worth retrying as-is.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout)
}
