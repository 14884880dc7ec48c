package apierr_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/alnah/go-podscribe/internal/apierr"
)

// ---------------------------------------------------------------------------
// TestFromStatus - HTTP status classification
// ---------------------------------------------------------------------------

func TestFromStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		msg    string
		want   error
	}{
		{"rate limit", http.StatusTooManyRequests, "slow down", apierr.ErrRateLimit},
		{"quota", http.StatusTooManyRequests, "You exceeded your current quota", apierr.ErrQuotaExceeded},
		{"billing", http.StatusTooManyRequests, "Billing hard limit reached", apierr.ErrQuotaExceeded},
		{"auth", http.StatusUnauthorized, "bad key", apierr.ErrAuthFailed},
		{"too large", http.StatusRequestEntityTooLarge, "too big", apierr.ErrTooLarge},
		{"request timeout", http.StatusRequestTimeout, "slow", apierr.ErrTimeout},
		{"server error", http.StatusInternalServerError, "oops", apierr.ErrTimeout},
		{"bad gateway", http.StatusBadGateway, "proxy", apierr.ErrTimeout},
		{"unavailable", http.StatusServiceUnavailable, "overloaded", apierr.ErrTimeout},
		{"gateway timeout", http.StatusGatewayTimeout, "upstream", apierr.ErrTimeout},
		{"bad request", http.StatusBadRequest, "invalid file", apierr.ErrBadRequest},
		{"forbidden", http.StatusForbidden, "region", apierr.ErrBadRequest},
		{"not found", http.StatusNotFound, "model", apierr.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := apierr.FromStatus(tt.status, tt.msg)
			if !errors.Is(got, tt.want) {
				t.Fatalf("FromStatus(%d) = %v, want %v", tt.status, got, tt.want)
			}
			if !strings.Contains(got.Error(), tt.msg) {
				t.Errorf("FromStatus(%d) message %q should keep %q", tt.status, got.Error(), tt.msg)
			}
		})
	}

	t.Run("unclassified statuses", func(t *testing.T) {
		t.Parallel()
		for _, status := range []int{0, http.StatusOK, http.StatusFound, http.StatusTeapot} {
			if got := apierr.FromStatus(status, "x"); got != nil {
				t.Errorf("FromStatus(%d) = %v, want nil", status, got)
			}
		}
	})
}

// ---------------------------------------------------------------------------
// TestIsTransient
// ---------------------------------------------------------------------------

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{apierr.ErrRateLimit, true},
		{apierr.ErrTimeout, true},
		{fmt.Errorf("upstream: %w", apierr.ErrTimeout), true},
		{apierr.ErrQuotaExceeded, false},
		{apierr.ErrAuthFailed, false},
		{apierr.ErrTooLarge, false},
		{apierr.ErrBadRequest, false},
		{errors.New("other"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := apierr.IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestSentinelsDistinct(t *testing.T) {
	t.Parallel()

	all := []error{
		apierr.ErrRateLimit, apierr.ErrQuotaExceeded, apierr.ErrTimeout,
		apierr.ErrAuthFailed, apierr.ErrTooLarge, apierr.ErrBadRequest,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors.Is(%v, %v) = true, want distinct sentinels", a, b)
			}
		}
	}
}
