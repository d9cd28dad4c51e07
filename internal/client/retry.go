package client

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/metrics"
)

// newRetryPolicy retries transient failures with exponential backoff and
// surfaces the last failure once attempts are exhausted.
func newRetryPolicy[R any](maxRetries int, backoff, maxBackoff time.Duration, logger zerolog.Logger) retrypolicy.RetryPolicy[R] {
	if maxBackoff < backoff {
		maxBackoff = backoff
	}
	return retrypolicy.NewBuilder[R]().
		HandleIf(func(_ R, err error) bool {
			return isRetryable(err)
		}).
		WithMaxRetries(maxRetries).
		WithBackoff(backoff, maxBackoff).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[R]) {
			metrics.HTTPRetriesTotal.Inc()
			logger.Warn().
				Err(e.LastError()).
				Int("attempt", e.Attempts()).
				Msg("Request failed, retrying")
		}).
		Build()
}

// isRetryable reports whether err is worth another attempt: transport errors,
// 429 and 5xx. Cancellation and client-side misuse are final.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, &apperrors.ErrUnsupportedMethod{}) {
		return false
	}
	var statusErr *apperrors.ErrHTTPStatus
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var unexpected *apperrors.ErrUnexpectedResponse
	if errors.As(err, &unexpected) {
		return false
	}
	return true
}
