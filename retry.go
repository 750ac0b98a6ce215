package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ziyad188/sentinel-bot-webwic/internal/api"
	"github.com/ziyad188/sentinel-bot-webwic/internal/pager"
)

// Transport retry policy. The executor deliberately does not retry
// transport failures — that is caller policy, and this is the caller.
const (
	transportRetries = 3
	transportBackoff = 500 * time.Millisecond
)

// withTransportRetry runs fn, retrying transport-level failures with
// exponential backoff. Session expiry and server errors pass through
// untouched.
func withTransportRetry(ctx context.Context, logger *slog.Logger, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(transportRetries, retry.NewExponential(transportBackoff))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if api.IsTransport(err) {
			logger.Warn("transport failure, will retry", slog.String("error", err.Error()))

			return retry.RetryableError(err)
		}

		return err
	})
}

// drainLoader loads pages through the loader until it is exhausted (all
// true) or a single page has arrived (all false). Each LoadNext is
// re-invoked only after the previous call resolved — the loader drops
// overlapping triggers itself.
//
// HasMore alone cannot end the loop: when the server re-sends overlapping
// rows, deduplication keeps the accumulated count permanently below the
// reported total. A completed page that adds nothing means the list is done.
func drainLoader[T pager.Item](ctx context.Context, logger *slog.Logger, l *pager.Loader[T], all bool) ([]T, error) {
	for {
		before := len(l.Items())

		if err := withTransportRetry(ctx, logger, l.LoadNext); err != nil {
			return nil, err
		}

		items := l.Items()

		if !all || !l.HasMore() || len(items) == before {
			return items, nil
		}
	}
}
