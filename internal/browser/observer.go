package browser

import (
	"context"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/config"
	"github.com/Belphemur/SubtitleRipper/internal/metrics"
)

// EntrySource yields the network entries recorded since the previous call.
type EntrySource interface {
	PerformanceEntries(ctx context.Context) ([]Entry, error)
}

// WaitOptions bounds AwaitNetworkURL. The budget is PollInterval × MaxTicks of
// wall-clock time, and at most MaxTicks polls.
type WaitOptions struct {
	PollInterval time.Duration
	MaxTicks     int
	// Logger receives failed polls. The zero value discards them.
	Logger zerolog.Logger
}

// WaitOptionsFromConfig maps browser.poll_interval and browser.max_ticks.
func WaitOptionsFromConfig(cfg *config.Config) WaitOptions {
	return WaitOptions{
		PollInterval: config.ParseDuration(cfg.Browser.PollInterval, time.Second),
		MaxTicks:     cfg.Browser.MaxTicks,
		Logger:       config.GetLogger().With().Str("component", "network_observer").Logger(),
	}
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.MaxTicks <= 0 {
		o.MaxTicks = 60
	}
	return o
}

// AwaitNetworkURL polls src until a recorded request URL matches pattern and
// returns it. Entries accumulate in a running log for the whole wait, and the
// first match in log order wins. When neither the tick cap nor the deadline
// leaves room for another poll it fails with *apperrors.ErrNetworkTimeout.
func AwaitNetworkURL(ctx context.Context, src EntrySource, pattern *regexp.Regexp, opts WaitOptions) (string, error) {
	opts = opts.withDefaults()

	waitCtx, cancel := context.WithTimeout(ctx, opts.PollInterval*time.Duration(opts.MaxTicks))
	defer cancel()

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	var log []Entry
	scanned := 0
	ticks := 0
	for ticks < opts.MaxTicks {
		ticks++
		metrics.BrowserPollsTotal.Inc()

		entries, err := src.PerformanceEntries(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			opts.Logger.Debug().Err(err).Int("tick", ticks).Msg("Failed to read performance entries")
		}
		log = append(log, entries...)

		for ; scanned < len(log); scanned++ {
			if pattern.MatchString(log[scanned].Name) {
				return log[scanned].Name, nil
			}
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &apperrors.ErrNetworkTimeout{Pattern: pattern.String(), Ticks: ticks}
		case <-ticker.C:
		}
	}

	return "", &apperrors.ErrNetworkTimeout{Pattern: pattern.String(), Ticks: ticks}
}
