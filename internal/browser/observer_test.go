package browser

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
)

// scriptedSource returns one batch of entries per poll.
type scriptedSource struct {
	mu      sync.Mutex
	batches [][]Entry
	polls   int
}

func (s *scriptedSource) PerformanceEntries(context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if len(s.batches) == 0 {
		return nil, nil
	}
	next := s.batches[0]
	s.batches = s.batches[1:]
	return next, nil
}

var getvinfoPattern = regexp.MustCompile(`play\.wetv\.vip/getvinfo`)

func fastWait(ticks int) WaitOptions {
	return WaitOptions{PollInterval: 5 * time.Millisecond, MaxTicks: ticks}
}

func TestAwaitNetworkURL_MatchOnLaterPoll(t *testing.T) {
	src := &scriptedSource{batches: [][]Entry{
		{{Name: "https://wetv.vip/play/abc"}},
		{{Name: "https://static.wetv.vip/app.js"}},
		{{Name: "https://play.wetv.vip/getvinfo?vid=abc"}},
	}}

	got, err := AwaitNetworkURL(context.Background(), src, getvinfoPattern, fastWait(60))
	if err != nil {
		t.Fatalf("AwaitNetworkURL failed: %v", err)
	}
	if got != "https://play.wetv.vip/getvinfo?vid=abc" {
		t.Errorf("Expected getvinfo URL, got %q", got)
	}
	if src.polls != 3 {
		t.Errorf("Expected 3 polls, got %d", src.polls)
	}
}

func TestAwaitNetworkURL_FirstMatchInLogOrder(t *testing.T) {
	src := &scriptedSource{batches: [][]Entry{
		{
			{Name: "https://play.wetv.vip/getvinfo?vid=first"},
			{Name: "https://play.wetv.vip/getvinfo?vid=second"},
		},
	}}

	got, err := AwaitNetworkURL(context.Background(), src, getvinfoPattern, fastWait(5))
	if err != nil {
		t.Fatalf("AwaitNetworkURL failed: %v", err)
	}
	if got != "https://play.wetv.vip/getvinfo?vid=first" {
		t.Errorf("Expected first matching entry, got %q", got)
	}
}

func TestAwaitNetworkURL_Timeout(t *testing.T) {
	src := &scriptedSource{batches: [][]Entry{{{Name: "https://wetv.vip/"}}}}

	start := time.Now()
	_, err := AwaitNetworkURL(context.Background(), src, getvinfoPattern, fastWait(4))

	var timeoutErr *apperrors.ErrNetworkTimeout
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Expected ErrNetworkTimeout, got %v", err)
	}
	if timeoutErr.Ticks < 1 || timeoutErr.Ticks > 4 {
		t.Errorf("Expected between 1 and 4 ticks, got %d", timeoutErr.Ticks)
	}
	if src.polls > 4 {
		t.Errorf("Expected at most 4 polls, got %d", src.polls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected the wall-clock budget to bound the wait, took %s", elapsed)
	}
}

func TestAwaitNetworkURL_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AwaitNetworkURL(ctx, &scriptedSource{}, getvinfoPattern, fastWait(60))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestWaitOptions_Defaults(t *testing.T) {
	opts := WaitOptions{}.withDefaults()
	if opts.PollInterval != time.Second || opts.MaxTicks != 60 {
		t.Errorf("Expected 1s x 60 ticks, got %s x %d", opts.PollInterval, opts.MaxTicks)
	}
}

// flakySource fails its first poll, then serves entries.
type flakySource struct {
	polls int
}

func (s *flakySource) PerformanceEntries(context.Context) ([]Entry, error) {
	s.polls++
	if s.polls == 1 {
		return nil, errors.New("devtools connection reset")
	}
	return []Entry{{Name: "https://play.wetv.vip/getvinfo?vid=v1"}}, nil
}

func TestAwaitNetworkURL_FailedPollIsLoggedAndRetried(t *testing.T) {
	var buf strings.Builder
	opts := fastWait(10)
	opts.Logger = zerolog.New(&buf)

	got, err := AwaitNetworkURL(context.Background(), &flakySource{}, getvinfoPattern, opts)
	if err != nil {
		t.Fatalf("Expected a match after the failed poll, got %v", err)
	}
	if got != "https://play.wetv.vip/getvinfo?vid=v1" {
		t.Errorf("Unexpected URL %q", got)
	}
	if !strings.Contains(buf.String(), "devtools connection reset") {
		t.Errorf("Expected the poll failure to be logged, got %q", buf.String())
	}
}
