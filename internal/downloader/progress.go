package downloader

import (
	"github.com/rs/zerolog"
)

// progressStep is the percentage between two progress log lines.
const progressStep = 25

// progress turns byte deltas into log lines at every 25% of the announced size.
// Only the worker that owns the download calls it.
type progress struct {
	name    string
	logger  zerolog.Logger
	written int64
	total   int64
	logged  int // last percentage logged
}

func newProgress(name string, logger zerolog.Logger) *progress {
	return &progress{name: name, logger: logger, total: -1}
}

func (p *progress) update(delta, total int64) {
	p.written += delta
	p.total = total
	if total <= 0 {
		return
	}

	percent := int(p.written * 100 / total)
	step := percent / progressStep * progressStep
	if step > p.logged && step < 100 {
		p.logged = step
		p.logger.Debug().Int("percent", step).Int64("bytes", p.written).Int64("total", total).Msg("Downloading " + p.name)
	}
}

func (p *progress) finish(n int64) {
	p.logged = 100
	p.logger.Info().Int64("bytes", n).Msg("Downloaded " + p.name)
}

