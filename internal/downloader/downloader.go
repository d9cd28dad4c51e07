// Package downloader fetches subtitle descriptors concurrently and assembles
// fragmented subtitles.
package downloader

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/client"
	"github.com/Belphemur/SubtitleRipper/internal/config"
	"github.com/Belphemur/SubtitleRipper/internal/metrics"
	"github.com/Belphemur/SubtitleRipper/internal/models"
)

// partSuffix marks files still being written.
const partSuffix = ".part"

// Fetcher is the slice of the HTTP client the workers need.
type Fetcher interface {
	CheckURLExists(ctx context.Context, url string) bool
	Stream(ctx context.Context, url string, w io.Writer, progress client.ProgressFunc) (int64, error)
}

// Options configures a Downloader.
type Options struct {
	// Workers lowers the pool size. It never raises it above min(NumCPU, 8).
	Workers int
}

// Downloader runs batches of descriptors through a bounded worker pool.
type Downloader struct {
	fetcher Fetcher
	workers int
	logger  zerolog.Logger
}

// New creates a Downloader.
func New(fetcher Fetcher, opts Options, logger zerolog.Logger) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		workers: PoolSize(opts.Workers),
		logger:  logger.With().Str("component", "downloader").Logger(),
	}
}

// PoolSize returns min(NumCPU, MaxDownloadWorkers), lowered to requested when positive.
func PoolSize(requested int) int {
	size := min(runtime.NumCPU(), config.MaxDownloadWorkers)
	if requested > 0 && requested < size {
		size = requested
	}
	return max(size, 1)
}

// DownloadAll downloads every descriptor and returns once all workers are done.
// A failing task never stops its siblings; its error is kept on the task.
// Tasks that never started because ctx was cancelled are reported as failed.
func (d *Downloader) DownloadAll(ctx context.Context, descriptors []models.SubtitleDescriptor) models.DownloadReport {
	tasks := make([]*models.DownloadTask, len(descriptors))
	for i, desc := range descriptors {
		tasks[i] = models.NewDownloadTask(desc)
	}

	workers := min(d.workers, len(tasks))
	jobs := make(chan *models.DownloadTask)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				d.run(ctx, task)
			}
		}()
	}

	d.logger.Debug().Int("tasks", len(tasks)).Int("workers", workers).Msg("Starting downloads")

dispatch:
	for _, task := range tasks {
		select {
		case jobs <- task:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	report := models.DownloadReport{Tasks: tasks}
	for _, task := range tasks {
		if !task.Status.IsFinished() {
			task.Status = models.TaskStatusFailed
			task.Err = ctx.Err()
		}
		switch task.Status {
		case models.TaskStatusDone:
			report.Done++
			report.Bytes += task.Bytes
		case models.TaskStatusSkipped:
			report.Skipped++
		case models.TaskStatusFailed:
			report.Failed++
		}
		metrics.DownloadsTotal.WithLabelValues(string(task.Status)).Inc()
	}
	metrics.DownloadBytesTotal.Add(float64(report.Bytes))

	d.logger.Info().
		Int("done", report.Done).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int64("bytes", report.Bytes).
		Msg("Downloads finished")
	return report
}

func (d *Downloader) run(ctx context.Context, task *models.DownloadTask) {
	task.Status = models.TaskStatusInProgress
	task.StartedAt = time.Now()
	task.Attempts++
	defer func() { task.FinishedAt = time.Now() }()

	desc := task.Descriptor
	logger := d.logger.With().Str("task", task.ID).Str("file", desc.FileName).Logger()

	if err := ctx.Err(); err != nil {
		d.fail(task, logger, err)
		return
	}

	if err := os.MkdirAll(desc.DestinationDir, 0o755); err != nil {
		d.fail(task, logger, fmt.Errorf("create %s: %w", desc.DestinationDir, err))
		return
	}

	if !d.fetcher.CheckURLExists(ctx, desc.SourceURL) {
		logger.Warn().Str("url", desc.SourceURL).Msg("File not found, skipping")
		task.Status = models.TaskStatusSkipped
		return
	}

	n, err := d.fetch(ctx, desc, logger)
	if err != nil {
		d.fail(task, logger, err)
		return
	}
	task.Bytes = n
	task.Status = models.TaskStatusDone
}

// fetch streams into <path>.part and renames it once complete, so a partial
// file never carries the final name.
func (d *Downloader) fetch(ctx context.Context, desc models.SubtitleDescriptor, logger zerolog.Logger) (int64, error) {
	target := desc.Path()
	part := target + partSuffix

	f, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", part, err)
	}

	tracker := newProgress(desc.FileName, logger)
	n, err := d.fetcher.Stream(ctx, desc.SourceURL, f, tracker.update)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(part)
		return n, fmt.Errorf("download %s: %w", desc.FileName, err)
	}

	if err := os.Rename(part, target); err != nil {
		_ = os.Remove(part)
		return n, fmt.Errorf("finalize %s: %w", desc.FileName, err)
	}
	tracker.finish(n)
	return n, nil
}

func (d *Downloader) fail(task *models.DownloadTask, logger zerolog.Logger, err error) {
	task.Status = models.TaskStatusFailed
	task.Err = err
	logger.Error().Err(err).Msg("Download failed")
}
