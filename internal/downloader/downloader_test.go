package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/client"
	"github.com/Belphemur/SubtitleRipper/internal/config"
	"github.com/Belphemur/SubtitleRipper/internal/models"
)

func newTestFetcher(t *testing.T) *client.Client {
	t.Helper()
	cfg := &config.Config{ClientTimeout: "5s"}
	cfg.Retry.MaxRetries = 1
	cfg.Retry.Backoff = "1ms"
	cfg.Retry.MaxBackoff = "1ms"
	c := client.New(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDownloadAll_MissingFilesAreSkipped(t *testing.T) {
	const total, missing = 10, 3

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprintf(w, "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n%s\n", r.URL.Path)
	}))
	defer server.Close()

	dir := t.TempDir()
	var descriptors []models.SubtitleDescriptor
	for i := 0; i < total; i++ {
		prefix := "/ok"
		if i < missing {
			prefix = "/missing"
		}
		descriptors = append(descriptors, models.SubtitleDescriptor{
			FileName:       fmt.Sprintf("Show.S01E%02d.WEB-DL.WeTV.vtt", i+1),
			DestinationDir: filepath.Join(dir, "Show.S01"),
			SourceURL:      fmt.Sprintf("%s%s/%d.vtt", server.URL, prefix, i),
		})
	}

	d := New(newTestFetcher(t), Options{}, zerolog.Nop())
	report := d.DownloadAll(context.Background(), descriptors)

	if report.Done != total-missing {
		t.Errorf("Expected %d done, got %d", total-missing, report.Done)
	}
	if report.Skipped != missing {
		t.Errorf("Expected %d skipped, got %d", missing, report.Skipped)
	}
	if report.Failed != 0 {
		t.Errorf("Expected no failures, got %d: %v", report.Failed, report.Errors())
	}

	files, err := os.ReadDir(filepath.Join(dir, "Show.S01"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(files) != total-missing {
		t.Errorf("Expected %d files on disk, got %d", total-missing, len(files))
	}
	for _, f := range files {
		if strings.HasSuffix(f.Name(), partSuffix) {
			t.Errorf("Expected no leftover part file, found %s", f.Name())
		}
	}
	for i, task := range report.Tasks {
		if task.Descriptor.FileName != descriptors[i].FileName {
			t.Errorf("Expected tasks in dispatch order, task %d is %s", i, task.Descriptor.FileName)
		}
		if task.ID == "" {
			t.Errorf("Expected task %d to carry an ID", i)
		}
	}
}

func TestDownloadAll_FailureIsIsolated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken.vtt" && r.Method == http.MethodGet {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("WEBVTT\n"))
	}))
	defer server.Close()

	dir := t.TempDir()
	descriptors := []models.SubtitleDescriptor{
		{FileName: "a.vtt", DestinationDir: dir, SourceURL: server.URL + "/a.vtt"},
		{FileName: "broken.vtt", DestinationDir: dir, SourceURL: server.URL + "/broken.vtt"},
		{FileName: "c.vtt", DestinationDir: dir, SourceURL: server.URL + "/c.vtt"},
	}

	report := New(newTestFetcher(t), Options{Workers: 2}, zerolog.Nop()).DownloadAll(context.Background(), descriptors)

	if report.Done != 2 || report.Failed != 1 {
		t.Fatalf("Expected 2 done and 1 failed, got %d done, %d failed", report.Done, report.Failed)
	}
	if len(report.Errors()) != 1 {
		t.Errorf("Expected one error, got %v", report.Errors())
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.vtt")); !os.IsNotExist(err) {
		t.Error("Expected failed download to leave no file")
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.vtt"+partSuffix)); !os.IsNotExist(err) {
		t.Error("Expected failed download to remove its part file")
	}
}

func TestDownloadAll_CreatesDestination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("WEBVTT\n"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "Show.S01", "zh-Hant")
	report := New(newTestFetcher(t), Options{}, zerolog.Nop()).DownloadAll(context.Background(), []models.SubtitleDescriptor{
		{FileName: "e1.vtt", DestinationDir: dest, SourceURL: server.URL + "/e1.vtt"},
	})
	if report.Done != 1 {
		t.Fatalf("Expected download to succeed, got %+v", report.Errors())
	}
	if _, err := os.Stat(filepath.Join(dest, "e1.vtt")); err != nil {
		t.Errorf("Expected file in nested destination: %v", err)
	}
}

func TestDownloadAll_Cancelled(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("WEBVTT\n"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	report := New(newTestFetcher(t), Options{}, zerolog.Nop()).DownloadAll(ctx, []models.SubtitleDescriptor{
		{FileName: "a.vtt", DestinationDir: dir, SourceURL: server.URL + "/a.vtt"},
		{FileName: "b.vtt", DestinationDir: dir, SourceURL: server.URL + "/b.vtt"},
	})

	if report.Failed != 2 {
		t.Errorf("Expected both tasks to fail on cancellation, got %d", report.Failed)
	}
	if hits.Load() != 0 {
		t.Errorf("Expected no request after cancellation, got %d", hits.Load())
	}
}

func TestDownloadAll_Empty(t *testing.T) {
	report := New(newTestFetcher(t), Options{}, zerolog.Nop()).DownloadAll(context.Background(), nil)
	if len(report.Tasks) != 0 || report.Done != 0 {
		t.Errorf("Expected empty report, got %+v", report)
	}
}

func TestPoolSize(t *testing.T) {
	if got := PoolSize(0); got < 1 || got > config.MaxDownloadWorkers {
		t.Errorf("Expected pool size within [1, %d], got %d", config.MaxDownloadWorkers, got)
	}
	if got := PoolSize(100); got > config.MaxDownloadWorkers {
		t.Errorf("Expected pool size capped at %d, got %d", config.MaxDownloadWorkers, got)
	}
	if got := PoolSize(1); got != 1 {
		t.Errorf("Expected requested size 1, got %d", got)
	}
}

func TestProgress_Steps(t *testing.T) {
	p := newProgress("file.vtt", zerolog.Nop())
	p.update(10, 100)
	if p.logged != 0 {
		t.Errorf("Expected no step at 10%%, got %d", p.logged)
	}
	p.update(20, 100)
	if p.logged != 25 {
		t.Errorf("Expected 25%% step, got %d", p.logged)
	}
	p.update(50, 100)
	if p.logged != 75 {
		t.Errorf("Expected 75%% step, got %d", p.logged)
	}
	p.finish(100)
	if p.logged != 100 {
		t.Errorf("Expected completion at 100%%, got %d", p.logged)
	}
}
