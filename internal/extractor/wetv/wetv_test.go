package wetv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/browser"
	"github.com/Belphemur/SubtitleRipper/internal/client"
	"github.com/Belphemur/SubtitleRipper/internal/config"
	"github.com/Belphemur/SubtitleRipper/internal/downloader"
	"github.com/Belphemur/SubtitleRipper/internal/extractor"
	"github.com/Belphemur/SubtitleRipper/internal/models"
	"github.com/Belphemur/SubtitleRipper/internal/services"
	"github.com/Belphemur/SubtitleRipper/internal/testutil"
)

// fakeSigner returns a fixed key and counts calls.
type fakeSigner struct {
	calls atomic.Int32
}

func (s *fakeSigner) Sign(_ context.Context, p CKeyParams) (string, error) {
	s.calls.Add(1)
	return "ckey-" + p.VID, nil
}

// platform is a fake WeTV backend: one play page, getvinfo, subtitle files.
type platform struct {
	server *httptest.Server

	mu        sync.Mutex
	page      map[string]any
	vinfo     func(vid string) map[string]any
	vinfoHits []string
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	p := &platform{}
	mux := http.NewServeMux()
	mux.HandleFunc("/play/", func(w http.ResponseWriter, _ *http.Request) {
		p.mu.Lock()
		page := testutil.GenerateNextDataHTML(map[string]any{"data": p.page}, "data")
		p.mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/getvinfo", func(w http.ResponseWriter, r *http.Request) {
		vid := r.URL.Query().Get("vid")
		p.mu.Lock()
		p.vinfoHits = append(p.vinfoHits, vid)
		p.mu.Unlock()
		fmt.Fprint(w, testutil.GenerateJSONP(r.URL.Query().Get("callback"), p.vinfo(vid)))
	})
	mux.HandleFunc("/sub/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".m3u8") {
			fmt.Fprint(w, testutil.GenerateMediaPlaylist("seg0.vtt", "seg1.vtt"))
			return
		}
		fmt.Fprint(w, testutil.GenerateVTT(r.URL.Path))
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *platform) hits() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.vinfoHits...)
}

func (p *platform) subtitles(langs ...string) map[string]any {
	var files []map[string]any
	for _, lang := range langs {
		files = append(files, map[string]any{"lang": lang, "url": p.server.URL + "/sub/" + lang + ".vtt"})
	}
	return map[string]any{"sfl": map[string]any{"cnt": len(files), "fi": files}}
}

func seriesPage(title string, episodes int) map[string]any {
	var list []map[string]any
	for i := 1; i <= episodes; i++ {
		list = append(list, map[string]any{"vid": fmt.Sprintf("v%02d", i), "episode": fmt.Sprint(i), "isTrailer": 0})
	}
	list = append(list, map[string]any{"vid": "trailer", "episode": "0", "isTrailer": 1})
	return map[string]any{
		"coverInfo": map[string]any{
			"cid": "cover1", "title": title, "type": 2, "isAreaLimit": 0,
			"episodeUpdated": episodes, "episodeAll": episodes,
		},
		"videoList": list,
	}
}

func newTestExtractor(t *testing.T, p *platform, opts ...Option) *Extractor {
	t.Helper()
	cfg := &config.Config{ClientTimeout: "5s"}
	cfg.Retry.MaxRetries = 1
	cfg.Retry.Backoff = "1ms"
	cfg.Retry.MaxBackoff = "1ms"
	cfg.Browser.PollInterval = "5ms"
	cfg.Browser.MaxTicks = 20
	c := client.New(cfg)
	t.Cleanup(func() { _ = c.Close() })

	logger := zerolog.Nop()
	deps := extractor.Deps{
		Client:     c,
		Downloader: downloader.New(c, downloader.Options{Workers: 2}, logger),
		Converter:  services.NewSubtitleConverter(logger),
		Archiver:   services.NewZipArchiver(logger),
		Config:     cfg,
		Logger:     logger,
	}
	opts = append([]Option{WithEndpoints(p.server.URL+"/getvinfo", p.server.URL+"/play/%s/%s")}, opts...)
	return New(deps, opts...)
}

func runContext(t *testing.T, p *platform) *extractor.Context {
	return &extractor.Context{
		URL:          p.server.URL + "/play/cover1",
		DownloadRoot: t.TempDir(),
		PayLimit:     extractor.PayLimitSkip,
	}
}

func TestRun_SeriesEpisodeFilter(t *testing.T) {
	p := newPlatform(t)
	p.page = seriesPage("想見你第二季", 12)
	p.vinfo = func(string) map[string]any { return p.subtitles("ZH-TW", "EN") }

	signer := &fakeSigner{}
	e := newTestExtractor(t, p, WithSigner(signer))
	rc := runContext(t, p)
	rc.Episodes = models.NewIntSet(3)

	if err := e.Run(context.Background(), rc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if hits := p.hits(); len(hits) != 1 || hits[0] != "v03" {
		t.Errorf("Expected a single getvinfo call for episode 3, got %v", hits)
	}
	if signer.calls.Load() != 1 {
		t.Errorf("Expected one signature, got %d", signer.calls.Load())
	}

	folder := filepath.Join(rc.DownloadRoot, "想見你.S02")
	srt := filepath.Join(folder, "想見你.S02E03.WEB-DL.WeTV.zh-Hant.srt")
	if _, err := os.Stat(srt); err != nil {
		t.Errorf("Expected converted subtitle %s: %v", srt, err)
	}
	if _, err := os.Stat(filepath.Join(folder, "想見你.S02E03.WEB-DL.WeTV.en.srt")); !os.IsNotExist(err) {
		t.Error("Expected unrequested language not to be downloaded")
	}
	if _, err := os.Stat(filepath.Join(folder, services.ArchiveName(folder, models.PlatformWeTV))); err != nil {
		t.Errorf("Expected archive in title folder: %v", err)
	}
	if e.State() != models.RunStateDone {
		t.Errorf("Expected state Done, got %s", e.State())
	}
}

func TestRun_MultipleLanguagesUseSubfolders(t *testing.T) {
	p := newPlatform(t)
	p.page = seriesPage("Go Ahead S2", 2)
	p.vinfo = func(string) map[string]any { return p.subtitles("ZH-TW", "EN", "XX") }

	e := newTestExtractor(t, p, WithSigner(&fakeSigner{}))
	rc := runContext(t, p)
	rc.Languages = models.NewLanguageSet("all")

	if err := e.Run(context.Background(), rc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	files, err := testutil.CollectFiles(filepath.Join(rc.DownloadRoot, "Go.Ahead.S02"), ".srt")
	if err != nil {
		t.Fatalf("CollectFiles: %v", err)
	}
	expected := []string{
		"en/Go.Ahead.S02E01.WEB-DL.WeTV.en.srt",
		"en/Go.Ahead.S02E02.WEB-DL.WeTV.en.srt",
		"zh-Hant/Go.Ahead.S02E01.WEB-DL.WeTV.zh-Hant.srt",
		"zh-Hant/Go.Ahead.S02E02.WEB-DL.WeTV.zh-Hant.srt",
	}
	if strings.Join(files, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected %v, got %v", expected, files)
	}
	if hits := p.hits(); len(hits) != 2 {
		t.Errorf("Expected trailer to be skipped, got getvinfo calls %v", hits)
	}
}

func TestRun_RegionBlocked(t *testing.T) {
	p := newPlatform(t)
	page := seriesPage("Blocked", 3)
	page["coverInfo"].(map[string]any)["isAreaLimit"] = 1
	p.page = page
	p.vinfo = func(string) map[string]any { return p.subtitles("EN") }

	e := newTestExtractor(t, p, WithSigner(&fakeSigner{}))
	err := e.Run(context.Background(), runContext(t, p))
	if !errors.Is(err, &apperrors.ErrRegionBlocked{}) {
		t.Fatalf("Expected ErrRegionBlocked, got %v", err)
	}
	if apperrors.ExitCode(err) != apperrors.ExitOK {
		t.Error("Expected region lock to be graceful")
	}
	if len(p.hits()) != 0 {
		t.Error("Expected no getvinfo call for a region locked title")
	}
}

func TestRun_NoSubtitles(t *testing.T) {
	p := newPlatform(t)
	p.page = seriesPage("Silent", 2)
	p.vinfo = func(string) map[string]any { return map[string]any{"sfl": map[string]any{"cnt": 0}} }

	e := newTestExtractor(t, p, WithSigner(&fakeSigner{}))
	err := e.Run(context.Background(), runContext(t, p))
	if !errors.Is(err, &apperrors.ErrNoSubtitles{}) {
		t.Fatalf("Expected ErrNoSubtitles, got %v", err)
	}
}

func TestRun_LanguageUnavailable(t *testing.T) {
	p := newPlatform(t)
	p.page = seriesPage("Show", 1)
	p.vinfo = func(string) map[string]any { return p.subtitles("EN") }

	e := newTestExtractor(t, p, WithSigner(&fakeSigner{}))
	err := e.Run(context.Background(), runContext(t, p))
	var langErr *apperrors.ErrLanguageUnavailable
	if !errors.As(err, &langErr) {
		t.Fatalf("Expected ErrLanguageUnavailable, got %v", err)
	}
	if len(langErr.Available) != 1 || langErr.Available[0] != "en" {
		t.Errorf("Expected available [en], got %v", langErr.Available)
	}
	if e.State() != models.RunStateFailed {
		t.Errorf("Expected state Failed, got %s", e.State())
	}
}

func TestRun_PayLimitPolicy(t *testing.T) {
	vinfo := func(p *platform) func(string) map[string]any {
		return func(vid string) map[string]any {
			if vid == "v02" {
				return map[string]any{"msg": "pay limit"}
			}
			return p.subtitles("ZH-TW")
		}
	}

	t.Run("skip", func(t *testing.T) {
		p := newPlatform(t)
		p.page = seriesPage("Paid", 2)
		p.vinfo = vinfo(p)
		e := newTestExtractor(t, p, WithSigner(&fakeSigner{}))
		rc := runContext(t, p)
		if err := e.Run(context.Background(), rc); err != nil {
			t.Fatalf("Expected paid episode to be skipped, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(rc.DownloadRoot, "Paid.S01", "Paid.S01E01.WEB-DL.WeTV.zh-Hant.srt")); err != nil {
			t.Errorf("Expected free episode to be downloaded: %v", err)
		}
	})

	t.Run("abort", func(t *testing.T) {
		p := newPlatform(t)
		p.page = seriesPage("Paid", 2)
		p.vinfo = vinfo(p)
		e := newTestExtractor(t, p, WithSigner(&fakeSigner{}))
		rc := runContext(t, p)
		rc.PayLimit = extractor.PayLimitAbort
		if err := e.Run(context.Background(), rc); !errors.Is(err, &apperrors.ErrPayLimit{}) {
			t.Errorf("Expected ErrPayLimit, got %v", err)
		}
	})
}

func TestRun_MovieWithFragmentedSubtitles(t *testing.T) {
	p := newPlatform(t)
	p.page = map[string]any{
		"coverInfo": map[string]any{"cid": "m1", "title": "電影", "type": 1, "isAreaLimit": 0},
		"videoInfo": map[string]any{
			"vid": "mv1", "title": "電影", "videoCheckUpTime": "2021-05-01 10:00:00", "coverList": []string{"m1"},
		},
	}
	p.vinfo = func(string) map[string]any {
		return map[string]any{"sfl": map[string]any{"cnt": 1, "fi": []map[string]any{
			{"lang": "ZH-TW", "url": p.server.URL + "/sub/movie/index.m3u8"},
		}}}
	}

	e := newTestExtractor(t, p, WithSigner(&fakeSigner{}))
	rc := runContext(t, p)
	rc.OutputDir = filepath.Join(t.TempDir(), "out")
	if err := e.Run(context.Background(), rc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	srt, err := os.ReadFile(filepath.Join(rc.OutputDir, "電影.2021", "電影.2021.WEB-DL.WeTV.zh-Hant.srt"))
	if err != nil {
		t.Fatalf("Expected merged movie subtitle in output directory: %v", err)
	}
	if !strings.Contains(string(srt), "seg0") || !strings.Contains(string(srt), "seg1") {
		t.Errorf("Expected both fragments in merged subtitle, got:\n%s", srt)
	}
	if hits := p.hits(); len(hits) != 1 || hits[0] != "mv1" {
		t.Errorf("Expected getvinfo for the movie vid, got %v", hits)
	}
}

// capturePage replays a getvinfo request the way the play page would issue it.
type capturePage struct {
	server string
	opened []string
	queued []browser.Entry
	closed bool
}

func (c *capturePage) Open(_ context.Context, url string) error {
	c.opened = append(c.opened, url)
	vid := url[strings.LastIndex(url, "/")+1:]
	c.queued = append(c.queued,
		browser.Entry{Name: c.server + "/static/app.js", Type: "Script"},
		browser.Entry{Name: c.server + "/getvinfo?callback=cb&vid=" + vid + "&cKey=page", Type: "Script"},
	)
	return nil
}

func (c *capturePage) PerformanceEntries(context.Context) ([]browser.Entry, error) {
	out := c.queued
	c.queued = nil
	return out, nil
}

func (c *capturePage) Close() error {
	c.closed = true
	return nil
}

type fakeLauncher struct {
	page     *capturePage
	launches int
}

func (l *fakeLauncher) Launch(context.Context) (browser.Page, error) {
	l.launches++
	return l.page, nil
}

func TestRun_BrowserCaptureWithoutSigner(t *testing.T) {
	p := newPlatform(t)
	p.page = seriesPage("Captured", 2)
	p.vinfo = func(string) map[string]any { return p.subtitles("ZH-TW") }

	launcher := &fakeLauncher{page: &capturePage{server: p.server.URL}}
	e := newTestExtractor(t, p)
	e.Browser = launcher

	rc := runContext(t, p)
	if err := e.Run(context.Background(), rc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if launcher.launches != 1 {
		t.Errorf("Expected one browser session for the run, got %d", launcher.launches)
	}
	if len(launcher.page.opened) != 2 || !strings.HasSuffix(launcher.page.opened[1], "/play/cover1/v02") {
		t.Errorf("Unexpected pages opened: %v", launcher.page.opened)
	}
	if !launcher.page.closed {
		t.Error("Expected browser session to be closed after the run")
	}
	if hits := p.hits(); len(hits) != 2 {
		t.Errorf("Expected captured requests to be replayed, got %v", hits)
	}
}

func TestRun_NoSignerNoBrowser(t *testing.T) {
	p := newPlatform(t)
	p.page = seriesPage("Show", 1)
	p.vinfo = func(string) map[string]any { return p.subtitles("ZH-TW") }

	e := newTestExtractor(t, p)
	err := e.Run(context.Background(), runContext(t, p))
	if !errors.Is(err, &apperrors.ErrSignerUnavailable{}) {
		t.Errorf("Expected ErrSignerUnavailable, got %v", err)
	}
}

func TestVideoInfoQuery(t *testing.T) {
	t.Parallel()
	q := videoInfoQuery("cid1", "vid1", "https://wetv.vip/play/x", "guid1", "1700000000", "key")
	expected := map[string]string{
		"vid": "vid1", "cid": "cid1", "cKey": "key", "guid": "guid1", "tm": "1700000000",
		"appVer": appVersion, "platform": platformID, "ehost": "https://wetv.vip/play/x", "encryptVer": "8.1",
	}
	for key, want := range expected {
		if got := q.Get(key); got != want {
			t.Errorf("Expected %s=%q, got %q", key, want, got)
		}
	}
	if !strings.HasPrefix(q.Get("callback"), "getinfo_callback_") {
		t.Errorf("Unexpected callback %q", q.Get("callback"))
	}
	if _, ok := q["logintoken"]; !ok {
		t.Error("Expected empty parameters to be sent")
	}
}

func TestLanguageCode(t *testing.T) {
	t.Parallel()
	cases := map[string]string{"ZH-TW": "zh-Hant", "zh-cn": "zh-Hans", "EN": "en", "XX": ""}
	for in, want := range cases {
		if got := languageCode(in); got != want {
			t.Errorf("languageCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewGUID(t *testing.T) {
	t.Parallel()
	g := newGUID()
	if len(g) != 32 || strings.Contains(g, "-") {
		t.Errorf("Expected 32 hex characters, got %q", g)
	}
}
