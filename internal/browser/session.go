// Package browser drives a headless Chromium through the DevTools protocol and
// records the network requests a page issues.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/config"
)

// DefaultAcceptLanguage is sent alongside the spoofed user agent.
const DefaultAcceptLanguage = "zh,zh_TW"

// Options configures a Session.
type Options struct {
	Headless        bool
	UserAgent       string
	AcceptLanguage  string
	WindowWidth     int
	WindowHeight    int
	PageLoadTimeout time.Duration
	// BinPath overrides browser discovery.
	BinPath string
}

// OptionsFromConfig maps the browser.* settings onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Headless:        cfg.Browser.Headless,
		UserAgent:       cfg.Browser.UserAgent,
		PageLoadTimeout: config.ParseDuration(cfg.Browser.PageLoadTimeout, 110*time.Second),
		BinPath:         cfg.Browser.BinPath,
	}
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = config.DefaultBrowserUserAgent
	}
	if o.AcceptLanguage == "" {
		o.AcceptLanguage = DefaultAcceptLanguage
	}
	if o.WindowWidth <= 0 || o.WindowHeight <= 0 {
		o.WindowWidth, o.WindowHeight = 1280, 800
	}
	if o.PageLoadTimeout <= 0 {
		o.PageLoadTimeout = 110 * time.Second
	}
	return o
}

// Entry is one network request observed in the page.
type Entry struct {
	Name   string // request URL
	Type   string // resource type reported by the browser (Script, XHR, ...)
	Method string
}

// Launcher opens browser sessions. Extractors depend on it so tests can supply
// a fake without starting Chromium.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

// Page is an opened browser tab whose network log can be polled.
type Page interface {
	EntrySource
	Open(ctx context.Context, url string) error
	Close() error
}

// RodLauncher starts real Chromium sessions.
type RodLauncher struct {
	Options Options
	Logger  zerolog.Logger
}

// Launch implements Launcher.
func (l RodLauncher) Launch(ctx context.Context) (Page, error) {
	s, err := NewSession(ctx, l.Options, l.Logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Session owns one browser process and a single tab. It is not shared between runs.
type Session struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   zerolog.Logger

	mu      sync.Mutex
	pending []Entry
}

// NewSession kills browsers left over from earlier runs, starts a new one with the
// anti-automation flags, and opens a blank tab that records every outgoing request.
func NewSession(ctx context.Context, opts Options, logger zerolog.Logger) (*Session, error) {
	opts = opts.withDefaults()
	logger = logger.With().Str("component", "browser").Logger()

	killStrayBrowsers(ctx, logger)

	bin, err := resolveBinary(opts.BinPath)
	if err != nil {
		return nil, fmt.Errorf("locate browser: %w", err)
	}

	l := newLauncher(opts).Bin(bin).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	s := &Session{opts: opts, launcher: l, browser: b, logger: logger}
	if err := s.preparePage(); err != nil {
		_ = s.Close()
		return nil, err
	}

	logger.Debug().Str("bin", bin).Bool("headless", opts.Headless).Msg("Browser session started")
	return s, nil
}

// newLauncher applies the browser flags: no images, plugins, extensions or
// infobars, fixed window size, automation banner removed, zh-TW UI, muted audio.
func newLauncher(opts Options) *launcher.Launcher {
	return launcher.New().
		Headless(opts.Headless).
		Set("blink-settings", "imagesEnabled=false").
		Set("disable-plugins").
		Set("disable-extensions").
		Set("disable-infobars").
		Set("window-size", strconv.Itoa(opts.WindowWidth)+","+strconv.Itoa(opts.WindowHeight)).
		Delete("enable-automation").
		Set("disable-blink-features", "AutomationControlled").
		Set("lang", "zh-TW").
		Set("mute-audio")
}

// resolveBinary uses the managed browser download on Windows and the system
// browser elsewhere, downloading only when none is installed.
func resolveBinary(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if runtime.GOOS != "windows" {
		if path, ok := launcher.LookPath(); ok {
			return path, nil
		}
	}
	return launcher.NewBrowser().Get()
}

// killStrayBrowsers terminates browsers started from rod's default profile
// directory by an earlier, crashed run. Failure is ignored.
func killStrayBrowsers(ctx context.Context, logger zerolog.Logger) {
	if runtime.GOOS == "windows" {
		return
	}
	killCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(killCtx, "pkill", "-f", "rod/user-data").Run(); err != nil {
		logger.Debug().Err(err).Msg("No stray browser to kill")
	}
}

func (s *Session) preparePage() error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	s.page = page

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.opts.UserAgent,
		AcceptLanguage: s.opts.AcceptLanguage,
	}); err != nil {
		return fmt.Errorf("override user agent: %w", err)
	}

	for _, name := range []string{"geolocation", "notifications"} {
		err := proto.BrowserSetPermission{
			Permission: &proto.BrowserPermissionDescriptor{Name: name},
			Setting:    proto.BrowserPermissionSettingDenied,
		}.Call(s.browser)
		if err != nil {
			s.logger.Debug().Err(err).Str("permission", name).Msg("Failed to deny permission")
		}
	}

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fmt.Errorf("enable network domain: %w", err)
	}
	wait := page.EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		s.record(Entry{Name: e.Request.URL, Type: string(e.Type), Method: e.Request.Method})
	})
	go wait()

	return nil
}

func (s *Session) record(e Entry) {
	s.mu.Lock()
	s.pending = append(s.pending, e)
	s.mu.Unlock()
}

// Open navigates the tab to url and waits for the load event. A page that keeps
// loading past the timeout is not an error: its requests are still recorded.
func (s *Session) Open(ctx context.Context, url string) error {
	page := s.page.Context(ctx).Timeout(s.opts.PageLoadTimeout)
	defer page.CancelTimeout()
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn().Err(err).Str("url", url).Msg("Page did not finish loading")
	}
	return nil
}

// PerformanceEntries returns the requests recorded since the previous call.
func (s *Session) PerformanceEntries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.pending
	s.pending = nil
	return entries, nil
}

// Close shuts the browser down and removes its temporary profile.
func (s *Session) Close() error {
	var errs []error
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return errors.Join(errs...)
}
