package browser

import (
	"context"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/Belphemur/SubtitleRipper/internal/config"
)

func TestNewLauncher_Flags(t *testing.T) {
	l := newLauncher(Options{Headless: true}.withDefaults())

	expected := map[flags.Flag]string{
		"blink-settings":         "imagesEnabled=false",
		"window-size":            "1280,800",
		"disable-blink-features": "AutomationControlled",
		"lang":                   "zh-TW",
	}
	for flag, want := range expected {
		if got := l.Get(flag); got != want {
			t.Errorf("Expected flag %s=%q, got %q", flag, want, got)
		}
	}
	for _, flag := range []flags.Flag{"disable-plugins", "disable-extensions", "disable-infobars", "mute-audio"} {
		if !l.Has(flag) {
			t.Errorf("Expected flag %s to be set", flag)
		}
	}
	if l.Has("enable-automation") {
		t.Error("Expected enable-automation to be removed")
	}
}

func TestOptions_Defaults(t *testing.T) {
	opts := Options{}.withDefaults()
	if opts.UserAgent != config.DefaultBrowserUserAgent {
		t.Errorf("Expected browser user agent, got %q", opts.UserAgent)
	}
	if opts.UserAgent == config.DefaultUserAgent {
		t.Error("Expected browser user agent to differ from the HTTP client one")
	}
	if opts.AcceptLanguage != "zh,zh_TW" {
		t.Errorf("Expected accept-language zh,zh_TW, got %q", opts.AcceptLanguage)
	}
	if opts.PageLoadTimeout != 110*time.Second {
		t.Errorf("Expected 110s page load timeout, got %s", opts.PageLoadTimeout)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Browser.Headless = false
	cfg.Browser.PageLoadTimeout = "30s"
	cfg.Browser.BinPath = "/usr/bin/chromium"

	opts := OptionsFromConfig(cfg)
	if opts.Headless || opts.PageLoadTimeout != 30*time.Second || opts.BinPath != "/usr/bin/chromium" {
		t.Errorf("Unexpected options %+v", opts)
	}
}

func TestSession_PerformanceEntriesDrains(t *testing.T) {
	s := &Session{}
	s.record(Entry{Name: "https://a"})
	s.record(Entry{Name: "https://b"})

	first, err := s.PerformanceEntries(context.Background())
	if err != nil {
		t.Fatalf("PerformanceEntries failed: %v", err)
	}
	if len(first) != 2 || first[0].Name != "https://a" {
		t.Errorf("Expected both entries in order, got %+v", first)
	}
	second, _ := s.PerformanceEntries(context.Background())
	if len(second) != 0 {
		t.Errorf("Expected entries to be drained, got %+v", second)
	}
}
