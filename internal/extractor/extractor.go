// Package extractor defines the contract every streaming platform implements
// and the helpers they share: language negotiation, season parsing, file naming
// and the download, merge, convert and archive pipeline.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/message"

	"github.com/Belphemur/SubtitleRipper/internal/browser"
	"github.com/Belphemur/SubtitleRipper/internal/client"
	"github.com/Belphemur/SubtitleRipper/internal/config"
	"github.com/Belphemur/SubtitleRipper/internal/downloader"
	"github.com/Belphemur/SubtitleRipper/internal/models"
	"github.com/Belphemur/SubtitleRipper/internal/services"
)

// Extractor turns a playback URL of one platform into subtitle files on disk.
type Extractor interface {
	Platform() models.Platform
	ResolveLanguages(requested, available []string) (models.LanguageSet, error)
	Run(ctx context.Context, rc *Context) error
}

// PayLimitPolicy decides what happens when the platform refuses an episode as paid content.
type PayLimitPolicy string

const (
	// PayLimitSkip warns and drops the episode.
	PayLimitSkip PayLimitPolicy = "skip"
	// PayLimitAbort fails the run.
	PayLimitAbort PayLimitPolicy = "abort"
)

// ParsePayLimitPolicy parses the pay_limit_policy setting. Empty means skip.
func ParsePayLimitPolicy(raw string) (PayLimitPolicy, error) {
	switch PayLimitPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PayLimitSkip:
		return PayLimitSkip, nil
	case PayLimitAbort:
		return PayLimitAbort, nil
	default:
		return "", fmt.Errorf("invalid pay limit policy %q (expected skip or abort)", raw)
	}
}

// Deps are the collaborators an extractor is built with.
type Deps struct {
	Client     *client.Client
	Browser    browser.Launcher
	Downloader *downloader.Downloader
	Converter  services.Converter
	Archiver   services.Archiver
	Config     *config.Config
	Logger     zerolog.Logger
}

// Context carries the parameters of one run.
type Context struct {
	URL          string
	Languages    models.LanguageSet // requested, possibly empty or "all"
	Seasons      models.IntSet      // empty matches every season
	Episodes     models.IntSet      // empty matches every episode
	LastEpisode  bool
	DownloadRoot string
	OutputDir    string // optional, title folders are moved here when set
	PayLimit     PayLimitPolicy
	Printer      *message.Printer
}

// Sprintf formats a user-facing message in the run's UI language.
func (rc *Context) Sprintf(key string, args ...any) string {
	if rc.Printer == nil {
		return fmt.Sprintf(key, args...)
	}
	return rc.Printer.Sprintf(key, args...)
}
