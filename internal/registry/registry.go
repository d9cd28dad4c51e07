// Package registry maps playback URLs onto platform extractors.
package registry

import (
	"context"
	"strings"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/extractor"
	"github.com/Belphemur/SubtitleRipper/internal/extractor/wetv"
	"github.com/Belphemur/SubtitleRipper/internal/models"
)

// Factory builds the extractor of one platform.
type Factory func(deps extractor.Deps) extractor.Extractor

// Entry binds a URL keyword to a platform. Entries are matched in order.
type Entry struct {
	Platform models.Platform
	Keyword  string
	Factory  Factory
}

// Registry is an ordered, read-only table of entries.
type Registry struct {
	entries []Entry
}

// New creates a registry. Insertion order is match priority.
func New(entries ...Entry) *Registry {
	return &Registry{entries: append([]Entry(nil), entries...)}
}

// Default returns the table of every known platform. Platforms without a built-in
// extractor resolve to one that fails with ErrExtractorUnavailable.
func Default() *Registry {
	return New(
		Entry{Platform: models.PlatformKKTV, Keyword: "kktv.me"},
		Entry{Platform: models.PlatformLineTV, Keyword: "linetv.tw"},
		Entry{Platform: models.PlatformFridayVideo, Keyword: "video.friday"},
		Entry{Platform: models.PlatformCatchPlay, Keyword: "catchplay.com"},
		Entry{Platform: models.PlatformIQIYI, Keyword: "iq.com"},
		Entry{Platform: models.PlatformWeTV, Keyword: "wetv.vip", Factory: wetvFactory},
		Entry{Platform: models.PlatformViu, Keyword: "viu.com"},
		Entry{Platform: models.PlatformNowE, Keyword: "nowe.com"},
		Entry{Platform: models.PlatformNowPlayer, Keyword: "nowplayer.now.com"},
		Entry{Platform: models.PlatformHBOGOAsia, Keyword: "hbogoasia"},
		Entry{Platform: models.PlatformDisneyPlus, Keyword: "disneyplus.com"},
		Entry{Platform: models.PlatformITunes, Keyword: "itunes.apple.com"},
		Entry{Platform: models.PlatformAppleTVPlus, Keyword: "tv.apple.com"},
	)
}

func wetvFactory(deps extractor.Deps) extractor.Extractor {
	return wetv.New(deps)
}

// Entries returns a copy of the table.
func (r *Registry) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Resolve returns the first entry whose keyword occurs in url.
func (r *Registry) Resolve(url string) (Entry, error) {
	for _, e := range r.entries {
		if strings.Contains(url, e.Keyword) {
			return e, nil
		}
	}
	return Entry{}, &apperrors.ErrUnsupportedSite{URL: url}
}

// Build resolves url and constructs its extractor.
func (r *Registry) Build(url string, deps extractor.Deps) (extractor.Extractor, error) {
	entry, err := r.Resolve(url)
	if err != nil {
		return nil, err
	}
	if entry.Factory == nil {
		return unavailable{platform: entry.Platform}, nil
	}
	return entry.Factory(deps), nil
}

// unavailable stands in for extractors that are not built into this binary.
type unavailable struct {
	platform models.Platform
}

func (u unavailable) Platform() models.Platform {
	return u.platform
}

func (u unavailable) ResolveLanguages([]string, []string) (models.LanguageSet, error) {
	return models.LanguageSet{}, &apperrors.ErrExtractorUnavailable{Platform: u.platform.String()}
}

func (u unavailable) Run(context.Context, *extractor.Context) error {
	return &apperrors.ErrExtractorUnavailable{Platform: u.platform.String()}
}
