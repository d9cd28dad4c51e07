// Package wetv extracts subtitles from WeTV play pages.
package wetv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/browser"
	"github.com/Belphemur/SubtitleRipper/internal/client"
	"github.com/Belphemur/SubtitleRipper/internal/extractor"
	"github.com/Belphemur/SubtitleRipper/internal/locale"
	"github.com/Belphemur/SubtitleRipper/internal/models"
	"github.com/Belphemur/SubtitleRipper/internal/parser"
)

const (
	// DefaultLanguage is used when no subtitle language is requested.
	DefaultLanguage = "zh-Hant"

	defaultVideoInfoURL = "https://play.wetv.vip/getvinfo"
	defaultPlayURL      = "https://wetv.vip/id/play/%s/%s"
	cookieURL           = "https://wetv.vip/"
)

// Extractor implements extractor.Extractor for WeTV.
type Extractor struct {
	extractor.Base

	signer       Signer
	videoInfoURL string
	playURL      string // format with cover id and video id

	guid      string
	languages *models.LanguageSet
	page      browser.Page
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithSigner replaces the configured signer.
func WithSigner(s Signer) Option {
	return func(e *Extractor) { e.signer = s }
}

// WithEndpoints points the extractor at other getvinfo and play page URLs.
// playURL is a format string taking the cover id and the video id.
func WithEndpoints(videoInfoURL, playURL string) Option {
	return func(e *Extractor) {
		e.videoInfoURL = videoInfoURL
		e.playURL = playURL
	}
}

// New creates a WeTV extractor. The cKey signer script comes from wetv.ckey_script;
// without one, getvinfo requests are captured from the headless browser instead.
func New(deps extractor.Deps, opts ...Option) *Extractor {
	e := &Extractor{
		Base:         extractor.NewBase(models.PlatformWeTV, DefaultLanguage, deps),
		videoInfoURL: defaultVideoInfoURL,
		playURL:      defaultPlayURL,
	}

	if deps.Config != nil && deps.Config.WeTV.CKeyScript != "" {
		signer, err := LoadScriptSigner(deps.Config.WeTV.CKeyScript)
		if err != nil {
			e.Logger().Warn().Err(err).Str("script", deps.Config.WeTV.CKeyScript).Msg("Falling back to browser capture")
		} else {
			e.signer = signer
		}
	}

	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run implements extractor.Extractor.
func (e *Extractor) Run(ctx context.Context, rc *extractor.Context) error {
	defer e.closePage()
	logger := e.Logger()

	e.guid = e.Client.Cookie(cookieURL, "guid")
	if e.guid == "" {
		e.guid = newGUID()
		logger.Debug().Str("guid", e.guid).Msg("No guid cookie, generated one")
	}

	data, err := e.fetchPage(ctx, rc.URL)
	if err != nil {
		return e.Fail(err)
	}
	e.Transition(models.RunStateMetadataFetched)

	if data.CoverInfo.IsAreaLimit == 1 {
		logger.Info().Msg(rc.Sprintf(locale.RegionBlocked))
		title := data.CoverInfo.Title
		if title == "" {
			title = data.VideoInfo.Title
		}
		return e.Fail(&apperrors.ErrRegionBlocked{Title: title})
	}

	var batch extractor.Batch
	if data.isMovie() {
		e.Transition(models.RunStateMovieBranch)
		batch, err = e.movie(ctx, rc, data)
	} else {
		e.Transition(models.RunStateSeriesBranch)
		batch, err = e.series(ctx, rc, data)
	}
	if err != nil {
		return e.Fail(err)
	}
	e.Transition(models.RunStateDescriptorsBuilt)

	return e.Deliver(ctx, rc, batch)
}

// fetchPage downloads the play page and decodes the embedded page data.
func (e *Extractor) fetchPage(ctx context.Context, pageURL string) (*pageData, error) {
	resp, err := e.Client.Request(ctx, http.MethodGet, pageURL, client.RequestOptions{Cache: true})
	if err != nil {
		return nil, err
	}

	next, err := parser.ParseNextData(bytes.NewReader(resp.Body), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &apperrors.ErrUnexpectedResponse{URL: pageURL, Reason: err.Error()}
	}
	var data pageData
	if err := next.PageProp("data", &data); err != nil {
		return nil, &apperrors.ErrUnexpectedResponse{URL: pageURL, Reason: err.Error()}
	}
	return &data, nil
}

func (e *Extractor) movie(ctx context.Context, rc *extractor.Context, data *pageData) (extractor.Batch, error) {
	logger := e.Logger()
	info := data.VideoInfo

	year := info.VideoCheckUpTime
	if len(year) > 4 {
		year = year[:4]
	}
	logger.Info().Msg(rc.Sprintf(locale.MovieHeader, info.Title, year))

	name := info.Title
	if year != "" {
		name += "." + year
	}
	folder := filepath.Join(rc.DownloadRoot, extractor.FolderName(name, 0))
	if err := e.PrepareFolder(folder); err != nil {
		return extractor.Batch{}, err
	}
	batch := extractor.Batch{Folder: folder}

	logger.Info().Msg(rc.Sprintf(locale.DownloadFile, extractor.FileName(name, 0, 0, models.PlatformWeTV, "", ".vtt")))

	if len(info.CoverList) == 0 {
		return batch, &apperrors.ErrUnexpectedResponse{URL: rc.URL, Reason: "movie has no cover id"}
	}
	subs, err := e.videoInfo(ctx, rc, info.CoverList[0], info.VID, rc.URL)
	if errors.Is(err, &apperrors.ErrPayLimit{}) && rc.PayLimit != extractor.PayLimitAbort {
		logger.Warn().Str("vid", info.VID).Msg(rc.Sprintf(locale.PayLimit, info.Title))
		return batch, nil
	}
	if err != nil {
		return batch, err
	}
	err = e.collect(ctx, &batch, subs, func(lang string) string {
		return extractor.FileName(name, 0, 0, models.PlatformWeTV, lang, ".vtt")
	})
	return batch, err
}

func (e *Extractor) series(ctx context.Context, rc *extractor.Context, data *pageData) (extractor.Batch, error) {
	logger := e.Logger()
	cover := data.CoverInfo

	title, season := extractor.ParseSeason(cover.Title)
	logger.Info().Str("cid", cover.CID).Msg(title)

	updated, total := int(cover.EpisodeUpdated), int(cover.EpisodeAll)
	switch {
	case rc.LastEpisode:
		logger.Info().Msg(rc.Sprintf(locale.SeasonLastEpisode, season, updated, season))
	case updated == total:
		logger.Info().Msg(rc.Sprintf(locale.SeasonAll, season, total))
	default:
		logger.Info().Msg(rc.Sprintf(locale.SeasonUpdating, season, total, updated))
	}

	folder := filepath.Join(rc.DownloadRoot, extractor.FolderName(title, season))
	if err := e.PrepareFolder(folder); err != nil {
		return extractor.Batch{}, err
	}
	batch := extractor.Batch{Folder: folder}

	list := make([]extractor.Episode, 0, len(data.VideoList))
	for _, v := range data.VideoList {
		list = append(list, extractor.Episode{Number: int(v.Episode), ID: v.VID, Trailer: v.IsTrailer == 1})
	}
	selected := extractor.FilterEpisodes(list, season, rc.Seasons, rc.Episodes, rc.LastEpisode)

	missing := 0
	for _, ep := range selected {
		fileName := extractor.FileName(title, season, ep.Number, models.PlatformWeTV, "", ".vtt")
		logger.Info().Msg(rc.Sprintf(locale.FindingFile, fileName))

		subs, err := e.videoInfo(ctx, rc, cover.CID, ep.ID, fmt.Sprintf(e.playURL, cover.CID, ep.ID))
		switch {
		case errors.Is(err, &apperrors.ErrPayLimit{}) && rc.PayLimit != extractor.PayLimitAbort:
			logger.Warn().Str("vid", ep.ID).Msg(rc.Sprintf(locale.PayLimit, fmt.Sprint(ep.Number)))
			continue
		case errors.Is(err, &apperrors.ErrNoSubtitles{}):
			logger.Warn().Str("vid", ep.ID).Msg(rc.Sprintf(locale.NoSubtitles))
			missing++
			continue
		case err != nil:
			return batch, err
		}

		episode := ep.Number
		if err := e.collect(ctx, &batch, subs, func(lang string) string {
			return extractor.FileName(title, season, episode, models.PlatformWeTV, lang, ".vtt")
		}); err != nil {
			return batch, err
		}
	}

	if len(selected) > 0 && missing == len(selected) {
		return batch, &apperrors.ErrNoSubtitles{Title: title}
	}
	return batch, nil
}

// resolveLanguages fixes the language selection on the first subtitle list seen.
func (e *Extractor) resolveLanguages(rc *extractor.Context, subs *subtitleList) error {
	if e.languages != nil {
		return nil
	}
	available := make([]string, 0, len(subs.Files))
	for _, f := range subs.Files {
		if code := languageCode(f.Lang); code != "" {
			available = append(available, code)
		}
	}

	resolved, err := e.ResolveLanguages(rc.Languages.Codes(), available)
	if err != nil {
		var langErr *apperrors.ErrLanguageUnavailable
		if errors.As(err, &langErr) {
			e.Logger().Error().Msg(rc.Sprintf(locale.AvailableLanguages, strings.Join(langErr.Available, ", ")))
		}
		return err
	}
	e.languages = &resolved
	e.Transition(models.RunStateLanguagesResolved)
	return nil
}

// collect turns one subtitle list into descriptors. fileName builds the file
// name for a language tag.
func (e *Extractor) collect(ctx context.Context, batch *extractor.Batch, subs *subtitleList, fileName func(lang string) string) error {
	multi := e.languages.Len() > 1
	for _, f := range subs.Files {
		lang := languageCode(f.Lang)
		if lang == "" || !e.languages.Contains(lang) {
			continue
		}

		dir := batch.Folder
		if multi {
			dir = filepath.Join(batch.Folder, lang)
		}
		addLanguageDir(batch, dir)

		name := fileName(lang)
		if !strings.Contains(f.URL, ".m3u8") {
			batch.Descriptors = append(batch.Descriptors, models.SubtitleDescriptor{
				FileName: name, DestinationDir: dir, SourceURL: f.URL,
			})
			continue
		}
		if err := e.expandPlaylist(ctx, batch, f.URL, dir, name); err != nil {
			return err
		}
	}
	return nil
}

func addLanguageDir(batch *extractor.Batch, dir string) {
	for _, d := range batch.LanguageDirs {
		if d == dir {
			return
		}
	}
	batch.LanguageDirs = append(batch.LanguageDirs, dir)
}

func (e *Extractor) closePage() {
	if e.page == nil {
		return
	}
	if err := e.page.Close(); err != nil {
		e.Logger().Debug().Err(err).Msg("Failed to close browser session")
	}
	e.page = nil
}
