package wetv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/browser"
	"github.com/Belphemur/SubtitleRipper/internal/client"
	"github.com/Belphemur/SubtitleRipper/internal/downloader"
	"github.com/Belphemur/SubtitleRipper/internal/extractor"
	"github.com/Belphemur/SubtitleRipper/internal/models"
	"github.com/Belphemur/SubtitleRipper/internal/parser"
)

// Player identity sent with getvinfo. The cKey signature covers appVer and platform.
const (
	appVersion = "2.5.13"
	platformID = "4830201"
	flowID     = "4bc874cf11eac741b34fa6e4c62ca18e"
	payLimit   = "pay limit"
)

func newGUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// videoInfoQuery builds the getvinfo query for one video.
func videoInfoQuery(cid, vid, referer, guid, tm, ckey string) url.Values {
	q := url.Values{}
	for key, value := range map[string]string{
		"charge":        "0",
		"otype":         "json",
		"defnpayver":    "0",
		"spau":          "1",
		"spaudio":       "1",
		"spwm":          "1",
		"sphls":         "1",
		"host":          "wetv.vip",
		"refer":         "wetv.vip",
		"ehost":         referer,
		"sphttps":       "1",
		"encryptVer":    "8.1",
		"cKey":          ckey,
		"clip":          "4",
		"guid":          guid,
		"flowid":        flowID,
		"platform":      platformID,
		"sdtfrom":       "1002",
		"appVer":        appVersion,
		"unid":          "",
		"auth_from":     "",
		"auth_ext":      "",
		"vid":           vid,
		"defn":          "shd",
		"fhdswitch":     "0",
		"dtype":         "3",
		"spsrt":         "2",
		"tm":            tm,
		"lang_code":     "8229847",
		"logintoken":    "",
		"spcaptiontype": "1",
		"spmasterm3u8":  "2",
		"country_code":  "153514",
		"cid":           cid,
		"drm":           "40",
		"callback":      fmt.Sprintf("getinfo_callback_%d", 10000+rand.IntN(990000)),
	} {
		q.Set(key, value)
	}
	return q
}

// videoInfo fetches the subtitle list of one video and settles the language
// selection on the first list seen. playURL is the page the browser opens when
// no signer is available.
func (e *Extractor) videoInfo(ctx context.Context, rc *extractor.Context, cid, vid, playURL string) (*subtitleList, error) {
	var (
		body      string
		requestTo string
		err       error
	)
	if e.signer != nil {
		requestTo, body, err = e.signedVideoInfo(ctx, rc.URL, cid, vid)
	} else {
		requestTo, body, err = e.capturedVideoInfo(ctx, rc.URL, vid, playURL)
	}
	if err != nil {
		return nil, err
	}

	payload, err := parser.UnwrapJSONP(body)
	if err != nil {
		return nil, &apperrors.ErrUnexpectedResponse{URL: requestTo, Reason: err.Error()}
	}
	var info videoInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, &apperrors.ErrUnexpectedResponse{URL: requestTo, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	switch {
	case info.Subtitles != nil:
		if len(info.Subtitles.Files) == 0 {
			return nil, &apperrors.ErrNoSubtitles{}
		}
	case info.Msg == payLimit:
		return nil, &apperrors.ErrPayLimit{VideoID: vid}
	default:
		return nil, &apperrors.ErrUnexpectedResponse{URL: requestTo, Reason: client.PrettyBody(payload)}
	}

	e.Logger().Debug().Str("vid", vid).Int("subtitles", len(info.Subtitles.Files)).Msg("Subtitle list received")
	if err := e.resolveLanguages(rc, info.Subtitles); err != nil {
		return nil, err
	}
	return info.Subtitles, nil
}

// signedVideoInfo calls getvinfo directly with a locally computed cKey.
func (e *Extractor) signedVideoInfo(ctx context.Context, referer, cid, vid string) (string, string, error) {
	tm := strconv.FormatInt(time.Now().Unix(), 10)
	ckey, err := e.signer.Sign(ctx, CKeyParams{
		VID:        vid,
		Timestamp:  tm,
		AppVersion: appVersion,
		GUID:       e.guid,
		Platform:   platformID,
		URL:        referer,
	})
	if err != nil {
		return "", "", err
	}

	text, err := e.Client.Text(ctx, http.MethodGet, e.videoInfoURL, client.RequestOptions{
		Headers: map[string]string{"Referer": referer},
		Query:   videoInfoQuery(cid, vid, referer, e.guid, tm, ckey),
	})
	return e.videoInfoURL, text, err
}

// capturedVideoInfo lets the play page sign the request itself: the page is opened
// in the headless browser and its own getvinfo request is replayed.
func (e *Extractor) capturedVideoInfo(ctx context.Context, referer, vid, playURL string) (string, string, error) {
	if e.Browser == nil {
		return "", "", &apperrors.ErrSignerUnavailable{Reason: "no cKey script configured and no browser available"}
	}
	if e.page == nil {
		page, err := e.Browser.Launch(ctx)
		if err != nil {
			return "", "", fmt.Errorf("start browser: %w", err)
		}
		e.page = page
	}

	if err := e.page.Open(ctx, playURL); err != nil {
		return "", "", fmt.Errorf("open %s: %w", playURL, err)
	}

	pattern := regexp.MustCompile(regexp.QuoteMeta(path.Base(e.videoInfoURL)) + `\?.*\bvid=` + regexp.QuoteMeta(vid) + `(&|$)`)
	opts := browser.WaitOptions{}
	if e.Config != nil {
		opts = browser.WaitOptionsFromConfig(e.Config)
	}
	captured, err := browser.AwaitNetworkURL(ctx, e.page, pattern, opts)
	if err != nil {
		return "", "", err
	}
	e.Logger().Debug().Str("url", captured).Msg("Captured getvinfo request")

	text, err := e.Client.Text(ctx, http.MethodGet, captured, client.RequestOptions{
		Headers: map[string]string{"Referer": referer},
	})
	return captured, text, err
}

// expandPlaylist resolves an m3u8 subtitle into descriptors. A single segment is
// downloaded straight to name; several are downloaded as fragments and merged.
func (e *Extractor) expandPlaylist(ctx context.Context, batch *extractor.Batch, playlistURL, dir, name string) error {
	segments, err := e.playlistSegments(ctx, playlistURL, 1)
	if err != nil {
		return err
	}

	switch len(segments) {
	case 0:
		e.Logger().Warn().Str("file", name).Msg("Subtitle playlist has no segments")
	case 1:
		batch.Descriptors = append(batch.Descriptors, models.SubtitleDescriptor{
			FileName: name, DestinationDir: dir, SourceURL: segments[0],
		})
	default:
		fragDir := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+"_fragments")
		for i, segment := range segments {
			ext := path.Ext(segmentPath(segment))
			if ext == "" {
				ext = ".vtt"
			}
			batch.Descriptors = append(batch.Descriptors, models.SubtitleDescriptor{
				FileName:       downloader.FragmentName(i, ext),
				DestinationDir: fragDir,
				SourceURL:      segment,
			})
		}
		batch.Fragments = append(batch.Fragments, models.FragmentGroup{Dir: fragDir, Output: filepath.Join(dir, name)})
	}
	return nil
}

// playlistSegments returns the segment URLs of a media playlist, following the
// first variant of a master playlist at most depth times.
func (e *Extractor) playlistSegments(ctx context.Context, playlistURL string, depth int) ([]string, error) {
	resp, err := e.Client.Request(ctx, http.MethodGet, playlistURL, client.RequestOptions{Cache: true})
	if err != nil {
		return nil, err
	}
	playlist, err := parser.ParsePlaylist(bytes.NewReader(resp.Body), resp.URL)
	if err != nil {
		return nil, &apperrors.ErrUnexpectedResponse{URL: playlistURL, Reason: err.Error()}
	}
	if len(playlist.Segments) == 0 && len(playlist.Variants) > 0 && depth > 0 {
		return e.playlistSegments(ctx, playlist.Variants[0], depth-1)
	}
	return playlist.Segments, nil
}

func segmentPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
