package cli

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/message"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/client"
	"github.com/Belphemur/SubtitleRipper/internal/locale"
)

// Describe renders err as the user-facing message for the final log line.
func Describe(p *message.Printer, err error) string {
	var (
		langErr     *apperrors.ErrLanguageUnavailable
		statusErr   *apperrors.ErrHTTPStatus
		siteErr     *apperrors.ErrUnsupportedSite
		missingErr  *apperrors.ErrExtractorUnavailable
		payLimitErr *apperrors.ErrPayLimit
	)

	switch {
	case errors.Is(err, context.Canceled):
		return p.Sprintf(locale.Interrupted)
	case errors.Is(err, &apperrors.ErrNoSubtitles{}):
		return p.Sprintf(locale.NoSubtitles)
	case errors.Is(err, &apperrors.ErrRegionBlocked{}):
		return p.Sprintf(locale.RegionBlocked)
	case errors.Is(err, &apperrors.ErrNetworkTimeout{}):
		return p.Sprintf(locale.Timeout)
	case errors.As(err, &langErr):
		return p.Sprintf(locale.AvailableLanguages, strings.Join(langErr.Available, ", "))
	case errors.As(err, &siteErr):
		return p.Sprintf(locale.UnsupportedSite, siteErr.URL)
	case errors.As(err, &missingErr):
		return p.Sprintf(locale.ExtractorMissing, missingErr.Platform)
	case errors.As(err, &payLimitErr):
		return p.Sprintf(locale.PayLimit, payLimitErr.VideoID)
	case errors.As(err, &statusErr):
		return p.Sprintf(locale.RequestFailed, statusErr.StatusCode, client.PrettyBody(statusErr.Body))
	default:
		return p.Sprintf(locale.UnexpectedError, err)
	}
}
