package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Belphemur/SubtitleRipper/internal/models"
)

var (
	reservedChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	spaceRuns     = regexp.MustCompile(`\s+`)
	dotRuns       = regexp.MustCompile(`\.{2,}`)
)

// SanitizeTitle makes a title safe for file names: NFC normalized, characters
// reserved by common filesystems removed, whitespace replaced with dots.
func SanitizeTitle(title string) string {
	title = norm.NFC.String(title)
	title = reservedChars.ReplaceAllString(title, "")
	title = spaceRuns.ReplaceAllString(strings.TrimSpace(title), ".")
	title = dotRuns.ReplaceAllString(title, ".")
	return strings.Trim(title, ".")
}

// FolderName returns "<title>" or "<title>.S<season>" for a positive season.
func FolderName(title string, season int) string {
	name := SanitizeTitle(title)
	if season > 0 {
		name += fmt.Sprintf(".S%02d", season)
	}
	return name
}

// FileName builds "<title>[.S<ss>][E<ee>].WEB-DL.<platform>[.<lang>]<ext>".
// Zero season or episode and an empty lang are left out.
func FileName(title string, season, episode int, platform models.Platform, lang, ext string) string {
	var b strings.Builder
	b.WriteString(FolderName(title, season))
	if episode > 0 {
		fmt.Fprintf(&b, "E%02d", episode)
	}
	b.WriteString(".WEB-DL.")
	b.WriteString(platform.String())
	if lang != "" {
		b.WriteString(".")
		b.WriteString(lang)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	b.WriteString(ext)
	return b.String()
}
