// Package locale holds the user-facing messages in every supported UI language.
package locale

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	NoSubtitles         = "Sorry, there's no embedded subtitles in this video!"
	RegionBlocked       = "Sorry, this video is not available in your region!"
	AvailableLanguages  = "Subtitle available languages: %s"
	Timeout             = "Timeout, please retry."
	UnsupportedSite     = "This site is not supported yet: %s"
	ExtractorMissing    = "%s is recognized but its extractor is not installed."
	RequestFailed       = "Request failed with status %d:\n%s"
	PayLimit            = "Episode %s is behind a pay limit."
	Interrupted         = "Interrupted."
	UnexpectedError     = "Unexpected error: %v"
	MovieHeader         = "%s (%s)"
	SeasonAll           = "Season %d total: %d episode(s)\tdownload all episodes"
	SeasonUpdating      = "Season %d total: %d episode(s)\tupdate to episode %d\tdownload all episodes"
	SeasonLastEpisode   = "Season %d total: %d episode(s)\tdownload season %d last episode"
	DownloadFile        = "Download: %s"
	FindingFile         = "Finding %s ..."
	DownloadSummary     = "Downloaded %d file(s), %d skipped, %d failed"
	SubtitleFileMissing = "File not found: %s"
)

var (
	// English is the fallback UI language.
	English = language.English

	// TraditionalChinese is the second bundled UI language.
	TraditionalChinese = language.TraditionalChinese

	builder = catalog.NewBuilder(catalog.Fallback(English))
	matcher language.Matcher
)

func init() {
	for _, key := range []string{
		NoSubtitles, RegionBlocked, AvailableLanguages, Timeout, UnsupportedSite, ExtractorMissing,
		RequestFailed, PayLimit, Interrupted, UnexpectedError, MovieHeader, SeasonAll, SeasonUpdating,
		SeasonLastEpisode, DownloadFile, FindingFile, DownloadSummary, SubtitleFileMissing,
	} {
		_ = builder.SetString(English, key, key)
	}

	zh := map[string]string{
		NoSubtitles:         "抱歉，此影片沒有內嵌字幕！",
		RegionBlocked:       "抱歉，此影片不允許在您的所在地區播放！",
		AvailableLanguages:  "字幕可用語言：%s",
		Timeout:             "逾時，請重試。",
		UnsupportedSite:     "尚未支援此網站：%s",
		ExtractorMissing:    "已辨識出 %s，但尚未安裝其擷取程式。",
		RequestFailed:       "請求失敗，狀態碼 %d：\n%s",
		PayLimit:            "第 %s 集需要付費觀看。",
		Interrupted:         "已中斷。",
		UnexpectedError:     "發生未預期的錯誤：%v",
		MovieHeader:         "%s（%s）",
		SeasonAll:           "第 %d 季 共有：%d 集\t下載全集",
		SeasonUpdating:      "第 %d 季 共有：%d 集\t更新至 第 %d 集\t下載全集",
		SeasonLastEpisode:   "第 %d 季 共有：%d 集\t下載第 %d 季 最後一集",
		DownloadFile:        "下載：%s",
		FindingFile:         "尋找 %s ...",
		DownloadSummary:     "已下載 %d 個檔案，略過 %d 個，失敗 %d 個",
		SubtitleFileMissing: "找不到檔案：%s",
	}
	for key, text := range zh {
		_ = builder.SetString(TraditionalChinese, key, text)
	}

	matcher = language.NewMatcher([]language.Tag{English, TraditionalChinese})
}

// Match returns the bundled UI language closest to tag ("zh-TW", "zh-Hant", "en", ...).
// Unknown or empty tags resolve to English.
func Match(tag string) language.Tag {
	if tag == "" {
		return English
	}
	requested, err := language.Parse(tag)
	if err != nil {
		return English
	}
	_, index, confidence := matcher.Match(requested)
	if confidence == language.No {
		return English
	}
	return []language.Tag{English, TraditionalChinese}[index]
}

// NewPrinter returns a printer for the UI language closest to tag.
func NewPrinter(tag string) *message.Printer {
	return message.NewPrinter(Match(tag), message.Catalog(builder))
}
