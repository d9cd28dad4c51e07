package wetv

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexInt accepts numbers that the platform sometimes sends as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		var fl float64
		if jsonErr := json.Unmarshal(data, &fl); jsonErr != nil {
			return err
		}
		n = int(fl)
	}
	*f = flexInt(n)
	return nil
}

// pageData is props.pageProps.data of a play page.
type pageData struct {
	CoverInfo struct {
		CID            string  `json:"cid"`
		Title          string  `json:"title"`
		Type           flexInt `json:"type"`
		IsAreaLimit    flexInt `json:"isAreaLimit"`
		EpisodeUpdated flexInt `json:"episodeUpdated"`
		EpisodeAll     flexInt `json:"episodeAll"`
	} `json:"coverInfo"`
	VideoInfo struct {
		VID              string   `json:"vid"`
		Title            string   `json:"title"`
		VideoCheckUpTime string   `json:"videoCheckUpTime"`
		CoverList        []string `json:"coverList"`
	} `json:"videoInfo"`
	VideoList []struct {
		VID       string  `json:"vid"`
		Episode   flexInt `json:"episode"`
		IsTrailer flexInt `json:"isTrailer"`
	} `json:"videoList"`
}

// isMovie reports whether the cover is a single film (type 1) rather than a series.
func (p *pageData) isMovie() bool {
	return p.CoverInfo.Type == 1
}

type subtitleFile struct {
	Lang string `json:"lang"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type subtitleList struct {
	Count flexInt        `json:"cnt"`
	Files []subtitleFile `json:"fi"`
}

// videoInfo is the getvinfo payload once the JSONP wrapper is removed.
type videoInfo struct {
	Msg       string        `json:"msg"`
	Subtitles *subtitleList `json:"sfl"`
}

// languageCodes maps the platform's subtitle language names onto BCP 47 tags.
var languageCodes = map[string]string{
	"EN":    "en",
	"ZH-TW": "zh-Hant",
	"ZH-CN": "zh-Hans",
	"MS":    "ms",
	"TH":    "th",
	"ID":    "id",
	"PT":    "pt",
	"ES":    "es",
	"KO":    "ko",
	"VI":    "vi",
	"AR":    "ar",
}

// languageCode returns the tag for a platform language name, or "" when unknown.
func languageCode(lang string) string {
	return languageCodes[strings.ToUpper(strings.TrimSpace(lang))]
}
