package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// seasonMatchers are tried in order; the first that matches and yields a number wins.
var seasonMatchers = []*regexp.Regexp{
	regexp.MustCompile(`^(.+)第(.+)季`),
	regexp.MustCompile(`^(.+) S(\d+)`),
}

// ParseSeason splits a series title into its base title and season number.
// "想見你第二季" gives ("想見你", 2), "Go Ahead S2" gives ("Go Ahead", 2).
// Titles without a season marker are season 1.
func ParseSeason(title string) (string, int) {
	for _, re := range seasonMatchers {
		m := re.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		season, ok := parseNumber(m[2])
		if !ok || season <= 0 {
			continue
		}
		return strings.TrimSpace(m[1]), season
	}
	return strings.TrimSpace(title), 1
}

var chineseDigits = map[rune]int{
	'零': 0, '〇': 0, '一': 1, '二': 2, '兩': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

var chineseUnits = map[rune]int{'十': 10, '百': 100, '千': 1000}

// parseNumber accepts Arabic digits (full width included) and Chinese numerals below 10000.
func parseNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(width.Narrow.String(raw))
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}

	total, current := 0, 0
	for _, r := range raw {
		if d, ok := chineseDigits[r]; ok {
			current = d
			continue
		}
		unit, ok := chineseUnits[r]
		if !ok {
			return 0, false
		}
		// 十 alone means ten
		if current == 0 {
			current = 1
		}
		total += current * unit
		current = 0
	}
	return total + current, true
}
