package models

import (
	"strings"

	"golang.org/x/text/language"
)

// AllLanguages is the request keyword that expands to every available language.
const AllLanguages = "all"

// LanguageSet is an ordered, deduplicated set of normalized language codes.
type LanguageSet struct {
	codes []string
}

// NormalizeLanguage returns the canonical BCP 47 casing of code ("ZH-hant" -> "zh-Hant").
// Codes that do not parse are lower-cased.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if strings.EqualFold(code, AllLanguages) {
		return AllLanguages
	}
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	return tag.String()
}

// NewLanguageSet normalizes and deduplicates codes, keeping first-seen order.
func NewLanguageSet(codes ...string) LanguageSet {
	set := LanguageSet{codes: make([]string, 0, len(codes))}
	for _, code := range codes {
		normalized := NormalizeLanguage(code)
		if normalized == "" || set.Contains(normalized) {
			continue
		}
		set.codes = append(set.codes, normalized)
	}
	return set
}

// ParseLanguageList parses a comma separated language list such as "zh-Hant,en".
func ParseLanguageList(list string) LanguageSet {
	return NewLanguageSet(strings.Split(list, ",")...)
}

// Codes returns a copy of the codes in order.
func (s LanguageSet) Codes() []string {
	out := make([]string, len(s.codes))
	copy(out, s.codes)
	return out
}

// Contains reports whether code (in any casing) is in the set.
func (s LanguageSet) Contains(code string) bool {
	normalized := NormalizeLanguage(code)
	for _, c := range s.codes {
		if c == normalized {
			return true
		}
	}
	return false
}

// Len returns the number of codes.
func (s LanguageSet) Len() int {
	return len(s.codes)
}

// IsEmpty returns true when the set holds no codes.
func (s LanguageSet) IsEmpty() bool {
	return len(s.codes) == 0
}

// WantsAll returns true when the "all" keyword was requested.
func (s LanguageSet) WantsAll() bool {
	return s.Contains(AllLanguages)
}

// String joins the codes with commas.
func (s LanguageSet) String() string {
	return strings.Join(s.codes, ",")
}
