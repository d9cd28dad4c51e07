package extractor

import (
	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/models"
)

// ResolveLanguages intersects the requested languages with what the title offers.
// Nothing requested means fallback; "all" expands to every available language.
// The result keeps the requested order.
func ResolveLanguages(requested, available []string, fallback string) (models.LanguageSet, error) {
	want := models.NewLanguageSet(requested...)
	if want.IsEmpty() {
		want = models.NewLanguageSet(fallback)
	}
	offered := models.NewLanguageSet(available...)

	if want.WantsAll() {
		if offered.IsEmpty() {
			return models.LanguageSet{}, &apperrors.ErrLanguageUnavailable{Requested: want.Codes()}
		}
		return offered, nil
	}

	var picked []string
	for _, code := range want.Codes() {
		if offered.Contains(code) {
			picked = append(picked, code)
		}
	}
	if len(picked) == 0 {
		return models.LanguageSet{}, &apperrors.ErrLanguageUnavailable{
			Requested: want.Codes(),
			Available: offered.Codes(),
		}
	}
	return models.NewLanguageSet(picked...), nil
}
