package extractor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
)

func TestResolveLanguages(t *testing.T) {
	t.Parallel()
	available := []string{"en", "zh-Hant", "th"}

	tests := []struct {
		name      string
		requested []string
		expected  []string
	}{
		{"single match", []string{"zh-Hant"}, []string{"zh-Hant"}},
		{"case insensitive", []string{"ZH-hant"}, []string{"zh-Hant"}},
		{"requested order kept", []string{"th", "fr", "en"}, []string{"th", "en"}},
		{"all expands", []string{"all"}, []string{"en", "zh-Hant", "th"}},
		{"fallback when empty", nil, []string{"zh-Hant"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveLanguages(tt.requested, available, "zh-Hant")
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if !reflect.DeepEqual(got.Codes(), tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got.Codes())
			}
		})
	}
}

func TestResolveLanguages_Unavailable(t *testing.T) {
	t.Parallel()
	_, err := ResolveLanguages([]string{"fr"}, []string{"en", "zh-Hant"}, "zh-Hant")
	var langErr *apperrors.ErrLanguageUnavailable
	if !errors.As(err, &langErr) {
		t.Fatalf("Expected ErrLanguageUnavailable, got %v", err)
	}
	if !reflect.DeepEqual(langErr.Available, []string{"en", "zh-Hant"}) {
		t.Errorf("Expected available languages to be reported, got %v", langErr.Available)
	}
}

func TestResolveLanguages_AllWithNothingAvailable(t *testing.T) {
	t.Parallel()
	if _, err := ResolveLanguages([]string{"all"}, nil, "en"); !errors.Is(err, &apperrors.ErrLanguageUnavailable{}) {
		t.Errorf("Expected ErrLanguageUnavailable, got %v", err)
	}
}

func TestParsePayLimitPolicy(t *testing.T) {
	t.Parallel()
	for raw, want := range map[string]PayLimitPolicy{"": PayLimitSkip, "skip": PayLimitSkip, "ABORT": PayLimitAbort} {
		got, err := ParsePayLimitPolicy(raw)
		if err != nil || got != want {
			t.Errorf("ParsePayLimitPolicy(%q) = %q, %v; want %q", raw, got, err, want)
		}
	}
	if _, err := ParsePayLimitPolicy("retry"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}
