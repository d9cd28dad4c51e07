package models

import (
	"reflect"
	"testing"
)

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"zh-Hant", "zh-Hant"},
		{"ZH-hant", "zh-Hant"},
		{" en ", "en"},
		{"ALL", "all"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.input); got != tt.expected {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNewLanguageSet_DeduplicatesInOrder(t *testing.T) {
	set := NewLanguageSet("en", "zh-hant", "EN", "", "zh-Hant", "th")

	expected := []string{"en", "zh-Hant", "th"}
	if !reflect.DeepEqual(set.Codes(), expected) {
		t.Errorf("Expected %v, got %v", expected, set.Codes())
	}
	if !set.Contains("ZH-HANT") {
		t.Error("Expected case-insensitive Contains to match zh-Hant")
	}
	if set.WantsAll() {
		t.Error("Expected WantsAll to be false")
	}
}

func TestParseLanguageList(t *testing.T) {
	set := ParseLanguageList("zh-Hant, all ,en")
	if set.Len() != 3 {
		t.Fatalf("Expected 3 codes, got %d (%v)", set.Len(), set.Codes())
	}
	if !set.WantsAll() {
		t.Error("Expected WantsAll to be true")
	}
	if got := set.String(); got != "zh-Hant,all,en" {
		t.Errorf("Expected joined string, got %q", got)
	}
	if !ParseLanguageList("").IsEmpty() {
		t.Error("Expected empty list to produce empty set")
	}
}
