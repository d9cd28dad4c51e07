package models

import (
	"reflect"
	"testing"
)

func TestParseIntSet(t *testing.T) {
	set, err := ParseIntSet("1, 3-5,9")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	expected := []int{1, 3, 4, 5, 9}
	if !reflect.DeepEqual(set.Sorted(), expected) {
		t.Errorf("Expected %v, got %v", expected, set.Sorted())
	}
}

func TestParseIntSet_Invalid(t *testing.T) {
	for _, raw := range []string{"a", "3-1", "1-x"} {
		if _, err := ParseIntSet(raw); err == nil {
			t.Errorf("Expected error for %q", raw)
		}
	}
}

func TestIntSet_Matches(t *testing.T) {
	empty := IntSet{}
	if !empty.Matches(42) {
		t.Error("Expected empty set to match everything")
	}

	set := NewIntSet(3)
	if !set.Matches(3) {
		t.Error("Expected set to match 3")
	}
	if set.Matches(4) {
		t.Error("Expected set not to match 4")
	}
}

func TestParseIntSet_RangeTooLarge(t *testing.T) {
	if _, err := ParseIntSet("1-2000000000"); err == nil {
		t.Error("Expected error for an oversized range")
	}
	set, err := ParseIntSet("1-10000")
	if err != nil {
		t.Fatalf("Expected range at the limit to parse, got: %v", err)
	}
	if len(set) != MaxRangeSpan {
		t.Errorf("Expected %d numbers, got %d", MaxRangeSpan, len(set))
	}
}
