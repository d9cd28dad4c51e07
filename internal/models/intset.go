package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxRangeSpan bounds how many numbers a single "a-b" range may expand to.
const MaxRangeSpan = 10000

// IntSet is a set of season or episode numbers. An empty set matches everything.
type IntSet map[int]struct{}

// NewIntSet builds a set from values.
func NewIntSet(values ...int) IntSet {
	set := make(IntSet, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// ParseIntSet parses "1,3,5-7" into a set. Empty input yields an empty set.
func ParseIntSet(raw string) (IntSet, error) {
	set := IntSet{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", part, err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", part, err)
			}
			if end < start {
				return nil, fmt.Errorf("invalid range %q: end before start", part)
			}
			if end-start >= MaxRangeSpan {
				return nil, fmt.Errorf("invalid range %q: spans more than %d numbers", part, MaxRangeSpan)
			}
			for i := start; i <= end; i++ {
				set[i] = struct{}{}
			}
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", part, err)
		}
		set[v] = struct{}{}
	}
	return set, nil
}

// Matches returns true when the set is empty or contains v.
func (s IntSet) Matches(v int) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order.
func (s IntSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
