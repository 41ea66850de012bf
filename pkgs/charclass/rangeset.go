// Package charclass parses iXML character-class payloads into canonical
// code-point range sets and answers containment queries, including Unicode
// general-category classes over the full 0..0x10FFFF range.
package charclass

import (
	"fmt"
	"sort"
	"strings"
)

// runeRange is an inclusive code-point range.
type runeRange struct {
	Lo, Hi rune
}

// RangeSet is a sorted, normalized sequence of inclusive Unicode code-point
// ranges. After any mutation, ranges are sorted by start and no two ranges
// overlap or abut.
type RangeSet struct {
	ranges []runeRange
}

// NewRangeSet creates an empty set.
func NewRangeSet() *RangeSet {
	return &RangeSet{}
}

// FromRune creates a set containing a single code point.
func FromRune(r rune) *RangeSet {
	s := NewRangeSet()
	s.AddRune(r)
	return s
}

// FromRange creates a set containing one inclusive range. An inverted range
// yields the empty set.
func FromRange(lo, hi rune) *RangeSet {
	s := NewRangeSet()
	s.AddRange(lo, hi)
	return s
}

// IsEmpty reports whether the set contains no code points.
func (s *RangeSet) IsEmpty() bool { return len(s.ranges) == 0 }

// NumRanges returns the number of normalized ranges.
func (s *RangeSet) NumRanges() int { return len(s.ranges) }

// Ranges returns the normalized ranges as (lo, hi) pairs.
func (s *RangeSet) Ranges() [][2]rune {
	out := make([][2]rune, len(s.ranges))
	for i, r := range s.ranges {
		out[i] = [2]rune{r.Lo, r.Hi}
	}
	return out
}

// Count returns the total number of code points in the set.
func (s *RangeSet) Count() int {
	n := 0
	for _, r := range s.ranges {
		n += int(r.Hi-r.Lo) + 1
	}
	return n
}

// AddRune adds a single code point.
func (s *RangeSet) AddRune(r rune) {
	s.AddRange(r, r)
}

// AddRange adds an inclusive range. Inverted ranges are ignored.
func (s *RangeSet) AddRange(lo, hi rune) {
	if lo > hi {
		return
	}
	s.ranges = append(s.ranges, runeRange{lo, hi})
	s.normalize()
}

// normalize sorts by start and merges overlapping or abutting ranges.
func (s *RangeSet) normalize() {
	if len(s.ranges) <= 1 {
		return
	}
	sort.Slice(s.ranges, func(i, j int) bool { return s.ranges[i].Lo < s.ranges[j].Lo })
	merged := s.ranges[:1]
	for _, r := range s.ranges[1:] {
		last := &merged[len(merged)-1]
		if int32(r.Lo) <= int32(last.Hi)+1 {
			if r.Hi > last.Hi {
				last.Hi = r.Hi
			}
		} else {
			merged = append(merged, r)
		}
	}
	s.ranges = merged
}

// Contains reports whether the set contains the code point. Binary search
// over the normalized ranges.
func (s *RangeSet) Contains(r rune) bool {
	lo, hi := 0, len(s.ranges)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		rg := s.ranges[mid]
		switch {
		case r < rg.Lo:
			hi = mid - 1
		case r > rg.Hi:
			lo = mid + 1
		default:
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (s *RangeSet) Clone() *RangeSet {
	out := &RangeSet{ranges: make([]runeRange, len(s.ranges))}
	copy(out.ranges, s.ranges)
	return out
}

// Union returns the set of code points in either set.
func (s *RangeSet) Union(other *RangeSet) *RangeSet {
	out := s.Clone()
	for _, r := range other.ranges {
		out.ranges = append(out.ranges, r)
	}
	out.normalize()
	return out
}

// Intersect returns the set of code points in both sets.
func (s *RangeSet) Intersect(other *RangeSet) *RangeSet {
	out := NewRangeSet()
	for _, a := range s.ranges {
		for _, b := range other.ranges {
			lo, hi := a.Lo, a.Hi
			if b.Lo > lo {
				lo = b.Lo
			}
			if b.Hi < hi {
				hi = b.Hi
			}
			if lo <= hi {
				out.ranges = append(out.ranges, runeRange{lo, hi})
			}
		}
	}
	out.normalize()
	return out
}

// Subtract returns the set of code points in s but not in other.
func (s *RangeSet) Subtract(other *RangeSet) *RangeSet {
	out := s.Clone()
	for _, sub := range other.ranges {
		var next []runeRange
		for _, r := range out.ranges {
			if sub.Hi < r.Lo || sub.Lo > r.Hi {
				next = append(next, r)
				continue
			}
			if r.Lo < sub.Lo {
				next = append(next, runeRange{r.Lo, sub.Lo - 1})
			}
			if r.Hi > sub.Hi {
				next = append(next, runeRange{sub.Hi + 1, r.Hi})
			}
		}
		out.ranges = next
	}
	out.normalize()
	return out
}

// String renders the normalized ranges for diagnostics, e.g. "30-39,41".
func (s *RangeSet) String() string {
	var parts []string
	for _, r := range s.ranges {
		if r.Lo == r.Hi {
			parts = append(parts, fmt.Sprintf("%X", r.Lo))
		} else {
			parts = append(parts, fmt.Sprintf("%X-%X", r.Lo, r.Hi))
		}
	}
	return strings.Join(parts, ",")
}
