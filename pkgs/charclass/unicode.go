package charclass

import (
	"sync"
	"unicode"
)

// MaxRune is the largest valid Unicode scalar value.
const MaxRune rune = 0x10FFFF

// Process-wide cache of category name -> RangeSet. Categories are expensive
// to materialize, so each key is computed at most once; entries are
// write-once and the stored sets are never mutated afterwards.
var categoryCache = struct {
	sync.Mutex
	sets map[string]*RangeSet
}{sets: make(map[string]*RangeSet)}

// CategorySet resolves a Unicode General_Category name (major like "L" or
// minor like "Lu", plus the composed "LC") to its RangeSet. The returned
// set is shared and must not be mutated; callers that need to modify it
// should Clone first. Returns false for names that are not categories.
func CategorySet(name string) (*RangeSet, bool) {
	categoryCache.Lock()
	defer categoryCache.Unlock()

	if set, ok := categoryCache.sets[name]; ok {
		return set, true
	}
	set := computeCategory(name)
	if set == nil {
		return nil, false
	}
	categoryCache.sets[name] = set
	return set, true
}

// IsCategoryName reports whether name is a recognized General_Category name.
func IsCategoryName(name string) bool {
	switch name {
	case "L", "LC", "M", "N", "P", "S", "Z", "C",
		"Lu", "Ll", "Lt", "Lm", "Lo",
		"Mn", "Mc", "Me",
		"Nd", "Nl", "No",
		"Pc", "Pd", "Ps", "Pe", "Pi", "Pf", "Po",
		"Sm", "Sc", "Sk", "So",
		"Zs", "Zl", "Zp",
		"Cc", "Cf", "Cs", "Co", "Cn":
		return true
	}
	return false
}

func computeCategory(name string) *RangeSet {
	if !IsCategoryName(name) {
		return nil
	}
	switch name {
	case "LC":
		// Cased letters: Lu | Ll | Lt. Composed here; older Go releases
		// do not list LC in unicode.Categories.
		set := tableToRangeSet(unicode.Lu)
		set = set.Union(tableToRangeSet(unicode.Ll))
		return set.Union(tableToRangeSet(unicode.Lt))
	case "Cn":
		// Unassigned: everything not covered by an assigned category.
		// The two-letter entries of unicode.Categories other than Cn span
		// all assigned code points (surrogates included via Cs), so Cn is
		// their complement. Newer Go releases list Cn itself, so it is
		// skipped here.
		assigned := NewRangeSet()
		for cat, tab := range unicode.Categories {
			if len(cat) != 2 || cat == "Cn" {
				continue
			}
			assigned = assigned.Union(tableToRangeSet(tab))
		}
		return FromRange(0, MaxRune).Subtract(assigned)
	case "C":
		// The major C category includes Cn, which the stdlib table omits.
		set := tableToRangeSet(unicode.Categories["C"])
		cn := computeCategory("Cn")
		return set.Union(cn)
	}
	tab, ok := unicode.Categories[name]
	if !ok {
		return nil
	}
	return tableToRangeSet(tab)
}

// tableToRangeSet converts a stdlib RangeTable into a RangeSet, expanding
// strided ranges.
func tableToRangeSet(tab *unicode.RangeTable) *RangeSet {
	set := NewRangeSet()
	if tab == nil {
		return set
	}
	for _, r := range tab.R16 {
		addStrided(set, rune(r.Lo), rune(r.Hi), rune(r.Stride))
	}
	for _, r := range tab.R32 {
		addStrided(set, rune(r.Lo), rune(r.Hi), rune(r.Stride))
	}
	return set
}

func addStrided(set *RangeSet, lo, hi, stride rune) {
	if hi > MaxRune {
		hi = MaxRune
	}
	if stride <= 1 {
		set.AddRange(lo, hi)
		return
	}
	for c := lo; c <= hi; c += stride {
		set.AddRune(c)
	}
}
