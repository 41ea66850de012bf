// Package analysis inspects a grammar without modifying it: nullability,
// recursion, left recursion and simple ambiguity heuristics. The results
// are diagnostic only; input parsing stays ordered choice regardless.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bigale/ixml/pkgs/ast"
)

// Analysis holds the computed grammar properties.
type Analysis struct {
	// Nullable rules can match the empty string.
	Nullable map[string]bool

	// Recursive rules reach themselves through any reference chain.
	Recursive map[string]bool

	// LeftRecursive rules appear in their own left-reachable set; the
	// engine refuses them at parse time, this flags them up front.
	LeftRecursive map[string]bool

	// Rules grouped by their rule-level mark.
	HiddenRules    []string
	AttributeRules []string
	PromotedRules  []string

	// Complexity is a per-rule score: alternative count plus factor count
	// plus nested group scores.
	Complexity map[string]int

	// PotentiallyAmbiguous is set when any heuristic fires; Hints lists
	// the findings in human-readable form.
	PotentiallyAmbiguous bool
	Hints                []string
}

// Analyze computes all properties for the grammar.
func Analyze(g *ast.Grammar) *Analysis {
	a := &Analysis{
		Nullable:      make(map[string]bool),
		Recursive:     make(map[string]bool),
		LeftRecursive: make(map[string]bool),
		Complexity:    make(map[string]int),
	}

	a.computeNullable(g)
	a.computeRecursion(g)
	a.computeLeftRecursion(g)

	for _, rule := range g.Rules {
		switch rule.Mark {
		case ast.MarkHidden:
			a.HiddenRules = append(a.HiddenRules, rule.Name)
		case ast.MarkAttribute:
			a.AttributeRules = append(a.AttributeRules, rule.Name)
		case ast.MarkPromoted:
			a.PromotedRules = append(a.PromotedRules, rule.Name)
		}
		a.Complexity[rule.Name] = complexity(&rule.Alternatives)
	}

	a.detectAmbiguity(g)
	return a
}

// computeNullable runs the fixed-point iteration over the nullable set.
func (a *Analysis) computeNullable(g *ast.Grammar) {
	for changed := true; changed; {
		changed = false
		for _, rule := range g.Rules {
			if a.Nullable[rule.Name] {
				continue
			}
			if a.nullableAlts(&rule.Alternatives) {
				a.Nullable[rule.Name] = true
				changed = true
			}
		}
	}
}

func (a *Analysis) nullableAlts(alts *ast.Alternatives) bool {
	for i := range alts.Alts {
		if a.nullableSeq(&alts.Alts[i]) {
			return true
		}
	}
	return false
}

func (a *Analysis) nullableSeq(seq *ast.Sequence) bool {
	for i := range seq.Factors {
		if !a.nullableFactor(&seq.Factors[i]) {
			return false
		}
	}
	return true
}

func (a *Analysis) nullableFactor(f *ast.Factor) bool {
	switch f.Rep.Kind {
	case ast.RepZeroOrMore, ast.RepOptional, ast.RepSeparatedZeroOrMore:
		return true
	}
	return a.nullableBase(f.Base)
}

func (a *Analysis) nullableBase(base ast.BaseFactor) bool {
	switch b := base.(type) {
	case *ast.Literal:
		return b.Insertion || b.Value == ""
	case *ast.Nonterminal:
		return a.Nullable[b.Name]
	case *ast.CharClass:
		return false
	case *ast.Group:
		return a.nullableAlts(&b.Alternatives)
	}
	return false
}

// computeRecursion marks rules that can reach themselves through any
// reference. Reachability is computed iteratively per rule with an
// explicit work list, not native recursion.
func (a *Analysis) computeRecursion(g *ast.Grammar) {
	refs := make(map[string][]string, len(g.Rules))
	for _, rule := range g.Rules {
		set := make(map[string]bool)
		collectRefs(&rule.Alternatives, set)
		for name := range set {
			refs[rule.Name] = append(refs[rule.Name], name)
		}
	}

	for _, rule := range g.Rules {
		seen := make(map[string]bool)
		work := append([]string(nil), refs[rule.Name]...)
		for len(work) > 0 {
			name := work[len(work)-1]
			work = work[:len(work)-1]
			if seen[name] {
				continue
			}
			seen[name] = true
			work = append(work, refs[name]...)
		}
		if seen[rule.Name] {
			a.Recursive[rule.Name] = true
		}
	}
}

func collectRefs(alts *ast.Alternatives, into map[string]bool) {
	for i := range alts.Alts {
		for j := range alts.Alts[i].Factors {
			factor := &alts.Alts[i].Factors[j]
			collectBaseRefs(factor.Base, into)
			if factor.Rep.Separator != nil {
				sepAlts := ast.Alternatives{Alts: []ast.Sequence{*factor.Rep.Separator}}
				collectRefs(&sepAlts, into)
			}
		}
	}
}

func collectBaseRefs(base ast.BaseFactor, into map[string]bool) {
	switch b := base.(type) {
	case *ast.Nonterminal:
		into[b.Name] = true
	case *ast.Group:
		collectRefs(&b.Alternatives, into)
	}
}

// computeLeftRecursion computes the left-reachable set of every rule by
// fixed-point iteration and flags rules that contain themselves.
func (a *Analysis) computeLeftRecursion(g *ast.Grammar) {
	direct := make(map[string]map[string]bool, len(g.Rules))
	for _, rule := range g.Rules {
		set := make(map[string]bool)
		a.leftRefsAlts(&rule.Alternatives, set)
		direct[rule.Name] = set
	}

	reach := make(map[string]map[string]bool, len(g.Rules))
	for name, set := range direct {
		copied := make(map[string]bool, len(set))
		for k := range set {
			copied[k] = true
		}
		reach[name] = copied
	}

	for changed := true; changed; {
		changed = false
		for _, set := range reach {
			for mid := range set {
				for far := range reach[mid] {
					if !set[far] {
						set[far] = true
						changed = true
					}
				}
			}
		}
	}

	for _, rule := range g.Rules {
		if reach[rule.Name][rule.Name] {
			a.LeftRecursive[rule.Name] = true
		}
	}
}

func (a *Analysis) leftRefsAlts(alts *ast.Alternatives, into map[string]bool) {
	for i := range alts.Alts {
		a.leftRefsSeq(&alts.Alts[i], into)
	}
}

// leftRefsSeq adds the nonterminals that can occur at the left edge of the
// sequence: each leading factor contributes, and scanning continues past a
// factor only while it is nullable.
func (a *Analysis) leftRefsSeq(seq *ast.Sequence, into map[string]bool) {
	for i := range seq.Factors {
		factor := &seq.Factors[i]
		switch b := factor.Base.(type) {
		case *ast.Nonterminal:
			into[b.Name] = true
		case *ast.Group:
			a.leftRefsAlts(&b.Alternatives, into)
		}
		if !a.nullableFactor(factor) {
			return
		}
	}
}

// complexity scores a rule: one per alternative, one per factor, plus
// nested group scores.
func complexity(alts *ast.Alternatives) int {
	score := len(alts.Alts)
	for i := range alts.Alts {
		for j := range alts.Alts[i].Factors {
			score++
			if group, ok := alts.Alts[i].Factors[j].Base.(*ast.Group); ok {
				score += complexity(&group.Alternatives)
			}
		}
	}
	return score
}

// detectAmbiguity applies the heuristics: multiple nullable alternatives,
// alternatives sharing a nullable leading factor, and consecutive nullable
// nonterminals in one sequence.
func (a *Analysis) detectAmbiguity(g *ast.Grammar) {
	for _, rule := range g.Rules {
		nullableAlts := 0
		for i := range rule.Alternatives.Alts {
			if a.nullableSeq(&rule.Alternatives.Alts[i]) {
				nullableAlts++
			}
		}
		if nullableAlts > 1 {
			a.hint("rule %q has %d nullable alternatives", rule.Name, nullableAlts)
		}

		a.checkNullablePrefixes(&rule)
		a.checkConsecutiveNullable(&rule)
	}
	if len(a.Hints) > 0 {
		a.PotentiallyAmbiguous = true
	}
}

// checkNullablePrefixes flags alternatives whose leading nonterminal is the
// same and nullable: both can match the same empty prefix.
func (a *Analysis) checkNullablePrefixes(rule *ast.Rule) {
	leading := make(map[string]int)
	for i := range rule.Alternatives.Alts {
		seq := &rule.Alternatives.Alts[i]
		if len(seq.Factors) == 0 {
			continue
		}
		if nt, ok := seq.Factors[0].Base.(*ast.Nonterminal); ok && a.Nullable[nt.Name] {
			leading[nt.Name]++
		}
	}
	for name, count := range leading {
		if count > 1 {
			a.hint("rule %q has %d alternatives starting with nullable rule %q", rule.Name, count, name)
		}
	}
}

// checkConsecutiveNullable flags sequences containing two adjacent nullable
// nonterminal factors: the boundary between their matches is arbitrary.
func (a *Analysis) checkConsecutiveNullable(rule *ast.Rule) {
	for i := range rule.Alternatives.Alts {
		seq := &rule.Alternatives.Alts[i]
		for j := 0; j+1 < len(seq.Factors); j++ {
			first, ok1 := seq.Factors[j].Base.(*ast.Nonterminal)
			second, ok2 := seq.Factors[j+1].Base.(*ast.Nonterminal)
			if ok1 && ok2 && a.Nullable[first.Name] && a.Nullable[second.Name] {
				a.hint("rule %q has consecutive nullable rules %q and %q", rule.Name, first.Name, second.Name)
				break
			}
		}
	}
}

func (a *Analysis) hint(format string, args ...any) {
	a.Hints = append(a.Hints, fmt.Sprintf(format, args...))
}

// Report renders a human-readable summary for verbose host output.
func (a *Analysis) Report() string {
	var sb strings.Builder
	sb.WriteString("grammar analysis:\n")
	fmt.Fprintf(&sb, "  nullable rules:       %s\n", joinSet(a.Nullable))
	fmt.Fprintf(&sb, "  recursive rules:      %s\n", joinSet(a.Recursive))
	fmt.Fprintf(&sb, "  left-recursive rules: %s\n", joinSet(a.LeftRecursive))
	fmt.Fprintf(&sb, "  hidden rules:         %s\n", joinList(a.HiddenRules))
	fmt.Fprintf(&sb, "  attribute rules:      %s\n", joinList(a.AttributeRules))
	fmt.Fprintf(&sb, "  promoted rules:       %s\n", joinList(a.PromotedRules))
	fmt.Fprintf(&sb, "  potentially ambiguous: %v\n", a.PotentiallyAmbiguous)
	for _, hint := range a.Hints {
		fmt.Fprintf(&sb, "    - %s\n", hint)
	}
	return sb.String()
}

func joinSet(set map[string]bool) string {
	var names []string
	for name, ok := range set {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return joinList(names)
}

func joinList(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
