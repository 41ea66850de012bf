// Package ast defines the grammar model produced by parsing iXML grammar
// source: rules, alternatives, sequences, factors and the marks that shape
// XML output.
package ast

import "fmt"

// Mark controls how a rule or factor contributes to XML output.
type Mark int

const (
	MarkNone      Mark = iota // no mark: wrap in an element
	MarkHidden                // -name: drop the element, keep children
	MarkAttribute             // @name: contribute an attribute to the parent
	MarkPromoted              // ^name: children pass through to the enclosing rule
)

var markNames = [...]string{
	MarkNone:      "none",
	MarkHidden:    "hidden",
	MarkAttribute: "attribute",
	MarkPromoted:  "promoted",
}

func (m Mark) String() string {
	if int(m) < len(markNames) && int(m) >= 0 {
		return markNames[m]
	}
	return fmt.Sprintf("Mark(%d)", int(m))
}

// RepetitionKind enumerates the repetition suffixes a factor may carry.
type RepetitionKind int

const (
	RepNone                RepetitionKind = iota
	RepZeroOrMore                         // *
	RepOneOrMore                          // +
	RepOptional                           // ?
	RepSeparatedZeroOrMore                // **sep
	RepSeparatedOneOrMore                 // ++sep
)

var repetitionNames = [...]string{
	RepNone:                "none",
	RepZeroOrMore:          "*",
	RepOneOrMore:           "+",
	RepOptional:            "?",
	RepSeparatedZeroOrMore: "**",
	RepSeparatedOneOrMore:  "++",
}

func (r RepetitionKind) String() string {
	if int(r) < len(repetitionNames) && int(r) >= 0 {
		return repetitionNames[r]
	}
	return fmt.Sprintf("RepetitionKind(%d)", int(r))
}

// Repetition is a repetition suffix. Separator is non-nil only for the
// separated kinds (** and ++).
type Repetition struct {
	Kind      RepetitionKind
	Separator *Sequence
}

// Grammar is an ordered list of rules. The first rule is the start symbol.
type Grammar struct {
	Rules []Rule
}

// Start returns the start rule, or nil for an empty grammar.
func (g *Grammar) Start() *Rule {
	if len(g.Rules) == 0 {
		return nil
	}
	return &g.Rules[0]
}

// RuleMap builds a name -> rule index for reference resolution. References
// are by name, so no cyclic ownership exists in the model itself.
func (g *Grammar) RuleMap() map[string]*Rule {
	m := make(map[string]*Rule, len(g.Rules))
	for i := range g.Rules {
		m[g.Rules[i].Name] = &g.Rules[i]
	}
	return m
}

// Rule is a named production with a rule-level mark.
type Rule struct {
	Name         string
	Mark         Mark
	Alternatives Alternatives
}

// Alternatives is an ordered choice between sequences. Order matters: the
// input parser tries alternatives in source order and the first full match
// wins.
type Alternatives struct {
	Alts []Sequence
}

// Sequence is an ordered list of factors. An empty sequence is an epsilon
// production.
type Sequence struct {
	Factors []Factor
}

// Empty reports whether the sequence is an epsilon production.
func (s *Sequence) Empty() bool { return len(s.Factors) == 0 }

// Factor is a base factor with an optional repetition suffix.
type Factor struct {
	Base BaseFactor
	Rep  Repetition
}

// BaseFactor is the tagged union of things a factor can be: a literal, a
// nonterminal reference, a character class, or a parenthesized group.
// Exactly one implementation exists per variant; consumers switch on the
// concrete type.
type BaseFactor interface {
	baseFactor()
}

// Literal matches an exact string. When Insertion is set it contributes
// Value to the output without consuming input.
type Literal struct {
	Value     string
	Insertion bool
	Mark      Mark
}

// Nonterminal references another rule by name, optionally overriding the
// callee's rule-level mark.
type Nonterminal struct {
	Name string
	Mark Mark
}

// CharClass matches one input character against a class payload. Payload is
// the raw text between [ and ], parsed lazily by the charclass package.
type CharClass struct {
	Payload string
	Negated bool
	Mark    Mark
}

// Group is a parenthesized sub-grammar. It carries no mark of its own.
type Group struct {
	Alternatives Alternatives
}

func (*Literal) baseFactor()     {}
func (*Nonterminal) baseFactor() {}
func (*CharClass) baseFactor()   {}
func (*Group) baseFactor()       {}
