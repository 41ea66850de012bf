package ast

// Construction helpers used by the grammar parser and by tests that build
// expected grammars by hand.

// NewRule creates a rule with the given mark and alternatives.
func NewRule(name string, mark Mark, alts Alternatives) Rule {
	return Rule{Name: name, Mark: mark, Alternatives: alts}
}

// Alt builds an Alternatives node from sequences.
func Alt(seqs ...Sequence) Alternatives {
	return Alternatives{Alts: seqs}
}

// Seq builds a sequence from factors. Seq() is an epsilon production.
func Seq(factors ...Factor) Sequence {
	return Sequence{Factors: factors}
}

// Simple wraps a base factor with no repetition.
func Simple(base BaseFactor) Factor {
	return Factor{Base: base, Rep: Repetition{Kind: RepNone}}
}

// Repeat wraps a base factor with a plain repetition suffix.
func Repeat(base BaseFactor, kind RepetitionKind) Factor {
	return Factor{Base: base, Rep: Repetition{Kind: kind}}
}

// RepeatSep wraps a base factor with a separated repetition (** or ++).
func RepeatSep(base BaseFactor, kind RepetitionKind, sep Sequence) Factor {
	return Factor{Base: base, Rep: Repetition{Kind: kind, Separator: &sep}}
}

// Lit creates an unmarked literal factor.
func Lit(value string) *Literal {
	return &Literal{Value: value}
}

// MarkedLit creates a literal with a use-site mark.
func MarkedLit(value string, mark Mark) *Literal {
	return &Literal{Value: value, Mark: mark}
}

// Insertion creates an insertion literal (+"text").
func Insertion(value string) *Literal {
	return &Literal{Value: value, Insertion: true}
}

// Ref creates an unmarked nonterminal reference.
func Ref(name string) *Nonterminal {
	return &Nonterminal{Name: name}
}

// MarkedRef creates a nonterminal reference with a use-site mark.
func MarkedRef(name string, mark Mark) *Nonterminal {
	return &Nonterminal{Name: name, Mark: mark}
}

// Class creates an unmarked character-class factor.
func Class(payload string) *CharClass {
	return &CharClass{Payload: payload}
}

// NegClass creates a negated character-class factor (~[...]).
func NegClass(payload string) *CharClass {
	return &CharClass{Payload: payload, Negated: true}
}

// GroupOf creates a parenthesized group.
func GroupOf(alts Alternatives) *Group {
	return &Group{Alternatives: alts}
}
