package parser

import (
	"fmt"

	"github.com/bigale/ixml/pkgs/ast"
	"github.com/bigale/ixml/pkgs/charclass"
	"github.com/bigale/ixml/pkgs/errors"
)

// Validate checks the structural invariants the grammar model must satisfy
// before it reaches the engine: unique rule names, every referenced name
// defined, and every character-class payload well-formed.
func Validate(g *ast.Grammar) error {
	seen := make(map[string]bool, len(g.Rules))
	for _, rule := range g.Rules {
		if seen[rule.Name] {
			return errors.New(errors.ErrDuplicateRule,
				fmt.Sprintf("rule %q is defined more than once", rule.Name)).
				WithContext("rule", rule.Name)
		}
		seen[rule.Name] = true
	}

	for _, rule := range g.Rules {
		if err := validateAlternatives(&rule.Alternatives, rule.Name, seen); err != nil {
			return err
		}
	}
	return nil
}

func validateAlternatives(alts *ast.Alternatives, ruleName string, defined map[string]bool) error {
	for i := range alts.Alts {
		if err := validateSequence(&alts.Alts[i], ruleName, defined); err != nil {
			return err
		}
	}
	return nil
}

func validateSequence(seq *ast.Sequence, ruleName string, defined map[string]bool) error {
	for i := range seq.Factors {
		factor := &seq.Factors[i]
		if err := validateBase(factor.Base, ruleName, defined); err != nil {
			return err
		}
		if factor.Rep.Separator != nil {
			if err := validateSequence(factor.Rep.Separator, ruleName, defined); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateBase(base ast.BaseFactor, ruleName string, defined map[string]bool) error {
	switch b := base.(type) {
	case *ast.Nonterminal:
		if !defined[b.Name] {
			return errors.New(errors.ErrUndefinedRule,
				fmt.Sprintf("rule %q references undefined rule %q", ruleName, b.Name)).
				WithContext("rule", ruleName).
				WithContext("reference", b.Name)
		}
	case *ast.CharClass:
		if _, err := charclass.Parse(b.Payload); err != nil {
			return errors.Wrap(errors.ErrCharClass,
				fmt.Sprintf("rule %q has an invalid character class [%s]", ruleName, b.Payload), err).
				WithContext("rule", ruleName)
		}
	case *ast.Group:
		return validateAlternatives(&b.Alternatives, ruleName, defined)
	}
	return nil
}
