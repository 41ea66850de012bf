package engine

import (
	"fmt"

	ixerrors "github.com/bigale/ixml/pkgs/errors"
)

// FailKind classifies input-parse failures.
type FailKind int

const (
	FailUnexpectedEOF FailKind = iota
	FailTerminalMismatch
	FailCharClassMismatch
	FailNoAlternative
	FailUndefinedRule
	FailLeftRecursion
	FailRecursionLimit
	FailBudgetExceeded
	FailTrailingInput
	FailNoDocumentRoot
)

var failKindNames = [...]string{
	FailUnexpectedEOF:     "UnexpectedEof",
	FailTerminalMismatch:  "TerminalMismatch",
	FailCharClassMismatch: "CharClassMismatch",
	FailNoAlternative:     "NoAlternativeMatched",
	FailUndefinedRule:     "UndefinedRule",
	FailLeftRecursion:     "LeftRecursion",
	FailRecursionLimit:    "RecursionLimit",
	FailBudgetExceeded:    "InstructionBudgetExceeded",
	FailTrailingInput:     "TrailingInput",
	FailNoDocumentRoot:    "NoDocumentRoot",
}

func (k FailKind) String() string {
	if int(k) < len(failKindNames) && int(k) >= 0 {
		return failKindNames[k]
	}
	return fmt.Sprintf("FailKind(%d)", int(k))
}

// specificity ranks failures for error selection: when two failures occur
// at the same position, the more specific one is surfaced.
func (k FailKind) specificity() int {
	switch k {
	case FailNoAlternative:
		return 1
	case FailUnexpectedEOF:
		return 2
	case FailTerminalMismatch, FailCharClassMismatch:
		return 3
	default:
		return 4
	}
}

// ParseError is an input-parse failure with a character position and the
// rule context in which it occurred.
type ParseError struct {
	Kind     FailKind
	Pos      int
	Rule     string // rule being parsed when the failure occurred
	Expected string
	Actual   string
	Attempts int // alternatives tried, for FailNoAlternative

	// fatal failures abort the whole parse instead of being converted to
	// "try next" at alternative boundaries.
	fatal bool
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case FailUnexpectedEOF:
		return fmt.Sprintf("unexpected end of input, expected %s", e.Expected)
	case FailTerminalMismatch:
		return fmt.Sprintf("expected %q but found %q", e.Expected, e.Actual)
	case FailCharClassMismatch:
		return fmt.Sprintf("expected %s but found %q", e.Expected, e.Actual)
	case FailNoAlternative:
		return fmt.Sprintf("no alternative matched in rule %q (%d tried)", e.Rule, e.Attempts)
	case FailUndefinedRule:
		return fmt.Sprintf("undefined rule %q", e.Rule)
	case FailLeftRecursion:
		return fmt.Sprintf("left recursion detected in rule %q", e.Rule)
	case FailRecursionLimit:
		return fmt.Sprintf("recursion limit exceeded in rule %q", e.Rule)
	case FailBudgetExceeded:
		return fmt.Sprintf("instruction budget exceeded: %s", e.Expected)
	case FailTrailingInput:
		return fmt.Sprintf("parse succeeded but input remains starting with %q", e.Actual)
	case FailNoDocumentRoot:
		return fmt.Sprintf("parse yielded no document element: %s", e.Expected)
	}
	return fmt.Sprintf("parse error (%s)", e.Kind)
}

// FormatWithContext renders the error with line, column and a context
// window of the input around the failure position.
func (e *ParseError) FormatWithContext(input string) string {
	stream := NewStream(input)
	line, col := stream.LineCol(e.Pos)
	start := e.Pos - 20
	if start < 0 {
		start = 0
	}
	window := stream.Substring(start, e.Pos+20)
	msg := fmt.Sprintf("parse error at line %d, column %d: %s", line, col, e.Error())
	if window != "" {
		msg += fmt.Sprintf("\ncontext: ...%s...", window)
	}
	return msg
}

// code maps a failure to the shared typed error codes.
func (e *ParseError) code() string {
	switch e.Kind {
	case FailUndefinedRule:
		return ixerrors.ErrUndefinedRule
	case FailLeftRecursion:
		return ixerrors.ErrLeftRecursion
	case FailRecursionLimit:
		return ixerrors.ErrRecursionLimit
	case FailBudgetExceeded:
		return ixerrors.ErrInstructionBudget
	default:
		return ixerrors.ErrInputParse
	}
}

// Typed wraps the failure in the shared structured error type, attaching
// the formatted message with input context.
func (e *ParseError) Typed(input string) error {
	return ixerrors.Wrap(e.code(), e.FormatWithContext(input), e).
		WithContext("position", e.Pos).
		WithContext("kind", e.Kind.String())
}
