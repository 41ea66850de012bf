package parser

import (
	"fmt"
	"strings"

	"github.com/bigale/ixml/pkgs/lexer"
)

// ParseError is a grammar parse error with the offending token and enough
// source context to render a snippet.
type ParseError struct {
	Message  string
	Expected string
	Token    lexer.Token
	Input    string
}

// Error returns the formatted error message with line/column and snippet.
func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "grammar parse error at %s: %s", e.Token.Position(), e.Message)
	if e.Expected != "" {
		fmt.Fprintf(&sb, " (expected %s)", e.Expected)
	}
	if snippet := e.snippet(); snippet != "" {
		sb.WriteByte('\n')
		sb.WriteString(snippet)
	}
	return sb.String()
}

// snippet renders the offending source line with a caret under the token.
func (e *ParseError) snippet() string {
	if e.Input == "" || e.Token.Line == 0 {
		return ""
	}
	lines := strings.Split(e.Input, "\n")
	if e.Token.Line > len(lines) {
		return ""
	}
	lineContent := lines[e.Token.Line-1]

	var sb strings.Builder
	fmt.Fprintf(&sb, "  --> %d:%d\n", e.Token.Line, e.Token.Column)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%2d | %s\n", e.Token.Line, lineContent)
	sb.WriteString("   | ")
	if e.Token.Column > 0 && e.Token.Column <= len(lineContent)+1 {
		sb.WriteString(strings.Repeat(" ", e.Token.Column-1) + "^")
	}
	return sb.String()
}

func (p *Parser) errorf(expected, format string, args ...any) *ParseError {
	return &ParseError{
		Message:  fmt.Sprintf(format, args...),
		Expected: expected,
		Token:    p.current(),
		Input:    p.input,
	}
}
