// Package parser implements the recursive descent parser for iXML grammar
// source. It trusts the lexer to have handled whitespace and comments,
// focusing purely on assembling the grammar model.
package parser

import (
	"fmt"

	"github.com/bigale/ixml/pkgs/ast"
	"github.com/bigale/ixml/pkgs/charclass"
	"github.com/bigale/ixml/pkgs/errors"
	"github.com/bigale/ixml/pkgs/lexer"
)

// Parser consumes the token stream produced by the lexer.
type Parser struct {
	input  string // raw grammar source, for error snippets
	tokens []lexer.Token
	pos    int
}

// Parse tokenizes, parses and validates grammar source. Errors carry the
// typed codes from pkgs/errors.
func Parse(source string) (*ast.Grammar, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, errors.Wrap(errors.ErrGrammarLex, "failed to tokenize grammar", err)
	}
	p := &Parser{input: source, tokens: tokens}
	grammar, err := p.parseGrammar()
	if err != nil {
		return nil, errors.Wrap(errors.ErrGrammarParse, "failed to parse grammar", err)
	}
	if err := Validate(grammar); err != nil {
		return nil, err
	}
	return grammar, nil
}

func (p *Parser) current() lexer.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return p.tokens[len(p.tokens)-1] // EOF
}

func (p *Parser) match(t lexer.TokenType) bool {
	return p.current().Type == t
}

func (p *Parser) matchAny(types ...lexer.TokenType) bool {
	cur := p.current().Type
	for _, t := range types {
		if cur == t {
			return true
		}
	}
	return false
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if tok.Type != lexer.EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(t lexer.TokenType, expected string) (lexer.Token, error) {
	if !p.match(t) {
		return lexer.Token{}, p.errorf(expected, "unexpected %s", p.current())
	}
	return p.advance(), nil
}

// parseGrammar parses one or more rules. Grammar = Rule+
func (p *Parser) parseGrammar() (*ast.Grammar, error) {
	grammar := &ast.Grammar{}
	for !p.match(lexer.EOF) {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		grammar.Rules = append(grammar.Rules, rule)
	}
	if len(grammar.Rules) == 0 {
		return nil, p.errorf("a rule", "grammar must contain at least one rule")
	}
	return grammar, nil
}

// parseRule parses: [Mark] IDENT ":" Alternatives "."
func (p *Parser) parseRule() (ast.Rule, error) {
	mark := p.parseMark()

	nameTok, err := p.expect(lexer.IDENT, "rule name")
	if err != nil {
		return ast.Rule{}, err
	}
	if _, err := p.expect(lexer.COLON, fmt.Sprintf("':' after rule name %q", nameTok.Value)); err != nil {
		return ast.Rule{}, err
	}
	alts, err := p.parseAlternatives()
	if err != nil {
		return ast.Rule{}, err
	}
	if _, err := p.expect(lexer.PERIOD, fmt.Sprintf("'.' at end of rule %q", nameTok.Value)); err != nil {
		return ast.Rule{}, err
	}
	return ast.NewRule(nameTok.Value, mark, alts), nil
}

// parseMark consumes an optional mark prefix.
func (p *Parser) parseMark() ast.Mark {
	switch p.current().Type {
	case lexer.AT:
		p.advance()
		return ast.MarkAttribute
	case lexer.MINUS:
		p.advance()
		return ast.MarkHidden
	case lexer.CARET:
		p.advance()
		return ast.MarkPromoted
	}
	return ast.MarkNone
}

// parseAlternatives parses: Sequence (("|" | ";") Sequence)*
// Both separators are equivalent.
func (p *Parser) parseAlternatives() (ast.Alternatives, error) {
	seq, err := p.parseSequence()
	if err != nil {
		return ast.Alternatives{}, err
	}
	alts := ast.Alternatives{Alts: []ast.Sequence{seq}}
	for p.matchAny(lexer.PIPE, lexer.SEMICOLON) {
		p.advance()
		seq, err := p.parseSequence()
		if err != nil {
			return ast.Alternatives{}, err
		}
		alts.Alts = append(alts.Alts, seq)
	}
	return alts, nil
}

// sequence terminators: a sequence ends at '.', '|', ';' or ')'.
func (p *Parser) atSequenceEnd() bool {
	return p.matchAny(lexer.PERIOD, lexer.PIPE, lexer.SEMICOLON, lexer.RPAREN, lexer.EOF)
}

// parseSequence parses comma- or whitespace-separated factors. An empty
// sequence is permitted immediately before '.', '|', ';' or ')'.
func (p *Parser) parseSequence() (ast.Sequence, error) {
	if p.atSequenceEnd() {
		return ast.Sequence{}, nil
	}

	first, err := p.parseFactor()
	if err != nil {
		return ast.Sequence{}, err
	}
	factors := []ast.Factor{first}

	if p.match(lexer.COMMA) {
		for p.match(lexer.COMMA) {
			p.advance()
			f, err := p.parseFactor()
			if err != nil {
				return ast.Sequence{}, err
			}
			factors = append(factors, f)
		}
	} else {
		for !p.atSequenceEnd() {
			f, err := p.parseFactor()
			if err != nil {
				return ast.Sequence{}, err
			}
			factors = append(factors, f)
		}
	}
	return ast.Sequence{Factors: factors}, nil
}

// parseFactor parses: BaseFactor [Repetition]. The ** and ++ operators take
// either a parenthesized separator sequence or a single base factor.
func (p *Parser) parseFactor() (ast.Factor, error) {
	base, err := p.parseBaseFactor()
	if err != nil {
		return ast.Factor{}, err
	}

	switch p.current().Type {
	case lexer.QUESTION:
		p.advance()
		return ast.Repeat(base, ast.RepOptional), nil
	case lexer.STAR:
		p.advance()
		return ast.Repeat(base, ast.RepZeroOrMore), nil
	case lexer.PLUS:
		p.advance()
		return ast.Repeat(base, ast.RepOneOrMore), nil
	case lexer.DOUBLESTAR:
		p.advance()
		sep, err := p.parseSeparator()
		if err != nil {
			return ast.Factor{}, err
		}
		return ast.RepeatSep(base, ast.RepSeparatedZeroOrMore, sep), nil
	case lexer.DOUBLEPLUS:
		p.advance()
		sep, err := p.parseSeparator()
		if err != nil {
			return ast.Factor{}, err
		}
		return ast.RepeatSep(base, ast.RepSeparatedOneOrMore, sep), nil
	}
	return ast.Simple(base), nil
}

// parseSeparator parses the separator of ** and ++: either "(" Sequence ")"
// or a single base factor.
func (p *Parser) parseSeparator() (ast.Sequence, error) {
	if p.match(lexer.LPAREN) {
		p.advance()
		seq, err := p.parseSequence()
		if err != nil {
			return ast.Sequence{}, err
		}
		if _, err := p.expect(lexer.RPAREN, "')' after separator"); err != nil {
			return ast.Sequence{}, err
		}
		return seq, nil
	}
	base, err := p.parseBaseFactor()
	if err != nil {
		return ast.Sequence{}, err
	}
	return ast.Seq(ast.Simple(base)), nil
}

// parseBaseFactor parses the base-factor cases: insertion literals,
// negated classes, optionally marked terminals and nonterminals, and
// parenthesized groups.
func (p *Parser) parseBaseFactor() (ast.BaseFactor, error) {
	switch p.current().Type {
	case lexer.PLUS:
		// Insertion: +"text"
		p.advance()
		tok, err := p.expect(lexer.STRING, "string after '+'")
		if err != nil {
			return nil, err
		}
		return ast.Insertion(tok.Value), nil

	case lexer.TILDE:
		// Exclusion: ~[class]
		p.advance()
		tok, err := p.expect(lexer.CHARCLASS, "character class after '~'")
		if err != nil {
			return nil, err
		}
		return ast.NegClass(tok.Value), nil

	case lexer.AT, lexer.MINUS, lexer.CARET:
		mark := p.parseMark()
		return p.parseMarkedBase(mark)

	case lexer.LPAREN:
		p.advance()
		alts, err := p.parseAlternatives()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN, "')' after grouped alternatives"); err != nil {
			return nil, err
		}
		return ast.GroupOf(alts), nil
	}
	return p.parseMarkedBase(ast.MarkNone)
}

// parseMarkedBase parses the factor body after an optional mark: a string,
// hex char, character class, or nonterminal name.
func (p *Parser) parseMarkedBase(mark ast.Mark) (ast.BaseFactor, error) {
	switch p.current().Type {
	case lexer.STRING:
		tok := p.advance()
		return ast.MarkedLit(tok.Value, mark), nil
	case lexer.HEX:
		tok := p.advance()
		ch, err := charclass.HexToRune(tok.Value)
		if err != nil {
			return nil, &ParseError{
				Message: fmt.Sprintf("invalid hex character #%s", tok.Value),
				Token:   tok,
				Input:   p.input,
			}
		}
		return ast.MarkedLit(string(ch), mark), nil
	case lexer.CHARCLASS:
		tok := p.advance()
		return &ast.CharClass{Payload: tok.Value, Mark: mark}, nil
	case lexer.IDENT:
		tok := p.advance()
		return ast.MarkedRef(tok.Value, mark), nil
	}
	return nil, p.errorf("a string, hex character, character class, identifier or group",
		"unexpected %s", p.current())
}
