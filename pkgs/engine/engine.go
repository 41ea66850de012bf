// Package engine implements the iXML input parser: a backtracking
// recursive-descent recognizer over the grammar model, with per-(rule,
// position) memoization, left-recursion refusal and mark-aware tree
// building. One Engine is built per grammar and is safe for concurrent
// parses; all per-invocation state lives in the parse context.
package engine

import (
	"fmt"
	"unicode/utf8"

	"github.com/bigale/ixml/pkgs/ast"
	"github.com/bigale/ixml/pkgs/charclass"
	ixerrors "github.com/bigale/ixml/pkgs/errors"
	"github.com/bigale/ixml/pkgs/xml"
)

// Options tune resource limits of a parse invocation.
type Options struct {
	// MaxDepth bounds rule-nesting depth; 0 means DefaultMaxDepth.
	MaxDepth int
	// InstructionBudget bounds the number of parse operations; 0 means
	// unlimited. Exceeding the budget aborts the parse.
	InstructionBudget uint64
	// CheckInterval is the number of operations between budget checks;
	// 0 means DefaultCheckInterval.
	CheckInterval int
}

// Engine interprets a grammar directly. Character classes are compiled
// once at construction; the grammar is read-only afterwards, so a single
// Engine may serve concurrent parses.
type Engine struct {
	grammar *ast.Grammar
	rules   map[string]*ast.Rule
	classes map[string]*charclass.RangeSet
	opts    Options
}

// New creates an engine with default options.
func New(grammar *ast.Grammar) (*Engine, error) {
	return NewWithOptions(grammar, Options{})
}

// NewWithOptions creates an engine, precompiling every character class in
// the grammar.
func NewWithOptions(grammar *ast.Grammar, opts Options) (*Engine, error) {
	if len(grammar.Rules) == 0 {
		return nil, ixerrors.New(ixerrors.ErrGrammarParse, "grammar has no rules")
	}
	e := &Engine{
		grammar: grammar,
		rules:   grammar.RuleMap(),
		classes: make(map[string]*charclass.RangeSet),
		opts:    opts,
	}
	for i := range grammar.Rules {
		if err := e.compileClasses(&grammar.Rules[i].Alternatives); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) compileClasses(alts *ast.Alternatives) error {
	for i := range alts.Alts {
		if err := e.compileSequenceClasses(&alts.Alts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) compileSequenceClasses(seq *ast.Sequence) error {
	for i := range seq.Factors {
		factor := &seq.Factors[i]
		switch base := factor.Base.(type) {
		case *ast.CharClass:
			if _, ok := e.classes[base.Payload]; !ok {
				set, err := charclass.Parse(base.Payload)
				if err != nil {
					return err
				}
				e.classes[base.Payload] = set
			}
		case *ast.Group:
			if err := e.compileClasses(&base.Alternatives); err != nil {
				return err
			}
		}
		if factor.Rep.Separator != nil {
			if err := e.compileSequenceClasses(factor.Rep.Separator); err != nil {
				return err
			}
		}
	}
	return nil
}

// Parse recognizes the input against the grammar's start rule and returns
// the document root element. The parse succeeds only if it consumes the
// entire input.
func (e *Engine) Parse(input string) (*xml.Element, error) {
	if !utf8.ValidString(input) {
		return nil, ixerrors.New(ixerrors.ErrInputParse, "input is not valid UTF-8")
	}
	stream := NewStream(input)
	ctx := newParseContext(stream, e.opts)

	start := e.grammar.Start()
	res, perr := e.parseNonterminal(ctx, &ast.Nonterminal{Name: start.Name})
	if perr != nil {
		return nil, e.surface(ctx, perr).Typed(input)
	}
	if !stream.EOF() {
		trailing := &ParseError{
			Kind:   FailTrailingInput,
			Pos:    stream.Pos(),
			Rule:   start.Name,
			Actual: stream.Substring(stream.Pos(), stream.Pos()+20),
		}
		return nil, e.surface(ctx, trailing).Typed(input)
	}
	return documentRoot(res.nodes, start, input)
}

// surface picks the error reported to the caller: fatal failures win, then
// the furthest failure observed during exploration.
func (e *Engine) surface(ctx *parseContext, err *ParseError) *ParseError {
	if err.fatal {
		return err
	}
	if err.Kind == FailTrailingInput {
		// A deeper failure explains why no alternative could consume
		// more input than it did.
		if ctx.furthest != nil && ctx.furthest.Pos >= err.Pos {
			return ctx.furthest
		}
		return err
	}
	if ctx.furthest != nil {
		return ctx.furthest
	}
	return err
}

// documentRoot extracts the single document element from the start rule's
// yield. A promoted (or hidden) start rule becomes the document root iff
// its yield is exactly one element.
func documentRoot(nodes []xml.Node, start *ast.Rule, input string) (*xml.Element, error) {
	var elems []*xml.Element
	for _, n := range nodes {
		switch node := n.(type) {
		case *xml.Element:
			elems = append(elems, node)
		case *xml.Text:
			return nil, rootError(start, "start rule yielded text outside an element", input)
		case *xml.Attr:
			return nil, rootError(start, "start rule yielded an attribute with no enclosing element", input)
		}
	}
	if len(elems) == 0 {
		return nil, rootError(start, "output is fully suppressed", input)
	}
	if len(elems) > 1 {
		return nil, rootError(start, fmt.Sprintf("start rule yielded %d top-level elements", len(elems)), input)
	}
	return elems[0], nil
}

func rootError(start *ast.Rule, detail string, input string) error {
	perr := &ParseError{
		Kind:     FailNoDocumentRoot,
		Pos:      0,
		Rule:     start.Name,
		Expected: detail,
	}
	return perr.Typed(input)
}

// parseRule parses a rule at the current position, returning its raw yield
// (children nodes, before any mark is applied). Outcomes are memoized per
// (rule, position); re-entry of an in-progress pair is refused as left
// recursion.
func (e *Engine) parseRule(ctx *parseContext, rule *ast.Rule) (result, *ParseError) {
	key := memoKey{rule: rule.Name, pos: ctx.stream.Pos()}

	if entry, ok := ctx.memo[key]; ok {
		if entry.err != nil {
			return result{}, ctx.fail(entry.err)
		}
		ctx.stream.SetPos(key.pos + entry.consumed)
		return result{nodes: entry.nodes, consumed: entry.consumed}, nil
	}
	if ctx.inProgress[key] {
		return result{}, ctx.fail(&ParseError{Kind: FailLeftRecursion, Pos: key.pos, Rule: rule.Name})
	}
	if ctx.depth >= ctx.maxDepth {
		return result{}, &ParseError{Kind: FailRecursionLimit, Pos: key.pos, Rule: rule.Name, fatal: true}
	}

	ctx.inProgress[key] = true
	ctx.depth++
	prevRule := ctx.ruleName
	ctx.ruleName = rule.Name

	res, err := e.parseAlternatives(ctx, &rule.Alternatives)

	ctx.ruleName = prevRule
	ctx.depth--
	delete(ctx.inProgress, key)

	if err != nil {
		if !err.fatal {
			ctx.memo[key] = memoEntry{err: err}
		}
		return result{}, err
	}
	ctx.memo[key] = memoEntry{nodes: res.nodes, consumed: res.consumed}
	return res, nil
}

// parseAlternatives tries each alternative in source order; the first full
// match wins. Failures are converted to "try next" at this boundary.
func (e *Engine) parseAlternatives(ctx *parseContext, alts *ast.Alternatives) (result, *ParseError) {
	start := ctx.stream.Pos()
	attempts := 0
	for i := range alts.Alts {
		ctx.stream.SetPos(start)
		attempts++
		res, err := e.parseSequence(ctx, &alts.Alts[i])
		if err == nil {
			return res, nil
		}
		if err.fatal {
			return result{}, err
		}
	}
	ctx.stream.SetPos(start)
	return result{}, ctx.fail(&ParseError{
		Kind:     FailNoAlternative,
		Pos:      start,
		Rule:     ctx.ruleName,
		Attempts: attempts,
	})
}

// parseSequence parses factors in order, splicing their yields. Position
// is restored on failure so alternatives never observe partial consumption.
func (e *Engine) parseSequence(ctx *parseContext, seq *ast.Sequence) (result, *ParseError) {
	start := ctx.stream.Pos()
	var res result
	for i := range seq.Factors {
		fres, err := e.parseFactor(ctx, &seq.Factors[i])
		if err != nil {
			ctx.stream.SetPos(start)
			return result{}, err
		}
		res.nodes = append(res.nodes, fres.nodes...)
		res.consumed += fres.consumed
	}
	return res, nil
}

func (e *Engine) parseFactor(ctx *parseContext, factor *ast.Factor) (result, *ParseError) {
	switch factor.Rep.Kind {
	case ast.RepNone:
		return e.parseBase(ctx, factor.Base)
	case ast.RepZeroOrMore:
		return e.parseRepeat(ctx, factor.Base, false)
	case ast.RepOneOrMore:
		return e.parseRepeat(ctx, factor.Base, true)
	case ast.RepOptional:
		return e.parseOptional(ctx, factor.Base)
	case ast.RepSeparatedZeroOrMore:
		return e.parseSeparated(ctx, factor.Base, factor.Rep.Separator, false)
	case ast.RepSeparatedOneOrMore:
		return e.parseSeparated(ctx, factor.Base, factor.Rep.Separator, true)
	}
	return result{}, &ParseError{
		Kind:     FailNoAlternative,
		Pos:      ctx.stream.Pos(),
		Rule:     ctx.ruleName,
		Expected: fmt.Sprintf("unknown repetition %v", factor.Rep.Kind),
		fatal:    true,
	}
}

// parseBase dispatches on the base-factor variant. The budget check lives
// here: every terminal, reference and group entry counts one step.
func (e *Engine) parseBase(ctx *parseContext, base ast.BaseFactor) (result, *ParseError) {
	if err := ctx.step(); err != nil {
		return result{}, err
	}
	switch b := base.(type) {
	case *ast.Literal:
		return e.parseLiteral(ctx, b)
	case *ast.CharClass:
		return e.parseCharClass(ctx, b)
	case *ast.Nonterminal:
		return e.parseNonterminal(ctx, b)
	case *ast.Group:
		return e.parseAlternatives(ctx, &b.Alternatives)
	}
	return result{}, &ParseError{
		Kind:     FailNoAlternative,
		Pos:      ctx.stream.Pos(),
		Rule:     ctx.ruleName,
		Expected: fmt.Sprintf("unknown base factor %T", base),
		fatal:    true,
	}
}

// parseLiteral matches an exact string. Insertion literals always succeed,
// consume nothing and contribute their text (unless hidden).
func (e *Engine) parseLiteral(ctx *parseContext, lit *ast.Literal) (result, *ParseError) {
	if lit.Insertion {
		if lit.Mark == ast.MarkHidden {
			return result{}, nil
		}
		return result{nodes: []xml.Node{&xml.Text{Value: lit.Value}}}, nil
	}

	start := ctx.stream.Pos()
	for _, want := range lit.Value {
		got, ok := ctx.stream.Current()
		if !ok {
			pos := ctx.stream.Pos()
			ctx.stream.SetPos(start)
			return result{}, ctx.fail(&ParseError{
				Kind:     FailUnexpectedEOF,
				Pos:      pos,
				Rule:     ctx.ruleName,
				Expected: lit.Value,
			})
		}
		if got != want {
			pos := ctx.stream.Pos()
			ctx.stream.SetPos(start)
			return result{}, ctx.fail(&ParseError{
				Kind:     FailTerminalMismatch,
				Pos:      pos,
				Rule:     ctx.ruleName,
				Expected: lit.Value,
				Actual:   string(got),
			})
		}
		ctx.stream.Advance()
	}

	res := result{consumed: ctx.stream.Pos() - start}
	if lit.Mark != ast.MarkHidden {
		res.nodes = []xml.Node{&xml.Text{Value: lit.Value}}
	}
	return res, nil
}

// parseCharClass consumes one character iff the class predicate accepts it.
func (e *Engine) parseCharClass(ctx *parseContext, cc *ast.CharClass) (result, *ParseError) {
	expected := describeClass(cc)
	ch, ok := ctx.stream.Current()
	if !ok {
		return result{}, ctx.fail(&ParseError{
			Kind:     FailUnexpectedEOF,
			Pos:      ctx.stream.Pos(),
			Rule:     ctx.ruleName,
			Expected: expected,
		})
	}
	matches := e.classes[cc.Payload].Contains(ch)
	if cc.Negated {
		matches = !matches
	}
	if !matches {
		return result{}, ctx.fail(&ParseError{
			Kind:     FailCharClassMismatch,
			Pos:      ctx.stream.Pos(),
			Rule:     ctx.ruleName,
			Expected: expected,
			Actual:   string(ch),
		})
	}
	ctx.stream.Advance()

	res := result{consumed: 1}
	if cc.Mark != ast.MarkHidden {
		res.nodes = []xml.Node{&xml.Text{Value: string(ch)}}
	}
	return res, nil
}

func describeClass(cc *ast.CharClass) string {
	if cc.Negated {
		return fmt.Sprintf("character in ~[%s]", cc.Payload)
	}
	return fmt.Sprintf("character in [%s]", cc.Payload)
}

// parseNonterminal parses the referenced rule and applies the effective
// mark. A use-site mark takes precedence over the callee's rule mark; the
// memo stores the unmarked yield, so marks are applied here at each call
// site.
func (e *Engine) parseNonterminal(ctx *parseContext, nt *ast.Nonterminal) (result, *ParseError) {
	rule, ok := e.rules[nt.Name]
	if !ok {
		return result{}, ctx.fail(&ParseError{
			Kind: FailUndefinedRule,
			Pos:  ctx.stream.Pos(),
			Rule: nt.Name,
		})
	}
	res, err := e.parseRule(ctx, rule)
	if err != nil {
		return result{}, err
	}

	mark := rule.Mark
	if nt.Mark != ast.MarkNone {
		mark = nt.Mark
	}
	switch mark {
	case ast.MarkHidden, ast.MarkPromoted:
		// No wrapping element: the children become the output of the
		// call site (promotion defers wrapping to the enclosing rule).
		return res, nil
	case ast.MarkAttribute:
		attr := &xml.Attr{Name: nt.Name, Value: xml.TextContent(res.nodes)}
		return result{nodes: []xml.Node{attr}, consumed: res.consumed}, nil
	}
	elem := xml.NewElement(rule.Name, res.nodes)
	return result{nodes: []xml.Node{elem}, consumed: res.consumed}, nil
}

// parseRepeat implements X* and X+. Greedy: matches until the body fails.
// If a body iteration consumes zero characters the loop stops after that
// iteration, keeping its output (epsilon guard).
func (e *Engine) parseRepeat(ctx *parseContext, base ast.BaseFactor, atLeastOne bool) (result, *ParseError) {
	var res result
	matched := false
	for {
		loopStart := ctx.stream.Pos()
		ires, err := e.parseBase(ctx, base)
		if err != nil {
			if err.fatal {
				return result{}, err
			}
			ctx.stream.SetPos(loopStart)
			if atLeastOne && !matched {
				return result{}, err
			}
			return res, nil
		}
		matched = true
		res.nodes = append(res.nodes, ires.nodes...)
		res.consumed += ires.consumed
		if ires.consumed == 0 {
			return res, nil
		}
	}
}

// parseOptional implements X?: failure silently becomes empty.
func (e *Engine) parseOptional(ctx *parseContext, base ast.BaseFactor) (result, *ParseError) {
	start := ctx.stream.Pos()
	res, err := e.parseBase(ctx, base)
	if err != nil {
		if err.fatal {
			return result{}, err
		}
		ctx.stream.SetPos(start)
		return result{}, nil
	}
	return res, nil
}

// parseSeparated implements X**S and X++S as X (S X)* and X (S X)+. The
// separator's yield follows its own marks. A separator-element pair is
// kept only when both match; otherwise the pair is rolled back.
func (e *Engine) parseSeparated(ctx *parseContext, base ast.BaseFactor, sep *ast.Sequence, atLeastOne bool) (result, *ParseError) {
	start := ctx.stream.Pos()
	first, err := e.parseBase(ctx, base)
	if err != nil {
		if err.fatal {
			return result{}, err
		}
		ctx.stream.SetPos(start)
		if atLeastOne {
			return result{}, err
		}
		return result{}, nil
	}

	// Memoized yields are shared; never append into a slice produced by a
	// callee.
	var res result
	res.nodes = append(res.nodes, first.nodes...)
	res.consumed = first.consumed
	if first.consumed == 0 {
		// Epsilon guard: a zero-width element would repeat forever.
		return res, nil
	}

	for {
		loopStart := ctx.stream.Pos()
		sepRes, err := e.parseSequence(ctx, sep)
		if err != nil {
			if err.fatal {
				return result{}, err
			}
			ctx.stream.SetPos(loopStart)
			return res, nil
		}
		elemRes, err := e.parseBase(ctx, base)
		if err != nil {
			if err.fatal {
				return result{}, err
			}
			ctx.stream.SetPos(loopStart)
			return res, nil
		}
		res.nodes = append(res.nodes, sepRes.nodes...)
		res.nodes = append(res.nodes, elemRes.nodes...)
		res.consumed += sepRes.consumed + elemRes.consumed
		if elemRes.consumed == 0 {
			return res, nil
		}
	}
}
