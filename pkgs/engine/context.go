package engine

import (
	"fmt"

	"github.com/bigale/ixml/pkgs/xml"
)

// DefaultMaxDepth bounds native stack use during recursive descent. Rule
// nesting beyond this depth reports a recursion-limit failure instead of
// exhausting the goroutine stack.
const DefaultMaxDepth = 4096

// DefaultCheckInterval is how many parse steps pass between instruction
// budget checks.
const DefaultCheckInterval = 256

// memoKey identifies a (rule, position) pair for memoization and
// left-recursion detection.
type memoKey struct {
	rule string
	pos  int
}

// memoEntry stores the outcome of parsing a rule at a position: either the
// rule's raw yield (children and consumed count) or a specific failure.
// Stored node slices are shared and must never be mutated.
type memoEntry struct {
	nodes    []xml.Node
	consumed int
	err      *ParseError
}

// result is the yield of any parse step: the output nodes produced so far
// and the number of characters consumed. The node list realizes the
// implicit sequence container: callers splice it, so it can never leak
// into serialized output.
type result struct {
	nodes    []xml.Node
	consumed int
}

// parseContext carries all mutable state of one parse invocation. A parse
// is single-threaded and cooperative; nothing here is shared between
// invocations.
type parseContext struct {
	stream *Stream

	// ruleName is the rule currently being parsed, for error context.
	ruleName string

	// inProgress holds the (rule, position) pairs on the call stack.
	// Re-entry means left recursion reached the same position again.
	inProgress map[memoKey]bool

	// memo caches per-(rule, position) outcomes. Required: grammars
	// commonly exercise the same rule at the same position through
	// multiple alternatives, and without the cache work is exponential.
	memo map[memoKey]memoEntry

	depth    int
	maxDepth int

	// Instruction budget. ops counts parse steps; every checkInterval
	// steps the budget is compared. budget 0 means unlimited.
	ops           uint64
	sinceCheck    int
	checkInterval int
	budget        uint64

	// furthest is the deepest failure observed anywhere during
	// exploration; it is what gets surfaced when the parse fails.
	furthest *ParseError
}

func newParseContext(stream *Stream, opts Options) *parseContext {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	interval := opts.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &parseContext{
		stream:        stream,
		inProgress:    make(map[memoKey]bool),
		memo:          make(map[memoKey]memoEntry),
		maxDepth:      maxDepth,
		checkInterval: interval,
		budget:        opts.InstructionBudget,
	}
}

// step counts one parse operation and enforces the instruction budget at
// the configured interval.
func (ctx *parseContext) step() *ParseError {
	ctx.ops++
	if ctx.budget == 0 {
		return nil
	}
	ctx.sinceCheck++
	if ctx.sinceCheck < ctx.checkInterval {
		return nil
	}
	ctx.sinceCheck = 0
	if ctx.ops > ctx.budget {
		return &ParseError{
			Kind:     FailBudgetExceeded,
			Pos:      ctx.stream.Pos(),
			Rule:     ctx.ruleName,
			Expected: fmt.Sprintf("%d of %d operations used", ctx.ops, ctx.budget),
			fatal:    true,
		}
	}
	return nil
}

// fail records err as the furthest failure if it reaches beyond (or is
// more specific at) the current deepest position, then returns it.
func (ctx *parseContext) fail(err *ParseError) *ParseError {
	cur := ctx.furthest
	if cur == nil ||
		err.Pos > cur.Pos ||
		(err.Pos == cur.Pos && err.Kind.specificity() > cur.Kind.specificity()) {
		ctx.furthest = err
	}
	return err
}
