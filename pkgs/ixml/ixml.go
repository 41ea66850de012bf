// Package ixml is the library surface of the Invisible XML engine: compile
// a grammar, parse input against it, get an XML document string back.
package ixml

import (
	"github.com/bigale/ixml/pkgs/analysis"
	"github.com/bigale/ixml/pkgs/ast"
	"github.com/bigale/ixml/pkgs/engine"
	"github.com/bigale/ixml/pkgs/errors"
	"github.com/bigale/ixml/pkgs/parser"
	"github.com/bigale/ixml/pkgs/xml"
)

// CompileGrammar parses and validates iXML grammar source into the grammar
// model. The grammar is immutable once built and safely shareable across
// concurrent parses.
func CompileGrammar(source string) (*ast.Grammar, error) {
	return parser.Parse(source)
}

// Parse recognizes input against the grammar and returns the XML document
// string (prolog included) or a structured error.
func Parse(grammar *ast.Grammar, input string) (string, error) {
	eng, err := engine.New(grammar)
	if err != nil {
		return "", err
	}
	root, err := eng.Parse(input)
	if err != nil {
		return "", err
	}
	return xml.Document(root, false), nil
}

// Processor bundles a compiled grammar with its engine for hosts that
// parse many inputs against the same grammar.
type Processor struct {
	grammar *ast.Grammar
	engine  *engine.Engine
}

// NewProcessor compiles grammar source into a ready-to-use processor.
func NewProcessor(source string, opts engine.Options) (*Processor, error) {
	grammar, err := CompileGrammar(source)
	if err != nil {
		return nil, err
	}
	eng, err := engine.NewWithOptions(grammar, opts)
	if err != nil {
		return nil, err
	}
	return &Processor{grammar: grammar, engine: eng}, nil
}

// Grammar returns the compiled grammar model.
func (p *Processor) Grammar() *ast.Grammar { return p.grammar }

// Analyze runs the diagnostic grammar analysis.
func (p *Processor) Analyze() *analysis.Analysis {
	return analysis.Analyze(p.grammar)
}

// ParseTree parses input and returns the document root element.
func (p *Processor) ParseTree(input string) (*xml.Element, error) {
	return p.engine.Parse(input)
}

// ParseDocument parses input and serializes the result, optionally
// indented.
func (p *Processor) ParseDocument(input string, indent bool) (string, error) {
	root, err := p.engine.Parse(input)
	if err != nil {
		return "", err
	}
	return xml.Document(root, indent), nil
}

// ErrorKind classifies an error for the iXML error-document contract:
// "grammar" for compilation failures, "parse" for input failures.
func ErrorKind(err error) string {
	switch errors.TypeOf(err) {
	case errors.ErrGrammarLex, errors.ErrGrammarParse, errors.ErrCharClass,
		errors.ErrUndefinedRule, errors.ErrDuplicateRule:
		return "grammar"
	default:
		return "parse"
	}
}

// ErrorDocument renders the minimal error document hosts emit when a
// grammar or input fails: <error type="...">message</error>.
func ErrorDocument(err error) string {
	root := &xml.Element{
		Name:       "error",
		Attributes: []xml.Attribute{{Name: "type", Value: ErrorKind(err)}},
		Children:   []xml.Node{&xml.Text{Value: err.Error()}},
	}
	return xml.Document(root, false)
}
