// Package xml holds the output tree produced by the iXML engine and its
// serializer. It is deliberately small: elements, text, and the transient
// attribute nodes that parents absorb before serialization. No namespaces,
// no schema awareness.
package xml

import "strings"

// Node is the tagged union of output tree nodes. Concrete types are
// *Element, *Text and *Attr; consumers switch on the concrete type.
type Node interface {
	node()
	// TextContent returns the concatenated textual yield of the node.
	TextContent() string
}

// Attribute is a name/value pair on an element. Multiple attributes with
// the same name are retained in order of appearance.
type Attribute struct {
	Name  string
	Value string
}

// Element is a named node with attributes and children.
type Element struct {
	Name       string
	Attributes []Attribute
	Children   []Node
}

// Text is character content.
type Text struct {
	Value string
}

// Attr is a transient attribute carrier produced by @-marked rules. The
// nearest enclosing element lifts it into its attribute list; it never
// appears in serialized output.
type Attr struct {
	Name  string
	Value string
}

func (*Element) node() {}
func (*Text) node()    {}
func (*Attr) node()    {}

func (e *Element) TextContent() string {
	var sb strings.Builder
	for _, child := range e.Children {
		sb.WriteString(child.TextContent())
	}
	return sb.String()
}

func (t *Text) TextContent() string { return t.Value }

func (a *Attr) TextContent() string { return a.Value }

// NewElement wraps children in a named element, lifting transient Attr
// nodes into the attribute list. Attributes keep their order of appearance;
// remaining children keep theirs.
func NewElement(name string, children []Node) *Element {
	elem := &Element{Name: name}
	for _, child := range children {
		if attr, ok := child.(*Attr); ok {
			elem.Attributes = append(elem.Attributes, Attribute{Name: attr.Name, Value: attr.Value})
			continue
		}
		elem.Children = append(elem.Children, child)
	}
	return elem
}

// TextContent concatenates the textual yield of a node list.
func TextContent(nodes []Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(n.TextContent())
	}
	return sb.String()
}
