package xml

import "strings"

// Header is the document prolog prepended by document-level callers.
const Header = `<?xml version="1.0" encoding="utf-8"?>`

// Serialize renders the node as a compact XML string. Attribute values are
// single-quoted with &, < and ' escaped; text content escapes & and <.
func Serialize(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

// SerializeIndented renders the node with two-space indentation. Elements
// whose children include text are emitted inline so no whitespace is
// injected into character content.
func SerializeIndented(n Node) string {
	var sb strings.Builder
	writeIndented(&sb, n, 0)
	return sb.String()
}

// Document renders a full document: the XML prolog followed by the root.
func Document(root Node, indent bool) string {
	if indent {
		return Header + "\n" + SerializeIndented(root) + "\n"
	}
	return Header + Serialize(root) + "\n"
}

func writeNode(sb *strings.Builder, n Node) {
	switch node := n.(type) {
	case *Element:
		writeOpenTag(sb, node)
		if len(node.Children) == 0 {
			sb.WriteString("/>")
			return
		}
		sb.WriteByte('>')
		for _, child := range node.Children {
			writeNode(sb, child)
		}
		writeCloseTag(sb, node)
	case *Text:
		sb.WriteString(EscapeText(node.Value))
	case *Attr:
		// Transient carrier; a well-formed tree never reaches here.
	}
}

func writeIndented(sb *strings.Builder, n Node, depth int) {
	elem, ok := n.(*Element)
	if !ok {
		writeNode(sb, n)
		return
	}
	pad := strings.Repeat("  ", depth)
	sb.WriteString(pad)
	if len(elem.Children) == 0 {
		writeOpenTag(sb, elem)
		sb.WriteString("/>")
		return
	}
	if hasTextChild(elem) {
		// Mixed or text content: inline, no injected whitespace.
		writeNode(sb, elem)
		return
	}
	writeOpenTag(sb, elem)
	sb.WriteByte('>')
	for _, child := range elem.Children {
		sb.WriteByte('\n')
		writeIndented(sb, child, depth+1)
	}
	sb.WriteByte('\n')
	sb.WriteString(pad)
	writeCloseTag(sb, elem)
}

func hasTextChild(elem *Element) bool {
	for _, child := range elem.Children {
		if _, ok := child.(*Text); ok {
			return true
		}
	}
	return false
}

func writeOpenTag(sb *strings.Builder, elem *Element) {
	sb.WriteByte('<')
	sb.WriteString(elem.Name)
	for _, attr := range elem.Attributes {
		sb.WriteByte(' ')
		sb.WriteString(attr.Name)
		sb.WriteString("='")
		sb.WriteString(EscapeAttr(attr.Value))
		sb.WriteByte('\'')
	}
}

func writeCloseTag(sb *strings.Builder, elem *Element) {
	sb.WriteString("</")
	sb.WriteString(elem.Name)
	sb.WriteByte('>')
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", "'", "&apos;")

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;")

// EscapeAttr escapes a single-quoted attribute value.
func EscapeAttr(s string) string { return attrEscaper.Replace(s) }

// EscapeText escapes character content.
func EscapeText(s string) string { return textEscaper.Replace(s) }
