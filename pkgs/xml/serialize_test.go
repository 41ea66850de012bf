package xml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeElement(t *testing.T) {
	root := &Element{
		Name: "date",
		Children: []Node{
			&Element{Name: "year", Children: []Node{&Text{Value: "2024"}}},
			&Text{Value: "-"},
			&Element{Name: "month", Children: []Node{&Text{Value: "11"}}},
		},
	}
	require.Equal(t,
		"<date><year>2024</year>-<month>11</month></date>",
		Serialize(root))
}

func TestEmptyElement(t *testing.T) {
	require.Equal(t, "<empty/>", Serialize(&Element{Name: "empty"}))

	withAttr := &Element{
		Name:       "empty",
		Attributes: []Attribute{{Name: "id", Value: "1"}},
	}
	require.Equal(t, "<empty id='1'/>", Serialize(withAttr))
}

func TestTextEscaping(t *testing.T) {
	root := &Element{Name: "t", Children: []Node{&Text{Value: `a<b&c>'d"e`}}}
	require.Equal(t, `<t>a&lt;b&amp;c>'d"e</t>`, Serialize(root))
}

func TestAttributeEscaping(t *testing.T) {
	root := &Element{
		Name:       "t",
		Attributes: []Attribute{{Name: "v", Value: `a<b&c'd"e`}},
	}
	require.Equal(t, `<t v='a&lt;b&amp;c&apos;d"e'/>`, Serialize(root))
}

func TestDuplicateAttributesKeptInOrder(t *testing.T) {
	root := NewElement("t", []Node{
		&Attr{Name: "a", Value: "1"},
		&Attr{Name: "a", Value: "2"},
		&Text{Value: "x"},
	})
	require.Equal(t, "<t a='1' a='2'>x</t>", Serialize(root))
}

func TestNewElementLiftsAttrs(t *testing.T) {
	elem := NewElement("e", []Node{
		&Attr{Name: "id", Value: "7"},
		&Element{Name: "child"},
		&Text{Value: "tail"},
	})
	require.Len(t, elem.Attributes, 1)
	require.Len(t, elem.Children, 2)
	require.Equal(t, "<e id='7'><child/>tail</e>", Serialize(elem))
}

func TestTextContent(t *testing.T) {
	root := &Element{
		Name: "r",
		Children: []Node{
			&Text{Value: "a"},
			&Element{Name: "kid", Children: []Node{&Text{Value: "b"}}},
			&Text{Value: "c"},
		},
	}
	require.Equal(t, "abc", root.TextContent())
}

func TestDocument(t *testing.T) {
	root := &Element{Name: "r", Children: []Node{&Text{Value: "x"}}}
	require.Equal(t,
		`<?xml version="1.0" encoding="utf-8"?><r>x</r>`+"\n",
		Document(root, false))
}

func TestSerializeIndented(t *testing.T) {
	root := &Element{
		Name: "outer",
		Children: []Node{
			&Element{Name: "a", Children: []Node{&Text{Value: "1"}}},
			&Element{Name: "b"},
		},
	}
	want := "<outer>\n" +
		"  <a>1</a>\n" +
		"  <b/>\n" +
		"</outer>"
	require.Equal(t, want, SerializeIndented(root))
}

func TestIndentKeepsMixedContentInline(t *testing.T) {
	root := &Element{
		Name: "p",
		Children: []Node{
			&Text{Value: "see "},
			&Element{Name: "ref", Children: []Node{&Text{Value: "here"}}},
		},
	}
	// Indenting must not inject whitespace into text content.
	require.Equal(t, "<p>see <ref>here</ref></p>", SerializeIndented(root))
}
