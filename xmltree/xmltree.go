package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Parse-related errors.
var (
	ErrEmptyDocument = errors.New("xmltree: document contains no root element")
)

// Declaration is the XML declaration written by Serialize.
const Declaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`

// Attr is a single named attribute. Order is preserved on serialization.
type Attr struct {
	Name  string
	Value string
}

// Element is a node in the tree. Text holds character data appearing
// before the first child; Tail holds character data following the
// element's end tag inside its parent (the lxml convention, which keeps
// mixed content round-trippable without a separate text-node type).
type Element struct {
	Name     string // as written, including prefix (e.g. "hp:p")
	Attrs    []Attr
	Children []*Element
	Text     string
	Tail     string
}

// New returns a childless element with the given name and attributes.
func New(name string, attrs ...Attr) *Element {
	return &Element{Name: name, Attrs: append([]Attr(nil), attrs...)}
}

// Local returns the element name without its namespace prefix.
func (e *Element) Local() string {
	return LocalName(e.Name)
}

// LocalName strips a namespace prefix from a qualified name.
func LocalName(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Attr returns the value of the named attribute and whether it is set.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrDefault returns the named attribute value, or def when absent.
func (e *Element) AttrDefault(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr sets an attribute, replacing an existing value in place or
// appending a new attribute at the end.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes the named attribute, reporting whether it existed.
func (e *Element) RemoveAttr(name string) bool {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return true
		}
	}
	return false
}

// Append adds child as the last child of e.
func (e *Element) Append(child *Element) {
	e.Children = append(e.Children, child)
}

// Insert places child at index i among e's children.
func (e *Element) Insert(i int, child *Element) {
	if i < 0 {
		i = 0
	}
	if i > len(e.Children) {
		i = len(e.Children)
	}
	e.Children = append(e.Children, nil)
	copy(e.Children[i+1:], e.Children[i:])
	e.Children[i] = child
}

// Remove deletes child from e's children, reporting whether it was found.
func (e *Element) Remove(child *Element) bool {
	for i, c := range e.Children {
		if c == child {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return true
		}
	}
	return false
}

// Index returns the position of child among e's children, or -1.
func (e *Element) Index(child *Element) int {
	for i, c := range e.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Find returns the first direct child whose local name matches, or nil.
func (e *Element) Find(local string) *Element {
	for _, c := range e.Children {
		if c.Local() == local {
			return c
		}
	}
	return nil
}

// FindAll returns all direct children whose local name matches.
func (e *Element) FindAll(local string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Local() == local {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns every descendant (depth-first, document order)
// whose local name matches. The receiver itself is not included.
func (e *Element) Descendants(local string) []*Element {
	var out []*Element
	var walk func(*Element)
	walk = func(el *Element) {
		for _, c := range el.Children {
			if c.Local() == local {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(e)
	return out
}

// Clone returns a deep copy of e. The copy's Tail is cleared so it can
// be attached anywhere without dragging sibling whitespace along.
func (e *Element) Clone() *Element {
	cp := &Element{
		Name:  e.Name,
		Attrs: append([]Attr(nil), e.Attrs...),
		Text:  e.Text,
	}
	for _, c := range e.Children {
		child := c.Clone()
		child.Tail = c.Tail
		cp.Children = append(cp.Children, child)
	}
	return cp
}

// GatherText concatenates all character data under e in document order:
// e's own Text, then each child's gathered text followed by its Tail.
func (e *Element) GatherText() string {
	var b strings.Builder
	var walk func(*Element)
	walk = func(el *Element) {
		b.WriteString(el.Text)
		for _, c := range el.Children {
			walk(c)
			b.WriteString(c.Tail)
		}
	}
	walk(e)
	return b.String()
}

// Parse reads an XML document and returns its root element. Namespace
// prefixes are kept verbatim; comments, processing instructions, and
// directives are dropped. Whitespace-only character data between
// elements is discarded so indented documents re-serialize compactly.
func Parse(data []byte) (*Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var root *Element
	var stack []*Element

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xmltree: parse: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: rawName(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: rawName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("xmltree: parse: multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			// RawToken does not pair begin/end tags itself.
			if len(stack) == 0 {
				return nil, fmt.Errorf("xmltree: parse: unexpected end element %s", rawName(t.Name))
			}
			top := stack[len(stack)-1]
			if name := rawName(t.Name); name != top.Name {
				return nil, fmt.Errorf("xmltree: parse: element %s closed by %s", top.Name, name)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := string(t)
			cur := stack[len(stack)-1]
			if strings.TrimSpace(text) == "" && len(cur.Children) == 0 && cur.Text == "" {
				continue
			}
			if n := len(cur.Children); n > 0 {
				cur.Children[n-1].Tail += text
			} else {
				cur.Text += text
			}
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("xmltree: parse: element %s left open", stack[len(stack)-1].Name)
	}
	return root, nil
}

// rawName rejoins the prefix RawToken reports in Name.Space.
func rawName(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

// Serialize writes the tree rooted at e as UTF-8 XML bytes. When
// withDeclaration is true the standard declaration is prepended.
func Serialize(e *Element, withDeclaration bool) []byte {
	var b bytes.Buffer
	if withDeclaration {
		b.WriteString(Declaration)
	}
	writeElement(&b, e)
	return b.Bytes()
}

func writeElement(b *bytes.Buffer, e *Element) {
	b.WriteByte('<')
	b.WriteString(e.Name)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		escapeAttr(b, a.Value)
		b.WriteByte('"')
	}
	if e.Text == "" && len(e.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	escapeText(b, e.Text)
	for _, c := range e.Children {
		writeElement(b, c)
		escapeText(b, c.Tail)
	}
	b.WriteString("</")
	b.WriteString(e.Name)
	b.WriteByte('>')
}

func escapeText(b *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		default:
			b.WriteRune(r)
		}
	}
}

func escapeAttr(b *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\n':
			b.WriteString("&#10;")
		case '\t':
			b.WriteString("&#9;")
		default:
			b.WriteRune(r)
		}
	}
}
