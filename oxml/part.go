package oxml

import (
	"github.com/sejonglab/hwpx/xmltree"
)

// part is the dirty-tracking contract shared by top-level part
// wrappers. Child wrappers (paragraphs, runs, cells) do not carry
// their own flag; they mark the part that owns them.
type part interface {
	MarkDirty()
}

// SimplePart wraps a part whose content the model does not interpret
// beyond attribute access, such as master pages and change histories.
type SimplePart struct {
	name  string
	root  *xmltree.Element
	dirty bool
}

func newSimplePart(name string, root *xmltree.Element) *SimplePart {
	return &SimplePart{name: name, root: root}
}

// Name returns the archive part name.
func (p *SimplePart) Name() string { return p.name }

// Element returns the part's root element.
func (p *SimplePart) Element() *xmltree.Element { return p.root }

// Attr returns a root-element attribute, or "" when absent.
func (p *SimplePart) Attr(name string) string {
	return p.root.AttrDefault(name, "")
}

// SetAttr writes a root-element attribute, marking the part dirty only
// when the value changes.
func (p *SimplePart) SetAttr(name, value string) {
	if p.root.AttrDefault(name, "") == value {
		return
	}
	p.root.SetAttr(name, value)
	p.dirty = true
}

// MarkDirty flags the part for serialization on the next save.
func (p *SimplePart) MarkDirty() { p.dirty = true }

// Dirty reports whether the part has unsaved changes.
func (p *SimplePart) Dirty() bool { return p.dirty }

// ResetDirty clears the dirty flag after a successful save.
func (p *SimplePart) ResetDirty() { p.dirty = false }

// Serialize renders the part back to XML with a declaration.
func (p *SimplePart) Serialize() []byte {
	return xmltree.Serialize(p.root, true)
}
