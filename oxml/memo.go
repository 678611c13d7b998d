package oxml

import (
	"fmt"

	"github.com/sejonglab/hwpx/xmltree"
)

// MemoOptions configures memo creation.
type MemoOptions struct {
	MemoShapeIDRef string
	MemoID         string
	CharPrIDRef    string

	// Attributes are applied verbatim to the hp:memo element.
	Attributes map[string]string
}

// MemoGroup wraps the hp:memogroup element of a section.
type MemoGroup struct {
	el  *xmltree.Element
	sec *Section
}

// Section returns the owning section.
func (g *MemoGroup) Section() *Section { return g.sec }

// Element returns the underlying hp:memogroup element.
func (g *MemoGroup) Element() *xmltree.Element { return g.el }

// Memos returns a snapshot of the group's memos.
func (g *MemoGroup) Memos() []*Memo {
	els := g.el.FindAll("memo")
	out := make([]*Memo, len(els))
	for i, el := range els {
		out[i] = &Memo{el: el, group: g}
	}
	return out
}

// Memo wraps an hp:memo element.
type Memo struct {
	el    *xmltree.Element
	group *MemoGroup
}

// Group returns the memo group this memo belongs to.
func (m *Memo) Group() *MemoGroup { return m.group }

// Element returns the underlying hp:memo element.
func (m *Memo) Element() *xmltree.Element { return m.el }

// ID returns the memo's id attribute.
func (m *Memo) ID() string { return m.el.AttrDefault("id", "") }

// MemoShapeIDRef returns the referenced memo-shape id, or "".
func (m *Memo) MemoShapeIDRef() string { return m.el.AttrDefault("memoShapeIDRef", "") }

// Attr returns an attribute of the memo element, or "".
func (m *Memo) Attr(name string) string { return m.el.AttrDefault(name, "") }

// Text returns the memo's paragraph text.
func (m *Memo) Text() string {
	if list := m.el.Find("paraList"); list != nil {
		if p := list.Find("p"); p != nil {
			return newParagraph(p, m.group.sec, m.group.sec).Text()
		}
	}
	return ""
}

// SetText replaces the memo's paragraph text.
func (m *Memo) SetText(text string) {
	list := m.el.Find("paraList")
	if list == nil {
		list = xmltree.New("hp:paraList")
		m.el.Append(list)
	}
	p := list.Find("p")
	if p == nil {
		p = newParagraphElement("", paragraphAttrs{IncludeRun: true})
		list.Append(p)
	}
	newParagraph(p, m.group.sec, m.group.sec).SetText(text)
	m.group.sec.MarkDirty()
}

// CharPrIDRef returns the character-properties reference of the
// memo's first run, or "".
func (m *Memo) CharPrIDRef() string {
	for _, run := range m.el.Descendants("run") {
		if ref := run.AttrDefault("charPrIDRef", ""); ref != "" {
			return ref
		}
	}
	return ""
}

// Remove deletes the memo from its group.
func (m *Memo) Remove() {
	if m.group.el.Remove(m.el) {
		m.group.sec.MarkDirty()
	}
}

// MemoGroup returns the section's memo group, creating the element
// when create is set. Returns nil when absent and create is false.
func (s *Section) MemoGroup(create bool) *MemoGroup {
	el := s.root.Find("memogroup")
	if el == nil {
		if !create {
			return nil
		}
		el = xmltree.New("hp:memogroup")
		s.root.Append(el)
		s.MarkDirty()
	}
	return &MemoGroup{el: el, sec: s}
}

// Memos returns the section's memos, or nil when it has none.
func (s *Section) Memos() []*Memo {
	group := s.MemoGroup(false)
	if group == nil {
		return nil
	}
	return group.Memos()
}

// AddMemo creates a memo entry in the section's memo group.
func (s *Section) AddMemo(text string, opts MemoOptions) *Memo {
	group := s.MemoGroup(true)

	id := opts.MemoID
	if id == "" {
		id = fmt.Sprintf("memo%d", len(group.Memos())+1)
	}
	el := xmltree.New("hp:memo")
	el.SetAttr("id", id)
	if opts.MemoShapeIDRef != "" {
		el.SetAttr("memoShapeIDRef", opts.MemoShapeIDRef)
	}
	for name, value := range opts.Attributes {
		el.SetAttr(name, value)
	}

	list := xmltree.New("hp:paraList")
	list.Append(newParagraphElement(text, paragraphAttrs{CharPrIDRef: opts.CharPrIDRef, IncludeRun: true}))
	el.Append(list)
	group.el.Append(el)
	s.MarkDirty()
	return &Memo{el: el, group: group}
}
