package oxml

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sejonglab/hwpx/xmltree"
)

var ErrLastParagraph = errors.New("oxml: a section must keep at least one paragraph")

// ParagraphOptions configures paragraph creation.
type ParagraphOptions struct {
	ParaPrIDRef string
	StyleIDRef  string
	CharPrIDRef string
	PageBreak   bool
	ColumnBreak bool

	// SkipRun leaves the new paragraph without a run. Runs are
	// otherwise created even for empty text.
	SkipRun bool

	// NoInherit disables copying paraPrIDRef/styleIDRef/charPrIDRef
	// from the section's last paragraph when the corresponding option
	// is unset. Without inheritance unset references default to "0".
	NoInherit bool

	// Extra attributes applied verbatim to the hp:p element.
	Extra map[string]string
}

// Section wraps one section part and owns its dirty flag.
type Section struct {
	name  string
	root  *xmltree.Element
	dirty bool
	doc   *Document
}

func newSection(name string, root *xmltree.Element, doc *Document) *Section {
	return &Section{name: name, root: root, doc: doc}
}

// Name returns the archive part name, e.g. "Contents/section0.xml".
func (s *Section) Name() string { return s.name }

// Element returns the section's root element.
func (s *Section) Element() *xmltree.Element { return s.root }

// MarkDirty flags the section for serialization on the next save.
func (s *Section) MarkDirty() { s.dirty = true }

// Dirty reports whether the section has unsaved changes.
func (s *Section) Dirty() bool { return s.dirty }

// ResetDirty clears the dirty flag after a successful save.
func (s *Section) ResetDirty() { s.dirty = false }

// Serialize renders the section back to XML with a declaration.
func (s *Section) Serialize() []byte {
	return xmltree.Serialize(s.root, true)
}

// Paragraphs returns a snapshot of the section's top-level paragraphs.
func (s *Section) Paragraphs() []*Paragraph {
	els := s.root.FindAll("p")
	out := make([]*Paragraph, len(els))
	for i, el := range els {
		out[i] = newParagraph(el, s, s)
	}
	return out
}

// AddParagraph appends a paragraph with text and returns it. Unless
// disabled via opts.NoInherit, unset style references are inherited
// from the section's current last paragraph.
func (s *Section) AddParagraph(text string, opts ParagraphOptions) *Paragraph {
	attrs := paragraphAttrs{
		ParaPrIDRef: opts.ParaPrIDRef,
		StyleIDRef:  opts.StyleIDRef,
		CharPrIDRef: opts.CharPrIDRef,
		PageBreak:   opts.PageBreak,
		ColumnBreak: opts.ColumnBreak,
		IncludeRun:  !opts.SkipRun,
		Extra:       opts.Extra,
	}
	if !opts.NoInherit {
		if last := s.lastParagraph(); last != nil {
			if attrs.ParaPrIDRef == "" {
				attrs.ParaPrIDRef = last.ParaPrIDRef()
			}
			if attrs.StyleIDRef == "" {
				attrs.StyleIDRef = last.StyleIDRef()
			}
			if attrs.CharPrIDRef == "" {
				attrs.CharPrIDRef = last.CharPrIDRef()
			}
		}
	}

	el := newParagraphElement(text, attrs)
	s.root.Append(el)
	s.MarkDirty()
	return newParagraph(el, s, s)
}

func (s *Section) lastParagraph() *Paragraph {
	paras := s.Paragraphs()
	if len(paras) == 0 {
		return nil
	}
	return paras[len(paras)-1]
}

// RemoveParagraph removes the paragraph at the given index.
func (s *Section) RemoveParagraph(index int) error {
	paras := s.Paragraphs()
	if index < 0 || index >= len(paras) {
		return fmt.Errorf("oxml: paragraph index %d out of bounds for %d paragraphs", index, len(paras))
	}
	return s.removeParagraph(paras[index])
}

func (s *Section) removeParagraph(p *Paragraph) error {
	paras := s.Paragraphs()
	if len(paras) <= 1 {
		return ErrLastParagraph
	}
	if !s.root.Remove(p.el) {
		return errors.New("oxml: paragraph does not belong to this section")
	}
	s.MarkDirty()
	return nil
}

// Properties returns the section's secPr wrapper. The element is
// created inside the first paragraph's first run when missing.
func (s *Section) Properties() *SectionProperties {
	return &SectionProperties{sec: s}
}

func (s *Section) secPrElement(create bool) *xmltree.Element {
	if els := s.root.Descendants("secPr"); len(els) > 0 {
		return els[0]
	}
	if !create {
		return nil
	}
	paras := s.Paragraphs()
	var para *Paragraph
	if len(paras) > 0 {
		para = paras[0]
	} else {
		para = s.AddParagraph("", ParagraphOptions{NoInherit: true})
	}
	run := para.ensureRun()
	secPr := xmltree.New("hp:secPr")
	run.el.Insert(0, secPr)
	s.MarkDirty()
	return secPr
}

// SectionProperties projects the hp:secPr element: page geometry and
// per-section headers and footers.
type SectionProperties struct {
	sec *Section
}

// PageSize returns the page (width, height) in HWPUNIT; zero when the
// section declares no page geometry.
func (sp *SectionProperties) PageSize() (int, int) {
	secPr := sp.sec.secPrElement(false)
	if secPr == nil {
		return 0, 0
	}
	pagePr := secPr.Find("pagePr")
	if pagePr == nil {
		return 0, 0
	}
	return atoiDefault(pagePr.AttrDefault("width", "0")), atoiDefault(pagePr.AttrDefault("height", "0"))
}

// SetPageSize updates the page geometry.
func (sp *SectionProperties) SetPageSize(width, height int) {
	pagePr := sp.ensurePagePr()
	w := strconv.Itoa(width)
	h := strconv.Itoa(height)
	if pagePr.AttrDefault("width", "") == w && pagePr.AttrDefault("height", "") == h {
		return
	}
	pagePr.SetAttr("width", w)
	pagePr.SetAttr("height", h)
	sp.sec.MarkDirty()
}

// Landscape reports the page orientation flag.
func (sp *SectionProperties) Landscape() bool {
	secPr := sp.sec.secPrElement(false)
	if secPr == nil {
		return false
	}
	pagePr := secPr.Find("pagePr")
	return pagePr != nil && pagePr.AttrDefault("landscape", "") == "LANDSCAPE"
}

// SetLandscape updates the page orientation.
func (sp *SectionProperties) SetLandscape(v bool) {
	pagePr := sp.ensurePagePr()
	value := "WIDELY"
	if v {
		value = "LANDSCAPE"
	}
	if pagePr.AttrDefault("landscape", "") == value {
		return
	}
	pagePr.SetAttr("landscape", value)
	sp.sec.MarkDirty()
}

// Margins returns the page margins (left, right, top, bottom).
func (sp *SectionProperties) Margins() (int, int, int, int) {
	secPr := sp.sec.secPrElement(false)
	if secPr == nil {
		return 0, 0, 0, 0
	}
	pagePr := secPr.Find("pagePr")
	if pagePr == nil {
		return 0, 0, 0, 0
	}
	m := pagePr.Find("margin")
	if m == nil {
		return 0, 0, 0, 0
	}
	return atoiDefault(m.AttrDefault("left", "0")), atoiDefault(m.AttrDefault("right", "0")),
		atoiDefault(m.AttrDefault("top", "0")), atoiDefault(m.AttrDefault("bottom", "0"))
}

// SetMargins updates the page margins.
func (sp *SectionProperties) SetMargins(left, right, top, bottom int) {
	pagePr := sp.ensurePagePr()
	m := pagePr.Find("margin")
	if m == nil {
		m = xmltree.New("hp:margin")
		pagePr.Append(m)
	}
	vals := [4]string{strconv.Itoa(left), strconv.Itoa(right), strconv.Itoa(top), strconv.Itoa(bottom)}
	names := [4]string{"left", "right", "top", "bottom"}
	changed := false
	for i, name := range names {
		if m.AttrDefault(name, "") != vals[i] {
			m.SetAttr(name, vals[i])
			changed = true
		}
	}
	if changed {
		sp.sec.MarkDirty()
	}
}

func (sp *SectionProperties) ensurePagePr() *xmltree.Element {
	secPr := sp.sec.secPrElement(true)
	pagePr := secPr.Find("pagePr")
	if pagePr == nil {
		pagePr = xmltree.New("hp:pagePr")
		pagePr.SetAttr("landscape", "WIDELY")
		pagePr.SetAttr("width", "59528")
		pagePr.SetAttr("height", "84188")
		pagePr.SetAttr("gutterType", "LEFT_ONLY")
		secPr.Append(pagePr)
	}
	return pagePr
}

// SetHeaderText ensures the section has a header for pageType (BOTH,
// EVEN, or ODD) and sets its text. Returns the header element wrapper.
func (sp *SectionProperties) SetHeaderText(text, pageType string) *Paragraph {
	return sp.setBandText("header", text, pageType)
}

// SetFooterText ensures the section has a footer for pageType and
// sets its text.
func (sp *SectionProperties) SetFooterText(text, pageType string) *Paragraph {
	return sp.setBandText("footer", text, pageType)
}

// HeaderText returns the text of the header for pageType, or "".
func (sp *SectionProperties) HeaderText(pageType string) string {
	return sp.bandText("header", pageType)
}

// FooterText returns the text of the footer for pageType, or "".
func (sp *SectionProperties) FooterText(pageType string) string {
	return sp.bandText("footer", pageType)
}

// RemoveHeader deletes the header for pageType if present.
func (sp *SectionProperties) RemoveHeader(pageType string) {
	sp.removeBand("header", pageType)
}

// RemoveFooter deletes the footer for pageType if present.
func (sp *SectionProperties) RemoveFooter(pageType string) {
	sp.removeBand("footer", pageType)
}

func (sp *SectionProperties) findBand(local, pageType string) *xmltree.Element {
	for _, el := range sp.sec.root.Descendants(local) {
		if el.AttrDefault("applyPageType", "BOTH") == pageType {
			return el
		}
	}
	return nil
}

func (sp *SectionProperties) setBandText(local, text, pageType string) *Paragraph {
	band := sp.findBand(local, pageType)
	if band == nil {
		secPr := sp.sec.secPrElement(true)
		run := sp.sec.findParent(secPr)
		ctrl := xmltree.New("hp:ctrl")
		band = xmltree.New("hp:" + local)
		band.SetAttr("id", nextParagraphID())
		band.SetAttr("applyPageType", pageType)
		sub := newSubListElement()
		sub.Append(newParagraphElement("", paragraphAttrs{IncludeRun: true}))
		band.Append(sub)
		ctrl.Append(band)
		run.Append(ctrl)
	}
	sub := band.Find("subList")
	if sub == nil {
		sub = newSubListElement()
		band.Append(sub)
	}
	p := sub.Find("p")
	if p == nil {
		p = newParagraphElement("", paragraphAttrs{IncludeRun: true})
		sub.Append(p)
	}
	para := newParagraph(p, sp.sec, sp.sec)
	para.SetText(text)
	sp.sec.MarkDirty()
	return para
}

func (sp *SectionProperties) bandText(local, pageType string) string {
	band := sp.findBand(local, pageType)
	if band == nil {
		return ""
	}
	sub := band.Find("subList")
	if sub == nil {
		return ""
	}
	if p := sub.Find("p"); p != nil {
		return newParagraph(p, sp.sec, sp.sec).Text()
	}
	return ""
}

func (sp *SectionProperties) removeBand(local, pageType string) {
	band := sp.findBand(local, pageType)
	if band == nil {
		return
	}
	if parent := sp.sec.findParent(band); parent != nil {
		parent.Remove(band)
		sp.sec.MarkDirty()
	}
}

// findParent locates the direct parent of target within the section
// tree, or nil.
func (s *Section) findParent(target *xmltree.Element) *xmltree.Element {
	var found *xmltree.Element
	var walk func(*xmltree.Element)
	walk = func(el *xmltree.Element) {
		if found != nil {
			return
		}
		for _, c := range el.Children {
			if c == target {
				found = el
				return
			}
			walk(c)
		}
	}
	walk(s.root)
	return found
}
