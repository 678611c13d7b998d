package oxml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sejonglab/hwpx/xmltree"
)

var (
	ErrEmptySearch = errors.New("oxml: search string must not be empty")
)

// Paragraph wraps an hp:p element.
type Paragraph struct {
	el    *xmltree.Element
	sec   *Section
	owner part
}

func newParagraph(el *xmltree.Element, sec *Section, owner part) *Paragraph {
	return &Paragraph{el: el, sec: sec, owner: owner}
}

// Element returns the underlying hp:p element.
func (p *Paragraph) Element() *xmltree.Element { return p.el }

// Section returns the section this paragraph belongs to, or nil for
// paragraphs nested in detached structures.
func (p *Paragraph) Section() *Section { return p.sec }

func (p *Paragraph) markDirty() {
	if p.owner != nil {
		p.owner.MarkDirty()
	}
}

// ID returns the paragraph's id attribute.
func (p *Paragraph) ID() string { return p.el.AttrDefault("id", "") }

// ParaPrIDRef returns the referenced paragraph-properties id, or "".
func (p *Paragraph) ParaPrIDRef() string { return p.el.AttrDefault("paraPrIDRef", "") }

// SetParaPrIDRef updates the paragraph-properties reference.
func (p *Paragraph) SetParaPrIDRef(id string) {
	p.setAttr("paraPrIDRef", id)
}

// StyleIDRef returns the referenced style id, or "".
func (p *Paragraph) StyleIDRef() string { return p.el.AttrDefault("styleIDRef", "") }

// SetStyleIDRef updates the style reference.
func (p *Paragraph) SetStyleIDRef(id string) {
	p.setAttr("styleIDRef", id)
}

// CharPrIDRef returns the character-properties reference of the first
// run, or "" when the paragraph has no runs.
func (p *Paragraph) CharPrIDRef() string {
	if runs := p.Runs(); len(runs) > 0 {
		return runs[0].CharPrIDRef()
	}
	return ""
}

// SetCharPrIDRef updates the character-properties reference on the
// paragraph's first run, creating one when absent.
func (p *Paragraph) SetCharPrIDRef(id string) {
	p.ensureRun().SetCharPrIDRef(id)
}

// PageBreak reports the pageBreak flag; unset reads as false.
func (p *Paragraph) PageBreak() bool { return p.el.AttrDefault("pageBreak", "0") == "1" }

// SetPageBreak updates the pageBreak flag.
func (p *Paragraph) SetPageBreak(v bool) { p.setAttr("pageBreak", boolAttr(v)) }

// ColumnBreak reports the columnBreak flag; unset reads as false.
func (p *Paragraph) ColumnBreak() bool { return p.el.AttrDefault("columnBreak", "0") == "1" }

// SetColumnBreak updates the columnBreak flag.
func (p *Paragraph) SetColumnBreak(v bool) { p.setAttr("columnBreak", boolAttr(v)) }

func (p *Paragraph) setAttr(name, value string) {
	if p.el.AttrDefault(name, "") == value {
		return
	}
	p.el.SetAttr(name, value)
	p.markDirty()
}

// Runs returns a snapshot of the paragraph's direct runs.
func (p *Paragraph) Runs() []*Run {
	els := p.el.FindAll("run")
	runs := make([]*Run, len(els))
	for i, el := range els {
		runs[i] = &Run{el: el, para: p}
	}
	return runs
}

// AddRun appends a run carrying text and returns it.
func (p *Paragraph) AddRun(text string) *Run {
	el := xmltree.New("hp:run")
	if ref := p.CharPrIDRef(); ref != "" {
		el.SetAttr("charPrIDRef", ref)
	}
	p.el.Append(el)
	run := &Run{el: el, para: p}
	if text != "" {
		t := xmltree.New("hp:t")
		t.Text = text
		el.Append(t)
	}
	p.markDirty()
	return run
}

// ensureRun returns the first run, creating an empty one if needed.
func (p *Paragraph) ensureRun() *Run {
	if runs := p.Runs(); len(runs) > 0 {
		return runs[0]
	}
	return p.AddRun("")
}

// Text concatenates every text node under the paragraph in document
// order, crossing into nested inline content.
func (p *Paragraph) Text() string {
	var b strings.Builder
	for _, t := range p.el.Descendants("t") {
		b.WriteString(t.GatherText())
	}
	return b.String()
}

// SetText replaces the paragraph's visible text. The first run
// receives the new value; plain text nodes in the remaining runs are
// blanked. Style references on the paragraph and its runs are kept.
func (p *Paragraph) SetText(text string) {
	runs := p.Runs()
	if len(runs) == 0 {
		if text == "" {
			return
		}
		p.AddRun(text)
		return
	}
	runs[0].SetText(text)
	for _, run := range runs[1:] {
		run.SetText("")
	}
}

// ClearText blanks the paragraph's text while keeping its structure
// and style references.
func (p *Paragraph) ClearText() { p.SetText("") }

// Tables returns the tables directly nested in this paragraph's runs.
func (p *Paragraph) Tables() []*Table {
	var out []*Table
	for _, run := range p.el.FindAll("run") {
		for _, tbl := range run.FindAll("tbl") {
			out = append(out, &Table{el: tbl, owner: p.owner, sec: p.sec})
		}
	}
	return out
}

// AddTable creates a rows×cols table inside a new run and returns it.
func (p *Paragraph) AddTable(rows, cols int, opts TableOptions) (*Table, error) {
	el, err := newTableElement(rows, cols, opts)
	if err != nil {
		return nil, err
	}
	run := xmltree.New("hp:run")
	if opts.CharPrIDRef != "" {
		run.SetAttr("charPrIDRef", opts.CharPrIDRef)
	}
	run.Append(el)
	p.el.Append(run)
	p.markDirty()
	return &Table{el: el, owner: p.owner, sec: p.sec}, nil
}

// Bookmarks returns the names of bookmarks anchored in this paragraph.
func (p *Paragraph) Bookmarks() []string {
	var names []string
	for _, bm := range p.el.Descendants("bookmark") {
		names = append(names, bm.AttrDefault("name", ""))
	}
	return names
}

// AddBookmark anchors a named bookmark in the paragraph.
func (p *Paragraph) AddBookmark(name string) {
	run := xmltree.New("hp:run")
	if ref := p.CharPrIDRef(); ref != "" {
		run.SetAttr("charPrIDRef", ref)
	}
	ctrl := xmltree.New("hp:ctrl")
	bm := xmltree.New("hp:bookmark")
	bm.SetAttr("name", name)
	ctrl.Append(bm)
	run.Append(ctrl)
	p.el.Append(run)
	p.markDirty()
}

// Hyperlink describes a field-based link found in a paragraph.
type Hyperlink struct {
	URL  string
	Text string
	Type string
}

// Hyperlinks returns the hyperlink fields anchored in this paragraph.
func (p *Paragraph) Hyperlinks() []Hyperlink {
	var out []Hyperlink
	for _, fb := range p.el.Descendants("fieldBegin") {
		if fb.AttrDefault("type", "") != "HYPERLINK" {
			continue
		}
		link := Hyperlink{Type: "HYPERLINK"}
		for _, param := range fb.Descendants("stringParam") {
			if param.AttrDefault("name", "") == "Command" {
				link.URL = strings.TrimSuffix(param.GatherText(), ";1")
			}
		}
		for _, t := range fb.Descendants("t") {
			link.Text += t.GatherText()
		}
		out = append(out, link)
	}
	return out
}

// AddHyperlink inserts a hyperlink field showing displayText.
func (p *Paragraph) AddHyperlink(url, displayText string) {
	fieldID := uuid.New().String()
	charRef := p.CharPrIDRef()

	runBegin := xmltree.New("hp:run")
	if charRef != "" {
		runBegin.SetAttr("charPrIDRef", charRef)
	}
	ctrl := xmltree.New("hp:ctrl")
	fb := xmltree.New("hp:fieldBegin")
	fb.SetAttr("id", fieldID)
	fb.SetAttr("type", "HYPERLINK")
	fb.SetAttr("editable", "false")
	fb.SetAttr("dirty", "false")
	fb.SetAttr("fieldid", fieldID)
	params := xmltree.New("hp:parameters")
	params.SetAttr("count", "1")
	params.SetAttr("name", "")
	cmd := xmltree.New("hp:stringParam")
	cmd.SetAttr("name", "Command")
	cmd.Text = url + ";1"
	params.Append(cmd)
	fb.Append(params)
	t := xmltree.New("hp:t")
	t.Text = displayText
	fb.Append(t)
	ctrl.Append(fb)
	runBegin.Append(ctrl)

	runEnd := xmltree.New("hp:run")
	if charRef != "" {
		runEnd.SetAttr("charPrIDRef", charRef)
	}
	ctrlEnd := xmltree.New("hp:ctrl")
	fe := xmltree.New("hp:fieldEnd")
	fe.SetAttr("beginIDRef", fieldID)
	fe.SetAttr("fieldid", fieldID)
	ctrlEnd.Append(fe)
	runEnd.Append(ctrlEnd)

	p.el.Append(runBegin)
	p.el.Append(runEnd)
	p.markDirty()
}

// Remove deletes the paragraph from its section. The section's last
// paragraph cannot be removed.
func (p *Paragraph) Remove() error {
	if p.sec == nil {
		return errors.New("oxml: paragraph does not belong to a section")
	}
	return p.sec.removeParagraph(p)
}

// Run wraps an hp:run element.
type Run struct {
	el   *xmltree.Element
	para *Paragraph
}

// Element returns the underlying hp:run element.
func (r *Run) Element() *xmltree.Element { return r.el }

// Paragraph returns the paragraph the run belongs to.
func (r *Run) Paragraph() *Paragraph { return r.para }

// CharPrIDRef returns the run's character-properties reference, or "".
func (r *Run) CharPrIDRef() string { return r.el.AttrDefault("charPrIDRef", "") }

// SetCharPrIDRef updates the character-properties reference.
func (r *Run) SetCharPrIDRef(id string) {
	if r.el.AttrDefault("charPrIDRef", "") == id {
		return
	}
	r.el.SetAttr("charPrIDRef", id)
	r.para.markDirty()
}

// plainTextNodes returns the run's direct hp:t children that carry no
// child elements; text nodes bracketed by track-change spans are left
// alone.
func (r *Run) plainTextNodes() []*xmltree.Element {
	var out []*xmltree.Element
	for _, t := range r.el.FindAll("t") {
		if len(t.Children) == 0 {
			out = append(out, t)
		}
	}
	return out
}

// Text concatenates the run's direct text nodes.
func (r *Run) Text() string {
	var b strings.Builder
	for _, t := range r.el.FindAll("t") {
		b.WriteString(t.GatherText())
	}
	return b.String()
}

// SetText writes text into the run's first plain text node, blanking
// any additional plain nodes and creating one when none exists.
func (r *Run) SetText(text string) {
	nodes := r.plainTextNodes()
	if len(nodes) == 0 {
		if text == "" {
			return
		}
		t := xmltree.New("hp:t")
		t.Text = text
		r.el.Append(t)
		r.para.markDirty()
		return
	}
	changed := false
	if nodes[0].Text != text {
		nodes[0].Text = text
		changed = true
	}
	for _, t := range nodes[1:] {
		if t.Text != "" {
			t.Text = ""
			changed = true
		}
	}
	if changed {
		r.para.markDirty()
	}
}

// ReplaceText substitutes every occurrence of search in the run's
// text nodes and returns the replacement count.
func (r *Run) ReplaceText(search, replacement string) (int, error) {
	return r.replaceText(search, replacement, -1)
}

// ReplaceTextN substitutes up to limit occurrences, sharing the budget
// across the run's text nodes left to right. A non-positive limit
// performs no scan and returns 0.
func (r *Run) ReplaceTextN(search, replacement string, limit int) (int, error) {
	if search == "" {
		return 0, ErrEmptySearch
	}
	if limit <= 0 {
		return 0, nil
	}
	return r.replaceText(search, replacement, limit)
}

func (r *Run) replaceText(search, replacement string, limit int) (int, error) {
	if search == "" {
		return 0, ErrEmptySearch
	}
	total := 0
	for _, t := range r.el.FindAll("t") {
		if limit >= 0 && total >= limit {
			break
		}
		n := strings.Count(t.Text, search)
		if n == 0 {
			continue
		}
		if limit >= 0 && n > limit-total {
			n = limit - total
		}
		t.Text = strings.Replace(t.Text, search, replacement, n)
		total += n
	}
	if total > 0 {
		r.para.markDirty()
	}
	return total, nil
}

// Tables returns tables directly nested in this run.
func (r *Run) Tables() []*Table {
	var out []*Table
	for _, tbl := range r.el.FindAll("tbl") {
		out = append(out, &Table{el: tbl, owner: r.para.owner, sec: r.para.sec})
	}
	return out
}

func boolAttr(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// paragraphCounter backs generated paragraph ids.
var paragraphSeq uint32

func nextParagraphID() string {
	paragraphSeq++
	return fmt.Sprintf("%d", 2000000000+paragraphSeq)
}
