package oxml

import (
	"errors"
	"strconv"

	"github.com/sejonglab/hwpx/xmltree"
)

var ErrColumnCount = errors.New("oxml: column count must be between 1 and 255")

// Note wraps an hp:footNote or hp:endNote control.
type Note struct {
	el   *xmltree.Element
	para *Paragraph
}

// Element returns the underlying note element.
func (n *Note) Element() *xmltree.Element { return n.el }

// Paragraph returns the paragraph anchoring the note.
func (n *Note) Paragraph() *Paragraph { return n.para }

// Kind returns "footNote" or "endNote".
func (n *Note) Kind() string { return n.el.Local() }

// Number returns the note's declared number attribute.
func (n *Note) Number() int { return atoiDefault(n.el.AttrDefault("number", "0")) }

// Text returns the note body's paragraph text.
func (n *Note) Text() string {
	if sub := n.el.Find("subList"); sub != nil {
		if p := sub.Find("p"); p != nil {
			return newParagraph(p, n.para.sec, n.para.owner).Text()
		}
	}
	return ""
}

// SetText replaces the note body's text.
func (n *Note) SetText(text string) {
	sub := n.el.Find("subList")
	if sub == nil {
		sub = newSubListElement()
		n.el.Append(sub)
	}
	p := sub.Find("p")
	if p == nil {
		p = newParagraphElement("", paragraphAttrs{IncludeRun: true})
		sub.Append(p)
	}
	newParagraph(p, n.para.sec, n.para.owner).SetText(text)
	n.para.markDirty()
}

// AddFootnote anchors a footnote at the end of the paragraph. The note
// is numbered after the section's existing footnotes. An empty
// charPrIDRef inherits the paragraph's reference.
func (p *Paragraph) AddFootnote(text, charPrIDRef string) *Note {
	return p.addNote("footNote", text, charPrIDRef)
}

// AddEndnote anchors an endnote at the end of the paragraph.
func (p *Paragraph) AddEndnote(text, charPrIDRef string) *Note {
	return p.addNote("endNote", text, charPrIDRef)
}

func (p *Paragraph) addNote(local, text, charPrIDRef string) *Note {
	number := 1
	if p.sec != nil {
		number = len(p.sec.root.Descendants(local)) + 1
	}
	if charPrIDRef == "" {
		charPrIDRef = p.CharPrIDRef()
	}
	run := xmltree.New("hp:run")
	if charPrIDRef != "" {
		run.SetAttr("charPrIDRef", charPrIDRef)
	}
	note := xmltree.New("hp:" + local)
	note.SetAttr("number", strconv.Itoa(number))
	sub := newSubListElement()
	sub.Append(newParagraphElement(text, paragraphAttrs{CharPrIDRef: charPrIDRef, IncludeRun: true}))
	note.Append(sub)
	run.Append(note)
	p.el.Append(run)
	p.markDirty()
	return &Note{el: note, para: p}
}

// Footnotes returns the footnotes anchored in this paragraph.
func (p *Paragraph) Footnotes() []*Note { return p.notes("footNote") }

// Endnotes returns the endnotes anchored in this paragraph.
func (p *Paragraph) Endnotes() []*Note { return p.notes("endNote") }

func (p *Paragraph) notes(local string) []*Note {
	var out []*Note
	for _, el := range p.el.Descendants(local) {
		out = append(out, &Note{el: el, para: p})
	}
	return out
}

// Footnotes returns every footnote in the section, in document order.
func (s *Section) Footnotes() []*Note { return s.sectionNotes("footNote") }

// Endnotes returns every endnote in the section, in document order.
func (s *Section) Endnotes() []*Note { return s.sectionNotes("endNote") }

func (s *Section) sectionNotes(local string) []*Note {
	var out []*Note
	for _, p := range s.Paragraphs() {
		out = append(out, p.notes(local)...)
	}
	return out
}

// AddFootnote creates an anchoring paragraph in the last section and
// attaches a footnote carrying text.
func (d *Document) AddFootnote(text string) (*Note, error) {
	return d.addNote(text, (*Paragraph).AddFootnote)
}

// AddEndnote creates an anchoring paragraph in the last section and
// attaches an endnote carrying text.
func (d *Document) AddEndnote(text string) (*Note, error) {
	return d.addNote(text, (*Paragraph).AddEndnote)
}

func (d *Document) addNote(text string, attach func(*Paragraph, string, string) *Note) (*Note, error) {
	sec, err := d.lastSection()
	if err != nil {
		return nil, err
	}
	para := sec.AddParagraph("", ParagraphOptions{SkipRun: true})
	return attach(para, text, ""), nil
}

// ColumnWidth declares one explicit column in HWPUNIT plus the gap that
// follows it.
type ColumnWidth struct {
	Width int
	Gap   int
}

// ColumnSeparator describes the line drawn between columns.
type ColumnSeparator struct {
	Type  string
	Width string
	Color string
}

// ColumnOptions configures SetColumns. Zero values fall back to a
// NEWSPAPER layout flowing LEFT with a 1200 HWPUNIT gap.
type ColumnOptions struct {
	Type    string
	Layout  string
	SameGap int

	// Widths switches off equal sizing and declares each column.
	Widths []ColumnWidth

	Separator *ColumnSeparator
}

// ColumnDef wraps an hp:colPr element.
type ColumnDef struct {
	el *xmltree.Element
}

// Element returns the underlying hp:colPr element.
func (c *ColumnDef) Element() *xmltree.Element { return c.el }

// Count returns the declared column count.
func (c *ColumnDef) Count() int { return atoiDefault(c.el.AttrDefault("colCount", "0")) }

// SetColumns declares a count-column layout on this paragraph. Any
// column definition already anchored here is replaced. Count must lie
// in 1..255.
func (p *Paragraph) SetColumns(count int, opts ColumnOptions) (*ColumnDef, error) {
	if count < 1 || count > 255 {
		return nil, ErrColumnCount
	}
	for _, run := range p.el.FindAll("run") {
		for _, ctrl := range run.FindAll("ctrl") {
			if ctrl.Find("colPr") != nil {
				run.Remove(ctrl)
			}
		}
	}

	colType := opts.Type
	if colType == "" {
		colType = "NEWSPAPER"
	}
	layout := opts.Layout
	if layout == "" {
		layout = "LEFT"
	}
	sameGap := opts.SameGap
	if sameGap == 0 {
		sameGap = 1200
	}

	colPr := xmltree.New("hp:colPr")
	colPr.SetAttr("id", "")
	colPr.SetAttr("type", colType)
	colPr.SetAttr("layout", layout)
	colPr.SetAttr("colCount", strconv.Itoa(count))
	if len(opts.Widths) > 0 {
		colPr.SetAttr("sameSz", "0")
	} else {
		colPr.SetAttr("sameSz", "1")
	}
	colPr.SetAttr("sameGap", strconv.Itoa(sameGap))
	for _, w := range opts.Widths {
		sz := xmltree.New("hp:colSz")
		sz.SetAttr("width", strconv.Itoa(w.Width))
		sz.SetAttr("gap", strconv.Itoa(w.Gap))
		colPr.Append(sz)
	}
	if sep := opts.Separator; sep != nil {
		line := xmltree.New("hp:colLine")
		line.SetAttr("type", defaultString(sep.Type, "SOLID"))
		line.SetAttr("width", defaultString(sep.Width, "0.12 mm"))
		line.SetAttr("color", defaultString(sep.Color, "#000000"))
		colPr.Append(line)
	}

	ctrl := xmltree.New("hp:ctrl")
	ctrl.Append(colPr)
	p.ensureRun().el.Insert(0, ctrl)
	p.markDirty()
	return &ColumnDef{el: colPr}, nil
}

// SetColumns declares the column layout on the last section's leading
// paragraph, next to the section properties.
func (d *Document) SetColumns(count int, opts ColumnOptions) (*ColumnDef, error) {
	sec, err := d.lastSection()
	if err != nil {
		return nil, err
	}
	paras := sec.Paragraphs()
	if len(paras) == 0 {
		return nil, ErrLastParagraph
	}
	return paras[0].SetColumns(count, opts)
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
