package oxml

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sejonglab/hwpx/opc"
	"github.com/sejonglab/hwpx/xmltree"
)

var (
	ErrNoSections   = errors.New("oxml: document has no sections")
	ErrNoHeader     = errors.New("oxml: document has no header part")
	ErrLastSection  = errors.New("oxml: a document must keep at least one section")
	ErrForeignPart  = errors.New("oxml: part does not belong to this document")
	ErrSectionIndex = errors.New("oxml: section index out of bounds")
)

// Document aggregates every parsed part of an open package: sections,
// headers, master pages, and histories. It owns the aggregated style
// cache and the dirty-part serialization pass.
type Document struct {
	pkg *opc.Package

	sections    []*Section
	headers     []*Header
	masterPages []*SimplePart
	histories   []*SimplePart
	version     *opc.VersionInfo

	styleCacheValid bool
	charProps       map[string]*xmltree.Element
	paraProps       map[string]*xmltree.Element
	borderFills     map[string]*xmltree.Element
	styles          map[string]*xmltree.Element
	bullets         map[string]*xmltree.Element
	memoShapes      map[string]*xmltree.Element
	trackChanges    map[string]*xmltree.Element
	trackAuthors    map[string]*xmltree.Element
}

// FromPackage parses the package's header, section, master-page, and
// history parts into a Document.
func FromPackage(pkg *opc.Package) (*Document, error) {
	m, err := pkg.Manifest()
	if err != nil {
		return nil, err
	}

	doc := &Document{pkg: pkg}

	for _, name := range m.HeaderPaths() {
		root, err := parsePart(pkg, name)
		if err != nil {
			return nil, err
		}
		doc.headers = append(doc.headers, newHeader(name, root, doc))
	}
	for _, name := range m.SectionPaths() {
		root, err := parsePart(pkg, name)
		if err != nil {
			return nil, err
		}
		doc.sections = append(doc.sections, newSection(name, root, doc))
	}
	for _, name := range m.MasterPagePaths() {
		root, err := parsePart(pkg, name)
		if err != nil {
			return nil, err
		}
		doc.masterPages = append(doc.masterPages, newSimplePart(name, root))
	}
	for _, name := range m.HistoryPaths() {
		root, err := parsePart(pkg, name)
		if err != nil {
			return nil, err
		}
		doc.histories = append(doc.histories, newSimplePart(name, root))
	}

	version, err := pkg.Version()
	if err != nil {
		return nil, err
	}
	doc.version = version
	return doc, nil
}

func parsePart(pkg *opc.Package, name string) (*xmltree.Element, error) {
	data, err := pkg.GetPart(name)
	if err != nil {
		return nil, err
	}
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("oxml: parse %s: %w", name, err)
	}
	return root, nil
}

// Package returns the underlying part store.
func (d *Document) Package() *opc.Package { return d.pkg }

// Sections returns the document's sections in reading order.
func (d *Document) Sections() []*Section { return d.sections }

// Headers returns the document's header parts.
func (d *Document) Headers() []*Header { return d.headers }

// MasterPages returns the document's master-page parts.
func (d *Document) MasterPages() []*SimplePart { return d.masterPages }

// Histories returns the document's change-history parts.
func (d *Document) Histories() []*SimplePart { return d.histories }

// Version returns the version descriptor.
func (d *Document) Version() *opc.VersionInfo { return d.version }

// Paragraphs returns every top-level paragraph across all sections.
func (d *Document) Paragraphs() []*Paragraph {
	var out []*Paragraph
	for _, sec := range d.sections {
		out = append(out, sec.Paragraphs()...)
	}
	return out
}

// Memos returns every memo declared in every section.
func (d *Document) Memos() []*Memo {
	var out []*Memo
	for _, sec := range d.sections {
		out = append(out, sec.Memos()...)
	}
	return out
}

func (d *Document) lastSection() (*Section, error) {
	if len(d.sections) == 0 {
		return nil, ErrNoSections
	}
	return d.sections[len(d.sections)-1], nil
}

func (d *Document) primaryHeader() (*Header, error) {
	if len(d.headers) == 0 {
		return nil, ErrNoHeader
	}
	return d.headers[0], nil
}

// AddParagraph appends a paragraph to the last section.
func (d *Document) AddParagraph(text string, opts ParagraphOptions) (*Paragraph, error) {
	sec, err := d.lastSection()
	if err != nil {
		return nil, err
	}
	return sec.AddParagraph(text, opts), nil
}

// AddTable creates a table in a fresh paragraph of the last section.
// When no border fill is requested the header's canonical solid-line
// fill is used, created on first need.
func (d *Document) AddTable(rows, cols int, opts TableOptions) (*Table, error) {
	if opts.BorderFillIDRef == "" {
		header, err := d.primaryHeader()
		if err != nil {
			return nil, err
		}
		opts.BorderFillIDRef = header.EnsureBasicBorderFill()
	}
	sec, err := d.lastSection()
	if err != nil {
		return nil, err
	}
	para := sec.AddParagraph("", ParagraphOptions{SkipRun: true, CharPrIDRef: opts.CharPrIDRef})
	return para.AddTable(rows, cols, opts)
}

// RunStyleRequest describes a character style for EnsureRunStyle.
type RunStyleRequest struct {
	Bold      bool
	Italic    bool
	Underline bool

	// BaseCharPrID picks the record cloned when a new one is needed.
	BaseCharPrID string
}

// EnsureRunStyle returns a charPr id matching the requested flags,
// creating the record when no existing one matches.
func (d *Document) EnsureRunStyle(req RunStyleRequest) (string, error) {
	header, err := d.primaryHeader()
	if err != nil {
		return "", err
	}
	cp, err := header.EnsureCharProperty(EnsureOptions{
		Predicate: func(el *xmltree.Element) bool {
			c := CharProperty{record{el}}
			return c.Bold() == req.Bold &&
				c.Italic() == req.Italic &&
				(c.UnderlineType() != "NONE") == req.Underline
		},
		Modify: func(el *xmltree.Element) {
			setFlagChild(el, "hp:bold", req.Bold)
			setFlagChild(el, "hp:italic", req.Italic)
			if u := el.Find("underline"); u != nil {
				el.Remove(u)
			}
			if req.Underline {
				u := xmltree.New("hh:underline")
				u.SetAttr("type", "BOTTOM")
				u.SetAttr("shape", "SOLID")
				u.SetAttr("color", "#000000")
				el.Append(u)
			}
		},
		BaseID: req.BaseCharPrID,
	})
	if err != nil {
		return "", err
	}
	return cp.ID(), nil
}

func setFlagChild(el *xmltree.Element, tag string, on bool) {
	local := xmltree.LocalName(tag)
	existing := el.Find(local)
	if on && existing == nil {
		el.Append(xmltree.New(tag))
	}
	if !on && existing != nil {
		el.Remove(existing)
	}
}

// ParaStyleRequest describes a paragraph style for EnsureParaStyle.
type ParaStyleRequest struct {
	// Align is the horizontal alignment keyword (LEFT, CENTER,
	// RIGHT, JUSTIFY, …).
	Align string

	// BaseParaPrID picks the record cloned when a new one is needed.
	BaseParaPrID string
}

// EnsureParaStyle returns a paraPr id with the requested alignment,
// creating the record when no existing one matches.
func (d *Document) EnsureParaStyle(req ParaStyleRequest) (string, error) {
	header, err := d.primaryHeader()
	if err != nil {
		return "", err
	}
	pp, err := header.EnsureParaProperty(EnsureOptions{
		Predicate: func(el *xmltree.Element) bool {
			return ParaProperty{record{el}}.Align() == req.Align
		},
		Modify: func(el *xmltree.Element) {
			align := el.Find("align")
			if align == nil {
				align = xmltree.New("hh:align")
				el.Insert(0, align)
			}
			align.SetAttr("horizontal", req.Align)
			align.SetAttr("vertical", "BASELINE")
		},
		BaseID: req.BaseParaPrID,
	})
	if err != nil {
		return "", err
	}
	return pp.ID(), nil
}

// invalidateStyleCache drops the aggregated id→record maps; the next
// lookup rebuilds them from every header.
func (d *Document) invalidateStyleCache() {
	d.styleCacheValid = false
}

func (d *Document) rebuildStyleCache() {
	d.charProps = d.aggregate("charProperties", "charPr")
	d.paraProps = d.aggregate("paraProperties", "paraPr")
	d.borderFills = d.aggregate("borderFills", "borderFill")
	d.styles = d.aggregate("styles", "style")
	d.bullets = d.aggregate("bullets", "bullet")
	d.memoShapes = d.aggregate("memoProperties", "memoPr")
	d.trackChanges = d.aggregate("trackChanges", "trackChange")
	d.trackAuthors = d.aggregate("trackChangeAuthors", "trackChangeAuthor")
	d.styleCacheValid = true
}

func (d *Document) aggregate(parentLocal, childLocal string) map[string]*xmltree.Element {
	var els []*xmltree.Element
	for _, h := range d.headers {
		els = append(els, h.collectionRecords(parentLocal, childLocal)...)
	}
	return recordMap(els)
}

func (d *Document) lookup(m func() map[string]*xmltree.Element, id string) *xmltree.Element {
	if !d.styleCacheValid {
		d.rebuildStyleCache()
	}
	table := m()
	if el, ok := table[id]; ok {
		return el
	}
	if norm, ok := normalizeID(id); ok {
		return table[norm]
	}
	return nil
}

// CharProperty resolves a character-property record by id across all
// headers, accepting numeric-equivalent id spellings.
func (d *Document) CharProperty(id string) (CharProperty, bool) {
	el := d.lookup(func() map[string]*xmltree.Element { return d.charProps }, id)
	if el == nil {
		return CharProperty{}, false
	}
	return CharProperty{record{el}}, true
}

// ParagraphProperty resolves a paragraph-property record by id.
func (d *Document) ParagraphProperty(id string) (ParaProperty, bool) {
	el := d.lookup(func() map[string]*xmltree.Element { return d.paraProps }, id)
	if el == nil {
		return ParaProperty{}, false
	}
	return ParaProperty{record{el}}, true
}

// BorderFill resolves a border-fill record by id.
func (d *Document) BorderFill(id string) (BorderFill, bool) {
	el := d.lookup(func() map[string]*xmltree.Element { return d.borderFills }, id)
	if el == nil {
		return BorderFill{}, false
	}
	return BorderFill{record{el}}, true
}

// Style resolves a style record by id.
func (d *Document) Style(id string) (Style, bool) {
	el := d.lookup(func() map[string]*xmltree.Element { return d.styles }, id)
	if el == nil {
		return Style{}, false
	}
	return Style{record{el}}, true
}

// Bullet resolves a bullet record by id.
func (d *Document) Bullet(id string) (Bullet, bool) {
	el := d.lookup(func() map[string]*xmltree.Element { return d.bullets }, id)
	if el == nil {
		return Bullet{}, false
	}
	return Bullet{record{el}}, true
}

// MemoShape resolves a memo-shape record by id.
func (d *Document) MemoShape(id string) (MemoShape, bool) {
	el := d.lookup(func() map[string]*xmltree.Element { return d.memoShapes }, id)
	if el == nil {
		return MemoShape{}, false
	}
	return MemoShape{record{el}}, true
}

// TrackChange resolves a tracked-change record by id.
func (d *Document) TrackChange(id string) (TrackChange, bool) {
	el := d.lookup(func() map[string]*xmltree.Element { return d.trackChanges }, id)
	if el == nil {
		return TrackChange{}, false
	}
	return TrackChange{record{el}}, true
}

// TrackChangeAuthor resolves a tracked-change author record by id.
func (d *Document) TrackChangeAuthor(id string) (TrackChangeAuthor, bool) {
	el := d.lookup(func() map[string]*xmltree.Element { return d.trackAuthors }, id)
	if el == nil {
		return TrackChangeAuthor{}, false
	}
	return TrackChangeAuthor{record{el}}, true
}

// RunFilter narrows FindRunsByStyle to runs whose resolved character
// properties match every set field.
type RunFilter struct {
	TextColor      string
	UnderlineType  string
	UnderlineColor string
	CharPrIDRef    string
}

// FindRunsByStyle returns every run matching the filter, in document
// order.
func (d *Document) FindRunsByStyle(filter RunFilter) []*Run {
	var out []*Run
	wantChar := strings.TrimSpace(filter.CharPrIDRef)
	for _, para := range d.Paragraphs() {
		for _, run := range para.Runs() {
			if wantChar != "" && strings.TrimSpace(run.CharPrIDRef()) != wantChar {
				continue
			}
			if filter.TextColor != "" || filter.UnderlineType != "" || filter.UnderlineColor != "" {
				style, ok := d.CharProperty(run.CharPrIDRef())
				if !ok {
					continue
				}
				if filter.TextColor != "" && style.TextColor() != filter.TextColor {
					continue
				}
				if filter.UnderlineType != "" && style.UnderlineType() != filter.UnderlineType {
					continue
				}
				if filter.UnderlineColor != "" && style.UnderlineColor() != filter.UnderlineColor {
					continue
				}
			}
			out = append(out, run)
		}
	}
	return out
}

// ReplaceTextInRuns substitutes search in every run matching the
// filter and returns the total replacement count.
func (d *Document) ReplaceTextInRuns(search, replacement string, filter RunFilter) (int, error) {
	return d.replaceTextInRuns(search, replacement, filter, -1)
}

// ReplaceTextInRunsN is ReplaceTextInRuns with a shared replacement
// budget across all matched runs. A non-positive limit returns 0.
func (d *Document) ReplaceTextInRunsN(search, replacement string, filter RunFilter, limit int) (int, error) {
	if search == "" {
		return 0, ErrEmptySearch
	}
	if limit <= 0 {
		return 0, nil
	}
	return d.replaceTextInRuns(search, replacement, filter, limit)
}

func (d *Document) replaceTextInRuns(search, replacement string, filter RunFilter, limit int) (int, error) {
	if search == "" {
		return 0, ErrEmptySearch
	}
	total := 0
	for _, run := range d.FindRunsByStyle(filter) {
		if limit >= 0 && total >= limit {
			break
		}
		budget := -1
		if limit >= 0 {
			budget = limit - total
		}
		origCharPr := run.CharPrIDRef()
		n, err := run.replaceText(search, replacement, budget)
		if err != nil {
			return total, err
		}
		if n > 0 && origCharPr != "" {
			run.SetCharPrIDRef(origCharPr)
		}
		total += n
	}
	return total, nil
}

var sectionIndexPattern = regexp.MustCompile(`section(\d+)\.xml$`)

// AddSection appends a new empty section part, registers it in the
// manifest and spine, and returns it.
func (d *Document) AddSection() (*Section, error) {
	return d.addSection(len(d.sections) - 1)
}

// AddSectionAfter inserts a new section after the section at index.
func (d *Document) AddSectionAfter(index int) (*Section, error) {
	if index < 0 || index >= len(d.sections) {
		return nil, fmt.Errorf("oxml: section index %d out of bounds for %d sections: %w",
			index, len(d.sections), ErrSectionIndex)
	}
	return d.addSection(index)
}

func (d *Document) addSection(after int) (*Section, error) {
	next := 0
	for _, sec := range d.sections {
		if m := sectionIndexPattern.FindStringSubmatch(sec.name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
				next = n + 1
			}
		}
	}
	name := fmt.Sprintf("Contents/section%d.xml", next)
	id := fmt.Sprintf("section%d", next)

	root, err := xmltree.Parse(blankSectionXML)
	if err != nil {
		return nil, err
	}
	sec := newSection(name, root, d)
	sec.MarkDirty()
	d.pkg.SetPart(name, sec.Serialize())

	spineAfter := ""
	if after >= 0 && after < len(d.sections) {
		if m := sectionIndexPattern.FindStringSubmatch(d.sections[after].name); m != nil {
			spineAfter = "section" + m[1]
		}
	}
	if err := d.pkg.AddManifestItem(id, name, "application/xml", true, spineAfter); err != nil {
		return nil, err
	}

	pos := after + 1
	d.sections = append(d.sections, nil)
	copy(d.sections[pos+1:], d.sections[pos:])
	d.sections[pos] = sec

	if header, err := d.primaryHeader(); err == nil {
		header.SetSecCnt(len(d.sections))
	}
	return sec, nil
}

// RemoveSection deletes the section at index along with its part and
// manifest entries. The document's last section cannot be removed.
func (d *Document) RemoveSection(index int) error {
	if index < 0 || index >= len(d.sections) {
		return fmt.Errorf("oxml: section index %d out of bounds for %d sections: %w",
			index, len(d.sections), ErrSectionIndex)
	}
	if len(d.sections) == 1 {
		return ErrLastSection
	}
	sec := d.sections[index]
	if err := d.pkg.RemoveManifestItem(sec.name); err != nil {
		return err
	}
	d.sections = append(d.sections[:index], d.sections[index+1:]...)
	if header, err := d.primaryHeader(); err == nil {
		header.SetSecCnt(len(d.sections))
	}
	return nil
}

// RemoveSectionByRef removes the given section wrapper.
func (d *Document) RemoveSectionByRef(sec *Section) error {
	for i, s := range d.sections {
		if s == sec {
			return d.RemoveSection(i)
		}
	}
	return ErrForeignPart
}

// MemoFieldOptions configures AttachMemoField.
type MemoFieldOptions struct {
	FieldID     string
	Author      string
	Created     string
	Number      int
	CharPrIDRef string
}

// AttachMemoField anchors memo in paragraph by inserting a MEMO field
// control around the paragraph's content. Returns the field id.
func (d *Document) AttachMemoField(para *Paragraph, memo *Memo, opts MemoFieldOptions) (string, error) {
	if para.Section() == nil {
		return "", errors.New("oxml: paragraph must belong to a section before anchoring a memo")
	}
	if memo.Group() == nil || memo.Group().Section() == nil {
		return "", errors.New("oxml: memo is not attached to a section")
	}

	fieldID := opts.FieldID
	if fieldID == "" {
		fieldID = strings.ReplaceAll(uuid.New().String(), "-", "")
	}
	author := opts.Author
	if author == "" {
		author = memo.Attr("author")
	}
	created := opts.Created
	if created == "" {
		created = memo.Attr("createDateTime")
	}
	if created == "" {
		created = time.Now().Format("2006-01-02 15:04:05")
	}
	number := opts.Number
	if number < 1 {
		number = 1
	}
	charRef := opts.CharPrIDRef
	if charRef == "" {
		charRef = para.CharPrIDRef()
	}
	if charRef == "" {
		charRef = memo.CharPrIDRef()
	}
	if charRef == "" {
		charRef = "0"
	}

	runBegin := xmltree.New("hp:run")
	runBegin.SetAttr("charPrIDRef", charRef)
	ctrl := xmltree.New("hp:ctrl")
	fb := xmltree.New("hp:fieldBegin")
	fb.SetAttr("id", fieldID)
	fb.SetAttr("type", "MEMO")
	fb.SetAttr("editable", "true")
	fb.SetAttr("dirty", "false")
	fb.SetAttr("fieldid", fieldID)

	params := xmltree.New("hp:parameters")
	params.SetAttr("count", "5")
	params.SetAttr("name", "")
	appendStringParam(params, "ID", memo.ID())
	num := xmltree.New("hp:integerParam")
	num.SetAttr("name", "Number")
	num.Text = strconv.Itoa(number)
	params.Append(num)
	appendStringParam(params, "CreateDateTime", created)
	appendStringParam(params, "Author", author)
	appendStringParam(params, "MemoShapeID", memo.MemoShapeIDRef())
	fb.Append(params)

	anchorID := memo.ID()
	if anchorID == "" {
		anchorID = fieldID
	}
	sub := xmltree.New("hp:subList")
	sub.SetAttr("id", "memo-field-"+anchorID)
	sub.SetAttr("textDirection", "HORIZONTAL")
	sub.SetAttr("lineWrap", "BREAK")
	sub.SetAttr("vertAlign", "TOP")
	subPara := xmltree.New("hp:p")
	subPara.SetAttr("id", "memo-field-"+anchorID+"-p")
	subPara.SetAttr("paraPrIDRef", "0")
	subPara.SetAttr("styleIDRef", "0")
	subPara.SetAttr("pageBreak", "0")
	subPara.SetAttr("columnBreak", "0")
	subPara.SetAttr("merged", "0")
	subRun := xmltree.New("hp:run")
	subRun.SetAttr("charPrIDRef", charRef)
	t := xmltree.New("hp:t")
	t.Text = anchorID
	subRun.Append(t)
	subPara.Append(subRun)
	sub.Append(subPara)
	fb.Append(sub)

	ctrl.Append(fb)
	runBegin.Append(ctrl)

	runEnd := xmltree.New("hp:run")
	runEnd.SetAttr("charPrIDRef", charRef)
	ctrlEnd := xmltree.New("hp:ctrl")
	fe := xmltree.New("hp:fieldEnd")
	fe.SetAttr("beginIDRef", fieldID)
	fe.SetAttr("fieldid", fieldID)
	ctrlEnd.Append(fe)
	runEnd.Append(ctrlEnd)

	para.el.Insert(0, runBegin)
	para.el.Append(runEnd)
	para.Section().MarkDirty()
	return fieldID, nil
}

func appendStringParam(params *xmltree.Element, name, value string) {
	p := xmltree.New("hp:stringParam")
	p.SetAttr("name", name)
	p.Text = value
	params.Append(p)
}

// AddMemo creates a memo in the last section.
func (d *Document) AddMemo(text string, opts MemoOptions) (*Memo, error) {
	sec, err := d.lastSection()
	if err != nil {
		return nil, err
	}
	return sec.AddMemo(text, opts), nil
}

// AddMemoWithAnchor creates a memo and an anchor paragraph carrying a
// MEMO field so the memo is visible. Returns the memo, the anchor
// paragraph, and the field id.
func (d *Document) AddMemoWithAnchor(text, anchorText string, opts MemoOptions, fieldOpts MemoFieldOptions) (*Memo, *Paragraph, string, error) {
	memo, err := d.AddMemo(text, opts)
	if err != nil {
		return nil, nil, "", err
	}
	para := memo.Group().Section().AddParagraph(anchorText, ParagraphOptions{CharPrIDRef: opts.CharPrIDRef})
	fieldID, err := d.AttachMemoField(para, memo, fieldOpts)
	if err != nil {
		return nil, nil, "", err
	}
	return memo, para, fieldID, nil
}

// Serialize renders every dirty part and returns part name → bytes.
func (d *Document) Serialize() map[string][]byte {
	out := make(map[string][]byte)
	for _, sec := range d.sections {
		if sec.Dirty() {
			out[sec.name] = sec.Serialize()
		}
	}
	for _, h := range d.headers {
		if h.Dirty() {
			out[h.name] = h.Serialize()
		}
	}
	for _, sp := range d.masterPages {
		if sp.Dirty() {
			out[sp.name] = sp.Serialize()
		}
	}
	for _, sp := range d.histories {
		if sp.Dirty() {
			out[sp.name] = sp.Serialize()
		}
	}
	return out
}

// ResetDirty clears every part's dirty flag after a successful save.
func (d *Document) ResetDirty() {
	for _, sec := range d.sections {
		sec.ResetDirty()
	}
	for _, h := range d.headers {
		h.ResetDirty()
	}
	for _, sp := range d.masterPages {
		sp.ResetDirty()
	}
	for _, sp := range d.histories {
		sp.ResetDirty()
	}
}

// Flush writes every dirty part (and the version descriptor, if
// changed) into the package and resets the dirty flags.
func (d *Document) Flush() {
	for name, data := range d.Serialize() {
		d.pkg.SetPart(name, data)
	}
	if d.version != nil {
		d.version.Flush(d.pkg)
	}
	d.ResetDirty()
}

var blankSectionXML = []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<hs:sec xmlns:hs="http://www.hancom.co.kr/hwpml/2011/section" xmlns:hp="http://www.hancom.co.kr/hwpml/2011/paragraph"><hp:p id="1" paraPrIDRef="0" styleIDRef="0" pageBreak="0" columnBreak="0" merged="0"><hp:run charPrIDRef="0"/></hp:p></hs:sec>`)
