package oxml

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sejonglab/hwpx/xmltree"
)

// record is the shared shape of all reference-list entries: an id plus
// an attribute/child bag.
type record struct {
	el *xmltree.Element
}

// Element returns the record's underlying element.
func (r record) Element() *xmltree.Element { return r.el }

// ID returns the record's stored id string.
func (r record) ID() string { return r.el.AttrDefault("id", "") }

// Attr returns an attribute of the record element, or "".
func (r record) Attr(name string) string { return r.el.AttrDefault(name, "") }

// CharProperty is a character-formatting record (hh:charPr).
type CharProperty struct{ record }

// Bold reports whether the record carries a bold child.
func (c CharProperty) Bold() bool { return c.el.Find("bold") != nil }

// Italic reports whether the record carries an italic child.
func (c CharProperty) Italic() bool { return c.el.Find("italic") != nil }

// TextColor returns the record's text color attribute, or "".
func (c CharProperty) TextColor() string { return c.Attr("textColor") }

// UnderlineType returns the underline child's type, or "NONE".
func (c CharProperty) UnderlineType() string {
	if u := c.el.Find("underline"); u != nil {
		return u.AttrDefault("type", "NONE")
	}
	return "NONE"
}

// UnderlineColor returns the underline child's color, or "".
func (c CharProperty) UnderlineColor() string {
	if u := c.el.Find("underline"); u != nil {
		return u.AttrDefault("color", "")
	}
	return ""
}

// ParaProperty is a paragraph-formatting record (hh:paraPr).
type ParaProperty struct{ record }

// Align returns the horizontal alignment from the align child, or "".
func (p ParaProperty) Align() string {
	if a := p.el.Find("align"); a != nil {
		return a.AttrDefault("horizontal", "")
	}
	return ""
}

// BorderFill is a border/fill record (hh:borderFill).
type BorderFill struct{ record }

// Style is a named style record (hh:style).
type Style struct{ record }

// Name returns the style's name attribute.
func (s Style) Name() string { return s.Attr("name") }

// Bullet is a bullet-numbering record (hh:bullet).
type Bullet struct{ record }

// MemoShape is a memo-appearance record (hh:memoPr).
type MemoShape struct{ record }

// TrackChange is a tracked-change record (hh:trackChange).
type TrackChange struct{ record }

// TrackChangeAuthor is a tracked-change author record.
type TrackChangeAuthor struct{ record }

// FontFace is a font declaration record (hh:fontface).
type FontFace struct{ record }

// normalizeID reduces an id to its canonical numeric form, so "03"
// and "3" compare equal. Returns ok=false for non-numeric ids.
func normalizeID(id string) (string, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n < 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}

// findRecordByID matches first on the raw id string, then on numeric
// equivalence.
func findRecordByID(els []*xmltree.Element, id string) *xmltree.Element {
	for _, el := range els {
		if el.AttrDefault("id", "") == id {
			return el
		}
	}
	want, ok := normalizeID(id)
	if !ok {
		return nil
	}
	for _, el := range els {
		if got, ok := normalizeID(el.AttrDefault("id", "")); ok && got == want {
			return el
		}
	}
	return nil
}

// recordMap registers both the raw and normalized id of every record;
// the first writer wins on collision.
func recordMap(els []*xmltree.Element) map[string]*xmltree.Element {
	out := make(map[string]*xmltree.Element, len(els))
	for _, el := range els {
		raw := el.AttrDefault("id", "")
		if _, taken := out[raw]; !taken {
			out[raw] = el
		}
		if norm, ok := normalizeID(raw); ok {
			if _, taken := out[norm]; !taken {
				out[norm] = el
			}
		}
	}
	return out
}

// allocateRecordID picks an id for a new record: preferred when free,
// else one past the current numeric maximum, probing upward past any
// collision.
func allocateRecordID(els []*xmltree.Element, preferred string) string {
	taken := make(map[string]bool, len(els))
	max := -1
	for _, el := range els {
		id := el.AttrDefault("id", "")
		taken[id] = true
		if norm, ok := normalizeID(id); ok {
			taken[norm] = true
			if n, _ := strconv.Atoi(norm); n > max {
				max = n
			}
		}
	}
	if preferred != "" && !taken[preferred] {
		if norm, ok := normalizeID(preferred); !ok || !taken[norm] {
			return preferred
		}
	}
	n := max + 1
	for taken[strconv.Itoa(n)] {
		n++
	}
	return strconv.Itoa(n)
}

// CharProperties returns the header's character-property records.
func (h *Header) CharProperties() []CharProperty {
	els := h.collectionRecords("charProperties", "charPr")
	out := make([]CharProperty, len(els))
	for i, el := range els {
		out[i] = CharProperty{record{el}}
	}
	return out
}

// CharPropertyByID looks a record up by raw or numeric-equivalent id.
func (h *Header) CharPropertyByID(id string) (CharProperty, bool) {
	el := findRecordByID(h.collectionRecords("charProperties", "charPr"), id)
	if el == nil {
		return CharProperty{}, false
	}
	return CharProperty{record{el}}, true
}

// ParaProperties returns the header's paragraph-property records.
func (h *Header) ParaProperties() []ParaProperty {
	els := h.collectionRecords("paraProperties", "paraPr")
	out := make([]ParaProperty, len(els))
	for i, el := range els {
		out[i] = ParaProperty{record{el}}
	}
	return out
}

// ParaPropertyByID looks a record up by raw or numeric-equivalent id.
func (h *Header) ParaPropertyByID(id string) (ParaProperty, bool) {
	el := findRecordByID(h.collectionRecords("paraProperties", "paraPr"), id)
	if el == nil {
		return ParaProperty{}, false
	}
	return ParaProperty{record{el}}, true
}

// BorderFills returns the header's border-fill records.
func (h *Header) BorderFills() []BorderFill {
	els := h.collectionRecords("borderFills", "borderFill")
	out := make([]BorderFill, len(els))
	for i, el := range els {
		out[i] = BorderFill{record{el}}
	}
	return out
}

// BorderFillByID looks a record up by raw or numeric-equivalent id.
func (h *Header) BorderFillByID(id string) (BorderFill, bool) {
	el := findRecordByID(h.collectionRecords("borderFills", "borderFill"), id)
	if el == nil {
		return BorderFill{}, false
	}
	return BorderFill{record{el}}, true
}

// Styles returns the header's style records.
func (h *Header) Styles() []Style {
	els := h.collectionRecords("styles", "style")
	out := make([]Style, len(els))
	for i, el := range els {
		out[i] = Style{record{el}}
	}
	return out
}

// Bullets returns the header's bullet records.
func (h *Header) Bullets() []Bullet {
	els := h.collectionRecords("bullets", "bullet")
	out := make([]Bullet, len(els))
	for i, el := range els {
		out[i] = Bullet{record{el}}
	}
	return out
}

// MemoShapes returns the header's memo-shape records.
func (h *Header) MemoShapes() []MemoShape {
	els := h.collectionRecords("memoProperties", "memoPr")
	out := make([]MemoShape, len(els))
	for i, el := range els {
		out[i] = MemoShape{record{el}}
	}
	return out
}

// TrackChanges returns the header's tracked-change records.
func (h *Header) TrackChanges() []TrackChange {
	els := h.collectionRecords("trackChanges", "trackChange")
	out := make([]TrackChange, len(els))
	for i, el := range els {
		out[i] = TrackChange{record{el}}
	}
	return out
}

// TrackChangeAuthors returns the header's tracked-change authors.
func (h *Header) TrackChangeAuthors() []TrackChangeAuthor {
	els := h.collectionRecords("trackChangeAuthors", "trackChangeAuthor")
	out := make([]TrackChangeAuthor, len(els))
	for i, el := range els {
		out[i] = TrackChangeAuthor{record{el}}
	}
	return out
}

// FontFaces returns the header's font declarations.
func (h *Header) FontFaces() []FontFace {
	els := h.collectionRecords("fontfaces", "fontface")
	out := make([]FontFace, len(els))
	for i, el := range els {
		out[i] = FontFace{record{el}}
	}
	return out
}

// EnsureOptions drives the ensure-or-create operations. Predicate
// decides whether an existing record already satisfies the request;
// Modify edits the cloned base record before it is appended.
type EnsureOptions struct {
	Predicate func(*xmltree.Element) bool
	Modify    func(*xmltree.Element)

	// BaseID picks the record to clone when nothing matches; the
	// collection's first record is used when empty.
	BaseID string

	// PreferredID is used for the new record when not already taken.
	PreferredID string
}

var errNilPredicate = errors.New("oxml: ensure requires a predicate")

// EnsureCharProperty returns an existing character property matching
// the predicate or creates one by cloning a base record and applying
// Modify.
func (h *Header) EnsureCharProperty(opts EnsureOptions) (CharProperty, error) {
	el, err := h.ensureRecord("charProperties", "charPr", "hh:charPr", opts)
	if err != nil {
		return CharProperty{}, err
	}
	return CharProperty{record{el}}, nil
}

// EnsureParaProperty is the paragraph-property counterpart of
// EnsureCharProperty.
func (h *Header) EnsureParaProperty(opts EnsureOptions) (ParaProperty, error) {
	el, err := h.ensureRecord("paraProperties", "paraPr", "hh:paraPr", opts)
	if err != nil {
		return ParaProperty{}, err
	}
	return ParaProperty{record{el}}, nil
}

func (h *Header) ensureRecord(parentLocal, childLocal, newTag string, opts EnsureOptions) (*xmltree.Element, error) {
	if opts.Predicate == nil {
		return nil, errNilPredicate
	}
	existing := h.collectionRecords(parentLocal, childLocal)
	for _, el := range existing {
		if opts.Predicate(el) {
			return el, nil
		}
	}

	var clone *xmltree.Element
	if opts.BaseID != "" {
		if base := findRecordByID(existing, opts.BaseID); base != nil {
			clone = base.Clone()
		}
	}
	if clone == nil && len(existing) > 0 {
		clone = existing[0].Clone()
	}
	if clone == nil {
		clone = xmltree.New(newTag)
	}
	clone.RemoveAttr("id")
	if opts.Modify != nil {
		opts.Modify(clone)
	}
	clone.SetAttr("id", allocateRecordID(existing, opts.PreferredID))

	col := h.collectionElement(parentLocal, true)
	col.Append(clone)
	col.SetAttr("itemCnt", strconv.Itoa(len(col.FindAll(childLocal))))
	h.MarkDirty()
	return clone, nil
}

// Canonical "basic solid line" border-fill profile. The attribute set
// and each edge child must match exactly for a record to qualify.
var basicBorderFillAttrs = map[string]string{
	"threeD":                "0",
	"shadow":                "0",
	"centerLine":            "NONE",
	"breakCellSeparateLine": "0",
}

type borderEdgeProfile struct {
	local string
	typ   string
	width string
	color string
}

var basicBorderEdges = []borderEdgeProfile{
	{"slash", "NONE", "", ""},
	{"backSlash", "NONE", "", ""},
	{"leftBorder", "SOLID", "0.12 mm", "#000000"},
	{"rightBorder", "SOLID", "0.12 mm", "#000000"},
	{"topBorder", "SOLID", "0.12 mm", "#000000"},
	{"bottomBorder", "SOLID", "0.12 mm", "#000000"},
	{"diagonal", "SOLID", "0.1 mm", "#000000"},
}

func foldWidth(w string) string {
	return strings.ToLower(strings.ReplaceAll(w, " ", ""))
}

func isBasicBorderFill(el *xmltree.Element) bool {
	for name, want := range basicBorderFillAttrs {
		if el.AttrDefault(name, "") != want {
			return false
		}
	}
	for _, edge := range basicBorderEdges {
		child := el.Find(edge.local)
		if child == nil {
			return false
		}
		if child.AttrDefault("type", "") != edge.typ {
			return false
		}
		if edge.width != "" && foldWidth(child.AttrDefault("width", "")) != foldWidth(edge.width) {
			return false
		}
		if edge.color != "" && !strings.EqualFold(child.AttrDefault("color", ""), edge.color) {
			return false
		}
	}
	return el.Find("fillBrush") == nil
}

// FindBasicBorderFillID returns the id of the first border fill
// matching the canonical solid-line profile.
func (h *Header) FindBasicBorderFillID() (string, bool) {
	for _, el := range h.collectionRecords("borderFills", "borderFill") {
		if isBasicBorderFill(el) {
			return el.AttrDefault("id", ""), true
		}
	}
	return "", false
}

// EnsureBasicBorderFill returns the id of a border fill matching the
// canonical profile, synthesizing and appending one when absent.
func (h *Header) EnsureBasicBorderFill() string {
	if id, ok := h.FindBasicBorderFillID(); ok {
		return id
	}

	existing := h.collectionRecords("borderFills", "borderFill")
	el := xmltree.New("hh:borderFill")
	id := allocateRecordID(existing, "")
	el.SetAttr("id", id)
	for _, name := range []string{"threeD", "shadow"} {
		el.SetAttr(name, basicBorderFillAttrs[name])
	}
	el.SetAttr("centerLine", "NONE")
	el.SetAttr("breakCellSeparateLine", "0")

	for _, edge := range basicBorderEdges {
		child := xmltree.New("hh:" + edge.local)
		child.SetAttr("type", edge.typ)
		if edge.width != "" {
			child.SetAttr("width", edge.width)
		}
		if edge.color != "" {
			child.SetAttr("color", edge.color)
		}
		if edge.local == "slash" || edge.local == "backSlash" {
			child.SetAttr("Crooked", "0")
			child.SetAttr("isCounter", "0")
		}
		el.Append(child)
	}

	col := h.collectionElement("borderFills", true)
	col.Append(el)
	col.SetAttr("itemCnt", strconv.Itoa(len(col.FindAll("borderFill"))))
	h.MarkDirty()
	return id
}
