package hwpx

import (
	"fmt"

	"github.com/sejonglab/hwpx/opc"
	"github.com/sejonglab/hwpx/oxml"
)

// FormatWarnings joins warnings into a single human-readable string.
func FormatWarnings(warnings []opc.Warning) string {
	return opc.FormatWarnings(warnings)
}

// RemoveParagraph deletes the paragraph at the given document-wide
// index, counting in the same order Paragraphs returns them.
func (d *Document) RemoveParagraph(index int) error {
	rest := index
	for _, sec := range d.obj.Sections() {
		n := len(sec.Paragraphs())
		if rest >= 0 && rest < n {
			return sec.RemoveParagraph(rest)
		}
		rest -= n
	}
	return fmt.Errorf("hwpx: paragraph index %d out of bounds", index)
}

// ReplaceText replaces search with replacement in every run of the
// document and returns the number of replacements made.
func (d *Document) ReplaceText(search, replacement string) (int, error) {
	return d.obj.ReplaceTextInRuns(search, replacement, oxml.RunFilter{})
}

// ReplaceTextInRuns replaces search in runs matching filter.
func (d *Document) ReplaceTextInRuns(search, replacement string, filter oxml.RunFilter) (int, error) {
	return d.obj.ReplaceTextInRuns(search, replacement, filter)
}

// ReplaceTextInRunsN is ReplaceTextInRuns with an upper bound on the
// number of replacements. A negative limit means no bound.
func (d *Document) ReplaceTextInRunsN(search, replacement string, filter oxml.RunFilter, limit int) (int, error) {
	return d.obj.ReplaceTextInRunsN(search, replacement, filter, limit)
}

// FindRunsByStyle returns the runs whose resolved character
// properties match filter.
func (d *Document) FindRunsByStyle(filter oxml.RunFilter) []*oxml.Run {
	return d.obj.FindRunsByStyle(filter)
}

// EnsureRunStyle returns the id of a character property matching req,
// creating one when no existing record fits.
func (d *Document) EnsureRunStyle(req oxml.RunStyleRequest) (string, error) {
	return d.obj.EnsureRunStyle(req)
}

// EnsureParaStyle returns the id of a paragraph property matching
// req, creating one when no existing record fits.
func (d *Document) EnsureParaStyle(req oxml.ParaStyleRequest) (string, error) {
	return d.obj.EnsureParaStyle(req)
}

// CharProperty looks up a character property by id. Leading zeros in
// the id are ignored.
func (d *Document) CharProperty(id string) (oxml.CharProperty, bool) {
	return d.obj.CharProperty(id)
}

// ParagraphProperty looks up a paragraph property by id.
func (d *Document) ParagraphProperty(id string) (oxml.ParaProperty, bool) {
	return d.obj.ParagraphProperty(id)
}

// BorderFill looks up a border fill by id.
func (d *Document) BorderFill(id string) (oxml.BorderFill, bool) {
	return d.obj.BorderFill(id)
}

// Style looks up a named style by id.
func (d *Document) Style(id string) (oxml.Style, bool) {
	return d.obj.Style(id)
}

// Bullet looks up a bullet definition by id.
func (d *Document) Bullet(id string) (oxml.Bullet, bool) {
	return d.obj.Bullet(id)
}

// MemoShape looks up a memo shape by id.
func (d *Document) MemoShape(id string) (oxml.MemoShape, bool) {
	return d.obj.MemoShape(id)
}

// TrackChange looks up a tracked change record by id.
func (d *Document) TrackChange(id string) (oxml.TrackChange, bool) {
	return d.obj.TrackChange(id)
}

// TrackChangeAuthor looks up a tracked change author by id.
func (d *Document) TrackChangeAuthor(id string) (oxml.TrackChangeAuthor, bool) {
	return d.obj.TrackChangeAuthor(id)
}

// Memos returns every memo across all sections.
func (d *Document) Memos() []*oxml.Memo { return d.obj.Memos() }

// AddMemo appends a memo to the last section's memo group.
func (d *Document) AddMemo(text string, opts oxml.MemoOptions) (*oxml.Memo, error) {
	return d.obj.AddMemo(text, opts)
}

// AttachMemoField wraps para's content in a memo anchor field bound
// to memo and returns the generated field id.
func (d *Document) AttachMemoField(para *oxml.Paragraph, memo *oxml.Memo, opts oxml.MemoFieldOptions) (string, error) {
	return d.obj.AttachMemoField(para, memo, opts)
}

// AddMemoWithAnchor creates a memo, an anchor paragraph holding
// anchorText, and the field linking them.
func (d *Document) AddMemoWithAnchor(text, anchorText string, opts oxml.MemoOptions, fieldOpts oxml.MemoFieldOptions) (*oxml.Memo, *oxml.Paragraph, string, error) {
	return d.obj.AddMemoWithAnchor(text, anchorText, opts, fieldOpts)
}

// RemoveMemo deletes the memo with the given id and reports whether
// it existed.
func (d *Document) RemoveMemo(id string) bool {
	for _, m := range d.obj.Memos() {
		if m.ID() == id {
			m.Remove()
			return true
		}
	}
	return false
}

func (d *Document) lastSectionProps() (*oxml.SectionProperties, error) {
	secs := d.obj.Sections()
	if len(secs) == 0 {
		return nil, oxml.ErrNoSections
	}
	return secs[len(secs)-1].Properties(), nil
}

// SetHeaderText sets the running header text for the given page type
// on the last section. An empty pageType means both pages.
func (d *Document) SetHeaderText(text, pageType string) (*oxml.Paragraph, error) {
	props, err := d.lastSectionProps()
	if err != nil {
		return nil, err
	}
	return props.SetHeaderText(text, pageType), nil
}

// SetFooterText sets the running footer text for the given page type
// on the last section.
func (d *Document) SetFooterText(text, pageType string) (*oxml.Paragraph, error) {
	props, err := d.lastSectionProps()
	if err != nil {
		return nil, err
	}
	return props.SetFooterText(text, pageType), nil
}

// HeaderText returns the last section's running header text.
func (d *Document) HeaderText(pageType string) (string, error) {
	props, err := d.lastSectionProps()
	if err != nil {
		return "", err
	}
	return props.HeaderText(pageType), nil
}

// FooterText returns the last section's running footer text.
func (d *Document) FooterText(pageType string) (string, error) {
	props, err := d.lastSectionProps()
	if err != nil {
		return "", err
	}
	return props.FooterText(pageType), nil
}

// RemoveHeader drops the last section's running header band.
func (d *Document) RemoveHeader(pageType string) error {
	props, err := d.lastSectionProps()
	if err != nil {
		return err
	}
	props.RemoveHeader(pageType)
	return nil
}

// RemoveFooter drops the last section's running footer band.
func (d *Document) RemoveFooter(pageType string) error {
	props, err := d.lastSectionProps()
	if err != nil {
		return err
	}
	props.RemoveFooter(pageType)
	return nil
}

// AddFootnote appends a paragraph to the last section and anchors a
// footnote carrying text in it.
func (d *Document) AddFootnote(text string) (*oxml.Note, error) {
	return d.obj.AddFootnote(text)
}

// AddEndnote appends a paragraph to the last section and anchors an
// endnote carrying text in it.
func (d *Document) AddEndnote(text string) (*oxml.Note, error) {
	return d.obj.AddEndnote(text)
}

// SetColumns declares a multi-column layout on the last section.
func (d *Document) SetColumns(count int, opts oxml.ColumnOptions) (*oxml.ColumnDef, error) {
	return d.obj.SetColumns(count, opts)
}
