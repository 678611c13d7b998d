package oxml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sejonglab/hwpx/xmltree"
)

// Default cell dimensions in HWPUNIT (7200 per inch), used when a
// table is created without an explicit overall size.
const (
	defaultCellWidth  = 7200
	defaultCellHeight = 1800
)

var ErrTableDimensions = errors.New("oxml: table rows and cols must be positive")

// TableOptions configures table creation.
type TableOptions struct {
	// Width and Height are the overall table size in HWPUNIT. Zero
	// means derive from the row/column count and the default cell
	// size.
	Width  int
	Height int

	// BorderFillIDRef is applied to the table and every cell.
	BorderFillIDRef string

	// CharPrIDRef is applied to the run wrapping the table and the
	// runs inside each cell.
	CharPrIDRef string
}

// Table wraps an hp:tbl element.
type Table struct {
	el    *xmltree.Element
	owner part
	sec   *Section
}

// Element returns the underlying hp:tbl element.
func (t *Table) Element() *xmltree.Element { return t.el }

func (t *Table) markDirty() {
	if t.owner != nil {
		t.owner.MarkDirty()
	}
}

// RowCount returns the declared row count.
func (t *Table) RowCount() int { return atoiDefault(t.el.AttrDefault("rowCnt", "0")) }

// ColCount returns the declared column count.
func (t *Table) ColCount() int { return atoiDefault(t.el.AttrDefault("colCnt", "0")) }

// BorderFillIDRef returns the table's border-fill reference, or "".
func (t *Table) BorderFillIDRef() string { return t.el.AttrDefault("borderFillIDRef", "") }

// Rows returns a snapshot of the table's physical rows.
func (t *Table) Rows() []*TableRow {
	els := t.el.FindAll("tr")
	rows := make([]*TableRow, len(els))
	for i, el := range els {
		rows[i] = &TableRow{el: el, table: t}
	}
	return rows
}

// Width returns the overall table width from hp:sz.
func (t *Table) Width() int {
	if sz := t.el.Find("sz"); sz != nil {
		return atoiDefault(sz.AttrDefault("width", "0"))
	}
	return 0
}

// Height returns the overall table height from hp:sz.
func (t *Table) Height() int {
	if sz := t.el.Find("sz"); sz != nil {
		return atoiDefault(sz.AttrDefault("height", "0"))
	}
	return 0
}

func (t *Table) setSize(width, height int) {
	sz := t.el.Find("sz")
	if sz == nil {
		sz = xmltree.New("hp:sz")
		sz.SetAttr("width", "0")
		sz.SetAttr("widthRelTo", "ABSOLUTE")
		sz.SetAttr("height", "0")
		sz.SetAttr("heightRelTo", "ABSOLUTE")
		sz.SetAttr("protect", "0")
		t.el.Insert(0, sz)
	}
	sz.SetAttr("width", strconv.Itoa(width))
	sz.SetAttr("height", strconv.Itoa(height))
}

// GridEntry is one logical position of the table grid: the physical
// cell covering it plus that cell's anchor and span.
type GridEntry struct {
	Cell      *TableCell
	AnchorRow int
	AnchorCol int
	RowSpan   int
	ColSpan   int
}

// Anchor reports whether this entry sits at its cell's anchor address.
func (g GridEntry) Anchor(row, col int) bool {
	return row == g.AnchorRow && col == g.AnchorCol
}

// BuildGrid maps every logical (row, col) position to the physical
// cell covering it. Cells collapsed by a previous merge (width and
// height both zero) are skipped, leaving only the surviving anchor to
// claim the covered positions.
func (t *Table) BuildGrid() [][]GridEntry {
	rows, cols := t.RowCount(), t.ColCount()
	grid := make([][]GridEntry, rows)
	for i := range grid {
		grid[i] = make([]GridEntry, cols)
	}
	for _, row := range t.Rows() {
		for _, cell := range row.Cells() {
			w, h := cell.Size()
			if w == 0 && h == 0 {
				continue
			}
			ar, ac := cell.Address()
			rs, cs := cell.Span()
			for r := ar; r < ar+rs && r < rows; r++ {
				for c := ac; c < ac+cs && c < cols; c++ {
					grid[r][c] = GridEntry{Cell: cell, AnchorRow: ar, AnchorCol: ac, RowSpan: rs, ColSpan: cs}
				}
			}
		}
	}
	return grid
}

// Cell returns the cell covering the logical position (row, col).
func (t *Table) Cell(row, col int) (*TableCell, error) {
	rows, cols := t.RowCount(), t.ColCount()
	if row < 0 || col < 0 || row >= rows || col >= cols {
		return nil, fmt.Errorf("oxml: cell (%d,%d) out of bounds for %dx%d table", row, col, rows, cols)
	}
	entry := t.BuildGrid()[row][col]
	if entry.Cell == nil {
		return nil, fmt.Errorf("oxml: no cell covers (%d,%d) in %dx%d table", row, col, rows, cols)
	}
	return entry.Cell, nil
}

// MergeCells merges the rectangle (r1,c1)-(r2,c2) into its top-left
// cell. The range is normalized first. The merged cell's size is the
// sum of the anchor widths across the covered columns and the anchor
// heights across the covered rows; every other covered cell is
// collapsed in place.
func (t *Table) MergeCells(r1, c1, r2, c2 int) error {
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	rows, cols := t.RowCount(), t.ColCount()
	if r1 < 0 || c1 < 0 || r2 >= rows || c2 >= cols {
		return fmt.Errorf("oxml: merge range (%d,%d)-(%d,%d) out of bounds for %dx%d table", r1, c1, r2, c2, rows, cols)
	}

	grid := t.BuildGrid()
	anchor := grid[r1][c1].Cell
	if anchor == nil {
		return fmt.Errorf("oxml: no cell covers (%d,%d) in %dx%d table", r1, c1, rows, cols)
	}

	width := 0
	for c := c1; c <= c2; c++ {
		if e := grid[r1][c]; e.Cell != nil && e.AnchorCol == c {
			w, _ := e.Cell.Size()
			width += w
		}
	}
	height := 0
	for r := r1; r <= r2; r++ {
		if e := grid[r][c1]; e.Cell != nil && e.AnchorRow == r {
			_, h := e.Cell.Size()
			height += h
		}
	}

	seen := map[*TableCell]bool{anchor: true}
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			cell := grid[r][c].Cell
			if cell == nil || seen[cell] {
				continue
			}
			seen[cell] = true
			cell.setAddress(r1, c1)
			cell.setSpan(1, 1)
			cell.setSize(0, 0)
			cell.clearText()
		}
	}

	anchor.setSpan(r2-r1+1, c2-c1+1)
	anchor.setSize(width, height)
	t.markDirty()
	return nil
}

// SplitMergedCell restores the cells collapsed under the merged cell
// covering (row, col). Splitting an unmerged cell is a no-op that
// returns the cell unchanged. Sizes are split evenly, rounding down.
func (t *Table) SplitMergedCell(row, col int) (*TableCell, error) {
	rows, cols := t.RowCount(), t.ColCount()
	if row < 0 || col < 0 || row >= rows || col >= cols {
		return nil, fmt.Errorf("oxml: cell (%d,%d) out of bounds for %dx%d table", row, col, rows, cols)
	}
	entry := t.BuildGrid()[row][col]
	if entry.Cell == nil {
		return nil, fmt.Errorf("oxml: no cell covers (%d,%d) in %dx%d table", row, col, rows, cols)
	}
	if entry.RowSpan == 1 && entry.ColSpan == 1 {
		return entry.Cell, nil
	}

	anchor := entry.Cell
	w, h := anchor.Size()
	splitW := w / entry.ColSpan
	splitH := h / entry.RowSpan

	// Collapsed siblings are tracked by their stored address: every
	// physical cell pointing at the anchor belongs to the region.
	for ri, tr := range t.el.FindAll("tr") {
		for ci, tc := range tr.FindAll("tc") {
			cell := &TableCell{el: tc, table: t}
			ar, ac := cell.Address()
			if ar != entry.AnchorRow || ac != entry.AnchorCol {
				continue
			}
			cell.setAddress(ri, ci)
			cell.setSpan(1, 1)
			cell.setSize(splitW, splitH)
		}
	}
	t.markDirty()
	return anchor, nil
}

// InsertRow inserts a new row at the given physical index, patterned
// on the row it pushes down (or the last row when appending), and
// redistributes the overall height across the new row count. When the
// insert lands inside a merged region the region's anchor grows to
// cover the new row. Stored cell addresses are shifted rather than
// renumbered so collapsed merge markers keep pointing at their anchor.
func (t *Table) InsertRow(index int) error {
	rows := t.Rows()
	if index < 0 || index > len(rows) {
		return fmt.Errorf("oxml: row index %d out of bounds for %d rows", index, len(rows))
	}
	refIndex := len(rows) - 1
	if index < len(rows) {
		refIndex = index
	}
	grid := t.BuildGrid()
	newHeight := defaultCellHeight
	heights := distributeSize(t.Height(), len(rows)+1)
	if t.Height() > 0 {
		newHeight = heights[index]
	}

	t.shiftRowAddrs(index, 1)
	tr := xmltree.New("hp:tr")
	grown := make(map[*TableCell]bool)
	for ci, entry := range grid[refIndex] {
		cell := entry.Cell
		if cell != nil && index < len(rows) && entry.AnchorRow < index {
			// The new row cuts through this merged region: grow the
			// anchor once and mark the covered position collapsed.
			if !grown[cell] {
				cell.setSpan(entry.RowSpan+1, entry.ColSpan)
				grown[cell] = true
			}
			tr.Append(newCellElement(entry.AnchorRow, entry.AnchorCol, 0, 0, cell.BorderFillIDRef(), ""))
			continue
		}
		width, fill, charPr := defaultCellWidth, "", ""
		if cell != nil {
			w, _ := cell.Size()
			width = w / entry.ColSpan
			fill = cell.BorderFillIDRef()
			charPr = cell.charPrIDRef()
		}
		tr.Append(newCellElement(index, ci, width, newHeight, fill, charPr))
	}
	if index < len(rows) {
		t.el.Insert(t.el.Index(rows[index].el), tr)
	} else {
		t.el.Append(tr)
	}

	t.el.SetAttr("rowCnt", strconv.Itoa(len(rows)+1))
	if t.Height() > 0 {
		t.applyRowHeights(heights)
	}
	t.markDirty()
	return nil
}

// DeleteRow removes the row at the given physical index. The last
// remaining row cannot be deleted.
func (t *Table) DeleteRow(index int) error {
	rows := t.Rows()
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("oxml: row index %d out of bounds for %d rows", index, len(rows))
	}
	if len(rows) == 1 {
		return errors.New("oxml: cannot delete the last table row")
	}
	t.el.Remove(rows[index].el)
	t.shiftRowAddrs(index+1, -1)
	t.el.SetAttr("rowCnt", strconv.Itoa(len(rows)-1))
	t.markDirty()
	return nil
}

// InsertColumn inserts a new column at the given physical index in
// every row and redistributes the overall width across the new column
// count. When the insert lands inside a merged region the region's
// anchor grows to cover the new column. Stored cell addresses are
// shifted rather than renumbered so collapsed merge markers keep
// pointing at their anchor.
func (t *Table) InsertColumn(index int) error {
	cols := t.ColCount()
	if index < 0 || index > cols {
		return fmt.Errorf("oxml: column index %d out of bounds for %d columns", index, cols)
	}
	refIndex := cols - 1
	if index < cols {
		refIndex = index
	}
	grid := t.BuildGrid()
	newWidth := defaultCellWidth
	widths := distributeSize(t.Width(), cols+1)
	if t.Width() > 0 {
		newWidth = widths[index]
	}

	t.shiftColAddrs(index, 1)
	grown := make(map[*TableCell]bool)
	for ri, row := range t.Rows() {
		cells := row.Cells()
		entry := grid[ri][refIndex]
		cell := entry.Cell
		var el *xmltree.Element
		if cell != nil && index < cols && entry.AnchorCol < index {
			if !grown[cell] {
				cell.setSpan(entry.RowSpan, entry.ColSpan+1)
				grown[cell] = true
			}
			el = newCellElement(entry.AnchorRow, entry.AnchorCol, 0, 0, cell.BorderFillIDRef(), "")
		} else {
			height, fill, charPr := defaultCellHeight, "", ""
			if cell != nil {
				_, h := cell.Size()
				height = h / entry.RowSpan
				fill = cell.BorderFillIDRef()
				charPr = cell.charPrIDRef()
			}
			el = newCellElement(ri, index, newWidth, height, fill, charPr)
		}
		if index < len(cells) {
			row.el.Insert(row.el.Index(cells[index].el), el)
		} else {
			row.el.Append(el)
		}
	}
	t.el.SetAttr("colCnt", strconv.Itoa(cols+1))
	if t.Width() > 0 {
		t.applyColWidths(widths)
	}
	t.markDirty()
	return nil
}

// DeleteColumn removes the column at the given physical index from
// every row. The last remaining column cannot be deleted.
func (t *Table) DeleteColumn(index int) error {
	cols := t.ColCount()
	if index < 0 || index >= cols {
		return fmt.Errorf("oxml: column index %d out of bounds for %d columns", index, cols)
	}
	if cols == 1 {
		return errors.New("oxml: cannot delete the last table column")
	}
	for _, row := range t.Rows() {
		cells := row.Cells()
		if index < len(cells) {
			row.el.Remove(cells[index].el)
		}
	}
	t.shiftColAddrs(index+1, -1)
	t.el.SetAttr("colCnt", strconv.Itoa(cols-1))
	t.markDirty()
	return nil
}

// shiftRowAddrs moves every stored row address at or past from by
// delta. Shifting stored addresses keeps collapsed merge markers
// pointing at their anchor across structural edits.
func (t *Table) shiftRowAddrs(from, delta int) {
	for _, tr := range t.el.FindAll("tr") {
		for _, tc := range tr.FindAll("tc") {
			cell := &TableCell{el: tc, table: t}
			if r, c := cell.Address(); r >= from {
				cell.setAddress(r+delta, c)
			}
		}
	}
}

func (t *Table) shiftColAddrs(from, delta int) {
	for _, tr := range t.el.FindAll("tr") {
		for _, tc := range tr.FindAll("tc") {
			cell := &TableCell{el: tc, table: t}
			if r, c := cell.Address(); c >= from {
				cell.setAddress(r, c+delta)
			}
		}
	}
}

// applyColWidths resizes every surviving cell so its width is the sum
// of the per-column shares it spans. Collapsed merge markers stay at
// zero size.
func (t *Table) applyColWidths(widths []int) {
	for _, tr := range t.el.FindAll("tr") {
		for _, tc := range tr.FindAll("tc") {
			cell := &TableCell{el: tc, table: t}
			w, h := cell.Size()
			if w == 0 && h == 0 {
				continue
			}
			_, ac := cell.Address()
			_, cs := cell.Span()
			sum := 0
			for c := ac; c < ac+cs && c < len(widths); c++ {
				sum += widths[c]
			}
			cell.setSize(sum, h)
		}
	}
}

// applyRowHeights is applyColWidths for the vertical axis.
func (t *Table) applyRowHeights(heights []int) {
	for _, tr := range t.el.FindAll("tr") {
		for _, tc := range tr.FindAll("tc") {
			cell := &TableCell{el: tc, table: t}
			w, h := cell.Size()
			if w == 0 && h == 0 {
				continue
			}
			ar, _ := cell.Address()
			rs, _ := cell.Span()
			sum := 0
			for r := ar; r < ar+rs && r < len(heights); r++ {
				sum += heights[r]
			}
			cell.setSize(w, sum)
		}
	}
}

// TableRow wraps an hp:tr element.
type TableRow struct {
	el    *xmltree.Element
	table *Table
}

// Element returns the underlying hp:tr element.
func (r *TableRow) Element() *xmltree.Element { return r.el }

// Cells returns a snapshot of the row's physical cells.
func (r *TableRow) Cells() []*TableCell {
	els := r.el.FindAll("tc")
	cells := make([]*TableCell, len(els))
	for i, el := range els {
		cells[i] = &TableCell{el: el, table: r.table}
	}
	return cells
}

// TableCell wraps an hp:tc element.
type TableCell struct {
	el    *xmltree.Element
	table *Table
}

// Element returns the underlying hp:tc element.
func (c *TableCell) Element() *xmltree.Element { return c.el }

// Address returns the cell's anchor position (row, col).
func (c *TableCell) Address() (int, int) {
	addr := c.el.Find("cellAddr")
	if addr == nil {
		return 0, 0
	}
	return atoiDefault(addr.AttrDefault("rowAddr", "0")), atoiDefault(addr.AttrDefault("colAddr", "0"))
}

func (c *TableCell) setAddress(row, col int) {
	addr := c.el.Find("cellAddr")
	if addr == nil {
		addr = xmltree.New("hp:cellAddr")
		c.el.Append(addr)
	}
	addr.SetAttr("colAddr", strconv.Itoa(col))
	addr.SetAttr("rowAddr", strconv.Itoa(row))
}

// Span returns the cell's (rowSpan, colSpan), defaulting to (1, 1).
func (c *TableCell) Span() (int, int) {
	span := c.el.Find("cellSpan")
	if span == nil {
		return 1, 1
	}
	rs := atoiDefault(span.AttrDefault("rowSpan", "1"))
	cs := atoiDefault(span.AttrDefault("colSpan", "1"))
	if rs < 1 {
		rs = 1
	}
	if cs < 1 {
		cs = 1
	}
	return rs, cs
}

func (c *TableCell) setSpan(rowSpan, colSpan int) {
	span := c.el.Find("cellSpan")
	if span == nil {
		span = xmltree.New("hp:cellSpan")
		c.el.Append(span)
	}
	span.SetAttr("colSpan", strconv.Itoa(colSpan))
	span.SetAttr("rowSpan", strconv.Itoa(rowSpan))
}

// Size returns the cell's (width, height).
func (c *TableCell) Size() (int, int) {
	sz := c.el.Find("cellSz")
	if sz == nil {
		return 0, 0
	}
	return atoiDefault(sz.AttrDefault("width", "0")), atoiDefault(sz.AttrDefault("height", "0"))
}

func (c *TableCell) setSize(width, height int) {
	sz := c.el.Find("cellSz")
	if sz == nil {
		sz = xmltree.New("hp:cellSz")
		c.el.Append(sz)
	}
	sz.SetAttr("width", strconv.Itoa(width))
	sz.SetAttr("height", strconv.Itoa(height))
}

// BorderFillIDRef returns the cell's border-fill reference, or "".
func (c *TableCell) BorderFillIDRef() string { return c.el.AttrDefault("borderFillIDRef", "") }

func (c *TableCell) charPrIDRef() string {
	if sub := c.el.Find("subList"); sub != nil {
		for _, run := range sub.Descendants("run") {
			if ref := run.AttrDefault("charPrIDRef", ""); ref != "" {
				return ref
			}
		}
	}
	return ""
}

// Paragraphs returns the paragraphs inside the cell's content list.
func (c *TableCell) Paragraphs() []*Paragraph {
	sub := c.el.Find("subList")
	if sub == nil {
		return nil
	}
	els := sub.FindAll("p")
	out := make([]*Paragraph, len(els))
	for i, el := range els {
		out[i] = newParagraph(el, c.table.sec, c.table.owner)
	}
	return out
}

// AddParagraph appends a paragraph with text to the cell's content.
func (c *TableCell) AddParagraph(text string) *Paragraph {
	sub := c.ensureSubList()
	el := newParagraphElement(text, paragraphAttrs{CharPrIDRef: c.charPrIDRef(), IncludeRun: true})
	sub.Append(el)
	c.table.markDirty()
	return newParagraph(el, c.table.sec, c.table.owner)
}

// AddTable nests a table inside the cell's first paragraph.
func (c *TableCell) AddTable(rows, cols int, opts TableOptions) (*Table, error) {
	paras := c.Paragraphs()
	var para *Paragraph
	if len(paras) > 0 {
		para = paras[0]
	} else {
		para = c.AddParagraph("")
	}
	return para.AddTable(rows, cols, opts)
}

// Tables returns tables nested in the cell's paragraphs.
func (c *TableCell) Tables() []*Table {
	var out []*Table
	for _, p := range c.Paragraphs() {
		out = append(out, p.Tables()...)
	}
	return out
}

// Text concatenates the cell's paragraph texts, joined by newlines.
func (c *TableCell) Text() string {
	paras := c.Paragraphs()
	parts := make([]string, len(paras))
	for i, p := range paras {
		parts[i] = p.Text()
	}
	out := ""
	for i, s := range parts {
		if i > 0 {
			out += "\n"
		}
		out += s
	}
	return out
}

// SetText replaces the cell's content, one paragraph per line.
func (c *TableCell) SetText(text string) {
	lines := strings.Split(text, "\n")
	sub := c.ensureSubList()
	paras := c.Paragraphs()
	for i, line := range lines {
		if i < len(paras) {
			paras[i].SetText(line)
		} else {
			c.AddParagraph(line)
		}
	}
	for i := len(lines); i < len(paras); i++ {
		sub.Remove(paras[i].Element())
	}
	if c.table != nil {
		c.table.markDirty()
	}
}

func (c *TableCell) clearText() {
	for _, p := range c.Paragraphs() {
		p.SetText("")
	}
}

func (c *TableCell) ensureSubList() *xmltree.Element {
	sub := c.el.Find("subList")
	if sub == nil {
		sub = newSubListElement()
		c.el.Append(sub)
	}
	return sub
}

// distributeSize splits total into parts integer shares, handing the
// remainder out one unit at a time starting from the earliest part.
func distributeSize(total, parts int) []int {
	if parts <= 0 {
		return nil
	}
	base := total / parts
	rem := total % parts
	out := make([]int, parts)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}

// newTableElement builds an hp:tbl with a full grid of unmerged,
// evenly sized cells.
func newTableElement(rows, cols int, opts TableOptions) (*xmltree.Element, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrTableDimensions
	}
	width := opts.Width
	if width == 0 {
		width = cols * defaultCellWidth
	}
	height := opts.Height
	if height == 0 {
		height = rows * defaultCellHeight
	}
	colWidths := distributeSize(width, cols)
	rowHeights := distributeSize(height, rows)

	tbl := xmltree.New("hp:tbl")
	tbl.SetAttr("id", nextParagraphID())
	tbl.SetAttr("zOrder", "0")
	tbl.SetAttr("numberingType", "TABLE")
	tbl.SetAttr("textWrap", "TOP_AND_BOTTOM")
	tbl.SetAttr("textFlow", "BOTH_SIDES")
	tbl.SetAttr("lock", "0")
	tbl.SetAttr("dropcapstyle", "None")
	tbl.SetAttr("pageBreak", "CELL")
	tbl.SetAttr("repeatHeader", "1")
	tbl.SetAttr("rowCnt", strconv.Itoa(rows))
	tbl.SetAttr("colCnt", strconv.Itoa(cols))
	tbl.SetAttr("cellSpacing", "0")
	if opts.BorderFillIDRef != "" {
		tbl.SetAttr("borderFillIDRef", opts.BorderFillIDRef)
	}
	tbl.SetAttr("noAdjust", "0")

	sz := xmltree.New("hp:sz")
	sz.SetAttr("width", strconv.Itoa(width))
	sz.SetAttr("widthRelTo", "ABSOLUTE")
	sz.SetAttr("height", strconv.Itoa(height))
	sz.SetAttr("heightRelTo", "ABSOLUTE")
	sz.SetAttr("protect", "0")
	tbl.Append(sz)

	pos := xmltree.New("hp:pos")
	pos.SetAttr("treatAsChar", "1")
	pos.SetAttr("affectLSpacing", "0")
	pos.SetAttr("flowWithText", "1")
	pos.SetAttr("allowOverlap", "0")
	pos.SetAttr("holdAnchorAndSO", "0")
	pos.SetAttr("vertRelTo", "PARA")
	pos.SetAttr("horzRelTo", "COLUMN")
	pos.SetAttr("vertAlign", "TOP")
	pos.SetAttr("horzAlign", "LEFT")
	pos.SetAttr("vertOffset", "0")
	pos.SetAttr("horzOffset", "0")
	tbl.Append(pos)

	outMargin := xmltree.New("hp:outMargin")
	outMargin.SetAttr("left", "283")
	outMargin.SetAttr("right", "283")
	outMargin.SetAttr("top", "283")
	outMargin.SetAttr("bottom", "283")
	tbl.Append(outMargin)

	for r := 0; r < rows; r++ {
		tr := xmltree.New("hp:tr")
		for c := 0; c < cols; c++ {
			cell := newCellElement(r, c, colWidths[c], rowHeights[r], opts.BorderFillIDRef, opts.CharPrIDRef)
			tr.Append(cell)
		}
		tbl.Append(tr)
	}
	return tbl, nil
}

// newCellElement builds an hp:tc at the given address and size with an
// empty paragraph inside.
func newCellElement(row, col, width, height int, borderFillIDRef, charPrIDRef string) *xmltree.Element {
	tc := xmltree.New("hp:tc")
	tc.SetAttr("name", "")
	tc.SetAttr("header", "0")
	tc.SetAttr("hasMargin", "0")
	tc.SetAttr("protect", "0")
	tc.SetAttr("editable", "0")
	tc.SetAttr("dirty", "0")
	if borderFillIDRef != "" {
		tc.SetAttr("borderFillIDRef", borderFillIDRef)
	}

	sub := newSubListElement()
	sub.Append(newParagraphElement("", paragraphAttrs{CharPrIDRef: charPrIDRef, IncludeRun: true}))
	tc.Append(sub)

	addr := xmltree.New("hp:cellAddr")
	addr.SetAttr("colAddr", strconv.Itoa(col))
	addr.SetAttr("rowAddr", strconv.Itoa(row))
	tc.Append(addr)

	span := xmltree.New("hp:cellSpan")
	span.SetAttr("colSpan", "1")
	span.SetAttr("rowSpan", "1")
	tc.Append(span)

	cellSz := xmltree.New("hp:cellSz")
	cellSz.SetAttr("width", strconv.Itoa(width))
	cellSz.SetAttr("height", strconv.Itoa(height))
	tc.Append(cellSz)

	margin := xmltree.New("hp:cellMargin")
	margin.SetAttr("left", "141")
	margin.SetAttr("right", "141")
	margin.SetAttr("top", "141")
	margin.SetAttr("bottom", "141")
	tc.Append(margin)

	return tc
}

func newSubListElement() *xmltree.Element {
	sub := xmltree.New("hp:subList")
	sub.SetAttr("id", "")
	sub.SetAttr("textDirection", "HORIZONTAL")
	sub.SetAttr("lineWrap", "BREAK")
	sub.SetAttr("vertAlign", "CENTER")
	sub.SetAttr("linkListIDRef", "0")
	sub.SetAttr("linkListNextIDRef", "0")
	sub.SetAttr("textWidth", "0")
	sub.SetAttr("textHeight", "0")
	sub.SetAttr("hasTextRef", "0")
	sub.SetAttr("hasNumRef", "0")
	return sub
}

// paragraphAttrs carries the style references applied when building a
// fresh hp:p element.
type paragraphAttrs struct {
	ParaPrIDRef string
	StyleIDRef  string
	CharPrIDRef string
	PageBreak   bool
	ColumnBreak bool
	IncludeRun  bool
	Extra       map[string]string
}

func newParagraphElement(text string, attrs paragraphAttrs) *xmltree.Element {
	p := xmltree.New("hp:p")
	p.SetAttr("id", nextParagraphID())
	p.SetAttr("paraPrIDRef", defaultRef(attrs.ParaPrIDRef))
	p.SetAttr("styleIDRef", defaultRef(attrs.StyleIDRef))
	p.SetAttr("pageBreak", boolAttr(attrs.PageBreak))
	p.SetAttr("columnBreak", boolAttr(attrs.ColumnBreak))
	p.SetAttr("merged", "0")
	for name, value := range attrs.Extra {
		p.SetAttr(name, value)
	}

	if attrs.IncludeRun || text != "" {
		run := xmltree.New("hp:run")
		run.SetAttr("charPrIDRef", defaultRef(attrs.CharPrIDRef))
		if text != "" {
			t := xmltree.New("hp:t")
			t.Text = text
			run.Append(t)
		}
		p.Append(run)
	}
	return p
}

func defaultRef(ref string) string {
	if ref == "" {
		return "0"
	}
	return ref
}

func atoiDefault(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
