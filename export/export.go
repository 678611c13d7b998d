// Package export renders document content as plain text, HTML, or
// Markdown. Paragraph text comes from direct runs only, so text inside
// tables is never emitted twice; tables are rendered separately after
// their host paragraph.
package export

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/width"

	"github.com/sejonglab/hwpx"
	"github.com/sejonglab/hwpx/oxml"
	"github.com/sejonglab/hwpx/xmltree"
)

// TextOptions configures the plain-text exporter.
type TextOptions struct {
	// ParagraphSeparator is inserted between paragraphs.
	ParagraphSeparator string

	// SectionSeparator is inserted between sections.
	SectionSeparator string

	// OmitTables drops table content from the output.
	OmitTables bool

	// AlignColumns pads table cells with spaces to a common display
	// width per column instead of joining them with tabs. Wide
	// (East Asian) characters count as two columns.
	AlignColumns bool
}

// DefaultTextOptions mirrors the exporter's historical defaults.
func DefaultTextOptions() TextOptions {
	return TextOptions{
		ParagraphSeparator: "\n",
		SectionSeparator:   "\n\n",
	}
}

// Text renders the document as plain text.
func Text(doc *hwpx.Document, opts TextOptions) string {
	if opts.ParagraphSeparator == "" {
		opts.ParagraphSeparator = "\n"
	}
	if opts.SectionSeparator == "" {
		opts.SectionSeparator = "\n\n"
	}

	var sections []string
	for _, sec := range doc.Sections() {
		var lines []string
		for _, para := range sec.Paragraphs() {
			if text := directText(para); text != "" {
				lines = append(lines, text)
			}
			if opts.OmitTables {
				continue
			}
			for _, tbl := range paragraphTables(para) {
				rows := tableCellText(tbl)
				if opts.AlignColumns {
					lines = append(lines, alignRows(rows)...)
					continue
				}
				for _, row := range rows {
					lines = append(lines, strings.Join(row, "\t"))
				}
			}
		}
		sections = append(sections, strings.Join(lines, opts.ParagraphSeparator))
	}
	return strings.Join(sections, opts.SectionSeparator)
}

// HTMLOptions configures the HTML exporter.
type HTMLOptions struct {
	// OmitTables drops table content from the output.
	OmitTables bool

	// BodyOnly skips the surrounding html/head/body scaffolding.
	BodyOnly bool

	// Title fills the title element of a full document.
	Title string
}

// HTML renders the document as HTML. Sections after the first are
// separated with a horizontal rule.
func HTML(doc *hwpx.Document, opts HTMLOptions) (string, error) {
	var nodes []*html.Node
	for i, sec := range doc.Sections() {
		if i > 0 {
			nodes = append(nodes, elem(atom.Hr))
		}
		for _, para := range sec.Paragraphs() {
			if text := directText(para); text != "" {
				p := elem(atom.P)
				p.AppendChild(textNode(text))
				nodes = append(nodes, p)
			}
			if opts.OmitTables {
				continue
			}
			for _, tbl := range paragraphTables(para) {
				rows := tableCellText(tbl)
				if len(rows) == 0 {
					continue
				}
				table := elem(atom.Table)
				table.Attr = []html.Attribute{{Key: "border", Val: "1"}}
				for _, row := range rows {
					tr := elem(atom.Tr)
					for _, cell := range row {
						td := elem(atom.Td)
						td.AppendChild(textNode(cell))
						tr.AppendChild(td)
					}
					table.AppendChild(tr)
				}
				nodes = append(nodes, table)
			}
		}
	}

	var sb strings.Builder
	if opts.BodyOnly {
		for _, n := range nodes {
			if err := html.Render(&sb, n); err != nil {
				return "", err
			}
		}
		return sb.String(), nil
	}

	title := opts.Title
	if title == "" {
		title = "HWPX Document"
	}
	root := fullDocument(title, nodes)
	for n := root; n != nil; n = n.NextSibling {
		if err := html.Render(&sb, n); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// MarkdownOptions configures the Markdown exporter.
type MarkdownOptions struct {
	// OmitTables drops table content from the output.
	OmitTables bool

	// SectionSeparator is inserted between sections.
	SectionSeparator string
}

// Markdown renders the document as Markdown. The first table row
// becomes the header row; shorter data rows are padded to its width.
func Markdown(doc *hwpx.Document, opts MarkdownOptions) string {
	if opts.SectionSeparator == "" {
		opts.SectionSeparator = "\n---\n\n"
	}

	var sections []string
	for _, sec := range doc.Sections() {
		var lines []string
		for _, para := range sec.Paragraphs() {
			if text := directText(para); text != "" {
				lines = append(lines, text, "")
			}
			if opts.OmitTables {
				continue
			}
			for _, tbl := range paragraphTables(para) {
				rows := tableCellText(tbl)
				if len(rows) == 0 {
					continue
				}
				header := rows[0]
				lines = append(lines, "| "+strings.Join(header, " | ")+" |")
				dashes := make([]string, len(header))
				for i := range dashes {
					dashes[i] = "---"
				}
				lines = append(lines, "| "+strings.Join(dashes, " | ")+" |")
				for _, row := range rows[1:] {
					for len(row) < len(header) {
						row = append(row, "")
					}
					lines = append(lines, "| "+strings.Join(row[:len(header)], " | ")+" |")
				}
				lines = append(lines, "")
			}
		}
		sections = append(sections, strings.TrimRight(strings.Join(lines, "\n"), "\n"))
	}
	return strings.Join(sections, opts.SectionSeparator)
}

// directText concatenates the text of a paragraph's direct runs,
// skipping anything nested in tables or other objects.
func directText(p *oxml.Paragraph) string {
	var sb strings.Builder
	for _, run := range p.Runs() {
		sb.WriteString(run.Text())
	}
	return sb.String()
}

func paragraphTables(p *oxml.Paragraph) []*xmltree.Element {
	return p.Element().Descendants("tbl")
}

// tableCellText reads the physical cell grid of a table element as
// trimmed strings, row-major.
func tableCellText(tbl *xmltree.Element) [][]string {
	var rows [][]string
	for _, tr := range tbl.FindAll("tr") {
		var row []string
		for _, tc := range tr.FindAll("tc") {
			var sb strings.Builder
			for _, t := range tc.Descendants("t") {
				sb.WriteString(t.GatherText())
			}
			row = append(row, strings.TrimSpace(sb.String()))
		}
		rows = append(rows, row)
	}
	return rows
}

// alignRows pads each column to the widest display width in it.
func alignRows(rows [][]string) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(cell)
			if i < len(row)-1 {
				sb.WriteString(strings.Repeat(" ", widths[i]-displayWidth(cell)))
			}
		}
		out = append(out, sb.String())
	}
	return out
}

// displayWidth counts terminal columns: East Asian wide and fullwidth
// runes take two, everything else one.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

func elem(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// fullDocument wraps body content in doctype, html, head, and body
// nodes, returning the doctype as the head of a sibling chain.
func fullDocument(title string, body []*html.Node) *html.Node {
	doctype := &html.Node{Type: html.DoctypeNode, Data: "html"}

	root := elem(atom.Html)
	root.Attr = []html.Attribute{{Key: "lang", Val: "ko"}}

	head := elem(atom.Head)
	meta := elem(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "utf-8"}}
	head.AppendChild(meta)
	titleEl := elem(atom.Title)
	titleEl.AppendChild(textNode(title))
	head.AppendChild(titleEl)
	root.AppendChild(head)

	bodyEl := elem(atom.Body)
	for _, n := range body {
		bodyEl.AppendChild(n)
	}
	root.AppendChild(bodyEl)

	doctype.NextSibling = root
	return doctype
}
