package export

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/sejonglab/hwpx"
)

func sampleDoc(t *testing.T) *hwpx.Document {
	t.Helper()
	doc, err := hwpx.New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.AddParagraph("Hello"); err != nil {
		t.Fatal(err)
	}
	tbl, err := doc.AddTable(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i, text := range []string{"A", "B", "C", "D"} {
		cell, err := tbl.Cell(i/2, i%2)
		if err != nil {
			t.Fatal(err)
		}
		cell.SetText(text)
	}
	return doc
}

func TestText(t *testing.T) {
	got := Text(sampleDoc(t), DefaultTextOptions())
	if !strings.Contains(got, "Hello") {
		t.Errorf("missing paragraph text: %q", got)
	}
	if !strings.Contains(got, "A\tB") || !strings.Contains(got, "C\tD") {
		t.Errorf("missing tab-joined rows: %q", got)
	}
	// Cell text must not leak into paragraph text as well.
	if got2 := strings.Count(got, "A"); got2 != 1 {
		t.Errorf("cell text appears %d times", got2)
	}
}

func TestTextOmitTables(t *testing.T) {
	got := Text(sampleDoc(t), TextOptions{OmitTables: true})
	if strings.Contains(got, "A") {
		t.Errorf("table content present: %q", got)
	}
	if !strings.Contains(got, "Hello") {
		t.Errorf("paragraph text lost: %q", got)
	}
}

func TestTextAlignColumns(t *testing.T) {
	doc, err := hwpx.New()
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := doc.AddTable(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i, text := range []string{"한글", "x", "ab", "y"} {
		cell, err := tbl.Cell(i/2, i%2)
		if err != nil {
			t.Fatal(err)
		}
		cell.SetText(text)
	}

	got := Text(doc, TextOptions{AlignColumns: true})
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), got)
	}
	// "한글" occupies four display columns, "ab" only two, so the
	// second row needs two extra pad spaces before its last cell.
	if lines[0] != "한글  x" {
		t.Errorf("row 0 = %q", lines[0])
	}
	if lines[1] != "ab    y" {
		t.Errorf("row 1 = %q", lines[1])
	}
}

func TestHTMLFullDocument(t *testing.T) {
	got, err := HTML(sampleDoc(t), HTMLOptions{Title: "sample"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Errorf("missing doctype: %q", got[:40])
	}
	if !strings.Contains(got, "<p>Hello</p>") {
		t.Errorf("missing paragraph markup: %q", got)
	}
	if !strings.Contains(got, "<table") || !strings.Contains(got, "<td>A</td>") {
		t.Errorf("missing table markup: %q", got)
	}

	// The output must parse cleanly with the declared title in place.
	node, err := html.Parse(strings.NewReader(got))
	if err != nil {
		t.Fatalf("exported HTML does not parse: %v", err)
	}
	if title := findTitle(node); title != "sample" {
		t.Errorf("title = %q, want sample", title)
	}
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
		return n.FirstChild.Data
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if got := findTitle(c); got != "" {
			return got
		}
	}
	return ""
}

func TestHTMLBodyOnly(t *testing.T) {
	doc, err := hwpx.New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.AddParagraph("Hello"); err != nil {
		t.Fatal(err)
	}
	got, err := HTML(doc, HTMLOptions{BodyOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != "<p>Hello</p>" {
		t.Errorf("body-only output = %q", got)
	}
}

func TestHTMLEscapesText(t *testing.T) {
	doc, err := hwpx.New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.AddParagraph(`<b> & "quotes"`); err != nil {
		t.Fatal(err)
	}
	got, err := HTML(doc, HTMLOptions{BodyOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "<b>") {
		t.Errorf("markup injected: %q", got)
	}
	if !strings.Contains(got, "&lt;b&gt;") || !strings.Contains(got, "&amp;") {
		t.Errorf("text not escaped: %q", got)
	}
}

func TestHTMLSectionRule(t *testing.T) {
	doc, err := hwpx.New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.Object().AddSection(); err != nil {
		t.Fatal(err)
	}
	got, err := HTML(doc, HTMLOptions{BodyOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "<hr") {
		t.Errorf("missing section rule: %q", got)
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(sampleDoc(t), MarkdownOptions{})
	for _, want := range []string{"Hello", "| A | B |", "| --- | --- |", "| C | D |"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}

func TestMarkdownPadsShortRows(t *testing.T) {
	doc := sampleDoc(t)
	tbl := doc.Sections()[0].Paragraphs()[2].Tables()[0]
	if err := tbl.MergeCells(1, 0, 1, 1); err != nil {
		t.Fatal(err)
	}
	got := Markdown(doc, MarkdownOptions{})
	if !strings.Contains(got, "| C |  |") {
		t.Errorf("merged row not padded: %q", got)
	}
}

func TestMarkdownOmitTables(t *testing.T) {
	got := Markdown(sampleDoc(t), MarkdownOptions{OmitTables: true})
	if strings.Contains(got, "|") {
		t.Errorf("table markup present: %q", got)
	}
}
