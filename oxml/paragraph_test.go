package oxml

import (
	"errors"
	"strings"
	"testing"
)

func TestParagraphTextRoundTrip(t *testing.T) {
	sec := testSection(t)
	para := sec.Paragraphs()[0]
	if got := para.Text(); got != "first" {
		t.Errorf("Text = %q, want first", got)
	}
	para.SetText("changed")
	if got := para.Text(); got != "changed" {
		t.Errorf("Text = %q, want changed", got)
	}
	if !sec.Dirty() {
		t.Error("section not dirty after SetText")
	}
}

func TestSetTextBlanksOtherRuns(t *testing.T) {
	sec := testSection(t)
	para := sec.Paragraphs()[0]
	para.AddRun("second")
	para.SetText("only")
	if got := para.Text(); got != "only" {
		t.Errorf("Text = %q, want only", got)
	}
}

func TestSetTextCreatesRun(t *testing.T) {
	sec := testSection(t)
	para := sec.AddParagraph("", ParagraphOptions{SkipRun: true})
	if got := len(para.Runs()); got != 0 {
		t.Fatalf("fresh paragraph has %d runs", got)
	}
	para.SetText("created")
	if got := para.Text(); got != "created" {
		t.Errorf("Text = %q, want created", got)
	}
}

func TestReplaceText(t *testing.T) {
	sec := testSection(t)
	para := sec.AddParagraph("foofoo", ParagraphOptions{})
	run := para.Runs()[0]

	n, err := run.ReplaceText("foo", "bar")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("replacements = %d, want 2", n)
	}
	if got := run.Text(); got != "barbar" {
		t.Errorf("Text = %q, want barbar", got)
	}
}

func TestReplaceTextN(t *testing.T) {
	sec := testSection(t)
	para := sec.AddParagraph("foofoo", ParagraphOptions{})
	run := para.Runs()[0]

	n, err := run.ReplaceTextN("foo", "bar", 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("replacements = %d, want 1", n)
	}
	if got := run.Text(); got != "barfoo" {
		t.Errorf("Text = %q, want barfoo", got)
	}

	if n, err := run.ReplaceTextN("foo", "bar", 0); err != nil || n != 0 {
		t.Errorf("limit 0: n = %d, err = %v", n, err)
	}
	if n, err := run.ReplaceTextN("foo", "bar", -3); err != nil || n != 0 {
		t.Errorf("negative limit: n = %d, err = %v", n, err)
	}
}

func TestReplaceTextEmptySearch(t *testing.T) {
	sec := testSection(t)
	run := sec.Paragraphs()[0].Runs()[0]
	if _, err := run.ReplaceText("", "x"); !errors.Is(err, ErrEmptySearch) {
		t.Errorf("err = %v, want ErrEmptySearch", err)
	}
}

func TestHyperlink(t *testing.T) {
	sec := testSection(t)
	para := sec.AddParagraph("", ParagraphOptions{SkipRun: true})
	para.AddHyperlink("https://example.com", "example")

	links := para.Hyperlinks()
	if len(links) != 1 {
		t.Fatalf("got %d hyperlinks, want 1", len(links))
	}
	if links[0].URL != "https://example.com" {
		t.Errorf("URL = %q", links[0].URL)
	}
	if links[0].Text != "example" {
		t.Errorf("display text = %q", links[0].Text)
	}
	if !strings.Contains(para.Text(), "example") {
		t.Errorf("paragraph text %q missing display text", para.Text())
	}
}

func TestBookmarks(t *testing.T) {
	sec := testSection(t)
	para := sec.Paragraphs()[0]
	para.AddBookmark("mark1")
	para.AddBookmark("mark2")
	got := para.Bookmarks()
	if len(got) != 2 || got[0] != "mark1" || got[1] != "mark2" {
		t.Errorf("Bookmarks = %v", got)
	}
}

func TestPageAndColumnBreaks(t *testing.T) {
	sec := testSection(t)
	para := sec.AddParagraph("x", ParagraphOptions{PageBreak: true})
	if !para.PageBreak() {
		t.Error("PageBreak not set from options")
	}
	para.SetColumnBreak(true)
	if !para.ColumnBreak() {
		t.Error("ColumnBreak not set")
	}
	para.SetPageBreak(false)
	if para.PageBreak() {
		t.Error("PageBreak not cleared")
	}
}

func TestNoOpAttributeWritesStayClean(t *testing.T) {
	sec := testSection(t)
	para := sec.Paragraphs()[0]
	sec.ResetDirty()

	para.SetStyleIDRef(para.StyleIDRef())
	para.SetParaPrIDRef(para.ParaPrIDRef())
	para.SetPageBreak(para.PageBreak())
	if sec.Dirty() {
		t.Error("no-op paragraph writes dirtied the section")
	}

	run := para.Runs()[0]
	run.SetCharPrIDRef(run.CharPrIDRef())
	run.SetText(run.Text())
	if sec.Dirty() {
		t.Error("no-op run writes dirtied the section")
	}

	para.SetStyleIDRef("7")
	if !sec.Dirty() {
		t.Error("changed write did not dirty the section")
	}
}

func TestParagraphIDsDistinct(t *testing.T) {
	sec := testSection(t)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		p := sec.AddParagraph("x", ParagraphOptions{})
		id := p.ID()
		if id == "" {
			t.Fatal("paragraph created without id")
		}
		if seen[id] {
			t.Fatalf("duplicate paragraph id %s", id)
		}
		seen[id] = true
	}
}
