package oxml

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sejonglab/hwpx/opc"
)

const testContainerXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<ocf:container xmlns:ocf="urn:oasis:names:tc:opendocument:xmlns:container">
  <ocf:rootfiles>
    <ocf:rootfile full-path="Contents/content.hpf" media-type="application/hwpml-package+xml"/>
  </ocf:rootfiles>
</ocf:container>`

const testManifestXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<opf:package xmlns:opf="http://www.idpf.org/2007/opf/" version="">
  <opf:manifest>
    <opf:item id="header" href="Contents/header.xml" media-type="application/xml"/>
    <opf:item id="section0" href="Contents/section0.xml" media-type="application/xml"/>
  </opf:manifest>
  <opf:spine>
    <opf:itemref idref="header"/>
    <opf:itemref idref="section0"/>
  </opf:spine>
</opf:package>`

const testVersionXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<hv:HCFVersion xmlns:hv="http://www.hancom.co.kr/hwpml/2011/version" tagetApplication="WORDPROCESSOR" major="5" minor="0"/>`

func testPackage(t *testing.T) *opc.Package {
	t.Helper()
	parts := map[string]string{
		opc.MimetypePath:        opc.DefaultMimetype,
		opc.ContainerPath:       testContainerXML,
		opc.ManifestPath:        testManifestXML,
		opc.HeaderPath:          testHeaderXML,
		"Contents/section0.xml": testSectionXML,
		opc.VersionPath:         testVersionXML,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: opc.MimetypePath, Method: zip.Store})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(parts[opc.MimetypePath])); err != nil {
		t.Fatal(err)
	}
	for name, content := range parts {
		if name == opc.MimetypePath {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	pkg, err := opc.OpenBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	return pkg
}

func testDocument(t *testing.T) *Document {
	t.Helper()
	doc, err := FromPackage(testPackage(t))
	if err != nil {
		t.Fatalf("FromPackage: %v", err)
	}
	return doc
}

func TestFromPackage(t *testing.T) {
	doc := testDocument(t)
	if got := len(doc.Sections()); got != 1 {
		t.Fatalf("got %d sections, want 1", got)
	}
	if got := len(doc.Headers()); got != 1 {
		t.Fatalf("got %d headers, want 1", got)
	}
	if doc.Version() == nil {
		t.Fatal("version descriptor missing")
	}
	paras := doc.Paragraphs()
	if len(paras) != 1 || paras[0].Text() != "first" {
		t.Errorf("paragraphs = %d, first text = %q", len(paras), paras[0].Text())
	}
}

func TestSerializeNothingWhenClean(t *testing.T) {
	doc := testDocument(t)
	if got := doc.Serialize(); len(got) != 0 {
		t.Errorf("clean document serialized %d parts", len(got))
	}
}

func TestDocumentAddParagraphMarksSection(t *testing.T) {
	doc := testDocument(t)
	if _, err := doc.AddParagraph("added", ParagraphOptions{}); err != nil {
		t.Fatal(err)
	}
	out := doc.Serialize()
	if len(out) != 1 {
		t.Fatalf("serialized %d parts, want 1", len(out))
	}
	data, ok := out["Contents/section0.xml"]
	if !ok {
		t.Fatal("section part not serialized")
	}
	if !strings.Contains(string(data), "added") {
		t.Error("serialized section missing new paragraph")
	}
}

func TestDocumentFlush(t *testing.T) {
	doc := testDocument(t)
	if _, err := doc.AddParagraph("flushed", ParagraphOptions{}); err != nil {
		t.Fatal(err)
	}
	doc.Flush()

	data, err := doc.Package().GetPart("Contents/section0.xml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "flushed") {
		t.Error("package part not updated by Flush")
	}
	if got := doc.Serialize(); len(got) != 0 {
		t.Errorf("dirty flags survived Flush: %d parts", len(got))
	}
}

func TestEnsureRunStyleDedup(t *testing.T) {
	doc := testDocument(t)
	header := doc.Headers()[0]
	before := len(header.CharProperties())

	id, err := doc.EnsureRunStyle(RunStyleRequest{Bold: true})
	if err != nil {
		t.Fatal(err)
	}
	if id != "03" {
		t.Errorf("bold style id = %q, want existing 03", id)
	}
	if got := len(header.CharProperties()); got != before {
		t.Errorf("reuse changed record count to %d", got)
	}

	italicID, err := doc.EnsureRunStyle(RunStyleRequest{Italic: true})
	if err != nil {
		t.Fatal(err)
	}
	if italicID == id {
		t.Error("italic request returned the bold record")
	}
	if got := len(header.CharProperties()); got != before+1 {
		t.Errorf("record count = %d, want %d", got, before+1)
	}

	again, err := doc.EnsureRunStyle(RunStyleRequest{Italic: true})
	if err != nil {
		t.Fatal(err)
	}
	if again != italicID {
		t.Errorf("repeat request created %q instead of reusing %q", again, italicID)
	}
	if got := len(header.CharProperties()); got != before+1 {
		t.Errorf("repeat request changed record count to %d", got)
	}
}

func TestEnsureRunStyleUnderline(t *testing.T) {
	doc := testDocument(t)
	id, err := doc.EnsureRunStyle(RunStyleRequest{Underline: true})
	if err != nil {
		t.Fatal(err)
	}
	cp, ok := doc.CharProperty(id)
	if !ok {
		t.Fatal("created style not resolvable")
	}
	if got := cp.UnderlineType(); got != "BOTTOM" {
		t.Errorf("UnderlineType = %q, want BOTTOM", got)
	}
}

func TestEnsureParaStyle(t *testing.T) {
	doc := testDocument(t)
	id, err := doc.EnsureParaStyle(ParaStyleRequest{Align: "CENTER"})
	if err != nil {
		t.Fatal(err)
	}
	pp, ok := doc.ParagraphProperty(id)
	if !ok {
		t.Fatal("created paragraph style not resolvable")
	}
	if got := pp.Align(); got != "CENTER" {
		t.Errorf("Align = %q, want CENTER", got)
	}
	again, err := doc.EnsureParaStyle(ParaStyleRequest{Align: "CENTER"})
	if err != nil {
		t.Fatal(err)
	}
	if again != id {
		t.Errorf("repeat request created %q instead of reusing %q", again, id)
	}
}

func TestStyleCacheInvalidation(t *testing.T) {
	doc := testDocument(t)
	if _, ok := doc.CharProperty("3"); !ok {
		t.Fatal(`lookup "3" failed against record "03"`)
	}
	id, err := doc.EnsureRunStyle(RunStyleRequest{Bold: true, Italic: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.CharProperty(id); !ok {
		t.Error("freshly created record invisible through the cache")
	}
}

func TestFindRunsByStyle(t *testing.T) {
	doc := testDocument(t)
	if _, err := doc.AddParagraph("red text", ParagraphOptions{CharPrIDRef: "3", NoInherit: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := doc.AddParagraph("plain text", ParagraphOptions{CharPrIDRef: "0", NoInherit: true}); err != nil {
		t.Fatal(err)
	}

	runs := doc.FindRunsByStyle(RunFilter{TextColor: "#FF0000"})
	if len(runs) != 1 {
		t.Fatalf("got %d runs with red text, want 1", len(runs))
	}
	if got := runs[0].Text(); got != "red text" {
		t.Errorf("matched run text = %q", got)
	}

	runs = doc.FindRunsByStyle(RunFilter{CharPrIDRef: "0"})
	for _, r := range runs {
		if r.CharPrIDRef() != "0" {
			t.Errorf("filter leaked run with ref %q", r.CharPrIDRef())
		}
	}
}

func TestReplaceTextInRuns(t *testing.T) {
	doc := testDocument(t)
	if _, err := doc.AddParagraph("foo and foo", ParagraphOptions{CharPrIDRef: "3", NoInherit: true}); err != nil {
		t.Fatal(err)
	}

	n, err := doc.ReplaceTextInRuns("foo", "bar", RunFilter{CharPrIDRef: "3"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("replacements = %d, want 2", n)
	}
	runs := doc.FindRunsByStyle(RunFilter{CharPrIDRef: "3"})
	if len(runs) != 1 {
		t.Fatalf("style ref lost after replacement: %d runs", len(runs))
	}
	if got := runs[0].Text(); got != "bar and bar" {
		t.Errorf("run text = %q", got)
	}
}

func TestReplaceTextInRunsN(t *testing.T) {
	doc := testDocument(t)
	if _, err := doc.AddParagraph("foofoo", ParagraphOptions{}); err != nil {
		t.Fatal(err)
	}
	n, err := doc.ReplaceTextInRunsN("foo", "bar", RunFilter{}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("replacements = %d, want 1", n)
	}
	if n, err := doc.ReplaceTextInRunsN("foo", "bar", RunFilter{}, 0); err != nil || n != 0 {
		t.Errorf("limit 0: n = %d, err = %v", n, err)
	}
	if _, err := doc.ReplaceTextInRuns("", "x", RunFilter{}); !errors.Is(err, ErrEmptySearch) {
		t.Errorf("empty search err = %v", err)
	}
}

func TestAddSection(t *testing.T) {
	doc := testDocument(t)
	sec, err := doc.AddSection()
	if err != nil {
		t.Fatal(err)
	}
	if got := len(doc.Sections()); got != 2 {
		t.Fatalf("got %d sections, want 2", got)
	}
	if sec.Name() != "Contents/section1.xml" {
		t.Errorf("new section name = %q", sec.Name())
	}
	if !doc.Package().HasPart("Contents/section1.xml") {
		t.Error("new section part missing from package")
	}
	if got := doc.Headers()[0].SecCnt(); got != 2 {
		t.Errorf("secCnt = %d, want 2", got)
	}

	m, err := doc.Package().Manifest()
	if err != nil {
		t.Fatal(err)
	}
	paths := m.SectionPaths()
	if len(paths) != 2 || paths[1] != "Contents/section1.xml" {
		t.Errorf("manifest section paths = %v", paths)
	}
}

func TestAddSectionAfter(t *testing.T) {
	doc := testDocument(t)
	if _, err := doc.AddSection(); err != nil {
		t.Fatal(err)
	}
	mid, err := doc.AddSectionAfter(0)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Sections()[1]; got != mid {
		t.Errorf("inserted section placed at index %d", indexOfSection(doc, mid))
	}
	if _, err := doc.AddSectionAfter(99); !errors.Is(err, ErrSectionIndex) {
		t.Errorf("out-of-range err = %v", err)
	}
}

func indexOfSection(doc *Document, sec *Section) int {
	for i, s := range doc.Sections() {
		if s == sec {
			return i
		}
	}
	return -1
}

func TestRemoveSection(t *testing.T) {
	doc := testDocument(t)
	if err := doc.RemoveSection(0); !errors.Is(err, ErrLastSection) {
		t.Fatalf("removing the only section: err = %v", err)
	}

	added, err := doc.AddSection()
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.RemoveSectionByRef(added); err != nil {
		t.Fatal(err)
	}
	if got := len(doc.Sections()); got != 1 {
		t.Fatalf("got %d sections after remove, want 1", got)
	}
	if doc.Package().HasPart("Contents/section1.xml") {
		t.Error("removed section part still present")
	}
	if got := doc.Headers()[0].SecCnt(); got != 1 {
		t.Errorf("secCnt = %d, want 1", got)
	}

	foreign := newSection("other.xml", parseXML(t, testSectionXML), nil)
	if err := doc.RemoveSectionByRef(foreign); !errors.Is(err, ErrForeignPart) {
		t.Errorf("foreign section err = %v", err)
	}
}

func TestDocumentAddTableUsesCanonicalBorderFill(t *testing.T) {
	doc := testDocument(t)
	tbl, err := doc.AddTable(2, 2, TableOptions{})
	if err != nil {
		t.Fatal(err)
	}
	// The fixture header already carries the canonical fill as id 2.
	if got := tbl.BorderFillIDRef(); got != "2" {
		t.Errorf("table border fill = %q, want 2", got)
	}
	header := doc.Headers()[0]
	if got := len(header.BorderFills()); got != 2 {
		t.Errorf("border fill count = %d, want unchanged 2", got)
	}
}

func TestAttachMemoField(t *testing.T) {
	doc := testDocument(t)
	memo, err := doc.AddMemo("review this", MemoOptions{MemoShapeIDRef: "1"})
	if err != nil {
		t.Fatal(err)
	}
	para, err := doc.AddParagraph("anchored text", ParagraphOptions{})
	if err != nil {
		t.Fatal(err)
	}

	fieldID, err := doc.AttachMemoField(para, memo, MemoFieldOptions{Author: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fieldID) != 32 {
		t.Errorf("field id %q is not a 32-char hex id", fieldID)
	}

	runs := para.Runs()
	if len(runs) < 3 {
		t.Fatalf("got %d runs, want begin + content + end", len(runs))
	}
	fb := runs[0].Element().Descendants("fieldBegin")
	if len(fb) != 1 {
		t.Fatal("first run does not open the field")
	}
	if got, _ := fb[0].Attr("type"); got != "MEMO" {
		t.Errorf("field type = %q", got)
	}
	params := fb[0].Descendants("stringParam")
	names := map[string]bool{}
	for _, p := range params {
		names[p.AttrDefault("name", "")] = true
	}
	for _, want := range []string{"ID", "CreateDateTime", "Author", "MemoShapeID"} {
		if !names[want] {
			t.Errorf("missing field parameter %q", want)
		}
	}
	last := runs[len(runs)-1]
	fe := last.Element().Descendants("fieldEnd")
	if len(fe) != 1 {
		t.Fatal("last run does not close the field")
	}
	if got := fe[0].AttrDefault("beginIDRef", ""); got != fieldID {
		t.Errorf("fieldEnd beginIDRef = %q, want %q", got, fieldID)
	}
	if got := para.Text(); !strings.Contains(got, "anchored text") {
		t.Errorf("paragraph text lost: %q", got)
	}
}

func TestAddMemoWithAnchor(t *testing.T) {
	doc := testDocument(t)
	memo, para, fieldID, err := doc.AddMemoWithAnchor("note", "anchor", MemoOptions{MemoShapeIDRef: "1"}, MemoFieldOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if memo.Text() != "note" {
		t.Errorf("memo text = %q", memo.Text())
	}
	if fieldID == "" {
		t.Error("empty field id")
	}
	if !strings.Contains(para.Text(), "anchor") {
		t.Errorf("anchor paragraph text = %q", para.Text())
	}
	if got := len(doc.Memos()); got != 1 {
		t.Errorf("got %d memos, want 1", got)
	}
}
