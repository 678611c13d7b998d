package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testContainerXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<ocf:container xmlns:ocf="urn:oasis:names:tc:opendocument:xmlns:container">
  <ocf:rootfiles>
    <ocf:rootfile full-path="Contents/content.hpf" media-type="application/hwpml-package+xml"/>
  </ocf:rootfiles>
</ocf:container>`

const testManifestXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<opf:package xmlns:opf="http://www.idpf.org/2007/opf/" version="">
  <opf:metadata>
    <opf:title>test document</opf:title>
  </opf:metadata>
  <opf:manifest>
    <opf:item id="header" href="Contents/header.xml" media-type="application/xml"/>
    <opf:item id="section0" href="Contents/section0.xml" media-type="application/xml"/>
    <opf:item id="settings" href="settings.xml" media-type="application/xml"/>
  </opf:manifest>
  <opf:spine>
    <opf:itemref idref="header"/>
    <opf:itemref idref="section0"/>
  </opf:spine>
</opf:package>`

const testHeaderXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<hh:head xmlns:hh="http://www.hancom.co.kr/hwpml/2011/head" version="1.31" secCnt="1"/>`

const testSectionXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<hs:sec xmlns:hs="http://www.hancom.co.kr/hwpml/2011/section"><hp:p xmlns:hp="http://www.hancom.co.kr/hwpml/2011/paragraph"/></hs:sec>`

const testVersionXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<hv:HCFVersion xmlns:hv="http://www.hancom.co.kr/hwpml/2011/version" tagetApplication="WORDPROCESSOR" major="5" minor="0"/>`

// testParts returns the part map of a minimal valid archive. Tests
// mutate the map before zipping to exercise failure paths.
func testParts() map[string]string {
	return map[string]string{
		MimetypePath:           DefaultMimetype,
		ContainerPath:          testContainerXML,
		ManifestPath:           testManifestXML,
		HeaderPath:             testHeaderXML,
		"Contents/section0.xml": testSectionXML,
		"settings.xml":          `<settings/>`,
		VersionPath:            testVersionXML,
	}
}

// buildArchive zips the given parts, mimetype first and stored, the
// way a real producer would.
func buildArchive(t *testing.T, parts map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if mt, ok := parts[MimetypePath]; ok {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: MimetypePath, Method: zip.Store})
		if err != nil {
			t.Fatalf("create mimetype: %v", err)
		}
		if _, err := w.Write([]byte(mt)); err != nil {
			t.Fatalf("write mimetype: %v", err)
		}
	}
	for name, content := range parts {
		if name == MimetypePath {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

func openTestPackage(t *testing.T, mutate func(map[string]string)) *Package {
	t.Helper()
	parts := testParts()
	if mutate != nil {
		mutate(parts)
	}
	pkg, err := OpenBytes(buildArchive(t, parts))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	return pkg
}

func TestOpenValidArchive(t *testing.T) {
	pkg := openTestPackage(t, nil)

	for _, name := range []string{MimetypePath, ContainerPath, ManifestPath, HeaderPath, VersionPath} {
		if !pkg.HasPart(name) {
			t.Errorf("expected part %s to be present", name)
		}
	}
	if got := pkg.ManifestPath(); got != ManifestPath {
		t.Errorf("manifest path = %q, want %q", got, ManifestPath)
	}
	if warns := pkg.Warnings(); len(warns) != 0 {
		t.Errorf("unexpected warnings: %s", FormatWarnings(warns))
	}
}

func TestOpenFromFile(t *testing.T) {
	data := buildArchive(t, testParts())
	path := filepath.Join(t.TempDir(), "doc.hwpx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	pkg, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !pkg.HasPart(HeaderPath) {
		t.Error("header part missing after Open")
	}
}

func TestOpenStructuralFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]string)
		want   error
	}{
		{"missing mimetype", func(p map[string]string) { delete(p, MimetypePath) }, ErrMissingMimetype},
		{"wrong mimetype", func(p map[string]string) { p[MimetypePath] = "application/epub+zip" }, ErrWrongMimetype},
		{"missing container", func(p map[string]string) { delete(p, ContainerPath) }, ErrMissingContainer},
		{"no rootfiles", func(p map[string]string) {
			p[ContainerPath] = `<container><rootfiles/></container>`
		}, ErrNoRootfiles},
		{"missing version", func(p map[string]string) { delete(p, VersionPath) }, ErrMissingVersion},
		{"rootfile target missing", func(p map[string]string) { delete(p, ManifestPath) }, ErrMissingPart},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := testParts()
			tt.mutate(parts)
			_, err := OpenBytes(buildArchive(t, parts))
			if !errors.Is(err, tt.want) {
				t.Errorf("OpenBytes error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRootfileMediaTypeFallback(t *testing.T) {
	pkg := openTestPackage(t, func(p map[string]string) {
		p[ContainerPath] = `<ocf:container xmlns:ocf="urn:oasis:names:tc:opendocument:xmlns:container">
  <ocf:rootfiles>
    <ocf:rootfile full-path="Contents/content.hpf" media-type="application/unknown"/>
  </ocf:rootfiles>
</ocf:container>`
	})

	if got := pkg.ManifestPath(); got != ManifestPath {
		t.Errorf("manifest path = %q, want %q", got, ManifestPath)
	}
	warns := pkg.Warnings()
	if len(warns) != 1 || warns[0].Op != "rootfile" {
		t.Errorf("expected a single rootfile warning, got %s", FormatWarnings(warns))
	}
}

func TestGetSetDeletePart(t *testing.T) {
	pkg := openTestPackage(t, nil)

	if _, err := pkg.GetPart("Contents/nope.xml"); !errors.Is(err, ErrMissingPart) {
		t.Errorf("GetPart(absent) error = %v, want ErrMissingPart", err)
	}

	if err := pkg.SetPart("Contents/extra.xml", []byte("<extra/>")); err != nil {
		t.Fatalf("SetPart: %v", err)
	}
	got, err := pkg.GetPart("/Contents/extra.xml")
	if err != nil {
		t.Fatalf("GetPart after SetPart: %v", err)
	}
	if string(got) != "<extra/>" {
		t.Errorf("part content = %q", got)
	}

	if err := pkg.DeletePart("Contents/extra.xml"); err != nil {
		t.Fatalf("DeletePart: %v", err)
	}
	if pkg.HasPart("Contents/extra.xml") {
		t.Error("part still present after delete")
	}
	if err := pkg.DeletePart("Contents/extra.xml"); !errors.Is(err, ErrMissingPart) {
		t.Errorf("DeletePart(absent) error = %v, want ErrMissingPart", err)
	}
}

func TestWriteMimetypeFirstAndStored(t *testing.T) {
	pkg := openTestPackage(t, nil)
	data, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("reopen archive: %v", err)
	}
	if len(zr.File) == 0 {
		t.Fatal("empty archive")
	}
	first := zr.File[0]
	if first.Name != MimetypePath {
		t.Errorf("first entry = %s, want %s", first.Name, MimetypePath)
	}
	if first.Method != zip.Store {
		t.Errorf("mimetype method = %d, want Store", first.Method)
	}
	rc, err := first.Open()
	if err != nil {
		t.Fatalf("open mimetype entry: %v", err)
	}
	defer rc.Close()
	content, _ := io.ReadAll(rc)
	if string(content) != DefaultMimetype {
		t.Errorf("mimetype content = %q", content)
	}
}

func TestRoundTrip(t *testing.T) {
	pkg := openTestPackage(t, nil)
	pkg.SetPart("Contents/section0.xml", []byte(strings.Replace(testSectionXML, "<hp:p", "<hp:p id=\"1\"", 1)))

	data, err := pkg.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	again, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := again.GetPart("Contents/section0.xml")
	if err != nil {
		t.Fatalf("GetPart: %v", err)
	}
	if !strings.Contains(string(got), `id="1"`) {
		t.Errorf("edited section not preserved: %q", got)
	}
}

func TestSaveToFile(t *testing.T) {
	pkg := openTestPackage(t, nil)
	path := filepath.Join(t.TempDir(), "out.hwpx")
	if err := pkg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Open(path); err != nil {
		t.Fatalf("reopen saved file: %v", err)
	}
}

func TestVersionInfoEqualityGate(t *testing.T) {
	pkg := openTestPackage(t, nil)
	v, err := pkg.Version()
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if got := v.Attr("major"); got != "5" {
		t.Errorf("major = %q, want 5", got)
	}

	v.SetAttr("major", "5")
	if v.Dirty() {
		t.Error("no-op write marked version dirty")
	}
	v.SetAttr("major", "6")
	if !v.Dirty() {
		t.Error("changed write did not mark version dirty")
	}

	v.Flush(pkg)
	if v.Dirty() {
		t.Error("dirty flag survived Flush")
	}
	data, _ := pkg.GetPart(VersionPath)
	if !strings.Contains(string(data), `major="6"`) {
		t.Errorf("flushed version part = %q", data)
	}
}

func TestSetPartContainerRewiresManifest(t *testing.T) {
	pkg := openTestPackage(t, func(p map[string]string) {
		p["Contents/alt.hpf"] = testManifestXML
	})

	container := `<ocf:container xmlns:ocf="urn:oasis:names:tc:opendocument:xmlns:container">
  <ocf:rootfiles>
    <ocf:rootfile full-path="Contents/alt.hpf" media-type="application/hwpml-package+xml"/>
  </ocf:rootfiles>
</ocf:container>`
	if err := pkg.SetPart(ContainerPath, []byte(container)); err != nil {
		t.Fatalf("SetPart(container): %v", err)
	}
	if got := pkg.ManifestPath(); got != "Contents/alt.hpf" {
		t.Errorf("manifest path = %q, want Contents/alt.hpf", got)
	}
}

func TestSetPartRejectsBrokenContainer(t *testing.T) {
	pkg := openTestPackage(t, nil)

	if err := pkg.SetPart(ContainerPath, []byte("<ocf:container")); err == nil {
		t.Error("malformed container accepted")
	}
	if err := pkg.SetPart(ContainerPath, []byte(`<container><rootfiles/></container>`)); !errors.Is(err, ErrNoRootfiles) {
		t.Errorf("rootfile-less container error = %v, want ErrNoRootfiles", err)
	}
	if got := pkg.ManifestPath(); got != ManifestPath {
		t.Errorf("manifest path changed to %q after rejected writes", got)
	}
	data, err := pkg.GetPart(ContainerPath)
	if err != nil {
		t.Fatalf("GetPart(container): %v", err)
	}
	if string(data) != testContainerXML {
		t.Error("container content changed after rejected writes")
	}
}

func TestSetPartContainerTargetMustExist(t *testing.T) {
	pkg := openTestPackage(t, nil)

	container := `<ocf:container xmlns:ocf="urn:oasis:names:tc:opendocument:xmlns:container">
  <ocf:rootfiles>
    <ocf:rootfile full-path="Contents/nope.hpf" media-type="application/hwpml-package+xml"/>
  </ocf:rootfiles>
</ocf:container>`
	if err := pkg.SetPart(ContainerPath, []byte(container)); !errors.Is(err, ErrMissingPart) {
		t.Errorf("SetPart(container to absent rootfile) error = %v, want ErrMissingPart", err)
	}
}

func TestSetPartRejectsBrokenVersion(t *testing.T) {
	pkg := openTestPackage(t, nil)

	if err := pkg.SetPart(VersionPath, []byte("<hv:HCFVersion")); err == nil {
		t.Error("malformed version accepted")
	}
	data, err := pkg.GetPart(VersionPath)
	if err != nil {
		t.Fatalf("GetPart(version): %v", err)
	}
	if string(data) != testVersionXML {
		t.Error("version content changed after rejected write")
	}
}

func TestDeletePartRefusesMandatoryParts(t *testing.T) {
	pkg := openTestPackage(t, nil)

	for _, name := range []string{MimetypePath, ContainerPath, VersionPath, pkg.ManifestPath()} {
		if err := pkg.DeletePart(name); !errors.Is(err, ErrMandatoryPart) {
			t.Errorf("DeletePart(%s) error = %v, want ErrMandatoryPart", name, err)
		}
		if !pkg.HasPart(name) {
			t.Errorf("part %s gone after refused delete", name)
		}
	}
}
