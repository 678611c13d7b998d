package hwpx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/sejonglab/hwpx/opc"
	"github.com/sejonglab/hwpx/oxml"
)

var (
	ErrNoPath       = errors.New("hwpx: document has no backing file, use SaveAs")
	ErrImageFormat  = errors.New("hwpx: unrecognized image format")
	ErrImageMissing = errors.New("hwpx: image not found")
)

// Document is the top-level façade: the typed object model plus the
// part store it serializes into.
type Document struct {
	pkg  *opc.Package
	obj  *oxml.Document
	path string
}

// Package returns the underlying part store.
func (d *Document) Package() *opc.Package { return d.pkg }

// Object returns the typed object model for operations the façade
// does not wrap.
func (d *Document) Object() *oxml.Document { return d.obj }

// Warnings returns the structural oddities collected while opening.
func (d *Document) Warnings() []opc.Warning { return d.pkg.Warnings() }

// Sections returns the document's sections in reading order.
func (d *Document) Sections() []*oxml.Section { return d.obj.Sections() }

// Headers returns the document's header parts.
func (d *Document) Headers() []*oxml.Header { return d.obj.Headers() }

// Paragraphs returns every top-level paragraph across all sections.
func (d *Document) Paragraphs() []*oxml.Paragraph { return d.obj.Paragraphs() }

// Text returns the document's paragraph text joined by newlines.
func (d *Document) Text() string {
	paras := d.obj.Paragraphs()
	parts := make([]string, len(paras))
	for i, p := range paras {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// AddParagraph appends a paragraph to the last section.
func (d *Document) AddParagraph(text string) (*oxml.Paragraph, error) {
	return d.obj.AddParagraph(text, oxml.ParagraphOptions{})
}

// AddStyledParagraph appends a paragraph with explicit style refs.
func (d *Document) AddStyledParagraph(text string, opts oxml.ParagraphOptions) (*oxml.Paragraph, error) {
	return d.obj.AddParagraph(text, opts)
}

// AddTable creates a rows-by-cols table in the last section.
func (d *Document) AddTable(rows, cols int) (*oxml.Table, error) {
	return d.obj.AddTable(rows, cols, oxml.TableOptions{})
}

// AddSection appends a new empty section.
func (d *Document) AddSection() (*oxml.Section, error) { return d.obj.AddSection() }

// RemoveSection deletes the section at index. The last remaining
// section cannot be removed.
func (d *Document) RemoveSection(index int) error { return d.obj.RemoveSection(index) }

// Save writes the document back to the file it was opened from.
func (d *Document) Save() error {
	if d.path == "" {
		return ErrNoPath
	}
	return d.SaveAs(d.path)
}

// SaveAs flushes all dirty parts and writes the archive to path.
func (d *Document) SaveAs(path string) error {
	d.obj.Flush()
	if err := d.pkg.Save(path); err != nil {
		return err
	}
	d.path = path
	return nil
}

// Bytes flushes all dirty parts and renders the archive.
func (d *Document) Bytes() ([]byte, error) {
	d.obj.Flush()
	return d.pkg.Bytes()
}

// WriteTo flushes all dirty parts and streams the archive to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Image is one embedded binary image: its registry id, archive part,
// and decoded geometry.
type Image struct {
	ID       string
	PartName string
	Format   string
	Width    int
	Height   int
}

var imageIDPattern = regexp.MustCompile(`^BIN(\d+)$`)

const binDataDir = "BinData/"

// AddImage embeds an image, registering it in the manifest and the
// header's binary-data list. When mediaType is empty the format is
// sniffed from the content; otherwise it is trusted as given.
func (d *Document) AddImage(data []byte, mediaType string) (Image, error) {
	var format string
	var cfg image.Config
	if mediaType == "" {
		var err error
		cfg, format, err = image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return Image{}, fmt.Errorf("%w: %v", ErrImageFormat, err)
		}
	} else {
		if !strings.HasPrefix(mediaType, "image/") {
			return Image{}, fmt.Errorf("%w: media type %q", ErrImageFormat, mediaType)
		}
		format = strings.TrimPrefix(mediaType, "image/")
	}
	ext := opc.ExtensionForMediaType("image/" + format)

	next := 1
	for _, name := range d.pkg.PartNames() {
		if !strings.HasPrefix(name, binDataDir) {
			continue
		}
		base := strings.TrimSuffix(path.Base(name), path.Ext(name))
		if m := imageIDPattern.FindStringSubmatch(base); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= next {
				next = n + 1
			}
		}
	}
	id := fmt.Sprintf("BIN%04d", next)
	filename := id + "." + ext
	partName := binDataDir + filename

	if err := d.pkg.SetPart(partName, data); err != nil {
		return Image{}, err
	}
	if err := d.pkg.AddManifestItem(id, partName, "image/"+format, false, ""); err != nil {
		return Image{}, err
	}
	if headers := d.obj.Headers(); len(headers) > 0 {
		headers[0].AddBinItem("Embedding", filename, ext)
	}
	return Image{ID: id, PartName: partName, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// Images lists the embedded images registered in the manifest.
func (d *Document) Images() []Image {
	m, err := d.pkg.Manifest()
	if err != nil {
		return nil
	}
	var out []Image
	for _, item := range m.Items() {
		if !strings.HasPrefix(item.MediaType, "image/") {
			continue
		}
		out = append(out, Image{
			ID:       item.ID,
			PartName: opc.NormalizePartName(item.Href),
			Format:   strings.TrimPrefix(item.MediaType, "image/"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ImageData returns the raw bytes of an embedded image.
func (d *Document) ImageData(id string) ([]byte, error) {
	for _, img := range d.Images() {
		if img.ID == id {
			return d.pkg.GetPart(img.PartName)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrImageMissing, id)
}

// RemoveImage deletes an embedded image: its part, its manifest entry,
// and its header registry entry. Reports whether the image existed.
func (d *Document) RemoveImage(id string) bool {
	var target *Image
	for _, img := range d.Images() {
		if img.ID == id {
			t := img
			target = &t
			break
		}
	}
	if target == nil {
		return false
	}
	if err := d.pkg.RemoveManifestItem(id); err != nil {
		return false
	}
	filename := path.Base(target.PartName)
	for _, h := range d.obj.Headers() {
		for _, item := range h.BinItems() {
			if item.BinData == filename {
				h.RemoveBinItem(item.ID)
			}
		}
	}
	return true
}
