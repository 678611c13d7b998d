package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sejonglab/hwpx/xmltree"
)

// Well-known part names within an HWPX archive.
const (
	MimetypePath  = "mimetype"
	ContainerPath = "META-INF/container.xml"
	ManifestPath  = "Contents/content.hpf"
	HeaderPath    = "Contents/header.xml"
	VersionPath   = "version.xml"
	ContentsDir   = "Contents/"

	// DefaultMimetype is the value the mimetype part must carry.
	DefaultMimetype = "application/hwp+zip"

	// rootfileMediaType is the canonical media type of the package
	// manifest rootfile inside container.xml.
	rootfileMediaType = "application/hwpml-package+xml"
)

var (
	ErrMissingMimetype  = errors.New("hwpx: archive has no mimetype part")
	ErrWrongMimetype    = errors.New("hwpx: mimetype part does not declare " + DefaultMimetype)
	ErrMissingContainer = errors.New("hwpx: archive has no " + ContainerPath)
	ErrNoRootfiles      = errors.New("hwpx: container.xml declares no rootfiles")
	ErrMissingVersion   = errors.New("hwpx: archive has no " + VersionPath)
	ErrMissingContents  = errors.New("hwpx: archive has no Contents directory")
	ErrMissingPart      = errors.New("hwpx: part not found")
	ErrMandatoryPart    = errors.New("hwpx: cannot delete a mandatory part")
)

// Package is an in-memory copy of every part in an HWPX archive. Reads
// and writes operate on the byte map; nothing touches the source file
// after Open returns. Part names are slash-separated and never begin
// with "/".
type Package struct {
	parts map[string][]byte
	order []string

	manifestPath string
	manifest     *Manifest

	warnings []Warning
}

// Open reads the archive at path into memory and validates its
// structure.
func Open(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hwpx: open %s: %w", path, err)
	}
	return OpenBytes(data)
}

// OpenBytes reads an archive already held in memory. The slice is not
// retained; part contents are copied out of the ZIP stream.
func OpenBytes(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("hwpx: read archive: %w", err)
	}

	pkg := &Package{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		name := NormalizePartName(f.Name)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("hwpx: read part %s: %w", name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("hwpx: read part %s: %w", name, err)
		}
		if _, dup := pkg.parts[name]; !dup {
			pkg.order = append(pkg.order, name)
		}
		pkg.parts[name] = content
	}

	if err := pkg.validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

// NewPackage builds a package from a prepared part map, validating the
// same invariants Open enforces. Parts are stored in sorted order.
func NewPackage(parts map[string][]byte) (*Package, error) {
	pkg := &Package{parts: make(map[string][]byte, len(parts))}
	for name, content := range parts {
		name = NormalizePartName(name)
		pkg.parts[name] = append([]byte(nil), content...)
		pkg.order = append(pkg.order, name)
	}
	sort.Strings(pkg.order)
	if err := pkg.validate(); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (p *Package) validate() error {
	mimetype, ok := p.parts[MimetypePath]
	if !ok {
		return ErrMissingMimetype
	}
	if strings.TrimSpace(string(mimetype)) != DefaultMimetype {
		return ErrWrongMimetype
	}
	container, ok := p.parts[ContainerPath]
	if !ok {
		return ErrMissingContainer
	}
	if _, ok := p.parts[VersionPath]; !ok {
		return ErrMissingVersion
	}

	manifestPath, warn, err := resolveRootfile(container)
	if err != nil {
		return err
	}
	if warn != nil {
		p.warnings = append(p.warnings, *warn)
	}
	if _, ok := p.parts[manifestPath]; !ok {
		return fmt.Errorf("hwpx: rootfile target %s: %w", manifestPath, ErrMissingPart)
	}
	p.manifestPath = manifestPath

	hasContents := false
	for name := range p.parts {
		if strings.HasPrefix(name, ContentsDir) {
			hasContents = true
			break
		}
	}
	if !hasContents {
		return ErrMissingContents
	}
	return nil
}

// NormalizePartName strips a leading slash and collapses backslashes
// so lookups are insensitive to how the archive spelled the name.
func NormalizePartName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(name, "/")
}

// HasPart reports whether the package contains the named part.
func (p *Package) HasPart(name string) bool {
	_, ok := p.parts[NormalizePartName(name)]
	return ok
}

// GetPart returns the raw bytes of the named part.
func (p *Package) GetPart(name string) ([]byte, error) {
	content, ok := p.parts[NormalizePartName(name)]
	if !ok {
		return nil, fmt.Errorf("hwpx: %s: %w", name, ErrMissingPart)
	}
	return content, nil
}

// SetPart stores content under name, adding the part if it does not
// exist yet. Writing META-INF/container.xml re-resolves the rootfile
// and writing version.xml re-parses it, so malformed content is
// rejected before it replaces the old part. The package structure is
// re-validated after every write.
func (p *Package) SetPart(name string, content []byte) error {
	name = NormalizePartName(name)

	newManifestPath := ""
	switch name {
	case ContainerPath:
		path, warn, err := resolveRootfile(content)
		if err != nil {
			return err
		}
		if warn != nil {
			p.warnings = append(p.warnings, *warn)
		}
		newManifestPath = path
	case VersionPath:
		if _, err := xmltree.Parse(content); err != nil {
			return fmt.Errorf("hwpx: parse %s: %w", VersionPath, err)
		}
	}

	if _, ok := p.parts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.parts[name] = content
	if name == ContainerPath {
		p.manifestPath = newManifestPath
		p.manifest = nil
	}
	if name == p.manifestPath {
		p.manifest = nil
	}
	return p.validateStructure()
}

// validateStructure re-checks the invariants a part write or delete
// could break: the active rootfile target and the Contents directory.
func (p *Package) validateStructure() error {
	if _, ok := p.parts[p.manifestPath]; !ok {
		return fmt.Errorf("hwpx: rootfile target %s: %w", p.manifestPath, ErrMissingPart)
	}
	for name := range p.parts {
		if strings.HasPrefix(name, ContentsDir) {
			return nil
		}
	}
	return ErrMissingContents
}

// DeletePart removes the named part. Deleting a part that does not
// exist is an error, as is deleting the mimetype, container, version,
// or active rootfile target.
func (p *Package) DeletePart(name string) error {
	name = NormalizePartName(name)
	switch name {
	case MimetypePath, ContainerPath, VersionPath, p.manifestPath:
		return fmt.Errorf("%w: %s", ErrMandatoryPart, name)
	}
	if _, ok := p.parts[name]; !ok {
		return fmt.Errorf("hwpx: %s: %w", name, ErrMissingPart)
	}
	delete(p.parts, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

// PartNames returns the part names in archive order.
func (p *Package) PartNames() []string {
	return append([]string(nil), p.order...)
}

// ManifestPath returns the resolved location of the package manifest.
func (p *Package) ManifestPath() string {
	return p.manifestPath
}

// Warnings returns every warning recorded so far, in order.
func (p *Package) Warnings() []Warning {
	return append([]Warning(nil), p.warnings...)
}

func (p *Package) warn(op, format string, args ...interface{}) {
	p.warnings = append(p.warnings, Warning{Op: op, Message: fmt.Sprintf(format, args...)})
}

// Save writes the package to path.
func (p *Package) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("hwpx: save %s: %w", path, err)
	}
	if err := p.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("hwpx: save %s: %w", path, err)
	}
	return nil
}

// Bytes serializes the package into a fresh buffer.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes the package as a ZIP archive. The mimetype part is
// written first and stored without compression so readers can sniff
// the format; every other part follows in sorted order, deflated.
func (p *Package) Write(w io.Writer) error {
	zw := zip.NewWriter(w)

	mimetype, ok := p.parts[MimetypePath]
	if !ok {
		return ErrMissingMimetype
	}
	hdr := &zip.FileHeader{Name: MimetypePath, Method: zip.Store}
	mw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("hwpx: write mimetype: %w", err)
	}
	if _, err := mw.Write(mimetype); err != nil {
		return fmt.Errorf("hwpx: write mimetype: %w", err)
	}

	names := make([]string, 0, len(p.parts))
	for name := range p.parts {
		if name != MimetypePath {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		pw, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("hwpx: write part %s: %w", name, err)
		}
		if _, err := pw.Write(p.parts[name]); err != nil {
			return fmt.Errorf("hwpx: write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("hwpx: finish archive: %w", err)
	}
	return nil
}
