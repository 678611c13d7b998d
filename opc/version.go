package opc

import (
	"fmt"

	"github.com/sejonglab/hwpx/xmltree"
)

// VersionInfo wraps the version.xml descriptor. Attribute writes are
// equality-gated so reading then re-saving an untouched document does
// not rewrite the part.
type VersionInfo struct {
	root  *xmltree.Element
	dirty bool
}

// Version parses version.xml on first use.
func (p *Package) Version() (*VersionInfo, error) {
	data, err := p.GetPart(VersionPath)
	if err != nil {
		return nil, err
	}
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("hwpx: parse %s: %w", VersionPath, err)
	}
	return &VersionInfo{root: root}, nil
}

// Attr returns the named attribute of the version element, or "".
func (v *VersionInfo) Attr(name string) string {
	return v.root.AttrDefault(name, "")
}

// SetAttr writes an attribute, marking the descriptor dirty only when
// the value actually changes.
func (v *VersionInfo) SetAttr(name, value string) {
	if v.root.AttrDefault(name, "") == value {
		return
	}
	v.root.SetAttr(name, value)
	v.dirty = true
}

// Dirty reports whether any attribute changed since parse or the last
// flush.
func (v *VersionInfo) Dirty() bool {
	return v.dirty
}

// Flush writes the descriptor back into the package if it is dirty
// and clears the flag.
func (v *VersionInfo) Flush(p *Package) {
	if !v.dirty {
		return
	}
	p.SetPart(VersionPath, xmltree.Serialize(v.root, true))
	v.dirty = false
}
