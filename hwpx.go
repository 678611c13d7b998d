// Package hwpx reads and writes HWPX word-processor documents: ZIP
// archives of related XML parts tied together by a container and an
// OPF-style manifest.
//
// Basic usage:
//
//	doc, err := hwpx.Open("report.hwpx")
//	if err != nil {
//	    // handle error
//	}
//	doc.AddParagraph("Hello")
//	if err := doc.Save(); err != nil {
//	    // handle error
//	}
//
// Structural oddities found while opening (a missing spine, unusual
// manifest entries) are collected as warnings rather than errors:
//
//	if w := doc.Warnings(); len(w) > 0 {
//	    log.Println(opc.FormatWarnings(w))
//	}
//
// For lower-level work the opc package exposes the raw part store and
// the oxml package the typed XML object model.
package hwpx

import (
	"github.com/sejonglab/hwpx/opc"
	"github.com/sejonglab/hwpx/oxml"
)

// Open reads and parses the document at path. The file is loaded into
// memory in full; the document keeps no handle on it afterward.
func Open(path string) (*Document, error) {
	pkg, err := opc.Open(path)
	if err != nil {
		return nil, err
	}
	doc, err := FromPackage(pkg)
	if err != nil {
		return nil, err
	}
	doc.path = path
	return doc, nil
}

// OpenBytes parses a document held in memory.
func OpenBytes(data []byte) (*Document, error) {
	pkg, err := opc.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	return FromPackage(pkg)
}

// New returns a blank single-section document.
func New() (*Document, error) {
	pkg, err := opc.NewPackage(templateParts())
	if err != nil {
		return nil, err
	}
	return FromPackage(pkg)
}

// FromPackage builds a document over an already-open part store.
func FromPackage(pkg *opc.Package) (*Document, error) {
	obj, err := oxml.FromPackage(pkg)
	if err != nil {
		return nil, err
	}
	return &Document{pkg: pkg, obj: obj}, nil
}

// Must panics on error. Intended for scripts and tests.
//
//	doc := hwpx.Must(hwpx.Open("report.hwpx"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
