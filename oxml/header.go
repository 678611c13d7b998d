package oxml

import (
	"strconv"

	"github.com/sejonglab/hwpx/xmltree"
)

// Header wraps the document header part, which owns the shared
// reference lists (character properties, border fills, styles, …) and
// the binary-data registry.
type Header struct {
	name  string
	root  *xmltree.Element
	dirty bool
	doc   *Document
}

func newHeader(name string, root *xmltree.Element, doc *Document) *Header {
	return &Header{name: name, root: root, doc: doc}
}

// Name returns the archive part name, e.g. "Contents/header.xml".
func (h *Header) Name() string { return h.name }

// Element returns the header's root element.
func (h *Header) Element() *xmltree.Element { return h.root }

// MarkDirty flags the header for serialization and invalidates the
// document-level aggregated style cache.
func (h *Header) MarkDirty() {
	h.dirty = true
	if h.doc != nil {
		h.doc.invalidateStyleCache()
	}
}

// Dirty reports whether the header has unsaved changes.
func (h *Header) Dirty() bool { return h.dirty }

// ResetDirty clears the dirty flag after a successful save.
func (h *Header) ResetDirty() { h.dirty = false }

// Serialize renders the header back to XML with a declaration.
func (h *Header) Serialize() []byte {
	return xmltree.Serialize(h.root, true)
}

// SecCnt returns the declared section count.
func (h *Header) SecCnt() int { return atoiDefault(h.root.AttrDefault("secCnt", "0")) }

// SetSecCnt updates the declared section count.
func (h *Header) SetSecCnt(n int) {
	v := strconv.Itoa(n)
	if h.root.AttrDefault("secCnt", "") == v {
		return
	}
	h.root.SetAttr("secCnt", v)
	h.MarkDirty()
}

// refListElement returns the hh:refList child, creating it on demand.
func (h *Header) refListElement(create bool) *xmltree.Element {
	refList := h.root.Find("refList")
	if refList == nil && create {
		refList = xmltree.New("hh:refList")
		h.root.Insert(0, refList)
	}
	return refList
}

// collectionElement returns the named collection under refList,
// creating it (with a zero itemCnt) on demand.
func (h *Header) collectionElement(local string, create bool) *xmltree.Element {
	refList := h.refListElement(create)
	if refList == nil {
		return nil
	}
	col := refList.Find(local)
	if col == nil && create {
		col = xmltree.New("hh:" + local)
		col.SetAttr("itemCnt", "0")
		refList.Append(col)
	}
	return col
}

func (h *Header) collectionRecords(parentLocal, childLocal string) []*xmltree.Element {
	col := h.collectionElement(parentLocal, false)
	if col == nil {
		return nil
	}
	return col.FindAll(childLocal)
}

// BinItem is one entry of the header's binary-data registry.
type BinItem struct {
	ID      string
	Type    string
	BinData string
	Format  string
}

func (h *Header) binDataList(create bool) *xmltree.Element {
	refList := h.refListElement(create)
	if refList == nil {
		return nil
	}
	list := refList.Find("binDataList")
	if list == nil && create {
		list = xmltree.New("hh:binDataList")
		list.SetAttr("itemCnt", "0")
		refList.Insert(0, list)
	}
	return list
}

// BinItems returns the header's binary-data entries.
func (h *Header) BinItems() []BinItem {
	list := h.binDataList(false)
	if list == nil {
		return nil
	}
	els := list.FindAll("binItem")
	out := make([]BinItem, len(els))
	for i, el := range els {
		out[i] = BinItem{
			ID:      el.AttrDefault("id", ""),
			Type:    el.AttrDefault("Type", ""),
			BinData: el.AttrDefault("BinData", ""),
			Format:  el.AttrDefault("Format", ""),
		}
	}
	return out
}

// AddBinItem registers a binary-data entry and returns it. The entry
// id is the smallest unused positive integer.
func (h *Header) AddBinItem(itemType, binData, format string) BinItem {
	list := h.binDataList(true)
	taken := make(map[string]bool)
	for _, el := range list.FindAll("binItem") {
		taken[el.AttrDefault("id", "")] = true
	}
	n := 1
	for taken[strconv.Itoa(n)] {
		n++
	}
	id := strconv.Itoa(n)

	el := xmltree.New("hh:binItem")
	el.SetAttr("id", id)
	el.SetAttr("Type", itemType)
	el.SetAttr("BinData", binData)
	el.SetAttr("Format", format)
	list.Append(el)
	list.SetAttr("itemCnt", strconv.Itoa(len(list.FindAll("binItem"))))
	h.MarkDirty()
	return BinItem{ID: id, Type: itemType, BinData: binData, Format: format}
}

// RemoveBinItem deletes the binary-data entry with the given id,
// reporting whether it existed.
func (h *Header) RemoveBinItem(id string) bool {
	list := h.binDataList(false)
	if list == nil {
		return false
	}
	for _, el := range list.FindAll("binItem") {
		if el.AttrDefault("id", "") == id {
			list.Remove(el)
			list.SetAttr("itemCnt", strconv.Itoa(len(list.FindAll("binItem"))))
			h.MarkDirty()
			return true
		}
	}
	return false
}
