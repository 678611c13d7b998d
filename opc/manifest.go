package opc

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sejonglab/hwpx/xmltree"
)

// BinDataDir is where embedded binary items live inside the archive.
const BinDataDir = "BinData"

// mediaTypeExtensions maps binary-item media types to file
// extensions. Anything not listed falls back to "bin".
var mediaTypeExtensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/bmp":     "bmp",
	"image/gif":     "gif",
	"image/tiff":    "tif",
	"image/svg+xml": "svg",
	"image/webp":    "webp",
}

// ExtensionForMediaType returns the archive file extension used for a
// binary item of the given media type.
func ExtensionForMediaType(mediaType string) string {
	if ext, ok := mediaTypeExtensions[strings.ToLower(mediaType)]; ok {
		return ext
	}
	return "bin"
}

// ManifestItem is one item entry from the package manifest.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties string
}

// normalized returns the lower-cased, space-joined metadata text used
// for keyword matching.
func (it ManifestItem) normalized() string {
	return strings.ToLower(it.ID + " " + it.Href + " " + it.MediaType + " " + it.Properties)
}

// Manifest is the parsed content manifest plus the caches derived from
// it. It stays attached to its Package; any write to the manifest part
// discards the whole Manifest so the next access re-parses.
type Manifest struct {
	pkg  *Package
	root *xmltree.Element

	items []ManifestItem
	spine []string

	sectionPaths []string
	headerPaths  []string
	masterPaths  []string
	historyPaths []string
	versionPaths []string

	resolvedSections bool
	resolvedHeaders  bool
	resolvedMaster   bool
	resolvedHistory  bool
	resolvedVersion  bool
}

// Manifest parses the content manifest lazily and caches the result
// until the manifest part is rewritten.
func (p *Package) Manifest() (*Manifest, error) {
	if p.manifest != nil {
		return p.manifest, nil
	}
	data, err := p.GetPart(p.manifestPath)
	if err != nil {
		return nil, err
	}
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("hwpx: parse %s: %w", p.manifestPath, err)
	}

	m := &Manifest{pkg: p, root: root}
	for _, el := range root.Descendants("item") {
		m.items = append(m.items, ManifestItem{
			ID:         el.AttrDefault("id", ""),
			Href:       el.AttrDefault("href", ""),
			MediaType:  el.AttrDefault("media-type", ""),
			Properties: el.AttrDefault("properties", ""),
		})
	}
	for _, el := range root.Descendants("itemref") {
		if idref := el.AttrDefault("idref", ""); idref != "" {
			m.spine = append(m.spine, idref)
		}
	}
	p.manifest = m
	return m, nil
}

// Items returns a copy of the manifest's item entries.
func (m *Manifest) Items() []ManifestItem {
	return append([]ManifestItem(nil), m.items...)
}

// resolveHref maps a manifest href to an existing part name. Hrefs may
// be spelled from the archive root or relative to the manifest's own
// directory.
func (m *Manifest) resolveHref(href string) string {
	name := NormalizePartName(href)
	if m.pkg.HasPart(name) {
		return name
	}
	joined := path.Join(path.Dir(m.pkg.manifestPath), name)
	if m.pkg.HasPart(joined) {
		return joined
	}
	return name
}

// Spine returns the manifest's reading order as resolved part names.
func (m *Manifest) Spine() []string {
	byID := make(map[string]ManifestItem, len(m.items))
	for _, it := range m.items {
		byID[it.ID] = it
	}
	var out []string
	for _, idref := range m.spine {
		if it, ok := byID[idref]; ok && it.Href != "" {
			out = append(out, m.resolveHref(it.Href))
		}
	}
	return out
}

// SectionPaths returns the section parts in reading order. When the
// spine yields none, part names are scanned for the section filename
// prefix and a warning is recorded.
func (m *Manifest) SectionPaths() []string {
	if m.resolvedSections {
		return append([]string(nil), m.sectionPaths...)
	}
	m.sectionPaths = m.spinePathsWithPrefix("section")
	if len(m.sectionPaths) == 0 {
		m.sectionPaths = m.scanPathsWithPrefix("section")
		m.pkg.warn("sectionPaths", "spine yielded no section parts; scanned part names, found %d", len(m.sectionPaths))
	}
	m.resolvedSections = true
	return append([]string(nil), m.sectionPaths...)
}

// HeaderPaths returns the header parts in reading order, falling back
// to the default header part when the spine declares none.
func (m *Manifest) HeaderPaths() []string {
	if m.resolvedHeaders {
		return append([]string(nil), m.headerPaths...)
	}
	m.headerPaths = m.spinePathsWithPrefix("header")
	if len(m.headerPaths) == 0 {
		if m.pkg.HasPart(HeaderPath) {
			m.headerPaths = []string{HeaderPath}
		}
		m.pkg.warn("headerPaths", "spine yielded no header parts; falling back to %s", HeaderPath)
	}
	m.resolvedHeaders = true
	return append([]string(nil), m.headerPaths...)
}

// MasterPagePaths resolves master-page parts from manifest item
// metadata, falling back to a filename scan.
func (m *Manifest) MasterPagePaths() []string {
	if !m.resolvedMaster {
		m.masterPaths = m.metadataPaths("masterPagePaths", []string{"master", "page"}, "masterfile", "masterpage", "master-page")
		m.resolvedMaster = true
	}
	return append([]string(nil), m.masterPaths...)
}

// HistoryPaths resolves change-history parts.
func (m *Manifest) HistoryPaths() []string {
	if !m.resolvedHistory {
		m.historyPaths = m.metadataPaths("historyPaths", []string{"history"}, "history")
		m.resolvedHistory = true
	}
	return append([]string(nil), m.historyPaths...)
}

// VersionPaths resolves version-descriptor parts.
func (m *Manifest) VersionPaths() []string {
	if !m.resolvedVersion {
		m.versionPaths = m.metadataPaths("versionPaths", []string{"version"}, "version")
		m.resolvedVersion = true
	}
	return append([]string(nil), m.versionPaths...)
}

func (m *Manifest) spinePathsWithPrefix(prefix string) []string {
	var out []string
	for _, name := range m.Spine() {
		if strings.HasPrefix(strings.ToLower(path.Base(name)), prefix) {
			out = append(out, name)
		}
	}
	return out
}

func (m *Manifest) scanPathsWithPrefix(prefix string) []string {
	var out []string
	for _, name := range m.pkg.PartNames() {
		if strings.HasPrefix(strings.ToLower(path.Base(name)), prefix) {
			out = append(out, name)
		}
	}
	sortNatural(out)
	return out
}

// scanPathsContaining returns parts whose lower-cased basename
// contains every one of subs.
func (m *Manifest) scanPathsContaining(subs ...string) []string {
	var out []string
	for _, name := range m.pkg.PartNames() {
		base := strings.ToLower(path.Base(name))
		match := true
		for _, s := range subs {
			if !strings.Contains(base, s) {
				match = false
				break
			}
		}
		if match {
			out = append(out, name)
		}
	}
	sortNatural(out)
	return out
}

// metadataPaths matches each item's normalized metadata against the
// keyword candidates as substrings, falling back to a filename scan on
// the scan substrings when nothing matches.
func (m *Manifest) metadataPaths(op string, scan []string, keywords ...string) []string {
	var out []string
	for _, it := range m.items {
		meta := it.normalized()
		for _, kw := range keywords {
			if strings.Contains(meta, kw) {
				out = append(out, m.resolveHref(it.Href))
				break
			}
		}
	}
	if len(out) == 0 {
		out = m.scanPathsContaining(scan...)
		m.pkg.warn(op, "manifest metadata matched no items for %q; scanned part names, found %d",
			strings.Join(keywords, "/"), len(out))
	}
	return out
}

var imagePartPattern = regexp.MustCompile(`^image(\d+)\.`)

// AddBinaryItem stores content as a new binary part and registers it
// in the live manifest. The part is named BinData/image{N}.{ext} where
// N is one past the highest image index already present; extension,
// when empty, is derived from the media type. The updated manifest is
// persisted immediately. Returns the new item's id and part name.
func (p *Package) AddBinaryItem(content []byte, mediaType, extension string) (string, string, error) {
	m, err := p.Manifest()
	if err != nil {
		return "", "", err
	}
	if extension == "" {
		extension = ExtensionForMediaType(mediaType)
	}

	next := 1
	for _, name := range p.order {
		if path.Dir(name) != BinDataDir {
			continue
		}
		if sub := imagePartPattern.FindStringSubmatch(path.Base(name)); sub != nil {
			if n, err := strconv.Atoi(sub[1]); err == nil && n >= next {
				next = n + 1
			}
		}
	}

	id := fmt.Sprintf("image%d", next)
	partName := fmt.Sprintf("%s/image%d.%s", BinDataDir, next, extension)

	manifestEl := m.root
	if els := m.root.Descendants("manifest"); len(els) > 0 {
		manifestEl = els[0]
	}
	prefix := ""
	if i := strings.IndexByte(manifestEl.Name, ':'); i >= 0 {
		prefix = manifestEl.Name[:i+1]
	}
	item := xmltree.New(prefix + "item")
	item.SetAttr("id", id)
	item.SetAttr("href", partName)
	item.SetAttr("media-type", mediaType)
	item.SetAttr("isEmbeded", "1")
	manifestEl.Append(item)

	serialized := xmltree.Serialize(m.root, true)
	p.SetPart(partName, append([]byte(nil), content...))
	p.SetPart(p.manifestPath, serialized)
	return id, partName, nil
}

// AddManifestItem appends an item entry to the live manifest and,
// when inSpine is set, an itemref placed after the spine entry named
// by spineAfter (or at the end when spineAfter is empty). The updated
// manifest is persisted immediately.
func (p *Package) AddManifestItem(id, href, mediaType string, inSpine bool, spineAfter string) error {
	m, err := p.Manifest()
	if err != nil {
		return err
	}

	manifestEl := m.root
	if els := m.root.Descendants("manifest"); len(els) > 0 {
		manifestEl = els[0]
	}
	prefix := ""
	if i := strings.IndexByte(manifestEl.Name, ':'); i >= 0 {
		prefix = manifestEl.Name[:i+1]
	}
	item := xmltree.New(prefix + "item")
	item.SetAttr("id", id)
	item.SetAttr("href", href)
	item.SetAttr("media-type", mediaType)
	manifestEl.Append(item)

	if inSpine {
		var spineEl *xmltree.Element
		if els := m.root.Descendants("spine"); len(els) > 0 {
			spineEl = els[0]
		} else {
			spineEl = xmltree.New(prefix + "spine")
			m.root.Append(spineEl)
		}
		ref := xmltree.New(prefix + "itemref")
		ref.SetAttr("idref", id)
		pos := len(spineEl.Children)
		if spineAfter != "" {
			for _, child := range spineEl.FindAll("itemref") {
				if child.AttrDefault("idref", "") == spineAfter {
					pos = spineEl.Index(child) + 1
					break
				}
			}
		}
		spineEl.Insert(pos, ref)
	}

	p.SetPart(p.manifestPath, xmltree.Serialize(m.root, true))
	return nil
}

// RemoveManifestItem deletes a manifest item entry matched by id or
// href, any spine references to it, and the part it points at. The
// updated manifest is persisted.
func (p *Package) RemoveManifestItem(idOrHref string) error {
	m, err := p.Manifest()
	if err != nil {
		return err
	}
	var target *xmltree.Element
	var parent *xmltree.Element
	wantPart := NormalizePartName(idOrHref)
	for _, el := range m.root.Descendants("manifest") {
		for _, child := range el.FindAll("item") {
			href := child.AttrDefault("href", "")
			if child.AttrDefault("id", "") == idOrHref ||
				NormalizePartName(href) == wantPart ||
				m.resolveHref(href) == wantPart {
				target, parent = child, el
				break
			}
		}
	}
	if target == nil {
		return fmt.Errorf("hwpx: manifest item %s: %w", idOrHref, ErrMissingPart)
	}
	partName := m.resolveHref(target.AttrDefault("href", ""))
	targetID := target.AttrDefault("id", "")
	parent.Remove(target)

	for _, spineEl := range m.root.Descendants("spine") {
		for _, ref := range spineEl.FindAll("itemref") {
			if ref.AttrDefault("idref", "") == targetID {
				spineEl.Remove(ref)
			}
		}
	}

	serialized := xmltree.Serialize(m.root, true)
	if p.HasPart(partName) {
		if err := p.DeletePart(partName); err != nil {
			return err
		}
	}
	p.SetPart(p.manifestPath, serialized)
	return nil
}

// RemoveBinaryItem is RemoveManifestItem under its binary-data name.
func (p *Package) RemoveBinaryItem(idOrHref string) error {
	return p.RemoveManifestItem(idOrHref)
}

var trailingDigits = regexp.MustCompile(`(\d+)`)

// sortNatural orders names so section2 sorts before section10.
func sortNatural(names []string) {
	sort.Slice(names, func(i, j int) bool {
		a, b := names[i], names[j]
		am := trailingDigits.FindStringIndex(a)
		bm := trailingDigits.FindStringIndex(b)
		if am != nil && bm != nil && a[:am[0]] == b[:bm[0]] {
			an, aerr := strconv.Atoi(a[am[0]:am[1]])
			bn, berr := strconv.Atoi(b[bm[0]:bm[1]])
			if aerr == nil && berr == nil && an != bn {
				return an < bn
			}
		}
		return a < b
	})
}
