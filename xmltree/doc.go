// Package xmltree provides a small mutable XML element tree used by the
// opc and oxml packages.
//
// Unlike encoding/xml struct mapping, the tree preserves namespace
// prefixes exactly as written (hp:p stays hp:p), keeps attribute order,
// and supports mixed content through per-element Text and Tail fields.
// Lookups match on the local name only, ignoring the namespace prefix,
// which is how HWPX parts are addressed throughout this module.
package xmltree
