// Package oxml wraps the live XML trees of an HWPX document's parts in
// typed objects: sections, paragraphs, runs, tables, headers, memos.
//
// Every wrapper holds a pointer into a shared mutable tree and the part
// that owns it. Mutators compare before writing; a write that does not
// change the tree never marks its part dirty, so an untouched document
// serializes zero parts on save. Collection accessors return snapshots
// computed at call time, not live views.
package oxml
