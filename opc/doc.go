// Package opc reads and writes the Open Packaging Convention container
// that an HWPX file is stored in: a ZIP archive of named parts with a
// mimetype marker, a META-INF/container.xml rootfile index, and an
// OPF-style content manifest (Contents/content.hpf) declaring the
// document's parts and their reading order.
//
// The package keeps every part in memory. Structural requirements
// (mimetype, container.xml, version.xml, declared rootfiles) are
// enforced on open. Everything derived from the manifest (the spine,
// section and header part lists, master-page/history/version paths)
// degrades through documented fallbacks that surface as Warnings
// rather than errors.
package opc
