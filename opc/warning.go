package opc

import "strings"

// Warning records a non-fatal condition encountered while resolving
// package structure, typically that a manifest-driven lookup came up
// empty and a fallback path was used instead. Warnings accumulate on
// the Package and are exposed through Warnings(); nothing in this
// package writes to a global sink.
type Warning struct {
	// Op names the operation that degraded, e.g. "sectionPaths".
	Op string

	// Message describes the fallback that was taken.
	Message string
}

func (w Warning) String() string {
	return w.Op + ": " + w.Message
}

// FormatWarnings joins warnings into a single human-readable string.
func FormatWarnings(warnings []Warning) string {
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}
