package opc

import (
	"fmt"

	"github.com/sejonglab/hwpx/xmltree"
)

// resolveRootfile parses META-INF/container.xml and returns the part
// name of the package manifest. When no rootfile carries the canonical
// media type the first declared rootfile is used and a warning is
// returned alongside it.
func resolveRootfile(container []byte) (string, *Warning, error) {
	root, err := xmltree.Parse(container)
	if err != nil {
		return "", nil, fmt.Errorf("hwpx: parse %s: %w", ContainerPath, err)
	}

	rootfiles := root.Descendants("rootfile")
	if len(rootfiles) == 0 {
		return "", nil, ErrNoRootfiles
	}

	for _, rf := range rootfiles {
		if rf.AttrDefault("media-type", "") == rootfileMediaType {
			return NormalizePartName(rf.AttrDefault("full-path", "")), nil, nil
		}
	}

	first := rootfiles[0]
	fullPath := first.AttrDefault("full-path", "")
	warn := &Warning{
		Op: "rootfile",
		Message: fmt.Sprintf("no rootfile with media type %s; using %s",
			rootfileMediaType, fullPath),
	}
	return NormalizePartName(fullPath), warn, nil
}
