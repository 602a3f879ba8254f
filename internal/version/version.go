// Package version exposes the build version embedded from the VERSION file.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var raw string

// Get returns the embedded version string without surrounding whitespace.
func Get() string {
	return strings.TrimSpace(raw)
}
