package util

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizePath turns a caller supplied path into a registry key: cleaned,
// made absolute when possible and, if fold is set, Unicode case folded so
// "A.PNG" and "a.png" share a key. Whitespace is part of the name and kept.
// Returns "" for blank input.
func NormalizePath(p string, fold bool) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	p = filepath.Clean(p)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if fold {
		// cases.Caser is stateful so one is made per call
		p = cases.Fold().String(p)
	}
	return p
}
