package main

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	slugPrefixRegex = regexp.MustCompile(`^(calculate|calc|calculator|convert|conversion)-`)
	slugSuffixRegex = regexp.MustCompile(`-(calculator|calc|converter|conversion)$`)
)

// ExtractSlug returns the last non-empty path segment of the first cell
// that contains a '/'.
func ExtractSlug(row Row) (string, bool) {
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if !strings.Contains(cell, "/") {
			continue
		}

		var parts []string
		for _, p := range strings.Split(cell, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			return parts[len(parts)-1], true
		}
	}
	return "", false
}

// SlugCore strips one known prefix and one known suffix from a slug,
// e.g. "calculate-price-elasticity-calculator" -> "price-elasticity".
// Only used for similarity comparison, never for naming output.
func SlugCore(slug string) string {
	s := strings.ToLower(slug)
	s = slugPrefixRegex.ReplaceAllString(s, "")
	s = slugSuffixRegex.ReplaceAllString(s, "")
	return s
}

// SlugCoreFromFilename maps "business_accounting_ebit-calculator.json" to "ebit".
func SlugCoreFromFilename(path string) string {
	stem := strings.ToLower(fileStem(path))
	segments := strings.Split(stem, "_")
	return SlugCore(segments[len(segments)-1])
}

// fileStem returns the base name without its final extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
