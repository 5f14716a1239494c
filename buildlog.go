package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// buildErrorMarkers flag a log line as reporting a failure (matched lower-cased).
var buildErrorMarkers = []string{
	"error:",
	"build error occurred",
	"failed to",
	"exited with 1",
}

// BuildLog is the text of the downstream build log, loaded once per run.
type BuildLog struct {
	Path string
	text string
}

// LoadBuildLog reads the build log at path. A missing file is not an
// error: it returns nil, and callers must then skip date stamping
// entirely rather than treat every slug as clean.
func LoadBuildLog(path string) (*BuildLog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading build log %s: %w", path, err)
	}
	return &BuildLog{Path: path, text: strings.ToValidUTF8(string(data), "")}, nil
}

// NewBuildLog wraps already loaded log text.
func NewBuildLog(text string) *BuildLog {
	return &BuildLog{text: text}
}

// HasError reports whether an error line in the log mentions slug.
func (b *BuildLog) HasError(slug string) bool {
	return SlugHasBuildError(b.text, slug)
}

// SlugHasBuildError scans logText for lines like
//
//	Error: config file business/accounting/discounted-cash-flow-calculator: ...
//
// A line counts when it carries an error marker (case-insensitive) and the
// slug, "/"+slug or slug+".json" (case-sensitive). Lines break on
// \n, \r, \v, \f, the ASCII file, group and record separators, NEL and
// the Unicode line and paragraph separators.
func SlugHasBuildError(logText, slug string) bool {
	variants := []string{slug, "/" + slug, slug + ".json"}

	lines := strings.FieldsFunc(logText, isLineBreak)
	for _, line := range lines {
		if !isErrorLine(line) {
			continue
		}
		for _, v := range variants {
			if strings.Contains(line, v) {
				return true
			}
		}
	}
	return false
}

func isErrorLine(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range buildErrorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
