package main

import "strings"

// versionMarker must appear in model output for it to be trusted as JSON.
const versionMarker = `"version"`

// ExtractJSONBlock cuts the object holding `"version"` out of free-form
// model output that may carry prose, code fences or other brace fragments.
//
// The opening brace is the last '{' before the marker (or the first '{' in
// the text). The closing brace is found by depth counting; when the output
// is truncated and never balances, the last '}' in the text is used if it
// follows the opening brace.
func ExtractJSONBlock(text string) (string, bool) {
	versionIndex := strings.Index(text, versionMarker)
	if versionIndex == -1 {
		return "", false
	}

	start := strings.LastIndex(text[:versionIndex], "{")
	if start == -1 {
		start = strings.Index(text, "{")
		if start == -1 {
			return "", false
		}
	}

	end := -1
	depth := 0
scan:
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i
				break scan
			}
		}
	}

	if end == -1 {
		last := strings.LastIndex(text, "}")
		if last == -1 || last <= start {
			return "", false
		}
		end = last
	}

	return text[start : end+1], true
}
