// SPDX-License-Identifier: MPL-2.0

// Package jsonx holds the lenient multi-strategy JSON-repair heuristic used
// when synthesizing structured results from captured engine output. Borg
// emits, depending on the command and flags, a single JSON document, JSON
// lines, or concatenated objects with no separator at all; the repair chain
// tries each shape in order and degrades to the raw text rather than failing.
package jsonx

import (
	"encoding/json"
	"strings"
)

// Lenient parses text as JSON using an ordered chain of repair strategies:
//
//  1. the whole text as one JSON value;
//  2. lines joined with commas and wrapped in brackets (JSON lines);
//  3. commas inserted at every "}{" boundary, wrapped in brackets
//     (concatenated objects);
//  4. the original text unchanged.
//
// It never fails. Empty input yields nil.
func Lenient(text string) any {
	if text == "" {
		return nil
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}

	joined := "[" + strings.Join(splitLines(text), ",") + "]"
	if err := json.Unmarshal([]byte(joined), &v); err == nil {
		return v
	}

	glued := "[" + strings.ReplaceAll(text, "}{", "},{") + "]"
	if err := json.Unmarshal([]byte(glued), &v); err == nil {
		return v
	}

	return text
}

// LenientLines parses an ordered record list (a JSON-mode channel capture)
// as a JSON array. On failure the records are returned unchanged.
func LenientLines(lines []string) any {
	if len(lines) == 0 {
		return nil
	}

	joined := "[" + strings.Join(lines, ",") + "]"
	var v any
	if err := json.Unmarshal([]byte(joined), &v); err == nil {
		return v
	}

	glued := "[" + strings.ReplaceAll(strings.Join(lines, ""), "}{", "},{") + "]"
	if err := json.Unmarshal([]byte(glued), &v); err == nil {
		return v
	}

	return lines
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
