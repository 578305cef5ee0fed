// Package validation parses model output into structured artifacts and
// checks them against per-task schemas and domain rules.
package validation

import (
	"encoding/json"
	"regexp"
	"strings"

	"planforge/internal/apperrors"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON finds the first well-formed JSON object in model output.
// It accepts a fenced json block or a raw object embedded in prose.
func ExtractJSON(text string) (map[string]interface{}, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(m[1]), &obj); err == nil {
			return obj, nil
		}
	}

	// Scan for the first balanced top-level object, respecting strings
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text, start); end > start {
			var obj map[string]interface{}
			if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err == nil {
				return obj, nil
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += 1 + next
	}

	return nil, apperrors.New(apperrors.CodeOutputInvalid, "no well-formed JSON object in model output")
}

// matchBrace returns the index of the brace closing the object opened
// at start, or -1
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
