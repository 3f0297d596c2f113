// Package recovery extracts the best-effort JSON value from unreliable
// free-form model text. The model may fence JSON in markdown, wrap it in
// prose, truncate it, or emit spurious bracket layers between fragments;
// recovery applies a layered strategy and returns nil when nothing usable
// remains. Callers must treat nil as "no structured data", not as an error.
package recovery

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Observed malformation: the model closes and reopens the array between
// object fragments (`}], [{` where `}, {` was intended), sometimes leaving
// a doubled `]]` at the end.
var (
	splitArrayRe    = regexp.MustCompile(`\}\s*\]\s*,\s*\[\s*\{`)
	doubleClosingRe = regexp.MustCompile(`\}\s*\]\s*\]`)
)

// Recover returns the JSON value contained in text, or nil if none can be
// extracted. It is idempotent on already-valid JSON: for any marshaled
// value v, Recover(string(v)) round-trips v.
func Recover(text string) interface{} {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}

	if v, ok := parse(s); ok {
		return v
	}

	stripped := StripFences(s)
	if stripped != s {
		if v, ok := parse(stripped); ok {
			return v
		}
	}

	repaired := RepairStructure(stripped)
	if repaired != stripped {
		if v, ok := parse(repaired); ok {
			return v
		}
	}

	if candidate := scanBalanced(repaired); candidate != "" {
		if v, ok := parse(candidate); ok {
			return v
		}
	}

	return nil
}

func parse(s string) (interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// StripFences removes a surrounding triple-backtick code fence, with an
// optional language tag after the opening backticks. Text that is not
// fenced is returned unchanged.
func StripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	body := trimmed[3:]
	// Drop a language tag such as "json" up to the first newline.
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if len(tag) <= 10 && !strings.ContainsAny(tag, "{}[]\"") {
			body = body[nl+1:]
		}
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// RepairStructure rewrites the spurious extra array layer the model emits
// between successive object fragments, collapsing `}], [{` to `}, {` and a
// doubled trailing `]]` to a single `]`.
func RepairStructure(s string) string {
	out := splitArrayRe.ReplaceAllString(s, "}, {")
	out = doubleClosingRe.ReplaceAllString(out, "}]")
	return out
}

// scanBalanced locates the first top-level '{' or '[' and returns the
// substring up to its matching closer at depth 0, honoring string literals
// and backslash escapes. Returns "" if no balanced region exists.
func scanBalanced(s string) string {
	idxObj := strings.IndexByte(s, '{')
	idxArr := strings.IndexByte(s, '[')

	var start int
	var open, closer byte
	switch {
	case idxObj < 0 && idxArr < 0:
		return ""
	case idxArr < 0 || (idxObj >= 0 && idxObj < idxArr):
		start, open, closer = idxObj, '{', '}'
	default:
		start, open, closer = idxArr, '[', ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
