package parse

import (
	"encoding/json"
	"strings"
)

// ExtractionError is returned when no repair heuristic managed to recover a
// valid JSON value from the model output. It carries the original input so
// that callers can degrade to treating it as plain text.
type ExtractionError struct {
	Raw string
}

func (e *ExtractionError) Error() string {
	return "no valid JSON value found in model output"
}

// repair is a single text-level repair applied to the current candidate
// string. Repairs are cumulative: each one receives the output of the
// previous one.
type repair func(string) string

// repairs is the fixed heuristic chain. Order matters and is part of the
// contract: fence stripping first (it exposes the payload), then narrowing to
// the outermost object, then the two syntax fixes.
var repairs = []repair{
	stripCodeFences,
	outermostObject,
	normalizeSingleQuotes,
	stripTrailingCommas,
}

// Extract recovers a JSON value from a string that is supposed to contain
// one, but which may be wrapped in prose or Markdown code fences, or carry
// small syntactic defects such as single-quoted keys or trailing commas.
//
// A strict parse is attempted first, then again after each repair heuristic;
// the first successful parse wins. Extract is a pure function and is
// deterministic for a given input. On failure it returns an
// *ExtractionError, never a panic.
func Extract(raw string) (interface{}, error) {
	if v, ok := tryParse(raw); ok {
		return v, nil
	}

	candidate := raw
	for _, r := range repairs {
		candidate = r(candidate)
		if v, ok := tryParse(candidate); ok {
			return v, nil
		}
	}

	return nil, &ExtractionError{Raw: raw}
}

func tryParse(s string) (interface{}, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// stripCodeFences removes a leading ```lang delimiter and a trailing ```
// delimiter. Anything before the opening fence (usually prose like "Here is
// the JSON you asked for:") is dropped as well.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)

	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[idx+3:]
		// drop the language tag on the fence line
		if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
			firstLine := strings.TrimSpace(trimmed[:nl])
			if isFenceLanguageTag(firstLine) {
				trimmed = trimmed[nl+1:]
			}
		}
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}

	return strings.TrimSpace(trimmed)
}

func isFenceLanguageTag(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// outermostObject narrows the candidate to the outermost balanced {...} span,
// counting braces but ignoring any that appear inside string literals. If no
// balanced object is found the candidate is returned unchanged.
func outermostObject(s string) string {
	start := -1
	depth := 0
	inString := false
	escape := false

	for i, r := range s {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escape:
				escape = false
			case r == '\\':
				escape = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}

	return s
}

// normalizeSingleQuotes rewrites single quotes to double quotes wherever they
// occur outside an already well-formed double-quoted string. Double quotes
// that appear inside a rewritten single-quoted run are escaped so the result
// stays parseable.
func normalizeSingleQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inDouble := false
	inSingle := false
	escape := false

	for _, r := range s {
		switch {
		case escape:
			escape = false
			b.WriteRune(r)
		case r == '\\':
			escape = true
			b.WriteRune(r)
		case inDouble:
			if r == '"' {
				inDouble = false
			}
			b.WriteRune(r)
		case inSingle:
			switch r {
			case '\'':
				inSingle = false
				b.WriteByte('"')
			case '"':
				b.WriteString(`\"`)
			default:
				b.WriteRune(r)
			}
		case r == '"':
			inDouble = true
			b.WriteRune(r)
		case r == '\'':
			inSingle = true
			b.WriteByte('"')
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// stripTrailingCommas removes commas that directly precede a closing bracket
// or brace, string literals excluded.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	inString := false
	escape := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			switch {
			case escape:
				escape = false
			case r == '\\':
				escape = true
			case r == '"':
				inString = false
			}
			b.WriteRune(r)
			continue
		}
		switch r {
		case '"':
			inString = true
			b.WriteRune(r)
		case ',':
			j := i + 1
			for j < len(runes) && isJSONWhitespace(runes[j]) {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

func isJSONWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
