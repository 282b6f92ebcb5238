package extraction

import (
	"strconv"
	"strings"
)

// stripFences removes a markdown code fence wrapper from model output, since
// models sometimes fence their JSON despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// asString coerces a JSON value to a trimmed string, or nil when absent,
// empty, or not string-like.
func asString(v interface{}) *string {
	switch s := v.(type) {
	case string:
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil
		}
		return &trimmed
	case float64:
		formatted := strconv.FormatFloat(s, 'f', -1, 64)
		return &formatted
	default:
		return nil
	}
}

// asDate coerces a JSON value to a YYYY-MM-DD string. Anything that does not
// match the shape is dropped rather than guessed at.
func asDate(v interface{}) *string {
	s := asString(v)
	if s == nil {
		return nil
	}
	d := *s
	if len(d) != 10 || d[4] != '-' || d[7] != '-' {
		return nil
	}
	return &d
}

// asTaxID coerces a JSON value to an upper-cased 15-character tax ID, or nil.
func asTaxID(v interface{}) *string {
	s := asString(v)
	if s == nil {
		return nil
	}
	id := strings.ToUpper(strings.ReplaceAll(*s, " ", ""))
	if len(id) != 15 {
		return nil
	}
	return &id
}

// asFloat coerces a JSON value to a float, accepting numeric strings with
// thousands separators. Unparseable values become nil.
func asFloat(v interface{}) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if cleaned == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
