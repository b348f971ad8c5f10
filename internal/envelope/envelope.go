// Package envelope extracts record lists from marketplace responses whose
// outer shape is not fixed.
package envelope

import (
	"github.com/PaesslerAG/jsonpath"
)

// Shape is one known nesting of a record list inside a response body.
type Shape struct {
	Name string
	Path string // JSONPath to the list, "$" for a bare array
}

// Extract tries shapes in order and returns the first list found along with
// the matching shape name. An unrecognised body yields an empty list and "".
func Extract(doc any, shapes []Shape) ([]any, string) {
	for _, s := range shapes {
		v, err := jsonpath.Get(s.Path, doc)
		if err != nil {
			continue
		}
		if list, ok := v.([]any); ok {
			return list, s.Name
		}
	}
	return []any{}, ""
}

// String reads a string field, accepting numbers rendered by the decoder.
func String(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return formatNumber(v)
		}
	}
	return ""
}

// Number reads the first present numeric field. Numeric strings are accepted.
func Number(rec map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := rec[k].(type) {
		case float64:
			if v != 0 {
				return v, true
			}
		case string:
			if f, ok := parseNumber(v); ok && f != 0 {
				return f, true
			}
		}
	}
	return 0, false
}
