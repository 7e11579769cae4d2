// Package extract pulls prompt text, completion text, token usage and
// finish reasons out of parsed Bedrock request/response bodies. Every
// model family ships a different JSON shape; extraction dispatches on the
// family computed by the model registry and falls back to a set of
// generic key names. Extraction never fails: a missing or malformed
// field degrades to a zero value.
package extract

import "encoding/json"

// Body is a parsed request or response body. The zero value (nil map)
// behaves like an empty body; every accessor is total.
type Body map[string]any

// ParseBody decodes raw JSON bytes into a Body. Invalid JSON yields an
// empty Body rather than an error so body corruption never propagates
// into the instrumented call path; the caller is expected to log the
// condition.
func ParseBody(data []byte) (Body, bool) {
	if len(data) == 0 {
		return Body{}, true
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Body{}, false
	}
	return Body(m), true
}

// Str returns the string value at key, or "" when absent or not a string.
func (b Body) Str(key string) string {
	s, _ := b[key].(string)
	return s
}

// Has reports whether key is present.
func (b Body) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Int returns the integer value at key. JSON numbers decode as float64;
// other types report absence.
func (b Body) Int(key string) (int, bool) {
	switch v := b[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// Float returns the numeric value at key.
func (b Body) Float(key string) (float64, bool) {
	switch v := b[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// List returns the array value at key, or nil.
func (b Body) List(key string) []any {
	l, _ := b[key].([]any)
	return l
}

// Map returns the object value at key, or nil.
func (b Body) Map(key string) Body {
	m, _ := b[key].(map[string]any)
	return Body(m)
}

// asBody converts a list element to a Body when it is an object.
func asBody(v any) Body {
	m, _ := v.(map[string]any)
	return Body(m)
}
