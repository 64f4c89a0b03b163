// Package sanitize extracts usable JSON from unreliable LLM completions.
//
// Provider output arrives with markdown fences, leading prose, and field names
// in whatever casing the model felt like that day. ExtractJSON narrows raw text
// to a single JSON payload and Fields reads it without ever panicking, so the
// rest of the engine only sees one canonical shape.
package sanitize

import (
	"encoding/json"
	"sort"
	"strings"
)

// ExtractJSON returns the best-effort JSON object or array embedded in raw.
// It never fails: when nothing recognizable is found it returns "{}", which is
// always parseable. Fences and backticks are stripped before slicing between
// the first opener and the last matching closer.
func ExtractJSON(raw string) string {
	s := stripFences(raw)

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	closer := byte('}')
	if start == -1 || (arrStart != -1 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start == -1 {
		return "{}"
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "{}"
	}

	return s[start : end+1]
}

// stripFences removes markdown code-fence markers and stray backticks from the
// edges of the string.
func stripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// Drop a language tag like "json" on the fence line.
		if nl := strings.IndexByte(s, '\n'); nl != -1 {
			first := strings.TrimSpace(s[:nl])
			if len(first) <= 8 && !strings.ContainsAny(first, "{}[]") {
				s = s[nl+1:]
			}
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.Trim(strings.TrimSpace(s), "`")
}

// Fields is a parsed JSON object with forgiving, case-insensitive accessors.
// Missing or mistyped fields yield caller-supplied defaults instead of errors.
type Fields struct {
	vals map[string]any
}

// Parse sanitizes raw completion text and parses it into Fields. The returned
// Fields is always usable; unparseable input behaves as an empty object.
func Parse(raw string) Fields {
	var vals map[string]any
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &vals); err != nil || vals == nil {
		return Fields{vals: map[string]any{}}
	}
	return Fields{vals: canonicalKeys(vals)}
}

// Wrap builds Fields from an already-decoded JSON object.
func Wrap(vals map[string]any) Fields {
	if vals == nil {
		vals = map[string]any{}
	}
	return Fields{vals: canonicalKeys(vals)}
}

// canonicalKeys folds PascalCase, camelCase, snake_case, and kebab-case field
// names onto one lookup key so callers never branch on casing. When two
// original keys fold to the same canonical form, an all-lowercase key (the
// schema's snake_case) beats a mixed-case one and remaining ties go to the
// lexicographically smallest, so repeated sanitization of the same payload
// always yields the same Fields regardless of map iteration order.
func canonicalKeys(in map[string]any) map[string]any {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(in))
	chosen := make(map[string]string, len(in))
	for _, k := range keys {
		ck := canonical(k)
		if prev, exists := chosen[ck]; exists && !preferKey(k, prev) {
			continue
		}
		chosen[ck] = k
		out[ck] = in[k]
	}
	return out
}

func preferKey(k, prev string) bool {
	return k == strings.ToLower(k) && prev != strings.ToLower(prev)
}

func canonical(k string) string {
	var sb strings.Builder
	for _, r := range k {
		if r == '_' || r == '-' || r == ' ' {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}

func (f Fields) lookup(key string) (any, bool) {
	v, ok := f.vals[canonical(key)]
	return v, ok
}

// Str returns the string at key, or def when missing or not a string.
func (f Fields) Str(key, def string) string {
	if v, ok := f.lookup(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Float returns the number at key, or def when missing or not numeric.
func (f Fields) Float(key string, def float64) float64 {
	if v, ok := f.lookup(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case string:
			var parsed float64
			if err := json.Unmarshal([]byte(strings.TrimSpace(n)), &parsed); err == nil {
				return parsed
			}
		}
	}
	return def
}

// Int returns the number at key truncated to int, or def.
func (f Fields) Int(key string, def int) int {
	if v, ok := f.lookup(key); ok {
		if n, ok := v.(float64); ok {
			return int(n)
		}
	}
	return def
}

// Bool returns the bool at key, or def when missing or not a bool.
func (f Fields) Bool(key string, def bool) bool {
	if v, ok := f.lookup(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// StrSlice returns the string array at key, skipping non-string elements.
// Missing or mistyped fields yield nil.
func (f Fields) StrSlice(key string) []string {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// IntSlice returns the number array at key truncated to ints, skipping
// non-numeric elements. Missing or mistyped fields yield nil.
func (f Fields) IntSlice(key string) []int {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []int
	for _, item := range items {
		if n, ok := item.(float64); ok {
			out = append(out, int(n))
		}
	}
	return out
}

// ObjSlice returns the object array at key as a slice of Fields, skipping
// non-object elements.
func (f Fields) ObjSlice(key string) []Fields {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Fields
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Wrap(m))
		}
	}
	return out
}
