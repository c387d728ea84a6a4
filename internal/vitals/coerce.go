package vitals

import (
	"math"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

// Float coerces a loosely-typed reading to float64. Numbers of any Go kind,
// json.Number and numeric strings are accepted; booleans, blanks, NaN,
// infinities and anything else report false.
func Float(v any) (float64, bool) {
	switch val := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return 0, false
		}
		v = val
	}

	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// present mirrors "non-blank": nil and whitespace-only strings are absent.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	default:
		return true
	}
}

// AsMapping returns v as a string-keyed mapping when it is one.
func AsMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	case map[string]float64:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	case map[any]any:
		out, err := cast.ToStringMapE(m)
		return out, err == nil
	default:
		return nil, false
	}
}

// Lookup returns the value of the first alias present in m. Each alias is
// matched exactly first and then case-insensitively. Among keys differing
// only by case or padding, the lexicographically smallest present one wins.
func Lookup(m map[string]any, aliases ...string) (any, bool) {
	if len(m) == 0 {
		return nil, false
	}
	for _, alias := range aliases {
		if v, ok := m[alias]; ok && present(v) {
			return v, true
		}

		var matches []string
		for k, v := range m {
			if strings.EqualFold(strings.TrimSpace(k), alias) && present(v) {
				matches = append(matches, k)
			}
		}
		if len(matches) > 0 {
			slices.Sort(matches)
			return m[matches[0]], true
		}
	}
	return nil, false
}

// Number resolves the first present alias and coerces it. A present but
// malformed value yields nil; later aliases are not consulted.
func Number(m map[string]any, aliases ...string) *float64 {
	v, ok := Lookup(m, aliases...)
	if !ok {
		return nil
	}
	f, ok := Float(v)
	if !ok {
		return nil
	}
	return &f
}
