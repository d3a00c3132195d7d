// Package config holds the flattened key/value model shared by the
// ConfigStore adapters. Keys use dot notation: "scoring.weights.name".
package config

import (
	"math"
	"sort"
	"strings"
)

// Values maps dotted keys to scalar or list values.
type Values map[string]any

// Flatten converts nested maps to dot-notation keys.
// E.g., {"a": {"b": 1}} becomes {"a.b": 1}.
func Flatten(m map[string]any) Values {
	out := make(Values)
	flattenInto(out, m, "")
	return out
}

func flattenInto(out Values, m map[string]any, prefix string) {
	for key, value := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			flattenInto(out, nested, full)
			continue
		}
		out[full] = value
	}
}

// Nest is the inverse of Flatten, used when writing TOML tables.
// A key that is both a value and a table prefix keeps the value.
func (v Values) Nest() map[string]any {
	root := make(map[string]any)
	for _, key := range v.Keys("") {
		parts := strings.Split(key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				if _, taken := node[p]; taken {
					node = nil
					break
				}
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		if node != nil {
			node[parts[len(parts)-1]] = v[key]
		}
	}
	return root
}

// String returns the value under key, or "" if absent or not a string.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns the value under key, or 0 if absent or not integral.
// TOML integers decode as int64.
func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) {
			return int(n)
		}
	}
	return 0
}

// Float returns the value under key widened to float64.
func (v Values) Float(key string) (float64, bool) {
	switch n := v[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Bool returns the value under key, or false if absent or not a bool.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// StringSlice returns the string elements under key.
// TOML arrays decode as []any; non-string elements are skipped.
func (v Values) StringSlice(key string) []string {
	switch s := v[key].(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// Keys returns the sorted keys that equal prefix or start with prefix + ".".
// An empty prefix returns every key.
func (v Values) Keys(prefix string) []string {
	var out []string
	for k := range v {
		if prefix == "" || k == prefix || strings.HasPrefix(k, prefix+".") {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
