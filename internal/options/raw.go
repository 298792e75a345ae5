package options

import (
	"strconv"
	"strings"
)

// Value is a raw option value: either a string or a boolean.
type Value struct {
	str    string
	b      bool
	isBool bool
}

// StringValue wraps s.
func StringValue(s string) Value { return Value{str: s} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{b: b, isBool: true} }

// IsBool reports whether the value is a boolean.
func (v Value) IsBool() bool { return v.isBool }

// Bool returns the boolean, or false for string values.
func (v Value) Bool() bool { return v.isBool && v.b }

// String returns the string form; booleans render as "true"/"false".
func (v Value) String() string {
	if v.isBool {
		return strconv.FormatBool(v.b)
	}
	return v.str
}

// Interface returns a string or a bool.
func (v Value) Interface() any {
	if v.isBool {
		return v.b
	}
	return v.str
}

// Raw is the passthrough option list handed to task handlers. Keys keep the
// order of their first appearance; a repeated key keeps its last value.
type Raw struct {
	keys   []string
	values map[string]Value
}

// NewRaw returns an empty list.
func NewRaw() *Raw {
	return &Raw{values: make(map[string]Value)}
}

// RawFromMap builds a Raw from plain strings and bools, mostly for tests and
// script tasks. Keys are visited in map order, which is unspecified.
func RawFromMap(m map[string]any) *Raw {
	r := NewRaw()
	for k, v := range m {
		switch x := v.(type) {
		case bool:
			r.Set(k, BoolValue(x))
		case string:
			r.Set(k, StringValue(x))
		}
	}
	return r
}

// Set stores v under key, replacing any earlier value.
func (r *Raw) Set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value for key.
func (r *Raw) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key was supplied.
func (r *Raw) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// String returns the value for key as a string, or "" when absent.
func (r *Raw) String(key string) string {
	if v, ok := r.values[key]; ok {
		return v.String()
	}
	return ""
}

// Bool reports whether key is present with a true boolean value.
func (r *Raw) Bool(key string) bool {
	return r.values[key].Bool()
}

// Int parses the value for key as an integer. ok is false when the key is
// absent or not numeric.
func (r *Raw) Int(key string) (n int, ok bool) {
	v, present := r.values[key]
	if !present || v.isBool {
		return 0, false
	}
	n, err := strconv.Atoi(v.str)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Keys returns the keys in first-appearance order.
func (r *Raw) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len is the number of distinct keys.
func (r *Raw) Len() int { return len(r.keys) }

// Map returns a plain map of strings and bools.
func (r *Raw) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.values[k].Interface()
	}
	return m
}

// ParseRaw turns every "--key[=value]" token into an entry. The key is
// lower-cased with its leading dashes removed; a token without "=" is the
// boolean true, and the literal strings "True" and "False" become booleans.
// Other tokens are ignored.
func ParseRaw(tokens []string) *Raw {
	r := NewRaw()
	for _, tok := range tokens {
		if !strings.HasPrefix(tok, "--") {
			continue
		}
		name, value, hasValue := strings.Cut(tok, "=")
		key := strings.ToLower(strings.TrimLeft(name, "-"))
		if key == "" && !hasValue {
			// bare "--" terminator
			continue
		}
		switch {
		case !hasValue:
			r.Set(key, BoolValue(true))
		case value == "True":
			r.Set(key, BoolValue(true))
		case value == "False":
			r.Set(key, BoolValue(false))
		default:
			r.Set(key, StringValue(value))
		}
	}
	return r
}
