package report

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the values a report may hold.
// Only String, Int, Bool, Array and Object implement it. There is no null
// and no float, so every Value has exactly one canonical encoding.
type Value interface {
	reportValue()
}

// String is a string value.
type String string

func (String) reportValue() {}

// Int is an integer value.
type Int int64

func (Int) reportValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) reportValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) reportValue() {}

// Object maps keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) reportValue() {}

// Strings builds an Array of String values.
func Strings(ss ...string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// SortedKeys returns keys in canonical order (UTF-16 code units).
// Go's string comparison uses UTF-8 bytes, which orders some keys
// differently.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}
