package ir

import (
	"strconv"
)

// Value is a sealed interface representing scalar field values.
// Only Null, String, Int, and Bool implement this.
type Value interface {
	irValue() // Sealed - only these types implement it

	// Text returns the textual form used by the tabular and hierarchical
	// codecs. Null renders as the empty string.
	Text() string
}

// Null represents an absent value.
// Using an explicit type ensures every field has a Value, never a Go nil.
type Null struct{}

func (Null) irValue() {}

// Text implements Value.
func (Null) Text() string { return "" }

// String represents a string value.
type String string

func (String) irValue() {}

// Text implements Value.
func (s String) Text() string { return string(s) }

// Int represents an integer value. Always int64.
type Int int64

func (Int) irValue() {}

// Text implements Value.
func (n Int) Text() string { return strconv.FormatInt(int64(n), 10) }

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Text implements Value.
func (b Bool) Text() string { return strconv.FormatBool(bool(b)) }

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// ValuesEqual compares two values by type and content. Nil equals Null.
func ValuesEqual(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	return a == b
}
