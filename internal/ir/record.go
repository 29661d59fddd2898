package ir

import (
	"slices"
	"strings"
)

// Entry is a sealed interface for the value stored under a record field.
// Only Direct and Referenced implement this.
type Entry interface {
	irEntry()
}

// Direct holds a scalar value.
type Direct struct {
	Value Value
}

func (Direct) irEntry() {}

// Referenced holds the identity record of another entity.
type Referenced struct {
	Record *Record
}

func (Referenced) irEntry() {}

// NullEntry is the entry used for absent values and absent references.
var NullEntry Entry = Direct{Value: Null{}}

// Field is one named entry of a Record.
type Field struct {
	Name  string
	Entry Entry
}

// Record is an ordered mapping from field name to Entry for one entity type.
// Field order is insertion order and is preserved by every codec.
type Record struct {
	Type   string
	fields []Field
}

// NewRecord creates an empty record for the named type.
func NewRecord(typ string) *Record {
	return &Record{Type: typ}
}

// Set stores an entry under name. An existing field keeps its position.
func (r *Record) Set(name string, e Entry) *Record {
	if e == nil {
		e = NullEntry
	}
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Entry = e
			return r
		}
	}
	r.fields = append(r.fields, Field{Name: name, Entry: e})
	return r
}

// SetValue stores a Direct entry.
func (r *Record) SetValue(name string, v Value) *Record {
	if v == nil {
		v = Null{}
	}
	return r.Set(name, Direct{Value: v})
}

// SetRef stores a Referenced entry, or a null entry when ref is nil.
func (r *Record) SetRef(name string, ref *Record) *Record {
	if ref == nil {
		return r.Set(name, NullEntry)
	}
	return r.Set(name, Referenced{Record: ref})
}

// Get returns the entry stored under name.
func (r *Record) Get(name string) (Entry, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Entry, true
		}
	}
	return nil, false
}

// Value returns the Direct value stored under name, or Null when the field is
// missing or holds a reference.
func (r *Record) Value(name string) Value {
	e, ok := r.Get(name)
	if !ok {
		return Null{}
	}
	if d, ok := e.(Direct); ok && d.Value != nil {
		return d.Value
	}
	return Null{}
}

// Ref returns the nested record stored under name, or nil.
func (r *Record) Ref(name string) *Record {
	e, ok := r.Get(name)
	if !ok {
		return nil
	}
	if ref, ok := e.(Referenced); ok {
		return ref.Record
	}
	return nil
}

// Fields returns the fields in order. The slice must not be modified.
func (r *Record) Fields() []Field {
	return r.fields
}

// Names returns the field names in order.
func (r *Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Project returns a new record holding only the named fields, in the order
// given. Missing fields are stored as null entries.
func (r *Record) Project(names []string) *Record {
	out := &Record{Type: r.Type, fields: make([]Field, 0, len(names))}
	for _, n := range names {
		e, ok := r.Get(n)
		if !ok {
			e = NullEntry
		}
		out.fields = append(out.fields, Field{Name: n, Entry: e})
	}
	return out
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Type: r.Type, fields: make([]Field, len(r.fields))}
	for i, f := range r.fields {
		if ref, ok := f.Entry.(Referenced); ok {
			f.Entry = Referenced{Record: ref.Record.Clone()}
		}
		out.fields[i] = f
	}
	return out
}

// Equal reports whether two records have the same type, the same field order
// and equal entries.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == nil && o == nil
	}
	if r.Type != o.Type || len(r.fields) != len(o.fields) {
		return false
	}
	return slices.EqualFunc(r.fields, o.fields, func(a, b Field) bool {
		return a.Name == b.Name && EntriesEqual(a.Entry, b.Entry)
	})
}

// EntriesEqual compares two entries. A null Direct equals a missing entry.
func EntriesEqual(a, b Entry) bool {
	switch av := a.(type) {
	case Referenced:
		bv, ok := b.(Referenced)
		return ok && av.Record.Equal(bv.Record)
	case Direct:
		if bv, ok := b.(Direct); ok {
			return ValuesEqual(av.Value, bv.Value)
		}
		return b == nil && IsNull(av.Value)
	case nil:
		if bv, ok := b.(Direct); ok {
			return IsNull(bv.Value)
		}
		return b == nil
	}
	return false
}

// String renders the record for diagnostics, e.g.
// Race(season=Season(name=S1), raceNumber=1).
func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(r.Type)
	b.WriteByte('(')
	b.WriteString(r.Pairs())
	b.WriteByte(')')
	return b.String()
}

// Pairs renders the fields as comma separated name=value pairs.
func (r *Record) Pairs() string {
	var b strings.Builder
	for i, f := range r.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		switch e := f.Entry.(type) {
		case Referenced:
			b.WriteString(e.Record.String())
		case Direct:
			if IsNull(e.Value) {
				b.WriteString("null")
			} else {
				b.WriteString(e.Value.Text())
			}
		}
	}
	return b.String()
}
