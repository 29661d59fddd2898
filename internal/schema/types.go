package schema

import (
	"reflect"

	"github.com/roach88/racetrack/internal/ir"
)

// Entity is implemented by every persistent object.
//
// EntityID is a store-assigned surrogate key. It is never exported; the
// field that holds it is always Ignorable.
type Entity interface {
	EntityType() string
	EntityID() string
	SetEntityID(id string)
}

// Class is the export classification of a field.
type Class int

const (
	// Value is an exported scalar or single reference.
	Value Class = iota + 1
	// Identity is a Value field that is part of the type's natural key.
	// Identity is assigned by analysis, never declared.
	Identity
	// OwnedRelation is a to-many field whose members hold the canonical
	// back-reference (the "one" side of one-to-many).
	OwnedRelation
	// OwningRelation is a to-many field that carries a many-to-many link for
	// both sides.
	OwningRelation
	// Ignorable fields are never exported.
	Ignorable
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case Value:
		return "value"
	case Identity:
		return "identity"
	case OwnedRelation:
		return "owned"
	case OwningRelation:
		return "owning"
	case Ignorable:
		return "ignorable"
	default:
		return "unknown"
	}
}

// IsRelation reports whether c is a to-many class.
func (c Class) IsRelation() bool {
	return c == OwnedRelation || c == OwningRelation
}

// IsExported reports whether fields of class c appear in full records.
func (c Class) IsExported() bool {
	return c == Value || c == Identity
}

// RelationKind maps a relation class to the kind recorded on relation
// tables. Non-relation classes map to ir.Owned.
func (c Class) RelationKind() ir.RelationKind {
	if c == OwningRelation {
		return ir.Owning
	}
	return ir.Owned
}

// Kind is the value type of an exported field.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindBool
	// KindEnum is a string restricted to Field.Enum. Parsing is case
	// insensitive and yields the canonical spelling.
	KindEnum
	// KindRef is a single reference to an entity of type Field.Target.
	KindRef
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindEnum:
		return "enum"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Field describes one persistent field.
//
// Exported fields (Value) use Get and Set. Get returns string, int64, bool,
// an Entity, or nil for an absent value. Set receives the same Go types.
// Relation fields use Members and Add; Add is responsible for updating the
// other side of the relation.
type Field struct {
	Name   string
	Class  Class
	Kind   Kind
	Target string
	Enum   []string

	// Inverse names the reference field on Target that holds the
	// back-reference of an OwnedRelation. Stores use it to derive the
	// members instead of persisting them twice. Optional.
	Inverse string

	Get     func(Entity) any
	Set     func(Entity, any) error
	Members func(Entity) []Entity
	Add     func(owner, member Entity)

	// Owner is the declaring type's name. Set by Registry.Register.
	Owner string
}

// IsRef reports whether f is a single reference.
func (f *Field) IsRef() bool {
	return f.Kind == KindRef && f.Class.IsExported()
}

// Type describes one entity type.
type Type struct {
	Name string

	// Identity lists the natural-key fields in key order. A type without
	// identity can be exported but can never be the target of a relation
	// or reference.
	Identity []string

	Fields []Field

	// New constructs an empty instance.
	New func() Entity
}

// HasIdentity reports whether the type declares identity fields.
func (t *Type) HasIdentity() bool {
	return len(t.Identity) > 0
}

// isNil reports whether v is nil or a typed nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
