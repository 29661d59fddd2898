// Package schema describes exportable entity types.
//
// Each type is declared once with an explicit descriptor: its name, the
// ordered list of identity fields, and one Field per persistent field with
// accessor closures. A Registry validates the descriptors and derives an
// Analysis per type: every field classified as exactly one of Identity,
// Value, OwnedRelation, OwningRelation or Ignorable, plus the flattened
// column lists used by the tabular codec.
//
// Analysis happens once per type and is cached. A relation or reference to a
// type without identity metadata is a SchemaError reported before any data
// is processed.
//
// The registry is built at process start and is read-only afterwards; it is
// safe for concurrent use.
package schema
