// Package tabular encodes datasets as a zip archive of CSV tables.
//
// Every type section becomes an entry named "<Type>.csv" whose header is the
// flattened column list of the type, so a reference to another entity is
// spread over that entity's identity columns ("race: season: name").
// Every relation field becomes an entry named "<OwnerType>.<field>.csv"
// with one row per (owner, member) pair. The owner's identity columns come
// first, followed by the member's identity columns prefixed with the related
// type name ("tag,driver: tag").
//
// Cells distinguish null from the empty string: null is an empty unquoted
// cell and the empty string is "". Numeric-looking text is never quoted and
// all other value text is, so a reader can tell 66 from "66" without the
// schema.
package tabular
