// Package store persists entities for the exporter and importer.
//
// Store is the collaborator interface: save, delete, fetch by surrogate ID,
// fetch by one or more field values, and enumerate a type in insertion
// order. Two implementations are provided:
//
//   - Memory: an in-process store holding entity pointers directly
//   - SQLite: a durable store with an identity map over loaded rows
//
// # SQLite layout
//
//   - objects(id, type, seq, data): one row per entity; data is a JSON
//     object of the exported fields, references stored as target IDs
//   - links(owner_type, owner_id, field, position, member_type, member_id):
//     members of owning relations, in order
//
// Owned relations that declare an inverse are not stored as links; their
// members are the rows whose inverse reference points at the owner.
//
// All enumeration queries use ORDER BY seq ASC, id COLLATE BINARY ASC so
// results come back in insertion order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Tables are created by goose migrations embedded in the binary.
package store
