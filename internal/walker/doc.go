// Package walker builds an export Dataset from a Store.
//
// The walker visits the requested types and, unless incomplete exports are
// allowed, every type reachable from them through relations and
// references. For each stored object it emits a full record and one
// relation table per non-empty to-many field. References and relation
// members are always emitted as identity records, never as nested full
// records, which keeps the output finite for cyclic graphs.
//
// The walker only reads from the Store.
package walker
