// Package engine imports a decoded dataset into a store.
//
// Import is additive. Every incoming record is matched against the store
// by its identity; records that already exist are skipped, the rest are
// created and saved immediately.
//
// Processing Flow:
//  1. Validate the dataset against the schema before any write.
//  2. For each record in section order: identify, look up, materialize and
//     persist. References that cannot be resolved yet go on the to-one
//     worklist. A record whose identity itself depends on an unresolved
//     reference is deferred as a whole and written only once its identity
//     resolves.
//  3. Repeat stable passes over the to-one worklist until it is empty. A
//     pass that removes nothing fails the run with a RelationCycleError.
//  4. Link relation members with set semantics. Owned members that do not
//     exist are created from their identity; owning members are only
//     linked and must already exist.
//
// Failed runs are not rolled back. Records persisted before the failure
// remain in the store.
//
// An Engine holds no state between runs. It is not safe for concurrent
// Import calls; callers serialize imports against one store.
package engine
