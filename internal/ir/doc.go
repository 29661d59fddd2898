// Package ir provides the structured record tree shared by the exporter,
// the codecs and the importer.
//
// A Record is an ordered mapping from field name to Entry, where an Entry is
// either a Direct scalar value or a Referenced nested record holding the
// identity of another entity. A Dataset groups full records by type and
// carries the relation tables that describe to-many links between entities.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Values are sealed: Null, String, Int, Bool
//   - Identity keys are derived from canonical JSON, never from Go map order
package ir
