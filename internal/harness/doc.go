// Package harness runs import scenarios: documents imported into a store,
// checked against expectations and against a golden snapshot of the
// resulting graph.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: forward-reference
//	description: "A driver listed before its team gets the team late"
//	format: yaml            # xml or yaml, default yaml
//	setup:                  # documents imported first; each must succeed
//	  - |
//	    racetrack: ...
//	document: |             # the import under test
//	  racetrack:
//	    DriverList:
//	      - Driver: {tag: YE, team: {tag: Y}}
//	    TeamList:
//	      - Team: {tag: Y}
//	expect:
//	  error: RELATION_CYCLE # error code, omitted when the import succeeds
//	  message: "no progress"
//	  pending:
//	    - "Driver(tag=ZZ).team -> Team(tag=Z)"
//	  report: {created: 2, late_assigned: 1, passes: 1}
//	  counts: {Team: 1, Driver: 1}
//
// Only the expectations a scenario names are checked.
//
// # Golden Snapshots
//
// RunWithGolden renders the result with Result.Snapshot and compares it
// with testdata/golden/{name}.golden. The snapshot lists the error code,
// the report, the identity of every stored instance and the link count of
// every relation, sorted, so it does not depend on the store.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
package harness
