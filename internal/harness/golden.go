package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
)

// RunWithGolden executes a scenario, reports failed expectations and
// compares the snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, reg *schema.Registry, st store.Store, scenario *Scenario, opts ...Option) *Result {
	t.Helper()

	result, err := Run(t.Context(), reg, st, scenario, opts...)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}

	for _, failure := range EvaluateExpectations(scenario, result) {
		t.Errorf("scenario %s: %s", scenario.Name, failure)
	}

	AssertGolden(t, scenario.Name, result)
	return result
}

// AssertGolden compares the result's snapshot against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, []byte(result.Snapshot()))
}
