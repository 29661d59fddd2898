package harness

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/racetrack/internal/engine"
	"github.com/roach88/racetrack/internal/ir"
)

func TestEvaluateExpectations(t *testing.T) {
	cycle := ir.NewRelationCycleError("no progress resolving pending references",
		[]string{"Driver(tag=ZZ).team -> Team(tag=Z)"})

	tests := []struct {
		name   string
		expect Expect
		result *Result
		want   []string
	}{
		{
			name:   "success as expected",
			expect: Expect{Report: map[string]int{"created": 2}, Counts: map[string]int{"Team": 1}},
			result: &Result{Report: &engine.Report{Created: 2}, Counts: map[string]int{"Team": 1}},
		},
		{
			name:   "unexpected error",
			result: &Result{Err: errors.New("boom")},
			want:   []string{"unexpected error: boom"},
		},
		{
			name:   "missing error",
			expect: Expect{Error: "FORMAT"},
			result: &Result{Report: &engine.Report{}},
			want:   []string{"expected FORMAT error, import succeeded"},
		},
		{
			name:   "matching cycle",
			expect: Expect{Error: "RELATION_CYCLE", Message: "no progress", Pending: []string{"Driver(tag=ZZ).team -> Team(tag=Z)"}},
			result: &Result{Err: cycle},
		},
		{
			name:   "wrong code and message",
			expect: Expect{Error: "STORE", Message: "save"},
			result: &Result{Err: cycle},
			want: []string{
				`error code: got "RELATION_CYCLE", want "STORE" (` + cycle.Error() + ")",
				`error "` + cycle.Error() + `" does not contain "save"`,
			},
		},
		{
			name:   "wrong pending",
			expect: Expect{Error: "RELATION_CYCLE", Pending: []string{"x"}},
			result: &Result{Err: cycle},
			want:   []string{`pending: got ["Driver(tag=ZZ).team -> Team(tag=Z)"], want ["x"]`},
		},
		{
			name:   "report and counts",
			expect: Expect{Report: map[string]int{"passes": 1, "created": 3}, Counts: map[string]int{"Team": 2, "Pit": 0}},
			result: &Result{Report: &engine.Report{Created: 2}, Counts: map[string]int{"Team": 1}},
			want: []string{
				"report.created: got 2, want 3",
				"report.passes: got 0, want 1",
				"counts: unknown type Pit",
				"counts.Team: got 1, want 2",
			},
		},
		{
			name:   "no report",
			expect: Expect{Error: "FORMAT", Report: map[string]int{"created": 0}},
			result: &Result{Err: ir.NewFormatError("bad")},
			want:   []string{"no report to check"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateExpectations(&Scenario{Expect: tt.expect}, tt.result)
			assert.Equal(t, tt.want, got)
		})
	}
}
