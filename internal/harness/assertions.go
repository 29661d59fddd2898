package harness

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/racetrack/internal/ir"
)

// EvaluateExpectations compares result with the scenario's expectations.
// Returns a slice of messages for failed expectations.
func EvaluateExpectations(scenario *Scenario, result *Result) []string {
	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}
	e := scenario.Expect

	switch {
	case e.Error == "" && result.Err != nil:
		fail("unexpected error: %v", result.Err)
	case e.Error != "" && result.Err == nil:
		fail("expected %s error, import succeeded", e.Error)
	case e.Error != "":
		if got := ir.CodeOf(result.Err); string(got) != e.Error {
			fail("error code: got %q, want %q (%v)", got, e.Error, result.Err)
		}
		if e.Message != "" && !strings.Contains(result.Err.Error(), e.Message) {
			fail("error %q does not contain %q", result.Err.Error(), e.Message)
		}
		if len(e.Pending) > 0 {
			var ie *ir.Error
			var pending []string
			if errors.As(result.Err, &ie) {
				pending = ie.Pending
			}
			if !slices.Equal(pending, e.Pending) {
				fail("pending: got %q, want %q", pending, e.Pending)
			}
		}
	}

	if len(e.Report) > 0 {
		if result.Report == nil {
			fail("no report to check")
		} else {
			for _, key := range sortedKeys(e.Report) {
				got, _ := reportValue(result.Report, key)
				if want := e.Report[key]; got != want {
					fail("report.%s: got %d, want %d", key, got, want)
				}
			}
		}
	}

	for _, typ := range sortedKeys(e.Counts) {
		got, ok := result.Counts[typ]
		if !ok {
			fail("counts: unknown type %s", typ)
			continue
		}
		if want := e.Counts[typ]; got != want {
			fail("counts.%s: got %d, want %d", typ, got, want)
		}
	}

	return failures
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
