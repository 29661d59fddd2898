package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/racetrack/internal/engine"
	"github.com/roach88/racetrack/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Report is what the import did. Nil when the document could not be
	// decoded or failed validation.
	Report *engine.Report

	// Err is the import error, if any.
	Err error

	// Counts maps every registered type to its stored instance count.
	Counts map[string]int

	// Records lists the identity of every stored instance, sorted.
	Records []string

	// Links maps "Owner(identity).field" to the number of members.
	// Relations without members are left out.
	Links map[string]int
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{
		Counts: make(map[string]int),
		Links:  make(map[string]int),
	}
}

// reportValue returns the named report counter.
func reportValue(r *engine.Report, key string) (int, bool) {
	switch key {
	case "created":
		return r.Created, true
	case "skipped":
		return r.Skipped, true
	case "deferred":
		return r.Deferred, true
	case "late_assigned":
		return r.LateAssigned, true
	case "links_added":
		return r.LinksAdded, true
	case "links_present":
		return r.LinksPresent, true
	case "passes":
		return r.Passes, true
	}
	return 0, false
}

// Snapshot renders the result for golden comparison. Every list is
// sorted, so memory and SQLite stores produce the same text.
func (r *Result) Snapshot() string {
	var b strings.Builder

	code := "none"
	if r.Err != nil {
		code = "UNKNOWN"
		if c := ir.CodeOf(r.Err); c != "" {
			code = string(c)
		}
	}
	fmt.Fprintf(&b, "error: %s\n", code)

	if r.Report == nil {
		b.WriteString("report: none\n")
	} else {
		b.WriteString("report:")
		for _, key := range ReportFields {
			v, _ := reportValue(r.Report, key)
			fmt.Fprintf(&b, " %s=%d", key, v)
		}
		b.WriteByte('\n')
	}

	if len(r.Records) == 0 {
		b.WriteString("records: none\n")
	} else {
		b.WriteString("records:\n")
		for _, rec := range r.Records {
			fmt.Fprintf(&b, "  %s\n", rec)
		}
	}

	if len(r.Links) == 0 {
		b.WriteString("links: none\n")
	} else {
		b.WriteString("links:\n")
		keys := make([]string, 0, len(r.Links))
		for k := range r.Links {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s=%d\n", k, r.Links[k])
		}
	}
	return b.String()
}
