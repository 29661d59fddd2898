package engine

// Report summarizes one import run.
type Report struct {
	// Created counts instances created, including owned relation members
	// created from their identity.
	Created int
	// Skipped counts records whose identity was already present.
	Skipped int
	// Deferred counts records whose identity could not be resolved on
	// first sight.
	Deferred int
	// LateAssigned counts references assigned by the fixpoint passes.
	LateAssigned int
	// LinksAdded counts relation members appended.
	LinksAdded int
	// LinksPresent counts relation members that were already linked.
	LinksPresent int
	// Passes counts fixpoint passes over the to-one worklist.
	Passes int

	// Types holds per-type counts in first-seen order.
	Types []TypeCounts
}

// TypeCounts holds the created and skipped counts of one type.
type TypeCounts struct {
	Type    string
	Created int
	Skipped int
}

func (r *Report) typeCounts(typ string) *TypeCounts {
	for i := range r.Types {
		if r.Types[i].Type == typ {
			return &r.Types[i]
		}
	}
	r.Types = append(r.Types, TypeCounts{Type: typ})
	return &r.Types[len(r.Types)-1]
}

func (r *Report) created(typ string) {
	r.Created++
	r.typeCounts(typ).Created++
}

func (r *Report) skipped(typ string) {
	r.Skipped++
	r.typeCounts(typ).Skipped++
}
