package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
	"github.com/roach88/racetrack/internal/transfer"
	"github.com/roach88/racetrack/internal/walker"
)

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger of the transfer service and walker. Logs are
// discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario against st, which should be empty.
//
// Execution flow:
// 1. Import each setup document; any failure aborts the run
// 2. Import the scenario document, keeping its report and error
// 3. Walk the store to record counts, identities and links
//
// The returned error covers setup and inspection failures only. The
// import error is part of the result.
func Run(ctx context.Context, reg *schema.Registry, st store.Store, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	svc := transfer.New(reg, st, transfer.WithLogger(o.logger))
	format := scenario.format()

	for i, doc := range scenario.Setup {
		if _, err := svc.Import(ctx, strings.NewReader(doc), format); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	result := NewResult()
	result.Report, result.Err = svc.Import(ctx, strings.NewReader(scenario.Document), format)

	if err := inspect(ctx, reg, st, result, o.logger); err != nil {
		return nil, fmt.Errorf("inspect store: %w", err)
	}
	return result, nil
}

// inspect fills the state part of result from a full walk of st.
func inspect(ctx context.Context, reg *schema.Registry, st store.Store, result *Result, logger *slog.Logger) error {
	for _, name := range reg.Names() {
		result.Counts[name] = 0
	}

	ds, err := walker.New(reg, st, walker.WithLogger(logger)).Walk(ctx)
	if err != nil {
		return err
	}

	for _, sec := range ds.Sections {
		a, err := reg.Analyze(sec.Type)
		if err != nil {
			return err
		}
		result.Counts[sec.Type] += len(sec.Records)
		for _, rec := range sec.Records {
			result.Records = append(result.Records, rec.Project(a.IdentityNames()).String())
		}
	}
	slices.Sort(result.Records)

	for _, t := range ds.Relations {
		if len(t.Members) == 0 {
			continue
		}
		a, err := reg.Analyze(t.OwnerType)
		if err != nil {
			return err
		}
		key := t.Owner.Project(a.IdentityNames()).String() + "." + t.Field
		result.Links[key] += len(t.Members)
	}
	return nil
}
