package walker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
)

// Walker exports the entity graph held by a Store.
type Walker struct {
	reg    *schema.Registry
	store  store.Store
	logger *slog.Logger

	allowIncomplete bool
	parallelism     int
}

// Option configures a Walker.
type Option func(*Walker)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Walker) {
		w.logger = l
	}
}

// WithAllowIncomplete exports only the requested types, leaving references
// to types outside the set dangling in the output.
func WithAllowIncomplete(allow bool) Option {
	return func(w *Walker) {
		w.allowIncomplete = allow
	}
}

// WithParallelism walks up to n types concurrently. The Dataset is
// assembled in type order, so the result does not depend on n.
// Values below 1 mean sequential.
func WithParallelism(n int) Option {
	return func(w *Walker) {
		w.parallelism = n
	}
}

// New creates a Walker.
func New(reg *schema.Registry, st store.Store, opts ...Option) *Walker {
	w := &Walker{
		reg:         reg,
		store:       st,
		logger:      slog.Default(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.parallelism < 1 {
		w.parallelism = 1
	}
	return w
}

// typeResult is the walk output of one type.
type typeResult struct {
	section   *ir.Section
	relations []*ir.RelationTable
	warnings  []string
}

// Walk exports the given types. With no types, every registered type is
// exported.
//
// Every type is analyzed before any data is read, so schema problems
// surface as a SchemaError with nothing emitted. Objects whose values fail
// to convert are skipped and recorded in Dataset.Warnings. A Store failure
// aborts the walk with a StoreError.
func (w *Walker) Walk(ctx context.Context, types ...string) (*ir.Dataset, error) {
	order, err := w.plan(types)
	if err != nil {
		return nil, err
	}

	analyses := make([]*schema.Analysis, len(order))
	for i, name := range order {
		a, err := w.reg.Analyze(name)
		if err != nil {
			return nil, err
		}
		analyses[i] = a
	}

	results := make([]typeResult, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.parallelism)
	for i, a := range analyses {
		g.Go(func() error {
			res, err := w.walkType(gctx, a)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds := ir.NewDataset()
	for _, res := range results {
		ds.Sections = append(ds.Sections, res.section)
		ds.Relations = append(ds.Relations, res.relations...)
		ds.Warnings = append(ds.Warnings, res.warnings...)
	}

	w.logger.Info("export walked",
		"types", len(order),
		"records", ds.RecordCount(),
		"links", ds.LinkCount(),
		"skipped", len(ds.Warnings))
	return ds, nil
}

// plan returns the ordered list of types to walk.
func (w *Walker) plan(types []string) ([]string, error) {
	if len(types) == 0 {
		return w.reg.Names(), nil
	}
	if !w.allowIncomplete {
		return w.reg.Closure(types...)
	}
	seen := make(map[string]bool, len(types))
	var out []string
	for _, name := range types {
		if _, ok := w.reg.Type(name); !ok {
			return nil, ir.NewSchemaError(name, "", "unknown type")
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

func (w *Walker) walkType(ctx context.Context, a *schema.Analysis) (typeResult, error) {
	res := typeResult{section: &ir.Section{Type: a.Name()}}

	objs, err := w.store.FetchAll(ctx, a.Name())
	if err != nil {
		return res, ir.NewStoreError("fetch all", a.Name(), err)
	}

	for _, obj := range objs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, tables, err := w.walkObject(a, obj)
		if ir.IsConversionError(err) {
			msg := fmt.Sprintf("skipped %s: %v", w.reg.Describe(obj), err)
			w.logger.Warn("export skipped object",
				"type", a.Name(),
				"object", w.reg.Describe(obj),
				"error", err)
			res.warnings = append(res.warnings, msg)
			continue
		}
		if err != nil {
			return res, err
		}
		res.section.Records = append(res.section.Records, rec)
		res.relations = append(res.relations, tables...)
	}

	w.logger.Debug("export type walked", "type", a.Name(), "records", len(res.section.Records))
	return res, nil
}

// walkObject builds the full record and relation tables of one object.
// Nothing is returned for an object that fails part way.
func (w *Walker) walkObject(a *schema.Analysis, obj schema.Entity) (*ir.Record, []*ir.RelationTable, error) {
	rec, err := w.reg.FullRecord(obj)
	if err != nil {
		return nil, nil, err
	}
	if len(a.RelationFields()) == 0 {
		return rec, nil, nil
	}

	owner, err := w.reg.IdentityRecord(obj)
	if err != nil {
		return nil, nil, err
	}

	var tables []*ir.RelationTable
	for _, f := range a.RelationFields() {
		members := f.Members(obj)
		if len(members) == 0 {
			continue
		}
		t := &ir.RelationTable{
			OwnerType:   a.Name(),
			Field:       f.Name,
			Kind:        f.Class.RelationKind(),
			RelatedType: f.Target,
			Owner:       owner,
		}
		for _, m := range members {
			id, err := w.reg.IdentityRecord(m)
			if err != nil {
				return nil, nil, err
			}
			t.Members = append(t.Members, id)
		}
		tables = append(tables, t)
	}
	return rec, tables, nil
}
