package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
	"github.com/roach88/racetrack/internal/store"
)

// Engine reconciles decoded datasets with a store.
type Engine struct {
	reg       *schema.Registry
	store     store.Store
	logger    *slog.Logger
	maxPasses int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMaxPasses bounds the number of fixpoint passes. Zero, the default,
// means no bound; the fixpoint always ends because every pass either
// removes an entry or fails.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		e.maxPasses = n
	}
}

// New creates an engine for the registry's types backed by st.
func New(reg *schema.Registry, st store.Store, opts ...Option) *Engine {
	e := &Engine{
		reg:    reg,
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pending is an entry of the to-one worklist. A pending entry without obj
// is a whole record whose identity could not be resolved yet; otherwise it
// is a reference assignment on a saved instance.
type pending struct {
	a  *schema.Analysis
	id *ir.Record

	rec *ir.Record

	obj    schema.Entity
	field  *schema.Field
	target *ir.Record
}

func (p *pending) String() string {
	if p.obj == nil {
		return p.id.String() + " awaits its identity"
	}
	return fmt.Sprintf("%s.%s -> %s", p.id, p.field.Name, p.target)
}

// run holds the state of one Import call.
type run struct {
	*Engine
	report *Report

	// cache maps identity keys to instances found or created in this run.
	cache  map[string]schema.Entity
	toOne  worklist[*pending]
	toMany worklist[*ir.RelationTable]
}

// Import reconciles ds with the store and returns what it did.
//
// Import is not transactional. When it fails, instances persisted before
// the failure stay in the store and the returned report counts them.
func (e *Engine) Import(ctx context.Context, ds *ir.Dataset) (*Report, error) {
	if err := e.validate(ds); err != nil {
		return nil, err
	}

	r := &run{
		Engine: e,
		report: &Report{},
		cache:  make(map[string]schema.Entity),
	}

	for _, sec := range ds.Sections {
		a, err := e.reg.Analyze(sec.Type)
		if err != nil {
			return r.report, err
		}
		for _, rec := range sec.Records {
			if err := ctx.Err(); err != nil {
				return r.report, err
			}
			done, err := r.importRecord(ctx, a, rec)
			if err != nil {
				return r.report, err
			}
			if !done {
				id := rec.Project(a.IdentityNames())
				r.toOne.push(&pending{a: a, id: id, rec: rec})
				r.report.Deferred++
				e.logger.Debug("record deferred", "type", a.Name(), "identity", id.Pairs())
			}
		}
	}
	for _, t := range ds.Relations {
		r.toMany.push(t)
	}

	if err := r.settle(ctx); err != nil {
		return r.report, err
	}
	if err := r.link(ctx); err != nil {
		return r.report, err
	}

	e.logger.Info("import complete",
		"created", r.report.Created,
		"skipped", r.report.Skipped,
		"deferred", r.report.Deferred,
		"late_assigned", r.report.LateAssigned,
		"links_added", r.report.LinksAdded,
		"links_present", r.report.LinksPresent,
		"passes", r.report.Passes)
	return r.report, nil
}

// importRecord identifies, looks up and if needed materializes one record.
// It returns false when the record's identity cannot be resolved yet.
func (r *run) importRecord(ctx context.Context, a *schema.Analysis, rec *ir.Record) (bool, error) {
	id := rec.Project(a.IdentityNames())
	key := id.Key()
	if _, ok := r.cache[key]; ok {
		r.report.skipped(a.Name())
		return true, nil
	}

	m, err := r.identify(ctx, a, id)
	if err != nil {
		return false, withIdentity(err, a, id)
	}
	if m == nil {
		return false, nil
	}

	obj, err := r.find(ctx, a, id, m)
	if err != nil {
		return false, err
	}
	if obj != nil {
		r.cache[key] = obj
		r.report.skipped(a.Name())
		r.logger.Debug("record present", "type", a.Name(), "identity", id.Pairs())
		return true, nil
	}

	obj, err = r.materialize(ctx, a, rec, id, m)
	if err != nil {
		return false, err
	}
	r.cache[key] = obj
	r.report.created(a.Name())
	r.logger.Debug("record created", "type", a.Name(), "identity", id.Pairs())
	return true, nil
}

// identify builds the store match of an identity record. It returns a nil
// match when a nested identity reference does not resolve yet.
func (r *run) identify(ctx context.Context, a *schema.Analysis, id *ir.Record) (store.Match, error) {
	m := make(store.Match, len(a.IdentityFields()))
	for _, f := range a.IdentityFields() {
		if !f.IsRef() {
			v, err := f.FromValue(id.Value(f.Name))
			if err != nil {
				return nil, err
			}
			m[f.Name] = v
			continue
		}
		ref := id.Ref(f.Name)
		if ref == nil {
			m[f.Name] = nil
			continue
		}
		target, err := r.resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, nil
		}
		m[f.Name] = target
	}
	return m, nil
}

// resolve returns the instance an identity record denotes, or nil when it
// is neither stored nor created yet.
func (r *run) resolve(ctx context.Context, ref *ir.Record) (schema.Entity, error) {
	a, err := r.reg.Analyze(ref.Type)
	if err != nil {
		return nil, err
	}
	id := ref.Project(a.IdentityNames())
	key := id.Key()
	if obj, ok := r.cache[key]; ok {
		return obj, nil
	}
	m, err := r.identify(ctx, a, id)
	if err != nil || m == nil {
		return nil, err
	}
	obj, err := r.find(ctx, a, id, m)
	if obj != nil {
		r.cache[key] = obj
	}
	return obj, err
}

// find queries the store by identity. More than one match means the
// stored identities are not unique, which is a store failure.
func (r *run) find(ctx context.Context, a *schema.Analysis, id *ir.Record, m store.Match) (schema.Entity, error) {
	found, err := r.store.FetchByFields(ctx, a.Name(), m)
	if err != nil {
		return nil, storeError("lookup", a, id, err)
	}
	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}
	return nil, storeError("lookup", a, id, fmt.Errorf("identity matches %d instances", len(found)))
}

// materialize creates and saves a new instance. References that do not
// resolve yet are queued on the to-one worklist after the save.
func (r *run) materialize(ctx context.Context, a *schema.Analysis, rec, id *ir.Record, m store.Match) (schema.Entity, error) {
	obj := a.Type.New()
	var later []*pending
	for _, f := range a.ExportedFields() {
		if _, ok := rec.Get(f.Name); !ok {
			continue
		}
		if !f.IsRef() {
			v, err := f.FromValue(rec.Value(f.Name))
			if err != nil {
				return nil, withIdentity(err, a, id)
			}
			if err := r.assign(a, id, obj, f, v, rec.Value(f.Name).Text()); err != nil {
				return nil, err
			}
			continue
		}
		if v, ok := m[f.Name]; ok {
			if err := r.assign(a, id, obj, f, v, id.Ref(f.Name).String()); err != nil {
				return nil, err
			}
			continue
		}
		ref := rec.Ref(f.Name)
		if ref == nil {
			continue
		}
		target, err := r.resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		if target == nil {
			later = append(later, &pending{a: a, id: id, obj: obj, field: f, target: ref})
			continue
		}
		if err := r.assign(a, id, obj, f, target, ref.String()); err != nil {
			return nil, err
		}
	}

	if err := r.save(ctx, a, id, obj); err != nil {
		return nil, err
	}
	for _, p := range later {
		r.toOne.push(p)
		r.logger.Debug("reference pending", "entry", p.String())
	}
	return obj, nil
}

func (r *run) assign(a *schema.Analysis, id *ir.Record, obj schema.Entity, f *schema.Field, v any, text string) error {
	if v == nil {
		return nil
	}
	if err := f.Set(obj, v); err != nil {
		return withIdentity(ir.NewConversionError(a.Name(), f.Name, text, err), a, id)
	}
	return nil
}

func (r *run) save(ctx context.Context, a *schema.Analysis, id *ir.Record, obj schema.Entity) error {
	if err := r.store.Save(ctx, obj); err != nil {
		return storeError("save", a, id, err)
	}
	return nil
}

// settle runs stable passes over the to-one worklist until it is empty.
func (r *run) settle(ctx context.Context) error {
	for r.toOne.len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.maxPasses > 0 && r.report.Passes >= r.maxPasses {
			return r.cycleError(fmt.Sprintf("references still pending after %d passes", r.report.Passes))
		}
		r.report.Passes++
		removed, err := r.toOne.pass(func(p *pending) (bool, error) {
			return r.retry(ctx, p)
		})
		if err != nil {
			return err
		}
		r.logger.Debug("fixpoint pass",
			"pass", r.report.Passes,
			"removed", removed,
			"pending", r.toOne.len())
		if removed == 0 {
			return r.cycleError("no progress resolving pending references")
		}
	}
	return nil
}

func (r *run) retry(ctx context.Context, p *pending) (bool, error) {
	if p.obj == nil {
		return r.importRecord(ctx, p.a, p.rec)
	}
	target, err := r.resolve(ctx, p.target)
	if err != nil || target == nil {
		return false, err
	}
	if err := r.assign(p.a, p.id, p.obj, p.field, target, p.target.String()); err != nil {
		return false, err
	}
	if err := r.save(ctx, p.a, p.id, p.obj); err != nil {
		return false, err
	}
	r.report.LateAssigned++
	return true, nil
}

func (r *run) cycleError(msg string) error {
	entries := make([]string, 0, r.toOne.len())
	for _, p := range r.toOne.all() {
		entries = append(entries, p.String())
	}
	r.logger.Warn("import stuck", "reason", msg, "pending", len(entries))
	return ir.NewRelationCycleError(msg, entries)
}

// link processes the to-many worklist in dataset order.
func (r *run) link(ctx context.Context) error {
	for {
		t, ok := r.toMany.pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.linkTable(ctx, t); err != nil {
			return err
		}
	}
}

func (r *run) linkTable(ctx context.Context, t *ir.RelationTable) error {
	a, err := r.reg.Analyze(t.OwnerType)
	if err != nil {
		return err
	}
	f, _ := a.Field(t.Field)
	target, err := r.reg.Analyze(f.Target)
	if err != nil {
		return err
	}
	ownerID := t.Owner.Project(a.IdentityNames())

	owner, err := r.resolve(ctx, ownerID)
	if err != nil {
		return err
	}
	if owner == nil {
		return relationError(a, f, ownerID, "owner of relation %s.%s does not exist", a.Name(), f.Name)
	}

	for _, m := range t.Members {
		member, err := r.resolve(ctx, m)
		if err != nil {
			return err
		}
		if member == nil {
			if f.Class == schema.OwningRelation {
				return relationError(a, f, ownerID, "member %s of %s.%s does not exist", m, a.Name(), f.Name)
			}
			if member, err = r.createMember(ctx, target, m); err != nil {
				return err
			}
			if member == nil {
				return relationError(a, f, ownerID, "member %s of %s.%s cannot be identified", m, a.Name(), f.Name)
			}
		}

		if linked(f.Members(owner), member) {
			r.report.LinksPresent++
			continue
		}
		f.Add(owner, member)
		if err := r.save(ctx, a, ownerID, owner); err != nil {
			return err
		}
		if err := r.save(ctx, target, m.Project(target.IdentityNames()), member); err != nil {
			return err
		}
		r.report.LinksAdded++
		r.logger.Debug("link added",
			"relation", a.Name()+"."+f.Name,
			"owner", ownerID.Pairs(),
			"member", m.Pairs())
	}
	return nil
}

// createMember creates an owned relation member from its identity record.
// It returns nil when the member's identity does not resolve.
func (r *run) createMember(ctx context.Context, a *schema.Analysis, id *ir.Record) (schema.Entity, error) {
	done, err := r.importRecord(ctx, a, id)
	if err != nil || !done {
		return nil, err
	}
	return r.resolve(ctx, id)
}

// linked reports whether member is already among members.
func linked(members []schema.Entity, member schema.Entity) bool {
	return slices.ContainsFunc(members, func(e schema.Entity) bool {
		return e == member || (e.EntityID() != "" && e.EntityID() == member.EntityID())
	})
}

func storeError(op string, a *schema.Analysis, id *ir.Record, err error) error {
	e := ir.NewStoreError(op, a.Name(), err)
	e.Identity = id.Pairs()
	return e
}

func relationError(a *schema.Analysis, f *schema.Field, ownerID *ir.Record, format string, args ...any) error {
	e := ir.NewRelationCycleError(fmt.Sprintf(format, args...), nil)
	e.Type = a.Name()
	e.Field = f.Name
	e.Identity = ownerID.Pairs()
	return e
}
