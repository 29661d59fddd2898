package engine

import (
	"errors"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

// validate checks the shape of a dataset against the schema so that
// schema, format and conversion errors surface before anything is written.
func (e *Engine) validate(ds *ir.Dataset) error {
	for _, sec := range ds.Sections {
		a, err := e.importable(sec.Type)
		if err != nil {
			return err
		}
		for _, rec := range sec.Records {
			if rec == nil || rec.Type != sec.Type {
				return ir.NewFormatError("%s section holds a record of another type", sec.Type)
			}
			if err := e.checkRecord(a, rec, false); err != nil {
				return withIdentity(err, a, rec)
			}
		}
	}

	for _, t := range ds.Relations {
		owner, err := e.importable(t.OwnerType)
		if err != nil {
			return err
		}
		f, ok := owner.Field(t.Field)
		if !ok || !f.Class.IsRelation() {
			return ir.NewFormatError("unknown relation field %s.%s", t.OwnerType, t.Field)
		}
		if t.RelatedType != "" && t.RelatedType != f.Target {
			return ir.NewFormatError("relation %s.%s holds %s members, want %s", t.OwnerType, t.Field, t.RelatedType, f.Target)
		}
		if err := e.checkIdentity(owner, t.Owner); err != nil {
			return err
		}
		target, err := e.importable(f.Target)
		if err != nil {
			return err
		}
		for _, m := range t.Members {
			if err := e.checkIdentity(target, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// importable returns the analysis of a type that can be matched by
// identity.
func (e *Engine) importable(typ string) (*schema.Analysis, error) {
	a, err := e.reg.Analyze(typ)
	if err != nil {
		return nil, err
	}
	if !a.HasIdentity() {
		return nil, ir.NewSchemaError(typ, "", "type has no identity fields and cannot be imported")
	}
	return a, nil
}

// checkRecord checks that every field of rec is an exported field of the
// type, that the identity fields are present and that scalars fit their
// fields. With identityOnly set, only identity fields are accepted.
func (e *Engine) checkRecord(a *schema.Analysis, rec *ir.Record, identityOnly bool) error {
	for _, fl := range rec.Fields() {
		f, ok := a.Field(fl.Name)
		if !ok || !f.Class.IsExported() {
			return ir.NewFormatError("unknown field %q for type %s", fl.Name, a.Name())
		}
		if identityOnly && f.Class != schema.Identity {
			return ir.NewFormatError("field %q is not part of the %s identity", fl.Name, a.Name())
		}
		if err := e.checkEntry(f, fl.Entry); err != nil {
			return err
		}
	}
	for _, f := range a.IdentityFields() {
		if _, ok := rec.Get(f.Name); !ok {
			return ir.NewFormatError("%s identity is missing field %q", a.Name(), f.Name)
		}
	}
	return nil
}

func (e *Engine) checkIdentity(a *schema.Analysis, rec *ir.Record) error {
	if rec == nil {
		return ir.NewFormatError("missing %s identity", a.Name())
	}
	if rec.Type != a.Name() {
		return ir.NewFormatError("identity of %s given where %s is expected", rec.Type, a.Name())
	}
	if err := e.checkRecord(a, rec, true); err != nil {
		return withIdentity(err, a, rec)
	}
	return nil
}

func (e *Engine) checkEntry(f *schema.Field, entry ir.Entry) error {
	switch en := entry.(type) {
	case ir.Referenced:
		if !f.IsRef() {
			return ir.NewFormatError("field %s.%s holds a nested record, want a value", f.Owner, f.Name)
		}
		target, err := e.importable(f.Target)
		if err != nil {
			return err
		}
		return e.checkIdentity(target, en.Record)
	case ir.Direct:
		if ir.IsNull(en.Value) {
			return nil
		}
		if f.IsRef() {
			return ir.NewFormatError("field %s.%s holds %q, want the identity of %s", f.Owner, f.Name, en.Value.Text(), f.Target)
		}
		_, err := f.FromValue(en.Value)
		return err
	}
	return nil
}

// withIdentity attaches the identity of rec to an ir.Error that has none.
func withIdentity(err error, a *schema.Analysis, rec *ir.Record) error {
	var e *ir.Error
	if errors.As(err, &e) && e.Identity == "" {
		e.Identity = rec.Project(a.IdentityNames()).Pairs()
		if e.Type == "" {
			e.Type = a.Name()
		}
	}
	return err
}
