package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/racetrack/internal/ir"
)

// IdentityRecord builds the identity record of e. Identity references are
// expanded recursively into the target's identity record. An entity whose
// identity leads back to itself has no finite identity record and yields a
// ConversionError.
func (r *Registry) IdentityRecord(e Entity) (*ir.Record, error) {
	return r.identityRecord(e, nil)
}

func (r *Registry) identityRecord(e Entity, stack []Entity) (*ir.Record, error) {
	a, err := r.AnalysisOf(e)
	if err != nil {
		return nil, err
	}
	if !a.HasIdentity() {
		return nil, ir.NewSchemaError(a.Name(), "", "type has no identity fields")
	}
	if slices.Contains(stack, e) {
		return nil, ir.NewConversionError(a.Name(), "", fmt.Sprintf("%s(id=%s)", a.Name(), e.EntityID()),
			errors.New("identity refers back to the same entity"))
	}
	return r.record(a, a.IdentityFields(), e, append(stack, e))
}

// FullRecord builds the full record of e: every Identity and Value field in
// declaration order. References become Referenced identity records; absent
// references become null entries.
func (r *Registry) FullRecord(e Entity) (*ir.Record, error) {
	a, err := r.AnalysisOf(e)
	if err != nil {
		return nil, err
	}
	return r.record(a, a.ExportedFields(), e, nil)
}

func (r *Registry) record(a *Analysis, fields []*Field, e Entity, stack []Entity) (*ir.Record, error) {
	rec := ir.NewRecord(a.Name())
	for _, f := range fields {
		v := f.Get(e)
		if f.IsRef() {
			if isNil(v) {
				rec.SetRef(f.Name, nil)
				continue
			}
			target, ok := v.(Entity)
			if !ok {
				return nil, ir.NewConversionError(a.Name(), f.Name, fmt.Sprint(v), fmt.Errorf("reference holds %T, not an entity", v))
			}
			ref, err := r.identityRecord(target, stack)
			if err != nil {
				return nil, err
			}
			rec.SetRef(f.Name, ref)
			continue
		}
		val, err := f.ToValue(v)
		if err != nil {
			return nil, err
		}
		rec.SetValue(f.Name, val)
	}
	return rec, nil
}

// Describe renders an entity for diagnostics using its identity when
// possible and its surrogate ID otherwise.
func (r *Registry) Describe(e Entity) string {
	if isNil(e) {
		return "<nil>"
	}
	if rec, err := r.IdentityRecord(e); err == nil {
		return rec.String()
	}
	return fmt.Sprintf("%s(id=%s)", e.EntityType(), e.EntityID())
}

// IsNil reports whether an entity is nil or a typed nil pointer.
func IsNil(e Entity) bool {
	return isNil(e)
}
