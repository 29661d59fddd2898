package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/racetrack/internal/ir"
	"github.com/roach88/racetrack/internal/schema"
)

// ErrNotFound is returned by FetchByID when no entity has the given ID.
var ErrNotFound = errors.New("entity not found")

// Match maps exported field names to wanted values. Values are Go values as
// returned by schema.Field.Get: string, int64, bool, an Entity for
// references, or nil for an absent value. All entries must match.
type Match map[string]any

// Store persists entities.
//
// Implementations are safe for concurrent use. Enumeration order is
// insertion order for FetchAll and for every fetch that returns a list.
type Store interface {
	// Save inserts or updates an entity and its relation memberships,
	// assigning a surrogate ID on first save.
	Save(ctx context.Context, e schema.Entity) error

	// Delete removes an entity. Deleting an unsaved entity returns
	// ErrNotFound.
	Delete(ctx context.Context, e schema.Entity) error

	// FetchByID returns the entity of the given type and ID, or ErrNotFound.
	FetchByID(ctx context.Context, typ, id string) (schema.Entity, error)

	// FetchByField returns every entity whose field equals value.
	FetchByField(ctx context.Context, typ, field string, value any) ([]schema.Entity, error)

	// FetchByFields returns every entity matching all entries of m.
	FetchByFields(ctx context.Context, typ string, m Match) ([]schema.Entity, error)

	// FetchAll returns every entity of the type.
	FetchAll(ctx context.Context, typ string) ([]schema.Entity, error)
}

// NewID returns a fresh surrogate ID. UUIDv7 IDs sort by creation time.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source fails.
		return uuid.NewString()
	}
	return id.String()
}

// matchField resolves a Match key to an exported field.
func matchField(a *schema.Analysis, name string) (*schema.Field, error) {
	f, ok := a.Field(name)
	if !ok || !f.Class.IsExported() {
		return nil, fmt.Errorf("%s has no exported field %q", a.Name(), name)
	}
	return f, nil
}

// valueMatches compares a field's current Go value with a wanted value.
// References compare by identity: the same pointer or the same non-empty ID.
func valueMatches(f *schema.Field, got, want any) (bool, error) {
	if f.IsRef() {
		ge, gotNil, err := refOf(f, got)
		if err != nil {
			return false, err
		}
		we, wantNil, err := refOf(f, want)
		if err != nil {
			return false, err
		}
		if gotNil || wantNil {
			return gotNil && wantNil, nil
		}
		if ge == we {
			return true, nil
		}
		return ge.EntityID() != "" && ge.EntityID() == we.EntityID(), nil
	}
	gv, err := f.ToValue(got)
	if err != nil {
		return false, err
	}
	wv, err := f.ToValue(want)
	if err != nil {
		return false, err
	}
	return ir.ValuesEqual(gv, wv), nil
}

// refOf interprets a reference value, reporting whether it is absent.
func refOf(f *schema.Field, v any) (schema.Entity, bool, error) {
	if v == nil {
		return nil, true, nil
	}
	e, ok := v.(schema.Entity)
	if !ok {
		return nil, false, fmt.Errorf("%s.%s: reference value must be an entity, got %T", f.Owner, f.Name, v)
	}
	if schema.IsNil(e) {
		return nil, true, nil
	}
	return e, false, nil
}
