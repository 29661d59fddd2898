package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/racetrack/internal/schema"
)

// Memory is an in-process Store. It holds the saved entity pointers, so
// changes to a saved entity are visible to readers without another Save.
type Memory struct {
	mu     sync.RWMutex
	reg    *schema.Registry
	newID  func() string
	byType map[string][]schema.Entity
	byID   map[string]schema.Entity
}

// NewMemory creates an empty in-memory store for the registry's types.
func NewMemory(reg *schema.Registry, opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{
		reg:    reg,
		newID:  o.newID,
		byType: make(map[string][]schema.Entity),
		byID:   make(map[string]schema.Entity),
	}
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, e schema.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.reg.AnalysisOf(e); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if e.EntityID() == "" {
		e.SetEntityID(m.newID())
	}
	if existing, ok := m.byID[e.EntityID()]; ok {
		if existing != e {
			return fmt.Errorf("save %s: id %s belongs to another entity", e.EntityType(), e.EntityID())
		}
		return nil
	}
	m.byID[e.EntityID()] = e
	m.byType[e.EntityType()] = append(m.byType[e.EntityType()], e)
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, e schema.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[e.EntityID()]; !ok || e.EntityID() == "" {
		return ErrNotFound
	}
	delete(m.byID, e.EntityID())
	list := m.byType[e.EntityType()]
	if i := slices.Index(list, e); i >= 0 {
		m.byType[e.EntityType()] = slices.Delete(list, i, i+1)
	}
	return nil
}

// FetchByID implements Store.
func (m *Memory) FetchByID(ctx context.Context, typ, id string) (schema.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.byID[id]
	if !ok || e.EntityType() != typ {
		return nil, ErrNotFound
	}
	return e, nil
}

// FetchByField implements Store.
func (m *Memory) FetchByField(ctx context.Context, typ, field string, value any) ([]schema.Entity, error) {
	return m.FetchByFields(ctx, typ, Match{field: value})
}

// FetchByFields implements Store.
func (m *Memory) FetchByFields(ctx context.Context, typ string, match Match) ([]schema.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := m.reg.Analyze(typ)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]*schema.Field, len(match))
	for name := range match {
		f, err := matchField(a, name)
		if err != nil {
			return nil, err
		}
		fields[name] = f
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schema.Entity
	for _, e := range m.byType[typ] {
		ok := true
		for name, want := range match {
			f := fields[name]
			matched, err := valueMatches(f, f.Get(e), want)
			if err != nil {
				return nil, fmt.Errorf("fetch %s: %w", typ, err)
			}
			if !matched {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// FetchAll implements Store.
func (m *Memory) FetchAll(ctx context.Context, typ string) ([]schema.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := m.reg.Type(typ); !ok {
		return nil, fmt.Errorf("fetch all: unknown type %q", typ)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.byType[typ]), nil
}
