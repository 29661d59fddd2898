package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/racetrack/internal/schema"
)

// row is one objects row read ahead of loading. Rows are always drained
// before loading because the pool has a single connection.
type row struct {
	id   string
	data string
}

// FetchByID implements Store.
func (s *SQLite) FetchByID(ctx context.Context, typ, id string) (schema.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchByID(ctx, typ, id)
}

func (s *SQLite) fetchByID(ctx context.Context, typ, id string) (schema.Entity, error) {
	if e, ok := s.loaded[id]; ok {
		if e.EntityType() != typ {
			return nil, ErrNotFound
		}
		return e, nil
	}

	var r row
	err := s.db.QueryRowContext(ctx, `
		SELECT id, data FROM objects WHERE id = ? AND type = ?
	`, id, typ).Scan(&r.id, &r.data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", typ, id, err)
	}
	return s.load(ctx, typ, r)
}

// FetchByField implements Store.
func (s *SQLite) FetchByField(ctx context.Context, typ, field string, value any) ([]schema.Entity, error) {
	return s.FetchByFields(ctx, typ, Match{field: value})
}

// FetchByFields implements Store.
//
// Each entry becomes a json_extract comparison on the data column. Absent
// values match with IS NULL, which also covers rows written before the
// field existed.
func (s *SQLite) FetchByFields(ctx context.Context, typ string, match Match) ([]schema.Entity, error) {
	a, err := s.reg.Analyze(typ)
	if err != nil {
		return nil, err
	}

	var (
		where strings.Builder
		args  = []any{typ}
	)
	where.WriteString("type = ?")
	for _, name := range sortedMatchKeys(match) {
		f, err := matchField(a, name)
		if err != nil {
			return nil, err
		}
		arg, present, err := sqlArg(f, match[name])
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", typ, err)
		}
		if !present {
			where.WriteString(" AND json_extract(data, ?) IS NULL")
			args = append(args, "$."+name)
			continue
		}
		where.WriteString(" AND json_extract(data, ?) = ?")
		args = append(args, "$."+name, arg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(ctx, typ, where.String(), args...)
}

// FetchAll implements Store.
func (s *SQLite) FetchAll(ctx context.Context, typ string) ([]schema.Entity, error) {
	if _, ok := s.reg.Type(typ); !ok {
		return nil, fmt.Errorf("fetch all: unknown type %q", typ)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query(ctx, typ, "type = ?", typ)
}

// query selects objects rows and loads them in enumeration order.
func (s *SQLite) query(ctx context.Context, typ, where string, args ...any) ([]schema.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data FROM objects
		WHERE `+where+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", typ, err)
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.data); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan %s: %w", typ, err)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate %s: %w", typ, err)
	}
	rows.Close()

	out := make([]schema.Entity, 0, len(pending))
	for _, r := range pending {
		if e, ok := s.loaded[r.id]; ok {
			out = append(out, e)
			continue
		}
		e, err := s.load(ctx, typ, r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// load materializes a row, registering it in the identity map before any
// reference is followed so that cycles resolve to the same pointer.
func (s *SQLite) load(ctx context.Context, typ string, r row) (_ schema.Entity, err error) {
	a, err := s.reg.Analyze(typ)
	if err != nil {
		return nil, err
	}
	e := a.Type.New()
	e.SetEntityID(r.id)
	s.loaded[r.id] = e
	defer func() {
		if err != nil {
			delete(s.loaded, r.id)
		}
	}()

	data, err := unmarshalData(r.data)
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", typ, r.id, err)
	}

	for _, f := range a.ExportedFields() {
		raw := data[f.Name]
		if f.IsRef() {
			if err := s.loadRef(ctx, e, f, raw); err != nil {
				return nil, fmt.Errorf("load %s %s: %w", typ, r.id, err)
			}
			continue
		}
		v, err := scalarFromJSON(f, raw)
		if err != nil {
			return nil, fmt.Errorf("load %s %s: %w", typ, r.id, err)
		}
		if err := f.Set(e, v); err != nil {
			return nil, fmt.Errorf("load %s %s: %w", typ, r.id, err)
		}
	}

	for _, f := range a.RelationFields() {
		members, err := s.loadMembers(ctx, e, f)
		if err != nil {
			return nil, fmt.Errorf("load %s %s: %w", typ, r.id, err)
		}
		for _, m := range members {
			f.Add(e, m)
		}
	}
	return e, nil
}

func (s *SQLite) loadRef(ctx context.Context, e schema.Entity, f *schema.Field, raw any) error {
	if raw == nil {
		return f.Set(e, nil)
	}
	id, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%s: reference stored as %T", f.Name, raw)
	}
	target, err := s.fetchByID(ctx, f.Target, id)
	if errors.Is(err, ErrNotFound) {
		s.logger.Warn("dangling reference",
			"type", f.Owner,
			"field", f.Name,
			"target", f.Target,
			"target_id", id)
		return f.Set(e, nil)
	}
	if err != nil {
		return err
	}
	return f.Set(e, target)
}

// loadMembers returns the members of one relation field. Owned relations
// with an inverse are found through the members' back-references; other
// relations are read from the links table in position order.
func (s *SQLite) loadMembers(ctx context.Context, owner schema.Entity, f *schema.Field) ([]schema.Entity, error) {
	if !storesLinks(f) {
		return s.query(ctx, f.Target, "type = ? AND json_extract(data, ?) = ?", f.Target, "$."+f.Inverse, owner.EntityID())
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id FROM links
		WHERE owner_id = ? AND field = ?
		ORDER BY position ASC, member_id COLLATE BINARY ASC
	`, owner.EntityID(), f.Name)
	if err != nil {
		return nil, fmt.Errorf("query links %s: %w", f.Name, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan links %s: %w", f.Name, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate links %s: %w", f.Name, err)
	}
	rows.Close()

	members := make([]schema.Entity, 0, len(ids))
	for _, id := range ids {
		m, err := s.fetchByID(ctx, f.Target, id)
		if err != nil {
			return nil, fmt.Errorf("link %s -> %s: %w", f.Name, id, err)
		}
		members = append(members, m)
	}
	return members, nil
}

func sortedMatchKeys(m Match) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
