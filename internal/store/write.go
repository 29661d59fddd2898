package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/racetrack/internal/schema"
)

// Save implements Store.
//
// An entity without an ID gets a fresh UUIDv7 first. Referenced entities that
// were never saved are written before the entity's row, unsaved
// owning-relation members after it, and every link last. The whole cascade
// runs in one transaction; on failure IDs assigned by it are cleared again.
//
// Uses INSERT ... ON CONFLICT(id) DO UPDATE: the first save fixes the
// entity's position in enumeration order, later saves only replace its data.
func (s *SQLite) Save(ctx context.Context, e schema.Entity) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s: begin: %w", e.EntityType(), err)
	}
	w := &saveTx{s: s, tx: tx}
	defer func() {
		if err != nil {
			tx.Rollback()
			w.undo()
		}
	}()

	if err := w.save(ctx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save %s: commit: %w", e.EntityType(), err)
	}
	return nil
}

// saveTx is one Save call's cascade.
type saveTx struct {
	s     *SQLite
	tx    *sql.Tx
	added []schema.Entity // entities registered by this cascade
	fresh []schema.Entity // entities given an ID by this cascade
}

// undo forgets everything a failed cascade registered.
func (w *saveTx) undo() {
	for _, e := range w.added {
		delete(w.s.loaded, e.EntityID())
	}
	for _, e := range w.fresh {
		e.SetEntityID("")
	}
}

func (w *saveTx) save(ctx context.Context, e schema.Entity) error {
	a, err := w.s.reg.AnalysisOf(e)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if e.EntityID() == "" {
		e.SetEntityID(w.s.newID())
		w.fresh = append(w.fresh, e)
	}
	cached, known := w.s.loaded[e.EntityID()]
	if known && cached != e {
		return fmt.Errorf("save %s: id %s belongs to another entity", a.Name(), e.EntityID())
	}
	// Register before cascading so cycles see an ID.
	if !known {
		w.s.loaded[e.EntityID()] = e
		w.added = append(w.added, e)
	}

	for _, f := range a.ExportedFields() {
		if !f.IsRef() {
			continue
		}
		target, absent, err := refOf(f, f.Get(e))
		if err != nil {
			return err
		}
		if !absent && target.EntityID() == "" {
			if err := w.save(ctx, target); err != nil {
				return err
			}
		}
	}

	data, err := marshalData(a, e)
	if err != nil {
		return fmt.Errorf("save %s: %w", a.Name(), err)
	}
	_, err = w.tx.ExecContext(ctx, `
		INSERT INTO objects (id, type, seq, data)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM objects), ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, e.EntityID(), a.Name(), string(data))
	if err != nil {
		return fmt.Errorf("save %s: write object: %w", a.Name(), err)
	}

	// Members may link back to e, so they follow its row.
	for _, f := range a.RelationFields() {
		if !storesLinks(f) {
			continue
		}
		for _, m := range f.Members(e) {
			if m.EntityID() == "" {
				if err := w.save(ctx, m); err != nil {
					return err
				}
			}
		}
	}

	for _, f := range a.RelationFields() {
		if !storesLinks(f) {
			continue
		}
		if err := writeLinks(ctx, w.tx, a.Name(), e, f); err != nil {
			return fmt.Errorf("save %s: %w", a.Name(), err)
		}
	}
	return nil
}

// storesLinks reports whether a relation's members are persisted in the
// links table. Owned relations with an inverse are derived on load.
func storesLinks(f *schema.Field) bool {
	return f.Class == schema.OwningRelation || f.Inverse == ""
}

// writeLinks replaces the stored members of one relation field.
func writeLinks(ctx context.Context, tx *sql.Tx, ownerType string, owner schema.Entity, f *schema.Field) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM links WHERE owner_id = ? AND field = ?
	`, owner.EntityID(), f.Name)
	if err != nil {
		return fmt.Errorf("clear links %s: %w", f.Name, err)
	}
	for pos, m := range f.Members(owner) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO links (owner_type, owner_id, field, position, member_type, member_id)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, ownerType, owner.EntityID(), f.Name, pos, f.Target, m.EntityID())
		if err != nil {
			return fmt.Errorf("write link %s: %w", f.Name, err)
		}
	}
	return nil
}

// Delete implements Store. Links to and from the entity are removed by the
// foreign keys' ON DELETE CASCADE.
func (s *SQLite) Delete(ctx context.Context, e schema.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.EntityID() == "" {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, e.EntityID())
	if err != nil {
		return fmt.Errorf("delete %s: %w", e.EntityType(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", e.EntityType(), err)
	}
	delete(s.loaded, e.EntityID())
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
