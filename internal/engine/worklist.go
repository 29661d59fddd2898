package engine

// worklist is a FIFO of pending work processed in stable passes.
//
// Entries keep the order in which they were first pushed. During a pass,
// entries that cannot be resolved yet keep their relative order, and
// entries pushed while the pass runs are placed after them.
type worklist[T any] struct {
	items []T
}

// push adds an entry to the back of the worklist.
func (w *worklist[T]) push(v T) {
	w.items = append(w.items, v)
}

// pop removes and returns the front entry.
func (w *worklist[T]) pop() (T, bool) {
	var zero T
	if len(w.items) == 0 {
		return zero, false
	}
	v := w.items[0]
	// Clear the slot so the backing array does not retain the entry.
	w.items[0] = zero
	if len(w.items) == 1 {
		w.items = w.items[:0]
	} else {
		w.items = w.items[1:]
	}
	return v, true
}

// pass offers every current entry to fn once, in order. Entries for which
// fn returns false are kept. It returns the number of entries removed. On
// error the unvisited entries are kept.
func (w *worklist[T]) pass(fn func(T) (bool, error)) (int, error) {
	current := w.items
	w.items = nil

	var kept []T
	removed := 0
	for i, v := range current {
		done, err := fn(v)
		if err != nil {
			kept = append(kept, current[i:]...)
			w.items = append(kept, w.items...)
			return removed, err
		}
		if done {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	w.items = append(kept, w.items...)
	return removed, nil
}

// len returns the number of pending entries.
func (w *worklist[T]) len() int {
	return len(w.items)
}

// all returns the pending entries in order. The slice must not be modified.
func (w *worklist[T]) all() []T {
	return w.items
}
