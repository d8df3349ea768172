package tariff

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrNoTable is returned when no table has been published yet
var ErrNoTable = errors.New("no tariff table published")

// Store provides the active tariff table and historical rows.
// Implementations must hand out immutable snapshots.
type Store interface {
	// ActiveTable returns the currently published snapshot
	ActiveTable(ctx context.Context) (*Table, error)

	// Row returns the row for key in the table with the given version
	Row(ctx context.Context, key Key, version int) (Row, bool, error)
}

// Holder keeps the active table behind an atomic pointer.
// Publishing swaps the pointer; readers keep whatever snapshot they loaded.
type Holder struct {
	active atomic.Pointer[Table]
	// retained holds previously published versions for Row lookups
	retained atomic.Pointer[map[int]*Table]
}

// NewHolder creates an empty holder
func NewHolder() *Holder {
	h := &Holder{}
	empty := map[int]*Table{}
	h.retained.Store(&empty)
	return h
}

// Publish atomically makes t the active table and returns the previous one.
// A nil t leaves the holder unchanged and returns the current table.
func (h *Holder) Publish(t *Table) *Table {
	if t == nil {
		return h.active.Load()
	}
	for {
		cur := h.retained.Load()
		next := make(map[int]*Table, len(*cur)+1)
		for v, tbl := range *cur {
			next[v] = tbl
		}
		next[t.Version] = t
		if h.retained.CompareAndSwap(cur, &next) {
			break
		}
	}
	return h.active.Swap(t)
}

// Current returns the active table or nil
func (h *Holder) Current() *Table {
	return h.active.Load()
}

// ActiveTable returns the active snapshot or ErrNoTable
func (h *Holder) ActiveTable(ctx context.Context) (*Table, error) {
	t := h.active.Load()
	if t == nil {
		return nil, ErrNoTable
	}
	return t, nil
}

// Row looks a key up in a previously published version
func (h *Holder) Row(ctx context.Context, key Key, version int) (Row, bool, error) {
	t, ok := (*h.retained.Load())[version]
	if !ok {
		return Row{}, false, ErrNoTable
	}
	row, found := t.Lookup(key)
	return row, found, nil
}
