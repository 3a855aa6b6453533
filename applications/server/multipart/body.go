package multipart

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Body is a decoded multipart/form-data message. It owns the store holding
// the part bodies and indexes the parts by name. A Body is immutable; it must
// be closed to release the store.
type Body struct {
	store   *store
	records []record
	index   map[string][]int
}

func newBody(st *store, records []record) *Body {
	index := make(map[string][]int, len(records))
	for i, rec := range records {
		index[rec.name] = append(index[rec.name], i)
	}
	return &Body{
		store:   st,
		records: records,
		index:   index,
	}
}

// Len returns the number of parts.
func (b *Body) Len() int {
	return len(b.records)
}

// Count returns the number of parts called name.
func (b *Body) Count(name string) int {
	return len(b.index[name])
}

// Names returns the distinct part names in lexical order.
func (b *Body) Names() []string {
	return slices.Sorted(maps.Keys(b.index))
}

// Parts yields every part in message order.
func (b *Body) Parts() iter.Seq[*Part] {
	return func(yield func(*Part) bool) {
		for i := range b.records {
			if !yield(b.part(i)) {
				return
			}
		}
	}
}

// PartsByName yields the parts called name in message order. The sequence is
// empty when there is no such part.
func (b *Body) PartsByName(name string) iter.Seq[*Part] {
	return func(yield func(*Part) bool) {
		for _, i := range b.index[name] {
			if !yield(b.part(i)) {
				return
			}
		}
	}
}

// Single returns the only part called name. It fails with
// ErrAmbiguousOrMissingPart when there are none or several.
func (b *Body) Single(name string) (*Part, error) {
	positions := b.index[name]
	if len(positions) != 1 {
		return nil, fmt.Errorf("%w: %d parts named %q", ErrAmbiguousOrMissingPart, len(positions), name)
	}
	return b.part(positions[0]), nil
}

// Close releases the store, removing its temp file if it spilled. Parts read
// afterwards fail with ErrStoreClosed. Closing twice is not an error.
func (b *Body) Close() error {
	return b.store.Close()
}

func (b *Body) part(i int) *Part {
	return newPart(&b.records[i], b.store)
}
