// Package lookup holds the static code tables of the accounting methodology:
// land-cover classes, parent-class rollups, disturbance codes, carbon stock
// loss fractions and forest removal/emission factors.
package lookup

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Table is an immutable code-to-value mapping.
type Table[K cmp.Ordered, V any] struct {
	name    string
	entries map[K]V
}

// NewTable copies entries into a named table.
func NewTable[K cmp.Ordered, V any](name string, entries map[K]V) *Table[K, V] {
	return &Table[K, V]{
		name:    name,
		entries: maps.Clone(entries),
	}
}

// Name returns the table name used in error reports.
func (t *Table[K, V]) Name() string {
	return t.name
}

// Get returns the value for code or a *MissingError.
func (t *Table[K, V]) Get(code K) (V, error) {
	v, ok := t.entries[code]
	if !ok {
		var zero V
		return zero, &MissingError{Table: t.name, Code: fmt.Sprint(code)}
	}
	return v, nil
}

// Has reports whether code is mapped.
func (t *Table[K, V]) Has(code K) bool {
	_, ok := t.entries[code]
	return ok
}

// Keys returns the mapped codes in ascending order.
func (t *Table[K, V]) Keys() []K {
	return slices.Sorted(maps.Keys(t.entries))
}

// Len returns the number of mapped codes.
func (t *Table[K, V]) Len() int {
	return len(t.entries)
}
