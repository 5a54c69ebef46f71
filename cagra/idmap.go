package cagra

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// ErrIDCountMismatch is returned when the number of IDs added to a map does
// not match the wrapped index's vector count at write time.
var ErrIDCountMismatch = errors.New("cagra: id count does not match index size")

// ErrNoIndex is returned when an ID map operation needs an attached index but
// the reference has been cleared.
var ErrNoIndex = errors.New("cagra: id map has no attached index")

// IDMap associates external dataset vector IDs with the internal positions of
// a float index. It holds a single mutable reference to the index it wraps;
// the reference is re-homed during GPU->CPU conversion and the wrapper is
// serialized together with the index.
type IDMap struct {
	// Index is the wrapped index. Exactly one index is referenced at a
	// time; nil while the wrapper is being re-homed.
	Index *IndexHNSW

	ids    []int64
	bitmap *roaring64.Bitmap
	freed  bool
}

// NewIDMap creates an ID map wrapping index. A nil index is allowed; the
// reference can be attached later.
func NewIDMap(index *IndexHNSW) *IDMap {
	return &IDMap{Index: index, bitmap: roaring64.New()}
}

// AddIDs appends external IDs in internal-position order.
func (m *IDMap) AddIDs(ids ...int64) {
	m.ids = append(m.ids, ids...)
	for _, id := range ids {
		m.bitmap.Add(uint64(id))
	}
}

// IDs returns the external IDs in internal-position order.
func (m *IDMap) IDs() []int64 { return m.ids }

// Contains reports whether the external ID is present.
func (m *IDMap) Contains(id int64) bool { return m.bitmap.Contains(uint64(id)) }

// Count returns the number of mapped IDs.
func (m *IDMap) Count() int64 { return int64(len(m.ids)) }

// ClearIndex drops the index reference without freeing the index.
func (m *IDMap) ClearIndex() { m.Index = nil }

// Freed reports whether Free has been called.
func (m *IDMap) Freed() bool { return m.freed }

// Free releases the wrapper's own buffers. The wrapped index, if any, is not
// freed through the wrapper. Calling Free twice is an error.
func (m *IDMap) Free() error {
	if m.freed {
		return ErrFreed
	}
	m.freed = true
	m.ids = nil
	m.bitmap = nil
	return nil
}

// Search resolves a query to external IDs via the wrapped index.
func (m *IDMap) Search(q []float32, k int) ([]int64, []float32, error) {
	if m.freed {
		return nil, nil, ErrFreed
	}
	if m.Index == nil {
		return nil, nil, ErrNoIndex
	}
	hits, err := m.Index.Search(q, k)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int64, len(hits))
	dists := make([]float32, len(hits))
	for i, h := range hits {
		ids[i] = m.ids[h.Pos]
		dists[i] = h.Distance
	}
	return ids, dists, nil
}

// BinaryIDMap is the binary-family counterpart of IDMap.
type BinaryIDMap struct {
	// Index is the wrapped binary index; nil while being re-homed.
	Index *IndexBinaryHNSW

	ids    []int64
	bitmap *roaring64.Bitmap
	freed  bool
}

// NewBinaryIDMap creates an ID map wrapping a binary index.
func NewBinaryIDMap(index *IndexBinaryHNSW) *BinaryIDMap {
	return &BinaryIDMap{Index: index, bitmap: roaring64.New()}
}

// AddIDs appends external IDs in internal-position order.
func (m *BinaryIDMap) AddIDs(ids ...int64) {
	m.ids = append(m.ids, ids...)
	for _, id := range ids {
		m.bitmap.Add(uint64(id))
	}
}

// IDs returns the external IDs in internal-position order.
func (m *BinaryIDMap) IDs() []int64 { return m.ids }

// Contains reports whether the external ID is present.
func (m *BinaryIDMap) Contains(id int64) bool { return m.bitmap.Contains(uint64(id)) }

// Count returns the number of mapped IDs.
func (m *BinaryIDMap) Count() int64 { return int64(len(m.ids)) }

// ClearIndex drops the index reference without freeing the index.
func (m *BinaryIDMap) ClearIndex() { m.Index = nil }

// Freed reports whether Free has been called.
func (m *BinaryIDMap) Freed() bool { return m.freed }

// Free releases the wrapper's own buffers. Calling Free twice is an error.
func (m *BinaryIDMap) Free() error {
	if m.freed {
		return ErrFreed
	}
	m.freed = true
	m.ids = nil
	m.bitmap = nil
	return nil
}

// Search resolves a query to external IDs via the wrapped binary index.
func (m *BinaryIDMap) Search(q []byte, k int) ([]int64, []float32, error) {
	if m.freed {
		return nil, nil, ErrFreed
	}
	if m.Index == nil {
		return nil, nil, ErrNoIndex
	}
	hits, err := m.Index.Search(q, k)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int64, len(hits))
	dists := make([]float32, len(hits))
	for i, h := range hits {
		ids[i] = m.ids[h.Pos]
		dists[i] = h.Distance
	}
	return ids, dists, nil
}
