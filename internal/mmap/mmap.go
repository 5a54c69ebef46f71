// Package mmap provides a minimal read-only memory mapping for index files.
// On unsupported platforms it falls back to reading the file into memory.
package mmap

// Mapping is a read-only view of a file's contents.
type Mapping struct {
	data   []byte
	mapped bool // true if backed by an OS mapping rather than a heap copy
}

// Bytes returns the mapped contents. The slice is valid until Close.
func (m *Mapping) Bytes() []byte { return m.data }

// Size returns the length of the mapping in bytes.
func (m *Mapping) Size() int64 { return int64(len(m.data)) }
