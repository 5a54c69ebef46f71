//go:build !unix

package mmap

import "os"

// Open reads the file at path into memory. Fallback for platforms without a
// supported mapping path.
func Open(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// Close releases the buffered contents.
func (m *Mapping) Close() error {
	m.data = nil
	return nil
}
