package cagra

import (
	"bytes"
	"encoding/binary"

	"github.com/vecforge/vecforge/internal/mmap"
)

// VerifyFile validates an index file without decoding it: header fields,
// payload bounds, and the trailing CRC32C. The file is mapped read-only so
// large indexes are not pulled through the heap.
func VerifyFile(path string) (*FileHeader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	raw := m.Bytes()
	if len(raw) < headerSize+4 {
		return nil, ErrTruncated
	}

	var header FileHeader
	if err := binary.Read(bytes.NewReader(raw[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if err := header.validate(); err != nil {
		return nil, err
	}
	// PayloadSize is untrusted; bound it against the file before any
	// arithmetic so a corrupt header cannot wrap the index computations.
	if header.PayloadSize > uint64(len(raw)-headerSize-4) {
		return nil, ErrTruncated
	}
	payloadSize := int(header.PayloadSize)

	block := raw[headerSize : headerSize+payloadSize]
	if checksum(block) != binary.LittleEndian.Uint32(raw[headerSize+payloadSize:]) {
		return nil, ErrChecksum
	}
	return &header, nil
}
