package cagra

import (
	"errors"
	"hash/crc32"
)

const (
	// MagicNumber identifies cagra index files (ASCII: "CGR1").
	MagicNumber = 0x43475231

	// FormatVersion is the current on-disk format version (v1.0.0).
	FormatVersion = 0x00010000

	// Family discriminants stored in the file header. A file holds exactly
	// one family; the two formats are never mixed.
	FamilyFloat  = 1
	FamilyBinary = 2

	// headerSize is the fixed size of FileHeader on disk.
	headerSize = 48

	// flagBaseLevelOnly marks an index that retains only the bottom graph
	// level and rejects further inserts.
	flagBaseLevelOnly = 1 << 0
)

var (
	ErrInvalidMagic   = errors.New("cagra: invalid magic number")
	ErrInvalidVersion = errors.New("cagra: unsupported format version")
	ErrInvalidFamily  = errors.New("cagra: invalid index family")
	ErrFamilyMismatch = errors.New("cagra: file holds a different index family")
	ErrChecksum       = errors.New("cagra: payload checksum mismatch")
	ErrTruncated      = errors.New("cagra: truncated index file")
)

// FileHeader is the fixed-size header at the start of every index file.
// The payload that follows is a single compressed block; its CRC32C trails
// the payload as the last four bytes of the file.
type FileHeader struct {
	Magic          uint32
	Version        uint32
	Family         uint8
	Compression    uint8
	Flags          uint16
	Dim            uint32 // dimensions (float) or code size in bytes (binary)
	Count          uint64
	EFSearch       uint32
	EFConstruction uint32
	PayloadSize    uint64 // on-disk payload size after compression
	Reserved       [8]byte
}

// BaseLevelOnly reports whether the serialized index retains only the bottom
// graph level.
func (h *FileHeader) BaseLevelOnly() bool {
	return h.Flags&flagBaseLevelOnly != 0
}

func (h *FileHeader) validate() error {
	if h.Magic != MagicNumber {
		return ErrInvalidMagic
	}
	if h.Version != FormatVersion {
		return ErrInvalidVersion
	}
	if h.Family != FamilyFloat && h.Family != FamilyBinary {
		return ErrInvalidFamily
	}
	return nil
}

// crc32cTable is pre-computed for the Castagnoli polynomial. Hardware
// accelerated on amd64 (SSE4.2) and arm64.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

func checksum(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}
