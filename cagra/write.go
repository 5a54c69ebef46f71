package cagra

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"

	"github.com/vecforge/vecforge/internal/conv"
)

// WriteOptions configures index serialization.
type WriteOptions struct {
	// Compression selects the payload codec. Default: none.
	Compression Compression
}

// WriteOption mutates WriteOptions.
type WriteOption func(*WriteOptions)

// WithCompression selects the payload compression codec.
func WithCompression(c Compression) WriteOption {
	return func(o *WriteOptions) { o.Compression = c }
}

// WriteIndex writes an ID-mapped float index to path in the native binary
// format. The wrapper and the index it references are bundled into a single
// file. The write is atomic: data lands in a temp file that is renamed over
// the target.
func WriteIndex(m *IDMap, path string, opts ...WriteOption) error {
	var o WriteOptions
	for _, fn := range opts {
		fn(&o)
	}

	if m == nil || m.Freed() {
		return ErrFreed
	}
	if m.Index == nil {
		return ErrNoIndex
	}
	x := m.Index
	if x.Freed() {
		return ErrFreed
	}
	if int64(len(m.ids)) != x.Ntotal() {
		return ErrIDCountMismatch
	}

	var payload bytes.Buffer
	writeIDs(&payload, m.ids)
	writeFloat32s(&payload, x.vecs)
	writeGraph(&payload, x.graph)

	header, err := newHeader(FamilyFloat, x.dim, x.EFSearch, x.EFConstruction, x.BaseLevelOnly, x.Ntotal())
	if err != nil {
		return err
	}
	return writeFile(path, header, payload.Bytes(), o.Compression)
}

// WriteIndexBinary writes an ID-mapped binary index to path. Same contract
// as WriteIndex; the two formats share a header but are never mixed.
func WriteIndexBinary(m *BinaryIDMap, path string, opts ...WriteOption) error {
	var o WriteOptions
	for _, fn := range opts {
		fn(&o)
	}

	if m == nil || m.Freed() {
		return ErrFreed
	}
	if m.Index == nil {
		return ErrNoIndex
	}
	x := m.Index
	if x.Freed() {
		return ErrFreed
	}
	if int64(len(m.ids)) != x.Ntotal() {
		return ErrIDCountMismatch
	}

	var payload bytes.Buffer
	writeIDs(&payload, m.ids)
	payload.Write(x.codes)
	writeGraph(&payload, x.graph)

	header, err := newHeader(FamilyBinary, x.codeSize, x.EFSearch, x.EFConstruction, x.BaseLevelOnly, x.Ntotal())
	if err != nil {
		return err
	}
	return writeFile(path, header, payload.Bytes(), o.Compression)
}

// newHeader builds a file header from in-memory index fields, rejecting
// values that do not fit the on-disk widths.
func newHeader(family uint8, dim, efSearch, efConstruction int, baseLevelOnly bool, count int64) (*FileHeader, error) {
	dim32, err := conv.IntToUint32(dim)
	if err != nil {
		return nil, err
	}
	efs32, err := conv.IntToUint32(efSearch)
	if err != nil {
		return nil, err
	}
	efc32, err := conv.IntToUint32(efConstruction)
	if err != nil {
		return nil, err
	}

	header := &FileHeader{
		Family:         family,
		Dim:            dim32,
		EFSearch:       efs32,
		EFConstruction: efc32,
		Count:          uint64(count),
	}
	if baseLevelOnly {
		header.Flags |= flagBaseLevelOnly
	}
	return header, nil
}

func writeFile(path string, header *FileHeader, payload []byte, c Compression) error {
	block, err := encodeBlock(payload, c)
	if err != nil {
		return err
	}

	header.Magic = MagicNumber
	header.Version = FormatVersion
	header.Compression = uint8(c)
	header.PayloadSize = uint64(len(block))

	var out bytes.Buffer
	out.Grow(headerSize + len(block) + 4)
	if err := binary.Write(&out, binary.LittleEndian, header); err != nil {
		return err
	}
	out.Write(block)
	var crc [4]byte
	binary.LittleEndian.PutUint32(crc[:], checksum(block))
	out.Write(crc[:])

	return saveToFile(path, out.Bytes())
}

// saveToFile writes data to a temp file in the target directory and renames
// it over path, so a failed write never leaves a partial index behind.
func saveToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0644)

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

func writeIDs(buf *bytes.Buffer, ids []int64) {
	var b [8]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint64(b[:], uint64(id))
		buf.Write(b[:])
	}
}

func writeFloat32s(buf *bytes.Buffer, vals []float32) {
	var b [4]byte
	for _, v := range vals {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		buf.Write(b[:])
	}
}

func writeGraph(buf *bytes.Buffer, g *hnswGraph) {
	var b [4]byte

	buf.WriteByte(uint8(g.maxLevel))
	binary.LittleEndian.PutUint32(b[:], g.entry)
	buf.Write(b[:])
	buf.Write(g.levels)

	for l := 0; l <= g.maxLevel; l++ {
		for id, level := range g.levels {
			if int(level) < l {
				continue
			}
			adj := g.layers[l][id]
			binary.LittleEndian.PutUint32(b[:], uint32(len(adj)))
			buf.Write(b[:])
			for _, nb := range adj {
				binary.LittleEndian.PutUint32(b[:], nb)
				buf.Write(b[:])
			}
		}
	}
}
