package cagra

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"

	"github.com/vecforge/vecforge/internal/conv"
)

// ReadIndex loads an ID-mapped float index written by WriteIndex.
func ReadIndex(path string) (*IDMap, error) {
	header, payload, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if header.Family != FamilyFloat {
		return nil, ErrFamilyMismatch
	}

	r := bytes.NewReader(payload)
	n, err := conv.Uint64ToInt(header.Count)
	if err != nil {
		return nil, err
	}
	dim, err := conv.Uint32ToInt(header.Dim)
	if err != nil {
		return nil, err
	}

	ids, err := readIDs(r, n)
	if err != nil {
		return nil, err
	}
	vecs, err := readFloat32s(r, n*dim)
	if err != nil {
		return nil, err
	}
	graph, err := readGraph(r, n)
	if err != nil {
		return nil, err
	}

	x := NewIndexHNSW()
	x.EFSearch = int(header.EFSearch)
	x.EFConstruction = int(header.EFConstruction)
	x.BaseLevelOnly = header.Flags&flagBaseLevelOnly != 0
	x.dim = dim
	x.vecs = vecs
	x.graph = graph

	m := NewIDMap(x)
	m.AddIDs(ids...)
	return m, nil
}

// ReadIndexBinary loads an ID-mapped binary index written by WriteIndexBinary.
func ReadIndexBinary(path string) (*BinaryIDMap, error) {
	header, payload, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if header.Family != FamilyBinary {
		return nil, ErrFamilyMismatch
	}

	r := bytes.NewReader(payload)
	n, err := conv.Uint64ToInt(header.Count)
	if err != nil {
		return nil, err
	}
	codeSize, err := conv.Uint32ToInt(header.Dim)
	if err != nil {
		return nil, err
	}

	ids, err := readIDs(r, n)
	if err != nil {
		return nil, err
	}
	codes := make([]byte, n*codeSize)
	if _, err := readFull(r, codes); err != nil {
		return nil, err
	}
	graph, err := readGraph(r, n)
	if err != nil {
		return nil, err
	}

	x := NewIndexBinaryHNSW()
	x.EFSearch = int(header.EFSearch)
	x.EFConstruction = int(header.EFConstruction)
	x.BaseLevelOnly = header.Flags&flagBaseLevelOnly != 0
	x.codeSize = codeSize
	x.codes = codes
	x.graph = graph

	m := NewBinaryIDMap(x)
	m.AddIDs(ids...)
	return m, nil
}

// ReadHeader reads and validates only the file header.
func ReadHeader(path string) (*FileHeader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var header FileHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if err := header.validate(); err != nil {
		return nil, err
	}
	return &header, nil
}

func readFile(path string) (*FileHeader, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return decodeFile(raw)
}

// decodeFile parses and validates a whole index file image.
func decodeFile(raw []byte) (*FileHeader, []byte, error) {
	if len(raw) < headerSize+4 {
		return nil, nil, ErrTruncated
	}

	var header FileHeader
	if err := binary.Read(bytes.NewReader(raw[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, nil, err
	}
	if err := header.validate(); err != nil {
		return nil, nil, err
	}

	// PayloadSize is untrusted; bound it against the file before any
	// arithmetic so a corrupt header cannot wrap the index computations.
	if header.PayloadSize > uint64(len(raw)-headerSize-4) {
		return nil, nil, ErrTruncated
	}
	payloadSize := int(header.PayloadSize)
	block := raw[headerSize : headerSize+payloadSize]
	crc := binary.LittleEndian.Uint32(raw[headerSize+payloadSize:])
	if checksum(block) != crc {
		return nil, nil, ErrChecksum
	}

	payload, err := decodeBlock(block, Compression(header.Compression))
	if err != nil {
		return nil, nil, err
	}
	return &header, payload, nil
}

func readFull(r *bytes.Reader, p []byte) (int, error) {
	n, err := r.Read(p)
	if err != nil || n != len(p) {
		return n, ErrTruncated
	}
	return n, nil
}

func readIDs(r *bytes.Reader, n int) ([]int64, error) {
	buf := make([]byte, n*8)
	if _, err := readFull(r, buf); err != nil {
		return nil, err
	}
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return ids, nil
}

func readFloat32s(r *bytes.Reader, n int) ([]float32, error) {
	buf := make([]byte, n*4)
	if _, err := readFull(r, buf); err != nil {
		return nil, err
	}
	vals := make([]float32, n)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vals, nil
}

func readGraph(r *bytes.Reader, n int) (*hnswGraph, error) {
	maxLevel, err := r.ReadByte()
	if err != nil {
		return nil, ErrTruncated
	}
	var b [4]byte
	if _, err := readFull(r, b[:]); err != nil {
		return nil, err
	}
	entry := binary.LittleEndian.Uint32(b[:])

	levels := make([]uint8, n)
	if n > 0 {
		if _, err := readFull(r, levels); err != nil {
			return nil, err
		}
	}

	g := &hnswGraph{
		entry:    entry,
		maxLevel: int(maxLevel),
		levels:   levels,
	}
	g.layers = make([][][]uint32, int(maxLevel)+1)
	for l := range g.layers {
		g.layers[l] = make([][]uint32, n)
	}

	for l := 0; l <= int(maxLevel); l++ {
		for id := range n {
			if int(levels[id]) < l {
				continue
			}
			if _, err := readFull(r, b[:]); err != nil {
				return nil, err
			}
			deg := int(binary.LittleEndian.Uint32(b[:]))
			adj := make([]uint32, deg)
			for k := range deg {
				if _, err := readFull(r, b[:]); err != nil {
					return nil, err
				}
				adj[k] = binary.LittleEndian.Uint32(b[:])
			}
			g.layers[l][id] = adj
		}
	}
	return g, nil
}
