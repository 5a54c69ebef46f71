package cagra

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/vecforge/vecforge/testutil"
)

func buildTestIDMap(t *testing.T, n, dim int) (*IDMap, [][]float32) {
	t.Helper()

	vecs := testutil.NewRNG(42).UniformVectors(n, dim)
	gpu, err := BuildCagra(vecs, 8)
	if err != nil {
		t.Fatal(err)
	}

	cpu := NewIndexHNSW()
	if err := gpu.CopyTo(cpu); err != nil {
		t.Fatal(err)
	}

	m := NewIDMap(cpu)
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i * 10)
	}
	m.AddIDs(ids...)
	return m, vecs
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			m, vecs := buildTestIDMap(t, 50, 8)
			m.Index.EFSearch = 64
			m.Index.EFConstruction = 150

			path := filepath.Join(t.TempDir(), "index.cgr")
			if err := WriteIndex(m, path, WithCompression(comp)); err != nil {
				t.Fatal(err)
			}

			got, err := ReadIndex(path)
			if err != nil {
				t.Fatal(err)
			}

			if got.Count() != 50 {
				t.Errorf("Count() = %d, want 50", got.Count())
			}
			if got.Index.EFSearch != 64 {
				t.Errorf("EFSearch = %d, want 64", got.Index.EFSearch)
			}
			if got.Index.EFConstruction != 150 {
				t.Errorf("EFConstruction = %d, want 150", got.Index.EFConstruction)
			}
			if got.Index.Dim() != 8 {
				t.Errorf("Dim() = %d, want 8", got.Index.Dim())
			}

			// Search resolves to the external IDs stored in the file.
			ids, _, err := got.Search(vecs[3], 1)
			if err != nil {
				t.Fatal(err)
			}
			if ids[0] != 30 {
				t.Errorf("ids[0] = %d, want 30", ids[0])
			}
		})
	}
}

func TestWriteReadBaseLevelOnly(t *testing.T) {
	vecs := testutil.NewRNG(9).UniformVectors(30, 4)
	gpu, err := BuildCagra(vecs, 8)
	if err != nil {
		t.Fatal(err)
	}

	cpu := NewIndexHNSW()
	cpu.BaseLevelOnly = true
	if err := gpu.CopyTo(cpu); err != nil {
		t.Fatal(err)
	}

	m := NewIDMap(cpu)
	for i := range 30 {
		m.AddIDs(int64(i))
	}

	path := filepath.Join(t.TempDir(), "base.cgr")
	if err := WriteIndex(m, path); err != nil {
		t.Fatal(err)
	}

	got, err := ReadIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Index.BaseLevelOnly {
		t.Error("BaseLevelOnly not restored from file")
	}
	if _, err := got.Index.Add(vecs[0]); !errors.Is(err, ErrAppendDisabled) {
		t.Errorf("Add: err = %v, want ErrAppendDisabled", err)
	}
}

func TestWriteBinaryReadRoundTrip(t *testing.T) {
	codes := testutil.NewRNG(12).BinaryCodes(40, 8)
	gpu, err := BuildBinaryCagra(codes, 8)
	if err != nil {
		t.Fatal(err)
	}

	cpu := NewIndexBinaryHNSW()
	if err := gpu.CopyTo(cpu); err != nil {
		t.Fatal(err)
	}

	m := NewBinaryIDMap(cpu)
	for i := range 40 {
		m.AddIDs(int64(1000 + i))
	}

	path := filepath.Join(t.TempDir(), "binary.cgr")
	if err := WriteIndexBinary(m, path, WithCompression(CompressionZSTD)); err != nil {
		t.Fatal(err)
	}

	got, err := ReadIndexBinary(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Count() != 40 {
		t.Errorf("Count() = %d, want 40", got.Count())
	}
	if got.Index.CodeSize() != 8 {
		t.Errorf("CodeSize() = %d, want 8", got.Index.CodeSize())
	}

	ids, _, err := got.Search(codes[5], 1)
	if err != nil {
		t.Fatal(err)
	}
	if ids[0] != 1005 {
		t.Errorf("ids[0] = %d, want 1005", ids[0])
	}
}

func TestWriteIndexValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.cgr")

	t.Run("nil map", func(t *testing.T) {
		if err := WriteIndex(nil, path); !errors.Is(err, ErrFreed) {
			t.Errorf("err = %v, want ErrFreed", err)
		}
	})

	t.Run("freed map", func(t *testing.T) {
		m, _ := buildTestIDMap(t, 5, 4)
		if err := m.Free(); err != nil {
			t.Fatal(err)
		}
		if err := WriteIndex(m, path); !errors.Is(err, ErrFreed) {
			t.Errorf("err = %v, want ErrFreed", err)
		}
	})

	t.Run("no index", func(t *testing.T) {
		m, _ := buildTestIDMap(t, 5, 4)
		m.ClearIndex()
		if err := WriteIndex(m, path); !errors.Is(err, ErrNoIndex) {
			t.Errorf("err = %v, want ErrNoIndex", err)
		}
	})

	t.Run("id count mismatch", func(t *testing.T) {
		m, _ := buildTestIDMap(t, 5, 4)
		m.AddIDs(999)
		if err := WriteIndex(m, path); !errors.Is(err, ErrIDCountMismatch) {
			t.Errorf("err = %v, want ErrIDCountMismatch", err)
		}
	})
}

func TestReadIndexFamilyMismatch(t *testing.T) {
	codes := testutil.NewRNG(1).BinaryCodes(10, 4)
	gpu, err := BuildBinaryCagra(codes, 4)
	if err != nil {
		t.Fatal(err)
	}
	cpu := NewIndexBinaryHNSW()
	if err := gpu.CopyTo(cpu); err != nil {
		t.Fatal(err)
	}
	m := NewBinaryIDMap(cpu)
	for i := range 10 {
		m.AddIDs(int64(i))
	}

	path := filepath.Join(t.TempDir(), "binary.cgr")
	if err := WriteIndexBinary(m, path); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadIndex(path); !errors.Is(err, ErrFamilyMismatch) {
		t.Errorf("err = %v, want ErrFamilyMismatch", err)
	}
}

func TestVerifyFile(t *testing.T) {
	m, _ := buildTestIDMap(t, 20, 4)
	path := filepath.Join(t.TempDir(), "v.cgr")
	if err := WriteIndex(m, path, WithCompression(CompressionLZ4)); err != nil {
		t.Fatal(err)
	}

	header, err := VerifyFile(path)
	if err != nil {
		t.Fatalf("VerifyFile: %v", err)
	}
	if header.Count != 20 {
		t.Errorf("header.Count = %d, want 20", header.Count)
	}
	if header.Family != FamilyFloat {
		t.Errorf("header.Family = %d, want FamilyFloat", header.Family)
	}
}

func TestVerifyFileCorrupted(t *testing.T) {
	m, _ := buildTestIDMap(t, 20, 4)
	path := filepath.Join(t.TempDir(), "c.cgr")
	if err := WriteIndex(m, path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("payload bit flip", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[headerSize+10] ^= 0xff
		badPath := filepath.Join(t.TempDir(), "bad.cgr")
		if err := os.WriteFile(badPath, bad, 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := VerifyFile(badPath); !errors.Is(err, ErrChecksum) {
			t.Errorf("err = %v, want ErrChecksum", err)
		}
		if _, err := ReadIndex(badPath); !errors.Is(err, ErrChecksum) {
			t.Errorf("ReadIndex err = %v, want ErrChecksum", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		badPath := filepath.Join(t.TempDir(), "trunc.cgr")
		if err := os.WriteFile(badPath, raw[:len(raw)-8], 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := VerifyFile(badPath); !errors.Is(err, ErrTruncated) {
			t.Errorf("err = %v, want ErrTruncated", err)
		}
	})

	// A corrupt PayloadSize must never wrap the bounds arithmetic into a
	// panic; any value larger than the file reports truncation.
	for name, size := range map[string]uint64{
		"payload size wraps uint64": ^uint64(0) - 15,
		"payload size exceeds int":  math.MaxInt64 - 10,
		"payload size past eof":     uint64(len(raw)),
	} {
		t.Run(name, func(t *testing.T) {
			bad := append([]byte(nil), raw...)
			binary.LittleEndian.PutUint64(bad[32:], size)
			badPath := filepath.Join(t.TempDir(), "size.cgr")
			if err := os.WriteFile(badPath, bad, 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := VerifyFile(badPath); !errors.Is(err, ErrTruncated) {
				t.Errorf("err = %v, want ErrTruncated", err)
			}
			if _, err := ReadIndex(badPath); !errors.Is(err, ErrTruncated) {
				t.Errorf("ReadIndex err = %v, want ErrTruncated", err)
			}
		})
	}

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), raw...)
		bad[0] ^= 0xff
		badPath := filepath.Join(t.TempDir(), "magic.cgr")
		if err := os.WriteFile(badPath, bad, 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := VerifyFile(badPath); !errors.Is(err, ErrInvalidMagic) {
			t.Errorf("err = %v, want ErrInvalidMagic", err)
		}
	})
}

func TestReadHeader(t *testing.T) {
	m, _ := buildTestIDMap(t, 15, 6)
	m.Index.EFSearch = 33

	path := filepath.Join(t.TempDir(), "h.cgr")
	if err := WriteIndex(m, path); err != nil {
		t.Fatal(err)
	}

	h, err := ReadHeader(path)
	if err != nil {
		t.Fatal(err)
	}
	if h.Count != 15 || h.Dim != 6 || h.EFSearch != 33 {
		t.Errorf("header = {Count:%d Dim:%d EFSearch:%d}, want {15 6 33}", h.Count, h.Dim, h.EFSearch)
	}
}

func TestWriteAtomicNoPartialFile(t *testing.T) {
	m, _ := buildTestIDMap(t, 5, 4)
	m.ClearIndex() // force failure before any bytes hit disk

	dir := t.TempDir()
	path := filepath.Join(dir, "out.cgr")
	if err := WriteIndex(m, path); err == nil {
		t.Fatal("expected error")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("directory not clean after failed write: %v", entries)
	}
}
