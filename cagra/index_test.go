package cagra

import (
	"errors"
	"testing"

	"github.com/vecforge/vecforge/testutil"
)

func TestIndexHNSWDefaults(t *testing.T) {
	x := NewIndexHNSW()

	if x.EFSearch != 100 {
		t.Errorf("EFSearch = %d, want 100", x.EFSearch)
	}
	if x.EFConstruction != 100 {
		t.Errorf("EFConstruction = %d, want 100", x.EFConstruction)
	}
	if x.BaseLevelOnly {
		t.Error("BaseLevelOnly should default to false for a hand-built index")
	}
	if x.Ntotal() != 0 {
		t.Errorf("Ntotal() = %d, want 0", x.Ntotal())
	}
}

func TestIndexHNSWAddSearch(t *testing.T) {
	rng := testutil.NewRNG(42)
	vecs := rng.UniformVectors(200, 16)

	x := NewIndexHNSW()
	for i, v := range vecs {
		pos, err := x.Add(v)
		if err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
		if pos != uint32(i) {
			t.Fatalf("Add(%d) = pos %d, want %d", i, pos, i)
		}
	}

	if x.Ntotal() != 200 {
		t.Fatalf("Ntotal() = %d, want 200", x.Ntotal())
	}
	if x.Dim() != 16 {
		t.Fatalf("Dim() = %d, want 16", x.Dim())
	}

	// The query is an indexed vector, so it must come back first.
	hits, err := x.Search(vecs[17], 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 5 {
		t.Fatalf("len(hits) = %d, want 5", len(hits))
	}
	if hits[0].Pos != 17 {
		t.Errorf("hits[0].Pos = %d, want 17", hits[0].Pos)
	}
	if hits[0].Distance != 0 {
		t.Errorf("hits[0].Distance = %v, want 0", hits[0].Distance)
	}
}

func TestIndexHNSWSearchRecall(t *testing.T) {
	rng := testutil.NewRNG(7)
	vecs := rng.UnitVectors(500, 24)

	x := NewIndexHNSW()
	for _, v := range vecs {
		if _, err := x.Add(v); err != nil {
			t.Fatal(err)
		}
	}

	queries := testutil.NewRNG(99).UnitVectors(20, 24)
	var total float64
	for _, q := range queries {
		truth := testutil.BruteForceSearch(vecs, q, 10)

		hits, err := x.Search(q, 10)
		if err != nil {
			t.Fatal(err)
		}
		approx := make([]testutil.SearchResult, len(hits))
		for i, h := range hits {
			approx[i] = testutil.SearchResult{ID: uint64(h.Pos), Distance: h.Distance}
		}
		total += testutil.ComputeRecall(truth, approx)
	}

	recall := total / float64(len(queries))
	if recall < 0.8 {
		t.Errorf("recall@10 = %.3f, want >= 0.8", recall)
	}
}

func TestIndexHNSWBaseLevelOnlyRejectsAdd(t *testing.T) {
	x := NewIndexHNSW()
	x.BaseLevelOnly = true

	if _, err := x.Add([]float32{1, 2}); !errors.Is(err, ErrAppendDisabled) {
		t.Errorf("Add on base-level-only index: err = %v, want ErrAppendDisabled", err)
	}
}

func TestIndexHNSWDimensionMismatch(t *testing.T) {
	x := NewIndexHNSW()
	if _, err := x.Add([]float32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	_, err := x.Add([]float32{1, 2})
	var dimErr *ErrDimensionMismatch
	if !errors.As(err, &dimErr) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if dimErr.Expected != 3 || dimErr.Actual != 2 {
		t.Errorf("mismatch = %d/%d, want 3/2", dimErr.Expected, dimErr.Actual)
	}

	if _, err := x.Search([]float32{1}, 1); !errors.As(err, &dimErr) {
		t.Errorf("Search err = %v, want ErrDimensionMismatch", err)
	}
}

func TestIndexHNSWEmptySearch(t *testing.T) {
	x := NewIndexHNSW()
	if _, err := x.Search([]float32{1}, 1); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("err = %v, want ErrEmptyIndex", err)
	}
}

func TestIndexHNSWDoubleFree(t *testing.T) {
	x := NewIndexHNSW()
	if _, err := x.Add([]float32{1, 2}); err != nil {
		t.Fatal(err)
	}

	if err := x.Free(); err != nil {
		t.Fatalf("first Free: %v", err)
	}
	if !x.Freed() {
		t.Error("Freed() = false after Free")
	}
	if err := x.Free(); !errors.Is(err, ErrFreed) {
		t.Errorf("second Free: err = %v, want ErrFreed", err)
	}

	if _, err := x.Add([]float32{1, 2}); !errors.Is(err, ErrFreed) {
		t.Errorf("Add after Free: err = %v, want ErrFreed", err)
	}
	if _, err := x.Search([]float32{1, 2}, 1); !errors.Is(err, ErrFreed) {
		t.Errorf("Search after Free: err = %v, want ErrFreed", err)
	}
}

func TestIndexBinaryHNSWAddSearch(t *testing.T) {
	codes := testutil.NewRNG(5).BinaryCodes(100, 8)

	x := NewIndexBinaryHNSW()
	for _, c := range codes {
		if _, err := x.Add(c); err != nil {
			t.Fatal(err)
		}
	}

	if x.Ntotal() != 100 {
		t.Fatalf("Ntotal() = %d, want 100", x.Ntotal())
	}
	if x.CodeSize() != 8 {
		t.Fatalf("CodeSize() = %d, want 8", x.CodeSize())
	}

	hits, err := x.Search(codes[42], 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Pos != 42 || hits[0].Distance != 0 {
		t.Errorf("hits[0] = {%d %v}, want {42 0}", hits[0].Pos, hits[0].Distance)
	}
}

func TestIndexBinaryHNSWDoubleFree(t *testing.T) {
	x := NewIndexBinaryHNSW()
	if err := x.Free(); err != nil {
		t.Fatalf("first Free: %v", err)
	}
	if err := x.Free(); !errors.Is(err, ErrFreed) {
		t.Errorf("second Free: err = %v, want ErrFreed", err)
	}
}
