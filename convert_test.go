package vecforge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vecforge/vecforge/cagra"
)

func TestNewValidatesParameters(t *testing.T) {
	_, err := New(BuildParameters{EFSearch: 0, EFConstruction: 100})
	assert.Error(t, err)

	_, err = New(BuildParameters{EFSearch: 100, EFConstruction: 100, DType: DataType(9)})
	assert.Error(t, err)

	b, err := New(DefaultBuildParameters())
	require.NoError(t, err)
	assert.Equal(t, DefaultBuildParameters(), b.Params())
}

func TestConvertFloat(t *testing.T) {
	params, err := BuildParametersFromMap(map[string]any{
		"ef_search":       50,
		"ef_construction": 200,
		"base_level_only": false,
	})
	require.NoError(t, err)

	b, err := New(params)
	require.NoError(t, err)

	gpu, vecs := newFloatGPUBundle(t, 60, 8)
	wrapper := gpu.IDMap

	cpu, err := b.Convert(context.Background(), gpu)
	require.NoError(t, err)

	// The GPU bundle is dead: released, index freed, ID map moved out.
	assert.True(t, gpu.Released())
	assert.Nil(t, gpu.IDMap)
	assert.Nil(t, gpu.Index)

	// The wrapper moved into the CPU bundle and references the new index.
	require.Same(t, wrapper, cpu.IDMap)
	idmap, ok := cpu.IDMap.(*cagra.IDMap)
	require.True(t, ok, "expected *cagra.IDMap, got %T", cpu.IDMap)
	require.Same(t, cpu.Index, idmap.Index)

	// Parameters propagate verbatim onto the CPU index.
	index := cpu.Index.(*cagra.IndexHNSW)
	assert.Equal(t, 50, index.EFSearch)
	assert.Equal(t, 200, index.EFConstruction)
	assert.False(t, index.BaseLevelOnly)
	assert.Equal(t, int64(60), index.Ntotal())

	// Search through the re-homed wrapper resolves external IDs.
	ids, _, err := idmap.Search(vecs[4], 1)
	require.NoError(t, err)
	assert.Equal(t, int64(40), ids[0])
}

func TestConvertBinary(t *testing.T) {
	params, err := BuildParametersFromMap(map[string]any{"vector_dtype": "binary"})
	require.NoError(t, err)

	b, err := New(params)
	require.NoError(t, err)

	gpu, codes := newBinaryGPUBundle(t, 40, 8)
	cpu, err := b.Convert(context.Background(), gpu)
	require.NoError(t, err)

	index, ok := cpu.Index.(*cagra.IndexBinaryHNSW)
	require.True(t, ok, "expected *cagra.IndexBinaryHNSW, got %T", cpu.Index)
	assert.True(t, index.BaseLevelOnly)

	idmap := cpu.IDMap.(*cagra.BinaryIDMap)
	ids, _, err := idmap.Search(codes[7], 1)
	require.NoError(t, err)
	assert.Equal(t, int64(70), ids[0])
}

func TestConvertDefaultsPropagate(t *testing.T) {
	b, err := New(DefaultBuildParameters())
	require.NoError(t, err)

	gpu, _ := newFloatGPUBundle(t, 20, 4)
	cpu, err := b.Convert(context.Background(), gpu)
	require.NoError(t, err)

	index := cpu.Index.(*cagra.IndexHNSW)
	assert.Equal(t, 100, index.EFSearch)
	assert.Equal(t, 100, index.EFConstruction)
	assert.True(t, index.BaseLevelOnly)
}

func TestConvertValidation(t *testing.T) {
	b, err := New(DefaultBuildParameters())
	require.NoError(t, err)

	t.Run("nil bundle", func(t *testing.T) {
		_, err := b.Convert(context.Background(), nil)
		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.ErrorIs(t, err, ErrNilBundle)
	})

	t.Run("released bundle", func(t *testing.T) {
		gpu, _ := newFloatGPUBundle(t, 10, 4)
		require.NoError(t, gpu.Release())

		_, err := b.Convert(context.Background(), gpu)
		assert.ErrorIs(t, err, ErrBundleReleased)
	})

	t.Run("dtype mismatch", func(t *testing.T) {
		gpu, _ := newBinaryGPUBundle(t, 10, 4)
		_, err := b.Convert(context.Background(), gpu)

		var convErr *ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.Equal(t, "validate", convErr.Stage)
		// The bundle survives a validation failure.
		assert.False(t, gpu.Released())
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		gpu, _ := newFloatGPUBundle(t, 10, 4)
		_, err := b.Convert(ctx, gpu)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, gpu.Released())
	})
}

// stubGPUIndex satisfies GPUIndex without being a cagra device handle, which
// forces the family copy step to fail.
type stubGPUIndex struct{ freed bool }

func (s *stubGPUIndex) Free() error {
	if s.freed {
		return cagra.ErrFreed
	}
	s.freed = true
	return nil
}
func (s *stubGPUIndex) Freed() bool   { return s.freed }
func (s *stubGPUIndex) Ntotal() int64 { return 0 }

func TestConvertCopyFailure(t *testing.T) {
	b, err := New(DefaultBuildParameters())
	require.NoError(t, err)

	idmap := cagra.NewIDMap(nil)
	idmap.AddIDs(1, 2, 3)
	gpu := NewGPUBundle(DataTypeFloat, &stubGPUIndex{}, idmap)

	_, err = b.Convert(context.Background(), gpu)

	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "copy", convErr.Stage)

	// The copy failed before the wrapper moved, so the bundle is intact and
	// still releasable.
	assert.False(t, gpu.Released())
	require.NotNil(t, gpu.IDMap)
	assert.NoError(t, gpu.Release())
}

func TestConversionErrorUnwrap(t *testing.T) {
	cause := context.DeadlineExceeded
	err := convErr("copy", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to convert GPU index to CPU index")
	assert.Contains(t, err.Error(), "copy")
}
