package vecforge

import (
	"context"
	"errors"
	"time"
)

// Builder converts a GPU-built index into its CPU-resident, serializable
// form and writes it to disk. It is configured once with the build
// parameters; the DType selects the index family for every operation.
//
// A Builder is stateless across calls, but the bundles it consumes are
// move-only: a GPUBundle is dead after Convert, a CPUBundle after Write.
type Builder struct {
	params  BuildParameters
	family  family
	logger  *Logger
	metrics MetricsCollector
	opts    options
}

// New creates a Builder for the given parameters.
func New(params BuildParameters, optFns ...Option) (*Builder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	fam, err := familyFor(params.DType)
	if err != nil {
		return nil, err
	}

	o := options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		fn(&o)
	}

	return &Builder{
		params:  params,
		family:  fam,
		logger:  o.logger,
		metrics: o.metrics,
		opts:    o,
	}, nil
}

// Params returns the build parameters.
func (b *Builder) Params() BuildParameters { return b.params }

// Convert moves the learned structure of the GPU bundle's index into a newly
// allocated CPU index, re-homes the ID map wrapper onto it, and releases the
// GPU bundle. On success the GPU bundle is dead: its index is freed and its
// ID map field is cleared.
//
// Any failure is returned as a *ConversionError carrying the original cause;
// no partial CPUBundle is returned.
func (b *Builder) Convert(ctx context.Context, gpu *GPUBundle) (*CPUBundle, error) {
	start := time.Now()
	cpu, err := b.convert(ctx, gpu)

	var count int64
	if cpu != nil {
		count = cpu.Index.Ntotal()
	}
	b.metrics.RecordConvert(b.params.DType, count, time.Since(start), err)
	b.logger.LogConvert(ctx, b.params.DType, count, err)
	return cpu, err
}

func (b *Builder) convert(ctx context.Context, gpu *GPUBundle) (*CPUBundle, error) {
	if gpu == nil {
		return nil, convErr("validate", ErrNilBundle)
	}
	if gpu.Released() {
		return nil, convErr("validate", ErrBundleReleased)
	}
	if gpu.DType != b.params.DType {
		return nil, convErr("validate", errors.New("bundle dtype does not match build parameters"))
	}
	if err := ctx.Err(); err != nil {
		return nil, convErr("validate", err)
	}

	// Allocate the empty CPU index and copy the parameters onto it verbatim.
	cpu := b.family.newCPUIndex(b.params)

	// Copy the learned graph from the device index. This is the expensive
	// step; the engine owns the mechanics.
	if err := b.family.copyFromGPU(gpu.Index, cpu); err != nil {
		return nil, convErr("copy", err)
	}

	// Re-home the ID map wrapper. The ordering is deliberate: the wrapper
	// never references two indexes, and once moved out of the GPU bundle
	// the bundle's release cannot touch it.
	wrapper := gpu.IDMap
	wrapper.ClearIndex()
	gpu.IDMap = nil
	if err := b.family.attach(wrapper, cpu); err != nil {
		return nil, convErr("relocate", err)
	}

	// Free the device memory. Unconditional once the copy succeeded.
	if err := gpu.Release(); err != nil {
		return nil, convErr("release", err)
	}

	return &CPUBundle{
		DType: b.params.DType,
		Index: cpu,
		IDMap: wrapper,
	}, nil
}
