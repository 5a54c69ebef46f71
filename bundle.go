package vecforge

import "errors"

// GPUIndex is the device-resident index handle consumed from the cagra
// engine.
type GPUIndex interface {
	Free() error
	Freed() bool
	Ntotal() int64
}

// CPUIndex is the host-resident, serializable index handle.
type CPUIndex interface {
	Free() error
	Freed() bool
	Ntotal() int64
}

// IDMapRef is the identifier-mapping wrapper associating dataset vector IDs
// with index positions. Exactly one index is referenced at a time.
type IDMapRef interface {
	Free() error
	Freed() bool
	Count() int64
	ClearIndex()
}

// GPUBundle owns a GPU-resident index and the ID map wrapper that references
// it. The build pipeline hands one to Convert; after that call the bundle is
// dead and must not be reused.
//
// While the bundle is intact, the ID map's internal reference and the Index
// field point at the same object.
type GPUBundle struct {
	DType DataType
	Index GPUIndex
	IDMap IDMapRef

	released bool
}

// NewGPUBundle creates a bundle over a device index and its ID map.
func NewGPUBundle(dtype DataType, index GPUIndex, idmap IDMapRef) *GPUBundle {
	return &GPUBundle{DType: dtype, Index: index, IDMap: idmap}
}

// Released reports whether Release has run.
func (b *GPUBundle) Released() bool { return b.released }

// Release frees the bundle's resources. Calling Release twice is an error:
// double release is reported, not silently tolerated.
func (b *GPUBundle) Release() error {
	if b.released {
		return ErrBundleReleased
	}
	b.released = true

	var errs []error
	if b.Index != nil {
		if err := b.Index.Free(); err != nil {
			errs = append(errs, err)
		}
		b.Index = nil
	}
	if b.IDMap != nil {
		if err := b.IDMap.Free(); err != nil {
			errs = append(errs, err)
		}
		b.IDMap = nil
	}
	return errors.Join(errs...)
}

// CPUBundle owns a CPU-resident index and the re-homed ID map wrapper
// referencing it. Produced by Convert, consumed by Write; dead afterwards.
type CPUBundle struct {
	DType DataType
	Index CPUIndex
	IDMap IDMapRef

	released bool
}

// Released reports whether Release has run.
func (b *CPUBundle) Released() bool { return b.released }

// Release frees the bundle's resources. Calling Release twice is an error.
func (b *CPUBundle) Release() error {
	if b.released {
		return ErrBundleReleased
	}
	b.released = true

	var errs []error
	if b.Index != nil {
		if err := b.Index.Free(); err != nil {
			errs = append(errs, err)
		}
		b.Index = nil
	}
	if b.IDMap != nil {
		if err := b.IDMap.Free(); err != nil {
			errs = append(errs, err)
		}
		b.IDMap = nil
	}
	return errors.Join(errs...)
}
