package vecforge

import (
	"fmt"

	"github.com/vecforge/vecforge/cagra"
)

// family is the capability set a conversion needs from one index family:
// allocate an empty CPU index, copy the learned structure from the device
// index, re-point the ID map, and serialize the result. Both families run
// the exact same conversion sequence against these four capabilities.
type family interface {
	newCPUIndex(p BuildParameters) CPUIndex
	copyFromGPU(gpu GPUIndex, cpu CPUIndex) error
	attach(m IDMapRef, cpu CPUIndex) error
	writeIndex(m IDMapRef, path string, opts ...cagra.WriteOption) error
}

func familyFor(dt DataType) (family, error) {
	switch dt {
	case DataTypeFloat:
		return floatFamily{}, nil
	case DataTypeBinary:
		return binaryFamily{}, nil
	default:
		return nil, fmt.Errorf("vecforge: invalid vector dtype %d", dt)
	}
}

type floatFamily struct{}

func (floatFamily) newCPUIndex(p BuildParameters) CPUIndex {
	x := cagra.NewIndexHNSW()
	x.EFSearch = p.EFSearch
	x.EFConstruction = p.EFConstruction
	x.BaseLevelOnly = p.BaseLevelOnly
	return x
}

func (floatFamily) copyFromGPU(gpu GPUIndex, cpu CPUIndex) error {
	src, ok := gpu.(*cagra.GPUIndexCagra)
	if !ok {
		return fmt.Errorf("vecforge: float family: unexpected GPU index type %T", gpu)
	}
	dst, ok := cpu.(*cagra.IndexHNSW)
	if !ok {
		return fmt.Errorf("vecforge: float family: unexpected CPU index type %T", cpu)
	}
	return src.CopyTo(dst)
}

func (floatFamily) attach(m IDMapRef, cpu CPUIndex) error {
	idmap, ok := m.(*cagra.IDMap)
	if !ok {
		return fmt.Errorf("vecforge: float family: unexpected ID map type %T", m)
	}
	dst, ok := cpu.(*cagra.IndexHNSW)
	if !ok {
		return fmt.Errorf("vecforge: float family: unexpected CPU index type %T", cpu)
	}
	idmap.Index = dst
	return nil
}

func (floatFamily) writeIndex(m IDMapRef, path string, opts ...cagra.WriteOption) error {
	idmap, ok := m.(*cagra.IDMap)
	if !ok {
		return fmt.Errorf("vecforge: float family: unexpected ID map type %T", m)
	}
	return cagra.WriteIndex(idmap, path, opts...)
}

type binaryFamily struct{}

func (binaryFamily) newCPUIndex(p BuildParameters) CPUIndex {
	x := cagra.NewIndexBinaryHNSW()
	x.EFSearch = p.EFSearch
	x.EFConstruction = p.EFConstruction
	x.BaseLevelOnly = p.BaseLevelOnly
	return x
}

func (binaryFamily) copyFromGPU(gpu GPUIndex, cpu CPUIndex) error {
	src, ok := gpu.(*cagra.GPUIndexBinaryCagra)
	if !ok {
		return fmt.Errorf("vecforge: binary family: unexpected GPU index type %T", gpu)
	}
	dst, ok := cpu.(*cagra.IndexBinaryHNSW)
	if !ok {
		return fmt.Errorf("vecforge: binary family: unexpected CPU index type %T", cpu)
	}
	return src.CopyTo(dst)
}

func (binaryFamily) attach(m IDMapRef, cpu CPUIndex) error {
	idmap, ok := m.(*cagra.BinaryIDMap)
	if !ok {
		return fmt.Errorf("vecforge: binary family: unexpected ID map type %T", m)
	}
	dst, ok := cpu.(*cagra.IndexBinaryHNSW)
	if !ok {
		return fmt.Errorf("vecforge: binary family: unexpected CPU index type %T", cpu)
	}
	idmap.Index = dst
	return nil
}

func (binaryFamily) writeIndex(m IDMapRef, path string, opts ...cagra.WriteOption) error {
	idmap, ok := m.(*cagra.BinaryIDMap)
	if !ok {
		return fmt.Errorf("vecforge: binary family: unexpected ID map type %T", m)
	}
	return cagra.WriteIndexBinary(idmap, path, opts...)
}
