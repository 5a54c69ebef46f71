package vecforge

import (
	"errors"
	"fmt"
)

// DataType selects the index family used throughout a build: standard
// float32 vectors or packed binary codes.
type DataType uint8

const (
	// DataTypeFloat selects the float family (IndexHNSW, IDMap).
	DataTypeFloat DataType = iota
	// DataTypeBinary selects the binary family (IndexBinaryHNSW, BinaryIDMap).
	DataTypeBinary
)

// String returns the config-facing name of the data type.
func (dt DataType) String() string {
	switch dt {
	case DataTypeFloat:
		return "float"
	case DataTypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// ParseDataType parses a config-facing data type name. Empty means float.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "", "float", "FLOAT":
		return DataTypeFloat, nil
	case "binary", "BINARY":
		return DataTypeBinary, nil
	default:
		return 0, fmt.Errorf("vecforge: unknown vector dtype %q", s)
	}
}

// ErrUnknownParameter is returned when a parameter map carries a key this
// library does not recognize.
var ErrUnknownParameter = errors.New("vecforge: unknown build parameter")

// BuildParameters configures the CPU index produced by a conversion. The
// values are copied verbatim onto the index; no derived computation happens
// here.
type BuildParameters struct {
	// EFSearch is the search-time expansion factor.
	EFSearch int

	// EFConstruction is the construction-time expansion factor.
	EFConstruction int

	// BaseLevelOnly copies only the bottom graph level from the device
	// index. The resulting CPU index is searchable but append-disabled.
	BaseLevelOnly bool

	// DType selects the index family.
	DType DataType
}

// DefaultBuildParameters returns the library defaults: ef_search=100,
// ef_construction=100, base_level_only=true, float family.
func DefaultBuildParameters() BuildParameters {
	return BuildParameters{
		EFSearch:       100,
		EFConstruction: 100,
		BaseLevelOnly:  true,
		DType:          DataTypeFloat,
	}
}

// Validate checks the parameter ranges.
func (p BuildParameters) Validate() error {
	if p.EFSearch <= 0 {
		return fmt.Errorf("vecforge: ef_search must be positive, got %d", p.EFSearch)
	}
	if p.EFConstruction <= 0 {
		return fmt.Errorf("vecforge: ef_construction must be positive, got %d", p.EFConstruction)
	}
	if p.DType != DataTypeFloat && p.DType != DataTypeBinary {
		return fmt.Errorf("vecforge: invalid vector dtype %d", p.DType)
	}
	return nil
}

// BuildParametersFromMap constructs parameters from an optional key/value
// mapping. A nil or empty map yields the defaults; unknown keys are a
// construction-time error.
func BuildParametersFromMap(params map[string]any) (BuildParameters, error) {
	p := DefaultBuildParameters()
	if len(params) == 0 {
		return p, nil
	}

	for key, val := range params {
		switch key {
		case "ef_search":
			n, err := intValue(key, val)
			if err != nil {
				return BuildParameters{}, err
			}
			p.EFSearch = n
		case "ef_construction":
			n, err := intValue(key, val)
			if err != nil {
				return BuildParameters{}, err
			}
			p.EFConstruction = n
		case "base_level_only":
			b, ok := val.(bool)
			if !ok {
				return BuildParameters{}, fmt.Errorf("vecforge: parameter %q: expected bool, got %T", key, val)
			}
			p.BaseLevelOnly = b
		case "vector_dtype":
			switch v := val.(type) {
			case string:
				dt, err := ParseDataType(v)
				if err != nil {
					return BuildParameters{}, err
				}
				p.DType = dt
			case DataType:
				p.DType = v
			default:
				return BuildParameters{}, fmt.Errorf("vecforge: parameter %q: expected string, got %T", key, val)
			}
		default:
			return BuildParameters{}, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
		}
	}

	if err := p.Validate(); err != nil {
		return BuildParameters{}, err
	}
	return p, nil
}

// intValue accepts the integer shapes produced by hand-written maps and by
// yaml/json decoding.
func intValue(key string, val any) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("vecforge: parameter %q: expected integer, got %v", key, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("vecforge: parameter %q: expected integer, got %T", key, val)
	}
}
