package gpu

import "fmt"

// MaxRootSignatureDWords is the root argument budget.
const MaxRootSignatureDWords = 64

// ParameterType is the kind of a root parameter.
type ParameterType uint8

const (
	ParamDescriptorTable ParameterType = iota
	ParamCBV
	ParamConstants
)

// RangeType is the descriptor kind of a table range.
type RangeType uint8

const (
	RangeCBV RangeType = iota
	RangeSRV
)

// ShaderVisibility restricts a parameter to stages.
type ShaderVisibility uint8

const (
	VisibilityAll ShaderVisibility = iota
	VisibilityVertex
	VisibilityPixel
)

// DescriptorRange is a run of consecutive registers inside a table.
type DescriptorRange struct {
	Type           RangeType
	NumDescriptors uint32
	BaseRegister   uint32
}

// RootParameter is one root signature slot.
type RootParameter struct {
	Type           ParameterType
	Ranges         []DescriptorRange
	Register       uint32
	Num32BitValues uint32
	Visibility     ShaderVisibility
}

// TableParameter builds a descriptor-table parameter.
func TableParameter(vis ShaderVisibility, ranges ...DescriptorRange) RootParameter {
	return RootParameter{Type: ParamDescriptorTable, Ranges: ranges, Visibility: vis}
}

// CBVParameter builds a root constant buffer view parameter bound to register b<reg>.
func CBVParameter(reg uint32) RootParameter {
	return RootParameter{Type: ParamCBV, Register: reg, Visibility: VisibilityAll}
}

// DWords returns the root argument cost of the parameter.
func (p RootParameter) DWords() uint32 {
	switch p.Type {
	case ParamDescriptorTable:
		return 1
	case ParamCBV:
		return 2
	case ParamConstants:
		return p.Num32BitValues
	}
	return 0
}

// Filter is a sampler filter.
type Filter uint8

const (
	FilterPoint Filter = iota
	FilterLinear
	FilterAnisotropic
)

// AddressMode is a sampler addressing mode.
type AddressMode uint8

const (
	AddressWrap AddressMode = iota
	AddressClamp
)

// StaticSampler is a sampler baked into the root signature at s<Register>.
type StaticSampler struct {
	Register      uint32
	Filter        Filter
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	MipLODBias    float32
	MaxAnisotropy uint32
}

// RootSignatureDesc describes a root signature.
type RootSignatureDesc struct {
	Parameters       []RootParameter
	StaticSamplers   []StaticSampler
	AllowInputLayout bool
}

// RootSignature is a validated root signature.
type RootSignature struct {
	desc   RootSignatureDesc
	dwords uint32
}

// NewRootSignature validates desc. Backends call it from CreateRootSignature.
func NewRootSignature(desc RootSignatureDesc) (*RootSignature, error) {
	var total uint32
	for i, p := range desc.Parameters {
		if p.Type == ParamDescriptorTable && len(p.Ranges) == 0 {
			return nil, fmt.Errorf("root parameter %d: empty descriptor table", i)
		}
		for _, r := range p.Ranges {
			if r.NumDescriptors == 0 {
				return nil, fmt.Errorf("root parameter %d: empty descriptor range", i)
			}
		}
		total += p.DWords()
	}
	if total > MaxRootSignatureDWords {
		return nil, fmt.Errorf("%d DWORDs: %w", total, ErrRootSignatureTooLarge)
	}

	seen := make(map[uint32]bool, len(desc.StaticSamplers))
	for _, s := range desc.StaticSamplers {
		if seen[s.Register] {
			return nil, fmt.Errorf("static sampler register s%d used twice", s.Register)
		}
		seen[s.Register] = true
	}

	return &RootSignature{desc: desc, dwords: total}, nil
}

// Desc returns the description the signature was built from.
func (rs *RootSignature) Desc() RootSignatureDesc { return rs.desc }

// DWords returns the total root argument cost.
func (rs *RootSignature) DWords() uint32 { return rs.dwords }

// NumParameters returns the number of root slots.
func (rs *RootSignature) NumParameters() int { return len(rs.desc.Parameters) }

// Parameter returns root slot i.
func (rs *RootSignature) Parameter(i uint32) (RootParameter, error) {
	if int(i) >= len(rs.desc.Parameters) {
		return RootParameter{}, fmt.Errorf("root parameter %d of %d: %w", i, len(rs.desc.Parameters), ErrOutOfRange)
	}
	return rs.desc.Parameters[i], nil
}
