// Package pipeline builds the root signatures and the named pipeline state
// cache shared by every draw of a frame.
package pipeline

import (
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// Root parameter slots of the descriptor-table layout.
const (
	TablesObjectParam uint32 = 0 // table: b0 per-object CBV
	TablesPassParam   uint32 = 1 // table: b1 pass CBV
)

// Root parameter slots of the textured layout.
const (
	TexturedSRVParam      uint32 = 0 // table: t0 diffuse map
	TexturedObjectParam   uint32 = 1 // root CBV b0
	TexturedPassParam     uint32 = 2 // root CBV b1
	TexturedMaterialParam uint32 = 3 // root CBV b2
)

// Static sampler registers.
const (
	SamplerPointWrap uint32 = iota
	SamplerPointClamp
	SamplerLinearWrap
	SamplerLinearClamp
	SamplerAnisotropicWrap
	SamplerAnisotropicClamp
)

// TablesDesc describes two single-CBV descriptor tables: object constants at
// b0 and pass constants at b1.
func TablesDesc() gpu.RootSignatureDesc {
	return gpu.RootSignatureDesc{
		Parameters: []gpu.RootParameter{
			gpu.TableParameter(gpu.VisibilityAll, gpu.DescriptorRange{Type: gpu.RangeCBV, NumDescriptors: 1, BaseRegister: 0}),
			gpu.TableParameter(gpu.VisibilityAll, gpu.DescriptorRange{Type: gpu.RangeCBV, NumDescriptors: 1, BaseRegister: 1}),
		},
		AllowInputLayout: true,
	}
}

// TexturedDesc describes a pixel-visible SRV table at t0 followed by root
// CBVs for object, pass and material constants, with the six static samplers.
func TexturedDesc() gpu.RootSignatureDesc {
	return gpu.RootSignatureDesc{
		Parameters: []gpu.RootParameter{
			gpu.TableParameter(gpu.VisibilityPixel, gpu.DescriptorRange{Type: gpu.RangeSRV, NumDescriptors: 1, BaseRegister: 0}),
			gpu.CBVParameter(0),
			gpu.CBVParameter(1),
			gpu.CBVParameter(2),
		},
		StaticSamplers:   StaticSamplers(),
		AllowInputLayout: true,
	}
}

// StaticSamplers returns point, linear and anisotropic filtering, each with
// wrap and clamp addressing, at s0..s5.
func StaticSamplers() []gpu.StaticSampler {
	sampler := func(reg uint32, f gpu.Filter, a gpu.AddressMode) gpu.StaticSampler {
		s := gpu.StaticSampler{Register: reg, Filter: f, AddressU: a, AddressV: a, AddressW: a}
		if f == gpu.FilterAnisotropic {
			s.MaxAnisotropy = 8
		}
		return s
	}
	return []gpu.StaticSampler{
		sampler(SamplerPointWrap, gpu.FilterPoint, gpu.AddressWrap),
		sampler(SamplerPointClamp, gpu.FilterPoint, gpu.AddressClamp),
		sampler(SamplerLinearWrap, gpu.FilterLinear, gpu.AddressWrap),
		sampler(SamplerLinearClamp, gpu.FilterLinear, gpu.AddressClamp),
		sampler(SamplerAnisotropicWrap, gpu.FilterAnisotropic, gpu.AddressWrap),
		sampler(SamplerAnisotropicClamp, gpu.FilterAnisotropic, gpu.AddressClamp),
	}
}

// RootSignatureTables creates the descriptor-table root signature.
func RootSignatureTables(dev gpu.Device) (*gpu.RootSignature, error) {
	rs, err := dev.CreateRootSignature(TablesDesc())
	if err != nil {
		return nil, fmt.Errorf("create table root signature: %w", err)
	}
	return rs, nil
}

// RootSignatureTextured creates the textured root signature.
func RootSignatureTextured(dev gpu.Device) (*gpu.RootSignature, error) {
	rs, err := dev.CreateRootSignature(TexturedDesc())
	if err != nil {
		return nil, fmt.Errorf("create textured root signature: %w", err)
	}
	return rs, nil
}
