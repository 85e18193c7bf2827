// Package render holds the render-item model: materials, textures and items
// that bind geometry to transforms, plus the constant buffer layouts the
// shaders read and the per-item draw loop.
package render

import (
	"github.com/Faultbox/towerscene/pkg/encoding"
	vmath "github.com/Faultbox/towerscene/pkg/math"
)

// Encoded constant buffer sizes, before 256-byte rounding.
const (
	ObjectConstantsSize   = 128
	MaterialConstantsSize = 96
	PassConstantsSize     = 1248
	LightSize             = 48
)

// MaxLights is the length of the pass light array.
const MaxLights = 16

// ObjectConstants is the per-item constant block at b0.
type ObjectConstants struct {
	World        vmath.Mat4
	TexTransform vmath.Mat4
}

// Encode appends the constants in shader layout.
func (c ObjectConstants) Encode(w *encoding.Writer) {
	w.Mat4(c.World)
	w.Mat4(c.TexTransform)
}

// MaterialConstants is the per-material constant block at b2.
type MaterialConstants struct {
	DiffuseAlbedo [4]float32
	FresnelR0     [3]float32
	Roughness     float32
	MatTransform  vmath.Mat4
}

// Encode appends the constants in shader layout.
func (c MaterialConstants) Encode(w *encoding.Writer) {
	w.Vec4(c.DiffuseAlbedo)
	w.Vec3(c.FresnelR0)
	w.Float32(c.Roughness)
	w.Mat4(c.MatTransform)
}

// Light is a directional, point or spot light. Each kind reads the fields
// it needs.
type Light struct {
	Strength     [3]float32
	FalloffStart float32
	Direction    [3]float32
	FalloffEnd   float32
	Position     [3]float32
	SpotPower    float32
}

// DefaultLight returns an unlit placeholder.
func DefaultLight() Light {
	return Light{
		Strength:     [3]float32{0.5, 0.5, 0.5},
		FalloffStart: 1,
		Direction:    [3]float32{0, -1, 0},
		FalloffEnd:   10,
		SpotPower:    64,
	}
}

func (l Light) encode(w *encoding.Writer) {
	w.Vec3(l.Strength)
	w.Float32(l.FalloffStart)
	w.Vec3(l.Direction)
	w.Float32(l.FalloffEnd)
	w.Vec3(l.Position)
	w.Float32(l.SpotPower)
}

// PassConstants is the per-frame constant block at b1.
type PassConstants struct {
	View        vmath.Mat4
	InvView     vmath.Mat4
	Proj        vmath.Mat4
	InvProj     vmath.Mat4
	ViewProj    vmath.Mat4
	InvViewProj vmath.Mat4

	EyePosW             [3]float32
	RenderTargetSize    [2]float32
	InvRenderTargetSize [2]float32
	NearZ               float32
	FarZ                float32
	TotalTime           float32
	DeltaTime           float32

	AmbientLight [4]float32
	FogColor     [4]float32
	FogStart     float32
	FogRange     float32

	Lights [MaxLights]Light
}

// NewPassConstants returns identity matrices, default fog and default lights.
func NewPassConstants() PassConstants {
	p := PassConstants{
		View:         vmath.Identity(),
		InvView:      vmath.Identity(),
		Proj:         vmath.Identity(),
		InvProj:      vmath.Identity(),
		ViewProj:     vmath.Identity(),
		InvViewProj:  vmath.Identity(),
		AmbientLight: [4]float32{0, 0, 0, 1},
		FogColor:     [4]float32{0.7, 0.7, 0.7, 1},
		FogStart:     5,
		FogRange:     150,
	}
	for i := range p.Lights {
		p.Lights[i] = DefaultLight()
	}
	return p
}

// Encode appends the constants in std140 layout.
func (p *PassConstants) Encode(w *encoding.Writer) {
	w.Mat4(p.View)
	w.Mat4(p.InvView)
	w.Mat4(p.Proj)
	w.Mat4(p.InvProj)
	w.Mat4(p.ViewProj)
	w.Mat4(p.InvViewProj)

	w.Vec3(p.EyePosW)
	w.Pad(4)
	w.Vec2(p.RenderTargetSize)
	w.Vec2(p.InvRenderTargetSize)
	w.Float32(p.NearZ)
	w.Float32(p.FarZ)
	w.Float32(p.TotalTime)
	w.Float32(p.DeltaTime)

	w.Vec4(p.AmbientLight)
	w.Vec4(p.FogColor)
	w.Float32(p.FogStart)
	w.Float32(p.FogRange)
	w.Pad(8)

	for _, l := range p.Lights {
		l.encode(w)
	}
}
