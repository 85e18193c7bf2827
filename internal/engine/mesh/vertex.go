// Package mesh concatenates generated meshes into one vertex buffer and one
// index buffer per geometry, addressed through named submeshes.
package mesh

import (
	"github.com/Faultbox/towerscene/internal/engine/geometry"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/pkg/encoding"
)

// VertexFormat selects the GPU vertex layout.
type VertexFormat uint8

const (
	// FormatColor is position plus RGBA color.
	FormatColor VertexFormat = iota
	// FormatLit is position, normal and texture coordinates.
	FormatLit
)

// LitVertex is the vertex of the lit, textured scene.
type LitVertex struct {
	Pos    [3]float32
	Normal [3]float32
	TexC   [2]float32
}

// Vertex strides in bytes. FormatColor packs position and RGBA color.
const (
	ColorVertexStride = 28
	LitVertexStride   = 32
)

// Stride returns the vertex size of the format.
func (f VertexFormat) Stride() uint32 {
	if f == FormatLit {
		return LitVertexStride
	}
	return ColorVertexStride
}

// InputLayout returns the input elements matching the format.
func (f VertexFormat) InputLayout() []gpu.InputElement {
	if f == FormatLit {
		return []gpu.InputElement{
			{Semantic: "POSITION", Format: gpu.FormatR32G32B32Float, Offset: 0},
			{Semantic: "NORMAL", Format: gpu.FormatR32G32B32Float, Offset: 12},
			{Semantic: "TEXCOORD", Format: gpu.FormatR32G32Float, Offset: 24},
		}
	}
	return []gpu.InputElement{
		{Semantic: "POSITION", Format: gpu.FormatR32G32B32Float, Offset: 0},
		{Semantic: "COLOR", Format: gpu.FormatR32G32B32A32Float, Offset: 12},
	}
}

func (f VertexFormat) encode(w *encoding.Writer, v geometry.Vertex, color [4]float32) {
	w.Vec3(v.Position)
	if f == FormatLit {
		w.Vec3(v.Normal)
		w.Vec2(v.TexC)
		return
	}
	w.Vec4(color)
}

// EncodeLit packs lit vertices, used for per-frame dynamic buffers.
func EncodeLit(w *encoding.Writer, v LitVertex) {
	w.Vec3(v.Pos)
	w.Vec3(v.Normal)
	w.Vec2(v.TexC)
}
