// Package geometry generates procedural indexed meshes.
//
// All generators produce clockwise front faces in a left-handed, Y-up
// coordinate system and center the mesh at the origin.
package geometry

import (
	"github.com/Faultbox/towerscene/pkg/math"
)

// MaxSubdivisions caps the subdivision count of the faceted generators.
const MaxSubdivisions = 6

// Vertex is a generated vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TangentU [3]float32
	TexC     [2]float32
}

// MeshData is a generated mesh with 32-bit indices.
type MeshData struct {
	Vertices  []Vertex
	Indices32 []uint32
}

// Indices16 returns the indices narrowed to 16 bits.
// Meshes are small enough that every index fits.
func (m *MeshData) Indices16() []uint16 {
	out := make([]uint16, len(m.Indices32))
	for i, idx := range m.Indices32 {
		out[i] = uint16(idx)
	}
	return out
}

// Subdivide splits every triangle into four using edge midpoints.
// Vertices are not shared between triangles.
func Subdivide(m *MeshData) {
	in := *m
	m.Vertices = make([]Vertex, 0, len(in.Indices32)*2)
	m.Indices32 = make([]uint32, 0, len(in.Indices32)*4)

	//       v1
	//       *
	//      / \
	//  m0 *---* m1
	//    / \ / \
	//   *---*---*
	//  v0   m2   v2
	numTris := len(in.Indices32) / 3
	for i := 0; i < numTris; i++ {
		v0 := in.Vertices[in.Indices32[i*3+0]]
		v1 := in.Vertices[in.Indices32[i*3+1]]
		v2 := in.Vertices[in.Indices32[i*3+2]]

		m0 := midPoint(v0, v1)
		m1 := midPoint(v1, v2)
		m2 := midPoint(v0, v2)

		m.Vertices = append(m.Vertices, v0, v1, v2, m0, m1, m2)

		base := uint32(i * 6)
		m.Indices32 = append(m.Indices32,
			base+0, base+3, base+5,
			base+3, base+4, base+5,
			base+5, base+4, base+2,
			base+3, base+1, base+4,
		)
	}
}

func midPoint(a, b Vertex) Vertex {
	pa, pb := math.V3(a.Position), math.V3(b.Position)
	na, nb := math.V3(a.Normal), math.V3(b.Normal)
	ta, tb := math.V3(a.TangentU), math.V3(b.TangentU)

	return Vertex{
		Position: pa.Add(pb).Scale(0.5).Array(),
		Normal:   na.Add(nb).Scale(0.5).Normalize().Array(),
		TangentU: ta.Add(tb).Scale(0.5).Normalize().Array(),
		TexC:     [2]float32{(a.TexC[0] + b.TexC[0]) * 0.5, (a.TexC[1] + b.TexC[1]) * 0.5},
	}
}

func subdivideN(m *MeshData, n int) {
	n = min(n, MaxSubdivisions)
	for i := 0; i < n; i++ {
		Subdivide(m)
	}
}
