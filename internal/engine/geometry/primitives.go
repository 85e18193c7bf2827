package geometry

import (
	"github.com/Faultbox/towerscene/pkg/math"
)

// Box creates an axis-aligned box with one quad per face, subdivided
// numSubdivisions times.
func Box(width, height, depth float32, numSubdivisions int) MeshData {
	w2, h2, d2 := 0.5*width, 0.5*height, 0.5*depth

	v := func(px, py, pz, nx, ny, nz, tx, ty, tz, u, vv float32) Vertex {
		return Vertex{
			Position: [3]float32{px, py, pz},
			Normal:   [3]float32{nx, ny, nz},
			TangentU: [3]float32{tx, ty, tz},
			TexC:     [2]float32{u, vv},
		}
	}

	var m MeshData
	m.Vertices = []Vertex{
		// Front
		v(-w2, -h2, -d2, 0, 0, -1, 1, 0, 0, 0, 1),
		v(-w2, +h2, -d2, 0, 0, -1, 1, 0, 0, 0, 0),
		v(+w2, +h2, -d2, 0, 0, -1, 1, 0, 0, 1, 0),
		v(+w2, -h2, -d2, 0, 0, -1, 1, 0, 0, 1, 1),
		// Back
		v(-w2, -h2, +d2, 0, 0, 1, -1, 0, 0, 1, 1),
		v(+w2, -h2, +d2, 0, 0, 1, -1, 0, 0, 0, 1),
		v(+w2, +h2, +d2, 0, 0, 1, -1, 0, 0, 0, 0),
		v(-w2, +h2, +d2, 0, 0, 1, -1, 0, 0, 1, 0),
		// Top
		v(-w2, +h2, -d2, 0, 1, 0, 1, 0, 0, 0, 1),
		v(-w2, +h2, +d2, 0, 1, 0, 1, 0, 0, 0, 0),
		v(+w2, +h2, +d2, 0, 1, 0, 1, 0, 0, 1, 0),
		v(+w2, +h2, -d2, 0, 1, 0, 1, 0, 0, 1, 1),
		// Bottom
		v(-w2, -h2, -d2, 0, -1, 0, -1, 0, 0, 1, 1),
		v(+w2, -h2, -d2, 0, -1, 0, -1, 0, 0, 0, 1),
		v(+w2, -h2, +d2, 0, -1, 0, -1, 0, 0, 0, 0),
		v(-w2, -h2, +d2, 0, -1, 0, -1, 0, 0, 1, 0),
		// Left
		v(-w2, -h2, +d2, -1, 0, 0, 0, 0, -1, 0, 1),
		v(-w2, +h2, +d2, -1, 0, 0, 0, 0, -1, 0, 0),
		v(-w2, +h2, -d2, -1, 0, 0, 0, 0, -1, 1, 0),
		v(-w2, -h2, -d2, -1, 0, 0, 0, 0, -1, 1, 1),
		// Right
		v(+w2, -h2, -d2, 1, 0, 0, 0, 0, 1, 0, 1),
		v(+w2, +h2, -d2, 1, 0, 0, 0, 0, 1, 0, 0),
		v(+w2, +h2, +d2, 1, 0, 0, 0, 0, 1, 1, 0),
		v(+w2, -h2, +d2, 1, 0, 0, 0, 0, 1, 1, 1),
	}

	for face := uint32(0); face < 6; face++ {
		b := face * 4
		m.Indices32 = append(m.Indices32, b, b+1, b+2, b, b+2, b+3)
	}

	subdivideN(&m, numSubdivisions)
	return m
}

// Sphere creates a UV sphere. Poles are single vertices; the seam is duplicated
// so texture coordinates wrap cleanly.
func Sphere(radius float32, sliceCount, stackCount int) MeshData {
	var m MeshData

	top := Vertex{Position: [3]float32{0, radius, 0}, Normal: [3]float32{0, 1, 0}, TangentU: [3]float32{1, 0, 0}, TexC: [2]float32{0, 0}}
	bottom := Vertex{Position: [3]float32{0, -radius, 0}, Normal: [3]float32{0, -1, 0}, TangentU: [3]float32{1, 0, 0}, TexC: [2]float32{0, 1}}

	m.Vertices = append(m.Vertices, top)

	phiStep := math.Pi / float32(stackCount)
	thetaStep := 2 * math.Pi / float32(sliceCount)

	// Rings between the poles.
	for i := 1; i <= stackCount-1; i++ {
		phi := float32(i) * phiStep
		for j := 0; j <= sliceCount; j++ {
			theta := float32(j) * thetaStep

			p := math.Vec3{
				X: radius * math.Sin(phi) * math.Cos(theta),
				Y: radius * math.Cos(phi),
				Z: radius * math.Sin(phi) * math.Sin(theta),
			}
			tangent := math.Vec3{
				X: -radius * math.Sin(phi) * math.Sin(theta),
				Z: radius * math.Sin(phi) * math.Cos(theta),
			}

			m.Vertices = append(m.Vertices, Vertex{
				Position: p.Array(),
				Normal:   p.Normalize().Array(),
				TangentU: tangent.Normalize().Array(),
				TexC:     [2]float32{theta / (2 * math.Pi), phi / math.Pi},
			})
		}
	}

	m.Vertices = append(m.Vertices, bottom)

	// Top cap fan.
	for i := uint32(1); i <= uint32(sliceCount); i++ {
		m.Indices32 = append(m.Indices32, 0, i+1, i)
	}

	base := uint32(1)
	ring := uint32(sliceCount + 1)
	for i := uint32(0); i < uint32(stackCount-2); i++ {
		for j := uint32(0); j < uint32(sliceCount); j++ {
			m.Indices32 = append(m.Indices32,
				base+i*ring+j, base+i*ring+j+1, base+(i+1)*ring+j,
				base+(i+1)*ring+j, base+i*ring+j+1, base+(i+1)*ring+j+1,
			)
		}
	}

	// Bottom cap fan.
	south := uint32(len(m.Vertices) - 1)
	base = south - ring
	for i := uint32(0); i < uint32(sliceCount); i++ {
		m.Indices32 = append(m.Indices32, south, base+i, base+i+1)
	}

	return m
}

// Cylinder creates a capped frustum centered on the origin along Y.
func Cylinder(bottomRadius, topRadius, height float32, sliceCount, stackCount int) MeshData {
	m := cylinderBody(bottomRadius, topRadius, height, sliceCount, stackCount)
	cylinderCap(&m, topRadius, 0.5*height, height, sliceCount, true)
	cylinderCap(&m, bottomRadius, -0.5*height, height, sliceCount, false)
	return m
}

// Cone creates a cone with a capped base. The apex sits at +height/2.
func Cone(radius, height float32, sliceCount, stackCount int) MeshData {
	m := cylinderBody(radius, 0, height, sliceCount, stackCount)
	cylinderCap(&m, radius, -0.5*height, height, sliceCount, false)
	return m
}

func cylinderBody(bottomRadius, topRadius, height float32, sliceCount, stackCount int) MeshData {
	var m MeshData

	stackHeight := height / float32(stackCount)
	radiusStep := (topRadius - bottomRadius) / float32(stackCount)
	dTheta := 2 * math.Pi / float32(sliceCount)
	dr := bottomRadius - topRadius

	for i := 0; i <= stackCount; i++ {
		y := -0.5*height + float32(i)*stackHeight
		r := bottomRadius + float32(i)*radiusStep

		for j := 0; j <= sliceCount; j++ {
			c := math.Cos(float32(j) * dTheta)
			s := math.Sin(float32(j) * dTheta)

			tangent := math.Vec3{X: -s, Z: c}
			bitangent := math.Vec3{X: dr * c, Y: -height, Z: dr * s}

			m.Vertices = append(m.Vertices, Vertex{
				Position: [3]float32{r * c, y, r * s},
				Normal:   tangent.Cross(bitangent).Normalize().Array(),
				TangentU: tangent.Array(),
				TexC:     [2]float32{float32(j) / float32(sliceCount), 1 - float32(i)/float32(stackCount)},
			})
		}
	}

	ring := uint32(sliceCount + 1)
	for i := uint32(0); i < uint32(stackCount); i++ {
		for j := uint32(0); j < uint32(sliceCount); j++ {
			m.Indices32 = append(m.Indices32,
				i*ring+j, (i+1)*ring+j, (i+1)*ring+j+1,
				i*ring+j, (i+1)*ring+j+1, i*ring+j+1,
			)
		}
	}

	return m
}

func cylinderCap(m *MeshData, radius, y, height float32, sliceCount int, top bool) {
	base := uint32(len(m.Vertices))
	dTheta := 2 * math.Pi / float32(sliceCount)

	ny := float32(-1)
	if top {
		ny = 1
	}

	// Duplicate the ring so the cap gets its own normals and texture coordinates.
	for i := 0; i <= sliceCount; i++ {
		x := radius * math.Cos(float32(i)*dTheta)
		z := radius * math.Sin(float32(i)*dTheta)

		m.Vertices = append(m.Vertices, Vertex{
			Position: [3]float32{x, y, z},
			Normal:   [3]float32{0, ny, 0},
			TangentU: [3]float32{1, 0, 0},
			TexC:     [2]float32{x/height + 0.5, z/height + 0.5},
		})
	}

	m.Vertices = append(m.Vertices, Vertex{
		Position: [3]float32{0, y, 0},
		Normal:   [3]float32{0, ny, 0},
		TangentU: [3]float32{1, 0, 0},
		TexC:     [2]float32{0.5, 0.5},
	})
	center := uint32(len(m.Vertices) - 1)

	for i := uint32(0); i < uint32(sliceCount); i++ {
		if top {
			m.Indices32 = append(m.Indices32, center, base+i+1, base+i)
		} else {
			m.Indices32 = append(m.Indices32, center, base+i, base+i+1)
		}
	}
}

// Grid creates an m x n vertex grid in the XZ plane.
func Grid(width, depth float32, m, n int) MeshData {
	var out MeshData

	halfWidth, halfDepth := 0.5*width, 0.5*depth
	dx := width / float32(n-1)
	dz := depth / float32(m-1)
	du := 1 / float32(n-1)
	dv := 1 / float32(m-1)

	out.Vertices = make([]Vertex, 0, m*n)
	for i := 0; i < m; i++ {
		z := halfDepth - float32(i)*dz
		for j := 0; j < n; j++ {
			x := -halfWidth + float32(j)*dx
			out.Vertices = append(out.Vertices, Vertex{
				Position: [3]float32{x, 0, z},
				Normal:   [3]float32{0, 1, 0},
				TangentU: [3]float32{1, 0, 0},
				TexC:     [2]float32{float32(j) * du, float32(i) * dv},
			})
		}
	}

	out.Indices32 = make([]uint32, 0, (m-1)*(n-1)*6)
	nn := uint32(n)
	for i := uint32(0); i < uint32(m-1); i++ {
		for j := uint32(0); j < nn-1; j++ {
			out.Indices32 = append(out.Indices32,
				i*nn+j, i*nn+j+1, (i+1)*nn+j,
				(i+1)*nn+j, i*nn+j+1, (i+1)*nn+j+1,
			)
		}
	}

	return out
}
