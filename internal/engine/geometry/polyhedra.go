package geometry

import (
	"github.com/Faultbox/towerscene/pkg/math"
)

// faceted accumulates flat-shaded faces of a convex solid.
type faceted struct {
	m MeshData
	// interior is any point strictly inside the solid.
	interior math.Vec3
}

// polygon appends a convex planar face as a triangle fan. The winding is
// fixed up so the face points away from the interior point.
func (f *faceted) polygon(pts ...math.Vec3) {
	pts = append([]math.Vec3(nil), pts...)

	var centroid math.Vec3
	for _, p := range pts {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1 / float32(len(pts)))

	normal := pts[1].Sub(pts[0]).Cross(pts[2].Sub(pts[0])).Normalize()
	if normal.Dot(centroid.Sub(f.interior)) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
		normal = normal.Scale(-1)
	}

	edge := pts[1].Sub(pts[0])
	tangent := edge.Sub(normal.Scale(edge.Dot(normal))).Normalize()
	bitangent := normal.Cross(tangent)

	// Planar texture coordinates in the face's tangent frame.
	us := make([]float32, len(pts))
	vs := make([]float32, len(pts))
	minU, maxU, minV, maxV := float32(1e30), float32(-1e30), float32(1e30), float32(-1e30)
	for i, p := range pts {
		d := p.Sub(pts[0])
		us[i], vs[i] = d.Dot(tangent), -d.Dot(bitangent)
		minU, maxU = min(minU, us[i]), max(maxU, us[i])
		minV, maxV = min(minV, vs[i]), max(maxV, vs[i])
	}
	spanU, spanV := max(maxU-minU, 1e-6), max(maxV-minV, 1e-6)

	base := uint32(len(f.m.Vertices))
	for i, p := range pts {
		f.m.Vertices = append(f.m.Vertices, Vertex{
			Position: p.Array(),
			Normal:   normal.Array(),
			TangentU: tangent.Array(),
			TexC:     [2]float32{(us[i] - minU) / spanU, (vs[i] - minV) / spanV},
		})
	}
	for i := uint32(1); i+1 < uint32(len(pts)); i++ {
		f.m.Indices32 = append(f.m.Indices32, base, base+i, base+i+1)
	}
}

func (f *faceted) build(numSubdivisions int) MeshData {
	subdivideN(&f.m, numSubdivisions)
	return f.m
}

// Wedge creates a ramp: the bottom and the +Z back face are rectangles, the
// slope rises from the front bottom edge to the back top edge.
func Wedge(width, height, depth float32, numSubdivisions int) MeshData {
	w2, h2, d2 := 0.5*width, 0.5*height, 0.5*depth

	frontBottomL := math.Vec3{X: -w2, Y: -h2, Z: -d2}
	frontBottomR := math.Vec3{X: +w2, Y: -h2, Z: -d2}
	backBottomL := math.Vec3{X: -w2, Y: -h2, Z: +d2}
	backBottomR := math.Vec3{X: +w2, Y: -h2, Z: +d2}
	backTopL := math.Vec3{X: -w2, Y: +h2, Z: +d2}
	backTopR := math.Vec3{X: +w2, Y: +h2, Z: +d2}

	f := faceted{interior: math.Vec3{Y: -h2 / 3, Z: d2 / 3}}
	f.polygon(frontBottomL, backBottomL, backBottomR, frontBottomR)
	f.polygon(backBottomL, backTopL, backTopR, backBottomR)
	f.polygon(frontBottomL, frontBottomR, backTopR, backTopL)
	f.polygon(frontBottomL, backTopL, backBottomL)
	f.polygon(frontBottomR, backBottomR, backTopR)
	return f.build(numSubdivisions)
}

// Pyramid creates a square-based pyramid with its apex at +height/2.
func Pyramid(width, height, depth float32, numSubdivisions int) MeshData {
	w2, h2, d2 := 0.5*width, 0.5*height, 0.5*depth

	apex := math.Vec3{Y: h2}
	base := [4]math.Vec3{
		{X: -w2, Y: -h2, Z: -d2},
		{X: -w2, Y: -h2, Z: +d2},
		{X: +w2, Y: -h2, Z: +d2},
		{X: +w2, Y: -h2, Z: -d2},
	}

	var f faceted
	f.polygon(base[0], base[1], base[2], base[3])
	for i := range base {
		f.polygon(base[i], apex, base[(i+1)%4])
	}
	return f.build(numSubdivisions)
}

// Diamond creates two square pyramids joined at their bases on the XZ plane.
func Diamond(width, height, depth float32, numSubdivisions int) MeshData {
	w2, h2, d2 := 0.5*width, 0.5*height, 0.5*depth

	top := math.Vec3{Y: h2}
	bottom := math.Vec3{Y: -h2}
	girdle := [4]math.Vec3{
		{X: -w2, Z: -d2},
		{X: -w2, Z: +d2},
		{X: +w2, Z: +d2},
		{X: +w2, Z: -d2},
	}

	var f faceted
	for i := range girdle {
		next := girdle[(i+1)%4]
		f.polygon(girdle[i], top, next)
		f.polygon(girdle[i], next, bottom)
	}
	return f.build(numSubdivisions)
}

// TriangularPrism extrudes a triangle in the XZ plane along Y. The triangle's
// apex points toward +Z.
func TriangularPrism(width, height, depth float32, numSubdivisions int) MeshData {
	w2, d2 := 0.5*width, 0.5*depth
	return prism([]math.Vec3{
		{X: -w2, Z: -d2},
		{X: 0, Z: +d2},
		{X: +w2, Z: -d2},
	}, height, numSubdivisions)
}

// PentagonalPrism extrudes a regular pentagon inscribed in the width x depth
// ellipse along Y. One vertex points toward +Z.
func PentagonalPrism(width, height, depth float32, numSubdivisions int) MeshData {
	w2, d2 := 0.5*width, 0.5*depth
	outline := make([]math.Vec3, 5)
	for i := range outline {
		a := math.Pi/2 + float32(i)*2*math.Pi/5
		outline[i] = math.Vec3{X: w2 * math.Cos(a), Z: d2 * math.Sin(a)}
	}
	return prism(outline, height, numSubdivisions)
}

func prism(outline []math.Vec3, height float32, numSubdivisions int) MeshData {
	h2 := 0.5 * height
	n := len(outline)

	top := make([]math.Vec3, n)
	bottom := make([]math.Vec3, n)
	for i, p := range outline {
		top[i] = math.Vec3{X: p.X, Y: h2, Z: p.Z}
		bottom[i] = math.Vec3{X: p.X, Y: -h2, Z: p.Z}
	}

	var f faceted
	f.polygon(top...)
	f.polygon(bottom...)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		f.polygon(bottom[i], top[i], top[j], bottom[j])
	}
	return f.build(numSubdivisions)
}
