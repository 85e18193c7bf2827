// Package scene composes the stores and render items of the tower scene: a
// vertex-colored variant bound through descriptor tables and a textured,
// lit variant with materials and a wave-driven water surface.
package scene

import (
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/geometry"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/render"
	"github.com/Faultbox/towerscene/internal/engine/store"
	"github.com/Faultbox/towerscene/internal/engine/water"
	vmath "github.com/Faultbox/towerscene/pkg/math"
)

// Geometry and submesh names.
const (
	ShapeGeo = "shapeGeo"
	WaterGeo = "waterGeo"

	SubBox             = "box"
	SubGrid            = "grid"
	SubSphere          = "sphere"
	SubCylinder        = "cylinder"
	SubCone            = "cone"
	SubWedge           = "wedge"
	SubPyramid         = "pyramid"
	SubDiamond         = "diamond"
	SubTriangularPrism = "triangularprism"
	SubPentagonalPrism = "pentagonalprism"
)

// Options tweaks scene composition.
type Options struct {
	// Seed drives TreeJitter. The same seed always yields the same scene.
	Seed uint64
	// TreeJitter is the largest random offset, in world units, applied to
	// each tree along x and z. Zero places trees on the exact grid.
	TreeJitter float32
}

// TextureRef names a texture file. Its index in Scene.Textures is the SRV
// heap slot materials refer to.
type TextureRef struct {
	Name string
	File string
}

// Scene holds everything the renderer draws.
type Scene struct {
	Geometries *store.Store[mesh.Geometry]
	Materials  *store.Store[render.Material]
	Items      *render.List

	// Textures lists the files to load, in SRV heap order.
	Textures []TextureRef

	// Waves, WaveItem and WaterMaterial are set by the textured scene.
	Waves         *water.Waves
	WaveItem      *render.Item
	WaterMaterial store.Handle[render.Material]

	ClearColor   [4]float32
	AmbientLight [4]float32
	Lights       []render.Light
	FogColor     [4]float32
	FogStart     float32
	FogRange     float32
}

// Submeshes returns the submesh names the shapes geometry registers.
func Submeshes() []string {
	return []string{
		SubBox, SubGrid, SubSphere, SubCylinder, SubCone,
		SubWedge, SubPyramid, SubDiamond, SubTriangularPrism, SubPentagonalPrism,
	}
}

// BuildShapeGeometry generates the ten shapes and concatenates them in
// format. Colors are only encoded by mesh.FormatColor.
func BuildShapeGeometry(format mesh.VertexFormat) (*mesh.Geometry, error) {
	b := mesh.NewBuilder(ShapeGeo, format).
		Add(SubBox, geometry.Box(1.5, 0.5, 1.5, 3), Tan).
		Add(SubGrid, geometry.Grid(20, 30, 60, 40), ForestGreen).
		Add(SubSphere, geometry.Sphere(0.5, 20, 20), Crimson).
		Add(SubCylinder, geometry.Cylinder(0.5, 0.3, 3, 20, 20), SaddleBrown).
		Add(SubCone, geometry.Cone(0.5, 3, 20, 20), Green).
		Add(SubWedge, geometry.Wedge(1.5, 1.5, 1.5, 3), DimGray).
		Add(SubPyramid, geometry.Pyramid(1.5, 1.5, 1.5, 3), SlateGray).
		Add(SubDiamond, geometry.Diamond(1.5, 1.5, 1.5, 3), Yellow).
		Add(SubTriangularPrism, geometry.TriangularPrism(1.5, 1.5, 1.5, 3), Gray).
		Add(SubPentagonalPrism, geometry.PentagonalPrism(1.5, 1.5, 1.5, 3), DarkRed)

	g, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build shape geometry: %w", err)
	}
	return g, nil
}

func newScene() *Scene {
	return &Scene{
		Geometries: store.New[mesh.Geometry](),
		Materials:  store.New[render.Material](),
		Items:      render.NewList(),
		ClearColor: LightSteelBlue,
	}
}

// BuildShapes builds the vertex-colored tower scene.
func BuildShapes(opts Options) (*Scene, error) {
	s := newScene()

	geo, err := BuildShapeGeometry(mesh.FormatColor)
	if err != nil {
		return nil, err
	}
	h, err := s.Geometries.Add(ShapeGeo, geo)
	if err != nil {
		return nil, err
	}

	add := func(sub string, world vmath.Mat4, _ string) error {
		sm, err := geo.Submesh(sub)
		if err != nil {
			return err
		}
		_, err = s.Items.Add(render.ItemDesc{World: world, Geo: h, Submesh: sm})
		return err
	}
	if err := composeTower(opts, add); err != nil {
		return nil, fmt.Errorf("compose shapes: %w", err)
	}
	return s, nil
}

// Release frees every GPU buffer the scene's geometries own.
func (s *Scene) Release() {
	for _, g := range s.Geometries.All() {
		g.Release()
	}
}
