package scene

import (
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/render"
	"github.com/Faultbox/towerscene/internal/engine/water"
	vmath "github.com/Faultbox/towerscene/pkg/math"
)

// WaterLevel is the height of the wave surface's rest plane.
const WaterLevel = -1

type materialDesc struct {
	name      string
	srv       int
	albedo    [4]float32
	fresnel   float32
	roughness float32
}

// TextureFiles lists the diffuse maps of the textured scene in SRV order.
func TextureFiles() []TextureRef {
	return []TextureRef{
		{Name: "bricksTex", File: "bricks.dds"},
		{Name: "roofTex", File: "rooftile.dds"},
		{Name: "lanternTex", File: "lantern.dds"},
		{Name: "tileTex", File: "tile.dds"},
		{Name: "waterTex", File: "water1.dds"},
	}
}

func materials() []materialDesc {
	return []materialDesc{
		{MatBricks, 0, White, 0.02, 0.25},
		{MatRoof, 1, White, 0.05, 0.3},
		{MatLantern, 2, White, 0.1, 0.1},
		{MatTile, 3, White, 0.02, 0.8},
		{MatWater, 4, White, 0.1, 0},
		{MatLeaves, 3, [4]float32{0.3, 0.8, 0.3, 1}, 0.01, 0.9},
		{MatTrunk, 0, [4]float32{0.65, 0.45, 0.3, 1}, 0.01, 0.9},
	}
}

// BuildTextured builds the lit, textured tower scene surrounded by a wave
// surface driven by a solver configured with wcfg.
func BuildTextured(opts Options, wcfg water.Config) (*Scene, error) {
	s := newScene()
	s.Textures = TextureFiles()

	geo, err := BuildShapeGeometry(mesh.FormatLit)
	if err != nil {
		return nil, err
	}
	shapes, err := s.Geometries.Add(ShapeGeo, geo)
	if err != nil {
		return nil, err
	}

	for i, md := range materials() {
		m := render.NewMaterial(md.name, i, md.srv)
		m.SetDiffuseAlbedo(md.albedo)
		m.SetFresnelR0([3]float32{md.fresnel, md.fresnel, md.fresnel})
		m.SetRoughness(md.roughness)
		if _, err := s.Materials.Add(md.name, m); err != nil {
			return nil, err
		}
	}

	add := func(sub string, world vmath.Mat4, mat string) error {
		sm, err := geo.Submesh(sub)
		if err != nil {
			return err
		}
		mh, err := s.Materials.Lookup(mat)
		if err != nil {
			return err
		}
		desc := render.ItemDesc{World: world, Geo: shapes, Mat: mh, Submesh: sm}
		if sub == SubGrid {
			desc.TexTransform = vmath.Scale(8, 8, 1)
		}
		_, err = s.Items.Add(desc)
		return err
	}
	if err := composeTower(opts, add); err != nil {
		return nil, fmt.Errorf("compose textured: %w", err)
	}

	if err := s.addWaves(wcfg); err != nil {
		return nil, err
	}

	s.AmbientLight = [4]float32{0.25, 0.25, 0.35, 1}
	s.Lights = []render.Light{
		{Direction: [3]float32{0.57735, -0.57735, 0.57735}, Strength: [3]float32{0.9, 0.9, 0.9}},
		{Direction: [3]float32{-0.57735, -0.57735, 0.57735}, Strength: [3]float32{0.5, 0.5, 0.5}},
		{Direction: [3]float32{0, -0.707, -0.707}, Strength: [3]float32{0.2, 0.2, 0.2}},
	}
	s.FogColor = [4]float32{0.7, 0.7, 0.7, 1}
	s.FogStart = 50
	s.FogRange = 300
	s.ClearColor = s.FogColor
	return s, nil
}

func (s *Scene) addWaves(cfg water.Config) error {
	w, err := water.New(cfg)
	if err != nil {
		return fmt.Errorf("create waves: %w", err)
	}

	geo := mesh.NewDynamic(WaterGeo, SubGrid, mesh.LitVertexStride, w.VertexCount(), w.Indices())
	gh, err := s.Geometries.Add(WaterGeo, geo)
	if err != nil {
		return err
	}
	mh, err := s.Materials.Lookup(MatWater)
	if err != nil {
		return err
	}
	sm, err := geo.Submesh(SubGrid)
	if err != nil {
		return err
	}

	item, err := s.Items.Add(render.ItemDesc{
		World:        vmath.Translate(0, WaterLevel, 0),
		TexTransform: vmath.Scale(5, 5, 1),
		Geo:          gh,
		Mat:          mh,
		Submesh:      sm,
	})
	if err != nil {
		return err
	}

	s.Waves = w
	s.WaveItem = item
	s.WaterMaterial = mh
	return nil
}

// WaveVertex returns the lit vertex of wave grid vertex k. Texture
// coordinates span the surface once.
func WaveVertex(w *water.Waves, k int) mesh.LitVertex {
	p := w.Position(k)
	return mesh.LitVertex{
		Pos:    p,
		Normal: w.Normal(k),
		TexC: [2]float32{
			0.5 + p[0]/w.Width(),
			0.5 - p[2]/w.Depth(),
		},
	}
}
