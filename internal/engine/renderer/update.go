package renderer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/engine/camera"
	"github.com/Faultbox/towerscene/internal/engine/frame"
	"github.com/Faultbox/towerscene/internal/engine/input"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/render"
	"github.com/Faultbox/towerscene/internal/engine/scene"
	"github.com/Faultbox/towerscene/internal/engine/timer"
	"github.com/Faultbox/towerscene/pkg/encoding"
	vmath "github.com/Faultbox/towerscene/pkg/math"
)

// Water texture scroll speed in texture units per second.
const (
	waterScrollU = 0.1
	waterScrollV = 0.02
)

// Update applies input, advances the ring and rewrites the current slot's
// stale constants, the pass constants and the wave vertices.
func (r *Renderer) Update(t timer.Snapshot, in input.State) error {
	if r.caps.HasWireframeToggle {
		r.wireframe = in.Wireframe
	}
	r.cam.HandleDrag(in.OrbitDX, in.OrbitDY)
	r.cam.HandleZoom(in.ZoomDX, in.ZoomDY)

	res, err := r.ring.Advance()
	if err != nil {
		return err
	}

	if r.scene != nil {
		if _, err := render.UpdateObjectCBs(res, r.scene.Items.All()); err != nil {
			return fmt.Errorf("update object constants: %w", err)
		}
	}
	if r.caps.HasMaterials {
		if _, err := render.UpdateMaterialCBs(res, r.scene.Materials); err != nil {
			return fmt.Errorf("update material constants: %w", err)
		}
		r.scrollWater(t.Delta)
	}

	r.updatePass(t)
	if err := render.UpdatePassCB(res, &r.pass); err != nil {
		return fmt.Errorf("update pass constants: %w", err)
	}

	if r.caps.HasWaves {
		if err := r.updateWaves(res, t); err != nil {
			return err
		}
	}
	return nil
}

// scrollWater slides the water material's texture transform.
func (r *Renderer) scrollWater(dt float32) {
	m := r.scene.Materials.Get(r.scene.WaterMaterial)
	tf := m.MatTransform()
	tf[12] = vmath.Fract(tf[12] + waterScrollU*dt)
	tf[13] = vmath.Fract(tf[13] + waterScrollV*dt)
	m.SetMatTransform(tf)
}

func (r *Renderer) updatePass(t timer.Snapshot) {
	w, h := r.dev.SwapChain().Size()
	aspect := float32(w) / float32(max(h, 1))

	p := &r.pass
	p.View = r.cam.ViewMatrix()
	p.Proj = r.cam.ProjMatrix(aspect)
	p.ViewProj = p.Proj.Mul(p.View)
	p.InvView = p.View.Inverse()
	p.InvProj = p.Proj.Inverse()
	p.InvViewProj = p.ViewProj.Inverse()

	p.EyePosW = r.cam.Position().Array()
	p.RenderTargetSize = [2]float32{float32(w), float32(h)}
	p.InvRenderTargetSize = [2]float32{1 / float32(max(w, 1)), 1 / float32(max(h, 1))}
	p.NearZ = camera.NearZ
	p.FarZ = camera.FarZ
	p.TotalTime = t.Total
	p.DeltaTime = t.Delta

	if s := r.scene; s != nil && r.caps.HasMaterials {
		p.AmbientLight = s.AmbientLight
		p.FogColor = s.FogColor
		p.FogStart = s.FogStart
		p.FogRange = s.FogRange
		for i := range p.Lights {
			if i < len(s.Lights) {
				p.Lights[i] = s.Lights[i]
			} else {
				p.Lights[i] = render.DefaultLight()
			}
		}
	}
}

// updateWaves disturbs a random cell at least four rows and columns from the
// edge every DisturbInterval, steps the solver and rewrites the slot's wave
// vertices.
func (r *Renderer) updateWaves(res *frame.Resource, t timer.Snapshot) error {
	w := r.scene.Waves

	if iv := r.cfg.DisturbInterval; iv > 0 && w.Rows() > 8 && w.Cols() > 8 && t.Total-r.lastDisturb >= iv {
		r.lastDisturb += iv
		i := 4 + r.rng.IntN(w.Rows()-8)
		j := 4 + r.rng.IntN(w.Cols()-8)
		mag := 0.2 + 0.3*r.rng.Float32()
		if err := w.Disturb(i, j, mag); err != nil {
			return fmt.Errorf("disturb waves: %w", err)
		}
		r.log.Debug("wave disturbed", zap.Int("row", i), zap.Int("col", j), zap.Float32("magnitude", mag))
	}

	w.Update(t.Delta)

	buf := encoding.NewWriter(mesh.LitVertexStride)
	for k := 0; k < w.VertexCount(); k++ {
		buf.Reset()
		mesh.EncodeLit(buf, scene.WaveVertex(w, k))
		if err := res.WriteWaveVertex(k, buf.Bytes()); err != nil {
			return err
		}
	}

	geo := r.scene.Geometries.Get(r.scene.WaveItem.Geo)
	geo.SetVertexBuffer(res.WavesVB.Resource())
	return nil
}

// Disturb adds a disturbance to the wave surface of the textured variant.
func (r *Renderer) Disturb(i, j int, magnitude float32) error {
	if !r.caps.HasWaves {
		return fmt.Errorf("disturb: variant %s has no waves", r.cfg.Variant)
	}
	return r.scene.Waves.Disturb(i, j, magnitude)
}
