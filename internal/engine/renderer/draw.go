package renderer

import (
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/descriptor"
	"github.com/Faultbox/towerscene/internal/engine/frame"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/pipeline"
	"github.com/Faultbox/towerscene/internal/engine/render"
	"github.com/Faultbox/towerscene/internal/engine/scene"
	"github.com/Faultbox/towerscene/internal/logger"
)

// Draw records the current slot's command list, executes it, presents and
// stamps the slot with the next fence value.
func (r *Renderer) Draw() error {
	res := r.ring.Current()
	q := r.dev.Queue()
	sc := r.dev.SwapChain()

	var pso gpu.PipelineState
	if r.psos != nil {
		name := pipeline.Opaque
		if r.wireframe {
			name = pipeline.OpaqueWireframe
		}
		var err error
		if pso, err = r.psos.Get(name); err != nil {
			return err
		}
	}
	if err := r.cmd.Reset(res.CmdListAlloc, pso); err != nil {
		return fmt.Errorf("reset command list: %w", err)
	}

	w, h := sc.Size()
	r.cmd.SetViewport(gpu.Viewport{Width: float32(w), Height: float32(h), MaxDepth: 1})
	r.cmd.SetScissor(gpu.Rect{Right: int32(w), Bottom: int32(h)})

	bb, ds := sc.CurrentBackBuffer(), sc.DepthStencil()
	r.cmd.ResourceBarrier(gpu.Transition(bb, gpu.StatePresent, gpu.StateRenderTarget))
	r.cmd.ClearRenderTarget(bb, r.clearColor())
	r.cmd.ClearDepthStencil(ds, 1, 0)
	r.cmd.SetRenderTargets(bb, ds)

	if r.scene != nil {
		if err := r.drawScene(res); err != nil {
			return err
		}
	}

	r.cmd.ResourceBarrier(gpu.Transition(bb, gpu.StateRenderTarget, gpu.StatePresent))
	if err := r.cmd.Close(); err != nil {
		return fmt.Errorf("close command list: %w", err)
	}
	if err := q.Execute(r.cmd); err != nil {
		return fmt.Errorf("execute frame: %w", err)
	}

	interval := 0
	if r.cfg.VSync {
		interval = 1
	}
	if err := sc.Present(interval); err != nil {
		return fmt.Errorf("present: %w", err)
	}

	fence, err := r.ring.Submit(q)
	if err != nil {
		return err
	}
	r.frames++
	r.log.Debug("frame submitted",
		logger.Frame(r.frames),
		logger.Slot(r.ring.CurrentIndex()),
		logger.Fence(fence))
	return nil
}

func (r *Renderer) drawScene(res *frame.Resource) error {
	items := r.scene.Items.Layer(render.LayerOpaque)

	if r.caps.HasTextures {
		r.cmd.SetDescriptorHeaps(r.srvHeap)
		r.cmd.SetGraphicsRootSignature(r.psos.RootSignature())
		r.cmd.SetGraphicsRootConstantBufferView(pipeline.TexturedPassParam, res.PassCB.Address(0))
		return render.DrawItems(r.cmd, r.scene.Geometries, items, render.RootBinder{
			ObjectCB:   res.ObjectCB,
			MaterialCB: res.MaterialCB,
			Materials:  r.scene.Materials,
			SRVHeap:    r.srvHeap,
		})
	}

	slot := r.ring.CurrentIndex()
	r.cmd.SetDescriptorHeaps(r.cbvHeap)
	r.cmd.SetGraphicsRootSignature(r.psos.RootSignature())
	r.cmd.SetGraphicsRootDescriptorTable(pipeline.TablesPassParam,
		descriptor.TableStart(r.cbvHeap, r.cbv.PassIndex(slot)))
	return render.DrawItems(r.cmd, r.scene.Geometries, items, render.TableBinder{
		Heap:   r.cbvHeap,
		Layout: r.cbv,
		Frame:  slot,
	})
}

func (r *Renderer) clearColor() [4]float32 {
	if r.scene == nil {
		return scene.LightSteelBlue
	}
	return r.scene.ClearColor
}
