package glbackend

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.5-core/gl"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// maxUniformBlockSize bounds the range bound for a root CBV, which carries
// no size of its own.
const maxUniformBlockSize = 64 << 10

type execState struct {
	heaps    []*gpu.DescriptorHeap
	rs       *gpu.RootSignature
	pso      *PipelineState
	vb       gpu.VertexBufferView
	ib       gpu.IndexBufferView
	topology gpu.PrimitiveTopology
	rt       *Texture
	viewport gpu.Viewport
	scissor  gpu.Rect
}

type command func(d *Device, s *execState) error

// CommandList records closures that replay on Queue.Execute.
type CommandList struct {
	dev       *Device
	alloc     *Allocator
	pso       *PipelineState
	cmds      []command
	recording bool
	err       error
}

// Reset implements gpu.CommandList.
func (c *CommandList) Reset(alloc gpu.CommandAllocator, pso gpu.PipelineState) error {
	a, ok := alloc.(*Allocator)
	if !ok {
		return fmt.Errorf("reset command list: foreign allocator %T", alloc)
	}
	c.alloc, c.cmds, c.recording, c.err = a, c.cmds[:0], true, nil
	c.pso = nil
	if pso != nil {
		c.pso = pso.(*PipelineState)
	}
	return nil
}

// Close implements gpu.CommandList and reports the first recording error.
func (c *CommandList) Close() error {
	if !c.recording {
		return gpu.ErrNotRecording
	}
	c.recording = false
	return c.err
}

func (c *CommandList) record(cmd command) {
	if !c.recording {
		if c.err == nil {
			c.err = gpu.ErrNotRecording
		}
		return
	}
	c.cmds = append(c.cmds, cmd)
}

func (c *CommandList) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func stateOf(r gpu.Resource) *gpu.ResourceState {
	switch v := r.(type) {
	case *Buffer:
		return &v.state
	case *Texture:
		return &v.state
	}
	return nil
}

func (c *CommandList) ResourceBarrier(barriers ...gpu.Barrier) {
	for _, b := range barriers {
		c.record(func(_ *Device, _ *execState) error {
			st := stateOf(b.Resource)
			if st == nil {
				return fmt.Errorf("barrier on foreign resource %T", b.Resource)
			}
			if *st != b.Before {
				return fmt.Errorf("barrier %s->%s on resource in %s: %w", b.Before, b.After, *st, gpu.ErrInvalidState)
			}
			*st = b.After
			return nil
		})
	}
}

func (c *CommandList) CopyBuffer(dst gpu.Buffer, dstOffset uint64, src gpu.Buffer, srcOffset, size uint64) {
	d, okd := dst.(*Buffer)
	s, oks := src.(*Buffer)
	if !okd || !oks {
		c.fail(errors.New("copy buffer: foreign buffer"))
		return
	}
	c.record(func(_ *Device, _ *execState) error {
		if d.state != gpu.StateCopyDest {
			return fmt.Errorf("copy into buffer in %s: %w", d.state, gpu.ErrInvalidState)
		}
		if srcOffset+size > s.size || dstOffset+size > d.size {
			return fmt.Errorf("copy %d bytes: %w", size, gpu.ErrOutOfRange)
		}
		gl.CopyNamedBufferSubData(s.name, d.name, int(srcOffset), int(dstOffset), int(size))
		return nil
	})
}

func (c *CommandList) CopyBufferToTexture(dst gpu.Texture, src gpu.Buffer, subresources []gpu.Subresource) {
	t, okt := dst.(*Texture)
	s, oks := src.(*Buffer)
	if !okt || !oks {
		c.fail(errors.New("copy to texture: foreign resource"))
		return
	}
	c.record(func(_ *Device, _ *execState) error {
		if t.state != gpu.StateCopyDest {
			return fmt.Errorf("copy into texture in %s: %w", t.state, gpu.ErrInvalidState)
		}
		_, format, err := glTexelFormat(t.desc.Format)
		if err != nil {
			return err
		}
		gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, s.name)
		defer gl.BindBuffer(gl.PIXEL_UNPACK_BUFFER, 0)
		defer gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
		for level, sub := range subresources {
			if sub.Offset+sub.Size > s.size {
				return fmt.Errorf("copy mip %d: %w", level, gpu.ErrOutOfRange)
			}
			gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(sub.RowPitch/t.desc.Format.Size()))
			gl.TextureSubImage2D(t.name, int32(level), 0, 0, int32(sub.Width), int32(sub.Height),
				format, gl.UNSIGNED_BYTE, gl.PtrOffset(int(sub.Offset)))
		}
		return nil
	})
}

func (c *CommandList) SetViewport(vp gpu.Viewport) {
	c.record(func(_ *Device, s *execState) error {
		s.viewport = vp
		return nil
	})
}

func (c *CommandList) SetScissor(r gpu.Rect) {
	c.record(func(_ *Device, s *execState) error {
		s.scissor = r
		return nil
	})
}

// clearable returns the framebuffer of a swap chain attachment and checks
// its state.
func clearable(t gpu.Texture, want gpu.ResourceState) (uint32, error) {
	tex, ok := t.(*Texture)
	if !ok {
		return 0, fmt.Errorf("clear: foreign texture %T", t)
	}
	if tex.state != want {
		return 0, fmt.Errorf("clear target in %s: %w", tex.state, gpu.ErrInvalidState)
	}
	return tex.fbo()
}

func (c *CommandList) ClearRenderTarget(rt gpu.Texture, color [4]float32) {
	c.record(func(_ *Device, _ *execState) error {
		fbo, err := clearable(rt, gpu.StateRenderTarget)
		if err != nil {
			return err
		}
		gl.Disable(gl.SCISSOR_TEST)
		gl.ClearNamedFramebufferfv(fbo, gl.COLOR, 0, &color[0])
		gl.Enable(gl.SCISSOR_TEST)
		return nil
	})
}

func (c *CommandList) ClearDepthStencil(ds gpu.Texture, depth float32, stencil uint8) {
	c.record(func(_ *Device, _ *execState) error {
		fbo, err := clearable(ds, gpu.StateDepthWrite)
		if err != nil {
			return err
		}
		gl.Disable(gl.SCISSOR_TEST)
		gl.DepthMask(true)
		gl.ClearNamedFramebufferfi(fbo, gl.DEPTH_STENCIL, 0, depth, int32(stencil))
		gl.Enable(gl.SCISSOR_TEST)
		return nil
	})
}

func (c *CommandList) SetRenderTargets(rt, ds gpu.Texture) {
	c.record(func(_ *Device, s *execState) error {
		tex, ok := rt.(*Texture)
		if !ok || tex.sc == nil || tex.buffer < 0 {
			return errors.New("set render targets: not a back buffer")
		}
		fbo, err := tex.fbo()
		if err != nil {
			return err
		}
		gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
		s.rt = tex
		return nil
	})
}

func (c *CommandList) SetDescriptorHeaps(heaps ...*gpu.DescriptorHeap) {
	heaps = append([]*gpu.DescriptorHeap(nil), heaps...)
	c.record(func(_ *Device, s *execState) error {
		s.heaps = heaps
		return nil
	})
}

func (c *CommandList) SetGraphicsRootSignature(rs *gpu.RootSignature) {
	c.record(func(_ *Device, s *execState) error {
		s.rs = rs
		return nil
	})
}

func (c *CommandList) SetPipelineState(pso gpu.PipelineState) {
	p, ok := pso.(*PipelineState)
	if !ok {
		c.fail(fmt.Errorf("set pipeline state: foreign pipeline %T", pso))
		return
	}
	c.record(func(_ *Device, s *execState) error {
		s.pso = p
		p.bind()
		return nil
	})
}

// SetGraphicsRootDescriptorTable binds every descriptor of the table: CBVs
// to uniform block bindings and SRVs to texture units, numbered by register.
func (c *CommandList) SetGraphicsRootDescriptorTable(slot uint32, base gpu.GPUDescriptorHandle) {
	c.record(func(_ *Device, s *execState) error {
		if s.rs == nil {
			return errors.New("set table: no root signature")
		}
		param, err := s.rs.Parameter(slot)
		if err != nil {
			return err
		}
		if param.Type != gpu.ParamDescriptorTable {
			return fmt.Errorf("root parameter %d is not a descriptor table", slot)
		}
		heap, first, err := gpu.FindHeap(s.heaps, base)
		if err != nil {
			return err
		}

		i := first
		for _, r := range param.Ranges {
			for k := uint32(0); k < r.NumDescriptors; k++ {
				d, err := heap.Descriptor(i)
				if err != nil {
					return err
				}
				if err := bindDescriptor(r, r.BaseRegister+k, d); err != nil {
					return fmt.Errorf("root parameter %d descriptor %d: %w", slot, i, err)
				}
				i++
			}
		}
		return nil
	})
}

func bindDescriptor(r gpu.DescriptorRange, reg uint32, d gpu.Descriptor) error {
	switch {
	case r.Type == gpu.RangeCBV && d.Kind == gpu.DescriptorCBV:
		gl.BindBufferRange(gl.UNIFORM_BUFFER, reg, d.CBV.Location.BufferID(), int(d.CBV.Location.Offset()), int(d.CBV.Size))
	case r.Type == gpu.RangeSRV && d.Kind == gpu.DescriptorSRV:
		tex, ok := d.Texture.(*Texture)
		if !ok {
			return fmt.Errorf("foreign texture %T", d.Texture)
		}
		gl.BindTextureUnit(reg, tex.name)
	default:
		return fmt.Errorf("range type %d holds descriptor kind %d", r.Type, d.Kind)
	}
	return nil
}

func (c *CommandList) SetGraphicsRootConstantBufferView(slot uint32, location gpu.Address) {
	c.record(func(d *Device, s *execState) error {
		if s.rs == nil {
			return errors.New("set root CBV: no root signature")
		}
		param, err := s.rs.Parameter(slot)
		if err != nil {
			return err
		}
		if param.Type != gpu.ParamCBV {
			return fmt.Errorf("root parameter %d is not a root CBV", slot)
		}
		if location.Offset()%gpu.MinConstantBufferAlignment != 0 {
			return fmt.Errorf("root CBV offset %d misaligned", location.Offset())
		}
		buf, err := d.buffer(location)
		if err != nil {
			return err
		}
		size := min(buf.size-location.Offset(), maxUniformBlockSize)
		gl.BindBufferRange(gl.UNIFORM_BUFFER, param.Register, buf.name, int(location.Offset()), int(size))
		return nil
	})
}

func (c *CommandList) SetVertexBuffers(_ uint32, views ...gpu.VertexBufferView) {
	if len(views) == 0 {
		return
	}
	v := views[0]
	c.record(func(_ *Device, s *execState) error {
		s.vb = v
		return nil
	})
}

func (c *CommandList) SetIndexBuffer(view gpu.IndexBufferView) {
	c.record(func(_ *Device, s *execState) error {
		s.ib = view
		return nil
	})
}

func (c *CommandList) SetPrimitiveTopology(t gpu.PrimitiveTopology) {
	c.record(func(_ *Device, s *execState) error {
		s.topology = t
		return nil
	})
}

func glTopology(t gpu.PrimitiveTopology) (uint32, error) {
	switch t {
	case gpu.TopologyTriangleList:
		return gl.TRIANGLES, nil
	case gpu.TopologyLineList:
		return gl.LINES, nil
	}
	return 0, errors.New("draw: no primitive topology")
}

func glIndexType(f gpu.Format) (uint32, error) {
	switch f {
	case gpu.FormatR16Uint:
		return gl.UNSIGNED_SHORT, nil
	case gpu.FormatR32Uint:
		return gl.UNSIGNED_INT, nil
	}
	return 0, fmt.Errorf("draw: index format %d", f)
}

// applyRaster converts the top-left viewport and scissor to GL's
// bottom-left window coordinates of the bound render target.
func (s *execState) applyRaster() {
	h := float32(s.rt.desc.Height)
	vp := s.viewport
	gl.ViewportIndexedf(0, vp.X, h-vp.Y-vp.Height, vp.Width, vp.Height)
	gl.DepthRangef(vp.MinDepth, vp.MaxDepth)

	r := s.scissor
	gl.Scissor(r.Left, int32(s.rt.desc.Height)-r.Bottom, r.Right-r.Left, r.Bottom-r.Top)
}

func (c *CommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	c.record(func(_ *Device, s *execState) error {
		switch {
		case s.pso == nil:
			return errors.New("draw: no pipeline state")
		case s.rs == nil:
			return errors.New("draw: no root signature")
		case s.rt == nil:
			return errors.New("draw: no render target")
		}
		mode, err := glTopology(s.topology)
		if err != nil {
			return err
		}
		indexType, err := glIndexType(s.ib.Format)
		if err != nil {
			return err
		}
		size := s.ib.Format.Size()
		if (startIndex+indexCount)*size > s.ib.Size {
			return fmt.Errorf("draw: indices [%d, %d) outside index buffer: %w", startIndex, startIndex+indexCount, gpu.ErrOutOfRange)
		}

		s.applyRaster()
		gl.VertexArrayVertexBuffer(s.pso.vao, 0, s.vb.Location.BufferID(), int(s.vb.Location.Offset()), int32(s.vb.Stride))
		gl.VertexArrayElementBuffer(s.pso.vao, s.ib.Location.BufferID())

		offset := s.ib.Location.Offset() + uint64(startIndex*size)
		gl.DrawElementsInstancedBaseVertexBaseInstance(mode, int32(indexCount), indexType,
			gl.PtrOffset(int(offset)), int32(instanceCount), baseVertex, startInstance)
		return nil
	})
}

// Queue replays command lists on the context thread.
type Queue struct {
	dev     *Device
	pending []*Allocator
}

// Execute implements gpu.Queue.
func (q *Queue) Execute(lists ...gpu.CommandList) error {
	for _, l := range lists {
		cl, ok := l.(*CommandList)
		if !ok {
			return fmt.Errorf("execute: foreign command list %T", l)
		}
		if cl.recording {
			return errors.New("execute: command list not closed")
		}
		s := &execState{}
		if cl.pso != nil {
			s.pso = cl.pso
			cl.pso.bind()
		}
		for _, cmd := range cl.cmds {
			if err := cmd(q.dev, s); err != nil {
				return fmt.Errorf("execute: %w", err)
			}
		}
		if err := glError("Execute"); err != nil {
			return err
		}
		cl.alloc.unsealed = true
		q.pending = append(q.pending, cl.alloc)
	}
	return nil
}

// Signal implements gpu.Queue.
func (q *Queue) Signal(f gpu.Fence, v uint64) error {
	fence, ok := f.(*Fence)
	if !ok {
		return fmt.Errorf("signal: foreign fence %T", f)
	}
	fence.signal(v)
	for _, a := range q.pending {
		a.fence, a.value, a.unsealed = fence, v, false
	}
	q.pending = q.pending[:0]
	return glError("Signal")
}
