package gputest

import (
	"errors"
	"fmt"
	"maps"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// DrawCall is the pipeline state captured at a DrawIndexedInstanced.
type DrawCall struct {
	PSO           gpu.PipelineState
	RootSignature *gpu.RootSignature
	Tables        map[uint32]gpu.GPUDescriptorHandle
	CBVs          map[uint32]gpu.Address
	VertexBuffer  gpu.VertexBufferView
	IndexBuffer   gpu.IndexBufferView
	Topology      gpu.PrimitiveTopology
	IndexCount    uint32
	InstanceCount uint32
	StartIndex    uint32
	BaseVertex    int32
	// Frame is the number of presents that preceded the draw.
	Frame int
}

// ClearCall records a render target clear.
type ClearCall struct {
	Target gpu.Texture
	Color  [4]float32
	Frame  int
}

// PresentCall records a Present.
type PresentCall struct {
	SyncInterval int
	Color        [4]float32
}

type execState struct {
	heaps    []*gpu.DescriptorHeap
	rs       *gpu.RootSignature
	pso      gpu.PipelineState
	tables   map[uint32]gpu.GPUDescriptorHandle
	cbvs     map[uint32]gpu.Address
	vb       gpu.VertexBufferView
	ib       gpu.IndexBufferView
	topology gpu.PrimitiveTopology
	rt, ds   gpu.Texture
}

type command func(d *Device, s *execState) error

// CommandList records closures that run on Queue.Execute.
type CommandList struct {
	dev       *Device
	alloc     *Allocator
	pso       gpu.PipelineState
	recording bool
	err       error
	cmds      []command
}

func (c *CommandList) open(alloc *Allocator, pso gpu.PipelineState) {
	c.alloc = alloc
	c.pso = pso
	c.recording = true
	c.err = nil
	c.cmds = c.cmds[:0]
}

// Reset implements gpu.CommandList.
func (c *CommandList) Reset(alloc gpu.CommandAllocator, pso gpu.PipelineState) error {
	if c.recording {
		return errors.New("reset command list: still recording")
	}
	a, ok := alloc.(*Allocator)
	if !ok {
		return fmt.Errorf("reset command list: foreign allocator %T", alloc)
	}
	c.open(a, pso)
	return nil
}

// Close implements gpu.CommandList.
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
	bs := append([]gpu.Barrier(nil), barriers...)
	c.record(func(_ *Device, _ *execState) error {
		for _, b := range bs {
			st := stateOf(b.Resource)
			if st == nil {
				return fmt.Errorf("barrier on foreign resource %T", b.Resource)
			}
			if *st != b.Before {
				return fmt.Errorf("barrier %s->%s on resource in %s: %w", b.Before, b.After, *st, gpu.ErrInvalidState)
			}
			*st = b.After
		}
		return nil
	})
}

func (c *CommandList) CopyBuffer(dst gpu.Buffer, dstOffset uint64, src gpu.Buffer, srcOffset, size uint64) {
	c.record(func(_ *Device, _ *execState) error {
		d, s := dst.(*Buffer), src.(*Buffer)
		if d.state != gpu.StateCopyDest {
			return fmt.Errorf("copy into buffer in %s: %w", d.state, gpu.ErrInvalidState)
		}
		if dstOffset+size > uint64(len(d.data)) || srcOffset+size > uint64(len(s.data)) {
			return fmt.Errorf("copy %d bytes: %w", size, gpu.ErrOutOfRange)
		}
		copy(d.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
		return nil
	})
}

func (c *CommandList) CopyBufferToTexture(dst gpu.Texture, src gpu.Buffer, subresources []gpu.Subresource) {
	subs := append([]gpu.Subresource(nil), subresources...)
	c.record(func(_ *Device, _ *execState) error {
		t, s := dst.(*Texture), src.(*Buffer)
		if t.state != gpu.StateCopyDest {
			return fmt.Errorf("copy into texture in %s: %w", t.state, gpu.ErrInvalidState)
		}
		t.data = t.data[:0]
		for _, sub := range subs {
			if sub.Offset+sub.Size > uint64(len(s.data)) {
				return fmt.Errorf("texture subresource at %d: %w", sub.Offset, gpu.ErrOutOfRange)
			}
			t.data = append(t.data, s.data[sub.Offset:sub.Offset+sub.Size]...)
		}
		return nil
	})
}

func (c *CommandList) SetViewport(gpu.Viewport) {}
func (c *CommandList) SetScissor(gpu.Rect)      {}

func (c *CommandList) ClearRenderTarget(rt gpu.Texture, color [4]float32) {
	c.record(func(d *Device, _ *execState) error {
		t := rt.(*Texture)
		if t.state != gpu.StateRenderTarget {
			return fmt.Errorf("clear render target in %s: %w", t.state, gpu.ErrInvalidState)
		}
		t.clearColor, t.cleared = color, true
		d.clears = append(d.clears, ClearCall{Target: rt, Color: color, Frame: len(d.presents)})
		return nil
	})
}

func (c *CommandList) ClearDepthStencil(ds gpu.Texture, _ float32, _ uint8) {
	c.record(func(_ *Device, _ *execState) error {
		if t := ds.(*Texture); t.state != gpu.StateDepthWrite {
			return fmt.Errorf("clear depth in %s: %w", t.state, gpu.ErrInvalidState)
		}
		return nil
	})
}

func (c *CommandList) SetRenderTargets(rt, ds gpu.Texture) {
	c.record(func(_ *Device, s *execState) error {
		if rt.State() != gpu.StateRenderTarget {
			return fmt.Errorf("bind render target in %s: %w", rt.State(), gpu.ErrInvalidState)
		}
		s.rt, s.ds = rt, ds
		return nil
	})
}

func (c *CommandList) SetDescriptorHeaps(heaps ...*gpu.DescriptorHeap) {
	hs := append([]*gpu.DescriptorHeap(nil), heaps...)
	c.record(func(_ *Device, s *execState) error {
		for _, h := range hs {
			if !h.Desc().ShaderVisible {
				return errors.New("bind descriptor heap: not shader visible")
			}
		}
		s.heaps = hs
		return nil
	})
}

func (c *CommandList) SetGraphicsRootSignature(rs *gpu.RootSignature) {
	c.record(func(_ *Device, s *execState) error {
		s.rs = rs
		s.tables = make(map[uint32]gpu.GPUDescriptorHandle)
		s.cbvs = make(map[uint32]gpu.Address)
		return nil
	})
}

func (c *CommandList) SetPipelineState(pso gpu.PipelineState) {
	c.record(func(_ *Device, s *execState) error {
		s.pso = pso
		return nil
	})
}

func (c *CommandList) SetGraphicsRootDescriptorTable(slot uint32, base gpu.GPUDescriptorHandle) {
	c.record(func(_ *Device, s *execState) error {
		if s.rs == nil {
			return errors.New("set descriptor table: no root signature")
		}
		p, err := s.rs.Parameter(slot)
		if err != nil {
			return err
		}
		if p.Type != gpu.ParamDescriptorTable {
			return fmt.Errorf("root parameter %d is not a descriptor table", slot)
		}
		if _, _, err := gpu.FindHeap(s.heaps, base); err != nil {
			return fmt.Errorf("set descriptor table %d: %w", slot, err)
		}
		s.tables[slot] = base
		return nil
	})
}

func (c *CommandList) SetGraphicsRootConstantBufferView(slot uint32, location gpu.Address) {
	c.record(func(d *Device, s *execState) error {
		if s.rs == nil {
			return errors.New("set root CBV: no root signature")
		}
		p, err := s.rs.Parameter(slot)
		if err != nil {
			return err
		}
		if p.Type != gpu.ParamCBV {
			return fmt.Errorf("root parameter %d is not a CBV", slot)
		}
		if _, ok := d.buffers[location.BufferID()]; !ok {
			return fmt.Errorf("set root CBV %d: unknown buffer %d: %w", slot, location.BufferID(), gpu.ErrOutOfRange)
		}
		if location.Offset()%gpu.MinConstantBufferAlignment != 0 {
			return fmt.Errorf("set root CBV %d: offset %d misaligned", slot, location.Offset())
		}
		s.cbvs[slot] = location
		return nil
	})
}

func (c *CommandList) SetVertexBuffers(_ uint32, views ...gpu.VertexBufferView) {
	c.record(func(_ *Device, s *execState) error {
		if len(views) > 0 {
			s.vb = views[0]
		}
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

func (c *CommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	c.record(func(d *Device, s *execState) error {
		switch {
		case s.pso == nil:
			return errors.New("draw: no pipeline state")
		case s.rs == nil:
			return errors.New("draw: no root signature")
		case s.rt == nil:
			return errors.New("draw: no render target")
		case s.topology == gpu.TopologyUndefined:
			return errors.New("draw: no primitive topology")
		}
		for i := 0; i < s.rs.NumParameters(); i++ {
			_, t := s.tables[uint32(i)]
			_, b := s.cbvs[uint32(i)]
			if !t && !b {
				return fmt.Errorf("draw: root parameter %d unbound", i)
			}
		}
		if sz := s.ib.Format.Size(); sz == 0 || (startIndex+indexCount)*sz > s.ib.Size {
			return fmt.Errorf("draw: indices [%d, %d) outside index buffer: %w", startIndex, startIndex+indexCount, gpu.ErrOutOfRange)
		}
		d.draws = append(d.draws, DrawCall{
			PSO:           s.pso,
			RootSignature: s.rs,
			Tables:        maps.Clone(s.tables),
			CBVs:          maps.Clone(s.cbvs),
			VertexBuffer:  s.vb,
			IndexBuffer:   s.ib,
			Topology:      s.topology,
			IndexCount:    indexCount,
			InstanceCount: instanceCount,
			StartIndex:    startIndex,
			BaseVertex:    baseVertex,
			Frame:         len(d.presents),
		})
		return nil
	})
}

// Queue executes command lists immediately.
type Queue struct {
	dev     *Device
	pending []*Allocator
}

// Execute implements gpu.Queue.
func (q *Queue) Execute(lists ...gpu.CommandList) error {
	if err := q.dev.check("Execute"); err != nil {
		return err
	}
	for _, l := range lists {
		cl := l.(*CommandList)
		if cl.recording {
			return errors.New("execute: command list not closed")
		}
		s := &execState{pso: cl.pso}
		for _, cmd := range cl.cmds {
			if err := cmd(q.dev, s); err != nil {
				return fmt.Errorf("execute: %w", err)
			}
		}
		cl.alloc.unsealed = true
		q.pending = append(q.pending, cl.alloc)
	}
	return nil
}

// Signal implements gpu.Queue.
func (q *Queue) Signal(f gpu.Fence, v uint64) error {
	if err := q.dev.check("Signal"); err != nil {
		return err
	}
	fence := f.(*Fence)
	fence.signal(v)
	for _, a := range q.pending {
		a.fence, a.value, a.unsealed = fence, v, false
	}
	q.pending = q.pending[:0]
	return nil
}
