package gputest

import (
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// Buffer is a byte slice standing in for GPU memory.
type Buffer struct {
	id       uint32
	heap     gpu.HeapType
	data     []byte
	state    gpu.ResourceState
	mapped   bool
	released bool
}

func (b *Buffer) State() gpu.ResourceState { return b.state }
func (b *Buffer) Size() uint64             { return uint64(len(b.data)) }
func (b *Buffer) Heap() gpu.HeapType       { return b.heap }

func (b *Buffer) GPUVirtualAddress() gpu.Address { return gpu.MakeAddress(b.id, 0) }

// Map returns the backing slice. Only upload-heap buffers are mappable.
func (b *Buffer) Map() ([]byte, error) {
	if b.heap != gpu.HeapUpload {
		return nil, &gpu.Error{Op: "Map", Code: 0x80070057}
	}
	if b.released {
		return nil, fmt.Errorf("map released buffer %d", b.id)
	}
	b.mapped = true
	return b.data, nil
}

func (b *Buffer) Unmap() { b.mapped = false }

func (b *Buffer) Release() { b.released = true }

// Bytes exposes the contents for assertions.
func (b *Buffer) Bytes() []byte { return b.data }

// Mapped reports whether the buffer is currently mapped.
func (b *Buffer) Mapped() bool { return b.mapped }

// Released reports whether Release was called.
func (b *Buffer) Released() bool { return b.released }

// Texture is an in-memory texture.
type Texture struct {
	desc       gpu.TextureDesc
	state      gpu.ResourceState
	data       []byte
	clearColor [4]float32
	cleared    bool
	released   bool
}

func (t *Texture) State() gpu.ResourceState { return t.state }
func (t *Texture) Desc() gpu.TextureDesc    { return t.desc }
func (t *Texture) Release()                 { t.released = true }

// Bytes returns the texel data uploaded so far.
func (t *Texture) Bytes() []byte { return t.data }

// ClearColor returns the last color the texture was cleared to.
func (t *Texture) ClearColor() ([4]float32, bool) { return t.clearColor, t.cleared }

// Fence counts completed work.
type Fence struct {
	completed uint64
	pending   []uint64
	manual    bool
	waits     int
}

func (f *Fence) CompletedValue() uint64 { return f.completed }

// Wait completes pending signals up to v and counts the call when it had to block.
func (f *Fence) Wait(v uint64) error {
	if f.completed >= v {
		return nil
	}
	f.waits++
	f.Complete(v)
	if f.completed < v {
		return fmt.Errorf("wait for fence %d: never signaled (completed %d)", v, f.completed)
	}
	return nil
}

func (f *Fence) Release() {}

// Complete marks pending signals up to v as reached.
func (f *Fence) Complete(v uint64) {
	kept := f.pending[:0]
	for _, p := range f.pending {
		if p <= v {
			if p > f.completed {
				f.completed = p
			}
			continue
		}
		kept = append(kept, p)
	}
	f.pending = kept
}

// Waits returns how many Wait calls blocked.
func (f *Fence) Waits() int { return f.waits }

func (f *Fence) signal(v uint64) {
	if f.manual {
		f.pending = append(f.pending, v)
		return
	}
	if v > f.completed {
		f.completed = v
	}
}

// Allocator tracks the fence value guarding its last submission.
type Allocator struct {
	fence    *Fence
	value    uint64
	unsealed bool
	resets   int
}

// Reset fails while the last submission is still executing.
func (a *Allocator) Reset() error {
	if a.unsealed || (a.fence != nil && a.fence.CompletedValue() < a.value) {
		return gpu.ErrAllocatorInUse
	}
	a.resets++
	return nil
}

func (a *Allocator) Release() {}

// Resets returns the number of successful resets.
func (a *Allocator) Resets() int { return a.resets }

// PipelineState holds the description it was created from.
type PipelineState struct {
	desc     gpu.PipelineStateDesc
	released bool
}

func (p *PipelineState) Desc() *gpu.PipelineStateDesc { return &p.desc }
func (p *PipelineState) Release()                     { p.released = true }

// Released reports whether Release was called.
func (p *PipelineState) Released() bool { return p.released }
