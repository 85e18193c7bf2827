package glbackend

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v4.5-core/gl"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

const uploadFlags = gl.MAP_WRITE_BIT | gl.MAP_PERSISTENT_BIT | gl.MAP_COHERENT_BIT

// Buffer is an immutable-storage GL buffer. Upload-heap buffers stay mapped
// for their whole lifetime.
type Buffer struct {
	dev      *Device
	name     uint32
	size     uint64
	heap     gpu.HeapType
	state    gpu.ResourceState
	mapped   []byte
	released bool
}

func newBuffer(d *Device, heap gpu.HeapType, size uint64, initial gpu.ResourceState) (*Buffer, error) {
	if size == 0 {
		return nil, errors.New("create buffer: zero size")
	}
	b := &Buffer{dev: d, size: size, heap: heap, state: initial}
	gl.CreateBuffers(1, &b.name)

	var flags uint32
	if heap == gpu.HeapUpload {
		flags = uploadFlags
	}
	gl.NamedBufferStorage(b.name, int(size), nil, flags)
	if err := glError("NamedBufferStorage"); err != nil {
		gl.DeleteBuffers(1, &b.name)
		return nil, err
	}

	if heap == gpu.HeapUpload {
		ptr := gl.MapNamedBufferRange(b.name, 0, int(size), uploadFlags)
		if ptr == nil {
			err := glError("MapNamedBufferRange")
			gl.DeleteBuffers(1, &b.name)
			return nil, fmt.Errorf("map upload buffer: %w", err)
		}
		b.mapped = unsafe.Slice((*byte)(ptr), size)
	}
	return b, nil
}

func (b *Buffer) State() gpu.ResourceState { return b.state }
func (b *Buffer) Size() uint64             { return b.size }
func (b *Buffer) Heap() gpu.HeapType       { return b.heap }

// GPUVirtualAddress encodes the GL buffer name as the buffer id.
func (b *Buffer) GPUVirtualAddress() gpu.Address { return gpu.MakeAddress(b.name, 0) }

// Map returns the persistent mapping of an upload buffer.
func (b *Buffer) Map() ([]byte, error) {
	if b.mapped == nil {
		return nil, fmt.Errorf("map buffer %d: not an upload buffer", b.name)
	}
	return b.mapped, nil
}

// Unmap is a no-op: the mapping lives until Release.
func (b *Buffer) Unmap() {}

func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.mapped != nil {
		gl.UnmapNamedBuffer(b.name)
		b.mapped = nil
	}
	gl.DeleteBuffers(1, &b.name)
	delete(b.dev.buffers, b.name)
}

// Texture is a 2D texture, a swap chain back buffer or the swap chain depth
// buffer.
type Texture struct {
	name     uint32
	desc     gpu.TextureDesc
	state    gpu.ResourceState
	released bool

	// Swap chain attachments have sc set. buffer is the back buffer index,
	// or -1 for the depth buffer.
	sc     *SwapChain
	buffer int
}

func glTexelFormat(f gpu.Format) (internal, format uint32, err error) {
	switch f {
	case gpu.FormatR8G8B8A8Unorm:
		return gl.RGBA8, gl.RGBA, nil
	case gpu.FormatB8G8R8A8Unorm:
		return gl.RGBA8, gl.BGRA, nil
	}
	return 0, 0, fmt.Errorf("texture format %d unsupported by the GL backend", f)
}

func newTexture(desc gpu.TextureDesc, initial gpu.ResourceState) (*Texture, error) {
	internal, _, err := glTexelFormat(desc.Format)
	if err != nil {
		return nil, err
	}
	t := &Texture{desc: desc, state: initial}
	gl.CreateTextures(gl.TEXTURE_2D, 1, &t.name)
	gl.TextureStorage2D(t.name, int32(max(desc.MipLevels, 1)), internal, int32(desc.Width), int32(desc.Height))
	if err := glError("TextureStorage2D"); err != nil {
		gl.DeleteTextures(1, &t.name)
		return nil, err
	}
	return t, nil
}

func (t *Texture) State() gpu.ResourceState { return t.state }
func (t *Texture) Desc() gpu.TextureDesc    { return t.desc }

// fbo returns a framebuffer the attachment is bound to.
func (t *Texture) fbo() (uint32, error) {
	if t.sc == nil {
		return 0, fmt.Errorf("texture %d is not a swap chain attachment", t.name)
	}
	return t.sc.fbs[max(t.buffer, 0)].FBO(), nil
}

func (t *Texture) Release() {
	if t.released || t.sc != nil {
		return
	}
	t.released = true
	gl.DeleteTextures(1, &t.name)
}

type pendingSync struct {
	value uint64
	sync  uintptr
}

// Fence tracks GL sync objects inserted by Queue.Signal in value order.
type Fence struct {
	completed uint64
	pending   []pendingSync
}

func (f *Fence) signal(v uint64) {
	s := gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0)
	f.pending = append(f.pending, pendingSync{value: v, sync: s})
}

// CompletedValue polls the oldest sync objects without blocking.
func (f *Fence) CompletedValue() uint64 {
	for len(f.pending) > 0 {
		r := gl.ClientWaitSync(f.pending[0].sync, 0, 0)
		if r != gl.ALREADY_SIGNALED && r != gl.CONDITION_SATISFIED {
			break
		}
		f.pop()
	}
	return f.completed
}

// Wait blocks until the value v has been reached.
func (f *Fence) Wait(v uint64) error {
	for f.completed < v {
		if len(f.pending) == 0 {
			return fmt.Errorf("wait for fence value %d: never signaled (completed %d)", v, f.completed)
		}
		switch gl.ClientWaitSync(f.pending[0].sync, gl.SYNC_FLUSH_COMMANDS_BIT, uint64(time.Second)) {
		case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
			f.pop()
		case gl.WAIT_FAILED:
			return &gpu.Error{Op: "ClientWaitSync", Code: gl.GetError()}
		}
	}
	return nil
}

func (f *Fence) pop() {
	p := f.pending[0]
	gl.DeleteSync(p.sync)
	f.completed = p.value
	f.pending = f.pending[1:]
}

func (f *Fence) Release() {
	for _, p := range f.pending {
		gl.DeleteSync(p.sync)
	}
	f.pending = nil
}

// Allocator guards a command list's recording slot until the fence value
// that followed its last execution is reached.
type Allocator struct {
	fence    *Fence
	value    uint64
	unsealed bool
}

// Reset implements gpu.CommandAllocator.
func (a *Allocator) Reset() error {
	if a.unsealed || (a.fence != nil && a.fence.CompletedValue() < a.value) {
		return gpu.ErrAllocatorInUse
	}
	return nil
}

func (a *Allocator) Release() {}
