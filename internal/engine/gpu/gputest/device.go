// Package gputest implements gpu.Device in memory. Command lists execute
// synchronously on Queue.Execute; fences complete immediately unless the
// device is created with ManualFences, in which case completion happens in
// Fence.Wait or through Fence.Complete.
package gputest

import (
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// DescriptorIncrement is the handle stride reported by the fake device.
const DescriptorIncrement = 32

// Options configures a fake device.
type Options struct {
	Width, Height int
	ManualFences  bool
}

// Device is an in-memory gpu.Device.
type Device struct {
	opts      Options
	nextID    uint32
	buffers   map[uint32]*Buffer
	heaps     []*gpu.DescriptorHeap
	queue     *Queue
	swapChain *SwapChain
	failures  map[string]bool

	draws    []DrawCall
	clears   []ClearCall
	presents []PresentCall
	psos     int
	closed   bool
}

// New creates a fake device with a two-buffer swap chain.
func New(opts Options) *Device {
	if opts.Width == 0 {
		opts.Width = 800
	}
	if opts.Height == 0 {
		opts.Height = 600
	}
	d := &Device{
		opts:     opts,
		buffers:  make(map[uint32]*Buffer),
		failures: make(map[string]bool),
	}
	d.queue = &Queue{dev: d}
	d.swapChain = newSwapChain(d, opts.Width, opts.Height)
	return d
}

// Fail makes the next call of op return a *gpu.Error.
func (d *Device) Fail(op string) {
	d.failures[op] = true
}

func (d *Device) check(op string) error {
	if d.closed {
		return fmt.Errorf("%s: %w", op, gpu.ErrDeviceLost)
	}
	if d.failures[op] {
		delete(d.failures, op)
		return &gpu.Error{Op: op, Code: 0x887A0005}
	}
	return nil
}

// CreateBuffer implements gpu.Device.
func (d *Device) CreateBuffer(heap gpu.HeapType, size uint64, initial gpu.ResourceState) (gpu.Buffer, error) {
	if err := d.check("CreateBuffer"); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("create buffer: zero size")
	}
	d.nextID++
	b := &Buffer{id: d.nextID, heap: heap, data: make([]byte, size), state: initial}
	d.buffers[b.id] = b
	return b, nil
}

// CreateTexture implements gpu.Device.
func (d *Device) CreateTexture(desc gpu.TextureDesc, initial gpu.ResourceState) (gpu.Texture, error) {
	if err := d.check("CreateTexture"); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("create texture: zero extent %dx%d", desc.Width, desc.Height)
	}
	return &Texture{desc: desc, state: initial}, nil
}

// CreateFence implements gpu.Device.
func (d *Device) CreateFence(initial uint64) (gpu.Fence, error) {
	if err := d.check("CreateFence"); err != nil {
		return nil, err
	}
	return &Fence{completed: initial, manual: d.opts.ManualFences}, nil
}

// CreateCommandAllocator implements gpu.Device.
func (d *Device) CreateCommandAllocator() (gpu.CommandAllocator, error) {
	if err := d.check("CreateCommandAllocator"); err != nil {
		return nil, err
	}
	return &Allocator{}, nil
}

// CreateCommandList implements gpu.Device. The list starts open.
func (d *Device) CreateCommandList(alloc gpu.CommandAllocator, pso gpu.PipelineState) (gpu.CommandList, error) {
	if err := d.check("CreateCommandList"); err != nil {
		return nil, err
	}
	cl := &CommandList{dev: d}
	cl.open(alloc.(*Allocator), pso)
	return cl, nil
}

// CreateDescriptorHeap implements gpu.Device.
func (d *Device) CreateDescriptorHeap(desc gpu.DescriptorHeapDesc) (*gpu.DescriptorHeap, error) {
	if err := d.check("CreateDescriptorHeap"); err != nil {
		return nil, err
	}
	h, err := gpu.NewDescriptorHeap(desc, DescriptorIncrement)
	if err != nil {
		return nil, err
	}
	d.heaps = append(d.heaps, h)
	return h, nil
}

// CreateRootSignature implements gpu.Device.
func (d *Device) CreateRootSignature(desc gpu.RootSignatureDesc) (*gpu.RootSignature, error) {
	if err := d.check("CreateRootSignature"); err != nil {
		return nil, err
	}
	return gpu.NewRootSignature(desc)
}

// CreateGraphicsPipelineState implements gpu.Device.
func (d *Device) CreateGraphicsPipelineState(desc gpu.PipelineStateDesc) (gpu.PipelineState, error) {
	if err := d.check("CreateGraphicsPipelineState"); err != nil {
		return nil, err
	}
	if desc.RootSignature == nil {
		return nil, fmt.Errorf("create pipeline: nil root signature")
	}
	if len(desc.VS.Source) == 0 || len(desc.PS.Source) == 0 {
		return nil, fmt.Errorf("create pipeline: missing shader source")
	}
	if len(desc.InputLayout) == 0 {
		return nil, fmt.Errorf("create pipeline: empty input layout")
	}
	for _, b := range desc.Samplers {
		if !hasSampler(desc.RootSignature, b.Sampler) {
			return nil, fmt.Errorf("create pipeline: t%d bound to missing static sampler s%d", b.Texture, b.Sampler)
		}
	}
	d.psos++
	return &PipelineState{desc: desc}, nil
}

func hasSampler(rs *gpu.RootSignature, reg uint32) bool {
	for _, s := range rs.Desc().StaticSamplers {
		if s.Register == reg {
			return true
		}
	}
	return false
}

// DescriptorIncrementSize implements gpu.Device.
func (d *Device) DescriptorIncrementSize() uint32 { return DescriptorIncrement }

// Queue implements gpu.Device.
func (d *Device) Queue() gpu.Queue { return d.queue }

// SwapChain implements gpu.Device.
func (d *Device) SwapChain() gpu.SwapChain { return d.swapChain }

// Close implements gpu.Device.
func (d *Device) Close() error {
	d.closed = true
	return nil
}

// Draws returns every draw executed so far.
func (d *Device) Draws() []DrawCall { return d.draws }

// Clears returns every render target clear executed so far.
func (d *Device) Clears() []ClearCall { return d.clears }

// Presents returns every Present call.
func (d *Device) Presents() []PresentCall { return d.presents }

// PipelineStatesCreated returns how many pipelines were compiled.
func (d *Device) PipelineStatesCreated() int { return d.psos }

// ResetLog clears the draw, clear and present logs.
func (d *Device) ResetLog() {
	d.draws = nil
	d.clears = nil
	d.presents = nil
}

// LiveBuffers returns the number of buffers not yet released.
func (d *Device) LiveBuffers() int {
	n := 0
	for _, b := range d.buffers {
		if !b.released {
			n++
		}
	}
	return n
}

// Read returns n bytes at a GPU virtual address.
func (d *Device) Read(addr gpu.Address, n int) ([]byte, error) {
	b, ok := d.buffers[addr.BufferID()]
	if !ok {
		return nil, fmt.Errorf("read: unknown buffer %d: %w", addr.BufferID(), gpu.ErrOutOfRange)
	}
	off := addr.Offset()
	if off+uint64(n) > uint64(len(b.data)) {
		return nil, fmt.Errorf("read %d bytes at %d of %d: %w", n, off, len(b.data), gpu.ErrOutOfRange)
	}
	out := make([]byte, n)
	copy(out, b.data[off:])
	return out, nil
}

// ResolveTable returns n descriptors starting at a GPU handle in any heap
// created by the device.
func (d *Device) ResolveTable(handle gpu.GPUDescriptorHandle, n int) ([]gpu.Descriptor, error) {
	h, i, err := gpu.FindHeap(d.heaps, handle)
	if err != nil {
		return nil, err
	}
	out := make([]gpu.Descriptor, 0, n)
	for k := 0; k < n; k++ {
		desc, err := h.Descriptor(i + k)
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}
