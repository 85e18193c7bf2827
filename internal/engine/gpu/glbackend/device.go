// Package glbackend implements gpu.Device on OpenGL 4.5 core.
//
// Command lists record closures that replay on the context thread at
// Queue.Execute. Fences are GL sync objects, upload buffers are persistently
// mapped, and the swap chain renders into offscreen framebuffers that are
// blitted to the window at Present. Clip control is set to a [0, 1] depth
// range with clockwise front faces.
package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v4.5-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/logger"
)

// descriptorIncrement is the handle stride reported to descriptor heaps.
const descriptorIncrement = 32

// Surface is the window the swap chain presents to. Its GL context must be
// current on the calling thread.
type Surface interface {
	SwapBuffers()
	SetSwapInterval(interval int) error
	DrawableSize() (width, height int)
}

// Device is a gpu.Device backed by the current GL context.
type Device struct {
	surface   Surface
	buffers   map[uint32]*Buffer
	queue     *Queue
	swapChain *SwapChain
	log       *zap.Logger
}

// New loads the GL entry points and creates the swap chain for surface.
func New(surface Surface) (*Device, error) {
	log := logger.Named("gl")
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initialize OpenGL: %w", err)
	}
	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	gl.ClipControl(gl.LOWER_LEFT, gl.ZERO_TO_ONE)
	gl.FrontFace(gl.CW)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.SCISSOR_TEST)
	if err := glError("configure context"); err != nil {
		return nil, err
	}

	d := &Device{
		surface: surface,
		buffers: make(map[uint32]*Buffer),
		log:     log,
	}
	d.queue = &Queue{dev: d}

	w, h := surface.DrawableSize()
	sc, err := newSwapChain(d, w, h)
	if err != nil {
		return nil, err
	}
	d.swapChain = sc
	return d, nil
}

// glError converts a pending GL error into a *gpu.Error.
func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		// Drain the remaining flags so the next check starts clean.
		for gl.GetError() != gl.NO_ERROR {
		}
		return &gpu.Error{Op: op, Code: code}
	}
	return nil
}

// CreateBuffer implements gpu.Device.
func (d *Device) CreateBuffer(heap gpu.HeapType, size uint64, initial gpu.ResourceState) (gpu.Buffer, error) {
	b, err := newBuffer(d, heap, size, initial)
	if err != nil {
		return nil, err
	}
	d.buffers[b.name] = b
	return b, nil
}

// CreateTexture implements gpu.Device.
func (d *Device) CreateTexture(desc gpu.TextureDesc, initial gpu.ResourceState) (gpu.Texture, error) {
	return newTexture(desc, initial)
}

// CreateFence implements gpu.Device.
func (d *Device) CreateFence(initial uint64) (gpu.Fence, error) {
	return &Fence{completed: initial}, nil
}

// CreateCommandAllocator implements gpu.Device.
func (d *Device) CreateCommandAllocator() (gpu.CommandAllocator, error) {
	return &Allocator{}, nil
}

// CreateCommandList implements gpu.Device. The list starts recording.
func (d *Device) CreateCommandList(alloc gpu.CommandAllocator, pso gpu.PipelineState) (gpu.CommandList, error) {
	c := &CommandList{dev: d}
	if err := c.Reset(alloc, pso); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateDescriptorHeap implements gpu.Device.
func (d *Device) CreateDescriptorHeap(desc gpu.DescriptorHeapDesc) (*gpu.DescriptorHeap, error) {
	return gpu.NewDescriptorHeap(desc, descriptorIncrement)
}

// CreateRootSignature implements gpu.Device.
func (d *Device) CreateRootSignature(desc gpu.RootSignatureDesc) (*gpu.RootSignature, error) {
	return gpu.NewRootSignature(desc)
}

// CreateGraphicsPipelineState implements gpu.Device.
func (d *Device) CreateGraphicsPipelineState(desc gpu.PipelineStateDesc) (gpu.PipelineState, error) {
	return newPipelineState(desc)
}

// DescriptorIncrementSize implements gpu.Device.
func (d *Device) DescriptorIncrementSize() uint32 { return descriptorIncrement }

// Queue implements gpu.Device.
func (d *Device) Queue() gpu.Queue { return d.queue }

// SwapChain implements gpu.Device.
func (d *Device) SwapChain() gpu.SwapChain { return d.swapChain }

// Close releases the swap chain. Resources created by callers are released
// by their owners.
func (d *Device) Close() error {
	d.swapChain.destroy()
	d.log.Info("OpenGL device closed", zap.Int("leaked_buffers", len(d.buffers)))
	return glError("close device")
}

func (d *Device) buffer(addr gpu.Address) (*Buffer, error) {
	b, ok := d.buffers[addr.BufferID()]
	if !ok {
		return nil, fmt.Errorf("address 0x%x: unknown buffer %d: %w", uint64(addr), addr.BufferID(), gpu.ErrOutOfRange)
	}
	return b, nil
}
