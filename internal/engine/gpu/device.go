package gpu

import "image"

// Resource is anything that can be the subject of a barrier.
type Resource interface {
	// State returns the state the resource was last transitioned to.
	State() ResourceState
	// Release frees the resource. Releasing twice is a no-op.
	Release()
}

// Buffer is a linear GPU allocation.
type Buffer interface {
	Resource
	Size() uint64
	Heap() HeapType
	GPUVirtualAddress() Address
	// Map returns the persistent CPU view of an upload-heap buffer.
	Map() ([]byte, error)
	Unmap()
}

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    Format
}

// Texture is a 2D image resource.
type Texture interface {
	Resource
	Desc() TextureDesc
}

// Subresource locates one mip level of texel data inside a staging buffer.
type Subresource struct {
	Offset   uint64
	Size     uint64
	RowPitch uint32
	Width    uint32
	Height   uint32
}

// Fence is a monotonically increasing 64-bit counter signaled by the queue.
type Fence interface {
	CompletedValue() uint64
	// Wait blocks until CompletedValue reaches v.
	Wait(v uint64) error
	Release()
}

// CommandAllocator owns the memory backing recorded command lists.
type CommandAllocator interface {
	// Reset reclaims the memory. It fails while the GPU still uses it.
	Reset() error
	Release()
}

// PipelineState is a compiled graphics pipeline.
type PipelineState interface {
	Desc() *PipelineStateDesc
	Release()
}

// CommandList records GPU work. Recording methods do not fail individually;
// the first recording error is reported by Close.
type CommandList interface {
	Reset(alloc CommandAllocator, pso PipelineState) error
	Close() error

	ResourceBarrier(barriers ...Barrier)
	CopyBuffer(dst Buffer, dstOffset uint64, src Buffer, srcOffset, size uint64)
	CopyBufferToTexture(dst Texture, src Buffer, subresources []Subresource)

	SetViewport(vp Viewport)
	SetScissor(r Rect)
	ClearRenderTarget(rt Texture, color [4]float32)
	ClearDepthStencil(ds Texture, depth float32, stencil uint8)
	SetRenderTargets(rt, ds Texture)

	SetDescriptorHeaps(heaps ...*DescriptorHeap)
	SetGraphicsRootSignature(rs *RootSignature)
	SetPipelineState(pso PipelineState)
	SetGraphicsRootDescriptorTable(slot uint32, base GPUDescriptorHandle)
	SetGraphicsRootConstantBufferView(slot uint32, location Address)

	SetVertexBuffers(start uint32, views ...VertexBufferView)
	SetIndexBuffer(view IndexBufferView)
	SetPrimitiveTopology(t PrimitiveTopology)
	DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)
}

// Queue executes closed command lists in submission order.
type Queue interface {
	Execute(lists ...CommandList) error
	// Signal sets f to v once all previously executed work completes.
	Signal(f Fence, v uint64) error
}

// SwapChain owns the presentable back buffers and the depth buffer.
type SwapChain interface {
	CurrentBackBuffer() Texture
	DepthStencil() Texture
	Size() (width, height int)
	Present(syncInterval int) error
	Resize(width, height int) error
	// Capture reads back the last presented frame.
	Capture() (*image.RGBA, error)
}

// Device creates resources and owns the direct queue.
type Device interface {
	CreateBuffer(heap HeapType, size uint64, initial ResourceState) (Buffer, error)
	CreateTexture(desc TextureDesc, initial ResourceState) (Texture, error)
	CreateFence(initial uint64) (Fence, error)
	CreateCommandAllocator() (CommandAllocator, error)
	CreateCommandList(alloc CommandAllocator, pso PipelineState) (CommandList, error)
	CreateDescriptorHeap(desc DescriptorHeapDesc) (*DescriptorHeap, error)
	CreateRootSignature(desc RootSignatureDesc) (*RootSignature, error)
	CreateGraphicsPipelineState(desc PipelineStateDesc) (PipelineState, error)
	DescriptorIncrementSize() uint32
	Queue() Queue
	SwapChain() SwapChain
	Close() error
}

// InputElement is one vertex attribute.
type InputElement struct {
	Semantic string
	Format   Format
	Offset   uint32
}

// ShaderStage names a programmable stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StagePixel
)

// ShaderSource is an uncompiled shader. Entry is defined as a preprocessor
// symbol so one file can hold several stages.
type ShaderSource struct {
	Name   string
	Stage  ShaderStage
	Entry  string
	Source []byte
}

// FillMode selects solid or wireframe rasterization.
type FillMode uint8

const (
	FillSolid FillMode = iota
	FillWireframe
)

// CullMode selects which faces are discarded.
type CullMode uint8

const (
	CullBack CullMode = iota
	CullNone
	CullFront
)

// SamplerBinding pairs texture register t<Texture> with static sampler
// s<Sampler> for backends whose shaders use combined texture samplers.
type SamplerBinding struct {
	Texture uint32
	Sampler uint32
}

// PipelineStateDesc describes a graphics pipeline.
type PipelineStateDesc struct {
	RootSignature *RootSignature
	InputLayout   []InputElement
	VS            ShaderSource
	PS            ShaderSource
	FillMode      FillMode
	CullMode      CullMode
	Topology      PrimitiveTopology
	RTVFormat     Format
	DSVFormat     Format
	SampleCount   uint32
	Samplers      []SamplerBinding
}
