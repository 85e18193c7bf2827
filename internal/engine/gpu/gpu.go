// Package gpu defines the explicit command-list graphics API the renderer is
// written against: resource state transitions, descriptor heaps, a command
// queue and a monotonically advancing 64-bit fence.
//
// Backends live in subpackages: glbackend drives OpenGL 4.5 core and gputest
// is a deterministic in-memory device for tests.
package gpu

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by backends.
var (
	ErrOutOfRange            = errors.New("gpu: index out of range")
	ErrInvalidState          = errors.New("gpu: resource in wrong state")
	ErrRootSignatureTooLarge = errors.New("gpu: root signature exceeds 64 DWORDs")
	ErrAllocatorInUse        = errors.New("gpu: command allocator still in use by the GPU")
	ErrNotRecording          = errors.New("gpu: command list is closed")
	ErrDeviceLost            = errors.New("gpu: device lost")
)

// Error is a failed API call carrying the backend status code.
type Error struct {
	Op   string
	Code uint32
}

func (e *Error) Error() string {
	return fmt.Sprintf("gpu: %s failed (code 0x%04X)", e.Op, e.Code)
}

// ResourceState is the usage state a resource is transitioned between.
type ResourceState uint32

const (
	StateCommon ResourceState = iota
	StatePresent
	StateRenderTarget
	StateDepthWrite
	StateCopyDest
	StateGenericRead
	StateVertexAndConstantBuffer
	StateIndexBuffer
	StatePixelShaderResource
)

var stateNames = [...]string{
	"COMMON", "PRESENT", "RENDER_TARGET", "DEPTH_WRITE", "COPY_DEST",
	"GENERIC_READ", "VERTEX_AND_CONSTANT_BUFFER", "INDEX_BUFFER", "PIXEL_SHADER_RESOURCE",
}

func (s ResourceState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ResourceState(%d)", uint32(s))
}

// HeapType selects where a buffer lives.
type HeapType uint8

const (
	// HeapDefault is device-local memory, written only by copies.
	HeapDefault HeapType = iota
	// HeapUpload is host-visible memory that stays mapped for CPU writes.
	HeapUpload
)

// Format describes vertex attribute, index and texel formats.
type Format uint16

const (
	FormatUnknown Format = iota
	FormatR32G32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
	FormatR16Uint
	FormatR32Uint
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
	FormatD24UnormS8Uint
	FormatBC1Unorm
	FormatBC2Unorm
	FormatBC3Unorm
)

// Size returns the byte size of one element, or 0 for block-compressed formats.
func (f Format) Size() uint32 {
	switch f {
	case FormatR32G32Float:
		return 8
	case FormatR32G32B32Float:
		return 12
	case FormatR32G32B32A32Float:
		return 16
	case FormatR16Uint:
		return 2
	case FormatR32Uint, FormatR8G8B8A8Unorm, FormatB8G8R8A8Unorm, FormatD24UnormS8Uint:
		return 4
	}
	return 0
}

// BlockSize returns the byte size of one 4x4 block for compressed formats.
func (f Format) BlockSize() uint32 {
	switch f {
	case FormatBC1Unorm:
		return 8
	case FormatBC2Unorm, FormatBC3Unorm:
		return 16
	}
	return 0
}

// PrimitiveTopology is the input-assembler topology.
type PrimitiveTopology uint8

const (
	TopologyUndefined PrimitiveTopology = iota
	TopologyTriangleList
	TopologyLineList
)

// Address is a GPU virtual address. The top 24 bits identify the buffer and
// the low 40 bits are the byte offset inside it.
type Address uint64

const addressOffsetBits = 40

// MakeAddress builds the address of offset within buffer id.
func MakeAddress(id uint32, offset uint64) Address {
	return Address(uint64(id)<<addressOffsetBits | offset&(1<<addressOffsetBits-1))
}

// BufferID returns the buffer the address points into.
func (a Address) BufferID() uint32 { return uint32(a >> addressOffsetBits) }

// Offset returns the byte offset inside the buffer.
func (a Address) Offset() uint64 { return uint64(a) & (1<<addressOffsetBits - 1) }

// Add offsets the address by n bytes.
func (a Address) Add(n uint64) Address { return a + Address(n) }

// Viewport is the rasterizer viewport in pixels with a depth range.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// Rect is a scissor rectangle.
type Rect struct {
	Left, Top, Right, Bottom int32
}

// VertexBufferView describes a bound vertex buffer.
type VertexBufferView struct {
	Location Address
	Size     uint32
	Stride   uint32
}

// IndexBufferView describes a bound index buffer.
type IndexBufferView struct {
	Location Address
	Size     uint32
	Format   Format
}

// Barrier transitions one resource between states.
type Barrier struct {
	Resource Resource
	Before   ResourceState
	After    ResourceState
}

// Transition is shorthand for a Barrier literal.
func Transition(r Resource, before, after ResourceState) Barrier {
	return Barrier{Resource: r, Before: before, After: after}
}

// MinConstantBufferAlignment is the placement alignment of constant buffer views.
const MinConstantBufferAlignment = 256

// CalcConstantBufferByteSize rounds size up to the constant buffer alignment.
func CalcConstantBufferByteSize(size uint32) uint32 {
	return (size + MinConstantBufferAlignment - 1) &^ (MinConstantBufferAlignment - 1)
}
