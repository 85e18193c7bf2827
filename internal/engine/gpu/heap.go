package gpu

import (
	"fmt"
	"sync/atomic"
)

var heapIDs atomic.Uint32

// DescriptorHeapDesc describes a CBV/SRV descriptor heap.
type DescriptorHeapDesc struct {
	NumDescriptors uint32
	ShaderVisible  bool
}

// CPUDescriptorHandle addresses a descriptor for writing.
type CPUDescriptorHandle struct{ Ptr uint64 }

// Offset advances the handle by n descriptors of size increment.
func (h CPUDescriptorHandle) Offset(n int, increment uint32) CPUDescriptorHandle {
	return CPUDescriptorHandle{Ptr: uint64(int64(h.Ptr) + int64(n)*int64(increment))}
}

// GPUDescriptorHandle addresses a descriptor from a command list.
type GPUDescriptorHandle struct{ Ptr uint64 }

// Offset advances the handle by n descriptors of size increment.
func (h GPUDescriptorHandle) Offset(n int, increment uint32) GPUDescriptorHandle {
	return GPUDescriptorHandle{Ptr: uint64(int64(h.Ptr) + int64(n)*int64(increment))}
}

// DescriptorKind is what a heap slot currently holds.
type DescriptorKind uint8

const (
	DescriptorEmpty DescriptorKind = iota
	DescriptorCBV
	DescriptorSRV
)

// ConstantBufferViewDesc describes a CBV.
type ConstantBufferViewDesc struct {
	Location Address
	Size     uint32
}

// ShaderResourceViewDesc describes a 2D texture SRV.
type ShaderResourceViewDesc struct {
	Format          Format
	MostDetailedMip uint32
	MipLevels       uint32
}

// Descriptor is one heap entry.
type Descriptor struct {
	Kind    DescriptorKind
	CBV     ConstantBufferViewDesc
	Texture Texture
	SRV     ShaderResourceViewDesc
}

// DescriptorHeap is a fixed-size array of descriptors. Handles encode the
// heap id in their upper 32 bits, so a GPU handle identifies its heap.
type DescriptorHeap struct {
	id        uint32
	desc      DescriptorHeapDesc
	increment uint32
	entries   []Descriptor
}

// NewDescriptorHeap allocates a heap. Backends call it from CreateDescriptorHeap.
func NewDescriptorHeap(desc DescriptorHeapDesc, increment uint32) (*DescriptorHeap, error) {
	if desc.NumDescriptors == 0 {
		return nil, fmt.Errorf("create descriptor heap: zero descriptors")
	}
	if increment == 0 {
		return nil, fmt.Errorf("create descriptor heap: zero increment")
	}
	return &DescriptorHeap{
		id:        heapIDs.Add(1),
		desc:      desc,
		increment: increment,
		entries:   make([]Descriptor, desc.NumDescriptors),
	}, nil
}

// Desc returns the creation parameters.
func (h *DescriptorHeap) Desc() DescriptorHeapDesc { return h.desc }

// Len returns the number of descriptors.
func (h *DescriptorHeap) Len() int { return len(h.entries) }

// Increment returns the handle stride.
func (h *DescriptorHeap) Increment() uint32 { return h.increment }

func (h *DescriptorHeap) base() uint64 { return uint64(h.id) << 32 }

// CPUStart returns the handle of descriptor 0.
func (h *DescriptorHeap) CPUStart() CPUDescriptorHandle { return CPUDescriptorHandle{Ptr: h.base()} }

// GPUStart returns the shader-visible handle of descriptor 0.
func (h *DescriptorHeap) GPUStart() GPUDescriptorHandle { return GPUDescriptorHandle{Ptr: h.base()} }

func (h *DescriptorHeap) index(ptr uint64) (int, error) {
	if ptr>>32 != uint64(h.id) {
		return 0, fmt.Errorf("handle 0x%x not in heap %d: %w", ptr, h.id, ErrOutOfRange)
	}
	off := ptr - h.base()
	if off%uint64(h.increment) != 0 {
		return 0, fmt.Errorf("handle 0x%x misaligned: %w", ptr, ErrOutOfRange)
	}
	i := off / uint64(h.increment)
	if i >= uint64(len(h.entries)) {
		return 0, fmt.Errorf("descriptor %d of %d: %w", i, len(h.entries), ErrOutOfRange)
	}
	return int(i), nil
}

// IndexOf resolves a GPU handle to a slot index.
func (h *DescriptorHeap) IndexOf(handle GPUDescriptorHandle) (int, error) {
	return h.index(handle.Ptr)
}

// Contains reports whether handle points into this heap.
func (h *DescriptorHeap) Contains(handle GPUDescriptorHandle) bool {
	_, err := h.index(handle.Ptr)
	return err == nil
}

// CreateConstantBufferView writes a CBV at dst. Location and size must be
// multiples of the constant buffer alignment.
func (h *DescriptorHeap) CreateConstantBufferView(desc ConstantBufferViewDesc, dst CPUDescriptorHandle) error {
	i, err := h.index(dst.Ptr)
	if err != nil {
		return fmt.Errorf("create CBV: %w", err)
	}
	if desc.Size == 0 || desc.Size%MinConstantBufferAlignment != 0 {
		return fmt.Errorf("create CBV: size %d not a multiple of %d", desc.Size, MinConstantBufferAlignment)
	}
	if desc.Location.Offset()%MinConstantBufferAlignment != 0 {
		return fmt.Errorf("create CBV: location offset %d misaligned", desc.Location.Offset())
	}
	h.entries[i] = Descriptor{Kind: DescriptorCBV, CBV: desc}
	return nil
}

// CreateShaderResourceView writes a texture SRV at dst.
func (h *DescriptorHeap) CreateShaderResourceView(tex Texture, desc ShaderResourceViewDesc, dst CPUDescriptorHandle) error {
	i, err := h.index(dst.Ptr)
	if err != nil {
		return fmt.Errorf("create SRV: %w", err)
	}
	if tex == nil {
		return fmt.Errorf("create SRV: nil texture")
	}
	h.entries[i] = Descriptor{Kind: DescriptorSRV, Texture: tex, SRV: desc}
	return nil
}

// Descriptor returns slot i.
func (h *DescriptorHeap) Descriptor(i int) (Descriptor, error) {
	if i < 0 || i >= len(h.entries) {
		return Descriptor{}, fmt.Errorf("descriptor %d of %d: %w", i, len(h.entries), ErrOutOfRange)
	}
	return h.entries[i], nil
}

// FindHeap returns the heap among heaps that contains handle.
func FindHeap(heaps []*DescriptorHeap, handle GPUDescriptorHandle) (*DescriptorHeap, int, error) {
	for _, h := range heaps {
		if i, err := h.IndexOf(handle); err == nil {
			return h, i, nil
		}
	}
	return nil, 0, fmt.Errorf("handle 0x%x not in any bound heap: %w", handle.Ptr, ErrOutOfRange)
}
