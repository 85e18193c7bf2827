// Package upload manages host-visible buffers the CPU writes every frame and
// the staging path into device-local buffers.
package upload

import (
	"errors"
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// ErrIndexOutOfRange is returned by CopyData for an element past the end.
var ErrIndexOutOfRange = errors.New("upload: element index out of range")

// Buffer is a persistently mapped upload-heap buffer holding count elements
// of a fixed stride. Constant buffers round the stride up to 256 bytes.
type Buffer struct {
	res    gpu.Buffer
	mapped []byte
	stride uint32
	count  int
}

// NewBuffer creates and maps an upload buffer.
func NewBuffer(dev gpu.Device, elementSize uint32, count int, isConstantBuffer bool) (*Buffer, error) {
	if count <= 0 || elementSize == 0 {
		return nil, fmt.Errorf("upload buffer of %d x %d bytes: invalid size", count, elementSize)
	}

	stride := elementSize
	if isConstantBuffer {
		stride = gpu.CalcConstantBufferByteSize(elementSize)
	}

	res, err := dev.CreateBuffer(gpu.HeapUpload, uint64(stride)*uint64(count), gpu.StateGenericRead)
	if err != nil {
		return nil, fmt.Errorf("create upload buffer: %w", err)
	}

	mapped, err := res.Map()
	if err != nil {
		res.Release()
		return nil, fmt.Errorf("map upload buffer: %w", err)
	}

	return &Buffer{
		res:    res,
		mapped: mapped,
		stride: stride,
		count:  count,
	}, nil
}

// CopyData writes data into element i. data may be shorter than the stride.
func (b *Buffer) CopyData(i int, data []byte) error {
	if i < 0 || i >= b.count {
		return fmt.Errorf("element %d of %d: %w", i, b.count, ErrIndexOutOfRange)
	}
	if len(data) > int(b.stride) {
		return fmt.Errorf("element %d: %d bytes exceed stride %d", i, len(data), b.stride)
	}
	off := i * int(b.stride)
	copy(b.mapped[off:off+len(data)], data)
	return nil
}

// Resource returns the underlying GPU buffer.
func (b *Buffer) Resource() gpu.Buffer { return b.res }

// Stride returns the distance between elements in bytes.
func (b *Buffer) Stride() uint32 { return b.stride }

// Len returns the element count.
func (b *Buffer) Len() int { return b.count }

// Address returns the GPU virtual address of element i.
func (b *Buffer) Address(i int) gpu.Address {
	return b.res.GPUVirtualAddress().Add(uint64(i) * uint64(b.stride))
}

// Close unmaps and releases the buffer.
func (b *Buffer) Close() {
	if b.res == nil {
		return
	}
	b.res.Unmap()
	b.res.Release()
	b.res = nil
	b.mapped = nil
}

// CreateDefaultBuffer creates a device-local buffer filled with data. The copy
// is recorded on cmd through a staging buffer that must stay alive until the
// command list has executed; the caller releases it after the fence.
func CreateDefaultBuffer(dev gpu.Device, cmd gpu.CommandList, data []byte) (buf, uploader gpu.Buffer, err error) {
	size := uint64(len(data))
	if size == 0 {
		return nil, nil, fmt.Errorf("create default buffer: empty data")
	}

	buf, err = dev.CreateBuffer(gpu.HeapDefault, size, gpu.StateCopyDest)
	if err != nil {
		return nil, nil, fmt.Errorf("create default buffer: %w", err)
	}

	uploader, err = dev.CreateBuffer(gpu.HeapUpload, size, gpu.StateGenericRead)
	if err != nil {
		buf.Release()
		return nil, nil, fmt.Errorf("create staging buffer: %w", err)
	}

	mapped, err := uploader.Map()
	if err != nil {
		buf.Release()
		uploader.Release()
		return nil, nil, fmt.Errorf("map staging buffer: %w", err)
	}
	copy(mapped, data)
	uploader.Unmap()

	cmd.CopyBuffer(buf, 0, uploader, 0, size)
	cmd.ResourceBarrier(gpu.Transition(buf, gpu.StateCopyDest, gpu.StateGenericRead))

	return buf, uploader, nil
}
