// Package descriptor lays out the shader-visible descriptor heaps: the
// per-frame, per-object CBV heap of the table-bound variant and the SRV heap
// of the textured variant.
package descriptor

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/engine/frame"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/logger"
)

// ErrLayoutMismatch is returned when the ring does not match the layout.
var ErrLayoutMismatch = errors.New("descriptor: ring does not match layout")

// CBVLayout maps (frame, object) pairs and per-frame pass constants onto heap
// slots. Object CBVs come first, row-major by frame, followed by one pass
// CBV per frame.
type CBVLayout struct {
	Objects int
	Frames  int
}

// NumDescriptors returns (O+1)*N.
func (l CBVLayout) NumDescriptors() int { return (l.Objects + 1) * l.Frames }

// ObjectIndex returns the slot of object o in frame f.
func (l CBVLayout) ObjectIndex(f, o int) int { return f*l.Objects + o }

// PassIndex returns the slot of the pass CBV of frame f.
func (l CBVLayout) PassIndex(f int) int { return l.PassOffset() + f }

// PassOffset returns the first pass slot.
func (l CBVLayout) PassOffset() int { return l.Frames * l.Objects }

// BuildCBVHeap creates a shader-visible heap and fills it with views onto the
// object and pass constant buffers of every ring slot.
func BuildCBVHeap(dev gpu.Device, ring *frame.Ring, l CBVLayout) (*gpu.DescriptorHeap, error) {
	if ring.Len() != l.Frames {
		return nil, fmt.Errorf("%d frames, ring has %d: %w", l.Frames, ring.Len(), ErrLayoutMismatch)
	}

	heap, err := dev.CreateDescriptorHeap(gpu.DescriptorHeapDesc{
		NumDescriptors: uint32(l.NumDescriptors()),
		ShaderVisible:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("create CBV heap: %w", err)
	}

	inc := heap.Increment()
	for f := 0; f < l.Frames; f++ {
		res := ring.Resource(f)
		if res.ObjectCB == nil || res.ObjectCB.Len() != l.Objects {
			return nil, fmt.Errorf("frame %d object buffer: %w", f, ErrLayoutMismatch)
		}

		stride := res.ObjectCB.Stride()
		for o := 0; o < l.Objects; o++ {
			desc := gpu.ConstantBufferViewDesc{Location: res.ObjectCB.Address(o), Size: stride}
			dst := heap.CPUStart().Offset(l.ObjectIndex(f, o), inc)
			if err := heap.CreateConstantBufferView(desc, dst); err != nil {
				return nil, fmt.Errorf("frame %d object %d: %w", f, o, err)
			}
		}
	}

	for f := 0; f < l.Frames; f++ {
		pass := ring.Resource(f).PassCB
		desc := gpu.ConstantBufferViewDesc{Location: pass.Address(0), Size: pass.Stride()}
		dst := heap.CPUStart().Offset(l.PassIndex(f), inc)
		if err := heap.CreateConstantBufferView(desc, dst); err != nil {
			return nil, fmt.Errorf("frame %d pass: %w", f, err)
		}
	}

	logger.Named("descriptor").Debug("CBV heap built",
		zap.Int("objects", l.Objects),
		zap.Int("frames", l.Frames),
		zap.Int("descriptors", l.NumDescriptors()),
		zap.Int("pass_offset", l.PassOffset()))
	return heap, nil
}

// SRVTable creates a shader-visible heap with one SRV per texture, in the
// given order. A material's DiffuseSrvHeapIndex indexes into it.
func SRVTable(dev gpu.Device, textures []gpu.Texture) (*gpu.DescriptorHeap, error) {
	if len(textures) == 0 {
		return nil, fmt.Errorf("create SRV heap: no textures")
	}

	heap, err := dev.CreateDescriptorHeap(gpu.DescriptorHeapDesc{
		NumDescriptors: uint32(len(textures)),
		ShaderVisible:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("create SRV heap: %w", err)
	}

	for i, tex := range textures {
		d := tex.Desc()
		desc := gpu.ShaderResourceViewDesc{
			Format:          d.Format,
			MostDetailedMip: 0,
			MipLevels:       d.MipLevels,
		}
		if err := heap.CreateShaderResourceView(tex, desc, heap.CPUStart().Offset(i, heap.Increment())); err != nil {
			return nil, fmt.Errorf("texture %d: %w", i, err)
		}
	}
	return heap, nil
}

// TableStart returns the GPU handle of slot i.
func TableStart(heap *gpu.DescriptorHeap, i int) gpu.GPUDescriptorHandle {
	return heap.GPUStart().Offset(i, heap.Increment())
}
