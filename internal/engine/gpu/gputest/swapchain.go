package gputest

import (
	"fmt"
	"image"
	"image/color"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// SwapChainBufferCount is the number of back buffers.
const SwapChainBufferCount = 2

// SwapChain flips between two in-memory back buffers.
type SwapChain struct {
	dev           *Device
	width, height int
	buffers       [SwapChainBufferCount]*Texture
	depth         *Texture
	current       int
	last          [4]float32
}

func newSwapChain(d *Device, w, h int) *SwapChain {
	sc := &SwapChain{dev: d}
	sc.allocate(w, h)
	return sc
}

func (sc *SwapChain) allocate(w, h int) {
	sc.width, sc.height = w, h
	for i := range sc.buffers {
		sc.buffers[i] = &Texture{
			desc:  gpu.TextureDesc{Width: uint32(w), Height: uint32(h), MipLevels: 1, Format: gpu.FormatR8G8B8A8Unorm},
			state: gpu.StatePresent,
		}
	}
	sc.depth = &Texture{
		desc:  gpu.TextureDesc{Width: uint32(w), Height: uint32(h), MipLevels: 1, Format: gpu.FormatD24UnormS8Uint},
		state: gpu.StateDepthWrite,
	}
	sc.current = 0
}

func (sc *SwapChain) CurrentBackBuffer() gpu.Texture { return sc.buffers[sc.current] }
func (sc *SwapChain) DepthStencil() gpu.Texture      { return sc.depth }
func (sc *SwapChain) Size() (int, int)               { return sc.width, sc.height }

// Present requires the back buffer to be in the PRESENT state.
func (sc *SwapChain) Present(syncInterval int) error {
	if err := sc.dev.check("Present"); err != nil {
		return err
	}
	bb := sc.buffers[sc.current]
	if bb.state != gpu.StatePresent {
		return fmt.Errorf("present back buffer in %s: %w", bb.state, gpu.ErrInvalidState)
	}
	sc.last = bb.clearColor
	sc.dev.presents = append(sc.dev.presents, PresentCall{SyncInterval: syncInterval, Color: bb.clearColor})
	sc.current = (sc.current + 1) % SwapChainBufferCount
	return nil
}

func (sc *SwapChain) Resize(w, h int) error {
	if err := sc.dev.check("Resize"); err != nil {
		return err
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("resize swap chain to %dx%d", w, h)
	}
	sc.allocate(w, h)
	return nil
}

// Capture returns an image filled with the last presented clear color.
func (sc *SwapChain) Capture() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, sc.width, sc.height))
	c := color.RGBA{
		R: uint8(sc.last[0]*255 + 0.5),
		G: uint8(sc.last[1]*255 + 0.5),
		B: uint8(sc.last[2]*255 + 0.5),
		A: uint8(sc.last[3]*255 + 0.5),
	}
	for y := 0; y < sc.height; y++ {
		for x := 0; x < sc.width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img, nil
}
