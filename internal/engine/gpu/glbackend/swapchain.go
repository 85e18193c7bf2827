package glbackend

import (
	"fmt"
	"image"

	"github.com/Faultbox/towerscene/internal/engine/framebuffer"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// SwapChainBufferCount is the number of back buffers.
const SwapChainBufferCount = 2

// SwapChain renders into offscreen framebuffers sharing one depth buffer and
// blits the current one to the window on Present.
type SwapChain struct {
	dev           *Device
	depth         *framebuffer.DepthBuffer
	fbs           [SwapChainBufferCount]*framebuffer.Framebuffer
	buffers       [SwapChainBufferCount]*Texture
	depthTex      *Texture
	current       int
	last          int
	interval      int
	width, height int
}

func newSwapChain(d *Device, w, h int) (*SwapChain, error) {
	sc := &SwapChain{dev: d, last: -1, interval: -1}
	sc.depth = framebuffer.NewDepthBuffer(int32(w), int32(h))
	sc.depthTex = &Texture{sc: sc, buffer: -1, state: gpu.StateDepthWrite}
	for i := range sc.buffers {
		sc.buffers[i] = &Texture{sc: sc, buffer: i, state: gpu.StatePresent}
	}
	if err := sc.allocate(w, h); err != nil {
		sc.destroy()
		return nil, err
	}
	return sc, nil
}

func (sc *SwapChain) allocate(w, h int) error {
	sc.width, sc.height = w, h
	sc.depth.Resize(int32(w), int32(h))
	desc := gpu.TextureDesc{Width: uint32(w), Height: uint32(h), MipLevels: 1, Format: gpu.FormatR8G8B8A8Unorm}
	for i := range sc.fbs {
		var err error
		if sc.fbs[i] == nil {
			sc.fbs[i], err = framebuffer.New(int32(w), int32(h), sc.depth)
		} else {
			err = sc.fbs[i].Resize(int32(w), int32(h))
		}
		if err != nil {
			return fmt.Errorf("back buffer %d: %w", i, err)
		}
		sc.buffers[i].name = sc.fbs[i].ColorTexture()
		sc.buffers[i].desc = desc
		sc.buffers[i].state = gpu.StatePresent
	}
	sc.depthTex.desc = gpu.TextureDesc{Width: uint32(w), Height: uint32(h), MipLevels: 1, Format: gpu.FormatD24UnormS8Uint}
	sc.current = 0
	return glError("allocate swap chain")
}

func (sc *SwapChain) CurrentBackBuffer() gpu.Texture { return sc.buffers[sc.current] }
func (sc *SwapChain) DepthStencil() gpu.Texture      { return sc.depthTex }
func (sc *SwapChain) Size() (int, int)               { return sc.width, sc.height }

// Present blits the current back buffer to the window and swaps. The back
// buffer must be in the PRESENT state.
func (sc *SwapChain) Present(syncInterval int) error {
	bb := sc.buffers[sc.current]
	if bb.state != gpu.StatePresent {
		return fmt.Errorf("present back buffer in %s: %w", bb.state, gpu.ErrInvalidState)
	}
	if syncInterval != sc.interval {
		if err := sc.dev.surface.SetSwapInterval(syncInterval); err != nil {
			sc.dev.log.Sugar().Warnf("swap interval %d: %v", syncInterval, err)
		}
		sc.interval = syncInterval
	}

	sc.fbs[sc.current].BlitToDefault()
	sc.dev.surface.SwapBuffers()
	if err := glError("Present"); err != nil {
		return err
	}
	sc.last = sc.current
	sc.current = (sc.current + 1) % SwapChainBufferCount
	return nil
}

// Resize reallocates the back buffers and the depth buffer.
func (sc *SwapChain) Resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("resize swap chain to %dx%d", w, h)
	}
	sc.last = -1
	return sc.allocate(w, h)
}

// Capture reads back the last presented back buffer.
func (sc *SwapChain) Capture() (*image.RGBA, error) {
	if sc.last < 0 {
		return nil, fmt.Errorf("capture: nothing presented since the last resize")
	}
	img := sc.fbs[sc.last].ReadPixels()
	return img, glError("Capture")
}

func (sc *SwapChain) destroy() {
	for i, fb := range sc.fbs {
		if fb != nil {
			fb.Destroy()
			sc.fbs[i] = nil
		}
	}
	if sc.depth != nil {
		sc.depth.Destroy()
	}
}
