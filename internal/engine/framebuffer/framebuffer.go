// Package framebuffer provides OpenGL render targets: a color texture plus a
// depth-stencil renderbuffer that several framebuffers may share.
package framebuffer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.5-core/gl"
)

// DepthBuffer is a 24-bit depth, 8-bit stencil renderbuffer.
type DepthBuffer struct {
	rbo           uint32
	width, height int32
}

// NewDepthBuffer allocates a depth-stencil renderbuffer.
func NewDepthBuffer(width, height int32) *DepthBuffer {
	d := &DepthBuffer{}
	gl.CreateRenderbuffers(1, &d.rbo)
	d.Resize(width, height)
	return d
}

// Resize reallocates the storage if the size changed.
func (d *DepthBuffer) Resize(width, height int32) {
	width, height = max(width, 1), max(height, 1)
	if width == d.width && height == d.height {
		return
	}
	d.width, d.height = width, height
	gl.NamedRenderbufferStorage(d.rbo, gl.DEPTH24_STENCIL8, width, height)
}

// Destroy releases the renderbuffer.
func (d *DepthBuffer) Destroy() {
	if d.rbo != 0 {
		gl.DeleteRenderbuffers(1, &d.rbo)
		d.rbo = 0
	}
}

// Framebuffer manages an offscreen render target with an RGBA8 color
// attachment and a shared depth attachment.
type Framebuffer struct {
	fbo          uint32
	colorTexture uint32
	depth        *DepthBuffer
	width        int32
	height       int32
}

// New creates a framebuffer of the given size attached to depth.
func New(width, height int32, depth *DepthBuffer) (*Framebuffer, error) {
	fb := &Framebuffer{
		width:  max(width, 1),
		height: max(height, 1),
		depth:  depth,
	}

	if err := fb.create(); err != nil {
		return nil, fmt.Errorf("creating framebuffer: %w", err)
	}

	return fb, nil
}

func (fb *Framebuffer) create() error {
	gl.CreateFramebuffers(1, &fb.fbo)

	gl.CreateTextures(gl.TEXTURE_2D, 1, &fb.colorTexture)
	gl.TextureStorage2D(fb.colorTexture, 1, gl.RGBA8, fb.width, fb.height)
	gl.TextureParameteri(fb.colorTexture, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TextureParameteri(fb.colorTexture, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.NamedFramebufferTexture(fb.fbo, gl.COLOR_ATTACHMENT0, fb.colorTexture, 0)

	fb.depth.Resize(fb.width, fb.height)
	gl.NamedFramebufferRenderbuffer(fb.fbo, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, fb.depth.rbo)

	if status := gl.CheckNamedFramebufferStatus(fb.fbo, gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		fb.Destroy()
		return fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return nil
}

// FBO returns the underlying framebuffer object ID.
func (fb *Framebuffer) FBO() uint32 {
	return fb.fbo
}

// ColorTexture returns the color attachment texture ID.
func (fb *Framebuffer) ColorTexture() uint32 {
	return fb.colorTexture
}

// Size returns the framebuffer dimensions.
func (fb *Framebuffer) Size() (width, height int32) {
	return fb.width, fb.height
}

// Resize recreates the attachments if the dimensions changed. Texture
// storage is immutable, so the color texture is replaced.
func (fb *Framebuffer) Resize(width, height int32) error {
	width, height = max(width, 1), max(height, 1)
	if width == fb.width && height == fb.height {
		return nil
	}
	fb.Destroy()
	fb.width, fb.height = width, height
	return fb.create()
}

// BlitToDefault copies the color attachment to the window framebuffer.
func (fb *Framebuffer) BlitToDefault() {
	gl.BlitNamedFramebuffer(fb.fbo, 0,
		0, 0, fb.width, fb.height,
		0, 0, fb.width, fb.height,
		gl.COLOR_BUFFER_BIT, gl.NEAREST)
}

// ReadPixels reads the color attachment. OpenGL rows start at the bottom, so
// the image is flipped to put row 0 at the top.
func (fb *Framebuffer) ReadPixels() *image.RGBA {
	w, h := int(fb.width), int(fb.height)
	pixels := make([]byte, w*h*4)
	gl.GetTextureImage(fb.colorTexture, 0, gl.RGBA, gl.UNSIGNED_BYTE, int32(len(pixels)), gl.Ptr(pixels))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := w * 4
	for y := 0; y < h; y++ {
		src := pixels[(h-1-y)*stride : (h-y)*stride]
		copy(img.Pix[y*img.Stride:], src)
	}
	return img
}

// Destroy releases the framebuffer and its color texture. The shared depth
// buffer is left to its owner.
func (fb *Framebuffer) Destroy() {
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
		fb.fbo = 0
	}
	if fb.colorTexture != 0 {
		gl.DeleteTextures(1, &fb.colorTexture)
		fb.colorTexture = 0
	}
}
