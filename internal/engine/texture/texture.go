// Package texture loads diffuse maps from the asset directories and uploads
// them as shader resources.
package texture

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/assets"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/render"
	"github.com/Faultbox/towerscene/internal/logger"
	"github.com/Faultbox/towerscene/pkg/formats"
)

// ErrUnsupportedFormat is returned for file extensions other than .dds and .tga.
var ErrUnsupportedFormat = errors.New("texture: unsupported file format")

// Image is a decoded texture with its mip chain, largest first.
type Image struct {
	Name   string
	File   string
	Levels []*image.RGBA
}

// Width returns the width of the top level.
func (img *Image) Width() int { return img.Levels[0].Rect.Dx() }

// Height returns the height of the top level.
func (img *Image) Height() int { return img.Levels[0].Rect.Dy() }

// Decode decodes data according to the extension of file.
func Decode(name, file string, data []byte) (*Image, error) {
	img := &Image{Name: name, File: file}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".dds":
		dds, err := formats.ParseDDS(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
		for i := range dds.Levels {
			lvl, err := dds.DecodeLevel(i)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", file, err)
			}
			img.Levels = append(img.Levels, lvl)
		}
	case ".tga":
		rgba, err := formats.ParseTGA(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
		img.Levels = []*image.RGBA{rgba}
	default:
		return nil, fmt.Errorf("%s: %w", file, ErrUnsupportedFormat)
	}

	if img.Levels[0].Rect.Empty() {
		return nil, fmt.Errorf("decode %s: empty image", file)
	}
	return img, nil
}

// Load reads file through m, falling back to a .tga with the same stem.
func Load(m *assets.Manager, name, file string) (*Image, error) {
	stem := strings.TrimSuffix(file, filepath.Ext(file))
	found, data, err := m.LoadFirst(file, stem+".tga")
	if err != nil {
		return nil, fmt.Errorf("load texture %s: %w", name, err)
	}

	img, err := Decode(name, found, data)
	if err != nil {
		return nil, err
	}

	logger.Named("texture").Debug("texture loaded",
		zap.String("name", name),
		zap.String("file", found),
		zap.Int("width", img.Width()),
		zap.Int("height", img.Height()),
		zap.Int("mips", len(img.Levels)))
	return img, nil
}

// Upload records the copy of img into a new R8G8B8A8 texture and its
// transition to a pixel shader resource. The staging buffer is kept on the
// returned texture until DisposeUploader.
func Upload(dev gpu.Device, cmd gpu.CommandList, img *Image) (*render.Texture, error) {
	subs := make([]gpu.Subresource, len(img.Levels))
	var size uint64
	for i, lvl := range img.Levels {
		w, h := lvl.Rect.Dx(), lvl.Rect.Dy()
		subs[i] = gpu.Subresource{
			Offset:   size,
			Size:     uint64(w * h * 4),
			RowPitch: uint32(w * 4),
			Width:    uint32(w),
			Height:   uint32(h),
		}
		size += subs[i].Size
	}

	tex, err := dev.CreateTexture(gpu.TextureDesc{
		Width:     uint32(img.Width()),
		Height:    uint32(img.Height()),
		MipLevels: uint32(len(img.Levels)),
		Format:    gpu.FormatR8G8B8A8Unorm,
	}, gpu.StateCopyDest)
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", img.Name, err)
	}

	staging, err := dev.CreateBuffer(gpu.HeapUpload, size, gpu.StateGenericRead)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create texture staging %s: %w", img.Name, err)
	}
	mapped, err := staging.Map()
	if err != nil {
		tex.Release()
		staging.Release()
		return nil, fmt.Errorf("map texture staging %s: %w", img.Name, err)
	}
	for i, lvl := range img.Levels {
		copy(mapped[subs[i].Offset:], rows(lvl))
	}
	staging.Unmap()

	cmd.CopyBufferToTexture(tex, staging, subs)
	cmd.ResourceBarrier(gpu.Transition(tex, gpu.StateCopyDest, gpu.StatePixelShaderResource))

	return &render.Texture{
		Name:       img.Name,
		Filename:   img.File,
		Resource:   tex,
		UploadHeap: staging,
	}, nil
}

// rows returns the tightly packed pixels of img.
func rows(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 {
		return img.Pix[:w*h*4]
	}
	out := make([]byte, 0, w*h*4)
	for y := 0; y < h; y++ {
		off := y * img.Stride
		out = append(out, img.Pix[off:off+w*4]...)
	}
	return out
}
