package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math/bits"
)

// DDS format errors.
var (
	ErrInvalidDDSMagic      = errors.New("invalid DDS magic: expected 'DDS '")
	ErrInvalidDDSHeader     = errors.New("invalid DDS header size")
	ErrUnsupportedDDSFormat = errors.New("unsupported DDS pixel format")
	ErrTruncatedDDSData     = errors.New("truncated DDS data")
)

// DDSFormat is the texel encoding of a DDS surface.
type DDSFormat uint8

// Supported encodings.
const (
	DDSFormatUnknown DDSFormat = iota
	DDSFormatBC1               // DXT1, 8-byte blocks
	DDSFormatBC2               // DXT3, 16-byte blocks
	DDSFormatBC3               // DXT5, 16-byte blocks
	DDSFormatRGBA8
	DDSFormatBGRA8
)

// String returns the DXGI-style name.
func (f DDSFormat) String() string {
	switch f {
	case DDSFormatBC1:
		return "BC1"
	case DDSFormatBC2:
		return "BC2"
	case DDSFormatBC3:
		return "BC3"
	case DDSFormatRGBA8:
		return "R8G8B8A8"
	case DDSFormatBGRA8:
		return "B8G8R8A8"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// Compressed reports whether the format stores 4x4 blocks.
func (f DDSFormat) Compressed() bool {
	return f == DDSFormatBC1 || f == DDSFormatBC2 || f == DDSFormatBC3
}

// BlockSize returns the byte size of a 4x4 block, or 0 for 32-bit texels.
func (f DDSFormat) BlockSize() int {
	switch f {
	case DDSFormatBC1:
		return 8
	case DDSFormatBC2, DDSFormatBC3:
		return 16
	}
	return 0
}

// LevelSize returns the byte size of a w x h surface.
func (f DDSFormat) LevelSize(w, h int) int {
	if f.Compressed() {
		return max(1, (w+3)/4) * max(1, (h+3)/4) * f.BlockSize()
	}
	return w * h * 4
}

// DDSLevel is one mip level.
type DDSLevel struct {
	Width  int
	Height int
	Data   []byte
}

// DDS represents a parsed 2D DirectDraw Surface with its mip chain.
type DDS struct {
	Width  int
	Height int
	Format DDSFormat
	Levels []DDSLevel
}

// DDSMaxExtent is the largest width or height ParseDDS accepts.
const DDSMaxExtent = 16384

const (
	ddsHeaderSize = 124
	ddsPFSize     = 32

	ddpfFourCC = 0x4
	ddpfRGB    = 0x40

	ddsCaps2Cubemap = 0x200
	ddsCaps2Volume  = 0x200000

	dxgiR8G8B8A8Unorm     = 28
	dxgiR8G8B8A8UnormSRGB = 29
	dxgiBC1Unorm          = 71
	dxgiBC1UnormSRGB      = 72
	dxgiBC2Unorm          = 74
	dxgiBC2UnormSRGB      = 75
	dxgiBC3Unorm          = 77
	dxgiBC3UnormSRGB      = 78
	dxgiB8G8R8A8Unorm     = 87
	dxgiB8G8R8A8UnormSRGB = 91

	d3d10DimensionTexture2D = 3
)

type ddsPixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      [4]byte
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

type ddsHeader struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       ddsPixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

type ddsHeaderDX10 struct {
	DXGIFormat        uint32
	ResourceDimension uint32
	MiscFlag          uint32
	ArraySize         uint32
	MiscFlags2        uint32
}

// ParseDDS parses a DDS file from raw bytes. Cube maps, volumes and arrays
// are rejected.
func ParseDDS(data []byte) (*DDS, error) {
	if len(data) < 4+ddsHeaderSize {
		return nil, ErrTruncatedDDSData
	}
	if string(data[0:4]) != "DDS " {
		return nil, ErrInvalidDDSMagic
	}

	r := bytes.NewReader(data[4:])
	var h ddsHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if h.Size != ddsHeaderSize || h.PixelFormat.Size != ddsPFSize {
		return nil, ErrInvalidDDSHeader
	}
	if h.Caps2&(ddsCaps2Cubemap|ddsCaps2Volume) != 0 {
		return nil, fmt.Errorf("%w: cube maps and volumes", ErrUnsupportedDDSFormat)
	}
	if h.Width == 0 || h.Height == 0 {
		return nil, fmt.Errorf("%w: zero extent", ErrInvalidDDSHeader)
	}
	if h.Width > DDSMaxExtent || h.Height > DDSMaxExtent {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDDSHeader, h.Width, h.Height, DDSMaxExtent)
	}

	format, err := pixelFormat(h.PixelFormat)
	if err != nil {
		return nil, err
	}
	if string(h.PixelFormat.FourCC[:]) == "DX10" {
		var dx10 ddsHeaderDX10
		if err := binary.Read(r, binary.LittleEndian, &dx10); err != nil {
			return nil, ErrTruncatedDDSData
		}
		if dx10.ResourceDimension != d3d10DimensionTexture2D || dx10.ArraySize > 1 {
			return nil, fmt.Errorf("%w: dimension %d, array size %d",
				ErrUnsupportedDDSFormat, dx10.ResourceDimension, dx10.ArraySize)
		}
		if format, err = dxgiFormat(dx10.DXGIFormat); err != nil {
			return nil, err
		}
	}

	// A full chain ends at 1x1; counts beyond it are ignored.
	mips := min(max(int(h.MipMapCount), 1), bits.Len32(max(h.Width, h.Height)))

	dds := &DDS{
		Width:  int(h.Width),
		Height: int(h.Height),
		Format: format,
		Levels: make([]DDSLevel, 0, mips),
	}

	offset := len(data) - r.Len()
	w, ht := dds.Width, dds.Height
	for i := 0; i < mips; i++ {
		size := format.LevelSize(w, ht)
		if uint64(offset)+uint64(size) > uint64(len(data)) {
			return nil, fmt.Errorf("mip %d: %w", i, ErrTruncatedDDSData)
		}
		dds.Levels = append(dds.Levels, DDSLevel{Width: w, Height: ht, Data: data[offset : offset+size]})
		offset += size
		w, ht = max(1, w/2), max(1, ht/2)
	}

	return dds, nil
}

func pixelFormat(pf ddsPixelFormat) (DDSFormat, error) {
	if pf.Flags&ddpfFourCC != 0 {
		switch string(pf.FourCC[:]) {
		case "DXT1":
			return DDSFormatBC1, nil
		case "DXT2", "DXT3":
			return DDSFormatBC2, nil
		case "DXT4", "DXT5":
			return DDSFormatBC3, nil
		case "DX10":
			return DDSFormatUnknown, nil
		}
		return DDSFormatUnknown, fmt.Errorf("%w: fourCC %q", ErrUnsupportedDDSFormat, pf.FourCC[:])
	}

	if pf.Flags&ddpfRGB != 0 && pf.RGBBitCount == 32 {
		switch {
		case pf.RBitMask == 0x000000ff && pf.GBitMask == 0x0000ff00 && pf.BBitMask == 0x00ff0000:
			return DDSFormatRGBA8, nil
		case pf.RBitMask == 0x00ff0000 && pf.GBitMask == 0x0000ff00 && pf.BBitMask == 0x000000ff:
			return DDSFormatBGRA8, nil
		}
	}
	return DDSFormatUnknown, fmt.Errorf("%w: %d-bit masks %08x/%08x/%08x",
		ErrUnsupportedDDSFormat, pf.RGBBitCount, pf.RBitMask, pf.GBitMask, pf.BBitMask)
}

func dxgiFormat(f uint32) (DDSFormat, error) {
	switch f {
	case dxgiBC1Unorm, dxgiBC1UnormSRGB:
		return DDSFormatBC1, nil
	case dxgiBC2Unorm, dxgiBC2UnormSRGB:
		return DDSFormatBC2, nil
	case dxgiBC3Unorm, dxgiBC3UnormSRGB:
		return DDSFormatBC3, nil
	case dxgiR8G8B8A8Unorm, dxgiR8G8B8A8UnormSRGB:
		return DDSFormatRGBA8, nil
	case dxgiB8G8R8A8Unorm, dxgiB8G8R8A8UnormSRGB:
		return DDSFormatBGRA8, nil
	}
	return DDSFormatUnknown, fmt.Errorf("%w: DXGI format %d", ErrUnsupportedDDSFormat, f)
}

// DecodeLevel expands mip level i to 8-bit RGBA.
func (d *DDS) DecodeLevel(i int) (*image.RGBA, error) {
	if i < 0 || i >= len(d.Levels) {
		return nil, fmt.Errorf("mip %d of %d", i, len(d.Levels))
	}
	lvl := d.Levels[i]
	img := image.NewRGBA(image.Rect(0, 0, lvl.Width, lvl.Height))

	switch d.Format {
	case DDSFormatRGBA8:
		copy(img.Pix, lvl.Data)
	case DDSFormatBGRA8:
		for p := 0; p+3 < len(lvl.Data); p += 4 {
			img.Pix[p+0] = lvl.Data[p+2]
			img.Pix[p+1] = lvl.Data[p+1]
			img.Pix[p+2] = lvl.Data[p+0]
			img.Pix[p+3] = lvl.Data[p+3]
		}
	default:
		decodeBlocks(img, lvl.Data, d.Format)
	}
	return img, nil
}
