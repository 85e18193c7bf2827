package formats

import (
	"errors"
	"fmt"
	"image"
)

// TGA format errors.
var (
	ErrTruncatedTGAData     = errors.New("truncated TGA data")
	ErrUnsupportedTGAFormat = errors.New("unsupported TGA format")
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

// ParseTGA decodes an uncompressed or RLE true-color TGA with 24 or 32 bits
// per pixel.
func ParseTGA(data []byte) (*image.RGBA, error) {
	if len(data) < 18 {
		return nil, ErrTruncatedTGAData
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped", ErrUnsupportedTGAFormat)
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("%w: type %d", ErrUnsupportedTGAFormat, imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedTGAFormat, bpp)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, ErrTruncatedTGAData
	}

	// Check the pixel count against the data before allocating. An RLE
	// packet of 1+bpp bytes expands to at most 128 pixels.
	src, n := data[offset:], width*height
	if imageType == TGATypeUncompressed && len(src) < n*(bpp/8) {
		return nil, ErrTruncatedTGAData
	}
	if imageType == TGATypeRLE && n > len(src)/(1+bpp/8)*128 {
		return nil, ErrTruncatedTGAData
	}

	d := tgaDecoder{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		src:         src,
		width:       width,
		height:      height,
		bpp:         bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}

	if imageType == TGATypeUncompressed {
		for i := 0; i < n; i++ {
			d.put(i, d.pixel())
		}
	} else if err := d.rle(); err != nil {
		return nil, err
	}

	return d.img, nil
}

type tgaDecoder struct {
	img           *image.RGBA
	src           []byte
	pos           int
	width, height int
	bpp           int
	topToBottom   bool
}

// pixel reads one BGR(A) pixel.
func (d *tgaDecoder) pixel() [4]byte {
	p := d.src[d.pos : d.pos+d.bpp]
	d.pos += d.bpp
	c := [4]byte{p[2], p[1], p[0], 255}
	if d.bpp == 4 {
		c[3] = p[3]
	}
	return c
}

// put stores pixel i, flipping rows unless the image is stored top down.
func (d *tgaDecoder) put(i int, c [4]byte) {
	x, y := i%d.width, i/d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	copy(d.img.Pix[d.img.PixOffset(x, y):], c[:])
}

func (d *tgaDecoder) rle() error {
	count := d.width * d.height
	for i := 0; i < count; {
		if d.pos >= len(d.src) {
			return ErrTruncatedTGAData
		}
		packet := d.src[d.pos]
		d.pos++
		n := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			if d.pos+d.bpp > len(d.src) {
				return ErrTruncatedTGAData
			}
			c := d.pixel()
			for ; n > 0 && i < count; n-- {
				d.put(i, c)
				i++
			}
			continue
		}

		if d.pos+n*d.bpp > len(d.src) {
			return ErrTruncatedTGAData
		}
		for ; n > 0 && i < count; n-- {
			d.put(i, d.pixel())
			i++
		}
	}
	return nil
}
