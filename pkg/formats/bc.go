package formats

import (
	"encoding/binary"
	"image"
)

// decodeBlocks expands BC1-BC3 blocks into img. Blocks past the image edge
// are clipped.
func decodeBlocks(img *image.RGBA, data []byte, f DDSFormat) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	bw := max(1, (w+3)/4)
	bs := f.BlockSize()

	var texels [16][4]byte
	for by := 0; by < max(1, (h+3)/4); by++ {
		for bx := 0; bx < bw; bx++ {
			off := (by*bw + bx) * bs
			if off+bs > len(data) {
				return
			}
			block := data[off : off+bs]

			switch f {
			case DDSFormatBC1:
				decodeColorBlock(block, &texels, true)
			case DDSFormatBC2:
				decodeColorBlock(block[8:], &texels, false)
				decodeExplicitAlpha(block[:8], &texels)
			case DDSFormatBC3:
				decodeColorBlock(block[8:], &texels, false)
				decodeInterpolatedAlpha(block[:8], &texels)
			}

			for i, c := range texels {
				x, y := bx*4+i%4, by*4+i/4
				if x >= w || y >= h {
					continue
				}
				copy(img.Pix[img.PixOffset(x, y):], c[:])
			}
		}
	}
}

func rgb565(c uint16) [4]byte {
	r := byte(c >> 11 & 0x1f)
	g := byte(c >> 5 & 0x3f)
	b := byte(c & 0x1f)
	return [4]byte{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2, 255}
}

func lerp(a, b [4]byte, wa, wb, div int) [4]byte {
	var out [4]byte
	for i := range 3 {
		out[i] = byte((int(a[i])*wa + int(b[i])*wb) / div)
	}
	out[3] = 255
	return out
}

// decodeColorBlock decodes the 8-byte color part. BC1 blocks with c0 <= c1
// use three colors plus transparent black.
func decodeColorBlock(block []byte, out *[16][4]byte, bc1 bool) {
	c0 := binary.LittleEndian.Uint16(block[0:])
	c1 := binary.LittleEndian.Uint16(block[2:])
	bits := binary.LittleEndian.Uint32(block[4:])

	var palette [4][4]byte
	palette[0], palette[1] = rgb565(c0), rgb565(c1)
	if c0 > c1 || !bc1 {
		palette[2] = lerp(palette[0], palette[1], 2, 1, 3)
		palette[3] = lerp(palette[0], palette[1], 1, 2, 3)
	} else {
		palette[2] = lerp(palette[0], palette[1], 1, 1, 2)
		palette[3] = [4]byte{}
	}

	for i := range 16 {
		out[i] = palette[bits>>(2*i)&3]
	}
}

// decodeExplicitAlpha applies BC2's 4-bit alpha.
func decodeExplicitAlpha(block []byte, out *[16][4]byte) {
	bits := binary.LittleEndian.Uint64(block)
	for i := range 16 {
		a := byte(bits >> (4 * i) & 0xf)
		out[i][3] = a<<4 | a
	}
}

// decodeInterpolatedAlpha applies BC3's two-endpoint alpha ramp.
func decodeInterpolatedAlpha(block []byte, out *[16][4]byte) {
	a0, a1 := int(block[0]), int(block[1])
	var ramp [8]byte
	ramp[0], ramp[1] = byte(a0), byte(a1)
	if a0 > a1 {
		for i := 1; i < 7; i++ {
			ramp[i+1] = byte(((7-i)*a0 + i*a1) / 7)
		}
	} else {
		for i := 1; i < 5; i++ {
			ramp[i+1] = byte(((5-i)*a0 + i*a1) / 5)
		}
		ramp[6], ramp[7] = 0, 255
	}

	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(block[2+i]) << (8 * i)
	}
	for i := range 16 {
		out[i][3] = ramp[bits>>(3*i)&7]
	}
}
