package formats

import (
	"errors"
	"testing"
)

// createTestTGA builds a TGA header followed by body.
func createTestTGA(imageType byte, width, height int, bpp byte, topToBottom bool, body []byte) []byte {
	h := make([]byte, 18)
	h[2] = imageType
	h[12], h[13] = byte(width), byte(width>>8)
	h[14], h[15] = byte(height), byte(height>>8)
	h[16] = bpp
	if topToBottom {
		h[17] = 0x20
	}
	return append(h, body...)
}

func TestParseTGA_Uncompressed(t *testing.T) {
	// Bottom-up 2x2, BGR: bottom row blue, green; top row red, white.
	body := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 255, 255, 255,
	}
	img, err := ParseTGA(createTestTGA(TGATypeUncompressed, 2, 2, 24, false, body))
	if err != nil {
		t.Fatalf("ParseTGA failed: %v", err)
	}

	tests := []struct {
		x, y    int
		r, g, b uint8
	}{
		{0, 1, 0, 0, 255},
		{1, 1, 0, 255, 0},
		{0, 0, 255, 0, 0},
		{1, 0, 255, 255, 255},
	}
	for _, tt := range tests {
		c := img.RGBAAt(tt.x, tt.y)
		if c.R != tt.r || c.G != tt.g || c.B != tt.b || c.A != 255 {
			t.Errorf("(%d,%d): expected %d,%d,%d, got %+v", tt.x, tt.y, tt.r, tt.g, tt.b, c)
		}
	}
}

func TestParseTGA_RLE(t *testing.T) {
	// Top-down 3x1, 32-bit: a run of two red pixels, then one raw blue pixel.
	body := []byte{
		0x81, 0, 0, 255, 128,
		0x00, 255, 0, 0, 64,
	}
	img, err := ParseTGA(createTestTGA(TGATypeRLE, 3, 1, 32, true, body))
	if err != nil {
		t.Fatalf("ParseTGA failed: %v", err)
	}
	if c := img.RGBAAt(1, 0); c.R != 255 || c.A != 128 {
		t.Errorf("expected red alpha 128, got %+v", c)
	}
	if c := img.RGBAAt(2, 0); c.B != 255 || c.A != 64 {
		t.Errorf("expected blue alpha 64, got %+v", c)
	}
}

func TestParseTGA_Errors(t *testing.T) {
	colorMapped := createTestTGA(TGATypeUncompressed, 1, 1, 24, false, []byte{0, 0, 0})
	colorMapped[1] = 1

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte{0, 0}, ErrTruncatedTGAData},
		{"color mapped", colorMapped, ErrUnsupportedTGAFormat},
		{"grayscale", createTestTGA(3, 1, 1, 8, false, []byte{0}), ErrUnsupportedTGAFormat},
		{"16-bit", createTestTGA(TGATypeUncompressed, 1, 1, 16, false, []byte{0, 0}), ErrUnsupportedTGAFormat},
		{"truncated pixels", createTestTGA(TGATypeUncompressed, 2, 2, 24, false, []byte{0, 0, 0}), ErrTruncatedTGAData},
		{"truncated run", createTestTGA(TGATypeRLE, 2, 1, 24, false, []byte{0x81, 0}), ErrTruncatedTGAData},
		{"huge uncompressed", createTestTGA(TGATypeUncompressed, 0xffff, 0xffff, 32, false, []byte{0, 0, 0, 0}), ErrTruncatedTGAData},
		{"huge run", createTestTGA(TGATypeRLE, 0xffff, 0xffff, 32, false, []byte{0xff, 0, 0, 0, 0}), ErrTruncatedTGAData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTGA(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
