package debug

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/bmp"
)

type frameSource struct {
	img *image.RGBA
	err error
}

func (f frameSource) Capture() (*image.RGBA, error) { return f.img, f.err }

func testFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.SetRGBA(1, 2, color.RGBA{R: 176, G: 196, B: 222, A: 255})
	return img
}

func TestCaptureFormats(t *testing.T) {
	tests := []struct {
		format string
		decode func(*os.File) (image.Image, error)
	}{
		{"png", func(f *os.File) (image.Image, error) { return png.Decode(f) }},
		{"BMP", func(f *os.File) (image.Image, error) { return bmp.Decode(f) }},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "shots")
			sc, err := NewScreenshotCapture(dir, "towerscene", tt.format)
			if err != nil {
				t.Fatalf("NewScreenshotCapture: %v", err)
			}
			sc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

			path, err := sc.Capture(frameSource{img: testFrame()})
			if err != nil {
				t.Fatalf("Capture: %v", err)
			}
			want := filepath.Join(dir, "towerscene_2026-01-02_03-04-05.000."+strings.ToLower(tt.format))
			if path != want {
				t.Errorf("expected %s, got %s", want, path)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			img, err := tt.decode(f)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			r, g, b, _ := img.At(1, 2).RGBA()
			if r>>8 != 176 || g>>8 != 196 || b>>8 != 222 {
				t.Errorf("expected LightSteelBlue pixel, got %d %d %d", r>>8, g>>8, b>>8)
			}
		})
	}
}

func TestCaptureErrors(t *testing.T) {
	if _, err := NewScreenshotCapture(t.TempDir(), "x", "jpg"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	sc, _ := NewScreenshotCapture(t.TempDir(), "x", "png")
	readback := errors.New("readback failed")
	if _, err := sc.Capture(frameSource{err: readback}); !errors.Is(err, readback) {
		t.Errorf("expected readback error, got %v", err)
	}
}
