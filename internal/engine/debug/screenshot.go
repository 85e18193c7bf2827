// Package debug provides screenshot capture.
package debug

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/bmp"
)

// ErrUnknownFormat is returned for screenshot formats other than png and bmp.
var ErrUnknownFormat = errors.New("debug: unknown screenshot format")

// Capturer reads back the last presented frame.
type Capturer interface {
	Capture() (*image.RGBA, error)
}

// ScreenshotCapture handles screenshot capture functionality.
type ScreenshotCapture struct {
	outputDir string
	prefix    string
	format    string
	now       func() time.Time
}

// NewScreenshotCapture creates a new screenshot capture handler. format is
// "png" or "bmp".
func NewScreenshotCapture(outputDir, prefix, format string) (*ScreenshotCapture, error) {
	format = strings.ToLower(format)
	if format != "png" && format != "bmp" {
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
	return &ScreenshotCapture{
		outputDir: outputDir,
		prefix:    prefix,
		format:    format,
		now:       time.Now,
	}, nil
}

// Capture reads the frame from src and writes it to a timestamped file.
func (sc *ScreenshotCapture) Capture(src Capturer) (string, error) {
	img, err := src.Capture()
	if err != nil {
		return "", fmt.Errorf("reading back frame: %w", err)
	}
	return sc.CaptureFromImage(img)
}

// CaptureFromImage writes img to a timestamped file.
func (sc *ScreenshotCapture) CaptureFromImage(img image.Image) (string, error) {
	// Create output directory if needed
	if sc.outputDir != "" {
		if err := os.MkdirAll(sc.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := sc.GenerateFilename()
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := sc.encode(file, img); err != nil {
		return "", err
	}
	return filename, nil
}

func (sc *ScreenshotCapture) encode(w io.Writer, img image.Image) error {
	if sc.format == "bmp" {
		if err := bmp.Encode(w, img); err != nil {
			return fmt.Errorf("encoding BMP: %w", err)
		}
		return nil
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// GenerateFilename generates a screenshot filename without saving.
func (sc *ScreenshotCapture) GenerateFilename() string {
	timestamp := sc.now().Format("2006-01-02_15-04-05.000")
	filename := fmt.Sprintf("%s_%s.%s", sc.prefix, timestamp, sc.format)
	if sc.outputDir != "" {
		filename = filepath.Join(sc.outputDir, filename)
	}
	return filename
}
