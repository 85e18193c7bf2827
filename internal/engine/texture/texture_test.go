package texture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/towerscene/internal/assets"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/gpu/gputest"
)

// rgbaDDS builds a 2x2 uncompressed DDS with a 1x1 second mip.
func rgbaDDS() []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("DDS ")
	header := make([]uint32, 31)
	header[0] = 124
	header[1] = 0x1007
	header[2], header[3] = 2, 2
	header[6] = 2
	header[18] = 32
	header[19] = 0x40
	header[21] = 32
	header[22] = 0x000000ff
	header[23] = 0x0000ff00
	header[24] = 0x00ff0000
	header[25] = 0xff000000
	binary.Write(buf, binary.LittleEndian, header)
	for i := 0; i < 4; i++ {
		buf.Write([]byte{byte(i * 10), 1, 2, 255})
	}
	buf.Write([]byte{9, 9, 9, 255})
	return buf.Bytes()
}

// tga builds a 1x1 24-bit TGA.
func tga() []byte {
	h := make([]byte, 18)
	h[2], h[12], h[14], h[16] = 2, 1, 1, 24
	return append(h, 30, 20, 10)
}

func TestDecode(t *testing.T) {
	img, err := Decode("bricksTex", "bricks.dds", rgbaDDS())
	if err != nil {
		t.Fatalf("Decode dds: %v", err)
	}
	if len(img.Levels) != 2 || img.Width() != 2 || img.Height() != 2 {
		t.Errorf("expected 2x2 with 2 mips, got %dx%d with %d", img.Width(), img.Height(), len(img.Levels))
	}
	if c := img.Levels[0].RGBAAt(1, 1); c.R != 30 {
		t.Errorf("expected texel 3 red 30, got %+v", c)
	}

	img, err = Decode("tileTex", "TILE.TGA", tga())
	if err != nil {
		t.Fatalf("Decode tga: %v", err)
	}
	if c := img.Levels[0].RGBAAt(0, 0); c.R != 10 || c.B != 30 {
		t.Errorf("expected BGR swizzle, got %+v", c)
	}

	if _, err := Decode("x", "x.png", nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadFallsBackToTGA(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "lantern.tga"), tga(), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bricks.dds"), rgbaDDS(), 0644); err != nil {
		t.Fatal(err)
	}

	m := assets.NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatal(err)
	}

	img, err := Load(m, "lanternTex", "lantern.dds")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.File != "lantern.tga" {
		t.Errorf("expected lantern.tga, got %s", img.File)
	}

	img, err = Load(m, "bricksTex", "bricks.dds")
	if err != nil || img.File != "bricks.dds" {
		t.Errorf("expected bricks.dds, got %v (%v)", img, err)
	}

	if _, err := Load(m, "roofTex", "rooftile.dds"); !errors.Is(err, assets.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpload(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	alloc, _ := dev.CreateCommandAllocator()
	cmd, _ := dev.CreateCommandList(alloc, nil)

	img, err := Decode("bricksTex", "bricks.dds", rgbaDDS())
	if err != nil {
		t.Fatal(err)
	}
	tex, err := Upload(dev, cmd, img)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := cmd.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := dev.Queue().Execute(cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if tex.Resource.State() != gpu.StatePixelShaderResource {
		t.Errorf("expected PIXEL_SHADER_RESOURCE, got %s", tex.Resource.State())
	}
	desc := tex.Resource.Desc()
	if desc.MipLevels != 2 || desc.Format != gpu.FormatR8G8B8A8Unorm {
		t.Errorf("unexpected desc %+v", desc)
	}
	if got := len(tex.Resource.(*gputest.Texture).Bytes()); got != 2*2*4+4 {
		t.Errorf("expected 20 texel bytes, got %d", got)
	}

	tex.DisposeUploader()
	if tex.UploadHeap != nil {
		t.Error("expected staging buffer released")
	}
	tex.Release()
}
