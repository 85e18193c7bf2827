package mesh

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Faultbox/towerscene/internal/engine/geometry"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/gpu/gputest"
	"github.com/Faultbox/towerscene/pkg/encoding"
)

var red = [4]float32{1, 0, 0, 1}

func TestBuildOffsets(t *testing.T) {
	box := geometry.Box(1, 1, 1, 0)
	grid := geometry.Grid(2, 2, 3, 3)
	sphere := geometry.Sphere(1, 8, 6)

	g, err := NewBuilder("shapeGeo", FormatColor).
		Add("box", box, red).
		Add("grid", grid, red).
		Add("sphere", sphere, red).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		name string
		want Submesh
	}{
		{"box", Submesh{IndexCount: 36, StartIndexLocation: 0, BaseVertexLocation: 0}},
		{"grid", Submesh{IndexCount: uint32(len(grid.Indices32)), StartIndexLocation: 36, BaseVertexLocation: 24}},
		{"sphere", Submesh{
			IndexCount:         uint32(len(sphere.Indices32)),
			StartIndexLocation: 36 + uint32(len(grid.Indices32)),
			BaseVertexLocation: 24 + int32(len(grid.Vertices)),
		}},
	}

	for _, tt := range tests {
		got, err := g.Submesh(tt.name)
		if err != nil {
			t.Fatalf("Submesh(%s): %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %+v, got %+v", tt.name, tt.want, got)
		}
	}
}

func TestBuildTotals(t *testing.T) {
	meshes := map[string]geometry.MeshData{
		"box":      geometry.Box(1.5, 0.5, 1.5, 1),
		"cylinder": geometry.Cylinder(0.5, 0.3, 3, 20, 20),
		"pyramid":  geometry.Pyramid(1.5, 1.5, 1.5, 1),
	}

	for _, format := range []VertexFormat{FormatColor, FormatLit} {
		b := NewBuilder("geo", format)
		var verts, indices int
		for _, name := range []string{"box", "cylinder", "pyramid"} {
			b.Add(name, meshes[name], red)
			verts += len(meshes[name].Vertices)
			indices += len(meshes[name].Indices32)
		}
		g, err := b.Build()
		if err != nil {
			t.Fatalf("Build: %v", err)
		}

		if got := len(g.VertexBufferCPU) / int(format.Stride()); got != verts {
			t.Errorf("format %d: expected %d vertices, got %d", format, verts, got)
		}
		if g.VertexCount() != verts {
			t.Errorf("format %d: VertexCount %d, want %d", format, g.VertexCount(), verts)
		}
		if g.IndexCount() != indices {
			t.Errorf("format %d: expected %d indices, got %d", format, indices, g.IndexCount())
		}
	}
}

func TestColorVertexEncoding(t *testing.T) {
	box := geometry.Box(2, 2, 2, 0)
	g, err := NewBuilder("geo", FormatColor).Add("box", box, [4]float32{0.1, 0.2, 0.3, 1}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	vb := g.VertexBufferCPU
	if encoding.Float32At(vb, 0) != -1 || encoding.Float32At(vb, 4) != -1 || encoding.Float32At(vb, 8) != -1 {
		t.Errorf("unexpected first position")
	}
	if encoding.Float32At(vb, 12) != 0.1 || encoding.Float32At(vb, 24) != 1 {
		t.Errorf("unexpected first color")
	}
	// Second vertex starts one stride in.
	if encoding.Float32At(vb, ColorVertexStride+4) != 1 {
		t.Errorf("expected second vertex y = 1, got %v", encoding.Float32At(vb, ColorVertexStride+4))
	}
}

func TestDuplicateSubmesh(t *testing.T) {
	box := geometry.Box(1, 1, 1, 0)
	_, err := NewBuilder("geo", FormatColor).Add("box", box, red).Add("box", box, red).Build()
	if !errors.Is(err, ErrDuplicateSubmesh) {
		t.Errorf("expected ErrDuplicateSubmesh, got %v", err)
	}
}

func TestUnknownSubmesh(t *testing.T) {
	g, _ := NewBuilder("geo", FormatColor).Add("box", geometry.Box(1, 1, 1, 0), red).Build()
	if _, err := g.Submesh("pentagonalprismprism"); !errors.Is(err, ErrUnknownSubmesh) {
		t.Errorf("expected ErrUnknownSubmesh, got %v", err)
	}
}

func TestUploadAndDispose(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	alloc, _ := dev.CreateCommandAllocator()
	cmd, _ := dev.CreateCommandList(alloc, nil)

	g, _ := NewBuilder("geo", FormatLit).Add("grid", geometry.Grid(4, 4, 5, 5), red).Build()
	if err := g.Upload(dev, cmd); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !g.HasUploaders() {
		t.Fatal("expected staging buffers before the fence")
	}
	_ = cmd.Close()
	if err := dev.Queue().Execute(cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !bytes.Equal(g.VertexBufferGPU.(*gputest.Buffer).Bytes(), g.VertexBufferCPU) {
		t.Error("GPU vertex buffer differs from CPU copy")
	}
	if !bytes.Equal(g.IndexBufferGPU.(*gputest.Buffer).Bytes(), g.IndexBufferCPU) {
		t.Error("GPU index buffer differs from CPU copy")
	}

	live := dev.LiveBuffers()
	g.DisposeUploaders()
	if g.HasUploaders() {
		t.Error("uploaders should be gone")
	}
	if dev.LiveBuffers() != live-2 {
		t.Errorf("expected 2 staging buffers released, live %d -> %d", live, dev.LiveBuffers())
	}

	vbv := g.VertexBufferView()
	if vbv.Stride != LitVertexStride || vbv.Size != 25*LitVertexStride {
		t.Errorf("unexpected vertex buffer view %+v", vbv)
	}
	if ibv := g.IndexBufferView(); ibv.Format != gpu.FormatR16Uint {
		t.Errorf("expected R16 indices, got %v", ibv.Format)
	}
}

func TestDynamicGeometry(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	g := NewDynamic("waterGeo", "grid", LitVertexStride, 4, []uint16{0, 1, 2, 2, 1, 3})

	if g.VertexBufferView().Location != 0 {
		t.Error("dynamic geometry should have no vertex buffer before SetVertexBuffer")
	}
	sm, err := g.Submesh("grid")
	if err != nil || sm.IndexCount != 6 {
		t.Fatalf("unexpected submesh %+v, %v", sm, err)
	}

	buf, _ := dev.CreateBuffer(gpu.HeapUpload, 4*LitVertexStride, gpu.StateGenericRead)
	g.SetVertexBuffer(buf)
	if g.VertexBufferView().Location != buf.GPUVirtualAddress() {
		t.Error("vertex buffer view should follow SetVertexBuffer")
	}

	g.Release()
	if buf.(*gputest.Buffer).Released() {
		t.Error("dynamic vertex buffer must not be released by the geometry")
	}
}
