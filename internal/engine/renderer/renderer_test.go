package renderer

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/towerscene/internal/assets"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/gpu/gputest"
	"github.com/Faultbox/towerscene/internal/engine/input"
	"github.com/Faultbox/towerscene/internal/engine/scene"
	"github.com/Faultbox/towerscene/internal/engine/timer"
	"github.com/Faultbox/towerscene/internal/engine/water"
	"github.com/Faultbox/towerscene/pkg/encoding"
	vmath "github.com/Faultbox/towerscene/pkg/math"
)

const frameDelta = 1.0 / 60

// tga builds a 1x1 24-bit TGA.
func tga() []byte {
	h := make([]byte, 18)
	h[2], h[12], h[14], h[16] = 2, 1, 1, 24
	return append(h, 200, 150, 100)
}

// textureDir writes every scene texture as a TGA next to its DDS name.
func textureDir(t *testing.T) *assets.Manager {
	t.Helper()
	dir := t.TempDir()
	for _, ref := range scene.TextureFiles() {
		name := strings.TrimSuffix(ref.File, filepath.Ext(ref.File)) + ".tga"
		if err := os.WriteFile(filepath.Join(dir, name), tga(), 0644); err != nil {
			t.Fatal(err)
		}
	}
	m := assets.NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Close)
	return m
}

func newRenderer(t *testing.T, dev *gputest.Device, cfg Config) *Renderer {
	t.Helper()
	if cfg.Variant == VariantTextured && cfg.Assets == nil {
		cfg.Assets = textureDir(t)
	}
	if cfg.Waves == (water.Config{}) {
		cfg.Waves = water.DefaultConfig()
	}
	r, err := New(dev, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// runFrames drives n Update/Draw pairs at a fixed delta starting at start.
func runFrames(t *testing.T, r *Renderer, start float32, n int, in input.State) float32 {
	t.Helper()
	total := start
	for i := 0; i < n; i++ {
		total += frameDelta
		if err := r.Update(timer.Snapshot{Total: total, Delta: frameDelta}, in); err != nil {
			t.Fatalf("Update frame %d: %v", r.Frames()+1, err)
		}
		if err := r.Draw(); err != nil {
			t.Fatalf("Draw frame %d: %v", r.Frames()+1, err)
		}
	}
	return total
}

func TestNewRejectsUnknownVariant(t *testing.T) {
	_, err := New(gputest.New(gputest.Options{}), Config{Variant: "deferred"})
	if !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
}

func TestNewTexturedNeedsAssets(t *testing.T) {
	_, err := New(gputest.New(gputest.Options{}), Config{Variant: VariantTextured})
	if !errors.Is(err, ErrNoAssets) {
		t.Errorf("expected ErrNoAssets, got %v", err)
	}
}

func TestNewReleasesOnFailure(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	dev.Fail("CreateGraphicsPipelineState")
	if _, err := New(dev, Config{Variant: VariantShapes}); err == nil {
		t.Fatal("expected pipeline creation failure")
	}
}

func TestFrameResourceDefaults(t *testing.T) {
	tests := []struct {
		variant Variant
		want    int
	}{
		{VariantInit, 3},
		{VariantShapes, 3},
		{VariantTextured, 5},
	}
	for _, tt := range tests {
		r := newRenderer(t, gputest.New(gputest.Options{}), Config{Variant: tt.variant})
		if got := r.Ring().Len(); got != tt.want {
			t.Errorf("%s: expected %d frame resources, got %d", tt.variant, tt.want, got)
		}
	}
}

func TestInitVariantClearsAndPresents(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantInit})
	runFrames(t, r, 0, 2, input.State{})

	if n := len(dev.Draws()); n != 0 {
		t.Errorf("expected no draws, got %d", n)
	}
	presents := dev.Presents()
	if len(presents) != 2 {
		t.Fatalf("expected 2 presents, got %d", len(presents))
	}
	if presents[0].Color != scene.LightSteelBlue {
		t.Errorf("expected LightSteelBlue, got %v", presents[0].Color)
	}
}

func TestColdStart(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantShapes})
	runFrames(t, r, 0, 1, input.State{})

	if v := r.Ring().FenceValue(); v != 1 {
		t.Errorf("expected fence 1 after the first frame, got %d", v)
	}
	if r.Ring().CurrentIndex() != 0 {
		t.Errorf("expected slot 0 current, got %d", r.Ring().CurrentIndex())
	}
	if got := r.Ring().Current().Fence; got != 1 {
		t.Errorf("expected slot fence 1, got %d", got)
	}

	items := r.Scene().Items.Len()
	if n := len(dev.Draws()); n != items {
		t.Errorf("expected %d draws, got %d", items, n)
	}
	w := r.Ring().Current().Writes()
	if w.Objects != items || w.Passes != 1 {
		t.Errorf("expected %d object and 1 pass writes, got %+v", items, w)
	}

	img, err := dev.SwapChain().Capture()
	if err != nil {
		t.Fatal(err)
	}
	c := img.RGBAAt(0, 0)
	if c.R != uint8(scene.LightSteelBlue[0]*255+0.5) || c.B != uint8(scene.LightSteelBlue[2]*255+0.5) {
		t.Errorf("expected LightSteelBlue back buffer, got %+v", c)
	}
	if r.Frames() != 1 {
		t.Errorf("expected 1 frame, got %d", r.Frames())
	}
}

func TestSteadyStateWritesNothing(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantShapes})
	runFrames(t, r, 0, r.Ring().Len(), input.State{})

	for _, it := range r.Scene().Items.All() {
		if n := r.Ring().ObjectFramesDirty(it.ObjCBIndex(), it.Generation()); n != 0 {
			t.Fatalf("item %d: expected 0 dirty frames, got %d", it.ObjCBIndex(), n)
		}
	}

	runFrames(t, r, 1, 1, input.State{})
	if w := r.Ring().Current().Writes(); w.Objects != 0 {
		t.Errorf("expected 0 object writes in steady state, got %d", w.Objects)
	}
	if v := r.Ring().FenceValue(); v != uint64(r.Ring().Len()+1) {
		t.Errorf("expected fence %d, got %d", r.Ring().Len()+1, v)
	}
}

func TestMutationPropagatesToEverySlot(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantShapes})
	total := runFrames(t, r, 0, 3, input.State{})

	it := r.Scene().Items.All()[0]
	it.SetWorld(vmath.Translate(1, 2, 3))
	if n := r.Ring().ObjectFramesDirty(it.ObjCBIndex(), it.Generation()); n != 3 {
		t.Errorf("expected 3 dirty frames after mutation, got %d", n)
	}

	want := []int{1, 1, 1, 0}
	for i, w := range want {
		total = runFrames(t, r, total, 1, input.State{})
		if got := r.Ring().Current().Writes().Objects; got != w {
			t.Errorf("frame %d: expected %d object writes, got %d", 4+i, w, got)
		}
	}

	data, err := dev.Read(r.Ring().Current().ObjectCB.Address(it.ObjCBIndex()), 64)
	if err != nil {
		t.Fatal(err)
	}
	if tx := encoding.Mat4At(data, 0)[12]; tx != 1 {
		t.Errorf("expected translated world in slot, got x=%v", tx)
	}
}

func TestWireframeToggle(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantShapes})

	tests := []struct {
		name      string
		wireframe bool
		want      gpu.FillMode
	}{
		{"solid", false, gpu.FillSolid},
		{"wireframe", true, gpu.FillWireframe},
		{"solid again", false, gpu.FillSolid},
	}
	var total float32
	for _, tt := range tests {
		dev.ResetLog()
		total = runFrames(t, r, total, 1, input.State{Wireframe: tt.wireframe})
		draws := dev.Draws()
		if len(draws) == 0 {
			t.Fatalf("%s: no draws", tt.name)
		}
		for _, d := range draws {
			if got := d.PSO.Desc().FillMode; got != tt.want {
				t.Fatalf("%s: expected fill mode %d, got %d", tt.name, tt.want, got)
			}
		}
	}
	if n := dev.PipelineStatesCreated(); n != 2 {
		t.Errorf("expected 2 pipeline states, got %d", n)
	}
}

func TestTexturedIgnoresWireframe(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantTextured})
	runFrames(t, r, 0, 1, input.State{Wireframe: true})

	for _, d := range dev.Draws() {
		if d.PSO.Desc().FillMode != gpu.FillSolid {
			t.Fatal("expected solid fill in the textured variant")
		}
	}
}

func TestTexturedFrame(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantTextured})
	runFrames(t, r, 0, 1, input.State{})

	s := r.Scene()
	if n := len(dev.Draws()); n != s.Items.Len() {
		t.Errorf("expected %d draws, got %d", s.Items.Len(), n)
	}
	presents := dev.Presents()
	if len(presents) != 1 || presents[0].Color != s.ClearColor {
		t.Errorf("expected the fog clear color, got %+v", presents)
	}
	w := r.Ring().Current().Writes()
	if w.Materials != s.Materials.Len() {
		t.Errorf("expected %d material writes, got %d", s.Materials.Len(), w.Materials)
	}
	if w.Waves != s.Waves.VertexCount() {
		t.Errorf("expected %d wave vertex writes, got %d", s.Waves.VertexCount(), w.Waves)
	}

	last := dev.Draws()[len(dev.Draws())-1]
	vb := r.Ring().Current().WavesVB.Resource().GPUVirtualAddress()
	if last.VertexBuffer.Location != vb {
		t.Errorf("expected wave draw to read the slot's vertex buffer")
	}
	if dev.LiveBuffers() == 0 {
		t.Error("expected live buffers")
	}
}

func TestWaveDisturbance(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantTextured})
	total := runFrames(t, r, 0, 1, input.State{})

	w := r.Scene().Waves
	if h := w.MaxAbsHeight(); h != 0 {
		t.Fatalf("expected flat water, got max height %v", h)
	}
	if err := r.Disturb(64, 64, 0.5); err != nil {
		t.Fatal(err)
	}
	runFrames(t, r, total, 1, input.State{})

	if w.MaxAbsHeight() == 0 {
		t.Fatal("expected disturbed water")
	}
	k := 64*w.Cols() + 64
	data, err := dev.Read(r.Ring().Current().WavesVB.Address(k), 12)
	if err != nil {
		t.Fatal(err)
	}
	if y, want := encoding.Float32At(data, 4), w.Position(k)[1]; y != want {
		t.Errorf("expected uploaded height %v, got %v", want, y)
	}

	shapes := newRenderer(t, gputest.New(gputest.Options{}), Config{Variant: VariantShapes})
	if err := shapes.Disturb(1, 1, 1); err == nil {
		t.Error("expected disturb to fail without waves")
	}
}

func TestRandomDisturbances(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantTextured, DisturbInterval: 0.25, DisturbSeed: 7})
	runFrames(t, r, 0, 20, input.State{})

	if r.Scene().Waves.MaxAbsHeight() == 0 {
		t.Error("expected random disturbances after 20 frames")
	}
}

func TestWaterScroll(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantTextured})

	s := r.Scene()
	total := float32(0)
	for i := 0; i < 100; i++ {
		total += 0.1
		if err := r.Update(timer.Snapshot{Total: total, Delta: 0.1}, input.State{}); err != nil {
			t.Fatal(err)
		}
		if err := r.Draw(); err != nil {
			t.Fatal(err)
		}
	}

	m := s.Materials.Get(s.WaterMaterial)
	tf := m.MatTransform()
	u, v := tf[12], tf[13]
	if d := math.Abs(float64(u) - math.Round(float64(u))); d > 1e-3 {
		t.Errorf("expected u near a whole number after 10s, got %v", u)
	}
	if math.Abs(float64(v)-0.2) > 1e-3 {
		t.Errorf("expected v 0.2 after 10s, got %v", v)
	}
	if n := r.Ring().MaterialFramesDirty(m.MatCBIndex(), m.Generation()); n != r.Ring().Len() {
		t.Errorf("expected %d dirty frames for the scrolled material, got %d", r.Ring().Len(), n)
	}
	if w := r.Ring().Current().Writes(); w.Materials != 1 {
		t.Errorf("expected 1 material write per frame in steady state, got %d", w.Materials)
	}
}

func TestPassConstants(t *testing.T) {
	dev := gputest.New(gputest.Options{Width: 400, Height: 200})
	r := newRenderer(t, dev, Config{Variant: VariantTextured})
	runFrames(t, r, 0, 1, input.State{})

	p := r.Pass()
	if p.RenderTargetSize != [2]float32{400, 200} {
		t.Errorf("expected render target 400x200, got %v", p.RenderTargetSize)
	}
	if p.FogColor != r.Scene().FogColor {
		t.Errorf("expected scene fog, got %v", p.FogColor)
	}
	if p.Lights[0] != r.Scene().Lights[0] {
		t.Errorf("expected scene key light, got %+v", p.Lights[0])
	}
	if p.DeltaTime != frameDelta {
		t.Errorf("expected delta %v, got %v", float32(frameDelta), p.DeltaTime)
	}
}

func TestCameraInput(t *testing.T) {
	r := newRenderer(t, gputest.New(gputest.Options{}), Config{Variant: VariantShapes})
	theta := r.Camera().Theta
	runFrames(t, r, 0, 1, input.State{OrbitDX: 100, ZoomDY: 10})

	if r.Camera().Theta == theta {
		t.Error("expected drag to rotate the camera")
	}
	if r.Pass().EyePosW != r.Camera().Position().Array() {
		t.Error("expected pass eye to follow the camera")
	}
}

func TestResize(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantShapes})
	runFrames(t, r, 0, 2, input.State{})

	if err := r.Resize(1024, 768); err != nil {
		t.Fatal(err)
	}
	runFrames(t, r, 1, 1, input.State{})
	if got := r.Pass().RenderTargetSize; got != [2]float32{1024, 768} {
		t.Errorf("expected 1024x768, got %v", got)
	}
}

func TestReloadShaders(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	r := newRenderer(t, dev, Config{Variant: VariantShapes, ShaderDir: t.TempDir()})
	before := dev.PipelineStatesCreated()

	if err := r.ReloadShaders(); err != nil {
		t.Fatal(err)
	}
	if got := dev.PipelineStatesCreated(); got != before*2 {
		t.Errorf("expected %d pipeline states after reload, got %d", before*2, got)
	}
	runFrames(t, r, 0, 1, input.State{})
}
