package pipeline

import (
	"errors"
	"testing"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/gpu/gputest"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/shader"
)

func TestRootSignatures(t *testing.T) {
	dev := gputest.New(gputest.Options{})

	tables, err := RootSignatureTables(dev)
	if err != nil {
		t.Fatalf("RootSignatureTables: %v", err)
	}
	if tables.NumParameters() != 2 || tables.DWords() != 2 {
		t.Errorf("tables: expected 2 parameters / 2 DWORDs, got %d / %d", tables.NumParameters(), tables.DWords())
	}
	p, _ := tables.Parameter(TablesPassParam)
	if p.Type != gpu.ParamDescriptorTable || p.Ranges[0].BaseRegister != 1 {
		t.Errorf("tables: expected pass table at b1, got %+v", p)
	}

	textured, err := RootSignatureTextured(dev)
	if err != nil {
		t.Fatalf("RootSignatureTextured: %v", err)
	}
	if textured.DWords() != 7 {
		t.Errorf("textured: expected 7 DWORDs, got %d", textured.DWords())
	}
	p, _ = textured.Parameter(TexturedMaterialParam)
	if p.Type != gpu.ParamCBV || p.Register != 2 {
		t.Errorf("textured: expected material CBV at b2, got %+v", p)
	}
	p, _ = textured.Parameter(TexturedSRVParam)
	if p.Visibility != gpu.VisibilityPixel || p.Ranges[0].Type != gpu.RangeSRV {
		t.Errorf("textured: expected pixel SRV table, got %+v", p)
	}
}

func TestStaticSamplers(t *testing.T) {
	samplers := StaticSamplers()
	if len(samplers) != 6 {
		t.Fatalf("expected 6 samplers, got %d", len(samplers))
	}

	tests := []struct {
		reg    uint32
		filter gpu.Filter
		addr   gpu.AddressMode
	}{
		{SamplerPointWrap, gpu.FilterPoint, gpu.AddressWrap},
		{SamplerPointClamp, gpu.FilterPoint, gpu.AddressClamp},
		{SamplerLinearWrap, gpu.FilterLinear, gpu.AddressWrap},
		{SamplerLinearClamp, gpu.FilterLinear, gpu.AddressClamp},
		{SamplerAnisotropicWrap, gpu.FilterAnisotropic, gpu.AddressWrap},
		{SamplerAnisotropicClamp, gpu.FilterAnisotropic, gpu.AddressClamp},
	}
	for i, tt := range tests {
		s := samplers[i]
		if s.Register != tt.reg || s.Filter != tt.filter || s.AddressU != tt.addr || s.AddressW != tt.addr {
			t.Errorf("s%d: unexpected sampler %+v", i, s)
		}
	}
	if samplers[SamplerAnisotropicWrap].MaxAnisotropy != 8 {
		t.Errorf("expected anisotropy 8, got %d", samplers[SamplerAnisotropicWrap].MaxAnisotropy)
	}
}

func newCache(t *testing.T, dev *gputest.Device, wireframe bool) *Cache {
	t.Helper()
	rs, err := RootSignatureTables(dev)
	if err != nil {
		t.Fatal(err)
	}
	prog, err := shader.Embedded(shader.Color)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCache(dev, Config{
		RootSignature: rs,
		InputLayout:   mesh.FormatColor.InputLayout(),
		VS:            prog.VS,
		PS:            prog.PS,
		Wireframe:     wireframe,
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c
}

func TestCacheBuildsNamedPipelines(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	c := newCache(t, dev, true)

	if dev.PipelineStatesCreated() != 2 {
		t.Errorf("expected 2 pipelines, got %d", dev.PipelineStatesCreated())
	}

	solid, err := c.Get(Opaque)
	if err != nil {
		t.Fatalf("Get(opaque): %v", err)
	}
	wire, err := c.Get(OpaqueWireframe)
	if err != nil {
		t.Fatalf("Get(opaque_wireframe): %v", err)
	}
	if solid.Desc().FillMode != gpu.FillSolid || wire.Desc().FillMode != gpu.FillWireframe {
		t.Error("unexpected fill modes")
	}
	if wire.Desc().CullMode != gpu.CullBack || wire.Desc().Topology != gpu.TopologyTriangleList {
		t.Error("wireframe should differ from opaque only in fill mode")
	}
	if solid.Desc().RTVFormat != gpu.FormatR8G8B8A8Unorm || solid.Desc().DSVFormat != gpu.FormatD24UnormS8Uint {
		t.Error("expected default target formats")
	}
}

func TestCacheWithoutWireframe(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	c := newCache(t, dev, false)

	if _, err := c.Get(OpaqueWireframe); !errors.Is(err, ErrUnknownPipeline) {
		t.Errorf("expected ErrUnknownPipeline, got %v", err)
	}
	if names := c.Names(); len(names) != 1 || names[0] != Opaque {
		t.Errorf("expected [opaque], got %v", names)
	}
}

func TestRebuild(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	c := newCache(t, dev, true)

	old, _ := c.Get(Opaque)
	prog, _ := shader.Embedded(shader.Color)
	if err := c.Rebuild(prog.VS, prog.PS); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	cur, _ := c.Get(Opaque)
	if cur == old {
		t.Error("expected a new pipeline after rebuild")
	}
	if !old.(*gputest.PipelineState).Released() {
		t.Error("expected old pipeline released")
	}
	if dev.PipelineStatesCreated() != 4 {
		t.Errorf("expected 4 pipelines created, got %d", dev.PipelineStatesCreated())
	}
}

func TestRebuildFailureKeepsPipelines(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	c := newCache(t, dev, true)

	old, _ := c.Get(Opaque)
	if err := c.Rebuild(gpu.ShaderSource{}, gpu.ShaderSource{}); err == nil {
		t.Fatal("expected error for empty shader source")
	}
	cur, err := c.Get(Opaque)
	if err != nil || cur != old {
		t.Error("expected previous pipeline to remain")
	}
	if old.(*gputest.PipelineState).Released() {
		t.Error("previous pipeline released after failed rebuild")
	}
}

func TestTexturedCacheSamplerBinding(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	rs, err := RootSignatureTextured(dev)
	if err != nil {
		t.Fatal(err)
	}
	prog, _ := shader.Embedded(shader.Default)

	_, err = NewCache(dev, Config{
		RootSignature: rs,
		InputLayout:   mesh.FormatLit.InputLayout(),
		VS:            prog.VS,
		PS:            prog.PS,
		Samplers:      []gpu.SamplerBinding{{Texture: 0, Sampler: SamplerAnisotropicWrap}},
	})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	tables, _ := RootSignatureTables(dev)
	_, err = NewCache(dev, Config{
		RootSignature: tables,
		InputLayout:   mesh.FormatLit.InputLayout(),
		VS:            prog.VS,
		PS:            prog.PS,
		Samplers:      []gpu.SamplerBinding{{Texture: 0, Sampler: SamplerAnisotropicWrap}},
	})
	if err == nil {
		t.Error("expected error binding a sampler the root signature lacks")
	}
}
