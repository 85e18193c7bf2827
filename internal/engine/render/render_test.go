package render

import (
	"bytes"
	"errors"
	"maps"
	"testing"

	"github.com/Faultbox/towerscene/internal/engine/descriptor"
	"github.com/Faultbox/towerscene/internal/engine/frame"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/gpu/gputest"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/pipeline"
	"github.com/Faultbox/towerscene/internal/engine/store"
	"github.com/Faultbox/towerscene/internal/engine/upload"
	"github.com/Faultbox/towerscene/pkg/encoding"
	vmath "github.com/Faultbox/towerscene/pkg/math"
)

func TestConstantSizes(t *testing.T) {
	w := encoding.NewWriter(0)
	ObjectConstants{World: vmath.Identity(), TexTransform: vmath.Identity()}.Encode(w)
	if w.Len() != ObjectConstantsSize {
		t.Errorf("object constants: expected %d bytes, got %d", ObjectConstantsSize, w.Len())
	}

	w.Reset()
	NewMaterial("m", 0, 0).Constants().Encode(w)
	if w.Len() != MaterialConstantsSize {
		t.Errorf("material constants: expected %d bytes, got %d", MaterialConstantsSize, w.Len())
	}

	w.Reset()
	p := NewPassConstants()
	p.Encode(w)
	if w.Len() != PassConstantsSize {
		t.Errorf("pass constants: expected %d bytes, got %d", PassConstantsSize, w.Len())
	}
}

func TestPassConstantsLayout(t *testing.T) {
	p := NewPassConstants()
	p.EyePosW = [3]float32{1, 2, 3}
	p.RenderTargetSize = [2]float32{800, 600}
	p.NearZ = 1
	p.FarZ = 1000
	p.TotalTime = 10
	p.FogStart = 5
	p.Lights[0].Strength = [3]float32{0.6, 0.6, 0.6}
	p.Lights[2].Direction = [3]float32{0, -0.707, -0.707}

	w := encoding.NewWriter(PassConstantsSize)
	p.Encode(w)
	b := w.Bytes()

	tests := []struct {
		name string
		off  int
		want float32
	}{
		{"eye z", 392, 3},
		{"rt width", 400, 800},
		{"near", 416, 1},
		{"far", 420, 1000},
		{"total time", 424, 10},
		{"ambient alpha", 444, 1},
		{"fog red", 448, 0.7},
		{"fog start", 464, 5},
		{"fog range", 468, 150},
		{"light 0 strength", 480, 0.6},
		{"light 0 falloff start", 492, 1},
		{"light 2 direction y", 480 + 2*LightSize + 16 + 4, -0.707},
		{"light 15 spot power", 480 + 15*LightSize + 44, 64},
	}
	for _, tt := range tests {
		if got := encoding.Float32At(b, tt.off); got != tt.want {
			t.Errorf("%s at %d: expected %v, got %v", tt.name, tt.off, tt.want, got)
		}
	}
}

func TestMaterialSettersBumpGeneration(t *testing.T) {
	m := NewMaterial("water", 3, 4)
	if m.Generation() != 1 {
		t.Fatalf("expected initial generation 1, got %d", m.Generation())
	}

	m.SetDiffuseAlbedo([4]float32{1, 1, 1, 0.5})
	m.SetFresnelR0([3]float32{0.2, 0.2, 0.2})
	m.SetRoughness(0)
	m.SetMatTransform(vmath.Translate(0.5, 0, 0))
	m.SetDiffuseSrvHeapIndex(1)

	if m.Generation() != 6 {
		t.Errorf("expected generation 6, got %d", m.Generation())
	}
	c := m.Constants()
	if c.DiffuseAlbedo[3] != 0.5 || c.Roughness != 0 || c.MatTransform.Translation().X != 0.5 {
		t.Errorf("unexpected constants %+v", c)
	}
	if m.MatCBIndex() != 3 || m.DiffuseSrvHeapIndex() != 1 {
		t.Errorf("unexpected indices %d %d", m.MatCBIndex(), m.DiffuseSrvHeapIndex())
	}
}

func geoStore(t *testing.T) (*store.Store[mesh.Geometry], store.Handle[mesh.Geometry]) {
	t.Helper()
	geos := store.New[mesh.Geometry]()
	h, err := geos.Add("shapeGeo", &mesh.Geometry{Name: "shapeGeo", VertexByteStride: 28})
	if err != nil {
		t.Fatal(err)
	}
	return geos, h
}

func TestListAssignsDenseIndices(t *testing.T) {
	_, geo := geoStore(t)
	l := NewList()

	for i := 0; i < 5; i++ {
		it, err := l.Add(ItemDesc{Geo: geo, Submesh: mesh.Submesh{IndexCount: 36}})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if it.ObjCBIndex() != i {
			t.Errorf("item %d: expected ObjCBIndex %d, got %d", i, i, it.ObjCBIndex())
		}
		if it.Topology != gpu.TopologyTriangleList {
			t.Errorf("expected triangle list default, got %v", it.Topology)
		}
		if it.World() != vmath.Identity() {
			t.Error("expected identity world by default")
		}
	}
	if err := l.Validate(false); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if len(l.Layer(LayerOpaque)) != 5 {
		t.Errorf("expected 5 opaque items, got %d", len(l.Layer(LayerOpaque)))
	}
	if err := l.Validate(true); !errors.Is(err, ErrMaterialRequired) {
		t.Errorf("expected ErrMaterialRequired, got %v", err)
	}

	l.All()[3].objCBIndex = 1
	if err := l.Validate(false); !errors.Is(err, ErrSparseCBIndex) {
		t.Errorf("expected ErrSparseCBIndex, got %v", err)
	}
}

func TestListRejectsInvalidItems(t *testing.T) {
	_, geo := geoStore(t)
	l := NewList()

	tests := []struct {
		name string
		desc ItemDesc
		want error
	}{
		{"no geometry", ItemDesc{Submesh: mesh.Submesh{IndexCount: 3}}, ErrNoGeometry},
		{"empty draw", ItemDesc{Geo: geo}, ErrEmptyDraw},
		{"bad layer", ItemDesc{Geo: geo, Submesh: mesh.Submesh{IndexCount: 3}, Layer: LayerCount}, ErrUnknownLayer},
	}
	for _, tt := range tests {
		if _, err := l.Add(tt.desc); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
	if l.Len() != 0 {
		t.Errorf("expected no items after rejected adds, got %d", l.Len())
	}
}

type ringHarness struct {
	dev  *gputest.Device
	ring *frame.Ring
}

func newRingHarness(t *testing.T, n, objects, materials int) *ringHarness {
	t.Helper()
	dev := gputest.New(gputest.Options{})
	f, _ := dev.CreateFence(0)
	ring, err := frame.NewRing(dev, f, n, FrameLayout(objects, materials, 0))
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	t.Cleanup(ring.Close)
	return &ringHarness{dev: dev, ring: ring}
}

func (h *ringHarness) next(t *testing.T) *frame.Resource {
	t.Helper()
	res, err := h.ring.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := h.ring.Submit(h.dev.Queue()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return res
}

func TestUpdateObjectCBsSteadyState(t *testing.T) {
	const n = 3
	_, geo := geoStore(t)
	l := NewList()
	for i := 0; i < 4; i++ {
		if _, err := l.Add(ItemDesc{Geo: geo, Submesh: mesh.Submesh{IndexCount: 3}}); err != nil {
			t.Fatal(err)
		}
	}
	h := newRingHarness(t, n, l.Len(), 0)

	want := []int{4, 4, 4, 0, 0}
	for frameNo, w := range want {
		res := h.next(t)
		got, err := UpdateObjectCBs(res, l.All())
		if err != nil {
			t.Fatalf("UpdateObjectCBs: %v", err)
		}
		if got != w {
			t.Errorf("frame %d: expected %d writes, got %d", frameNo+1, w, got)
		}
	}

	l.All()[2].SetWorld(vmath.Translate(0, 1, 0))
	if d := h.ring.ObjectFramesDirty(2, l.All()[2].Generation()); d != n {
		t.Errorf("expected %d dirty frames after mutation, got %d", n, d)
	}

	want = []int{1, 1, 1, 0}
	for frameNo, w := range want {
		res := h.next(t)
		got, _ := UpdateObjectCBs(res, l.All())
		if got != w {
			t.Errorf("after mutation frame %d: expected %d writes, got %d", frameNo+1, w, got)
		}
		d := h.ring.ObjectFramesDirty(2, l.All()[2].Generation())
		if d < 0 || d > n {
			t.Errorf("dirty count %d out of [0, %d]", d, n)
		}
	}
}

func TestIdenticalBytesInAllSlots(t *testing.T) {
	const n = 3
	_, geo := geoStore(t)
	l := NewList()
	it, _ := l.Add(ItemDesc{Geo: geo, Submesh: mesh.Submesh{IndexCount: 3}})
	it.SetWorld(vmath.Translate(3, 2, 1).Mul(vmath.Scale(2, 2, 2)))
	it.SetTexTransform(vmath.Scale(5, 5, 1))

	h := newRingHarness(t, n, 1, 0)
	for i := 0; i < n; i++ {
		res := h.next(t)
		if _, err := UpdateObjectCBs(res, l.All()); err != nil {
			t.Fatal(err)
		}
	}

	first, _ := h.dev.Read(h.ring.Resource(0).ObjectCB.Address(0), ObjectConstantsSize)
	for i := 1; i < n; i++ {
		got, _ := h.dev.Read(h.ring.Resource(i).ObjectCB.Address(0), ObjectConstantsSize)
		if !bytes.Equal(first, got) {
			t.Errorf("slot %d differs from slot 0", i)
		}
	}
	if m := encoding.Mat4At(first, 0); m.Translation().X != 3 {
		t.Errorf("expected translation x 3, got %v", m.Translation().X)
	}
	if tex := encoding.Mat4At(first, 64); tex[0] != 5 || tex[5] != 5 {
		t.Errorf("expected tex transform scale 5, got %v", tex)
	}
}

func TestUpdateMaterialCBs(t *testing.T) {
	mats := store.New[Material]()
	for i, name := range []string{"grass", "water", "bricks"} {
		if _, err := mats.Add(name, NewMaterial(name, i, i)); err != nil {
			t.Fatal(err)
		}
	}
	h := newRingHarness(t, 2, 1, mats.Len())

	for i, w := range []int{3, 3, 0} {
		got, err := UpdateMaterialCBs(h.next(t), mats)
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("frame %d: expected %d writes, got %d", i+1, w, got)
		}
	}

	water, _ := mats.Lookup("water")
	mats.Get(water).SetRoughness(0)
	res := h.next(t)
	if got, _ := UpdateMaterialCBs(res, mats); got != 1 {
		t.Errorf("expected 1 write after mutation, got %d", got)
	}
	b, _ := h.dev.Read(res.MaterialCB.Address(1), MaterialConstantsSize)
	if r := encoding.Float32At(b, 28); r != 0 {
		t.Errorf("expected roughness 0 in slot, got %v", r)
	}
}

// recorder captures the binding calls DrawItems makes.
type recorder struct {
	gpu.CommandList
	tables   map[uint32]gpu.GPUDescriptorHandle
	cbvs     map[uint32]gpu.Address
	topology gpu.PrimitiveTopology
	draws    []draw
}

type draw struct {
	tables        map[uint32]gpu.GPUDescriptorHandle
	cbvs          map[uint32]gpu.Address
	indexCount    uint32
	instanceCount uint32
	startIndex    uint32
	baseVertex    int32
	topology      gpu.PrimitiveTopology
}

func newRecorder() *recorder {
	return &recorder{tables: map[uint32]gpu.GPUDescriptorHandle{}, cbvs: map[uint32]gpu.Address{}}
}

var _ gpu.CommandList = (*recorder)(nil)

func (r *recorder) SetVertexBuffers(uint32, ...gpu.VertexBufferView) {}

func (r *recorder) SetIndexBuffer(gpu.IndexBufferView) {}

func (r *recorder) SetPrimitiveTopology(t gpu.PrimitiveTopology) { r.topology = t }

func (r *recorder) SetGraphicsRootDescriptorTable(slot uint32, h gpu.GPUDescriptorHandle) {
	r.tables[slot] = h
}

func (r *recorder) SetGraphicsRootConstantBufferView(slot uint32, a gpu.Address) {
	r.cbvs[slot] = a
}

func (r *recorder) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, _ uint32) {
	r.draws = append(r.draws, draw{
		tables:        maps.Clone(r.tables),
		cbvs:          maps.Clone(r.cbvs),
		indexCount:    indexCount,
		instanceCount: instanceCount,
		startIndex:    startIndex,
		baseVertex:    baseVertex,
		topology:      r.topology,
	})
}

func TestDrawItemsTableBinder(t *testing.T) {
	const objects, frames = 22, 3
	h := newRingHarness(t, frames, objects, 0)
	geos, geo := geoStore(t)

	l := NewList()
	for i := 0; i < objects; i++ {
		sm := mesh.Submesh{IndexCount: uint32(3 * (i + 1)), StartIndexLocation: uint32(i), BaseVertexLocation: int32(i * 2)}
		if _, err := l.Add(ItemDesc{Geo: geo, Submesh: sm}); err != nil {
			t.Fatal(err)
		}
	}

	layout := descriptor.CBVLayout{Objects: objects, Frames: frames}
	heap, err := descriptor.BuildCBVHeap(h.dev, h.ring, layout)
	if err != nil {
		t.Fatalf("BuildCBVHeap: %v", err)
	}

	rec := newRecorder()
	b := TableBinder{Heap: heap, Layout: layout, Frame: 1}
	if err := DrawItems(rec, geos, l.All(), b); err != nil {
		t.Fatalf("DrawItems: %v", err)
	}
	if len(rec.draws) != objects {
		t.Fatalf("expected %d draws, got %d", objects, len(rec.draws))
	}

	d := rec.draws[5]
	slot, err := heap.IndexOf(d.tables[pipeline.TablesObjectParam])
	if err != nil {
		t.Fatalf("IndexOf: %v", err)
	}
	if slot != 27 {
		t.Errorf("object 5 frame 1: expected descriptor 27, got %d", slot)
	}
	if d.indexCount != 18 || d.startIndex != 5 || d.baseVertex != 10 || d.instanceCount != 1 {
		t.Errorf("unexpected draw arguments %+v", d)
	}
	if d.topology != gpu.TopologyTriangleList {
		t.Errorf("expected triangle list, got %v", d.topology)
	}
}

func TestTableBinderRejectsOutOfLayout(t *testing.T) {
	h := newRingHarness(t, 3, 2, 0)
	geos, geo := geoStore(t)
	layout := descriptor.CBVLayout{Objects: 2, Frames: 3}
	heap, _ := descriptor.BuildCBVHeap(h.dev, h.ring, layout)

	l := NewList()
	for i := 0; i < 3; i++ {
		l.Add(ItemDesc{Geo: geo, Submesh: mesh.Submesh{IndexCount: 3}})
	}
	err := DrawItems(newRecorder(), geos, l.All(), TableBinder{Heap: heap, Layout: layout})
	if !errors.Is(err, gpu.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestDrawItemsRootBinder(t *testing.T) {
	dev := gputest.New(gputest.Options{})
	geos, geo := geoStore(t)

	mats := store.New[Material]()
	grass, _ := mats.Add("grass", NewMaterial("grass", 0, 0))
	water, _ := mats.Add("water", NewMaterial("water", 1, 4))

	var textures []gpu.Texture
	for i := 0; i < 5; i++ {
		tex, _ := dev.CreateTexture(gpu.TextureDesc{Width: 4, Height: 4, MipLevels: 1, Format: gpu.FormatBC1Unorm}, gpu.StatePixelShaderResource)
		textures = append(textures, tex)
	}
	srv, err := descriptor.SRVTable(dev, textures)
	if err != nil {
		t.Fatal(err)
	}

	objCB, _ := upload.NewBuffer(dev, ObjectConstantsSize, 2, true)
	matCB, _ := upload.NewBuffer(dev, MaterialConstantsSize, 2, true)

	l := NewList()
	l.Add(ItemDesc{Geo: geo, Mat: grass, Submesh: mesh.Submesh{IndexCount: 6}})
	l.Add(ItemDesc{Geo: geo, Mat: water, Submesh: mesh.Submesh{IndexCount: 6}})

	rec := newRecorder()
	b := RootBinder{ObjectCB: objCB, MaterialCB: matCB, Materials: mats, SRVHeap: srv}
	if err := DrawItems(rec, geos, l.All(), b); err != nil {
		t.Fatalf("DrawItems: %v", err)
	}

	d := rec.draws[1]
	if d.cbvs[pipeline.TexturedObjectParam] != objCB.Address(1) {
		t.Errorf("expected object CBV at element 1")
	}
	if got := d.cbvs[pipeline.TexturedMaterialParam]; got.Offset() != 256 {
		t.Errorf("expected material CBV at offset 256, got %d", got.Offset())
	}
	slot, err := srv.IndexOf(d.tables[pipeline.TexturedSRVParam])
	if err != nil || slot != 4 {
		t.Errorf("expected SRV slot 4, got %d (%v)", slot, err)
	}

	l2 := NewList()
	l2.Add(ItemDesc{Geo: geo, Submesh: mesh.Submesh{IndexCount: 6}})
	if err := DrawItems(newRecorder(), geos, l2.All(), b); !errors.Is(err, ErrMaterialRequired) {
		t.Errorf("expected ErrMaterialRequired, got %v", err)
	}
}
