package render

import (
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/descriptor"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/pipeline"
	"github.com/Faultbox/towerscene/internal/engine/store"
	"github.com/Faultbox/towerscene/internal/engine/upload"
)

// Binder binds an item's per-object resources before its draw.
type Binder interface {
	Bind(cmd gpu.CommandList, it *Item) error
}

// DrawItems records one indexed draw per item.
func DrawItems(cmd gpu.CommandList, geos *store.Store[mesh.Geometry], items []*Item, b Binder) error {
	for _, it := range items {
		geo := geos.Get(it.Geo)

		cmd.SetVertexBuffers(0, geo.VertexBufferView())
		cmd.SetIndexBuffer(geo.IndexBufferView())
		cmd.SetPrimitiveTopology(it.Topology)

		if err := b.Bind(cmd, it); err != nil {
			return fmt.Errorf("bind item %d: %w", it.objCBIndex, err)
		}

		cmd.DrawIndexedInstanced(it.IndexCount, 1, it.StartIndexLocation, it.BaseVertexLocation, 0)
	}
	return nil
}

// TableBinder binds each item's object CBV through the per-frame region of a
// CBV heap.
type TableBinder struct {
	Heap   *gpu.DescriptorHeap
	Layout descriptor.CBVLayout
	Frame  int
}

// Bind implements Binder.
func (b TableBinder) Bind(cmd gpu.CommandList, it *Item) error {
	if it.objCBIndex >= b.Layout.Objects {
		return fmt.Errorf("object %d of %d: %w", it.objCBIndex, b.Layout.Objects, gpu.ErrOutOfRange)
	}
	slot := b.Layout.ObjectIndex(b.Frame, it.objCBIndex)
	cmd.SetGraphicsRootDescriptorTable(pipeline.TablesObjectParam, descriptor.TableStart(b.Heap, slot))
	return nil
}

// RootBinder binds object and material constants as root CBVs and the
// material's diffuse texture through the SRV heap.
type RootBinder struct {
	ObjectCB   *upload.Buffer
	MaterialCB *upload.Buffer
	Materials  *store.Store[Material]
	SRVHeap    *gpu.DescriptorHeap
}

// Bind implements Binder.
func (b RootBinder) Bind(cmd gpu.CommandList, it *Item) error {
	if !it.Mat.Valid() {
		return ErrMaterialRequired
	}
	mat := b.Materials.Get(it.Mat)

	cmd.SetGraphicsRootDescriptorTable(pipeline.TexturedSRVParam,
		descriptor.TableStart(b.SRVHeap, mat.diffuseSrvHeapIndex))
	cmd.SetGraphicsRootConstantBufferView(pipeline.TexturedObjectParam, b.ObjectCB.Address(it.objCBIndex))
	cmd.SetGraphicsRootConstantBufferView(pipeline.TexturedMaterialParam, b.MaterialCB.Address(mat.matCBIndex))
	return nil
}
