package render

import (
	"errors"
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/store"
	vmath "github.com/Faultbox/towerscene/pkg/math"
)

// Errors returned by List.
var (
	ErrNoGeometry       = errors.New("render: item has no geometry")
	ErrEmptyDraw        = errors.New("render: item draws no indices")
	ErrSparseCBIndex    = errors.New("render: object CB indices not dense")
	ErrUnknownLayer     = errors.New("render: unknown layer")
	ErrMaterialRequired = errors.New("render: item has no material")
)

// Layer groups items drawn with the same pipeline.
type Layer int

const (
	LayerOpaque Layer = iota
	LayerCount
)

// ItemDesc describes an item to add to a List.
type ItemDesc struct {
	World        vmath.Mat4
	TexTransform vmath.Mat4
	Geo          store.Handle[mesh.Geometry]
	Mat          store.Handle[Material]
	Submesh      mesh.Submesh
	Topology     gpu.PrimitiveTopology
	Layer        Layer
}

// Item draws one submesh with one transform. Its object constant slot is
// assigned by List.Add and never changes.
type Item struct {
	world        vmath.Mat4
	texTransform vmath.Mat4
	objCBIndex   int
	gen          uint64

	Geo      store.Handle[mesh.Geometry]
	Mat      store.Handle[Material]
	Topology gpu.PrimitiveTopology
	Layer    Layer

	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32
}

func (it *Item) World() vmath.Mat4        { return it.world }
func (it *Item) TexTransform() vmath.Mat4 { return it.texTransform }
func (it *Item) ObjCBIndex() int          { return it.objCBIndex }
func (it *Item) Generation() uint64       { return it.gen }

// SetWorld moves the item. Every ring slot rewrites its constants.
func (it *Item) SetWorld(m vmath.Mat4) {
	it.world = m
	it.gen++
}

// SetTexTransform changes the item's texture coordinate transform.
func (it *Item) SetTexTransform(m vmath.Mat4) {
	it.texTransform = m
	it.gen++
}

// Constants returns the item's constant block.
func (it *Item) Constants() ObjectConstants {
	return ObjectConstants{World: it.world, TexTransform: it.texTransform}
}

// List owns the render items of a scene in object-CB order.
type List struct {
	items  []*Item
	layers [LayerCount][]*Item
}

// NewList returns an empty list.
func NewList() *List { return &List{} }

// Add appends an item. Its ObjCBIndex is its position in the list, which
// keeps indices dense and unique.
func (l *List) Add(d ItemDesc) (*Item, error) {
	if !d.Geo.Valid() {
		return nil, ErrNoGeometry
	}
	if d.Submesh.IndexCount == 0 {
		return nil, ErrEmptyDraw
	}
	if d.Layer < 0 || d.Layer >= LayerCount {
		return nil, fmt.Errorf("layer %d: %w", d.Layer, ErrUnknownLayer)
	}

	topo := d.Topology
	if topo == gpu.TopologyUndefined {
		topo = gpu.TopologyTriangleList
	}
	zero := vmath.Mat4{}
	if d.World == zero {
		d.World = vmath.Identity()
	}
	if d.TexTransform == zero {
		d.TexTransform = vmath.Identity()
	}

	it := &Item{
		world:              d.World,
		texTransform:       d.TexTransform,
		objCBIndex:         len(l.items),
		gen:                1,
		Geo:                d.Geo,
		Mat:                d.Mat,
		Topology:           topo,
		Layer:              d.Layer,
		IndexCount:         d.Submesh.IndexCount,
		StartIndexLocation: d.Submesh.StartIndexLocation,
		BaseVertexLocation: d.Submesh.BaseVertexLocation,
	}
	l.items = append(l.items, it)
	l.layers[d.Layer] = append(l.layers[d.Layer], it)
	return it, nil
}

// All returns every item in ObjCBIndex order.
func (l *List) All() []*Item { return l.items }

// Layer returns the items of layer in insertion order.
func (l *List) Layer(layer Layer) []*Item { return l.layers[layer] }

// Len returns the number of items.
func (l *List) Len() int { return len(l.items) }

// Validate checks that ObjCBIndex values cover [0, Len) exactly once and,
// when requireMaterial is set, that every item has a material.
func (l *List) Validate(requireMaterial bool) error {
	seen := make([]bool, len(l.items))
	for _, it := range l.items {
		i := it.objCBIndex
		if i < 0 || i >= len(seen) || seen[i] {
			return fmt.Errorf("index %d: %w", i, ErrSparseCBIndex)
		}
		seen[i] = true
		if requireMaterial && !it.Mat.Valid() {
			return fmt.Errorf("item %d: %w", i, ErrMaterialRequired)
		}
	}
	return nil
}
