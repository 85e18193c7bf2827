package render

import (
	"github.com/Faultbox/towerscene/internal/engine/frame"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/store"
	"github.com/Faultbox/towerscene/pkg/encoding"
)

// UpdateObjectCBs writes the constants of every item the slot has not seen
// at its current generation. It returns the number of writes.
func UpdateObjectCBs(res *frame.Resource, items []*Item) (int, error) {
	w := encoding.NewWriter(ObjectConstantsSize)
	n := 0
	for _, it := range items {
		if !res.ObjectStale(it.objCBIndex, it.gen) {
			continue
		}
		w.Reset()
		it.Constants().Encode(w)
		if err := res.WriteObject(it.objCBIndex, it.gen, w.Bytes()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// UpdateMaterialCBs writes the constants of every material the slot has not
// seen at its current generation. It returns the number of writes.
func UpdateMaterialCBs(res *frame.Resource, mats *store.Store[Material]) (int, error) {
	w := encoding.NewWriter(MaterialConstantsSize)
	n := 0
	for _, m := range mats.All() {
		if !res.MaterialStale(m.matCBIndex, m.gen) {
			continue
		}
		w.Reset()
		m.Constants().Encode(w)
		if err := res.WriteMaterial(m.matCBIndex, m.gen, w.Bytes()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// UpdatePassCB writes the pass constants into slot 0 of the pass buffer.
func UpdatePassCB(res *frame.Resource, p *PassConstants) error {
	w := encoding.NewWriter(PassConstantsSize)
	p.Encode(w)
	return res.WritePass(0, w.Bytes())
}

// FrameLayout sizes a frame resource for the given counts.
func FrameLayout(objects, materials, waveVertices int) frame.Layout {
	return frame.Layout{
		Passes:         1,
		Objects:        objects,
		Materials:      materials,
		WaveVertices:   waveVertices,
		PassSize:       PassConstantsSize,
		ObjectSize:     ObjectConstantsSize,
		MaterialSize:   MaterialConstantsSize,
		WaveVertexSize: uint32(mesh.LitVertexStride),
	}
}
