// Package frame implements the ring of per-frame GPU resources that lets the
// CPU record frame f+1..f+N-1 while the GPU still reads frame f.
package frame

import (
	"fmt"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/upload"
)

// Layout sizes the buffers of one slot.
type Layout struct {
	Passes       int
	Objects      int
	Materials    int
	WaveVertices int

	PassSize       uint32
	ObjectSize     uint32
	MaterialSize   uint32
	WaveVertexSize uint32
}

// Writes counts constant buffer writes into a slot since it became current.
type Writes struct {
	Objects   int
	Materials int
	Passes    int
	Waves     int
}

// Total returns the sum of all writes.
func (w Writes) Total() int { return w.Objects + w.Materials + w.Passes + w.Waves }

// Resource is one slot of the ring. It is only written while current and
// only after its fence has been reached.
type Resource struct {
	CmdListAlloc gpu.CommandAllocator
	ObjectCB     *upload.Buffer
	MaterialCB   *upload.Buffer
	PassCB       *upload.Buffer
	WavesVB      *upload.Buffer

	// Fence is the value that marks the end of the commands recorded into
	// this slot. Zero means never submitted.
	Fence uint64

	objectSeen   []uint64
	materialSeen []uint64
	writes       Writes
}

func newResource(dev gpu.Device, l Layout) (*Resource, error) {
	alloc, err := dev.CreateCommandAllocator()
	if err != nil {
		return nil, fmt.Errorf("create command allocator: %w", err)
	}
	res := &Resource{
		CmdListAlloc: alloc,
		objectSeen:   make([]uint64, l.Objects),
		materialSeen: make([]uint64, l.Materials),
	}

	if res.PassCB, err = upload.NewBuffer(dev, l.PassSize, max(l.Passes, 1), true); err != nil {
		res.release()
		return nil, fmt.Errorf("create pass CB: %w", err)
	}
	if l.Objects > 0 {
		if res.ObjectCB, err = upload.NewBuffer(dev, l.ObjectSize, l.Objects, true); err != nil {
			res.release()
			return nil, fmt.Errorf("create object CB: %w", err)
		}
	}
	if l.Materials > 0 {
		if res.MaterialCB, err = upload.NewBuffer(dev, l.MaterialSize, l.Materials, true); err != nil {
			res.release()
			return nil, fmt.Errorf("create material CB: %w", err)
		}
	}
	if l.WaveVertices > 0 {
		if res.WavesVB, err = upload.NewBuffer(dev, l.WaveVertexSize, l.WaveVertices, false); err != nil {
			res.release()
			return nil, fmt.Errorf("create waves VB: %w", err)
		}
	}
	return res, nil
}

func (r *Resource) release() {
	for _, b := range []*upload.Buffer{r.ObjectCB, r.MaterialCB, r.PassCB, r.WavesVB} {
		if b != nil {
			b.Close()
		}
	}
	if r.CmdListAlloc != nil {
		r.CmdListAlloc.Release()
	}
}

// ObjectStale reports whether object id at generation gen has not been
// written into this slot yet.
func (r *Resource) ObjectStale(id int, gen uint64) bool {
	return r.objectSeen[id] < gen
}

// MaterialStale reports whether material id at generation gen has not been
// written into this slot yet.
func (r *Resource) MaterialStale(id int, gen uint64) bool {
	return r.materialSeen[id] < gen
}

// WriteObject stores object constants and records gen as seen.
func (r *Resource) WriteObject(id int, gen uint64, data []byte) error {
	if err := r.ObjectCB.CopyData(id, data); err != nil {
		return fmt.Errorf("write object %d: %w", id, err)
	}
	r.objectSeen[id] = gen
	r.writes.Objects++
	return nil
}

// WriteMaterial stores material constants and records gen as seen.
func (r *Resource) WriteMaterial(id int, gen uint64, data []byte) error {
	if r.MaterialCB == nil {
		return fmt.Errorf("write material %d: slot has no material buffer", id)
	}
	if err := r.MaterialCB.CopyData(id, data); err != nil {
		return fmt.Errorf("write material %d: %w", id, err)
	}
	r.materialSeen[id] = gen
	r.writes.Materials++
	return nil
}

// WritePass stores pass constants at index i.
func (r *Resource) WritePass(i int, data []byte) error {
	if err := r.PassCB.CopyData(i, data); err != nil {
		return fmt.Errorf("write pass %d: %w", i, err)
	}
	r.writes.Passes++
	return nil
}

// WriteWaveVertex stores one dynamic wave vertex.
func (r *Resource) WriteWaveVertex(i int, data []byte) error {
	if r.WavesVB == nil {
		return fmt.Errorf("write wave vertex %d: slot has no wave buffer", i)
	}
	if err := r.WavesVB.CopyData(i, data); err != nil {
		return fmt.Errorf("write wave vertex %d: %w", i, err)
	}
	r.writes.Waves++
	return nil
}

// Writes returns the writes since the slot last became current.
func (r *Resource) Writes() Writes { return r.writes }
