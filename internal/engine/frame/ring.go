package frame

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/logger"
)

// Ring size bounds.
const (
	MinResources = 2
	MaxResources = 8
)

// ErrInvalidCount is returned for a ring size outside [MinResources, MaxResources].
var ErrInvalidCount = errors.New("frame: invalid frame resource count")

// Ring cycles through N frame resources guarded by one monotonically
// increasing fence.
type Ring struct {
	fence     gpu.Fence
	resources []*Resource
	index     int
	value     uint64
	waits     int
	log       *zap.Logger
}

// NewRing creates n frame resources sized by layout. The first Advance makes
// slot 0 current.
func NewRing(dev gpu.Device, fence gpu.Fence, n int, layout Layout) (*Ring, error) {
	if n < MinResources || n > MaxResources {
		return nil, fmt.Errorf("%d resources: %w", n, ErrInvalidCount)
	}

	r := &Ring{
		fence: fence,
		index: n - 1,
		value: fence.CompletedValue(),
		log:   logger.Named("frame"),
	}
	for i := 0; i < n; i++ {
		res, err := newResource(dev, layout)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("frame resource %d: %w", i, err)
		}
		r.resources = append(r.resources, res)
	}

	r.log.Debug("frame resources created",
		zap.Int("count", n),
		zap.Int("objects", layout.Objects),
		zap.Int("materials", layout.Materials),
		zap.Int("wave_vertices", layout.WaveVertices))
	return r, nil
}

// Len returns N.
func (r *Ring) Len() int { return len(r.resources) }

// Advance makes the next slot current. It blocks until the GPU has finished
// the commands last recorded into that slot, then resets the slot's command
// allocator.
func (r *Ring) Advance() (*Resource, error) {
	next := (r.index + 1) % len(r.resources)
	res := r.resources[next]

	if res.Fence != 0 && r.fence.CompletedValue() < res.Fence {
		r.waits++
		r.log.Debug("waiting for frame slot",
			logger.Slot(next),
			logger.Fence(res.Fence),
			zap.Uint64("completed", r.fence.CompletedValue()))
		if err := r.fence.Wait(res.Fence); err != nil {
			return nil, fmt.Errorf("wait for slot %d fence %d: %w", next, res.Fence, err)
		}
	}

	if err := res.CmdListAlloc.Reset(); err != nil {
		return nil, fmt.Errorf("reset slot %d allocator: %w", next, err)
	}

	r.index = next
	res.writes = Writes{}
	return res, nil
}

// Current returns the current slot.
func (r *Ring) Current() *Resource { return r.resources[r.index] }

// CurrentIndex returns the index of the current slot.
func (r *Ring) CurrentIndex() int { return r.index }

// Resource returns slot i.
func (r *Ring) Resource(i int) *Resource { return r.resources[i] }

// Submit marks the end of the current slot's commands: the slot records the
// next fence value and the queue is asked to signal it.
func (r *Ring) Submit(q gpu.Queue) (uint64, error) {
	v, err := r.Signal(q)
	if err != nil {
		return 0, err
	}
	r.Current().Fence = v
	return v, nil
}

// Signal advances the fence value and signals it on q without tying it to a slot.
func (r *Ring) Signal(q gpu.Queue) (uint64, error) {
	r.value++
	if err := q.Signal(r.fence, r.value); err != nil {
		return 0, fmt.Errorf("signal fence %d: %w", r.value, err)
	}
	return r.value, nil
}

// Flush signals a new fence value and blocks until the GPU reaches it.
func (r *Ring) Flush(q gpu.Queue) error {
	v, err := r.Signal(q)
	if err != nil {
		return err
	}
	if err := r.fence.Wait(v); err != nil {
		return fmt.Errorf("flush to fence %d: %w", v, err)
	}
	return nil
}

// FenceValue returns the last signaled fence value.
func (r *Ring) FenceValue() uint64 { return r.value }

// Waits returns how many Advance calls had to block.
func (r *Ring) Waits() int { return r.waits }

// ObjectFramesDirty returns how many slots still hold an older generation of
// object id.
func (r *Ring) ObjectFramesDirty(id int, gen uint64) int {
	n := 0
	for _, res := range r.resources {
		if res.ObjectStale(id, gen) {
			n++
		}
	}
	return n
}

// MaterialFramesDirty returns how many slots still hold an older generation
// of material id.
func (r *Ring) MaterialFramesDirty(id int, gen uint64) int {
	n := 0
	for _, res := range r.resources {
		if res.MaterialStale(id, gen) {
			n++
		}
	}
	return n
}

// Close releases every slot. Flush first: the GPU must not be using them.
func (r *Ring) Close() {
	for _, res := range r.resources {
		res.release()
	}
	r.resources = nil
}
