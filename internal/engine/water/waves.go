// Package water simulates the animated water surface with an explicit
// finite-difference solver of the damped 2D wave equation.
package water

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/logger"
	"github.com/Faultbox/towerscene/pkg/math"
)

// MaxSubSteps bounds the solver steps taken by one Update call. Backlog past
// the bound is dropped so a long stall cannot spiral.
const MaxSubSteps = 16

// Errors returned by the solver.
var (
	ErrUnstable     = errors.New("water: time step violates the Courant condition")
	ErrOutOfBounds  = errors.New("water: disturbance outside the interior")
	ErrGridTooSmall = errors.New("water: grid needs at least 5x5 vertices")
)

// Config holds solver parameters.
type Config struct {
	Rows    int
	Cols    int
	Dx      float32 // spatial step
	Dt      float32 // fixed simulation step in seconds
	Speed   float32
	Damping float32
}

// DefaultConfig returns the 128x128 surface used by the textured scene.
func DefaultConfig() Config {
	return Config{Rows: 128, Cols: 128, Dx: 1, Dt: 0.03, Speed: 4, Damping: 0.2}
}

// Waves is the height field. Vertex i is at row i/cols, column i%cols; rows
// run from +Z to -Z and columns from -X to +X.
type Waves struct {
	rows, cols int
	dx, dt     float32
	k1, k2, k3 float32

	accum float32
	steps int

	prev     []float32
	curr     []float32
	normals  [][3]float32
	tangentX [][3]float32
}

// New creates a flat surface. It fails when c²·dt²/dx² exceeds 1/2.
func New(cfg Config) (*Waves, error) {
	if cfg.Rows < 5 || cfg.Cols < 5 {
		return nil, fmt.Errorf("%dx%d: %w", cfg.Rows, cfg.Cols, ErrGridTooSmall)
	}
	if cfg.Dx <= 0 || cfg.Dt <= 0 {
		return nil, fmt.Errorf("water: dx and dt must be positive (dx=%g dt=%g)", cfg.Dx, cfg.Dt)
	}

	e := cfg.Speed * cfg.Speed * cfg.Dt * cfg.Dt / (cfg.Dx * cfg.Dx)
	if e > 0.5 {
		return nil, fmt.Errorf("c²dt²/dx² = %g: %w", e, ErrUnstable)
	}
	d := cfg.Damping*cfg.Dt + 2

	n := cfg.Rows * cfg.Cols
	w := &Waves{
		rows:     cfg.Rows,
		cols:     cfg.Cols,
		dx:       cfg.Dx,
		dt:       cfg.Dt,
		k1:       (cfg.Damping*cfg.Dt - 2) / d,
		k2:       (4 - 8*e) / d,
		k3:       2 * e / d,
		prev:     make([]float32, n),
		curr:     make([]float32, n),
		normals:  make([][3]float32, n),
		tangentX: make([][3]float32, n),
	}
	for i := range w.normals {
		w.normals[i] = [3]float32{0, 1, 0}
		w.tangentX[i] = [3]float32{1, 0, 0}
	}

	logger.Named("water").Debug("wave solver created",
		zap.Int("rows", cfg.Rows),
		zap.Int("cols", cfg.Cols),
		zap.Float32("k1", w.k1),
		zap.Float32("k2", w.k2),
		zap.Float32("k3", w.k3))

	return w, nil
}

// Rows returns the number of vertex rows.
func (w *Waves) Rows() int { return w.rows }

// Cols returns the number of vertex columns.
func (w *Waves) Cols() int { return w.cols }

// VertexCount returns rows*cols.
func (w *Waves) VertexCount() int { return w.rows * w.cols }

// TriangleCount returns the number of triangles in Indices.
func (w *Waves) TriangleCount() int { return (w.rows - 1) * (w.cols - 1) * 2 }

// Width returns the extent along X.
func (w *Waves) Width() float32 { return float32(w.cols-1) * w.dx }

// Depth returns the extent along Z.
func (w *Waves) Depth() float32 { return float32(w.rows-1) * w.dx }

// TimeStep returns the fixed simulation step.
func (w *Waves) TimeStep() float32 { return w.dt }

// Steps returns the number of simulation steps taken so far.
func (w *Waves) Steps() int { return w.steps }

// Update advances the simulation by dt seconds of real time in fixed
// sub-steps and returns how many were taken.
func (w *Waves) Update(dt float32) int {
	w.accum += dt

	taken := 0
	for w.accum >= w.dt && taken < MaxSubSteps {
		w.Step()
		w.accum -= w.dt
		taken++
	}
	if w.accum >= w.dt {
		logger.Named("water").Debug("dropping simulation backlog", zap.Float32("seconds", w.accum))
		w.accum = 0
	}
	return taken
}

// Step advances the simulation by exactly one fixed step.
func (w *Waves) Step() {
	n := w.cols
	// Boundary cells are never written and stay at zero.
	for i := 1; i < w.rows-1; i++ {
		for j := 1; j < n-1; j++ {
			k := i*n + j
			w.prev[k] = w.k1*w.prev[k] + w.k2*w.curr[k] +
				w.k3*(w.curr[k+n]+w.curr[k-n]+w.curr[k+1]+w.curr[k-1])
		}
	}
	w.prev, w.curr = w.curr, w.prev
	w.steps++
	w.computeNormals()
}

func (w *Waves) computeNormals() {
	n := w.cols
	for i := 1; i < w.rows-1; i++ {
		for j := 1; j < n-1; j++ {
			k := i*n + j
			l := w.curr[k-1]
			r := w.curr[k+1]
			t := w.curr[k-n]
			b := w.curr[k+n]

			w.normals[k] = math.Vec3{X: l - r, Y: 2 * w.dx, Z: b - t}.Normalize().Array()
			w.tangentX[k] = math.Vec3{X: 2 * w.dx, Y: r - l}.Normalize().Array()
		}
	}
}

// Disturb adds magnitude to a 3x3 stencil centered on (i, j): the full value
// at the center, half on the four edge neighbours and a quarter on the
// diagonals. The stencil must not touch the boundary.
func (w *Waves) Disturb(i, j int, magnitude float32) error {
	if i < 2 || i > w.rows-3 || j < 2 || j > w.cols-3 {
		return fmt.Errorf("cell (%d, %d) of %dx%d: %w", i, j, w.rows, w.cols, ErrOutOfBounds)
	}

	n := w.cols
	k := i*n + j
	half := 0.5 * magnitude
	quarter := 0.25 * magnitude

	w.curr[k] += magnitude
	w.curr[k+1] += half
	w.curr[k-1] += half
	w.curr[k+n] += half
	w.curr[k-n] += half
	w.curr[k+n+1] += quarter
	w.curr[k+n-1] += quarter
	w.curr[k-n+1] += quarter
	w.curr[k-n-1] += quarter
	return nil
}

// Height returns the current height at row i, column j.
func (w *Waves) Height(i, j int) float32 { return w.curr[i*w.cols+j] }

// MaxAbsHeight returns the L-infinity norm of the height field.
func (w *Waves) MaxAbsHeight() float32 {
	var m float32
	for _, h := range w.curr {
		m = max(m, h, -h)
	}
	return m
}

// Position returns the world-space position of vertex k.
func (w *Waves) Position(k int) [3]float32 {
	i, j := k/w.cols, k%w.cols
	halfWidth := 0.5 * w.Width()
	halfDepth := 0.5 * w.Depth()
	return [3]float32{
		-halfWidth + float32(j)*w.dx,
		w.curr[k],
		halfDepth - float32(i)*w.dx,
	}
}

// Normal returns the unit normal of vertex k.
func (w *Waves) Normal(k int) [3]float32 { return w.normals[k] }

// TangentX returns the unit tangent along +X of vertex k.
func (w *Waves) TangentX(k int) [3]float32 { return w.tangentX[k] }

// Indices returns the triangle list over the grid.
func (w *Waves) Indices() []uint16 {
	n := w.cols
	out := make([]uint16, 0, w.TriangleCount()*3)
	for i := 0; i < w.rows-1; i++ {
		for j := 0; j < n-1; j++ {
			out = append(out,
				uint16(i*n+j), uint16(i*n+j+1), uint16((i+1)*n+j),
				uint16((i+1)*n+j), uint16(i*n+j+1), uint16((i+1)*n+j+1),
			)
		}
	}
	return out
}
