// Package camera provides the orbit camera that views the tower scene.
package camera

import (
	gomath "math"

	"github.com/Faultbox/towerscene/pkg/math"
)

// Defaults of the orbit camera.
const (
	DefaultTheta  = 1.5 * gomath.Pi
	DefaultPhi    = 0.2 * gomath.Pi
	DefaultRadius = 80.0

	// DragSensitivity is the orbit angle per pixel of left drag (0.25°).
	DragSensitivity = 0.25 * gomath.Pi / 180
	// ZoomSensitivity is the radius change per pixel of right drag.
	ZoomSensitivity = 0.05

	FovY  = 0.25 * gomath.Pi
	NearZ = 1.0
	FarZ  = 1000.0
)

// OrbitCamera orbits around a center point in spherical coordinates. Theta
// is measured in the XZ plane from +X, Phi from +Y.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	Theta  float32
	Phi    float32
	Radius float32

	// Constraints
	MinPhi    float32
	MaxPhi    float32
	MinRadius float32
	MaxRadius float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates an orbit camera looking at the origin from the
// south-west, slightly above the ground.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Theta:           DefaultTheta,
		Phi:             DefaultPhi,
		Radius:          DefaultRadius,
		MinPhi:          0.1,
		MaxPhi:          gomath.Pi - 0.1,
		MinRadius:       5,
		MaxRadius:       150,
		DragSensitivity: DragSensitivity,
		ZoomSensitivity: ZoomSensitivity,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sinPhi := math.Sin(c.Phi)
	return math.Vec3{
		X: c.Center.X + c.Radius*sinPhi*math.Cos(c.Theta),
		Y: c.Center.Y + c.Radius*math.Cos(c.Phi),
		Z: c.Center.Z + c.Radius*sinPhi*math.Sin(c.Theta),
	}
}

// ViewMatrix returns the left-handed view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	up := math.Vec3{X: 0, Y: 1, Z: 0}
	return math.LookAt(c.Position(), c.Center, up)
}

// ProjMatrix returns the projection for a render target of the given aspect
// ratio.
func (c *OrbitCamera) ProjMatrix(aspect float32) math.Mat4 {
	return math.Perspective(FovY, aspect, NearZ, FarZ)
}

// HandleDrag orbits by a left-button drag of dx, dy pixels.
func (c *OrbitCamera) HandleDrag(dx, dy float32) {
	c.Theta += dx * c.DragSensitivity
	c.Phi += dy * c.DragSensitivity
	c.Phi = math.Clamp(c.Phi, c.MinPhi, c.MaxPhi)
}

// HandleZoom changes the radius by a right-button drag of dx, dy pixels.
// Dragging right or up moves the camera away.
func (c *OrbitCamera) HandleZoom(dx, dy float32) {
	c.Radius += (dx - dy) * c.ZoomSensitivity
	c.Radius = math.Clamp(c.Radius, c.MinRadius, c.MaxRadius)
}
