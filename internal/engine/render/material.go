package render

import (
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	vmath "github.com/Faultbox/towerscene/pkg/math"
)

// Material holds surface parameters. Setters bump the generation so every
// ring slot rewrites the material's constants.
type Material struct {
	Name string

	matCBIndex          int
	diffuseSrvHeapIndex int
	diffuseAlbedo       [4]float32
	fresnelR0           [3]float32
	roughness           float32
	matTransform        vmath.Mat4

	gen uint64
}

// NewMaterial returns a white material with an identity transform at the
// given constant buffer and SRV heap slots.
func NewMaterial(name string, matCBIndex, diffuseSrvHeapIndex int) *Material {
	return &Material{
		Name:                name,
		matCBIndex:          matCBIndex,
		diffuseSrvHeapIndex: diffuseSrvHeapIndex,
		diffuseAlbedo:       [4]float32{1, 1, 1, 1},
		fresnelR0:           [3]float32{0.01, 0.01, 0.01},
		roughness:           0.25,
		matTransform:        vmath.Identity(),
		gen:                 1,
	}
}

func (m *Material) MatCBIndex() int           { return m.matCBIndex }
func (m *Material) DiffuseSrvHeapIndex() int  { return m.diffuseSrvHeapIndex }
func (m *Material) DiffuseAlbedo() [4]float32 { return m.diffuseAlbedo }
func (m *Material) FresnelR0() [3]float32     { return m.fresnelR0 }
func (m *Material) Roughness() float32        { return m.roughness }
func (m *Material) MatTransform() vmath.Mat4  { return m.matTransform }
func (m *Material) Generation() uint64        { return m.gen }

func (m *Material) SetDiffuseSrvHeapIndex(i int) {
	m.diffuseSrvHeapIndex = i
	m.gen++
}

func (m *Material) SetDiffuseAlbedo(c [4]float32) {
	m.diffuseAlbedo = c
	m.gen++
}

func (m *Material) SetFresnelR0(f [3]float32) {
	m.fresnelR0 = f
	m.gen++
}

func (m *Material) SetRoughness(r float32) {
	m.roughness = r
	m.gen++
}

func (m *Material) SetMatTransform(t vmath.Mat4) {
	m.matTransform = t
	m.gen++
}

// Constants returns the material's constant block.
func (m *Material) Constants() MaterialConstants {
	return MaterialConstants{
		DiffuseAlbedo: m.diffuseAlbedo,
		FresnelR0:     m.fresnelR0,
		Roughness:     m.roughness,
		MatTransform:  m.matTransform,
	}
}

// Texture is a loaded texture and the staging buffer that filled it.
type Texture struct {
	Name     string
	Filename string

	Resource   gpu.Texture
	UploadHeap gpu.Buffer
}

// DisposeUploader releases the staging buffer. Call once the upload fence
// has been reached.
func (t *Texture) DisposeUploader() {
	if t.UploadHeap != nil {
		t.UploadHeap.Release()
		t.UploadHeap = nil
	}
}

// Release frees the texture and any staging buffer.
func (t *Texture) Release() {
	t.DisposeUploader()
	if t.Resource != nil {
		t.Resource.Release()
		t.Resource = nil
	}
}
