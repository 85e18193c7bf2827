package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/Faultbox/towerscene/internal/engine/geometry"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/upload"
	"github.com/Faultbox/towerscene/pkg/encoding"
)

// Errors returned by builders and lookups.
var (
	ErrUnknownSubmesh   = errors.New("mesh: unknown submesh")
	ErrDuplicateSubmesh = errors.New("mesh: duplicate submesh name")
	ErrTooManyVertices  = errors.New("mesh: submesh exceeds 16-bit index range")
)

// Submesh addresses a region of the concatenated buffers.
type Submesh struct {
	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32
}

// Geometry owns a concatenated vertex buffer and 16-bit index buffer.
type Geometry struct {
	Name string

	VertexBufferCPU []byte
	IndexBufferCPU  []byte

	VertexBufferGPU gpu.Buffer
	IndexBufferGPU  gpu.Buffer

	VertexByteStride     uint32
	VertexBufferByteSize uint32
	IndexFormat          gpu.Format
	IndexBufferByteSize  uint32

	DrawArgs map[string]Submesh

	vertexUploader gpu.Buffer
	indexUploader  gpu.Buffer
	dynamic        bool
}

type part struct {
	name  string
	mesh  geometry.MeshData
	color [4]float32
}

// Builder collects meshes in draw order.
type Builder struct {
	name   string
	format VertexFormat
	parts  []part
}

// NewBuilder starts a geometry with the given vertex format.
func NewBuilder(name string, format VertexFormat) *Builder {
	return &Builder{name: name, format: format}
}

// Add appends a mesh under a submesh name. The color is used by FormatColor.
func (b *Builder) Add(name string, m geometry.MeshData, color [4]float32) *Builder {
	b.parts = append(b.parts, part{name: name, mesh: m, color: color})
	return b
}

// Build concatenates the meshes into CPU buffers. Submesh offsets are absolute
// positions in the concatenated buffers.
func (b *Builder) Build() (*Geometry, error) {
	stride := b.format.Stride()

	var totalVerts, totalIdx int
	for _, p := range b.parts {
		totalVerts += len(p.mesh.Vertices)
		totalIdx += len(p.mesh.Indices32)
	}

	g := &Geometry{
		Name:             b.name,
		VertexByteStride: stride,
		IndexFormat:      gpu.FormatR16Uint,
		DrawArgs:         make(map[string]Submesh, len(b.parts)),
	}

	vw := encoding.NewWriter(totalVerts * int(stride))
	iw := encoding.NewWriter(totalIdx * 2)

	var baseVertex, startIndex int
	for _, p := range b.parts {
		if _, dup := g.DrawArgs[p.name]; dup {
			return nil, fmt.Errorf("%s/%s: %w", b.name, p.name, ErrDuplicateSubmesh)
		}
		if len(p.mesh.Vertices) > math.MaxUint16+1 {
			return nil, fmt.Errorf("%s/%s has %d vertices: %w", b.name, p.name, len(p.mesh.Vertices), ErrTooManyVertices)
		}

		g.DrawArgs[p.name] = Submesh{
			IndexCount:         uint32(len(p.mesh.Indices32)),
			StartIndexLocation: uint32(startIndex),
			BaseVertexLocation: int32(baseVertex),
		}

		for _, v := range p.mesh.Vertices {
			b.format.encode(vw, v, p.color)
		}
		for _, idx := range p.mesh.Indices16() {
			iw.Uint16(idx)
		}

		baseVertex += len(p.mesh.Vertices)
		startIndex += len(p.mesh.Indices32)
	}

	g.VertexBufferCPU = vw.Bytes()
	g.IndexBufferCPU = iw.Bytes()
	g.VertexBufferByteSize = uint32(len(g.VertexBufferCPU))
	g.IndexBufferByteSize = uint32(len(g.IndexBufferCPU))
	return g, nil
}

// NewDynamic creates a geometry whose vertices are rewritten every frame.
// Only the index buffer is static; the vertex buffer is attached with
// SetVertexBuffer.
func NewDynamic(name, submesh string, stride uint32, vertexCount int, indices []uint16) *Geometry {
	iw := encoding.NewWriter(len(indices) * 2)
	for _, idx := range indices {
		iw.Uint16(idx)
	}
	return &Geometry{
		Name:                 name,
		IndexBufferCPU:       iw.Bytes(),
		VertexByteStride:     stride,
		VertexBufferByteSize: stride * uint32(vertexCount),
		IndexFormat:          gpu.FormatR16Uint,
		IndexBufferByteSize:  uint32(len(indices) * 2),
		dynamic:              true,
		DrawArgs: map[string]Submesh{
			submesh: {IndexCount: uint32(len(indices))},
		},
	}
}

// Upload records copies of the CPU buffers into device-local buffers. The
// staging buffers stay alive until DisposeUploaders.
func (g *Geometry) Upload(dev gpu.Device, cmd gpu.CommandList) error {
	var err error
	if len(g.VertexBufferCPU) > 0 {
		g.VertexBufferGPU, g.vertexUploader, err = upload.CreateDefaultBuffer(dev, cmd, g.VertexBufferCPU)
		if err != nil {
			return fmt.Errorf("upload %s vertices: %w", g.Name, err)
		}
	}
	g.IndexBufferGPU, g.indexUploader, err = upload.CreateDefaultBuffer(dev, cmd, g.IndexBufferCPU)
	if err != nil {
		return fmt.Errorf("upload %s indices: %w", g.Name, err)
	}
	return nil
}

// DisposeUploaders releases staging buffers. Call once the upload fence is reached.
func (g *Geometry) DisposeUploaders() {
	if g.vertexUploader != nil {
		g.vertexUploader.Release()
		g.vertexUploader = nil
	}
	if g.indexUploader != nil {
		g.indexUploader.Release()
		g.indexUploader = nil
	}
}

// HasUploaders reports whether staging buffers are still held.
func (g *Geometry) HasUploaders() bool {
	return g.vertexUploader != nil || g.indexUploader != nil
}

// SetVertexBuffer points the geometry at another vertex buffer, used by the
// per-frame dynamic wave vertices.
func (g *Geometry) SetVertexBuffer(buf gpu.Buffer) {
	g.VertexBufferGPU = buf
}

// VertexBufferView describes the bound vertex buffer.
func (g *Geometry) VertexBufferView() gpu.VertexBufferView {
	var loc gpu.Address
	if g.VertexBufferGPU != nil {
		loc = g.VertexBufferGPU.GPUVirtualAddress()
	}
	return gpu.VertexBufferView{
		Location: loc,
		Size:     g.VertexBufferByteSize,
		Stride:   g.VertexByteStride,
	}
}

// IndexBufferView describes the bound index buffer.
func (g *Geometry) IndexBufferView() gpu.IndexBufferView {
	var loc gpu.Address
	if g.IndexBufferGPU != nil {
		loc = g.IndexBufferGPU.GPUVirtualAddress()
	}
	return gpu.IndexBufferView{
		Location: loc,
		Size:     g.IndexBufferByteSize,
		Format:   g.IndexFormat,
	}
}

// Submesh looks up a submesh by name.
func (g *Geometry) Submesh(name string) (Submesh, error) {
	sm, ok := g.DrawArgs[name]
	if !ok {
		return Submesh{}, fmt.Errorf("%s/%s: %w", g.Name, name, ErrUnknownSubmesh)
	}
	return sm, nil
}

// VertexCount returns the number of vertices in the vertex buffer.
func (g *Geometry) VertexCount() int {
	if g.VertexByteStride == 0 {
		return 0
	}
	return int(g.VertexBufferByteSize / g.VertexByteStride)
}

// IndexCount returns the number of indices in the index buffer.
func (g *Geometry) IndexCount() int {
	return int(g.IndexBufferByteSize / 2)
}

// Dynamic reports whether the vertex buffer is owned by the frame resources.
func (g *Geometry) Dynamic() bool { return g.dynamic }

// Release frees the device-local buffers. Dynamic vertex buffers belong to
// the frame resources and are left alone.
func (g *Geometry) Release() {
	g.DisposeUploaders()
	if !g.dynamic && g.VertexBufferGPU != nil {
		g.VertexBufferGPU.Release()
	}
	if g.IndexBufferGPU != nil {
		g.IndexBufferGPU.Release()
	}
	g.VertexBufferGPU, g.IndexBufferGPU = nil, nil
}
