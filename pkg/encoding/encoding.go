// Package encoding packs engine data into the little-endian byte layouts
// uploaded to GPU buffers.
package encoding

import (
	"encoding/binary"
	"math"

	vmath "github.com/Faultbox/towerscene/pkg/math"
)

// Writer appends little-endian values to a growing byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns a writer with room for capacity bytes.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Float32 appends one float.
func (w *Writer) Float32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// Uint16 appends one 16-bit unsigned integer.
func (w *Writer) Uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// Uint32 appends one 32-bit unsigned integer.
func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Vec2 appends two floats.
func (w *Writer) Vec2(v [2]float32) {
	w.Float32(v[0])
	w.Float32(v[1])
}

// Vec3 appends three floats without padding.
func (w *Writer) Vec3(v [3]float32) {
	w.Float32(v[0])
	w.Float32(v[1])
	w.Float32(v[2])
}

// Vec4 appends four floats.
func (w *Writer) Vec4(v [4]float32) {
	for _, f := range v {
		w.Float32(f)
	}
}

// Mat4 appends a matrix in its column-major storage order.
func (w *Writer) Mat4(m vmath.Mat4) {
	for _, f := range m {
		w.Float32(f)
	}
}

// Pad appends n zero bytes.
func (w *Writer) Pad(n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}

// Align pads to the next multiple of n bytes.
func (w *Writer) Align(n int) {
	if r := len(w.buf) % n; r != 0 {
		w.Pad(n - r)
	}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Reset discards written bytes and keeps the capacity.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// Float32At decodes the float at byte offset off.
func Float32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

// Uint16At decodes the 16-bit unsigned integer at byte offset off.
func Uint16At(b []byte, off int) uint16 {
	return binary.LittleEndian.Uint16(b[off:])
}

// Mat4At decodes a matrix at byte offset off.
func Mat4At(b []byte, off int) vmath.Mat4 {
	var m vmath.Mat4
	for i := range m {
		m[i] = Float32At(b, off+i*4)
	}
	return m
}
