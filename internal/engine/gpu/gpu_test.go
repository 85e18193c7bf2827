package gpu

import (
	"errors"
	"testing"
)

func TestCalcConstantBufferByteSize(t *testing.T) {
	tests := []struct {
		size uint32
		want uint32
	}{
		{0, 0},
		{1, 256},
		{96, 256},
		{128, 256},
		{256, 256},
		{257, 512},
		{1248, 1280},
	}

	for _, tt := range tests {
		if got := CalcConstantBufferByteSize(tt.size); got != tt.want {
			t.Errorf("CalcConstantBufferByteSize(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestAddress(t *testing.T) {
	a := MakeAddress(7, 4096)
	if a.BufferID() != 7 {
		t.Errorf("expected buffer 7, got %d", a.BufferID())
	}
	if a.Offset() != 4096 {
		t.Errorf("expected offset 4096, got %d", a.Offset())
	}
	if b := a.Add(256); b.Offset() != 4352 || b.BufferID() != 7 {
		t.Errorf("Add: got buffer %d offset %d", b.BufferID(), b.Offset())
	}
}

func TestDescriptorHeapHandles(t *testing.T) {
	h, err := NewDescriptorHeap(DescriptorHeapDesc{NumDescriptors: 4, ShaderVisible: true}, 32)
	if err != nil {
		t.Fatalf("NewDescriptorHeap: %v", err)
	}

	handle := h.GPUStart().Offset(3, h.Increment())
	i, err := h.IndexOf(handle)
	if err != nil || i != 3 {
		t.Fatalf("IndexOf: got %d, %v", i, err)
	}

	if _, err := h.IndexOf(h.GPUStart().Offset(4, h.Increment())); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange past the end, got %v", err)
	}

	other, _ := NewDescriptorHeap(DescriptorHeapDesc{NumDescriptors: 4}, 32)
	if other.Contains(handle) {
		t.Error("handle should not resolve in another heap")
	}

	found, idx, err := FindHeap([]*DescriptorHeap{other, h}, handle)
	if err != nil || found != h || idx != 3 {
		t.Errorf("FindHeap: got %v, %d, %v", found, idx, err)
	}
}

func TestCreateConstantBufferView(t *testing.T) {
	h, _ := NewDescriptorHeap(DescriptorHeapDesc{NumDescriptors: 2, ShaderVisible: true}, 32)

	tests := []struct {
		name    string
		desc    ConstantBufferViewDesc
		slot    int
		wantErr bool
	}{
		{"aligned", ConstantBufferViewDesc{Location: MakeAddress(1, 512), Size: 256}, 0, false},
		{"unaligned size", ConstantBufferViewDesc{Location: MakeAddress(1, 0), Size: 128}, 0, true},
		{"unaligned location", ConstantBufferViewDesc{Location: MakeAddress(1, 64), Size: 256}, 0, true},
		{"out of range", ConstantBufferViewDesc{Location: MakeAddress(1, 0), Size: 256}, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.CreateConstantBufferView(tt.desc, h.CPUStart().Offset(tt.slot, h.Increment()))
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}

	d, err := h.Descriptor(0)
	if err != nil {
		t.Fatalf("Descriptor: %v", err)
	}
	if d.Kind != DescriptorCBV || d.CBV.Location.Offset() != 512 {
		t.Errorf("unexpected descriptor %+v", d)
	}
}

func TestRootSignatureBudget(t *testing.T) {
	var params []RootParameter
	for i := 0; i < 32; i++ {
		params = append(params, CBVParameter(uint32(i)))
	}
	rs, err := NewRootSignature(RootSignatureDesc{Parameters: params})
	if err != nil {
		t.Fatalf("32 root CBVs should fit: %v", err)
	}
	if rs.DWords() != 64 {
		t.Errorf("expected 64 DWORDs, got %d", rs.DWords())
	}

	params = append(params, TableParameter(VisibilityAll, DescriptorRange{Type: RangeCBV, NumDescriptors: 1}))
	if _, err := NewRootSignature(RootSignatureDesc{Parameters: params}); !errors.Is(err, ErrRootSignatureTooLarge) {
		t.Errorf("expected ErrRootSignatureTooLarge, got %v", err)
	}
}

func TestRootSignatureRejectsDuplicateSamplers(t *testing.T) {
	_, err := NewRootSignature(RootSignatureDesc{
		StaticSamplers: []StaticSampler{{Register: 0}, {Register: 0}},
	})
	if err == nil {
		t.Error("expected duplicate sampler register to fail")
	}
}

func TestResourceStateString(t *testing.T) {
	if StateRenderTarget.String() != "RENDER_TARGET" {
		t.Errorf("got %s", StateRenderTarget)
	}
}
