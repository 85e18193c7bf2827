package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.5-core/gl"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
)

// textureMaxAnisotropy is GL_TEXTURE_MAX_ANISOTROPY, core since 4.6 and
// available as an extension on 4.5 drivers.
const textureMaxAnisotropy = 0x84FE

type samplerUnit struct {
	unit    uint32
	sampler uint32
}

// PipelineState is a linked program, a vertex array describing the input
// layout, the rasterizer state and the samplers bound to texture units.
type PipelineState struct {
	desc     gpu.PipelineStateDesc
	program  uint32
	vao      uint32
	samplers []samplerUnit
}

func newPipelineState(desc gpu.PipelineStateDesc) (*PipelineState, error) {
	if desc.RootSignature == nil {
		return nil, fmt.Errorf("create pipeline: nil root signature")
	}
	program, err := compileProgram(desc.VS, desc.PS)
	if err != nil {
		return nil, err
	}
	p := &PipelineState{desc: desc, program: program}

	gl.CreateVertexArrays(1, &p.vao)
	for i, e := range desc.InputLayout {
		n := int32(e.Format.Size() / 4)
		if n == 0 {
			p.Release()
			return nil, fmt.Errorf("create pipeline: input %s has unsupported format %d", e.Semantic, e.Format)
		}
		idx := uint32(i)
		gl.EnableVertexArrayAttrib(p.vao, idx)
		gl.VertexArrayAttribFormat(p.vao, idx, n, gl.FLOAT, false, e.Offset)
		gl.VertexArrayAttribBinding(p.vao, idx, 0)
	}

	statics := desc.RootSignature.Desc().StaticSamplers
	for _, b := range desc.Samplers {
		found := false
		for _, s := range statics {
			if s.Register == b.Sampler {
				p.samplers = append(p.samplers, samplerUnit{unit: b.Texture, sampler: newSampler(s)})
				found = true
				break
			}
		}
		if !found {
			p.Release()
			return nil, fmt.Errorf("create pipeline: t%d bound to missing static sampler s%d", b.Texture, b.Sampler)
		}
	}

	if err := glError("CreateGraphicsPipelineState"); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func newSampler(s gpu.StaticSampler) uint32 {
	var name uint32
	gl.CreateSamplers(1, &name)

	switch s.Filter {
	case gpu.FilterPoint:
		gl.SamplerParameteri(name, gl.TEXTURE_MIN_FILTER, gl.NEAREST_MIPMAP_NEAREST)
		gl.SamplerParameteri(name, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	default:
		gl.SamplerParameteri(name, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.SamplerParameteri(name, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	}
	if s.Filter == gpu.FilterAnisotropic && s.MaxAnisotropy > 1 {
		gl.SamplerParameterf(name, textureMaxAnisotropy, float32(s.MaxAnisotropy))
	}

	gl.SamplerParameteri(name, gl.TEXTURE_WRAP_S, addressMode(s.AddressU))
	gl.SamplerParameteri(name, gl.TEXTURE_WRAP_T, addressMode(s.AddressV))
	gl.SamplerParameteri(name, gl.TEXTURE_WRAP_R, addressMode(s.AddressW))
	gl.SamplerParameterf(name, gl.TEXTURE_LOD_BIAS, s.MipLODBias)
	return name
}

func addressMode(m gpu.AddressMode) int32 {
	if m == gpu.AddressClamp {
		return gl.CLAMP_TO_EDGE
	}
	return gl.REPEAT
}

// Desc implements gpu.PipelineState.
func (p *PipelineState) Desc() *gpu.PipelineStateDesc { return &p.desc }

// Release implements gpu.PipelineState.
func (p *PipelineState) Release() {
	for _, s := range p.samplers {
		gl.DeleteSamplers(1, &s.sampler)
	}
	p.samplers = nil
	if p.vao != 0 {
		gl.DeleteVertexArrays(1, &p.vao)
		p.vao = 0
	}
	if p.program != 0 {
		gl.DeleteProgram(p.program)
		p.program = 0
	}
}

// bind applies the program, input layout, rasterizer state and samplers.
func (p *PipelineState) bind() {
	gl.UseProgram(p.program)
	gl.BindVertexArray(p.vao)

	if p.desc.FillMode == gpu.FillWireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
	switch p.desc.CullMode {
	case gpu.CullNone:
		gl.Disable(gl.CULL_FACE)
	case gpu.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
	for _, s := range p.samplers {
		gl.BindSampler(s.unit, s.sampler)
	}
}

// compileProgram compiles both stages of a shared source file and links them.
func compileProgram(vs, ps gpu.ShaderSource) (uint32, error) {
	vert, err := compileShader(vs, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(ps, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	program := gl.CreateProgram()
	gl.AttachShader(program, vert)
	gl.AttachShader(program, frag)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, max(logLen, 1))
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link %s: %s", vs.Name, strings.TrimRight(string(log), "\x00"))
	}

	return program, nil
}

// compileShader prepends the version line and the stage's entry symbol.
func compileShader(src gpu.ShaderSource, shaderType uint32) (uint32, error) {
	if len(src.Source) == 0 {
		return 0, fmt.Errorf("%s %s: empty source", src.Name, src.Entry)
	}
	source := "#version 450 core\n#define " + src.Entry + "\n" + string(src.Source) + "\x00"

	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, max(logLen, 1))
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s %s shader: %s", src.Name, src.Entry, strings.TrimRight(string(log), "\x00"))
	}

	return shader, nil
}
