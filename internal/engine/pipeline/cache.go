package pipeline

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/logger"
)

// Pipeline names.
const (
	Opaque          = "opaque"
	OpaqueWireframe = "opaque_wireframe"
)

// ErrUnknownPipeline is returned by Get for a name that was never built.
var ErrUnknownPipeline = errors.New("pipeline: unknown pipeline state")

// Config describes the pipelines a Cache builds.
type Config struct {
	RootSignature *gpu.RootSignature
	InputLayout   []gpu.InputElement
	VS            gpu.ShaderSource
	PS            gpu.ShaderSource
	// Wireframe also builds OpaqueWireframe.
	Wireframe bool
	RTVFormat gpu.Format
	DSVFormat gpu.Format
	Samplers  []gpu.SamplerBinding
}

// Cache owns pipeline state objects by name.
type Cache struct {
	dev  gpu.Device
	cfg  Config
	psos map[string]gpu.PipelineState
	log  *zap.Logger
}

// NewCache builds Opaque, plus OpaqueWireframe when cfg.Wireframe is set.
func NewCache(dev gpu.Device, cfg Config) (*Cache, error) {
	if cfg.RTVFormat == gpu.FormatUnknown {
		cfg.RTVFormat = gpu.FormatR8G8B8A8Unorm
	}
	if cfg.DSVFormat == gpu.FormatUnknown {
		cfg.DSVFormat = gpu.FormatD24UnormS8Uint
	}

	c := &Cache{dev: dev, cfg: cfg, log: logger.Named("pipeline")}
	psos, err := c.build(cfg.VS, cfg.PS)
	if err != nil {
		return nil, err
	}
	c.psos = psos
	return c, nil
}

func (c *Cache) descs(vs, ps gpu.ShaderSource) map[string]gpu.PipelineStateDesc {
	opaque := gpu.PipelineStateDesc{
		RootSignature: c.cfg.RootSignature,
		InputLayout:   c.cfg.InputLayout,
		VS:            vs,
		PS:            ps,
		FillMode:      gpu.FillSolid,
		CullMode:      gpu.CullBack,
		Topology:      gpu.TopologyTriangleList,
		RTVFormat:     c.cfg.RTVFormat,
		DSVFormat:     c.cfg.DSVFormat,
		SampleCount:   1,
		Samplers:      c.cfg.Samplers,
	}
	out := map[string]gpu.PipelineStateDesc{Opaque: opaque}
	if c.cfg.Wireframe {
		wire := opaque
		wire.FillMode = gpu.FillWireframe
		out[OpaqueWireframe] = wire
	}
	return out
}

func (c *Cache) build(vs, ps gpu.ShaderSource) (map[string]gpu.PipelineState, error) {
	descs := c.descs(vs, ps)
	psos := make(map[string]gpu.PipelineState, len(descs))
	for _, name := range slices.Sorted(maps.Keys(descs)) {
		pso, err := c.dev.CreateGraphicsPipelineState(descs[name])
		if err != nil {
			for _, p := range psos {
				p.Release()
			}
			return nil, fmt.Errorf("create pipeline %q: %w", name, err)
		}
		psos[name] = pso
		c.log.Debug("pipeline created", zap.String("name", name), zap.String("shader", vs.Name))
	}
	return psos, nil
}

// Get returns the pipeline named name.
func (c *Cache) Get(name string) (gpu.PipelineState, error) {
	pso, ok := c.psos[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownPipeline)
	}
	return pso, nil
}

// Names returns the built pipeline names in sorted order.
func (c *Cache) Names() []string {
	return slices.Sorted(maps.Keys(c.psos))
}

// RootSignature returns the signature every pipeline was built against.
func (c *Cache) RootSignature() *gpu.RootSignature { return c.cfg.RootSignature }

// Rebuild recompiles every pipeline from new shader sources. On failure the
// previous pipelines stay in place. The GPU must be idle.
func (c *Cache) Rebuild(vs, ps gpu.ShaderSource) error {
	psos, err := c.build(vs, ps)
	if err != nil {
		return err
	}
	for _, p := range c.psos {
		p.Release()
	}
	c.psos = psos
	c.cfg.VS, c.cfg.PS = vs, ps
	c.log.Info("pipelines rebuilt", zap.Strings("names", c.Names()))
	return nil
}

// Close releases every pipeline.
func (c *Cache) Close() {
	for _, p := range c.psos {
		p.Release()
	}
	c.psos = nil
}
