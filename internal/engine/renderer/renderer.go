// Package renderer drives the frame loop: it builds the scene and its GPU
// resources once, then advances the frame resource ring, rewrites dirty
// constants and records one command list per frame.
package renderer

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/assets"
	"github.com/Faultbox/towerscene/internal/engine/camera"
	"github.com/Faultbox/towerscene/internal/engine/descriptor"
	"github.com/Faultbox/towerscene/internal/engine/frame"
	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/engine/mesh"
	"github.com/Faultbox/towerscene/internal/engine/pipeline"
	"github.com/Faultbox/towerscene/internal/engine/render"
	"github.com/Faultbox/towerscene/internal/engine/scene"
	"github.com/Faultbox/towerscene/internal/engine/shader"
	"github.com/Faultbox/towerscene/internal/engine/texture"
	"github.com/Faultbox/towerscene/internal/engine/water"
	"github.com/Faultbox/towerscene/internal/logger"
)

// Variant selects which scene and binding model the renderer uses.
type Variant string

const (
	VariantInit     Variant = "init"
	VariantShapes   Variant = "shapes"
	VariantTextured Variant = "textured"
)

// Errors returned by New.
var (
	ErrUnknownVariant = errors.New("renderer: unknown variant")
	ErrNoAssets       = errors.New("renderer: textured variant needs an asset manager")
)

// Capabilities parameterise the shared frame loop per variant.
type Capabilities struct {
	HasMaterials       bool
	HasTextures        bool
	HasWaves           bool
	HasWireframeToggle bool
}

// Capabilities returns the feature set of v.
func (v Variant) Capabilities() (Capabilities, error) {
	switch v {
	case VariantInit:
		return Capabilities{}, nil
	case VariantShapes:
		return Capabilities{HasWireframeToggle: true}, nil
	case VariantTextured:
		return Capabilities{HasMaterials: true, HasTextures: true, HasWaves: true}, nil
	}
	return Capabilities{}, fmt.Errorf("%q: %w", string(v), ErrUnknownVariant)
}

// DefaultFrameResources returns the ring length used when Config leaves it 0.
func (v Variant) DefaultFrameResources() int {
	if v == VariantTextured {
		return 5
	}
	return 3
}

// Config configures a Renderer.
type Config struct {
	Variant Variant
	// FrameResources is the ring length N. Zero selects the variant default.
	FrameResources int
	VSync          bool

	// ShaderDir holds color.glsl and default.glsl. Missing files fall back
	// to the embedded copies.
	ShaderDir string
	// Assets resolves texture files for the textured variant.
	Assets *assets.Manager

	Scene scene.Options
	Waves water.Config
	// DisturbInterval is the time between random wave disturbances in
	// seconds. Zero disables them.
	DisturbInterval float32
	DisturbSeed     uint64
}

// Renderer owns every GPU object of one variant.
type Renderer struct {
	cfg  Config
	caps Capabilities
	dev  gpu.Device
	log  *zap.Logger

	fence gpu.Fence
	alloc gpu.CommandAllocator
	cmd   gpu.CommandList
	ring  *frame.Ring

	scene    *scene.Scene
	textures []*render.Texture
	cbvHeap  *gpu.DescriptorHeap
	cbv      descriptor.CBVLayout
	srvHeap  *gpu.DescriptorHeap
	psos     *pipeline.Cache
	program  string

	cam       *camera.OrbitCamera
	pass      render.PassConstants
	wireframe bool

	rng         *rand.Rand
	lastDisturb float32
	frames      uint64
}

// New builds the scene, uploads its geometry and textures under one command
// list, creates the frame resources, descriptor heaps and pipelines, and
// waits for the uploads before releasing their staging buffers.
func New(dev gpu.Device, cfg Config) (*Renderer, error) {
	caps, err := cfg.Variant.Capabilities()
	if err != nil {
		return nil, err
	}
	if cfg.FrameResources == 0 {
		cfg.FrameResources = cfg.Variant.DefaultFrameResources()
	}
	if caps.HasTextures && cfg.Assets == nil {
		return nil, ErrNoAssets
	}

	r := &Renderer{
		cfg:  cfg,
		caps: caps,
		dev:  dev,
		log:  logger.Named("renderer"),
		cam:  camera.NewOrbitCamera(),
		pass: render.NewPassConstants(),
		rng:  rand.New(rand.NewPCG(cfg.DisturbSeed, cfg.DisturbSeed^0x5851f42d4c957f2d)),
	}
	if err := r.init(); err != nil {
		r.Close()
		return nil, err
	}

	r.log.Info("renderer initialized",
		zap.String("variant", string(cfg.Variant)),
		zap.Int("frame_resources", cfg.FrameResources),
		zap.Int("items", r.itemCount()),
		zap.Int("textures", len(r.textures)))
	return r, nil
}

func (r *Renderer) init() error {
	var err error
	if r.fence, err = r.dev.CreateFence(0); err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	if r.alloc, err = r.dev.CreateCommandAllocator(); err != nil {
		return fmt.Errorf("create command allocator: %w", err)
	}
	if r.cmd, err = r.dev.CreateCommandList(r.alloc, nil); err != nil {
		return fmt.Errorf("create command list: %w", err)
	}

	if err := r.buildScene(); err != nil {
		return err
	}

	var layout frame.Layout
	if r.scene != nil {
		waveVerts := 0
		if r.scene.Waves != nil {
			waveVerts = r.scene.Waves.VertexCount()
		}
		layout = render.FrameLayout(r.scene.Items.Len(), r.scene.Materials.Len(), waveVerts)
	} else {
		layout = render.FrameLayout(0, 0, 0)
	}
	if r.ring, err = frame.NewRing(r.dev, r.fence, r.cfg.FrameResources, layout); err != nil {
		return fmt.Errorf("create frame resources: %w", err)
	}

	if err := r.buildDescriptors(); err != nil {
		return err
	}
	if err := r.buildPipelines(); err != nil {
		return err
	}

	if err := r.cmd.Close(); err != nil {
		return fmt.Errorf("close init command list: %w", err)
	}
	if err := r.dev.Queue().Execute(r.cmd); err != nil {
		return fmt.Errorf("execute init command list: %w", err)
	}
	if err := r.waitInit(); err != nil {
		return err
	}

	if r.scene != nil {
		for _, g := range r.scene.Geometries.All() {
			g.DisposeUploaders()
		}
	}
	for _, t := range r.textures {
		t.DisposeUploader()
	}
	return nil
}

// waitInit blocks on a dedicated fence so the ring's fence counts frames only.
func (r *Renderer) waitInit() error {
	f, err := r.dev.CreateFence(0)
	if err != nil {
		return fmt.Errorf("create init fence: %w", err)
	}
	defer f.Release()

	if err := r.dev.Queue().Signal(f, 1); err != nil {
		return fmt.Errorf("signal init fence: %w", err)
	}
	if err := f.Wait(1); err != nil {
		return fmt.Errorf("wait for init uploads: %w", err)
	}
	return nil
}

func (r *Renderer) buildScene() error {
	var err error
	switch r.cfg.Variant {
	case VariantShapes:
		r.scene, err = scene.BuildShapes(r.cfg.Scene)
	case VariantTextured:
		r.scene, err = scene.BuildTextured(r.cfg.Scene, r.cfg.Waves)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}
	if err := r.scene.Items.Validate(r.caps.HasMaterials); err != nil {
		return fmt.Errorf("validate scene: %w", err)
	}

	for _, g := range r.scene.Geometries.All() {
		if err := g.Upload(r.dev, r.cmd); err != nil {
			return err
		}
	}

	if !r.caps.HasTextures {
		return nil
	}
	for _, ref := range r.scene.Textures {
		img, err := texture.Load(r.cfg.Assets, ref.Name, ref.File)
		if err != nil {
			return err
		}
		tex, err := texture.Upload(r.dev, r.cmd, img)
		if err != nil {
			return err
		}
		r.textures = append(r.textures, tex)
	}
	return nil
}

func (r *Renderer) buildDescriptors() error {
	if r.scene == nil {
		return nil
	}

	var err error
	if r.caps.HasTextures {
		resources := make([]gpu.Texture, len(r.textures))
		for i, t := range r.textures {
			resources[i] = t.Resource
		}
		if r.srvHeap, err = descriptor.SRVTable(r.dev, resources); err != nil {
			return fmt.Errorf("build SRV heap: %w", err)
		}
		return nil
	}

	r.cbv = descriptor.CBVLayout{Objects: r.scene.Items.Len(), Frames: r.ring.Len()}
	if r.cbvHeap, err = descriptor.BuildCBVHeap(r.dev, r.ring, r.cbv); err != nil {
		return fmt.Errorf("build CBV heap: %w", err)
	}
	return nil
}

func (r *Renderer) buildPipelines() error {
	if r.scene == nil {
		return nil
	}

	cfg := pipeline.Config{Wireframe: r.caps.HasWireframeToggle}
	var err error
	if r.caps.HasTextures {
		r.program = shader.Default
		cfg.InputLayout = mesh.FormatLit.InputLayout()
		cfg.Samplers = []gpu.SamplerBinding{{Texture: 0, Sampler: pipeline.SamplerAnisotropicWrap}}
		cfg.RootSignature, err = pipeline.RootSignatureTextured(r.dev)
	} else {
		r.program = shader.Color
		cfg.InputLayout = mesh.FormatColor.InputLayout()
		cfg.RootSignature, err = pipeline.RootSignatureTables(r.dev)
	}
	if err != nil {
		return err
	}

	prog, err := shader.Load(r.cfg.ShaderDir, r.program)
	if err != nil {
		return err
	}
	cfg.VS, cfg.PS = prog.VS, prog.PS

	if r.psos, err = pipeline.NewCache(r.dev, cfg); err != nil {
		return err
	}
	return nil
}

// ReloadShaders rereads the shader program from disk and rebuilds every
// pipeline. The queue is flushed first; on failure the old pipelines stay.
func (r *Renderer) ReloadShaders() error {
	if r.psos == nil {
		return nil
	}
	prog, err := shader.Load(r.cfg.ShaderDir, r.program)
	if err != nil {
		return err
	}
	if err := r.Flush(); err != nil {
		return err
	}
	if err := r.psos.Rebuild(prog.VS, prog.PS); err != nil {
		return err
	}
	r.log.Info("shaders reloaded", zap.String("program", prog.Path))
	return nil
}

// Flush blocks until the GPU has finished all submitted work.
func (r *Renderer) Flush() error {
	if r.ring == nil {
		return nil
	}
	return r.ring.Flush(r.dev.Queue())
}

// Resize flushes the queue and reallocates the swap chain buffers. The
// projection follows on the next Update.
func (r *Renderer) Resize(width, height int) error {
	if err := r.Flush(); err != nil {
		return err
	}
	if err := r.dev.SwapChain().Resize(width, height); err != nil {
		return fmt.Errorf("resize swap chain: %w", err)
	}
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

// Close flushes the queue and releases every resource.
func (r *Renderer) Close() error {
	logger.Info("closing renderer")
	err := r.Flush()

	if r.psos != nil {
		r.psos.Close()
	}
	if r.ring != nil {
		r.ring.Close()
	}
	for _, t := range r.textures {
		t.Release()
	}
	if r.scene != nil {
		r.scene.Release()
	}
	if r.fence != nil {
		r.fence.Release()
	}
	if r.alloc != nil {
		r.alloc.Release()
	}
	return err
}

// Capabilities returns the variant's feature set.
func (r *Renderer) Capabilities() Capabilities { return r.caps }

// Camera returns the orbit camera.
func (r *Renderer) Camera() *camera.OrbitCamera { return r.cam }

// Scene returns the scene, or nil for the init variant.
func (r *Renderer) Scene() *scene.Scene { return r.scene }

// Ring returns the frame resource ring.
func (r *Renderer) Ring() *frame.Ring { return r.ring }

// Pass returns the pass constants written by the last Update.
func (r *Renderer) Pass() render.PassConstants { return r.pass }

// Frames returns the number of submitted frames.
func (r *Renderer) Frames() uint64 { return r.frames }

func (r *Renderer) itemCount() int {
	if r.scene == nil {
		return 0
	}
	return r.scene.Items.Len()
}
