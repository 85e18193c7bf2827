// Package app wires the window, GL device, renderer and developer tooling
// into the main loop.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/assets"
	"github.com/Faultbox/towerscene/internal/config"
	"github.com/Faultbox/towerscene/internal/engine/debug"
	"github.com/Faultbox/towerscene/internal/engine/gpu/glbackend"
	"github.com/Faultbox/towerscene/internal/engine/input"
	"github.com/Faultbox/towerscene/internal/engine/renderer"
	"github.com/Faultbox/towerscene/internal/engine/scene"
	"github.com/Faultbox/towerscene/internal/engine/shader"
	"github.com/Faultbox/towerscene/internal/engine/timer"
	"github.com/Faultbox/towerscene/internal/engine/water"
	"github.com/Faultbox/towerscene/internal/engine/window"
	"github.com/Faultbox/towerscene/internal/logger"
)

// Title is the window caption before frame stats are appended.
const Title = "towerscene"

// inactivePoll is how long the loop sleeps while the window is unfocused.
const inactivePoll = 100 * time.Millisecond

// App is the running application.
type App struct {
	cfg      *config.Config
	window   *window.Window
	device   *glbackend.Device
	renderer *renderer.Renderer
	assets   *assets.Manager
	input    *input.Input
	timer    *timer.Timer
	stats    timer.FrameStats
	shots    *debug.ScreenshotCapture
	watcher  *shader.Watcher
	log      *zap.Logger
}

// New creates the window and every GPU resource. A failure here is an
// initialization failure the caller reports to the user.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:   cfg,
		input: input.New(),
		timer: timer.New(),
		log:   logger.Named("app"),
	}
	if err := a.init(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	cfg := a.cfg
	var err error

	a.window, err = window.New(window.Config{
		Title:      Title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if a.device, err = glbackend.New(a.window); err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}

	a.assets = assets.NewManager()
	if cfg.Renderer.Variant == string(renderer.VariantTextured) {
		if err := a.assets.AddDir(cfg.Assets.TextureDir); err != nil {
			return fmt.Errorf("texture directory: %w", err)
		}
	}

	a.renderer, err = renderer.New(a.device, renderer.Config{
		Variant:        renderer.Variant(cfg.Renderer.Variant),
		FrameResources: cfg.Renderer.FrameResources,
		VSync:          cfg.Graphics.VSync,
		ShaderDir:      cfg.Assets.ShaderDir,
		Assets:         a.assets,
		Scene: scene.Options{
			Seed:       cfg.Scene.Seed,
			TreeJitter: cfg.Scene.TreeJitter,
		},
		Waves: water.Config{
			Rows:    cfg.Waves.Rows,
			Cols:    cfg.Waves.Cols,
			Dx:      cfg.Waves.SpatialStep,
			Dt:      cfg.Waves.TimeStep,
			Speed:   cfg.Waves.Speed,
			Damping: cfg.Waves.Damping,
		},
		DisturbInterval: cfg.Waves.DisturbInterval,
		DisturbSeed:     cfg.Waves.DisturbSeed,
	})
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	cam := a.renderer.Camera()
	cam.Theta, cam.Phi, cam.Radius = cfg.Camera.Theta, cfg.Camera.Phi, cfg.Camera.Radius
	cam.DragSensitivity, cam.ZoomSensitivity = cfg.Camera.DragSensitivity, cfg.Camera.ZoomSensitivity

	if a.shots, err = debug.NewScreenshotCapture(cfg.Debug.ScreenshotDir, Title, cfg.Debug.ScreenshotFormat); err != nil {
		return err
	}

	if cfg.Assets.WatchShaders {
		// A missing shader directory only disables hot reload.
		if a.watcher, err = shader.Watch(cfg.Assets.ShaderDir, shader.Color, shader.Default); err != nil {
			a.log.Warn("shader hot reload disabled", zap.Error(err))
			a.watcher = nil
		}
	}

	a.log.Info("application initialized", zap.String("variant", cfg.Renderer.Variant))
	return nil
}

// Run runs the main loop until the window closes or a frame fails.
func (a *App) Run() error {
	a.timer.Reset()
	a.log.Info("starting main loop")

	for {
		a.window.Poll(a.input)
		in := a.input.Frame()
		if in.Quit {
			return nil
		}

		if in.ActiveChanged {
			if in.Active {
				a.timer.Start()
			} else {
				a.timer.Stop()
			}
			a.log.Debug("window focus changed", zap.Bool("active", in.Active))
		}
		if in.Resized && in.Width > 0 && in.Height > 0 {
			if err := a.renderer.Resize(in.Width, in.Height); err != nil {
				return err
			}
		}
		if a.watcher != nil && a.watcher.Changed() {
			if err := a.renderer.ReloadShaders(); err != nil {
				a.log.Error("shader reload failed, keeping previous pipelines", zap.Error(err))
			}
		}

		a.timer.Tick()
		if a.timer.Stopped() {
			time.Sleep(inactivePoll)
			continue
		}

		if err := a.renderer.Update(a.timer.Snapshot(), in); err != nil {
			return fmt.Errorf("update frame %d: %w", a.renderer.Frames()+1, err)
		}
		if err := a.renderer.Draw(); err != nil {
			return fmt.Errorf("draw frame %d: %w", a.renderer.Frames()+1, err)
		}

		if in.Screenshot {
			a.screenshot()
		}
		a.frameStats()
	}
}

func (a *App) screenshot() {
	path, err := a.shots.Capture(a.device.SwapChain())
	if err != nil {
		a.log.Error("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", path))
}

// frameStats refreshes the window title once per second.
func (a *App) frameStats() {
	if !a.stats.Frame(a.timer.TotalTime()) || !a.cfg.Debug.ShowFPS {
		return
	}
	a.window.SetTitle(StatsTitle(a.stats))
}

// StatsTitle formats the caption with frames per second and milliseconds
// per frame.
func StatsTitle(s timer.FrameStats) string {
	return fmt.Sprintf("%s    fps: %.0f   mspf: %.3f", Title, s.FPS, s.MSPF)
}

// Close releases everything in reverse creation order.
func (a *App) Close() {
	a.log.Info("closing application")

	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			a.log.Error("renderer close", zap.Error(err))
		}
	}
	if a.assets != nil {
		a.assets.Close()
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			a.log.Error("device close", zap.Error(err))
		}
	}
	if a.window != nil {
		a.window.Close()
	}
}
