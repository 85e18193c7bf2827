// Package config handles towerscene configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid value")

// Config holds all settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Renderer RendererConfig `yaml:"renderer"`
	Assets   AssetsConfig   `yaml:"assets"`
	Camera   CameraConfig   `yaml:"camera"`
	Waves    WavesConfig    `yaml:"waves"`
	Scene    SceneConfig    `yaml:"scene"`
	Debug    DebugConfig    `yaml:"debug"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// RendererConfig selects the scene variant and the frame resource count.
type RendererConfig struct {
	Variant        string `yaml:"variant"`         // init, shapes or textured
	FrameResources int    `yaml:"frame_resources"` // 0 = variant default
}

// AssetsConfig holds texture and shader locations.
type AssetsConfig struct {
	TextureDir   string `yaml:"texture_dir"`
	ShaderDir    string `yaml:"shader_dir"`
	WatchShaders bool   `yaml:"watch_shaders"`
}

// CameraConfig holds the initial orbit and input sensitivity.
type CameraConfig struct {
	Theta           float32 `yaml:"theta"`
	Phi             float32 `yaml:"phi"`
	Radius          float32 `yaml:"radius"`
	DragSensitivity float32 `yaml:"drag_sensitivity"` // radians per pixel
	ZoomSensitivity float32 `yaml:"zoom_sensitivity"` // units per pixel
}

// WavesConfig holds the wave solver parameters and the random disturbances.
type WavesConfig struct {
	Rows            int     `yaml:"rows"`
	Cols            int     `yaml:"cols"`
	SpatialStep     float32 `yaml:"spatial_step"`
	TimeStep        float32 `yaml:"time_step"`
	Speed           float32 `yaml:"speed"`
	Damping         float32 `yaml:"damping"`
	DisturbInterval float32 `yaml:"disturb_interval"`
	DisturbSeed     uint64  `yaml:"disturb_seed"`
}

// SceneConfig holds scene composition settings.
type SceneConfig struct {
	Seed       uint64  `yaml:"seed"`
	TreeJitter float32 `yaml:"tree_jitter"`
}

// DebugConfig holds developer tooling settings.
type DebugConfig struct {
	ShowFPS          bool   `yaml:"show_fps"`
	ScreenshotDir    string `yaml:"screenshot_dir"`
	ScreenshotFormat string `yaml:"screenshot_format"` // png or bmp
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      800,
			Height:     600,
			Fullscreen: false,
			VSync:      true,
		},
		Renderer: RendererConfig{
			Variant: "textured",
		},
		Assets: AssetsConfig{
			TextureDir: "../Textures",
			ShaderDir:  "./Shaders",
		},
		Camera: CameraConfig{
			Theta:           1.5 * math.Pi,
			Phi:             0.2 * math.Pi,
			Radius:          80,
			DragSensitivity: 0.25 * math.Pi / 180,
			ZoomSensitivity: 0.05,
		},
		Waves: WavesConfig{
			Rows:            128,
			Cols:            128,
			SpatialStep:     1,
			TimeStep:        0.03,
			Speed:           4,
			Damping:         0.2,
			DisturbInterval: 0.25,
			DisturbSeed:     1,
		},
		Debug: DebugConfig{
			ShowFPS:          true,
			ScreenshotDir:    "screenshots",
			ScreenshotFormat: "png",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first setting the renderer cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Graphics.Width <= 0 || c.Graphics.Height <= 0:
		return fmt.Errorf("window size %dx%d: %w", c.Graphics.Width, c.Graphics.Height, ErrInvalid)
	case c.Renderer.FrameResources != 0 && (c.Renderer.FrameResources < 2 || c.Renderer.FrameResources > 8):
		return fmt.Errorf("frame_resources %d not in [2, 8]: %w", c.Renderer.FrameResources, ErrInvalid)
	case c.Waves.DisturbInterval < 0:
		return fmt.Errorf("disturb_interval %g: %w", c.Waves.DisturbInterval, ErrInvalid)
	case c.Waves.DisturbInterval > 0 && (c.Waves.Rows < 9 || c.Waves.Cols < 9):
		return fmt.Errorf("random disturbances need a 9x9 grid, got %dx%d: %w", c.Waves.Rows, c.Waves.Cols, ErrInvalid)
	case c.Scene.TreeJitter < 0:
		return fmt.Errorf("tree_jitter %g: %w", c.Scene.TreeJitter, ErrInvalid)
	}

	switch c.Renderer.Variant {
	case "init", "shapes", "textured":
	default:
		return fmt.Errorf("variant %q: %w", c.Renderer.Variant, ErrInvalid)
	}
	switch c.Debug.ScreenshotFormat {
	case "png", "bmp":
	default:
		return fmt.Errorf("screenshot_format %q: %w", c.Debug.ScreenshotFormat, ErrInvalid)
	}
	return nil
}
