package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagVariant    = flag.String("variant", "", "Scene variant: init, shapes or textured")
	flagFrames     = flag.Int("frames", 0, "Number of frame resources")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagNoVSync    = flag.Bool("novsync", false, "Present without waiting for vertical blank")
	flagTextures   = flag.String("textures", "", "Texture directory")
	flagShaders    = flag.String("shaders", "", "Shader directory")

	flagWriteConfig = flag.Bool("write-config", false, "Write the effective config to the user config directory and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// WriteConfigRequested reports whether -write-config was given.
func WriteConfigRequested() bool {
	return *flagWriteConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
		cfg.Debug.ShowFPS = true
	}
	if *flagVariant != "" {
		cfg.Renderer.Variant = *flagVariant
	}
	if *flagFrames > 0 {
		cfg.Renderer.FrameResources = *flagFrames
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagNoVSync {
		cfg.Graphics.VSync = false
	}
	if *flagTextures != "" {
		cfg.Assets.TextureDir = *flagTextures
	}
	if *flagShaders != "" {
		cfg.Assets.ShaderDir = *flagShaders
	}
}
