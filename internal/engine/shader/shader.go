// Package shader provides the GLSL sources of the scene programs. Sources are
// read from a directory when present and fall back to embedded copies.
package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/engine/gpu"
	"github.com/Faultbox/towerscene/internal/logger"
)

// Program file names.
const (
	Color   = "color.glsl"
	Default = "default.glsl"
)

// Stage entry symbols. The backend defines the entry name before compiling
// the shared source.
const (
	EntryVS = "VS"
	EntryPS = "PS"
)

// ErrEmptySource is returned for a zero-length shader file.
var ErrEmptySource = errors.New("shader: empty source")

//go:embed glsl/*.glsl
var embedded embed.FS

// Program is the vertex and pixel stage of one source file.
type Program struct {
	Name string
	// Path is the file the source was read from, empty when embedded.
	Path string
	VS   gpu.ShaderSource
	PS   gpu.ShaderSource
}

// Embedded returns the built-in copy of name.
func Embedded(name string) (Program, error) {
	src, err := embedded.ReadFile("glsl/" + name)
	if err != nil {
		return Program{}, fmt.Errorf("embedded shader %s: %w", name, err)
	}
	return newProgram(name, "", src)
}

// Load reads name from dir. A missing file falls back to the embedded copy;
// any other read failure is returned.
func Load(dir, name string) (Program, error) {
	path := filepath.Join(dir, name)
	src, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Named("shader").Debug("shader file not found, using embedded copy",
			zap.String("path", path))
		return Embedded(name)
	}
	if err != nil {
		return Program{}, fmt.Errorf("read shader %s: %w", path, err)
	}
	return newProgram(name, path, src)
}

func newProgram(name, path string, src []byte) (Program, error) {
	if len(src) == 0 {
		return Program{}, fmt.Errorf("%s: %w", name, ErrEmptySource)
	}
	return Program{
		Name: name,
		Path: path,
		VS:   gpu.ShaderSource{Name: name, Stage: gpu.StageVertex, Entry: EntryVS, Source: src},
		PS:   gpu.ShaderSource{Name: name, Stage: gpu.StagePixel, Entry: EntryPS, Source: src},
	}, nil
}
