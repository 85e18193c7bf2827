// Package window handles SDL2 window and OpenGL context creation.
package window

import (
	"fmt"
	"runtime"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/towerscene/internal/engine/input"
	"github.com/Faultbox/towerscene/internal/logger"
)

func init() {
	// OpenGL calls must be made from the main thread
	runtime.LockOSThread()
}

// Config holds window configuration.
type Config struct {
	Title      string
	Width      int
	Height     int
	Fullscreen bool
	VSync      bool
}

// Window wraps SDL2 window and OpenGL context.
type Window struct {
	config    Config
	sdlWindow *sdl.Window
	glContext sdl.GLContext
	log       *zap.Logger
}

// New creates a new window with an OpenGL 4.5 core context.
func New(cfg Config) (*Window, error) {
	w := &Window{
		config: cfg,
		log:    logger.Named("window"),
	}

	w.log.Info("initializing SDL2")
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("SDL_Init failed: %w", err)
	}

	// Set OpenGL attributes BEFORE creating window. Clip control and direct
	// state access need 4.5.
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 4)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 5)
	sdl.GLSetAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
	sdl.GLSetAttribute(sdl.GL_DOUBLEBUFFER, 1)

	// Rendering goes to offscreen framebuffers; the window only receives blits.
	sdl.GLSetAttribute(sdl.GL_DEPTH_SIZE, 0)

	flags := uint32(sdl.WINDOW_OPENGL | sdl.WINDOW_RESIZABLE)
	if cfg.Fullscreen {
		flags |= sdl.WINDOW_FULLSCREEN_DESKTOP
	}

	var err error
	w.sdlWindow, err = sdl.CreateWindow(
		cfg.Title,
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		int32(cfg.Width),
		int32(cfg.Height),
		flags,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("SDL_CreateWindow failed: %w", err)
	}

	w.glContext, err = w.sdlWindow.GLCreateContext()
	if err != nil {
		w.sdlWindow.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("SDL_GL_CreateContext failed: %w", err)
	}

	interval := 0
	if cfg.VSync {
		interval = 1
	}
	if err := w.SetSwapInterval(interval); err != nil {
		w.log.Warn("failed to set swap interval", zap.Int("interval", interval), zap.Error(err))
	}

	w.log.Info("window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("fullscreen", cfg.Fullscreen),
		zap.Bool("vsync", cfg.VSync),
	)

	return w, nil
}

// Close destroys the window and cleans up SDL2.
func (w *Window) Close() {
	w.log.Info("closing window")

	if w.glContext != nil {
		sdl.GLDeleteContext(w.glContext)
	}
	if w.sdlWindow != nil {
		w.sdlWindow.Destroy()
	}

	sdl.Quit()
}

// SwapBuffers swaps the OpenGL buffers.
func (w *Window) SwapBuffers() {
	w.sdlWindow.GLSwap()
}

// SetSwapInterval sets the number of vertical blanks a swap waits for.
func (w *Window) SetSwapInterval(interval int) error {
	return sdl.GLSetSwapInterval(interval)
}

// DrawableSize returns the size of the GL drawable in pixels, which differs
// from the window size on high-DPI displays.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.sdlWindow.GLGetDrawableSize()
	return int(width), int(height)
}

// SetTitle sets the window title.
func (w *Window) SetTitle(title string) {
	w.sdlWindow.SetTitle(title)
}

// Poll drains the SDL event queue into in.
func (w *Window) Poll(in *input.Input) {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if e, ok := w.translate(event); ok {
			in.Push(e)
		}
	}
}

func (w *Window) translate(event sdl.Event) (input.Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return input.Event{Type: input.EventQuit}, true

	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_SIZE_CHANGED:
			width, height := w.DrawableSize()
			return input.Event{Type: input.EventWindowResize, Width: width, Height: height}, true
		case sdl.WINDOWEVENT_FOCUS_LOST, sdl.WINDOWEVENT_MINIMIZED:
			return input.Event{Type: input.EventFocusLost}, true
		case sdl.WINDOWEVENT_FOCUS_GAINED, sdl.WINDOWEVENT_RESTORED:
			return input.Event{Type: input.EventFocusGained}, true
		}

	case *sdl.KeyboardEvent:
		key := translateKey(e.Keysym.Sym)
		if key == input.KeyUnknown {
			return input.Event{}, false
		}
		if e.Type == sdl.KEYDOWN {
			return input.Event{Type: input.EventKeyDown, Key: key}, true
		}
		return input.Event{Type: input.EventKeyUp, Key: key}, true

	case *sdl.MouseButtonEvent:
		ev := input.Event{
			Button: translateButton(e.Button),
			MouseX: int(e.X),
			MouseY: int(e.Y),
		}
		if e.Type == sdl.MOUSEBUTTONDOWN {
			ev.Type = input.EventMouseDown
			// Keep receiving motion while dragging outside the window.
			sdl.CaptureMouse(true)
		} else {
			ev.Type = input.EventMouseUp
			sdl.CaptureMouse(false)
		}
		return ev, true

	case *sdl.MouseMotionEvent:
		return input.Event{Type: input.EventMouseMove, MouseX: int(e.X), MouseY: int(e.Y)}, true
	}
	return input.Event{}, false
}

func translateKey(k sdl.Keycode) input.Key {
	switch k {
	case sdl.K_1:
		return input.KeyWireframe
	case sdl.K_F12:
		return input.KeyScreenshot
	case sdl.K_ESCAPE:
		return input.KeyEscape
	}
	return input.KeyUnknown
}

func translateButton(b uint8) input.MouseButton {
	switch b {
	case sdl.BUTTON_LEFT:
		return input.ButtonLeft
	case sdl.BUTTON_MIDDLE:
		return input.ButtonMiddle
	case sdl.BUTTON_RIGHT:
		return input.ButtonRight
	}
	return input.ButtonNone
}
