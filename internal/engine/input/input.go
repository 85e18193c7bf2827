// Package input turns window events into the per-frame input state the
// renderer consumes.
package input

// EventType classifies an Event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
	EventFocusLost
	EventFocusGained
)

// Key is a key the application reacts to.
type Key int

const (
	KeyUnknown Key = iota
	// KeyWireframe ('1') shows the wireframe pipeline while held.
	KeyWireframe
	// KeyScreenshot (F12) writes a screenshot.
	KeyScreenshot
	// KeyEscape quits.
	KeyEscape
)

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    Key
	Width  int
	Height int
	MouseX int
	MouseY int
	Button MouseButton
}

// State is the input of one frame.
type State struct {
	// Pointer movement in pixels while the left or right button was held.
	OrbitDX, OrbitDY float32
	ZoomDX, ZoomDY   float32

	// Wireframe is true while KeyWireframe is held.
	Wireframe bool
	// Screenshot is true on the frame KeyScreenshot went down.
	Screenshot bool
	// Quit is true once a quit event or KeyEscape arrived.
	Quit bool

	// Active is false while the window is unfocused. ActiveChanged marks
	// the frame it flipped.
	Active        bool
	ActiveChanged bool

	// Resized carries the new client size when the window was resized.
	Resized       bool
	Width, Height int
}

// Input accumulates events between frames.
type Input struct {
	state   State
	held    map[Key]bool
	buttons map[MouseButton]bool

	lastX, lastY int
	havePos      bool
	inactive     bool
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		held:    make(map[Key]bool),
		buttons: make(map[MouseButton]bool),
	}
}

// Push applies one event.
func (i *Input) Push(e Event) {
	switch e.Type {
	case EventQuit:
		i.state.Quit = true

	case EventFocusLost, EventFocusGained:
		inactive := e.Type == EventFocusLost
		if inactive != i.inactive {
			i.inactive = inactive
			i.state.ActiveChanged = !i.state.ActiveChanged
		}
		if inactive {
			clear(i.held)
			clear(i.buttons)
			i.havePos = false
		}

	case EventWindowResize:
		i.state.Resized = true
		i.state.Width, i.state.Height = e.Width, e.Height

	case EventKeyDown:
		if e.Key == KeyScreenshot && !i.held[e.Key] {
			i.state.Screenshot = true
		}
		if e.Key == KeyEscape {
			i.state.Quit = true
		}
		i.held[e.Key] = true

	case EventKeyUp:
		delete(i.held, e.Key)

	case EventMouseDown:
		i.buttons[e.Button] = true
		i.lastX, i.lastY, i.havePos = e.MouseX, e.MouseY, true

	case EventMouseUp:
		delete(i.buttons, e.Button)

	case EventMouseMove:
		if i.havePos {
			dx, dy := float32(e.MouseX-i.lastX), float32(e.MouseY-i.lastY)
			if i.buttons[ButtonLeft] {
				i.state.OrbitDX += dx
				i.state.OrbitDY += dy
			} else if i.buttons[ButtonRight] {
				i.state.ZoomDX += dx
				i.state.ZoomDY += dy
			}
		}
		i.lastX, i.lastY, i.havePos = e.MouseX, e.MouseY, true
	}
}

// Frame returns the state accumulated since the previous Frame and starts a
// new one. Held keys carry over.
func (i *Input) Frame() State {
	s := i.state
	s.Wireframe = i.held[KeyWireframe]
	s.Active = !i.inactive

	i.state = State{Quit: s.Quit}
	return s
}
