package board

import (
	"errors"

	"github.com/Seednode/scoreboard/document"
)

var (
	ErrNotDragging     = errors.New("no drag in progress")
	ErrAlreadyDragging = errors.New("drag already in progress")
	ErrNoPointer       = errors.New("pointer event carries no coordinates")
)

type Point struct {
	X float64
	Y float64
}

// Rect is a box in viewport coordinates.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

type PointerKind int

const (
	Mouse PointerKind = iota
	Touch
)

// PointerEvent is a mouse or touch sample. Touch events use their first
// touch point.
type PointerEvent struct {
	Kind    PointerKind
	X       float64
	Y       float64
	Touches []Point
}

func (e PointerEvent) Point() (Point, error) {
	if e.Kind == Touch {
		if len(e.Touches) == 0 {
			return Point{}, ErrNoPointer
		}

		return e.Touches[0], nil
	}

	return Point{X: e.X, Y: e.Y}, nil
}

type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}

	return "idle"
}

// Drag tracks a single card being moved. Container and element geometry is
// captured at Start and reused for every Move.
type Drag struct {
	state     DragState
	id        string
	container Rect
	element   Rect
	offset    Point
	current   document.Position
}

func (d *Drag) State() DragState {
	return d.state
}

// ID returns the card being dragged, if any.
func (d *Drag) ID() (string, bool) {
	return d.id, d.state == Dragging
}

// Current returns the last proposed position of the dragged card.
func (d *Drag) Current() document.Position {
	return d.current
}

func (d *Drag) Start(id string, ev PointerEvent, element, container Rect) error {
	if d.state == Dragging {
		return ErrAlreadyDragging
	}

	pt, err := ev.Point()
	if err != nil {
		return err
	}

	*d = Drag{
		state:     Dragging,
		id:        id,
		container: container,
		element:   element,
		offset:    Point{X: pt.X - element.Left, Y: pt.Y - element.Top},
		current: document.Position{
			Left: element.Left - container.Left,
			Top:  element.Top - container.Top,
		},
	}

	return nil
}

// Move proposes a new position from the pointer, clamped so the card stays
// fully inside the container.
func (d *Drag) Move(ev PointerEvent) (document.Position, error) {
	if d.state != Dragging {
		return document.Position{}, ErrNotDragging
	}

	pt, err := ev.Point()
	if err != nil {
		return d.current, err
	}

	left := pt.X - d.container.Left - d.offset.X
	top := pt.Y - d.container.Top - d.offset.Y

	d.current = document.Position{
		Left: clamp(left, d.container.Width-d.element.Width),
		Top:  clamp(top, d.container.Height-d.element.Height),
	}

	return d.current, nil
}

// End finishes the drag and returns the card and its final position.
func (d *Drag) End() (string, document.Position, error) {
	if d.state != Dragging {
		return "", document.Position{}, ErrNotDragging
	}

	id, pos := d.id, d.current
	*d = Drag{}

	return id, pos, nil
}

// Cancel abandons the drag without a result.
func (d *Drag) Cancel() {
	*d = Drag{}
}

func clamp(v, upper float64) float64 {
	return max(0, min(v, upper))
}
