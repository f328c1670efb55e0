package board

import (
	"errors"
	"testing"

	"github.com/Seednode/scoreboard/document"
)

func players(ids ...string) document.Document {
	d := make(document.Document, 0, len(ids))
	for _, id := range ids {
		d = append(d, document.Player{ID: id, Name: id})
	}

	return d
}

func TestCascadeMonotonicAndInBounds(t *testing.T) {
	container := Size{Width: 800, Height: 600}

	prev := Cascade(0, container)
	if prev.Left != 600 || prev.Top != 460 {
		t.Fatalf("first card at %+v, want bottom-right anchor", prev)
	}

	for i := 1; i < 200; i++ {
		p := Cascade(i, container)

		if p.Left < 0 || p.Top < 0 {
			t.Fatalf("card %d has negative coordinates %+v", i, p)
		}
		if p.Left+CardWidth > container.Width || p.Top+CardHeight > container.Height {
			t.Fatalf("card %d out of bounds %+v", i, p)
		}
		if p.Left > prev.Left || p.Top > prev.Top {
			t.Fatalf("stagger not monotonic at %d: %+v after %+v", i, p, prev)
		}
		if prev.Left > 0 && prev.Left-p.Left != Stagger {
			t.Fatalf("card %d left stagger = %v", i, prev.Left-p.Left)
		}

		prev = p
	}
}

func TestCascadeSmallContainer(t *testing.T) {
	p := Cascade(3, Size{Width: 100, Height: 50})
	if p.Left != 0 || p.Top != 0 {
		t.Errorf("got %+v, want origin", p)
	}
}

func TestLayoutEnsureCountsOnlyUnplaced(t *testing.T) {
	d := players("a", "b", "c")
	d[1].Pos = &document.Position{Left: 50, Top: 60}

	l := NewLayout()
	l.Ensure(d, Size{Width: 800, Height: 600})

	if got := l.Resolve(d[0]); got != Cascade(0, Size{800, 600}) {
		t.Errorf("a at %+v", got)
	}
	if got := l.Resolve(d[1]); got != (document.Position{Left: 50, Top: 60}) {
		t.Errorf("placed card moved to %+v", got)
	}
	if got := l.Resolve(d[2]); got != Cascade(1, Size{800, 600}) {
		t.Errorf("c at %+v, want second cascade slot", got)
	}
	if _, ok := l.memoized("b"); ok {
		t.Error("placed card received a default")
	}
}

func TestLayoutMemoization(t *testing.T) {
	d := players("a", "b")
	l := NewLayout()

	l.Ensure(d, Size{Width: 800, Height: 600})
	first := l.Resolve(d[1])

	// Deleting a card keeps the memoized defaults of the others.
	l.Ensure(d[1:], Size{Width: 800, Height: 600})
	if got := l.Resolve(d[1]); got != first {
		t.Errorf("memoized default changed to %+v", got)
	}

	// Resizing clears the memo.
	l.Reset()
	l.Ensure(d[1:], Size{Width: 400, Height: 300})
	if got := l.Resolve(d[1]); got != Cascade(0, Size{400, 300}) {
		t.Errorf("after reset got %+v", got)
	}

	l.Forget("b")
	if got := l.Resolve(d[1]); got != Fallback {
		t.Errorf("after forget got %+v, want fallback", got)
	}
}

func TestDragClampsInsideContainer(t *testing.T) {
	container := Rect{Left: 100, Top: 50, Width: 800, Height: 600}
	element := Rect{Left: 300, Top: 250, Width: 200, Height: 140}

	var d Drag
	if err := d.Start("a", PointerEvent{X: 310, Y: 260}, element, container); err != nil {
		t.Fatal(err)
	}
	if d.State() != Dragging {
		t.Fatalf("state = %v", d.State())
	}

	tests := []struct {
		name string
		ev   PointerEvent
		want document.Position
	}{
		{"inside", PointerEvent{X: 410, Y: 360}, document.Position{Left: 300, Top: 300}},
		{"past top-left", PointerEvent{X: 0, Y: 0}, document.Position{Left: 0, Top: 0}},
		{"past bottom-right", PointerEvent{X: 5000, Y: 5000}, document.Position{Left: 600, Top: 460}},
		{"touch", PointerEvent{Kind: Touch, Touches: []Point{{X: 120, Y: 70}, {X: 999, Y: 999}}}, document.Position{Left: 10, Top: 10}},
	}

	for _, tt := range tests {
		got, err := d.Move(tt.ev)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}

	id, pos, err := d.End()
	if err != nil {
		t.Fatal(err)
	}
	if id != "a" || pos != (document.Position{Left: 10, Top: 10}) {
		t.Errorf("End = %q %+v", id, pos)
	}
	if d.State() != Idle {
		t.Errorf("state after end = %v", d.State())
	}
}

func TestDragWithoutMoveKeepsStartPosition(t *testing.T) {
	var d Drag
	_ = d.Start("a", PointerEvent{X: 5, Y: 5}, Rect{Left: 40, Top: 30, Width: 10, Height: 10}, Rect{Left: 10, Top: 10, Width: 100, Height: 100})

	_, pos, err := d.End()
	if err != nil {
		t.Fatal(err)
	}
	if pos != (document.Position{Left: 30, Top: 20}) {
		t.Errorf("pos = %+v", pos)
	}
}

func TestDragStateErrors(t *testing.T) {
	var d Drag

	if _, err := d.Move(PointerEvent{}); !errors.Is(err, ErrNotDragging) {
		t.Errorf("Move while idle: %v", err)
	}
	if _, _, err := d.End(); !errors.Is(err, ErrNotDragging) {
		t.Errorf("End while idle: %v", err)
	}
	if err := d.Start("a", PointerEvent{Kind: Touch}, Rect{}, Rect{}); !errors.Is(err, ErrNoPointer) {
		t.Errorf("Start without touches: %v", err)
	}

	_ = d.Start("a", PointerEvent{}, Rect{}, Rect{Width: 10, Height: 10})
	if err := d.Start("b", PointerEvent{}, Rect{}, Rect{}); !errors.Is(err, ErrAlreadyDragging) {
		t.Errorf("second Start: %v", err)
	}

	d.Cancel()
	if _, ok := d.ID(); ok {
		t.Error("drag still active after Cancel")
	}
}
