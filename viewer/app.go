/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package viewer

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Seednode/scoreboard/board"
	"github.com/Seednode/scoreboard/document"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrBusy         = errors.New("an operation is in progress")
	ErrLocked       = errors.New("scoreboard is locked")
	ErrDragDisabled = errors.New("dragging is disabled")
)

const (
	// LocalReleaseDelay releases the busy state when no transport answers.
	LocalReleaseDelay = 400 * time.Millisecond

	// EndReleaseDelay separates operation:end from the busy release.
	EndReleaseDelay = 120 * time.Millisecond
)

const (
	msgReading  = "Reading data..."
	msgSaving   = "Saving data..."
	msgClearing = "Clearing data..."
	msgWorking  = "Working..."
)

type Screen int

const (
	ScreenMain Screen = iota
	ScreenAdd
	ScreenScore
)

func (s Screen) String() string {
	switch s {
	case ScreenAdd:
		return "add"
	case ScreenScore:
		return "scoreboard"
	default:
		return "main"
	}
}

type Theme int

const (
	Light Theme = iota
	Dark
)

func (t Theme) String() string {
	if t == Dark {
		return "dark"
	}

	return "light"
}

// Transport carries commands to the server. Calls must not block on a
// response; results arrive through the App's Handle methods.
type Transport interface {
	RequestLatest() error
	Save(doc document.Document, message string) error
	Clear() error
}

// Card is a player as drawn on the board.
type Card struct {
	Player   document.Player
	Pos      document.Position
	Dragging bool
}

// View is an immutable snapshot of everything a renderer needs.
type View struct {
	Screen      Screen
	Theme       Theme
	Lock        LockState
	Players     document.Document
	Cards       []Card
	Teams       []Team
	DragEnabled bool
	Busy        bool
	BusyMessage string
	Notice      string
	Connected   bool
}

// Enabled reports whether c is usable in this view.
func (v View) Enabled(c Control) bool {
	if v.Busy {
		return false
	}

	if v.Screen != ScreenScore {
		return true
	}

	l := Lock{state: v.Lock}

	return l.Enabled(c)
}

type Options struct {
	// Clock drives the busy release timers; defaults to the real clock.
	Clock clockwork.Clock

	// Container is the initial board size.
	Container board.Size

	// OnRender receives a View after every state change. It is never called
	// concurrently and must not call back into the App.
	OnRender func(View)
}

type command struct {
	name       string
	generation uint64
	run        func(Transport) error
}

// App is a single viewer: local state, screens, the lock gate and the save
// policy. Every mutation renders before its command reaches the server.
type App struct {
	mu       sync.Mutex
	renderMu sync.Mutex

	clock    clockwork.Clock
	onRender func(View)

	transport Transport
	store     *Store
	layout    *board.Layout
	drag      board.Drag
	lock      Lock
	container board.Size
	screen    Screen
	theme     Theme

	dragEnabled bool
	busy        bool
	busyMessage string
	generation  uint64
	notice      string
}

func New(opts Options) *App {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &App{
		clock:     clock,
		onRender:  opts.OnRender,
		store:     NewStore(),
		layout:    board.NewLayout(),
		container: opts.Container,
	}
}

// Attach routes commands through t. A nil transport means local-only.
func (a *App) Attach(t Transport) {
	a.update(func() (*command, error) {
		a.transport = t

		return nil, nil
	})
}

// Detach drops the transport; later commands run local-only.
func (a *App) Detach() {
	a.Attach(nil)
}

func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.viewLocked()
}

// RequestLatest asks the server for its copy of the document.
func (a *App) RequestLatest() {
	a.update(func() (*command, error) {
		return a.requestLatestLocked(), nil
	})
}

func (a *App) ShowAdd() error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlAddPlayers); err != nil {
			return nil, err
		}

		a.screen = ScreenAdd

		return a.requestLatestLocked(), nil
	})
}

// OpenScoreboard enters the scoreboard with a password entry. ok is false
// when the prompt was cancelled, which leaves everything as it was.
func (a *App) OpenScoreboard(secret string, ok bool) error {
	if !ok {
		return nil
	}

	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlScoreboard); err != nil {
			return nil, err
		}

		if a.lock.Enter(secret) == Locked {
			a.dragEnabled = false
			a.drag.Cancel()
		}

		a.screen = ScreenScore
		a.layout.Reset()

		return a.requestLatestLocked(), nil
	})
}

func (a *App) Back() error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlBack); err != nil {
			return nil, err
		}

		if a.screen == ScreenScore {
			a.lock.Reset()
			a.drag.Cancel()
		}

		a.screen = ScreenMain

		return nil, nil
	})
}

func (a *App) ToggleTheme() error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlThemeToggle); err != nil {
			return nil, err
		}

		if a.theme == Dark {
			a.theme = Light
		} else {
			a.theme = Dark
		}

		return nil, nil
	})
}

// AddNames adds every new name in text and saves if anything was added.
func (a *App) AddNames(text string) error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlAddFromText); err != nil {
			return nil, err
		}

		if len(a.store.AddNames(text)) == 0 {
			return nil, nil
		}

		return a.saveLocked("Add players"), nil
	})
}

// SavePlayers normalizes the roster and saves it.
func (a *App) SavePlayers() error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlSavePlayers); err != nil {
			return nil, err
		}

		a.store.Normalize()

		return a.saveLocked("Save players list"), nil
	})
}

func (a *App) Rename(id, name string) error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlEditPlayer); err != nil {
			return nil, err
		}

		if err := a.store.Rename(id, name); err != nil {
			return nil, err
		}

		return a.saveLocked("Rename player"), nil
	})
}

func (a *App) Delete(id string) error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlDeletePlayer); err != nil {
			return nil, err
		}

		if err := a.store.Delete(id); err != nil {
			return nil, err
		}
		a.layout.Forget(id)

		return a.saveLocked("Delete player"), nil
	})
}

// ChangeScore adjusts a score and saves immediately.
func (a *App) ChangeScore(id string, delta int) error {
	control := ControlIncrement
	if delta < 0 {
		control = ControlDecrement
	}

	return a.update(func() (*command, error) {
		if err := a.gateLocked(control); err != nil {
			return nil, err
		}

		if _, err := a.store.ChangeScore(id, delta); err != nil {
			return nil, err
		}

		return a.saveLocked("Change score"), nil
	})
}

// AssignColor sets a team color and saves immediately.
func (a *App) AssignColor(id, hex string) error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlColorSelect); err != nil {
			return nil, err
		}

		if err := a.store.AssignColor(id, hex); err != nil {
			return nil, err
		}

		return a.saveLocked("Assign color"), nil
	})
}

func (a *App) ToggleDrag() error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlToggleDrag); err != nil {
			return nil, err
		}

		a.dragEnabled = !a.dragEnabled
		if !a.dragEnabled {
			a.drag.Cancel()
		}

		return nil, nil
	})
}

// BeginDrag picks up a card. element and container are the card's and the
// board's current boxes in viewport coordinates.
func (a *App) BeginDrag(id string, ev board.PointerEvent, element, container board.Rect) error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlDrag); err != nil {
			return nil, err
		}

		if !a.dragEnabled {
			return nil, ErrDragDisabled
		}

		if _, ok := a.store.Player(id); !ok {
			return nil, ErrUnknownPlayer
		}

		return nil, a.drag.Start(id, ev, element, container)
	})
}

func (a *App) MoveDrag(ev board.PointerEvent) (document.Position, error) {
	var pos document.Position

	err := a.update(func() (*command, error) {
		var err error
		pos, err = a.drag.Move(ev)

		return nil, err
	})

	return pos, err
}

// EndDrag commits the dropped card's position locally. Positions reach the
// server only through SavePositions.
func (a *App) EndDrag() error {
	return a.update(func() (*command, error) {
		id, pos, err := a.drag.End()
		if err != nil {
			return nil, err
		}

		if err := a.store.CommitPosition(id, pos); err != nil {
			return nil, err
		}
		a.layout.Forget(id)

		return nil, nil
	})
}

// SavePositions commits the drawn position of every card and saves once.
func (a *App) SavePositions() error {
	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlSavePositions); err != nil {
			return nil, err
		}

		a.layout.Ensure(a.store.players, a.container)

		for _, p := range a.store.Snapshot() {
			_ = a.store.CommitPosition(p.ID, a.layout.Resolve(p))
			a.layout.Forget(p.ID)
		}

		return a.saveLocked("Save all positions"), nil
	})
}

// ClearData wipes the document. confirmed is false when the user declined
// the confirmation, which is a no-op.
func (a *App) ClearData(confirmed bool) error {
	if !confirmed {
		return nil
	}

	return a.update(func() (*command, error) {
		if err := a.gateLocked(ControlClearData); err != nil {
			return nil, err
		}

		a.store.Clear()
		a.layout.Reset()

		return a.commandLocked("clear", msgClearing, func(t Transport) error {
			return t.Clear()
		}), nil
	})
}

// Resize records a new board size and recomputes default placements.
func (a *App) Resize(size board.Size) {
	a.update(func() (*command, error) {
		a.container = size
		a.layout.Reset()

		return nil, nil
	})
}

func (a *App) DismissNotice() {
	a.update(func() (*command, error) {
		a.notice = ""

		return nil, nil
	})
}

func (a *App) HandleStart(message string) {
	if message == "" {
		message = msgWorking
	}

	a.update(func() (*command, error) {
		a.setBusyLocked(message)

		return nil, nil
	})
}

func (a *App) HandleEnd(string) {
	a.mu.Lock()
	generation := a.generation
	a.mu.Unlock()

	a.clock.AfterFunc(EndReleaseDelay, func() {
		a.release(generation)
	})
}

func (a *App) HandleError(message string) {
	a.update(func() (*command, error) {
		a.notice = "Server error: " + message
		a.releaseLocked()

		return nil, nil
	})
}

// HandleLatest fully replaces local state with the server's document.
func (a *App) HandleLatest(doc document.Document) {
	a.update(func() (*command, error) {
		a.store.Replace(doc)

		if id, ok := a.drag.ID(); ok {
			if _, found := a.store.Player(id); !found {
				a.drag.Cancel()
			}
		}

		a.releaseLocked()

		return nil, nil
	})
}

// HandleSaveComplete refetches after any viewer's successful write.
func (a *App) HandleSaveComplete() {
	a.RequestLatest()
}

func (a *App) update(fn func() (*command, error)) error {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	a.mu.Lock()
	cmd, err := fn()
	v := a.viewLocked()
	t := a.transport
	a.mu.Unlock()

	if a.onRender != nil {
		a.onRender(v)
	}

	if cmd != nil {
		a.dispatch(t, cmd)
	}

	return err
}

func (a *App) dispatch(t Transport, cmd *command) {
	if t != nil {
		err := cmd.run(t)
		if err == nil {
			return
		}

		log.Warn().
			Err(err).
			Str("command", cmd.name).
			Msg("transport unavailable, continuing locally")
	}

	generation := cmd.generation
	a.clock.AfterFunc(LocalReleaseDelay, func() {
		a.release(generation)
	})
}

func (a *App) release(generation uint64) {
	a.update(func() (*command, error) {
		if a.generation == generation {
			a.releaseLocked()
		}

		return nil, nil
	})
}

func (a *App) gateLocked(c Control) error {
	if a.busy {
		return ErrBusy
	}

	if a.screen == ScreenScore && !a.lock.Enabled(c) {
		return ErrLocked
	}

	return nil
}

func (a *App) setBusyLocked(message string) {
	a.busy = true
	a.busyMessage = message
	a.generation++
}

func (a *App) releaseLocked() {
	a.busy = false
	a.busyMessage = ""
}

func (a *App) commandLocked(name, message string, run func(Transport) error) *command {
	a.setBusyLocked(message)

	return &command{name: name, generation: a.generation, run: run}
}

func (a *App) requestLatestLocked() *command {
	return a.commandLocked("request-latest", msgReading, func(t Transport) error {
		return t.RequestLatest()
	})
}

func (a *App) saveLocked(message string) *command {
	doc := a.store.Snapshot()

	return a.commandLocked("save", msgSaving, func(t Transport) error {
		return t.Save(doc, message)
	})
}

func (a *App) viewLocked() View {
	players := a.store.Snapshot()
	a.layout.Ensure(players, a.container)

	dragID, dragging := a.drag.ID()

	cards := make([]Card, len(players))
	for i, p := range players {
		c := Card{Player: p, Pos: a.layout.Resolve(p)}
		if dragging && p.ID == dragID {
			c.Pos = a.drag.Current()
			c.Dragging = true
		}
		cards[i] = c
	}

	return View{
		Screen:      a.screen,
		Theme:       a.theme,
		Lock:        a.lock.State(),
		Players:     players,
		Cards:       cards,
		Teams:       Teams(players),
		DragEnabled: a.dragEnabled,
		Busy:        a.busy,
		BusyMessage: a.busyMessage,
		Notice:      a.notice,
		Connected:   a.transport != nil,
	}
}
