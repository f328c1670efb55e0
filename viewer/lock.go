package viewer

// Secret is the shared scoreboard password.
const Secret = "8888"

type LockState int

const (
	Unlocked LockState = iota
	Locked
)

func (s LockState) String() string {
	if s == Locked {
		return "locked"
	}

	return "unlocked"
}

// Control names an interactive element of the viewer.
type Control int

const (
	ControlBack Control = iota
	ControlThemeToggle
	ControlAddPlayers
	ControlScoreboard
	ControlClearData
	ControlAddFromText
	ControlSavePlayers
	ControlEditPlayer
	ControlDeletePlayer
	ControlIncrement
	ControlDecrement
	ControlColorSelect
	ControlToggleDrag
	ControlSavePositions
	ControlDrag
)

var controlNames = map[Control]string{
	ControlBack:          "back",
	ControlThemeToggle:   "theme-toggle",
	ControlAddPlayers:    "add-players",
	ControlScoreboard:    "scoreboard",
	ControlClearData:     "clear-data",
	ControlAddFromText:   "add-from-text",
	ControlSavePlayers:   "save-players",
	ControlEditPlayer:    "edit-player",
	ControlDeletePlayer:  "delete-player",
	ControlIncrement:     "increment",
	ControlDecrement:     "decrement",
	ControlColorSelect:   "color-select",
	ControlToggleDrag:    "toggle-drag",
	ControlSavePositions: "save-positions",
	ControlDrag:          "drag",
}

func (c Control) String() string {
	if name, ok := controlNames[c]; ok {
		return name
	}

	return "unknown"
}

// Lock gates the scoreboard per visit. The zero value is Unlocked.
type Lock struct {
	state LockState
}

func (l *Lock) State() LockState {
	return l.state
}

// Enter applies a password entry: the canonical secret unlocks, anything
// else, including an empty entry, locks.
func (l *Lock) Enter(secret string) LockState {
	if secret == Secret {
		l.state = Unlocked
	} else {
		l.state = Locked
	}

	return l.state
}

// Reset returns to Unlocked when the scoreboard is left.
func (l *Lock) Reset() {
	l.state = Unlocked
}

// Enabled reports whether c may be used in the current state. Only back
// navigation and the theme toggle survive a lock.
func (l *Lock) Enabled(c Control) bool {
	if l.state == Unlocked {
		return true
	}

	return c == ControlBack || c == ControlThemeToggle
}
