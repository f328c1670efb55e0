/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package board computes where player cards sit on the scoreboard: default
// cascade placement for unplaced cards and freeform drag placement.
package board

import (
	"github.com/Seednode/scoreboard/document"
)

const (
	CardWidth  = 200
	CardHeight = 140 // approximate; cards grow with their controls

	// Stagger is the per-card cascade offset.
	Stagger = 6
)

// Fallback is used for a card that has neither a committed nor a default
// position.
var Fallback = document.Position{Left: 8, Top: 8}

type Size struct {
	Width  float64
	Height float64
}

// Layout memoizes default positions for the current render session. The
// memo is never persisted.
type Layout struct {
	defaults map[string]document.Position
}

func NewLayout() *Layout {
	return &Layout{defaults: make(map[string]document.Position)}
}

// Cascade returns the default position of the i-th unplaced card: anchored
// to the bottom-right corner and staggered up-left by index, never negative.
func Cascade(i int, container Size) document.Position {
	offset := float64(Stagger * i)

	return document.Position{
		Left: max(0, container.Width-CardWidth-offset),
		Top:  max(0, container.Height-CardHeight-offset),
	}
}

// Ensure assigns a default to every unplaced player that has none yet.
// Indices count unplaced players only, in enumeration order.
func (l *Layout) Ensure(players document.Document, container Size) {
	i := 0
	for _, p := range players {
		if p.Pos != nil {
			continue
		}

		if _, ok := l.defaults[p.ID]; !ok {
			l.defaults[p.ID] = Cascade(i, container)
		}
		i++
	}
}

// Resolve returns where p is drawn.
func (l *Layout) Resolve(p document.Player) document.Position {
	if p.Pos != nil {
		return *p.Pos
	}

	if d, ok := l.memoized(p.ID); ok {
		return d
	}

	return Fallback
}

func (l *Layout) memoized(id string) (document.Position, bool) {
	d, ok := l.defaults[id]

	return d, ok
}

// Forget discards the memoized default for id.
func (l *Layout) Forget(id string) {
	delete(l.defaults, id)
}

// Reset clears every memoized default, e.g. after a viewport resize.
func (l *Layout) Reset() {
	clear(l.defaults)
}
