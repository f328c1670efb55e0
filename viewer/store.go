/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package viewer is the client side of the scoreboard: the local copy of
// the document, the lock gate, team totals, and the App that ties them to
// a websocket transport.
package viewer

import (
	"errors"

	"github.com/Seednode/scoreboard/document"
)

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrUnknownColor  = errors.New("color is not in the palette")
	ErrEmptyName     = errors.New("name is empty")
)

// Store holds the viewer's best-known copy of the document. Mutations apply
// immediately; Replace discards them in favor of the server's copy. A Store
// is not safe for concurrent use.
type Store struct {
	players document.Document
}

func NewStore() *Store {
	return &Store{players: document.Document{}}
}

// Replace overwrites local state with a server-confirmed document.
func (s *Store) Replace(d document.Document) {
	s.players = d.Sanitize()
}

func (s *Store) Snapshot() document.Document {
	return s.players.Clone()
}

// Player returns a copy of the player with the given id.
func (s *Store) Player(id string) (document.Player, bool) {
	i := s.players.Index(id)
	if i < 0 {
		return document.Player{}, false
	}

	return document.Document{s.players[i]}.Clone()[0], true
}

// AddNames appends one player per name in text that is not already present
// and returns the names added.
func (s *Store) AddNames(text string) []string {
	var added []string

	for _, name := range document.ParseNames(text) {
		if s.players.HasName(name) {
			continue
		}

		s.players = append(s.players, document.Player{
			ID:   document.NewID(),
			Name: name,
		})
		added = append(added, name)
	}

	return added
}

// ChangeScore adds delta to the player's score, never going below zero, and
// returns the new score.
func (s *Store) ChangeScore(id string, delta int) (int, error) {
	i := s.players.Index(id)
	if i < 0 {
		return 0, ErrUnknownPlayer
	}

	s.players[i].Score = max(0, s.players[i].Score+delta)

	return s.players[i].Score, nil
}

// AssignColor sets the player's team color; an empty hex clears it.
func (s *Store) AssignColor(id, hex string) error {
	i := s.players.Index(id)
	if i < 0 {
		return ErrUnknownPlayer
	}

	if hex == "" {
		s.players[i].Color = nil

		return nil
	}

	if !document.ValidColor(hex) {
		return ErrUnknownColor
	}

	s.players[i].Color = &hex

	return nil
}

func (s *Store) Rename(id, name string) error {
	i := s.players.Index(id)
	if i < 0 {
		return ErrUnknownPlayer
	}

	name = document.NormalizeName(name)
	if name == "" {
		return ErrEmptyName
	}

	s.players[i].Name = name

	return nil
}

func (s *Store) Delete(id string) error {
	i := s.players.Index(id)
	if i < 0 {
		return ErrUnknownPlayer
	}

	s.players = append(s.players[:i], s.players[i+1:]...)

	return nil
}

// CommitPosition records an explicit placement for the player.
func (s *Store) CommitPosition(id string, pos document.Position) error {
	i := s.players.Index(id)
	if i < 0 {
		return ErrUnknownPlayer
	}

	s.players[i].Pos = &pos

	return nil
}

// Normalize re-applies name normalization and score clamping to every
// player, filling in any missing ids.
func (s *Store) Normalize() {
	s.players = s.players.Sanitize()
}

func (s *Store) Clear() {
	s.players = document.Document{}
}
