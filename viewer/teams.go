package viewer

import (
	"github.com/Seednode/scoreboard/document"
)

// Unassigned keys the team of players without a color.
const Unassigned = "(Unassigned)"

// Team is the combined score of every player sharing a color.
type Team struct {
	Key   string
	Name  string
	Total int
}

// Teams totals scores per color, ordered by first appearance in players.
func Teams(players document.Document) []Team {
	var teams []Team
	index := make(map[string]int)

	for _, p := range players {
		key := Unassigned
		if p.Color != nil {
			key = *p.Color
		}

		i, ok := index[key]
		if !ok {
			name := key
			if n, found := document.ColorName(key); found {
				name = n
			}

			i = len(teams)
			index[key] = i
			teams = append(teams, Team{Key: key, Name: name})
		}

		teams[i].Total += p.Score
	}

	return teams
}
