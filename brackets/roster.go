package brackets

import (
	"fmt"
	"strings"

	"github.com/Dosada05/tabletop-tools/models"
)

// NormalizeRoster turns raw name entries into players.
// Names are trimmed, blanks become "Player <n>" (1-based) and repeated names
// get " (2)", " (3)", ... appended in order of appearance. IDs follow input order.
func NormalizeRoster(rawNames []string) []models.Player {
	players := make([]models.Player, 0, len(rawNames))
	seen := make(map[string]int, len(rawNames))

	for i, raw := range rawNames {
		name := strings.TrimSpace(raw)
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}

		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}

		players = append(players, models.Player{ID: i, Name: name})
	}
	return players
}
