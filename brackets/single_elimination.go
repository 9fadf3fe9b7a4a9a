package brackets

import (
	"errors"
	"math/bits"

	"github.com/Dosada05/tabletop-tools/models"
)

// PrelimGenerator trims a non-power-of-two field down to the next lower power of
// two with a preliminary round 0. Prelim winners fill reserved round-1 slots.
type PrelimGenerator struct{}

func NewPrelimGenerator() BracketGenerator {
	return &PrelimGenerator{}
}

func (g *PrelimGenerator) GetName() string {
	return "SingleEliminationPrelim"
}

func (g *PrelimGenerator) GenerateBracket(params GenerateBracketParams) (*Layout, error) {
	n := len(params.Players)
	if n == 0 {
		return nil, ErrEmptyRoster
	}
	if params.Rand == nil {
		return nil, errors.New("generator needs a random source")
	}

	shuffled := shufflePlayers(params.Players, params.Rand)
	if isPowerOfTwo(n) {
		return &Layout{
			Matches:     pairRound(1, pointers(shuffled)),
			TotalRounds: log2(n),
		}, nil
	}

	rFloor := log2(n)
	mainSize := 1 << rFloor
	prelimCount := n - mainSize

	prelimPlayers := shuffled[:2*prelimCount]
	directPlayers := shuffled[2*prelimCount:]

	matches := pairRound(0, pointers(prelimPlayers))

	positions := make([]int, mainSize)
	for i := range positions {
		positions[i] = i
	}
	params.Rand.Shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})
	placeholders := positions[:prelimCount]

	reserved := make(map[int]bool, prelimCount)
	for _, pos := range placeholders {
		reserved[pos] = true
	}

	slots := make([]*models.Player, mainSize)
	next := 0
	for pos := 0; pos < mainSize; pos++ {
		if reserved[pos] {
			continue
		}
		p := directPlayers[next]
		slots[pos] = &p
		next++
	}
	matches = append(matches, pairRound(1, slots)...)

	routing := make(map[models.MatchID]Route, prelimCount)
	for i, pos := range placeholders {
		routing[models.MatchID{Round: 0, Index: i}] = Route{
			Target:    models.MatchID{Round: 1, Index: pos / 2},
			ToPlayer1: pos%2 == 0,
		}
	}

	return &Layout{
		Matches:     matches,
		TotalRounds: rFloor,
		Routing:     routing,
	}, nil
}

// ByeGenerator pads the field with bye players up to the next power of two.
type ByeGenerator struct{}

func NewByeGenerator() BracketGenerator {
	return &ByeGenerator{}
}

func (g *ByeGenerator) GetName() string {
	return "SingleEliminationByes"
}

func (g *ByeGenerator) GenerateBracket(params GenerateBracketParams) (*Layout, error) {
	n := len(params.Players)
	if n == 0 {
		return nil, ErrEmptyRoster
	}
	if params.Rand == nil {
		return nil, errors.New("generator needs a random source")
	}

	numRounds := log2(n)
	if !isPowerOfTwo(n) {
		numRounds++
	}
	size := 1 << numRounds

	field := make([]models.Player, 0, size)
	field = append(field, params.Players...)
	for len(field) < size {
		field = append(field, models.Bye())
	}

	return &Layout{
		Matches:         pairRound(1, pointers(shufflePlayers(field, params.Rand))),
		TotalRounds:     numRounds,
		AutoAdvanceByes: size > n,
	}, nil
}

// pairRound pairs consecutive slots into matches of the given round. An odd
// trailing slot gets a match with an empty player2.
func pairRound(round int, slots []*models.Player) []models.Match {
	matches := make([]models.Match, 0, (len(slots)+1)/2)
	for i := 0; i < len(slots); i += 2 {
		m := models.Match{
			ID:      models.MatchID{Round: round, Index: i / 2},
			Player1: slots[i],
		}
		if i+1 < len(slots) {
			m.Player2 = slots[i+1]
		}
		matches = append(matches, m)
	}
	return matches
}

func shufflePlayers(players []models.Player, rng Rand) []models.Player {
	out := make([]models.Player, len(players))
	copy(out, players)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func pointers(players []models.Player) []*models.Player {
	out := make([]*models.Player, len(players))
	for i := range players {
		p := players[i]
		out[i] = &p
	}
	return out
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// log2 is floor(log2(n)) for n > 0.
func log2(n int) int {
	return bits.Len(uint(n)) - 1
}
