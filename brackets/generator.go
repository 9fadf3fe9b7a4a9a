package brackets

import (
	"fmt"
	"math/rand/v2"

	"github.com/Dosada05/tabletop-tools/models"
)

// Rand is the randomness a generator needs. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a Rand seeded from the runtime's global source.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Route tells where the winner of a preliminary match goes in round 1.
type Route struct {
	Target    models.MatchID `json:"target"`
	ToPlayer1 bool           `json:"to_player1"`
}

type GenerateBracketParams struct {
	Players []models.Player
	Rand    Rand
}

// Layout is a freshly generated bracket, before any result is recorded.
type Layout struct {
	Matches     []models.Match
	TotalRounds int
	// Routing is only set for brackets with a preliminary round.
	Routing map[models.MatchID]Route
	// AutoAdvanceByes asks the engine to resolve matches against bye players.
	AutoAdvanceByes bool
}

type BracketGenerator interface {
	GenerateBracket(params GenerateBracketParams) (*Layout, error)

	GetName() string
}

type Policy string

const (
	PolicyPrelim Policy = "prelim"
	PolicyByes   Policy = "byes"
)

// NewGenerator returns the generator for a non-power-of-two policy. Power-of-two
// fields produce the same plain bracket under every policy.
func NewGenerator(policy Policy) (BracketGenerator, error) {
	switch policy {
	case PolicyPrelim, "":
		return NewPrelimGenerator(), nil
	case PolicyByes:
		return NewByeGenerator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}
