package models

import "fmt"

// MatchID addresses a match by round and position within the round.
// Round 0 holds preliminary matches.
type MatchID struct {
	Round int `json:"round"`
	Index int `json:"index"`
}

func (id MatchID) String() string {
	return fmt.Sprintf("R%dM%d", id.Round, id.Index)
}

// Next is the match the winner of id advances to.
func (id MatchID) Next() MatchID {
	return MatchID{Round: id.Round + 1, Index: id.Index / 2}
}

// FeedsPlayer1 reports whether the winner of id lands in the player1 slot of Next.
func (id MatchID) FeedsPlayer1() bool {
	return id.Index%2 == 0
}

func (id MatchID) Less(other MatchID) bool {
	if id.Round != other.Round {
		return id.Round < other.Round
	}
	return id.Index < other.Index
}

type Match struct {
	ID      MatchID `json:"id"`
	Player1 *Player `json:"player1,omitempty"`
	Player2 *Player `json:"player2,omitempty"`
	Winner  *Player `json:"winner,omitempty"`
}

func (m Match) Round() int {
	return m.ID.Round
}

func (m Match) IsResolved() bool {
	return m.Winner != nil
}

// Slot returns the occupant of one side of the match.
func (m Match) Slot(isPlayer1 bool) *Player {
	if isPlayer1 {
		return m.Player1
	}
	return m.Player2
}

// HasParticipant reports whether p occupies either slot.
func (m Match) HasParticipant(p Player) bool {
	return (m.Player1 != nil && *m.Player1 == p) || (m.Player2 != nil && *m.Player2 == p)
}

// SlotRef addresses one competitor slot. Used only for pre-start swaps.
type SlotRef struct {
	Match     MatchID `json:"match"`
	IsPlayer1 bool    `json:"is_player1"`
}

// BracketState is the value published by the bracket engine after every mutation.
type BracketState struct {
	Players          []Player `json:"players"`
	Matches          []Match  `json:"matches"`
	TotalRounds      int      `json:"total_rounds"`
	IsBracketStarted bool     `json:"is_bracket_started"`
}

// Clone returns a copy that shares nothing mutable with s.
func (s BracketState) Clone() BracketState {
	out := BracketState{
		TotalRounds:      s.TotalRounds,
		IsBracketStarted: s.IsBracketStarted,
	}
	if s.Players != nil {
		out.Players = append([]Player(nil), s.Players...)
	}
	if s.Matches != nil {
		out.Matches = make([]Match, len(s.Matches))
		for i, m := range s.Matches {
			out.Matches[i] = Match{
				ID:      m.ID,
				Player1: clonePlayer(m.Player1),
				Player2: clonePlayer(m.Player2),
				Winner:  clonePlayer(m.Winner),
			}
		}
	}
	return out
}

// MatchesInRound returns the matches of one round ordered by index.
func (s BracketState) MatchesInRound(round int) []Match {
	var out []Match
	for _, m := range s.Matches {
		if m.ID.Round == round {
			out = append(out, m)
		}
	}
	return out
}

func (s BracketState) Match(id MatchID) (Match, bool) {
	for _, m := range s.Matches {
		if m.ID == id {
			return m, true
		}
	}
	return Match{}, false
}

func clonePlayer(p *Player) *Player {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
