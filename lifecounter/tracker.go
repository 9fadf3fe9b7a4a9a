// Package lifecounter tracks life totals and other per-player counters.
package lifecounter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Dosada05/tabletop-tools/store"
)

const (
	MaxPlayers = 6

	// Two-player games start at 20 life, multiplayer games at 40.
	duelStartingLife        = 20
	multiplayerStartingLife = 40
)

var (
	ErrInvalidPlayerCount = fmt.Errorf("player count must be between 1 and %d", MaxPlayers)
	ErrPlayerNotFound     = errors.New("player not found")
	ErrUnknownCounter     = errors.New("unknown counter type")
)

type PlayerState struct {
	ID            int                 `json:"id"`
	Color         Color               `json:"color"`
	ActiveCounter CounterType         `json:"active_counter"`
	Counters      map[CounterType]int `json:"counters"`
}

// Value returns the counter, 0 when unset.
func (p PlayerState) Value(c CounterType) int {
	return p.Counters[c]
}

func (p PlayerState) ActiveValue() int {
	return p.Counters[p.ActiveCounter]
}

func (p PlayerState) clone() PlayerState {
	counters := make(map[CounterType]int, len(p.Counters))
	for k, v := range p.Counters {
		counters[k] = v
	}
	p.Counters = counters
	return p
}

type State struct {
	Players []PlayerState `json:"players"`
}

func (s State) Clone() State {
	if s.Players == nil {
		return State{}
	}
	out := State{Players: make([]PlayerState, len(s.Players))}
	for i, p := range s.Players {
		out.Players[i] = p.clone()
	}
	return out
}

// DefaultCounters is the counter set of a new player.
func DefaultCounters(startLife int) map[CounterType]int {
	counters := make(map[CounterType]int, counterTypeCount)
	for _, c := range CounterTypes() {
		counters[c] = 0
	}
	counters[Life] = startLife
	return counters
}

// StartingLife is the life total every player begins with for a table of count players.
func StartingLife(count int) int {
	if count <= 2 {
		return duelStartingLife
	}
	return multiplayerStartingLife
}

type Tracker struct {
	mu        sync.Mutex
	state     State
	published *store.Observable[State]
}

func NewTracker() *Tracker {
	return &Tracker{published: store.New(State{})}
}

func (t *Tracker) State() State {
	return t.published.Load().Clone()
}

// Subscribe calls fn with a copy of the new state after every change.
func (t *Tracker) Subscribe(fn func(State)) (cancel func()) {
	return t.published.Subscribe(func(s State) { fn(s.Clone()) })
}

// SetPlayers deals a fresh table of count players.
func (t *Tracker) SetPlayers(count int) error {
	if count < 1 || count > MaxPlayers {
		return ErrInvalidPlayerCount
	}
	return t.transition(func(State) (State, error) {
		return newTable(count), nil
	})
}

func (t *Tracker) IncrementCounter(playerID int, c CounterType, delta int) error {
	if !c.Valid() {
		return ErrUnknownCounter
	}
	return t.updatePlayer(playerID, func(p *PlayerState) {
		p.Counters[c] += delta
	})
}

func (t *Tracker) SwitchCounter(playerID int, c CounterType) error {
	if !c.Valid() {
		return ErrUnknownCounter
	}
	return t.updatePlayer(playerID, func(p *PlayerState) {
		p.ActiveCounter = c
	})
}

// CycleCounter moves the player's active counter one step forward or back.
func (t *Tracker) CycleCounter(playerID int, forward bool) error {
	return t.updatePlayer(playerID, func(p *PlayerState) {
		if forward {
			p.ActiveCounter = p.ActiveCounter.Next()
		} else {
			p.ActiveCounter = p.ActiveCounter.Prev()
		}
	})
}

// Reset re-deals the same number of players. No-op on an empty table.
func (t *Tracker) Reset() {
	_ = t.transition(func(s State) (State, error) {
		if len(s.Players) == 0 {
			return s, errNoChange
		}
		return newTable(len(s.Players)), nil
	})
}

func (t *Tracker) ClearPlayers() {
	_ = t.transition(func(State) (State, error) {
		return State{Players: []PlayerState{}}, nil
	})
}

var errNoChange = errors.New("no change")

func (t *Tracker) updatePlayer(playerID int, fn func(*PlayerState)) error {
	return t.transition(func(s State) (State, error) {
		next := s.Clone()
		for i := range next.Players {
			if next.Players[i].ID == playerID {
				fn(&next.Players[i])
				return next, nil
			}
		}
		return s, fmt.Errorf("%w: %d", ErrPlayerNotFound, playerID)
	})
}

func (t *Tracker) transition(fn func(State) (State, error)) error {
	t.mu.Lock()
	next, err := fn(t.state)
	if err == nil {
		t.state = next
		t.published.Store(next)
	}
	t.mu.Unlock()

	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	t.published.Notify()
	return nil
}

func newTable(count int) State {
	life := StartingLife(count)
	players := make([]PlayerState, count)
	for i := range players {
		players[i] = PlayerState{
			ID:            i,
			Color:         palette[i%len(palette)],
			ActiveCounter: Life,
			Counters:      DefaultCounters(life),
		}
	}
	return State{Players: players}
}
