// Package randomizer rolls dice and picks booster packs from a pile.
package randomizer

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"

	"github.com/Dosada05/tabletop-tools/store"
)

const rollHistorySize = 20

const (
	defaultTotalPacks  = "24"
	defaultPacksToPick = "8"

	msgInvalidNumbers = "Please enter valid positive numbers"
	msgPickExceeds    = "Packs to pick cannot exceed total packs"
)

var (
	ErrInvalidSides = errors.New("a die needs at least one side")
	ErrUnknownMode  = errors.New("unknown randomizer mode")
)

type Mode string

const (
	ModeHome  Mode = "home"
	ModePacks Mode = "packs"
	ModeD4    Mode = "d4"
	ModeD6    Mode = "d6"
	ModeD8    Mode = "d8"
	ModeD12   Mode = "d12"
	ModeD20   Mode = "d20"
)

var modeSides = map[Mode]int{
	ModeHome:  0,
	ModePacks: 0,
	ModeD4:    4,
	ModeD6:    6,
	ModeD8:    8,
	ModeD12:   12,
	ModeD20:   20,
}

// Sides is the die size of a dice mode, 0 for the others.
func (m Mode) Sides() int { return modeSides[m] }

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := modeSides[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Rand is satisfied by *rand.Rand from math/rand/v2.
type Rand interface {
	IntN(n int) int
}

type State struct {
	Mode Mode `json:"mode"`

	TotalPacks  string `json:"total_packs"`
	PacksToPick string `json:"packs_to_pick"`
	// Result holds the raw draws: the i-th draw is a position in 1..total-i,
	// so values may repeat. Clients display Packs.
	Result []int `json:"result"`
	// Packs maps each draw to the pack it takes out of the remaining pile.
	// The numbers are distinct.
	Packs        []int  `json:"packs"`
	ErrorMessage string `json:"error_message,omitempty"`

	LastRoll    *int  `json:"last_roll,omitempty"`
	RollHistory []int `json:"roll_history"`
}

func (s State) Clone() State {
	out := s
	out.Result = append([]int(nil), s.Result...)
	out.Packs = append([]int(nil), s.Packs...)
	out.RollHistory = append([]int(nil), s.RollHistory...)
	if s.LastRoll != nil {
		v := *s.LastRoll
		out.LastRoll = &v
	}
	return out
}

type Randomizer struct {
	mu        sync.Mutex
	rng       Rand
	state     State
	published *store.Observable[State]
}

func New(rng Rand) *Randomizer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	initial := State{
		Mode:        ModeHome,
		TotalPacks:  defaultTotalPacks,
		PacksToPick: defaultPacksToPick,
	}
	return &Randomizer{
		rng:       rng,
		state:     initial,
		published: store.New(initial),
	}
}

func (r *Randomizer) State() State {
	return r.published.Load().Clone()
}

// Subscribe calls fn with a copy of the new state after every change.
func (r *Randomizer) Subscribe(fn func(State)) (cancel func()) {
	return r.published.Subscribe(func(s State) { fn(s.Clone()) })
}

func (r *Randomizer) SetMode(m Mode) error {
	if _, ok := modeSides[m]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMode, m)
	}
	r.update(func(s *State) { s.Mode = m })
	return nil
}

func (r *Randomizer) SetTotalPacks(v string) {
	r.update(func(s *State) { s.TotalPacks = v })
}

func (r *Randomizer) SetPacksToPick(v string) {
	r.update(func(s *State) { s.PacksToPick = v })
}

// PickPacksReducingMax draws PacksToPick numbers, the first from 1..TotalPacks
// and each following one from a range one smaller. Invalid input sets
// ErrorMessage and clears the result.
func (r *Randomizer) PickPacksReducingMax() {
	r.update(r.pick)
}

// ApplyPreset sets both pack fields and picks immediately.
func (r *Randomizer) ApplyPreset(total, pick int) {
	r.update(func(s *State) {
		s.TotalPacks = strconv.Itoa(total)
		s.PacksToPick = strconv.Itoa(pick)
		r.pick(s)
	})
}

func (r *Randomizer) ResetPacks() {
	r.update(func(s *State) {
		s.Result = nil
		s.Packs = nil
		s.ErrorMessage = ""
	})
}

// RollDie rolls a die with the given number of sides and returns the result.
func (r *Randomizer) RollDie(sides int) (int, error) {
	if sides <= 0 {
		return 0, ErrInvalidSides
	}
	var roll int
	r.update(func(s *State) {
		roll = r.rng.IntN(sides) + 1
		s.LastRoll = &roll
		s.RollHistory = append(s.RollHistory, roll)
		if n := len(s.RollHistory); n > rollHistorySize {
			s.RollHistory = s.RollHistory[n-rollHistorySize:]
		}
	})
	return roll, nil
}

func (r *Randomizer) ClearDice() {
	r.update(func(s *State) {
		s.LastRoll = nil
		s.RollHistory = nil
	})
}

func (r *Randomizer) pick(s *State) {
	total, errTotal := strconv.Atoi(strings.TrimSpace(s.TotalPacks))
	count, errCount := strconv.Atoi(strings.TrimSpace(s.PacksToPick))

	switch {
	case errTotal != nil || errCount != nil || total <= 0 || count <= 0:
		s.ErrorMessage = msgInvalidNumbers
		s.Result, s.Packs = nil, nil
		return
	case count > total:
		s.ErrorMessage = msgPickExceeds
		s.Result, s.Packs = nil, nil
		return
	}

	pile := make([]int, total)
	for i := range pile {
		pile[i] = i + 1
	}

	result := make([]int, 0, count)
	packs := make([]int, 0, count)
	for bound := total; len(result) < count; bound-- {
		draw := r.rng.IntN(bound) + 1
		result = append(result, draw)
		packs = append(packs, pile[draw-1])
		pile = append(pile[:draw-1], pile[draw:]...)
	}

	s.Result = result
	s.Packs = packs
	s.ErrorMessage = ""
}

func (r *Randomizer) update(fn func(*State)) {
	r.mu.Lock()
	next := r.state.Clone()
	fn(&next)
	r.state = next
	r.published.Store(next)
	r.mu.Unlock()

	r.published.Notify()
}
