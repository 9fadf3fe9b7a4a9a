package brackets

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Dosada05/tabletop-tools/models"
	"github.com/Dosada05/tabletop-tools/store"
)

// Engine owns one bracket: the roster, its matches and the undo history.
//
// All transitions are serialized by the engine's mutex. The working state is
// never modified in place; every mutation builds a new BracketState, which lets
// history hold previous values without copying them again.
type Engine struct {
	mu sync.Mutex

	generator BracketGenerator
	rng       Rand
	logger    *slog.Logger

	state    models.BracketState
	history  []models.BracketState
	routing  map[models.MatchID]Route
	autoByes bool

	published *store.Observable[models.BracketState]
}

type Option func(*Engine)

func WithGenerator(g BracketGenerator) Option {
	return func(e *Engine) { e.generator = g }
}

func WithRand(r Rand) Option {
	return func(e *Engine) { e.rng = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		generator: NewPrelimGenerator(),
		published: store.New(models.BracketState{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = NewRand()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// State returns a copy of the current bracket.
func (e *Engine) State() models.BracketState {
	return e.published.Load().Clone()
}

// Subscribe calls fn with a copy of the new state after every successful mutation.
func (e *Engine) Subscribe(fn func(models.BracketState)) (cancel func()) {
	return e.published.Subscribe(func(s models.BracketState) { fn(s.Clone()) })
}

// CanUndo reports whether there is a winner selection to take back.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history) > 0
}

// SetPlayers replaces the roster and discards any bracket built from the old one.
func (e *Engine) SetPlayers(rawNames []string) {
	_ = e.transition(func() error {
		e.history = nil
		e.routing = nil
		e.autoByes = false
		e.commit(models.BracketState{Players: NormalizeRoster(rawNames)})
		return nil
	})
}

// StartBracket builds a new bracket from the current roster.
func (e *Engine) StartBracket() error {
	return e.transition(func() error {
		players := e.state.Players
		if len(players) == 0 {
			return ErrEmptyRoster
		}

		layout, err := e.generator.GenerateBracket(GenerateBracketParams{
			Players: players,
			Rand:    e.rng,
		})
		if err != nil {
			return fmt.Errorf("generate %s bracket for %d players: %w", e.generator.GetName(), len(players), err)
		}

		e.history = nil
		e.routing = layout.Routing
		e.autoByes = layout.AutoAdvanceByes

		next := models.BracketState{
			Players:          append([]models.Player(nil), players...),
			Matches:          layout.Matches,
			TotalRounds:      layout.TotalRounds,
			IsBracketStarted: true,
		}
		if e.autoByes {
			e.resolveByes(&next)
		}
		sortMatches(next.Matches)
		e.commit(next)

		e.logger.Debug("bracket started",
			slog.String("generator", e.generator.GetName()),
			slog.Int("players", len(players)),
			slog.Int("total_rounds", layout.TotalRounds),
			slog.Int("prelim_matches", len(layout.Routing)))
		return nil
	})
}

// SelectWinner records winner for the match and advances them.
// Selecting the already recorded winner again is rejected with ErrAlreadyResolved
// and changes nothing, so a result is never advanced twice.
func (e *Engine) SelectWinner(id models.MatchID, winner models.Player) error {
	return e.transition(func() error {
		idx := indexOf(e.state.Matches, id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
		}
		m := e.state.Matches[idx]

		if m.Winner != nil {
			if *m.Winner == winner {
				return fmt.Errorf("%w: %s already won by %q", ErrAlreadyResolved, id, winner.Name)
			}
			return fmt.Errorf("%w: %s was won by %q, undo first", ErrAlreadyResolved, id, m.Winner.Name)
		}
		if m.Player1 == nil || m.Player2 == nil {
			return fmt.Errorf("%w: %s", ErrMatchPending, id)
		}
		if winner.IsBye() || !m.HasParticipant(winner) {
			return fmt.Errorf("%w: %q in %s", ErrNotParticipant, winner.Name, id)
		}

		e.history = append(e.history, e.state)

		next := e.state.Clone()
		w := winner
		next.Matches[idx].Winner = &w
		e.advance(&next, id, winner)
		if e.autoByes {
			e.resolveByes(&next)
		}
		sortMatches(next.Matches)
		e.commit(next)

		e.logger.Debug("winner selected", slog.String("match", id.String()), slog.String("winner", winner.Name))
		return nil
	})
}

// Undo restores the state from before the last winner selection.
func (e *Engine) Undo() error {
	return e.transition(func() error {
		if len(e.history) == 0 {
			return ErrNothingToUndo
		}
		last := len(e.history) - 1
		prev := e.history[last]
		e.history = e.history[:last]
		e.commit(prev)
		return nil
	})
}

// Reset drops the roster, the bracket and the history.
func (e *Engine) Reset() {
	_ = e.transition(func() error {
		e.history = nil
		e.routing = nil
		e.autoByes = false
		e.commit(models.BracketState{})
		return nil
	})
}

// SwapPlayers exchanges the occupants of two slots. Swapping is only allowed
// while no match anywhere in the bracket has a result.
func (e *Engine) SwapPlayers(a, b models.SlotRef) error {
	return e.transition(func() error {
		for _, m := range e.state.Matches {
			if m.Winner != nil {
				return ErrSwapFrozen
			}
		}

		ia := indexOf(e.state.Matches, a.Match)
		ib := indexOf(e.state.Matches, b.Match)
		if ia < 0 {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, a.Match)
		}
		if ib < 0 {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, b.Match)
		}
		if e.isPlaceholder(a) || e.isPlaceholder(b) {
			return ErrPlaceholderSlot
		}

		pa := e.state.Matches[ia].Slot(a.IsPlayer1)
		pb := e.state.Matches[ib].Slot(b.IsPlayer1)
		if pa == nil || pb == nil {
			return ErrEmptySlot
		}
		first, second := *pa, *pb

		next := e.state.Clone()
		setSlot(&next.Matches[ia], a.IsPlayer1, second)
		setSlot(&next.Matches[ib], b.IsPlayer1, first)
		e.commit(next)
		return nil
	})
}

// IsPlaceholder reports whether ref is a round-1 slot reserved for a prelim winner.
func (e *Engine) IsPlaceholder(ref models.SlotRef) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isPlaceholder(ref)
}

// PrelimRouting returns a copy of the prelim-to-round-1 routes of the current bracket.
func (e *Engine) PrelimRouting() map[models.MatchID]Route {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[models.MatchID]Route, len(e.routing))
	for k, v := range e.routing {
		out[k] = v
	}
	return out
}

// Champion returns the winner of the final once it has been played.
func (e *Engine) Champion() (models.Player, bool) {
	s := e.published.Load()
	if !s.IsBracketStarted {
		return models.Player{}, false
	}
	if s.TotalRounds == 0 && len(s.Players) == 1 {
		return s.Players[0], true
	}
	final, ok := s.Match(models.MatchID{Round: s.TotalRounds, Index: 0})
	if !ok || final.Winner == nil {
		return models.Player{}, false
	}
	return *final.Winner, true
}

// transition runs fn under the engine lock and notifies subscribers when fn succeeds.
func (e *Engine) transition(fn func() error) error {
	e.mu.Lock()
	err := fn()
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.published.Notify()
	return nil
}

// commit installs next as the working state. Callers hold e.mu, and next must
// not share its match slice with anything published before.
func (e *Engine) commit(next models.BracketState) {
	e.state = next
	e.published.Store(next)
}

func (e *Engine) advance(s *models.BracketState, from models.MatchID, winner models.Player) {
	if route, ok := e.routing[from]; ok {
		upsertPlayer(s, route.Target, route.ToPlayer1, winner)
		return
	}
	if from.Round >= 1 && from.Round < s.TotalRounds {
		upsertPlayer(s, from.Next(), from.FeedsPlayer1(), winner)
	}
}

// resolveByes settles every open match that has a bye on one side, until none
// is left. A bye against a bye sends a bye forward.
func (e *Engine) resolveByes(s *models.BracketState) {
	for {
		progressed := false
		for i := 0; i < len(s.Matches); i++ {
			m := s.Matches[i]
			if m.Winner != nil || m.Player1 == nil || m.Player2 == nil {
				continue
			}

			var w models.Player
			switch {
			case m.Player1.IsBye() && m.Player2.IsBye():
				w = models.Bye()
			case m.Player1.IsBye():
				w = *m.Player2
			case m.Player2.IsBye():
				w = *m.Player1
			default:
				continue
			}

			s.Matches[i].Winner = &w
			e.advance(s, m.ID, w)
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

func (e *Engine) isPlaceholder(ref models.SlotRef) bool {
	for _, route := range e.routing {
		if route.Target == ref.Match && route.ToPlayer1 == ref.IsPlayer1 {
			return true
		}
	}
	return false
}

func upsertPlayer(s *models.BracketState, id models.MatchID, toPlayer1 bool, p models.Player) {
	idx := indexOf(s.Matches, id)
	if idx < 0 {
		s.Matches = append(s.Matches, models.Match{ID: id})
		idx = len(s.Matches) - 1
	}
	setSlot(&s.Matches[idx], toPlayer1, p)
}

func setSlot(m *models.Match, isPlayer1 bool, p models.Player) {
	if isPlayer1 {
		m.Player1 = &p
	} else {
		m.Player2 = &p
	}
}

func sortMatches(matches []models.Match) {
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ID.Less(matches[j].ID)
	})
}

func indexOf(matches []models.Match, id models.MatchID) int {
	for i, m := range matches {
		if m.ID == id {
			return i
		}
	}
	return -1
}
