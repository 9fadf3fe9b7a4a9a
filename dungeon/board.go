// Package dungeon tracks pawn positions on the dungeon boards.
package dungeon

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Dosada05/tabletop-tools/store"
)

const MaxPawns = 6

var (
	ErrUnknownDungeon = errors.New("unknown dungeon")
	ErrPawnOutOfRange = fmt.Errorf("pawn index must be between 0 and %d", MaxPawns-1)
)

type Type string

const (
	Undercity             Type = "undercity"
	BaldursGateWilderness Type = "baldurs_gate_wilderness"
	DungeonOfTheMadMage   Type = "dungeon_of_the_mad_mage"
	LostMineOfPhandelver  Type = "lost_mine_of_phandelver"
	TombOfAnnihilation    Type = "tomb_of_annihilation"
)

var labels = map[Type]string{
	Undercity:             "Undercity",
	BaldursGateWilderness: "Baldur's Gate Wilderness",
	DungeonOfTheMadMage:   "Dungeon of the Mad Mage",
	LostMineOfPhandelver:  "Lost Mine of Phandelver",
	TombOfAnnihilation:    "Tomb of Annihilation",
}

// Types lists the boards in menu order.
func Types() []Type {
	return []Type{Undercity, BaldursGateWilderness, DungeonOfTheMadMage, LostMineOfPhandelver, TombOfAnnihilation}
}

func (t Type) Label() string { return labels[t] }

func (t Type) Valid() bool {
	_, ok := labels[t]
	return ok
}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDungeon, s)
	}
	return t, nil
}

// Position is a pawn location in board pixels. The zero value is unspecified:
// the pawn has not been placed yet.
type Position struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Specified bool    `json:"specified"`
}

func At(x, y float64) Position {
	return Position{X: x, Y: y, Specified: true}
}

type State struct {
	Selected Type               `json:"selected"`
	Label    string             `json:"label"`
	Pawns    [MaxPawns]Position `json:"pawns"`
}

// Board remembers pawn positions for every dungeon separately.
type Board struct {
	mu        sync.Mutex
	selected  Type
	positions map[Type][MaxPawns]Position
	published *store.Observable[State]
}

func NewBoard() *Board {
	b := &Board{
		selected:  Undercity,
		positions: make(map[Type][MaxPawns]Position, len(labels)),
	}
	b.published = store.New(b.snapshot())
	return b
}

func (b *Board) State() State {
	return b.published.Load()
}

func (b *Board) Subscribe(fn func(State)) (cancel func()) {
	return b.published.Subscribe(fn)
}

// SelectDungeon switches the visible board. Positions of the others are kept.
func (b *Board) SelectDungeon(t Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDungeon, t)
	}
	b.transition(func() bool {
		b.selected = t
		return true
	})
	return nil
}

// InitializeIfNeeded places the pawns of the current board at defaults, but only
// while none of them has been placed.
func (b *Board) InitializeIfNeeded(defaults []Position) bool {
	return b.transition(func() bool {
		cur := b.positions[b.selected]
		for _, p := range cur {
			if p.Specified {
				return false
			}
		}
		b.positions[b.selected] = fill(defaults)
		return true
	})
}

// OffsetPawn moves a placed pawn by (dx, dy). Unplaced pawns do not move.
func (b *Board) OffsetPawn(index int, dx, dy float64) error {
	if index < 0 || index >= MaxPawns {
		return ErrPawnOutOfRange
	}
	b.transition(func() bool {
		cur := b.positions[b.selected]
		if !cur[index].Specified {
			return false
		}
		cur[index].X += dx
		cur[index].Y += dy
		b.positions[b.selected] = cur
		return true
	})
	return nil
}

// MovePawn places a pawn at pos on the current board.
func (b *Board) MovePawn(index int, pos Position) error {
	if index < 0 || index >= MaxPawns {
		return ErrPawnOutOfRange
	}
	b.transition(func() bool {
		cur := b.positions[b.selected]
		cur[index] = pos
		b.positions[b.selected] = cur
		return true
	})
	return nil
}

// ResetPawns puts every pawn of the current board back at defaults.
func (b *Board) ResetPawns(defaults []Position) {
	b.transition(func() bool {
		b.positions[b.selected] = fill(defaults)
		return true
	})
}

// DefaultPositions spreads the pawns evenly across the bottom of a board of the
// given size, just above the bottom margin.
func DefaultPositions(width, height, pawnSize, sideMargin, bottomMargin float64) []Position {
	available := width - 2*sideMargin
	if available < pawnSize {
		available = pawnSize
	}
	step := available / MaxPawns
	y := height - bottomMargin - pawnSize

	out := make([]Position, MaxPawns)
	for i := range out {
		centerX := sideMargin + step*(float64(i)+0.5)
		out[i] = At(centerX-pawnSize/2, y)
	}
	return out
}

func (b *Board) transition(fn func() bool) bool {
	b.mu.Lock()
	changed := fn()
	if changed {
		b.published.Store(b.snapshot())
	}
	b.mu.Unlock()

	if changed {
		b.published.Notify()
	}
	return changed
}

func (b *Board) snapshot() State {
	return State{
		Selected: b.selected,
		Label:    b.selected.Label(),
		Pawns:    b.positions[b.selected],
	}
}

func fill(defaults []Position) [MaxPawns]Position {
	var out [MaxPawns]Position
	copy(out[:], defaults)
	return out
}
