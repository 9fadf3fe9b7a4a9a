package dungeon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() []Position {
	return DefaultPositions(600, 800, 48, 24, 16)
}

func TestNewBoard_StartsUnplacedOnUndercity(t *testing.T) {
	b := NewBoard()
	s := b.State()
	assert.Equal(t, Undercity, s.Selected)
	assert.Equal(t, "Undercity", s.Label)
	for _, p := range s.Pawns {
		assert.False(t, p.Specified)
	}
}

func TestInitializeIfNeeded_OnlyOnce(t *testing.T) {
	b := NewBoard()
	require.True(t, b.InitializeIfNeeded(defaults()))
	require.NoError(t, b.OffsetPawn(0, 10, -5))
	moved := b.State().Pawns[0]

	assert.False(t, b.InitializeIfNeeded(defaults()))
	assert.Equal(t, moved, b.State().Pawns[0])
}

func TestOffsetPawn(t *testing.T) {
	b := NewBoard()
	require.NoError(t, b.OffsetPawn(1, 5, 5))
	assert.False(t, b.State().Pawns[1].Specified, "unplaced pawns ignore drags")

	b.InitializeIfNeeded(defaults())
	start := b.State().Pawns[1]
	require.NoError(t, b.OffsetPawn(1, 5, -3))
	got := b.State().Pawns[1]
	assert.InDelta(t, start.X+5, got.X, 1e-9)
	assert.InDelta(t, start.Y-3, got.Y, 1e-9)

	assert.ErrorIs(t, b.OffsetPawn(MaxPawns, 1, 1), ErrPawnOutOfRange)
	assert.ErrorIs(t, b.OffsetPawn(-1, 1, 1), ErrPawnOutOfRange)
}

func TestSelectDungeon_RemembersPositionsPerBoard(t *testing.T) {
	b := NewBoard()
	b.InitializeIfNeeded(defaults())
	require.NoError(t, b.MovePawn(2, At(1, 2)))

	require.NoError(t, b.SelectDungeon(TombOfAnnihilation))
	assert.False(t, b.State().Pawns[2].Specified)
	assert.Equal(t, "Tomb of Annihilation", b.State().Label)

	require.NoError(t, b.SelectDungeon(Undercity))
	assert.Equal(t, At(1, 2), b.State().Pawns[2])

	assert.ErrorIs(t, b.SelectDungeon("moria"), ErrUnknownDungeon)
}

func TestResetPawns(t *testing.T) {
	b := NewBoard()
	b.InitializeIfNeeded(defaults())
	require.NoError(t, b.OffsetPawn(3, 100, 100))

	b.ResetPawns(defaults())
	assert.Equal(t, defaults()[3], b.State().Pawns[3])
}

func TestDefaultPositions(t *testing.T) {
	got := DefaultPositions(600, 800, 48, 24, 16)
	require.Len(t, got, MaxPawns)
	for i, p := range got {
		assert.True(t, p.Specified)
		assert.InDelta(t, 800-16-48, p.Y, 1e-9)
		if i > 0 {
			assert.Greater(t, p.X, got[i-1].X)
		}
	}
}

func TestParseType(t *testing.T) {
	got, err := ParseType(" Lost_Mine_of_Phandelver ")
	require.NoError(t, err)
	assert.Equal(t, LostMineOfPhandelver, got)

	_, err = ParseType("nowhere")
	assert.ErrorIs(t, err, ErrUnknownDungeon)
}

func TestSubscribe_SkipsNoops(t *testing.T) {
	b := NewBoard()
	calls := 0
	b.Subscribe(func(State) { calls++ })

	b.InitializeIfNeeded(defaults())
	b.InitializeIfNeeded(defaults())
	require.NoError(t, b.OffsetPawn(0, 1, 1))

	assert.Equal(t, 2, calls)
}
