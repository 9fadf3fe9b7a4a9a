package brackets

import "errors"

// Every error below leaves the engine state untouched. Callers that only care
// about the resulting state may ignore them.
var (
	ErrEmptyRoster     = errors.New("roster is empty")
	ErrMatchNotFound   = errors.New("match not found")
	ErrMatchPending    = errors.New("match is still waiting for an opponent")
	ErrNotParticipant  = errors.New("winner is not a participant of the match")
	ErrAlreadyResolved = errors.New("match already has a winner")
	ErrNothingToUndo   = errors.New("nothing to undo")

	// Swap rejections
	ErrSwapFrozen      = errors.New("bracket has results, swapping is closed")
	ErrPlaceholderSlot = errors.New("slot is reserved for a preliminary winner")
	ErrEmptySlot       = errors.New("slot has no player")

	ErrUnknownPolicy = errors.New("unknown bracket policy")
)
