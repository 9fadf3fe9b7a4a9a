package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/tabletop-tools/lifecounter"
	"github.com/Dosada05/tabletop-tools/services"
)

type LifeCounterHandler struct {
	sessionLoader
}

func NewLifeCounterHandler(sessions services.SessionService) *LifeCounterHandler {
	return &LifeCounterHandler{sessionLoader: sessionLoader{sessions: sessions}}
}

func (h *LifeCounterHandler) respond(w http.ResponseWriter, r *http.Request, t *lifecounter.Tracker) {
	if err := writeJSON(w, http.StatusOK, jsonResponse{"life": t.State()}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *LifeCounterHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, r, session.Life)
}

func (h *LifeCounterHandler) SetPlayers(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input struct {
		Count int `json:"count"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := session.Life.SetPlayers(input.Count); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, session.Life)
}

// AdjustCounter adds delta to a counter of the player. Without a counter in
// the body the player's active counter changes.
func (h *LifeCounterHandler) AdjustCounter(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	playerID, err := getIntFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Counter *lifecounter.CounterType `json:"counter"`
		Delta   int                      `json:"delta"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var counter lifecounter.CounterType
	if input.Counter != nil {
		counter = *input.Counter
	} else {
		player, found := findLifePlayer(session.Life.State(), playerID)
		if !found {
			mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: %d", lifecounter.ErrPlayerNotFound, playerID))
			return
		}
		counter = player.ActiveCounter
	}

	if err := session.Life.IncrementCounter(playerID, counter, input.Delta); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, session.Life)
}

// SetActiveCounter switches the displayed counter, either to a named one or one
// step in the given direction.
func (h *LifeCounterHandler) SetActiveCounter(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	playerID, err := getIntFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Counter   *lifecounter.CounterType `json:"counter"`
		Direction string                   `json:"direction"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	switch {
	case input.Counter != nil:
		err = session.Life.SwitchCounter(playerID, *input.Counter)
	case input.Direction == "next", input.Direction == "":
		err = session.Life.CycleCounter(playerID, true)
	case input.Direction == "prev":
		err = session.Life.CycleCounter(playerID, false)
	default:
		err = fmt.Errorf("%w: direction must be next or prev", services.ErrValidation)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, session.Life)
}

func (h *LifeCounterHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	session.Life.Reset()
	h.respond(w, r, session.Life)
}

func (h *LifeCounterHandler) ClearPlayers(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	session.Life.ClearPlayers()
	h.respond(w, r, session.Life)
}

func findLifePlayer(s lifecounter.State, id int) (lifecounter.PlayerState, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return lifecounter.PlayerState{}, false
}
