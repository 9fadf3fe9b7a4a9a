package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/tabletop-tools/randomizer"
	"github.com/Dosada05/tabletop-tools/services"
)

type RandomizerHandler struct {
	sessionLoader
}

func NewRandomizerHandler(sessions services.SessionService) *RandomizerHandler {
	return &RandomizerHandler{sessionLoader: sessionLoader{sessions: sessions}}
}

func (h *RandomizerHandler) respond(w http.ResponseWriter, r *http.Request, rz *randomizer.Randomizer, extra jsonResponse) {
	env := jsonResponse{"randomizer": rz.State()}
	for k, v := range extra {
		env[k] = v
	}
	if err := writeJSON(w, http.StatusOK, env, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RandomizerHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, r, session.Randomizer, nil)
}

func (h *RandomizerHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input struct {
		Mode string `json:"mode"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	mode, err := randomizer.ParseMode(input.Mode)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := session.Randomizer.SetMode(mode); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, session.Randomizer, nil)
}

// PickPacks draws packs. A preset replaces both fields; otherwise any field
// present in the body is stored before drawing. Invalid input is reported in
// the state's error_message, as the client shows it inline.
func (h *RandomizerHandler) PickPacks(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input struct {
		TotalPacks  *string `json:"total_packs"`
		PacksToPick *string `json:"packs_to_pick"`
		Preset      *struct {
			Total int `json:"total"`
			Pick  int `json:"pick"`
		} `json:"preset"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rz := session.Randomizer
	if input.Preset != nil {
		rz.ApplyPreset(input.Preset.Total, input.Preset.Pick)
	} else {
		if input.TotalPacks != nil {
			rz.SetTotalPacks(*input.TotalPacks)
		}
		if input.PacksToPick != nil {
			rz.SetPacksToPick(*input.PacksToPick)
		}
		rz.PickPacksReducingMax()
	}
	h.respond(w, r, rz, nil)
}

func (h *RandomizerHandler) ResetPacks(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	session.Randomizer.ResetPacks()
	h.respond(w, r, session.Randomizer, nil)
}

// RollDie rolls the die named in the body, or the die of the current mode.
func (h *RandomizerHandler) RollDie(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input struct {
		Sides *int `json:"sides"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	sides := session.Randomizer.State().Mode.Sides()
	if input.Sides != nil {
		sides = *input.Sides
	}
	if sides == 0 {
		failedValidationResponse(w, r, fmt.Errorf("%w: current mode has no die, pass sides", randomizer.ErrInvalidSides))
		return
	}

	roll, err := session.Randomizer.RollDie(sides)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, session.Randomizer, jsonResponse{"roll": roll, "sides": sides})
}

func (h *RandomizerHandler) ClearDice(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	session.Randomizer.ClearDice()
	h.respond(w, r, session.Randomizer, nil)
}
