package handlers

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/Dosada05/tabletop-tools/brackets"
	"github.com/Dosada05/tabletop-tools/models"
	"github.com/Dosada05/tabletop-tools/services"
)

type BracketHandler struct {
	sessionLoader
}

func NewBracketHandler(sessions services.SessionService) *BracketHandler {
	return &BracketHandler{sessionLoader: sessionLoader{sessions: sessions}}
}

type bracketView struct {
	models.BracketState
	CanUndo      bool             `json:"can_undo"`
	Placeholders []models.SlotRef `json:"placeholders"`
	Champion     *models.Player   `json:"champion,omitempty"`
}

func newBracketView(e *brackets.Engine) bracketView {
	v := bracketView{
		BracketState: e.State(),
		CanUndo:      e.CanUndo(),
		Placeholders: []models.SlotRef{},
	}
	for _, route := range e.PrelimRouting() {
		v.Placeholders = append(v.Placeholders, models.SlotRef{Match: route.Target, IsPlayer1: route.ToPlayer1})
	}
	sort.Slice(v.Placeholders, func(i, j int) bool {
		a, b := v.Placeholders[i], v.Placeholders[j]
		if a.Match != b.Match {
			return a.Match.Less(b.Match)
		}
		return a.IsPlayer1 && !b.IsPlayer1
	})
	if p, ok := e.Champion(); ok {
		v.Champion = &p
	}
	return v
}

func (h *BracketHandler) respond(w http.ResponseWriter, r *http.Request, status int, e *brackets.Engine) {
	if err := writeJSON(w, status, jsonResponse{"bracket": newBracketView(e)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BracketHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK, session.Bracket)
}

func (h *BracketHandler) SetPlayers(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input struct {
		Names []string `json:"names"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	session.Bracket.SetPlayers(input.Names)
	h.respond(w, r, http.StatusOK, session.Bracket)
}

func (h *BracketHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := session.Bracket.StartBracket(); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, session.Bracket)
}

// SelectWinner resolves winner_id against the roster, so a client can only name
// players that exist.
func (h *BracketHandler) SelectWinner(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input struct {
		Match    *models.MatchID `json:"match"`
		WinnerID *int            `json:"winner_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Match == nil || input.WinnerID == nil {
		failedValidationResponse(w, r, fmt.Errorf("%w: match and winner_id are required", services.ErrValidation))
		return
	}

	winner, found := findPlayer(session.Bracket.State().Players, *input.WinnerID)
	if !found {
		failedValidationResponse(w, r, fmt.Errorf("%w: no player with id %d", brackets.ErrNotParticipant, *input.WinnerID))
		return
	}
	if err := session.Bracket.SelectWinner(*input.Match, winner); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, session.Bracket)
}

func (h *BracketHandler) Undo(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := session.Bracket.Undo(); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, session.Bracket)
}

func (h *BracketHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	session.Bracket.Reset()
	h.respond(w, r, http.StatusOK, session.Bracket)
}

func (h *BracketHandler) Swap(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input struct {
		A *models.SlotRef `json:"a"`
		B *models.SlotRef `json:"b"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.A == nil || input.B == nil {
		failedValidationResponse(w, r, fmt.Errorf("%w: slots a and b are required", services.ErrValidation))
		return
	}
	if err := session.Bracket.SwapPlayers(*input.A, *input.B); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, session.Bracket)
}

func findPlayer(players []models.Player, id int) (models.Player, bool) {
	for _, p := range players {
		if p.ID == id {
			return p, true
		}
	}
	return models.Player{}, false
}
