package handlers

import (
	"fmt"
	"net/http"

	"github.com/Dosada05/tabletop-tools/dungeon"
	"github.com/Dosada05/tabletop-tools/services"
)

type DungeonHandler struct {
	sessionLoader
}

func NewDungeonHandler(sessions services.SessionService) *DungeonHandler {
	return &DungeonHandler{sessionLoader: sessionLoader{sessions: sessions}}
}

// boardGeometry describes the client's rendered board, from which default
// pawn positions are derived.
type boardGeometry struct {
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	PawnSize     float64 `json:"pawn_size"`
	SideMargin   float64 `json:"side_margin"`
	BottomMargin float64 `json:"bottom_margin"`
}

func (g boardGeometry) validate() error {
	if g.Width <= 0 || g.Height <= 0 || g.PawnSize <= 0 {
		return fmt.Errorf("%w: width, height and pawn_size must be positive", services.ErrValidation)
	}
	if g.SideMargin < 0 || g.BottomMargin < 0 {
		return fmt.Errorf("%w: margins must not be negative", services.ErrValidation)
	}
	return nil
}

func (g boardGeometry) defaults() []dungeon.Position {
	return dungeon.DefaultPositions(g.Width, g.Height, g.PawnSize, g.SideMargin, g.BottomMargin)
}

func (h *DungeonHandler) respond(w http.ResponseWriter, r *http.Request, b *dungeon.Board, extra jsonResponse) {
	env := jsonResponse{"dungeon": b.State()}
	for k, v := range extra {
		env[k] = v
	}
	if err := writeJSON(w, http.StatusOK, env, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *DungeonHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	h.respond(w, r, session.Dungeon, nil)
}

func (h *DungeonHandler) Select(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input struct {
		Dungeon string `json:"dungeon"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	t, err := dungeon.ParseType(input.Dungeon)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := session.Dungeon.SelectDungeon(t); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, session.Dungeon, nil)
}

func (h *DungeonHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input boardGeometry
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.validate(); err != nil {
		failedValidationResponse(w, r, err)
		return
	}
	initialized := session.Dungeon.InitializeIfNeeded(input.defaults())
	h.respond(w, r, session.Dungeon, jsonResponse{"initialized": initialized})
}

func (h *DungeonHandler) OffsetPawn(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	index, err := getIntFromURL(r, "index")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := session.Dungeon.OffsetPawn(index, input.DX, input.DY); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, session.Dungeon, nil)
}

func (h *DungeonHandler) MovePawn(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	index, err := getIntFromURL(r, "index")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := session.Dungeon.MovePawn(index, dungeon.At(input.X, input.Y)); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respond(w, r, session.Dungeon, nil)
}

func (h *DungeonHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	var input boardGeometry
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := input.validate(); err != nil {
		failedValidationResponse(w, r, err)
		return
	}
	session.Dungeon.ResetPawns(input.defaults())
	h.respond(w, r, session.Dungeon, nil)
}
