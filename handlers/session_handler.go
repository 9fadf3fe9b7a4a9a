package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Dosada05/tabletop-tools/middleware"
	"github.com/Dosada05/tabletop-tools/services"
	"github.com/golang-jwt/jwt/v4"
)

type SessionHandler struct {
	sessionLoader
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewSessionHandler(sessions services.SessionService, jwtSecret string, tokenTTL time.Duration) *SessionHandler {
	return &SessionHandler{
		sessionLoader: sessionLoader{sessions: sessions},
		jwtSecret:     []byte(jwtSecret),
		tokenTTL:      tokenTTL,
	}
}

// Create opens a new session and returns the token that addresses it.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Create(r.Context())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		middleware.ClaimSessionID: session.ID,
		"exp":                     now.Add(h.tokenTTL).Unix(),
		"iat":                     now.Unix(),
	}
	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"session_id": session.ID,
		"token":      tokenString,
		"expires_at": now.Add(h.tokenTTL).UTC(),
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, ok := h.load(w, r)
	if !ok {
		return
	}
	response := jsonResponse{
		"session_id": session.ID,
		"created_at": session.CreatedAt.UTC(),
		"last_seen":  session.LastSeen().UTC(),
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete closes the caller's session and disconnects its websocket clients.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.GetSessionIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
