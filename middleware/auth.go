package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const sessionContextKey contextKey = "session"

var (
	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid or expired session token")
)

// Authenticate verifies the HS256 session token from the Authorization header,
// or from the token query parameter for websocket upgrades, and puts its claims
// into the request context.
func Authenticate(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				unauthorized(w, ErrMissingToken)
				return
			}

			claims, err := ParseToken(raw, secret)
			if err != nil {
				logger.DebugContext(r.Context(), "session token rejected", slog.Any("error", err))
				unauthorized(w, ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseToken validates signature and expiry and returns the token claims.
func ParseToken(raw string, secret []byte) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, ok := claims[ClaimSessionID].(string); !ok {
		return nil, fmt.Errorf("missing '%s' claim in token", ClaimSessionID)
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
