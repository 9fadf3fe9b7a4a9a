package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// ClaimSessionID is the token claim that names the session.
const ClaimSessionID = "session_id"

func GetSessionIDFromContext(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(sessionContextKey).(jwt.MapClaims)
	if !ok {
		return "", errors.New("session claims not found in context or invalid type")
	}

	id, ok := claims[ClaimSessionID].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("missing '%s' claim in token", ClaimSessionID)
	}
	return id, nil
}

// WithSessionID returns ctx carrying claims for id, as Authenticate would store them.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionContextKey, jwt.MapClaims{ClaimSessionID: id})
}
