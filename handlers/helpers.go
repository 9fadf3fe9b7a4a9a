package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/tabletop-tools/brackets"
	"github.com/Dosada05/tabletop-tools/dungeon"
	"github.com/Dosada05/tabletop-tools/lifecounter"
	"github.com/Dosada05/tabletop-tools/middleware"
	"github.com/Dosada05/tabletop-tools/randomizer"
	"github.com/Dosada05/tabletop-tools/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

// mapServiceErrorToHTTP turns tool and session errors into HTTP responses.
// Rejected operations leave state untouched, so none of them is a server error.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrSessionExpired):
		unauthorizedResponse(w, r, err.Error())

	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, brackets.ErrMatchNotFound),
		errors.Is(err, lifecounter.ErrPlayerNotFound):
		notFoundResponse(w, r, err.Error())

	case errors.Is(err, brackets.ErrEmptyRoster),
		errors.Is(err, brackets.ErrMatchPending),
		errors.Is(err, brackets.ErrAlreadyResolved),
		errors.Is(err, brackets.ErrNothingToUndo),
		errors.Is(err, brackets.ErrSwapFrozen),
		errors.Is(err, brackets.ErrPlaceholderSlot),
		errors.Is(err, brackets.ErrEmptySlot):
		conflictResponse(w, r, err.Error())

	case errors.Is(err, services.ErrValidation),
		errors.Is(err, brackets.ErrNotParticipant),
		errors.Is(err, lifecounter.ErrInvalidPlayerCount),
		errors.Is(err, lifecounter.ErrUnknownCounter),
		errors.Is(err, dungeon.ErrUnknownDungeon),
		errors.Is(err, dungeon.ErrPawnOutOfRange),
		errors.Is(err, randomizer.ErrInvalidSides),
		errors.Is(err, randomizer.ErrUnknownMode):
		failedValidationResponse(w, r, err)

	default:
		serverErrorResponse(w, r, err)
	}
}

// sessionLoader resolves the session named by the request's token.
type sessionLoader struct {
	sessions services.SessionService
}

func (l sessionLoader) load(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	id, err := middleware.GetSessionIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return nil, false
	}
	session, err := l.sessions.Get(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return nil, false
	}
	return session, true
}

func getIntFromURL(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return 0, fmt.Errorf("missing %s in URL", param)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q in URL", param, raw)
	}
	return v, nil
}
