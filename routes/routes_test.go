package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/tabletop-tools/brackets"
	"github.com/Dosada05/tabletop-tools/handlers"
	"github.com/Dosada05/tabletop-tools/models"
	"github.com/Dosada05/tabletop-tools/services"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret"

type testServer struct {
	*httptest.Server
	sessions services.SessionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())

	hub := brackets.NewHub(logger)
	hubDone := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(hubDone)
	}()

	var seed uint64
	sessions, err := services.NewSessionService(services.SessionConfig{
		TTL:    time.Hour,
		Policy: brackets.PolicyPrelim,
		NewRand: func() brackets.Rand {
			seed++
			return rand.New(rand.NewPCG(seed, 42))
		},
	}, hub, logger)
	require.NoError(t, err)

	router := chi.NewRouter()
	SetupRoutes(router, Handlers{
		Session:    handlers.NewSessionHandler(sessions, testSecret, time.Hour),
		Bracket:    handlers.NewBracketHandler(sessions),
		Life:       handlers.NewLifeCounterHandler(sessions),
		Dungeon:    handlers.NewDungeonHandler(sessions),
		Randomizer: handlers.NewRandomizerHandler(sessions),
		WebSocket:  handlers.NewWebSocketHandler(sessions, hub, nil, logger),
	}, Options{
		JWTSecret:      []byte(testSecret),
		AllowedOrigins: []string{"*"},
		Logger:         logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hubDone
	})
	return &testServer{Server: srv, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) openSession(t *testing.T) (id, token string) {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, status, string(body))
	var out struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Token)
	return out.SessionID, out.Token
}

type bracketResponse struct {
	Bracket struct {
		models.BracketState
		CanUndo      bool             `json:"can_undo"`
		Placeholders []models.SlotRef `json:"placeholders"`
		Champion     *models.Player   `json:"champion"`
	} `json:"bracket"`
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/openapi.json", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, json.Valid(body))
	var doc struct {
		Components struct {
			Schemas map[string]struct {
				Properties map[string]struct {
					Description string `json:"description"`
				} `json:"properties"`
			} `json:"schemas"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	randomizerProps := doc.Components.Schemas["RandomizerState"].Properties
	assert.Contains(t, randomizerProps["packs"].Description, "clients should display")
	assert.Contains(t, randomizerProps["result"].Description, "Display packs instead")

	status, _ = s.do(t, http.MethodGet, "/bracket", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/bracket", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBracketFlow(t *testing.T) {
	s := newTestServer(t)
	_, token := s.openSession(t)

	status, body := s.do(t, http.MethodPost, "/bracket/start", token, nil)
	assert.Equal(t, http.StatusConflict, status, "empty roster")

	status, body = s.do(t, http.MethodPut, "/bracket/players", token, map[string]interface{}{
		"names": []string{"Ann", "Bob", "", "Ann"},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	roster := decode[bracketResponse](t, body).Bracket.Players
	require.Len(t, roster, 4)
	assert.Equal(t, "Player 3", roster[2].Name)
	assert.Equal(t, "Ann (2)", roster[3].Name)

	status, body = s.do(t, http.MethodPost, "/bracket/start", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	started := decode[bracketResponse](t, body).Bracket
	assert.True(t, started.IsBracketStarted)
	assert.Equal(t, 2, started.TotalRounds)
	assert.Empty(t, started.Placeholders)

	final := models.MatchID{Round: 2, Index: 0}
	status, _ = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{
		"match": final, "winner_id": 0,
	})
	assert.Equal(t, http.StatusNotFound, status, "final is created by the first semifinal result")

	status, _ = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{
		"match": models.MatchID{Round: 5, Index: 0}, "winner_id": 0,
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{
		"match": models.MatchID{Round: 1, Index: 0}, "winner_id": 99,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{"winner_id": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	semis := started.MatchesInRound(1)
	require.Len(t, semis, 2)

	status, body = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{
		"match": semis[0].ID, "winner_id": semis[0].Player1.ID,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{
		"match": final, "winner_id": semis[0].Player1.ID,
	})
	assert.Equal(t, http.StatusConflict, status, "final still waits for the second semifinal")

	status, body = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{
		"match": semis[1].ID, "winner_id": semis[1].Player1.ID,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	last := decode[bracketResponse](t, body)
	finalMatch, ok := last.Bracket.Match(final)
	require.True(t, ok)
	require.NotNil(t, finalMatch.Player1)
	require.NotNil(t, finalMatch.Player2)

	status, _ = s.do(t, http.MethodPost, "/bracket/swap", token, map[string]interface{}{
		"a": models.SlotRef{Match: models.MatchID{Round: 1, Index: 0}, IsPlayer1: true},
		"b": models.SlotRef{Match: models.MatchID{Round: 1, Index: 1}, IsPlayer1: true},
	})
	assert.Equal(t, http.StatusConflict, status, "swaps are frozen once a result exists")

	status, body = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{
		"match": final, "winner_id": finalMatch.Player2.ID,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	done := decode[bracketResponse](t, body).Bracket
	require.NotNil(t, done.Champion)
	assert.Equal(t, *finalMatch.Player2, *done.Champion)

	status, _ = s.do(t, http.MethodPost, "/bracket/winner", token, map[string]interface{}{
		"match": final, "winner_id": finalMatch.Player1.ID,
	})
	assert.Equal(t, http.StatusConflict, status, "a decided match needs an undo first")

	status, body = s.do(t, http.MethodPost, "/bracket/undo", token, nil)
	require.Equal(t, http.StatusOK, status)
	undone := decode[bracketResponse](t, body).Bracket
	assert.Nil(t, undone.Champion)
	assert.True(t, undone.CanUndo)

	status, body = s.do(t, http.MethodPost, "/bracket/reset", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[bracketResponse](t, body).Bracket.IsBracketStarted)

	status, _ = s.do(t, http.MethodPost, "/bracket/undo", token, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestBracket_PrelimPlaceholdersAndSwap(t *testing.T) {
	s := newTestServer(t)
	_, token := s.openSession(t)

	s.do(t, http.MethodPut, "/bracket/players", token, map[string]interface{}{
		"names": []string{"A", "B", "C", "D", "E", "F"},
	})
	status, body := s.do(t, http.MethodPost, "/bracket/start", token, nil)
	require.Equal(t, http.StatusOK, status)
	b := decode[bracketResponse](t, body).Bracket
	require.Len(t, b.Placeholders, 2)
	require.Len(t, b.MatchesInRound(0), 2)

	placeholder := b.Placeholders[0]
	prelim := b.MatchesInRound(0)[0]
	status, _ = s.do(t, http.MethodPost, "/bracket/swap", token, map[string]interface{}{
		"a": placeholder,
		"b": models.SlotRef{Match: prelim.ID, IsPlayer1: true},
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = s.do(t, http.MethodPost, "/bracket/swap", token, map[string]interface{}{
		"a": models.SlotRef{Match: prelim.ID, IsPlayer1: true},
		"b": models.SlotRef{Match: prelim.ID, IsPlayer1: false},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	swapped, ok := decode[bracketResponse](t, body).Bracket.Match(prelim.ID)
	require.True(t, ok)
	assert.Equal(t, *prelim.Player1, *swapped.Player2)
	assert.Equal(t, *prelim.Player2, *swapped.Player1)
}

type lifeResponse struct {
	Life struct {
		Players []struct {
			ID            int            `json:"id"`
			ActiveCounter string         `json:"active_counter"`
			Counters      map[string]int `json:"counters"`
		} `json:"players"`
	} `json:"life"`
}

func TestLifeCounterEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, token := s.openSession(t)

	status, _ := s.do(t, http.MethodPut, "/life/players", token, map[string]int{"count": 9})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body := s.do(t, http.MethodPut, "/life/players", token, map[string]int{"count": 2})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 20, decode[lifeResponse](t, body).Life.Players[0].Counters["life"])

	status, body = s.do(t, http.MethodPost, "/life/players/0/counters", token, map[string]int{"delta": -5})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 15, decode[lifeResponse](t, body).Life.Players[0].Counters["life"])

	status, body = s.do(t, http.MethodPut, "/life/players/1/active", token, map[string]string{"direction": "next"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "poison", decode[lifeResponse](t, body).Life.Players[1].ActiveCounter)

	status, body = s.do(t, http.MethodPost, "/life/players/1/counters", token, map[string]int{"delta": 2})
	require.Equal(t, http.StatusOK, status)
	p1 := decode[lifeResponse](t, body).Life.Players[1]
	assert.Equal(t, 2, p1.Counters["poison"])
	assert.Equal(t, 20, p1.Counters["life"])

	status, body = s.do(t, http.MethodPut, "/life/players/1/active", token, map[string]string{"counter": "bounty"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bounty", decode[lifeResponse](t, body).Life.Players[1].ActiveCounter)

	status, _ = s.do(t, http.MethodPost, "/life/players/7/counters", token, map[string]int{"delta": 1})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPut, "/life/players/0/active", token, map[string]string{"direction": "sideways"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodPost, "/life/players/x/counters", token, map[string]int{"delta": 1})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodPost, "/life/reset", token, nil)
	require.Equal(t, http.StatusOK, status)
	reset := decode[lifeResponse](t, body).Life.Players
	require.Len(t, reset, 2)
	assert.Equal(t, 20, reset[0].Counters["life"])

	status, body = s.do(t, http.MethodDelete, "/life/players", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[lifeResponse](t, body).Life.Players)
}

type dungeonResponse struct {
	Dungeon struct {
		Selected string `json:"selected"`
		Pawns    []struct {
			X         float64 `json:"x"`
			Y         float64 `json:"y"`
			Specified bool    `json:"specified"`
		} `json:"pawns"`
	} `json:"dungeon"`
	Initialized *bool `json:"initialized"`
}

func TestDungeonEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, token := s.openSession(t)
	geometry := map[string]float64{"width": 600, "height": 800, "pawn_size": 40, "side_margin": 0, "bottom_margin": 10}

	status, body := s.do(t, http.MethodPost, "/dungeon/init", token, geometry)
	require.Equal(t, http.StatusOK, status, string(body))
	first := decode[dungeonResponse](t, body)
	require.NotNil(t, first.Initialized)
	assert.True(t, *first.Initialized)
	assert.True(t, first.Dungeon.Pawns[0].Specified)

	status, body = s.do(t, http.MethodPost, "/dungeon/init", token, geometry)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, *decode[dungeonResponse](t, body).Initialized)

	status, body = s.do(t, http.MethodPost, "/dungeon/pawns/0/offset", token, map[string]float64{"dx": 5, "dy": -5})
	require.Equal(t, http.StatusOK, status)
	moved := decode[dungeonResponse](t, body).Dungeon.Pawns[0]
	assert.Equal(t, first.Dungeon.Pawns[0].X+5, moved.X)
	assert.Equal(t, first.Dungeon.Pawns[0].Y-5, moved.Y)

	status, _ = s.do(t, http.MethodPost, "/dungeon/pawns/6/offset", token, map[string]float64{"dx": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body = s.do(t, http.MethodPut, "/dungeon/selected", token, map[string]string{"dungeon": "tomb_of_annihilation"})
	require.Equal(t, http.StatusOK, status)
	other := decode[dungeonResponse](t, body).Dungeon
	assert.Equal(t, "tomb_of_annihilation", other.Selected)
	assert.False(t, other.Pawns[0].Specified)

	status, body = s.do(t, http.MethodPut, "/dungeon/pawns/2", token, map[string]float64{"x": 12, "y": 34})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[dungeonResponse](t, body).Dungeon.Pawns[2].Specified)

	status, _ = s.do(t, http.MethodPut, "/dungeon/selected", token, map[string]string{"dungeon": "castle"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodPost, "/dungeon/reset", token, map[string]float64{"width": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

type randomizerResponse struct {
	Randomizer struct {
		Mode         string `json:"mode"`
		Result       []int  `json:"result"`
		Packs        []int  `json:"packs"`
		ErrorMessage string `json:"error_message"`
		RollHistory  []int  `json:"roll_history"`
	} `json:"randomizer"`
	Roll  int `json:"roll"`
	Sides int `json:"sides"`
}

func TestRandomizerEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, token := s.openSession(t)

	status, body := s.do(t, http.MethodPost, "/randomizer/packs", token, map[string]string{})
	require.Equal(t, http.StatusOK, status)
	picked := decode[randomizerResponse](t, body).Randomizer
	assert.Len(t, picked.Result, 8)
	assert.Len(t, picked.Packs, 8)
	assert.Empty(t, picked.ErrorMessage)
	seen := make(map[int]bool)
	for _, p := range picked.Packs {
		assert.False(t, seen[p], "pack %d shown twice", p)
		assert.True(t, p >= 1 && p <= 24, "pack %d", p)
		seen[p] = true
	}

	status, body = s.do(t, http.MethodPost, "/randomizer/packs", token, map[string]string{"packs_to_pick": "30"})
	require.Equal(t, http.StatusOK, status)
	invalid := decode[randomizerResponse](t, body).Randomizer
	assert.Equal(t, "Packs to pick cannot exceed total packs", invalid.ErrorMessage)
	assert.Empty(t, invalid.Result)

	status, body = s.do(t, http.MethodPost, "/randomizer/packs", token, map[string]interface{}{
		"preset": map[string]int{"total": 36, "pick": 3},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[randomizerResponse](t, body).Randomizer.Packs, 3)

	status, _ = s.do(t, http.MethodPost, "/randomizer/dice", token, map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, status, "home mode has no die")

	status, _ = s.do(t, http.MethodPut, "/randomizer/mode", token, map[string]string{"mode": "d20"})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodPost, "/randomizer/dice", token, map[string]string{})
	require.Equal(t, http.StatusOK, status)
	roll := decode[randomizerResponse](t, body)
	assert.Equal(t, 20, roll.Sides)
	assert.GreaterOrEqual(t, roll.Roll, 1)
	assert.LessOrEqual(t, roll.Roll, 20)
	assert.Equal(t, []int{roll.Roll}, roll.Randomizer.RollHistory)

	status, body = s.do(t, http.MethodDelete, "/randomizer/dice", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[randomizerResponse](t, body).Randomizer.RollHistory)

	status, _ = s.do(t, http.MethodPut, "/randomizer/mode", token, map[string]string{"mode": "d100"})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestServer(t)
	_, tokenA := s.openSession(t)
	_, tokenB := s.openSession(t)

	s.do(t, http.MethodPut, "/bracket/players", tokenA, map[string]interface{}{"names": []string{"A", "B"}})

	_, body := s.do(t, http.MethodGet, "/bracket", tokenB, nil)
	assert.Empty(t, decode[bracketResponse](t, body).Bracket.Players)
}

func TestDeleteSession(t *testing.T) {
	s := newTestServer(t)
	id, token := s.openSession(t)

	status, body := s.do(t, http.MethodGet, "/sessions/current", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), id)

	status, _ = s.do(t, http.MethodDelete, "/sessions/current", token, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodGet, "/bracket", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 0, s.sessions.Count())
}

func TestWebSocketPushesStateChanges(t *testing.T) {
	s := newTestServer(t)
	_, token := s.openSession(t)

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	read := func() brackets.WebSocketMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg brackets.WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	var initial []string
	for i := 0; i < 4; i++ {
		initial = append(initial, read().Type)
	}
	assert.Equal(t, []string{
		brackets.MessageBracketUpdated,
		brackets.MessageLifeUpdated,
		brackets.MessageDungeonUpdated,
		brackets.MessageRandomizerUpdated,
	}, initial)

	status, _ := s.do(t, http.MethodPut, "/life/players", token, map[string]int{"count": 3})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, brackets.MessageLifeUpdated, read().Type)

	status, _ = s.do(t, http.MethodDelete, "/sessions/current", token, nil)
	require.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, brackets.MessageSessionClosed, read().Type)
}

func TestWebSocketRequiresToken(t *testing.T) {
	s := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
