package routes

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tabletop-tools/handlers"
	"github.com/Dosada05/tabletop-tools/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openAPIDoc []byte

type Handlers struct {
	Session    *handlers.SessionHandler
	Bracket    *handlers.BracketHandler
	Life       *handlers.LifeCounterHandler
	Dungeon    *handlers.DungeonHandler
	Randomizer *handlers.RandomizerHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         *slog.Logger
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/openapi.json", serveOpenAPI)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/openapi.json")))

	router.Post("/sessions", h.Session.Create)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.JWTSecret, opts.Logger))

		r.Get("/sessions/current", h.Session.Current)
		r.Delete("/sessions/current", h.Session.Delete)

		r.Get("/ws", h.WebSocket.ServeWs)

		r.Route("/bracket", func(r chi.Router) {
			r.Get("/", h.Bracket.Get)
			r.Put("/players", h.Bracket.SetPlayers)
			r.Post("/start", h.Bracket.Start)
			r.Post("/winner", h.Bracket.SelectWinner)
			r.Post("/undo", h.Bracket.Undo)
			r.Post("/reset", h.Bracket.Reset)
			r.Post("/swap", h.Bracket.Swap)
		})

		r.Route("/life", func(r chi.Router) {
			r.Get("/", h.Life.Get)
			r.Put("/players", h.Life.SetPlayers)
			r.Delete("/players", h.Life.ClearPlayers)
			r.Post("/players/{playerID}/counters", h.Life.AdjustCounter)
			r.Put("/players/{playerID}/active", h.Life.SetActiveCounter)
			r.Post("/reset", h.Life.Reset)
		})

		r.Route("/dungeon", func(r chi.Router) {
			r.Get("/", h.Dungeon.Get)
			r.Put("/selected", h.Dungeon.Select)
			r.Post("/init", h.Dungeon.Initialize)
			r.Put("/pawns/{index}", h.Dungeon.MovePawn)
			r.Post("/pawns/{index}/offset", h.Dungeon.OffsetPawn)
			r.Post("/reset", h.Dungeon.Reset)
		})

		r.Route("/randomizer", func(r chi.Router) {
			r.Get("/", h.Randomizer.Get)
			r.Put("/mode", h.Randomizer.SetMode)
			r.Post("/packs", h.Randomizer.PickPacks)
			r.Delete("/packs", h.Randomizer.ResetPacks)
			r.Post("/dice", h.Randomizer.RollDie)
			r.Delete("/dice", h.Randomizer.ClearDice)
		})
	})
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPIDoc)
}
