package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dosada05/tabletop-tools/brackets"
	"github.com/Dosada05/tabletop-tools/dungeon"
	"github.com/Dosada05/tabletop-tools/lifecounter"
	"github.com/Dosada05/tabletop-tools/models"
	"github.com/Dosada05/tabletop-tools/randomizer"
	"github.com/google/uuid"
)

// Publisher delivers state changes to the websocket room of a session.
// *brackets.Hub implements it.
type Publisher interface {
	Publish(roomID, messageType string, payload interface{})
	CloseRoom(roomID string)
}

// Session is one presentation client's set of game tools.
type Session struct {
	ID        string
	CreatedAt time.Time

	Bracket    *brackets.Engine
	Life       *lifecounter.Tracker
	Dungeon    *dungeon.Board
	Randomizer *randomizer.Randomizer

	lastSeen atomic.Int64
	cancels  []func()
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) detach() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

type SessionService interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	SweepExpired(ctx context.Context) int
	RunSweeper(ctx context.Context, interval time.Duration) error
	Count() int
}

type SessionConfig struct {
	TTL    time.Duration
	Policy brackets.Policy
	// Now and NewRand are replaced in tests.
	Now     func() time.Time
	NewRand func() brackets.Rand
}

type sessionService struct {
	cfg       SessionConfig
	generator brackets.BracketGenerator
	publisher Publisher
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(cfg SessionConfig, publisher Publisher, logger *slog.Logger) (SessionService, error) {
	generator, err := brackets.NewGenerator(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("session service: %w", err)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewRand == nil {
		cfg.NewRand = func() brackets.Rand { return brackets.NewRand() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionService{
		cfg:       cfg,
		generator: generator,
		publisher: publisher,
		logger:    logger,
		sessions:  make(map[string]*Session),
	}, nil
}

func (s *sessionService) Create(ctx context.Context) (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	now := s.cfg.Now()

	session := &Session{
		ID:        id.String(),
		CreatedAt: now,
		Bracket: brackets.NewEngine(
			brackets.WithGenerator(s.generator),
			brackets.WithRand(s.cfg.NewRand()),
			brackets.WithLogger(s.logger.With(slog.String("session_id", id.String()))),
		),
		Life:       lifecounter.NewTracker(),
		Dungeon:    dungeon.NewBoard(),
		Randomizer: randomizer.New(s.cfg.NewRand()),
	}
	session.touch(now)
	s.attach(session)

	s.mu.Lock()
	s.sessions[session.ID] = session
	total := len(s.sessions)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session created", slog.String("session_id", session.ID), slog.Int("sessions", total))
	return session, nil
}

// Get returns the session and marks it as used. A session idle longer than
// the TTL is removed and reported as expired.
func (s *sessionService) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	now := s.cfg.Now()
	if s.expired(session, now) {
		s.remove(ctx, id, "expired")
		return nil, fmt.Errorf("%w: %s", ErrSessionExpired, id)
	}
	session.touch(now)
	return session, nil
}

func (s *sessionService) Delete(ctx context.Context, id string) error {
	if !s.remove(ctx, id, "deleted") {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// SweepExpired removes every session idle longer than the TTL and returns how many went.
func (s *sessionService) SweepExpired(ctx context.Context) int {
	now := s.cfg.Now()

	s.mu.RLock()
	var stale []string
	for id, session := range s.sessions {
		if s.expired(session, now) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	sort.Strings(stale)
	removed := 0
	for _, id := range stale {
		if s.remove(ctx, id, "expired") {
			removed++
		}
	}
	return removed
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *sessionService) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("session sweeper started", slog.Duration("interval", interval), slog.Duration("ttl", s.cfg.TTL))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			if n := s.SweepExpired(ctx); n > 0 {
				s.logger.Info("expired sessions swept", slog.Int("removed", n), slog.Int("remaining", s.Count()))
			}
		}
	}
}

func (s *sessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *sessionService) expired(session *Session, now time.Time) bool {
	return s.cfg.TTL > 0 && now.Sub(session.LastSeen()) > s.cfg.TTL
}

func (s *sessionService) remove(ctx context.Context, id, reason string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	session.detach()
	if s.publisher != nil {
		s.publisher.Publish(id, brackets.MessageSessionClosed, map[string]string{"reason": reason})
		s.publisher.CloseRoom(id)
	}
	s.logger.InfoContext(ctx, "session closed", slog.String("session_id", id), slog.String("reason", reason))
	return true
}

// attach forwards every state change of the session's tools to its room.
func (s *sessionService) attach(session *Session) {
	if s.publisher == nil {
		return
	}
	room := session.ID
	session.cancels = append(session.cancels,
		session.Bracket.Subscribe(func(st models.BracketState) {
			s.publisher.Publish(room, brackets.MessageBracketUpdated, st)
		}),
		session.Life.Subscribe(func(st lifecounter.State) {
			s.publisher.Publish(room, brackets.MessageLifeUpdated, st)
		}),
		session.Dungeon.Subscribe(func(st dungeon.State) {
			s.publisher.Publish(room, brackets.MessageDungeonUpdated, st)
		}),
		session.Randomizer.Subscribe(func(st randomizer.State) {
			s.publisher.Publish(room, brackets.MessageRandomizerUpdated, st)
		}),
	)
}
