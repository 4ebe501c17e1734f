package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jaminalder/tictactoe-timetravel/internal/domain"
)

// Errors exposed by the service layer.
var (
	ErrNotFound = errors.New("game not found")
)

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID         string
	History    *domain.History
	Descending bool
	Created    time.Time
	Updated    time.Time
}

// clone deep-copies the state so callers never share the live history.
func (gs *GameState) clone() *GameState {
	cp := *gs
	cp.History = gs.History.Clone()
	return &cp
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games and subscribers.
type Service struct {
	mu     sync.Mutex
	games  map[string]*GameState
	subs   map[string]map[*subscriber]struct{}
	render func(GameState) []byte
	log    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for game events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l.With("component", "game-service")
		}
	}
}

// WithRenderer sets the broadcast renderer.
func WithRenderer(renderer func(GameState) []byte) Option {
	return func(s *Service) {
		if renderer != nil {
			s.render = renderer
		}
	}
}

func noRender(GameState) []byte { return nil }

// NewService creates a service. Without WithRenderer broadcasts carry no payload.
func NewService(opts ...Option) *Service {
	s := &Service{
		games:  make(map[string]*GameState),
		subs:   make(map[string]map[*subscriber]struct{}),
		render: noRender,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = noRender
		return
	}
	s.render = renderer
}

// CreateGame creates and registers a new game.
func (s *Service) CreateGame() (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	now := time.Now()
	gs := &GameState{ID: id, History: domain.NewHistory(), Created: now, Updated: now}
	s.games[id] = gs
	s.log.Info("game created", "game_id", id)
	return gs.clone(), nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	return gs.clone(), true
}

// Play marks cell for the side to move in game id.
func (s *Service) Play(id string, cell int) (*GameState, error) {
	return s.mutate(id, func(gs *GameState) error {
		if err := gs.History.Play(cell); err != nil {
			s.log.Debug("move rejected", "game_id", id, "cell", cell, "error", err)
			return err
		}
		s.log.Info("move played", "game_id", id, "cell", cell, "move", gs.History.CurrentMove())
		return nil
	})
}

// JumpTo moves the viewed snapshot of game id to move.
func (s *Service) JumpTo(id string, move int) (*GameState, error) {
	return s.mutate(id, func(gs *GameState) error {
		if err := gs.History.JumpTo(move); err != nil {
			s.log.Debug("jump rejected", "game_id", id, "move", move, "error", err)
			return err
		}
		s.log.Info("jumped", "game_id", id, "move", move)
		return nil
	})
}

// Reset clears the history of game id.
func (s *Service) Reset(id string) (*GameState, error) {
	return s.mutate(id, func(gs *GameState) error {
		gs.History.Reset()
		s.log.Info("history reset", "game_id", id)
		return nil
	})
}

// ToggleOrder flips the display order of the move list.
func (s *Service) ToggleOrder(id string) (*GameState, error) {
	return s.mutate(id, func(gs *GameState) error {
		gs.Descending = !gs.Descending
		return nil
	})
}

// mutate applies fn under the lock, updates timestamps, and broadcasts.
// Fan-out happens under the lock so an unsubscribed channel is never sent to.
func (s *Service) mutate(id string, fn func(*GameState) error) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(gs); err != nil {
		return nil, err
	}
	gs.Updated = time.Now()

	cp := gs.clone()
	s.broadcastLocked(id, s.render(*cp))
	return cp, nil
}

// broadcastLocked never blocks; slow subscribers are closed and dropped.
func (s *Service) broadcastLocked(id string, payload []byte) {
	set := s.subs[id]
	dropped := 0
	for sub := range set {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			delete(set, sub)
			dropped++
		}
	}
	if dropped > 0 {
		s.log.Warn("dropped slow subscribers", "game_id", id, "count", dropped)
	}
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
// Subscribing to an unknown game yields a closed channel.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscriber{ch: make(chan []byte, 1)}
	if _, ok := s.games[id]; !ok {
		sub.close()
		return sub.ch, func() {}
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(s.subs, id)
				}
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub
}
