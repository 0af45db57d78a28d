package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jaminalder/tictactoe/internal/domain"
	"github.com/jaminalder/tictactoe/internal/game"
	"github.com/jaminalder/tictactoe/internal/policy"
	"github.com/jaminalder/tictactoe/internal/store"
)

// Errors exposed by the service layer.
var (
	ErrNotFound = errors.New("game not found")
)

// GameState is a snapshot of one game.
type GameState struct {
	ID      string
	Game    game.State
	Created time.Time
	Updated time.Time
}

type entry struct {
	ctrl    *game.Controller
	created time.Time
	updated time.Time
}

func (e *entry) snapshot(id string) GameState {
	return GameState{ID: id, Game: e.ctrl.State(), Created: e.created, Updated: e.updated}
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan []byte
	closed bool
}

// send delivers without blocking; false means the subscriber is too slow.
func (s *subscriber) send(b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- b:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Service manages games and subscribers. Each controller is only touched
// while mu is held.
type Service struct {
	mu        sync.Mutex
	games     map[string]*entry
	subs      map[string]map[*subscriber]struct{}
	render    func(GameState) []byte
	prefs     store.DifficultyStore
	automated domain.Cell
	options   []game.Option
}

// Option configures a Service.
type Option func(*Service)

// WithStore sets where the selected difficulty is remembered.
func WithStore(s store.DifficultyStore) Option { return func(svc *Service) { svc.prefs = s } }

// WithComputerSymbol sets the symbol the computer plays in new games.
func WithComputerSymbol(c domain.Cell) Option { return func(svc *Service) { svc.automated = c } }

// WithControllerOptions is passed to every new controller.
func WithControllerOptions(opts ...game.Option) Option {
	return func(svc *Service) { svc.options = append(svc.options, opts...) }
}

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService(opts ...Option) *Service {
	return NewServiceWithRenderer(func(gs GameState) []byte { return nil }, opts...)
}

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(renderer func(GameState) []byte, opts ...Option) *Service {
	if renderer == nil {
		renderer = func(gs GameState) []byte { return nil }
	}
	s := &Service{
		games:     make(map[string]*entry),
		subs:      make(map[string]map[*subscriber]struct{}),
		render:    renderer,
		prefs:     store.NewMemoryStore(policy.TwoPlayers),
		automated: domain.O,
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
		s.render = func(gs GameState) []byte { return nil }
		return
	}
	s.render = renderer
}

// Difficulty returns the remembered difficulty, falling back to two
// players when the store cannot be read.
func (s *Service) Difficulty() policy.Difficulty {
	d, err := s.prefs.Load()
	if err != nil {
		log.Warn().Err(err).Msg("could not load saved difficulty")
	}
	return d
}

// CreateGame creates and registers a new game at the remembered difficulty.
// If the computer plays X it has already opened when CreateGame returns.
func (s *Service) CreateGame() (*GameState, error) {
	d := s.Difficulty()
	s.mu.Lock()
	defer s.mu.Unlock()
	id := newGameID()
	now := time.Now()
	e := &entry{
		ctrl:    game.New(game.Settings{Difficulty: d, Automated: s.automated}, s.options...),
		created: now,
		updated: now,
	}
	if _, err := e.ctrl.Resume(); err != nil {
		return nil, err
	}
	s.games[id] = e
	log.Info().Str("game", id).Str("difficulty", d.String()).Msg("game created")
	gs := e.snapshot(id)
	return &gs, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.games[id]
	if !ok {
		return nil, false
	}
	gs := e.snapshot(id)
	return &gs, true
}

// Play submits a human move at cell idx, lets the computer answer and
// broadcasts the result. Rejected moves return the unchanged state with
// the error.
func (s *Service) Play(id string, idx int) (*GameState, error) {
	return s.update(id, func(c *game.Controller) error {
		_, err := c.SubmitMove(idx)
		return err
	})
}

// Reset starts the game over with the same settings.
func (s *Service) Reset(id string) (*GameState, error) {
	return s.update(id, func(c *game.Controller) error {
		c.Reset()
		_, err := c.Resume()
		return err
	})
}

// SetDifficulty restarts the game against a new opponent and remembers the
// choice for later games.
func (s *Service) SetDifficulty(id string, d policy.Difficulty) (*GameState, error) {
	gs, err := s.update(id, func(c *game.Controller) error {
		c.SetDifficulty(d)
		_, err := c.Resume()
		return err
	})
	if err != nil {
		return gs, err
	}
	if err := s.prefs.Save(d); err != nil {
		log.Warn().Err(err).Str("difficulty", d.String()).Msg("could not save difficulty")
	}
	return gs, nil
}

// update applies fn under the lock and broadcasts when the state changed.
func (s *Service) update(id string, fn func(*game.Controller) error) (*GameState, error) {
	var payload []byte
	var toDrop []*subscriber

	s.mu.Lock()
	e, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if err := fn(e.ctrl); err != nil {
		cp := e.snapshot(id)
		s.mu.Unlock()
		return &cp, err
	}
	e.updated = time.Now()

	// Snapshot state and subscribers
	cp := e.snapshot(id)
	subs := s.copySubsLocked(id)
	payload = s.render(cp)
	s.mu.Unlock()

	// Fan-out; drop slow subscribers by closing and marking for deletion
	for sub := range subs {
		if !sub.send(payload) {
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		log.Debug().Str("game", id).Int("dropped", len(toDrop)).Msg("dropped slow subscribers")
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
	}
	return &cp, nil
}

// Subscribe registers a subscriber for a game. Returns a channel and an
// unsubscribe func; ok is false for unknown games.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, func() {}, false
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, true
}

func (s *Service) copySubsLocked(id string) map[*subscriber]struct{} {
	out := make(map[*subscriber]struct{})
	if set, ok := s.subs[id]; ok {
		for k := range set {
			out[k] = struct{}{}
		}
	}
	return out
}
