// Package game drives turns: it applies moves, detects the end of a game
// and lets the computer answer before control returns to the caller.
package game

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/jaminalder/tictactoe/internal/domain"
	"github.com/jaminalder/tictactoe/internal/policy"
)

// Errors returned by SubmitMove. Both match domain.ErrInvalidMove.
var (
	ErrGameOver      = fmt.Errorf("%w: game over", domain.ErrInvalidMove)
	ErrAutomatedTurn = fmt.Errorf("%w: computer to move", domain.ErrInvalidMove)
)

// Phase is the controller state.
type Phase uint8

const (
	AwaitingMove Phase = iota
	Finished
)

func (p Phase) String() string {
	if p == Finished {
		return "finished"
	}
	return "awaiting-move"
}

// Settings choose the opponent and the symbol it plays.
type Settings struct {
	Difficulty policy.Difficulty
	Automated  domain.Cell
}

// DefaultSettings is a local two player game; a computer opponent plays O.
func DefaultSettings() Settings {
	return Settings{Difficulty: policy.TwoPlayers, Automated: domain.O}
}

// Move is one accepted placement.
type Move struct {
	Index     int
	Symbol    domain.Cell
	Automated bool
}

// State is a read-only snapshot for renderers.
type State struct {
	Phase      Phase
	Turn       domain.Cell
	Board      domain.Board
	Outcome    domain.Outcome
	Difficulty policy.Difficulty
	Automated  domain.Cell
	History    []Move
}

// Status is the one-line text shown under the board.
func (s State) Status() string {
	if s.Phase == Finished {
		return s.Outcome.String()
	}
	return fmt.Sprintf("%s's turn", s.Turn)
}

// Controller owns one board. It is not safe for concurrent use.
type Controller struct {
	board   domain.Board
	turn    domain.Cell
	outcome domain.Outcome
	history []Move

	settings Settings
	policy   *policy.Policy
	rng      *rand.Rand
	log      zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithRand makes the computer's choices reproducible.
func WithRand(rng *rand.Rand) Option { return func(c *Controller) { c.rng = rng } }

func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.log = l } }

// New returns a controller awaiting X's first move.
func New(settings Settings, opts ...Option) *Controller {
	if !settings.Automated.Valid() {
		settings.Automated = domain.O
	}
	c := &Controller{settings: settings, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.policy = policy.New(settings.Difficulty, settings.Automated, c.rng)
	c.Reset()
	return c
}

// SubmitMove plays the human side at idx. Rejected moves leave the state
// untouched. When the move hands the turn to the computer, the computer
// replies before SubmitMove returns.
func (c *Controller) SubmitMove(idx int) (domain.Outcome, error) {
	if c.outcome.Over() {
		return c.outcome, ErrGameOver
	}
	if c.policy.IsAutomated(c.turn) {
		return c.outcome, ErrAutomatedTurn
	}
	if err := c.apply(idx, false); err != nil {
		return c.outcome, err
	}
	return c.Resume()
}

// Resume plays every pending computer move. It is a no-op on a human turn
// or a finished game. The computer opens the game when it plays X, so
// callers resume after New, Reset or SetDifficulty.
func (c *Controller) Resume() (domain.Outcome, error) {
	for !c.outcome.Over() && c.policy.IsAutomated(c.turn) {
		idx, err := c.policy.NextMove(c.board, c.turn)
		if err != nil {
			c.log.Error().Err(err).Str("turn", c.turn.String()).Msg("computer move failed")
			return c.outcome, err
		}
		if err := c.apply(idx, true); err != nil {
			return c.outcome, err
		}
	}
	return c.outcome, nil
}

func (c *Controller) apply(idx int, automated bool) error {
	if err := c.board.Place(idx, c.turn); err != nil {
		return err
	}
	c.history = append(c.history, Move{Index: idx, Symbol: c.turn, Automated: automated})
	c.log.Debug().Int("cell", idx).Str("symbol", c.turn.String()).Bool("automated", automated).Msg("move")

	c.outcome = domain.Evaluate(c.board)
	if c.outcome.Over() {
		c.log.Info().Str("outcome", c.outcome.String()).Int("moves", len(c.history)).Msg("game finished")
		return nil
	}
	c.turn = c.turn.Opponent()
	return nil
}

// Reset clears the board and gives X the first move.
func (c *Controller) Reset() {
	c.board.Reset()
	c.turn = domain.X
	c.outcome = domain.Outcome{Status: domain.Ongoing}
	c.history = nil
}

// SetDifficulty switches the opponent and restarts the game.
func (c *Controller) SetDifficulty(d policy.Difficulty) {
	c.settings.Difficulty = d
	c.policy = policy.New(d, c.settings.Automated, c.rng)
	c.Reset()
}

func (c *Controller) Settings() Settings { return c.settings }

// State returns a snapshot; mutating it does not affect the controller.
func (c *Controller) State() State {
	phase := AwaitingMove
	if c.outcome.Over() {
		phase = Finished
	}
	return State{
		Phase:      phase,
		Turn:       c.turn,
		Board:      c.board,
		Outcome:    c.outcome,
		Difficulty: c.settings.Difficulty,
		Automated:  c.settings.Automated,
		History:    append([]Move(nil), c.history...),
	}
}

// IsInvalidMove reports whether err is a rejected submission.
func IsInvalidMove(err error) bool { return errors.Is(err, domain.ErrInvalidMove) }
