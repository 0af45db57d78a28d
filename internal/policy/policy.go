// Package policy decides whether a turn is played by the computer and, if
// so, which move it makes.
package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/rand"

	"github.com/jaminalder/tictactoe/internal/domain"
	"github.com/jaminalder/tictactoe/internal/search"
)

// Difficulty selects the opponent.
type Difficulty uint8

const (
	TwoPlayers Difficulty = iota
	RandomOpponent
	OptimalOpponent
)

var ErrNotAutomated = errors.New("turn is not played by the computer")

var difficultyNames = [...]string{
	TwoPlayers:      "two-players",
	RandomOpponent:  "random",
	OptimalOpponent: "optimal",
}

func (d Difficulty) String() string {
	if int(d) < len(difficultyNames) {
		return difficultyNames[d]
	}
	return fmt.Sprintf("difficulty(%d)", uint8(d))
}

// ParseDifficulty accepts the tier names and the slider values 1 to 3.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "two-players", "two", "1":
		return TwoPlayers, nil
	case "random", "easy", "2":
		return RandomOpponent, nil
	case "optimal", "hard", "3":
		return OptimalOpponent, nil
	}
	return TwoPlayers, fmt.Errorf("unknown difficulty %q", s)
}

// Difficulties lists every tier in slider order.
func Difficulties() []Difficulty {
	return []Difficulty{TwoPlayers, RandomOpponent, OptimalOpponent}
}

func (d Difficulty) MarshalText() ([]byte, error) {
	if int(d) >= len(difficultyNames) {
		return nil, fmt.Errorf("unknown difficulty %d", uint8(d))
	}
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	v, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Policy plays the automated symbol according to its difficulty.
type Policy struct {
	difficulty Difficulty
	automated  domain.Cell
	rng        *rand.Rand
	engine     *search.Engine
}

// New builds a policy for the given tier. A nil rng is replaced by a
// time-seeded one.
func New(d Difficulty, automated domain.Cell, rng *rand.Rand) *Policy {
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return &Policy{
		difficulty: d,
		automated:  automated,
		rng:        rng,
		engine:     search.New(rng),
	}
}

func (p *Policy) Difficulty() Difficulty { return p.difficulty }

// Automated returns the symbol the computer plays.
func (p *Policy) Automated() domain.Cell { return p.automated }

// IsAutomated reports whether turn is played by the computer.
func (p *Policy) IsAutomated(turn domain.Cell) bool {
	return p.difficulty != TwoPlayers && turn == p.automated
}

// NextMove picks the computer's move on b.
func (p *Policy) NextMove(b domain.Board, turn domain.Cell) (int, error) {
	if !p.IsAutomated(turn) {
		return -1, ErrNotAutomated
	}
	switch p.difficulty {
	case RandomOpponent:
		if domain.Evaluate(b).Over() {
			return -1, search.ErrNoLegalMove
		}
		empty := b.EmptyCells()
		return empty[p.rng.Intn(len(empty))], nil
	default:
		return p.engine.BestMove(b, turn, turn.Opponent())
	}
}
