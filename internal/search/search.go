// Package search picks moves by exhaustive minimax over the remaining game
// tree. The tree is small enough that no pruning or move ordering is used.
package search

import (
	"errors"
	"time"

	"golang.org/x/exp/rand"

	"github.com/jaminalder/tictactoe/internal/domain"
)

// Leaf scores, seen from the side the engine plays for. They do not depend
// on search depth.
const (
	WinScore  = 10
	LossScore = -10
	DrawScore = 0
)

var (
	ErrNoLegalMove = errors.New("no legal move")
	ErrBadSymbols  = errors.New("ai and human must be distinct player symbols")
)

// Result is the full root analysis of a position.
type Result struct {
	// Moves holds every index reaching Score, ascending.
	Moves []int
	Score int
	// Nodes counts evaluated positions, root included.
	Nodes int
}

// Analyze scores every legal move for ai and returns the tied best set.
// The caller's board is never modified.
func Analyze(board domain.Board, ai, human domain.Cell) (Result, error) {
	if !ai.Valid() || !human.Valid() || ai == human {
		return Result{}, ErrBadSymbols
	}
	if domain.Evaluate(board).Over() {
		return Result{}, ErrNoLegalMove
	}

	b := board
	res := Result{Score: LossScore - 1, Nodes: 1}
	for i := range b {
		if b[i] != domain.Empty {
			continue
		}
		b[i] = ai
		v := minimax(&b, human, ai, human, &res.Nodes)
		b[i] = domain.Empty

		switch {
		case v > res.Score:
			res.Score = v
			res.Moves = append(res.Moves[:0], i)
		case v == res.Score:
			res.Moves = append(res.Moves, i)
		}
	}
	return res, nil
}

func minimax(b *domain.Board, turn, ai, human domain.Cell, nodes *int) int {
	*nodes++
	switch o := domain.Evaluate(*b); o.Status {
	case domain.Win:
		if o.Winner == ai {
			return WinScore
		}
		return LossScore
	case domain.Draw:
		return DrawScore
	}

	maximizing := turn == ai
	best := WinScore + 1
	if maximizing {
		best = LossScore - 1
	}
	next := human
	if !maximizing {
		next = ai
	}
	for i := range b {
		if b[i] != domain.Empty {
			continue
		}
		b[i] = turn
		v := minimax(b, next, ai, human, nodes)
		b[i] = domain.Empty
		if maximizing && v > best || !maximizing && v < best {
			best = v
		}
	}
	return best
}

// Engine breaks ties between equally good moves at random so the computer
// does not repeat itself. An Engine is not safe for concurrent use.
type Engine struct {
	rng *rand.Rand
}

// New returns an engine drawing from rng, or from a time-seeded source when
// rng is nil.
func New(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return &Engine{rng: rng}
}

// BestMove returns one of the optimal moves for ai, chosen uniformly.
func (e *Engine) BestMove(board domain.Board, ai, human domain.Cell) (int, error) {
	res, err := Analyze(board, ai, human)
	if err != nil {
		return -1, err
	}
	return res.Moves[e.rng.Intn(len(res.Moves))], nil
}
