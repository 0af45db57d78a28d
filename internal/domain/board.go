package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Cell represents a board cell state.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

// Opponent returns the other symbol; Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Valid reports whether c is a playable symbol.
func (c Cell) Valid() bool { return c == X || c == O }

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return ""
	}
}

// ParseCell accepts "X" or "O" in either case.
func ParseCell(s string) (Cell, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "X":
		return X, nil
	case "O":
		return O, nil
	}
	return Empty, fmt.Errorf("unknown symbol %q", s)
}

// Size is the number of cells on the board.
const Size = 9

// Board is a fixed 3x3 board stored row-major.
type Board [Size]Cell

// Errors returned by board operations. All of them match ErrInvalidMove.
var (
	ErrInvalidMove = errors.New("invalid move")
	ErrOutOfBounds = fmt.Errorf("%w: out of bounds", ErrInvalidMove)
	ErrOccupied    = fmt.Errorf("%w: cell occupied", ErrInvalidMove)
	ErrBadSymbol   = fmt.Errorf("%w: not a player symbol", ErrInvalidMove)
)

// Place writes symbol into the empty cell at idx.
func (b *Board) Place(idx int, symbol Cell) error {
	if idx < 0 || idx >= Size {
		return ErrOutOfBounds
	}
	if !symbol.Valid() {
		return ErrBadSymbol
	}
	if b[idx] != Empty {
		return ErrOccupied
	}
	b[idx] = symbol
	return nil
}

// IsFull reports whether no cell is Empty.
func (b Board) IsFull() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Reset clears every cell.
func (b *Board) Reset() {
	*b = Board{}
}

// Count returns how many cells hold c.
func (b Board) Count(c Cell) int {
	n := 0
	for _, v := range b {
		if v == c {
			n++
		}
	}
	return n
}

// EmptyCells lists the indices of empty cells in ascending order.
func (b Board) EmptyCells() []int {
	out := make([]int, 0, Size)
	for i, c := range b {
		if c == Empty {
			out = append(out, i)
		}
	}
	return out
}

// String renders the board as three lines of X, O and '.'.
func (b Board) String() string {
	var sb strings.Builder
	for i, c := range b {
		if c == Empty {
			sb.WriteByte('.')
		} else {
			sb.WriteString(c.String())
		}
		if i%3 == 2 && i != Size-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// ParseBoard reads nine cells from s. X and O are symbols, '.', '-' and '_'
// are empty cells and whitespace is ignored.
func ParseBoard(s string) (Board, error) {
	var b Board
	n := 0
	for _, r := range s {
		var c Cell
		switch r {
		case ' ', '\t', '\n', '\r', '|':
			continue
		case 'X', 'x':
			c = X
		case 'O', 'o':
			c = O
		case '.', '-', '_':
			c = Empty
		default:
			return Board{}, fmt.Errorf("parse board: unexpected %q", r)
		}
		if n == Size {
			return Board{}, fmt.Errorf("parse board: more than %d cells", Size)
		}
		b[n] = c
		n++
	}
	if n != Size {
		return Board{}, fmt.Errorf("parse board: got %d cells, want %d", n, Size)
	}
	return b, nil
}

// MustParseBoard is ParseBoard for fixed literals; it panics on error.
func MustParseBoard(s string) Board {
	b, err := ParseBoard(s)
	if err != nil {
		panic(err)
	}
	return b
}
