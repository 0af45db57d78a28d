package domain

import "fmt"

// Line is an index triple of a row, column or diagonal.
type Line [3]int

// WinLines holds the rows, columns and diagonals in evaluation order.
var WinLines = [8]Line{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// Status classifies a board.
type Status uint8

const (
	Ongoing Status = iota
	Win
	Draw
)

func (s Status) String() string {
	switch s {
	case Win:
		return "win"
	case Draw:
		return "draw"
	default:
		return "ongoing"
	}
}

// Outcome is derived from a board; Winner and Line are set only for Win.
type Outcome struct {
	Status Status
	Winner Cell
	Line   Line
}

// Over reports whether the game has ended.
func (o Outcome) Over() bool { return o.Status != Ongoing }

func (o Outcome) String() string {
	switch o.Status {
	case Win:
		return fmt.Sprintf("%s wins!", o.Winner)
	case Draw:
		return "draw!"
	default:
		return "ongoing"
	}
}

// Evaluate returns the first completed line's winner, Draw for a full board
// without one, and Ongoing otherwise.
func Evaluate(b Board) Outcome {
	for _, ln := range WinLines {
		c := b[ln[0]]
		if c != Empty && b[ln[1]] == c && b[ln[2]] == c {
			return Outcome{Status: Win, Winner: c, Line: ln}
		}
	}
	if b.IsFull() {
		return Outcome{Status: Draw}
	}
	return Outcome{Status: Ongoing}
}
