// Package term plays the game on a text terminal.
package term

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/jaminalder/tictactoe/internal/app"
	"github.com/jaminalder/tictactoe/internal/domain"
	"github.com/jaminalder/tictactoe/internal/game"
	"github.com/jaminalder/tictactoe/internal/policy"
)

// Renderer draws boards with colour when the output supports it.
type Renderer struct {
	out *termenv.Output
}

func NewRenderer(w io.Writer, opts ...termenv.OutputOption) *Renderer {
	return &Renderer{out: termenv.NewOutput(w, opts...)}
}

func (r *Renderer) cell(st game.State, idx int) string {
	c := st.Board[idx]
	if c == domain.Empty {
		return r.out.String(strconv.Itoa(idx + 1)).Faint().String()
	}
	s := r.out.String(c.String()).Bold()
	switch c {
	case domain.X:
		s = s.Foreground(r.out.Color("12"))
	case domain.O:
		s = s.Foreground(r.out.Color("9"))
	}
	if st.Outcome.Status == domain.Win {
		for _, i := range st.Outcome.Line {
			if i == idx {
				s = s.Underline()
			}
		}
	}
	return s.String()
}

// Render writes the board, empty cells numbered 1 to 9, and the status.
func (r *Renderer) Render(st game.State) {
	var sb strings.Builder
	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteString("---+---+---\n")
		}
		for col := 0; col < 3; col++ {
			if col > 0 {
				sb.WriteString("|")
			}
			sb.WriteString(" " + r.cell(st, row*3+col) + " ")
		}
		sb.WriteString("\n")
	}
	fmt.Fprint(r.out, sb.String())
	fmt.Fprintf(r.out, "%s  [%s]\n", st.Status(), st.Difficulty)
}

const help = "commands: 1-9 play a cell, r restart, d <two-players|random|optimal> change opponent, q quit"

// Run plays one game session against svc until q, end of input or ctx is
// done.
func Run(ctx context.Context, svc *app.Service, in io.Reader, r *Renderer) error {
	gs, err := svc.CreateGame()
	if err != nil {
		return err
	}
	id := gs.ID
	fmt.Fprintln(r.out, help)
	r.Render(gs.Game)

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return <-errc
			}
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		var next *app.GameState
		switch cmd := strings.ToLower(fields[0]); cmd {
		case "q", "quit", "exit":
			return nil
		case "h", "help", "?":
			fmt.Fprintln(r.out, help)
			continue
		case "r", "restart":
			next, err = svc.Reset(id)
		case "d", "difficulty":
			if len(fields) < 2 {
				fmt.Fprintf(r.out, "current opponent: %s\n", svc.Difficulty())
				continue
			}
			d, perr := policy.ParseDifficulty(fields[1])
			if perr != nil {
				fmt.Fprintln(r.out, perr)
				continue
			}
			next, err = svc.SetDifficulty(id, d)
		default:
			n, perr := strconv.Atoi(cmd)
			if perr != nil {
				fmt.Fprintf(r.out, "unknown command %q\n", cmd)
				continue
			}
			next, err = svc.Play(id, n-1)
		}

		if err != nil {
			if !errors.Is(err, domain.ErrInvalidMove) {
				return err
			}
			fmt.Fprintln(r.out, message(err))
		}
		if next != nil {
			r.Render(next.Game)
		}
	}
}

func message(err error) string {
	switch {
	case errors.Is(err, game.ErrGameOver):
		return "game is over, r to restart"
	case errors.Is(err, domain.ErrOccupied):
		return "that cell is taken"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "pick a cell from 1 to 9"
	default:
		return err.Error()
	}
}
