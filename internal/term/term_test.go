package term

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/jaminalder/tictactoe/internal/app"
	"github.com/jaminalder/tictactoe/internal/game"
	"github.com/jaminalder/tictactoe/internal/policy"
	"github.com/jaminalder/tictactoe/internal/store"
)

func plain(buf *bytes.Buffer) *Renderer {
	return NewRenderer(buf, termenv.WithProfile(termenv.Ascii))
}

func TestRender(t *testing.T) {
	c := game.New(game.DefaultSettings())
	for _, idx := range []int{0, 3, 1, 4, 2} {
		_, err := c.SubmitMove(idx)
		require.NoError(t, err)
	}
	var buf bytes.Buffer
	plain(&buf).Render(c.State())

	want := " X | X | X \n---+---+---\n O | O | 6 \n---+---+---\n 7 | 8 | 9 \nX wins!  [two-players]\n"
	require.Equal(t, want, buf.String())
}

func TestRunSession(t *testing.T) {
	svc := app.NewService()
	in := strings.NewReader("5\n5\n10\nfoo\nd\nr\nq\n")
	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, in, plain(&buf)))

	out := buf.String()
	require.Contains(t, out, "that cell is taken")
	require.Contains(t, out, "pick a cell from 1 to 9")
	require.Contains(t, out, `unknown command "foo"`)
	require.Contains(t, out, "current opponent: two-players")
	require.Contains(t, out, " 4 | X | 6 ")
	require.Contains(t, out, "O's turn")
}

func TestRunChangesDifficulty(t *testing.T) {
	prefs := store.NewMemoryStore(policy.TwoPlayers)
	svc := app.NewService(app.WithStore(prefs))
	in := strings.NewReader("d optimal\n1\n")
	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), svc, in, plain(&buf)))

	d, err := prefs.Load()
	require.NoError(t, err)
	require.Equal(t, policy.OptimalOpponent, d)
	// Corner opening is answered in the centre.
	require.Contains(t, buf.String(), " X | 2 | 3 \n---+---+---\n 4 | O | 6 ")
}
