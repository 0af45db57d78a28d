package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaminalder/tictactoe/internal/app"
	"github.com/jaminalder/tictactoe/internal/domain"
	"github.com/jaminalder/tictactoe/internal/game"
	"github.com/jaminalder/tictactoe/internal/policy"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       zerolog.Logger
	heartbeat time.Duration
}

// boardView is the data behind the board fragment.
type boardView struct {
	ID         string
	Board      domain.Board
	Outcome    domain.Outcome
	Difficulty policy.Difficulty
	Status     string
	Error      string
}

func newBoardView(gs app.GameState, errMsg string) boardView {
	return boardView{
		ID:         gs.ID,
		Board:      gs.Game.Board,
		Outcome:    gs.Game.Outcome,
		Difficulty: gs.Game.Difficulty,
		Status:     gs.Game.Status(),
		Error:      errMsg,
	}
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, errMsg))
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	data := struct{ Difficulty policy.Difficulty }{Difficulty: h.svc.Difficulty()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", data))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	gs, err := h.svc.CreateGame()
	if err != nil {
		h.log.Error().Err(err).Msg("create game")
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	if v := r.Form.Get("difficulty"); v != "" {
		d, err := policy.ParseDifficulty(v)
		if err != nil {
			http.Error(w, "unknown difficulty", http.StatusBadRequest)
			return
		}
		if d != gs.Game.Difficulty {
			if _, err := h.svc.SetDifficulty(gs.ID, d); err != nil {
				h.log.Error().Err(err).Str("game", gs.ID).Msg("set difficulty")
			}
		}
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := struct {
		boardView
		Game struct{ ID string }
	}{boardView: newBoardView(*gs, "")}
	data.Game.ID = gs.ID

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	// Render page with embedded board container
	_, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

// cellFromForm reads "cell" (0-8) or the row/column pair "r" and "c".
func cellFromForm(r *http.Request) (int, error) {
	_ = r.ParseForm()
	if v := r.Form.Get("cell"); v != "" {
		return strconv.Atoi(v)
	}
	ri, err := strconv.Atoi(r.Form.Get("r"))
	if err != nil {
		return -1, err
	}
	ci, err := strconv.Atoi(r.Form.Get("c"))
	if err != nil {
		return -1, err
	}
	if ri < 0 || ri > 2 || ci < 0 || ci > 2 {
		return -1, domain.ErrOutOfBounds
	}
	return ri*3 + ci, nil
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrGameOver):
		return "Game is over"
	case errors.Is(err, game.ErrAutomatedTurn):
		return "Computer to move"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	default:
		return "Invalid move"
	}
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var errMsg string
	var gs *app.GameState
	idx, err := cellFromForm(r)
	if err == nil {
		gs, err = h.svc.Play(id, idx)
	}
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if gs == nil {
			if g, ok := h.svc.Get(id); ok {
				gs = g
			}
		}
		errMsg = errorMessage(err)
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	h.writeBoard(w, *gs, errMsg)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.Reset(chi.URLParam(r, "id"))
	if errors.Is(err, app.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("reset")
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	h.writeBoard(w, *gs, "")
}

func (h *handlers) difficulty(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	d, err := policy.ParseDifficulty(r.Form.Get("difficulty"))
	if err != nil {
		http.Error(w, "unknown difficulty", http.StatusBadRequest)
		return
	}
	gs, err := h.svc.SetDifficulty(chi.URLParam(r, "id"), d)
	if errors.Is(err, app.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("set difficulty")
		http.Error(w, "difficulty change failed", http.StatusInternalServerError)
		return
	}
	h.writeBoard(w, *gs, "")
}

func (h *handlers) writeBoard(w http.ResponseWriter, gs app.GameState, errMsg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(gs, errMsg))
}

// stateJSON is the wire form of a game for the JSON and WebSocket APIs.
type stateJSON struct {
	ID         string              `json:"id"`
	Board      [domain.Size]string `json:"board"`
	Turn       string              `json:"turn"`
	Phase      string              `json:"phase"`
	Outcome    string              `json:"outcome"`
	Winner     string              `json:"winner,omitempty"`
	Line       []int               `json:"line,omitempty"`
	Difficulty policy.Difficulty   `json:"difficulty"`
	Computer   string              `json:"computer"`
	Status     string              `json:"status"`
	Moves      int                 `json:"moves"`
	Updated    time.Time           `json:"updated"`
}

func toJSON(gs app.GameState) stateJSON {
	out := stateJSON{
		ID:         gs.ID,
		Turn:       gs.Game.Turn.String(),
		Phase:      gs.Game.Phase.String(),
		Outcome:    gs.Game.Outcome.Status.String(),
		Difficulty: gs.Game.Difficulty,
		Computer:   gs.Game.Automated.String(),
		Status:     gs.Game.Status(),
		Moves:      len(gs.Game.History),
		Updated:    gs.Updated,
	}
	for i, c := range gs.Game.Board {
		out.Board[i] = c.String()
	}
	if gs.Game.Outcome.Status == domain.Win {
		out.Winner = gs.Game.Outcome.Winner.String()
		out.Line = gs.Game.Outcome.Line[:]
	}
	return out
}

func (h *handlers) apiState(w http.ResponseWriter, r *http.Request) {
	gs, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toJSON(*gs))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, ok := h.svc.Subscribe(ctx, id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: board\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}
