package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jaminalder/tictactoe/internal/app"
	"github.com/jaminalder/tictactoe/internal/policy"
	"github.com/jaminalder/tictactoe/internal/store"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
	t.Helper()
	s := app.NewService()
	h := NewServer(s)
	return s, h
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestIndexPage(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
		t.Fatalf("index should contain create form; got body: %q", body)
	}
	if !strings.Contains(body, "value=\"optimal\"") {
		t.Fatalf("index should offer difficulties; got body: %q", body)
	}
}

func TestCreateRedirectsToGame(t *testing.T) {
	_, h := newTestServer(t)
	req := httptest.NewRequest("POST", "/game", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther && rr.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	loc := rr.Result().Header.Get("Location")
	if !strings.HasPrefix(loc, "/game/") {
		t.Fatalf("expected redirect to /game/{id}, got %q", loc)
	}
}

func TestCreateWithDifficulty(t *testing.T) {
	svc, h := newTestServer(t)
	rr := postForm(h, "/game", url.Values{"difficulty": {"random"}})
	loc := rr.Result().Header.Get("Location")
	gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
	if !ok {
		t.Fatalf("created game not found at %q", loc)
	}
	if gs.Game.Difficulty != policy.RandomOpponent {
		t.Fatalf("expected random opponent, got %v", gs.Game.Difficulty)
	}
	if rr := postForm(h, "/game", url.Values{"difficulty": {"godlike"}}); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown difficulty, got %d", rr.Code)
	}
}

func TestGamePageRendersBoardAndSSE(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()

	req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID)+"/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
		t.Fatalf("expected SSE wiring in page; got body: %q", body)
	}
	if strings.Count(body, "data-cell=") != 9 || !strings.Contains(body, "X&#39;s turn") {
		t.Fatalf("expected nine cells and status; got body: %q", body)
	}
}

func TestUnknownGameIsNotFound(t *testing.T) {
	_, h := newTestServer(t)
	for _, path := range []string{"/game/nope/", "/api/games/nope"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rr.Code)
		}
	}
	if rr := postForm(h, "/game/nope/play", url.Values{"cell": {"0"}}); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for play, got %d", rr.Code)
	}
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()

	rr := postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"4"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "id=\"board\"") {
		t.Fatalf("expected board fragment, got %q", rr.Body.String())
	}
	// Row/column form fields still work.
	postForm(h, "/game/"+gs.ID+"/play", url.Values{"r": {"0"}, "c": {"0"}})

	latest, _ := svc.Get(gs.ID)
	if len(latest.Game.History) != 2 || latest.Game.Board[4].String() != "X" || latest.Game.Board[0].String() != "O" {
		t.Fatalf("expected both moves applied, got\n%v", latest.Game.Board)
	}
}

func TestPlayEndpointReportsRejectedMove(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"4"}})

	rr := postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"4"}})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Cell is occupied") {
		t.Fatalf("expected occupied message, got %d %q", rr.Code, rr.Body.String())
	}
	rr = postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"x"}})
	if !strings.Contains(rr.Body.String(), "Invalid move") {
		t.Fatalf("expected invalid move message, got %q", rr.Body.String())
	}
}

func TestResetAndDifficultyEndpoints(t *testing.T) {
	prefs := store.NewMemoryStore(policy.TwoPlayers)
	svc := app.NewService(app.WithStore(prefs))
	h := NewServer(svc)
	gs, _ := svc.CreateGame()
	postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {"0"}})

	rr := postForm(h, "/game/"+gs.ID+"/reset", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if latest, _ := svc.Get(gs.ID); len(latest.Game.History) != 0 {
		t.Fatalf("expected empty history after reset")
	}

	rr = postForm(h, "/game/"+gs.ID+"/difficulty", url.Values{"difficulty": {"3"}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if latest, _ := svc.Get(gs.ID); latest.Game.Difficulty != policy.OptimalOpponent {
		t.Fatalf("expected optimal opponent, got %v", latest.Game.Difficulty)
	}
	if d, _ := prefs.Load(); d != policy.OptimalOpponent {
		t.Fatalf("expected difficulty to be saved, got %v", d)
	}
	if rr := postForm(h, "/game/"+gs.ID+"/difficulty", url.Values{"difficulty": {"9"}}); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAPIStateJSON(t *testing.T) {
	svc, h := newTestServer(t)
	gs, _ := svc.CreateGame()
	for _, cell := range []string{"0", "3", "1", "4", "2"} {
		postForm(h, "/game/"+gs.ID+"/play", url.Values{"cell": {cell}})
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/games/"+gs.ID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got stateJSON
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Phase != "finished" || got.Winner != "X" || got.Status != "X wins!" || got.Moves != 5 {
		t.Fatalf("unexpected state %+v", got)
	}
	if len(got.Line) != 3 || got.Line[0] != 0 || got.Line[2] != 2 {
		t.Fatalf("expected top row as winning line, got %v", got.Line)
	}
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
	_, h := newTestServer(t)
	// create a game via POST
	reqCreate := httptest.NewRequest("POST", "/game", nil)
	rrCreate := httptest.NewRecorder()
	h.ServeHTTP(rrCreate, reqCreate)
	loc := rrCreate.Result().Header.Get("Location")
	if loc == "" {
		t.Fatalf("missing redirect location")
	}
	// Request SSE
	req := httptest.NewRequest("GET", loc+"/events", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	ct := rr.Result().Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/event-stream") {
		io.Copy(io.Discard, rr.Result().Body)
		t.Fatalf("expected text/event-stream, got %q", ct)
	}
}

func TestWebSocketStreamsState(t *testing.T) {
	svc, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()
	gs, _ := svc.CreateGame()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + gs.ID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	read := func() stateJSON {
		t.Helper()
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type != "state" {
			t.Fatalf("unexpected message type %q", msg.Type)
		}
		var st stateJSON
		if err := json.Unmarshal(msg.Payload, &st); err != nil {
			t.Fatalf("payload: %v", err)
		}
		return st
	}

	if st := read(); st.Moves != 0 || st.Turn != "X" {
		t.Fatalf("unexpected initial state %+v", st)
	}
	if _, err := svc.Play(gs.ID, 4); err != nil {
		t.Fatalf("play: %v", err)
	}
	if st := read(); st.Moves != 1 || st.Board[4] != "X" {
		t.Fatalf("unexpected state after move %+v", st)
	}
}
