package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ws streams the game state as JSON: one "state" message on connect and
// after every change, "ping" when idle.
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	changes, unsub, ok := h.svc.Subscribe(ctx, id)
	if !ok {
		return
	}
	defer unsub()

	// Reader: only needed to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		gs, ok := h.svc.Get(id)
		if !ok {
			return websocket.ErrCloseSent
		}
		msg := wsMessage{Type: "state", Payload: mustMarshal(toJSON(*gs))}
		return conn.WriteMessage(websocket.TextMessage, mustMarshal(msg))
	}
	if err := send(); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	lastWrite := time.Now()
	ping := mustMarshal(wsMessage{Type: "ping"})
	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := send(); err != nil {
				return
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < h.heartbeat {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, ping); err != nil {
				return
			}
			lastWrite = time.Now()
		}
	}
}
