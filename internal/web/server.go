package web

import (
	"bytes"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jaminalder/tictactoe/internal/app"
)

// Option configures the server.
type Option func(*handlers)

func WithLogger(l zerolog.Logger) Option { return func(h *handlers) { h.log = l } }

// WithHeartbeat sets the keep-alive interval of the event streams.
func WithHeartbeat(d time.Duration) Option { return func(h *handlers) { h.heartbeat = d } }

// NewServer wires routes and returns an http.Handler. It installs the
// board renderer used for event stream broadcasts.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	h := &handlers{svc: s, tpl: loadTemplates(), log: zerolog.Nop(), heartbeat: 15 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	// SSE data lines must not contain newlines.
	s.SetRenderer(func(gs app.GameState) []byte {
		return bytes.ReplaceAll(h.renderBoard(gs, ""), []byte("\n"), nil)
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/play", h.play)
		r.Post("/reset", h.reset)
		r.Post("/difficulty", h.difficulty)
		r.Get("/events", h.events)
		r.Get("/ws", h.ws)
	})
	r.Get("/api/games/{id}", h.apiState)
	return r
}

// requestLogger logs one line per request.
func requestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Str("request_id", middleware.GetReqID(r.Context())).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
