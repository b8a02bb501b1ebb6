package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// DefaultRequestTimeout leaves room for a full discovery fan-out plus the
// package ranker.
const DefaultRequestTimeout = 30 * time.Second

type Server struct{ mux *chi.Mux }

// New builds the router with the shared middleware chain.
func New(opts ...Option) *Server {
	o := options{timeout: DefaultRequestTimeout}
	for _, fn := range opts {
		fn(&o)
	}

	m := chi.NewRouter()
	// middlewares must be registered before any route
	m.Use(chimw.RealIP)
	m.Use(chimw.RequestID)
	m.Use(Recover)
	m.Use(Timeout(o.timeout))
	m.Use(Metrics)
	m.Use(Logger(log.Logger))

	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no such route")
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" not supported on this route")
	})
	return &Server{mux: m}
}

type options struct{ timeout time.Duration }

type Option func(*options)

// WithRequestTimeout overrides the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics.
func (s *Server) Mount(path string, h http.Handler) {
	s.mux.Handle(path, h)
}
