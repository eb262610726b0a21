// Package api is the HTTP surface: task CRUD, sign-up and sign-in, the
// session-gated dashboard and a health probe.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/michaeltuccillo/taskd/internal/session"
	"github.com/michaeltuccillo/taskd/internal/store"
)

type Options struct {
	Origins    []string
	SignInPath string
	BcryptCost int
}

type Server struct {
	store    *store.Store
	sessions *session.Manager
	logger   *zap.Logger
	opts     Options

	now func() time.Time
}

func New(st *store.Store, sessions *session.Manager, logger *zap.Logger, opts Options) *Server {
	if opts.SignInPath == "" {
		opts.SignInPath = "/sign-in"
	}
	return &Server{
		store:    st,
		sessions: sessions,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if len(s.opts.Origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.Origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(preflight)

	// Auth
	r.Post("/sign-up", s.handleSignUp)
	r.Post("/sign-in", s.handleSignIn)
	r.Post("/sign-out", s.handleSignOut)
	r.Get("/me", s.handleMe)

	// Tasks
	r.Route("/tasks", s.taskRoutes)
	r.Route("/api/tasks", s.taskRoutes)

	r.Get("/", s.handleDashboard)

	// Health
	r.Get("/healthz", s.handleHealth)

	return r
}

func (s *Server) taskRoutes(r chi.Router) {
	r.Get("/", s.handleListTasks)
	r.Post("/", s.handleCreateTask)
	r.Get("/summary", s.handleTaskSummary)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetTask)
		r.Put("/", s.handleUpdateTask)
		r.Delete("/", s.handleDeleteTask)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logError(r, "health check", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
