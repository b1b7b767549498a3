// Package server exposes bookmark storage and navigation sessions over
// JSON/HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nikbrunner/bmtree/internal/session"
	"github.com/nikbrunner/bmtree/internal/storage"
)

// Options configures a Server.
type Options struct {
	Address      string
	CORSOrigin   string // empty disables CORS headers
	HistoryLimit int
	MaxSessions  int // <= 0 uses session.DefaultMaxSessions
	Logger       zerolog.Logger
}

// Server is the bm HTTP API.
type Server struct {
	router   *chi.Mux
	storage  storage.Storage
	sessions *session.Registry
	log      zerolog.Logger
	addr     string
	server   *http.Server
}

// New creates a server over s and registers all routes.
func New(s storage.Storage, opts Options) *Server {
	srv := &Server{
		router:   chi.NewRouter(),
		storage:  s,
		sessions: session.NewRegistry(s, opts.HistoryLimit, opts.MaxSessions, &opts.Logger),
		log:      opts.Logger,
		addr:     opts.Address,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(requestLogger(srv.log))
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.RequestSize(maxBodyBytes))
	if opts.CORSOrigin != "" {
		srv.router.Use(cors(opts.CORSOrigin))
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	r := s.router
	r.Get("/health", s.handleHealth)

	r.Route("/folders", func(r chi.Router) {
		r.Get("/", s.listFolders)
		r.Post("/", s.createFolder)
		r.Put("/{id}", s.renameFolder)
		r.Delete("/{id}", s.deleteFolder)
	})
	r.Route("/bookmarks", func(r chi.Router) {
		r.Get("/", s.listBookmarks)
		r.Post("/", s.createBookmark)
		r.Put("/{id}", s.updateBookmark)
		r.Delete("/{id}", s.deleteBookmark)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", s.withSession(s.getSession))
			r.Delete("/", s.deleteSession)
			r.Post("/refresh", s.withSession(s.refreshSession))
			r.Post("/enter", s.withSession(s.enterFolder))
			r.Post("/back", s.withSession(s.goBack))
			r.Post("/folders", s.withSession(s.addFolder))
			r.Post("/bookmarks", s.withSession(s.addBookmark))
			r.Put("/folders/{id}", s.withSession(s.renameSessionFolder))
			r.Put("/bookmarks/{id}", s.withSession(s.editSessionBookmark))
			r.Delete("/folders/{id}", s.withSession(s.removeFolder))
			r.Delete("/bookmarks/{id}", s.withSession(s.removeBookmark))
		})
	})
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Sessions returns the server's session registry.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Start listens on the configured address and blocks until Stop.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.log.Info().Str("address", s.addr).Msg("starting server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.log.Info().Msg("shutting down server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
