// package server contains middleware & handlers for the dtunes web service
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dtunes/internal/identity"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/playlists"
	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/desertthunder/dtunes/internal/social"
	"github.com/go-chi/chi/v5"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Server holds the services the HTTP handlers call into.
type Server struct {
	users     models.UserStore
	social    *social.Machine
	playlists *playlists.Engine
	identity  identity.Provider
	logger    *log.Logger
}

// New creates a [Server].
func New(users models.UserStore, machine *social.Machine, engine *playlists.Engine, provider identity.Provider, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Server{
		users:     users,
		social:    machine,
		playlists: engine,
		identity:  provider,
		logger:    shared.WithLogger(logger, "component", "http"),
	}
}

// Routes returns the router for every endpoint.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/playlists/shared/{token}", s.handleGetSharedPlaylist)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(s.identity))

		r.Get("/users/me", s.handleMe)

		r.Route("/friends", func(r chi.Router) {
			r.Get("/", s.handleListFriends)
			r.Get("/requests", s.handleListRequests)
			r.Post("/{id}/request", s.relationship(s.social.SendRequest))
			r.Delete("/{id}/request", s.relationship(s.social.CancelRequest))
			r.Post("/{id}/accept", s.relationship(s.social.AcceptRequest))
			r.Post("/{id}/decline", s.relationship(s.social.DeclineRequest))
			r.Delete("/{id}", s.relationship(s.social.RemoveFriend))
		})

		r.Get("/likes", s.handleListLikes)
		r.Post("/likes/{songId}", s.handleToggleLike)

		r.Route("/playlists", func(r chi.Router) {
			r.Post("/", s.handleCreatePlaylist)
			r.Get("/", s.handleListPlaylists)
			r.Get("/public", s.handleListPublicPlaylists)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPlaylist)
				r.Patch("/", s.handleUpdatePlaylist)
				r.Delete("/", s.handleDeletePlaylist)
				r.Post("/link", s.handleRegenerateLink)
				r.Post("/duplicate", s.handleDuplicatePlaylist)
				r.Post("/songs", s.handleAddSong)
				r.Delete("/songs/{songId}", s.handleRemoveSong)
				r.Post("/collaborators", s.handleAddCollaborator)
				r.Delete("/collaborators/{userId}", s.handleRemoveCollaborator)
			})
		})
	})

	return r
}

// ListenAndServe serves the router on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg shared.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
