package server

import (
	"context"
	"net/http"

	"github.com/desertthunder/dtunes/internal/identity"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/playlists"
	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/desertthunder/dtunes/internal/social"
	"github.com/go-chi/chi/v5"
)

// actor returns the authenticated user id. Routes without [Authenticate] get an empty id.
func actor(r *http.Request) string {
	id, _ := identity.UserFrom(r.Context())
	return id
}

func peerViews(users []*models.User) []models.PeerView {
	views := make([]models.PeerView, len(users))
	for i, u := range users {
		views[i] = u.Peer()
	}
	return views
}

func playlistViews(ps []*models.Playlist) []models.PlaylistView {
	views := make([]models.PlaylistView, len(ps))
	for i, p := range ps {
		views[i] = p.View()
	}
	return views
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u.View())
}

// pairResponse is the body returned by every relationship transition.
type pairResponse struct {
	State  string          `json:"state"`
	PeerID string          `json:"peerId"`
	Actor  models.UserView `json:"actor"`
}

// relationship adapts a transition to a handler taking the peer from {id}.
func (s *Server) relationship(op func(ctx context.Context, actorID, peerID string) (*social.Pair, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pair, err := op(r.Context(), actor(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pairResponse{
			State:  pair.State().String(),
			PeerID: pair.Peer.ID(),
			Actor:  pair.Actor.View(),
		})
	}
}

func (s *Server) handleListFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.social.Friends(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"friends": peerViews(friends)})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.social.Requests(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"incoming": peerViews(reqs.Incoming),
		"outgoing": peerViews(reqs.Outgoing),
	})
}

func (s *Server) handleListLikes(w http.ResponseWriter, r *http.Request) {
	songs, err := s.social.LikedSongs(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"likedSongs": songs})
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	songID := chi.URLParam(r, "songId")
	liked, err := s.social.ToggleLike(r.Context(), actor(r), songID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"songId": songID, "liked": liked})
}

type playlistRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Visibility  string  `json:"visibility"`
}

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body playlistRequest
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	var name, desc string
	if body.Name != nil {
		name = *body.Name
	}
	if body.Description != nil {
		desc = *body.Description
	}

	p, err := s.playlists.Create(r.Context(), actor(r), name, desc, models.Visibility(body.Visibility))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.View())
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	ps, err := s.playlists.ListForUser(r.Context(), actor(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlistViews(ps)})
}

func (s *Server) handleListPublicPlaylists(w http.ResponseWriter, r *http.Request) {
	ps, err := s.playlists.ListPublic(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": playlistViews(ps)})
}

func (s *Server) handleGetSharedPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := s.playlists.GetBySharedLink(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}

	// Link holders see the playlist, not who it is shared with.
	view := p.View()
	view.Collaborators = []string{}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := s.playlists.Get(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body playlistRequest
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	p, err := s.playlists.Update(r.Context(), actor(r), chi.URLParam(r, "id"), playlists.Update{
		Visibility:  models.Visibility(body.Visibility),
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.playlists.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegenerateLink(w http.ResponseWriter, r *http.Request) {
	p, err := s.playlists.RegenerateSharedLink(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (s *Server) handleDuplicatePlaylist(w http.ResponseWriter, r *http.Request) {
	p, err := s.playlists.Duplicate(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p.View())
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SongID string `json:"songId"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	p, err := s.playlists.AddSong(r.Context(), actor(r), chi.URLParam(r, "id"), body.SongID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (s *Server) handleRemoveSong(w http.ResponseWriter, r *http.Request) {
	p, err := s.playlists.RemoveSong(r.Context(), actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "songId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (s *Server) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}

	var (
		p   *models.Playlist
		err error
		id  = chi.URLParam(r, "id")
	)
	switch {
	case body.UserID != "":
		p, err = s.playlists.AddCollaborator(r.Context(), actor(r), id, body.UserID)
	case body.Email != "":
		p, err = s.playlists.AddCollaboratorByEmail(r.Context(), actor(r), id, body.Email)
	default:
		err = shared.ErrMissingArgument
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}

func (s *Server) handleRemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	p, err := s.playlists.RemoveCollaborator(r.Context(), actor(r), chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p.View())
}
