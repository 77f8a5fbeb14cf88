package playlists

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/presence"
	"github.com/desertthunder/dtunes/internal/shared"
)

// AddSong appends songID. The creator may always edit songs; collaborators only while the playlist is in
// group mode. A song already present is a conflict.
func (e *Engine) AddSong(ctx context.Context, actorID, id, songID string) (*models.Playlist, error) {
	songID = strings.TrimSpace(songID)
	if songID == "" {
		return nil, fmt.Errorf("%w: song id is required", shared.ErrInvalidOperation)
	}

	p, err := e.mutate(ctx, actorID, id, "add song", func(next *models.Playlist) (bool, error) {
		if !next.CanEditSongs(actorID) {
			return false, fmt.Errorf("%w: not allowed to edit playlist %s", shared.ErrForbidden, id)
		}
		if !next.AppendSong(songID) {
			return false, fmt.Errorf("%w: song %s is already in the playlist", shared.ErrConflict, songID)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, p, actorID, presence.PlaylistSongAdded)
	return p, nil
}

// RemoveSong removes songID. Removing a song that is not in the playlist succeeds without a write.
func (e *Engine) RemoveSong(ctx context.Context, actorID, id, songID string) (*models.Playlist, error) {
	var removed bool
	p, err := e.mutate(ctx, actorID, id, "remove song", func(next *models.Playlist) (bool, error) {
		if !next.CanEditSongs(actorID) {
			return false, fmt.Errorf("%w: not allowed to edit playlist %s", shared.ErrForbidden, id)
		}
		removed = next.RemoveSong(songID)
		return removed, nil
	})
	if err != nil {
		return nil, err
	}

	if removed {
		e.notify(ctx, p, actorID, presence.PlaylistSongRemoved)
	}
	return p, nil
}

// AddCollaborator shares a group or public playlist with userID. Only the creator manages collaborators,
// and a private playlist has none.
func (e *Engine) AddCollaborator(ctx context.Context, actorID, id, userID string) (*models.Playlist, error) {
	if _, err := e.user(ctx, userID); err != nil {
		return nil, err
	}

	return e.mutate(ctx, actorID, id, "add collaborator", func(next *models.Playlist) (bool, error) {
		if err := canManageCollaborators(next, actorID); err != nil {
			return false, err
		}
		if next.IsCreator(userID) {
			return false, fmt.Errorf("%w: the creator cannot be a collaborator", shared.ErrInvalidOperation)
		}
		if !next.Collaborators().Add(userID) {
			return false, fmt.Errorf("%w: user %s is already a collaborator", shared.ErrConflict, userID)
		}
		return true, nil
	})
}

// AddCollaboratorByEmail resolves email to a user and adds them as a collaborator.
func (e *Engine) AddCollaboratorByEmail(ctx context.Context, actorID, id, email string) (*models.Playlist, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: collaborator email is required", shared.ErrInvalidOperation)
	}

	lookup, cancel := e.policy.WithOpTimeout(ctx)
	u, err := e.users.FindByEmail(lookup, email)
	cancel()
	if err != nil {
		return nil, unavailable(shared.StorageError(err))
	}
	return e.AddCollaborator(ctx, actorID, id, u.ID())
}

// RemoveCollaborator revokes userID's access. Removing someone who is not a collaborator succeeds without
// a write.
func (e *Engine) RemoveCollaborator(ctx context.Context, actorID, id, userID string) (*models.Playlist, error) {
	return e.mutate(ctx, actorID, id, "remove collaborator", func(next *models.Playlist) (bool, error) {
		if !next.IsCreator(actorID) {
			return false, fmt.Errorf("%w: only the creator can manage collaborators", shared.ErrForbidden)
		}
		return next.Collaborators().Remove(userID), nil
	})
}

func canManageCollaborators(p *models.Playlist, actorID string) error {
	if !p.IsCreator(actorID) {
		return fmt.Errorf("%w: only the creator can manage collaborators", shared.ErrForbidden)
	}
	if p.Visibility() == models.VisibilityPrivate {
		return fmt.Errorf("%w: private playlists cannot have collaborators", shared.ErrConflict)
	}
	return nil
}
