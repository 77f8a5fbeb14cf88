package social

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/dtunes/internal/presence"
	"github.com/desertthunder/dtunes/internal/shared"
)

// ToggleLike flips songID in actor's liked songs and reports whether the song is now liked.
// Friends are told about the change.
func (m *Machine) ToggleLike(ctx context.Context, actorID, songID string) (bool, error) {
	songID = strings.TrimSpace(songID)
	if songID == "" {
		return false, fmt.Errorf("%w: song id is required", shared.ErrInvalidOperation)
	}

	var (
		liked   bool
		friends []string
	)
	err := shared.Retry(ctx, m.policy, func(ctx context.Context) error {
		actor, err := m.load(ctx, actorID)
		if err != nil {
			return err
		}

		next := actor.Clone()
		liked = next.LikedSongs().Add(songID)
		if !liked {
			next.LikedSongs().Remove(songID)
		}

		if err := m.put(ctx, next, actor.Version()); err != nil {
			return err
		}
		friends = next.Friends().Slice()
		return nil
	})
	if err != nil {
		return false, err
	}

	event := presence.SongUnliked
	if liked {
		event = presence.SongLiked
	}
	for _, friendID := range friends {
		m.notify(ctx, friendID, presence.NewEvent(event, actorID, songID))
	}
	return liked, nil
}

// LikedSongs returns actor's liked song ids, sorted.
func (m *Machine) LikedSongs(ctx context.Context, actorID string) ([]string, error) {
	actor, err := m.load(ctx, actorID)
	if err != nil {
		return nil, unwrapRetryable(err)
	}
	return actor.LikedSongs().Slice(), nil
}
