package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/jackc/pgx/v5"
)

const playlistColumns = `id, sequence, creator_id, name, description, visibility, collaborators,
	shared_link, songs, version, created_at, updated_at`

// PlaylistStore implements [models.PlaylistStore] on PostgreSQL.
type PlaylistStore struct {
	db DB
}

func NewPlaylistStore(db DB) *PlaylistStore {
	return &PlaylistStore{db: db}
}

func (s *PlaylistStore) Create(ctx context.Context, playlist *models.Playlist) error {
	if playlist.ID() == "" {
		playlist.SetID(shared.GenerateID())
	}
	playlist.SetVersion(1)

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	collaborators, songs, err := encodeMembers(playlist)
	if err != nil {
		return err
	}

	var sequence int
	err = s.db.QueryRow(ctx, `
		INSERT INTO playlists (id, creator_id, name, description, visibility, collaborators,
			shared_link, songs, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING sequence`,
		playlist.ID(), playlist.CreatorID(), playlist.Name(), playlist.Description(),
		string(playlist.Visibility()), collaborators, nullString(playlist.SharedLink()), songs,
		playlist.Version(), playlist.CreatedAt(), playlist.UpdatedAt(),
	).Scan(&sequence)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", classify(err, "playlist "+playlist.ID()))
	}

	playlist.SetSequence(sequence)
	return nil
}

func (s *PlaylistStore) Get(ctx context.Context, id string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(s.db.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return playlist, err
}

func (s *PlaylistStore) FindBySharedLink(ctx context.Context, token string) (*models.Playlist, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty share link", shared.ErrNotFound)
	}
	playlist, err := scanPlaylist(s.db.QueryRow(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE shared_link = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: share link", shared.ErrNotFound)
	}
	return playlist, err
}

func (s *PlaylistStore) ConditionalPut(ctx context.Context, playlist *models.Playlist, expectedVersion int64) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	collaborators, songs, err := encodeMembers(playlist)
	if err != nil {
		return err
	}

	now := time.Now()
	tag, err := s.db.Exec(ctx, `
		UPDATE playlists
		SET name = $1, description = $2, visibility = $3, collaborators = $4, shared_link = $5,
			songs = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`,
		playlist.Name(), playlist.Description(), string(playlist.Visibility()),
		collaborators, nullString(playlist.SharedLink()), songs,
		now, playlist.ID(), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", classify(err, "share link"))
	}
	if tag.RowsAffected() == 0 {
		return casMiss(ctx, s.db, "playlists", "playlist", playlist.ID())
	}

	playlist.SetVersion(expectedVersion + 1)
	playlist.SetUpdatedAt(now)
	return nil
}

func (s *PlaylistStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM playlists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", classify(err, "playlist"))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return nil
}

func (s *PlaylistStore) ListPublic(ctx context.Context) ([]*models.Playlist, error) {
	return s.list(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE visibility = 'public' ORDER BY sequence DESC`)
}

func (s *PlaylistStore) ListForMember(ctx context.Context, userID string) ([]*models.Playlist, error) {
	return s.list(ctx, `
		SELECT `+playlistColumns+`
		FROM playlists
		WHERE creator_id = $1 OR collaborators @> jsonb_build_array($1::text)
		ORDER BY sequence DESC`, userID)
}

func (s *PlaylistStore) list(ctx context.Context, query string, args ...any) ([]*models.Playlist, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", classify(err, "playlist"))
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

func encodeMembers(playlist *models.Playlist) (collaborators, songs []byte, err error) {
	if collaborators, err = jsonb(playlist.Collaborators()); err != nil {
		return nil, nil, fmt.Errorf("failed to encode collaborators: %w", err)
	}
	if songs, err = jsonb(playlist.Songs()); err != nil {
		return nil, nil, fmt.Errorf("failed to encode songs: %w", err)
	}
	return collaborators, songs, nil
}

func scanPlaylist(row pgx.Row) (*models.Playlist, error) {
	var (
		id, creatorID, name, description, visibility string
		sequence                                     int
		collaborators, songs                         []byte
		sharedLink                                   *string
		version                                      int64
		createdAt, updatedAt                         time.Time
	)

	err := row.Scan(&id, &sequence, &creatorID, &name, &description, &visibility, &collaborators, &sharedLink, &songs, &version, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	var (
		collaboratorSet models.IDSet
		songList        []string
	)
	if len(collaborators) > 0 {
		if err := json.Unmarshal(collaborators, &collaboratorSet); err != nil {
			return nil, fmt.Errorf("failed to decode collaborators of %s: %w", id, err)
		}
	}
	if len(songs) > 0 {
		if err := json.Unmarshal(songs, &songList); err != nil {
			return nil, fmt.Errorf("failed to decode songs of %s: %w", id, err)
		}
	}

	playlist := models.NewPlaylist(creatorID, name, description, models.Visibility(visibility))
	playlist.SetID(id)
	playlist.SetSequence(sequence)
	playlist.SetCollaborators(collaboratorSet)
	if sharedLink != nil {
		playlist.SetSharedLink(*sharedLink)
	}
	playlist.SetSongs(songList)
	playlist.SetVersion(version)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)
	return playlist, nil
}

var (
	_ models.UserStore     = (*UserStore)(nil)
	_ models.PlaylistStore = (*PlaylistStore)(nil)
)
