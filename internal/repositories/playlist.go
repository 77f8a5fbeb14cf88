package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/shared"
)

const playlistColumns = `id, sequence, creator_id, name, description, visibility, collaborators,
	shared_link, songs, version, created_at, updated_at`

// PlaylistRepository implements [models.PlaylistStore] on SQLite.
//
// Collaborators and songs are stored as JSON arrays; membership queries use json_each.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	sequence, err := NextSequence(ctx, r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if playlist.ID() == "" {
		playlist.SetID(shared.GenerateID())
	}
	playlist.SetSequence(sequence)
	playlist.SetVersion(1)

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	collaborators, songs, err := encodePlaylistMembers(playlist)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO playlists (` + playlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		playlist.ID(),
		sequence,
		playlist.CreatorID(),
		playlist.Name(),
		playlist.Description(),
		playlist.Visibility(),
		collaborators,
		nullString(playlist.SharedLink()),
		songs,
		playlist.Version(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", uniqueViolation(err, "playlist "+playlist.ID()))
	}

	return nil
}

// Get retrieves a playlist by ID
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`

	playlist, err := scanPlaylist(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return playlist, err
}

// FindBySharedLink retrieves the playlist currently holding token
func (r *PlaylistRepository) FindBySharedLink(ctx context.Context, token string) (*models.Playlist, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty share link", shared.ErrNotFound)
	}

	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE shared_link = ?`

	playlist, err := scanPlaylist(r.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: share link", shared.ErrNotFound)
	}
	return playlist, err
}

// ConditionalPut writes every mutable column of playlist if the stored version equals expectedVersion.
// The creator is never rewritten.
func (r *PlaylistRepository) ConditionalPut(ctx context.Context, playlist *models.Playlist, expectedVersion int64) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	collaborators, songs, err := encodePlaylistMembers(playlist)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE playlists
		SET name = ?, description = ?, visibility = ?, collaborators = ?, shared_link = ?,
			songs = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		playlist.Name(),
		playlist.Description(),
		playlist.Visibility(),
		collaborators,
		nullString(playlist.SharedLink()),
		songs,
		now,
		playlist.ID(),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", uniqueViolation(err, "share link"))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return casMiss(ctx, r.db, "playlists", "playlist", playlist.ID())
	}

	playlist.SetVersion(expectedVersion + 1)
	playlist.SetUpdatedAt(now)
	return nil
}

// Delete hard-deletes a playlist by ID
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}

	return nil
}

// ListPublic retrieves public playlists, newest first
func (r *PlaylistRepository) ListPublic(ctx context.Context) ([]*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE visibility = ? ORDER BY sequence DESC`
	return r.list(ctx, query, models.VisibilityPublic)
}

// ListForMember retrieves playlists created by userID or listing userID as a collaborator, newest first
func (r *PlaylistRepository) ListForMember(ctx context.Context, userID string) ([]*models.Playlist, error) {
	query := `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE creator_id = ?
			OR EXISTS (SELECT 1 FROM json_each(playlists.collaborators) WHERE json_each.value = ?)
		ORDER BY sequence DESC
	`
	return r.list(ctx, query, userID, userID)
}

func (r *PlaylistRepository) list(ctx context.Context, query string, args ...any) ([]*models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

func encodePlaylistMembers(playlist *models.Playlist) (collaborators, songs string, err error) {
	if collaborators, err = encodeJSON(playlist.Collaborators()); err != nil {
		return "", "", fmt.Errorf("failed to encode collaborators: %w", err)
	}
	if songs, err = encodeJSON(playlist.Songs()); err != nil {
		return "", "", fmt.Errorf("failed to encode songs: %w", err)
	}
	return collaborators, songs, nil
}

// scanPlaylist scans a single row into a [models.Playlist]
func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var (
		id            string
		sequence      int
		creatorID     string
		name          string
		description   string
		visibility    string
		collaborators string
		sharedLink    sql.NullString
		songs         string
		version       int64
		createdAt     time.Time
		updatedAt     time.Time
	)

	err := row.Scan(&id, &sequence, &creatorID, &name, &description, &visibility, &collaborators, &sharedLink, &songs, &version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	var (
		collaboratorSet models.IDSet
		songList        []string
	)
	if err := decodeJSON(collaborators, &collaboratorSet); err != nil {
		return nil, fmt.Errorf("failed to decode collaborators of %s: %w", id, err)
	}
	if err := decodeJSON(songs, &songList); err != nil {
		return nil, fmt.Errorf("failed to decode songs of %s: %w", id, err)
	}

	playlist := models.NewPlaylist(creatorID, name, description, models.Visibility(visibility))
	playlist.SetID(id)
	playlist.SetSequence(sequence)
	playlist.SetCollaborators(collaboratorSet)
	playlist.SetSharedLink(sharedLink.String)
	playlist.SetSongs(songList)
	playlist.SetVersion(version)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)

	return playlist, nil
}
