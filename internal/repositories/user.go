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

const userColumns = `id, sequence, email, name, friends, incoming_requests, outgoing_requests,
	liked_songs, pair_revisions, version, created_at, updated_at`

// UserRepository implements [models.UserStore] on SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	sequence, err := NextSequence(ctx, r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if user.ID() == "" {
		user.SetID(shared.GenerateID())
	}
	user.SetSequence(sequence)
	user.SetVersion(1)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	cols, err := encodeUserEdges(user)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		user.ID(),
		sequence,
		user.Email(),
		user.Name(),
		cols.friends,
		cols.incoming,
		cols.outgoing,
		cols.liked,
		cols.revisions,
		user.Version(),
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", uniqueViolation(err, "user "+user.Email()))
	}

	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return user, err
}

// FindByEmail retrieves a user by email, ignoring case
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower(?)`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user with email %s", shared.ErrNotFound, email)
	}
	return user, err
}

// ConditionalPut writes every mutable column of user if the stored version equals expectedVersion
func (r *UserRepository) ConditionalPut(ctx context.Context, user *models.User, expectedVersion int64) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	cols, err := encodeUserEdges(user)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
		UPDATE users
		SET email = ?, name = ?, friends = ?, incoming_requests = ?, outgoing_requests = ?,
			liked_songs = ?, pair_revisions = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Email(),
		user.Name(),
		cols.friends,
		cols.incoming,
		cols.outgoing,
		cols.liked,
		cols.revisions,
		now,
		user.ID(),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", uniqueViolation(err, "user "+user.Email()))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return casMiss(ctx, r.db, "users", "user", user.ID())
	}

	user.SetVersion(expectedVersion + 1)
	user.SetUpdatedAt(now)
	return nil
}

// Delete hard-deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}

	return nil
}

// ListIDs returns every user id in sequence order
func (r *UserRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

type userEdgeColumns struct {
	friends, incoming, outgoing, liked, revisions string
}

func encodeUserEdges(user *models.User) (userEdgeColumns, error) {
	var (
		cols userEdgeColumns
		err  error
	)
	for _, f := range []struct {
		dst *string
		src any
	}{
		{&cols.friends, user.Friends()},
		{&cols.incoming, user.IncomingRequests()},
		{&cols.outgoing, user.OutgoingRequests()},
		{&cols.liked, user.LikedSongs()},
		{&cols.revisions, user.PairRevisions()},
	} {
		if *f.dst, err = encodeJSON(f.src); err != nil {
			return cols, fmt.Errorf("failed to encode user %s: %w", user.ID(), err)
		}
	}
	return cols, nil
}

// scanUser scans a single row into a [models.User]
func scanUser(row rowScanner) (*models.User, error) {
	var (
		id        string
		sequence  int
		email     string
		name      string
		friends   string
		incoming  string
		outgoing  string
		liked     string
		revisions string
		version   int64
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&id, &sequence, &email, &name, &friends, &incoming, &outgoing, &liked, &revisions, &version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	var (
		friendSet, incomingSet, outgoingSet, likedSet models.IDSet
		revs                                          map[string]int64
	)
	for _, f := range []struct {
		src string
		dst any
	}{
		{friends, &friendSet},
		{incoming, &incomingSet},
		{outgoing, &outgoingSet},
		{liked, &likedSet},
		{revisions, &revs},
	} {
		if err := decodeJSON(f.src, f.dst); err != nil {
			return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
		}
	}

	user := models.NewUser(email, name)
	user.SetID(id)
	user.SetSequence(sequence)
	user.SetFriends(friendSet)
	user.SetIncomingRequests(incomingSet)
	user.SetOutgoingRequests(outgoingSet)
	user.SetLikedSongs(likedSet)
	user.SetPairRevisions(revs)
	user.SetVersion(version)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)

	return user, nil
}
