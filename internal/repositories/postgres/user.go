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

const userColumns = `id, sequence, email, name, friends, incoming_requests, outgoing_requests,
	liked_songs, pair_revisions, version, created_at, updated_at`

// UserStore implements [models.UserStore] on PostgreSQL.
type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID() == "" {
		user.SetID(shared.GenerateID())
	}
	user.SetVersion(1)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	edges, err := encodeEdges(user)
	if err != nil {
		return err
	}

	var sequence int
	err = s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, friends, incoming_requests, outgoing_requests,
			liked_songs, pair_revisions, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING sequence`,
		user.ID(), user.Email(), user.Name(),
		edges[0], edges[1], edges[2], edges[3], edges[4],
		user.Version(), user.CreatedAt(), user.UpdatedAt(),
	).Scan(&sequence)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", classify(err, "user "+user.Email()))
	}

	user.SetSequence(sequence)
	return nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return user, err
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: user with email %s", shared.ErrNotFound, email)
	}
	return user, err
}

func (s *UserStore) ConditionalPut(ctx context.Context, user *models.User, expectedVersion int64) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	edges, err := encodeEdges(user)
	if err != nil {
		return err
	}

	now := time.Now()
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET email = $1, name = $2, friends = $3, incoming_requests = $4, outgoing_requests = $5,
			liked_songs = $6, pair_revisions = $7, version = version + 1, updated_at = $8
		WHERE id = $9 AND version = $10`,
		user.Email(), user.Name(),
		edges[0], edges[1], edges[2], edges[3], edges[4],
		now, user.ID(), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", classify(err, "user "+user.Email()))
	}
	if tag.RowsAffected() == 0 {
		return casMiss(ctx, s.db, "users", "user", user.ID())
	}

	user.SetVersion(expectedVersion + 1)
	user.SetUpdatedAt(now)
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", classify(err, "user"))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return nil
}

func (s *UserStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM users ORDER BY sequence ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", classify(err, "user"))
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect user ids: %w", err)
	}
	return ids, nil
}

// encodeEdges returns friends, incoming, outgoing, liked songs and pair revisions as JSONB payloads.
func encodeEdges(user *models.User) ([5][]byte, error) {
	var out [5][]byte
	for i, v := range []any{
		user.Friends(),
		user.IncomingRequests(),
		user.OutgoingRequests(),
		user.LikedSongs(),
		user.PairRevisions(),
	} {
		data, err := jsonb(v)
		if err != nil {
			return out, fmt.Errorf("failed to encode user %s: %w", user.ID(), err)
		}
		out[i] = data
	}
	return out, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		id                                            string
		sequence                                      int
		email, name                                   string
		friends, incoming, outgoing, liked, revisions []byte
		version                                       int64
		createdAt, updatedAt                          time.Time
	)

	err := row.Scan(&id, &sequence, &email, &name, &friends, &incoming, &outgoing, &liked, &revisions, &version, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
		src []byte
		dst any
	}{
		{friends, &friendSet},
		{incoming, &incomingSet},
		{outgoing, &outgoingSet},
		{liked, &likedSet},
		{revisions, &revs},
	} {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
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
