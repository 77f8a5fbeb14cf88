// package models defines the data model for the dtunes social and playlist service
package models

import (
	"context"
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations are [User] and [Playlist].
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	Version() int64       // Version returns the optimistic concurrency counter last read from or written to storage
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the keyed-record persistence contract with optimistic versioning.
//
// Implementations never lock across calls: every mutation after Create goes through ConditionalPut, which
// succeeds only if the stored version still equals expectedVersion.
type Repository[T Model] interface {
	// Create assigns an ID (when empty), sets version 1 and inserts the model.
	Create(ctx context.Context, model T) error
	// Get retrieves a model by its ID, wrapping [shared.ErrNotFound] when absent.
	Get(ctx context.Context, id string) (T, error)
	// ConditionalPut replaces the stored record when its version equals expectedVersion and advances
	// the model's version by one. A stale version yields [shared.ErrVersionConflict].
	ConditionalPut(ctx context.Context, model T, expectedVersion int64) error
	// Delete hard-deletes a model by its ID.
	Delete(ctx context.Context, id string) error
}

// UserStore is the [Repository] for [User] records plus the lookups the services need.
type UserStore interface {
	Repository[*User]
	ListIDs(ctx context.Context) ([]string, error)                // ListIDs returns every user id in creation order
	FindByEmail(ctx context.Context, email string) (*User, error) // FindByEmail looks a user up by unique email
}

// PlaylistStore is the [Repository] for [Playlist] records plus the lookups the services need.
type PlaylistStore interface {
	Repository[*Playlist]
	FindBySharedLink(ctx context.Context, token string) (*Playlist, error) // FindBySharedLink resolves a share token
	ListPublic(ctx context.Context) ([]*Playlist, error)                    // ListPublic returns public playlists, newest first
	ListForMember(ctx context.Context, userID string) ([]*Playlist, error)  // ListForMember returns playlists created by or shared with userID
}
