package playlists

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/presence"
	"github.com/desertthunder/dtunes/internal/shared"
)

// Options configures an [Engine]. Zero values select defaults.
type Options struct {
	Tokens   shared.TokenGenerator
	Policy   shared.RetryPolicy
	Notifier presence.Notifier
	Logger   *log.Logger
}

// Engine owns every write to playlist records.
type Engine struct {
	playlists models.PlaylistStore
	users     models.UserStore
	tokens    shared.TokenGenerator
	policy    shared.RetryPolicy
	notifier  presence.Notifier
	logger    *log.Logger
}

// NewEngine creates an [Engine]. users resolves collaborators and creators.
func NewEngine(playlists models.PlaylistStore, users models.UserStore, opts Options) *Engine {
	if opts.Tokens == nil {
		opts.Tokens = shared.RandomTokens{}
	}
	if opts.Policy == (shared.RetryPolicy{}) {
		opts.Policy = shared.DefaultRetryPolicy()
	}
	if opts.Notifier == nil {
		opts.Notifier = presence.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Engine{
		playlists: playlists,
		users:     users,
		tokens:    opts.Tokens,
		policy:    opts.Policy,
		notifier:  opts.Notifier,
		logger:    shared.WithLogger(opts.Logger, "component", "playlists"),
	}
}

// Create stores a new playlist owned by actor. An empty visibility means private. Private and group
// playlists start with a share link; public playlists never carry one.
func (e *Engine) Create(ctx context.Context, actorID, name, description string, visibility models.Visibility) (*models.Playlist, error) {
	visibility, err := models.ParseVisibility(string(visibility))
	if err != nil {
		return nil, err
	}
	return e.insert(ctx, actorID, models.NewPlaylist(actorID, name, description, visibility))
}

// insert stores a fully built playlist in one write, issuing its share link first unless it is public.
func (e *Engine) insert(ctx context.Context, actorID string, p *models.Playlist) (*models.Playlist, error) {
	if _, err := e.user(ctx, actorID); err != nil {
		return nil, err
	}

	if p.Visibility() != models.VisibilityPublic {
		p.SetSharedLink(e.tokens.NewOpaqueToken())
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	cctx, cancel := e.policy.WithOpTimeout(ctx)
	defer cancel()
	if err := e.playlists.Create(cctx, p); err != nil {
		return nil, unavailable(shared.StorageError(err))
	}

	e.logger.Debug("playlist created", "id", p.ID(), "creator", actorID, "visibility", p.Visibility(), "songs", len(p.Songs()))
	return p, nil
}

// Get returns a playlist actor may read: public ones, and ones actor created or collaborates on.
func (e *Engine) Get(ctx context.Context, actorID, id string) (*models.Playlist, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return nil, unavailable(err)
	}
	if !p.CanRead(actorID) {
		return nil, fmt.Errorf("%w: playlist %s is not shared with you", shared.ErrForbidden, id)
	}
	return p, nil
}

// GetBySharedLink resolves a share token. Public playlists have no token and cannot be found this way.
func (e *Engine) GetBySharedLink(ctx context.Context, token string) (*models.Playlist, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: share token is required", shared.ErrInvalidOperation)
	}

	ctx, cancel := e.policy.WithOpTimeout(ctx)
	defer cancel()

	p, err := e.playlists.FindBySharedLink(ctx, token)
	if err != nil {
		return nil, unavailable(shared.StorageError(err))
	}
	return p, nil
}

// ListForUser returns the playlists actor created or collaborates on.
func (e *Engine) ListForUser(ctx context.Context, actorID string) ([]*models.Playlist, error) {
	if !shared.IsValidID(actorID) {
		return nil, fmt.Errorf("%w: malformed user id %q", shared.ErrInvalidOperation, actorID)
	}

	ctx, cancel := e.policy.WithOpTimeout(ctx)
	defer cancel()

	ps, err := e.playlists.ListForMember(ctx, actorID)
	return ps, unavailable(shared.StorageError(err))
}

// ListPublic returns every public playlist, newest first.
func (e *Engine) ListPublic(ctx context.Context) ([]*models.Playlist, error) {
	ctx, cancel := e.policy.WithOpTimeout(ctx)
	defer cancel()

	ps, err := e.playlists.ListPublic(ctx)
	return ps, unavailable(shared.StorageError(err))
}

// Duplicate copies a playlist actor can read into a new private playlist owned by actor, named
// "<name> (Copy)", with the same songs and a fresh share link.
func (e *Engine) Duplicate(ctx context.Context, actorID, id string) (*models.Playlist, error) {
	src, err := e.Get(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	name := src.Name() + " (Copy)"
	if n := []rune(name); len(n) > models.MaxPlaylistNameLength {
		name = string(n[:models.MaxPlaylistNameLength])
	}

	p := models.NewPlaylist(actorID, name, src.Description(), models.VisibilityPrivate)
	p.SetSongs(src.Songs())
	return e.insert(ctx, actorID, p)
}

// Delete removes a playlist. Only its creator may delete it.
func (e *Engine) Delete(ctx context.Context, actorID, id string) error {
	return shared.Retry(ctx, e.policy, func(ctx context.Context) error {
		p, err := e.load(ctx, id)
		if err != nil {
			return err
		}
		if !p.IsCreator(actorID) {
			return fmt.Errorf("%w: only the creator can delete playlist %s", shared.ErrForbidden, id)
		}

		ctx, cancel := e.policy.WithOpTimeout(ctx)
		defer cancel()
		if err := shared.StorageError(e.playlists.Delete(ctx, id)); err != nil {
			return err
		}

		e.logger.Info("playlist deleted", "id", id, "creator", actorID)
		return nil
	})
}

// mutate re-reads the playlist, lets change edit a clone and writes the clone back with a version check.
// change reports false when the stored record already has the desired shape, in which case nothing is
// written and the stored record is returned.
func (e *Engine) mutate(ctx context.Context, actorID, id, op string, change func(next *models.Playlist) (bool, error)) (*models.Playlist, error) {
	if !shared.IsValidID(actorID) {
		return nil, fmt.Errorf("%w: malformed user id %q", shared.ErrInvalidOperation, actorID)
	}

	var result *models.Playlist
	err := shared.Retry(ctx, e.policy, func(ctx context.Context) error {
		current, err := e.load(ctx, id)
		if err != nil {
			return err
		}

		next := current.Clone()
		changed, err := change(next)
		if err != nil {
			return err
		}
		if !changed {
			result = current
			return nil
		}
		if err := next.Validate(); err != nil {
			return err
		}

		if err := e.put(ctx, next, current.Version()); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		e.logger.Debug("playlist change rejected", "op", op, "id", id, "actor", actorID, "error", err)
		return nil, err
	}
	return result, nil
}

// audience returns the creator and collaborators of p, minus actor.
func audience(p *models.Playlist, actorID string) []string {
	ids := append([]string{p.CreatorID()}, p.Collaborators().Slice()...)
	return slices.DeleteFunc(ids, func(id string) bool { return id == actorID })
}

func (e *Engine) notify(ctx context.Context, p *models.Playlist, actorID string, t presence.EventType) {
	for _, userID := range audience(p, actorID) {
		if err := e.notifier.Notify(ctx, userID, presence.NewEvent(t, actorID, p.ID())); err != nil {
			e.logger.Warn("presence notification failed", "to", userID, "type", t, "error", err)
		}
	}
}

func (e *Engine) load(ctx context.Context, id string) (*models.Playlist, error) {
	if !shared.IsValidID(id) {
		return nil, fmt.Errorf("%w: malformed playlist id %q", shared.ErrInvalidOperation, id)
	}

	ctx, cancel := e.policy.WithOpTimeout(ctx)
	defer cancel()

	p, err := e.playlists.Get(ctx, id)
	return p, shared.StorageError(err)
}

func (e *Engine) put(ctx context.Context, p *models.Playlist, expected int64) error {
	ctx, cancel := e.policy.WithOpTimeout(ctx)
	defer cancel()

	return shared.StorageError(e.playlists.ConditionalPut(ctx, p, expected))
}

func (e *Engine) user(ctx context.Context, id string) (*models.User, error) {
	if !shared.IsValidID(id) {
		return nil, fmt.Errorf("%w: malformed user id %q", shared.ErrInvalidOperation, id)
	}

	ctx, cancel := e.policy.WithOpTimeout(ctx)
	defer cancel()

	u, err := e.users.Get(ctx, id)
	return u, unavailable(shared.StorageError(err))
}

// unavailable reports a storage failure on a path that does not retry as [shared.ErrUnavailable].
func unavailable(err error) error {
	if errors.Is(err, shared.ErrRetryable) {
		return fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
	return err
}
