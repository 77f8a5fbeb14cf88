package repositories

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/shared"
)

// record is the set of methods the in-memory table needs from a model.
type record[T any] interface {
	models.Model
	Sequence() int
	SetID(string)
	SetSequence(int)
	SetVersion(int64)
	SetUpdatedAt(time.Time)
	Clone() T
}

// memoryTable holds clones of records so callers never share memory with the store.
type memoryTable[T record[T]] struct {
	mu   sync.RWMutex
	kind string
	rows map[string]T
	seq  int

	// duplicate reports a uniqueness clash between a stored row and a new one.
	duplicate func(stored, created T) bool
}

func newMemoryTable[T record[T]](kind string) *memoryTable[T] {
	return &memoryTable[T]{kind: kind, rows: make(map[string]T)}
}

func (m *memoryTable[T]) Create(ctx context.Context, model T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if model.ID() == "" {
		model.SetID(shared.GenerateID())
	}
	if _, exists := m.rows[model.ID()]; exists {
		return fmt.Errorf("%w: %s %s already exists", shared.ErrConflict, m.kind, model.ID())
	}
	if m.duplicate != nil {
		for _, stored := range m.rows {
			if m.duplicate(stored, model) {
				return fmt.Errorf("%w: %s already exists", shared.ErrConflict, m.kind)
			}
		}
	}

	m.seq++
	model.SetSequence(m.seq)
	model.SetVersion(1)

	if err := model.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	m.rows[model.ID()] = model.Clone()
	return nil
}

func (m *memoryTable[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.rows[id]
	if !ok {
		return zero, fmt.Errorf("%w: %s %s", shared.ErrNotFound, m.kind, id)
	}
	return stored.Clone(), nil
}

func (m *memoryTable[T]) ConditionalPut(ctx context.Context, model T, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := model.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.rows[model.ID()]
	if !ok {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, m.kind, model.ID())
	}
	if stored.Version() != expectedVersion {
		return fmt.Errorf("%w: %s %s", shared.ErrVersionConflict, m.kind, model.ID())
	}

	model.SetSequence(stored.Sequence())
	model.SetVersion(expectedVersion + 1)
	model.SetUpdatedAt(time.Now())
	m.rows[model.ID()] = model.Clone()
	return nil
}

func (m *memoryTable[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("%w: %s %s", shared.ErrNotFound, m.kind, id)
	}
	delete(m.rows, id)
	return nil
}

// filter returns clones of the records matching keep, ordered by sequence.
func (m *memoryTable[T]) filter(keep func(T) bool) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []T
	for _, row := range m.rows {
		if keep(row) {
			out = append(out, row.Clone())
		}
	}
	slices.SortFunc(out, func(a, b T) int { return cmp.Compare(a.Sequence(), b.Sequence()) })
	return out
}

// MemoryUserRepository implements [models.UserStore] in process memory.
type MemoryUserRepository struct {
	*memoryTable[*models.User]
}

// NewMemoryUserRepository creates an empty in-memory user store
func NewMemoryUserRepository() *MemoryUserRepository {
	t := newMemoryTable[*models.User]("user")
	t.duplicate = func(stored, created *models.User) bool {
		return strings.EqualFold(stored.Email(), created.Email())
	}
	return &MemoryUserRepository{t}
}

func (r *MemoryUserRepository) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users := r.filter(func(*models.User) bool { return true })
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID()
	}
	return ids, nil
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches := r.filter(func(u *models.User) bool { return strings.EqualFold(u.Email(), email) })
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: user with email %s", shared.ErrNotFound, email)
	}
	return matches[0], nil
}

// MemoryPlaylistRepository implements [models.PlaylistStore] in process memory.
type MemoryPlaylistRepository struct {
	*memoryTable[*models.Playlist]
}

// NewMemoryPlaylistRepository creates an empty in-memory playlist store
func NewMemoryPlaylistRepository() *MemoryPlaylistRepository {
	return &MemoryPlaylistRepository{newMemoryTable[*models.Playlist]("playlist")}
}

func (r *MemoryPlaylistRepository) FindBySharedLink(ctx context.Context, token string) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token != "" {
		matches := r.filter(func(p *models.Playlist) bool { return p.SharedLink() == token })
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return nil, fmt.Errorf("%w: share link", shared.ErrNotFound)
}

func (r *MemoryPlaylistRepository) ListPublic(ctx context.Context) ([]*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.filter(func(p *models.Playlist) bool { return p.Visibility() == models.VisibilityPublic })
	slices.Reverse(out)
	return out, nil
}

func (r *MemoryPlaylistRepository) ListForMember(ctx context.Context, userID string) ([]*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := r.filter(func(p *models.Playlist) bool { return p.IsCreator(userID) || p.Collaborators().Has(userID) })
	slices.Reverse(out)
	return out, nil
}

var (
	_ models.UserStore     = (*UserRepository)(nil)
	_ models.UserStore     = (*MemoryUserRepository)(nil)
	_ models.PlaylistStore = (*PlaylistRepository)(nil)
	_ models.PlaylistStore = (*MemoryPlaylistRepository)(nil)
)
