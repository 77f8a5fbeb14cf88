package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/presence"
	"github.com/desertthunder/dtunes/internal/repositories"
	"github.com/desertthunder/dtunes/internal/repositories/postgres"
	"github.com/desertthunder/dtunes/internal/shared"
)

// Backend bundles the stores and presence sink every command runs against.
type Backend struct {
	Users     models.UserStore
	Playlists models.PlaylistStore
	Notifier  presence.Notifier
	closers   []func() error
}

// NewMemoryBackend returns a backend whose records live only as long as the process.
func NewMemoryBackend() *Backend {
	return &Backend{
		Users:     repositories.NewMemoryUserRepository(),
		Playlists: repositories.NewMemoryPlaylistRepository(),
		Notifier:  presence.Nop{},
	}
}

// OpenBackend connects the store named by database.driver and the presence sink, running migrations first.
func OpenBackend(ctx context.Context, cfg *shared.Config, logger *log.Logger) (*Backend, error) {
	var b *Backend

	switch cfg.Database.Driver {
	case "memory":
		b = NewMemoryBackend()
	case "sqlite":
		db, err := shared.OpenDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		b = &Backend{
			Users:     repositories.NewUserRepository(db),
			Playlists: repositories.NewPlaylistRepository(db),
			closers:   []func() error{db.Close},
		}
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MaxOpenConns))
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		b = &Backend{
			Users:     postgres.NewUserStore(pool),
			Playlists: postgres.NewPlaylistStore(pool),
			closers:   []func() error{func() error { pool.Close(); return nil }},
		}
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", shared.ErrInvalidConfig, cfg.Database.Driver)
	}

	if cfg.Presence.RedisURL == "" {
		b.Notifier = presence.NewLogNotifier(logger)
		return b, nil
	}

	client, err := presence.NewRedisClient(ctx, cfg.Presence.RedisURL)
	if err != nil {
		b.Close()
		return nil, err
	}
	async := presence.NewAsync(presence.NewRedisNotifier(client, cfg.Presence.ChannelPrefix), cfg.Presence.Timeout.Std(), logger)
	b.Notifier = async
	b.closers = append(b.closers, client.Close, func() error { async.Wait(); return nil })
	return b, nil
}

// Close releases resources in reverse order of acquisition.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}
