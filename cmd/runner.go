package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/playlists"
	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/desertthunder/dtunes/internal/social"
	"github.com/desertthunder/dtunes/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	logger  *log.Logger
	output  io.Writer
	palette *ui.Palette
	backend *Backend
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Logger  *log.Logger
	Output  io.Writer
	Backend *Backend // opened from Config on first use when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		logger:  opts.Logger,
		output:  opts.Output,
		palette: ui.Default,
		backend: opts.Backend,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, reconcileCommand, usersCommand, friendsCommand, likesCommand, playlistsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// LoadConfig is the root Before hook. A missing config file falls back to defaults unless --config was
// given explicitly.
func (r *Runner) LoadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")

	config, err := shared.LoadConfig(path)
	switch {
	case err == nil:
		r.config = config
	case errors.Is(err, shared.ErrMissingConfig) && !cmd.IsSet("config"):
		r.logger.Debug("config file not found, using defaults", "path", path)
	default:
		return ctx, err
	}

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("debug") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)
	return ctx, nil
}

// open returns the backend, connecting it on first use.
func (r *Runner) open(ctx context.Context) (*Backend, error) {
	if r.backend != nil {
		return r.backend, nil
	}

	b, err := OpenBackend(ctx, r.config, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", r.config.Database.Driver, err)
	}
	r.backend = b
	return b, nil
}

// Close releases the backend if one was opened.
func (r *Runner) Close() error {
	if r.backend == nil {
		return nil
	}
	return r.backend.Close()
}

func (r *Runner) machine(b *Backend) *social.Machine {
	return social.NewMachine(b.Users, social.Options{
		Policy:   r.config.Commit.Policy(),
		Notifier: b.Notifier,
		Logger:   r.logger,
	})
}

func (r *Runner) engine(b *Backend) *playlists.Engine {
	return playlists.NewEngine(b.Playlists, b.Users, playlists.Options{
		Policy:   r.config.Commit.Policy(),
		Notifier: b.Notifier,
		Logger:   r.logger,
	})
}

// resolveUser accepts a user id or an email address.
func resolveUser(ctx context.Context, users models.UserStore, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, fmt.Errorf("%w: user id or email", shared.ErrMissingArgument)
	case shared.IsValidID(ref):
		return users.Get(ctx, ref)
	case strings.Contains(ref, "@"):
		return users.FindByEmail(ctx, ref)
	default:
		return nil, fmt.Errorf("%w: %q is neither a user id nor an email", shared.ErrInvalidArgument, ref)
	}
}

// actor opens the backend and resolves the --as flag.
func (r *Runner) actor(ctx context.Context, cmd *cli.Command) (*Backend, string, error) {
	b, err := r.open(ctx)
	if err != nil {
		return nil, "", err
	}
	u, err := resolveUser(ctx, b.Users, cmd.String("as"))
	if err != nil {
		return nil, "", fmt.Errorf("--as: %w", err)
	}
	return b, u.ID(), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s\n", r.palette.Title(title))
}
