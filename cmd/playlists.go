package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/dtunes/internal/formatter"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/playlists"
	"github.com/desertthunder/dtunes/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsCreate creates a playlist owned by the actor.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}

	p, err := r.engine(b).Create(ctx, actorID, cmd.StringArg("name"), cmd.String("description"),
		models.Visibility(cmd.String("visibility")))
	if err != nil {
		return err
	}
	return r.printPlaylist(cmd, p)
}

// PlaylistsList prints the actor's playlists, or every public one with --public.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	var (
		b   *Backend
		ps  []*models.Playlist
		err error
	)
	if cmd.Bool("public") {
		if b, err = r.open(ctx); err != nil {
			return err
		}
		ps, err = r.engine(b).ListPublic(ctx)
	} else {
		var actorID string
		if b, actorID, err = r.actor(ctx, cmd); err != nil {
			return err
		}
		ps, err = r.engine(b).ListForUser(ctx, actorID)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]models.PlaylistView, len(ps))
		for i, p := range ps {
			views[i] = p.View()
		}
		return r.writeJSON(map[string]any{"playlists": views}, true)
	}

	rows := make([][]string, len(ps))
	for i, p := range ps {
		rows[i] = []string{p.ID(), p.Name(), string(p.Visibility()), fmt.Sprint(len(p.Songs())), fmt.Sprint(p.Collaborators().Len())}
	}
	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(ps)))
	return r.writePlain("%s\n", r.palette.Table([]string{"ID", "Name", "Visibility", "Songs", "Collaborators"}, rows))
}

// PlaylistsShow prints one playlist in the requested --format.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}
	p, err := r.engine(b).Get(ctx, actorID, cmd.StringArg("playlist"))
	if err != nil {
		return err
	}
	return r.printPlaylist(cmd, p)
}

// PlaylistsVisibility moves a playlist to a new visibility.
func (r *Runner) PlaylistsVisibility(ctx context.Context, cmd *cli.Command) error {
	return r.mutatePlaylist(ctx, cmd, func(ctx context.Context, e *playlists.Engine, actorID, id string) (*models.Playlist, error) {
		return e.Update(ctx, actorID, id, playlists.Update{Visibility: models.Visibility(cmd.StringArg("visibility"))})
	})
}

// PlaylistsRename renames a playlist.
func (r *Runner) PlaylistsRename(ctx context.Context, cmd *cli.Command) error {
	return r.mutatePlaylist(ctx, cmd, func(ctx context.Context, e *playlists.Engine, actorID, id string) (*models.Playlist, error) {
		return e.Rename(ctx, actorID, id, cmd.StringArg("name"))
	})
}

// PlaylistsLink issues a fresh share token, invalidating the old one.
func (r *Runner) PlaylistsLink(ctx context.Context, cmd *cli.Command) error {
	return r.mutatePlaylist(ctx, cmd, func(ctx context.Context, e *playlists.Engine, actorID, id string) (*models.Playlist, error) {
		return e.RegenerateSharedLink(ctx, actorID, id)
	})
}

// PlaylistsDuplicate copies a readable playlist into a new private playlist owned by the actor.
func (r *Runner) PlaylistsDuplicate(ctx context.Context, cmd *cli.Command) error {
	return r.mutatePlaylist(ctx, cmd, func(ctx context.Context, e *playlists.Engine, actorID, id string) (*models.Playlist, error) {
		return e.Duplicate(ctx, actorID, id)
	})
}

// PlaylistsDelete deletes a playlist the actor created.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}
	id := cmd.StringArg("playlist")
	if err := r.engine(b).Delete(ctx, actorID, id); err != nil {
		return err
	}
	return r.writePlain("%s\n", r.palette.OK("deleted "+id))
}

// PlaylistsSong adds or removes a song, depending on the subcommand name.
func (r *Runner) PlaylistsSong(ctx context.Context, cmd *cli.Command) error {
	song := cmd.StringArg("song")
	return r.mutatePlaylist(ctx, cmd, func(ctx context.Context, e *playlists.Engine, actorID, id string) (*models.Playlist, error) {
		if cmd.Name == "remove" {
			return e.RemoveSong(ctx, actorID, id, song)
		}
		return e.AddSong(ctx, actorID, id, song)
	})
}

// PlaylistsCollaborator adds or removes a collaborator, given as a user id or email.
func (r *Runner) PlaylistsCollaborator(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("user")
	return r.mutatePlaylist(ctx, cmd, func(ctx context.Context, e *playlists.Engine, actorID, id string) (*models.Playlist, error) {
		if cmd.Name == "remove" {
			u, err := resolveUser(ctx, r.backend.Users, ref)
			if err != nil {
				return nil, err
			}
			return e.RemoveCollaborator(ctx, actorID, id, u.ID())
		}
		if strings.Contains(ref, "@") {
			return e.AddCollaboratorByEmail(ctx, actorID, id, ref)
		}
		return e.AddCollaborator(ctx, actorID, id, ref)
	})
}

// PlaylistsExport writes every playlist the actor can access to disk.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ListPlaylists:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ExportPlaylists:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := tasks.NewExporter(r.engine(b)).Export(ctx, progressCh, actorID, tasks.ExportOpts{
		Format:    format,
		OutputDir: cmd.String("output"),
		Workers:   int(cmd.Int("workers")),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlainHeader("Export Complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		r.writePlain("%s\n", r.palette.Warn(fmt.Sprintf("Failed to export %d playlists:", result.FailedExports)))
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s: %v\n", res.PlaylistName, res.Error)
			}
		}
	}
	return nil
}

// mutatePlaylist runs op on the "playlist" argument as the actor and prints the result.
func (r *Runner) mutatePlaylist(ctx context.Context, cmd *cli.Command, op func(ctx context.Context, e *playlists.Engine, actorID, id string) (*models.Playlist, error)) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}
	p, err := op(ctx, r.engine(b), actorID, cmd.StringArg("playlist"))
	if err != nil {
		return err
	}
	return r.printPlaylist(cmd, p)
}

// printPlaylist renders p through the formatter. Without --format the summary is text.
func (r *Runner) printPlaylist(cmd *cli.Command, p *models.Playlist) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if err := formatter.RenderPlaylist(r.output, f, p); err != nil {
		return err
	}
	if f != formatter.Text {
		return nil
	}

	r.writePlain("\n%s\n", r.palette.Help("id "+p.ID()))
	if link := p.SharedLink(); link != "" {
		r.writePlain("%s\n", r.palette.Help("share link "+link))
	}
	return nil
}
