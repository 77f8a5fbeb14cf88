package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/dtunes/internal/formatter"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/shared"
	"github.com/urfave/cli/v3"
)

// UsersAdd registers a user.
func (r *Runner) UsersAdd(ctx context.Context, cmd *cli.Command) error {
	b, err := r.open(ctx)
	if err != nil {
		return err
	}

	u := models.NewUser(cmd.String("email"), cmd.String("name"))
	if err := u.Validate(); err != nil {
		return err
	}
	if err := b.Users.Create(ctx, u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Info("user created", "id", u.ID(), "email", u.Email())
	if cmd.Bool("json") {
		return r.writeJSON(u.View(), true)
	}
	return r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("%s <%s> %s", u.Name(), u.Email(), u.ID())))
}

// UsersShow prints one user with their edge sets.
func (r *Runner) UsersShow(ctx context.Context, cmd *cli.Command) error {
	b, err := r.open(ctx)
	if err != nil {
		return err
	}
	u, err := resolveUser(ctx, b.Users, cmd.StringArg("user"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(u.View(), true)
	}

	r.writePlainHeader(fmt.Sprintf("%s <%s>", u.Name(), u.Email()))
	r.writePlain("ID: %s\n", u.ID())
	r.writePlain("Friends: %d\n", u.Friends().Len())
	r.writePlain("Incoming requests: %d\n", u.IncomingRequests().Len())
	r.writePlain("Outgoing requests: %d\n", u.OutgoingRequests().Len())
	r.writePlain("Liked songs: %d\n", u.LikedSongs().Len())
	return nil
}

// UsersList prints every registered user.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	b, err := r.open(ctx)
	if err != nil {
		return err
	}

	ids, err := b.Users.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		u, err := b.Users.Get(ctx, id)
		if err != nil {
			return shared.StorageError(err)
		}
		users = append(users, u)
	}
	return r.renderUsers(cmd, "Users", users)
}

// renderUsers prints users as a table, or through the formatter when --format is set.
func (r *Runner) renderUsers(cmd *cli.Command, title string, users []*models.User) error {
	if cmd.IsSet("format") {
		f, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		return formatter.RenderUsers(r.output, f, title, users)
	}

	rows := make([][]string, len(users))
	for i, u := range users {
		rows[i] = []string{u.ID(), u.Name(), u.Email()}
	}
	r.writePlainHeader(fmt.Sprintf("%s (%d)", title, len(users)))
	return r.writePlain("%s\n", r.palette.Table([]string{"ID", "Name", "Email"}, rows))
}
