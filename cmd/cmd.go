// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

// asFlag names the user a command acts for, by id or email.
func asFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "as",
		Aliases:  []string{"u"},
		Usage:    "Acting user (id or email)",
		Required: true,
		Sources:  cli.EnvVars("DTUNES_USER"),
	}
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown, csv or json",
		Value:   value,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func playlistArg() cli.Argument {
	return &cli.StringArg{Name: "playlist", UsageText: "playlist id"}
}

func userArg() cli.Argument {
	return &cli.StringArg{Name: "user", UsageText: "user id or email"}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Write config.toml if missing, then create the schema",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Revert the newest sqlite migration",
				Action: r.RollbackDatabase,
			},
		},
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the background reconciliation sweep",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override server.port",
			},
		},
		Action: r.Serve,
	}
}

// reconcileCommand repairs half-applied relationship pairs.
func reconcileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Repair relationship pairs whose two records disagree",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep sweeping every reconcile.interval",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Override reconcile.workers",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Override reconcile.rate_limit (users per second)",
			},
		},
		Action: r.Reconcile,
	}
}

// usersCommand manages user records.
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Manage users",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Unique email address", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
					jsonFlag(),
				},
				Action: r.UsersAdd,
			},
			{
				Name:      "show",
				Usage:     "Show a user",
				Arguments: []cli.Argument{userArg()},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.UsersShow,
			},
			{
				Name:   "list",
				Usage:  "List every user",
				Flags:  []cli.Flag{formatFlag("")},
				Action: r.UsersList,
			},
			{
				Name:      "token",
				Usage:     "Sign a bearer token for a user",
				Arguments: []cli.Argument{userArg()},
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 24 * time.Hour},
				},
				Action: r.IssueToken,
			},
		},
	}
}

// friendsCommand runs relationship transitions.
func friendsCommand(r *Runner) *cli.Command {
	transition := func(name, usage, verb string, op relationshipOp) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			Arguments: []cli.Argument{userArg()},
			Flags:     []cli.Flag{asFlag()},
			Action:    r.transition(verb, op),
		}
	}

	return &cli.Command{
		Name:  "friends",
		Usage: "Friend requests & friendships",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List friends",
				Flags:  []cli.Flag{asFlag(), formatFlag("")},
				Action: r.FriendsList,
			},
			{
				Name:   "requests",
				Usage:  "List pending requests",
				Flags:  []cli.Flag{asFlag(), formatFlag("")},
				Action: r.FriendsRequests,
			},
			transition("send", "Send a friend request", "requested", sendRequest),
			transition("cancel", "Cancel a sent request", "cancelled request to", cancelRequest),
			transition("accept", "Accept a received request", "accepted", acceptRequest),
			transition("decline", "Decline a received request", "declined", declineRequest),
			transition("remove", "Remove a friend", "removed", removeFriend),
		},
	}
}

// likesCommand toggles and lists liked songs.
func likesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "likes",
		Usage: "Liked songs",
		Commands: []*cli.Command{
			{
				Name:      "toggle",
				Usage:     "Like a song, or unlike it if already liked",
				Arguments: []cli.Argument{&cli.StringArg{Name: "song"}},
				Flags:     []cli.Flag{asFlag()},
				Action:    r.LikesToggle,
			},
			{
				Name:   "list",
				Usage:  "List liked songs",
				Flags:  []cli.Flag{asFlag(), jsonFlag()},
				Action: r.LikesList,
			},
		},
	}
}

// playlistsCommand handles playlist operations
func playlistsCommand(r *Runner) *cli.Command {
	mutation := func(name, usage string, args []cli.Argument, action cli.ActionFunc) *cli.Command {
		return &cli.Command{
			Name:      name,
			Usage:     usage,
			Arguments: args,
			Flags:     []cli.Flag{asFlag(), formatFlag("")},
			Action:    action,
		}
	}

	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					asFlag(),
					formatFlag(""),
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
					&cli.StringFlag{Name: "visibility", Usage: "private, group or public", Value: "private"},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:  "list",
				Usage: "List your playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "as", Aliases: []string{"u"}, Usage: "Acting user (id or email)", Sources: cli.EnvVars("DTUNES_USER")},
					&cli.BoolFlag{Name: "public", Usage: "List public playlists instead"},
					jsonFlag(),
				},
				Action: r.PlaylistsList,
			},
			mutation("show", "Show a playlist", []cli.Argument{playlistArg()}, r.PlaylistsShow),
			mutation("visibility", "Change visibility",
				[]cli.Argument{playlistArg(), &cli.StringArg{Name: "visibility"}}, r.PlaylistsVisibility),
			mutation("rename", "Rename a playlist",
				[]cli.Argument{playlistArg(), &cli.StringArg{Name: "name"}}, r.PlaylistsRename),
			mutation("link", "Issue a new share link", []cli.Argument{playlistArg()}, r.PlaylistsLink),
			mutation("duplicate", "Copy a playlist into a new private one", []cli.Argument{playlistArg()}, r.PlaylistsDuplicate),
			{
				Name:      "delete",
				Usage:     "Delete a playlist you created",
				Arguments: []cli.Argument{playlistArg()},
				Flags:     []cli.Flag{asFlag()},
				Action:    r.PlaylistsDelete,
			},
			{
				Name:  "song",
				Usage: "Add or remove songs",
				Commands: []*cli.Command{
					mutation("add", "Append a song",
						[]cli.Argument{playlistArg(), &cli.StringArg{Name: "song"}}, r.PlaylistsSong),
					mutation("remove", "Remove a song",
						[]cli.Argument{playlistArg(), &cli.StringArg{Name: "song"}}, r.PlaylistsSong),
				},
			},
			{
				Name:  "collaborator",
				Usage: "Add or remove collaborators",
				Commands: []*cli.Command{
					mutation("add", "Add a collaborator",
						[]cli.Argument{playlistArg(), userArg()}, r.PlaylistsCollaborator),
					mutation("remove", "Remove a collaborator",
						[]cli.Argument{playlistArg(), userArg()}, r.PlaylistsCollaborator),
				},
			},
			{
				Name:  "export",
				Usage: "Export every playlist you can access",
				Flags: []cli.Flag{
					asFlag(),
					formatFlag("json"),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory (default: dtunes_export_{epoch})"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent workers", Value: 4},
				},
				Action: r.PlaylistsExport,
			},
		},
	}
}
