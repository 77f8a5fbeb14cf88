package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/dtunes/internal/social"
	"github.com/urfave/cli/v3"
)

// relationshipOp is a [social.Machine] transition as a method expression.
type relationshipOp func(m *social.Machine, ctx context.Context, actorID, peerID string) (*social.Pair, error)

var (
	sendRequest    relationshipOp = (*social.Machine).SendRequest
	cancelRequest  relationshipOp = (*social.Machine).CancelRequest
	acceptRequest  relationshipOp = (*social.Machine).AcceptRequest
	declineRequest relationshipOp = (*social.Machine).DeclineRequest
	removeFriend   relationshipOp = (*social.Machine).RemoveFriend
)

// transition adapts a relationship operation to a command taking the peer as its "user" argument.
func (r *Runner) transition(verb string, op relationshipOp) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		b, actorID, err := r.actor(ctx, cmd)
		if err != nil {
			return err
		}
		peer, err := resolveUser(ctx, b.Users, cmd.StringArg("user"))
		if err != nil {
			return err
		}

		pair, err := op(r.machine(b), ctx, actorID, peer.ID())
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("%s %s, now %s", verb, pair.Peer.Name(), pair.State())))
	}
}

// FriendsList prints the actor's friends.
func (r *Runner) FriendsList(ctx context.Context, cmd *cli.Command) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}
	friends, err := r.machine(b).Friends(ctx, actorID)
	if err != nil {
		return err
	}
	return r.renderUsers(cmd, "Friends", friends)
}

// FriendsRequests prints pending requests in both directions.
func (r *Runner) FriendsRequests(ctx context.Context, cmd *cli.Command) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}
	reqs, err := r.machine(b).Requests(ctx, actorID)
	if err != nil {
		return err
	}
	if err := r.renderUsers(cmd, "Incoming", reqs.Incoming); err != nil {
		return err
	}
	return r.renderUsers(cmd, "Outgoing", reqs.Outgoing)
}

// LikesToggle likes or unlikes a song.
func (r *Runner) LikesToggle(ctx context.Context, cmd *cli.Command) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}
	song := cmd.StringArg("song")
	liked, err := r.machine(b).ToggleLike(ctx, actorID, song)
	if err != nil {
		return err
	}
	if liked {
		return r.writePlain("%s\n", r.palette.OK("liked "+song))
	}
	return r.writePlain("%s\n", r.palette.OK("unliked "+song))
}

// LikesList prints the actor's liked songs.
func (r *Runner) LikesList(ctx context.Context, cmd *cli.Command) error {
	b, actorID, err := r.actor(ctx, cmd)
	if err != nil {
		return err
	}
	songs, err := r.machine(b).LikedSongs(ctx, actorID)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"likedSongs": songs}, true)
	}

	r.writePlainHeader(fmt.Sprintf("Liked songs (%d)", len(songs)))
	for _, s := range songs {
		r.writePlain("  %s\n", s)
	}
	return nil
}
