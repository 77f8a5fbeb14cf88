package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/presence"
	"github.com/desertthunder/dtunes/internal/shared"
)

// Options configures a [Machine]. Zero values select defaults.
type Options struct {
	Policy   shared.RetryPolicy
	Notifier presence.Notifier
	Logger   *log.Logger
}

// Machine runs relationship transitions and song likes for the users in a [models.UserStore].
type Machine struct {
	users      models.UserStore
	policy     shared.RetryPolicy
	notifier   presence.Notifier
	logger     *log.Logger
	reconciler *Reconciler
}

// NewMachine creates a [Machine] over users.
func NewMachine(users models.UserStore, opts Options) *Machine {
	if opts.Policy == (shared.RetryPolicy{}) {
		opts.Policy = shared.DefaultRetryPolicy()
	}
	if opts.Notifier == nil {
		opts.Notifier = presence.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Machine{
		users:      users,
		policy:     opts.Policy,
		notifier:   opts.Notifier,
		logger:     shared.WithLogger(opts.Logger, "component", "social"),
		reconciler: NewReconciler(users, opts.Policy, opts.Logger),
	}
}

// Reconciler returns the reconciler the machine repairs pairs with.
func (m *Machine) Reconciler() *Reconciler {
	return m.reconciler
}

// SendRequest moves (actor, target) from unrelated to pending, with actor as the sender.
func (m *Machine) SendRequest(ctx context.Context, actorID, targetID string) (*Pair, error) {
	return m.pairedCommit(ctx, actorID, targetID, sendRule)
}

// CancelRequest withdraws the request actor sent to target.
func (m *Machine) CancelRequest(ctx context.Context, actorID, targetID string) (*Pair, error) {
	return m.pairedCommit(ctx, actorID, targetID, cancelRule)
}

// AcceptRequest makes actor and requester friends.
func (m *Machine) AcceptRequest(ctx context.Context, actorID, requesterID string) (*Pair, error) {
	return m.pairedCommit(ctx, actorID, requesterID, acceptRule)
}

// DeclineRequest rejects the request requester sent to actor.
func (m *Machine) DeclineRequest(ctx context.Context, actorID, requesterID string) (*Pair, error) {
	return m.pairedCommit(ctx, actorID, requesterID, declineRule)
}

// RemoveFriend ends the friendship between actor and peer.
func (m *Machine) RemoveFriend(ctx context.Context, actorID, peerID string) (*Pair, error) {
	return m.pairedCommit(ctx, actorID, peerID, removeRule)
}

// Requests lists the users with a pending request to and from actor.
type Requests struct {
	Incoming []*models.User
	Outgoing []*models.User
}

// Friends returns actor's friends, repairing any asymmetric pair it reads.
func (m *Machine) Friends(ctx context.Context, actorID string) ([]*models.User, error) {
	peers, err := m.settledPeers(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return peers[Friends], nil
}

// Requests returns actor's pending requests in both directions, repairing any asymmetric pair it reads.
func (m *Machine) Requests(ctx context.Context, actorID string) (*Requests, error) {
	peers, err := m.settledPeers(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return &Requests{Incoming: peers[PendingIncoming], Outgoing: peers[PendingOutgoing]}, nil
}

// settledPeers groups actor's peers by relationship state. Asymmetric pairs are repaired on read and
// classified by their repaired state; peers that no longer exist are dropped.
func (m *Machine) settledPeers(ctx context.Context, actorID string) (map[State][]*models.User, error) {
	actor, err := m.load(ctx, actorID)
	if err != nil {
		return nil, unwrapRetryable(err)
	}

	out := make(map[State][]*models.User)
	for _, peerID := range actor.Peers().Slice() {
		peer, err := m.load(ctx, peerID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, unwrapRetryable(err)
		}

		if peer != nil && StateOf(actor, peer) != Inconsistent {
			out[View(actor, peerID)] = append(out[View(actor, peerID)], peer)
			continue
		}

		if _, err := m.reconciler.RepairPair(ctx, actorID, peerID); err != nil {
			m.logger.Warn("read repair failed", "actor", actorID, "peer", peerID, "error", err)
			continue
		}
		if peer == nil {
			continue
		}

		actor, err = m.load(ctx, actorID)
		if err != nil {
			return nil, unwrapRetryable(err)
		}
		if peer, err = m.load(ctx, peerID); err == nil {
			if s := StateOf(actor, peer); s != Unrelated && s != Inconsistent {
				out[s] = append(out[s], peer)
			}
		}
	}
	return out, nil
}

func (m *Machine) notify(ctx context.Context, userID string, event presence.Event) {
	if err := m.notifier.Notify(ctx, userID, event); err != nil {
		m.logger.Warn("presence notification failed", "to", userID, "type", event.Type, "error", err)
	}
}

// unwrapRetryable turns a storage failure on a read-only path into [shared.ErrUnavailable].
func unwrapRetryable(err error) error {
	if errors.Is(err, shared.ErrRetryable) {
		return fmt.Errorf("%w: %v", shared.ErrUnavailable, err)
	}
	return err
}
