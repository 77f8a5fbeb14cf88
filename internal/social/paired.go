package social

import (
	"context"
	"fmt"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/presence"
	"github.com/desertthunder/dtunes/internal/shared"
)

// rule is one relationship transition: the state the pair must be in from the actor's side, the state it
// moves to, and the event delivered to the peer.
type rule struct {
	op    string
	from  State
	to    State
	event presence.EventType
}

var (
	sendRule    = rule{"send request", Unrelated, PendingOutgoing, presence.FriendRequestReceived}
	cancelRule  = rule{"cancel request", PendingOutgoing, Unrelated, presence.FriendRequestCancelled}
	acceptRule  = rule{"accept request", PendingIncoming, Friends, presence.FriendRequestAccepted}
	declineRule = rule{"decline request", PendingIncoming, Unrelated, presence.FriendRequestDeclined}
	removeRule  = rule{"remove friend", Friends, Unrelated, presence.FriendRemoved}
)

// Pair holds both records as committed by a transition.
type Pair struct {
	Actor *models.User
	Peer  *models.User
}

// State returns the pair's state from the actor's side.
func (p *Pair) State() State {
	return StateOf(p.Actor, p.Peer)
}

func conflict(r rule, state State) error {
	switch {
	case r.from == Unrelated && state == Friends:
		return fmt.Errorf("%w: %s: already friends", shared.ErrConflict, r.op)
	case r.from == Unrelated:
		return fmt.Errorf("%w: %s: a request is already pending", shared.ErrConflict, r.op)
	default:
		return fmt.Errorf("%w: %s requires %s, pair is %s", shared.ErrConflict, r.op, r.from, state)
	}
}

// pairedCommit applies r to the pair (actorID, peerID).
//
// Each attempt re-reads both records and re-checks the precondition against both views. The actor's record
// is written first; if the peer's write then fails, the pair is half-applied: the failure is logged, a repair
// is attempted and the attempt is replayed. A replay that finds the pair already at r.to with the revision
// this call wrote reports success instead of re-applying.
func (m *Machine) pairedCommit(ctx context.Context, actorID, peerID string, r rule) (*Pair, error) {
	if err := validatePair(actorID, peerID); err != nil {
		return nil, err
	}

	logger := shared.WithLogger(m.logger, "op", r.op, "actor", actorID, "peer", peerID)

	var (
		result *Pair
		landed int64
	)
	err := shared.Retry(ctx, m.policy, func(ctx context.Context) error {
		actor, peer, err := m.loadPair(ctx, actorID, peerID)
		if err != nil {
			return err
		}

		state := StateOf(actor, peer)
		if landed != 0 && state == r.to && actor.PairRevision(peerID) == landed {
			result = &Pair{Actor: actor, Peer: peer}
			return nil
		}

		if state == Inconsistent {
			if _, err := m.reconciler.repair(ctx, actorID, peerID, actor, peer); err != nil {
				return err
			}
			return fmt.Errorf("%w: pair repaired before %s", shared.ErrRetryable, r.op)
		}

		if state != r.from {
			return conflict(r, state)
		}

		nextActor, nextPeer := actor.Clone(), peer.Clone()
		setView(nextActor, peerID, r.to)
		setView(nextPeer, actorID, Mirror(r.to))
		rev := pairRevision(actor, peer) + 1
		stamp(nextActor, nextPeer, rev)

		if err := m.put(ctx, nextActor, actor.Version()); err != nil {
			return err
		}

		if err := m.put(ctx, nextPeer, peer.Version()); err != nil {
			landed = rev
			logger.Error("paired commit half-applied", "revision", rev, "error", err)
			if _, rerr := m.reconciler.repairOnce(ctx, actorID, peerID); rerr != nil {
				logger.Warn("immediate repair failed, leaving pair to the sweep", "error", rerr)
			}
			return fmt.Errorf("%w: %s half-applied: %w", shared.ErrRetryable, r.op, err)
		}

		result = &Pair{Actor: nextActor, Peer: nextPeer}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("relationship committed", "state", r.to)
	m.notify(ctx, peerID, presence.NewEvent(r.event, actorID, peerID))
	return result, nil
}

func (m *Machine) loadPair(ctx context.Context, actorID, peerID string) (*models.User, *models.User, error) {
	actor, err := m.load(ctx, actorID)
	if err != nil {
		return nil, nil, err
	}
	peer, err := m.load(ctx, peerID)
	if err != nil {
		return nil, nil, err
	}
	return actor, peer, nil
}

func (m *Machine) load(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := m.policy.WithOpTimeout(ctx)
	defer cancel()

	u, err := m.users.Get(ctx, id)
	return u, shared.StorageError(err)
}

func (m *Machine) put(ctx context.Context, u *models.User, expected int64) error {
	ctx, cancel := m.policy.WithOpTimeout(ctx)
	defer cancel()

	return shared.StorageError(m.users.ConditionalPut(ctx, u, expected))
}

func validatePair(actorID, peerID string) error {
	for _, id := range []string{actorID, peerID} {
		if !shared.IsValidID(id) {
			return fmt.Errorf("%w: malformed user id %q", shared.ErrInvalidOperation, id)
		}
	}
	if actorID == peerID {
		return fmt.Errorf("%w: cannot target yourself", shared.ErrInvalidOperation)
	}
	return nil
}
