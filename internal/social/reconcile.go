package social

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/shared"
)

// Reconciler restores symmetry for pairs left half-applied by a failed second write.
//
// The side holding the higher pair revision committed last and is authoritative. On equal revisions the
// side that holds an edge wins, since a commit always writes the actor's record first. When both sides hold
// different edges at the same revision, or the authoritative record lists the peer twice, both sides are
// reset to unrelated. Repairs are idempotent: a symmetric pair is never written.
type Reconciler struct {
	users  models.UserStore
	policy shared.RetryPolicy
	logger *log.Logger
}

// NewReconciler creates a [Reconciler] over users.
func NewReconciler(users models.UserStore, policy shared.RetryPolicy, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Reconciler{users: users, policy: policy, logger: shared.WithLogger(logger, "component", "reconciler")}
}

// verdict is the repaired state of a pair, seen from the first user.
type verdict struct {
	state     State
	revision  int64
	authority string
}

// decide returns the repaired state for (a, b), or false when the pair is already symmetric.
func decide(a, b *models.User) (verdict, bool) {
	va, vb := View(a, b.ID()), View(b, a.ID())
	if va != Inconsistent && va == Mirror(vb) {
		return verdict{}, false
	}

	ra, rb := a.PairRevision(b.ID()), b.PairRevision(a.ID())
	v := verdict{revision: max(ra, rb)}

	switch {
	case ra > rb:
		v.state, v.authority = va, a.ID()
	case rb > ra:
		v.state, v.authority = Mirror(vb), b.ID()
	case va == Unrelated:
		v.state, v.authority = Mirror(vb), b.ID()
	case vb == Unrelated:
		v.state, v.authority = va, a.ID()
	default:
		v.state = Inconsistent
	}

	if v.state == Inconsistent {
		v.state, v.authority = Unrelated, "reset"
		v.revision++
	}
	return v, true
}

// RepairPair makes the records of aID and bID symmetric and reports whether anything was written.
//
// A missing user is treated as deleted: the surviving record drops every edge to it.
func (r *Reconciler) RepairPair(ctx context.Context, aID, bID string) (bool, error) {
	if aID == bID {
		return false, fmt.Errorf("%w: cannot reconcile a user with itself", shared.ErrInvalidOperation)
	}

	var repaired bool
	err := shared.Retry(ctx, r.policy, func(ctx context.Context) error {
		var err error
		repaired, err = r.repairOnce(ctx, aID, bID)
		return err
	})
	return repaired, err
}

// repairOnce runs a single read-repair attempt; version races come back as [shared.ErrRetryable].
func (r *Reconciler) repairOnce(ctx context.Context, aID, bID string) (bool, error) {
	a, err := r.load(ctx, aID)
	if err != nil {
		return false, err
	}
	b, err := r.load(ctx, bID)
	if err != nil {
		return false, err
	}
	return r.repair(ctx, aID, bID, a, b)
}

// repair writes whatever (a, b) needs. Either record may be nil when the user no longer exists.
func (r *Reconciler) repair(ctx context.Context, aID, bID string, a, b *models.User) (bool, error) {
	switch {
	case a == nil && b == nil:
		return false, nil
	case a == nil:
		return r.dropDangling(ctx, b, aID)
	case b == nil:
		return r.dropDangling(ctx, a, bID)
	}

	v, needed := decide(a, b)
	if !needed {
		return false, nil
	}

	a2, b2 := a.Clone(), b.Clone()
	setView(a2, bID, v.state)
	setView(b2, aID, Mirror(v.state))
	stamp(a2, b2, v.revision)

	r.logger.Warn("repairing relationship pair",
		"a", aID, "b", bID,
		"a_view", View(a, bID), "b_view", View(b, aID),
		"authority", v.authority, "state", v.state, "revision", v.revision)

	if View(a, bID) != v.state || a.PairRevision(bID) != v.revision {
		if err := r.put(ctx, a2, a.Version()); err != nil {
			return false, err
		}
	}
	if View(b, aID) != Mirror(v.state) || b.PairRevision(aID) != v.revision {
		if err := r.put(ctx, b2, b.Version()); err != nil {
			return true, err
		}
	}
	return true, nil
}

// dropDangling removes every edge u holds to a deleted peer.
func (r *Reconciler) dropDangling(ctx context.Context, u *models.User, deletedID string) (bool, error) {
	if View(u, deletedID) == Unrelated && u.PairRevision(deletedID) == 0 {
		return false, nil
	}

	r.logger.Warn("dropping edges to deleted user", "user", u.ID(), "deleted", deletedID, "view", View(u, deletedID))

	u2 := u.Clone()
	setView(u2, deletedID, Unrelated)
	u2.ForgetPair(deletedID)
	if err := r.put(ctx, u2, u.Version()); err != nil {
		return false, err
	}
	return true, nil
}

// SweepUser repairs every pair userID takes part in and returns how many pairs were written.
//
// A user deleted since it was listed sweeps as zero pairs.
func (r *Reconciler) SweepUser(ctx context.Context, userID string) (int, error) {
	u, err := r.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, nil
	}

	var (
		repaired int
		errs     []error
	)
	for _, peerID := range u.Peers().Slice() {
		ok, err := r.RepairPair(ctx, userID, peerID)
		if err != nil {
			errs = append(errs, fmt.Errorf("pair %s/%s: %w", userID, peerID, err))
			continue
		}
		if ok {
			repaired++
		}
	}
	return repaired, errors.Join(errs...)
}

// load returns nil without error when the user does not exist.
func (r *Reconciler) load(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := r.policy.WithOpTimeout(ctx)
	defer cancel()

	u, err := r.users.Get(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return u, shared.StorageError(err)
}

func (r *Reconciler) put(ctx context.Context, u *models.User, expected int64) error {
	ctx, cancel := r.policy.WithOpTimeout(ctx)
	defer cancel()

	return shared.StorageError(r.users.ConditionalPut(ctx, u, expected))
}
