package models

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/desertthunder/dtunes/internal/shared"
)

// User is an account and its side of every relationship pair.
//
// friends, incomingRequests and outgoingRequests are the user's edges. pairRevisions counts, per peer,
// how many relationship transitions have been committed to this record; both records of a pair are
// stamped with the same revision on every transition.
type User struct {
	id               string
	sequence         int
	email            string
	name             string
	friends          IDSet
	incomingRequests IDSet
	outgoingRequests IDSet
	likedSongs       IDSet
	pairRevisions    map[string]int64
	version          int64
	createdAt        time.Time
	updatedAt        time.Time
}

// NewUser creates a user with empty edge sets. The id is assigned on Create.
func NewUser(email, name string) *User {
	now := time.Now()
	return &User{
		email:            strings.TrimSpace(email),
		name:             strings.TrimSpace(name),
		friends:          NewIDSet(),
		incomingRequests: NewIDSet(),
		outgoingRequests: NewIDSet(),
		likedSongs:       NewIDSet(),
		pairRevisions:    map[string]int64{},
		createdAt:        now,
		updatedAt:        now,
	}
}

func (u *User) ID() string { return u.id }
func (u *User) Sequence() int { return u.sequence }
func (u *User) Email() string { return u.email }
func (u *User) Name() string { return u.name }
func (u *User) Version() int64 { return u.version }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// Friends returns the live friend set.
func (u *User) Friends() IDSet { return u.friends }

// IncomingRequests returns the live set of users who requested this user.
func (u *User) IncomingRequests() IDSet { return u.incomingRequests }

// OutgoingRequests returns the live set of users this user requested.
func (u *User) OutgoingRequests() IDSet { return u.outgoingRequests }

// LikedSongs returns the live set of liked song ids.
func (u *User) LikedSongs() IDSet { return u.likedSongs }

// PairRevision returns the last transition revision committed for the pair (u, peerID).
func (u *User) PairRevision(peerID string) int64 { return u.pairRevisions[peerID] }

// PairRevisions returns a copy of every per-peer revision.
func (u *User) PairRevisions() map[string]int64 { return maps.Clone(u.pairRevisions) }

// Peers returns every id referenced by any of the three edge sets.
func (u *User) Peers() IDSet {
	peers := u.friends.Clone()
	for id := range u.incomingRequests {
		peers.Add(id)
	}
	for id := range u.outgoingRequests {
		peers.Add(id)
	}
	return peers
}

func (u *User) SetID(id string) { u.id = id }
func (u *User) SetSequence(seq int) { u.sequence = seq }
func (u *User) SetEmail(email string) { u.email = strings.TrimSpace(email) }
func (u *User) SetName(name string) { u.name = strings.TrimSpace(name) }
func (u *User) SetVersion(v int64) { u.version = v }
func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time) { u.updatedAt = t }
func (u *User) SetFriends(s IDSet) { u.friends = orEmpty(s) }
func (u *User) SetIncomingRequests(s IDSet) { u.incomingRequests = orEmpty(s) }
func (u *User) SetOutgoingRequests(s IDSet) { u.outgoingRequests = orEmpty(s) }
func (u *User) SetLikedSongs(s IDSet) { u.likedSongs = orEmpty(s) }
func (u *User) SetPairRevision(peer string, rev int64) { u.pairRevisions[peer] = rev }

// SetPairRevisions replaces every per-peer revision.
func (u *User) SetPairRevisions(revs map[string]int64) {
	if revs == nil {
		revs = map[string]int64{}
	}
	u.pairRevisions = revs
}

// ForgetPair drops the revision kept for peerID, used once the peer no longer exists.
func (u *User) ForgetPair(peerID string) { delete(u.pairRevisions, peerID) }

// Validate checks the fields a stored user must always satisfy.
//
// Cross-set exclusivity is not checked: reconciliation writes back users whose other pairs are still
// inconsistent.
func (u *User) Validate() error {
	if u.email == "" || !strings.Contains(u.email, "@") {
		return fmt.Errorf("%w: invalid email %q", shared.ErrInvalidOperation, u.email)
	}
	if u.name == "" {
		return fmt.Errorf("%w: name is required", shared.ErrInvalidOperation)
	}
	if u.id != "" && (u.friends.Has(u.id) || u.incomingRequests.Has(u.id) || u.outgoingRequests.Has(u.id)) {
		return fmt.Errorf("%w: user %s references itself", shared.ErrInvalidOperation, u.id)
	}
	return nil
}

// Clone returns a deep copy, so a transition can be computed without touching the loaded record.
func (u *User) Clone() *User {
	c := *u
	c.friends = u.friends.Clone()
	c.incomingRequests = u.incomingRequests.Clone()
	c.outgoingRequests = u.outgoingRequests.Clone()
	c.likedSongs = u.likedSongs.Clone()
	c.pairRevisions = maps.Clone(u.pairRevisions)
	if c.pairRevisions == nil {
		c.pairRevisions = map[string]int64{}
	}
	return &c
}

// UserView is the exported snapshot of a [User] returned to callers.
type UserView struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Friends          []string  `json:"friends"`
	IncomingRequests []string  `json:"incomingRequests"`
	OutgoingRequests []string  `json:"outgoingRequests"`
	LikedSongs       []string  `json:"likedSongs"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (u *User) View() UserView {
	return UserView{
		ID:               u.id,
		Email:            u.email,
		Name:             u.name,
		Friends:          u.friends.Slice(),
		IncomingRequests: u.incomingRequests.Slice(),
		OutgoingRequests: u.outgoingRequests.Slice(),
		LikedSongs:       u.likedSongs.Slice(),
		Version:          u.version,
		CreatedAt:        u.createdAt,
		UpdatedAt:        u.updatedAt,
	}
}

// PeerView is what one user sees of another in friend and request listings.
type PeerView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (u *User) Peer() PeerView {
	return PeerView{ID: u.id, Name: u.name}
}

func orEmpty(s IDSet) IDSet {
	if s == nil {
		return NewIDSet()
	}
	return s
}
