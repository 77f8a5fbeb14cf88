package social

import "github.com/desertthunder/dtunes/internal/models"

// State is the relationship between two users as seen from one of them.
type State int

const (
	Unrelated       State = iota
	PendingOutgoing       // self requested peer
	PendingIncoming       // peer requested self
	Friends
	Inconsistent // the two records disagree, or one record lists the peer in more than one set
)

func (s State) String() string {
	switch s {
	case Unrelated:
		return "unrelated"
	case PendingOutgoing:
		return "pending-outgoing"
	case PendingIncoming:
		return "pending-incoming"
	case Friends:
		return "friends"
	default:
		return "inconsistent"
	}
}

// Mirror returns the state the peer must hold for the pair to be symmetric.
func Mirror(s State) State {
	switch s {
	case PendingOutgoing:
		return PendingIncoming
	case PendingIncoming:
		return PendingOutgoing
	default:
		return s
	}
}

// View classifies the pair from self's record alone.
func View(self *models.User, peerID string) State {
	var (
		state State
		n     int
	)
	if self.Friends().Has(peerID) {
		state, n = Friends, n+1
	}
	if self.OutgoingRequests().Has(peerID) {
		state, n = PendingOutgoing, n+1
	}
	if self.IncomingRequests().Has(peerID) {
		state, n = PendingIncoming, n+1
	}
	switch n {
	case 0:
		return Unrelated
	case 1:
		return state
	default:
		return Inconsistent
	}
}

// StateOf returns the pair's state from a's perspective when both records agree, and Inconsistent otherwise.
func StateOf(a, b *models.User) State {
	va, vb := View(a, b.ID()), View(b, a.ID())
	if va == Inconsistent || vb == Inconsistent || va != Mirror(vb) {
		return Inconsistent
	}
	return va
}

// AreFriends reports whether both records list each other as friends.
func AreFriends(a, b *models.User) bool {
	return StateOf(a, b) == Friends
}

// HasPendingRequest reports whether from has a request to to that both records agree on.
func HasPendingRequest(from, to *models.User) bool {
	return StateOf(from, to) == PendingOutgoing
}

// setView rewrites self's edges for peerID so that View(self, peerID) == s.
func setView(self *models.User, peerID string, s State) {
	self.Friends().Remove(peerID)
	self.OutgoingRequests().Remove(peerID)
	self.IncomingRequests().Remove(peerID)

	switch s {
	case Friends:
		self.Friends().Add(peerID)
	case PendingOutgoing:
		self.OutgoingRequests().Add(peerID)
	case PendingIncoming:
		self.IncomingRequests().Add(peerID)
	}
}

// pairRevision is the highest revision either record holds for the pair.
func pairRevision(a, b *models.User) int64 {
	return max(a.PairRevision(b.ID()), b.PairRevision(a.ID()))
}

// stamp records rev on both sides of the pair.
func stamp(a, b *models.User, rev int64) {
	a.SetPairRevision(b.ID(), rev)
	b.SetPairRevision(a.ID(), rev)
}
