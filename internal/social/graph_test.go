package social

import (
	"testing"

	"github.com/desertthunder/dtunes/internal/models"
)

func user(id string) *models.User {
	u := models.NewUser(id+"@example.com", id)
	u.SetID(id)
	return u
}

func TestView(t *testing.T) {
	tests := []struct {
		name  string
		setup func(u *models.User)
		want  State
	}{
		{"no edges", func(*models.User) {}, Unrelated},
		{"outgoing", func(u *models.User) { u.OutgoingRequests().Add("b") }, PendingOutgoing},
		{"incoming", func(u *models.User) { u.IncomingRequests().Add("b") }, PendingIncoming},
		{"friends", func(u *models.User) { u.Friends().Add("b") }, Friends},
		{"two sets", func(u *models.User) { u.Friends().Add("b"); u.OutgoingRequests().Add("b") }, Inconsistent},
		{"other peer only", func(u *models.User) { u.Friends().Add("c") }, Unrelated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := user("a")
			tt.setup(u)
			if got := View(u, "b"); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStateOf(t *testing.T) {
	t.Run("Symmetric Pending", func(t *testing.T) {
		a, b := user("a"), user("b")
		a.OutgoingRequests().Add("b")
		b.IncomingRequests().Add("a")

		if StateOf(a, b) != PendingOutgoing || StateOf(b, a) != PendingIncoming {
			t.Errorf("unexpected states %s / %s", StateOf(a, b), StateOf(b, a))
		}
		if !HasPendingRequest(a, b) || HasPendingRequest(b, a) {
			t.Error("pending request direction is wrong")
		}
	})

	t.Run("One Sided Friendship", func(t *testing.T) {
		a, b := user("a"), user("b")
		a.Friends().Add("b")

		if StateOf(a, b) != Inconsistent {
			t.Errorf("expected inconsistent, got %s", StateOf(a, b))
		}
		if AreFriends(a, b) {
			t.Error("a one-sided edge is not a friendship")
		}
	})

	t.Run("Mirror", func(t *testing.T) {
		for s, want := range map[State]State{
			Unrelated:       Unrelated,
			PendingOutgoing: PendingIncoming,
			PendingIncoming: PendingOutgoing,
			Friends:         Friends,
		} {
			if Mirror(s) != want {
				t.Errorf("Mirror(%s) = %s, want %s", s, Mirror(s), want)
			}
		}
	})

	t.Run("setView Replaces Edges", func(t *testing.T) {
		u := user("a")
		u.OutgoingRequests().Add("b")
		u.Friends().Add("c")

		setView(u, "b", Friends)
		if View(u, "b") != Friends || u.OutgoingRequests().Has("b") {
			t.Errorf("expected only a friend edge to b, got %+v", u.View())
		}

		setView(u, "b", Unrelated)
		if View(u, "b") != Unrelated || !u.Friends().Has("c") {
			t.Errorf("clearing b must leave c alone, got %+v", u.View())
		}
	})
}
