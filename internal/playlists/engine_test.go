package playlists

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/presence"
	"github.com/desertthunder/dtunes/internal/repositories"
	"github.com/desertthunder/dtunes/internal/shared"
	tu "github.com/desertthunder/dtunes/internal/testing"
)

type fixture struct {
	engine    *Engine
	playlists *repositories.MemoryPlaylistRepository
	faulty    *tu.FaultyPlaylistStore
	users     *repositories.MemoryUserRepository
	notifier  *tu.RecordingNotifier
	creator   string
	friend    string
	stranger  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		playlists: repositories.NewMemoryPlaylistRepository(),
		users:     repositories.NewMemoryUserRepository(),
		notifier:  tu.NewRecordingNotifier(nil),
	}
	f.faulty = tu.NewFaultyPlaylistStore(f.playlists)
	f.creator = tu.MustCreateUser(t, f.users, "creator@example.com", "Creator").ID()
	f.friend = tu.MustCreateUser(t, f.users, "friend@example.com", "Friend").ID()
	f.stranger = tu.MustCreateUser(t, f.users, "stranger@example.com", "Stranger").ID()

	f.engine = NewEngine(f.faulty, f.users, Options{
		Tokens:   &tu.SequentialTokens{},
		Policy:   shared.RetryPolicy{MaxAttempts: 20, Backoff: time.Millisecond, OpTimeout: time.Second},
		Notifier: f.notifier,
		Logger:   shared.NewLogger(&bytes.Buffer{}),
	})
	return f
}

// create makes a playlist owned by the fixture's creator, with friend as a collaborator unless v is private.
func (f *fixture) create(t *testing.T, v models.Visibility) *models.Playlist {
	t.Helper()
	ctx := context.Background()

	p, err := f.engine.Create(ctx, f.creator, "Road Trip", "songs for the drive", v)
	if err != nil {
		t.Fatalf("Failed to create %s playlist: %v", v, err)
	}
	if v == models.VisibilityPrivate {
		return p
	}

	p, err = f.engine.AddCollaborator(ctx, f.creator, p.ID(), f.friend)
	if err != nil {
		t.Fatalf("Failed to add collaborator: %v", err)
	}
	return p
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		visibility models.Visibility
		want       models.Visibility
		hasLink    bool
	}{
		{"default", "", models.VisibilityPrivate, true},
		{"private", models.VisibilityPrivate, models.VisibilityPrivate, true},
		{"group", models.VisibilityGroup, models.VisibilityGroup, true},
		{"public", models.VisibilityPublic, models.VisibilityPublic, false},
		{"mixed case", " Group ", models.VisibilityGroup, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p, err := f.engine.Create(ctx, f.creator, "Mix", "", tt.visibility)
			if err != nil {
				t.Fatalf("create failed: %v", err)
			}
			if p.Visibility() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, p.Visibility())
			}
			if (p.SharedLink() != "") != tt.hasLink {
				t.Errorf("expected link present=%v, got %q", tt.hasLink, p.SharedLink())
			}
			if p.Collaborators().Len() != 0 || len(p.Songs()) != 0 {
				t.Error("a new playlist starts empty")
			}
		})
	}

	t.Run("Rejected", func(t *testing.T) {
		f := newFixture(t)
		long := string(bytes.Repeat([]byte("a"), models.MaxPlaylistNameLength+1))

		cases := []struct {
			name    string
			creator string
			title   string
			v       models.Visibility
			want    error
		}{
			{"empty name", f.creator, "  ", "", shared.ErrInvalidOperation},
			{"long name", f.creator, long, "", shared.ErrInvalidOperation},
			{"unknown visibility", f.creator, "Mix", "secret", shared.ErrInvalidOperation},
			{"unknown creator", shared.GenerateID(), "Mix", "", shared.ErrNotFound},
			{"malformed creator", "nope", "Mix", "", shared.ErrInvalidOperation},
		}
		for _, c := range cases {
			if _, err := f.engine.Create(ctx, c.creator, c.title, "", c.v); !errors.Is(err, c.want) {
				t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
			}
		}
	})
}

func TestVisibilityTransitions(t *testing.T) {
	ctx := context.Background()
	all := []models.Visibility{models.VisibilityPrivate, models.VisibilityGroup, models.VisibilityPublic}

	type outcome struct {
		collaborators int
		link          string // "kept", "none" or "new"
	}

	want := map[transition]outcome{
		{models.VisibilityPrivate, models.VisibilityPrivate}: {0, "kept"},
		{models.VisibilityPrivate, models.VisibilityGroup}:   {0, "kept"},
		{models.VisibilityPrivate, models.VisibilityPublic}:  {0, "none"},
		{models.VisibilityGroup, models.VisibilityPrivate}:   {0, "kept"},
		{models.VisibilityGroup, models.VisibilityGroup}:     {1, "kept"},
		{models.VisibilityGroup, models.VisibilityPublic}:    {1, "none"},
		{models.VisibilityPublic, models.VisibilityPrivate}:  {0, "new"},
		{models.VisibilityPublic, models.VisibilityGroup}:    {1, "new"},
		{models.VisibilityPublic, models.VisibilityPublic}:   {1, "none"},
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(fmt.Sprintf("%s to %s", from, to), func(t *testing.T) {
				f := newFixture(t)
				before := f.create(t, from)

				after, err := f.engine.Update(ctx, f.creator, before.ID(), Update{Visibility: to})
				if err != nil {
					t.Fatalf("update failed: %v", err)
				}

				exp := want[transition{from, to}]
				if after.Visibility() != to {
					t.Errorf("expected %s, got %s", to, after.Visibility())
				}
				if after.Collaborators().Len() != exp.collaborators {
					t.Errorf("expected %d collaborators, got %d", exp.collaborators, after.Collaborators().Len())
				}

				switch exp.link {
				case "kept":
					if after.SharedLink() != before.SharedLink() || after.SharedLink() == "" {
						t.Errorf("expected link %q to be kept, got %q", before.SharedLink(), after.SharedLink())
					}
				case "none":
					if after.SharedLink() != "" {
						t.Errorf("expected no link, got %q", after.SharedLink())
					}
				case "new":
					if after.SharedLink() == "" || after.SharedLink() == before.SharedLink() {
						t.Errorf("expected a fresh link, got %q", after.SharedLink())
					}
				}

				if from == to && after.Version() != before.Version() {
					t.Error("a bare self-transition must not write")
				}
			})
		}
	}
}

func TestPrivateToPublicScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p := f.create(t, models.VisibilityPrivate)
	if p.SharedLink() == "" {
		t.Fatal("a private playlist starts with a link")
	}

	p, err := f.engine.Update(ctx, f.creator, p.ID(), Update{Visibility: models.VisibilityPublic})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if p.SharedLink() != "" || p.Collaborators().Len() != 0 {
		t.Errorf("expected no link and no collaborators, got %+v", p.View())
	}

	if _, err := f.engine.RegenerateSharedLink(ctx, f.creator, p.ID()); !errors.Is(err, shared.ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestGroupToPrivateScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p := f.create(t, models.VisibilityGroup)
	if !p.Collaborators().Has(f.friend) {
		t.Fatal("expected friend as collaborator")
	}

	p, err := f.engine.Update(ctx, f.creator, p.ID(), Update{Visibility: models.VisibilityPrivate})
	if err != nil {
		t.Fatalf("update to private failed: %v", err)
	}
	if p.Collaborators().Len() != 0 {
		t.Errorf("collaborators should be cleared, got %v", p.Collaborators().Slice())
	}

	p, err = f.engine.Update(ctx, f.creator, p.ID(), Update{Visibility: models.VisibilityGroup})
	if err != nil {
		t.Fatalf("update to group failed: %v", err)
	}
	if p.Collaborators().Len() != 0 {
		t.Errorf("collaborators must not be restored, got %v", p.Collaborators().Slice())
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("Self Transition Applies Edits", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)
		name, desc := "Night Drive", "after dark"

		got, err := f.engine.Update(ctx, f.creator, p.ID(), Update{
			Visibility: models.VisibilityGroup, Name: &name, Description: &desc,
		})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if got.Name() != name || got.Description() != desc {
			t.Errorf("expected edits applied, got %q / %q", got.Name(), got.Description())
		}
		if got.SharedLink() != p.SharedLink() || !got.Collaborators().Equal(p.Collaborators()) {
			t.Error("a self-transition must leave link and collaborators alone")
		}
	})

	t.Run("Normalizes Visibility", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)

		got, err := f.engine.Update(ctx, f.creator, p.ID(), Update{Visibility: "Public"})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if got.Visibility() != models.VisibilityPublic || got.SharedLink() != "" {
			t.Errorf("expected a public playlist without a link, got %+v", got.View())
		}
	})

	t.Run("Creator Only", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)

		_, err := f.engine.Update(ctx, f.friend, p.ID(), Update{Visibility: models.VisibilityPublic})
		if !errors.Is(err, shared.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}

		stored, _ := f.playlists.Get(ctx, p.ID())
		if stored.Version() != p.Version() {
			t.Error("a forbidden update must not write")
		}
	})

	t.Run("Invalid Input", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityPrivate)
		empty := " "

		if _, err := f.engine.Update(ctx, f.creator, p.ID(), Update{Visibility: "secret"}); !errors.Is(err, shared.ErrInvalidOperation) {
			t.Errorf("unknown visibility: expected ErrInvalidOperation, got %v", err)
		}
		if _, err := f.engine.Update(ctx, f.creator, p.ID(), Update{Name: &empty}); !errors.Is(err, shared.ErrInvalidOperation) {
			t.Errorf("empty name: expected ErrInvalidOperation, got %v", err)
		}
		if _, err := f.engine.Update(ctx, f.creator, shared.GenerateID(), Update{}); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("missing playlist: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Rename", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityPrivate)

		got, err := f.engine.Rename(ctx, f.creator, p.ID(), "  Renamed  ")
		if err != nil || got.Name() != "Renamed" {
			t.Fatalf("expected rename, got %v, %v", got, err)
		}
		if _, err := f.engine.Rename(ctx, f.creator, p.ID(), ""); !errors.Is(err, shared.ErrInvalidOperation) {
			t.Errorf("expected ErrInvalidOperation, got %v", err)
		}
	})

	t.Run("Storage Failure", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityPrivate)
		f.faulty.FailPut = func(int, *models.Playlist) bool { return true }

		_, err := f.engine.Update(ctx, f.creator, p.ID(), Update{Visibility: models.VisibilityPublic})
		if !errors.Is(err, shared.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}

func TestRegenerateSharedLink(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.create(t, models.VisibilityGroup)

	got, err := f.engine.RegenerateSharedLink(ctx, f.creator, p.ID())
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if got.SharedLink() == "" || got.SharedLink() == p.SharedLink() {
		t.Errorf("expected a new link, got %q", got.SharedLink())
	}

	if _, err := f.engine.GetBySharedLink(ctx, p.SharedLink()); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("the old link must stop working, got %v", err)
	}
	if resolved, err := f.engine.GetBySharedLink(ctx, got.SharedLink()); err != nil || resolved.ID() != p.ID() {
		t.Errorf("the new link must resolve, got %v", err)
	}

	if _, err := f.engine.RegenerateSharedLink(ctx, f.friend, p.ID()); !errors.Is(err, shared.ErrForbidden) {
		t.Errorf("collaborator: expected ErrForbidden, got %v", err)
	}
}

func TestSongs(t *testing.T) {
	ctx := context.Background()

	t.Run("Permissions", func(t *testing.T) {
		tests := []struct {
			name       string
			visibility models.Visibility
			actor      func(f *fixture) string
			want       error
		}{
			{"creator private", models.VisibilityPrivate, func(f *fixture) string { return f.creator }, nil},
			{"collaborator group", models.VisibilityGroup, func(f *fixture) string { return f.friend }, nil},
			{"collaborator public", models.VisibilityPublic, func(f *fixture) string { return f.friend }, shared.ErrForbidden},
			{"stranger group", models.VisibilityGroup, func(f *fixture) string { return f.stranger }, shared.ErrForbidden},
			{"stranger public", models.VisibilityPublic, func(f *fixture) string { return f.stranger }, shared.ErrForbidden},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)
				p := f.create(t, tt.visibility)

				_, err := f.engine.AddSong(ctx, tt.actor(f), p.ID(), "song-1")
				if tt.want == nil && err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if tt.want != nil && !errors.Is(err, tt.want) {
					t.Fatalf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("Duplicate Song", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityPrivate)

		if _, err := f.engine.AddSong(ctx, f.creator, p.ID(), "song-1"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if _, err := f.engine.AddSong(ctx, f.creator, p.ID(), "song-1"); !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
		if _, err := f.engine.AddSong(ctx, f.creator, p.ID(), ""); !errors.Is(err, shared.ErrInvalidOperation) {
			t.Errorf("expected ErrInvalidOperation, got %v", err)
		}
	})

	t.Run("Remove Is Idempotent", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityPrivate)

		p, err := f.engine.AddSong(ctx, f.creator, p.ID(), "song-1")
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}

		got, err := f.engine.RemoveSong(ctx, f.creator, p.ID(), "song-1")
		if err != nil || len(got.Songs()) != 0 {
			t.Fatalf("expected removal, got %v, %v", got, err)
		}

		again, err := f.engine.RemoveSong(ctx, f.creator, p.ID(), "song-1")
		if err != nil {
			t.Fatalf("removing an absent song should succeed, got %v", err)
		}
		if again.Version() != got.Version() {
			t.Error("removing an absent song must not write")
		}
	})

	t.Run("Notifies Members", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)
		third := tu.MustCreateUser(t, f.users, "third@example.com", "Third").ID()
		if _, err := f.engine.AddCollaborator(ctx, f.creator, p.ID(), third); err != nil {
			t.Fatalf("add collaborator failed: %v", err)
		}

		if _, err := f.engine.AddSong(ctx, f.friend, p.ID(), "song-1"); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		for _, id := range []string{f.creator, third} {
			if got := f.notifier.To(id); len(got) != 1 || got[0] != presence.PlaylistSongAdded {
				t.Errorf("expected %s to be notified, got %v", id, got)
			}
		}
		if got := f.notifier.To(f.friend); len(got) != 0 {
			t.Errorf("the actor must not be notified, got %v", got)
		}
	})

	t.Run("Concurrent Adds", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := f.engine.AddSong(ctx, f.creator, p.ID(), fmt.Sprintf("song-%d", i)); err != nil {
					t.Errorf("add %d failed: %v", i, err)
				}
			}()
		}
		wg.Wait()

		stored, err := f.playlists.Get(ctx, p.ID())
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if len(stored.Songs()) != 8 {
			t.Errorf("expected every concurrent add to land, got %v", stored.Songs())
		}
	})
}

func TestCollaborators(t *testing.T) {
	ctx := context.Background()

	t.Run("Rules", func(t *testing.T) {
		f := newFixture(t)
		private := f.create(t, models.VisibilityPrivate)
		group := f.create(t, models.VisibilityGroup)

		cases := []struct {
			name   string
			actor  string
			id     string
			target string
			want   error
		}{
			{"private playlist", f.creator, private.ID(), f.friend, shared.ErrConflict},
			{"not creator", f.friend, group.ID(), f.stranger, shared.ErrForbidden},
			{"creator as collaborator", f.creator, group.ID(), f.creator, shared.ErrInvalidOperation},
			{"already collaborator", f.creator, group.ID(), f.friend, shared.ErrConflict},
			{"unknown user", f.creator, group.ID(), shared.GenerateID(), shared.ErrNotFound},
		}
		for _, c := range cases {
			if _, err := f.engine.AddCollaborator(ctx, c.actor, c.id, c.target); !errors.Is(err, c.want) {
				t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
			}
		}
	})

	t.Run("By Email", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)

		got, err := f.engine.AddCollaboratorByEmail(ctx, f.creator, p.ID(), "STRANGER@example.com")
		if err != nil {
			t.Fatalf("add by email failed: %v", err)
		}
		if !got.Collaborators().Has(f.stranger) {
			t.Errorf("expected stranger as collaborator, got %v", got.Collaborators().Slice())
		}

		if _, err := f.engine.AddCollaboratorByEmail(ctx, f.creator, p.ID(), "nobody@example.com"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)

		if _, err := f.engine.RemoveCollaborator(ctx, f.friend, p.ID(), f.friend); !errors.Is(err, shared.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}

		got, err := f.engine.RemoveCollaborator(ctx, f.creator, p.ID(), f.friend)
		if err != nil || got.Collaborators().Len() != 0 {
			t.Fatalf("expected removal, got %v", err)
		}

		again, err := f.engine.RemoveCollaborator(ctx, f.creator, p.ID(), f.friend)
		if err != nil || again.Version() != got.Version() {
			t.Errorf("removing a non-collaborator should succeed without a write, got %v", err)
		}
	})
}

func TestReads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	private := f.create(t, models.VisibilityPrivate)
	group := f.create(t, models.VisibilityGroup)
	public, err := f.engine.Create(ctx, f.stranger, "Open Mic", "", models.VisibilityPublic)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	t.Run("Get", func(t *testing.T) {
		cases := []struct {
			actor string
			id    string
			want  error
		}{
			{f.creator, private.ID(), nil},
			{f.friend, private.ID(), shared.ErrForbidden},
			{f.friend, group.ID(), nil},
			{f.stranger, group.ID(), shared.ErrForbidden},
			{f.friend, public.ID(), nil},
			{f.friend, shared.GenerateID(), shared.ErrNotFound},
		}
		for i, c := range cases {
			_, err := f.engine.Get(ctx, c.actor, c.id)
			if c.want == nil && err != nil {
				t.Errorf("case %d: expected success, got %v", i, err)
			}
			if c.want != nil && !errors.Is(err, c.want) {
				t.Errorf("case %d: expected %v, got %v", i, c.want, err)
			}
		}
	})

	t.Run("Shared Link", func(t *testing.T) {
		got, err := f.engine.GetBySharedLink(ctx, private.SharedLink())
		if err != nil || got.ID() != private.ID() {
			t.Fatalf("expected the private playlist, got %v", err)
		}
		if _, err := f.engine.GetBySharedLink(ctx, "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := f.engine.GetBySharedLink(ctx, ""); !errors.Is(err, shared.ErrInvalidOperation) {
			t.Errorf("expected ErrInvalidOperation, got %v", err)
		}
	})

	t.Run("Lists", func(t *testing.T) {
		mine, err := f.engine.ListForUser(ctx, f.friend)
		if err != nil || len(mine) != 1 || mine[0].ID() != group.ID() {
			t.Errorf("expected the group playlist only, got %d, %v", len(mine), err)
		}

		pub, err := f.engine.ListPublic(ctx)
		if err != nil || len(pub) != 1 || pub[0].ID() != public.ID() {
			t.Errorf("expected the public playlist only, got %d, %v", len(pub), err)
		}
	})
}

func TestDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.create(t, models.VisibilityGroup)
	for _, s := range []string{"song-1", "song-2"} {
		if _, err := f.engine.AddSong(ctx, f.creator, p.ID(), s); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	c, err := f.engine.Duplicate(ctx, f.friend, p.ID())
	if err != nil {
		t.Fatalf("duplicate failed: %v", err)
	}
	if c.CreatorID() != f.friend || c.Name() != "Road Trip (Copy)" {
		t.Errorf("unexpected copy: %+v", c.View())
	}
	if c.Visibility() != models.VisibilityPrivate || c.SharedLink() == "" || c.SharedLink() == p.SharedLink() {
		t.Errorf("expected a private copy with its own link, got %+v", c.View())
	}
	if got := c.Songs(); len(got) != 2 || got[0] != "song-1" || got[1] != "song-2" {
		t.Errorf("expected songs copied in order, got %v", got)
	}

	if _, err := f.engine.Duplicate(ctx, f.stranger, p.ID()); !errors.Is(err, shared.ErrForbidden) {
		t.Errorf("unreadable source: expected ErrForbidden, got %v", err)
	}

	t.Run("writes the copy with its songs in one create", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)
		if _, err := f.engine.AddSong(ctx, f.creator, p.ID(), "song-1"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		f.faulty.FailPut = func(int, *models.Playlist) bool { return true }

		c, err := f.engine.Duplicate(ctx, f.friend, p.ID())
		if err != nil {
			t.Fatalf("duplicate should not need a conditional put, got %v", err)
		}
		stored, err := f.playlists.Get(ctx, c.ID())
		if err != nil {
			t.Fatalf("copy not stored: %v", err)
		}
		if got := stored.Songs(); len(got) != 1 || got[0] != "song-1" {
			t.Errorf("expected stored copy to hold [song-1], got %v", got)
		}
	})

	t.Run("failed create leaves no copy", func(t *testing.T) {
		f := newFixture(t)
		p := f.create(t, models.VisibilityGroup)
		if _, err := f.engine.AddSong(ctx, f.creator, p.ID(), "song-1"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		f.faulty.FailCreate = true
		f.faulty.FailPut = func(int, *models.Playlist) bool { return true }

		if _, err := f.engine.Duplicate(ctx, f.friend, p.ID()); !errors.Is(err, shared.ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}

		owned, err := f.playlists.ListForMember(ctx, f.friend)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		for _, o := range owned {
			if o.CreatorID() == f.friend {
				t.Errorf("leftover copy after failed duplicate: %+v", o.View())
			}
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.create(t, models.VisibilityGroup)

	if err := f.engine.Delete(ctx, f.friend, p.ID()); !errors.Is(err, shared.ErrForbidden) {
		t.Errorf("collaborator: expected ErrForbidden, got %v", err)
	}
	if err := f.engine.Delete(ctx, f.creator, p.ID()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := f.engine.Get(ctx, f.creator, p.ID()); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
