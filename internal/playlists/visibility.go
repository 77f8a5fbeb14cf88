package playlists

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/shared"
)

// effect is what a visibility transition does to the collaborators and share link.
type effect struct {
	clearCollaborators bool
	clearLink          bool
	newLink            bool // always issue a fresh link
	linkIfAbsent       bool // issue a link only when none is stored
}

type transition struct{ from, to models.Visibility }

// transitions lists every move that has side effects. Moves that are missing, self-transitions
// included, leave collaborators and link alone.
var transitions = map[transition]effect{
	{models.VisibilityPrivate, models.VisibilityPublic}: {clearLink: true},
	{models.VisibilityGroup, models.VisibilityPrivate}:  {clearCollaborators: true},
	{models.VisibilityGroup, models.VisibilityPublic}:   {clearLink: true},
	{models.VisibilityPublic, models.VisibilityPrivate}: {clearCollaborators: true, newLink: true},
	{models.VisibilityPublic, models.VisibilityGroup}:   {linkIfAbsent: true},
}

// Update is a creator's edit to a playlist. Zero fields are left unchanged.
type Update struct {
	Visibility  models.Visibility
	Name        *string
	Description *string
}

func (u Update) empty() bool {
	return u.Visibility == "" && u.Name == nil && u.Description == nil
}

// apply moves p to visibility to, issuing tokens from tokens where the move needs a new link.
func apply(p *models.Playlist, to models.Visibility, tokens shared.TokenGenerator) {
	fx := transitions[transition{p.Visibility(), to}]
	p.SetVisibility(to)

	if fx.clearCollaborators {
		p.ClearCollaborators()
	}
	switch {
	case fx.clearLink:
		p.SetSharedLink("")
	case fx.newLink:
		p.SetSharedLink(tokens.NewOpaqueToken())
	case fx.linkIfAbsent && p.SharedLink() == "":
		p.SetSharedLink(tokens.NewOpaqueToken())
	}
}

// Update applies a visibility transition and name or description edits. Only the creator may update a
// playlist.
func (e *Engine) Update(ctx context.Context, actorID, id string, u Update) (*models.Playlist, error) {
	if u.Visibility != "" {
		v, err := models.ParseVisibility(string(u.Visibility))
		if err != nil {
			return nil, err
		}
		u.Visibility = v
	}

	return e.mutate(ctx, actorID, id, "update", func(next *models.Playlist) (bool, error) {
		if !next.IsCreator(actorID) {
			return false, fmt.Errorf("%w: only the creator can change playlist %s", shared.ErrForbidden, id)
		}
		if u.empty() {
			return false, nil
		}

		before := next.Clone()
		if u.Name != nil {
			next.SetName(*u.Name)
		}
		if u.Description != nil {
			next.SetDescription(*u.Description)
		}
		if u.Visibility != "" {
			apply(next, u.Visibility, e.tokens)
		}
		return !sameShape(before, next), nil
	})
}

// Rename changes a playlist's name. Only the creator may rename it.
func (e *Engine) Rename(ctx context.Context, actorID, id, name string) (*models.Playlist, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: new name is required", shared.ErrInvalidOperation)
	}
	return e.Update(ctx, actorID, id, Update{Name: &name})
}

// RegenerateSharedLink replaces the share link of a private or group playlist, invalidating the old one.
func (e *Engine) RegenerateSharedLink(ctx context.Context, actorID, id string) (*models.Playlist, error) {
	return e.mutate(ctx, actorID, id, "regenerate link", func(next *models.Playlist) (bool, error) {
		if !next.IsCreator(actorID) {
			return false, fmt.Errorf("%w: only the creator can regenerate the link of playlist %s", shared.ErrForbidden, id)
		}
		if next.Visibility() == models.VisibilityPublic {
			return false, fmt.Errorf("%w: public playlists do not have shared links", shared.ErrInvalidOperation)
		}

		next.SetSharedLink(e.tokens.NewOpaqueToken())
		return true, nil
	})
}

func sameShape(a, b *models.Playlist) bool {
	return a.Name() == b.Name() &&
		a.Description() == b.Description() &&
		a.Visibility() == b.Visibility() &&
		a.SharedLink() == b.SharedLink() &&
		a.Collaborators().Equal(b.Collaborators())
}
