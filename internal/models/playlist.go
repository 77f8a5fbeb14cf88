package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/dtunes/internal/shared"
)

const (
	MaxPlaylistNameLength        = 200
	MaxPlaylistDescriptionLength = 1000
)

// Visibility grades who can read and edit a playlist.
type Visibility string

const (
	VisibilityPrivate Visibility = "private" // creator only, plus share-link holders
	VisibilityGroup   Visibility = "group"   // creator and collaborators edit, share-link holders read
	VisibilityPublic  Visibility = "public"  // anyone reads, no share link
)

// ParseVisibility maps a string to a [Visibility]. The empty string means private.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VisibilityPrivate, nil
	case VisibilityPrivate, VisibilityGroup, VisibilityPublic:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown visibility %q", shared.ErrInvalidOperation, s)
	}
}

func (v Visibility) String() string { return string(v) }

// Playlist is an ordered list of songs owned by an immutable creator.
type Playlist struct {
	id            string
	sequence      int
	creatorID     string
	name          string
	description   string
	visibility    Visibility
	collaborators IDSet
	sharedLink    string
	songs         []string
	version       int64
	createdAt     time.Time
	updatedAt     time.Time
}

// NewPlaylist creates an empty playlist. The id is assigned on Create.
func NewPlaylist(creatorID, name, description string, visibility Visibility) *Playlist {
	if visibility == "" {
		visibility = VisibilityPrivate
	}
	now := time.Now()
	return &Playlist{
		creatorID:     creatorID,
		name:          strings.TrimSpace(name),
		description:   strings.TrimSpace(description),
		visibility:    visibility,
		collaborators: NewIDSet(),
		songs:         []string{},
		createdAt:     now,
		updatedAt:     now,
	}
}

func (p *Playlist) ID() string { return p.id }
func (p *Playlist) Sequence() int { return p.sequence }
func (p *Playlist) CreatorID() string { return p.creatorID }
func (p *Playlist) Name() string { return p.name }
func (p *Playlist) Description() string { return p.description }
func (p *Playlist) Visibility() Visibility { return p.visibility }
func (p *Playlist) Version() int64 { return p.version }
func (p *Playlist) CreatedAt() time.Time { return p.createdAt }
func (p *Playlist) UpdatedAt() time.Time { return p.updatedAt }

// Collaborators returns the live collaborator set.
func (p *Playlist) Collaborators() IDSet { return p.collaborators }

// SharedLink returns the share token, or "" when the playlist has none.
func (p *Playlist) SharedLink() string { return p.sharedLink }

// Songs returns a copy of the ordered song ids.
func (p *Playlist) Songs() []string { return slices.Clone(p.songs) }

func (p *Playlist) SetID(id string) { p.id = id }
func (p *Playlist) SetSequence(seq int) { p.sequence = seq }
func (p *Playlist) SetCreatorID(id string) { p.creatorID = id }
func (p *Playlist) SetName(name string) { p.name = strings.TrimSpace(name) }
func (p *Playlist) SetDescription(d string) { p.description = strings.TrimSpace(d) }
func (p *Playlist) SetVisibility(v Visibility) { p.visibility = v }
func (p *Playlist) SetSharedLink(token string) { p.sharedLink = token }
func (p *Playlist) SetCollaborators(s IDSet) { p.collaborators = orEmpty(s) }
func (p *Playlist) SetVersion(v int64) { p.version = v }
func (p *Playlist) SetCreatedAt(t time.Time) { p.createdAt = t }
func (p *Playlist) SetUpdatedAt(t time.Time) { p.updatedAt = t }

// SetSongs replaces the song list.
func (p *Playlist) SetSongs(songs []string) {
	if songs == nil {
		songs = []string{}
	}
	p.songs = songs
}

// ClearCollaborators empties the collaborator set.
func (p *Playlist) ClearCollaborators() { p.collaborators = NewIDSet() }

func (p *Playlist) HasSong(songID string) bool {
	return slices.Contains(p.songs, songID)
}

// AppendSong adds songID at the end and reports false if it was already present.
func (p *Playlist) AppendSong(songID string) bool {
	if p.HasSong(songID) {
		return false
	}
	p.songs = append(p.songs, songID)
	return true
}

// RemoveSong filters songID out and reports whether it was present.
func (p *Playlist) RemoveSong(songID string) bool {
	n := len(p.songs)
	p.songs = slices.DeleteFunc(p.songs, func(s string) bool { return s == songID })
	return len(p.songs) != n
}

func (p *Playlist) IsCreator(userID string) bool {
	return userID != "" && userID == p.creatorID
}

// CanEditSongs reports whether userID may add or remove songs: the creator, or a collaborator while
// the playlist is in group mode.
func (p *Playlist) CanEditSongs(userID string) bool {
	if p.IsCreator(userID) {
		return true
	}
	return p.visibility == VisibilityGroup && p.collaborators.Has(userID)
}

// CanRead reports whether userID may read the playlist without a share link.
func (p *Playlist) CanRead(userID string) bool {
	return p.visibility == VisibilityPublic || p.IsCreator(userID) || p.collaborators.Has(userID)
}

// Validate checks the fields a stored playlist must always satisfy, including that a public playlist
// carries no share link and a private playlist has no collaborators.
func (p *Playlist) Validate() error {
	if p.creatorID == "" {
		return fmt.Errorf("%w: creator is required", shared.ErrInvalidOperation)
	}
	if n := utf8.RuneCountInString(p.name); n == 0 || n > MaxPlaylistNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", shared.ErrInvalidOperation, MaxPlaylistNameLength)
	}
	if utf8.RuneCountInString(p.description) > MaxPlaylistDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", shared.ErrInvalidOperation, MaxPlaylistDescriptionLength)
	}

	switch p.visibility {
	case VisibilityPublic:
		if p.sharedLink != "" {
			return fmt.Errorf("%w: public playlist %s carries a share link", shared.ErrConflict, p.id)
		}
	case VisibilityPrivate:
		if p.collaborators.Len() > 0 {
			return fmt.Errorf("%w: private playlist %s has collaborators", shared.ErrConflict, p.id)
		}
	case VisibilityGroup:
	default:
		return fmt.Errorf("%w: unknown visibility %q", shared.ErrInvalidOperation, p.visibility)
	}

	if p.collaborators.Has(p.creatorID) {
		return fmt.Errorf("%w: creator cannot be a collaborator", shared.ErrInvalidOperation)
	}

	seen := make(map[string]struct{}, len(p.songs))
	for _, s := range p.songs {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: duplicate song %s", shared.ErrConflict, s)
		}
		seen[s] = struct{}{}
	}

	return nil
}

func (p *Playlist) Clone() *Playlist {
	c := *p
	c.collaborators = p.collaborators.Clone()
	c.songs = slices.Clone(p.songs)
	if c.songs == nil {
		c.songs = []string{}
	}
	return &c
}

// PlaylistView is the exported snapshot of a [Playlist] returned to callers.
type PlaylistView struct {
	ID            string     `json:"id"`
	CreatorID     string     `json:"creatorId"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Visibility    Visibility `json:"visibility"`
	Collaborators []string   `json:"collaborators"`
	SharedLink    *string    `json:"sharedLink"`
	Songs         []string   `json:"songs"`
	Version       int64      `json:"version"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (p *Playlist) View() PlaylistView {
	v := PlaylistView{
		ID:            p.id,
		CreatorID:     p.creatorID,
		Name:          p.name,
		Description:   p.description,
		Visibility:    p.visibility,
		Collaborators: p.collaborators.Slice(),
		Songs:         p.Songs(),
		Version:       p.version,
		CreatedAt:     p.createdAt,
		UpdatedAt:     p.updatedAt,
	}
	if p.sharedLink != "" {
		link := p.sharedLink
		v.SharedLink = &link
	}
	return v
}
