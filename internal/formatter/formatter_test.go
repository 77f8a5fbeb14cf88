package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/shared"
	th "github.com/desertthunder/dtunes/internal/testing"
)

func testPlaylist() *models.Playlist {
	p := models.NewPlaylist("creator-1", "Test Playlist", "A test playlist", models.VisibilityGroup)
	p.SetID("test123")
	p.SetSharedLink("token-1")
	p.Collaborators().Add("friend-1")
	p.SetSongs([]string{"song-one", "song-two"})
	return p
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in   string
		want Format
	}{
		{"", Text},
		{"txt", Text},
		{"Markdown", Markdown},
		{"md", Markdown},
		{"CSV", CSV},
		{" json ", JSON},
	}
	for _, c := range tc {
		got, err := ParseFormat(c.in)
		if err != nil || got != c.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", c.in, got, err, c.want)
		}
	}

	if _, err := ParseFormat("yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestExporters(t *testing.T) {
	p := testPlaylist()

	t.Run("PlaylistToCSV", func(t *testing.T) {
		data, err := PlaylistToCSV(p)
		if err != nil {
			t.Fatalf("PlaylistToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "Position,SongID\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,song-one\n2,song-two\n") {
			t.Errorf("CSV missing songs in order, got: %s", output)
		}
	})

	t.Run("PlaylistToMarkdown", func(t *testing.T) {
		data, err := PlaylistToMarkdown(p)
		if err != nil {
			t.Fatalf("PlaylistToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Test Playlist",
			"**Description**: A test playlist",
			"**Songs**: 2",
			"**Visibility**: group",
			"**Shared link**: `token-1`",
			"**Collaborators**: friend-1",
			"## Songs",
			"1. song-one",
			"2. song-two",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("PlaylistToMarkdown without link", func(t *testing.T) {
		pub := models.NewPlaylist("creator-1", "Open", "", models.VisibilityPublic)
		data, err := PlaylistToMarkdown(pub)
		if err != nil {
			t.Fatalf("PlaylistToMarkdown failed: %v", err)
		}
		if strings.Contains(string(data), "Shared link") || strings.Contains(string(data), "Description") {
			t.Errorf("unexpected optional fields, got: %s", data)
		}
	})

	t.Run("PlaylistToText", func(t *testing.T) {
		data, err := PlaylistToText(p)
		if err != nil {
			t.Fatalf("PlaylistToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Test Playlist") {
			t.Errorf("Text missing name")
		}
		if !strings.Contains(output, "Songs: 2") {
			t.Errorf("Text missing song count")
		}
		if !strings.Contains(output, "2. song-two") {
			t.Errorf("Text missing song, got: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(p)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var decoded map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded["name"] != "Test Playlist" || decoded["visibility"] != "group" {
			t.Errorf("unexpected metadata: %s", data)
		}
	})
}

func TestRenderPlaylist(t *testing.T) {
	p := testPlaylist()

	tests := []struct {
		format Format
		want   string
	}{
		{Text, "Playlist: Test Playlist"},
		{Markdown, "# Test Playlist"},
		{CSV, "Position,SongID"},
		{JSON, `"sharedLink": "token-1"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := RenderPlaylist(&buf, tt.format, p); err != nil {
				t.Fatalf("RenderPlaylist failed: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, buf.String())
			}
		})
	}

	t.Run("write failure", func(t *testing.T) {
		if err := RenderPlaylist(&th.FWriter{}, Text, p); err == nil {
			t.Error("expected the writer's error")
		}
	})
}

func TestRenderUsers(t *testing.T) {
	alice := models.NewUser("alice@example.com", "Alice")
	alice.SetID("u1")
	bob := models.NewUser("bob@example.com", "Bob")
	bob.SetID("u2")
	users := []*models.User{alice, bob}

	tests := []struct {
		format Format
		want   []string
	}{
		{Text, []string{"Friends: 2", "u1  Alice <alice@example.com>"}},
		{Markdown, []string{"## Friends (2)", "- Bob <bob@example.com> `u2`"}},
		{CSV, []string{"ID,Name,Email", "u1,Alice,alice@example.com"}},
		{JSON, []string{`"friends": [`, `"email": "bob@example.com"`}},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := RenderUsers(&buf, tt.format, "Friends", users); err != nil {
				t.Fatalf("RenderUsers failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("expected %q in output, got: %s", want, buf.String())
				}
			}
		})
	}
}

func TestFileExports(t *testing.T) {
	p := testPlaylist()

	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "test123")
		result, err := WriteCSVExport(p, base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		th.AssertFileExists(t, result.SongsFile)
		th.AssertFileExists(t, result.MetadataFile)

		if content := th.MustReadFile(t, result.SongsFile); !strings.Contains(content, "song-one") {
			t.Errorf("CSV file missing songs, got: %s", content)
		}
		if content := th.MustReadFile(t, result.MetadataFile); !strings.Contains(content, `"name": "Test Playlist"`) {
			t.Errorf("metadata file missing name, got: %s", content)
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "test123")
		path, err := WriteMarkdownExport(p, dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if path != filepath.Join(dir, "README.md") {
			t.Errorf("unexpected path %s", path)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		path, err := WriteTextExport(p, filepath.Join(t.TempDir(), "songs.txt"))
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if content := th.MustReadFile(t, path); !strings.Contains(content, "1. song-one") {
			t.Errorf("text file missing songs, got: %s", content)
		}
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		path, err := WriteJSONExport(p, filepath.Join(t.TempDir(), "p.json"))
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WriteManifest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.json")
		if err := WriteManifest(map[string]int{"exported": 2}, path); err != nil {
			t.Fatalf("WriteManifest failed: %v", err)
		}
		if content := th.MustReadFile(t, path); !strings.Contains(content, `"exported": 2`) {
			t.Errorf("unexpected manifest: %s", content)
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		if _, err := WriteTextExport(p, filepath.Join(t.TempDir(), "missing", "songs.txt")); err == nil {
			t.Error("expected an error for a missing directory")
		}
	})
}
