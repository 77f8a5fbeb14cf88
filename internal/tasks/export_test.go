package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/dtunes/internal/formatter"
	"github.com/desertthunder/dtunes/internal/models"
	th "github.com/desertthunder/dtunes/internal/testing"
)

type mockPlaylists struct {
	playlists []*models.Playlist
	err       error
}

func (m *mockPlaylists) ListForUser(context.Context, string) ([]*models.Playlist, error) {
	return m.playlists, m.err
}

func playlist(id, name string, songs ...string) *models.Playlist {
	p := models.NewPlaylist("creator-1", name, "", models.VisibilityPrivate)
	p.SetID(id)
	p.SetSongs(songs)
	return p
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	lister := &mockPlaylists{playlists: []*models.Playlist{
		playlist("p1", "First", "song-1", "song-2"),
		playlist("p2", "Second"),
	}}

	tests := []struct {
		format formatter.Format
		files  map[string][]string
	}{
		{formatter.JSON, map[string][]string{"p1": {"p1.json"}, "p2": {"p2.json"}}},
		{formatter.CSV, map[string][]string{"p1": {"p1_songs.csv", "p1_metadata.json"}, "p2": {"p2_songs.csv", "p2_metadata.json"}}},
		{formatter.Markdown, map[string][]string{"p1": {filepath.Join("p1", "README.md")}, "p2": {filepath.Join("p2", "README.md")}}},
		{formatter.Text, map[string][]string{"p1": {"p1_songs.txt"}, "p2": {"p2_songs.txt"}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			dir := t.TempDir()
			progress := make(chan ProgressUpdate, 10)

			result, err := NewExporter(lister).Export(ctx, progress, "creator-1", ExportOpts{Format: tt.format, OutputDir: dir, Workers: 2})
			if err != nil {
				t.Fatalf("Export failed: %v", err)
			}

			if result.TotalPlaylists != 2 || result.SuccessfulExports != 2 || result.FailedExports != 0 {
				t.Errorf("unexpected counts: %+v", result)
			}
			for _, res := range result.Results {
				want := tt.files[res.PlaylistID]
				if len(res.Files) != len(want) {
					t.Errorf("%s: expected files %v, got %v", res.PlaylistID, want, res.Files)
					continue
				}
				for i, f := range want {
					if res.Files[i] != filepath.Join(dir, f) {
						t.Errorf("%s: expected %s, got %s", res.PlaylistID, filepath.Join(dir, f), res.Files[i])
					}
					th.AssertFileExists(t, res.Files[i])
				}
			}

			th.AssertFileExists(t, result.ManifestPath)
			var manifest map[string]any
			if err := json.Unmarshal([]byte(th.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
				t.Fatalf("invalid manifest: %v", err)
			}
			if manifest["successful_exports"] != float64(2) || manifest["format"] != string(tt.format) {
				t.Errorf("unexpected manifest: %v", manifest)
			}

			if len(progress) != 3 {
				t.Errorf("expected 3 progress updates, got %d", len(progress))
			}
		})
	}

	t.Run("Partial Failure", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "p1"), []byte("in the way"), 0644); err != nil {
			t.Fatalf("Failed to create blocking file: %v", err)
		}

		result, err := NewExporter(lister).Export(ctx, nil, "creator-1", ExportOpts{Format: formatter.Markdown, OutputDir: dir})
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if result.SuccessfulExports != 1 || result.FailedExports != 1 {
			t.Errorf("expected one failure, got %+v", result)
		}
		for _, res := range result.Results {
			if res.PlaylistID == "p1" && (res.Error == nil || res.ErrorMessage == "") {
				t.Errorf("expected p1 to fail, got %+v", res)
			}
		}
	})

	t.Run("List Failure", func(t *testing.T) {
		_, err := NewExporter(&mockPlaylists{err: errors.New("down")}).Export(ctx, nil, "creator-1", ExportOpts{OutputDir: t.TempDir()})
		if err == nil {
			t.Error("expected the list error")
		}
	})
}
