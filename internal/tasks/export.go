package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/dtunes/internal/formatter"
	"github.com/desertthunder/dtunes/internal/models"
)

// PlaylistLister returns the playlists a user created or collaborates on.
type PlaylistLister interface {
	ListForUser(ctx context.Context, actorID string) ([]*models.Playlist, error)
}

// ExportOpts contains configuration for playlist exports.
type ExportOpts struct {
	Format    formatter.Format // Export format: json, csv, markdown, text
	OutputDir string           // Base output directory (default: dtunes_export_{epoch})
	Workers   int              // Concurrent workers (default: 4, max: 16)
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

// ExportResult summarizes an export and is written as its manifest.
type ExportResult struct {
	UserID            string                 `json:"user_id"`
	Format            formatter.Format       `json:"format"`
	OutputDirectory   string                 `json:"output_directory"`
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	Results           []PlaylistExportResult `json:"results"`
	ManifestPath      string                 `json:"-"`
}

// Exporter writes a user's playlists to disk.
type Exporter struct {
	playlists PlaylistLister
}

func NewExporter(playlists PlaylistLister) *Exporter {
	return &Exporter{playlists: playlists}
}

// Export writes every playlist actor can access into opts.OutputDir on a pool of workers, and
// finishes with export_manifest.json. Individual failures are recorded in the result, not returned.
func (e *Exporter) Export(ctx context.Context, progress chan<- ProgressUpdate, actorID string, opts ExportOpts) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("dtunes_export_%d", time.Now().Unix())
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultSweepWorkers
	}
	if opts.Workers > maxSweepWorkers {
		opts.Workers = maxSweepWorkers
	}

	playlists, err := e.playlists.ListForUser(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	sendProgress(progress, listPlaylistsUpdate(len(playlists)))

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{
		UserID:          actorID,
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		TotalPlaylists:  len(playlists),
		Results:         make([]PlaylistExportResult, 0, len(playlists)),
	}

	jobs := make(chan *models.Playlist, len(playlists))
	results := make(chan PlaylistExportResult, len(playlists))

	var wg sync.WaitGroup
	for range opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- exportPlaylist(p, opts)
			}
		}()
	}

	for _, p := range playlists {
		jobs <- p
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		result.Results = append(result.Results, res)
		if res.Error != nil {
			result.FailedExports++
		} else {
			result.SuccessfulExports++
		}
		sendProgress(progress, exportedPlaylistUpdate(len(result.Results), len(playlists), res))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportPlaylist writes one playlist in the requested format.
func exportPlaylist(p *models.Playlist, opts ExportOpts) PlaylistExportResult {
	res := PlaylistExportResult{PlaylistID: p.ID(), PlaylistName: p.Name()}
	base := filepath.Join(opts.OutputDir, p.ID())

	var err error
	switch opts.Format {
	case formatter.CSV:
		var out *formatter.CSVExportResult
		if out, err = formatter.WriteCSVExport(p, base); err == nil {
			res.Files = []string{out.SongsFile, out.MetadataFile}
		}
	case formatter.Markdown:
		var path string
		if path, err = formatter.WriteMarkdownExport(p, base); err == nil {
			res.Files = []string{path}
		}
	case formatter.Text:
		var path string
		if path, err = formatter.WriteTextExport(p, base+"_songs.txt"); err == nil {
			res.Files = []string{path}
		}
	default:
		var path string
		if path, err = formatter.WriteJSONExport(p, base+".json"); err == nil {
			res.Files = []string{path}
		}
	}

	if err != nil {
		res.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		res.ErrorMessage = res.Error.Error()
	}
	return res
}
