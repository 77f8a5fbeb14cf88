// package formatter renders playlists and user lists as text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/dtunes/internal/models"
	"github.com/desertthunder/dtunes/internal/shared"
)

// Format names an output format.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat accepts a format name, case-insensitively. "txt" and "md" are accepted as aliases and an
// empty name means text.
func ParseFormat(s string) (Format, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv", "json":
		return Format(f), nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// PlaylistToCSV converts a playlist's songs to CSV with columns: Position, SongID
func PlaylistToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "SongID"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for i, song := range p.Songs() {
		if err := writer.Write([]string{strconv.Itoa(i + 1), song}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaylistToMarkdown converts a playlist to Markdown
func PlaylistToMarkdown(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name())
	if p.Description() != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description())
	}

	fmt.Fprintf(&buf, "**Songs**: %d\n", len(p.Songs()))
	fmt.Fprintf(&buf, "**Visibility**: %s\n", p.Visibility())
	if p.SharedLink() != "" {
		fmt.Fprintf(&buf, "**Shared link**: `%s`\n", p.SharedLink())
	}
	if p.Collaborators().Len() > 0 {
		fmt.Fprintf(&buf, "**Collaborators**: %s\n", strings.Join(p.Collaborators().Slice(), ", "))
	}

	buf.WriteString("\n## Songs\n\n")
	for i, song := range p.Songs() {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, song)
	}
	return buf.Bytes(), nil
}

// PlaylistToText converts a playlist to plain text
func PlaylistToText(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name())
	if p.Description() != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description())
	}
	fmt.Fprintf(&buf, "Visibility: %s\n", p.Visibility())
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(p.Songs()))

	for i, song := range p.Songs() {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, song)
	}
	return buf.Bytes(), nil
}

// ToMetadataJSON generates the JSON view of a playlist
func ToMetadataJSON(p *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(p.View(), true)
}

// RenderPlaylist writes p to w in the given format.
func RenderPlaylist(w io.Writer, f Format, p *models.Playlist) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case Markdown:
		data, err = PlaylistToMarkdown(p)
	case CSV:
		data, err = PlaylistToCSV(p)
	case JSON:
		data, err = ToMetadataJSON(p)
		data = append(data, '\n')
	default:
		data, err = PlaylistToText(p)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

// RenderUsers writes a titled list of users to w in the given format.
func RenderUsers(w io.Writer, f Format, title string, users []*models.User) error {
	switch f {
	case JSON:
		views := make([]models.UserView, len(users))
		for i, u := range users {
			views[i] = u.View()
		}
		data, err := shared.MarshalJSON(map[string]any{strings.ToLower(title): views}, true)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err

	case CSV:
		writer := csv.NewWriter(w)
		if err := writer.Write([]string{"ID", "Name", "Email"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
		for _, u := range users {
			if err := writer.Write([]string{u.ID(), u.Name(), u.Email()}); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		writer.Flush()
		return writer.Error()

	case Markdown:
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "## %s (%d)\n\n", title, len(users))
		for _, u := range users {
			fmt.Fprintf(&buf, "- %s <%s> `%s`\n", u.Name(), u.Email(), u.ID())
		}
		_, err := w.Write(buf.Bytes())
		return err

	default:
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "%s: %d\n", title, len(users))
		for _, u := range users {
			fmt.Fprintf(&buf, "  %s  %s <%s>\n", u.ID(), u.Name(), u.Email())
		}
		_, err := w.Write(buf.Bytes())
		return err
	}
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	SongsFile    string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_songs.csv and {base}_metadata.json
func WriteCSVExport(p *models.Playlist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = p.ID()
	}

	csvData, err := PlaylistToCSV(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	songsFile := baseFilepath + "_songs.csv"
	if err := os.WriteFile(songsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{SongsFile: songsFile, MetadataFile: metadataFile}, nil
}

// WriteMarkdownExport writes {dir}/README.md for a playlist. The directory defaults to the playlist ID.
func WriteMarkdownExport(p *models.Playlist, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = p.ID()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := PlaylistToMarkdown(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return mdFile, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_songs.txt as the filename.
func WriteTextExport(p *models.Playlist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_songs.txt", p.ID())
	}

	textData, err := PlaylistToText(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport writes the JSON view of a playlist to path.
func WriteJSONExport(p *models.Playlist, path string) (string, error) {
	if path == "" {
		path = p.ID() + ".json"
	}

	data, err := ToMetadataJSON(p)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
