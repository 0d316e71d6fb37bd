// package formatter provides functions to export playlist data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat maps a user supplied name to a [Format].
func ParseFormat(s string) (Format, error) {
	switch s {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: Position, Item, Media, Title, Artist, Duration, URL, Current
//
// Duration is whole seconds and empty when unknown.
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Item", "Media", "Title", "Artist", "Duration", "URL", "Current"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, entry := range export.Entries {
		duration := ""
		if entry.Media.Duration != nil {
			duration = strconv.FormatInt(int64(entry.Media.Duration.Seconds()), 10)
		}
		record := []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(int64(entry.Item.ID), 10),
			strconv.FormatInt(int64(entry.Media.ID), 10),
			entry.Media.Title,
			entry.Media.Artist,
			duration,
			entry.Media.URL,
			strconv.FormatBool(export.IsCurrent(entry)),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown format. The current entry is bold.
func ExportToMarkdown(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Title)
	fmt.Fprintf(&buf, "**Items**: %d\n", export.Playlist.ItemCount)
	fmt.Fprintf(&buf, "**Duration**: %s\n\n", shared.FormatDuration(export.Playlist.TotalDuration))

	buf.WriteString("## Items\n\n")
	for i, entry := range export.Entries {
		line := entryLine(entry)
		if entry.Media.URL != "" {
			line = fmt.Sprintf("[%s](%s)", line, entry.Media.URL)
		}
		if export.IsCurrent(entry) {
			line = "**" + line + "**"
		}
		fmt.Fprintf(&buf, "%d. %s [%s]\n", i+1, line, durationOf(entry.Media))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format. The current entry is marked with ">".
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Title)
	fmt.Fprintf(&buf, "Items: %d (%s)\n\n", export.Playlist.ItemCount, shared.FormatDuration(export.Playlist.TotalDuration))

	for i, entry := range export.Entries {
		marker := " "
		if export.IsCurrent(entry) {
			marker = ">"
		}
		fmt.Fprintf(&buf, "%s %d. %s\n", marker, i+1, entryLine(entry))
	}

	return buf.Bytes(), nil
}

func entryLine(e models.Entry) string {
	if e.Media.Artist == "" {
		return e.Media.Title
	}
	return fmt.Sprintf("%s - %s", e.Media.Artist, e.Media.Title)
}

func durationOf(m models.Media) string {
	if m.Duration == nil {
		return "--:--"
	}
	return shared.FormatDuration(*m.Duration)
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without entries)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

func baseName(export *models.PlaylistExport) string {
	return fmt.Sprintf("playlist_%d", export.Playlist.ID)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	EntriesFile  string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist_{id} as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = baseName(export)
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	entriesFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(entriesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		EntriesFile:  entriesFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a playlist to {dir}/README.md, creating the directory.
//
// Directory name defaults to playlist_{id}.
func WriteMarkdownExport(export *models.PlaylistExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = baseName(export)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
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
// Defaults to playlist_{id}_items.txt as the filename.
func WriteTextExport(export *models.PlaylistExport, path string) (string, error) {
	if path == "" {
		path = baseName(export) + "_items.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// Write exports in format f to path, returning the files written.
func Write(export *models.PlaylistExport, f Format, path string) ([]string, error) {
	switch f {
	case FormatCSV:
		res, err := WriteCSVExport(export, path)
		if err != nil {
			return nil, err
		}
		return []string{res.EntriesFile, res.MetadataFile}, nil
	case FormatMarkdown:
		file, err := WriteMarkdownExport(export, path)
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	default:
		file, err := WriteTextExport(export, path)
		if err != nil {
			return nil, err
		}
		return []string{file}, nil
	}
}
