// package formatter provides functions to export run results and catalog snapshots to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
	"github.com/desertthunder/plexsync/internal/shared"
	"github.com/desertthunder/plexsync/internal/tasks"
)

// sortedResources returns the resource types present in a run result in the
// order the engine executes them.
func sortedResources(result *tasks.RunResult) []models.ResourceType {
	var resources []models.ResourceType
	for _, resource := range models.KnownResourceTypes {
		if _, ok := result.Touched[resource]; ok {
			resources = append(resources, resource)
		}
	}
	return resources
}

func skipCounts(result *tasks.RunResult) map[models.ResourceType]int {
	counts := make(map[models.ResourceType]int)
	for _, skip := range result.Skipped {
		counts[skip.Resource]++
	}
	return counts
}

// ExportRunToCSV converts a run result to CSV format with columns: Resource, Touched, Skipped
func ExportRunToCSV(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Resource", "Touched", "Skipped"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	skipped := skipCounts(result)
	for _, resource := range sortedResources(result) {
		record := []string{
			string(resource),
			strconv.Itoa(len(result.Touched[resource])),
			strconv.Itoa(skipped[resource]),
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

// ExportRunToMarkdown converts a run result to Markdown format with a
// per-resource summary table and a skip listing
func ExportRunToMarkdown(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Sync Run %s\n\n", result.RunID))
	buf.WriteString(fmt.Sprintf("**Started**: %s\n", result.StartedAt.Format(time.RFC3339)))
	if !result.FinishedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Finished**: %s\n", result.FinishedAt.Format(time.RFC3339)))
		buf.WriteString(fmt.Sprintf("**Duration**: %s\n", shared.FormatOffset(result.FinishedAt.Sub(result.StartedAt).Milliseconds())))
	}
	buf.WriteString("\n## Resources\n\n")
	buf.WriteString("| Resource | Touched | Skipped |\n")
	buf.WriteString("|----------|---------|--------|\n")

	skipped := skipCounts(result)
	for _, resource := range sortedResources(result) {
		buf.WriteString(fmt.Sprintf("| %s | %d | %d |\n", resource, len(result.Touched[resource]), skipped[resource]))
	}

	if len(result.Skipped) > 0 {
		buf.WriteString("\n## Skipped\n\n")
		for _, skip := range result.Skipped {
			buf.WriteString(fmt.Sprintf("- **%s** %s: %s\n", skip.Resource, skip.Key, skip.Reason))
		}
	}

	return buf.Bytes(), nil
}

// ExportRunToText converts a run result to plain text format
func ExportRunToText(result *tasks.RunResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Run: %s\n", result.RunID))
	buf.WriteString(fmt.Sprintf("Started: %s\n\n", result.StartedAt.Format(time.RFC3339)))

	skipped := skipCounts(result)
	for _, resource := range sortedResources(result) {
		buf.WriteString(fmt.Sprintf("%s: %d touched, %d skipped\n", resource, len(result.Touched[resource]), skipped[resource]))
	}

	for _, skip := range result.Skipped {
		buf.WriteString(fmt.Sprintf("  skipped %s %s: %s\n", skip.Resource, skip.Key, skip.Reason))
	}

	return buf.Bytes(), nil
}

// ExportSnapshotToCSV converts a snapshot to CSV format with columns: Library, RatingKey, Type, Title, ViewCount
func ExportSnapshotToCSV(snapshot *tasks.SnapshotResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Library", "RatingKey", "Type", "Title", "ViewCount"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	keys := make([]string, 0, len(snapshot.Items))
	for key := range snapshot.Items {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	libraryTitles := make(map[string]string)
	for _, library := range snapshot.Libraries {
		libraryTitles[library.Key] = library.Title
	}

	for _, key := range keys {
		for _, entity := range snapshot.Items[key] {
			record := []string{
				libraryTitles[key],
				entity.RatingKey,
				string(entity.Type),
				entity.Title,
				strconv.Itoa(entity.ViewCount),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportSnapshotToMarkdown converts a snapshot to Markdown format
func ExportSnapshotToMarkdown(snapshot *tasks.SnapshotResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Catalog Snapshot: %s\n\n", snapshot.Catalog))
	buf.WriteString(fmt.Sprintf("**Libraries**: %d\n", len(snapshot.Libraries)))
	buf.WriteString(fmt.Sprintf("**Playlists**: %d\n\n", len(snapshot.Playlists)))

	for _, library := range snapshot.Libraries {
		buf.WriteString(fmt.Sprintf("## %s (%s)\n\n", library.Title, library.Type))
		buf.WriteString(fmt.Sprintf("**Items**: %d\n", len(snapshot.Items[library.Key])))

		collections := snapshot.Collections[library.Key]
		if len(collections) > 0 {
			buf.WriteString("\n**Collections**:\n\n")
			for _, collection := range collections {
				buf.WriteString(fmt.Sprintf("- %s (%d items)\n", collection.Title, collection.LeafCount))
			}
		}
		buf.WriteString("\n")
	}

	if len(snapshot.Playlists) > 0 {
		buf.WriteString("## Playlists\n\n")
		for _, playlist := range snapshot.Playlists {
			buf.WriteString(fmt.Sprintf("- %s (%d items)\n", playlist.Title, playlist.LeafCount))
		}
		buf.WriteString("\n")
	}

	if len(snapshot.Errors) > 0 {
		buf.WriteString("## Fetch Errors\n\n")
		for _, fetchErr := range snapshot.Errors {
			buf.WriteString(fmt.Sprintf("- `%s`: %s\n", fetchErr.Endpoint, fetchErr.Error))
		}
	}

	return buf.Bytes(), nil
}

// ExportDiffToText converts a diff result to plain text format
func ExportDiffToText(diff *tasks.DiffResult) ([]byte, error) {
	var buf bytes.Buffer

	writeSection := func(name string, d tasks.ContainerDiff) {
		buf.WriteString(fmt.Sprintf("%s: %d matched, %d missing in target, %d extra in target\n",
			name, d.Matched, len(d.MissingInTarget), len(d.ExtraInTarget)))
		for _, container := range d.MissingInTarget {
			buf.WriteString(fmt.Sprintf("  - missing: %s\n", container.Title))
		}
		for _, container := range d.ExtraInTarget {
			buf.WriteString(fmt.Sprintf("  + extra: %s\n", container.Title))
		}
	}

	writeSection("Collections", diff.Collections)
	writeSection("Playlists", diff.Playlists)

	return buf.Bytes(), nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport exports a snapshot to CSV format with accompanying metadata JSON file.
//
// Defaults to the catalog name as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(snapshot *tasks.SnapshotResult, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = snapshot.Catalog
	}

	csvData, err := ExportSnapshotToCSV(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := shared.MarshalJSON(snapshot.Libraries, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		ItemsFile:    itemsFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteMarkdownExport exports a snapshot to Markdown format in a dedicated directory.
//
// Directory name defaults to the catalog name.
// Creates a directory structure: {dir}/README.md
func WriteMarkdownExport(snapshot *tasks.SnapshotResult, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = snapshot.Catalog
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportSnapshotToMarkdown(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := fmt.Sprintf("%s/README.md", outputDir)
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// DownloadImage fetches one server-relative image path through the catalog
// and returns the raw bytes. Poster and art references require the catalog's
// token, so the download goes through its client rather than a bare URL.
func DownloadImage(ctx context.Context, catalog services.Catalog, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("empty image path provided")
	}

	data, err := catalog.AssetBytes(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}

	return data, nil
}

// WritePosterExport downloads the poster of every snapshotted entity and
// writes each under outputDir as {rating key}.jpg. Entities without a poster
// reference are skipped. Returns the written paths in library order.
func WritePosterExport(ctx context.Context, catalog services.Catalog, snapshot *tasks.SnapshotResult, outputDir string) ([]string, error) {
	if outputDir == "" {
		outputDir = fmt.Sprintf("%s_posters", snapshot.Catalog)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var written []string
	for _, library := range snapshot.Libraries {
		for _, entity := range snapshot.Items[library.Key] {
			if entity.Thumb == "" {
				continue
			}

			data, err := DownloadImage(ctx, catalog, entity.Thumb)
			if err != nil {
				return written, fmt.Errorf("poster for %q: %w", entity.Title, err)
			}

			file := filepath.Join(outputDir, fmt.Sprintf("%s.jpg", entity.RatingKey))
			if err := os.WriteFile(file, data, 0644); err != nil {
				return written, fmt.Errorf("failed to write poster file: %w", err)
			}
			written = append(written, file)
		}
	}

	return written, nil
}

// WriteTextExport exports a run result to plain text format.
//
// Defaults to {run id}_summary.txt as the filename.
func WriteTextExport(result *tasks.RunResult, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_summary.txt", result.RunID)
	}

	textData, err := ExportRunToText(result)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
