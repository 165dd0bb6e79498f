// package formatter provides functions to export playlist data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/shared"
)

// ExportToCSV converts a playlist to CSV format with columns: Position, ItemID, VideoID, Title, Channel, URL
func ExportToCSV(pl *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ItemID", "VideoID", "Title", "Channel", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range pl.Items {
		record := []string{
			strconv.Itoa(i),
			item.ID,
			item.Resource.VideoID,
			item.Title,
			item.ChannelTitle,
			shared.VideoURL(item.Resource.VideoID, pl.ID),
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

// ExportToMarkdown converts a playlist to Markdown format with optional cover image
func ExportToMarkdown(pl *models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", pl.Title))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	buf.WriteString(fmt.Sprintf("**Items**: %d\n", len(pl.Items)))
	buf.WriteString(fmt.Sprintf("**Link**: <%s>\n\n", shared.PlaylistURL(pl.ID)))

	buf.WriteString("## Items\n\n")
	for i, item := range pl.Items {
		channelPart := ""
		if item.ChannelTitle != "" {
			channelPart = item.ChannelTitle + " - "
		}
		buf.WriteString(fmt.Sprintf("%d. %s[%s](%s)\n", i+1, channelPart, item.Title, shared.VideoURL(item.Resource.VideoID, "")))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text format
func ExportToText(pl *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", pl.Title))
	buf.WriteString(fmt.Sprintf("URL: %s\n", shared.PlaylistURL(pl.ID)))
	buf.WriteString(fmt.Sprintf("Items: %d\n\n", len(pl.Items)))

	for i, item := range pl.Items {
		if item.ChannelTitle != "" {
			buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, item.ChannelTitle, item.Title))
		} else {
			buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, item.Title))
		}
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// Metadata is the playlist summary written next to CSV exports.
type Metadata struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	URL       string `json:"url"`
	ItemCount int    `json:"item_count"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without items)
func ToMetadataJSON(pl *models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(Metadata{
		ID:        pl.ID,
		Title:     pl.Title,
		Thumbnail: pl.Thumbnail,
		URL:       shared.PlaylistURL(pl.ID),
		ItemCount: len(pl.Items),
	}, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ItemsFile    string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_items.csv and {base}_metadata.json
func WriteCSVExport(pl *models.Playlist, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = pl.ID
	}

	csvData, err := ExportToCSV(pl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	itemsFile := baseFilepath + "_items.csv"
	if err := os.WriteFile(itemsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(pl)
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

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to the playlist ID.
// When downloadCover is set, the playlist thumbnail is saved as cover.jpg; a failed download only drops the image.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(pl *models.Playlist, outputDir string, downloadCover bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = pl.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if downloadCover && pl.Thumbnail != "" {
		if imageData, err := DownloadImage(pl.Thumbnail); err == nil {
			coverImagePath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverImagePath, imageData, 0644); err == nil {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(pl, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_items.txt as the filename.
func WriteTextExport(pl *models.Playlist, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_items.txt", pl.ID)
	}

	textData, err := ExportToText(pl)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the whole playlist, items included, as indented JSON.
func WriteJSONExport(pl *models.Playlist, path string) (string, error) {
	if path == "" {
		path = pl.ID + ".json"
	}

	data, err := shared.MarshalJSON(pl, true)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}
