package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// writeJSONFile serializes v as indented JSON with non-ASCII characters and
// HTML metacharacters preserved literally, overwriting path.
func writeJSONFile(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// SaveRawData writes the fetched posts to a timestamped JSON file in dir and
// returns the file path.
func SaveRawData(posts []Post, dir string) (string, error) {
	timestamp := time.Now().Format("2006-01-02_15-04")
	path := filepath.Join(dir, fmt.Sprintf("reddit_data_%s.json", timestamp))

	if err := writeJSONFile(path, posts); err != nil {
		return "", fmt.Errorf("saving raw data: %w", err)
	}
	return path, nil
}

// LoadRawData reads a post sequence previously written by SaveRawData. A
// missing file or malformed content is an error; there is no fallback to a
// live fetch.
func LoadRawData(path string) ([]Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var posts []Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return posts, nil
}

// WriteReport writes the analysis to path, replacing any existing file.
func WriteReport(analysis Analysis, path string) error {
	if err := writeJSONFile(path, analysis); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	log.Printf("Report saved to %s", path)
	return nil
}
