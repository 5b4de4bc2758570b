// Package extract converts stored documents into plain text for chunking.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat indicates the document's extension has no
	// registered extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Supported reports whether documents with the given extension can be
// extracted. The extension includes the leading dot and is matched
// case-insensitively.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".docx":
		return true
	default:
		return false
	}
}

// Extract reads the document at path and returns its plain text contents.
// The format is chosen by the file extension.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		return extractPlain(path)
	case ".docx":
		return extractDocx(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
