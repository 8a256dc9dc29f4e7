// Package extract reads the prose of input documents for humanization.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ErrUnsupported is returned for file extensions with no extractor.
var ErrUnsupported = errors.New("unsupported file type")

var supported = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot, any case) can be extracted.
func (e *Extractor) Supported(ext string) bool {
	return slices.Contains(supported, strings.ToLower(ext))
}

// Extract reads the file at path and returns its text content. Paragraph
// breaks are kept as blank lines where the format has them.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"); empty means plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".txt", ".md", ".rst", "":
		return extractPlain(content)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
}
