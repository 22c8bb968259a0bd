// Package extract pulls plain text out of policy and handbook files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the file types ingested when none are configured.
var DefaultExtensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx", ".rtf", ".odt"}

// Extractor extracts plain text from document files.
type Extractor struct {
	allowed map[string]bool
}

// NewExtractor returns an Extractor accepting the given extensions (with leading dot).
// With no extensions DefaultExtensions is used.
func NewExtractor(extensions ...string) *Extractor {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &Extractor{allowed: allowed}
}

// Supports reports whether the file's extension is configured for ingestion.
func (e *Extractor) Supports(path string) bool {
	return e.allowed[strings.ToLower(filepath.Ext(path))]
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext, which includes the leading dot.
// Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractSpreadsheet(content)
	case ".rtf", ".odt":
		return extractWithCat(content)
	default:
		return extractPlain(content)
	}
}
