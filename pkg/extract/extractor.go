// Package extract turns uploaded files into plain text for ingestion.
// Supported: .txt, .md (read as-is), .pdf (MuPDF via go-fitz), .docx
// (document.xml paragraphs).
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from a file on disk. Implementations other
// than the default exist for tests.
type Extractor interface {
	ExtractText(filePath string) (string, error)
}

// SupportedExtensions lists the file types ingestion accepts.
var SupportedExtensions = []string{".txt", ".md", ".markdown", ".pdf", ".docx"}

// IsSupported reports whether the filename has an ingestible extension.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// FileExtractor is the production Extractor.
type FileExtractor struct{}

func NewFileExtractor() *FileExtractor {
	return &FileExtractor{}
}

func (e *FileExtractor) ExtractText(filePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".txt", ".md", ".markdown":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", filepath.Base(filePath), err)
		}
		return string(data), nil
	case ".pdf":
		return extractPDF(filePath)
	case ".docx":
		return extractDOCX(filePath)
	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Base(filePath))
	}
}
