// Package extract turns uploaded documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// SupportedExtensions lists the accepted upload extensions, with leading dot.
var SupportedExtensions = []string{".pdf", ".docx", ".txt", ".csv", ".xlsx"}

func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range SupportedExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// Extractor extracts plain text from files on disk based on their extension.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	// docx is read through its own path-based reader.
	if ext == ".docx" {
		return extractDOCX(path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from in-memory content. docx is not supported here.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".xlsx":
		return extractExcel(content)
	case ".csv":
		return extractCSV(content)
	case ".txt":
		return extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}
