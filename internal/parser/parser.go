// Package parser turns uploaded statute files into line-oriented plain text.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Parser converts raw document bytes into plain text. Each block of the
// source (paragraph, heading, table cell, PDF text row) becomes one line so
// that header detection sees the document's own line breaks.
type Parser interface {
	Parse(r io.Reader, filename string) (string, error)
}

// Options tunes format-specific behavior.
type Options struct {
	// PdftotextFallback retries PDF extraction with the pdftotext binary
	// when the pure-Go reader fails.
	PdftotextFallback bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PdftotextFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseFile opens path and parses it with the parser for its extension.
func ParseFile(path string, opts Options) (string, error) {
	p, err := ForFile(path, opts)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return p.Parse(f, filepath.Base(path))
}

// joinLines drops empty blocks and joins the rest one per line.
func joinLines(blocks []string) string {
	var b strings.Builder
	for _, s := range blocks {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}
	return b.String()
}
