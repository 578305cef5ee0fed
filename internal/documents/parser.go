// Package documents handles knowledge-base uploads: text extraction,
// metadata storage and feeding extracted text into the RAG index.
package documents

import (
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"planforge/internal/apperrors"
)

// Parser extracts plain text from one uploaded file format
type Parser interface {
	// Supports reports whether the parser handles the file name
	Supports(filename string) bool
	// Parse extracts the document text
	Parse(r io.Reader) (string, error)
}

// PlainTextParser handles text-native formats. Binary CAD formats
// (DWG, DXF, IFC) and PDF need external extraction before upload.
type PlainTextParser struct{}

// NewPlainTextParser creates the plain text parser
func NewPlainTextParser() *PlainTextParser { return &PlainTextParser{} }

var textExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".csv": true,
}

// Supports reports whether the file extension is text-native
func (p *PlainTextParser) Supports(filename string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Parse reads the file and verifies it is valid UTF-8 text
func (p *PlainTextParser) Parse(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, "failed to read upload", err)
	}
	if !utf8.Valid(raw) {
		return "", apperrors.New(apperrors.CodeValidation, "document is not valid UTF-8 text")
	}
	return string(raw), nil
}
