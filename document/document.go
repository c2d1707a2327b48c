// Package document loads source files and extracts their text.
package document

import (
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/ragpipe/textnorm"
)

// Format identifies how text is extracted from a source.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

// namespace for name-based document IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/viant/ragpipe/document"))

// Document is an extracted source. It is not modified after creation.
type Document struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`
	Text   string `json:"-"`
	Format Format `json:"format"`
}

// New creates a text document. The ID is derived from the normalized text,
// so identical content yields identical chunk identifiers.
func New(source, text string) *Document {
	return &Document{ID: NewID(text), Source: source, Text: text, Format: FormatText}
}

// NewID returns the name-based UUID of the normalized text.
func NewID(text string) string {
	return uuid.NewSHA1(namespace, []byte(textnorm.Normalize(text))).String()
}

// Meta returns the descriptive fields stored with every chunk.
func (d *Document) Meta() map[string]string {
	meta := map[string]string{"format": string(d.Format)}
	if d.Source != "" {
		meta["source"] = d.Source
	}
	return meta
}

// FormatOf picks a format from the URI extension; unknown extensions are text.
func FormatOf(uri string) Format {
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	switch strings.ToLower(path.Ext(uri)) {
	case ".pdf":
		return FormatPDF
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".docx":
		return FormatDOCX
	default:
		return FormatText
	}
}
