package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
)

// Loader reads sources through afs, so any registered scheme (file, mem,
// s3, gs) can be ingested.
type Loader struct {
	fs   afs.Service
	Logf func(format string, args ...any)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFS sets the storage service.
func WithFS(fs afs.Service) LoaderOption {
	return func(l *Loader) { l.fs = fs }
}

// WithLoaderLogf sets the diagnostic logger.
func WithLoaderLogf(fn func(format string, args ...any)) LoaderOption {
	return func(l *Loader) { l.Logf = fn }
}

// NewLoader creates a Loader backed by afs.New().
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.fs == nil {
		l.fs = afs.New()
	}
	return l
}

// Load downloads uri and extracts its text in the format implied by the
// extension.
func (l *Loader) Load(ctx context.Context, uri string) (*Document, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, ErrNoDocument
	}
	URL, err := normalizeURL(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSource, err)
	}
	exists, err := l.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableSource, uri, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNoDocument, uri)
	}
	data, err := l.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreadableSource, uri, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNoExtractableText, uri)
	}
	format := FormatOf(uri)
	text, err := Extract(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uri, err)
	}
	if l.Logf != nil {
		l.Logf("document: loaded source=%s format=%s bytes=%d chars=%d", uri, format, len(data), len([]rune(text)))
	}
	return &Document{ID: NewID(text), Source: uri, Text: text, Format: format}, nil
}

// normalizeURL turns relative local paths into absolute ones; URLs with a
// scheme are passed through.
func normalizeURL(uri string) (string, error) {
	if strings.Contains(uri, "://") {
		return uri, nil
	}
	return filepath.Abs(uri)
}
