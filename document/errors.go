package document

import "errors"

var (
	// ErrNoDocument is returned when the source does not exist.
	ErrNoDocument = errors.New("document: no document")

	// ErrUnreadableSource is returned when the source cannot be downloaded or parsed.
	ErrUnreadableSource = errors.New("document: unreadable source")

	// ErrNoExtractableText is returned when parsing yields only whitespace.
	ErrNoExtractableText = errors.New("document: no extractable text")
)
