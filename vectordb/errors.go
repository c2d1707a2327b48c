package vectordb

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned for a non-positive result limit.
	ErrInvalidK = errors.New("vectordb: k must be positive")

	// ErrEmptyID is returned when a record has no identifier.
	ErrEmptyID = errors.New("vectordb: empty record id")

	// ErrDimensionMismatch is returned when a vector does not match the store dimension.
	ErrDimensionMismatch = errors.New("vectordb: vector dimension mismatch")

	// ErrDuplicateID is returned when one upsert batch repeats an identifier.
	ErrDuplicateID = errors.New("vectordb: duplicate record id in batch")

	// ErrEmptyDocumentID is returned when a document replacement names no document.
	ErrEmptyDocumentID = errors.New("vectordb: empty document id")

	// ErrForeignRecord is returned when a document replacement carries a chunk
	// of another document.
	ErrForeignRecord = errors.New("vectordb: record belongs to another document")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("vectordb: store closed")
)

// DimensionError reports the offending record of a dimension mismatch.
type DimensionError struct {
	ID   string
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("vectordb: vector dimension %d, store dimension %d", e.Got, e.Want)
	}
	return fmt.Sprintf("vectordb: record %s has dimension %d, expected %d", e.ID, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

// DuplicateIDError names the repeated identifier.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("vectordb: duplicate record id %s in batch", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// CheckDimension compares a vector length with the store dimension;
// a zero store dimension means nothing is stored yet.
func CheckDimension(storeDim, got int) error {
	if storeDim != 0 && storeDim != got {
		return &DimensionError{Want: storeDim, Got: got}
	}
	return nil
}
