package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. A failed flow returns an *Error whose Kind is one of these.
var (
	ErrNoDocument         = errors.New("no document")
	ErrUnreadableSource   = errors.New("unreadable source")
	ErrNoExtractableText  = errors.New("no extractable text")
	ErrInvalidChunkConfig = errors.New("invalid chunk config")
	ErrEmbeddingFailure   = errors.New("embedding failure")
	ErrStoreFailure       = errors.New("store failure")
	ErrInvalidK           = errors.New("invalid k")
	ErrEmptyQuery         = errors.New("empty query")
	ErrGenerationFailure  = errors.New("generation failure")
	ErrTimeout            = errors.New("timeout")
	ErrCanceled           = errors.New("canceled")
)

// Flow names the state machine that failed.
type Flow string

const (
	FlowIngest Flow = "ingest"
	FlowQuery  Flow = "query"
)

// Stage names a step of a flow.
type Stage string

const (
	StageLoad      Stage = "load"
	StageNormalize Stage = "normalize"
	StageChunk     Stage = "chunk"
	StageEmbed     Stage = "embed"
	StageStore     Stage = "store"
	StageRetrieve  Stage = "retrieve"
	StagePrompt    Stage = "prompt"
	StageGenerate  Stage = "generate"
)

// Error is the Failed(stage, reason) terminal state of a flow.
// Both Kind and the underlying cause match with errors.Is.
type Error struct {
	Flow  Flow
	Stage Stage
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pipeline: %s failed at %s: %v", e.Flow, e.Stage, e.Kind)
	}
	return fmt.Sprintf("pipeline: %s failed at %s: %v: %v", e.Flow, e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Class groups kinds by what a caller can do about them.
type Class int

const (
	ClassUnknown Class = iota
	// ClassConfiguration failures need a different request or setting.
	ClassConfiguration
	// ClassUnavailable failures come from a dependency and may succeed on retry.
	ClassUnavailable
	// ClassContent failures come from the document or query itself.
	ClassContent
)

func (c Class) String() string {
	switch c {
	case ClassConfiguration:
		return "configuration"
	case ClassUnavailable:
		return "unavailable"
	case ClassContent:
		return "content"
	}
	return "unknown"
}

// Classify returns the class of a pipeline error.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrInvalidChunkConfig), errors.Is(err, ErrInvalidK):
		return ClassConfiguration
	case errors.Is(err, ErrEmbeddingFailure), errors.Is(err, ErrStoreFailure),
		errors.Is(err, ErrGenerationFailure), errors.Is(err, ErrTimeout), errors.Is(err, ErrCanceled):
		return ClassUnavailable
	case errors.Is(err, ErrNoDocument), errors.Is(err, ErrUnreadableSource),
		errors.Is(err, ErrNoExtractableText), errors.Is(err, ErrEmptyQuery):
		return ClassContent
	}
	return ClassUnknown
}

// IsRetryable reports whether err is worth retrying unchanged.
func IsRetryable(err error) bool {
	return Classify(err) == ClassUnavailable && !errors.Is(err, ErrCanceled)
}

// contextKind maps context errors to their kinds; ok is false otherwise.
func contextKind(err error) (error, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout, true
	case errors.Is(err, context.Canceled):
		return ErrCanceled, true
	}
	return nil, false
}
