package pipeline

import (
	"time"

	"github.com/viant/ragpipe/document"
	"github.com/viant/ragpipe/prompt"
)

// EmptyContextPolicy decides what Query does when retrieval finds nothing.
type EmptyContextPolicy int

const (
	// ShortCircuit answers with NoContextAnswer without calling the generator.
	ShortCircuit EmptyContextPolicy = iota
	// GenerateWithMarker sends the prompt with the no-context marker.
	GenerateWithMarker
)

// DefaultNoContextAnswer is returned by ShortCircuit.
const DefaultNoContextAnswer = "I could not find any relevant information in the indexed documents."

// DefaultTopK is the number of chunks retrieved by Ask.
const DefaultTopK = 3

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithChunking sets the chunk window size and overlap in characters.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) {
		p.chunkSize = size
		p.chunkOverlap = overlap
	}
}

// WithBatchSize sets the number of chunks embedded per provider call.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) { p.batchSize = size }
}

// WithTopK sets the k used by Ask.
func WithTopK(k int) Option {
	return func(p *Pipeline) { p.topK = k }
}

// WithGenerateTimeout bounds the generate stage.
func WithGenerateTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.generateTimeout = d }
}

// WithEmptyContextPolicy selects the empty retrieval behaviour.
func WithEmptyContextPolicy(policy EmptyContextPolicy) Option {
	return func(p *Pipeline) { p.emptyPolicy = policy }
}

// WithNoContextAnswer overrides DefaultNoContextAnswer.
func WithNoContextAnswer(text string) Option {
	return func(p *Pipeline) { p.noContextAnswer = text }
}

// WithPromptBuilder overrides the prompt layout instruction.
func WithPromptBuilder(b prompt.Builder) Option {
	return func(p *Pipeline) { p.prompt = b }
}

// WithLoader sets the source loader used by IngestSource.
func WithLoader(l *document.Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithLogf sets the stage transition logger.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(p *Pipeline) { p.Logf = fn }
}
