package pipeline

import (
	"context"
	"errors"

	"github.com/viant/ragpipe/retriever"
	"github.com/viant/ragpipe/textnorm"
	"github.com/viant/ragpipe/vectordb"
)

// Query terminal states.
const (
	StateAnswered  = "answered"
	StateNoContext = "no_context"
)

// QueryRequest is a question and the number of chunks to retrieve.
type QueryRequest struct {
	Text string `json:"text"`
	K    int    `json:"k"`
}

// Answer is the Answered(text, chunks) terminal state.
type Answer struct {
	State     string           `json:"state"`
	Text      string           `json:"text"`
	Chunks    []vectordb.Match `json:"chunks"`
	NoContext bool             `json:"noContext,omitempty"`
	Prompt    string           `json:"-"`
}

// Ask queries with the configured k.
func (p *Pipeline) Ask(ctx context.Context, text string) (*Answer, error) {
	return p.Query(ctx, QueryRequest{Text: text, K: p.topK})
}

// Retrieve runs the retrieve stage alone and returns the nearest chunks.
func (p *Pipeline) Retrieve(ctx context.Context, req QueryRequest) ([]vectordb.Match, error) {
	if req.K <= 0 {
		return nil, p.fail(FlowQuery, StageRetrieve, ErrInvalidK, vectordb.ErrInvalidK)
	}
	if textnorm.IsBlank(req.Text) {
		return nil, p.fail(FlowQuery, StageRetrieve, ErrEmptyQuery, nil)
	}
	matches, err := p.retriever.Retrieve(ctx, req.Text, req.K)
	if err == nil {
		return matches, nil
	}
	if errors.Is(err, retriever.ErrEmbedding) {
		return nil, p.fail(FlowQuery, StageEmbed, ErrEmbeddingFailure, err)
	}
	return nil, p.fail(FlowQuery, StageRetrieve, ErrStoreFailure, err)
}

// Query retrieves the K nearest chunks, builds a prompt from them and
// generates an answer.
func (p *Pipeline) Query(ctx context.Context, req QueryRequest) (*Answer, error) {
	matches, err := p.Retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	p.logf("pipeline: query stage=%s k=%d matches=%d", StageRetrieve, req.K, len(matches))

	if len(matches) == 0 && p.emptyPolicy == ShortCircuit {
		p.logf("pipeline: query state=%s", StateNoContext)
		return &Answer{State: StateNoContext, Text: p.noContextAnswer, Chunks: []vectordb.Match{}, NoContext: true}, nil
	}

	chunks := make([]string, len(matches))
	for i := range matches {
		chunks[i] = matches[i].Text
	}
	assembled := p.prompt.Build(req.Text, chunks)
	p.logf("pipeline: query stage=%s chars=%d", StagePrompt, len(assembled))

	if err := ctx.Err(); err != nil {
		return nil, p.fail(FlowQuery, StageGenerate, ErrCanceled, err)
	}
	gctx := ctx
	if p.generateTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, p.generateTimeout)
		defer cancel()
	}
	text, err := p.generator.Generate(gctx, assembled)
	if err != nil {
		if cerr := gctx.Err(); cerr != nil {
			// providers do not always wrap the context error
			err = errors.Join(cerr, err)
		}
		return nil, p.fail(FlowQuery, StageGenerate, ErrGenerationFailure, err)
	}
	state := StateAnswered
	if len(matches) == 0 {
		state = StateNoContext
	}
	p.logf("pipeline: query state=%s chunks=%d", state, len(matches))
	return &Answer{State: state, Text: text, Chunks: matches, NoContext: len(matches) == 0, Prompt: assembled}, nil
}
