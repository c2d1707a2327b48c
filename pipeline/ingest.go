package pipeline

import (
	"context"
	"errors"
	"strconv"

	"github.com/viant/ragpipe/chunker"
	"github.com/viant/ragpipe/document"
	"github.com/viant/ragpipe/embeddings"
	"github.com/viant/ragpipe/textnorm"
	"github.com/viant/ragpipe/vectordb"
)

// StateStored is the successful terminal state of Ingest.
const StateStored = "stored"

// IngestResult is the Stored(n) terminal state.
type IngestResult struct {
	State      string `json:"state"`
	DocumentID string `json:"documentId"`
	Source     string `json:"source,omitempty"`
	Chunks     int    `json:"chunks"`
}

// IngestSource loads uri through the document loader and ingests it.
func (p *Pipeline) IngestSource(ctx context.Context, uri string) (*IngestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.fail(FlowIngest, StageLoad, ErrCanceled, err)
	}
	doc, err := p.loader.Load(ctx, uri)
	if err != nil {
		switch {
		case errors.Is(err, document.ErrNoDocument):
			return nil, p.fail(FlowIngest, StageLoad, ErrNoDocument, err)
		case errors.Is(err, document.ErrNoExtractableText):
			return nil, p.fail(FlowIngest, StageLoad, ErrNoExtractableText, err)
		default:
			return nil, p.fail(FlowIngest, StageLoad, ErrUnreadableSource, err)
		}
	}
	return p.Ingest(ctx, doc)
}

// Ingest normalizes, chunks, embeds and stores doc. All vectors are computed
// before a single ReplaceDocument, so a failure before the store stage writes
// nothing.
func (p *Pipeline) Ingest(ctx context.Context, doc *document.Document) (*IngestResult, error) {
	if doc == nil {
		return nil, p.fail(FlowIngest, StageLoad, ErrNoDocument, nil)
	}
	text := textnorm.Normalize(doc.Text)
	if text == "" {
		return nil, p.fail(FlowIngest, StageNormalize, ErrNoExtractableText, nil)
	}
	docID := doc.ID
	if docID == "" {
		docID = document.NewID(text)
	}
	p.logf("pipeline: ingest doc=%s stage=%s chars=%d", docID, StageNormalize, len(text))

	chunks, err := chunker.Split(text, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return nil, p.fail(FlowIngest, StageChunk, ErrInvalidChunkConfig, err)
	}
	p.logf("pipeline: ingest doc=%s stage=%s chunks=%d", docID, StageChunk, len(chunks))

	if err := ctx.Err(); err != nil {
		return nil, p.fail(FlowIngest, StageEmbed, ErrCanceled, err)
	}
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := embeddings.EmbedBatches(ctx, p.embedder, texts, p.batchSize)
	if err != nil {
		return nil, p.fail(FlowIngest, StageEmbed, ErrEmbeddingFailure, err)
	}
	p.logf("pipeline: ingest doc=%s stage=%s vectors=%d", docID, StageEmbed, len(vectors))

	records := make([]vectordb.Record, len(chunks))
	meta := doc.Meta()
	for i := range chunks {
		c := &chunks[i]
		m := make(map[string]string, len(meta)+3)
		for k, v := range meta {
			m[k] = v
		}
		m["start"] = strconv.Itoa(c.Start)
		m["end"] = strconv.Itoa(c.End)
		// checksum lets consumers verify a stored chunk against its source text;
		// vectors are always recomputed because the model may have changed.
		m["checksum"] = strconv.FormatUint(c.Checksum, 16)
		records[i] = vectordb.Record{
			ID:         c.ID(docID),
			DocumentID: docID,
			Index:      c.Index,
			Text:       c.Text,
			Vector:     vectors[i],
			Meta:       m,
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, p.fail(FlowIngest, StageStore, ErrCanceled, err)
	}
	// chunks of an earlier ingest of the same document that this split no
	// longer produces are dropped in the same write
	if err := p.store.ReplaceDocument(ctx, docID, records); err != nil {
		return nil, p.fail(FlowIngest, StageStore, ErrStoreFailure, err)
	}
	p.logf("pipeline: ingest doc=%s state=%s chunks=%d", docID, StateStored, len(records))
	return &IngestResult{State: StateStored, DocumentID: docID, Source: doc.Source, Chunks: len(records)}, nil
}
