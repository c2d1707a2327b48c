package mcp

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"

	"github.com/viant/ragpipe/pipeline"
)

//go:embed tools/ingest.md
var descIngest string

//go:embed tools/ask.md
var descAsk string

//go:embed tools/retrieve.md
var descRetrieve string

func registerTools(registry *protoserver.Registry, h *Handler) error {
	if err := protoserver.RegisterTool[*IngestInput, *IngestOutput](registry, "ingest", descIngest, func(ctx context.Context, in *IngestInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.ingest(ctx, in)
		if err != nil {
			return buildErrorResult(err)
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*AskInput, *AskOutput](registry, "ask", descAsk, func(ctx context.Context, in *AskInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.ask(ctx, in)
		if err != nil {
			return buildErrorResult(err)
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}

	if err := protoserver.RegisterTool[*RetrieveInput, *RetrieveOutput](registry, "retrieve", descRetrieve, func(ctx context.Context, in *RetrieveInput) (*schema.CallToolResult, *jsonrpc.Error) {
		out, err := h.retrieve(ctx, in)
		if err != nil {
			return buildErrorResult(err)
		}
		return buildSuccessResult(out)
	}); err != nil {
		return err
	}
	return nil
}

// errorData is attached to tool errors so clients can tell a bad request
// from a dependency outage.
type errorData struct {
	Flow      pipeline.Flow  `json:"flow,omitempty"`
	Stage     pipeline.Stage `json:"stage,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Class     string         `json:"class"`
	Retryable bool           `json:"retryable"`
}

// buildErrorResult reports configuration and content failures as invalid
// params and everything else as an internal error.
func buildErrorResult(err error) (*schema.CallToolResult, *jsonrpc.Error) {
	class := pipeline.Classify(err)
	data := &errorData{Class: class.String(), Retryable: pipeline.IsRetryable(err)}
	var perr *pipeline.Error
	if errors.As(err, &perr) {
		data.Flow, data.Stage = perr.Flow, perr.Stage
		if perr.Kind != nil {
			data.Kind = perr.Kind.Error()
		}
	}
	code := jsonrpc.InternalError
	switch class {
	case pipeline.ClassConfiguration, pipeline.ClassContent:
		code = jsonrpc.InvalidParams
	}
	return nil, jsonrpc.NewError(code, err.Error(), data)
}

func buildSuccessResult(payload any) (*schema.CallToolResult, *jsonrpc.Error) {
	b, _ := json.Marshal(payload)
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{
			schema.TextContent{Type: "text", Text: string(b)},
		},
		StructuredContent: map[string]any{"result": payload},
	}, nil
}

func (h *Handler) ingest(ctx context.Context, in *IngestInput) (*IngestOutput, error) {
	start := time.Now()
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil {
		in = &IngestInput{}
	}
	uri := strings.TrimSpace(in.URI)
	if uri == "" && in.Text == "" {
		return nil, fmt.Errorf("mcp: missing uri or text: %w", pipeline.ErrNoDocument)
	}
	var (
		res *pipeline.IngestResult
		err error
	)
	if uri != "" {
		res, err = h.service.Ingest(ctx, uri)
	} else {
		res, err = h.service.IngestText(ctx, in.Source, in.Text)
	}
	if err != nil {
		return nil, err
	}
	out := &IngestOutput{Result: res}
	h.logf("mcp metric op=ingest doc=%s chunks=%d dur=%s", out.Result.DocumentID, out.Result.Chunks, time.Since(start))
	return out, nil
}

func (h *Handler) ask(ctx context.Context, in *AskInput) (*AskOutput, error) {
	start := time.Now()
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil || strings.TrimSpace(in.Question) == "" {
		return nil, fmt.Errorf("mcp: missing question: %w", pipeline.ErrEmptyQuery)
	}
	answer, err := h.service.Ask(ctx, in.Question, in.K)
	if err != nil {
		return nil, err
	}
	h.logf("mcp metric op=ask state=%s chunks=%d dur=%s", answer.State, len(answer.Chunks), time.Since(start))
	return &AskOutput{
		Answer:    answer.Text,
		State:     answer.State,
		NoContext: answer.NoContext,
		Chunks:    answer.Chunks,
	}, nil
}

func (h *Handler) retrieve(ctx context.Context, in *RetrieveInput) (*RetrieveOutput, error) {
	start := time.Now()
	if h == nil || h.service == nil {
		return nil, fmt.Errorf("mcp: service unavailable")
	}
	if in == nil || strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("mcp: missing query: %w", pipeline.ErrEmptyQuery)
	}
	matches, err := h.service.Retrieve(ctx, in.Query, in.K)
	if err != nil {
		return nil, err
	}
	h.logf("mcp metric op=retrieve matches=%d dur=%s", len(matches), time.Since(start))
	return &RetrieveOutput{Chunks: matches}, nil
}
