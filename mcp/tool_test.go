package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/viant/jsonrpc"

	"github.com/viant/ragpipe/embeddings/simple"
	"github.com/viant/ragpipe/generation"
	"github.com/viant/ragpipe/pipeline"
	"github.com/viant/ragpipe/service"
	"github.com/viant/ragpipe/vectordb/mem"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return newHandlerWith(t, generation.Func(func(ctx context.Context, prompt string) (string, error) {
		return "from the notes", nil
	}))
}

func newHandlerWith(t *testing.T, gen generation.Generator) *Handler {
	t.Helper()
	svc, err := service.New(context.Background(), service.DefaultConfig(),
		service.WithEmbedder(simple.New(16)),
		service.WithStore(mem.New()),
		service.WithGenerator(gen),
	)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return &Handler{service: svc}
}

func TestTools(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	if _, err := h.ingest(ctx, &IngestInput{}); err == nil {
		t.Fatalf("expected error for empty ingest input")
	}
	ing, err := h.ingest(ctx, &IngestInput{Text: "MCP servers expose tools to clients.", Source: "inline"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if ing.Result.Chunks != 1 {
		t.Fatalf("expected 1 chunk, got %d", ing.Result.Chunks)
	}

	ret, err := h.retrieve(ctx, &RetrieveInput{Query: "tools", K: 2})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(ret.Chunks) != 1 || ret.Chunks[0].Meta["source"] != "inline" {
		t.Fatalf("unexpected chunks %+v", ret.Chunks)
	}

	ans, err := h.ask(ctx, &AskInput{Question: "what do MCP servers expose?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.Answer != "from the notes" || len(ans.Chunks) != 1 {
		t.Fatalf("unexpected answer %+v", ans)
	}
	if _, err := h.ask(ctx, &AskInput{Question: " "}); err == nil {
		t.Fatalf("expected error for blank question")
	}
}

func TestBuildSuccessResult(t *testing.T) {
	res, jerr := buildSuccessResult(&RetrieveOutput{})
	if jerr != nil || res == nil || len(res.Content) != 1 {
		t.Fatalf("unexpected result %+v %v", res, jerr)
	}
	if _, jerr := buildErrorResult(errors.New("bad")); jerr == nil || jerr.Code != jsonrpc.InternalError {
		t.Fatalf("expected internal jsonrpc error, got %+v", jerr)
	}
}

func TestToolErrorCodes(t *testing.T) {
	h := newHandlerWith(t, generation.Func(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("model offline")
	}))
	ctx := context.Background()
	if _, err := h.ingest(ctx, &IngestInput{Text: "Generators can go offline.", Source: "inline"}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	_, err := h.ask(ctx, &AskInput{Question: "what goes offline?"})
	if err == nil {
		t.Fatalf("expected generation failure")
	}
	_, jerr := buildErrorResult(err)
	if jerr == nil || jerr.Code != jsonrpc.InternalError {
		t.Fatalf("expected internal error code, got %+v", jerr)
	}
	var data errorData
	if err := json.Unmarshal(jerr.Data, &data); err != nil {
		t.Fatalf("error data: %v", err)
	}
	if data.Stage != pipeline.StageGenerate || data.Class != "unavailable" || !data.Retryable {
		t.Fatalf("unexpected error data %+v", data)
	}

	cases := []struct {
		name string
		call func() error
	}{
		{name: "blank question", call: func() error { _, err := h.ask(ctx, &AskInput{Question: " "}); return err }},
		{name: "blank query", call: func() error { _, err := h.retrieve(ctx, &RetrieveInput{}); return err }},
		{name: "empty ingest", call: func() error { _, err := h.ingest(ctx, &IngestInput{}); return err }},
		{name: "missing file", call: func() error {
			_, err := h.ingest(ctx, &IngestInput{URI: filepath.Join(t.TempDir(), "none.md")})
			return err
		}},
	}
	for _, tc := range cases {
		err := tc.call()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if _, jerr := buildErrorResult(err); jerr == nil || jerr.Code != jsonrpc.InvalidParams {
			t.Fatalf("%s: expected invalid params, got %+v", tc.name, jerr)
		}
	}
}
