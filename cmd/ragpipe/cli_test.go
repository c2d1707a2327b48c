package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/viant/ragpipe/pipeline"
	"github.com/viant/ragpipe/service"
	"github.com/viant/ragpipe/vectordb/bolt"
)

func TestCLIFlow_IngestStats(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rag.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "embedder:\n  provider: simple\n  dimension: 16\ngenerator:\n  provider: ollama\nstore:\n  driver: bolt\n  path: " + dbPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	doc := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(doc, []byte("# Notes\n\nChunks overlap so that context survives the split."), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}

	ingestCmd([]string{"--config", cfgPath, doc})
	ingestCmd([]string{"--config", cfgPath, "--text", "inline note", "--source", "cli"})
	statsCmd([]string{"--config", cfgPath})

	store, err := bolt.NewStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 chunks, got %d", n)
	}
}

func TestResolveMCPAddr(t *testing.T) {
	cfg := service.DefaultConfig()
	if got := resolveMCPAddr("", cfg); got != "127.0.0.1:6071" {
		t.Fatalf("unexpected default %q", got)
	}
	cfg.MCPServer.Port = 7000
	if got := resolveMCPAddr("", cfg); got != "127.0.0.1:7000" {
		t.Fatalf("unexpected port address %q", got)
	}
	if got := resolveMCPAddr(":9000", cfg); got != ":9000" {
		t.Fatalf("flag must win, got %q", got)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: &pipeline.Error{Flow: pipeline.FlowQuery, Stage: pipeline.StageRetrieve, Kind: pipeline.ErrInvalidK}, want: exitUsage},
		{err: &pipeline.Error{Flow: pipeline.FlowIngest, Stage: pipeline.StageLoad, Kind: pipeline.ErrUnreadableSource}, want: exitContent},
		{err: &pipeline.Error{Flow: pipeline.FlowQuery, Stage: pipeline.StageGenerate, Kind: pipeline.ErrGenerationFailure}, want: exitUnavailable},
		{err: fmt.Errorf("ingest: %w", &pipeline.Error{Flow: pipeline.FlowIngest, Stage: pipeline.StageEmbed, Kind: pipeline.ErrTimeout}), want: exitUnavailable},
		{err: errors.New("disk full"), want: exitFailure},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("%v: expected exit %d, got %d", tc.err, tc.want, got)
		}
	}
}
