package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viant/ragpipe/embeddings"
	"github.com/viant/ragpipe/internal/ollamaapi"
)

func TestEmbedder_EmbedDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != embedEndpoint {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		out := embedResponse{PromptEvalCount: len(req.Input) * 2}
		for i := range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(i), 1})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	emb := NewEmbedder("", WithBaseURL(srv.URL))
	if emb.Model() != defaultModel {
		t.Fatalf("expected default model, got %s", emb.Model())
	}
	vecs, tokens, err := emb.EmbedDocumentsWithUsage(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 3 || vecs[2][0] != 2 || tokens != 6 {
		t.Fatalf("unexpected vectors %v tokens %d", vecs, tokens)
	}
	if vecs, err := emb.EmbedDocuments(context.Background(), nil); err != nil || vecs != nil {
		t.Fatalf("expected no request for an empty batch, got %v %v", vecs, err)
	}
}

func TestEmbedder_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model == "missing" {
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 0}}})
	}))
	defer srv.Close()

	_, err := NewEmbedder("missing", WithBaseURL(srv.URL)).EmbedQuery(context.Background(), "q")
	var apiErr *ollamaapi.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "model not found" {
		t.Fatalf("expected server error, got %v", err)
	}
	_, err = NewEmbedder("short", WithBaseURL(srv.URL)).EmbedDocuments(context.Background(), []string{"a", "b"})
	if !errors.Is(err, embeddings.ErrVectorCount) {
		t.Fatalf("expected ErrVectorCount, got %v", err)
	}
}
