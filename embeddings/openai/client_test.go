package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/viant/ragpipe/embeddings"
)

func TestEmbedder_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != "text-embedding-3-small" || len(body.Input) != 2 {
			t.Errorf("unexpected request %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
"data":[{"object":"embedding","index":1,"embedding":[0,1]},{"object":"embedding","index":0,"embedding":[1,0]}],
"usage":{"prompt_tokens":7,"total_tokens":7}}`))
	}))
	defer srv.Close()

	emb := NewEmbedder("test-key", "", WithBaseURL(srv.URL))
	if emb.Model() != "text-embedding-3-small" {
		t.Fatalf("unexpected default model %s", emb.Model())
	}
	vecs, tokens, err := emb.EmbedDocumentsWithUsage(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if tokens != 7 {
		t.Fatalf("expected 7 tokens, got %d", tokens)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("vectors not ordered by index: %v", vecs)
	}
}

func TestEmbedder_APIErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	_, err := NewEmbedder("k", "m", WithBaseURL(srv.URL)).EmbedQuery(context.Background(), "q")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected API error, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestEmbedder_VectorCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m",
"data":[{"object":"embedding","index":0,"embedding":[1,0]}],
"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	_, err := NewEmbedder("k", "m", WithBaseURL(srv.URL)).EmbedDocuments(context.Background(), []string{"a", "b"})
	if !errors.Is(err, embeddings.ErrVectorCount) {
		t.Fatalf("expected ErrVectorCount, got %v", err)
	}
}
