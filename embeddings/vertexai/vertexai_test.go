package vertexai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"
)

func TestEmbedder_EmbedDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[{"embeddings":{"values":[0.5,0.5]}},{"embeddings":{"values":[1,0]}}]}`))
	}))
	defer srv.Close()

	emb, err := NewEmbedder("proj", "",
		WithEndpoint(srv.URL),
		WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "token-1", TokenType: "Bearer"})))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	vecs, err := emb.EmbedDocuments(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 1 {
		t.Fatalf("unexpected vectors %v", vecs)
	}
}

func TestNewEmbedder_RequiresProject(t *testing.T) {
	if _, err := NewEmbedder("", ""); err == nil {
		t.Fatalf("expected error for missing project")
	}
}
