package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viant/ragpipe/generation"
)

func TestGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != generateEndpoint {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Stream || req.Model != "mistral" || req.Prompt != "p" {
			t.Errorf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "answer", Done: true})
	}))
	defer srv.Close()

	got, err := New("mistral", WithBaseURL(srv.URL+"/")).Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "answer" {
		t.Fatalf("unexpected answer %q", got)
	}
}

func TestGenerator_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model == "missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Done: true})
	}))
	defer srv.Close()

	if _, err := New("missing", WithBaseURL(srv.URL)).Generate(context.Background(), "p"); err == nil {
		t.Fatalf("expected error for missing model")
	}
	_, err := New("empty", WithBaseURL(srv.URL)).Generate(context.Background(), "p")
	if !errors.Is(err, generation.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
