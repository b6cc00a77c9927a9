package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Model != ModelAllMiniLM {
			t.Errorf("expected model %s, got %s", ModelAllMiniLM, req.Model)
		}
		if req.Prompt == "" {
			t.Error("expected non-empty prompt")
		}

		json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL))

	vec, err := p.Embed(context.Background(), "The Earth orbits around the Sun")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(vec))
	}
	if vec[1] != float32(0.2) {
		t.Errorf("expected 0.2 at index 1, got %f", vec[1])
	}
}

func TestOllamaProvider_Embed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL))

	_, err := p.Embed(context.Background(), "The Earth orbits around the Sun")
	if err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestOllamaProvider_Embed_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaResponse{})
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL))

	_, err := p.Embed(context.Background(), "The Earth orbits around the Sun")
	if err == nil {
		t.Fatal("expected error on empty embedding")
	}
}

func TestOllamaProvider_EmbedBatch_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		// Echo the prompt length back so the caller can check ordering
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{float64(len(req.Prompt))}})
	}))
	defer srv.Close()

	p := NewOllamaProvider(WithBaseURL(srv.URL), WithMaxConcurrent(2))

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := p.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		if vecs[i][0] != float32(len(text)) {
			t.Errorf("embedding %d out of order: expected %d, got %f", i, len(text), vecs[i][0])
		}
	}
}

func TestOllamaProvider_EmbedBatch_Empty(t *testing.T) {
	p := NewOllamaProvider()

	vecs, err := p.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil result, got %v", vecs)
	}
}

func TestOllamaProvider_Dimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{ModelAllMiniLM, 384},
		{ModelNomicEmbedText, 768},
		{"unknown-model", DimAllMiniLM},
	}

	for _, tt := range tests {
		p := NewOllamaProvider(WithModel(tt.model))
		if got := p.Dimensions(); got != tt.want {
			t.Errorf("model %s: expected %d dimensions, got %d", tt.model, tt.want, got)
		}
	}
}
