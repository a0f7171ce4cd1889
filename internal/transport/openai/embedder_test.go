package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/reelrank/reelrank/internal/domain"
)

func embeddingServer(t *testing.T, vectors [][]float32, promptTokens, totalTokens int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := make([]map[string]any, len(vectors))
		for i, v := range vectors {
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": v}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "test-model",
			"usage":  map[string]any{"prompt_tokens": promptTokens, "total_tokens": totalTokens},
		})
	}))
}

func newTestEmbedder(url string) *Embedder {
	return NewEmbedder(&EmbedderConfig{
		APIKey:   "test",
		BaseURL:  url,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestEmbed(t *testing.T) {
	srv := embeddingServer(t, [][]float32{{1, 2, 3}}, 4, 4)
	defer srv.Close()

	res, err := newTestEmbedder(srv.URL).Embed(context.Background(), "a query")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != 3 || res.Embedding[0] != 1 {
		t.Errorf("Embedding = %v", res.Embedding)
	}
	if res.TotalTokens != 4 {
		t.Errorf("TotalTokens = %d, want 4", res.TotalTokens)
	}
}

func TestEmbed_MeanPoolsMultiVectorResponse(t *testing.T) {
	srv := embeddingServer(t, [][]float32{{1, 0}, {0, 1}}, 8, 8)
	defer srv.Close()

	res, err := newTestEmbedder(srv.URL).Embed(context.Background(), "long text split into segments")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{0.5, 0.5}
	if len(res.Embedding) != 2 || res.Embedding[0] != want[0] || res.Embedding[1] != want[1] {
		t.Errorf("Embedding = %v, want %v", res.Embedding, want)
	}
}

func TestBatchEmbed(t *testing.T) {
	srv := embeddingServer(t, [][]float32{{1, 0}, {0, 1}}, 8, 8)
	defer srv.Close()

	res, err := newTestEmbedder(srv.URL).BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("got %d embeddings, want 2", len(res.Embeddings))
	}
	if res.Embeddings[1][1] != 1 {
		t.Errorf("Embeddings[1] = %v", res.Embeddings[1])
	}
}

func TestBatchEmbed_CountMismatch(t *testing.T) {
	srv := embeddingServer(t, [][]float32{{1, 0}}, 4, 4)
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL).BatchEmbed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("error = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbed_APIErrorWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL).Embed(context.Background(), "a query")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("error = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "request error with detail body",
			err: &openai.RequestError{
				HTTPStatusCode: 404,
				Body:           []byte(`{"detail": "model not found"}`),
			},
			want: "model not found",
		},
		{
			name: "request error with opaque body",
			err: &openai.RequestError{
				HTTPStatusCode: 502,
				Body:           []byte("bad gateway"),
			},
			want: "bad gateway",
		},
		{
			name: "api error",
			err:  &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"},
			want: "rate limited",
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: "embedding request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAPIError(tt.err)
			if !errors.Is(got, domain.ErrEmbeddingProviderError) {
				t.Errorf("not wrapped with ErrEmbeddingProviderError: %v", got)
			}
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", got, tt.want)
			}
		})
	}
}
