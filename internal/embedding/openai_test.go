package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// newEmbeddingServer answers /embeddings with one vector per input, [i+1, i+2, ...]
// and records the last decoded request.
func newEmbeddingServer(t *testing.T, dims int, last *embeddingRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if last != nil {
			*last = req
		}
		resp := embeddingResponse{Object: "list", Model: req.Model}
		// Reverse order to check that EmbedBatch places vectors by index.
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]float32, dims)
			for j := range vec {
				vec[j] = float32(i + j + 1)
			}
			resp.Data = append(resp.Data, embeddingData{Object: "embedding", Embedding: vec, Index: i})
		}
		resp.Usage.TotalTokens = 3 * len(req.Input)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAIEmbedder(t *testing.T, baseURL, model string, dims int) *OpenAIEmbedder {
	t.Helper()
	emb, err := NewOpenAIEmbedder(&OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      model,
		Dimensions: dims,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder: %v", err)
	}
	return emb
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var last embeddingRequest
	srv := newEmbeddingServer(t, 4, &last)
	emb := newTestOpenAIEmbedder(t, srv.URL, "text-embedding-3-small", 4)

	vec, err := emb.Embed(context.Background(), "data analysis")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	want := []float32{1, 2, 3, 4}
	if len(vec) != len(want) {
		t.Fatalf("len = %d, want %d", len(vec), len(want))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %f, want %f", i, vec[i], want[i])
		}
	}
	if last.Model != "text-embedding-3-small" || last.Dimensions != 4 {
		t.Errorf("request = %+v", last)
	}
	if emb.Dimensions() != 4 {
		t.Errorf("Dimensions = %d", emb.Dimensions())
	}
}

func TestOpenAIEmbedder_AdaOmitsDimensions(t *testing.T) {
	var last embeddingRequest
	srv := newEmbeddingServer(t, 3, &last)
	emb := newTestOpenAIEmbedder(t, srv.URL, "", 1536)

	if _, err := emb.Embed(context.Background(), "go"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if last.Model != "text-embedding-ada-002" {
		t.Errorf("model = %q, want ada default", last.Model)
	}
	if last.Dimensions != 0 {
		t.Errorf("dimensions sent for ada: %d", last.Dimensions)
	}
}

func TestOpenAIEmbedder_EmbedBatchKeepsOrder(t *testing.T) {
	srv := newEmbeddingServer(t, 2, nil)
	emb := newTestOpenAIEmbedder(t, srv.URL, "text-embedding-3-small", 2)

	vecs, err := emb.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("len = %d", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vecs[%d][0] = %f, want %d", i, v[0], i+1)
		}
	}

	empty, err := emb.EmbedBatch(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty batch = %v, %v", empty, err)
	}
}

func TestOpenAIEmbedder_EmptyText(t *testing.T) {
	emb := newTestOpenAIEmbedder(t, "http://127.0.0.1:0", "", 0)

	if _, err := emb.Embed(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Embed blank: err = %v", err)
	}
	if _, err := emb.EmbedBatch(context.Background(), []string{"ok", ""}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("EmbedBatch blank: err = %v", err)
	}
}

func TestOpenAIEmbedder_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()
	emb := newTestOpenAIEmbedder(t, srv.URL, "", 0)

	_, err := emb.Embed(context.Background(), "go")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("err = %v, want ErrProvider", err)
	}
}

func TestOpenAIEmbedder_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[],"model":"m"}`))
	}))
	defer srv.Close()
	emb := newTestOpenAIEmbedder(t, srv.URL, "", 0)

	if _, err := emb.Embed(context.Background(), "go"); !errors.Is(err, ErrNoEmbedding) {
		t.Errorf("err = %v, want ErrNoEmbedding", err)
	}
}

func TestOpenAIEmbedder_MissingKeyFailsEachCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent without an API key")
	}))
	defer srv.Close()

	emb, err := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, Dimensions: 4})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder without key: %v", err)
	}
	if _, err := emb.Embed(context.Background(), "go"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Embed err = %v, want ErrMissingAPIKey", err)
	}
	if _, err := emb.EmbedBatch(context.Background(), []string{"go"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("EmbedBatch err = %v, want ErrMissingAPIKey", err)
	}
	if _, err := emb.Embed(context.Background(), " "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("blank text err = %v, want ErrEmptyText", err)
	}
}
