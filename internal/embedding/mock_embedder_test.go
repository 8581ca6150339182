package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/chotto/internal/config"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()

	a, err := e.Embed(ctx, "data analysis")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "data analysis")
	c, _ := e.Embed(ctx, "project management")
	if len(a) != 16 {
		t.Fatalf("len = %d", len(a))
	}
	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at %d", i)
		}
		if a[i] != c[i] {
			same = false
		}
	}
	if same {
		t.Error("different texts produced the same embedding")
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestMockEmbedder_EmptyText(t *testing.T) {
	e := NewMockEmbedder(8)
	if _, err := e.Embed(context.Background(), " \n"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
	if e.Dimensions() != 8 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
	if NewMockEmbedder(0).Dimensions() != 384 {
		t.Error("expected default of 384 dimensions")
	}
}

func TestNewFromConfig(t *testing.T) {
	emb, err := NewFromConfig(&config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 12}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := emb.(*MockEmbedder); !ok {
		t.Errorf("got %T, want *MockEmbedder", emb)
	}
	if emb.Dimensions() != 12 {
		t.Errorf("Dimensions = %d", emb.Dimensions())
	}

	cached, err := NewFromConfig(&config.EmbeddingConfig{Provider: config.ProviderMock, Dimensions: 12, CacheSize: 10}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cached.(*CachedEmbedder); !ok {
		t.Errorf("got %T, want *CachedEmbedder", cached)
	}

	keyless, err := NewFromConfig(&config.EmbeddingConfig{Provider: config.ProviderOpenAI, Dimensions: 8}, nil)
	if err != nil {
		t.Fatalf("openai without key: %v", err)
	}
	if _, err := keyless.Embed(context.Background(), "go"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("openai without key: Embed err = %v", err)
	}
	if _, err := NewFromConfig(&config.EmbeddingConfig{Provider: "word2vec"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}

	onnx, err := NewFromConfig(&config.EmbeddingConfig{
		Provider: config.ProviderONNX, ModelPath: "/nonexistent/model.onnx", Dimensions: 8,
	}, nil)
	if err != nil {
		t.Fatalf("onnx fallback: %v", err)
	}
	if _, ok := onnx.(*MockEmbedder); !ok {
		t.Errorf("missing onnx model: got %T, want mock fallback", onnx)
	}
}
