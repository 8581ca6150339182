package embedding

import (
	"context"
	"errors"
	"testing"
)

func TestEmbeddingCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("Go", []float32{1})
	c.Set("Python", []float32{2})
	if _, ok := c.Get("Go"); !ok {
		t.Fatal("expected hit for Go")
	}
	c.Set("Rust", []float32{3})
	if _, ok := c.Get("Python"); ok {
		t.Error("Python should have been evicted")
	}
	if v, ok := c.Get("Go"); !ok || v[0] != 1 {
		t.Errorf("Go = %v, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

type countingEmbedder struct {
	*MockEmbedder
	calls int
	fail  bool
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.fail {
		return nil, ErrProvider
	}
	return c.MockEmbedder.Embed(ctx, text)
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := NewCachedEmbedder(inner, 10)

	a, err := e.Embed(ctx, "Data analysis")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Embed(ctx, "Data analysis")
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if len(a) != 8 || &a[0] != &b[0] {
		t.Error("second call should return the cached vector")
	}
	if e.Dimensions() != 8 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}

	inner.fail = true
	for i := 0; i < 2; i++ {
		if _, err := e.Embed(ctx, "Kubernetes"); !errors.Is(err, ErrProvider) {
			t.Fatalf("err = %v, want ErrProvider", err)
		}
	}
	if inner.calls != 3 {
		t.Errorf("failures must not be cached: inner calls = %d, want 3", inner.calls)
	}
}
