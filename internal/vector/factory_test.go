package vector

import (
	"context"
	"testing"
)

func TestNewVectorIndex_Memory(t *testing.T) {
	for _, typ := range []string{"memory", ""} {
		idx, err := NewVectorIndex(context.Background(), typ, 3, nil)
		if err != nil {
			t.Fatalf("NewVectorIndex(%q): %v", typ, err)
		}
		if idx.Type() != "memory" {
			t.Errorf("Type() = %s", idx.Type())
		}
		_ = idx.Close()
	}
}

func TestNewVectorIndex_RedisRequiresConfig(t *testing.T) {
	if _, err := NewVectorIndex(context.Background(), "redis", 3, nil); err == nil {
		t.Error("expected error without redis config")
	}
	if _, err := NewVectorIndex(context.Background(), "redis", 3, &RedisConfig{}); err == nil {
		t.Error("expected error without addrs")
	}
}

func TestNewVectorIndex_Unknown(t *testing.T) {
	if _, err := NewVectorIndex(context.Background(), "faiss", 3, nil); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{2, 4}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}
