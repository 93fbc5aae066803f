package embedding

import (
	"context"
	"testing"
)

func TestLRUCacheEviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", []float64{1})
	c.put("b", []float64{2})
	c.put("c", []float64{3})

	if _, ok := c.get("a"); ok {
		t.Fatalf("expected 'a' to be evicted")
	}
	if v, ok := c.get("b"); !ok || v[0] != 2 {
		t.Fatalf("expected 'b' to survive eviction")
	}
	if v, ok := c.get("c"); !ok || v[0] != 3 {
		t.Fatalf("expected 'c' to survive eviction")
	}
}

func TestLRUCacheDisabledWhenCapacityZero(t *testing.T) {
	c := newLRUCache(0)
	c.put("a", []float64{1})
	if _, ok := c.get("a"); ok {
		t.Fatalf("zero-capacity cache should never retain entries")
	}
}

func TestServiceEmbedUnknownModel(t *testing.T) {
	svc := NewService(16)
	_, err := svc.Embed(context.Background(), []string{"hi"}, "nonexistent")
	if err == nil {
		t.Fatalf("expected an error for an unregistered model")
	}
}

func TestServiceSwitchDefaultUnknownModel(t *testing.T) {
	svc := NewService(16)
	if err := svc.SwitchDefault("nope"); err == nil {
		t.Fatalf("expected an error switching to an unregistered model")
	}
}
