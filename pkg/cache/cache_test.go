package cache

import (
	"testing"
	"time"
)

func TestSetGetExpire(t *testing.T) {
	c := New(10)

	c.Set("k", "v", 50*time.Millisecond)
	if v, ok := c.Get("k"); !ok || v.(string) != "v" {
		t.Fatalf("expected hit with value v, got %v %v", v, ok)
	}

	time.Sleep(70 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}
}

func TestLRUEviction(t *testing.T) {
	c := New(2)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Get("a") // a becomes MRU
	c.Set("c", 3, 0)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected LRU entry b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c to be present")
	}
}

func TestKeyFromStringsIsStable(t *testing.T) {
	if KeyFromStrings("a", "b") != KeyFromStrings("a", "b") {
		t.Fatal("expected identical parts to produce identical keys")
	}
	if KeyFromStrings("a", "b") == KeyFromStrings("ab") {
		t.Fatal("expected part boundaries to matter")
	}
}
