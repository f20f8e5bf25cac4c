package store

import (
	"context"
	"testing"
)

func TestMemoryStoreGetPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Get(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.Put(ctx, "a/1", []byte("one")); err != nil {
		t.Fatalf("put: %v", err)
	}
	val, err := s.Get(ctx, "a/1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(val) != "one" {
		t.Fatalf("expected %q, got %q", "one", val)
	}

	// Last writer wins.
	if err := s.Put(ctx, "a/1", []byte("two")); err != nil {
		t.Fatalf("put: %v", err)
	}
	val, _ = s.Get(ctx, "a/1")
	if string(val) != "two" {
		t.Fatalf("expected overwrite, got %q", val)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Put(ctx, "k", []byte("abc"))

	val, _ := s.Get(ctx, "k")
	val[0] = 'x'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryStoreListPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Put(ctx, "stock/suppliers/alpha", nil)
	_ = s.Put(ctx, "stock/suppliers/beta", nil)
	_ = s.Put(ctx, "deals/open/DEAL-1", nil)

	keys, err := s.List(ctx, "stock/suppliers/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
	if keys[0] != "stock/suppliers/alpha" || keys[1] != "stock/suppliers/beta" {
		t.Fatalf("unexpected key order: %v", keys)
	}
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Put(ctx, "k", []byte("v"))

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
