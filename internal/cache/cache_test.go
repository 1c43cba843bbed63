package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache("test")
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if b, err := c.Get(ctx, "k"); err != nil || string(b) != "v" {
		t.Fatalf("get: %q %v", b, err)
	}
	now = now.Add(time.Minute)
	if _, err := c.Get(ctx, "k"); err != ErrMiss {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache("test")
	type payload struct{ N int }

	if _, found, err := GetJSON[payload](ctx, c, "absent"); err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}
	if err := SetJSON(ctx, c, c.GenerateKey("p", "1"), payload{N: 7}, 0); err != nil {
		t.Fatal(err)
	}
	got, found, err := GetJSON[payload](ctx, c, "test:p:1")
	if err != nil || !found || got.N != 7 {
		t.Fatalf("unexpected %+v %v %v", got, found, err)
	}
	if err := c.Delete(ctx, "test:p:1"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := GetJSON[payload](ctx, c, "test:p:1"); found {
		t.Fatalf("expected deleted")
	}
}

func TestMemoryCache_EvictsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache("test")
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "read", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := c.Set(ctx, fmt.Sprintf("idle-%d", i), []byte("v"), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)

	// чтение истёкшего ключа удаляет его
	if _, err := c.Get(ctx, "read"); err != ErrMiss {
		t.Fatalf("expected miss, got %v", err)
	}
	if _, ok := c.entries["read"]; ok {
		t.Fatal("expired entry kept after read")
	}

	// ключи, которые больше не читают, вычищаются периодически на Set
	for i := 0; i < sweepEvery; i++ {
		if err := c.Set(ctx, "fresh", []byte("v"), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if len(c.entries) != 2 {
		t.Fatalf("expected only fresh and forever, got %d entries", len(c.entries))
	}
	if _, err := c.Get(ctx, "forever"); err != nil {
		t.Fatalf("entry without ttl evicted: %v", err)
	}
}
