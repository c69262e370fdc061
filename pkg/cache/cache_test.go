package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGetExpire(t *testing.T) {
	c := NewMemoryCache("reservations").(*memoryCache)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := c.Get(ctx, "k"); got != "v" {
		t.Fatalf("Get = %q, want v", got)
	}

	now = now.Add(2 * time.Minute)
	if got, _ := c.Get(ctx, "k"); got != "" {
		t.Fatalf("expired entry returned %q", got)
	}
	if got, _ := c.Get(ctx, "missing"); got != "" {
		t.Fatalf("miss returned %q", got)
	}
}

func TestGenerateKey(t *testing.T) {
	c := NewMemoryCache("reservations")
	if got := c.GenerateKey("kv", "abc"); got != "reservations:kv:abc" {
		t.Fatalf("GenerateKey = %q", got)
	}
}

func TestMemoryCache_IncrWindow(t *testing.T) {
	c := NewMemoryCache("auth").(*memoryCache)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "login:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Fatalf("Incr = %d, want %d", got, want)
		}
	}

	now = now.Add(61 * time.Second)
	if got, _ := c.Incr(ctx, "login:1.2.3.4", time.Minute); got != 1 {
		t.Fatalf("counter not reset after window, got %d", got)
	}
}
