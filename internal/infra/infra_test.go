package infra

import (
	"context"
	"testing"
	"time"
)

func TestCacheTypedRoundTrip(t *testing.T) {
	type bundle struct{ Ticker string }
	c := NewCache[*bundle](time.Minute)

	if _, ok := c.Get("AAPL"); ok {
		t.Fatal("empty cache reported a hit")
	}

	c.Put("AAPL", &bundle{Ticker: "AAPL"})
	got, ok := c.Get("AAPL")
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if got.Ticker != "AAPL" {
		t.Errorf("Ticker: got %q, want %q", got.Ticker, "AAPL")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache[string](time.Minute)

	c.PutFor("quote", "stale", -time.Second)
	if _, ok := c.Get("quote"); ok {
		t.Error("expired entry returned on Get")
	}

	c.PutFor("quote", "fresh", time.Minute)
	if v, ok := c.Get("quote"); !ok || v != "fresh" {
		t.Errorf("Get after refresh: got %q, %v; want %q, true", v, ok, "fresh")
	}
}

func TestCachePerEntryLifetime(t *testing.T) {
	c := NewCache[int](time.Minute)

	c.Put("short", 1)
	c.PutFor("long", 2, time.Hour)

	if _, ok := c.Get("short"); !ok {
		t.Error("default-lifetime entry missing")
	}
	if v, ok := c.Get("long"); !ok || v != 2 {
		t.Errorf("long-lived entry: got %d, %v; want 2, true", v, ok)
	}
}

func TestCacheDrop(t *testing.T) {
	c := NewCache[int](time.Minute)
	c.Put("k", 42)
	c.Drop("k")
	if _, ok := c.Get("k"); ok {
		t.Error("dropped entry returned")
	}
}

func TestThrottleAllowsBurst(t *testing.T) {
	th := NewThrottle(3)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := th.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestThrottleHonorsContext(t *testing.T) {
	th := NewThrottle(1)
	if err := th.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := th.Wait(ctx); err == nil {
		t.Fatal("Wait with cancelled context and an empty bucket returned nil")
	}
}
