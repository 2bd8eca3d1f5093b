package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestOpen(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	c, err := Open(s.Addr(), 3)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if got := c.Options().DB; got != 3 {
		t.Fatalf("client DB = %d, want 3", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.Set(ctx, "probe", "ok", 0).Err(); err != nil {
		t.Fatalf("SET err: %v", err)
	}
	v, err := c.Get(ctx, "probe").Result()
	if err != nil {
		t.Fatalf("GET err: %v", err)
	}
	if v != "ok" {
		t.Fatalf("GET value = %q, want %q", v, "ok")
	}
}

func TestOpen_BadAddr(t *testing.T) {
	if _, err := Open("no-such-redis-host:6379", 0); err == nil {
		t.Fatal("expected error, got nil")
	}
}
