package hubcache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestKey_IsTenantPrefixed(t *testing.T) {
	got := Key("tenant-a", "agent-1", KindInbox)
	want := "tenant-a:agent-1:inbox"
	if got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestCache_DisabledCacheAlwaysMisses(t *testing.T) {
	c := New(nil, zerolog.Nop())
	ctx := context.Background()

	var dest string
	if found := c.Get(ctx, "tenant-a:agent-1:inbox", &dest); found {
		t.Error("expected disabled cache to always miss")
	}

	// Set must not panic even though there is no backing client.
	c.Set(ctx, "tenant-a:agent-1:inbox", "value", time.Minute)
	c.InvalidateTenant(ctx, "tenant-a")
	c.InvalidateAgent(ctx, "tenant-a", "agent-1")
}

func TestNilCache_NeverPanics(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	var dest string
	if found := c.Get(ctx, "k", &dest); found {
		t.Error("expected nil cache to miss")
	}
	c.Set(ctx, "k", "v", time.Minute)
	c.InvalidateTenant(ctx, "tenant-a")
}
