package cache

import (
	"testing"
	"time"
)

func TestMemory_GetSet(t *testing.T) {
	c := NewMemory()

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache returned a value")
	}

	c.Set("k", "v", time.Minute)
	got, ok := c.Get("k")
	if !ok {
		t.Fatal("Get returned no value for live entry")
	}
	if got != "v" {
		t.Errorf("Get = %v, want v", got)
	}
}

func TestMemory_Expiry(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	c.Set("k", "v", time.Minute)

	now = now.Add(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry expired before its TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("entry still live after its TTL")
	}
	if _, exists := c.entries["k"]; exists {
		t.Error("expired entry not dropped on read")
	}
}

func TestMemory_SetSweepsExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemory()
	c.now = func() time.Time { return now }

	c.Set("stale", "v", time.Second)
	now = now.Add(time.Hour)
	c.Set("fresh", "v", time.Minute)

	if _, exists := c.entries["stale"]; exists {
		t.Error("write did not sweep the expired entry")
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry missing after sweep")
	}
}

func TestMemory_NonPositiveTTL(t *testing.T) {
	c := NewMemory()
	c.Set("k", "v", 0)
	if _, ok := c.Get("k"); ok {
		t.Error("zero-TTL Set stored a value")
	}
	c.Set("k", "v", -time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("negative-TTL Set stored a value")
	}
}

func TestNone(t *testing.T) {
	var c Cache = None{}
	c.Set("k", "v", time.Hour)
	if _, ok := c.Get("k"); ok {
		t.Error("None cache returned a stored value")
	}
}
