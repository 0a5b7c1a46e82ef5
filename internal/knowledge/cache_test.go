package knowledge

import (
	"context"
	"errors"
	"testing"

	"voiceagent-platform/internal/resilience"
)

type stubProvider struct {
	facts map[string]string
	err   error
}

func (p *stubProvider) Facts(context.Context, string) (map[string]string, error) {
	return p.facts, p.err
}

func newTestCache(p Provider, repo Repository) *Cache {
	return NewCache(p, repo, resilience.NewBreaker("kn", resilience.Settings{}, nil), nil)
}

func TestPreloadThenRead(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{facts: map[string]string{
		"hours":   "Mon-Fri 8-17",
		"address": "12 Elm St",
	}}
	c := newTestCache(provider, NewMemoryRepo())

	n, err := c.Preload(ctx, "c1", "b1")
	if err != nil {
		t.Fatalf("preload: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d facts, want 2", n)
	}

	val, ok, err := c.Fact(ctx, "c1", "hours")
	if err != nil || !ok {
		t.Fatalf("fact: ok=%v err=%v", ok, err)
	}
	if val != "Mon-Fri 8-17" {
		t.Fatalf("fact = %q", val)
	}

	all, err := c.All(ctx, "c1")
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all returned %d facts", len(all))
	}
}

func TestMissingFactIsNotFound(t *testing.T) {
	c := newTestCache(&stubProvider{}, NewMemoryRepo())
	_, ok, err := c.Fact(context.Background(), "c1", "nope")
	if err != nil {
		t.Fatalf("fact: %v", err)
	}
	if ok {
		t.Fatalf("missing key reported as found")
	}
}

func TestProviderFailureDegradesToEmpty(t *testing.T) {
	c := newTestCache(&stubProvider{err: errors.New("backend down")}, NewMemoryRepo())
	n, err := c.Preload(context.Background(), "c1", "b1")
	if err != nil {
		t.Fatalf("provider failure must not block the call: %v", err)
	}
	if n != 0 {
		t.Fatalf("loaded %d facts from a failed provider", n)
	}
}

func TestStoreFailureDegradesToMiss(t *testing.T) {
	repo := NewMemoryRepo()
	repo.Err = errors.New("redis down")
	c := newTestCache(&stubProvider{}, repo)

	_, ok, err := c.Fact(context.Background(), "c1", "hours")
	if err != nil || ok {
		t.Fatalf("degraded read: ok=%v err=%v", ok, err)
	}
	all, err := c.All(context.Background(), "c1")
	if err != nil {
		t.Fatalf("degraded all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("degraded all returned %d facts", len(all))
	}
}

func TestDropRemovesFacts(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(&stubProvider{facts: map[string]string{"k": "v"}}, NewMemoryRepo())
	if _, err := c.Preload(ctx, "c1", "b1"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if err := c.Drop(ctx, "c1"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, ok, _ := c.Fact(ctx, "c1", "k"); ok {
		t.Fatalf("fact survived drop")
	}
}
