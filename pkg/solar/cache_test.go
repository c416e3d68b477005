package solar

import (
	"testing"
	"time"
)

func TestCalculatorResolveMemoizes(t *testing.T) {
	c := NewCalculator()
	loc := time.UTC
	at := time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC)

	first, err := c.Resolve(Sunrise, at, 0, 0, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.mu.Lock()
	entries := len(c.cache)
	c.mu.Unlock()
	if entries != 1 {
		t.Fatalf("expected 1 cache entry after first Resolve, got %d", entries)
	}

	second, err := c.Resolve(Sunrise, at.Add(3*time.Hour), 0, 0, loc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("expected memoized sunrise to be stable across calls on the same day, got %v and %v", first, second)
	}

	c.mu.Lock()
	entries = len(c.cache)
	c.mu.Unlock()
	if entries != 1 {
		t.Errorf("expected the second Resolve on the same day to reuse the cache entry, got %d entries", entries)
	}
}

func TestCalculatorResolvePolarError(t *testing.T) {
	c := NewCalculator()
	at := time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC)
	_, err := c.Resolve(Sunset, at, 70.0, 25.0, time.UTC)
	if err == nil {
		t.Fatal("expected an error for polar-day conditions, got nil")
	}
}

func TestCalculatorPruneEvictsStaleDates(t *testing.T) {
	c := NewCalculator()
	at := time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC)
	if _, err := c.Resolve(Sunrise, at, 10, 10, time.UTC); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Prune(at.AddDate(0, 0, 5))

	c.mu.Lock()
	entries := len(c.cache)
	c.mu.Unlock()
	if entries != 0 {
		t.Errorf("expected Prune to evict the stale entry, got %d remaining", entries)
	}
}

func TestCalculatorPruneKeepsCurrentDate(t *testing.T) {
	c := NewCalculator()
	at := time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC)
	if _, err := c.Resolve(Sunrise, at, 10, 10, time.UTC); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	c.Prune(at.Add(2 * time.Hour))

	c.mu.Lock()
	entries := len(c.cache)
	c.mu.Unlock()
	if entries != 1 {
		t.Errorf("expected Prune to keep today's entry, got %d remaining", entries)
	}
}
