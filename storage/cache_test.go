package storage

import (
	"testing"
	"time"

	"boardflow/domain"
)

func newClockedStore(t *testing.T, capacity int, ttl time.Duration) (*Store[string], *time.Time) {
	t.Helper()
	s := NewStore[string](capacity, ttl)
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStoreTTLBoundary(t *testing.T) {
	s, now := newClockedStore(t, 10, time.Minute)
	s.Put("k", "v")

	// Just inside the TTL: hit.
	*now = now.Add(time.Minute - time.Millisecond)
	if v, ok := s.Get("k"); !ok || v != "v" {
		t.Fatalf("expected hit at T-ε, got ok=%v", ok)
	}

	// Just past the TTL: miss, even though the entry is still present.
	*now = now.Add(2 * time.Millisecond)
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected miss at T+ε")
	}
}

func TestStoreLRUEvictsLeastRecentlyTouched(t *testing.T) {
	s, _ := newClockedStore(t, 3, time.Hour)
	s.Put("k1", "a")
	s.Put("k2", "b")
	s.Put("k3", "c")

	// Reading k1 makes k2 the coldest entry.
	if _, ok := s.Get("k1"); !ok {
		t.Fatal("k1 missing before eviction")
	}
	s.Put("k4", "d")

	if _, ok := s.Get("k2"); ok {
		t.Fatal("k2 should have been evicted")
	}
	for _, k := range []string{"k1", "k3", "k4"} {
		if _, ok := s.Get(k); !ok {
			t.Fatalf("%s unexpectedly evicted", k)
		}
	}
}

func TestStoreWriteCountsAsTouch(t *testing.T) {
	s, _ := newClockedStore(t, 3, time.Hour)
	s.Put("k1", "a")
	s.Put("k2", "b")
	s.Put("k3", "c")
	s.Put("k1", "a2") // rewrite: k1 becomes hottest, k2 coldest
	s.Put("k4", "d")

	if _, ok := s.Get("k2"); ok {
		t.Fatal("k2 should have been evicted")
	}
	if v, ok := s.Get("k1"); !ok || v != "a2" {
		t.Fatalf("k1 = %q ok=%v, want rewritten value", v, ok)
	}
}

func TestStoreDeleteAndInvalidate(t *testing.T) {
	s, _ := newClockedStore(t, 3, time.Hour)
	s.Put("k1", "a")
	s.Delete("k1")
	if _, ok := s.Get("k1"); ok {
		t.Fatal("deleted key still present")
	}
	// Deleting a missing key is a no-op, not an error.
	s.Delete("nope")
	s.Invalidate("nope")
}

func TestStorePurgeExpired(t *testing.T) {
	s, now := newClockedStore(t, 10, time.Minute)
	s.Put("old", "a")
	*now = now.Add(30 * time.Second)
	s.Put("fresh", "b")
	*now = now.Add(45 * time.Second) // "old" expired, "fresh" still live

	if removed := s.purgeExpired(); removed != 1 {
		t.Fatalf("purged %d entries, want 1", removed)
	}
	if _, ok := s.Get("fresh"); !ok {
		t.Fatal("live entry purged")
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestCacheSweeperEvictsExpiredEntries(t *testing.T) {
	c := NewCache(Options{Capacity: 10, TTL: 5 * time.Millisecond, SweepInterval: 10 * time.Millisecond})
	t.Cleanup(c.Close)

	c.TaskLists.Put("p1", []domain.Task{{ID: "t1"}})
	c.FieldLists.Put("p1", []domain.CustomField{{ID: "f1"}})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.TaskLists.Len() == 0 && c.FieldLists.Len() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sweeper left %d task lists and %d field lists", c.TaskLists.Len(), c.FieldLists.Len())
}

func TestCacheCloseIsIdempotent(t *testing.T) {
	c := NewCache(Options{Capacity: 1, TTL: time.Minute, SweepInterval: time.Hour})
	c.Close()
	c.Close()
}
