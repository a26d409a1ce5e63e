// Package storage holds the board's local state layers: an in-process
// TTL+LRU cache for fast reads and a best-effort Redis mirror used as a
// same-session fallback. Neither layer is ever the source of truth.
package storage

import (
	"container/list"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"boardflow/domain"
)

const (
	// DefaultTTL bounds how long a cached value may be served without a
	// refresh from upstream.
	DefaultTTL = 5 * time.Minute
	// DefaultCapacity bounds entries per namespace before LRU eviction.
	DefaultCapacity = 50
	// DefaultSweepInterval is how often expired entries are proactively
	// removed.
	DefaultSweepInterval = time.Minute
)

type storeEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Store is one cache namespace: a fixed-capacity LRU with per-entry TTL.
// Reads and writes both count as a touch. Get on an expired entry is a
// miss even while the entry is still physically present. Operations never
// fail; a miss is a normal outcome.
type Store[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[string]*list.Element
	order    *list.List // front = most recently touched
}

// NewStore creates a namespace with the given capacity and TTL.
func NewStore[V any](capacity int, ttl time.Duration) *Store[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached value and whether it was a live hit.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	elem, ok := s.items[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*storeEntry[V])
	if !s.now().Before(ent.expiresAt) {
		s.removeLocked(elem)
		return zero, false
	}
	s.order.MoveToFront(elem)
	return ent.value, true
}

// Put stores a value, resetting its TTL, and evicts the least recently
// touched entry when the namespace is over capacity.
func (s *Store[V]) Put(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expires := s.now().Add(s.ttl)
	if elem, ok := s.items[key]; ok {
		ent := elem.Value.(*storeEntry[V])
		ent.value = value
		ent.expiresAt = expires
		s.order.MoveToFront(elem)
		return
	}
	elem := s.order.PushFront(&storeEntry[V]{key: key, value: value, expiresAt: expires})
	s.items[key] = elem
	if s.order.Len() > s.capacity {
		if back := s.order.Back(); back != nil {
			s.removeLocked(back)
		}
	}
}

// Delete removes the entry if present.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.items[key]; ok {
		s.removeLocked(elem)
	}
}

// Invalidate is Delete under the name the read path uses after a mutation.
func (s *Store[V]) Invalidate(key string) { s.Delete(key) }

// Len reports live plus expired-but-unswept entries.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *Store[V]) removeLocked(elem *list.Element) {
	ent := elem.Value.(*storeEntry[V])
	delete(s.items, ent.key)
	s.order.Remove(elem)
}

func (s *Store[V]) purgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for elem := s.order.Back(); elem != nil; {
		prev := elem.Prev()
		ent := elem.Value.(*storeEntry[V])
		if !now.Before(ent.expiresAt) {
			s.removeLocked(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Options configures a Cache.
type Options struct {
	Capacity      int
	TTL           time.Duration
	SweepInterval time.Duration
	Logger        *log.Logger
}

// Cache bundles the board's cache namespaces and runs the background sweep
// that evicts expired entries across all of them. The sweeper starts with
// the cache and stops on Close; there is no hidden global instance — the
// composition root owns the lifecycle.
type Cache struct {
	Projects   *Store[[]domain.Project]
	Tasks      *Store[domain.Task]
	TaskLists  *Store[[]domain.Task]
	FieldLists *Store[[]domain.CustomField]

	logger    *log.Logger
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewCache creates the namespaces and starts the sweeper.
func NewCache(opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	c := &Cache{
		Projects:   NewStore[[]domain.Project](opts.Capacity, opts.TTL),
		Tasks:      NewStore[domain.Task](opts.Capacity, opts.TTL),
		TaskLists:  NewStore[[]domain.Task](opts.Capacity, opts.TTL),
		FieldLists: NewStore[[]domain.CustomField](opts.Capacity, opts.TTL),
		logger:     opts.Logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go c.sweep(opts.SweepInterval)
	return c
}

// Close stops the sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
}

func (c *Cache) sweep(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			removed := c.Projects.purgeExpired() +
				c.Tasks.purgeExpired() +
				c.TaskLists.purgeExpired() +
				c.FieldLists.purgeExpired()
			if removed > 0 {
				c.logger.WithField("entries", removed).Debug("cache sweep evicted expired entries")
			}
		}
	}
}
