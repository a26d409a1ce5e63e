package board

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"boardflow/remote"
)

// DefaultCommitTimeout bounds how long a remote commit may stay in flight
// before it is cancelled and treated as a failure.
const DefaultCommitTimeout = 10 * time.Second

// Notifier receives the user-visible outcome of a failed optimistic
// mutation. Skipped mutations are intentionally not surfaced.
type Notifier interface {
	MutationFailed(entityID, message string)
}

// Mutation describes one optimistic write against a single entity.
//
// Snapshot must capture the pre-mutation state by value; Revert receives
// that same value back on failure. Reconcile receives the authoritative
// server result on success, which replaces the optimistic value rather
// than merging with it.
type Mutation[T, S any] struct {
	EntityID  string
	Name      string
	Snapshot  func() S
	Apply     func()
	Commit    func(ctx context.Context) (T, error)
	Reconcile func(T)
	Revert    func(S)
}

// Engine applies mutations optimistically and reconciles them with the
// upstream. The local apply happens synchronously before Apply returns;
// the remote commit runs in the background with a bounded timeout.
//
// The only ordering safeguard is a coarse per-entity in-flight guard: a
// mutation targeting an entity whose previous commit is still pending is
// dropped, not queued. That silently discards user intent — an accepted
// simplification, not an operational-transform merge.
type Engine struct {
	timeout  time.Duration
	notifier Notifier
	logger   *log.Logger

	mu       sync.Mutex
	inflight map[string]struct{}

	skipped atomic.Int64
	wg      sync.WaitGroup
}

// NewEngine creates an engine. notifier may be nil.
func NewEngine(timeout time.Duration, notifier Notifier, logger *log.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultCommitTimeout
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Engine{
		timeout:  timeout,
		notifier: notifier,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Skipped reports how many mutations the in-flight guard has dropped.
func (e *Engine) Skipped() int64 { return e.skipped.Load() }

// Wait blocks until every in-flight commit has settled.
func (e *Engine) Wait() { e.wg.Wait() }

// InFlight reports whether a commit for the entity is pending.
func (e *Engine) InFlight(entityID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inflight[entityID]
	return ok
}

func (e *Engine) begin(entityID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[entityID]; busy {
		return false
	}
	e.inflight[entityID] = struct{}{}
	return true
}

func (e *Engine) end(entityID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, entityID)
}

// Apply runs the optimistic protocol for m. It returns false when the
// in-flight guard dropped the mutation; otherwise the local state has
// already been mutated by the time it returns, and the remote commit
// settles in the background.
func Apply[T, S any](e *Engine, m Mutation[T, S]) bool {
	if !e.begin(m.EntityID) {
		e.skipped.Add(1)
		e.logger.WithFields(log.Fields{
			"entity":   m.EntityID,
			"mutation": m.Name,
		}).Debug("mutation dropped, prior commit still in flight")
		return false
	}

	snapshot := m.Snapshot()
	m.Apply()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.end(m.EntityID)

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		result, err := m.Commit(ctx)
		if err != nil {
			m.Revert(snapshot)
			e.logger.WithError(err).WithFields(log.Fields{
				"entity":   m.EntityID,
				"mutation": m.Name,
			}).Warn("remote commit failed, reverted local state")
			if e.notifier != nil {
				e.notifier.MutationFailed(m.EntityID, failureMessage(err))
			}
			return
		}
		m.Reconcile(result)
	}()
	return true
}

func failureMessage(err error) string {
	switch {
	case remote.IsRateLimit(err):
		return "Too many requests. Your change was not saved."
	case remote.IsNotFound(err):
		return "This item no longer exists. Your change was not saved."
	default:
		return "Could not save your change. Please try again."
	}
}
