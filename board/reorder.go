package board

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"boardflow/domain"
	"boardflow/remote"
)

// ReorderChunkSize bounds how many (id, order) pairs go into one upstream
// request.
const ReorderChunkSize = 50

// Reorderer persists order values upstream.
type Reorderer interface {
	ReorderTasks(ctx context.Context, ids []string, orders []int) error
}

// Submitter persists a full reordered list as one logical batch, chunked
// internally. Any chunk failure fails the whole batch; there is no partial
// success reporting, the caller reverts its optimistic list state.
type Submitter struct {
	remote Reorderer
	chunk  int
	logger *log.Logger
}

// NewSubmitter creates a submitter with the default chunk size.
func NewSubmitter(remote Reorderer, logger *log.Logger) *Submitter {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Submitter{remote: remote, chunk: ReorderChunkSize, logger: logger}
}

// SubmitReorder sends the (id, order) pairs. A length mismatch fails fast
// before any remote call.
func (s *Submitter) SubmitReorder(ctx context.Context, ids []string, orders []int) error {
	if len(ids) != len(orders) {
		return &remote.ValidationError{
			Reason: fmt.Sprintf("reorder: %d ids but %d orders", len(ids), len(orders)),
		}
	}
	if len(ids) == 0 {
		return nil
	}
	for start := 0; start < len(ids); start += s.chunk {
		end := start + s.chunk
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.remote.ReorderTasks(ctx, ids[start:end], orders[start:end]); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"chunk_start": start,
				"chunk_end":   end,
				"total":       len(ids),
			}).Warn("reorder chunk failed, batch abandoned")
			return fmt.Errorf("reorder chunk %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// Reorder applies a full-list reorder optimistically and submits it as a
// batch. The returned bool is false when a reorder for the project is
// already in flight or the project's list has not been loaded; the error
// reports a precondition failure, which issues no remote calls and mutates
// nothing.
func (b *Board) Reorder(projectID string, ids []string, orders []int) (bool, error) {
	if len(ids) != len(orders) {
		return false, &remote.ValidationError{
			Reason: fmt.Sprintf("reorder: %d ids but %d orders", len(ids), len(orders)),
		}
	}
	if !b.listCached(projectID) {
		return false, nil
	}
	byID := make(map[string]int, len(ids))
	for i, id := range ids {
		byID[id] = orders[i]
	}
	submitter := NewSubmitter(b.remote, b.logger)
	ok := Apply(b.engine, Mutation[struct{}, []domain.Task]{
		EntityID: "reorder:" + projectID,
		Name:     "tasks.reorder",
		Snapshot: func() []domain.Task { return b.snapshotTasks(projectID) },
		Apply: func() {
			b.withTasks(projectID, func(tasks []domain.Task) []domain.Task {
				for i := range tasks {
					if order, ok := byID[tasks[i].ID]; ok {
						tasks[i].Order = order
						tasks[i].UpdatedAt = b.now()
					}
				}
				return tasks
			})
		},
		Commit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, submitter.SubmitReorder(ctx, ids, orders)
		},
		Reconcile: func(struct{}) {},
		Revert:    func(snapshot []domain.Task) { b.restoreTasks(projectID, snapshot) },
	})
	return ok, nil
}
