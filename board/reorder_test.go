package board

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"boardflow/domain"
	"boardflow/remote"
)

type recordingReorderer struct {
	chunks [][]string
	fail   int // 1-based chunk index to fail on, 0 = never
}

func (r *recordingReorderer) ReorderTasks(ctx context.Context, ids []string, orders []int) error {
	r.chunks = append(r.chunks, append([]string(nil), ids...))
	if r.fail > 0 && len(r.chunks) == r.fail {
		return errors.New("chunk rejected")
	}
	return nil
}

func TestSubmitReorderLengthMismatchFailsFast(t *testing.T) {
	rec := &recordingReorderer{}
	s := NewSubmitter(rec, nil)

	err := s.SubmitReorder(context.Background(), []string{"a", "b"}, []int{1})
	if !remote.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(rec.chunks) != 0 {
		t.Fatalf("expected zero remote calls, got %d", len(rec.chunks))
	}
}

func TestSubmitReorderChunks(t *testing.T) {
	rec := &recordingReorderer{}
	s := NewSubmitter(rec, nil)

	n := 120
	ids := make([]string, n)
	orders := make([]int, n)
	for i := 0; i < n; i++ {
		ids[i] = "t" + strconv.Itoa(i)
		orders[i] = i * 10
	}
	if err := s.SubmitReorder(context.Background(), ids, orders); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(rec.chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(rec.chunks))
	}
	sizes := []int{len(rec.chunks[0]), len(rec.chunks[1]), len(rec.chunks[2])}
	if sizes[0] != 50 || sizes[1] != 50 || sizes[2] != 20 {
		t.Fatalf("unexpected chunk sizes: %v", sizes)
	}
	if rec.chunks[2][19] != "t119" {
		t.Fatalf("last chunk misordered: %v", rec.chunks[2])
	}
}

func TestSubmitReorderChunkFailureFailsWholeBatch(t *testing.T) {
	rec := &recordingReorderer{fail: 2}
	s := NewSubmitter(rec, nil)

	ids := make([]string, 120)
	orders := make([]int, 120)
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	err := s.SubmitReorder(context.Background(), ids, orders)
	if err == nil {
		t.Fatal("expected batch failure")
	}
	// The failing chunk aborts the batch; no trailing chunk is attempted.
	if len(rec.chunks) != 2 {
		t.Fatalf("expected submission to stop after failing chunk, got %d chunks", len(rec.chunks))
	}
}

func TestBoardReorderValidationIssuesNoRemoteCalls(t *testing.T) {
	var calls int
	stub := &stubPersistence{
		reorderTasksFn: func(ctx context.Context, ids []string, orders []int) error {
			calls++
			return nil
		},
	}
	f := newBoardFixture(t, stub, time.Second)

	_, err := f.board.Reorder("p1", []string{"a"}, []int{1, 2})
	if !remote.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	f.engine.Wait()
	if calls != 0 {
		t.Fatalf("expected zero remote calls, got %d", calls)
	}
}

func TestBoardReorderAppliesOptimisticallyAndRevertsOnFailure(t *testing.T) {
	stub := &stubPersistence{
		listTasksFn: func(ctx context.Context, projectID string) ([]domain.Task, error) {
			return seedTasks(map[string]int{"t1": 0, "t2": 1000}, domain.StatusTodo), nil
		},
		reorderTasksFn: func(ctx context.Context, ids []string, orders []int) error {
			return &remote.TransportError{Op: "tasks.reorder", Err: errors.New("boom")}
		},
	}
	f := newBoardFixture(t, stub, time.Second)
	ctx := context.Background()
	if _, err := f.board.Tasks(ctx, "p1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	ok, err := f.board.Reorder("p1", []string{"t1", "t2"}, []int{2000, 100})
	if err != nil || !ok {
		t.Fatalf("reorder rejected: ok=%v err=%v", ok, err)
	}

	tasks, _ := f.board.Tasks(ctx, "p1")
	if tasks[0].ID != "t2" {
		t.Fatalf("optimistic reorder not applied: first task %s", tasks[0].ID)
	}

	f.engine.Wait()
	tasks, _ = f.board.Tasks(ctx, "p1")
	if tasks[0].ID != "t1" || tasks[0].Order != 0 {
		t.Fatalf("reorder not reverted: %#v", tasks)
	}
}
