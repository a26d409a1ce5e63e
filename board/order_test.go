package board

import (
	"testing"

	"boardflow/domain"
)

func tasksWithOrders(orders ...int) []domain.Task {
	out := make([]domain.Task, len(orders))
	for i, o := range orders {
		out[i] = domain.Task{ID: string(rune('a' + i)), Order: o}
	}
	return out
}

func TestComputeOrderEmptyList(t *testing.T) {
	if got := ComputeOrder(nil, 0, After); got != DefaultOrder {
		t.Fatalf("empty list order = %d, want %d", got, DefaultOrder)
	}
}

func TestComputeOrderMidpointAfter(t *testing.T) {
	// Dropping after the first of [0, 1000, 2000] lands halfway into the gap.
	tasks := tasksWithOrders(0, 1000, 2000)
	if got := ComputeOrder(tasks, 0, After); got != 500 {
		t.Fatalf("order = %d, want 500", got)
	}
}

func TestComputeOrderBeforeShiftsNeighbors(t *testing.T) {
	tasks := tasksWithOrders(0, 1000, 2000)
	// Before index 1 uses the (0, 1000) gap, same slot as after index 0.
	if got := ComputeOrder(tasks, 1, Before); got != 500 {
		t.Fatalf("order = %d, want 500", got)
	}
}

func TestComputeOrderBeforeFirst(t *testing.T) {
	tasks := tasksWithOrders(1500, 3000)
	got := ComputeOrder(tasks, 0, Before)
	if got != 500 {
		t.Fatalf("order = %d, want 500", got)
	}
	if got >= tasks[0].Order {
		t.Fatalf("before-first order %d not below first order %d", got, tasks[0].Order)
	}
}

func TestComputeOrderBeforeFirstClampsAtZero(t *testing.T) {
	tasks := tasksWithOrders(400)
	if got := ComputeOrder(tasks, 0, Before); got != 0 {
		t.Fatalf("order = %d, want 0", got)
	}
}

func TestComputeOrderAfterLast(t *testing.T) {
	tasks := tasksWithOrders(0, 1000, 2000)
	if got := ComputeOrder(tasks, 2, After); got != 3000 {
		t.Fatalf("order = %d, want 3000", got)
	}
}

func TestComputeOrderStrictlyBetweenNeighbors(t *testing.T) {
	tasks := tasksWithOrders(0, 7, 100, 1000, 5000)
	for i := 0; i < len(tasks)-1; i++ {
		got := ComputeOrder(tasks, i, After)
		if got < tasks[i].Order || got >= tasks[i+1].Order {
			t.Fatalf("index %d: order %d not in [%d, %d)", i, got, tasks[i].Order, tasks[i+1].Order)
		}
	}
}

func TestComputeOrderGapExhaustion(t *testing.T) {
	// Adjacent orders leave no room; the midpoint collapses onto the
	// previous value. Accepted limitation: no renumbering pass.
	tasks := tasksWithOrders(10, 11)
	if got := ComputeOrder(tasks, 0, After); got != 10 {
		t.Fatalf("order = %d, want 10", got)
	}
}

func TestAppendOrder(t *testing.T) {
	if got := AppendOrder(nil); got != DefaultOrder {
		t.Fatalf("append to empty = %d, want %d", got, DefaultOrder)
	}
	if got := AppendOrder(tasksWithOrders(0, 2500)); got != 2500+OrderGap {
		t.Fatalf("append order = %d, want %d", got, 2500+OrderGap)
	}
}

func TestHoverPosition(t *testing.T) {
	if got := HoverPosition(10, 0, 40); got != Before {
		t.Fatalf("pointer above midpoint = %s, want before", got)
	}
	if got := HoverPosition(30, 0, 40); got != After {
		t.Fatalf("pointer below midpoint = %s, want after", got)
	}
}
