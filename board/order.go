// Package board implements the ordering and optimistic-update core: the
// fractional order allocator, the optimistic mutation engine with revert,
// the drag/drop protocol and the reorder batch submitter.
package board

import "boardflow/domain"

// Position says whether an insertion lands before or after its target.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

const (
	// DefaultOrder is assigned when dropping into an empty list.
	DefaultOrder = 1000
	// OrderGap is the spacing used for boundary insertions. Midpoint
	// halving between dense neighbors can exhaust the gap; there is no
	// renumbering pass, a full reorder restores spacing.
	OrderGap = 1000
)

// ComputeOrder returns the order value for a task inserted relative to
// tasks, which must already be sorted by ascending order. targetIndex
// addresses the task being dropped on; pos selects which side of it the
// insertion lands. Pure and deterministic.
func ComputeOrder(tasks []domain.Task, targetIndex int, pos Position) int {
	if len(tasks) == 0 {
		return DefaultOrder
	}

	prevIdx, nextIdx := targetIndex, targetIndex+1
	if pos == Before {
		prevIdx, nextIdx = targetIndex-1, targetIndex
	}

	if prevIdx < 0 {
		v := tasks[0].Order - OrderGap
		if v < 0 {
			v = 0
		}
		return v
	}
	if nextIdx >= len(tasks) {
		return tasks[len(tasks)-1].Order + OrderGap
	}

	prev := tasks[prevIdx].Order
	next := tasks[nextIdx].Order
	return prev + (next-prev)/2
}

// AppendOrder returns the order value for appending to the end of a list.
func AppendOrder(tasks []domain.Task) int {
	if len(tasks) == 0 {
		return DefaultOrder
	}
	return tasks[len(tasks)-1].Order + OrderGap
}
