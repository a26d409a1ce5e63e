package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalIncludesZeroOrder(t *testing.T) {
	task := Task{ID: "t1", Title: "Title", Status: StatusTodo, Priority: PriorityLow, Order: 0}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	if !strings.Contains(string(payload), "\"order\":0") {
		t.Fatalf("expected order field to be present, got %s", payload)
	}
}

func TestSortTasksBreaksTiesByID(t *testing.T) {
	tasks := []Task{
		{ID: "b", Order: 100},
		{ID: "a", Order: 100},
		{ID: "c", Order: 50},
	}
	SortTasks(tasks)

	got := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID}
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected sort order: %v", got)
		}
	}
}

func TestTasksInStatusFiltersAndSorts(t *testing.T) {
	tasks := []Task{
		{ID: "t1", Status: StatusTodo, Order: 2000},
		{ID: "t2", Status: StatusDone, Order: 0},
		{ID: "t3", Status: StatusTodo, Order: 1000},
	}

	todo := TasksInStatus(tasks, StatusTodo)
	if len(todo) != 2 {
		t.Fatalf("expected 2 todo tasks, got %d", len(todo))
	}
	if todo[0].ID != "t3" || todo[1].ID != "t1" {
		t.Fatalf("unexpected column order: %s, %s", todo[0].ID, todo[1].ID)
	}
}

func TestCloneDoesNotShareState(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orig := Task{
		ID:       "t1",
		Assignee: &Assignee{Name: "Dana", Initials: "DN"},
		DueDate:  &due,
		Tags:     []string{"infra"},
		CustomFields: map[string]FieldValue{
			"f1": MultiSelectValue("a", "b"),
		},
	}

	clone := orig.Clone()
	clone.Assignee.Name = "Someone Else"
	clone.Tags[0] = "changed"
	clone.CustomFields["f1"].Selection[0] = "z"

	if orig.Assignee.Name != "Dana" {
		t.Fatalf("assignee shared between clone and original")
	}
	if orig.Tags[0] != "infra" {
		t.Fatalf("tags shared between clone and original")
	}
	if orig.CustomFields["f1"].Selection[0] != "a" {
		t.Fatalf("field selection shared between clone and original")
	}
}

func TestMaxOrder(t *testing.T) {
	if got := MaxOrder(nil); got != 0 {
		t.Fatalf("empty list max order = %d, want 0", got)
	}
	tasks := []Task{{Order: 10}, {Order: 3000}, {Order: 70}}
	if got := MaxOrder(tasks); got != 3000 {
		t.Fatalf("max order = %d, want 3000", got)
	}
}
