package domain

import (
	"sort"
	"time"
)

// Status is the board column a task lives in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses lists all columns in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Assignee identifies the person a task is assigned to.
type Assignee struct {
	Name     string `json:"name"`
	Initials string `json:"initials,omitempty"`
}

// Task represents a single board item.
//
// Order is a project-scoped sort key: within one project, tasks render in
// ascending Order, ties broken by ID. The zero value is meaningful and must
// survive serialization, so the field carries no omitempty.
type Task struct {
	ID           string                `json:"id"`
	ProjectID    string                `json:"projectId"`
	Title        string                `json:"title"`
	Description  string                `json:"description,omitempty"`
	Status       Status                `json:"status"`
	Priority     Priority              `json:"priority"`
	Assignee     *Assignee             `json:"assignee,omitempty"`
	DueDate      *time.Time            `json:"dueDate,omitempty"`
	Tags         []string              `json:"tags,omitempty"`
	CustomFields map[string]FieldValue `json:"customFields,omitempty"`
	Order        int                   `json:"order"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// Clone returns a deep copy. Snapshots taken for optimistic reverts must not
// share slices or maps with the live task.
func (t Task) Clone() Task {
	c := t
	if t.Assignee != nil {
		a := *t.Assignee
		c.Assignee = &a
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Tags != nil {
		c.Tags = append([]string(nil), t.Tags...)
	}
	if t.CustomFields != nil {
		c.CustomFields = make(map[string]FieldValue, len(t.CustomFields))
		for k, v := range t.CustomFields {
			c.CustomFields[k] = v.Clone()
		}
	}
	return c
}

// CloneTasks deep-copies a task list.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

// SortTasks orders tasks by ascending Order, ties broken by ID.
func SortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// TasksInStatus returns the tasks belonging to one column, sorted.
func TasksInStatus(tasks []Task, s Status) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == s {
			out = append(out, t)
		}
	}
	SortTasks(out)
	return out
}

// MaxOrder returns the highest order value in the list, or zero for an empty
// list.
func MaxOrder(tasks []Task) int {
	max := 0
	for _, t := range tasks {
		if t.Order > max {
			max = t.Order
		}
	}
	return max
}
