package api

import (
	"context"

	"boardflow/board"
	"boardflow/domain"
)

// maximum accepted mutation body size
const mutationMaxSize = 64 * 1024 // 64 KiB

// Boards abstracts the optimistic board for handlers.
type Boards interface {
	Projects(ctx context.Context) ([]domain.Project, error)
	Tasks(ctx context.Context, projectID string) ([]domain.Task, error)
	Task(ctx context.Context, taskID string) (domain.Task, error)
	CustomFields(ctx context.Context, projectID string) ([]domain.CustomField, error)
	CreateTask(projectID string, draft domain.TaskDraft) (domain.Task, bool)
	UpdateTask(projectID, taskID string, patch domain.TaskPatch) bool
	DeleteTask(projectID, taskID string) bool
	Reorder(projectID string, ids []string, orders []int) (bool, error)
}

// Mover commits a resolved drag gesture.
type Mover interface {
	Move(projectID, taskID string, targetStatus domain.Status, targetTaskID string, pos board.Position) bool
}

// Deduper prevents reprocessing of retried mutation requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, key string) (bool, error)
	// Remove deletes a previously added key so the request may be retried.
	Remove(ctx context.Context, key string) error
}

// mutationResponse is the body for every accepted optimistic mutation.
// Applied is false when the per-entity in-flight guard dropped the request.
type mutationResponse struct {
	Applied bool         `json:"applied"`
	Task    *domain.Task `json:"task,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type reorderRequest struct {
	IDs    []string `json:"ids"`
	Orders []int    `json:"orders"`
}

type moveRequest struct {
	ProjectID    string         `json:"projectId"`
	Status       domain.Status  `json:"status"`
	TargetTaskID string         `json:"targetTaskId,omitempty"`
	Position     board.Position `json:"position,omitempty"`
}
