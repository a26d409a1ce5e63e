package board

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"boardflow/domain"
	"boardflow/storage"
)

// Persistence is the slice of the upstream client the board needs.
type Persistence interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (domain.Task, error)
	CreateTask(ctx context.Context, projectID string, draft domain.TaskDraft) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ReorderTasks(ctx context.Context, ids []string, orders []int) error
	ListCustomFields(ctx context.Context, projectID string) ([]domain.CustomField, error)
}

const projectsCacheKey = "projects"

// Board is the optimistic view of one user's projects and tasks. Reads are
// served cache-first with the mirror as a same-session fallback; mutations
// apply locally at once and reconcile with the upstream in the background.
type Board struct {
	remote Persistence
	cache  *storage.Cache
	mirror *storage.Mirror
	engine *Engine
	logger *log.Logger

	mu  sync.Mutex
	now func() time.Time
}

// New assembles a board. All collaborators are injected; the board owns no
// global state.
func New(remote Persistence, cache *storage.Cache, mirror *storage.Mirror, engine *Engine, logger *log.Logger) *Board {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Board{
		remote: remote,
		cache:  cache,
		mirror: mirror,
		engine: engine,
		logger: logger,
		now:    time.Now,
	}
}

// Engine exposes the optimistic engine, mainly so callers can Wait in
// shutdown paths and tests.
func (b *Board) Engine() *Engine { return b.engine }

// Projects returns the project list, cache-first.
//
// All cached list reads happen under b.mu: the cache hands back live
// slices and the mutation paths rewrite their elements in place, so an
// unguarded read would race with an optimistic apply or revert.
func (b *Board) Projects(ctx context.Context) ([]domain.Project, error) {
	b.mu.Lock()
	if projects, ok := b.cache.Projects.Get(projectsCacheKey); ok {
		out := append([]domain.Project(nil), projects...)
		b.mu.Unlock()
		return out, nil
	}
	b.mu.Unlock()

	projects, err := b.remote.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.cache.Projects.Put(projectsCacheKey, projects)
	out := append([]domain.Project(nil), projects...)
	b.mu.Unlock()
	return out, nil
}

// Tasks returns a project's task list sorted by order. Misses fetch from
// upstream; when the upstream is unreachable the mirror blob is served as
// a best-effort fallback.
func (b *Board) Tasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	b.mu.Lock()
	if tasks, ok := b.cache.TaskLists.Get(projectID); ok {
		out := domain.CloneTasks(tasks)
		b.mu.Unlock()
		return out, nil
	}
	b.mu.Unlock()

	tasks, err := b.remote.ListTasks(ctx, projectID)
	if err != nil {
		if mirrored, ok := b.mirror.LoadTasks(ctx, projectID); ok {
			b.logger.WithError(err).WithField("project", projectID).
				Warn("upstream task fetch failed, serving mirror")
			domain.SortTasks(mirrored)
			b.mu.Lock()
			b.cache.TaskLists.Put(projectID, mirrored)
			out := domain.CloneTasks(mirrored)
			b.mu.Unlock()
			return out, nil
		}
		return nil, err
	}
	domain.SortTasks(tasks)
	b.mu.Lock()
	b.storeTasks(ctx, projectID, tasks)
	out := domain.CloneTasks(tasks)
	b.mu.Unlock()
	return out, nil
}

// Task returns a single task. Entity lookups hit their own cache
// namespace, kept fresh by every local list write; a miss fetches from
// upstream.
func (b *Board) Task(ctx context.Context, taskID string) (domain.Task, error) {
	if task, ok := b.cache.Tasks.Get(taskID); ok {
		return task.Clone(), nil
	}
	task, err := b.remote.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	b.cache.Tasks.Put(taskID, task)
	return task.Clone(), nil
}

// CustomFields returns a project's field definitions, cache-first with
// mirror fallback.
func (b *Board) CustomFields(ctx context.Context, projectID string) ([]domain.CustomField, error) {
	b.mu.Lock()
	if fields, ok := b.cache.FieldLists.Get(projectID); ok {
		out := append([]domain.CustomField(nil), fields...)
		b.mu.Unlock()
		return out, nil
	}
	b.mu.Unlock()

	fields, err := b.remote.ListCustomFields(ctx, projectID)
	if err != nil {
		if mirrored, ok := b.mirror.LoadFields(ctx, projectID); ok {
			b.logger.WithError(err).WithField("project", projectID).
				Warn("upstream field fetch failed, serving mirror")
			b.mu.Lock()
			b.cache.FieldLists.Put(projectID, mirrored)
			b.mu.Unlock()
			return mirrored, nil
		}
		return nil, err
	}
	b.mu.Lock()
	b.cache.FieldLists.Put(projectID, fields)
	b.mu.Unlock()
	b.mirror.SaveFields(ctx, projectID, fields)
	return fields, nil
}

// Invalidate drops the project's cached lists, forcing the next read to hit
// upstream.
func (b *Board) Invalidate(projectID string) {
	b.cache.TaskLists.Invalidate(projectID)
	b.cache.FieldLists.Invalidate(projectID)
	b.cache.Projects.Invalidate(projectsCacheKey)
}

// CreateTask appends a task optimistically. The returned task carries a
// provisional id and order until the server result replaces them. The
// second return is false when the mutation was dropped, including when the
// project's list has not been loaded yet — like every mutation, create
// operates on local state, never on a list it has not seen.
func (b *Board) CreateTask(projectID string, draft domain.TaskDraft) (domain.Task, bool) {
	if !b.listCached(projectID) {
		return domain.Task{}, false
	}
	tempID := "tmp-" + uuid.NewString()
	now := b.now()
	optimistic := domain.Task{
		ID:           tempID,
		ProjectID:    projectID,
		Title:        draft.Title,
		Description:  draft.Description,
		Status:       draft.Status,
		Priority:     draft.Priority,
		Assignee:     draft.Assignee,
		DueDate:      draft.DueDate,
		Tags:         draft.Tags,
		CustomFields: draft.CustomFields,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ok := Apply(b.engine, Mutation[domain.Task, []domain.Task]{
		EntityID: tempID,
		Name:     "task.create",
		Snapshot: func() []domain.Task { return b.snapshotTasks(projectID) },
		Apply: func() {
			b.withTasks(projectID, func(tasks []domain.Task) []domain.Task {
				optimistic.Order = AppendOrder(tasks)
				return append(tasks, optimistic.Clone())
			})
		},
		Commit: func(ctx context.Context) (domain.Task, error) {
			return b.remote.CreateTask(ctx, projectID, draft)
		},
		Reconcile: func(server domain.Task) {
			b.withTasks(projectID, func(tasks []domain.Task) []domain.Task {
				for i := range tasks {
					if tasks[i].ID == tempID {
						tasks[i] = server.Clone()
						break
					}
				}
				return tasks
			})
		},
		Revert: func(snapshot []domain.Task) { b.restoreTasks(projectID, snapshot) },
	})
	return optimistic, ok
}

// UpdateTask patches a task optimistically. Returns false when the task has
// a commit in flight or is not in the cached list.
func (b *Board) UpdateTask(projectID, taskID string, patch domain.TaskPatch) bool {
	if !b.taskCached(projectID, taskID) {
		return false
	}
	return Apply(b.engine, Mutation[domain.Task, []domain.Task]{
		EntityID: taskID,
		Name:     "task.update",
		Snapshot: func() []domain.Task { return b.snapshotTasks(projectID) },
		Apply: func() {
			b.withTasks(projectID, func(tasks []domain.Task) []domain.Task {
				for i := range tasks {
					if tasks[i].ID == taskID {
						patch.ApplyTo(&tasks[i])
						tasks[i].UpdatedAt = b.now()
						break
					}
				}
				return tasks
			})
		},
		Commit: func(ctx context.Context) (domain.Task, error) {
			return b.remote.UpdateTask(ctx, taskID, patch)
		},
		Reconcile: func(server domain.Task) {
			// The server response wins over the optimistic value: it may
			// have normalized fields the client never set.
			b.withTasks(projectID, func(tasks []domain.Task) []domain.Task {
				for i := range tasks {
					if tasks[i].ID == taskID {
						tasks[i] = server.Clone()
						break
					}
				}
				return tasks
			})
		},
		Revert: func(snapshot []domain.Task) { b.restoreTasks(projectID, snapshot) },
	})
}

// MoveTask changes only status and order, the drag gesture's commit shape.
func (b *Board) MoveTask(projectID, taskID string, status domain.Status, order int) bool {
	return b.moveTask(projectID, taskID, status, order, nil)
}

// moveTask commits a move, reverting to the provided pre-drag snapshot on
// failure. A nil snapshot captures the current list instead.
func (b *Board) moveTask(projectID, taskID string, status domain.Status, order int, snapshot []domain.Task) bool {
	if !b.taskCached(projectID, taskID) {
		return false
	}
	patch := domain.TaskPatch{Status: &status, Order: &order}
	return Apply(b.engine, Mutation[domain.Task, []domain.Task]{
		EntityID: taskID,
		Name:     "task.move",
		Snapshot: func() []domain.Task {
			if snapshot != nil {
				return snapshot
			}
			return b.snapshotTasks(projectID)
		},
		Apply: func() {
			b.withTasks(projectID, func(tasks []domain.Task) []domain.Task {
				for i := range tasks {
					if tasks[i].ID == taskID {
						patch.ApplyTo(&tasks[i])
						tasks[i].UpdatedAt = b.now()
						break
					}
				}
				return tasks
			})
		},
		Commit: func(ctx context.Context) (domain.Task, error) {
			return b.remote.UpdateTask(ctx, taskID, patch)
		},
		Reconcile: func(server domain.Task) {
			b.withTasks(projectID, func(tasks []domain.Task) []domain.Task {
				for i := range tasks {
					if tasks[i].ID == taskID {
						tasks[i] = server.Clone()
						break
					}
				}
				return tasks
			})
		},
		Revert: func(snap []domain.Task) { b.restoreTasks(projectID, snap) },
	})
}

// DeleteTask removes a task optimistically.
func (b *Board) DeleteTask(projectID, taskID string) bool {
	if !b.taskCached(projectID, taskID) {
		return false
	}
	return Apply(b.engine, Mutation[struct{}, []domain.Task]{
		EntityID: taskID,
		Name:     "task.delete",
		Snapshot: func() []domain.Task { return b.snapshotTasks(projectID) },
		Apply: func() {
			b.withTasks(projectID, func(tasks []domain.Task) []domain.Task {
				out := tasks[:0]
				for _, t := range tasks {
					if t.ID != taskID {
						out = append(out, t)
					}
				}
				return out
			})
			b.cache.Tasks.Delete(taskID)
		},
		Commit: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, b.remote.DeleteTask(ctx, taskID)
		},
		Reconcile: func(struct{}) {},
		Revert:    func(snapshot []domain.Task) { b.restoreTasks(projectID, snapshot) },
	})
}

// --- cached list plumbing ---

// snapshotTasks deep-copies the current cached list for revert.
func (b *Board) snapshotTasks(projectID string) []domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	tasks, _ := b.cache.TaskLists.Get(projectID)
	return domain.CloneTasks(tasks)
}

// withTasks mutates the cached list under the board lock and refreshes the
// mirror afterwards. A cache miss is a no-op: mutating an absent list
// would install a fabricated one that masks the server's tasks until the
// TTL expires.
func (b *Board) withTasks(projectID string, fn func([]domain.Task) []domain.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tasks, ok := b.cache.TaskLists.Get(projectID)
	if !ok {
		return
	}
	tasks = fn(tasks)
	domain.SortTasks(tasks)
	b.storeTasks(context.Background(), projectID, tasks)
}

func (b *Board) restoreTasks(projectID string, snapshot []domain.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storeTasks(context.Background(), projectID, snapshot)
}

func (b *Board) storeTasks(ctx context.Context, projectID string, tasks []domain.Task) {
	b.cache.TaskLists.Put(projectID, tasks)
	for _, t := range tasks {
		b.cache.Tasks.Put(t.ID, t.Clone())
	}
	b.mirror.SaveTasks(ctx, projectID, tasks)
	b.refreshTaskCount(projectID, len(tasks))
}

// refreshTaskCount recomputes the derived count on the cached project list.
func (b *Board) refreshTaskCount(projectID string, count int) {
	projects, ok := b.cache.Projects.Get(projectsCacheKey)
	if !ok {
		return
	}
	for i := range projects {
		if projects[i].ID == projectID {
			projects[i].TaskCount = count
			break
		}
	}
	b.cache.Projects.Put(projectsCacheKey, projects)
}

// listCached reports whether the project's task list is currently held.
func (b *Board) listCached(projectID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.cache.TaskLists.Get(projectID)
	return ok
}

func (b *Board) taskCached(projectID, taskID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	tasks, ok := b.cache.TaskLists.Get(projectID)
	if !ok {
		return false
	}
	for _, t := range tasks {
		if t.ID == taskID {
			return true
		}
	}
	return false
}
