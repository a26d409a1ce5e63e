package api

import (
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"boardflow/board"
	"boardflow/domain"
	"boardflow/remote"
)

// Register wires up all routes on the provided Echo instance.
func Register(e *echo.Echo, boards Boards, mover Mover, deduper Deduper, feed *NotificationFeed, logger *log.Logger) {
	e.GET("/api/projects", getProjects(boards))
	e.GET("/api/projects/:id/tasks", getTasks(boards, logger))
	e.GET("/api/projects/:id/custom-fields", getCustomFields(boards))
	e.GET("/api/projects/:id/stream", streamTasks(boards))
	e.POST("/api/projects/:id/tasks", postTask(boards))
	e.POST("/api/projects/:id/reorder", postReorder(boards, deduper))
	e.GET("/api/tasks/:id", getTask(boards))
	e.PATCH("/api/tasks/:id", patchTask(boards))
	e.DELETE("/api/tasks/:id", deleteTask(boards))
	e.POST("/api/tasks/:id/move", postMove(mover, deduper))
	e.GET("/api/notifications", getNotifications(feed))
	e.GET("/healthz", healthz())
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func getProjects(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		projects, err := boards.Projects(c.Request().Context())
		if err != nil {
			return upstreamError(c, err)
		}
		return c.JSON(http.StatusOK, projects)
	}
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

func getTasks(boards Boards, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newBoardRequestMetrics(ctx, logger, "/api/projects/:id/tasks")
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		projectID := c.Param("id")
		fetchStart := time.Now()
		tasks, fetchErr := boards.Tasks(ctx, projectID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			if remote.IsNotFound(fetchErr) {
				metrics.SetErrorStage("not_found")
				err = c.String(http.StatusNotFound, "project not found")
				return err
			}
			metrics.SetErrorStage("fetch")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		metrics.SetTasksReturned(len(tasks))
		metrics.SetCacheServed(time.Since(fetchStart) < time.Millisecond)

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getTask(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		task, err := boards.Task(c.Request().Context(), c.Param("id"))
		if err != nil {
			return upstreamError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func getCustomFields(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		fields, err := boards.CustomFields(c.Request().Context(), c.Param("id"))
		if err != nil {
			return upstreamError(c, err)
		}
		return c.JSON(http.StatusOK, fields)
	}
}

func postTask(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		var draft domain.TaskDraft
		if err := decodeBody(c, &draft); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if draft.Title == "" {
			return c.String(http.StatusBadRequest, "title required")
		}
		if draft.Status == "" {
			draft.Status = domain.StatusTodo
		}
		if !draft.Status.Valid() {
			return c.String(http.StatusBadRequest, "invalid status")
		}
		if draft.Priority == "" {
			draft.Priority = domain.PriorityMedium
		}
		if !draft.Priority.Valid() {
			return c.String(http.StatusBadRequest, "invalid priority")
		}

		task, applied := boards.CreateTask(c.Param("id"), draft)
		return c.JSON(http.StatusAccepted, mutationResponse{Applied: applied, Task: &task})
	}
}

func patchTask(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectID := c.QueryParam("projectId")
		if projectID == "" {
			return c.String(http.StatusBadRequest, "projectId required")
		}
		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if patch.Status != nil && !patch.Status.Valid() {
			return c.String(http.StatusBadRequest, "invalid status")
		}
		if patch.Priority != nil && !patch.Priority.Valid() {
			return c.String(http.StatusBadRequest, "invalid priority")
		}

		applied := boards.UpdateTask(projectID, c.Param("id"), patch)
		return c.JSON(http.StatusAccepted, mutationResponse{Applied: applied})
	}
}

func deleteTask(boards Boards) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectID := c.QueryParam("projectId")
		if projectID == "" {
			return c.String(http.StatusBadRequest, "projectId required")
		}
		applied := boards.DeleteTask(projectID, c.Param("id"))
		return c.JSON(http.StatusAccepted, mutationResponse{Applied: applied})
	}
}

func postMove(mover Mover, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req moveRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.ProjectID == "" || !req.Status.Valid() {
			return c.String(http.StatusBadRequest, "projectId and valid status required")
		}
		if req.Position == "" {
			req.Position = board.After
		}

		if dup, done := checkIdempotency(c, deduper); done {
			return dup
		}
		applied := mover.Move(req.ProjectID, c.Param("id"), req.Status, req.TargetTaskID, req.Position)
		if !applied {
			releaseIdempotency(c, deduper)
		}
		return c.JSON(http.StatusAccepted, mutationResponse{Applied: applied})
	}
}

func postReorder(boards Boards, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reorderRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if dup, done := checkIdempotency(c, deduper); done {
			return dup
		}
		applied, err := boards.Reorder(c.Param("id"), req.IDs, req.Orders)
		if err != nil {
			releaseIdempotency(c, deduper)
			return c.JSON(http.StatusBadRequest, mutationResponse{Applied: false, Error: err.Error()})
		}
		if !applied {
			releaseIdempotency(c, deduper)
		}
		return c.JSON(http.StatusAccepted, mutationResponse{Applied: applied})
	}
}

func getNotifications(feed *NotificationFeed) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, feed.Drain())
	}
}

// checkIdempotency consumes the request's Idempotency-Key header. The
// second return is true when the request was already processed and the
// handler should return immediately.
func checkIdempotency(c echo.Context, deduper Deduper) (error, bool) {
	key := c.Request().Header.Get("Idempotency-Key")
	if key == "" || deduper == nil {
		return nil, false
	}
	fresh, err := deduper.Add(c.Request().Context(), key)
	if err != nil {
		// Dedup is best-effort; a Redis failure must not block mutations.
		c.Logger().Warnf("idempotency check failed: %v", err)
		return nil, false
	}
	if !fresh {
		return c.JSON(http.StatusAccepted, mutationResponse{Applied: false}), true
	}
	return nil, false
}

// releaseIdempotency frees the key after a dropped mutation so the client
// may retry the same request.
func releaseIdempotency(c echo.Context, deduper Deduper) {
	key := c.Request().Header.Get("Idempotency-Key")
	if key == "" || deduper == nil {
		return
	}
	if err := deduper.Remove(c.Request().Context(), key); err != nil {
		c.Logger().Warnf("idempotency rollback failed: %v", err)
	}
}

func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, mutationMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func upstreamError(c echo.Context, err error) error {
	switch {
	case remote.IsNotFound(err):
		return c.String(http.StatusNotFound, err.Error())
	case remote.IsValidation(err):
		return c.String(http.StatusBadRequest, err.Error())
	default:
		c.Logger().Error(err)
		return c.String(http.StatusInternalServerError, err.Error())
	}
}
