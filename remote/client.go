// Package remote is the HTTP client for the upstream persistence service.
// It owns the error taxonomy the optimistic layer branches on: transport
// failures, rate limits and not-found are each mapped to distinct types.
package remote

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"boardflow/domain"
)

const maxErrorBodySize = 64 * 1024 // 64 KiB

// Client talks to the persistence service. All methods take a context; the
// caller decides timeouts and cancellation.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// New creates a Client for the given base URL.
func New(baseURL string, logger *log.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logger,
	}
}

type call struct {
	op     string
	method string
	path   string
	body   any
	out    any
	kind   string // entity kind for 404 mapping
	id     string
}

func (c *Client) do(ctx context.Context, cl call) error {
	var body io.Reader
	if cl.body != nil {
		data, err := sonic.Marshal(cl.body)
		if err != nil {
			return &ValidationError{Reason: err.Error()}
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Deadline expiry and explicit cancellation surface here; both are
		// handled like any other network failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &TransportError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(cl, resp)
	}
	if cl.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := sonic.ConfigStd.NewDecoder(resp.Body)
	if err := dec.Decode(cl.out); err != nil {
		return &TransportError{Op: cl.op, Err: err}
	}
	return nil
}

func (c *Client) statusError(cl call, resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	msg := strings.TrimSpace(string(payload))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &NotFoundError{Kind: cl.kind, ID: cl.id}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &ValidationError{Reason: msg}
	}
	c.logger.WithFields(log.Fields{
		"op":     cl.op,
		"status": resp.StatusCode,
	}).Warn("upstream request failed")
	return &UpstreamError{Op: cl.op, Status: resp.StatusCode, Body: msg}
}

func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// --- projects ---

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	err := c.do(ctx, call{op: "projects.list", method: http.MethodGet, path: "/api/projects", out: &out, kind: "projects"})
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id string) (domain.Project, error) {
	var out domain.Project
	err := c.do(ctx, call{op: "projects.get", method: http.MethodGet, path: "/api/projects/" + id, out: &out, kind: "project", id: id})
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, draft domain.ProjectDraft) (domain.Project, error) {
	var out domain.Project
	err := c.do(ctx, call{op: "projects.create", method: http.MethodPost, path: "/api/projects", body: draft, out: &out, kind: "project"})
	return out, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch domain.ProjectPatch) (domain.Project, error) {
	var out domain.Project
	err := c.do(ctx, call{op: "projects.update", method: http.MethodPatch, path: "/api/projects/" + id, body: patch, out: &out, kind: "project", id: id})
	return out, err
}

// DeleteProject removes the project; the persistence service cascades the
// delete to the project's tasks and custom fields.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "projects.delete", method: http.MethodDelete, path: "/api/projects/" + id, kind: "project", id: id})
}

// --- tasks ---

func (c *Client) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	var out []domain.Task
	err := c.do(ctx, call{op: "tasks.list", method: http.MethodGet, path: "/api/projects/" + projectID + "/tasks", out: &out, kind: "project", id: projectID})
	return out, err
}

func (c *Client) GetTask(ctx context.Context, id string) (domain.Task, error) {
	var out domain.Task
	err := c.do(ctx, call{op: "tasks.get", method: http.MethodGet, path: "/api/tasks/" + id, out: &out, kind: "task", id: id})
	return out, err
}

// CreateTask stores a new task; the service assigns id, timestamps and an
// order value one past the project's current maximum.
func (c *Client) CreateTask(ctx context.Context, projectID string, draft domain.TaskDraft) (domain.Task, error) {
	var out domain.Task
	err := c.do(ctx, call{op: "tasks.create", method: http.MethodPost, path: "/api/projects/" + projectID + "/tasks", body: draft, out: &out, kind: "project", id: projectID})
	return out, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	var out domain.Task
	err := c.do(ctx, call{op: "tasks.update", method: http.MethodPatch, path: "/api/tasks/" + id, body: patch, out: &out, kind: "task", id: id})
	return out, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "tasks.delete", method: http.MethodDelete, path: "/api/tasks/" + id, kind: "task", id: id})
}

type reorderRequest struct {
	IDs    []string `json:"ids"`
	Orders []int    `json:"orders"`
}

// ReorderTasks persists one chunk of (id, order) pairs.
func (c *Client) ReorderTasks(ctx context.Context, ids []string, orders []int) error {
	if len(ids) != len(orders) {
		return &ValidationError{Reason: "ids and orders length mismatch"}
	}
	return c.do(ctx, call{op: "tasks.reorder", method: http.MethodPost, path: "/api/tasks/reorder", body: reorderRequest{IDs: ids, Orders: orders}, kind: "tasks"})
}

// --- custom fields ---

func (c *Client) ListCustomFields(ctx context.Context, projectID string) ([]domain.CustomField, error) {
	var out []domain.CustomField
	err := c.do(ctx, call{op: "fields.list", method: http.MethodGet, path: "/api/projects/" + projectID + "/custom-fields", out: &out, kind: "project", id: projectID})
	return out, err
}

func (c *Client) CreateCustomField(ctx context.Context, projectID string, draft domain.CustomFieldDraft) (domain.CustomField, error) {
	var out domain.CustomField
	err := c.do(ctx, call{op: "fields.create", method: http.MethodPost, path: "/api/projects/" + projectID + "/custom-fields", body: draft, out: &out, kind: "project", id: projectID})
	return out, err
}

func (c *Client) UpdateCustomField(ctx context.Context, id string, patch domain.CustomFieldPatch) (domain.CustomField, error) {
	var out domain.CustomField
	err := c.do(ctx, call{op: "fields.update", method: http.MethodPatch, path: "/api/custom-fields/" + id, body: patch, out: &out, kind: "custom field", id: id})
	return out, err
}

func (c *Client) DeleteCustomField(ctx context.Context, id string) error {
	return c.do(ctx, call{op: "fields.delete", method: http.MethodDelete, path: "/api/custom-fields/" + id, kind: "custom field", id: id})
}

// ErrMissingBaseURL is returned by Validate when the client has no upstream
// configured.
var ErrMissingBaseURL = errors.New("remote: base url not configured")

// Validate performs a cheap configuration check at startup.
func (c *Client) Validate() error {
	if c.baseURL == "" {
		return ErrMissingBaseURL
	}
	return nil
}
