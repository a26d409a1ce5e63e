package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"boardflow/domain"
)

// Mirror is the durable same-session fallback for board reads. It stores
// opaque JSON blobs in Redis under project-scoped keys and is consulted
// only when both the in-process cache and the upstream fail. Every mirror
// failure is logged and swallowed; the mirror never fails a caller.
type Mirror struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewMirror creates a mirror on the given Redis client. A nil client
// degrades every operation to a no-op, which keeps the board usable
// without Redis configured.
func NewMirror(client *redis.Client, ttl time.Duration, logger *log.Logger) *Mirror {
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Mirror{redis: client, ttl: ttl, logger: logger}
}

func tasksMirrorKey(projectID string) string {
	return "project-" + projectID + "-tasks"
}

func fieldsMirrorKey(projectID string) string {
	return "project-" + projectID + "-custom-fields"
}

// SaveTasks writes the project's task list blob.
func (m *Mirror) SaveTasks(ctx context.Context, projectID string, tasks []domain.Task) {
	m.store(ctx, tasksMirrorKey(projectID), tasks)
}

// LoadTasks returns the mirrored task list, if one is present and decodable.
func (m *Mirror) LoadTasks(ctx context.Context, projectID string) ([]domain.Task, bool) {
	var tasks []domain.Task
	if !m.load(ctx, tasksMirrorKey(projectID), &tasks) {
		return nil, false
	}
	return tasks, true
}

// SaveFields writes the project's custom field definitions blob.
func (m *Mirror) SaveFields(ctx context.Context, projectID string, fields []domain.CustomField) {
	m.store(ctx, fieldsMirrorKey(projectID), fields)
}

// LoadFields returns the mirrored custom field definitions.
func (m *Mirror) LoadFields(ctx context.Context, projectID string) ([]domain.CustomField, bool) {
	var fields []domain.CustomField
	if !m.load(ctx, fieldsMirrorKey(projectID), &fields) {
		return nil, false
	}
	return fields, true
}

// Evict drops both blobs for the project.
func (m *Mirror) Evict(ctx context.Context, projectID string) {
	if m.redis == nil {
		return
	}
	if err := m.redis.Del(ctx, tasksMirrorKey(projectID), fieldsMirrorKey(projectID)).Err(); err != nil {
		m.logger.WithError(err).WithField("project", projectID).Warn("mirror evict failed")
	}
}

func (m *Mirror) store(ctx context.Context, key string, value any) {
	if m.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("mirror encode failed")
		return
	}
	if err := m.redis.Set(ctx, key, data, m.ttl).Err(); err != nil {
		m.logger.WithError(err).WithField("key", key).Warn("mirror write failed")
	}
}

func (m *Mirror) load(ctx context.Context, key string, out any) bool {
	if m.redis == nil {
		return false
	}
	data, err := m.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			m.logger.WithError(err).WithField("key", key).Warn("mirror read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		// A blob we cannot decode will never become readable; drop it.
		m.logger.WithError(err).WithField("key", key).Warn("mirror payload corrupt, evicting")
		_ = m.redis.Del(ctx, key).Err()
		return false
	}
	return true
}
