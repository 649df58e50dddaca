package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

// TaskStore defines persistence operations for sweep tasks.
type TaskStore interface {
	CreateTask(task *SweepTask) error
	GetTask(id string) (*SweepTask, error)
	UpdateTask(task *SweepTask) error
	PushToQueue(taskID string) error
	PopFromQueue() (string, error)
}

// ErrTaskNotFound indicates the requested task doesn't exist in the store.
var ErrTaskNotFound = errors.New("task not found")

const queueKey = "sweeps:queue"

// RedisStore implements TaskStore on Redis: one hash per task, a list as
// the work queue.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed task store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) taskKey(id string) string {
	return fmt.Sprintf("sweep:%s", id)
}

// CreateTask persists a new sweep task.
func (s *RedisStore) CreateTask(task *SweepTask) error {
	data, err := serializeTask(task)
	if err != nil {
		return err
	}
	return s.client.HSet(context.Background(), s.taskKey(task.ID), data).Err()
}

// GetTask retrieves a task by ID.
func (s *RedisStore) GetTask(id string) (*SweepTask, error) {
	res, err := s.client.HGetAll(context.Background(), s.taskKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, ErrTaskNotFound
	}
	return deserializeTask(res)
}

// UpdateTask overwrites an existing task.
func (s *RedisStore) UpdateTask(task *SweepTask) error {
	data, err := serializeTask(task)
	if err != nil {
		return err
	}
	return s.client.HSet(context.Background(), s.taskKey(task.ID), data).Err()
}

// PushToQueue enqueues a task ID for the sweep workers.
func (s *RedisStore) PushToQueue(taskID string) error {
	return s.client.LPush(context.Background(), queueKey, taskID).Err()
}

// PopFromQueue blocks until a task ID is available.
func (s *RedisStore) PopFromQueue() (string, error) {
	res, err := s.client.BRPop(context.Background(), 0, queueKey).Result()
	if err != nil {
		return "", err
	}
	if len(res) != 2 {
		return "", errors.New("unexpected response size from BRPOP")
	}
	return res[1], nil
}

func serializeTask(task *SweepTask) (map[string]interface{}, error) {
	var foundData string
	if task.Found != nil {
		encoded, err := json.Marshal(task.Found)
		if err != nil {
			return nil, err
		}
		foundData = string(encoded)
	}

	var statsData string
	if task.Stats != nil {
		encoded, err := json.Marshal(task.Stats)
		if err != nil {
			return nil, err
		}
		statsData = string(encoded)
	}

	completedAt := ""
	if task.CompletedAt != nil {
		completedAt = task.CompletedAt.Format(time.RFC3339Nano)
	}

	return map[string]interface{}{
		"id":           task.ID,
		"status":       task.Status,
		"mode":         task.Mode,
		"target":       task.Target,
		"port":         strconv.Itoa(int(task.Port)),
		"count":        strconv.FormatUint(task.Count, 10),
		"found":        foundData,
		"stats":        statsData,
		"created_at":   task.CreatedAt.Format(time.RFC3339Nano),
		"completed_at": completedAt,
		"error":        task.Error,
	}, nil
}

func deserializeTask(data map[string]string) (*SweepTask, error) {
	var found []scanner.ServerRecord
	if raw := data["found"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &found); err != nil {
			return nil, err
		}
	}

	var stats *SweepStats
	if raw := data["stats"]; raw != "" {
		stats = &SweepStats{}
		if err := json.Unmarshal([]byte(raw), stats); err != nil {
			return nil, err
		}
	}

	port, err := strconv.ParseUint(data["port"], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("stored port is invalid: %w", err)
	}
	count, err := strconv.ParseUint(data["count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("stored count is invalid: %w", err)
	}

	createdAt := time.Time{}
	if raw := data["created_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		createdAt = t
	}

	var completedAt *time.Time
	if raw := data["completed_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		completedAt = &t
	}

	return &SweepTask{
		ID:          data["id"],
		Status:      data["status"],
		Mode:        data["mode"],
		Target:      data["target"],
		Port:        uint16(port),
		Count:       count,
		Found:       found,
		Stats:       stats,
		CreatedAt:   createdAt,
		CompletedAt: completedAt,
		Error:       data["error"],
	}, nil
}
