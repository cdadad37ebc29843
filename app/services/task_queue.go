package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ScheduleQueueKey is the sorted set holding queued campaign start tasks,
// scored by the epoch second at which they become due.
const ScheduleQueueKey = "schedule:campaign-start"

// TaskActionStart starts a scheduled campaign
const TaskActionStart = "START"

// CampaignTask is a queued unit of scheduled work
type CampaignTask struct {
	TaskID     string `json:"task_id"`
	CampaignID string `json:"campaign_id"`
	Action     string `json:"action"`
}

// TaskQueue is the durable schedule queue. Delivery is at-least-once; the
// consumer must be idempotent.
type TaskQueue interface {
	// Enqueue schedules a campaign start and returns the task handle. When
	// scheduling is unavailable it returns an empty handle and no error.
	Enqueue(ctx context.Context, campaignID string, at time.Time) (string, error)
	Cancel(ctx context.Context, taskID string) error
	PopDue(ctx context.Context, now time.Time, limit int64) ([]CampaignTask, error)
}

// RedisTaskQueue implements TaskQueue on a redis sorted set
type RedisTaskQueue struct {
	rc      *redis.Client
	enabled bool
}

// NewRedisTaskQueue creates a task queue. A nil client or disabled flag
// yields a queue that accepts nothing and reports nothing due.
func NewRedisTaskQueue(rc *redis.Client, enabled bool) TaskQueue {
	return &RedisTaskQueue{rc: rc, enabled: enabled}
}

// Enqueue adds a start task scored at the send instant
func (q *RedisTaskQueue) Enqueue(ctx context.Context, campaignID string, at time.Time) (string, error) {
	if q.rc == nil || !q.enabled {
		return "", nil
	}

	task := CampaignTask{
		TaskID:     uuid.New().String(),
		CampaignID: campaignID,
		Action:     TaskActionStart,
	}

	member, err := json.Marshal(task)
	if err != nil {
		return "", err
	}

	err = q.rc.ZAdd(ctx, ScheduleQueueKey, redis.Z{
		Score:  float64(at.UTC().Unix()),
		Member: string(member),
	}).Err()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue campaign task: %w", err)
	}

	return task.TaskID, nil
}

// Cancel removes a queued task by handle. A task already dispatched or never
// queued is not an error.
func (q *RedisTaskQueue) Cancel(ctx context.Context, taskID string) error {
	if q.rc == nil || !q.enabled || taskID == "" {
		return nil
	}

	members, err := q.rc.ZRange(ctx, ScheduleQueueKey, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to scan schedule queue: %w", err)
	}

	for _, m := range members {
		var task CampaignTask
		if json.Unmarshal([]byte(m), &task) != nil {
			continue
		}
		if task.TaskID == taskID {
			return q.rc.ZRem(ctx, ScheduleQueueKey, m).Err()
		}
	}

	return nil
}

// PopDue removes and returns tasks whose send instant has passed
func (q *RedisTaskQueue) PopDue(ctx context.Context, now time.Time, limit int64) ([]CampaignTask, error) {
	if q.rc == nil || !q.enabled {
		return nil, nil
	}

	members, err := q.rc.ZRangeByScore(ctx, ScheduleQueueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UTC().Unix(), 10),
		Count: limit,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read due tasks: %w", err)
	}

	var tasks []CampaignTask
	for _, m := range members {
		removed, err := q.rc.ZRem(ctx, ScheduleQueueKey, m).Result()
		if err != nil {
			return tasks, fmt.Errorf("failed to claim task: %w", err)
		}
		if removed == 0 {
			// Another dispatcher claimed it first
			continue
		}

		var task CampaignTask
		if err := json.Unmarshal([]byte(m), &task); err != nil {
			continue
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}
