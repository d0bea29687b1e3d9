package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisDispatcher pushes tasks onto Redis lists (drained by the workers),
// mirrors session answers into a Redis hash for state recovery, and
// publishes monitor events on a per-test PubSub channel.
type RedisDispatcher struct {
	rdb *redis.Client
}

// NewRedisDispatcher creates a RedisDispatcher.
func NewRedisDispatcher(rdb *redis.Client) *RedisDispatcher {
	return &RedisDispatcher{rdb: rdb}
}

// EnqueueRetestTask queues an invalidation or key-consumption task.
func (d *RedisDispatcher) EnqueueRetestTask(ctx context.Context, task RetestTask) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal retest task: %w", err)
	}
	return d.rdb.RPush(ctx, config.WorkerKey.RetestTasksQueue, raw).Err()
}

// EnqueueViolation queues a violation event for batch persistence.
func (d *RedisDispatcher) EnqueueViolation(ctx context.Context, ev ViolationEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal violation event: %w", err)
	}
	return d.rdb.RPush(ctx, config.WorkerKey.ViolationEventsQueue, raw).Err()
}

// SaveAnswer mirrors one answer into the session's autosave hash. The hash
// carries a generous TTL so abandoned sessions do not pile up.
func (d *RedisDispatcher) SaveAnswer(ctx context.Context, sessionID, questionID uuid.UUID, answer []string) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	key := config.CacheKey.SessionAnswersKey(sessionID.String())
	pipe := d.rdb.Pipeline()
	pipe.HSet(ctx, key, questionID.String(), raw)
	pipe.Expire(ctx, key, answersTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// LoadAnswers returns the autosaved answers of a session, keyed by question
// ID string.
func (d *RedisDispatcher) LoadAnswers(ctx context.Context, sessionID uuid.UUID) (map[string][]string, error) {
	raw, err := d.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Result()
	if err != nil {
		return nil, err
	}
	answers := make(map[string][]string, len(raw))
	for qid, val := range raw {
		var a []string
		if err := json.Unmarshal([]byte(val), &a); err != nil {
			continue // Skip malformed entries instead of failing recovery.
		}
		answers[qid] = a
	}
	return answers, nil
}

// ClearAnswers drops a session's autosave hash after submission.
func (d *RedisDispatcher) ClearAnswers(ctx context.Context, sessionID uuid.UUID) error {
	return d.rdb.Del(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Err()
}

// answersTTL keeps autosave hashes around long enough for any legal exam
// window plus recovery slack.
const answersTTL = 12 * time.Hour

// PublishMonitorEvent fans an event out to the test's monitor channel.
func (d *RedisDispatcher) PublishMonitorEvent(ctx context.Context, ev MonitorEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal monitor event: %w", err)
	}
	return d.rdb.Publish(ctx, config.CacheKey.TestMonitorChannel(ev.TestID.String()), raw).Err()
}
