package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/config"
	"github.com/aznacademy/aznexam-backend/internal/queue"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	RetestPollTimeout   = 1 * time.Second
	RetestMaxAttempts   = 3
	RetestRetryCooldown = 2 * time.Second
)

// SubmissionInvalidator marks a superseded submission.
// *repository.SubmissionRepository satisfies it.
type SubmissionInvalidator interface {
	InvalidatePrevious(ctx context.Context, testID uuid.UUID, slotNumber int, studentName, fatherName string) error
}

// KeyConsumer marks a retest key used. *repository.RetestKeyRepository
// satisfies it.
type KeyConsumer interface {
	MarkUsed(ctx context.Context, keyID, submissionID uuid.UUID) error
}

// RetestWorker drains queued retest bookkeeping: invalidating a superseded
// submission and marking the key consumed. Both operations are idempotent,
// so failed tasks requeue with an attempt counter instead of being dropped.
type RetestWorker struct {
	submissions SubmissionInvalidator
	keys        KeyConsumer
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewRetestWorker creates a new RetestWorker.
func NewRetestWorker(submissions SubmissionInvalidator, keys KeyConsumer, rdb *redis.Client, log zerolog.Logger) *RetestWorker {
	return &RetestWorker{
		submissions: submissions,
		keys:        keys,
		rdb:         rdb,
		log:         log.With().Str("component", "retest_worker").Logger(),
	}
}

type retestTaskEnvelope struct {
	queue.RetestTask
	Attempts int `json:"attempts,omitempty"`
}

// Start runs the drain loop until ctx is cancelled.
func (w *RetestWorker) Start(ctx context.Context) {
	w.log.Info().Msg("RetestWorker started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := w.rdb.BLPop(ctx, RetestPollTimeout, config.WorkerKey.RetestTasksQueue).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("BLPop error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(item) < 2 {
			continue
		}

		var task retestTaskEnvelope
		if err := json.Unmarshal([]byte(item[1]), &task); err != nil {
			w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed retest task")
			continue
		}

		if err := w.handle(ctx, &task.RetestTask); err != nil {
			w.retry(ctx, &task, err)
		}
	}
}

func (w *RetestWorker) handle(ctx context.Context, task *queue.RetestTask) error {
	switch task.Action {
	case queue.ActionInvalidatePrevious:
		testID, err := uuid.Parse(task.TestID)
		if err != nil {
			w.log.Error().Str("test_id", task.TestID).Msg("Dropping invalidation task with invalid UUID")
			return nil
		}
		return w.submissions.InvalidatePrevious(ctx, testID, task.SlotNumber, task.StudentName, task.FatherName)

	case queue.ActionConsumeKey:
		keyID, err := uuid.Parse(task.RetestKeyID)
		if err != nil {
			w.log.Error().Str("retest_key_id", task.RetestKeyID).Msg("Dropping consume task with invalid key UUID")
			return nil
		}
		submissionID, err := uuid.Parse(task.SubmissionID)
		if err != nil {
			w.log.Error().Str("submission_id", task.SubmissionID).Msg("Dropping consume task with invalid submission UUID")
			return nil
		}
		return w.keys.MarkUsed(ctx, keyID, submissionID)

	default:
		w.log.Error().Str("action", string(task.Action)).Msg("Dropping retest task with unknown action")
		return nil
	}
}

func (w *RetestWorker) retry(ctx context.Context, task *retestTaskEnvelope, cause error) {
	task.Attempts++
	if task.Attempts >= RetestMaxAttempts {
		w.log.Error().Err(cause).
			Str("action", string(task.Action)).
			Int("attempts", task.Attempts).
			Msg("CRITICAL: Retest task exhausted retries, dropping")
		return
	}

	w.log.Warn().Err(cause).
		Str("action", string(task.Action)).
		Int("attempts", task.Attempts).
		Msg("Retest task failed, requeueing")

	raw, _ := json.Marshal(task)
	if err := w.rdb.RPush(ctx, config.WorkerKey.RetestTasksQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue retest task. Data loss occurred.")
		return
	}
	time.Sleep(RetestRetryCooldown)
}
