package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/config"
	"github.com/aznacademy/aznexam-backend/internal/queue"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ViolationBatchSize    = 50
	ViolationBatchTimeout = 2 * time.Second
	ViolationPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ViolationWorker drains queued anti-cheat events and persists them in
// batches. Events are advisory audit data; the request path never waits on
// this worker.
type ViolationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "violation_worker").Logger(),
	}
}

// Start runs the drain loop until ctx is cancelled, flushing any buffered
// events on shutdown.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	batch := make([]*queue.ViolationEvent, 0, ViolationBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ViolationBatchSize || time.Since(lastFlush) >= ViolationBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flushSafe(shutdownCtx, batch)
			cancel()
			return

		default:
			item, err := w.rdb.BLPop(ctx, ViolationPollTimeout, config.WorkerKey.ViolationEventsQueue).Result()
			if err != nil {
				if err == redis.Nil {
					continue // Queue empty, loop back to check the flush timer.
				}
				if ctx.Err() != nil {
					continue
				}
				w.log.Error().Err(err).Msg("BLPop error, sleeping 3s")
				time.Sleep(3 * time.Second)
				continue
			}

			if len(item) < 2 {
				continue
			}

			var ev queue.ViolationEvent
			if err := json.Unmarshal([]byte(item[1]), &ev); err != nil {
				// Malformed JSON cannot be retried. Log and discard.
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed violation event")
				continue
			}

			batch = append(batch, &ev)
		}
	}
}

// flushSafe attempts bulk insert, then row-by-row recovery with requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*queue.ViolationEvent) {
	if len(batch) == 0 {
		return
	}
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []*queue.ViolationEvent) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, ev := range batch {
		rows = append(rows, []interface{}{
			uuid.New(), ev.SessionID, ev.TestID, ev.StudentName, ev.StudentCode,
			ev.Kind, ev.Count, time.Unix(ev.Timestamp, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"violation_events"},
		[]string{"id", "session_id", "test_id", "student_name", "student_code", "kind", "count", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []*queue.ViolationEvent) {
	requeueList := make([]*queue.ViolationEvent, 0)

	for _, ev := range batch {
		_, err := w.pool.Exec(ctx,
			`INSERT INTO violation_events (id, session_id, test_id, student_name, student_code, kind, count, recorded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), ev.SessionID, ev.TestID, ev.StudentName, ev.StudentCode,
			ev.Kind, ev.Count, time.Unix(ev.Timestamp, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Str("session_id", ev.SessionID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, ev)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*queue.ViolationEvent) {
	pipe := w.rdb.Pipeline()
	for _, ev := range items {
		raw, _ := json.Marshal(ev)
		pipe.RPush(ctx, config.WorkerKey.ViolationEventsQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue violation events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed violation events")
	// Avoid thrashing while the database is down.
	time.Sleep(2 * time.Second)
}
