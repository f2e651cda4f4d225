package job

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/logging"
	"github.com/0xsequence/sidekick-sub000/internal/retry"
	"github.com/0xsequence/sidekick-sub000/internal/storage"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// Handler processes one job execution. A returned error marks the attempt
// failed and hands control back to the broker's retry policy; the returned
// value is stored on the job when the attempt succeeds.
type Handler func(ctx context.Context, job *Job) (interface{}, error)

// Config configures a Queue.
type Config struct {
	// Workers is the number of concurrent handler slots.
	Workers int
	// PollInterval is the promoter/worker tick.
	PollInterval time.Duration
	// StallInterval is the liveness lock TTL; a job that does not report
	// progress within it is considered stalled.
	StallInterval time.Duration
	// MaxStalledCount is the number of times a stalled job is re-queued
	// before it is failed.
	MaxStalledCount int
	// DefaultAttempts applies when a job is added without explicit opts.
	DefaultAttempts int
	// DefaultBackoff is the base delay of the exponential retry backoff.
	DefaultBackoff time.Duration

	// OnStalled is invoked when stall detection trips for a job.
	OnStalled func(jobID string)
	// OnFailed is invoked when a job reaches the failed state.
	OnFailed func(job *Job, err error)
}

// Queue is a durable Redis-backed job queue shared by any number of worker
// processes. Jobs move wait -> active via an atomic claim, so concurrent
// loops never double-deliver a waiting job; delivery overall is
// at-least-once because a stalled active job is re-queued.
type Queue struct {
	name   string
	cache  *storage.RedisCache
	cfg    Config
	logger *logging.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	stopCh   chan struct{}
	stopped  bool
	wg       sync.WaitGroup
	sem      chan struct{}
}

// NewQueue creates a queue over the shared Redis connection.
func NewQueue(name string, cache *storage.RedisCache, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.StallInterval <= 0 {
		cfg.StallInterval = 30 * time.Second
	}
	if cfg.MaxStalledCount < 0 {
		cfg.MaxStalledCount = 1
	}
	if cfg.DefaultAttempts <= 0 {
		cfg.DefaultAttempts = 1
	}
	if cfg.DefaultBackoff <= 0 {
		cfg.DefaultBackoff = 2 * time.Second
	}

	return &Queue{
		name:     name,
		cache:    cache,
		cfg:      cfg,
		logger:   logging.WithField("queue", name),
		handlers: make(map[string]Handler),
		stopCh:   make(chan struct{}),
		stopped:  true,
		sem:      make(chan struct{}, cfg.Workers),
	}
}

// Key layout under rewards:queue:<name>:
func (q *Queue) key(suffix string) string {
	return fmt.Sprintf("rewards:queue:%s:%s", q.name, suffix)
}

func (q *Queue) jobKey(id string) string {
	return q.key("job:" + id)
}

func (q *Queue) repeatDefKey(repeatKey string) string {
	return q.key("repeat:def:" + repeatKey)
}

func (q *Queue) client() *redis.Client {
	return q.cache.Client()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// Add enqueues a job, or registers a repeatable definition when opts.Repeat
// is set. Repeat definitions enqueue nothing immediately: the promoter
// materializes one instance per period until the repetition cap is reached,
// then removes the definition.
func (q *Queue) Add(ctx context.Context, name string, data interface{}, opts *Opts) (*Job, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, apperrors.NewQueueError("marshal job data", err)
	}

	resolved := q.resolveOpts(opts)
	j := &Job{
		ID:        uuid.NewString(),
		Name:      name,
		Data:      payload,
		Opts:      resolved,
		State:     types.JobStateWaiting,
		Timestamp: nowMillis(),
		queue:     q,
	}

	if resolved.Repeat != nil {
		return q.addRepeatable(ctx, j)
	}

	if resolved.Delay > 0 {
		j.State = types.JobStateDelayed
		if err := q.writeJob(ctx, j); err != nil {
			return nil, err
		}
		readyAt := float64(nowMillis() + resolved.Delay.Milliseconds())
		if err := q.client().ZAdd(ctx, q.key("delayed"), redis.Z{Score: readyAt, Member: j.ID}).Err(); err != nil {
			return nil, apperrors.NewQueueError("enqueue delayed job", err)
		}
		return j, nil
	}

	if err := q.writeJob(ctx, j); err != nil {
		return nil, err
	}
	if err := q.client().LPush(ctx, q.key("wait"), j.ID).Err(); err != nil {
		return nil, apperrors.NewQueueError("enqueue job", err)
	}
	return j, nil
}

func (q *Queue) resolveOpts(opts *Opts) Opts {
	resolved := Opts{}
	if opts != nil {
		resolved = *opts
	}
	if resolved.Attempts <= 0 {
		resolved.Attempts = q.cfg.DefaultAttempts
	}
	if resolved.Backoff == nil {
		resolved.Backoff = &BackoffOpts{Type: "exponential", Delay: q.cfg.DefaultBackoff}
	}
	return resolved
}

func (q *Queue) addRepeatable(ctx context.Context, j *Job) (*Job, error) {
	rep := j.Opts.Repeat
	if rep.Key == "" {
		return nil, apperrors.NewQueueError("register repeatable", fmt.Errorf("repeat key is required"))
	}
	if rep.Cron == "" && rep.Every <= 0 {
		return nil, apperrors.NewQueueError("register repeatable", fmt.Errorf("repeat requires every or cron"))
	}
	if rep.Limit <= 0 {
		return nil, apperrors.NewQueueError("register repeatable", fmt.Errorf("repeat limit must be positive"))
	}

	next, err := q.nextRepeatRun(rep, time.Now())
	if err != nil {
		return nil, err
	}

	repeatKey := fmt.Sprintf("%s:%s:%d", j.Name, rep.Key, rep.Every.Milliseconds())
	j.RepeatJobKey = repeatKey
	j.NextRun = next.UnixMilli()
	j.State = types.JobStateDelayed

	opts, _ := json.Marshal(j.Opts)
	fields := map[string]interface{}{
		"key":   repeatKey,
		"name":  j.Name,
		"jobId": j.ID,
		"data":  string(j.Data),
		"opts":  string(opts),
		"every": strconv.FormatInt(rep.Every.Milliseconds(), 10),
		"limit": strconv.Itoa(rep.Limit),
		"cron":  rep.Cron,
		"count": "0",
	}
	if err := q.cache.HSet(ctx, q.repeatDefKey(repeatKey), fields); err != nil {
		return nil, apperrors.NewQueueError("register repeatable", err)
	}
	err = q.client().ZAdd(ctx, q.key("repeat"), redis.Z{
		Score:  float64(j.NextRun),
		Member: repeatKey,
	}).Err()
	if err != nil {
		return nil, apperrors.NewQueueError("register repeatable", err)
	}

	return j, nil
}

func (q *Queue) nextRepeatRun(rep *RepeatOpts, from time.Time) (time.Time, error) {
	if rep.Cron != "" {
		schedule, err := cron.ParseStandard(rep.Cron)
		if err != nil {
			return time.Time{}, apperrors.NewQueueError("parse cron expression", err)
		}
		return schedule.Next(from), nil
	}
	return from.Add(rep.Every), nil
}

func (q *Queue) writeJob(ctx context.Context, j *Job) error {
	if err := q.cache.HSet(ctx, q.jobKey(j.ID), j.toHash()); err != nil {
		return apperrors.NewQueueError("write job", err)
	}
	return nil
}

// Process registers a handler for a job name. Must be called before Run.
func (q *Queue) Process(name string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[name] = handler
}

// Run starts the promoter/worker loop. It returns when ctx is cancelled or
// Close is called.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	if !q.stopped {
		q.mu.Unlock()
		return fmt.Errorf("queue already started")
	}
	q.stopped = false
	q.stopCh = make(chan struct{})
	q.mu.Unlock()

	ticker := time.NewTicker(q.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.wg.Wait()
			return ctx.Err()
		case <-q.stopCh:
			q.wg.Wait()
			return nil
		case <-ticker.C:
			q.Tick(ctx)
		}
	}
}

// Tick runs one promoter pass followed by worker claims up to free capacity.
// Exposed so tests and single-shot callers can drive the queue without the
// timer loop.
func (q *Queue) Tick(ctx context.Context) {
	now := nowMillis()
	if err := q.promoteRepeats(ctx, now); err != nil {
		q.logger.WithError(err).Error("Failed to promote repeatable jobs")
	}
	if err := q.promoteDelayed(ctx, now); err != nil {
		q.logger.WithError(err).Error("Failed to promote delayed jobs")
	}
	if err := q.reapStalled(ctx, now); err != nil {
		q.logger.WithError(err).Error("Failed to reap stalled jobs")
	}

	for {
		if !q.claimNext(ctx) {
			return
		}
	}
}

// Close stops the worker loop and waits for in-flight handlers.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return nil
	}
	close(q.stopCh)
	q.stopped = true
	return nil
}

// promoteRepeats materializes due repeatable definitions into waiting jobs.
func (q *Queue) promoteRepeats(ctx context.Context, now int64) error {
	due, err := q.client().ZRangeByScore(ctx, q.key("repeat"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return err
	}

	for _, repeatKey := range due {
		if err := q.fireRepeat(ctx, repeatKey); err != nil {
			q.logger.WithError(err).WithField("repeatKey", repeatKey).Error("Failed to fire repeatable job")
		}
	}
	return nil
}

func (q *Queue) fireRepeat(ctx context.Context, repeatKey string) error {
	def, err := q.cache.HGetAll(ctx, q.repeatDefKey(repeatKey))
	if err != nil {
		return err
	}
	if len(def) == 0 {
		// Definition removed concurrently; drop the zset entry.
		return q.client().ZRem(ctx, q.key("repeat"), repeatKey).Err()
	}

	count, _ := strconv.Atoi(def["count"])
	limit, _ := strconv.Atoi(def["limit"])
	everyMs, _ := strconv.ParseInt(def["every"], 10, 64)
	count++

	instance := &Job{
		ID:           fmt.Sprintf("%s:%d", def["jobId"], count),
		Name:         def["name"],
		Data:         json.RawMessage(def["data"]),
		State:        types.JobStateWaiting,
		Timestamp:    nowMillis(),
		RepeatJobKey: repeatKey,
		queue:        q,
	}
	if raw := def["opts"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &instance.Opts)
	}
	// Instances execute once each; the definition carries the repetition.
	instance.Opts.Repeat = nil

	if err := q.writeJob(ctx, instance); err != nil {
		return err
	}
	if err := q.client().LPush(ctx, q.key("wait"), instance.ID).Err(); err != nil {
		return err
	}

	if count >= limit {
		// Repetition cap reached: the definition auto-removes.
		if err := q.client().ZRem(ctx, q.key("repeat"), repeatKey).Err(); err != nil {
			return err
		}
		return q.cache.Del(ctx, q.repeatDefKey(repeatKey))
	}

	if err := q.cache.HSet(ctx, q.repeatDefKey(repeatKey), map[string]interface{}{
		"count": strconv.Itoa(count),
	}); err != nil {
		return err
	}

	rep := &RepeatOpts{Every: time.Duration(everyMs) * time.Millisecond, Cron: def["cron"]}
	next, err := q.nextRepeatRun(rep, time.Now())
	if err != nil {
		return err
	}
	return q.client().ZAdd(ctx, q.key("repeat"), redis.Z{
		Score:  float64(next.UnixMilli()),
		Member: repeatKey,
	}).Err()
}

// promoteDelayed moves due delayed jobs to the wait list.
func (q *Queue) promoteDelayed(ctx context.Context, now int64) error {
	due, err := q.client().ZRangeByScore(ctx, q.key("delayed"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return err
	}

	for _, id := range due {
		if err := q.client().ZRem(ctx, q.key("delayed"), id).Err(); err != nil {
			return err
		}
		if err := q.cache.HSet(ctx, q.jobKey(id), map[string]interface{}{
			"state": string(types.JobStateWaiting),
		}); err != nil {
			return err
		}
		if err := q.client().LPush(ctx, q.key("wait"), id).Err(); err != nil {
			return err
		}
	}
	return nil
}

// reapStalled re-queues active jobs whose liveness lock expired, failing
// them once the stall budget is spent. Stall handling is logged and
// surfaced through OnStalled, never thrown.
func (q *Queue) reapStalled(ctx context.Context, now int64) error {
	active, err := q.client().LRange(ctx, q.key("active"), 0, -1).Result()
	if err != nil {
		return err
	}

	for _, id := range active {
		lockStr, err := q.client().HGet(ctx, q.jobKey(id), "lockUntil").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return err
		}
		lockUntil, _ := strconv.ParseInt(lockStr, 10, 64)
		if lockUntil == 0 || now <= lockUntil {
			continue
		}

		stalledErr := apperrors.NewStalledJobError(id)
		q.logger.WithField("jobId", id).Warn(stalledErr.Message)
		if q.cfg.OnStalled != nil {
			q.cfg.OnStalled(id)
		}

		if err := q.client().LRem(ctx, q.key("active"), 0, id).Err(); err != nil {
			return err
		}

		fields, err := q.cache.HGetAll(ctx, q.jobKey(id))
		if err != nil {
			return err
		}
		j := jobFromHash(fields, q)
		j.StalledCount++

		if j.StalledCount > q.cfg.MaxStalledCount {
			j.FailedReason = "job stalled more than allowable limit"
			q.moveToFailed(ctx, j, stalledErr)
			continue
		}

		j.State = types.JobStateWaiting
		if err := q.writeJob(ctx, j); err != nil {
			return err
		}
		if err := q.client().LPush(ctx, q.key("wait"), id).Err(); err != nil {
			return err
		}
	}
	return nil
}

// claimNext atomically claims one waiting job and dispatches it to its
// handler. Returns false when no job or no worker slot is available.
func (q *Queue) claimNext(ctx context.Context) bool {
	select {
	case q.sem <- struct{}{}:
	default:
		return false
	}

	id, err := q.client().RPopLPush(ctx, q.key("wait"), q.key("active")).Result()
	if err == redis.Nil {
		<-q.sem
		return false
	}
	if err != nil {
		q.logger.WithError(err).Error("Failed to claim job")
		<-q.sem
		return false
	}

	fields, err := q.cache.HGetAll(ctx, q.jobKey(id))
	if err != nil || len(fields) == 0 {
		q.logger.WithField("jobId", id).Error("Claimed job has no record")
		_ = q.client().LRem(ctx, q.key("active"), 0, id)
		<-q.sem
		return true
	}

	j := jobFromHash(fields, q)
	j.State = types.JobStateActive
	j.AttemptsMade++
	j.ProcessedOn = nowMillis()

	hash := j.toHash()
	hash["lockUntil"] = strconv.FormatInt(nowMillis()+q.cfg.StallInterval.Milliseconds(), 10)
	if err := q.cache.HSet(ctx, q.jobKey(j.ID), hash); err != nil {
		q.logger.WithError(err).Error("Failed to mark job active")
		<-q.sem
		return true
	}

	q.mu.RLock()
	handler := q.handlers[j.Name]
	q.mu.RUnlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer func() { <-q.sem }()
		q.execute(ctx, j, handler)
	}()

	return true
}

func (q *Queue) execute(ctx context.Context, j *Job, handler Handler) {
	if handler == nil {
		q.moveToFailed(ctx, j, fmt.Errorf("no handler registered for job %s", j.Name))
		return
	}

	result, err := handler(ctx, j)
	if err != nil {
		q.handleFailure(ctx, j, err)
		return
	}

	if result != nil {
		if ret, merr := json.Marshal(result); merr == nil {
			j.ReturnValue = ret
		}
	}
	j.State = types.JobStateCompleted
	j.FinishedOn = nowMillis()
	j.FailedReason = ""

	if err := q.writeJob(ctx, j); err != nil {
		q.logger.WithError(err).WithField("jobId", j.ID).Error("Failed to persist completed job")
	}
	_ = q.client().LRem(ctx, q.key("active"), 0, j.ID)
	_ = q.client().ZAdd(ctx, q.key("completed"), redis.Z{Score: float64(j.FinishedOn), Member: j.ID})
}

// handleFailure applies the retry policy: re-delay while attempts remain,
// otherwise move to failed.
func (q *Queue) handleFailure(ctx context.Context, j *Job, cause error) {
	_ = q.client().LRem(ctx, q.key("active"), 0, j.ID)

	j.FailedReason = cause.Error()

	if j.Opts.Backoff == nil {
		j.Opts.Backoff = &BackoffOpts{Type: "exponential", Delay: q.cfg.DefaultBackoff}
	}

	if j.AttemptsMade < j.Opts.Attempts {
		delay := retry.Delay(j.Opts.Backoff.Delay, 0, 2.0, j.AttemptsMade)
		if j.Opts.Backoff.Type == "fixed" {
			delay = j.Opts.Backoff.Delay
		}

		j.State = types.JobStateDelayed
		if err := q.writeJob(ctx, j); err != nil {
			q.logger.WithError(err).WithField("jobId", j.ID).Error("Failed to persist retrying job")
		}
		readyAt := float64(nowMillis() + delay.Milliseconds())
		_ = q.client().ZAdd(ctx, q.key("delayed"), redis.Z{Score: readyAt, Member: j.ID})

		q.logger.WithFields(map[string]interface{}{
			"jobId":   j.ID,
			"attempt": j.AttemptsMade,
			"delay":   delay.String(),
			"error":   cause.Error(),
		}).Warn("Job attempt failed, retrying with backoff")
		return
	}

	q.moveToFailed(ctx, j, cause)
}

func (q *Queue) moveToFailed(ctx context.Context, j *Job, cause error) {
	j.State = types.JobStateFailed
	j.FinishedOn = nowMillis()
	if j.FailedReason == "" && cause != nil {
		j.FailedReason = cause.Error()
	}

	if err := q.writeJob(ctx, j); err != nil {
		q.logger.WithError(err).WithField("jobId", j.ID).Error("Failed to persist failed job")
	}
	_ = q.client().ZAdd(ctx, q.key("failed"), redis.Z{Score: float64(j.FinishedOn), Member: j.ID})

	q.logger.WithFields(map[string]interface{}{
		"jobId":        j.ID,
		"failedReason": j.FailedReason,
	}).Error("Job failed")

	if q.cfg.OnFailed != nil {
		q.cfg.OnFailed(j, cause)
	}
}

func (q *Queue) reportProgress(ctx context.Context, id string, progress int) error {
	return q.cache.HSet(ctx, q.jobKey(id), map[string]interface{}{
		"progress":  strconv.Itoa(progress),
		"lockUntil": strconv.FormatInt(nowMillis()+q.cfg.StallInterval.Milliseconds(), 10),
	})
}

// GetRepeatableJobs lists every registered repeatable definition.
func (q *Queue) GetRepeatableJobs(ctx context.Context) ([]*RepeatableJob, error) {
	entries, err := q.client().ZRangeWithScores(ctx, q.key("repeat"), 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewQueueError("list repeatable jobs", err)
	}

	repeatables := make([]*RepeatableJob, 0, len(entries))
	for _, entry := range entries {
		repeatKey, _ := entry.Member.(string)
		def, err := q.cache.HGetAll(ctx, q.repeatDefKey(repeatKey))
		if err != nil {
			return nil, apperrors.NewQueueError("read repeatable definition", err)
		}
		if len(def) == 0 {
			continue
		}

		rj := &RepeatableJob{
			Key:   repeatKey,
			Name:  def["name"],
			JobID: def["jobId"],
			Cron:  def["cron"],
			Next:  int64(entry.Score),
		}
		everyMs, _ := strconv.ParseInt(def["every"], 10, 64)
		rj.Every = time.Duration(everyMs) * time.Millisecond
		rj.Limit, _ = strconv.Atoi(def["limit"])
		rj.Count, _ = strconv.Atoi(def["count"])
		repeatables = append(repeatables, rj)
	}
	return repeatables, nil
}

// RemoveRepeatableByKey cancels a repeatable definition. Removing an
// already-removed key is a no-op, so a retried stop stays safe.
func (q *Queue) RemoveRepeatableByKey(ctx context.Context, repeatKey string) error {
	if err := q.client().ZRem(ctx, q.key("repeat"), repeatKey).Err(); err != nil {
		return apperrors.NewQueueError("remove repeatable", err)
	}
	if err := q.cache.Del(ctx, q.repeatDefKey(repeatKey)); err != nil {
		return apperrors.NewQueueError("remove repeatable definition", err)
	}
	return nil
}

// RemoveJobs removes waiting and delayed jobs whose ids match the glob
// pattern. In-flight jobs are left to run to completion.
func (q *Queue) RemoveJobs(ctx context.Context, pattern string) error {
	keys, err := q.cache.Keys(ctx, q.key("job:"+pattern))
	if err != nil {
		return apperrors.NewQueueError("match jobs", err)
	}

	prefix := q.key("job:")
	for _, key := range keys {
		id := key[len(prefix):]

		state, err := q.client().HGet(ctx, key, "state").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return apperrors.NewQueueError("read job state", err)
		}
		switch types.JobState(state) {
		case types.JobStateWaiting, types.JobStateDelayed, types.JobStatePaused:
			_ = q.client().LRem(ctx, q.key("wait"), 0, id)
			_ = q.client().ZRem(ctx, q.key("delayed"), id)
			if err := q.cache.Del(ctx, key); err != nil {
				return apperrors.NewQueueError("remove job", err)
			}
		}
	}
	return nil
}

// Empty removes all waiting and delayed work. Active jobs run to
// completion; completed/failed history is left for Clean.
func (q *Queue) Empty(ctx context.Context) error {
	waiting, err := q.client().LRange(ctx, q.key("wait"), 0, -1).Result()
	if err != nil {
		return apperrors.NewQueueError("empty queue", err)
	}
	delayed, err := q.client().ZRange(ctx, q.key("delayed"), 0, -1).Result()
	if err != nil {
		return apperrors.NewQueueError("empty queue", err)
	}

	for _, id := range append(waiting, delayed...) {
		if err := q.cache.Del(ctx, q.jobKey(id)); err != nil {
			return apperrors.NewQueueError("empty queue", err)
		}
	}
	if err := q.cache.Del(ctx, q.key("wait"), q.key("delayed")); err != nil {
		return apperrors.NewQueueError("empty queue", err)
	}
	return nil
}

// Clean removes finished jobs older than grace from the given terminal
// state bucket.
func (q *Queue) Clean(ctx context.Context, grace time.Duration, state types.JobState) error {
	var zkey string
	switch state {
	case types.JobStateCompleted:
		zkey = q.key("completed")
	case types.JobStateFailed:
		zkey = q.key("failed")
	default:
		return apperrors.NewQueueError("clean", fmt.Errorf("cannot clean state %q", state))
	}

	cutoff := strconv.FormatInt(nowMillis()-grace.Milliseconds(), 10)
	ids, err := q.client().ZRangeByScore(ctx, zkey, &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return apperrors.NewQueueError("clean", err)
	}

	for _, id := range ids {
		if err := q.cache.Del(ctx, q.jobKey(id)); err != nil {
			return apperrors.NewQueueError("clean", err)
		}
		if err := q.client().ZRem(ctx, zkey, id).Err(); err != nil {
			return apperrors.NewQueueError("clean", err)
		}
	}
	return nil
}

// GetJobs returns jobs in the given lifecycle buckets; all buckets when
// none are given.
func (q *Queue) GetJobs(ctx context.Context, states ...types.JobState) ([]*Job, error) {
	if len(states) == 0 {
		states = []types.JobState{
			types.JobStateWaiting, types.JobStateActive, types.JobStateDelayed,
			types.JobStateCompleted, types.JobStateFailed,
		}
	}

	var ids []string
	for _, state := range states {
		var batch []string
		var err error
		switch state {
		case types.JobStateWaiting, types.JobStatePaused:
			batch, err = q.client().LRange(ctx, q.key("wait"), 0, -1).Result()
		case types.JobStateActive:
			batch, err = q.client().LRange(ctx, q.key("active"), 0, -1).Result()
		case types.JobStateDelayed:
			batch, err = q.client().ZRange(ctx, q.key("delayed"), 0, -1).Result()
		case types.JobStateCompleted:
			batch, err = q.client().ZRange(ctx, q.key("completed"), 0, -1).Result()
		case types.JobStateFailed:
			batch, err = q.client().ZRange(ctx, q.key("failed"), 0, -1).Result()
		}
		if err != nil {
			return nil, apperrors.NewQueueError("list jobs", err)
		}
		ids = append(ids, batch...)
	}

	jobs := make([]*Job, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		fields, err := q.cache.HGetAll(ctx, q.jobKey(id))
		if err != nil {
			return nil, apperrors.NewQueueError("read job", err)
		}
		if len(fields) == 0 {
			continue
		}
		jobs = append(jobs, jobFromHash(fields, q))
	}
	return jobs, nil
}

// GetJob returns a single job by id.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	fields, err := q.cache.HGetAll(ctx, q.jobKey(id))
	if err != nil {
		return nil, apperrors.NewQueueError("read job", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("job not found: %s", id))
	}
	return jobFromHash(fields, q), nil
}
