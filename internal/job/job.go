// Package job implements the durable Redis-backed queue broker for the
// reward pipeline: delayed and repeating jobs, per-attempt retries with
// exponential backoff, and stalled-job detection with at-least-once
// delivery.
package job

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// BackoffOpts configures the retry delay policy for a job.
type BackoffOpts struct {
	// Type is "exponential" or "fixed".
	Type string `json:"type"`
	// Delay is the base delay for the first retry.
	Delay time.Duration `json:"delay"`
}

// RepeatOpts registers a repeatable job definition. Key is the
// caller-supplied identity of the schedule; the broker keys repeat
// definitions on it end-to-end so cancellation can never target a
// different schedule that happens to share an interval.
type RepeatOpts struct {
	Every time.Duration `json:"every"`
	Limit int           `json:"limit"`
	Cron  string        `json:"cron,omitempty"`
	Key   string        `json:"key"`
}

// Opts holds per-job options.
type Opts struct {
	Attempts int           `json:"attempts"`
	Backoff  *BackoffOpts  `json:"backoff,omitempty"`
	Delay    time.Duration `json:"delay,omitempty"`
	Repeat   *RepeatOpts   `json:"repeat,omitempty"`
}

// Job is the broker-visible unit of work.
type Job struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	Opts         Opts            `json:"opts"`
	State        types.JobState  `json:"state"`
	Progress     int             `json:"progress"`
	AttemptsMade int             `json:"attemptsMade"`
	StalledCount int             `json:"stalledCount"`
	FailedReason string          `json:"failedReason,omitempty"`
	ReturnValue  json.RawMessage `json:"returnvalue,omitempty"`
	Timestamp    int64           `json:"timestamp"`
	ProcessedOn  int64           `json:"processedOn,omitempty"`
	FinishedOn   int64           `json:"finishedOn,omitempty"`
	RepeatJobKey string          `json:"repeatJobKey,omitempty"`
	// NextRun is populated for repeat definitions returned by Add.
	NextRun int64 `json:"nextRun,omitempty"`

	queue *Queue
}

// ReportProgress updates the job's progress and renews its liveness lock.
// Workers call it between processing steps; a job that stops reporting is
// considered stalled once the lock expires.
func (j *Job) ReportProgress(ctx context.Context, progress int) error {
	j.Progress = progress
	if j.queue == nil {
		return nil
	}
	return j.queue.reportProgress(ctx, j.ID, progress)
}

// UnmarshalData decodes the job payload into v.
func (j *Job) UnmarshalData(v interface{}) error {
	return json.Unmarshal(j.Data, v)
}

// toHash serializes the mutable job fields into a Redis hash.
func (j *Job) toHash() map[string]interface{} {
	opts, _ := json.Marshal(j.Opts)
	fields := map[string]interface{}{
		"id":           j.ID,
		"name":         j.Name,
		"data":         string(j.Data),
		"opts":         string(opts),
		"state":        string(j.State),
		"progress":     strconv.Itoa(j.Progress),
		"attemptsMade": strconv.Itoa(j.AttemptsMade),
		"stalledCount": strconv.Itoa(j.StalledCount),
		"failedReason": j.FailedReason,
		"timestamp":    strconv.FormatInt(j.Timestamp, 10),
		"processedOn":  strconv.FormatInt(j.ProcessedOn, 10),
		"finishedOn":   strconv.FormatInt(j.FinishedOn, 10),
		"repeatJobKey": j.RepeatJobKey,
	}
	if j.ReturnValue != nil {
		fields["returnvalue"] = string(j.ReturnValue)
	}
	return fields
}

// jobFromHash rebuilds a Job from its Redis hash.
func jobFromHash(fields map[string]string, q *Queue) *Job {
	j := &Job{
		ID:           fields["id"],
		Name:         fields["name"],
		Data:         json.RawMessage(fields["data"]),
		State:        types.JobState(fields["state"]),
		FailedReason: fields["failedReason"],
		RepeatJobKey: fields["repeatJobKey"],
		queue:        q,
	}
	if raw := fields["opts"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &j.Opts)
	}
	if raw := fields["returnvalue"]; raw != "" {
		j.ReturnValue = json.RawMessage(raw)
	}
	j.Progress, _ = strconv.Atoi(fields["progress"])
	j.AttemptsMade, _ = strconv.Atoi(fields["attemptsMade"])
	j.StalledCount, _ = strconv.Atoi(fields["stalledCount"])
	j.Timestamp, _ = strconv.ParseInt(fields["timestamp"], 10, 64)
	j.ProcessedOn, _ = strconv.ParseInt(fields["processedOn"], 10, 64)
	j.FinishedOn, _ = strconv.ParseInt(fields["finishedOn"], 10, 64)
	return j
}

// RepeatableJob describes a registered repeatable definition.
type RepeatableJob struct {
	Key   string        `json:"key"`
	Name  string        `json:"name"`
	JobID string        `json:"jobId"`
	Every time.Duration `json:"every"`
	Limit int           `json:"limit"`
	Count int           `json:"count"`
	Cron  string        `json:"cron,omitempty"`
	Next  int64         `json:"next"`
}
