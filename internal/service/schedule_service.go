package service

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/job"
	"github.com/0xsequence/sidekick-sub000/internal/logging"
	"github.com/0xsequence/sidekick-sub000/internal/models"
	"github.com/0xsequence/sidekick-sub000/internal/storage"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// StartRequest is a request to begin a recurring reward distribution.
type StartRequest struct {
	Recipients   []string `json:"recipients"`
	Amounts      []string `json:"amounts"`
	EveryMinutes int      `json:"every_x_minutes"`
	RepeatCount  int      `json:"repeat_count"`
	Cron         string   `json:"cron,omitempty"`
}

// StartResult is the response payload of a started schedule.
type StartResult struct {
	JobID        string    `json:"jobId"`
	RepeatJobKey string    `json:"repeatJobKey"`
	Recipients   int       `json:"recipients"`
	NextRun      time.Time `json:"nextRun"`
}

// ScheduleService is the administrative controller for recurring reward
// schedules. It owns the side-index that maps (chainId, contractAddress)
// to the broker's repeat-job identifiers.
type ScheduleService struct {
	queue  *job.Queue
	index  *storage.ScheduleIndex
	logger *logging.Logger
}

// NewScheduleService wires the controller to the broker and the side-index.
func NewScheduleService(queue *job.Queue, index *storage.ScheduleIndex) *ScheduleService {
	return &ScheduleService{
		queue:  queue,
		index:  index,
		logger: logging.WithField("component", "scheduleService"),
	}
}

// Start validates the request, registers the repeatable reward job and
// writes the schedule record. On any validation failure nothing is
// enqueued.
func (s *ScheduleService) Start(ctx context.Context, chainID types.ChainID, contractAddress string, req *StartRequest) (*StartResult, error) {
	data := &models.RewardJobData{
		ChainID:         chainID,
		ContractAddress: contractAddress,
		Recipients:      req.Recipients,
		Amounts:         req.Amounts,
	}
	if err := data.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if req.Cron == "" && req.EveryMinutes <= 0 {
		return nil, apperrors.NewValidationError("every_x_minutes must be positive")
	}
	if req.RepeatCount < 1 {
		return nil, apperrors.NewValidationError("repeat_count must be at least 1")
	}

	scheduleKey := models.ScheduleKey(chainID, contractAddress)
	if _, err := s.index.Get(ctx, scheduleKey); err == nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("schedule already active for %s", scheduleKey))
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	every := time.Duration(req.EveryMinutes) * time.Minute
	added, err := s.queue.Add(ctx, models.RewardJobName, data, &job.Opts{
		Attempts: 1,
		Repeat: &job.RepeatOpts{
			Every: every,
			Limit: req.RepeatCount,
			Cron:  req.Cron,
			Key:   scheduleKey,
		},
	})
	if err != nil {
		return nil, err
	}

	record := &models.ScheduleRecord{
		ChainID:         chainID,
		ContractAddress: contractAddress,
		JobID:           added.ID,
		RepeatJobKey:    added.RepeatJobKey,
		EveryMillis:     every.Milliseconds(),
		Limit:           req.RepeatCount,
		Cron:            req.Cron,
		Recipients:      req.Recipients,
		Amounts:         req.Amounts,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.index.Put(ctx, record); err != nil {
		// The schedule must not run untracked: roll the registration back.
		if rmErr := s.queue.RemoveRepeatableByKey(ctx, added.RepeatJobKey); rmErr != nil {
			s.logger.WithError(rmErr).WithField("repeatJobKey", added.RepeatJobKey).
				Error("Failed to roll back repeatable after index write failure")
		}
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"scheduleKey":  scheduleKey,
		"jobId":        added.ID,
		"repeatJobKey": added.RepeatJobKey,
		"recipients":   len(req.Recipients),
		"limit":        req.RepeatCount,
	}).Info("Reward schedule started")

	return &StartResult{
		JobID:        added.ID,
		RepeatJobKey: added.RepeatJobKey,
		Recipients:   len(req.Recipients),
		NextRun:      time.UnixMilli(added.NextRun),
	}, nil
}

// Stop cancels the schedule for a (chainId, contractAddress) key. The
// record is deleted last, so a crash between broker-cancel and index-delete
// leaves a retryable state; a second stop reports NotFound.
func (s *ScheduleService) Stop(ctx context.Context, chainID types.ChainID, contractAddress string) (string, error) {
	scheduleKey := models.ScheduleKey(chainID, contractAddress)

	record, err := s.index.Get(ctx, scheduleKey)
	if err != nil {
		return "", err
	}

	if err := s.queue.RemoveRepeatableByKey(ctx, record.RepeatJobKey); err != nil {
		return "", err
	}
	// Materialized instances carry ids derived from the base job id.
	if err := s.queue.RemoveJobs(ctx, record.JobID+"*"); err != nil {
		return "", err
	}
	if err := s.index.Delete(ctx, scheduleKey); err != nil {
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"scheduleKey": scheduleKey,
		"jobId":       record.JobID,
	}).Info("Reward schedule stopped")

	return record.JobID, nil
}

// List projects broker-visible jobs, optionally filtered by lifecycle
// bucket.
func (s *ScheduleService) List(ctx context.Context, statusFilter string) ([]*job.Job, error) {
	if statusFilter == "" {
		return s.queue.GetJobs(ctx)
	}
	state, err := types.ParseJobState(statusFilter)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return s.queue.GetJobs(ctx, state)
}

// Clean is the destructive reset: queued work, repeatable definitions,
// finished-job history and every schedule record are removed. Best-effort
// all-or-nothing; callers re-verify via List.
func (s *ScheduleService) Clean(ctx context.Context) error {
	if err := s.queue.Empty(ctx); err != nil {
		return err
	}

	repeatables, err := s.queue.GetRepeatableJobs(ctx)
	if err != nil {
		return err
	}
	for _, rep := range repeatables {
		if err := s.queue.RemoveRepeatableByKey(ctx, rep.Key); err != nil {
			return err
		}
	}

	if err := s.queue.Clean(ctx, 0, types.JobStateCompleted); err != nil {
		return err
	}
	if err := s.queue.Clean(ctx, 0, types.JobStateFailed); err != nil {
		return err
	}
	if err := s.index.DeleteAll(ctx); err != nil {
		return err
	}

	s.logger.Warn("Queue and schedule index purged")
	return nil
}
