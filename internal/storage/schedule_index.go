package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/models"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

const scheduleKeyPrefix = "rewards:schedules:"

// ScheduleIndex is the side-index of active recurring schedules, keyed by
// (chainId, contractAddress). It exists only to let a stop request locate
// the broker's repeat-job identifiers without scanning the whole queue.
type ScheduleIndex struct {
	cache *RedisCache
}

// NewScheduleIndex creates a schedule side-index over the shared Redis
// connection.
func NewScheduleIndex(cache *RedisCache) *ScheduleIndex {
	return &ScheduleIndex{cache: cache}
}

func (s *ScheduleIndex) redisKey(key string) string {
	return scheduleKeyPrefix + key
}

// Put writes a schedule record hash. Overwrites any previous record for the
// same key.
func (s *ScheduleIndex) Put(ctx context.Context, record *models.ScheduleRecord) error {
	recipients, err := json.Marshal(record.Recipients)
	if err != nil {
		return fmt.Errorf("failed to marshal recipients: %w", err)
	}
	amounts, err := json.Marshal(record.Amounts)
	if err != nil {
		return fmt.Errorf("failed to marshal amounts: %w", err)
	}

	fields := map[string]interface{}{
		"chainId":         string(record.ChainID),
		"contractAddress": record.ContractAddress,
		"jobId":           record.JobID,
		"repeatJobKey":    record.RepeatJobKey,
		"every":           strconv.FormatInt(record.EveryMillis, 10),
		"limit":           strconv.Itoa(record.Limit),
		"cron":            record.Cron,
		"recipients":      string(recipients),
		"amounts":         string(amounts),
		"createdAt":       record.CreatedAt.UTC().Format(time.RFC3339),
	}

	if err := s.cache.HSet(ctx, s.redisKey(record.Key()), fields); err != nil {
		return apperrors.NewQueueError("write schedule record", err)
	}
	return nil
}

// Get resolves a schedule record. Returns a NOT_FOUND error when no active
// schedule exists for the key.
func (s *ScheduleIndex) Get(ctx context.Context, key string) (*models.ScheduleRecord, error) {
	fields, err := s.cache.HGetAll(ctx, s.redisKey(key))
	if err != nil {
		return nil, apperrors.NewQueueError("read schedule record", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.NewNotFoundError("No active jobs found")
	}

	record := &models.ScheduleRecord{
		ChainID:         types.ChainID(fields["chainId"]),
		ContractAddress: fields["contractAddress"],
		JobID:           fields["jobId"],
		RepeatJobKey:    fields["repeatJobKey"],
		Cron:            fields["cron"],
	}
	record.EveryMillis, _ = strconv.ParseInt(fields["every"], 10, 64)
	record.Limit, _ = strconv.Atoi(fields["limit"])
	if ts := fields["createdAt"]; ts != "" {
		record.CreatedAt, _ = time.Parse(time.RFC3339, ts)
	}
	if raw := fields["recipients"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &record.Recipients)
	}
	if raw := fields["amounts"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &record.Amounts)
	}

	return record, nil
}

// Delete removes a schedule record. Deleting an absent key is a no-op, so a
// retried stop stays safe.
func (s *ScheduleIndex) Delete(ctx context.Context, key string) error {
	if err := s.cache.Del(ctx, s.redisKey(key)); err != nil {
		return apperrors.NewQueueError("delete schedule record", err)
	}
	return nil
}

// ListKeys returns every active schedule key (without the Redis prefix).
func (s *ScheduleIndex) ListKeys(ctx context.Context) ([]string, error) {
	raw, err := s.cache.Keys(ctx, scheduleKeyPrefix+"*")
	if err != nil {
		return nil, apperrors.NewQueueError("list schedule records", err)
	}

	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, scheduleKeyPrefix))
	}
	return keys, nil
}

// DeleteAll removes every schedule record. Used by the destructive clean
// operation.
func (s *ScheduleIndex) DeleteAll(ctx context.Context) error {
	raw, err := s.cache.Keys(ctx, scheduleKeyPrefix+"*")
	if err != nil {
		return apperrors.NewQueueError("list schedule records", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := s.cache.Del(ctx, raw...); err != nil {
		return apperrors.NewQueueError("delete schedule records", err)
	}
	return nil
}
