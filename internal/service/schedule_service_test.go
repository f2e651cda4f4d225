package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/job"
	"github.com/0xsequence/sidekick-sub000/internal/models"
	"github.com/0xsequence/sidekick-sub000/internal/storage"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

func setupScheduleService(t *testing.T) (*ScheduleService, *job.Queue, *storage.ScheduleIndex) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := storage.NewRedisCacheFromClient(client)
	queue := job.NewQueue("rewards", cache, job.Config{Workers: 1})
	index := storage.NewScheduleIndex(cache)
	return NewScheduleService(queue, index), queue, index
}

func validStart() *StartRequest {
	return &StartRequest{
		Recipients:   []string{"0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222"},
		Amounts:      []string{"10", "20"},
		EveryMinutes: 10,
		RepeatCount:  2,
	}
}

func TestStartRegistersRepeatableAndRecord(t *testing.T) {
	svc, queue, index := setupScheduleService(t)
	ctx := context.Background()

	before := time.Now()
	result, err := svc.Start(ctx, types.ChainID("84532"), "0xABC0000000000000000000000000000000000abc", validStart())
	require.NoError(t, err)

	assert.NotEmpty(t, result.JobID)
	assert.NotEmpty(t, result.RepeatJobKey)
	assert.Equal(t, 2, result.Recipients)
	assert.WithinDuration(t, before.Add(10*time.Minute), result.NextRun, 5*time.Second)

	repeatables, err := queue.GetRepeatableJobs(ctx)
	require.NoError(t, err)
	require.Len(t, repeatables, 1)
	assert.Equal(t, result.RepeatJobKey, repeatables[0].Key)
	assert.Equal(t, 2, repeatables[0].Limit)

	record, err := index.Get(ctx, models.ScheduleKey("84532", "0xABC0000000000000000000000000000000000abc"))
	require.NoError(t, err)
	assert.Equal(t, result.JobID, record.JobID)
	assert.Equal(t, result.RepeatJobKey, record.RepeatJobKey)
	assert.Equal(t, int64(10*60*1000), record.EveryMillis)
}

func TestStartLengthMismatchEnqueuesNothing(t *testing.T) {
	svc, queue, index := setupScheduleService(t)
	ctx := context.Background()

	req := validStart()
	req.Amounts = []string{"10"}

	_, err := svc.Start(ctx, types.ChainID("1"), "0xabc", req)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), models.ErrLengthMismatch)

	repeatables, err := queue.GetRepeatableJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, repeatables)

	jobs, err := queue.GetJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	keys, err := index.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStartRejectsBadIntervalAndCount(t *testing.T) {
	svc, _, _ := setupScheduleService(t)
	ctx := context.Background()

	req := validStart()
	req.EveryMinutes = 0
	_, err := svc.Start(ctx, types.ChainID("1"), "0xabc", req)
	assert.True(t, apperrors.IsValidation(err))

	req = validStart()
	req.RepeatCount = 0
	_, err = svc.Start(ctx, types.ChainID("1"), "0xabc", req)
	assert.True(t, apperrors.IsValidation(err))
}

func TestStartRejectsDuplicateSchedule(t *testing.T) {
	svc, _, _ := setupScheduleService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, types.ChainID("1"), "0xabc", validStart())
	require.NoError(t, err)

	_, err = svc.Start(ctx, types.ChainID("1"), "0xabc", validStart())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestStopIsIdempotent(t *testing.T) {
	svc, queue, index := setupScheduleService(t)
	ctx := context.Background()

	started, err := svc.Start(ctx, types.ChainID("1"), "0xabc", validStart())
	require.NoError(t, err)

	jobID, err := svc.Stop(ctx, types.ChainID("1"), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, started.JobID, jobID)

	repeatables, err := queue.GetRepeatableJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, repeatables)

	_, err = index.Get(ctx, models.ScheduleKey("1", "0xabc"))
	assert.True(t, apperrors.IsNotFound(err))

	// Second stop finds nothing.
	_, err = svc.Stop(ctx, types.ChainID("1"), "0xabc")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "No active jobs found")
}

func TestStopWithoutStartReturnsNotFound(t *testing.T) {
	svc, _, _ := setupScheduleService(t)

	_, err := svc.Stop(context.Background(), types.ChainID("1"), "0xnever")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListFiltersByState(t *testing.T) {
	svc, queue, _ := setupScheduleService(t)
	ctx := context.Background()

	_, err := queue.Add(ctx, "misc", map[string]string{"k": "v"}, nil)
	require.NoError(t, err)

	jobs, err := svc.List(ctx, "waiting")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	jobs, err = svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = svc.List(ctx, "exploded")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCleanPurgesEverything(t *testing.T) {
	svc, queue, index := setupScheduleService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx, types.ChainID("1"), "0xabc", validStart())
	require.NoError(t, err)
	_, err = queue.Add(ctx, "misc", map[string]string{"k": "v"}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Clean(ctx))

	jobs, err := queue.GetJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	repeatables, err := queue.GetRepeatableJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, repeatables)

	keys, err := index.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
