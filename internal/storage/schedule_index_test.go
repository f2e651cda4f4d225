package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/models"
)

func setupTestIndex(t *testing.T) (*ScheduleIndex, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewScheduleIndex(NewRedisCacheFromClient(client)), mr
}

func testScheduleRecord() *models.ScheduleRecord {
	return &models.ScheduleRecord{
		ChainID:         "84532",
		ContractAddress: "0xabc",
		JobID:           "job-1",
		RepeatJobKey:    "rewards:84532:0xabc:600000",
		EveryMillis:     600000,
		Limit:           2,
		Recipients:      []string{"0x1", "0x2"},
		Amounts:         []string{"10", "20"},
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}
}

func TestScheduleIndexPutGet(t *testing.T) {
	index, _ := setupTestIndex(t)
	ctx := context.Background()

	record := testScheduleRecord()
	require.NoError(t, index.Put(ctx, record))

	got, err := index.Get(ctx, record.Key())
	require.NoError(t, err)

	assert.Equal(t, record.ChainID, got.ChainID)
	assert.Equal(t, record.ContractAddress, got.ContractAddress)
	assert.Equal(t, record.JobID, got.JobID)
	assert.Equal(t, record.RepeatJobKey, got.RepeatJobKey)
	assert.Equal(t, record.EveryMillis, got.EveryMillis)
	assert.Equal(t, record.Limit, got.Limit)
	assert.Equal(t, record.Recipients, got.Recipients)
	assert.Equal(t, record.Amounts, got.Amounts)
}

func TestScheduleIndexGetMissing(t *testing.T) {
	index, _ := setupTestIndex(t)

	_, err := index.Get(context.Background(), "84532:0xmissing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err), "expected NOT_FOUND, got %v", err)
}

func TestScheduleIndexDelete(t *testing.T) {
	index, _ := setupTestIndex(t)
	ctx := context.Background()

	record := testScheduleRecord()
	require.NoError(t, index.Put(ctx, record))
	require.NoError(t, index.Delete(ctx, record.Key()))

	_, err := index.Get(ctx, record.Key())
	assert.True(t, apperrors.IsNotFound(err))

	// Deleting again is a no-op, so a retried stop is safe
	require.NoError(t, index.Delete(ctx, record.Key()))
}

func TestScheduleIndexListAndDeleteAll(t *testing.T) {
	index, _ := setupTestIndex(t)
	ctx := context.Background()

	first := testScheduleRecord()
	second := testScheduleRecord()
	second.ContractAddress = "0xdef"

	require.NoError(t, index.Put(ctx, first))
	require.NoError(t, index.Put(ctx, second))

	keys, err := index.ListKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"84532:0xabc", "84532:0xdef"}, keys)

	require.NoError(t, index.DeleteAll(ctx))

	keys, err = index.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
