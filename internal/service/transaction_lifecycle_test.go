package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xsequence/sidekick-sub000/internal/adapter"
	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/models"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

type storeUpdate struct {
	id     string
	fields map[string]interface{}
}

type fakeStore struct {
	created   []*models.TransactionRecord
	updates   []storeUpdate
	createErr error
	updateErr error
}

func (f *fakeStore) Create(ctx context.Context, record *models.TransactionRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *record
	f.created = append(f.created, &copied)
	return nil
}

func (f *fakeStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, storeUpdate{id: id, fields: fields})
	return nil
}

func testCall() adapter.ContractCall {
	return adapter.NewBatchTransferCall(
		[]common.Address{common.HexToAddress("0x1111111111111111111111111111111111111111")},
		[]*big.Int{big.NewInt(10)},
	)
}

func TestCreatePendingWithoutStoreIsNoOp(t *testing.T) {
	tracker := NewTransactionLifecycle(nil)

	record, err := tracker.CreatePending(context.Background(), types.ChainID("1"), "0xfrom", "0xto", testCall())
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.False(t, tracker.Enabled())
}

func TestCreatePendingWritesPendingRowWithEmptyHash(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTransactionLifecycle(store)

	record, err := tracker.CreatePending(context.Background(), types.ChainID("84532"), "0xfrom", "0xto", testCall())
	require.NoError(t, err)
	require.NotNil(t, record)

	require.Len(t, store.created, 1)
	assert.Equal(t, types.TxStatusPending, store.created[0].Status)
	assert.Empty(t, store.created[0].Hash)
	assert.Equal(t, "batchTransfer", store.created[0].FunctionName)
	assert.NotEmpty(t, record.ID)
	assert.Empty(t, store.updates)
}

func TestCreatePendingStoresEncodedCallData(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTransactionLifecycle(store)

	call := testCall()
	payload, err := call.Encode()
	require.NoError(t, err)

	record, err := tracker.CreatePending(context.Background(), types.ChainID("84532"), "0xfrom", "0xto", call)
	require.NoError(t, err)

	assert.Equal(t, hexutil.Encode(payload), record.Data)
	require.Len(t, store.created, 1)
	assert.Equal(t, record.Data, store.created[0].Data)
}

func TestFinalizeSuccessWritesDoneOnce(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTransactionLifecycle(store)
	ctx := context.Background()

	record, err := tracker.CreatePending(ctx, types.ChainID("1"), "0xfrom", "0xto", testCall())
	require.NoError(t, err)

	hash := common.HexToHash("0xdead")
	status, err := tracker.Finalize(ctx, record, &adapter.TxResult{
		Hash:    hash,
		Receipt: &ethtypes.Receipt{Status: 1, TxHash: hash},
	})
	require.NoError(t, err)
	assert.Equal(t, types.TxStatusDone, status)

	require.Len(t, store.updates, 1)
	assert.Equal(t, record.ID, store.updates[0].id)
	assert.Equal(t, types.TxStatusDone, store.updates[0].fields["status"])
	assert.Equal(t, hash.Hex(), store.updates[0].fields["hash"])
	assert.Equal(t, types.TxStatusDone, record.Status)
}

func TestFinalizeRevertedReceiptWritesFailedWithHash(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTransactionLifecycle(store)
	ctx := context.Background()

	record, err := tracker.CreatePending(ctx, types.ChainID("1"), "0xfrom", "0xto", testCall())
	require.NoError(t, err)

	hash := common.HexToHash("0xbeef")
	status, err := tracker.Finalize(ctx, record, &adapter.TxResult{
		Hash:    hash,
		Receipt: &ethtypes.Receipt{Status: 0, TxHash: hash},
	})
	require.Error(t, err)
	assert.Equal(t, types.TxStatusFailed, status)
	assert.Equal(t, apperrors.CategorySubmission, apperrors.Categorize(err).Category)

	require.Len(t, store.updates, 1)
	assert.Equal(t, types.TxStatusFailed, store.updates[0].fields["status"])
	assert.Equal(t, hash.Hex(), store.updates[0].fields["hash"])
}

func TestFinalizeWaitErrorWritesFailedAndRethrows(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTransactionLifecycle(store)
	ctx := context.Background()

	record, err := tracker.CreatePending(ctx, types.ChainID("1"), "0xfrom", "0xto", testCall())
	require.NoError(t, err)

	waitErr := errors.New("receipt timeout")
	hash := common.HexToHash("0xfeed")
	status, err := tracker.Finalize(ctx, record, &adapter.TxResult{
		Hash: hash,
		Wait: func(ctx context.Context) (*ethtypes.Receipt, error) {
			return nil, waitErr
		},
	})
	assert.ErrorIs(t, err, waitErr)
	assert.Equal(t, types.TxStatusFailed, status)

	// Exactly one terminal write despite the error path.
	require.Len(t, store.updates, 1)
	assert.Equal(t, types.TxStatusFailed, store.updates[0].fields["status"])
}

func TestFinalizeWithAuditingDisabledStillSurfacesErrors(t *testing.T) {
	tracker := NewTransactionLifecycle(nil)

	hash := common.HexToHash("0xbeef")
	status, err := tracker.Finalize(context.Background(), nil, &adapter.TxResult{
		Hash:    hash,
		Receipt: &ethtypes.Receipt{Status: 0, TxHash: hash},
	})
	require.Error(t, err)
	assert.Equal(t, types.TxStatusFailed, status)
}

func TestCreateTerminalWritesDoneDirectly(t *testing.T) {
	store := &fakeStore{}
	tracker := NewTransactionLifecycle(store)

	record, err := tracker.CreateTerminal(context.Background(), types.ChainID("137"), "0xfrom", "0xto", testCall(), "0xabc", false)
	require.NoError(t, err)
	require.NotNil(t, record)

	require.Len(t, store.created, 1)
	assert.Equal(t, types.TxStatusDone, store.created[0].Status)
	assert.Equal(t, "0xabc", store.created[0].Hash)
	assert.NotEmpty(t, store.created[0].Data)
	assert.Empty(t, store.updates)
}
