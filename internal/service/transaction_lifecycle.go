// Package service holds the schedule controller and the transaction
// lifecycle tracker that sit between the HTTP surface, the broker and the
// chain adapter.
package service

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/0xsequence/sidekick-sub000/internal/adapter"
	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/logging"
	"github.com/0xsequence/sidekick-sub000/internal/models"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// TransactionStore is the audit-row persistence the tracker writes to.
// *storage.TransactionRepository satisfies it; tests supply fakes.
type TransactionStore interface {
	Create(ctx context.Context, record *models.TransactionRecord) error
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}

// TransactionLifecycle writes the audit trail of on-chain submission
// attempts: one pending row before each submission, exactly one terminal
// update after. Auditing is best-effort relative to the chain action: with
// no store configured every write degrades to a logged no-op.
type TransactionLifecycle struct {
	store  TransactionStore
	logger *logging.Logger
}

// NewTransactionLifecycle creates the tracker. A nil store disables
// auditing.
func NewTransactionLifecycle(store TransactionStore) *TransactionLifecycle {
	return &TransactionLifecycle{
		store:  store,
		logger: logging.WithField("component", "txLifecycle"),
	}
}

// Enabled reports whether a backing store is configured.
func (t *TransactionLifecycle) Enabled() bool {
	return t.store != nil
}

// CreatePending inserts a pending row for a submission that is about to
// happen. The hash stays empty until the transaction is dispatched. With
// auditing disabled it returns (nil, nil); callers treat a nil record as
// "no audit trail", not as an error.
func (t *TransactionLifecycle) CreatePending(ctx context.Context, chainID types.ChainID, from, to string, call adapter.ContractCall) (*models.TransactionRecord, error) {
	if t.store == nil {
		t.logger.Warn("Transaction store not configured, skipping pending record")
		return nil, nil
	}

	record := &models.TransactionRecord{
		ID:           uuid.NewString(),
		ChainID:      chainID,
		From:         from,
		To:           to,
		Status:       types.TxStatusPending,
		FunctionName: call.FunctionName,
		ArgsJSON:     marshalArgs(call),
		Data:         encodeCallData(call),
	}
	if err := t.store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Finalize blocks on the receipt for a submitted transaction and writes the
// record's single terminal state: done on a successful receipt, failed on a
// reverted receipt or an error while waiting. The original wait error is
// returned after the failed write so the caller's retry bookkeeping sees
// it unmodified; a reverted receipt returns SubmissionRevertedError. Not
// idempotent: call at most once per submission.
func (t *TransactionLifecycle) Finalize(ctx context.Context, record *models.TransactionRecord, submitted *adapter.TxResult) (types.TxStatus, error) {
	hash := submitted.Hash.Hex()

	receipt, err := submitted.Await(ctx)
	if err != nil {
		t.writeTerminal(ctx, record, types.TxStatusFailed, hash)
		return types.TxStatusFailed, err
	}

	if receipt.Status == 0 {
		t.writeTerminal(ctx, record, types.TxStatusFailed, hash)
		return types.TxStatusFailed, apperrors.NewSubmissionRevertedError(hash)
	}

	t.writeTerminal(ctx, record, types.TxStatusDone, hash)
	return types.TxStatusDone, nil
}

// CreateTerminal writes a record directly in done state for flows that
// already hold a confirmed receipt.
func (t *TransactionLifecycle) CreateTerminal(ctx context.Context, chainID types.ChainID, from, to string, call adapter.ContractCall, hash string, isDeployTx bool) (*models.TransactionRecord, error) {
	if t.store == nil {
		t.logger.Warn("Transaction store not configured, skipping terminal record")
		return nil, nil
	}

	record := &models.TransactionRecord{
		ID:           uuid.NewString(),
		Hash:         hash,
		ChainID:      chainID,
		From:         from,
		To:           to,
		Status:       types.TxStatusDone,
		FunctionName: call.FunctionName,
		ArgsJSON:     marshalArgs(call),
		Data:         encodeCallData(call),
		IsDeployTx:   isDeployTx,
	}
	if err := t.store.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func marshalArgs(call adapter.ContractCall) string {
	args, err := json.Marshal(call.Args)
	if err != nil {
		return "[]"
	}
	return string(args)
}

// encodeCallData renders the calldata the submission will carry. An
// unencodable call shows up as an empty data column; the caller's own
// encode step surfaces the error.
func encodeCallData(call adapter.ContractCall) string {
	payload, err := call.Encode()
	if err != nil {
		return ""
	}
	return hexutil.Encode(payload)
}

func (t *TransactionLifecycle) writeTerminal(ctx context.Context, record *models.TransactionRecord, status types.TxStatus, hash string) {
	if t.store == nil || record == nil {
		return
	}

	err := t.store.Update(ctx, record.ID, map[string]interface{}{
		"status": status,
		"hash":   hash,
	})
	if err != nil {
		// The chain action already happened; a lost audit write is logged,
		// never surfaced.
		t.logger.WithError(err).WithFields(map[string]interface{}{
			"recordId": record.ID,
			"status":   string(status),
		}).Error("Failed to write terminal transaction state")
		return
	}
	record.Status = status
	record.Hash = hash
}
