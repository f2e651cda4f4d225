// Package adapter holds the boundary to the chain: contract call encoding
// and the signer that turns encoded calls into confirmed transactions.
package adapter

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// TxRequest is an outbound contract call ready for submission.
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// TxResult is the handle to a submitted transaction. Receipt is nil unless
// the caller asked to wait for confirmation at submission time; Wait blocks
// until the receipt is available.
type TxResult struct {
	Hash    common.Hash
	Receipt *ethtypes.Receipt
	Wait    func(ctx context.Context) (*ethtypes.Receipt, error)
}

// Await returns the receipt, blocking through Wait when it was not already
// collected at submission time.
func (r *TxResult) Await(ctx context.Context) (*ethtypes.Receipt, error) {
	if r.Receipt != nil {
		return r.Receipt, nil
	}
	if r.Wait == nil {
		return nil, errors.New("transaction result has no receipt waiter")
	}
	receipt, err := r.Wait(ctx)
	if err != nil {
		return nil, err
	}
	r.Receipt = receipt
	return receipt, nil
}

// Signer submits transactions on one chain from one funded account.
type Signer interface {
	// Address returns the sending account.
	Address() common.Address
	// SendTransaction signs and submits tx. When waitReceipt is set it
	// blocks until the receipt is available or ctx is cancelled.
	SendTransaction(ctx context.Context, tx *TxRequest, waitReceipt bool) (*TxResult, error)
	// BlockNumber returns the current chain head.
	BlockNumber(ctx context.Context) (uint64, error)
}

// SignerFactory resolves a signer per chain. Resolution fails when the
// chain is not configured or its key material is invalid.
type SignerFactory interface {
	GetSigner(chainID types.ChainID) (Signer, error)
}
