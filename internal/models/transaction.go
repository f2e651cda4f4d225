package models

import (
	"time"

	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// TransactionRecord is the durable audit row for an on-chain submission
// attempt. The id is generated locally when the record is created; the hash
// stays empty until the transaction has been submitted and a hash is known.
type TransactionRecord struct {
	ID           string         `json:"id" db:"id"`
	Hash         string         `json:"hash" db:"hash"`
	ChainID      types.ChainID  `json:"chainId" db:"chain_id"`
	From         string         `json:"from" db:"from_address"`
	To           string         `json:"to" db:"to_address"`
	Data         string         `json:"data" db:"data"`
	Status       types.TxStatus `json:"status" db:"status"`
	FunctionName string         `json:"functionName" db:"function_name"`
	ArgsJSON     string         `json:"args" db:"args"`
	IsDeployTx   bool           `json:"isDeployTx" db:"is_deploy_tx"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time      `json:"updatedAt" db:"updated_at"`
}
