package adapter

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
)

// erc20RewardABI covers the entry points the reward pipeline submits.
// batchTransfer moves the whole recipient set in one transaction.
const erc20RewardABI = `[
	{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"batchTransfer","type":"function","inputs":[{"name":"recipients","type":"address[]"},{"name":"amounts","type":"uint256[]"}],"outputs":[]},
	{"name":"mint","type":"function","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

var rewardABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20RewardABI))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded reward ABI: %v", err))
	}
	rewardABI = parsed
}

// ContractCall is a call to a known contract entry point. FunctionName is
// resolved through the embedded ABI at encode time, so an unknown name or
// a wrong argument shape fails before anything reaches the wire.
type ContractCall struct {
	FunctionName string        `json:"functionName"`
	Args         []interface{} `json:"args"`
}

// NewBatchTransferCall builds the bulk-transfer call for one reward batch.
func NewBatchTransferCall(recipients []common.Address, amounts []*big.Int) ContractCall {
	return ContractCall{
		FunctionName: "batchTransfer",
		Args:         []interface{}{recipients, amounts},
	}
}

// NewTransferCall builds a single ERC-20 transfer call.
func NewTransferCall(to common.Address, amount *big.Int) ContractCall {
	return ContractCall{
		FunctionName: "transfer",
		Args:         []interface{}{to, amount},
	}
}

// Encode packs the call through the ABI table.
func (c ContractCall) Encode() ([]byte, error) {
	method, ok := rewardABI.Methods[c.FunctionName]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown contract function: %s", c.FunctionName))
	}
	if len(c.Args) != len(method.Inputs) {
		return nil, apperrors.NewValidationError(fmt.Sprintf(
			"function %s expects %d arguments, got %d",
			c.FunctionName, len(method.Inputs), len(c.Args)))
	}

	data, err := rewardABI.Pack(c.FunctionName, c.Args...)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("encode %s: %v", c.FunctionName, err))
	}
	return data, nil
}
