package adapter

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
)

func TestBatchTransferCallEncodes(t *testing.T) {
	call := NewBatchTransferCall(
		[]common.Address{
			common.HexToAddress("0x1111111111111111111111111111111111111111"),
			common.HexToAddress("0x2222222222222222222222222222222222222222"),
		},
		[]*big.Int{big.NewInt(10), big.NewInt(20)},
	)

	data, err := call.Encode()
	require.NoError(t, err)
	require.True(t, len(data) > 4)
	// 4-byte selector for batchTransfer(address[],uint256[]).
	assert.Equal(t, rewardABI.Methods["batchTransfer"].ID, data[:4])
}

func TestTransferCallEncodes(t *testing.T) {
	call := NewTransferCall(common.HexToAddress("0x1111111111111111111111111111111111111111"), big.NewInt(5))

	data, err := call.Encode()
	require.NoError(t, err)
	assert.Equal(t, rewardABI.Methods["transfer"].ID, data[:4])
}

func TestEncodeRejectsUnknownFunction(t *testing.T) {
	call := ContractCall{FunctionName: "rugPull", Args: []interface{}{}}

	_, err := call.Encode()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestEncodeRejectsWrongArity(t *testing.T) {
	call := ContractCall{FunctionName: "transfer", Args: []interface{}{big.NewInt(5)}}

	_, err := call.Encode()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestEncodeRejectsWrongArgumentType(t *testing.T) {
	call := ContractCall{FunctionName: "transfer", Args: []interface{}{"not-an-address", big.NewInt(5)}}

	_, err := call.Encode()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
