package adapter

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/0xsequence/sidekick-sub000/internal/circuitbreaker"
	"github.com/0xsequence/sidekick-sub000/internal/config"
	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/logging"
	"github.com/0xsequence/sidekick-sub000/internal/retry"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// EthSignerFactory builds one signer per configured chain. Clients are
// dialed lazily and cached; every signer on a chain shares that chain's
// circuit breaker.
type EthSignerFactory struct {
	chains   map[types.ChainID]config.ChainConfig
	breakers *circuitbreaker.Registry

	mu      sync.Mutex
	signers map[types.ChainID]*EthSigner
}

// NewEthSignerFactory indexes the configured chains by chain id.
func NewEthSignerFactory(cfg config.ChainsConfig, breakers *circuitbreaker.Registry) *EthSignerFactory {
	chains := make(map[types.ChainID]config.ChainConfig)
	for _, chain := range cfg.Chains {
		if chain.ChainID == "" {
			continue
		}
		chains[types.ChainID(chain.ChainID)] = chain
	}
	return &EthSignerFactory{
		chains:   chains,
		breakers: breakers,
		signers:  make(map[types.ChainID]*EthSigner),
	}
}

// GetSigner returns the cached signer for a chain, dialing it on first use.
func (f *EthSignerFactory) GetSigner(chainID types.ChainID) (Signer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if signer, ok := f.signers[chainID]; ok {
		return signer, nil
	}

	chain, ok := f.chains[chainID]
	if !ok {
		return nil, apperrors.NewSignerError(chainID, fmt.Errorf("chain %s is not configured", chainID))
	}
	if chain.RPCURL == "" {
		return nil, apperrors.NewSignerError(chainID, fmt.Errorf("chain %s has no RPC URL", chainID))
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(chain.PrivateKey, "0x"))
	if err != nil {
		return nil, apperrors.NewSignerError(chainID, fmt.Errorf("invalid private key: %w", err))
	}

	client, err := ethclient.Dial(chain.RPCURL)
	if err != nil {
		return nil, apperrors.NewSignerError(chainID, fmt.Errorf("dial %s: %w", chain.RPCURL, err))
	}

	numericChainID, ok := new(big.Int).SetString(string(chainID), 10)
	if !ok {
		client.Close()
		return nil, apperrors.NewSignerError(chainID, fmt.Errorf("chain id %q is not a decimal integer", chainID))
	}

	signer := &EthSigner{
		chainID:    chainID,
		numeric:    numericChainID,
		client:     client,
		key:        key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		breaker:    f.breakers.ForChain(chainID),
		logger:     logging.WithField("chainId", string(chainID)),
		receiptCfg: defaultReceiptRetry(),
	}
	f.signers[chainID] = signer
	return signer, nil
}

// Close releases every dialed client.
func (f *EthSignerFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, signer := range f.signers {
		signer.client.Close()
	}
	f.signers = make(map[types.ChainID]*EthSigner)
}

func defaultReceiptRetry() *retry.RetryConfig {
	return &retry.RetryConfig{
		MaxAttempts:  30,
		InitialDelay: 2 * time.Second,
		MaxDelay:     15 * time.Second,
		Multiplier:   1.5,
	}
}

// EthSigner submits signed transactions from a single ECDSA account. RPC
// calls for submission and receipt polling go through the chain's circuit
// breaker so a dead endpoint fails fast instead of piling up workers.
type EthSigner struct {
	chainID    types.ChainID
	numeric    *big.Int
	client     *ethclient.Client
	key        *ecdsa.PrivateKey
	address    common.Address
	breaker    *circuitbreaker.CircuitBreaker
	logger     *logging.Logger
	receiptCfg *retry.RetryConfig

	nonceMu sync.Mutex
}

func (s *EthSigner) Address() common.Address {
	return s.address
}

func (s *EthSigner) BlockNumber(ctx context.Context) (uint64, error) {
	var head uint64
	err := s.breaker.Execute(ctx, func() error {
		var err error
		head, err = s.client.BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, apperrors.NewSignerError(s.chainID, err)
	}
	return head, nil
}

// SendTransaction signs and submits one call. Nonce assignment is
// serialized per signer so concurrent jobs on the same chain do not race
// for the same nonce.
func (s *EthSigner) SendTransaction(ctx context.Context, tx *TxRequest, waitReceipt bool) (*TxResult, error) {
	signed, err := s.signAndSubmit(ctx, tx)
	if err != nil {
		return nil, err
	}

	hash := signed.Hash()
	result := &TxResult{
		Hash: hash,
		Wait: func(ctx context.Context) (*ethtypes.Receipt, error) {
			return s.waitForReceipt(ctx, hash)
		},
	}
	s.logger.WithField("txHash", hash.Hex()).Info("Transaction submitted")

	if !waitReceipt {
		return result, nil
	}

	receipt, err := s.waitForReceipt(ctx, result.Hash)
	if err != nil {
		return result, err
	}
	result.Receipt = receipt
	return result, nil
}

func (s *EthSigner) signAndSubmit(ctx context.Context, tx *TxRequest) (*ethtypes.Transaction, error) {
	s.nonceMu.Lock()
	defer s.nonceMu.Unlock()

	var signed *ethtypes.Transaction
	err := s.breaker.Execute(ctx, func() error {
		nonce, err := s.client.PendingNonceAt(ctx, s.address)
		if err != nil {
			return fmt.Errorf("fetch nonce: %w", err)
		}
		gasPrice, err := s.client.SuggestGasPrice(ctx)
		if err != nil {
			return fmt.Errorf("suggest gas price: %w", err)
		}

		value := tx.Value
		if value == nil {
			value = big.NewInt(0)
		}
		gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  s.address,
			To:    &tx.To,
			Value: value,
			Data:  tx.Data,
		})
		if err != nil {
			return fmt.Errorf("estimate gas: %w", err)
		}

		unsigned := ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			To:       &tx.To,
			Value:    value,
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     tx.Data,
		})
		signed, err = ethtypes.SignTx(unsigned, ethtypes.LatestSignerForChainID(s.numeric), s.key)
		if err != nil {
			return fmt.Errorf("sign transaction: %w", err)
		}
		return s.client.SendTransaction(ctx, signed)
	})
	if err != nil {
		return nil, apperrors.NewSignerError(s.chainID, err)
	}
	return signed, nil
}

// waitForReceipt polls until the transaction is mined. A missing receipt
// is expected while the transaction is in the mempool, so it retries.
func (s *EthSigner) waitForReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	var receipt *ethtypes.Receipt
	err := retry.WithExponentialBackoff(ctx, s.receiptCfg, func(ctx context.Context, attempt int) error {
		return s.breaker.Execute(ctx, func() error {
			var err error
			receipt, err = s.client.TransactionReceipt(ctx, hash)
			return err
		})
	})
	if err != nil {
		return nil, apperrors.NewSignerError(s.chainID, fmt.Errorf("wait for receipt %s: %w", hash.Hex(), err))
	}
	return receipt, nil
}
