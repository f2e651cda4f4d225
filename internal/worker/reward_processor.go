// Package worker runs the reward distribution handler on top of the broker.
package worker

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xsequence/sidekick-sub000/internal/adapter"
	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/job"
	"github.com/0xsequence/sidekick-sub000/internal/logging"
	"github.com/0xsequence/sidekick-sub000/internal/metrics"
	"github.com/0xsequence/sidekick-sub000/internal/models"
	"github.com/0xsequence/sidekick-sub000/internal/service"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// RewardResult is the value a successful job execution resolves with.
type RewardResult struct {
	TxHash string `json:"txHash"`
	Status string `json:"status"`
}

// RewardProcessor executes one reward distribution per job: a pending
// audit row, one batched transfer covering every (recipient, amount) pair,
// then a terminal audit write after the receipt.
type RewardProcessor struct {
	signers adapter.SignerFactory
	tracker *service.TransactionLifecycle
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewRewardProcessor wires the processor. metrics may be nil.
func NewRewardProcessor(signers adapter.SignerFactory, tracker *service.TransactionLifecycle, m *metrics.Metrics) *RewardProcessor {
	return &RewardProcessor{
		signers: signers,
		tracker: tracker,
		metrics: m,
		logger:  logging.WithField("component", "rewardProcessor"),
	}
}

// Register attaches the handler to the broker.
func (p *RewardProcessor) Register(q *job.Queue) {
	q.Process(models.RewardJobName, p.Handle)
}

// Handle is the per-job state machine. Errors are logged with the job id
// and recipient list, then returned unmodified so the broker's retry and
// failedReason bookkeeping stay authoritative.
func (p *RewardProcessor) Handle(ctx context.Context, j *job.Job) (interface{}, error) {
	if err := j.ReportProgress(ctx, 0); err != nil {
		p.logger.WithError(err).WithField("jobId", j.ID).Warn("Failed to report progress")
	}

	var data models.RewardJobData
	if err := j.UnmarshalData(&data); err != nil {
		p.logger.WithError(err).WithField("jobId", j.ID).Error("Malformed reward job payload")
		return nil, apperrors.NewValidationError("malformed reward job payload")
	}

	logger := p.logger.WithFields(map[string]interface{}{
		"jobId":      j.ID,
		"chainId":    string(data.ChainID),
		"contract":   data.ContractAddress,
		"recipients": data.Recipients,
	})

	result, err := p.distribute(ctx, j, &data)
	if err != nil {
		logger.WithError(err).Error("Reward distribution failed")
		p.countJob("failed")
		return nil, err
	}

	if err := j.ReportProgress(ctx, 100); err != nil {
		logger.WithError(err).Warn("Failed to report progress")
	}
	logger.WithField("txHash", result.TxHash).Info("Reward distribution completed")
	p.countJob("completed")
	return result, nil
}

func (p *RewardProcessor) distribute(ctx context.Context, j *job.Job, data *models.RewardJobData) (*RewardResult, error) {
	signer, err := p.signers.GetSigner(data.ChainID)
	if err != nil {
		return nil, err
	}

	recipients := make([]common.Address, len(data.Recipients))
	for i, recipient := range data.Recipients {
		recipients[i] = common.HexToAddress(recipient)
	}
	call := adapter.NewBatchTransferCall(recipients, data.ParsedAmounts())

	// The pending row lands before any network call: a crash from here on
	// leaves an auditable pending record instead of a silent gap.
	record, err := p.tracker.CreatePending(ctx, data.ChainID, signer.Address().Hex(), data.ContractAddress, call)
	if err != nil {
		return nil, err
	}
	if err := j.ReportProgress(ctx, 25); err != nil {
		p.logger.WithError(err).WithField("jobId", j.ID).Warn("Failed to report progress")
	}

	payload, err := call.Encode()
	if err != nil {
		return nil, err
	}
	if err := j.ReportProgress(ctx, 50); err != nil {
		p.logger.WithError(err).WithField("jobId", j.ID).Warn("Failed to report progress")
	}

	submitted, err := signer.SendTransaction(ctx, &adapter.TxRequest{
		To:   common.HexToAddress(data.ContractAddress),
		Data: payload,
	}, false)
	if err != nil {
		return nil, err
	}
	p.countTx(data.ChainID)
	if err := j.ReportProgress(ctx, 75); err != nil {
		p.logger.WithError(err).WithField("jobId", j.ID).Warn("Failed to report progress")
	}

	status, err := p.tracker.Finalize(ctx, record, submitted)
	p.countOutcome(data.ChainID, status)
	if err != nil {
		return nil, err
	}

	return &RewardResult{TxHash: submitted.Hash.Hex(), Status: "success"}, nil
}

func (p *RewardProcessor) countJob(outcome string) {
	if p.metrics != nil {
		p.metrics.JobsProcessed.WithLabelValues(outcome).Inc()
	}
}

func (p *RewardProcessor) countTx(chainID types.ChainID) {
	if p.metrics != nil {
		p.metrics.TxSubmitted.WithLabelValues(string(chainID)).Inc()
	}
}

func (p *RewardProcessor) countOutcome(chainID types.ChainID, status types.TxStatus) {
	if p.metrics != nil {
		p.metrics.TxFinalized.WithLabelValues(string(chainID), string(status)).Inc()
	}
}
