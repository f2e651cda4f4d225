// Package types provides common type definitions for the reward pipeline service.
package types

import "fmt"

// ChainID identifies a target network. Values are the decimal chain id
// as a string ("1", "137", "84532") so they can travel through route
// parameters and Redis keys unchanged.
type ChainID string

const (
	// ChainEthereum represents the Ethereum mainnet
	ChainEthereum ChainID = "1"
	// ChainPolygon represents the Polygon network
	ChainPolygon ChainID = "137"
	// ChainArbitrum represents the Arbitrum One network
	ChainArbitrum ChainID = "42161"
	// ChainBase represents the Base network
	ChainBase ChainID = "8453"
	// ChainBaseSepolia represents the Base Sepolia testnet
	ChainBaseSepolia ChainID = "84532"
)

// TxStatus represents the lifecycle state of a transaction audit record.
type TxStatus string

const (
	// TxStatusPending is set when the record is created, before submission
	TxStatusPending TxStatus = "pending"
	// TxStatusDone is the terminal state for a confirmed submission
	TxStatusDone TxStatus = "done"
	// TxStatusFailed is the terminal state for a reverted or errored submission
	TxStatusFailed TxStatus = "failed"
)

// IsTerminal reports whether the status is one no automatic transition leaves.
func (s TxStatus) IsTerminal() bool {
	return s == TxStatusDone || s == TxStatusFailed
}

// JobState represents a broker-visible job lifecycle bucket.
type JobState string

const (
	// JobStateWaiting is a job ready to be picked up by a worker
	JobStateWaiting JobState = "waiting"
	// JobStateActive is a job currently held by a worker
	JobStateActive JobState = "active"
	// JobStateDelayed is a job scheduled for a future promote time
	JobStateDelayed JobState = "delayed"
	// JobStateCompleted is a job that resolved successfully
	JobStateCompleted JobState = "completed"
	// JobStateFailed is a job that exhausted its attempts
	JobStateFailed JobState = "failed"
	// JobStatePaused is a job held back by an administrative pause
	JobStatePaused JobState = "paused"
)

// ParseJobState validates a state filter supplied by the admin API.
func ParseJobState(s string) (JobState, error) {
	switch JobState(s) {
	case JobStateWaiting, JobStateActive, JobStateDelayed,
		JobStateCompleted, JobStateFailed, JobStatePaused:
		return JobState(s), nil
	}
	return "", fmt.Errorf("unknown job state: %q", s)
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
