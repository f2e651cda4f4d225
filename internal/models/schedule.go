package models

import (
	"fmt"
	"math/big"
	"time"

	"github.com/0xsequence/sidekick-sub000/internal/types"
)

// ErrLengthMismatch is the user-facing message for a start request whose
// recipient and amount arrays do not pair up.
const ErrLengthMismatch = "Users and amounts arrays must be the same length"

// RewardJobName is the broker job name reward distributions run under.
const RewardJobName = "erc20-rewards"

// RewardJobData is the payload of a scheduled reward distribution job.
// Recipients and Amounts are parallel lists; one batched transfer covers
// every pair in a single on-chain transaction.
type RewardJobData struct {
	ChainID         types.ChainID `json:"chainId"`
	ContractAddress string        `json:"contractAddress"`
	Recipients      []string      `json:"recipients"`
	Amounts         []string      `json:"amounts"`
}

// Validate checks the pairing invariant and that every amount parses as a
// non-negative base-10 integer.
func (d *RewardJobData) Validate() error {
	if len(d.Recipients) != len(d.Amounts) {
		return fmt.Errorf("%s", ErrLengthMismatch)
	}
	if len(d.Recipients) == 0 {
		return fmt.Errorf("recipients must not be empty")
	}
	for i, amount := range d.Amounts {
		v, ok := new(big.Int).SetString(amount, 10)
		if !ok || v.Sign() < 0 {
			return fmt.Errorf("invalid amount at index %d: %q", i, amount)
		}
	}
	return nil
}

// ParsedAmounts returns the amounts as big integers. Validate must have
// succeeded first.
func (d *RewardJobData) ParsedAmounts() []*big.Int {
	amounts := make([]*big.Int, len(d.Amounts))
	for i, amount := range d.Amounts {
		amounts[i], _ = new(big.Int).SetString(amount, 10)
	}
	return amounts
}

// ScheduleRecord is the side-index entry for an active recurring schedule.
// It points a human-addressable (chainId, contractAddress) key at the
// broker's repeat-job identifiers so a later stop can cancel the schedule
// without scanning the queue. Written only by the schedule controller.
type ScheduleRecord struct {
	ChainID         types.ChainID `json:"chainId"`
	ContractAddress string        `json:"contractAddress"`
	JobID           string        `json:"jobId"`
	RepeatJobKey    string        `json:"repeatJobKey"`
	EveryMillis     int64         `json:"every"`
	Limit           int           `json:"limit"`
	Cron            string        `json:"cron,omitempty"`
	Recipients      []string      `json:"recipients"`
	Amounts         []string      `json:"amounts"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// ScheduleKey builds the side-index key for a (chainId, contractAddress) pair.
func ScheduleKey(chainID types.ChainID, contractAddress string) string {
	return fmt.Sprintf("%s:%s", chainID, contractAddress)
}

// Key returns the record's side-index key.
func (r *ScheduleRecord) Key() string {
	return ScheduleKey(r.ChainID, r.ContractAddress)
}
