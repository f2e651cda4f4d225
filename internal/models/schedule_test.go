package models

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/0xsequence/sidekick-sub000/internal/types"
)

func TestRewardJobDataValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    RewardJobData
		wantErr bool
	}{
		{
			name: "valid pair",
			data: RewardJobData{
				ChainID:         "84532",
				ContractAddress: "0xabc",
				Recipients:      []string{"0x1", "0x2"},
				Amounts:         []string{"10", "20"},
			},
		},
		{
			name: "length mismatch",
			data: RewardJobData{
				Recipients: []string{"0x1", "0x2"},
				Amounts:    []string{"10"},
			},
			wantErr: true,
		},
		{
			name: "empty recipients",
			data: RewardJobData{
				Recipients: []string{},
				Amounts:    []string{},
			},
			wantErr: true,
		},
		{
			name: "non-numeric amount",
			data: RewardJobData{
				Recipients: []string{"0x1"},
				Amounts:    []string{"ten"},
			},
			wantErr: true,
		},
		{
			name: "negative amount",
			data: RewardJobData{
				Recipients: []string{"0x1"},
				Amounts:    []string{"-5"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// Property: Validate accepts a payload iff recipients and amounts pair up
// one-to-one and all amounts are decimal integers.
func TestRewardJobDataPairingProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("mismatched lengths always fail", prop.ForAll(
		func(recipients []string, extra int) bool {
			if extra == 0 {
				return true
			}
			amounts := make([]string, 0, len(recipients)+extra)
			for range recipients {
				amounts = append(amounts, "1")
			}
			for i := 0; i < extra; i++ {
				amounts = append(amounts, "1")
			}
			data := RewardJobData{Recipients: recipients, Amounts: amounts}
			return data.Validate() != nil
		},
		gen.SliceOf(gen.Identifier()),
		gen.IntRange(1, 5),
	))

	properties.Property("equal-length numeric payloads always pass", prop.ForAll(
		func(amounts []uint64) bool {
			if len(amounts) == 0 {
				return true
			}
			data := RewardJobData{
				Recipients: make([]string, len(amounts)),
				Amounts:    make([]string, len(amounts)),
			}
			for i, a := range amounts {
				data.Recipients[i] = "0x1"
				data.Amounts[i] = strconv.FormatUint(a, 10)
			}
			return data.Validate() == nil
		},
		gen.SliceOf(gen.UInt64()),
	))

	properties.TestingRun(t)
}

func TestScheduleKey(t *testing.T) {
	got := ScheduleKey(types.ChainBaseSepolia, "0xABC")
	if got != "84532:0xABC" {
		t.Errorf("ScheduleKey() = %q, want %q", got, "84532:0xABC")
	}

	record := &ScheduleRecord{ChainID: "1", ContractAddress: "0xdef"}
	if record.Key() != "1:0xdef" {
		t.Errorf("Key() = %q", record.Key())
	}
}
