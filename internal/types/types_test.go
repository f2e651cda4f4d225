package types

import "testing"

func TestTxStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status TxStatus
		want   bool
	}{
		{TxStatusPending, false},
		{TxStatusDone, true},
		{TxStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestParseJobState(t *testing.T) {
	valid := []string{"waiting", "active", "delayed", "completed", "failed", "paused"}
	for _, s := range valid {
		state, err := ParseJobState(s)
		if err != nil {
			t.Errorf("ParseJobState(%q) unexpected error: %v", s, err)
		}
		if string(state) != s {
			t.Errorf("ParseJobState(%q) = %v", s, state)
		}
	}

	if _, err := ParseJobState("running"); err == nil {
		t.Error("ParseJobState(\"running\") expected error, got nil")
	}
	if _, err := ParseJobState(""); err == nil {
		t.Error("ParseJobState(\"\") expected error, got nil")
	}
}

func TestServiceErrorError(t *testing.T) {
	err := &ServiceError{Code: "NOT_FOUND", Message: "no active jobs found"}
	want := "NOT_FOUND: no active jobs found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
