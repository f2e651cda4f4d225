package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/0xsequence/sidekick-sub000/internal/config"
	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/models"
	"github.com/0xsequence/sidekick-sub000/internal/types"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func setupTestDB(t *testing.T) *PostgresDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.PostgresConfig{
		Host:            "localhost",
		Port:            "5432",
		Database:        "sidekick_test",
		User:            "sidekick",
		Password:        "",
		MaxConnections:  5,
		MinConnections:  1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}

	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	return db
}

func TestConnString(t *testing.T) {
	cfg := &config.PostgresConfig{
		Host:     "db.internal",
		Port:     "5433",
		Database: "rewards",
		User:     "svc",
		Password: "secret",
	}

	want := "host=db.internal port=5433 user=svc password=secret dbname=rewards sslmode=disable"
	if got := connString(cfg); got != want {
		t.Errorf("connString() = %q, want %q", got, want)
	}
}

func TestTransactionRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := testContext(t)

	record := &models.TransactionRecord{
		ID:           uuid.NewString(),
		ChainID:      types.ChainBaseSepolia,
		From:         "0xfrom",
		To:           "0xto",
		Data:         "0xdeadbeef",
		Status:       types.TxStatusPending,
		FunctionName: "batchTransfer",
		ArgsJSON:     `[["0x1"],["10"]]`,
	}

	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Status != types.TxStatusPending {
		t.Errorf("Status = %v, want pending", got.Status)
	}
	if got.Hash != "" {
		t.Errorf("Hash = %q, want empty before submission", got.Hash)
	}
}

func TestTransactionRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := testContext(t)

	record := &models.TransactionRecord{
		ID:      uuid.NewString(),
		ChainID: types.ChainBaseSepolia,
		Status:  types.TxStatusPending,
	}

	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Update(ctx, record.ID, map[string]interface{}{
		"hash":   "0xhash",
		"status": string(types.TxStatusDone),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != types.TxStatusDone {
		t.Errorf("Status = %v, want done", got.Status)
	}
	if got.Hash != "0xhash" {
		t.Errorf("Hash = %v, want 0xhash", got.Hash)
	}
}

func TestTransactionRepository_UpdateMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTransactionRepository(db)
	ctx := testContext(t)

	err := repo.Update(ctx, uuid.NewString(), map[string]interface{}{
		"status": string(types.TxStatusFailed),
	})
	if err == nil {
		t.Fatal("Update() expected error for missing record")
	}
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}
