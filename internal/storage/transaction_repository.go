package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/0xsequence/sidekick-sub000/internal/errors"
	"github.com/0xsequence/sidekick-sub000/internal/models"
)

// TransactionRepository handles transaction audit record persistence.
// Records are created in pending state before a submission and updated to
// exactly one terminal state afterwards; they are never deleted here.
type TransactionRepository struct {
	db *PostgresDB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *PostgresDB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction record
func (r *TransactionRepository) Create(ctx context.Context, record *models.TransactionRecord) error {
	query := `
		INSERT INTO transactions (
			id, hash, chain_id, from_address, to_address, data, status,
			function_name, args, is_deploy_tx, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	_, err := r.db.Pool().Exec(ctx, query,
		record.ID,
		record.Hash,
		record.ChainID,
		record.From,
		record.To,
		record.Data,
		record.Status,
		record.FunctionName,
		record.ArgsJSON,
		record.IsDeployTx,
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		return apperrors.NewDatabaseError("create transaction", err)
	}

	return nil
}

// Update mutates the hash, data and status of an existing record.
func (r *TransactionRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	// Fixed column set keeps the update statement static; absent fields
	// keep their current value via COALESCE on NULL args.
	query := `
		UPDATE transactions
		SET hash = COALESCE($2, hash),
		    data = COALESCE($3, data),
		    status = COALESCE($4, status),
		    updated_at = $5
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query,
		id,
		nullable(fields, "hash"),
		nullable(fields, "data"),
		nullable(fields, "status"),
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.NewDatabaseError("update transaction", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("transaction not found: %s", id))
	}

	return nil
}

// GetByID retrieves a transaction record by its locally generated id
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*models.TransactionRecord, error) {
	query := `
		SELECT id, hash, chain_id, from_address, to_address, data, status,
		       function_name, args, is_deploy_tx, created_at, updated_at
		FROM transactions
		WHERE id = $1
	`

	var record models.TransactionRecord
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.Hash,
		&record.ChainID,
		&record.From,
		&record.To,
		&record.Data,
		&record.Status,
		&record.FunctionName,
		&record.ArgsJSON,
		&record.IsDeployTx,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("transaction not found: %s", id))
		}
		return nil, apperrors.NewDatabaseError("get transaction", err)
	}

	return &record, nil
}

func nullable(fields map[string]interface{}, key string) interface{} {
	if v, ok := fields[key]; ok {
		return v
	}
	return nil
}
