package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/puddle/internal/models"
	"github.com/jmoiron/sqlx"
)

type TransactionRepository interface {
	RecordDeposit(ctx context.Context, transaction *models.Transaction) (*models.PiggyBank, error)
	ConfirmDeposit(ctx context.Context, transactionHash, status string) (*models.Transaction, *models.PiggyBank, error)
	GetByHash(ctx context.Context, transactionHash string) (*models.Transaction, bool, error)
	GetHistory(ctx context.Context, piggyBankID string) ([]models.TransactionDetail, error)
	GetPage(ctx context.Context, piggyBankID string, limit, offset int) ([]models.TransactionDetail, int, error)
	GetPending(ctx context.Context, limit int) ([]models.Transaction, error)
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

const transactionColumns = `id, piggy_bank_id, user_id, amount, transaction_hash, type, status, created_at, updated_at`

// creditPiggyBank adds amount to the locked piggy bank and flips it to
// completed once the goal is met.
func creditPiggyBank(ctx context.Context, tx *sqlx.Tx, pb *models.PiggyBank, transaction *models.Transaction) (*models.PiggyBank, error) {
	var updated models.PiggyBank

	query := `
		UPDATE piggy_banks SET
			current_amount = current_amount + $1,
			status = CASE
				WHEN status = 'active' AND current_amount + $1 >= goal_amount THEN 'completed'::piggy_bank_status
				ELSE status
			END
		WHERE id = $2
		RETURNING ` + piggyBankColumns

	err := tx.GetContext(ctx, &updated, query, transaction.Amount, pb.ID)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// RecordDeposit inserts a deposit and, when it is already completed, credits
// the piggy bank in the same transaction. The returned piggy bank reflects
// the committed state.
func (repo *TransactionRepositoryImpl) RecordDeposit(ctx context.Context, transaction *models.Transaction) (*models.PiggyBank, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	pb, err := lockPiggyBank(ctx, tx, transaction.PiggyBankID)
	if err != nil {
		return nil, err
	}

	if pb.Status == models.PiggyBankCancelledStatus {
		return nil, ErrPiggyBankCancelled
	}

	transaction.Type = models.TransactionTypeDeposit

	query := `
		INSERT INTO transactions (piggy_bank_id, user_id, amount, transaction_hash, type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = tx.QueryRowxContext(ctx, query,
		transaction.PiggyBankID,
		transaction.UserID,
		transaction.Amount,
		transaction.TransactionHash,
		transaction.Type,
		transaction.Status,
	).Scan(&transaction.ID, &transaction.CreatedAt)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	if transaction.Status == models.TransactionStatusCompleted {
		pb, err = creditPiggyBank(ctx, tx, pb, transaction)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return pb, nil
}

// ConfirmDeposit settles a pending deposit. Completing it credits the piggy
// bank; failing it leaves the balance untouched.
func (repo *TransactionRepositoryImpl) ConfirmDeposit(ctx context.Context, transactionHash, status string) (*models.Transaction, *models.PiggyBank, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	existing, found, err := repo.GetByHash(ctx, transactionHash)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrRecordNotFound
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	defer tx.Rollback()

	// piggy bank first, then the transaction row; same order as withdrawals
	pb, err := lockPiggyBank(ctx, tx, existing.PiggyBankID)
	if err != nil {
		return nil, nil, err
	}

	var transaction models.Transaction

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &transaction, query, existing.ID); err != nil {
		return nil, nil, notFound(err)
	}

	if transaction.Status != models.TransactionStatusPending {
		return nil, nil, ErrTransactionNotPending
	}

	query = `UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`
	if err := tx.GetContext(ctx, &transaction.UpdatedAt, query, status, transaction.ID); err != nil {
		return nil, nil, err
	}
	transaction.Status = status

	if status == models.TransactionStatusCompleted {
		pb, err = creditPiggyBank(ctx, tx, pb, &transaction)
		if err != nil {
			return nil, nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}

	return &transaction, pb, nil
}

func (repo *TransactionRepositoryImpl) GetByHash(ctx context.Context, transactionHash string) (*models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var transaction models.Transaction

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_hash = $1`

	err := repo.db.GetContext(ctx, &transaction, query, transactionHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &transaction, err == nil, err
}

func (repo *TransactionRepositoryImpl) GetHistory(ctx context.Context, piggyBankID string) ([]models.TransactionDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	transactions := []models.TransactionDetail{}

	query := `
		SELECT t.id, t.piggy_bank_id, t.user_id, t.amount, t.transaction_hash, t.type, t.status,
			t.created_at, t.updated_at, u.wallet_address
		FROM transactions t
		INNER JOIN users u ON u.id = t.user_id
		WHERE t.piggy_bank_id = $1
		ORDER BY t.created_at ASC`

	err := repo.db.SelectContext(ctx, &transactions, query, piggyBankID)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

// GetPage returns transactions newest first along with the total count.
func (repo *TransactionRepositoryImpl) GetPage(ctx context.Context, piggyBankID string, limit, offset int) ([]models.TransactionDetail, int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var total int

	query := `SELECT COUNT(*) FROM transactions WHERE piggy_bank_id = $1`
	if err := repo.db.GetContext(ctx, &total, query, piggyBankID); err != nil {
		return nil, 0, err
	}

	transactions := []models.TransactionDetail{}

	query = `
		SELECT t.id, t.piggy_bank_id, t.user_id, t.amount, t.transaction_hash, t.type, t.status,
			t.created_at, t.updated_at, u.wallet_address
		FROM transactions t
		INNER JOIN users u ON u.id = t.user_id
		WHERE t.piggy_bank_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2 OFFSET $3`

	err := repo.db.SelectContext(ctx, &transactions, query, piggyBankID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	return transactions, total, nil
}

func (repo *TransactionRepositoryImpl) GetPending(ctx context.Context, limit int) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	transactions := []models.Transaction{}

	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 AND type = $2
		ORDER BY created_at ASC
		LIMIT $3`

	err := repo.db.SelectContext(ctx, &transactions, query,
		models.TransactionStatusPending,
		models.TransactionTypeDeposit,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
