package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cradoe/puddle/internal/models"
	"github.com/jmoiron/sqlx"
)

type WithdrawalRepository interface {
	Request(ctx context.Context, withdrawal *models.WithdrawalApproval) error
	GetOne(ctx context.Context, id string) (*models.WithdrawalApproval, bool, error)
	GetPendingByPiggyBankID(ctx context.Context, piggyBankID string) (*models.WithdrawalDetail, bool, error)
	Approve(ctx context.Context, id, approverID, transactionHash string) (*models.WithdrawalApproval, *models.PiggyBank, error)
	Cancel(ctx context.Context, id, userID string) (*models.WithdrawalApproval, error)
}

type WithdrawalRepositoryImpl struct {
	db *sqlx.DB
}

func NewWithdrawalRepository(db *sqlx.DB) WithdrawalRepository {
	return &WithdrawalRepositoryImpl{db: db}
}

const withdrawalColumns = `id, piggy_bank_id, withdrawal_amount, initiator_id, approver_id, approved, approved_at,
	executed, transaction_hash, cancelled, cancelled_at, cancelled_by, created_at`

// Request opens a withdrawal. The piggy bank lock serialises concurrent
// requests; the partial unique index catches anything that slips past.
func (repo *WithdrawalRepositoryImpl) Request(ctx context.Context, withdrawal *models.WithdrawalApproval) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	pb, err := lockPiggyBank(ctx, tx, withdrawal.PiggyBankID)
	if err != nil {
		return err
	}

	if pb.Status == models.PiggyBankCancelledStatus {
		return ErrPiggyBankCancelled
	}

	var pending bool
	query := `
		SELECT EXISTS(SELECT 1 FROM withdrawal_approvals
		WHERE piggy_bank_id = $1 AND NOT executed AND NOT cancelled)`
	if err := tx.GetContext(ctx, &pending, query, pb.ID); err != nil {
		return err
	}
	if pending {
		return ErrPendingWithdrawalExists
	}

	if withdrawal.WithdrawalAmount.GreaterThan(pb.CurrentAmount) {
		return ErrInsufficientBalance
	}

	query = `
		INSERT INTO withdrawal_approvals (piggy_bank_id, withdrawal_amount, initiator_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err = tx.QueryRowxContext(ctx, query,
		withdrawal.PiggyBankID,
		withdrawal.WithdrawalAmount,
		withdrawal.InitiatorID,
	).Scan(&withdrawal.ID, &withdrawal.CreatedAt)
	if err != nil {
		return mapConstraintError(err)
	}

	return tx.Commit()
}

func (repo *WithdrawalRepositoryImpl) GetOne(ctx context.Context, id string) (*models.WithdrawalApproval, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var withdrawal models.WithdrawalApproval

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_approvals WHERE id = $1`

	err := repo.db.GetContext(ctx, &withdrawal, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &withdrawal, err == nil, err
}

func (repo *WithdrawalRepositoryImpl) GetPendingByPiggyBankID(ctx context.Context, piggyBankID string) (*models.WithdrawalDetail, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var withdrawal models.WithdrawalDetail

	query := `
		SELECT w.id, w.piggy_bank_id, w.withdrawal_amount, w.initiator_id, w.approver_id, w.approved,
			w.approved_at, w.executed, w.transaction_hash, w.cancelled, w.cancelled_at, w.cancelled_by,
			w.created_at, u.wallet_address AS initiator_wallet_address
		FROM withdrawal_approvals w
		INNER JOIN users u ON u.id = w.initiator_id
		WHERE w.piggy_bank_id = $1 AND NOT w.executed AND NOT w.cancelled`

	err := repo.db.GetContext(ctx, &withdrawal, query, piggyBankID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &withdrawal, err == nil, err
}

// lockWithdrawal takes the piggy bank lock before the withdrawal row lock.
func lockWithdrawal(ctx context.Context, tx *sqlx.Tx, id string) (*models.WithdrawalApproval, *models.PiggyBank, error) {
	var piggyBankID string

	query := `SELECT piggy_bank_id FROM withdrawal_approvals WHERE id = $1`
	if err := tx.GetContext(ctx, &piggyBankID, query, id); err != nil {
		return nil, nil, notFound(err)
	}

	pb, err := lockPiggyBank(ctx, tx, piggyBankID)
	if err != nil {
		return nil, nil, err
	}

	var withdrawal models.WithdrawalApproval

	query = `SELECT ` + withdrawalColumns + ` FROM withdrawal_approvals WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &withdrawal, query, id); err != nil {
		return nil, nil, notFound(err)
	}

	return &withdrawal, pb, nil
}

// Approve applies the second signature: the withdrawal is marked approved and
// executed, the piggy bank is debited and a withdrawal transaction is written,
// all or nothing.
func (repo *WithdrawalRepositoryImpl) Approve(ctx context.Context, id, approverID, transactionHash string) (*models.WithdrawalApproval, *models.PiggyBank, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}

	defer tx.Rollback()

	withdrawal, pb, err := lockWithdrawal(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}

	if transactionHash == "" {
		transactionHash = "withdrawal:" + withdrawal.ID
	}

	if err := withdrawal.Approve(approverID, transactionHash, time.Now()); err != nil {
		return nil, nil, err
	}

	if withdrawal.WithdrawalAmount.GreaterThan(pb.CurrentAmount) {
		return nil, nil, ErrInsufficientBalance
	}

	query := `
		UPDATE withdrawal_approvals
		SET approver_id = $1, approved = TRUE, approved_at = $2, executed = TRUE, transaction_hash = $3
		WHERE id = $4`

	_, err = tx.ExecContext(ctx, query,
		withdrawal.ApproverID,
		withdrawal.ApprovedAt,
		withdrawal.TransactionHash,
		withdrawal.ID,
	)
	if err != nil {
		return nil, nil, err
	}

	var updated models.PiggyBank

	query = `
		UPDATE piggy_banks SET current_amount = current_amount - $1
		WHERE id = $2
		RETURNING ` + piggyBankColumns

	if err := tx.GetContext(ctx, &updated, query, withdrawal.WithdrawalAmount, pb.ID); err != nil {
		return nil, nil, err
	}

	query = `
		INSERT INTO transactions (piggy_bank_id, user_id, amount, transaction_hash, type, status)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = tx.ExecContext(ctx, query,
		pb.ID,
		withdrawal.InitiatorID,
		withdrawal.WithdrawalAmount,
		transactionHash,
		models.TransactionTypeWithdrawal,
		models.TransactionStatusCompleted,
	)
	if err != nil {
		return nil, nil, mapConstraintError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}

	return withdrawal, &updated, nil
}

// Cancel closes a requested withdrawal without touching the balance.
func (repo *WithdrawalRepositoryImpl) Cancel(ctx context.Context, id, userID string) (*models.WithdrawalApproval, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	withdrawal, _, err := lockWithdrawal(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := withdrawal.Cancel(userID, time.Now()); err != nil {
		return nil, err
	}

	query := `
		UPDATE withdrawal_approvals SET cancelled = TRUE, cancelled_at = $1, cancelled_by = $2
		WHERE id = $3`

	_, err = tx.ExecContext(ctx, query, withdrawal.CancelledAt, withdrawal.CancelledBy, withdrawal.ID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return withdrawal, nil
}
