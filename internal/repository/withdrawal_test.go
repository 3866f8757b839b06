package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cradoe/puddle/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWithdrawalID = "6f1c2a9e-3c1b-4f7a-9a55-0d2e8b1c7a01"
	testPiggyBankID  = "0b7e4c1d-5a2f-4e8b-8c3d-1f6a9e2b4c02"
	testInitiatorID  = "a3d5e7f9-1b2c-4d6e-8f0a-2c4e6a8b0d03"
	testApproverID   = "c5e7a9b1-3d4f-4a6b-8c0d-4e6a8c0e2f04"
	testHash         = "0x00000000000000000000000000000000000000000000000000000000000000aa"
)

func newMockRepository(t *testing.T) (*WithdrawalRepositoryImpl, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &WithdrawalRepositoryImpl{db: sqlx.NewDb(db, "postgres")}, mock
}

func q(query string) string {
	return regexp.QuoteMeta(query)
}

// expectWithdrawalLocks expects the piggy bank row lock before the
// withdrawal row lock.
func expectWithdrawalLocks(mock sqlmock.Sqlmock, balance string) {
	now := time.Now()

	mock.ExpectQuery(q(`SELECT piggy_bank_id FROM withdrawal_approvals WHERE id = $1`)).
		WithArgs(testWithdrawalID).
		WillReturnRows(sqlmock.NewRows([]string{"piggy_bank_id"}).AddRow(testPiggyBankID))

	mock.ExpectQuery(q(`FROM piggy_banks WHERE id = $1 FOR UPDATE`)).
		WithArgs(testPiggyBankID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "goal_amount", "current_amount", "contract_address", "status", "goal_deadline", "created_at",
		}).AddRow(testPiggyBankID, "Car", "10", balance, "0xabc", models.PiggyBankActiveStatus, nil, now))

	mock.ExpectQuery(q(`FROM withdrawal_approvals WHERE id = $1 FOR UPDATE`)).
		WithArgs(testWithdrawalID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "piggy_bank_id", "withdrawal_amount", "initiator_id", "approver_id", "approved", "approved_at",
			"executed", "transaction_hash", "cancelled", "cancelled_at", "cancelled_by", "created_at",
		}).AddRow(testWithdrawalID, testPiggyBankID, "4", testInitiatorID, nil, false, nil,
			false, nil, false, nil, nil, now))
}

func TestWithdrawalApproveStatements(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectWithdrawalLocks(mock, "10")

	mock.ExpectExec(q(`SET approver_id = $1, approved = TRUE, approved_at = $2, executed = TRUE, transaction_hash = $3`)).
		WithArgs(testApproverID, sqlmock.AnyArg(), testHash, testWithdrawalID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(q(`UPDATE piggy_banks SET current_amount = current_amount - $1`)).
		WithArgs("4", testPiggyBankID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "goal_amount", "current_amount", "contract_address", "status", "goal_deadline", "created_at",
		}).AddRow(testPiggyBankID, "Car", "10", "6", "0xabc", models.PiggyBankActiveStatus, nil, time.Now()))

	mock.ExpectExec(q(`INSERT INTO transactions (piggy_bank_id, user_id, amount, transaction_hash, type, status)`)).
		WithArgs(testPiggyBankID, testInitiatorID, "4", testHash,
			models.TransactionTypeWithdrawal, models.TransactionStatusCompleted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectCommit()

	withdrawal, pb, err := repo.Approve(context.Background(), testWithdrawalID, testApproverID, testHash)
	require.NoError(t, err)

	assert.Equal(t, models.WithdrawalExecuted, withdrawal.State())
	assert.Equal(t, testApproverID, withdrawal.ApproverID.String)
	assert.Equal(t, testHash, withdrawal.TransactionHash.String)
	assert.Equal(t, "6", pb.CurrentAmount.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalApproveInsufficientBalanceRollsBack(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectWithdrawalLocks(mock, "3")
	mock.ExpectRollback()

	_, _, err := repo.Approve(context.Background(), testWithdrawalID, testApproverID, testHash)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalApproveDuplicateHashRollsBack(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectWithdrawalLocks(mock, "10")

	mock.ExpectExec(q(`UPDATE withdrawal_approvals`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q(`UPDATE piggy_banks SET current_amount = current_amount - $1`)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "goal_amount", "current_amount", "contract_address", "status", "goal_deadline", "created_at",
		}).AddRow(testPiggyBankID, "Car", "10", "6", "0xabc", models.PiggyBankActiveStatus, nil, time.Now()))
	mock.ExpectExec(q(`INSERT INTO transactions`)).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "transactions_transaction_hash_key"})
	mock.ExpectRollback()

	_, _, err := repo.Approve(context.Background(), testWithdrawalID, testApproverID, testHash)
	require.ErrorIs(t, err, ErrDuplicateTransaction)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithdrawalCancelStatements(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectWithdrawalLocks(mock, "10")

	mock.ExpectExec(q(`UPDATE withdrawal_approvals SET cancelled = TRUE, cancelled_at = $1, cancelled_by = $2`)).
		WithArgs(sqlmock.AnyArg(), testApproverID, testWithdrawalID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	withdrawal, err := repo.Cancel(context.Background(), testWithdrawalID, testApproverID)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalCancelled, withdrawal.State())
	assert.False(t, withdrawal.Executed)

	require.NoError(t, mock.ExpectationsWereMet())
}
