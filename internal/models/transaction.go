package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
)

// define possible transaction status
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

type Transaction struct {
	ID              string          `db:"id"`
	PiggyBankID     string          `db:"piggy_bank_id"`
	UserID          string          `db:"user_id"`
	Amount          decimal.Decimal `db:"amount"`
	TransactionHash string          `db:"transaction_hash"`
	Type            string          `db:"type"`
	Status          string          `db:"status"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       sql.NullTime    `db:"updated_at"`
}

type TransactionDetail struct {
	Transaction
	WalletAddress sql.NullString `db:"wallet_address"`
}
