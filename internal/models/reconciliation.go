package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// OrphanedContract records a deployed contract that never got a piggy bank row.
// ContractAddress is empty while the deployment itself is still unconfirmed.
type OrphanedContract struct {
	ID                    string          `db:"id"`
	ContractAddress       sql.NullString  `db:"contract_address"`
	DeployTransactionHash sql.NullString  `db:"deploy_transaction_hash"`
	CreatorID             string          `db:"creator_id"`
	Name                  string          `db:"name"`
	GoalAmount            decimal.Decimal `db:"goal_amount"`
	GoalDeadline          sql.NullTime    `db:"goal_deadline"`
	PartnerAddress        sql.NullString  `db:"partner_address"`
	Reason                string          `db:"reason"`
	Resolved              bool            `db:"resolved"`
	PiggyBankID           sql.NullString  `db:"piggy_bank_id"`
	ResolvedAt            sql.NullTime    `db:"resolved_at"`
	CreatedAt             time.Time       `db:"created_at"`
}

type PendingInvite struct {
	ID             string       `db:"id"`
	PiggyBankID    string       `db:"piggy_bank_id"`
	InviterID      string       `db:"inviter_id"`
	PartnerAddress string       `db:"partner_address"`
	Attempts       int          `db:"attempts"`
	LastError      string       `db:"last_error"`
	Resolved       bool         `db:"resolved"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      sql.NullTime `db:"updated_at"`
}
