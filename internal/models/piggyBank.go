package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PiggyBankActiveStatus    = "active"
	PiggyBankCompletedStatus = "completed"
	PiggyBankCancelledStatus = "cancelled"
)

const (
	MemberRoleCreator = "creator"
	MemberRolePartner = "partner"
)

// MaxMembers is the number of participants a piggy bank is built for.
const MaxMembers = 2

type PiggyBank struct {
	ID              string          `db:"id"`
	Name            string          `db:"name"`
	GoalAmount      decimal.Decimal `db:"goal_amount"`
	CurrentAmount   decimal.Decimal `db:"current_amount"`
	ContractAddress string          `db:"contract_address"`
	Status          string          `db:"status"`
	GoalDeadline    sql.NullTime    `db:"goal_deadline"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Progress returns the funded percentage, capped at 100.
func (p *PiggyBank) Progress() decimal.Decimal {
	if !p.GoalAmount.IsPositive() {
		return decimal.Zero
	}

	progress := p.CurrentAmount.Div(p.GoalAmount).Mul(decimal.NewFromInt(100))
	if progress.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}

	return progress
}

type Member struct {
	ID          string    `db:"id"`
	PiggyBankID string    `db:"piggy_bank_id"`
	UserID      string    `db:"user_id"`
	Role        string    `db:"role"`
	JoinedAt    time.Time `db:"joined_at"`
}

// MemberDetail is a membership joined with the member's user row.
type MemberDetail struct {
	UserID        string         `db:"user_id"`
	Role          string         `db:"role"`
	JoinedAt      time.Time      `db:"joined_at"`
	WalletAddress sql.NullString `db:"wallet_address"`
	Email         sql.NullString `db:"email"`
}

// PiggyBankMembership is a piggy bank as seen by one of its members.
type PiggyBankMembership struct {
	PiggyBank
	Role     string    `db:"role"`
	JoinedAt time.Time `db:"joined_at"`
}
