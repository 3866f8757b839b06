package service

import (
	"time"

	"github.com/cradoe/puddle/internal/models"
	"github.com/shopspring/decimal"
)

type UserView struct {
	ID            string    `json:"id"`
	WalletAddress *string   `json:"wallet_address"`
	Email         *string   `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
}

type PiggyBankView struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	GoalAmount      decimal.Decimal `json:"goal_amount"`
	CurrentAmount   decimal.Decimal `json:"current_amount"`
	Progress        decimal.Decimal `json:"progress"`
	ContractAddress string          `json:"contract_address"`
	Status          string          `json:"status"`
	GoalDeadline    *time.Time      `json:"goal_deadline"`
	CreatedAt       time.Time       `json:"created_at"`
	Role            string          `json:"role,omitempty"`
}

type MemberView struct {
	UserID        string    `json:"user_id"`
	Role          string    `json:"role"`
	WalletAddress *string   `json:"wallet_address"`
	Email         *string   `json:"email"`
	JoinedAt      time.Time `json:"joined_at"`
}

type TransactionView struct {
	ID              string          `json:"id"`
	PiggyBankID     string          `json:"piggy_bank_id"`
	UserID          string          `json:"user_id"`
	WalletAddress   *string         `json:"wallet_address,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionHash string          `json:"transaction_hash"`
	Type            string          `json:"type"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

type WithdrawalView struct {
	ID                     string          `json:"id"`
	PiggyBankID            string          `json:"piggy_bank_id"`
	Amount                 decimal.Decimal `json:"withdrawal_amount"`
	State                  string          `json:"state"`
	InitiatorID            string          `json:"initiator_id"`
	InitiatorWalletAddress *string         `json:"initiator_wallet_address,omitempty"`
	ApproverID             *string         `json:"approver_id"`
	Approved               bool            `json:"approved"`
	ApprovedAt             *time.Time      `json:"approved_at"`
	Executed               bool            `json:"executed"`
	TransactionHash        *string         `json:"transaction_hash"`
	Cancelled              bool            `json:"cancelled"`
	CancelledAt            *time.Time      `json:"cancelled_at"`
	CancelledBy            *string         `json:"cancelled_by"`
	CreatedAt              time.Time       `json:"created_at"`
}

type PiggyBankDetail struct {
	PiggyBank         PiggyBankView     `json:"piggy_bank"`
	Members           []MemberView      `json:"members"`
	Transactions      []TransactionView `json:"transactions"`
	PendingWithdrawal *WithdrawalView   `json:"pending_withdrawal"`
}

func nullString(valid bool, s string) *string {
	if !valid {
		return nil
	}
	return &s
}

func nullTime(valid bool, t time.Time) *time.Time {
	if !valid {
		return nil
	}
	return &t
}

func NewUserView(u *models.User) UserView {
	return UserView{
		ID:            u.ID,
		WalletAddress: nullString(u.WalletAddress.Valid, u.WalletAddress.String),
		Email:         nullString(u.Email.Valid, u.Email.String),
		CreatedAt:     u.CreatedAt,
	}
}

func NewPiggyBankView(pb *models.PiggyBank) PiggyBankView {
	return PiggyBankView{
		ID:              pb.ID,
		Name:            pb.Name,
		GoalAmount:      pb.GoalAmount,
		CurrentAmount:   pb.CurrentAmount,
		Progress:        pb.Progress().Round(2),
		ContractAddress: pb.ContractAddress,
		Status:          pb.Status,
		GoalDeadline:    nullTime(pb.GoalDeadline.Valid, pb.GoalDeadline.Time),
		CreatedAt:       pb.CreatedAt,
	}
}

func NewMemberView(m models.MemberDetail) MemberView {
	return MemberView{
		UserID:        m.UserID,
		Role:          m.Role,
		WalletAddress: nullString(m.WalletAddress.Valid, m.WalletAddress.String),
		Email:         nullString(m.Email.Valid, m.Email.String),
		JoinedAt:      m.JoinedAt,
	}
}

func NewTransactionView(t *models.Transaction) TransactionView {
	return TransactionView{
		ID:              t.ID,
		PiggyBankID:     t.PiggyBankID,
		UserID:          t.UserID,
		Amount:          t.Amount,
		TransactionHash: t.TransactionHash,
		Type:            t.Type,
		Status:          t.Status,
		CreatedAt:       t.CreatedAt,
	}
}

func newTransactionDetailViews(details []models.TransactionDetail) []TransactionView {
	views := make([]TransactionView, 0, len(details))
	for i := range details {
		view := NewTransactionView(&details[i].Transaction)
		view.WalletAddress = nullString(details[i].WalletAddress.Valid, details[i].WalletAddress.String)
		views = append(views, view)
	}

	return views
}

func NewWithdrawalView(w *models.WithdrawalApproval) WithdrawalView {
	return WithdrawalView{
		ID:              w.ID,
		PiggyBankID:     w.PiggyBankID,
		Amount:          w.WithdrawalAmount,
		State:           string(w.State()),
		InitiatorID:     w.InitiatorID,
		ApproverID:      nullString(w.ApproverID.Valid, w.ApproverID.String),
		Approved:        w.Approved,
		ApprovedAt:      nullTime(w.ApprovedAt.Valid, w.ApprovedAt.Time),
		Executed:        w.Executed,
		TransactionHash: nullString(w.TransactionHash.Valid, w.TransactionHash.String),
		Cancelled:       w.Cancelled,
		CancelledAt:     nullTime(w.CancelledAt.Valid, w.CancelledAt.Time),
		CancelledBy:     nullString(w.CancelledBy.Valid, w.CancelledBy.String),
		CreatedAt:       w.CreatedAt,
	}
}
