package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// A withdrawal needs both members: the initiator signs by requesting, the
// other member signs by approving. The contract releases the funds as soon as
// the second signature lands, so approve and execute are committed together
// today; they stay separate states so a pending chain execution has a place
// to live.
type WithdrawalState string

const (
	WithdrawalRequested WithdrawalState = "requested"
	WithdrawalApproved  WithdrawalState = "approved"
	WithdrawalExecuted  WithdrawalState = "executed"
	WithdrawalCancelled WithdrawalState = "cancelled"
)

type WithdrawalEvent string

const (
	WithdrawalEventApprove WithdrawalEvent = "approve"
	WithdrawalEventExecute WithdrawalEvent = "execute"
	WithdrawalEventCancel  WithdrawalEvent = "cancel"
)

var ErrInvalidWithdrawalTransition = errors.New("invalid withdrawal transition")

var withdrawalTransitions = map[WithdrawalState]map[WithdrawalEvent]WithdrawalState{
	WithdrawalRequested: {
		WithdrawalEventApprove: WithdrawalApproved,
		WithdrawalEventCancel:  WithdrawalCancelled,
	},
	WithdrawalApproved: {
		WithdrawalEventExecute: WithdrawalExecuted,
	},
}

// NextWithdrawalState returns the state reached from `from` on `event`.
func NextWithdrawalState(from WithdrawalState, event WithdrawalEvent) (WithdrawalState, error) {
	to, ok := withdrawalTransitions[from][event]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s a %s withdrawal", ErrInvalidWithdrawalTransition, event, from)
	}

	return to, nil
}

type WithdrawalApproval struct {
	ID               string          `db:"id"`
	PiggyBankID      string          `db:"piggy_bank_id"`
	WithdrawalAmount decimal.Decimal `db:"withdrawal_amount"`
	InitiatorID      string          `db:"initiator_id"`
	ApproverID       sql.NullString  `db:"approver_id"`
	Approved         bool            `db:"approved"`
	ApprovedAt       sql.NullTime    `db:"approved_at"`
	Executed         bool            `db:"executed"`
	TransactionHash  sql.NullString  `db:"transaction_hash"`
	Cancelled        bool            `db:"cancelled"`
	CancelledAt      sql.NullTime    `db:"cancelled_at"`
	CancelledBy      sql.NullString  `db:"cancelled_by"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (w *WithdrawalApproval) State() WithdrawalState {
	switch {
	case w.Cancelled:
		return WithdrawalCancelled
	case w.Executed:
		return WithdrawalExecuted
	case w.Approved:
		return WithdrawalApproved
	default:
		return WithdrawalRequested
	}
}

// IsPending reports whether the withdrawal still blocks new requests.
func (w *WithdrawalApproval) IsPending() bool {
	return !w.Executed && !w.Cancelled
}

// Approve applies the second signature and, because the contract executes on
// that signature, the execution as well.
func (w *WithdrawalApproval) Approve(approverID, transactionHash string, at time.Time) error {
	approved, err := NextWithdrawalState(w.State(), WithdrawalEventApprove)
	if err != nil {
		return err
	}

	if _, err := NextWithdrawalState(approved, WithdrawalEventExecute); err != nil {
		return err
	}

	w.ApproverID = sql.NullString{String: approverID, Valid: true}
	w.Approved = true
	w.ApprovedAt = sql.NullTime{Time: at, Valid: true}
	w.Executed = true
	w.TransactionHash = sql.NullString{String: transactionHash, Valid: transactionHash != ""}

	return nil
}

func (w *WithdrawalApproval) Cancel(userID string, at time.Time) error {
	if _, err := NextWithdrawalState(w.State(), WithdrawalEventCancel); err != nil {
		return err
	}

	w.Cancelled = true
	w.CancelledAt = sql.NullTime{Time: at, Valid: true}
	w.CancelledBy = sql.NullString{String: userID, Valid: true}

	return nil
}

// WithdrawalDetail is a withdrawal joined with the initiator's wallet.
type WithdrawalDetail struct {
	WithdrawalApproval
	InitiatorWalletAddress sql.NullString `db:"initiator_wallet_address"`
}
