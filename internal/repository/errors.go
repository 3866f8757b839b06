package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound           = errors.New("record not found")
	ErrDuplicateUser            = errors.New("user already exists")
	ErrDuplicateContract        = errors.New("contract address already linked to a piggy bank")
	ErrDuplicateMember          = errors.New("user is already a member of this piggy bank")
	ErrMembershipFull           = errors.New("piggy bank already has the maximum number of members")
	ErrDuplicateTransaction     = errors.New("transaction hash already recorded")
	ErrPendingWithdrawalExists  = errors.New("a withdrawal request is already pending for this piggy bank")
	ErrInsufficientBalance      = errors.New("withdrawal amount exceeds the piggy bank balance")
	ErrPiggyBankCancelled       = errors.New("piggy bank is cancelled")
	ErrTransactionNotPending    = errors.New("transaction is not pending")
	ErrOrphanedContractResolved = errors.New("orphaned contract already resolved")
)

const uniqueViolation = "23505"

var uniqueConstraintErrors = map[string]error{
	"users_identity_key_key":            ErrDuplicateUser,
	"piggy_banks_contract_address_key":  ErrDuplicateContract,
	"piggy_bank_member_unique":          ErrDuplicateMember,
	"transactions_transaction_hash_key": ErrDuplicateTransaction,
	"withdrawal_approvals_pending_idx":  ErrPendingWithdrawalExists,
}

// mapConstraintError turns unique violations into the repository's sentinel
// errors. Anything else is returned as is.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}

	if mapped, ok := uniqueConstraintErrors[pqErr.Constraint]; ok {
		return mapped
	}

	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}
	return err
}
