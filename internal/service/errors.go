package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrPiggyBankNotFound  = errors.New("piggy bank not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")

	ErrNotMember    = errors.New("you are not a member of this piggy bank")
	ErrSelfApproval = errors.New("the initiator of a withdrawal cannot approve it")

	ErrMembershipFull        = errors.New("piggy bank already has 2 members")
	ErrAlreadyMember         = errors.New("partner is already a member of this piggy bank")
	ErrSelfInvite            = errors.New("partner address cannot be your own wallet address")
	ErrPiggyBankCancelled    = errors.New("piggy bank is cancelled")
	ErrInsufficientBalance   = errors.New("withdrawal amount exceeds the piggy bank balance")
	ErrTransactionReverted   = errors.New("transaction failed on chain")
	ErrContractAlreadyLinked = errors.New("contract address is already linked to a piggy bank")

	ErrDuplicateTransaction    = errors.New("transaction has already been recorded")
	ErrPendingWithdrawalExists = errors.New("a withdrawal request is already pending for this piggy bank")
	ErrWithdrawalNotPending    = errors.New("withdrawal is no longer pending")

	ErrDeploymentFailed = errors.New("contract deployment failed")
	ErrChainUnavailable = errors.New("could not reach the chain")
)

// ValidationError carries every problem found in a request. Nothing has been
// written when it is returned.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

func newValidationError(errs ...string) *ValidationError {
	return &ValidationError{Errors: errs}
}

// OrphanedContractMessage is returned to the caller when a contract exists
// on chain but its piggy bank row could not be saved.
const OrphanedContractMessage = "Contract was deployed but could not be linked to your account; it has been recorded for reconciliation"

// OrphanedContractError reports a deployed contract that has no piggy bank
// row. OrphanID is empty when even the audit record could not be written.
type OrphanedContractError struct {
	ContractAddress string
	OrphanID        string
	Err             error
}

func (e *OrphanedContractError) Error() string {
	return fmt.Sprintf("contract %s deployed but not linked: %v", e.ContractAddress, e.Err)
}

func (e *OrphanedContractError) Unwrap() error {
	return e.Err
}
