package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cradoe/puddle/internal/metrics"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/repository"
	"github.com/cradoe/puddle/internal/validator"
)

type RequestWithdrawalInput struct {
	PiggyBankID string
	Amount      string
}

// RequestWithdrawal opens the single pending withdrawal of a piggy bank. The
// initiator's request counts as the first signature.
func (s *Service) RequestWithdrawal(ctx context.Context, user *models.User, input RequestWithdrawalInput) (*models.WithdrawalApproval, error) {
	v := validator.Validator{}
	v.Check(validator.NotBlank(input.PiggyBankID), "piggy_bank_id must be provided")
	amount := v.CheckAmount("amount", input.Amount)
	if v.HasErrors() {
		return nil, newValidationError(v.Errors...)
	}

	if !validator.IsUUID(input.PiggyBankID) {
		return nil, ErrPiggyBankNotFound
	}

	pb, err := s.getPiggyBank(ctx, input.PiggyBankID)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireMember(ctx, pb.ID, user.ID); err != nil {
		return nil, err
	}

	withdrawal := &models.WithdrawalApproval{
		PiggyBankID:      pb.ID,
		WithdrawalAmount: amount,
		InitiatorID:      user.ID,
	}

	err = s.db.Withdrawal().Request(ctx, withdrawal)
	switch {
	case errors.Is(err, repository.ErrPendingWithdrawalExists):
		metrics.Outcome(metrics.WorkflowWithdrawal, "conflict")
		return nil, ErrPendingWithdrawalExists
	case errors.Is(err, repository.ErrInsufficientBalance):
		return nil, newValidationError(ErrInsufficientBalance.Error())
	case errors.Is(err, repository.ErrPiggyBankCancelled):
		return nil, newValidationError(ErrPiggyBankCancelled.Error())
	case errors.Is(err, repository.ErrRecordNotFound):
		return nil, ErrPiggyBankNotFound
	case err != nil:
		return nil, err
	}

	metrics.Outcome(metrics.WorkflowWithdrawal, "requested")
	s.logger.Info("withdrawal requested", "piggy_bank_id", pb.ID, "withdrawal_id", withdrawal.ID, "amount", amount.String())

	s.invalidate(ctx, pb.ID)
	s.publish(ctx, models.Event{
		Type:          models.EventWithdrawalRequested,
		PiggyBankID:   pb.ID,
		PiggyBankName: pb.Name,
		ActorID:       user.ID,
		ActorAddress:  user.WalletAddress.String,
		Amount:        amount.String(),
		WithdrawalID:  withdrawal.ID,
	})

	return withdrawal, nil
}

// loadWithdrawal fetches a withdrawal and checks user belongs to its piggy
// bank.
func (s *Service) loadWithdrawal(ctx context.Context, user *models.User, id string) (*models.WithdrawalApproval, *models.PiggyBank, error) {
	if !validator.IsUUID(id) {
		return nil, nil, ErrWithdrawalNotFound
	}

	withdrawal, found, err := s.db.Withdrawal().GetOne(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrWithdrawalNotFound
	}

	pb, err := s.getPiggyBank(ctx, withdrawal.PiggyBankID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.requireMember(ctx, pb.ID, user.ID); err != nil {
		return nil, nil, err
	}

	return withdrawal, pb, nil
}

// ApproveWithdrawal applies the second signature. The approver must be the
// other member. Approval, execution, the debit and the withdrawal
// transaction are committed together.
func (s *Service) ApproveWithdrawal(ctx context.Context, user *models.User, id, transactionHash string) (*models.WithdrawalApproval, *models.PiggyBank, error) {
	if transactionHash != "" && !validator.Matches(transactionHash, validator.TransactionHashRX) {
		return nil, nil, newValidationError("transaction_hash must be a valid transaction hash")
	}
	transactionHash = strings.ToLower(transactionHash)

	withdrawal, pb, err := s.loadWithdrawal(ctx, user, id)
	if err != nil {
		return nil, nil, err
	}

	if withdrawal.InitiatorID == user.ID {
		return nil, nil, ErrSelfApproval
	}

	approved, updated, err := s.db.Withdrawal().Approve(ctx, withdrawal.ID, user.ID, transactionHash)
	switch {
	case errors.Is(err, models.ErrInvalidWithdrawalTransition):
		metrics.Outcome(metrics.WorkflowWithdrawal, "conflict")
		return nil, nil, ErrWithdrawalNotPending
	case errors.Is(err, repository.ErrInsufficientBalance):
		return nil, nil, newValidationError(ErrInsufficientBalance.Error())
	case errors.Is(err, repository.ErrDuplicateTransaction):
		return nil, nil, ErrDuplicateTransaction
	case errors.Is(err, repository.ErrRecordNotFound):
		return nil, nil, ErrWithdrawalNotFound
	case err != nil:
		s.logger.Error("withdrawal approval failed", "withdrawal_id", withdrawal.ID, "piggy_bank_id", pb.ID, "error", err)
		return nil, nil, err
	}

	metrics.Outcome(metrics.WorkflowWithdrawal, "executed")
	s.logger.Info("withdrawal executed", "piggy_bank_id", pb.ID, "withdrawal_id", approved.ID,
		"transaction_hash", approved.TransactionHash.String)

	s.invalidate(ctx, pb.ID)
	s.publish(ctx, models.Event{
		Type:          models.EventWithdrawalApproved,
		PiggyBankID:   pb.ID,
		PiggyBankName: pb.Name,
		ActorID:       user.ID,
		ActorAddress:  user.WalletAddress.String,
		Amount:        approved.WithdrawalAmount.String(),
		CurrentAmount: updated.CurrentAmount.String(),
		GoalAmount:    updated.GoalAmount.String(),
		WithdrawalID:  approved.ID,
	})

	return approved, updated, nil
}

// RejectWithdrawal cancels a requested withdrawal. Either member may do it;
// the balance is untouched and a new request can follow.
func (s *Service) RejectWithdrawal(ctx context.Context, user *models.User, id string) (*models.WithdrawalApproval, error) {
	withdrawal, pb, err := s.loadWithdrawal(ctx, user, id)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.db.Withdrawal().Cancel(ctx, withdrawal.ID, user.ID)
	switch {
	case errors.Is(err, models.ErrInvalidWithdrawalTransition):
		metrics.Outcome(metrics.WorkflowWithdrawal, "conflict")
		return nil, ErrWithdrawalNotPending
	case errors.Is(err, repository.ErrRecordNotFound):
		return nil, ErrWithdrawalNotFound
	case err != nil:
		return nil, err
	}

	metrics.Outcome(metrics.WorkflowWithdrawal, "cancelled")
	s.logger.Info("withdrawal cancelled", "piggy_bank_id", pb.ID, "withdrawal_id", cancelled.ID, "cancelled_by", user.ID)

	s.invalidate(ctx, pb.ID)
	s.publish(ctx, models.Event{
		Type:          models.EventWithdrawalRejected,
		PiggyBankID:   pb.ID,
		PiggyBankName: pb.Name,
		ActorID:       user.ID,
		ActorAddress:  user.WalletAddress.String,
		Amount:        cancelled.WithdrawalAmount.String(),
		WithdrawalID:  cancelled.ID,
	})

	return cancelled, nil
}
