package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cradoe/puddle/internal/chain"
	"github.com/cradoe/puddle/internal/metrics"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/repository"
	"github.com/cradoe/puddle/internal/validator"
	"github.com/shopspring/decimal"
)

// Milestones are the funded percentages members are told about.
var Milestones = []int{25, 50, 75}

type RecordDepositInput struct {
	ContractAddress string
	Amount          string
	TransactionHash string
}

// DepositResult is the recorded deposit. Pending means the chain has not
// mined it yet and the balance is unchanged.
type DepositResult struct {
	Transaction *models.Transaction
	PiggyBank   *models.PiggyBank
	Pending     bool
}

// RecordDeposit mirrors an on-chain deposit into the ledger exactly once;
// the transaction hash is the idempotency key.
func (s *Service) RecordDeposit(ctx context.Context, user *models.User, input RecordDepositInput) (*DepositResult, error) {
	v := validator.Validator{}
	v.Check(validator.IsAddress(input.ContractAddress), "contract_address must be a valid contract address")
	amount := v.CheckAmount("amount", input.Amount)
	v.Check(validator.Matches(input.TransactionHash, validator.TransactionHashRX), "transaction_hash must be a valid transaction hash")
	if v.HasErrors() {
		return nil, newValidationError(v.Errors...)
	}

	hash := strings.ToLower(input.TransactionHash)
	logger := s.logger.With("contract_address", strings.ToLower(input.ContractAddress), "transaction_hash", hash)

	pb, found, err := s.db.PiggyBank().GetByContractAddress(ctx, input.ContractAddress)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrPiggyBankNotFound
	}

	if _, err := s.requireMember(ctx, pb.ID, user.ID); err != nil {
		return nil, err
	}

	if pb.Status == models.PiggyBankCancelledStatus {
		return nil, newValidationError(ErrPiggyBankCancelled.Error())
	}

	_, found, err = s.db.Transaction().GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if found {
		metrics.Outcome(metrics.WorkflowDeposit, "duplicate")
		return nil, ErrDuplicateTransaction
	}

	status := models.TransactionStatusCompleted
	if s.chain != nil {
		receipt, err := s.chain.ReceiptStatus(ctx, hash)
		if err != nil {
			logger.Error("deposit receipt lookup failed", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrChainUnavailable, err)
		}

		switch receipt {
		case chain.ReceiptFailed:
			metrics.Outcome(metrics.WorkflowDeposit, "reverted")
			return nil, newValidationError(ErrTransactionReverted.Error())
		case chain.ReceiptPending:
			status = models.TransactionStatusPending
		}
	}

	transaction := &models.Transaction{
		PiggyBankID:     pb.ID,
		UserID:          user.ID,
		Amount:          amount,
		TransactionHash: hash,
		Status:          status,
	}

	updated, err := s.db.Transaction().RecordDeposit(ctx, transaction)
	switch {
	case errors.Is(err, repository.ErrDuplicateTransaction):
		metrics.Outcome(metrics.WorkflowDeposit, "duplicate")
		return nil, ErrDuplicateTransaction
	case errors.Is(err, repository.ErrPiggyBankCancelled):
		return nil, newValidationError(ErrPiggyBankCancelled.Error())
	case errors.Is(err, repository.ErrRecordNotFound):
		return nil, ErrPiggyBankNotFound
	case err != nil:
		logger.Error("deposit not recorded", "amount", amount.String(), "error", err)
		return nil, err
	}

	s.invalidate(ctx, pb.ID)

	if status == models.TransactionStatusPending {
		metrics.Outcome(metrics.WorkflowDeposit, "pending")
		logger.Info("deposit awaiting confirmation", "piggy_bank_id", pb.ID)
		return &DepositResult{Transaction: transaction, PiggyBank: updated, Pending: true}, nil
	}

	metrics.Outcome(metrics.WorkflowDeposit, "success")
	logger.Info("deposit recorded", "piggy_bank_id", pb.ID, "amount", amount.String())

	s.publishDeposit(ctx, user, transaction, updated)

	return &DepositResult{Transaction: transaction, PiggyBank: updated}, nil
}

// publishDeposit announces a completed deposit and any milestone it crossed.
func (s *Service) publishDeposit(ctx context.Context, depositor *models.User, transaction *models.Transaction, pb *models.PiggyBank) {
	event := models.Event{
		PiggyBankID:   pb.ID,
		PiggyBankName: pb.Name,
		ActorID:       depositor.ID,
		ActorAddress:  depositor.WalletAddress.String,
		Amount:        transaction.Amount.String(),
		CurrentAmount: pb.CurrentAmount.String(),
		GoalAmount:    pb.GoalAmount.String(),
	}

	deposit := event
	deposit.Type = models.EventDepositMade
	s.publish(ctx, deposit)

	previous := pb.CurrentAmount.Sub(transaction.Amount)

	for _, milestone := range CrossedMilestones(previous, pb.CurrentAmount, pb.GoalAmount) {
		reached := event
		reached.Type = models.EventGoalMilestone
		reached.Milestone = milestone
		s.publish(ctx, reached)
	}

	if previous.LessThan(pb.GoalAmount) && pb.CurrentAmount.GreaterThanOrEqual(pb.GoalAmount) {
		reached := event
		reached.Type = models.EventGoalReached
		reached.Milestone = 100
		s.publish(ctx, reached)
	}
}

// CrossedMilestones returns the milestones passed when the balance moved
// from previous to current.
func CrossedMilestones(previous, current, goal decimal.Decimal) []int {
	if !goal.IsPositive() {
		return nil
	}

	var crossed []int
	for _, m := range Milestones {
		threshold := goal.Mul(decimal.NewFromInt(int64(m))).Div(decimal.NewFromInt(100))
		if previous.LessThan(threshold) && current.GreaterThanOrEqual(threshold) {
			crossed = append(crossed, m)
		}
	}

	return crossed
}
