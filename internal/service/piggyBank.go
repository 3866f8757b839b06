package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cradoe/puddle/internal/cache"
	"github.com/cradoe/puddle/internal/chain"
	"github.com/cradoe/puddle/internal/metrics"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/repository"
	"github.com/cradoe/puddle/internal/validator"
	"github.com/shopspring/decimal"
)

const (
	DefaultTransactionsLimit = 20
	MaxTransactionsLimit     = 100
)

type CreatePiggyBankInput struct {
	Name            string
	GoalAmount      string
	GoalDeadline    string
	PartnerAddress  string
	ContractAddress string
}

type createFields struct {
	name            string
	goal            decimal.Decimal
	deadline        sql.NullTime
	partnerAddress  string
	contractAddress string
}

// CreateResult is the outcome of the creation workflow. PiggyBank is nil
// while the deployment is still unconfirmed.
type CreateResult struct {
	PiggyBank             *models.PiggyBank
	Pending               bool
	DeployTransactionHash string
	Invite                *InviteResult
}

func parseDeadline(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, value)
}

func (s *Service) validateCreate(creator *models.User, input CreatePiggyBankInput) (*createFields, error) {
	v := validator.Validator{}
	fields := &createFields{
		name:            strings.TrimSpace(input.Name),
		partnerAddress:  strings.ToLower(strings.TrimSpace(input.PartnerAddress)),
		contractAddress: strings.ToLower(strings.TrimSpace(input.ContractAddress)),
	}

	v.Check(validator.NotBlank(fields.name), "name must be provided")
	v.Check(validator.MaxRunes(fields.name, 100), "name must not be more than 100 characters long")

	fields.goal = v.CheckAmount("goal_amount", input.GoalAmount)

	if validator.NotBlank(input.GoalDeadline) {
		deadline, err := parseDeadline(input.GoalDeadline)
		if err != nil {
			v.AddError("goal_deadline must be a valid date")
		} else {
			v.Check(deadline.After(s.now()), "goal_deadline must be in the future")
			fields.deadline = sql.NullTime{Time: deadline, Valid: true}
		}
	}

	if fields.partnerAddress != "" {
		v.Check(validator.IsAddress(fields.partnerAddress), "partner_address must be a valid wallet address")
		v.Check(!strings.EqualFold(fields.partnerAddress, creator.WalletAddress.String), ErrSelfInvite.Error())
	}

	if fields.contractAddress != "" {
		v.Check(validator.IsAddress(fields.contractAddress), "contract_address must be a valid contract address")
	} else if s.chain == nil {
		v.AddError("contract_address must be provided")
	} else {
		v.Check(fields.partnerAddress != "", "partner_address must be provided to deploy a contract")
		v.Check(creator.WalletAddress.Valid, "your account has no wallet address to deploy from")
	}

	if v.HasErrors() {
		return nil, newValidationError(v.Errors...)
	}

	return fields, nil
}

// CreatePiggyBank validates, deploys the contract when the caller did not
// bring one, saves the piggy bank with its creator and invites the partner.
// Past the deployment, every failure leaves a reconciliation record.
func (s *Service) CreatePiggyBank(ctx context.Context, creator *models.User, input CreatePiggyBankInput) (*CreateResult, error) {
	fields, err := s.validateCreate(creator, input)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("creator_id", creator.ID)

	var deployTxHash string

	if fields.contractAddress != "" {
		_, found, err := s.db.PiggyBank().GetByContractAddress(ctx, fields.contractAddress)
		if err != nil {
			return nil, err
		}
		if found {
			return nil, ErrContractAlreadyLinked
		}
	} else {
		deployment, err := s.chain.DeployPiggyBank(ctx, chain.DeployRequest{
			Creator:  creator.WalletAddress.String,
			Partner:  fields.partnerAddress,
			Goal:     fields.goal,
			Deadline: fields.deadline.Time,
		})

		switch {
		case errors.Is(err, chain.ErrPendingConfirmation) && deployment != nil:
			metrics.Outcome(metrics.WorkflowCreation, "pending")
			logger.Error("contract deployment unconfirmed", "transaction_hash", deployment.TransactionHash)

			s.recordOrphan(ctx, creator, fields, deployment.TransactionHash, "deployment confirmation pending")
			return &CreateResult{Pending: true, DeployTransactionHash: deployment.TransactionHash}, nil
		case err != nil && deployment != nil && deployment.TransactionHash != "":
			// the factory call was broadcast and may still be mined
			metrics.Outcome(metrics.WorkflowCreation, "deploy_failed")
			logger.Error("contract deployment failed after broadcast", "transaction_hash", deployment.TransactionHash, "error", err)

			s.recordOrphan(ctx, creator, fields, deployment.TransactionHash, err.Error())
			return nil, fmt.Errorf("%w: %v", ErrDeploymentFailed, err)
		case err != nil:
			metrics.Outcome(metrics.WorkflowCreation, "deploy_failed")
			logger.Error("contract deployment failed", "error", err)

			return nil, fmt.Errorf("%w: %v", ErrDeploymentFailed, err)
		}

		fields.contractAddress = deployment.ContractAddress
		deployTxHash = deployment.TransactionHash
		logger.Info("contract deployed", "contract_address", deployment.ContractAddress, "transaction_hash", deployment.TransactionHash)
	}

	pb := &models.PiggyBank{
		Name:            fields.name,
		GoalAmount:      fields.goal,
		ContractAddress: fields.contractAddress,
		Status:          models.PiggyBankActiveStatus,
		GoalDeadline:    fields.deadline,
	}

	if _, err := s.db.PiggyBank().CreateWithCreator(ctx, pb, creator.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicateContract) {
			return nil, ErrContractAlreadyLinked
		}

		metrics.Outcome(metrics.WorkflowCreation, "orphaned")
		logger.Error("piggy bank not saved after deployment", "contract_address", fields.contractAddress, "error", err)

		orphanID := s.recordOrphan(ctx, creator, fields, deployTxHash, err.Error())
		return nil, &OrphanedContractError{ContractAddress: fields.contractAddress, OrphanID: orphanID, Err: err}
	}

	metrics.Outcome(metrics.WorkflowCreation, "success")
	logger.Info("piggy bank created", "piggy_bank_id", pb.ID, "contract_address", pb.ContractAddress)

	s.publish(ctx, models.Event{
		Type:          models.EventPiggyBankCreated,
		PiggyBankID:   pb.ID,
		PiggyBankName: pb.Name,
		ActorID:       creator.ID,
		ActorAddress:  creator.WalletAddress.String,
		GoalAmount:    pb.GoalAmount.String(),
	})

	result := &CreateResult{PiggyBank: pb}

	if fields.partnerAddress != "" {
		result.Invite = s.inviteWithRetry(ctx, pb, creator, fields.partnerAddress)
	}

	return result, nil
}

// recordOrphan writes the audit row for a contract without a piggy bank.
// It returns the row id, or "" when the row could not be written.
func (s *Service) recordOrphan(ctx context.Context, creator *models.User, fields *createFields, deployTxHash, reason string) string {
	orphan := &models.OrphanedContract{
		ContractAddress:       sql.NullString{String: fields.contractAddress, Valid: fields.contractAddress != ""},
		DeployTransactionHash: sql.NullString{String: deployTxHash, Valid: deployTxHash != ""},
		CreatorID:             creator.ID,
		Name:                  fields.name,
		GoalAmount:            fields.goal,
		GoalDeadline:          fields.deadline,
		PartnerAddress:        sql.NullString{String: fields.partnerAddress, Valid: fields.partnerAddress != ""},
		Reason:                reason,
	}

	id, err := s.db.Reconciliation().InsertOrphanedContract(context.WithoutCancel(ctx), orphan)
	if err != nil {
		s.logger.Error("record orphaned contract",
			"contract_address", fields.contractAddress,
			"transaction_hash", deployTxHash,
			"creator_id", creator.ID,
			"name", fields.name,
			"goal_amount", fields.goal.String(),
			"reason", reason,
			"error", err,
		)
		return ""
	}

	return id
}

// ListPiggyBanks returns every piggy bank user belongs to, with their role.
func (s *Service) ListPiggyBanks(ctx context.Context, user *models.User) ([]PiggyBankView, error) {
	memberships, err := s.db.PiggyBank().GetAllByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	views := make([]PiggyBankView, 0, len(memberships))
	for i := range memberships {
		view := NewPiggyBankView(&memberships[i].PiggyBank)
		view.Role = memberships[i].Role
		views = append(views, view)
	}

	return views, nil
}

// GetPiggyBankDetail returns the piggy bank with its members, full history
// and open withdrawal. Only members may read it.
func (s *Service) GetPiggyBankDetail(ctx context.Context, user *models.User, piggyBankID string) (*PiggyBankDetail, error) {
	if !validator.IsUUID(piggyBankID) {
		return nil, ErrPiggyBankNotFound
	}

	pb, err := s.getPiggyBank(ctx, piggyBankID)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireMember(ctx, pb.ID, user.ID); err != nil {
		return nil, err
	}

	key := cache.PiggyBankDetailKey(pb.ID)

	var detail PiggyBankDetail
	found, err := s.cache.GetJSON(ctx, key, &detail)
	if err != nil {
		s.logger.Warn("read piggy bank cache", "piggy_bank_id", pb.ID, "error", err)
	}
	if found {
		return &detail, nil
	}

	members, err := s.db.Member().GetAllByPiggyBankID(ctx, pb.ID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.db.Transaction().GetHistory(ctx, pb.ID)
	if err != nil {
		return nil, err
	}

	pending, found, err := s.db.Withdrawal().GetPendingByPiggyBankID(ctx, pb.ID)
	if err != nil {
		return nil, err
	}

	detail = PiggyBankDetail{
		PiggyBank:    NewPiggyBankView(pb),
		Members:      make([]MemberView, 0, len(members)),
		Transactions: newTransactionDetailViews(transactions),
	}

	for _, m := range members {
		detail.Members = append(detail.Members, NewMemberView(m))
	}

	if found {
		view := NewWithdrawalView(&pending.WithdrawalApproval)
		view.InitiatorWalletAddress = nullString(pending.InitiatorWalletAddress.Valid, pending.InitiatorWalletAddress.String)
		detail.PendingWithdrawal = &view
	}

	if err := s.cache.SetJSON(ctx, key, detail); err != nil {
		s.logger.Warn("write piggy bank cache", "piggy_bank_id", pb.ID, "error", err)
	}

	return &detail, nil
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type TransactionPage struct {
	Transactions []TransactionView `json:"transactions"`
	Pagination   Pagination        `json:"pagination"`
}

// ListTransactions pages through a piggy bank's history, newest first.
func (s *Service) ListTransactions(ctx context.Context, user *models.User, piggyBankID string, limit, offset int) (*TransactionPage, error) {
	if !validator.IsUUID(piggyBankID) {
		return nil, ErrPiggyBankNotFound
	}

	if limit <= 0 {
		limit = DefaultTransactionsLimit
	}
	if limit > MaxTransactionsLimit {
		limit = MaxTransactionsLimit
	}
	if offset < 0 {
		offset = 0
	}

	pb, err := s.getPiggyBank(ctx, piggyBankID)
	if err != nil {
		return nil, err
	}

	if _, err := s.requireMember(ctx, pb.ID, user.ID); err != nil {
		return nil, err
	}

	transactions, total, err := s.db.Transaction().GetPage(ctx, pb.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &TransactionPage{
		Transactions: newTransactionDetailViews(transactions),
		Pagination:   Pagination{Limit: limit, Offset: offset, Total: total},
	}, nil
}
