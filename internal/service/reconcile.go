package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cradoe/puddle/internal/chain"
	"github.com/cradoe/puddle/internal/metrics"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/repository"
)

// ReconcileBatchSize bounds the rows handled per kind in one pass.
const ReconcileBatchSize = 50

const (
	reconcileOrphan  = "orphaned_contract"
	reconcileInvite  = "pending_invite"
	reconcileDeposit = "pending_deposit"
)

// ReconcileReport counts what a pass resolved.
type ReconcileReport struct {
	OrphansResolved int
	InvitesResolved int
	DepositsSettled int
	Failures        int
}

// Reconcile runs one pass over orphaned contracts, parked invites and
// pending deposits. It stops early when ctx is done.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	if err := s.reconcileOrphans(ctx, report); err != nil {
		return report, err
	}
	if err := s.reconcileInvites(ctx, report); err != nil {
		return report, err
	}
	if err := s.reconcileDeposits(ctx, report); err != nil {
		return report, err
	}

	return report, nil
}

func (s *Service) reconcileOrphans(ctx context.Context, report *ReconcileReport) error {
	orphans, err := s.db.Reconciliation().GetUnresolvedOrphanedContracts(ctx, ReconcileBatchSize)
	if err != nil {
		return fmt.Errorf("load orphaned contracts: %w", err)
	}

	for i := range orphans {
		if err := ctx.Err(); err != nil {
			return err
		}

		orphan := &orphans[i]
		logger := s.logger.With("orphan_id", orphan.ID, "transaction_hash", orphan.DeployTransactionHash.String)

		resolved, err := s.reconcileOrphan(ctx, orphan)
		switch {
		case err != nil:
			report.Failures++
			metrics.ReconcileRuns.WithLabelValues(reconcileOrphan, "failed").Inc()
			logger.Error("orphaned contract not reconciled", "contract_address", orphan.ContractAddress.String, "error", err)
		case resolved:
			report.OrphansResolved++
			metrics.ReconcileRuns.WithLabelValues(reconcileOrphan, "resolved").Inc()
		default:
			metrics.ReconcileRuns.WithLabelValues(reconcileOrphan, "waiting").Inc()
		}
	}

	return nil
}

// reconcileOrphan links one orphaned contract to a new piggy bank. It
// returns false without error while the deployment is still unmined.
func (s *Service) reconcileOrphan(ctx context.Context, orphan *models.OrphanedContract) (bool, error) {
	recon := s.db.Reconciliation()

	if !orphan.ContractAddress.Valid {
		if s.chain == nil || !orphan.DeployTransactionHash.Valid {
			return false, nil
		}

		address, err := s.chain.DeploymentAddress(ctx, orphan.DeployTransactionHash.String)
		switch {
		case errors.Is(err, chain.ErrPendingConfirmation):
			return false, nil
		case errors.Is(err, chain.ErrTransactionFailed), errors.Is(err, chain.ErrDeploymentFailed):
			// nothing was deployed, so there is nothing to link
			s.logger.Warn("orphaned deployment reverted", "orphan_id", orphan.ID)
			return true, ignoreResolved(recon.ResolveOrphanedContract(ctx, orphan.ID, ""))
		case err != nil:
			return false, err
		}

		if err := recon.SetOrphanedContractAddress(ctx, orphan.ID, address); err != nil {
			return false, err
		}
		orphan.ContractAddress.String = address
		orphan.ContractAddress.Valid = true
	}

	existing, found, err := s.db.PiggyBank().GetByContractAddress(ctx, orphan.ContractAddress.String)
	if err != nil {
		return false, err
	}
	if found {
		return true, ignoreResolved(recon.ResolveOrphanedContract(ctx, orphan.ID, existing.ID))
	}

	creator, found, err := s.db.User().GetOne(ctx, orphan.CreatorID)
	if err != nil {
		return false, err
	}
	if !found {
		return false, ErrUserNotFound
	}

	pb := &models.PiggyBank{
		Name:            orphan.Name,
		GoalAmount:      orphan.GoalAmount,
		ContractAddress: orphan.ContractAddress.String,
		Status:          models.PiggyBankActiveStatus,
		GoalDeadline:    orphan.GoalDeadline,
	}

	_, err = s.db.PiggyBank().CreateWithCreator(ctx, pb, creator.ID)
	if errors.Is(err, repository.ErrDuplicateContract) {
		existing, found, err := s.db.PiggyBank().GetByContractAddress(ctx, orphan.ContractAddress.String)
		if err != nil || !found {
			return false, err
		}
		return true, ignoreResolved(recon.ResolveOrphanedContract(ctx, orphan.ID, existing.ID))
	}
	if err != nil {
		return false, err
	}

	if err := ignoreResolved(recon.ResolveOrphanedContract(ctx, orphan.ID, pb.ID)); err != nil {
		return false, err
	}

	s.logger.Info("orphaned contract linked", "orphan_id", orphan.ID, "piggy_bank_id", pb.ID, "contract_address", pb.ContractAddress)

	s.publish(ctx, models.Event{
		Type:          models.EventPiggyBankCreated,
		PiggyBankID:   pb.ID,
		PiggyBankName: pb.Name,
		ActorID:       creator.ID,
		ActorAddress:  creator.WalletAddress.String,
		GoalAmount:    pb.GoalAmount.String(),
	})

	if orphan.PartnerAddress.Valid {
		s.inviteWithRetry(ctx, pb, creator, orphan.PartnerAddress.String)
	}

	return true, nil
}

func ignoreResolved(err error) error {
	if errors.Is(err, repository.ErrOrphanedContractResolved) {
		return nil
	}
	return err
}

func (s *Service) reconcileInvites(ctx context.Context, report *ReconcileReport) error {
	recon := s.db.Reconciliation()

	invites, err := recon.GetUnresolvedPendingInvites(ctx, ReconcileBatchSize)
	if err != nil {
		return fmt.Errorf("load pending invites: %w", err)
	}

	for i := range invites {
		if err := ctx.Err(); err != nil {
			return err
		}

		invite := &invites[i]
		logger := s.logger.With("pending_invite_id", invite.ID, "piggy_bank_id", invite.PiggyBankID, "partner_address", invite.PartnerAddress)

		err := s.retryInvite(ctx, invite)
		switch {
		case err == nil, permanentInviteError(err):
			if err != nil {
				logger.Warn("pending invite dropped", "error", err)
			}
			if resolveErr := recon.ResolvePendingInvite(ctx, invite.ID); resolveErr != nil {
				report.Failures++
				logger.Error("resolve pending invite", "error", resolveErr)
				continue
			}
			report.InvitesResolved++
			metrics.ReconcileRuns.WithLabelValues(reconcileInvite, "resolved").Inc()
		default:
			report.Failures++
			metrics.ReconcileRuns.WithLabelValues(reconcileInvite, "failed").Inc()
			logger.Error("pending invite retry failed", "attempt", invite.Attempts+1, "error", err)

			if recordErr := recon.RecordPendingInviteAttempt(ctx, invite.ID, err.Error()); recordErr != nil {
				logger.Error("record pending invite attempt", "error", recordErr)
			}
		}
	}

	return nil
}

func (s *Service) retryInvite(ctx context.Context, invite *models.PendingInvite) error {
	metrics.InviteAttempts.Inc()

	pb, err := s.getPiggyBank(ctx, invite.PiggyBankID)
	if err != nil {
		return err
	}

	inviter, found, err := s.db.User().GetOne(ctx, invite.InviterID)
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}

	_, err = s.inviteOnce(ctx, pb, inviter, invite.PartnerAddress)
	return err
}

func (s *Service) reconcileDeposits(ctx context.Context, report *ReconcileReport) error {
	if s.chain == nil {
		return nil
	}

	pending, err := s.db.Transaction().GetPending(ctx, ReconcileBatchSize)
	if err != nil {
		return fmt.Errorf("load pending deposits: %w", err)
	}

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		deposit := &pending[i]
		logger := s.logger.With("transaction_hash", deposit.TransactionHash, "piggy_bank_id", deposit.PiggyBankID)

		receipt, err := s.chain.ReceiptStatus(ctx, deposit.TransactionHash)
		if err != nil {
			report.Failures++
			metrics.ReconcileRuns.WithLabelValues(reconcileDeposit, "failed").Inc()
			logger.Error("pending deposit receipt lookup failed", "error", err)
			continue
		}

		var status string
		switch receipt {
		case chain.ReceiptSuccess:
			status = models.TransactionStatusCompleted
		case chain.ReceiptFailed:
			status = models.TransactionStatusFailed
		default:
			metrics.ReconcileRuns.WithLabelValues(reconcileDeposit, "waiting").Inc()
			continue
		}

		transaction, pb, err := s.db.Transaction().ConfirmDeposit(ctx, deposit.TransactionHash, status)
		if errors.Is(err, repository.ErrTransactionNotPending) {
			continue
		}
		if err != nil {
			report.Failures++
			metrics.ReconcileRuns.WithLabelValues(reconcileDeposit, "failed").Inc()
			logger.Error("pending deposit not settled", "status", status, "error", err)
			continue
		}

		report.DepositsSettled++
		metrics.ReconcileRuns.WithLabelValues(reconcileDeposit, status).Inc()
		logger.Info("pending deposit settled", "status", status)

		s.invalidate(ctx, pb.ID)

		if status == models.TransactionStatusCompleted {
			depositor, found, err := s.db.User().GetOne(ctx, transaction.UserID)
			if err != nil || !found {
				depositor = &models.User{ID: transaction.UserID}
			}
			s.publishDeposit(ctx, depositor, transaction, pb)
		}
	}

	return nil
}
