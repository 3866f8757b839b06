package repository

import (
	"context"

	"github.com/cradoe/puddle/internal/models"
	"github.com/jmoiron/sqlx"
)

// ReconciliationRepository stores the work the reconciler picks up later:
// contracts deployed without a piggy bank row and invites that never landed.
type ReconciliationRepository interface {
	InsertOrphanedContract(ctx context.Context, orphan *models.OrphanedContract) (string, error)
	GetUnresolvedOrphanedContracts(ctx context.Context, limit int) ([]models.OrphanedContract, error)
	SetOrphanedContractAddress(ctx context.Context, id, contractAddress string) error
	ResolveOrphanedContract(ctx context.Context, id, piggyBankID string) error

	InsertPendingInvite(ctx context.Context, invite *models.PendingInvite) (string, error)
	GetUnresolvedPendingInvites(ctx context.Context, limit int) ([]models.PendingInvite, error)
	RecordPendingInviteAttempt(ctx context.Context, id, lastError string) error
	ResolvePendingInvite(ctx context.Context, id string) error
}

type ReconciliationRepositoryImpl struct {
	db *sqlx.DB
}

func NewReconciliationRepository(db *sqlx.DB) ReconciliationRepository {
	return &ReconciliationRepositoryImpl{db: db}
}

const orphanedContractColumns = `id, contract_address, deploy_transaction_hash, creator_id, name, goal_amount,
	goal_deadline, partner_address, reason, resolved, piggy_bank_id, resolved_at, created_at`

const pendingInviteColumns = `id, piggy_bank_id, inviter_id, partner_address, attempts, last_error, resolved,
	created_at, updated_at`

func (repo *ReconciliationRepositoryImpl) InsertOrphanedContract(ctx context.Context, orphan *models.OrphanedContract) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO orphaned_contracts (contract_address, deploy_transaction_hash, creator_id, name,
			goal_amount, goal_deadline, partner_address, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := repo.db.QueryRowxContext(ctx, query,
		orphan.ContractAddress,
		orphan.DeployTransactionHash,
		orphan.CreatorID,
		orphan.Name,
		orphan.GoalAmount,
		orphan.GoalDeadline,
		orphan.PartnerAddress,
		orphan.Reason,
	).Scan(&orphan.ID, &orphan.CreatedAt)
	if err != nil {
		return "", err
	}

	return orphan.ID, nil
}

func (repo *ReconciliationRepositoryImpl) GetUnresolvedOrphanedContracts(ctx context.Context, limit int) ([]models.OrphanedContract, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	orphans := []models.OrphanedContract{}

	query := `
		SELECT ` + orphanedContractColumns + ` FROM orphaned_contracts
		WHERE NOT resolved
		ORDER BY created_at ASC
		LIMIT $1`

	if err := repo.db.SelectContext(ctx, &orphans, query, limit); err != nil {
		return nil, err
	}

	return orphans, nil
}

func (repo *ReconciliationRepositoryImpl) SetOrphanedContractAddress(ctx context.Context, id, contractAddress string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `UPDATE orphaned_contracts SET contract_address = LOWER($1) WHERE id = $2`

	_, err := repo.db.ExecContext(ctx, query, contractAddress, id)
	return err
}

func (repo *ReconciliationRepositoryImpl) ResolveOrphanedContract(ctx context.Context, id, piggyBankID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		UPDATE orphaned_contracts SET resolved = TRUE, piggy_bank_id = NULLIF($1, '')::uuid, resolved_at = NOW()
		WHERE id = $2 AND NOT resolved`

	result, err := repo.db.ExecContext(ctx, query, piggyBankID, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOrphanedContractResolved
	}

	return nil
}

func (repo *ReconciliationRepositoryImpl) InsertPendingInvite(ctx context.Context, invite *models.PendingInvite) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO pending_invites (piggy_bank_id, inviter_id, partner_address, attempts, last_error)
		VALUES ($1, $2, LOWER($3), $4, $5)
		RETURNING id, created_at`

	err := repo.db.QueryRowxContext(ctx, query,
		invite.PiggyBankID,
		invite.InviterID,
		invite.PartnerAddress,
		invite.Attempts,
		invite.LastError,
	).Scan(&invite.ID, &invite.CreatedAt)
	if err != nil {
		return "", err
	}

	return invite.ID, nil
}

func (repo *ReconciliationRepositoryImpl) GetUnresolvedPendingInvites(ctx context.Context, limit int) ([]models.PendingInvite, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	invites := []models.PendingInvite{}

	query := `
		SELECT ` + pendingInviteColumns + ` FROM pending_invites
		WHERE NOT resolved
		ORDER BY created_at ASC
		LIMIT $1`

	if err := repo.db.SelectContext(ctx, &invites, query, limit); err != nil {
		return nil, err
	}

	return invites, nil
}

func (repo *ReconciliationRepositoryImpl) RecordPendingInviteAttempt(ctx context.Context, id, lastError string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
		UPDATE pending_invites SET attempts = attempts + 1, last_error = $1, updated_at = NOW()
		WHERE id = $2`

	_, err := repo.db.ExecContext(ctx, query, lastError, id)
	return err
}

func (repo *ReconciliationRepositoryImpl) ResolvePendingInvite(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `UPDATE pending_invites SET resolved = TRUE, updated_at = NOW() WHERE id = $1`

	_, err := repo.db.ExecContext(ctx, query, id)
	return err
}
