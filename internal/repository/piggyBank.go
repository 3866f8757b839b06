package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/cradoe/puddle/internal/models"
	"github.com/jmoiron/sqlx"
)

type PiggyBankRepository interface {
	CreateWithCreator(ctx context.Context, pb *models.PiggyBank, creatorID string) (string, error)
	GetOne(ctx context.Context, id string) (*models.PiggyBank, bool, error)
	GetByContractAddress(ctx context.Context, contractAddress string) (*models.PiggyBank, bool, error)
	GetAllByUserID(ctx context.Context, userID string) ([]models.PiggyBankMembership, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type PiggyBankRepositoryImpl struct {
	db *sqlx.DB
}

func NewPiggyBankRepository(db *sqlx.DB) PiggyBankRepository {
	return &PiggyBankRepositoryImpl{db: db}
}

const piggyBankColumns = `id, name, goal_amount, current_amount, contract_address, status, goal_deadline, created_at`

// CreateWithCreator inserts the piggy bank and its creator membership in a
// single transaction. Neither row exists if either insert fails.
func (repo *PiggyBankRepositoryImpl) CreateWithCreator(ctx context.Context, pb *models.PiggyBank, creatorID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}

	defer tx.Rollback()

	pb.ContractAddress = strings.ToLower(pb.ContractAddress)
	if pb.Status == "" {
		pb.Status = models.PiggyBankActiveStatus
	}

	query := `
		INSERT INTO piggy_banks (name, goal_amount, contract_address, status, goal_deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, current_amount, created_at`

	err = tx.QueryRowxContext(ctx, query,
		pb.Name,
		pb.GoalAmount,
		pb.ContractAddress,
		pb.Status,
		pb.GoalDeadline,
	).Scan(&pb.ID, &pb.CurrentAmount, &pb.CreatedAt)
	if err != nil {
		return "", mapConstraintError(err)
	}

	query = `
		INSERT INTO piggy_bank_members (piggy_bank_id, user_id, role)
		VALUES ($1, $2, $3)`

	_, err = tx.ExecContext(ctx, query, pb.ID, creatorID, models.MemberRoleCreator)
	if err != nil {
		return "", mapConstraintError(err)
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}

	return pb.ID, nil
}

func (repo *PiggyBankRepositoryImpl) GetOne(ctx context.Context, id string) (*models.PiggyBank, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var pb models.PiggyBank

	query := `SELECT ` + piggyBankColumns + ` FROM piggy_banks WHERE id = $1`

	err := repo.db.GetContext(ctx, &pb, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &pb, err == nil, err
}

func (repo *PiggyBankRepositoryImpl) GetByContractAddress(ctx context.Context, contractAddress string) (*models.PiggyBank, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var pb models.PiggyBank

	query := `SELECT ` + piggyBankColumns + ` FROM piggy_banks WHERE contract_address = $1`

	err := repo.db.GetContext(ctx, &pb, query, strings.ToLower(contractAddress))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &pb, err == nil, err
}

func (repo *PiggyBankRepositoryImpl) GetAllByUserID(ctx context.Context, userID string) ([]models.PiggyBankMembership, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	piggyBanks := []models.PiggyBankMembership{}

	query := `
		SELECT pb.id, pb.name, pb.goal_amount, pb.current_amount, pb.contract_address, pb.status,
			pb.goal_deadline, pb.created_at, m.role, m.joined_at
		FROM piggy_banks pb
		INNER JOIN piggy_bank_members m ON m.piggy_bank_id = pb.id
		WHERE m.user_id = $1
		ORDER BY pb.created_at DESC`

	err := repo.db.SelectContext(ctx, &piggyBanks, query, userID)
	if err != nil {
		return nil, err
	}

	return piggyBanks, nil
}

func (repo *PiggyBankRepositoryImpl) UpdateStatus(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `UPDATE piggy_banks SET status = $1 WHERE id = $2`

	result, err := repo.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRecordNotFound
	}

	return nil
}
