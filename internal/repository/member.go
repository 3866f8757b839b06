package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/cradoe/puddle/internal/models"
	"github.com/jmoiron/sqlx"
)

type MemberRepository interface {
	Insert(ctx context.Context, piggyBankID, userID, role string) (*models.Member, error)
	GetAllByPiggyBankID(ctx context.Context, piggyBankID string) ([]models.MemberDetail, error)
	GetRole(ctx context.Context, piggyBankID, userID string) (string, bool, error)
	Count(ctx context.Context, piggyBankID string) (int, error)
}

type MemberRepositoryImpl struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) MemberRepository {
	return &MemberRepositoryImpl{db: db}
}

// Insert adds a member while holding the piggy bank row lock, so two
// concurrent invites cannot both see a free seat.
func (repo *MemberRepositoryImpl) Insert(ctx context.Context, piggyBankID, userID, role string) (*models.Member, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	if _, err := lockPiggyBank(ctx, tx, piggyBankID); err != nil {
		return nil, err
	}

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM piggy_bank_members WHERE piggy_bank_id = $1 AND user_id = $2)`
	if err := tx.GetContext(ctx, &exists, query, piggyBankID, userID); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateMember
	}

	var count int
	query = `SELECT COUNT(*) FROM piggy_bank_members WHERE piggy_bank_id = $1`
	if err := tx.GetContext(ctx, &count, query, piggyBankID); err != nil {
		return nil, err
	}
	if count >= models.MaxMembers {
		return nil, ErrMembershipFull
	}

	member := models.Member{PiggyBankID: piggyBankID, UserID: userID, Role: role}

	query = `
		INSERT INTO piggy_bank_members (piggy_bank_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, joined_at`

	err = tx.QueryRowxContext(ctx, query, piggyBankID, userID, role).Scan(&member.ID, &member.JoinedAt)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &member, nil
}

func (repo *MemberRepositoryImpl) GetAllByPiggyBankID(ctx context.Context, piggyBankID string) ([]models.MemberDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	members := []models.MemberDetail{}

	query := `
		SELECT m.user_id, m.role, m.joined_at, u.wallet_address, u.email
		FROM piggy_bank_members m
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.piggy_bank_id = $1
		ORDER BY m.joined_at ASC`

	err := repo.db.SelectContext(ctx, &members, query, piggyBankID)
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (repo *MemberRepositoryImpl) GetRole(ctx context.Context, piggyBankID, userID string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var role string

	query := `SELECT role FROM piggy_bank_members WHERE piggy_bank_id = $1 AND user_id = $2`

	err := repo.db.GetContext(ctx, &role, query, piggyBankID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	return role, err == nil, err
}

func (repo *MemberRepositoryImpl) Count(ctx context.Context, piggyBankID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int

	query := `SELECT COUNT(*) FROM piggy_bank_members WHERE piggy_bank_id = $1`

	err := repo.db.GetContext(ctx, &count, query, piggyBankID)
	return count, err
}
