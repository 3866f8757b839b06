package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/cradoe/puddle/internal/models"
	"github.com/jmoiron/sqlx"
)

type UserRepository interface {
	Insert(ctx context.Context, user *models.User) (string, error)
	GetOne(ctx context.Context, id string) (*models.User, bool, error)
	GetByIdentityKey(ctx context.Context, identityKey string) (*models.User, bool, error)
	GetByWalletAddress(ctx context.Context, walletAddress string) (*models.User, bool, error)
	ClaimPlaceholder(ctx context.Context, id, identityKey string, email sql.NullString) (*models.User, error)
}

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

const userColumns = `id, identity_key, wallet_address, email, created_at`

func (repo *UserRepositoryImpl) Insert(ctx context.Context, user *models.User) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if user.WalletAddress.Valid {
		user.WalletAddress.String = strings.ToLower(user.WalletAddress.String)
	}

	query := `
		INSERT INTO users (identity_key, wallet_address, email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := repo.db.QueryRowxContext(ctx, query,
		user.IdentityKey,
		user.WalletAddress,
		user.Email,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return "", mapConstraintError(err)
	}

	return user.ID, nil
}

func (repo *UserRepositoryImpl) GetOne(ctx context.Context, id string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	err := repo.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &user, err == nil, err
}

func (repo *UserRepositoryImpl) GetByIdentityKey(ctx context.Context, identityKey string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE identity_key = $1`

	err := repo.db.GetContext(ctx, &user, query, identityKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &user, err == nil, err
}

// GetByWalletAddress prefers an authenticated user over a placeholder when
// both carry the same address.
func (repo *UserRepositoryImpl) GetByWalletAddress(ctx context.Context, walletAddress string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user models.User

	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE wallet_address = $1
		ORDER BY (identity_key LIKE $2) ASC, created_at ASC
		LIMIT 1`

	err := repo.db.GetContext(ctx, &user, query, strings.ToLower(walletAddress), models.PlaceholderIdentityPrefix+"%")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &user, err == nil, err
}

// ClaimPlaceholder hands a placeholder row to the user who just authenticated
// with its wallet, keeping every membership attached to it.
func (repo *UserRepositoryImpl) ClaimPlaceholder(ctx context.Context, id, identityKey string, email sql.NullString) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user models.User

	query := `
		UPDATE users SET identity_key = $1, email = COALESCE($2, email)
		WHERE id = $3 AND identity_key LIKE $4
		RETURNING ` + userColumns

	err := repo.db.GetContext(ctx, &user, query, identityKey, email, id, models.PlaceholderIdentityPrefix+"%")
	if err != nil {
		return nil, mapConstraintError(notFound(err))
	}

	return &user, nil
}
