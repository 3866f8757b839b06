package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cradoe/puddle/assets"
	"github.com/cradoe/puddle/internal/models"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
)

const defaultTimeout = 3 * time.Second

// Database interface defines available repositories
type Database interface {
	User() UserRepository
	PiggyBank() PiggyBankRepository
	Member() MemberRepository
	Transaction() TransactionRepository
	Withdrawal() WithdrawalRepository
	Reconciliation() ReconciliationRepository

	Ping(ctx context.Context) error
	Close() error
}

// DatabaseImpl implements the Database interface
type DatabaseImpl struct {
	db                 *sqlx.DB
	userRepo           UserRepository
	piggyBankRepo      PiggyBankRepository
	memberRepo         MemberRepository
	transactionRepo    TransactionRepository
	withdrawalRepo     WithdrawalRepository
	reconciliationRepo ReconciliationRepository

	mu sync.Mutex
}

// New initializes a database connection and runs migrations if enabled
func New(dsn string, automigrate bool) (Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", "postgres://"+dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if automigrate {
		iofsDriver, err := iofs.New(assets.EmbeddedFiles, "migrations")
		if err != nil {
			return nil, err
		}

		migrator, err := migrate.NewWithSourceInstance("iofs", iofsDriver, "postgres://"+dsn)
		if err != nil {
			return nil, err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, err
		}
	}

	// repositories are created lazily
	return &DatabaseImpl{db: db}, nil
}

func (d *DatabaseImpl) Close() error {
	return d.db.Close()
}

func (d *DatabaseImpl) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return d.db.PingContext(ctx)
}

func (d *DatabaseImpl) User() UserRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.userRepo == nil {
		d.userRepo = NewUserRepository(d.db)
	}
	return d.userRepo
}

func (d *DatabaseImpl) PiggyBank() PiggyBankRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.piggyBankRepo == nil {
		d.piggyBankRepo = NewPiggyBankRepository(d.db)
	}
	return d.piggyBankRepo
}

func (d *DatabaseImpl) Member() MemberRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.memberRepo == nil {
		d.memberRepo = NewMemberRepository(d.db)
	}
	return d.memberRepo
}

func (d *DatabaseImpl) Transaction() TransactionRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transactionRepo == nil {
		d.transactionRepo = NewTransactionRepository(d.db)
	}
	return d.transactionRepo
}

func (d *DatabaseImpl) Withdrawal() WithdrawalRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.withdrawalRepo == nil {
		d.withdrawalRepo = NewWithdrawalRepository(d.db)
	}
	return d.withdrawalRepo
}

func (d *DatabaseImpl) Reconciliation() ReconciliationRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.reconciliationRepo == nil {
		d.reconciliationRepo = NewReconciliationRepository(d.db)
	}
	return d.reconciliationRepo
}

// lockPiggyBank loads a piggy bank row and holds its lock until tx ends.
// Every write to current_amount or to a withdrawal goes through here first.
func lockPiggyBank(ctx context.Context, tx *sqlx.Tx, id string) (*models.PiggyBank, error) {
	var pb models.PiggyBank

	query := `
		SELECT id, name, goal_amount, current_amount, contract_address, status, goal_deadline, created_at
		FROM piggy_banks WHERE id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &pb, query, id)
	if err != nil {
		return nil, notFound(err)
	}

	return &pb, nil
}
