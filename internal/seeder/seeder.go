package seeders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/service"
)

const defaultTimeout = 30 * time.Second

const tokenTTL = 24 * time.Hour

const demoContractAddress = "0x5fbdb2315678afecb367f032d93f642f64180aa3"

var demoIdentities = []auth.Identity{
	{Key: "did:demo:alice", WalletAddress: "0x70997970c51812dc3a010c7d01b50e0d17dc79c8", Email: "alice@example.org"},
	{Key: "did:demo:bob", WalletAddress: "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc", Email: "bob@example.org"},
}

var demoDeposits = []struct {
	depositor int
	amount    string
	hash      string
}{
	{0, "120.50", "0x" + strings.Repeat("a1", 32)},
	{1, "80", "0x" + strings.Repeat("b2", 32)},
	{0, "49.50", "0x" + strings.Repeat("c3", 32)},
}

type Seeder struct {
	Service  *service.Service
	Resolver *auth.JWTResolver
	Logger   *slog.Logger
}

func New(svc *service.Service, resolver *auth.JWTResolver, logger *slog.Logger) *Seeder {
	return &Seeder{
		Service:  svc,
		Resolver: resolver,
		Logger:   logger,
	}
}

type DemoAccount struct {
	UserID        string
	WalletAddress string
	Token         string
}

type Result struct {
	Accounts    []DemoAccount
	PiggyBankID string
}

// Run creates two demo users sharing a piggy bank with a few deposits and
// signs a token for each. Running it again only refreshes the tokens.
func (seeder *Seeder) Run(ctx context.Context) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result := &Result{}

	for i := range demoIdentities {
		identity := demoIdentities[i]

		user, err := seeder.Service.ResolveUser(ctx, &identity)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", identity.Key, err)
		}

		token, err := seeder.Resolver.Issue(&identity, tokenTTL)
		if err != nil {
			return nil, err
		}

		result.Accounts = append(result.Accounts, DemoAccount{
			UserID:        user.ID,
			WalletAddress: identity.WalletAddress,
			Token:         string(token),
		})
	}

	creator, err := seeder.Service.ResolveUser(ctx, &demoIdentities[0])
	if err != nil {
		return nil, err
	}

	created, err := seeder.Service.CreatePiggyBank(ctx, creator, service.CreatePiggyBankInput{
		Name:            "Summer trip",
		GoalAmount:      "500",
		PartnerAddress:  demoIdentities[1].WalletAddress,
		ContractAddress: demoContractAddress,
	})
	switch {
	case errors.Is(err, service.ErrContractAlreadyLinked):
		seeder.Logger.Info("demo piggy bank already seeded", "contract_address", demoContractAddress)
		return result, seeder.findPiggyBank(ctx, creator, result)
	case err != nil:
		return nil, fmt.Errorf("seed piggy bank: %w", err)
	}

	result.PiggyBankID = created.PiggyBank.ID

	for _, d := range demoDeposits {
		depositor, err := seeder.Service.ResolveUser(ctx, &demoIdentities[d.depositor])
		if err != nil {
			return nil, err
		}

		_, err = seeder.Service.RecordDeposit(ctx, depositor, service.RecordDepositInput{
			ContractAddress: demoContractAddress,
			Amount:          d.amount,
			TransactionHash: d.hash,
		})
		if err != nil && !errors.Is(err, service.ErrDuplicateTransaction) {
			return nil, fmt.Errorf("seed deposit %s: %w", d.hash, err)
		}
	}

	seeder.Logger.Info("demo data seeded", "piggy_bank_id", result.PiggyBankID)

	return result, nil
}

func (seeder *Seeder) findPiggyBank(ctx context.Context, creator *models.User, result *Result) error {
	piggyBanks, err := seeder.Service.ListPiggyBanks(ctx, creator)
	if err != nil {
		return err
	}

	for _, pb := range piggyBanks {
		if pb.ContractAddress == demoContractAddress {
			result.PiggyBankID = pb.ID
			return nil
		}
	}

	return fmt.Errorf("contract %s is linked to a piggy bank the demo user is not a member of", demoContractAddress)
}
