package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/mocks"
	"github.com/cradoe/puddle/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *mocks.MemoryStore
	chain  *mocks.MockChain
	events *mocks.RecordingPublisher
	cache  *mocks.MemoryCache
	svc    *Service

	piggyBanks int

	mu     sync.Mutex
	sleeps []time.Duration
}

func newFixture(t *testing.T, withChain bool) *fixture {
	t.Helper()

	f := &fixture{
		store:  mocks.NewMemoryStore(),
		events: &mocks.RecordingPublisher{},
		cache:  mocks.NewMemoryCache(),
	}

	opts := Options{
		DB:              f.store,
		Publisher:       f.events,
		Cache:           f.cache,
		InviteBaseDelay: time.Second,
	}

	if withChain {
		f.chain = &mocks.MockChain{}
		opts.Chain = f.chain
		t.Cleanup(func() { f.chain.AssertExpectations(t) })
	}

	f.svc = New(opts)
	f.svc.sleep = func(ctx context.Context, d time.Duration) error {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.sleeps = append(f.sleeps, d)
		return ctx.Err()
	}

	return f
}

func addr(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

func txHash(n int) string {
	return fmt.Sprintf("0x%064x", n)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) user(t *testing.T, n int) *models.User {
	t.Helper()

	user, err := f.svc.ResolveUser(context.Background(), &auth.Identity{
		Key:           fmt.Sprintf("did:test:%d", n),
		WalletAddress: addr(n),
		Email:         fmt.Sprintf("user%d@example.com", n),
	})
	require.NoError(t, err)

	return user
}

// piggyBank creates a piggy bank linked to an existing contract, without a
// partner.
func (f *fixture) piggyBank(t *testing.T, creator *models.User, goal string) *models.PiggyBank {
	t.Helper()

	f.piggyBanks++
	result, err := f.svc.CreatePiggyBank(context.Background(), creator, CreatePiggyBankInput{
		Name:            "Holiday",
		GoalAmount:      goal,
		ContractAddress: addr(0xabc000 + f.piggyBanks),
	})
	require.NoError(t, err)
	require.NotNil(t, result.PiggyBank)

	return result.PiggyBank
}

// pair creates a piggy bank shared by two fresh users.
func (f *fixture) pair(t *testing.T, goal string) (*models.PiggyBank, *models.User, *models.User) {
	t.Helper()

	creator := f.user(t, 1)
	partner := f.user(t, 2)
	pb := f.piggyBank(t, creator, goal)

	result, err := f.svc.InvitePartner(context.Background(), creator, InvitePartnerInput{
		PiggyBankID:    pb.ID,
		PartnerAddress: partner.WalletAddress.String,
	})
	require.NoError(t, err)
	require.False(t, result.Pending)

	return pb, creator, partner
}

func (f *fixture) deposit(t *testing.T, user *models.User, pb *models.PiggyBank, amount string, n int) *DepositResult {
	t.Helper()

	result, err := f.svc.RecordDeposit(context.Background(), user, RecordDepositInput{
		ContractAddress: pb.ContractAddress,
		Amount:          amount,
		TransactionHash: txHash(n),
	})
	require.NoError(t, err)

	return result
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()

	pb, found, err := f.store.PiggyBank().GetOne(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)

	return pb.CurrentAmount
}

func assertValidation(t *testing.T, err error, message string) {
	t.Helper()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, message)
}
