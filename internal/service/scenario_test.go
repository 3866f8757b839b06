package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A couple saves towards a goal, retries a deposit by mistake and then
// withdraws part of it with both signatures.
func TestSavingsLifecycle(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	creator := f.user(t, 1)
	partner := f.user(t, 2)

	created, err := f.svc.CreatePiggyBank(ctx, creator, CreatePiggyBankInput{
		Name:            "Honeymoon",
		GoalAmount:      "1.0",
		GoalDeadline:    time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
		PartnerAddress:  partner.WalletAddress.String,
		ContractAddress: addr(0xabc),
	})
	require.NoError(t, err)
	require.NotNil(t, created.Invite)
	require.NoError(t, created.Invite.Err)
	assert.Equal(t, partner.ID, created.Invite.Partner.ID)

	pb := created.PiggyBank

	f.deposit(t, creator, pb, "0.4", 1)
	assert.True(t, dec("0.4").Equal(f.balance(t, pb.ID)))

	_, err = f.svc.RecordDeposit(ctx, creator, RecordDepositInput{
		ContractAddress: pb.ContractAddress,
		Amount:          "0.4",
		TransactionHash: txHash(1),
	})
	require.True(t, errors.Is(err, ErrDuplicateTransaction))
	assert.True(t, dec("0.4").Equal(f.balance(t, pb.ID)))

	requested, err := f.svc.RequestWithdrawal(ctx, creator, RequestWithdrawalInput{PiggyBankID: pb.ID, Amount: "0.2"})
	require.NoError(t, err)

	withdrawal, updated, err := f.svc.ApproveWithdrawal(ctx, partner, requested.ID, "")
	require.NoError(t, err)
	assert.True(t, withdrawal.Executed)
	assert.True(t, dec("0.2").Equal(updated.CurrentAmount))
	assert.True(t, dec("0.2").Equal(f.balance(t, pb.ID)))
}
