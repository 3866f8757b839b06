package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cradoe/puddle/internal/chain"
	"github.com/cradoe/puddle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReconcileLinksOrphanedContract(t *testing.T) {
	f := newFixture(t, true)
	creator := f.user(t, 1)

	f.chain.On("DeployPiggyBank", mock.Anything, mock.Anything).
		Return(&chain.Deployment{ContractAddress: addr(500), TransactionHash: txHash(9)}, nil).Once()
	f.store.FailNext("PiggyBank.CreateWithCreator", errors.New("connection reset"))

	_, err := f.svc.CreatePiggyBank(context.Background(), creator, CreatePiggyBankInput{
		Name:           "Car",
		GoalAmount:     "2",
		PartnerAddress: addr(2),
	})
	require.Error(t, err)

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrphansResolved)
	assert.Zero(t, report.Failures)

	pb, found, err := f.store.PiggyBank().GetByContractAddress(context.Background(), addr(500))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Car", pb.Name)

	orphans := f.store.OrphanedContracts()
	require.Len(t, orphans, 1)
	assert.True(t, orphans[0].Resolved)
	assert.Equal(t, pb.ID, orphans[0].PiggyBankID.String)

	count, err := f.store.Member().Count(context.Background(), pb.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// a second pass finds nothing to do
	report, err = f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.OrphansResolved)
}

func TestReconcileWaitsForPendingDeployment(t *testing.T) {
	f := newFixture(t, true)
	creator := f.user(t, 1)

	f.chain.On("DeployPiggyBank", mock.Anything, mock.Anything).
		Return(&chain.Deployment{TransactionHash: txHash(9)}, chain.ErrPendingConfirmation).Once()
	f.chain.On("DeploymentAddress", mock.Anything, txHash(9)).Return("", chain.ErrPendingConfirmation).Once()
	f.chain.On("DeploymentAddress", mock.Anything, txHash(9)).Return(addr(501), nil).Once()

	result, err := f.svc.CreatePiggyBank(context.Background(), creator, CreatePiggyBankInput{
		Name:           "Car",
		GoalAmount:     "2",
		PartnerAddress: addr(2),
	})
	require.NoError(t, err)
	require.True(t, result.Pending)

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.OrphansResolved)
	assert.False(t, f.store.OrphanedContracts()[0].Resolved)

	report, err = f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrphansResolved)

	orphan := f.store.OrphanedContracts()[0]
	assert.True(t, orphan.Resolved)
	assert.Equal(t, addr(501), orphan.ContractAddress.String)

	banks, err := f.svc.ListPiggyBanks(context.Background(), creator)
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, addr(501), banks[0].ContractAddress)
}

func TestReconcileResolvesRevertedDeployment(t *testing.T) {
	f := newFixture(t, true)
	creator := f.user(t, 1)

	f.chain.On("DeployPiggyBank", mock.Anything, mock.Anything).
		Return(&chain.Deployment{TransactionHash: txHash(9)}, chain.ErrPendingConfirmation).Once()
	f.chain.On("DeploymentAddress", mock.Anything, txHash(9)).Return("", chain.ErrTransactionFailed).Once()

	_, err := f.svc.CreatePiggyBank(context.Background(), creator, CreatePiggyBankInput{
		Name:           "Car",
		GoalAmount:     "2",
		PartnerAddress: addr(2),
	})
	require.NoError(t, err)

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrphansResolved)

	orphan := f.store.OrphanedContracts()[0]
	assert.True(t, orphan.Resolved)
	assert.False(t, orphan.PiggyBankID.Valid)

	banks, err := f.svc.ListPiggyBanks(context.Background(), creator)
	require.NoError(t, err)
	assert.Empty(t, banks)
}

func TestReconcileRetriesPendingInvites(t *testing.T) {
	f := newFixture(t, false)
	creator := f.user(t, 1)
	pb := f.piggyBank(t, creator, "1")

	failure := errors.New("connection reset")
	f.store.FailNext("Member.Insert", failure, failure, failure)

	result, err := f.svc.InvitePartner(context.Background(), creator, InvitePartnerInput{PiggyBankID: pb.ID, PartnerAddress: addr(2)})
	require.NoError(t, err)
	require.True(t, result.Pending)

	// first pass still fails
	f.store.FailNext("Member.Insert", errors.New("too many connections"))

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.InvitesResolved)
	assert.Equal(t, 1, report.Failures)

	invite := f.store.PendingInvites()[0]
	assert.False(t, invite.Resolved)
	assert.Equal(t, 4, invite.Attempts)
	assert.Equal(t, "too many connections", invite.LastError)

	report, err = f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.InvitesResolved)
	assert.True(t, f.store.PendingInvites()[0].Resolved)

	count, err := f.store.Member().Count(context.Background(), pb.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReconcileDropsInviteThatCanNoLongerLand(t *testing.T) {
	f := newFixture(t, false)
	creator := f.user(t, 1)
	pb := f.piggyBank(t, creator, "1")

	failure := errors.New("connection reset")
	f.store.FailNext("Member.Insert", failure, failure, failure)

	_, err := f.svc.InvitePartner(context.Background(), creator, InvitePartnerInput{PiggyBankID: pb.ID, PartnerAddress: addr(2)})
	require.NoError(t, err)

	// someone else took the seat meanwhile
	_, err = f.svc.InvitePartner(context.Background(), creator, InvitePartnerInput{PiggyBankID: pb.ID, PartnerAddress: addr(3)})
	require.NoError(t, err)

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.InvitesResolved)
	assert.True(t, f.store.PendingInvites()[0].Resolved)

	_, found, err := f.store.Member().GetRole(context.Background(), pb.ID, f.user(t, 2).ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReconcileSettlesPendingDeposits(t *testing.T) {
	f := newFixture(t, true)
	pb, creator, _ := f.pair(t, "1")

	f.chain.On("ReceiptStatus", mock.Anything, txHash(1)).Return(chain.ReceiptPending, nil).Once()
	f.chain.On("ReceiptStatus", mock.Anything, txHash(2)).Return(chain.ReceiptPending, nil).Once()

	f.deposit(t, creator, pb, "0.3", 1)
	f.deposit(t, creator, pb, "0.2", 2)
	assert.True(t, f.balance(t, pb.ID).IsZero())

	f.chain.On("ReceiptStatus", mock.Anything, txHash(1)).Return(chain.ReceiptSuccess, nil).Once()
	f.chain.On("ReceiptStatus", mock.Anything, txHash(2)).Return(chain.ReceiptFailed, nil).Once()

	report, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.DepositsSettled)

	assert.True(t, dec("0.3").Equal(f.balance(t, pb.ID)))

	statuses := map[string]string{}
	for _, tx := range f.store.Transactions(pb.ID) {
		statuses[tx.TransactionHash] = tx.Status
	}
	assert.Equal(t, models.TransactionStatusCompleted, statuses[txHash(1)])
	assert.Equal(t, models.TransactionStatusFailed, statuses[txHash(2)])

	assert.Contains(t, f.events.Types(), models.EventDepositMade)
}

func TestReconcileHonoursCancellation(t *testing.T) {
	f := newFixture(t, false)
	creator := f.user(t, 1)
	pb := f.piggyBank(t, creator, "1")

	failure := errors.New("connection reset")
	f.store.FailNext("Member.Insert", failure, failure, failure)

	_, err := f.svc.InvitePartner(context.Background(), creator, InvitePartnerInput{PiggyBankID: pb.ID, PartnerAddress: addr(2)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.svc.Reconcile(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, f.store.PendingInvites()[0].Resolved)
}
