package service

import (
	"context"
	"testing"

	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveUserCreatesOnce(t *testing.T) {
	f := newFixture(t, false)
	identity := &auth.Identity{Key: "did:privy:abc", WalletAddress: "0xAbC0000000000000000000000000000000000001"}

	_, err := f.svc.FindUser(context.Background(), identity)
	assert.ErrorIs(t, err, ErrUserNotFound)

	first, err := f.svc.ResolveUser(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, "0xabc0000000000000000000000000000000000001", first.WalletAddress.String)
	assert.False(t, first.Email.Valid)

	second, err := f.svc.ResolveUser(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := f.svc.FindUser(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestResolveUserClaimsPlaceholder(t *testing.T) {
	f := newFixture(t, false)
	creator := f.user(t, 1)
	pb := f.piggyBank(t, creator, "1")

	result, err := f.svc.InvitePartner(context.Background(), creator, InvitePartnerInput{
		PiggyBankID:    pb.ID,
		PartnerAddress: addr(2),
	})
	require.NoError(t, err)
	placeholder := result.Partner
	require.True(t, placeholder.IsPlaceholder())

	partner, err := f.svc.ResolveUser(context.Background(), &auth.Identity{
		Key:           "did:privy:partner",
		WalletAddress: addr(2),
		Email:         "partner@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, placeholder.ID, partner.ID)
	assert.Equal(t, "did:privy:partner", partner.IdentityKey)
	assert.Equal(t, "partner@example.com", partner.Email.String)

	banks, err := f.svc.ListPiggyBanks(context.Background(), partner)
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, models.MemberRolePartner, banks[0].Role)
}

func TestResolveUserWithoutWallet(t *testing.T) {
	f := newFixture(t, false)

	user, err := f.svc.ResolveUser(context.Background(), &auth.Identity{Key: "did:privy:nowallet"})
	require.NoError(t, err)
	assert.False(t, user.WalletAddress.Valid)
}
