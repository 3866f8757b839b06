package seeders

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/mocks"
	"github.com/cradoe/puddle/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIsRepeatable(t *testing.T) {
	store := mocks.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := auth.NewJWTResolver("kx3bq7zm2v9dl0wn5c8rt4yh6pa1sjeu", "puddle", "puddle")

	seeder := New(service.New(service.Options{DB: store, Logger: logger}), resolver, logger)

	first, err := seeder.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Accounts, 2)
	require.NotEmpty(t, first.PiggyBankID)

	identity, err := resolver.Resolve(context.Background(), first.Accounts[1].Token)
	require.NoError(t, err)
	assert.Equal(t, "did:demo:bob", identity.Key)

	transactions := store.Transactions(first.PiggyBankID)
	assert.Len(t, transactions, len(demoDeposits))

	second, err := seeder.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.PiggyBankID, second.PiggyBankID)
	assert.Equal(t, first.Accounts[0].UserID, second.Accounts[0].UserID)
	assert.Len(t, store.Transactions(first.PiggyBankID), len(demoDeposits))
}
