package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReceipts map[common.Hash]*types.Receipt

func (f fakeReceipts) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, ok := f[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

type brokenReceipts struct{}

func (brokenReceipts) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, errors.New("connection reset")
}

const (
	minedHash    = "0x1111111111111111111111111111111111111111111111111111111111111111"
	revertedHash = "0x2222222222222222222222222222222222222222222222222222222222222222"
	unknownHash  = "0x3333333333333333333333333333333333333333333333333333333333333333"
	contractAddr = "0xDE709F2102306220921060314715629080E2FB77"
)

func newTestClient(t *testing.T, reader receiptReader) *Client {
	t.Helper()

	parsed, err := abi.JSON(strings.NewReader(factoryABI))
	require.NoError(t, err)

	return &Client{receipts: reader, factoryABI: parsed}
}

func createdLog(c *Client, address string) *types.Log {
	return &types.Log{
		Topics: []common.Hash{
			c.factoryABI.Events["PiggyBankCreated"].ID,
			common.BytesToHash(common.HexToAddress(address).Bytes()),
		},
	}
}

func TestReceiptStatus(t *testing.T) {
	c := newTestClient(t, fakeReceipts{
		common.HexToHash(minedHash):    {Status: types.ReceiptStatusSuccessful},
		common.HexToHash(revertedHash): {Status: types.ReceiptStatusFailed},
	})

	status, err := c.ReceiptStatus(context.Background(), minedHash)
	require.NoError(t, err)
	assert.Equal(t, ReceiptSuccess, status)

	status, err = c.ReceiptStatus(context.Background(), revertedHash)
	require.NoError(t, err)
	assert.Equal(t, ReceiptFailed, status)

	status, err = c.ReceiptStatus(context.Background(), unknownHash)
	require.NoError(t, err)
	assert.Equal(t, ReceiptPending, status)
}

func TestReceiptStatusRPCError(t *testing.T) {
	c := newTestClient(t, brokenReceipts{})

	status, err := c.ReceiptStatus(context.Background(), minedHash)
	require.Error(t, err)
	assert.Equal(t, ReceiptPending, status)
}

func TestDeploymentAddress(t *testing.T) {
	c := newTestClient(t, nil)
	c.receipts = fakeReceipts{
		common.HexToHash(minedHash): {
			Status: types.ReceiptStatusSuccessful,
			Logs: []*types.Log{
				{Topics: []common.Hash{common.HexToHash("0xabc")}},
				createdLog(c, contractAddr),
			},
		},
		common.HexToHash(revertedHash): {Status: types.ReceiptStatusFailed},
	}

	address, err := c.DeploymentAddress(context.Background(), minedHash)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(contractAddr), address)

	_, err = c.DeploymentAddress(context.Background(), revertedHash)
	require.ErrorIs(t, err, ErrTransactionFailed)

	_, err = c.DeploymentAddress(context.Background(), unknownHash)
	require.ErrorIs(t, err, ErrPendingConfirmation)
}

func TestCreatedAddressWithoutEvent(t *testing.T) {
	c := newTestClient(t, nil)

	_, err := c.createdAddress(&types.Receipt{Status: types.ReceiptStatusSuccessful})
	require.ErrorIs(t, err, ErrEventNotFound)
}

func TestDeployPiggyBankNotConfigured(t *testing.T) {
	c := newTestClient(t, nil)

	_, err := c.DeployPiggyBank(context.Background(), DeployRequest{Goal: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrNotConfigured)
}

type fakeMiner struct {
	fakeReceipts
	ctxErrs []error
}

func (m *fakeMiner) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.fakeReceipts.TransactionReceipt(ctx, txHash)
}

func (m *fakeMiner) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func TestWaitMinedOutlivesCallerCancellation(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 7})
	miner := &fakeMiner{fakeReceipts: fakeReceipts{
		tx.Hash(): {Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()},
	}}

	c := newTestClient(t, nil)
	c.miner = miner
	c.confirmTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	receipt, err := c.waitMined(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), receipt.TxHash)
	require.NotEmpty(t, miner.ctxErrs)
	assert.NoError(t, miner.ctxErrs[0])
}

func TestWaitMinedTimeoutIsPending(t *testing.T) {
	tx := types.NewTx(&types.LegacyTx{Nonce: 8})

	c := newTestClient(t, nil)
	c.miner = &fakeMiner{fakeReceipts: fakeReceipts{}}
	c.confirmTimeout = 20 * time.Millisecond

	_, err := c.waitMined(context.Background(), tx)
	require.ErrorIs(t, err, ErrPendingConfirmation)
}

func TestToWei(t *testing.T) {
	want, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, 0, want.Cmp(ToWei(decimal.RequireFromString("1.5"))))

	want, _ = new(big.Int).SetString("10000000000", 10)
	assert.Equal(t, 0, want.Cmp(ToWei(decimal.RequireFromString("0.00000001"))))
}
