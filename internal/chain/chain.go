package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

var (
	ErrNotConfigured       = errors.New("chain client is not configured")
	ErrDeploymentFailed    = errors.New("contract deployment failed")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
	ErrPendingConfirmation = errors.New("chain confirmation pending")
	ErrEventNotFound       = errors.New("piggy bank created event not found in receipt")
)

type ReceiptStatus int

const (
	ReceiptPending ReceiptStatus = iota
	ReceiptSuccess
	ReceiptFailed
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptSuccess:
		return "success"
	case ReceiptFailed:
		return "failed"
	default:
		return "pending"
	}
}

// DefaultConfirmTimeout bounds the wait for a deployment receipt.
const DefaultConfirmTimeout = 20 * time.Second

// weiDecimals is the token precision used when handing amounts to contracts.
const weiDecimals = 18

const factoryABI = `[
	{"type":"function","name":"createPiggyBank","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"creator","type":"address"},
		{"name":"partner","type":"address"},
		{"name":"goalAmount","type":"uint256"},
		{"name":"goalDeadline","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"PiggyBankCreated","anonymous":false,
	 "inputs":[
		{"name":"piggyBank","type":"address","indexed":true},
		{"name":"creator","type":"address","indexed":true},
		{"name":"partner","type":"address","indexed":true}]}
]`

// Backend is the part of an RPC client the chain client uses.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

type receiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type DeployRequest struct {
	Creator  string
	Partner  string
	Goal     decimal.Decimal
	Deadline time.Time
}

// Deployment is a factory call. ContractAddress is empty until the
// transaction is mined.
type Deployment struct {
	ContractAddress string
	TransactionHash string
}

type Client struct {
	backend        Backend
	receipts       receiptReader
	miner          bind.DeployBackend
	factory        *bind.BoundContract
	factoryABI     abi.ABI
	chainID        *big.Int
	deployerKey    *ecdsa.PrivateKey
	confirmTimeout time.Duration
}

type Options struct {
	ChainID        int64
	FactoryAddress string
	DeployerKey    string
	ConfirmTimeout time.Duration
}

// Dial connects to rpcURL and binds the piggy bank factory.
func Dial(ctx context.Context, rpcURL string, opts Options) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	return New(eth, opts)
}

func New(backend Backend, opts Options) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(factoryABI))
	if err != nil {
		return nil, err
	}

	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}

	c := &Client{
		backend:        backend,
		receipts:       backend,
		miner:          backend,
		factoryABI:     parsed,
		chainID:        big.NewInt(opts.ChainID),
		confirmTimeout: opts.ConfirmTimeout,
	}

	if common.IsHexAddress(opts.FactoryAddress) {
		c.factory = bind.NewBoundContract(common.HexToAddress(opts.FactoryAddress), parsed, backend, backend, backend)
	}

	if opts.DeployerKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.DeployerKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("deployer key: %w", err)
		}
		c.deployerKey = key
	}

	return c, nil
}

// Close releases the RPC connection when the backend holds one.
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// DeployPiggyBank calls the factory and waits up to the confirm timeout for
// the receipt. On timeout the returned Deployment carries only the
// transaction hash together with ErrPendingConfirmation.
func (c *Client) DeployPiggyBank(ctx context.Context, req DeployRequest) (*Deployment, error) {
	if c.factory == nil || c.deployerKey == nil {
		return nil, ErrNotConfigured
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.deployerKey, c.chainID)
	if err != nil {
		return nil, err
	}
	auth.Context = ctx

	deadline := new(big.Int)
	if !req.Deadline.IsZero() {
		deadline.SetInt64(req.Deadline.Unix())
	}

	tx, err := c.factory.Transact(auth, "createPiggyBank",
		common.HexToAddress(req.Creator),
		common.HexToAddress(req.Partner),
		ToWei(req.Goal),
		deadline,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeploymentFailed, err)
	}

	deployment := &Deployment{TransactionHash: tx.Hash().Hex()}

	receipt, err := c.waitMined(ctx, tx)
	if err != nil {
		return deployment, err
	}

	address, err := c.createdAddress(receipt)
	if err != nil {
		return deployment, err
	}

	deployment.ContractAddress = address
	return deployment, nil
}

// waitMined waits for tx up to the confirm timeout. The transaction is already
// broadcast, so cancelling ctx does not end the wait; running out of time
// reports ErrPendingConfirmation.
func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.miner, tx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrPendingConfirmation
	}

	return receipt, err
}

// DeploymentAddress resolves the contract created by a factory transaction
// that was still unconfirmed when it was first submitted.
func (c *Client) DeploymentAddress(ctx context.Context, txHash string) (string, error) {
	receipt, err := c.receipt(ctx, txHash)
	if err != nil {
		return "", err
	}

	return c.createdAddress(receipt)
}

func (c *Client) ReceiptStatus(ctx context.Context, txHash string) (ReceiptStatus, error) {
	_, err := c.receipt(ctx, txHash)
	switch {
	case err == nil:
		return ReceiptSuccess, nil
	case errors.Is(err, ErrPendingConfirmation):
		return ReceiptPending, nil
	case errors.Is(err, ErrTransactionFailed):
		return ReceiptFailed, nil
	default:
		return ReceiptPending, err
	}
}

// receipt returns a successful receipt, ErrPendingConfirmation when the
// transaction is not mined yet or ErrTransactionFailed when it reverted.
func (c *Client) receipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	receipt, err := c.receipts.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, ErrPendingConfirmation
		}
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, ErrTransactionFailed
	}

	return receipt, nil
}

func (c *Client) createdAddress(receipt *types.Receipt) (string, error) {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", ErrDeploymentFailed
	}

	eventID := c.factoryABI.Events["PiggyBankCreated"].ID

	for _, log := range receipt.Logs {
		if len(log.Topics) < 2 || log.Topics[0] != eventID {
			continue
		}

		address := common.BytesToAddress(log.Topics[1].Bytes())
		return strings.ToLower(address.Hex()), nil
	}

	return "", ErrEventNotFound
}

// ToWei converts a token amount to its 18-decimal integer form.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(weiDecimals).BigInt()
}
