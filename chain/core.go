package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"candymint/candymachine"
)

// RPCClient is the subset of *rpc.Client the mint client uses.
type RPCClient interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64, commitment rpc.CommitmentType) (uint64, error)
	SendTransactionWithOpts(ctx context.Context, transaction *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetHealth(ctx context.Context) (string, error)
}

type Client struct {
	rpc           RPCClient
	network       string // mainnet-beta, devnet, testnet
	timeout       time.Duration
	skipPreflight bool
}

type Config struct {
	RPCURL        string
	Network       string
	Timeout       time.Duration
	SkipPreflight bool
}

// NewClient - Initialize Solana RPC client
func NewClient(config Config) *Client {
	return NewClientWithRPC(rpc.New(config.RPCURL), config)
}

// NewClientWithRPC - Initialize with a preconfigured RPC client
func NewClientWithRPC(rpcClient RPCClient, config Config) *Client {
	if config.Network == "" {
		config.Network = "mainnet-beta"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		rpc:           rpcClient,
		network:       config.Network,
		timeout:       config.Timeout,
		skipPreflight: config.SkipPreflight,
	}
}

func (c *Client) Network() string {
	return c.network
}

// ExplorerURL - Generate explorer URL
func (c *Client) ExplorerURL(signature string) string {
	switch c.network {
	case "devnet":
		return fmt.Sprintf(candymachine.ExplorerURLDevnet, signature)
	case "testnet":
		return fmt.Sprintf(candymachine.ExplorerURLTestnet, signature)
	default:
		return fmt.Sprintf(candymachine.ExplorerURLMainnet, signature)
	}
}

// HealthCheck - Ping the RPC node
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.rpc.GetHealth(ctx)
	return wrap("getHealth", "", err)
}
