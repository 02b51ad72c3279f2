package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// LatestBlockhash - Get recent blockhash for a new transaction
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, wrap("getLatestBlockhash", "", err)
	}
	return recent.Value.Blockhash, nil
}

// MinimumRent - Lamports needed for a rent exempt account of size bytes
func (c *Client) MinimumRent(ctx context.Context, size uint64) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, size, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, wrap("getMinimumBalanceForRentExemption", "", err)
	}
	return lamports, nil
}

// Send - Submit a fully signed transaction without waiting for confirmation
func (c *Client) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       c.skipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, wrap("sendTransaction", "", err)
	}
	return sig, nil
}
