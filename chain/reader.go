package chain

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"candymint/candymachine"
)

// Snapshot - One read of the drop plus the wallet balances the engine needs
type Snapshot struct {
	Config       candymachine.DropConfig
	Native       uint64
	PaymentToken *uint64 // nil when the wallet has no account for the payment mint
	Whitelist    *uint64 // nil when the wallet has no whitelist token account
}

// FetchDrop - Read and normalize the candy machine account
func (c *Client) FetchDrop(ctx context.Context, id solana.PublicKey, commitment rpc.CommitmentType) (*candymachine.DropConfig, error) {
	data, err := c.accountData(ctx, id, commitment)
	if err != nil {
		return nil, wrap("fetchDrop", id.String(), err)
	}
	acct, err := candymachine.DecodeCandyMachine(data)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: "fetchDrop", Account: id.String(), Err: err}
	}

	collection, err := c.fetchCollection(ctx, id, commitment)
	if err != nil {
		return nil, err
	}

	cfg, err := candymachine.NewDropConfig(id, acct, collection)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: "fetchDrop", Account: id.String(), Err: err}
	}
	return cfg, nil
}

// fetchCollection returns nil when the drop has no collection PDA
func (c *Client) fetchCollection(ctx context.Context, id solana.PublicKey, commitment rpc.CommitmentType) (*candymachine.CollectionInfo, error) {
	pda, _, err := candymachine.DeriveCollectionPDA(id)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: "fetchCollection", Account: id.String(), Err: err}
	}
	data, err := c.accountData(ctx, pda, commitment)
	if err != nil {
		wrapped := wrap("fetchCollection", pda.String(), err)
		if IsNotFound(wrapped) {
			return nil, nil
		}
		return nil, wrapped
	}
	acct, err := candymachine.DecodeCollectionPDA(data)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: "fetchCollection", Account: pda.String(), Err: err}
	}
	return &candymachine.CollectionInfo{PDA: pda, Mint: acct.Mint}, nil
}

// TokenBalance - Raw amount held in the owner's associated token account for mint
func (c *Client) TokenBalance(ctx context.Context, owner, mint solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, &Error{Kind: KindDecode, Op: "tokenBalance", Account: owner.String(), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.rpc.GetTokenAccountBalance(ctx, ata, commitment)
	if err != nil {
		return 0, wrap("tokenBalance", ata.String(), err)
	}
	if res == nil || res.Value == nil {
		return 0, &Error{Kind: KindAccountNotFound, Op: "tokenBalance", Account: ata.String(), Err: rpc.ErrNotFound}
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, &Error{Kind: KindDecode, Op: "tokenBalance", Account: ata.String(), Err: err}
	}
	return amount, nil
}

// NativeBalance - Lamports held by owner
func (c *Client) NativeBalance(ctx context.Context, owner solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.rpc.GetBalance(ctx, owner, commitment)
	if err != nil {
		return 0, wrap("nativeBalance", owner.String(), err)
	}
	return res.Value, nil
}

// AccountExists checks if an account exists at the given commitment
func (c *Client) AccountExists(ctx context.Context, key solana.PublicKey, commitment rpc.CommitmentType) (bool, error) {
	_, err := c.accountData(ctx, key, commitment)
	if err != nil {
		wrapped := wrap("accountExists", key.String(), err)
		if IsNotFound(wrapped) {
			return false, nil
		}
		return false, wrapped
	}
	return true, nil
}

// Snapshot reads the drop and the wallet's balances. Missing whitelist or
// payment-token accounts are the expected state for most wallets and come
// back as nil balances, not errors.
func (c *Client) Snapshot(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*Snapshot, error) {
	cfg, err := c.FetchDrop(ctx, dropID, commitment)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Config: *cfg}

	if cfg.Whitelist != nil {
		balance, err := c.optionalTokenBalance(ctx, wallet, cfg.Whitelist.Mint, commitment)
		if err != nil {
			return nil, err
		}
		snap.Whitelist = balance
	}

	if cfg.PaymentToken != nil {
		balance, err := c.optionalTokenBalance(ctx, wallet, *cfg.PaymentToken, commitment)
		if err != nil {
			return nil, err
		}
		snap.PaymentToken = balance
	} else {
		native, err := c.NativeBalance(ctx, wallet, commitment)
		if err != nil {
			return nil, err
		}
		snap.Native = native
	}
	return snap, nil
}

func (c *Client) optionalTokenBalance(ctx context.Context, owner, mint solana.PublicKey, commitment rpc.CommitmentType) (*uint64, error) {
	amount, err := c.TokenBalance(ctx, owner, mint, commitment)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &amount, nil
}

func (c *Client) accountData(ctx context.Context, key solana.PublicKey, commitment rpc.CommitmentType) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.rpc.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: commitment,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("account %s: %w", key, rpc.ErrNotFound)
	}
	return res.Value.Data.GetBinary(), nil
}
