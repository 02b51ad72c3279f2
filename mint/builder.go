package mint

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"candymint/candymachine"
)

// setupInstructions - Create and initialize the mint account, the payer's
// token account for it, and mint the single token
func setupInstructions(payer, mint solana.PublicKey, rent uint64) ([]solana.Instruction, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %w", err)
	}

	return []solana.Instruction{
		system.NewCreateAccountInstruction(
			rent,
			candymachine.MintAccountSize,
			candymachine.TokenProgramID,
			payer,
			mint,
		).Build(),
		token.NewInitializeMintInstruction(
			0,
			payer,
			payer,
			mint,
			candymachine.SysVarRentID,
		).Build(),
		associatedtokenaccount.NewCreateInstruction(
			payer,
			payer,
			mint,
		).Build(),
		token.NewMintToInstruction(
			1,
			mint,
			ata,
			payer,
			nil,
		).Build(),
	}, nil
}

// mintInstructions - mint_nft, plus set_collection_during_mint when the drop
// mints into a collection it still has authority over
func mintInstructions(cfg candymachine.DropConfig, payer, mint solana.PublicKey) ([]solana.Instruction, error) {
	mintIx, err := candymachine.BuildMintNFTInstruction(candymachine.MintNFTParams{
		Config: cfg,
		Payer:  payer,
		Mint:   mint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build mint_nft: %w", err)
	}
	ixs := []solana.Instruction{mintIx}

	if cfg.HasCollection() && cfg.RetainAuthority {
		collectionIx, err := candymachine.BuildSetCollectionDuringMintInstruction(cfg, payer, mint)
		if err != nil {
			return nil, fmt.Errorf("failed to build set_collection_during_mint: %w", err)
		}
		ixs = append(ixs, collectionIx)
	}
	return ixs, nil
}

func newTransaction(ixs []solana.Instruction, blockhash solana.Hash, payer solana.PublicKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}
