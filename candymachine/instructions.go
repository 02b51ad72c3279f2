package candymachine

import (
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// getAnchorDiscriminator - Generate Anchor instruction discriminator
// Anchor uses: sha256("global:<method_name>")[:8]
func getAnchorDiscriminator(methodName string) []byte {
	hash := sha256.Sum256([]byte("global:" + methodName))
	return hash[:8]
}

// getAccountDiscriminator - sha256("account:<AccountName>")[:8]
func getAccountDiscriminator(name string) [8]byte {
	hash := sha256.Sum256([]byte("account:" + name))
	var disc [8]byte
	copy(disc[:], hash[:8])
	return disc
}

// Anchor instruction discriminators
var (
	DiscriminatorMintNFT                 = getAnchorDiscriminator("mint_nft")
	DiscriminatorSetCollectionDuringMint = getAnchorDiscriminator("set_collection_during_mint")
)

// DeriveCreatorPDA derives the candy machine creator PDA (signs as verified creator)
func DeriveCreatorPDA(candyMachine solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedCandyMachine,
			candyMachine.Bytes(),
		},
		ProgramID,
	)
}

// DeriveCollectionPDA derives the collection PDA of a candy machine
func DeriveCollectionPDA(candyMachine solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			SeedCollection,
			candyMachine.Bytes(),
		},
		ProgramID,
	)
}

// DeriveMetadataPDA derives the token metadata account of a mint
func DeriveMetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			SeedMetadata,
			TokenMetadataProgramID.Bytes(),
			mint.Bytes(),
		},
		TokenMetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata PDA: %w", err)
	}
	return pda, nil
}

// DeriveMasterEditionPDA derives the master edition account of a mint
func DeriveMasterEditionPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			SeedMetadata,
			TokenMetadataProgramID.Bytes(),
			mint.Bytes(),
			SeedEdition,
		},
		TokenMetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive master edition PDA: %w", err)
	}
	return pda, nil
}

// DeriveCollectionAuthorityRecordPDA derives the delegate record granting the collection PDA authority
func DeriveCollectionAuthorityRecordPDA(collectionMint, collectionPDA solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			SeedMetadata,
			TokenMetadataProgramID.Bytes(),
			collectionMint.Bytes(),
			SeedCollectionAuthority,
			collectionPDA.Bytes(),
		},
		TokenMetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive collection authority record: %w", err)
	}
	return pda, nil
}

// DeriveGatewayTokenPDA derives the wallet's gateway token for a gatekeeper network
func DeriveGatewayTokenPDA(owner, network solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			SeedGateway,
			make([]byte, 8),
			network.Bytes(),
		},
		GatewayProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive gateway token: %w", err)
	}
	return pda, nil
}

// DeriveNetworkExpirePDA derives the expire-feature account of a gatekeeper network
func DeriveNetworkExpirePDA(network solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			network.Bytes(),
			SeedExpire,
		},
		GatewayProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive network expire PDA: %w", err)
	}
	return pda, nil
}

// MintNFTParams - Accounts needed by mint_nft
type MintNFTParams struct {
	Config DropConfig
	Payer  solana.PublicKey
	Mint   solana.PublicKey
}

// BuildMintNFTInstruction builds the mint_nft instruction, remaining accounts included
func BuildMintNFTInstruction(params MintNFTParams) (solana.Instruction, error) {
	cfg := params.Config
	payer := params.Payer

	creator, creatorBump, err := DeriveCreatorPDA(cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive creator PDA: %w", err)
	}
	metadata, err := DeriveMetadataPDA(params.Mint)
	if err != nil {
		return nil, err
	}
	masterEdition, err := DeriveMasterEditionPDA(params.Mint)
	if err != nil {
		return nil, err
	}

	// discriminator (8 bytes) + creator_bump (1 byte)
	data := make([]byte, 0, 9)
	data = append(data, DiscriminatorMintNFT...)
	data = append(data, creatorBump)

	// Account order MUST match the program's MintNFT struct
	accounts := solana.AccountMetaSlice{
		solana.Meta(cfg.ID).WRITE(),
		solana.Meta(creator),
		solana.Meta(payer).SIGNER(),
		solana.Meta(cfg.Treasury).WRITE(),
		solana.Meta(metadata).WRITE(),
		solana.Meta(params.Mint).WRITE(),
		solana.Meta(payer).SIGNER(),
		solana.Meta(payer).SIGNER(),
		solana.Meta(masterEdition).WRITE(),
		solana.Meta(TokenMetadataProgramID),
		solana.Meta(TokenProgramID),
		solana.Meta(SystemProgramID),
		solana.Meta(SysVarRentID),
		solana.Meta(SysVarClockID),
		solana.Meta(SysVarSlotHashesID),
		solana.Meta(SysVarInstructionsID),
	}

	// Remaining accounts: gatekeeper, whitelist, payment token (in that order)
	if g := cfg.Gatekeeper; g != nil {
		gatewayToken, err := DeriveGatewayTokenPDA(payer, g.Network)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, solana.Meta(gatewayToken).WRITE())
		if g.ExpireOnUse {
			expire, err := DeriveNetworkExpirePDA(g.Network)
			if err != nil {
				return nil, err
			}
			accounts = append(accounts,
				solana.Meta(GatewayProgramID),
				solana.Meta(expire),
			)
		}
	}
	if w := cfg.Whitelist; w != nil {
		wlToken, _, err := solana.FindAssociatedTokenAddress(payer, w.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive whitelist token account: %w", err)
		}
		accounts = append(accounts, solana.Meta(wlToken).WRITE())
		if w.BurnEveryTime {
			accounts = append(accounts,
				solana.Meta(w.Mint).WRITE(),
				solana.Meta(payer).SIGNER(),
			)
		}
	}
	if cfg.PaymentToken != nil {
		payerToken, _, err := solana.FindAssociatedTokenAddress(payer, *cfg.PaymentToken)
		if err != nil {
			return nil, fmt.Errorf("failed to derive payment token account: %w", err)
		}
		accounts = append(accounts,
			solana.Meta(payerToken).WRITE(),
			solana.Meta(payer).SIGNER(),
		)
	}

	return solana.NewInstruction(ProgramID, accounts, data), nil
}

// BuildSetCollectionDuringMintInstruction builds set_collection_during_mint
func BuildSetCollectionDuringMintInstruction(cfg DropConfig, payer, mint solana.PublicKey) (solana.Instruction, error) {
	if cfg.Collection == nil {
		return nil, fmt.Errorf("drop %s has no collection", cfg.ID)
	}
	metadata, err := DeriveMetadataPDA(mint)
	if err != nil {
		return nil, err
	}
	collectionMetadata, err := DeriveMetadataPDA(cfg.Collection.Mint)
	if err != nil {
		return nil, err
	}
	collectionMasterEdition, err := DeriveMasterEditionPDA(cfg.Collection.Mint)
	if err != nil {
		return nil, err
	}
	authorityRecord, err := DeriveCollectionAuthorityRecordPDA(cfg.Collection.Mint, cfg.Collection.PDA)
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(cfg.ID),
		solana.Meta(metadata),
		solana.Meta(payer).SIGNER(),
		solana.Meta(cfg.Collection.PDA).WRITE(),
		solana.Meta(TokenMetadataProgramID),
		solana.Meta(SysVarInstructionsID),
		solana.Meta(cfg.Collection.Mint),
		solana.Meta(collectionMetadata),
		solana.Meta(collectionMasterEdition),
		solana.Meta(cfg.Authority),
		solana.Meta(authorityRecord),
	}

	return solana.NewInstruction(ProgramID, accounts, DiscriminatorSetCollectionDuringMint), nil
}
