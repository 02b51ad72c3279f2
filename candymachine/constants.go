package candymachine

import "github.com/gagliardetto/solana-go"

// Program IDs
var (
	// Candy Machine v2 (mainnet-beta and devnet share the same deployment)
	ProgramID = solana.MustPublicKeyFromBase58("cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ")

	// Civic gateway program, owner of gatekeeper network tokens
	GatewayProgramID = solana.MustPublicKeyFromBase58("gatem74V238djXdzWnJf94Wo1DcnuGkfijbf3AuBhfs")

	TokenMetadataProgramID = solana.TokenMetadataProgramID
	TokenProgramID         = solana.TokenProgramID
	SystemProgramID        = solana.SystemProgramID
	SysVarRentID           = solana.SysVarRentPubkey
	SysVarClockID          = solana.SysVarClockPubkey
	SysVarSlotHashesID     = solana.MustPublicKeyFromBase58("SysvarS1otHashes111111111111111111111111111")
	SysVarInstructionsID   = solana.MustPublicKeyFromBase58("Sysvar1nstructions1111111111111111111111111")
)

// PDA Seeds
var (
	SeedCandyMachine        = []byte("candy_machine")
	SeedCollection          = []byte("collection")
	SeedMetadata            = []byte("metadata")
	SeedEdition             = []byte("edition")
	SeedCollectionAuthority = []byte("collection_authority")
	SeedGateway             = []byte("gateway")
	SeedExpire              = []byte("expire")
)

// Account sizes
const (
	// SPL token mint account
	MintAccountSize = 82

	// discriminator(8) + mint(32) + candy_machine(32)
	CollectionPDASize = 72
)

// Explorer URLs
const (
	ExplorerURLDevnet  = "https://explorer.solana.com/tx/%s?cluster=devnet"
	ExplorerURLTestnet = "https://explorer.solana.com/tx/%s?cluster=testnet"
	ExplorerURLMainnet = "https://explorer.solana.com/tx/%s"
)

// RPC URLs
const (
	RPCURLDevnet    = "https://api.devnet.solana.com"
	RPCURLMainnet   = "https://api.mainnet-beta.solana.com"
	RPCURLLocalhost = "http://localhost:8899"

	WSURLDevnet  = "wss://api.devnet.solana.com"
	WSURLMainnet = "wss://api.mainnet-beta.solana.com"
)
