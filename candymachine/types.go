package candymachine

import (
	"github.com/gagliardetto/solana-go"
)

// EndSettingType - How the drop ends (candy machine enum, 1 byte)
type EndSettingType uint8

const (
	EndSettingDate   EndSettingType = 0
	EndSettingAmount EndSettingType = 1
)

// WhitelistMintMode - Whether the whitelist token is burned on each mint
type WhitelistMintMode uint8

const (
	WhitelistBurnEveryTime WhitelistMintMode = 0
	WhitelistNeverBurn     WhitelistMintMode = 1
)

// Creator - Verified creator entry of the drop
type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

type EndSettings struct {
	EndSettingType EndSettingType
	Number         uint64
}

type HiddenSettings struct {
	Name string
	URI  string
	Hash [32]byte
}

type WhitelistMintSettings struct {
	Mode          WhitelistMintMode
	Mint          solana.PublicKey
	Presale       bool
	DiscountPrice *uint64
}

type GatekeeperConfig struct {
	GatekeeperNetwork solana.PublicKey
	ExpireOnUse       bool
}

// CandyMachineData - Drop settings as stored on chain
type CandyMachineData struct {
	UUID                  string
	Price                 uint64
	Symbol                string
	SellerFeeBasisPoints  uint16
	MaxSupply             uint64
	IsMutable             bool
	RetainAuthority       bool
	GoLiveDate            *int64
	EndSettings           *EndSettings
	Creators              []Creator
	HiddenSettings        *HiddenSettings
	WhitelistMintSettings *WhitelistMintSettings
	ItemsAvailable        uint64
	Gatekeeper            *GatekeeperConfig
}

// CandyMachineAccount - Main candy machine account structure
type CandyMachineAccount struct {
	Authority     solana.PublicKey
	Wallet        solana.PublicKey
	TokenMint     *solana.PublicKey
	ItemsRedeemed uint64
	Data          CandyMachineData
}

// CollectionPDAAccount - Collection link written by set_collection
type CollectionPDAAccount struct {
	Mint         solana.PublicKey
	CandyMachine solana.PublicKey
}

// EndKind tells whether an end condition is a timestamp or a redemption cap.
type EndKind uint8

const (
	EndByDate EndKind = iota
	EndByAmount
)

// EndCondition ends the drop when the date passes or the cap is reached.
// Value is unix seconds for EndByDate and an item count for EndByAmount.
type EndCondition struct {
	Kind  EndKind
	Value uint64
}

// WhitelistSettings - Token-gated allow-list of the drop
type WhitelistSettings struct {
	Mint          solana.PublicKey
	Presale       bool
	DiscountPrice *uint64 // nil = no discount, whitelist-only restriction applies
	BurnEveryTime bool
}

// GatekeeperSettings - Identity verification requirement
type GatekeeperSettings struct {
	Network     solana.PublicKey
	ExpireOnUse bool
}

// CollectionInfo - Present when the drop mints into a sized collection
type CollectionInfo struct {
	PDA  solana.PublicKey
	Mint solana.PublicKey
}

// DropConfig is the normalized, read-only view of one candy machine read.
type DropConfig struct {
	ID                   solana.PublicKey
	Authority            solana.PublicKey
	Treasury             solana.PublicKey
	BasePrice            uint64
	GoLiveTime           *int64
	Whitelist            *WhitelistSettings
	PaymentToken         *solana.PublicKey
	EndCondition         *EndCondition
	Gatekeeper           *GatekeeperSettings
	ItemsAvailable       uint64
	ItemsRedeemed        uint64
	RetainAuthority      bool
	SoldOut              bool
	Collection           *CollectionInfo
	Symbol               string
	SellerFeeBasisPoints uint16
}

// HasCollection reports whether a collection PDA was found for the drop.
func (c DropConfig) HasCollection() bool {
	return c.Collection != nil
}
