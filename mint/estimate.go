package mint

import "candymint/candymachine"

// Serialized size estimate of a combined setup + mint transaction
const (
	txBaseSize             = 892
	txCollectionSize       = 182
	txPaymentTokenSize     = 66
	txWhitelistSize        = 34
	txWhitelistBurnSize    = 34
	txGatekeeperSize       = 33
	txGatekeeperExpireSize = 66

	// above this the setup instructions go in their own transaction
	MaxCombinedTxSize = 1230
)

// Features - Optional parts of the drop that add accounts to the mint transaction
type Features struct {
	CollectionRetained bool
	PaymentToken       bool
	Whitelist          bool
	WhitelistBurn      bool
	Gatekeeper         bool
	GatekeeperExpire   bool
}

func FeaturesOf(cfg candymachine.DropConfig) Features {
	f := Features{
		CollectionRetained: cfg.HasCollection() && cfg.RetainAuthority,
		PaymentToken:       cfg.PaymentToken != nil,
	}
	if cfg.Whitelist != nil {
		f.Whitelist = true
		f.WhitelistBurn = cfg.Whitelist.BurnEveryTime
	}
	if cfg.Gatekeeper != nil {
		f.Gatekeeper = true
		f.GatekeeperExpire = cfg.Gatekeeper.ExpireOnUse
	}
	return f
}

// EstimateSize - Bytes the combined transaction is expected to take
func EstimateSize(f Features) int {
	size := txBaseSize
	if f.CollectionRetained {
		size += txCollectionSize
	}
	if f.PaymentToken {
		size += txPaymentTokenSize
	}
	if f.Whitelist {
		size += txWhitelistSize
	}
	if f.WhitelistBurn {
		size += txWhitelistBurnSize
	}
	if f.Gatekeeper {
		size += txGatekeeperSize
	}
	if f.GatekeeperExpire {
		size += txGatekeeperExpireSize
	}
	return size
}

func NeedsSplit(f Features) bool {
	return EstimateSize(f) > MaxCombinedTxSize
}
