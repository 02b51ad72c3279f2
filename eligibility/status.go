package eligibility

import (
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Phase - Drop phase as shown next to the countdown
type Phase string

const (
	PhasePending   Phase = "PENDING"
	PhasePresale   Phase = "PRESALE"
	PhaseLive      Phase = "LIVE"
	PhaseCompleted Phase = "COMPLETED"
)

const lamportsPerSOLExp = 9

// Balances - Wallet holdings consulted by Evaluate.
// A nil token balance means the lookup failed or the account does not exist.
type Balances struct {
	Native       uint64
	PaymentToken *uint64
	Whitelist    *uint64
}

// DropStatus is an immutable snapshot. Build a new one with Evaluate,
// ApplyMinted or Tick instead of editing fields.
type DropStatus struct {
	Active               bool              `json:"active"`
	Presale              bool              `json:"presale"`
	WhitelistOnly        bool              `json:"whitelist_only"`
	WhitelistUser        bool              `json:"whitelist_user"`
	SoldOut              bool              `json:"sold_out"`
	EffectivePrice       uint64            `json:"effective_price"`
	PaymentToken         *solana.PublicKey `json:"payment_token,omitempty"`
	HasSufficientBalance bool              `json:"has_sufficient_balance"`
	ItemsAvailable       uint64            `json:"items_available"`
	ItemsRedeemed        uint64            `json:"items_redeemed"`
	ItemsRemaining       uint64            `json:"items_remaining"`
	EndTimestamp         *int64            `json:"end_timestamp,omitempty"`
	GoLiveTime           *int64            `json:"go_live_time,omitempty"`
	Provisional          bool              `json:"provisional"`
	EvaluatedAt          time.Time         `json:"evaluated_at"`
}

// Ended reports whether a by-date end condition has passed at now.
func (s DropStatus) Ended(now time.Time) bool {
	return s.EndTimestamp != nil && now.Unix() >= *s.EndTimestamp
}

// Phase - COMPLETED wins over PRESALE, PRESALE over LIVE
func (s DropStatus) Phase(now time.Time) Phase {
	switch {
	case s.SoldOut || s.Ended(now):
		return PhaseCompleted
	case s.Presale:
		return PhasePresale
	case s.Active:
		return PhaseLive
	default:
		return PhasePending
	}
}

// CountdownTarget returns the moment the countdown runs to: the end date
// while active, go-live otherwise, and now during a presale without go-live.
// ok is false when there is nothing to count down to.
func (s DropStatus) CountdownTarget(now time.Time) (target time.Time, ok bool) {
	if s.Active && s.EndTimestamp != nil {
		return time.Unix(*s.EndTimestamp, 0), true
	}
	if s.GoLiveTime != nil {
		return time.Unix(*s.GoLiveTime, 0), true
	}
	if s.Presale {
		return now, true
	}
	return time.Time{}, false
}

// CanPress - Whether the mint action is available to the wallet right now
func (s DropStatus) CanPress() bool {
	if s.SoldOut {
		return false
	}
	return s.Active || (s.Presale && s.WhitelistUser && s.HasSufficientBalance)
}

// DisplayPrice - Effective price in SOL, or raw token units for SPL payment
func (s DropStatus) DisplayPrice() string {
	amount := decimal.NewFromBigInt(new(big.Int).SetUint64(s.EffectivePrice), 0)
	if s.PaymentToken != nil {
		return amount.String()
	}
	return amount.Shift(-lamportsPerSOLExp).String() + " SOL"
}
