package eligibility

import (
	"time"

	"candymint/candymachine"
)

// Evaluate reconciles one chain read, the wallet balances and the wall clock
// into a DropStatus. It does no I/O and the result depends only on its inputs.
func Evaluate(cfg candymachine.DropConfig, bal Balances, now time.Time) DropStatus {
	nowUnix := now.Unix()

	s := DropStatus{
		EffectivePrice: cfg.BasePrice,
		ItemsAvailable: cfg.ItemsAvailable,
		ItemsRedeemed:  cfg.ItemsRedeemed,
		SoldOut:        cfg.SoldOut,
		EvaluatedAt:    now,
	}
	if cfg.GoLiveTime != nil {
		v := *cfg.GoLiveTime
		s.GoLiveTime = &v
	}
	if cfg.PaymentToken != nil {
		v := *cfg.PaymentToken
		s.PaymentToken = &v
	}

	// without a go-live date the drop never opens by time alone
	active := cfg.GoLiveTime != nil && nowUnix >= *cfg.GoLiveTime

	if w := cfg.Whitelist; w != nil {
		if w.Presale && (cfg.GoLiveTime == nil || nowUnix < *cfg.GoLiveTime) {
			s.Presale = true
		}
		s.WhitelistUser = bal.Whitelist != nil && *bal.Whitelist > 0

		// a zero discount is still a discount
		if w.DiscountPrice != nil {
			if s.WhitelistUser {
				s.EffectivePrice = *w.DiscountPrice
			}
		} else if !w.Presale {
			s.WhitelistOnly = true
		}
		if s.WhitelistOnly {
			active = s.WhitelistUser && (s.Presale || active)
		}
	}

	if cfg.PaymentToken != nil {
		s.HasSufficientBalance = bal.PaymentToken != nil && *bal.PaymentToken >= s.EffectivePrice
	} else {
		s.HasSufficientBalance = bal.Native >= s.EffectivePrice
	}
	active = active && s.HasSufficientBalance

	s.ItemsRemaining = remaining(cfg.ItemsAvailable, cfg.ItemsRedeemed)
	if e := cfg.EndCondition; e != nil {
		switch e.Kind {
		case candymachine.EndByDate:
			end := int64(e.Value)
			s.EndTimestamp = &end
			if nowUnix >= end {
				active = false
			}
		case candymachine.EndByAmount:
			limit := e.Value
			if cfg.ItemsAvailable < limit {
				limit = cfg.ItemsAvailable
			}
			s.ItemsRemaining = remaining(limit, cfg.ItemsRedeemed)
			if s.ItemsRemaining == 0 {
				s.SoldOut = true
				active = false
			}
		}
	}

	if s.SoldOut {
		active = false
	}
	s.Active = active
	return s
}

// ApplyMinted returns the optimistic snapshot after an observed mint. The
// result is provisional and is replaced by the next Evaluate.
func ApplyMinted(s DropStatus) DropStatus {
	next := s
	if next.ItemsRemaining > 0 {
		next.ItemsRemaining--
		next.ItemsRedeemed++
	}
	next.Active = next.ItemsRemaining > 0
	next.SoldOut = next.ItemsRemaining == 0
	next.Provisional = true
	return next
}

// Tick flips the mint state when the countdown completes between two
// refreshes: the presale ends at go-live and the drop closes at its end date.
func Tick(s DropStatus, now time.Time) DropStatus {
	next := s
	active := !s.Active || s.Presale
	if active {
		if s.WhitelistOnly && !s.WhitelistUser {
			active = false
		}
		if s.Ended(now) {
			active = false
		}
	}
	if s.SoldOut || !s.HasSufficientBalance {
		active = false
	}
	if s.Presale && s.GoLiveTime != nil && *s.GoLiveTime <= now.Unix() {
		next.Presale = false
	}
	next.Active = active
	next.Provisional = true
	next.EvaluatedAt = now
	return next
}

func remaining(limit, redeemed uint64) uint64 {
	if redeemed >= limit {
		return 0
	}
	return limit - redeemed
}
