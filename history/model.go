package history

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"candymint/mint"
)

// MintAttempt - One resolved mint attempt
type MintAttempt struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SessionID      string    `gorm:"index;size:36" json:"session_id"`
	Wallet         string    `gorm:"index;size:44" json:"wallet"`
	Drop           string    `gorm:"index;size:44" json:"drop"`
	Mint           string    `gorm:"size:44" json:"mint"`
	Kind           string    `gorm:"index;size:32" json:"kind"`
	Reason         string    `gorm:"size:32" json:"reason,omitempty"`
	Signature      string    `gorm:"index;size:88" json:"signature,omitempty"`
	SetupSignature string    `gorm:"size:88" json:"setup_signature,omitempty"`
	Price          uint64    `json:"price"`
	ItemsRemaining uint64    `json:"items_remaining"`
	Split          bool      `json:"split"`
	AttemptedAt    time.Time `gorm:"index" json:"attempted_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (MintAttempt) TableName() string {
	return "mint_attempts"
}

func fromAttempt(a mint.Attempt) MintAttempt {
	row := MintAttempt{
		SessionID:      a.SessionID.String(),
		Wallet:         a.Wallet.String(),
		Drop:           a.Drop.String(),
		Kind:           string(a.Kind),
		Reason:         string(a.Reason),
		Price:          a.Price,
		ItemsRemaining: a.ItemsRemaining,
		Split:          a.Split,
		AttemptedAt:    a.At,
	}
	if !a.Mint.IsZero() {
		row.Mint = a.Mint.String()
	}
	if a.Signature != (solana.Signature{}) {
		row.Signature = a.Signature.String()
	}
	if a.SetupSignature != (solana.Signature{}) {
		row.SetupSignature = a.SetupSignature.String()
	}
	return row
}
