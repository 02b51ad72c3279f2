package mint

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// SetupRecord - Confirmed setup transaction kept for the retry of the mint
type SetupRecord struct {
	Signature solana.Signature
	// ephemeral mint account created by the setup transaction
	Mint        solana.PrivateKey
	Transaction *solana.Transaction
	ConfirmedAt time.Time
}

// PendingSetup - Setup transaction sent without a definitive status. The
// mint account may still be created, so the key is kept for the retry.
type PendingSetup struct {
	Signature solana.Signature
	Mint      solana.PrivateKey
}

// Session - State of one user's mint attempt. Not shared between wallets.
type Session struct {
	ID      uuid.UUID
	Wallet  solana.PublicKey
	Setup   *SetupRecord
	Pending *PendingSetup
	// last mint signature that may still land, nil once it settled as failed
	MintSignature *solana.Signature
	StartedAt     time.Time
}

func NewSession(wallet solana.PublicKey) *Session {
	return &Session{ID: uuid.New(), Wallet: wallet, StartedAt: time.Now()}
}

// Clear drops the attempt state after success or abandonment
func (s *Session) Clear() {
	s.Setup = nil
	s.Pending = nil
	s.MintSignature = nil
}
