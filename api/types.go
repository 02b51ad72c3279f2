package api

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"candymint/eligibility"
	"candymint/mint"
	"candymint/refresh"
)

// StatusResponse - GET /api/v1/drop/status
type StatusResponse struct {
	Wallet    solana.PublicKey       `json:"wallet"`
	Allowed   bool                   `json:"allowed"`
	Sequence  uint64                 `json:"sequence"`
	Phase     eligibility.Phase      `json:"phase"`
	Price     string                 `json:"price"`
	CanMint   bool                   `json:"can_mint"`
	Countdown *time.Time             `json:"countdown,omitempty"`
	Status    eligibility.DropStatus `json:"status"`
	Alert     *mint.Alert            `json:"alert,omitempty"`
}

// MintResponse - POST /api/v1/drop/mint
type MintResponse struct {
	SessionID string       `json:"session_id"`
	Outcome   mint.Outcome `json:"outcome"`
}

type HealthResponse struct {
	Healthy bool           `json:"healthy"`
	Network string         `json:"network"`
	RPC     string         `json:"rpc"`
	Refresh refresh.Health `json:"refresh"`
}

// ErrorResponse - Standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
