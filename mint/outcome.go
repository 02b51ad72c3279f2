package mint

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

type Kind string

const (
	KindSuccess                Kind = "success"
	KindLikelyFailedChargedFee Kind = "likely_failed_charged_fee"
	KindFailed                 Kind = "failed"
	KindSetupFailed            Kind = "setup_failed"
	// the confirmation wait ran out, the transaction may still land
	KindIndeterminate Kind = "indeterminate"
)

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonUserCancelled     Reason = "user_cancelled"
	ReasonDropped           Reason = "dropped"
	ReasonSoldOut           Reason = "sold_out"
	ReasonNotLive           Reason = "not_live"
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonNotEligible       Reason = "not_eligible"
	ReasonProgramError      Reason = "program_error"
	ReasonTimeout           Reason = "timeout"
	ReasonUnknown           Reason = "unknown"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert - Message surfaced to the user
type Alert struct {
	Message   string        `json:"message"`
	Severity  Severity      `json:"severity"`
	HideAfter time.Duration `json:"hide_after,omitempty"`
}

// User facing messages
const (
	MsgSignSetup         = "Please sign account setup transaction"
	MsgSetupSucceeded    = "Setup transaction succeeded! Please sign minting transaction"
	MsgSignMint          = "Please sign minting transaction"
	MsgMintFailed        = "Mint failed! Please try again!"
	MsgMintSucceeded     = "Congratulations! Mint succeeded!"
	MsgLikelyFailed      = "Mint likely failed! Anti-bot SOL 0.01 fee potentially charged! Check the explorer to confirm the mint failed and if so, make sure you are eligible to mint before trying again."
	MsgTimeout           = "Transaction timeout! Anti-bot SOL 0.01 fee potentially charged! Check the explorer to confirm the mint before trying again."
	MsgSetupTimeout      = "Setup transaction timeout! Check the explorer to confirm the setup before trying again."
	MsgSoldOut           = "SOLD OUT!"
	MsgInsufficientFunds = "Insufficient funds to mint. Please fund your wallet."
	MsgNotLive           = "Minting period hasn't started yet."
	MsgUserCancelled     = "User cancelled signing"
	MsgDropped           = "Solana dropped the transaction, please try again"
	MsgNotWhitelisted    = "Your wallet is not whitelisted."
	MsgSignGatekeeper    = "Please sign one-time Civic Pass issuance"
)

const (
	successHideAfter      = 7 * time.Second
	likelyFailedHideAfter = 8 * time.Second
)

// Outcome - Final state of one mint attempt
type Outcome struct {
	Kind           Kind             `json:"kind"`
	Reason         Reason           `json:"reason,omitempty"`
	Signature      solana.Signature `json:"signature"`
	SetupSignature solana.Signature `json:"setup_signature"`
	Mint           solana.PublicKey `json:"mint"`
	ExplorerURL    string           `json:"explorer_url,omitempty"`
	Alert          Alert            `json:"alert"`
	// commitment of the reconciliation refresh that follows the attempt
	Refresh rpc.CommitmentType `json:"refresh"`
}

func (o Outcome) Succeeded() bool {
	return o.Kind == KindSuccess
}

func newOutcome(kind Kind, reason Reason) Outcome {
	out := Outcome{Kind: kind, Reason: reason, Refresh: rpc.CommitmentConfirmed}
	switch kind {
	case KindSuccess:
		out.Refresh = rpc.CommitmentProcessed
		out.Alert = Alert{Message: MsgMintSucceeded, Severity: SeveritySuccess, HideAfter: successHideAfter}
	case KindLikelyFailedChargedFee:
		out.Alert = Alert{Message: MsgLikelyFailed, Severity: SeverityError, HideAfter: likelyFailedHideAfter}
	case KindIndeterminate:
		out.Alert = Alert{Message: MsgTimeout, Severity: SeverityWarning}
	case KindSetupFailed:
		switch reason {
		case ReasonTimeout:
			out.Alert = Alert{Message: MsgSetupTimeout, Severity: SeverityWarning}
		case ReasonUserCancelled:
			out.Alert = Alert{Message: MsgUserCancelled, Severity: SeverityError}
		default:
			out.Alert = Alert{Message: MsgMintFailed, Severity: SeverityError}
		}
	default:
		out.Alert = Alert{Message: reasonMessage(reason), Severity: SeverityError}
	}
	return out
}

func reasonMessage(reason Reason) string {
	switch reason {
	case ReasonUserCancelled:
		return MsgUserCancelled
	case ReasonDropped:
		return MsgDropped
	case ReasonSoldOut:
		return MsgSoldOut
	case ReasonNotLive:
		return MsgNotLive
	case ReasonInsufficientFunds:
		return MsgInsufficientFunds
	case ReasonNotEligible:
		return MsgNotWhitelisted
	default:
		return MsgMintFailed
	}
}
