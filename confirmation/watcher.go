package confirmation

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"candymint/candymachine"
)

// Status - Outcome of waiting on a signature
type Status int

const (
	// StatusIndeterminate means the wait ended without a definitive status.
	// The transaction may still land.
	StatusIndeterminate Status = iota
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "indeterminate"
	}
}

// Result - What the watcher observed for one signature
type Result struct {
	Signature solana.Signature
	Status    Status
	Slot      uint64
	// on-chain error value as returned by the node, set when Status is StatusFailed
	Err interface{}
	// program error code extracted from Err, when there is one
	Code    candymachine.ErrorCode
	HasCode bool
}

func (r Result) Error() string {
	if r.Status != StatusFailed {
		return ""
	}
	if r.HasCode {
		return r.Code.String()
	}
	return fmt.Sprintf("transaction failed: %v", r.Err)
}

// Watcher waits for a submitted signature until finality, an on-chain error
// or the timeout, whichever comes first.
type Watcher interface {
	Await(ctx context.Context, sig solana.Signature, timeout time.Duration) Result
}

func failed(sig solana.Signature, slot uint64, txErr interface{}) Result {
	res := Result{Signature: sig, Status: StatusFailed, Slot: slot, Err: txErr}
	res.Code, res.HasCode = candymachine.ErrorCodeFromTransactionError(txErr)
	return res
}
