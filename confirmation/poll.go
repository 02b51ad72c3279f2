package confirmation

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

const DefaultPollInterval = 2 * time.Second

// StatusClient is satisfied by *rpc.Client
type StatusClient interface {
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// PollWatcher - Poll getSignatureStatuses until the signature settles
type PollWatcher struct {
	client     StatusClient
	interval   time.Duration
	commitment rpc.CommitmentType
}

func NewPollWatcher(client StatusClient, interval time.Duration, commitment rpc.CommitmentType) *PollWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &PollWatcher{client: client, interval: interval, commitment: commitment}
}

func (w *PollWatcher) Await(ctx context.Context, sig solana.Signature, timeout time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if res, done := w.pollOnce(ctx, sig); done {
			return res
		}
		select {
		case <-ctx.Done():
			log.Debugf("[CONFIRM] no definitive status for %s after %s", sig, timeout)
			return Result{Signature: sig, Status: StatusIndeterminate}
		case <-ticker.C:
		}
	}
}

// pollOnce returns done=true only for a definitive status
func (w *PollWatcher) pollOnce(ctx context.Context, sig solana.Signature) (Result, bool) {
	out, err := w.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		log.Debugf("[CONFIRM] status lookup for %s failed: %v", sig, err)
		return Result{}, false
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return Result{}, false
	}

	status := out.Value[0]
	if status.Err != nil {
		return failed(sig, status.Slot, status.Err), true
	}
	if reached(status.ConfirmationStatus, w.commitment) {
		return Result{Signature: sig, Status: StatusConfirmed, Slot: status.Slot}, true
	}
	return Result{}, false
}

func reached(status rpc.ConfirmationStatusType, target rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return target != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return target == rpc.CommitmentProcessed
	default:
		return false
	}
}
