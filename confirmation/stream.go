package confirmation

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	log "github.com/sirupsen/logrus"
)

// how long the fallback status poll may take once the stream gave up
const finalPollTimeout = 5 * time.Second

// SignatureStream - One signature subscription
type SignatureStream interface {
	Recv(ctx context.Context) (*ws.SignatureResult, error)
	Unsubscribe()
}

type Subscriber interface {
	Subscribe(sig solana.Signature, commitment rpc.CommitmentType) (SignatureStream, error)
}

type wsSubscriber struct {
	client *ws.Client
}

// NewWSSubscriber - Subscribe to signature notifications over a websocket client
func NewWSSubscriber(client *ws.Client) Subscriber {
	return &wsSubscriber{client: client}
}

func (s *wsSubscriber) Subscribe(sig solana.Signature, commitment rpc.CommitmentType) (SignatureStream, error) {
	sub, err := s.client.SignatureSubscribe(sig, commitment)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// StreamWatcher - Wait on a websocket signature subscription. A stream that
// ends before the timeout hands over to the poll watcher for the time left,
// a stream that runs out the timeout gets one last status poll.
type StreamWatcher struct {
	subscriber Subscriber
	fallback   *PollWatcher
	commitment rpc.CommitmentType
}

func NewStreamWatcher(subscriber Subscriber, fallback *PollWatcher) *StreamWatcher {
	return &StreamWatcher{
		subscriber: subscriber,
		fallback:   fallback,
		commitment: fallback.commitment,
	}
}

func (w *StreamWatcher) Await(ctx context.Context, sig solana.Signature, timeout time.Duration) Result {
	sub, err := w.subscriber.Subscribe(sig, w.commitment)
	if err != nil {
		log.Warnf("[CONFIRM] signature subscribe failed, polling instead: %v", err)
		return w.fallback.Await(ctx, sig, timeout)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if res, ok := w.stream(waitCtx, sig, sub); ok {
		return res
	}

	// stream ended early, keep polling for the rest of the timeout
	if waitCtx.Err() == nil {
		if deadline, ok := waitCtx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 {
				log.Debugf("[CONFIRM] polling %s for the remaining %s", sig, remaining)
				return w.fallback.Await(ctx, sig, remaining)
			}
		}
	}

	pollCtx, pollCancel := context.WithTimeout(context.WithoutCancel(ctx), finalPollTimeout)
	defer pollCancel()
	if res, done := w.fallback.pollOnce(pollCtx, sig); done {
		return res
	}
	log.Debugf("[CONFIRM] no definitive status for %s after %s", sig, timeout)
	return Result{Signature: sig, Status: StatusIndeterminate}
}

func (w *StreamWatcher) stream(ctx context.Context, sig solana.Signature, sub SignatureStream) (Result, bool) {
	defer sub.Unsubscribe()

	got, err := sub.Recv(ctx)
	if err != nil {
		log.Debugf("[CONFIRM] signature stream for %s ended: %v", sig, err)
		return Result{}, false
	}
	if got == nil {
		return Result{}, false
	}
	if got.Value.Err != nil {
		return failed(sig, got.Context.Slot, got.Value.Err), true
	}
	return Result{Signature: sig, Status: StatusConfirmed, Slot: got.Context.Slot}, true
}
