package refresh

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candymint/candymachine"
	"candymint/chain"
	"candymint/eligibility"
)

func init() {
	log.SetOutput(io.Discard)
}

type readerFunc func(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error)

func (f readerFunc) Snapshot(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error) {
	return f(ctx, dropID, wallet, commitment)
}

var (
	testDrop   = solana.NewWallet().PublicKey()
	testWallet = solana.NewWallet().PublicKey()
)

func snapshot(redeemed uint64) *chain.Snapshot {
	goLive := time.Now().Add(-time.Hour).Unix()
	return &chain.Snapshot{
		Config: candymachine.DropConfig{
			ID:             testDrop,
			BasePrice:      1_000_000_000,
			GoLiveTime:     &goLive,
			ItemsAvailable: 10,
			ItemsRedeemed:  redeemed,
			SoldOut:        redeemed >= 10,
		},
		Native: 5_000_000_000,
	}
}

func staticReader(snap *chain.Snapshot, err error) Reader {
	return readerFunc(func(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error) {
		return snap, err
	})
}

func TestRefresh(t *testing.T) {
	t.Run("Applies and publishes", func(t *testing.T) {
		loop := NewLoop(&sync.WaitGroup{}, staticReader(snapshot(3), nil), testDrop, "https://rpc.test", time.Minute)
		loop.SetWallet(testWallet)

		ch := make(chan Update, 1)
		sub := loop.Subscribe(ch)
		defer sub.Unsubscribe()

		require.NoError(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))

		latest, ok := loop.Latest()
		require.True(t, ok)
		assert.True(t, latest.Status.Active)
		assert.Equal(t, uint64(7), latest.Status.ItemsRemaining)
		assert.Equal(t, testWallet, latest.Wallet)

		got := <-ch
		assert.Equal(t, latest.Sequence, got.Sequence)
		assert.True(t, loop.Health().Healthy)
	})

	t.Run("Commitment is passed through", func(t *testing.T) {
		var seen rpc.CommitmentType
		reader := readerFunc(func(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error) {
			seen = commitment
			return snapshot(3), nil
		})
		loop := NewLoop(&sync.WaitGroup{}, reader, testDrop, "", time.Minute)
		loop.SetWallet(testWallet)

		require.NoError(t, loop.Refresh(context.Background(), rpc.CommitmentProcessed))
		assert.Equal(t, rpc.CommitmentProcessed, seen)
	})

	t.Run("No wallet", func(t *testing.T) {
		loop := NewLoop(&sync.WaitGroup{}, staticReader(snapshot(3), nil), testDrop, "", time.Minute)
		assert.ErrorIs(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed), ErrNoWallet)
		_, ok := loop.Latest()
		assert.False(t, ok)
	})
}

func TestRefreshDropsStaleResults(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex

	reader := readerFunc(func(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error) {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()
		if call == 1 {
			close(started)
			<-release
			return snapshot(1), nil
		}
		return snapshot(5), nil
	})
	loop := NewLoop(&sync.WaitGroup{}, reader, testDrop, "", time.Minute)
	loop.SetWallet(testWallet)

	done := make(chan error)
	go func() {
		done <- loop.Refresh(context.Background(), rpc.CommitmentConfirmed)
	}()
	<-started

	require.NoError(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))
	close(release)
	require.NoError(t, <-done)

	latest, ok := loop.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(5), latest.Status.ItemsRedeemed)
	assert.Equal(t, uint64(2), latest.Sequence)
}

func TestRefreshConfigurationErrors(t *testing.T) {
	t.Run("Missing drop account", func(t *testing.T) {
		err := &chain.Error{Kind: chain.KindAccountNotFound, Op: "fetchDrop", Err: rpc.ErrNotFound}
		loop := NewLoop(&sync.WaitGroup{}, staticReader(nil, err), testDrop, "https://rpc.test", time.Minute)
		loop.SetWallet(testWallet)

		assert.Error(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))

		alert := loop.Alert()
		require.NotNil(t, alert)
		assert.Contains(t, alert.Message, testDrop.String())
		assert.Contains(t, alert.Message, "https://rpc.test")
		assert.True(t, loop.isPaused())
		assert.False(t, loop.Health().Healthy)
	})

	t.Run("Unreachable endpoint", func(t *testing.T) {
		err := &chain.Error{Kind: chain.KindEndpointUnreachable, Op: "fetchDrop", Err: &url.Error{Op: "Post", URL: "https://rpc.test", Err: errors.New("refused")}}
		loop := NewLoop(&sync.WaitGroup{}, staticReader(nil, err), testDrop, "https://rpc.test", time.Minute)
		loop.SetWallet(testWallet)

		assert.Error(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))
		alert := loop.Alert()
		require.NotNil(t, alert)
		assert.Contains(t, alert.Message, "Couldn't fetch candy machine state with rpc: https://rpc.test")
	})

	t.Run("Transient error leaves no alert", func(t *testing.T) {
		loop := NewLoop(&sync.WaitGroup{}, staticReader(nil, context.DeadlineExceeded), testDrop, "", time.Minute)
		loop.SetWallet(testWallet)

		assert.Error(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))
		assert.Nil(t, loop.Alert())
		assert.False(t, loop.isPaused())
	})

	t.Run("Successful refresh clears the alert", func(t *testing.T) {
		var fail = true
		reader := readerFunc(func(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error) {
			if fail {
				return nil, &chain.Error{Kind: chain.KindAccountNotFound, Err: rpc.ErrNotFound}
			}
			return snapshot(3), nil
		})
		loop := NewLoop(&sync.WaitGroup{}, reader, testDrop, "", time.Minute)
		loop.SetWallet(testWallet)

		assert.Error(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))
		require.NotNil(t, loop.Alert())

		fail = false
		require.NoError(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))
		assert.Nil(t, loop.Alert())
	})
}

func TestPublish(t *testing.T) {
	loop := NewLoop(&sync.WaitGroup{}, staticReader(snapshot(9), nil), testDrop, "", time.Minute)
	loop.SetWallet(testWallet)

	// nothing to base a provisional snapshot on yet
	loop.Publish(eligibility.DropStatus{ItemsRemaining: 42})
	_, ok := loop.Latest()
	assert.False(t, ok)

	require.NoError(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))
	latest, _ := loop.Latest()
	loop.Publish(eligibility.ApplyMinted(latest.Status))

	provisional, _ := loop.Latest()
	assert.True(t, provisional.Status.Provisional)
	assert.True(t, provisional.Status.SoldOut)
	assert.Equal(t, latest.Config.ID, provisional.Config.ID)

	require.NoError(t, loop.Refresh(context.Background(), rpc.CommitmentProcessed))
	final, _ := loop.Latest()
	assert.False(t, final.Status.Provisional)
}

func TestStartStop(t *testing.T) {
	refreshed := make(chan struct{}, 10)
	reader := readerFunc(func(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error) {
		refreshed <- struct{}{}
		return snapshot(3), nil
	})

	wg := &sync.WaitGroup{}
	wg.Add(1)
	loop := NewLoop(wg, reader, testDrop, "", time.Hour)
	go loop.Start()

	loop.SetWallet(testWallet)
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("wallet change did not trigger a refresh")
	}

	loop.Stop()
	loop.Stop()

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestTickOnCountdown(t *testing.T) {
	goLive := time.Now().Unix() + 2
	reader := readerFunc(func(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error) {
		return &chain.Snapshot{
			Config: candymachine.DropConfig{
				ID:             testDrop,
				BasePrice:      1,
				GoLiveTime:     &goLive,
				ItemsAvailable: 10,
			},
			Native: 10,
		}, nil
	})
	loop := NewLoop(&sync.WaitGroup{}, reader, testDrop, "", time.Hour)
	loop.SetWallet(testWallet)
	require.NoError(t, loop.Refresh(context.Background(), rpc.CommitmentConfirmed))

	before, _ := loop.Latest()
	require.False(t, before.Status.Active)

	_, ok := loop.untilCountdown()
	require.True(t, ok)

	// wait returns on the trigger after the countdown has flipped the snapshot
	go func() {
		time.Sleep(2500 * time.Millisecond)
		loop.trigger <- struct{}{}
	}()
	assert.True(t, loop.wait())

	after, _ := loop.Latest()
	assert.True(t, after.Status.Active)
	assert.True(t, after.Status.Provisional)
}
