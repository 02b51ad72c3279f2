package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"candymint/candymachine"
	"candymint/chain"
	"candymint/eligibility"
	"candymint/mint"
)

const (
	LoopName = "refresh loop"

	DefaultInterval = 20 * time.Second
)

var ErrNoWallet = errors.New("no wallet connected")

// Reader is satisfied by *chain.Client
type Reader interface {
	Snapshot(ctx context.Context, dropID, wallet solana.PublicKey, commitment rpc.CommitmentType) (*chain.Snapshot, error)
}

// Update - One applied snapshot, in sequence order
type Update struct {
	Sequence uint64                  `json:"sequence"`
	Wallet   solana.PublicKey        `json:"wallet"`
	Status   eligibility.DropStatus  `json:"status"`
	Config   candymachine.DropConfig `json:"-"`
}

type Health struct {
	Name         string    `json:"name"`
	LastSyncTime time.Time `json:"last_sync_time"`
	NextSyncTime time.Time `json:"next_sync_time"`
	Sequence     uint64    `json:"sequence"`
	LastError    string    `json:"last_error,omitempty"`
	Healthy      bool      `json:"healthy"`
}

// Loop keeps the latest DropStatus for one wallet. Every pass takes a
// sequence number when it starts and results older than the last applied
// one are dropped, so a slow fetch never replaces a newer snapshot.
type Loop struct {
	wg       *sync.WaitGroup
	stop     chan bool
	stopOnce sync.Once
	trigger  chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	reader   Reader
	dropID   solana.PublicKey
	rpcURL   string
	interval time.Duration
	now      func() time.Time

	seq  atomic.Uint64
	feed event.Feed

	mu      sync.RWMutex
	wallet  solana.PublicKey
	applied uint64
	latest  *Update
	alert   *mint.Alert
	paused  bool

	healthMu sync.RWMutex
	health   Health
}

func NewLoop(wg *sync.WaitGroup, reader Reader, dropID solana.PublicKey, rpcURL string, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		wg:       wg,
		stop:     make(chan bool),
		trigger:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
		reader:   reader,
		dropID:   dropID,
		rpcURL:   rpcURL,
		interval: interval,
		now:      time.Now,
		health:   Health{Name: LoopName},
	}
}

func (x *Loop) Start() {
	log.Info("[REFRESH] Starting service")
	defer x.wg.Done()

	stop := false
	for !stop {
		if x.isPaused() {
			log.Debug("[REFRESH] Paused on configuration error, waiting for a trigger")
		} else {
			log.Debug("[REFRESH] Starting sync")
			if err := x.Refresh(x.ctx, rpc.CommitmentConfirmed); err != nil && !errors.Is(err, ErrNoWallet) {
				log.Error("[REFRESH] Sync failed: ", err)
			}
			log.Debug("[REFRESH] Finished sync, Sleeping for ", x.interval)
		}
		stop = !x.wait()
	}
	log.Info("[REFRESH] Stopped service")
}

func (x *Loop) Stop() {
	log.Debug("[REFRESH] Stopping service")
	x.stopOnce.Do(func() {
		x.cancel()
		close(x.stop)
	})
}

// wait sleeps until the next pass is due. Countdown completions that fall
// inside the interval flip the snapshot in place. Returns false once stopped.
func (x *Loop) wait() bool {
	next := time.NewTimer(x.interval)
	defer next.Stop()

	var countdown <-chan time.Time
	if d, ok := x.untilCountdown(); ok {
		t := time.NewTimer(d)
		defer t.Stop()
		countdown = t.C
	}

	for {
		select {
		case <-x.stop:
			return false
		case <-x.trigger:
			return true
		case <-countdown:
			countdown = nil
			x.tick()
		case <-next.C:
			return true
		}
	}
}

// SetWallet switches the wallet and runs a pass right away
func (x *Loop) SetWallet(wallet solana.PublicKey) {
	x.mu.Lock()
	x.wallet = wallet
	x.paused = false
	x.mu.Unlock()

	log.Info("[REFRESH] Wallet set to ", wallet)
	select {
	case x.trigger <- struct{}{}:
	default:
	}
}

func (x *Loop) Wallet() solana.PublicKey {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.wallet
}

// Refresh runs one read and evaluate pass at the given commitment
func (x *Loop) Refresh(ctx context.Context, commitment rpc.CommitmentType) error {
	seq := x.seq.Add(1)
	wallet := x.Wallet()
	if wallet.IsZero() {
		return ErrNoWallet
	}

	snap, err := x.reader.Snapshot(ctx, x.dropID, wallet, commitment)
	if err != nil {
		x.failed(err)
		return err
	}

	status := eligibility.Evaluate(snap.Config, eligibility.Balances{
		Native:       snap.Native,
		PaymentToken: snap.PaymentToken,
		Whitelist:    snap.Whitelist,
	}, x.now())

	if x.apply(Update{Sequence: seq, Wallet: wallet, Status: status, Config: snap.Config}, true) {
		log.Debugf("[REFRESH] #%d active=%v presale=%v remaining=%d", seq, status.Active, status.Presale, status.ItemsRemaining)
	}
	x.UpdateHealth(nil)
	return nil
}

// Publish applies a provisional status, e.g. right after a successful mint
func (x *Loop) Publish(status eligibility.DropStatus) {
	seq := x.seq.Add(1)
	latest, ok := x.Latest()
	if !ok {
		return
	}
	x.apply(Update{Sequence: seq, Wallet: latest.Wallet, Status: status, Config: latest.Config}, false)
}

// Latest returns the last applied snapshot
func (x *Loop) Latest() (Update, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.latest == nil {
		return Update{}, false
	}
	return *x.latest, true
}

// Alert returns the configuration alert, if the last failure set one
func (x *Loop) Alert() *mint.Alert {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.alert == nil {
		return nil
	}
	a := *x.alert
	return &a
}

// Subscribe delivers every applied Update to ch
func (x *Loop) Subscribe(ch chan<- Update) event.Subscription {
	return x.feed.Subscribe(ch)
}

func (x *Loop) apply(u Update, clearAlert bool) bool {
	x.mu.Lock()
	if u.Sequence <= x.applied {
		x.mu.Unlock()
		log.Debugf("[REFRESH] dropping stale snapshot #%d, #%d already applied", u.Sequence, x.applied)
		return false
	}
	x.applied = u.Sequence
	x.latest = &u
	if clearAlert {
		x.alert = nil
		x.paused = false
	}
	x.mu.Unlock()

	x.feed.Send(u)
	return true
}

func (x *Loop) tick() {
	latest, ok := x.Latest()
	if !ok {
		return
	}
	log.Debug("[REFRESH] Countdown completed")
	x.apply(Update{
		Sequence: x.seq.Add(1),
		Wallet:   latest.Wallet,
		Status:   eligibility.Tick(latest.Status, x.now()),
		Config:   latest.Config,
	}, false)
}

func (x *Loop) untilCountdown() (time.Duration, bool) {
	latest, ok := x.Latest()
	if !ok {
		return 0, false
	}
	now := x.now()
	target, ok := latest.Status.CountdownTarget(now)
	if !ok || !target.After(now) {
		return 0, false
	}
	d := target.Sub(now)
	if d >= x.interval {
		return 0, false
	}
	return d, true
}

func (x *Loop) failed(err error) {
	x.UpdateHealth(err)
	if !chain.IsConfiguration(err) {
		log.Warn("[REFRESH] Transient fetch failure: ", err)
		return
	}

	alert := x.configAlert(err)
	x.mu.Lock()
	x.alert = &alert
	x.paused = true
	x.mu.Unlock()
	log.Error("[REFRESH] ", alert.Message)
}

func (x *Loop) configAlert(err error) mint.Alert {
	var msg string
	if chain.KindOf(err) == chain.KindAccountNotFound {
		msg = fmt.Sprintf("Couldn't fetch candy machine state from candy machine with address: %s, using rpc: %s! You probably typed the CANDY_MACHINE_ID value in wrong, or you are using the wrong RPC!", x.dropID, x.rpcURL)
	} else {
		msg = fmt.Sprintf("Couldn't fetch candy machine state with rpc: %s! This probably means you have an issue with the SOLANA_RPC_URL value, or you are not using a custom RPC!", x.rpcURL)
	}
	return mint.Alert{Message: msg, Severity: mint.SeverityError}
}

func (x *Loop) isPaused() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.paused
}

func (x *Loop) Health() Health {
	x.healthMu.RLock()
	defer x.healthMu.RUnlock()

	return x.health
}

func (x *Loop) UpdateHealth(err error) {
	x.healthMu.Lock()
	defer x.healthMu.Unlock()

	lastSyncTime := x.now()
	x.health = Health{
		Name:         LoopName,
		LastSyncTime: lastSyncTime,
		NextSyncTime: lastSyncTime.Add(x.interval),
		Sequence:     x.seq.Load(),
		Healthy:      err == nil,
	}
	if err != nil {
		x.health.LastError = err.Error()
	}
}
