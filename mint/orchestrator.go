package mint

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"candymint/candymachine"
	"candymint/confirmation"
	"candymint/eligibility"
	"candymint/wallet"
)

const (
	DefaultTxTimeout = 30 * time.Second

	// bound on the post attempt refresh and history write
	finishTimeout = 15 * time.Second
)

// Chain - Network access used by the orchestrator, satisfied by *chain.Client
type Chain interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	MinimumRent(ctx context.Context, size uint64) (uint64, error)
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	AccountExists(ctx context.Context, key solana.PublicKey, commitment rpc.CommitmentType) (bool, error)
	ExplorerURL(signature string) string
}

// Signer - The user's wallet. It never hands out key material.
type Signer interface {
	PublicKey() solana.PublicKey
	SignTransactions(ctx context.Context, txs ...*solana.Transaction) error
}

// Preprocessor - Identity gatekeeper step. Returns the transactions that
// must land before the mint (pass issuance or refresh), possibly none.
type Preprocessor interface {
	Prepare(ctx context.Context, payer solana.PublicKey, network solana.PublicKey) ([]*solana.Transaction, error)
}

// Reconciler resyncs local state with the chain after an attempt
type Reconciler interface {
	Publish(status eligibility.DropStatus)
	Refresh(ctx context.Context, commitment rpc.CommitmentType) error
}

type Recorder interface {
	Record(ctx context.Context, attempt Attempt) error
}

type Notifier interface {
	Notify(alert Alert)
}

// Hooks - Caller supplied transactions sent before and after the mint
type Hooks struct {
	Before []*solana.Transaction
	After  []*solana.Transaction
}

// Attempt - What gets recorded for every mint attempt
type Attempt struct {
	SessionID      uuid.UUID
	Wallet         solana.PublicKey
	Drop           solana.PublicKey
	Mint           solana.PublicKey
	Kind           Kind
	Reason         Reason
	Signature      solana.Signature
	SetupSignature solana.Signature
	Price          uint64
	ItemsRemaining uint64
	Split          bool
	At             time.Time
}

type Orchestrator struct {
	chain        Chain
	signer       Signer
	watcher      confirmation.Watcher
	preprocessor Preprocessor
	reconciler   Reconciler
	recorder     Recorder
	notifier     Notifier
	txTimeout    time.Duration
	now          func() time.Time
}

type Option func(*Orchestrator)

func WithPreprocessor(p Preprocessor) Option {
	return func(o *Orchestrator) { o.preprocessor = p }
}

func WithReconciler(r Reconciler) Option {
	return func(o *Orchestrator) { o.reconciler = r }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func New(chain Chain, signer Signer, watcher confirmation.Watcher, txTimeout time.Duration, opts ...Option) *Orchestrator {
	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}
	o := &Orchestrator{
		chain:     chain,
		signer:    signer,
		watcher:   watcher,
		txTimeout: txTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mint runs one attempt end to end. Every path, panics in collaborators
// included, returns an Outcome and is followed by a reconciliation refresh.
// status is read once here; later refreshes do not affect this attempt.
func (o *Orchestrator) Mint(ctx context.Context, status eligibility.DropStatus, cfg candymachine.DropConfig, session *Session, hooks Hooks) (out Outcome) {
	payer := o.signer.PublicKey()
	if session == nil {
		session = NewSession(payer)
	}
	split := NeedsSplit(FeaturesOf(cfg))

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[MINT] attempt %s panicked: %v", session.ID, r)
			keep := out
			out = newOutcome(KindFailed, ReasonUnknown)
			out.SetupSignature = keep.SetupSignature
			out.Signature = keep.Signature
			out.Mint = keep.Mint
		}
		o.finish(ctx, status, cfg, session, split, &out)
	}()

	if reason, blocked := ineligible(status); blocked {
		log.Infof("[MINT] attempt %s refused: %s", session.ID, reason)
		return newOutcome(KindFailed, reason)
	}
	log.Infof("[MINT] attempt %s: drop=%s price=%s remaining=%d split=%v",
		session.ID, cfg.ID, status.DisplayPrice(), status.ItemsRemaining, split)

	if session.Setup != nil && session.MintSignature != nil && o.alreadyMinted(ctx, session.Setup.Mint.PublicKey()) {
		log.Infof("[MINT] attempt %s: earlier mint %s landed", session.ID, *session.MintSignature)
		out = newOutcome(KindSuccess, ReasonNone)
		out.Signature = *session.MintSignature
		out.SetupSignature = session.Setup.Signature
		out.Mint = session.Setup.Mint.PublicKey()
		return out
	}
	if split && session.Setup == nil && session.Pending != nil {
		o.resumeSetup(ctx, session)
	}

	var mintKey solana.PrivateKey
	switch {
	case session.Setup != nil:
		mintKey = session.Setup.Mint
	case session.Pending != nil:
		mintKey = session.Pending.Mint
	default:
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			log.Errorf("[MINT] failed to generate mint keypair: %v", err)
			return newOutcome(KindFailed, ReasonUnknown)
		}
		mintKey = key
	}

	if split && session.Setup == nil {
		setupOut, ok := o.runSetup(ctx, session, mintKey)
		if !ok {
			return setupOut
		}
	} else {
		o.notify(Alert{Message: MsgSignMint, Severity: SeverityInfo})
	}

	out = o.runMint(ctx, cfg, session, mintKey, hooks)
	if session.Setup != nil {
		out.SetupSignature = session.Setup.Signature
	}
	out.Mint = mintKey.PublicKey()
	return out
}

func (o *Orchestrator) runSetup(ctx context.Context, session *Session, mintKey solana.PrivateKey) (Outcome, bool) {
	payer := o.signer.PublicKey()
	o.notify(Alert{Message: MsgSignSetup, Severity: SeverityInfo})

	rent, err := o.chain.MinimumRent(ctx, candymachine.MintAccountSize)
	if err != nil {
		log.Errorf("[MINT] failed to get mint account rent: %v", err)
		return newOutcome(KindSetupFailed, ReasonDropped), false
	}
	ixs, err := setupInstructions(payer, mintKey.PublicKey(), rent)
	if err != nil {
		log.Errorf("[MINT] %v", err)
		return newOutcome(KindSetupFailed, ReasonUnknown), false
	}
	tx, err := o.newTx(ctx, ixs, payer)
	if err != nil {
		log.Errorf("[MINT] setup: %v", err)
		return newOutcome(KindSetupFailed, ReasonDropped), false
	}
	if err := wallet.PartialSign(tx, mintKey); err != nil {
		log.Errorf("[MINT] failed to sign setup with mint key: %v", err)
		return newOutcome(KindSetupFailed, ReasonUnknown), false
	}
	if err := o.signer.SignTransactions(ctx, tx); err != nil {
		log.Infof("[MINT] setup signing refused: %v", err)
		return newOutcome(KindSetupFailed, ReasonUserCancelled), false
	}

	sig, err := o.chain.Send(ctx, tx)
	if err != nil {
		log.Errorf("[MINT] failed to send setup transaction: %v", err)
		return newOutcome(KindSetupFailed, classifySendError(err)), false
	}
	log.Infof("[MINT] setup transaction sent: %s", o.chain.ExplorerURL(sig.String()))

	session.Pending = &PendingSetup{Signature: sig, Mint: mintKey}

	res := o.watcher.Await(ctx, sig, o.txTimeout)
	if res.Status != confirmation.StatusConfirmed {
		log.Warnf("[MINT] setup transaction %s not confirmed: %s %s", sig, res.Status, res.Error())
		out := newOutcome(KindSetupFailed, resultReason(res))
		out.SetupSignature = sig
		return out, false
	}

	session.Pending = nil
	session.Setup = &SetupRecord{
		Signature:   sig,
		Mint:        mintKey,
		Transaction: tx,
		ConfirmedAt: o.now(),
	}
	o.notify(Alert{Message: MsgSetupSucceeded, Severity: SeverityInfo})
	return Outcome{}, true
}

func (o *Orchestrator) runMint(ctx context.Context, cfg candymachine.DropConfig, session *Session, mintKey solana.PrivateKey, hooks Hooks) Outcome {
	payer := o.signer.PublicKey()
	mint := mintKey.PublicKey()

	var ixs []solana.Instruction
	withSetup := session.Setup == nil
	if withSetup {
		rent, err := o.chain.MinimumRent(ctx, candymachine.MintAccountSize)
		if err != nil {
			log.Errorf("[MINT] failed to get mint account rent: %v", err)
			return newOutcome(KindFailed, ReasonDropped)
		}
		setup, err := setupInstructions(payer, mint, rent)
		if err != nil {
			log.Errorf("[MINT] %v", err)
			return newOutcome(KindFailed, ReasonUnknown)
		}
		ixs = append(ixs, setup...)
	}
	mintIxs, err := mintInstructions(cfg, payer, mint)
	if err != nil {
		log.Errorf("[MINT] %v", err)
		return newOutcome(KindFailed, ReasonUnknown)
	}
	ixs = append(ixs, mintIxs...)

	tx, err := o.newTx(ctx, ixs, payer)
	if err != nil {
		log.Errorf("[MINT] mint: %v", err)
		return newOutcome(KindFailed, ReasonDropped)
	}
	if withSetup {
		if err := wallet.PartialSign(tx, mintKey); err != nil {
			log.Errorf("[MINT] failed to sign mint with mint key: %v", err)
			return newOutcome(KindFailed, ReasonUnknown)
		}
	}

	before := append([]*solana.Transaction{}, hooks.Before...)
	if cfg.Gatekeeper != nil && o.preprocessor == nil {
		log.Warnf("[MINT] drop requires a gateway token from network %s and no gatekeeper client is configured, the wallet must already hold a valid pass", cfg.Gatekeeper.Network)
	}
	if cfg.Gatekeeper != nil && o.preprocessor != nil {
		o.notify(Alert{Message: MsgSignGatekeeper, Severity: SeverityInfo})
		pre, err := o.preprocessor.Prepare(ctx, payer, cfg.Gatekeeper.Network)
		if err != nil {
			log.Errorf("[MINT] gatekeeper step failed: %v", err)
			return newOutcome(KindFailed, ReasonDropped)
		}
		before = append(before, pre...)
	}

	all := append(append(append([]*solana.Transaction{}, before...), tx), hooks.After...)
	if err := o.signer.SignTransactions(ctx, needsSigner(all, payer)...); err != nil {
		log.Infof("[MINT] signing refused: %v", err)
		return newOutcome(KindFailed, ReasonUserCancelled)
	}

	for i, pre := range before {
		res, err := o.sendAndAwait(ctx, pre)
		if err != nil {
			log.Errorf("[MINT] failed to send pre-mint transaction %d: %v", i, err)
			return newOutcome(KindFailed, classifySendError(err))
		}
		if res.Status != confirmation.StatusConfirmed {
			log.Warnf("[MINT] pre-mint transaction %s not confirmed: %s", res.Signature, res.Status)
			return newOutcome(KindFailed, ReasonDropped)
		}
	}

	sig, err := o.chain.Send(ctx, tx)
	if err != nil {
		log.Errorf("[MINT] failed to send mint transaction: %v", err)
		return newOutcome(KindFailed, classifySendError(err))
	}
	session.MintSignature = &sig
	log.Infof("[MINT] mint transaction sent: %s", o.chain.ExplorerURL(sig.String()))

	res := o.watcher.Await(ctx, sig, o.txTimeout)
	var out Outcome
	switch res.Status {
	case confirmation.StatusConfirmed:
		out = o.verifyMinted(ctx, mint)
	case confirmation.StatusFailed:
		log.Warnf("[MINT] mint transaction %s failed: %s", sig, res.Error())
		session.MintSignature = nil
		out = newOutcome(KindFailed, resultReason(res))
	default:
		log.Warnf("[MINT] mint transaction %s: no definitive status after %s", sig, o.txTimeout)
		out = newOutcome(KindIndeterminate, ReasonTimeout)
	}
	out.Signature = sig

	if out.Kind == KindSuccess {
		for _, post := range hooks.After {
			if res, err := o.sendAndAwait(ctx, post); err != nil || res.Status != confirmation.StatusConfirmed {
				log.Warnf("[MINT] post-mint transaction did not confirm: %v %s", err, res.Status)
			}
		}
	}
	return out
}

// verifyMinted - A confirmed signature counts only if the metadata account exists
func (o *Orchestrator) verifyMinted(ctx context.Context, mint solana.PublicKey) Outcome {
	metadata, err := candymachine.DeriveMetadataPDA(mint)
	if err != nil {
		log.Errorf("[MINT] %v", err)
		return newOutcome(KindLikelyFailedChargedFee, ReasonUnknown)
	}
	exists, err := o.chain.AccountExists(ctx, metadata, rpc.CommitmentProcessed)
	if err != nil {
		log.Warnf("[MINT] metadata lookup for %s failed: %v", mint, err)
		return newOutcome(KindLikelyFailedChargedFee, ReasonUnknown)
	}
	if !exists {
		log.Warnf("[MINT] metadata account %s missing after confirmation", metadata)
		return newOutcome(KindLikelyFailedChargedFee, ReasonUnknown)
	}
	return newOutcome(KindSuccess, ReasonNone)
}

// resumeSetup promotes a setup that timed out earlier once its mint account
// shows up on chain. Otherwise the pending key is reused for a new setup.
func (o *Orchestrator) resumeSetup(ctx context.Context, session *Session) {
	pending := session.Pending
	exists, err := o.chain.AccountExists(ctx, pending.Mint.PublicKey(), rpc.CommitmentConfirmed)
	if err != nil {
		log.Warnf("[MINT] lookup of pending mint account %s failed: %v", pending.Mint.PublicKey(), err)
		return
	}
	if !exists {
		log.Debugf("[MINT] pending setup %s did not land, sending it again", pending.Signature)
		return
	}
	log.Infof("[MINT] pending setup %s landed, mint account %s is ready", pending.Signature, pending.Mint.PublicKey())
	session.Setup = &SetupRecord{
		Signature:   pending.Signature,
		Mint:        pending.Mint,
		ConfirmedAt: o.now(),
	}
	session.Pending = nil
}

// alreadyMinted reports whether the metadata account for mint exists
func (o *Orchestrator) alreadyMinted(ctx context.Context, mint solana.PublicKey) bool {
	metadata, err := candymachine.DeriveMetadataPDA(mint)
	if err != nil {
		return false
	}
	exists, err := o.chain.AccountExists(ctx, metadata, rpc.CommitmentConfirmed)
	if err != nil {
		log.Warnf("[MINT] metadata lookup for %s failed: %v", mint, err)
		return false
	}
	return exists
}

func (o *Orchestrator) sendAndAwait(ctx context.Context, tx *solana.Transaction) (confirmation.Result, error) {
	sig, err := o.chain.Send(ctx, tx)
	if err != nil {
		return confirmation.Result{}, err
	}
	return o.watcher.Await(ctx, sig, o.txTimeout), nil
}

func (o *Orchestrator) newTx(ctx context.Context, ixs []solana.Instruction, payer solana.PublicKey) (*solana.Transaction, error) {
	blockhash, err := o.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	return newTransaction(ixs, blockhash, payer)
}

// finish runs after every attempt. It must not panic.
func (o *Orchestrator) finish(ctx context.Context, status eligibility.DropStatus, cfg candymachine.DropConfig, session *Session, split bool, out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[MINT] attempt %s: panic while finishing: %v", session.ID, r)
		}
	}()

	if out.Signature != (solana.Signature{}) {
		out.ExplorerURL = o.chain.ExplorerURL(out.Signature.String())
	}
	o.notify(out.Alert)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	if o.recorder != nil {
		attempt := Attempt{
			SessionID:      session.ID,
			Wallet:         o.signer.PublicKey(),
			Drop:           cfg.ID,
			Mint:           out.Mint,
			Kind:           out.Kind,
			Reason:         out.Reason,
			Signature:      out.Signature,
			SetupSignature: out.SetupSignature,
			Price:          status.EffectivePrice,
			ItemsRemaining: status.ItemsRemaining,
			Split:          split,
			At:             o.now(),
		}
		if err := o.recorder.Record(ctx, attempt); err != nil {
			log.Warnf("[MINT] failed to record attempt %s: %v", session.ID, err)
		}
	}

	if out.Kind == KindSuccess {
		session.Clear()
	}

	if o.reconciler == nil {
		return
	}
	if out.Kind == KindSuccess {
		o.reconciler.Publish(eligibility.ApplyMinted(status))
	}
	if err := o.reconciler.Refresh(ctx, out.Refresh); err != nil {
		log.Warnf("[MINT] reconciliation refresh failed: %v", err)
	}
}

func (o *Orchestrator) notify(alert Alert) {
	if alert.Message == "" {
		return
	}
	if o.notifier != nil {
		o.notifier.Notify(alert)
		return
	}
	log.Infof("[MINT] %s: %s", alert.Severity, alert.Message)
}

// ineligible - Refuse locally what the program would reject anyway
func ineligible(status eligibility.DropStatus) (Reason, bool) {
	switch {
	case status.SoldOut:
		return ReasonSoldOut, true
	case status.CanPress():
		return ReasonNone, false
	case status.WhitelistOnly && !status.WhitelistUser:
		return ReasonNotEligible, true
	case !status.HasSufficientBalance:
		return ReasonInsufficientFunds, true
	default:
		return ReasonNotLive, true
	}
}

func needsSigner(txs []*solana.Transaction, key solana.PublicKey) []*solana.Transaction {
	out := make([]*solana.Transaction, 0, len(txs))
	for _, tx := range txs {
		if wallet.IsRequiredSigner(tx, key) {
			out = append(out, tx)
		}
	}
	return out
}
