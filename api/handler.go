package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"candymint/access"
	"candymint/candymachine"
	"candymint/eligibility"
	"candymint/history"
	"candymint/mint"
	"candymint/refresh"
)

// StatusSource is satisfied by *refresh.Loop
type StatusSource interface {
	Latest() (refresh.Update, bool)
	Alert() *mint.Alert
	Wallet() solana.PublicKey
	Health() refresh.Health
	Refresh(ctx context.Context, commitment rpc.CommitmentType) error
}

// Minter is satisfied by *mint.Orchestrator
type Minter interface {
	Mint(ctx context.Context, status eligibility.DropStatus, cfg candymachine.DropConfig, session *mint.Session, hooks mint.Hooks) mint.Outcome
}

// HistoryStore is satisfied by *history.Store
type HistoryStore interface {
	ListByWallet(ctx context.Context, wallet string, limit int) ([]history.MintAttempt, error)
}

type ChainHealth interface {
	HealthCheck(ctx context.Context) error
	Network() string
}

type Handler struct {
	source        StatusSource
	minter        Minter
	gate          *access.Gate
	history       HistoryStore
	chain         ChainHealth
	notifications *Notifications
	now           func() time.Time

	// one attempt at a time; the session survives failed attempts
	mintMu  sync.Mutex
	session *mint.Session
}

type HandlerConfig struct {
	Source        StatusSource
	Minter        Minter
	Gate          *access.Gate
	History       HistoryStore
	Chain         ChainHealth
	Notifications *Notifications
}

func NewHandler(c HandlerConfig) *Handler {
	if c.Notifications == nil {
		c.Notifications = NewNotifications()
	}
	return &Handler{
		source:        c.Source,
		minter:        c.Minter,
		gate:          c.Gate,
		history:       c.History,
		chain:         c.Chain,
		notifications: c.Notifications,
		now:           time.Now,
	}
}

// HandleGetStatus - GET /api/v1/drop/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	wallet := h.source.Wallet()
	latest, ok := h.source.Latest()
	if !ok {
		if alert := h.source.Alert(); alert != nil {
			respondError(w, alert.Message, http.StatusServiceUnavailable)
			return
		}
		respondError(w, "drop state not loaded yet", http.StatusServiceUnavailable)
		return
	}

	now := h.now()
	resp := StatusResponse{
		Wallet:   wallet,
		Allowed:  h.gate.IsAllowed(wallet.String()),
		Sequence: latest.Sequence,
		Phase:    latest.Status.Phase(now),
		Price:    latest.Status.DisplayPrice(),
		CanMint:  latest.Status.CanPress(),
		Status:   latest.Status,
		Alert:    h.source.Alert(),
	}
	if resp.Alert == nil {
		resp.Alert = h.notifications.Current()
	}
	if target, ok := latest.Status.CountdownTarget(now); ok && target.After(now) {
		resp.Countdown = &target
	}
	respondJSON(w, resp, http.StatusOK)
}

// HandleMint - POST /api/v1/drop/mint
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	wallet := h.source.Wallet()
	if wallet.IsZero() {
		respondError(w, "no wallet connected", http.StatusConflict)
		return
	}
	if !h.gate.IsAllowed(wallet.String()) {
		respondError(w, "wallet is not on the allow list", http.StatusForbidden)
		return
	}
	latest, ok := h.source.Latest()
	if !ok {
		respondError(w, "drop state not loaded yet", http.StatusServiceUnavailable)
		return
	}

	if !h.mintMu.TryLock() {
		respondError(w, "a mint attempt is already in progress", http.StatusConflict)
		return
	}
	defer h.mintMu.Unlock()

	if h.session == nil || !h.session.Wallet.Equals(wallet) {
		h.session = mint.NewSession(wallet)
	}
	session := h.session

	log.Infof("[API] Mint requested by %s, session %s", wallet, session.ID)
	// a dropped client must not abandon a transaction that is already in flight
	out := h.minter.Mint(context.WithoutCancel(r.Context()), latest.Status, latest.Config, session, mint.Hooks{})
	if out.Succeeded() {
		h.session = nil
	}
	respondJSON(w, MintResponse{SessionID: session.ID.String(), Outcome: out}, http.StatusOK)
}

// HandleRefresh - POST /api/v1/drop/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.source.Refresh(r.Context(), rpc.CommitmentConfirmed); err != nil {
		status := http.StatusBadGateway
		if alert := h.source.Alert(); alert != nil {
			respondError(w, alert.Message, status)
			return
		}
		respondError(w, err.Error(), status)
		return
	}
	h.HandleGetStatus(w, r)
}

// HandleGetHistory - GET /api/v1/drop/history?limit=10
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, "history database not configured", http.StatusServiceUnavailable)
		return
	}
	wallet := r.URL.Query().Get("wallet")
	if wallet == "" {
		wallet = h.source.Wallet().String()
	}
	limit := history.DefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			respondError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	attempts, err := h.history.ListByWallet(r.Context(), wallet, limit)
	if err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, attempts, http.StatusOK)
}

// HandleHealth - GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Healthy: true, RPC: "ok", Refresh: h.source.Health()}
	if h.chain != nil {
		resp.Network = h.chain.Network()
		if err := h.chain.HealthCheck(r.Context()); err != nil {
			resp.Healthy = false
			resp.RPC = err.Error()
		}
	}
	if h.source.Alert() != nil {
		resp.Healthy = false
	}

	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, resp, status)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Warn("[API] Failed to encode response: ", err)
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}, status)
}
