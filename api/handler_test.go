package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"candymint/access"
	"candymint/candymachine"
	"candymint/eligibility"
	"candymint/history"
	"candymint/mint"
	"candymint/refresh"
)

func init() {
	log.SetOutput(io.Discard)
}

type fakeSource struct {
	wallet     solana.PublicKey
	latest     *refresh.Update
	alert      *mint.Alert
	refreshErr error
	refreshed  int
}

func (f *fakeSource) Latest() (refresh.Update, bool) {
	if f.latest == nil {
		return refresh.Update{}, false
	}
	return *f.latest, true
}
func (f *fakeSource) Alert() *mint.Alert       { return f.alert }
func (f *fakeSource) Wallet() solana.PublicKey { return f.wallet }
func (f *fakeSource) Health() refresh.Health   { return refresh.Health{Name: refresh.LoopName, Healthy: f.alert == nil} }
func (f *fakeSource) Refresh(ctx context.Context, commitment rpc.CommitmentType) error {
	f.refreshed++
	return f.refreshErr
}

type mockMinter struct {
	mock.Mock
}

func (m *mockMinter) Mint(ctx context.Context, status eligibility.DropStatus, cfg candymachine.DropConfig, session *mint.Session, hooks mint.Hooks) mint.Outcome {
	args := m.Called(status, session)
	return args.Get(0).(mint.Outcome)
}

type fakeHistory struct {
	wallet string
	limit  int
	rows   []history.MintAttempt
	err    error
}

func (f *fakeHistory) ListByWallet(ctx context.Context, wallet string, limit int) ([]history.MintAttempt, error) {
	f.wallet, f.limit = wallet, limit
	return f.rows, f.err
}

type fakeChain struct{ err error }

func (f fakeChain) HealthCheck(ctx context.Context) error { return f.err }
func (f fakeChain) Network() string                       { return "devnet" }

// admits every wallet
var openGate = access.NewGate(false, nil)

func liveUpdate(wallet solana.PublicKey) *refresh.Update {
	return &refresh.Update{
		Sequence: 3,
		Wallet:   wallet,
		Status: eligibility.DropStatus{
			Active:               true,
			HasSufficientBalance: true,
			EffectivePrice:       1_500_000_000,
			ItemsAvailable:       10,
			ItemsRemaining:       4,
		},
	}
}

func do(t *testing.T, h *Handler, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	NewRouter(h, RouterConfig{RequestTimeout: time.Minute}).ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHandleGetStatus(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()

	t.Run("Live drop", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}})

		rec, body := do(t, h, http.MethodGet, "/api/v1/drop/status")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "LIVE", body["phase"])
		assert.Equal(t, "1.5 SOL", body["price"])
		assert.Equal(t, true, body["can_mint"])
		assert.Equal(t, true, body["allowed"])
		assert.Equal(t, float64(3), body["sequence"])
	})

	t.Run("Gate denies stranger", func(t *testing.T) {
		gate := access.NewGate(true, []string{solana.NewWallet().PublicKey().String()})
		h := NewHandler(HandlerConfig{Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}, Gate: gate})

		_, body := do(t, h, http.MethodGet, "/api/v1/drop/status")
		assert.Equal(t, false, body["allowed"])
	})

	t.Run("Not loaded", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet}})

		rec, _ := do(t, h, http.MethodGet, "/api/v1/drop/status")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("Configuration alert", func(t *testing.T) {
		alert := &mint.Alert{Message: "Couldn't fetch candy machine state", Severity: mint.SeverityError}
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, alert: alert}})

		rec, body := do(t, h, http.MethodGet, "/api/v1/drop/status")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, alert.Message, body["message"])
	})

	t.Run("Orchestrator notification", func(t *testing.T) {
		notifications := NewNotifications()
		notifications.Notify(mint.Alert{Message: mint.MsgSignMint, Severity: mint.SeverityInfo})
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}, Notifications: notifications})

		_, body := do(t, h, http.MethodGet, "/api/v1/drop/status")
		alert, ok := body["alert"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, mint.MsgSignMint, alert["message"])
	})

	t.Run("Countdown before go-live", func(t *testing.T) {
		update := liveUpdate(wallet)
		goLive := time.Now().Add(time.Hour).Unix()
		update.Status.Active = false
		update.Status.GoLiveTime = &goLive
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, latest: update}})

		_, body := do(t, h, http.MethodGet, "/api/v1/drop/status")
		assert.Equal(t, "PENDING", body["phase"])
		assert.NotNil(t, body["countdown"])
	})
}

func TestHandleMint(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()

	t.Run("Success clears the session", func(t *testing.T) {
		minter := new(mockMinter)
		minter.On("Mint", mock.Anything, mock.Anything).Return(mint.Outcome{Kind: mint.KindSuccess})
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}, Minter: minter})

		rec, body := do(t, h, http.MethodPost, "/api/v1/drop/mint")

		assert.Equal(t, http.StatusOK, rec.Code)
		outcome := body["outcome"].(map[string]interface{})
		assert.Equal(t, "success", outcome["kind"])
		assert.NotEmpty(t, body["session_id"])
		assert.Nil(t, h.session)
	})

	t.Run("Failure keeps the session for the retry", func(t *testing.T) {
		minter := new(mockMinter)
		minter.On("Mint", mock.Anything, mock.Anything).Return(mint.Outcome{Kind: mint.KindFailed, Reason: mint.ReasonDropped})
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}, Minter: minter})

		_, first := do(t, h, http.MethodPost, "/api/v1/drop/mint")
		_, second := do(t, h, http.MethodPost, "/api/v1/drop/mint")

		assert.Equal(t, first["session_id"], second["session_id"])
		sessions := []*mint.Session{
			minter.Calls[0].Arguments.Get(1).(*mint.Session),
			minter.Calls[1].Arguments.Get(1).(*mint.Session),
		}
		assert.Same(t, sessions[0], sessions[1])
	})

	t.Run("Status passed at request time", func(t *testing.T) {
		update := liveUpdate(wallet)
		minter := new(mockMinter)
		minter.On("Mint", update.Status, mock.Anything).Return(mint.Outcome{Kind: mint.KindSuccess})
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, latest: update}, Minter: minter})

		do(t, h, http.MethodPost, "/api/v1/drop/mint")
		minter.AssertExpectations(t)
	})

	t.Run("No wallet", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{}, Minter: new(mockMinter)})
		rec, _ := do(t, h, http.MethodPost, "/api/v1/drop/mint")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Not on allow list", func(t *testing.T) {
		minter := new(mockMinter)
		h := NewHandler(HandlerConfig{
			Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)},
			Minter: minter,
			Gate:   access.NewGate(true, nil),
		})

		rec, _ := do(t, h, http.MethodPost, "/api/v1/drop/mint")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		minter.AssertNotCalled(t, "Mint", mock.Anything, mock.Anything)
	})

	t.Run("Missing gate denies", func(t *testing.T) {
		minter := new(mockMinter)
		h := NewHandler(HandlerConfig{Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}, Minter: minter})

		rec, _ := do(t, h, http.MethodPost, "/api/v1/drop/mint")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		minter.AssertNotCalled(t, "Mint", mock.Anything, mock.Anything)
	})

	t.Run("One attempt at a time", func(t *testing.T) {
		release := make(chan struct{})
		entered := make(chan struct{})
		minter := new(mockMinter)
		minter.On("Mint", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				close(entered)
				<-release
			}).
			Return(mint.Outcome{Kind: mint.KindSuccess}).Once()
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}, Minter: minter})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			do(t, h, http.MethodPost, "/api/v1/drop/mint")
		}()
		<-entered

		rec, _ := do(t, h, http.MethodPost, "/api/v1/drop/mint")
		assert.Equal(t, http.StatusConflict, rec.Code)

		close(release)
		wg.Wait()
	})
}

func TestHandleRefresh(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()

	t.Run("Ok", func(t *testing.T) {
		source := &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}
		h := NewHandler(HandlerConfig{Gate: openGate, Source: source})

		rec, _ := do(t, h, http.MethodPost, "/api/v1/drop/refresh")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, source.refreshed)
	})

	t.Run("Failure", func(t *testing.T) {
		source := &fakeSource{wallet: wallet, refreshErr: errors.New("rpc down")}
		h := NewHandler(HandlerConfig{Gate: openGate, Source: source})

		rec, body := do(t, h, http.MethodPost, "/api/v1/drop/refresh")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "rpc down", body["message"])
	})
}

func TestHandleGetHistory(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()

	t.Run("Defaults to the connected wallet", func(t *testing.T) {
		store := &fakeHistory{rows: []history.MintAttempt{{Kind: "success"}}}
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet}, History: store})

		rec, _ := do(t, h, http.MethodGet, "/api/v1/drop/history")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, wallet.String(), store.wallet)
		assert.Equal(t, history.DefaultLimit, store.limit)

		var rows []history.MintAttempt
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		assert.Len(t, rows, 1)
	})

	t.Run("Explicit wallet and limit", func(t *testing.T) {
		store := &fakeHistory{}
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet}, History: store})

		do(t, h, http.MethodGet, "/api/v1/drop/history?wallet=abc&limit=25")
		assert.Equal(t, "abc", store.wallet)
		assert.Equal(t, 25, store.limit)
	})

	t.Run("Bad limit", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet}, History: &fakeHistory{}})
		rec, _ := do(t, h, http.MethodGet, "/api/v1/drop/history?limit=-3")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Not configured", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet}})
		rec, _ := do(t, h, http.MethodGet, "/api/v1/drop/history")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{}, Chain: fakeChain{}})
		rec, body := do(t, h, http.MethodGet, "/health")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "devnet", body["network"])
	})

	t.Run("RPC down", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{}, Chain: fakeChain{err: errors.New("unreachable")}})
		rec, body := do(t, h, http.MethodGet, "/health")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unreachable", body["rpc"])
	})
}

func TestRouting(t *testing.T) {
	h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{}})

	rec, _ := do(t, h, http.MethodDelete, "/api/v1/drop/status")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationsExpire(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	n := NewNotifications()
	n.now = func() time.Time { return now }

	n.Notify(mint.Alert{Message: mint.MsgMintSucceeded, HideAfter: 7 * time.Second})
	require.NotNil(t, n.Current())

	now = now.Add(7 * time.Second)
	assert.Nil(t, n.Current())

	n.Notify(mint.Alert{Message: mint.MsgTimeout})
	now = now.Add(time.Hour)
	assert.NotNil(t, n.Current())
}

func TestRouterOrigins(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	newRouter := func() (http.Handler, *fakeSource) {
		source := &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}
		h := NewHandler(HandlerConfig{Gate: openGate, Source: source})
		return NewRouter(h, RouterConfig{
			RequestTimeout: time.Minute,
			AllowedOrigins: []string{"http://localhost:3000"},
		}), source
	}

	t.Run("Disallowed origin cannot refresh", func(t *testing.T) {
		router, source := newRouter()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/drop/refresh", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Zero(t, source.refreshed)
	})

	t.Run("Disallowed origin preflight", func(t *testing.T) {
		router, _ := newRouter()
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/drop/mint", nil)
		req.Header.Set("Origin", "https://evil.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Allowed origin", func(t *testing.T) {
		router, source := newRouter()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/drop/refresh", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, 1, source.refreshed)
	})

	t.Run("No origin header", func(t *testing.T) {
		router, source := newRouter()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/drop/refresh", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, source.refreshed)
	})
}

func TestRouterToken(t *testing.T) {
	wallet := solana.NewWallet().PublicKey()
	minter := new(mockMinter)
	h := NewHandler(HandlerConfig{Gate: openGate, Source: &fakeSource{wallet: wallet, latest: liveUpdate(wallet)}, Minter: minter})
	router := NewRouter(h, RouterConfig{RequestTimeout: time.Minute, AuthToken: "s3cret"})

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/drop/mint", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
	minter.AssertNotCalled(t, "Mint", mock.Anything, mock.Anything)

	t.Run("valid token", func(t *testing.T) {
		minter.On("Mint", mock.Anything, mock.Anything).Return(mint.Outcome{Kind: mint.KindSuccess}).Once()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/drop/mint", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		minter.AssertExpectations(t)
	})

	t.Run("status stays open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/drop/status", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
