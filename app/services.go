package app

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	log "github.com/sirupsen/logrus"

	"candymint/access"
	"candymint/chain"
	"candymint/confirmation"
	"candymint/history"
	"candymint/mint"
	"candymint/refresh"
	"candymint/wallet"
)

// Services - Everything a mint client process runs, built from Config
type Services struct {
	Chain        *chain.Client
	Signer       *wallet.KeypairSigner
	Watcher      confirmation.Watcher
	Loop         *refresh.Loop
	Orchestrator *mint.Orchestrator
	Gate         *access.Gate
	History      *history.Store

	ws *ws.Client
}

// InitServices builds the services. Fatal on any configuration problem.
func InitServices(wg *sync.WaitGroup, notifier mint.Notifier) *Services {
	signer, err := wallet.LoadKeypair(Config.Wallet.KeypairPath)
	if err != nil {
		log.Fatal("[SERVICES] Error loading wallet keypair: ", err.Error())
	}
	log.Info("[SERVICES] Wallet ", signer.PublicKey())

	rpcClient := rpc.New(Config.Solana.RPCURL)
	client := chain.NewClientWithRPC(rpcClient, chain.Config{
		RPCURL:        Config.Solana.RPCURL,
		Network:       Config.Solana.Network,
		Timeout:       Millis(Config.Solana.RPCTimeoutMillis),
		SkipPreflight: Config.Solana.SkipPreflight,
	})
	if err := client.HealthCheck(context.Background()); err != nil {
		log.Warn("[SERVICES] Solana health check failed: ", err.Error())
	}

	s := &Services{Chain: client, Signer: signer}
	s.Watcher = s.initWatcher(rpcClient)

	s.Gate, err = access.LoadGate(Config.Access.Enabled, Config.Access.AllowList, Config.Access.AllowListFile)
	if err != nil {
		log.Fatal("[SERVICES] Error loading allow list: ", err.Error())
	}

	if Config.History.DSN != "" {
		s.History, err = history.Open(Config.History.DSN)
		if err != nil {
			log.Fatal("[SERVICES] Error opening history database: ", err.Error())
		}
	}

	s.Loop = refresh.NewLoop(wg, client, CandyMachineID(), Config.Solana.RPCURL, Millis(Config.Drop.RefreshIntervalMillis))

	opts := []mint.Option{mint.WithReconciler(s.Loop)}
	if notifier != nil {
		opts = append(opts, mint.WithNotifier(notifier))
	}
	if s.History != nil {
		opts = append(opts, mint.WithRecorder(s.History))
	}
	s.Orchestrator = mint.New(client, signer, s.Watcher, Millis(Config.Drop.TxTimeoutMillis), opts...)

	return s
}

func (s *Services) initWatcher(rpcClient *rpc.Client) confirmation.Watcher {
	poll := confirmation.NewPollWatcher(rpcClient, Millis(Config.Solana.PollIntervalMillis), rpc.CommitmentConfirmed)
	if Config.Solana.WSURL == "" {
		log.Info("[SERVICES] No websocket endpoint, confirming by polling")
		return poll
	}

	wsClient, err := ws.Connect(context.Background(), Config.Solana.WSURL)
	if err != nil {
		log.Warn("[SERVICES] Websocket connect failed, confirming by polling: ", err.Error())
		return poll
	}
	s.ws = wsClient
	return confirmation.NewStreamWatcher(confirmation.NewWSSubscriber(wsClient), poll)
}

func (s *Services) Close() {
	if s.ws != nil {
		s.ws.Close()
	}
	if s.History != nil {
		if err := s.History.Close(); err != nil {
			log.Warn("[SERVICES] Error closing history database: ", err.Error())
		}
	}
}
