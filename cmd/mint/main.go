package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"

	"candymint/app"
	"candymint/mint"
)

type logNotifier struct{}

func (logNotifier) Notify(alert mint.Alert) {
	switch alert.Severity {
	case mint.SeverityError:
		log.Error("[MINT] ", alert.Message)
	case mint.SeverityWarning:
		log.Warn("[MINT] ", alert.Message)
	default:
		log.Info("[MINT] ", alert.Message)
	}
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	configPath := flag.String("config", "", "path to config file")
	envPath := flag.String("env", "", "path to .env file")
	statusOnly := flag.Bool("status", false, "print the drop status and exit")
	flag.Parse()

	var absConfigPath string
	if *configPath != "" {
		absConfigPath, _ = filepath.Abs(*configPath)
	}
	app.InitConfig(absConfigPath, *envPath)
	app.InitLogger()

	services := app.InitServices(&sync.WaitGroup{}, logNotifier{})
	code := run(services, *statusOnly)
	services.Close()
	os.Exit(code)
}

func run(services *app.Services, statusOnly bool) int {
	wallet := services.Signer.PublicKey()
	if !services.Gate.IsAllowed(wallet.String()) {
		log.Errorf("[MINT] Wallet %s is not on the allow list", wallet)
		return 1
	}

	services.Loop.SetWallet(wallet)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := services.Loop.Refresh(ctx, rpc.CommitmentConfirmed)
	cancel()
	if err != nil {
		if alert := services.Loop.Alert(); alert != nil {
			log.Error(alert.Message)
		} else {
			log.Error("[MINT] Failed to read drop state: ", err)
		}
		return 1
	}

	latest, _ := services.Loop.Latest()
	status := latest.Status
	fmt.Printf("%s  price %s  remaining %d/%d  can mint: %v\n",
		status.Phase(time.Now()), status.DisplayPrice(), status.ItemsRemaining, status.ItemsAvailable, status.CanPress())
	if statusOnly {
		return 0
	}

	out := services.Orchestrator.Mint(context.Background(), status, latest.Config, mint.NewSession(wallet), mint.Hooks{})
	encoded, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(encoded))

	if !out.Succeeded() {
		return 1
	}
	return 0
}
