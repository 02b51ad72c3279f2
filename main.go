package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"candymint/api"
	"candymint/app"
	"candymint/eligibility"
	"candymint/refresh"
)

func main() {

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	configPath := flag.String("config", "", "path to config file")
	envPath := flag.String("env", "", "path to .env file")
	flag.Parse()

	var absConfigPath string
	if *configPath != "" {
		absConfigPath, _ = filepath.Abs(*configPath)
	}

	app.InitConfig(absConfigPath, *envPath)
	app.InitLogger()

	wg := &sync.WaitGroup{}
	notifications := api.NewNotifications()
	services := app.InitServices(wg, notifications)

	handlerConfig := api.HandlerConfig{
		Source:        services.Loop,
		Minter:        services.Orchestrator,
		Gate:          services.Gate,
		Chain:         services.Chain,
		Notifications: notifications,
	}
	if services.History != nil {
		handlerConfig.History = services.History
	}
	handler := api.NewHandler(handlerConfig)

	updates := make(chan refresh.Update, 16)
	sub := services.Loop.Subscribe(updates)
	go logPhaseChanges(updates)

	wg.Add(1)
	go services.Loop.Start()
	services.Loop.SetWallet(services.Signer.PublicKey())

	// mint requests block until confirmation
	requestTimeout := 2*app.Millis(app.Config.Drop.TxTimeoutMillis) + 30*time.Second
	router := api.NewRouter(handler, api.RouterConfig{
		RequestTimeout: requestTimeout,
		AllowedOrigins: app.Config.HTTP.AllowedOrigins,
		AuthToken:      app.Config.HTTP.AuthToken,
	})
	server := &http.Server{
		Addr:              app.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("[HTTP] Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("[HTTP] ", err)
		}
	}()

	// Gracefully shut down server
	gracefulStop := make(chan os.Signal, 1)
	done := make(chan bool, 1)
	signal.Notify(gracefulStop, syscall.SIGINT, syscall.SIGTERM)
	go waitForExitSignals(gracefulStop, done)
	<-done

	log.Debug("Gracefully shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("[HTTP] Shutdown: ", err)
	}
	services.Loop.Stop()
	wg.Wait()
	sub.Unsubscribe()
	services.Close()
	log.Debug("Server gracefully stopped")
}

func waitForExitSignals(gracefulStop chan os.Signal, done chan bool) {
	sig := <-gracefulStop
	log.Debug("Got signal:", sig)
	done <- true
}

func logPhaseChanges(updates <-chan refresh.Update) {
	var last eligibility.Phase
	for u := range updates {
		phase := u.Status.Phase(time.Now())
		if phase == last {
			continue
		}
		last = phase
		log.Infof("[DROP] %s: %d of %d remaining, price %s", phase, u.Status.ItemsRemaining, u.Status.ItemsAvailable, u.Status.DisplayPrice())
	}
}
