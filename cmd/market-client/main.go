package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"

	"market-client/internal/api/handlers"
	"market-client/internal/api/middleware"
	"market-client/internal/config"
	"market-client/internal/domain"
	wsinfra "market-client/internal/infrastructure/websocket"
	"market-client/internal/services"
	"market-client/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a config file; the default search paths apply when empty")
	flag.Parse()

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level)

	instanceID := cfg.Instance.ID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}
	log.Info("Starting market client", "instance_id", instanceID, "config", cfg.GetConfigString())

	clock := clockwork.NewRealClock()

	// One logical connection per session, owned here and injected everywhere.
	dialer := wsinfra.NewDialer(cfg.Server.DialTimeout, cfg.Server.WriteTimeout)
	conn := wsinfra.NewManager(dialer, cfg.Server.URL, cfg.Reconnect.Delay, clock, log.Named("conn"))

	// Core services
	notifier := services.NewNotificationCenter(cfg.Notification.TTL, clock, log.Named("notify"))
	reconciler := services.NewReconciler(log.Named("state"))
	auth := services.NewAuthenticator(notifier, log.Named("auth"))
	dispatcher := services.NewDispatcher(conn, auth, reconciler, notifier, clock, log.Named("intent"))
	auth.SetSender(dispatcher) // Set circular dependency

	client := services.NewClient(conn, auth, reconciler, dispatcher, notifier, log.Named("client"))

	// Periodic mirror refresh
	refresher := services.NewRefresher(cfg.Refresh.Spec, dispatcher, log.Named("refresh"))
	if err := refresher.Start(); err != nil {
		log.Error("Failed to start refresher", "error", err)
		os.Exit(1)
	}

	// Status endpoint
	statusHandler := handlers.NewStatusHandler(conn, auth, reconciler, notifier, log.Named("status"))
	router := mux.NewRouter()
	router.Use(middleware.RequestLogging(log.Named("http")))
	statusHandler.Register(router)

	server := &http.Server{
		Addr:    cfg.Status.Addr,
		Handler: router,
	}

	go func() {
		log.Info("Starting status endpoint", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Status endpoint failed", "error", err)
			os.Exit(1)
		}
	}()

	// Start the session engine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Start(ctx); err != nil {
		// Retry is already armed; the engine keeps running.
		log.Warn("Initial connect failed, retrying", "error", err)
	}

	loginFromEnv(client, log)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down market client...")

	refresher.Stop()

	if err := client.Stop(); err != nil {
		log.Error("Connection teardown failed", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Status endpoint forced to shutdown", "error", err)
	}

	log.Info("Market client stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// loginFromEnv starts the handshake with credentials from the environment
// when both are present. Headless runs without credentials stay anonymous and
// only mirror the public catalog.
func loginFromEnv(client *services.Client, log logger.Logger) {
	username := os.Getenv("MARKET_USERNAME")
	password := os.Getenv("MARKET_PASSWORD")
	if username == "" || password == "" {
		return
	}
	if err := client.Login(username, password); err != nil {
		if _, ok := err.(*domain.ValidationError); !ok {
			log.Warn("Login not sent", "error", err)
		}
	}
}
