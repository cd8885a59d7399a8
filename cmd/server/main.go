package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/splitledger/splitledger/internal/api"
	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/config"
	"github.com/splitledger/splitledger/internal/payment"
	"github.com/splitledger/splitledger/internal/service"
	"github.com/splitledger/splitledger/internal/storage"
	"github.com/splitledger/splitledger/internal/storage/sqlite"
	"github.com/splitledger/splitledger/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	logging.Setup()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	tokenTTL, _ := cfg.TokenTTL()
	paymentTimeout, _ := cfg.PaymentTimeout()

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, tokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	provider := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.SecretKey, paymentTimeout)

	authService := service.NewAuthService(authenticator, jwtManager, store)
	groupService := service.NewGroupService(store)
	expenseService := service.NewExpenseService(store)
	paymentService := service.NewPaymentService(store, provider)

	server := api.NewServer(authService, groupService, expenseService, paymentService, jwtManager, store)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeExpiredTokens(ctx, store)

	go func() {
		slog.Info("Server listening", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// purgeExpiredTokens drops blacklist rows for tokens past their expiry.
// Hourly is plenty: rows are small and the blacklist check filters on
// expiry anyway.
func purgeExpiredTokens(ctx context.Context, store storage.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpiredTokens(ctx, time.Now().Unix())
			if err != nil {
				slog.Error("Token purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Purged expired tokens", "count", n)
			}
		}
	}
}
