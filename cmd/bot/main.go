package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"economy-bot/config"
	"economy-bot/internal/bot"
	"economy-bot/internal/checks"
	"economy-bot/internal/db"
	"economy-bot/internal/payment"
	"economy-bot/internal/server"
	"economy-bot/internal/users"
	"economy-bot/internal/withdraw"
	"economy-bot/pkg/logger"
)

func main() {
	l := logger.New()
	defer l.Sync()
	l.Info("Starting economy bot...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}

	if cfg.Telegram.Token == "" {
		l.Fatal("Telegram token is not configured")
	}
	if cfg.Telegram.AdminID == 0 {
		l.Fatal("Admin account id is not configured")
	}
	if cfg.Telegram.OperatorID == 0 {
		l.Fatal("Operator account id is not configured")
	}

	// Connect to the database with retry.
	var store *db.PostgresStore
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		store, err = db.NewPostgresStore(cfg.DB)
		if err == nil {
			break
		}
		l.Error("Failed to connect to database, retrying...", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if store == nil {
		l.Fatal("Failed to connect to database after multiple attempts", err)
	}
	defer store.Close()

	if err := store.InitSchema(context.Background()); err != nil {
		l.Fatal("Failed to initialize schema", err)
	}

	usersSvc := users.NewService(store)
	checksEng := checks.NewEngine(store)
	withdrawals := withdraw.NewController(store)

	economyBot, err := bot.New(cfg.Telegram.Token, usersSvc, checksEng, withdrawals, cfg.Telegram.AdminID, l)
	if err != nil {
		l.Fatal("Failed to create Telegram bot", err)
	}
	economyBot.SetPayments(payment.NewController(store, economyBot.InvoiceIssuer(), cfg.Telegram.OperatorID))

	if err := economyBot.Start(context.Background()); err != nil {
		l.Fatal("Failed to start Telegram bot", err)
	}
	l.Info("Telegram bot started successfully")

	httpServer := server.New(cfg.Server.Port, usersSvc, l)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down bot...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		l.Error("Error during HTTP server shutdown", err)
	}
	if err := economyBot.Stop(ctx); err != nil {
		l.Error("Error during bot shutdown", err)
	}

	l.Info("Bot stopped successfully")
}
