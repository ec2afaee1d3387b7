package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/facility-booking-bot/internal/app"
	"github.com/nekogravitycat/facility-booking-bot/internal/bot"
	"github.com/nekogravitycat/facility-booking-bot/internal/config"
	"github.com/nekogravitycat/facility-booking-bot/internal/db"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := logrus.New()
	if cfg.IsProduction {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	container := app.NewContainer(app.Config{
		IsProduction: cfg.IsProduction,
		ProdOrigins:  cfg.ProdOrigins,
		DBPool:       pool,
		BotToken:     cfg.BotToken,
		JWTSecret:    cfg.JWTSecret,
		JWTTokenTTL:  cfg.JWTTokenTTL,
		PollTimeout:  cfg.PollTimeout,
		AllowedUsers: cfg.AllowedUsers,
		AdminUsers:   cfg.AdminUsers,
		Logger:       logger,
	})

	// Warm the reservation snapshot before accepting conversations.
	refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := container.Reservations.Refresh(refreshCtx); err != nil {
		cancel()
		logger.Fatalf("failed to load reservations: %v", err)
	}
	cancel()
	logger.Info("existing reservations fetched and stored in memory")

	// Register the command set with the transport; non-fatal if it fails.
	cmdCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := container.Telegram.SetMyCommands(cmdCtx, bot.Commands); err != nil {
		logger.Warnf("failed to register bot commands: %v", err)
	}
	cancel()

	// Operator API with graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	go func() {
		logger.Infof("operator API running on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// Chat transport long-poll loop
	go func() {
		logger.Info("bot polling started")
		if err := container.Poller.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("poller stopped: %v", err)
			stop()
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}

	logger.Info("exited gracefully")
}
