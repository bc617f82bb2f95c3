package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gwishyman/emailotp/internal/application/verify"
	"github.com/Gwishyman/emailotp/internal/config"
	"github.com/Gwishyman/emailotp/internal/infrastructure/csvfile"
	"github.com/Gwishyman/emailotp/internal/infrastructure/dynamo"
	"github.com/Gwishyman/emailotp/internal/infrastructure/memstore"
	"github.com/Gwishyman/emailotp/internal/infrastructure/smtp"
	"github.com/Gwishyman/emailotp/internal/transport/discord"
	transporthttp "github.com/Gwishyman/emailotp/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()

	// Storage backend: in-process by default, DynamoDB for multi-instance.
	var store verify.PendingStore
	var ledger verify.Ledger
	switch cfg.StorageBackend {
	case "dynamo":
		client := dynamo.NewClient(cfg)
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		store = dynamo.NewPendingStore(client, cfg.DynamoTables.PendingVerifications)
		ledger = dynamo.NewLedger(client, cfg.DynamoTables.VerifiedUsers)
	default:
		store = memstore.NewPendingStore()
		ledger = csvfile.NewLedger(cfg.LedgerFile)
	}
	if err := ledger.Init(ctx); err != nil {
		log.Printf("WARN: ledger init failed: %v", err)
	}

	mailer, err := smtp.NewMailer(cfg)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	bot, err := discord.NewBot(cfg)
	if err != nil {
		log.Fatalf("discord: %v", err)
	}

	svc := verify.NewService(store, ledger, bot, mailer, verify.Config{
		CodeLength:  cfg.OTPLength,
		Expiry:      time.Duration(cfg.OTPExpirySeconds) * time.Second,
		EmailWait:   time.Duration(cfg.EmailWaitSeconds) * time.Second,
		MaxAttempts: cfg.OTPMaxAttempts,
	})

	if err := bot.Start(svc); err != nil {
		log.Fatalf("discord: %v", err)
	}
	defer bot.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, ledger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Ops API on :%s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ops server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced ops server shutdown: %v", err)
	}
	log.Println("Stopped")
}
