package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/warehouse"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.NewFromConfig(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if a.Events == nil {
		log.Fatal().Msg("AMQP_URL is required to run the warehouse worker")
	}
	if a.Warehouse == nil {
		log.Fatal().Msg("GCP_PROJECT is required to run the warehouse worker")
	}

	mirror := warehouse.NewMirror(a.Warehouse, a.Registry, log)

	log.Info().
		Str("queue", cfg.AMQPQueue).
		Str("dataset", cfg.BQDataset).
		Msg("Starting warehouse worker")

	done := make(chan error, 1)
	go func() {
		done <- a.Events.Consume(ctx, mirror.Handle)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutting down warehouse worker...")
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Event consumption stopped")
		}
	}

	// Cancel context to stop consuming; in-flight deliveries are requeued
	cancel()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		log.Warn().Msg("Timed out waiting for consumer to stop")
	}

	log.Info().Msg("Warehouse worker exited")
}
