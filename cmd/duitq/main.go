package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	botamqp "github.com/fahroediin/whatsapp-cashflow-bot/internal/amqp"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/audit"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/bot"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/config"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/ledger"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/report"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/session"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/storage"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/wa"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     cfg.SlogLevel(),
		Component: log.ComponentApp,
	})
	logger.Info("Starting duitq", log.FieldOperation, log.OpStartup)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Activity log goes to SQLite, and to AMQP when a broker is configured.
	sinks := []audit.Sink{audit.NewStoreSink(repo, logger)}
	if cfg.AMQPURL != "" {
		amqpClient, err := botamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		sinks = append(sinks, botamqp.NewSink(amqpClient, logger))
		logger.Info("AMQP activity publishing enabled",
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}
	sink := audit.Fanout(sinks...)

	engine := ledger.NewEngine(repo, repo, logger)
	aggregator := report.NewAggregator(repo)
	sessions := session.NewManager()
	machine := session.NewMachine(sessions, engine, sink, logger)
	router := bot.NewRouter(repo, repo, repo, engine, aggregator, sessions, machine, sink, logger)

	transport, err := wa.NewClient(cfg.WASessionDBPath, router, logger)
	if err != nil {
		logger.Error("Failed to initialize WhatsApp transport", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return transport.Run(ctx)
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("Transport error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Stopped gracefully", log.FieldOperation, log.OpShutdown)
}
