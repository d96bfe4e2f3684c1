package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/importer"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const cacheSweepInterval = time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The import service checks publisher against nil, so a disabled broker
	// must stay an untyped nil rather than a nil *amqp.Client.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without import events", "error", err)
		} else {
			amqpClient = c
			publisher = c
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	summary := services.NewSummaryService(repo, cfg.SummaryCacheTTL)
	transactions := services.NewTransactionService(repo, summary)
	sessions := importer.NewStore(0, cfg.ImportSessionTTL)
	svc := apphttp.Services{
		Catalog:      services.NewCatalogService(repo, summary),
		Transactions: transactions,
		Summary:      summary,
		Imports: services.NewImportService(sessions, repo, transactions, publisher, importer.Options{
			MaxRows: cfg.ImportMaxRows,
		}),
	}

	caches := cache.NewManager()
	caches.Register("summary", summary.Cache())
	caches.Register("import_sessions", sessions.Cache())

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		AuthHeader:         cfg.AuthHeader,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(applog.ComponentHTTP),
		Ready:              repo.Ping,
		Gauges: map[string]func() int64{
			"import_sessions_active": func() int64 { return int64(sessions.Cache().Size()) },
			"summary_cache_entries":  func() int64 { return int64(summary.Cache().Size()) },
		},
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
	})
	caches.StartCleanup(ctx, cacheSweepInterval)

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"auth_header", cfg.AuthHeader,
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
