package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-report/internal/api"
	"social-report/internal/config"
	"social-report/internal/database"
	"social-report/internal/export"
	"social-report/internal/mailer"
	"social-report/internal/monitoring"
	"social-report/internal/refresh"
	"social-report/internal/reporting"
	"social-report/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		port       = flag.Int("port", 0, "API server port (overrides config)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := utils.SetupLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}

	clients, err := config.LoadClients(cfg.Data.ClientsFile)
	if err != nil {
		logger.Fatalf("Failed to load clients: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := monitoring.NewMonitor(logger, cfg.Monitoring.MetricsFile)
	deps := api.Deps{Monitor: monitor, Logger: logger}

	sources := reporting.FileSources(cfg.Data.Dir)
	if cfg.Database.Enabled {
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		sources = reporting.SnapshotSources(db, cfg.Data.Dir)
		deps.DB = db
	}

	exporter, err := export.New(cfg.Export, logger)
	if err != nil {
		logger.Warnf("Document export disabled: %v", err)
	}

	deps.Reports, err = reporting.NewService(cfg.Report, reporting.Deps{
		Clients:  clients,
		Sources:  sources,
		Exporter: exporter,
		Monitor:  monitor,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create report service: %v", err)
	}

	// The API is itself the email relay, so it always delivers over SMTP.
	if smtp, err := mailer.NewSMTPMailer(cfg.Email, logger); err != nil {
		logger.Warnf("Email relay disabled: %v", err)
	} else {
		deps.Mailer = smtp
	}

	if cfg.GitHub.Configured() {
		deps.Refresher = refresh.NewRefresher(cfg.GitHub, monitor, logger)
	} else {
		logger.Warn("GitHub workflow refresh is not configured")
	}

	server := api.NewServer(cfg.Server, deps)

	logger.Infof("Serving %d client report(s)", len(clients))
	logger.Info("Available endpoints:")
	logger.Info("  GET  /api/health - Health check")
	logger.Info("  GET  /api/clients - Configured clients")
	logger.Info("  GET  /api/reports/{client}?range= - Report data")
	logger.Info("  GET  /reports/{client}?range= - Report page")
	logger.Info("  GET  /api/reports/{client}/export/{csv|pdf} - Export report")
	logger.Info("  POST /api/reports/{client}/refresh - Trigger data refresh")
	logger.Info("  POST /api/email - Email relay")
	logger.Info("  GET  /api/metrics - Run metrics")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Failed to shut down server: %v", err)
		}
	}()

	if err := server.Start(); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("Server stopped")
}
