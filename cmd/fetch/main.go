package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"social-report/internal/config"
	"social-report/internal/database"
	"social-report/internal/ingest"
	"social-report/internal/monitoring"
	"social-report/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		clientSlug = flag.String("client", "", "Fetch only this client (default: all clients with sheets)")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.SetupLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}

	clients, err := config.LoadClients(cfg.Data.ClientsFile)
	if err != nil {
		logger.Fatalf("Failed to load clients: %v", err)
	}
	if *clientSlug != "" {
		client, ok := config.FindClient(clients, *clientSlug)
		if !ok {
			logger.Fatalf("Unknown client: %s", *clientSlug)
		}
		clients = []config.Client{client}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	fetcher := ingest.NewSheetsFetcher(ingest.SheetsOptions{
		BaseURL:   cfg.Sheets.BaseURL,
		Worksheet: cfg.Sheets.Worksheet,
		Format:    cfg.Sheets.Format,
		Attempts:  cfg.Sheets.RetryAttempts,
		BaseDelay: time.Duration(cfg.Sheets.RetryDelay) * time.Second,
		Timeout:   time.Duration(cfg.Sheets.Timeout) * time.Second,
	}, logger)
	monitor := monitoring.NewMonitor(logger, cfg.Monitoring.MetricsFile)

	failed := 0
	for _, client := range clients {
		if len(client.Sheets) == 0 {
			logger.Debugf("Skipping %s: no sheets configured", client.Slug)
			continue
		}

		clientLog := logger.WithField("client", client.Slug)
		clientLog.Infof("Fetching %d sheet(s) for %s", len(client.Sheets), client.Name)

		records, err := fetchClient(ctx, fetcher, db, cfg, client, clientLog)
		if err != nil {
			clientLog.Errorf("Fetch failed: %v", err)
			failed++
			continue
		}
		monitor.RecordFetch(client.Slug, records)
	}

	if failed > 0 {
		logger.Fatalf("Fetch completed with %d failed client(s)", failed)
	}
	logger.Info("Fetch completed")
}

func fetchClient(ctx context.Context, fetcher *ingest.SheetsFetcher, db *database.DB, cfg *config.Config, client config.Client, logger *logrus.Entry) (int, error) {
	refs := make([]ingest.SheetRef, 0, len(client.Sheets))
	for _, s := range client.Sheets {
		refs = append(refs, ingest.SheetRef{Platform: s.Platform, SheetID: s.SheetID})
	}

	ds, err := fetcher.FetchAll(ctx, refs)
	if err != nil {
		return 0, err
	}

	prefix := strings.TrimSuffix(client.DataFile, ".json")
	written, err := ingest.WriteFiles(cfg.Data.Dir, prefix, ds)
	if err != nil {
		return 0, err
	}
	for _, path := range written {
		logger.Infof("Saved %s", path)
	}

	if db != nil {
		snapshot, err := db.SaveDataset(ctx, client.Slug, ds)
		if err != nil {
			return 0, err
		}
		logger.Infof("Stored snapshot %s (%d records)", snapshot.ID, snapshot.Posts)

		if keep := cfg.Database.KeepSnapshots; keep > 0 {
			pruned, err := db.PruneSnapshots(ctx, client.Slug, keep)
			if err != nil {
				return 0, err
			}
			if pruned > 0 {
				logger.Infof("Pruned %d old snapshot(s)", pruned)
			}
		}
	}

	return ds.RecordCount(), nil
}
