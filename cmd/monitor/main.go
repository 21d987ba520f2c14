package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"social-report/internal/config"
	"social-report/internal/database"
	"social-report/internal/monitoring"
	"social-report/internal/utils"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/config.yaml", "Configuration file path")
		metricsFile = flag.String("metrics", "", "Metrics file path (overrides config)")
		report      = flag.Bool("report", false, "Generate and display monitoring report")
		alerts      = flag.Bool("alerts", false, "Check and display alerts")
		snapshots   = flag.String("snapshots", "", "List stored snapshots of a client")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *metricsFile != "" {
		cfg.Monitoring.MetricsFile = *metricsFile
	}

	logger, err := utils.SetupLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}

	monitor := monitoring.NewMonitor(logger, cfg.Monitoring.MetricsFile)

	if *snapshots != "" {
		if !cfg.Database.Enabled {
			logger.Fatal("Snapshots require database.enabled")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		list, err := db.ListSnapshots(ctx, *snapshots, 20)
		if err != nil {
			logger.Fatalf("Failed to list snapshots: %v", err)
		}
		if len(list) == 0 {
			fmt.Printf("No snapshots stored for %s\n", *snapshots)
			return
		}
		fmt.Printf("Snapshots for %s:\n", *snapshots)
		for _, snap := range list {
			fmt.Printf("  %s  stored %s  generated %s  %d posts\n",
				snap.ID, utils.FormatTimestamp(snap.StoredAt), snap.Generated, snap.Posts)
		}
		return
	}

	if *report {
		fmt.Println(monitor.GenerateReport())

		if !cfg.Database.Enabled {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		stats, err := db.GetSnapshotStats(ctx)
		if err != nil {
			logger.Errorf("Failed to get database stats: %v", err)
			return
		}
		fmt.Println("\nSnapshot Storage:")
		fmt.Printf("- Snapshots: %v\n", stats["total_snapshots"])
		fmt.Printf("- Stored Posts: %v\n", stats["total_posts"])
		fmt.Printf("- Clients: %v\n", stats["clients"])
		fmt.Printf("- Last Stored: %v\n", stats["last_stored_at"])
		return
	}

	if *alerts {
		alertManager := monitoring.NewAlertManager(monitor, logger,
			time.Duration(cfg.Monitoring.StaleAfterHours)*time.Hour,
			cfg.Monitoring.MaxEmailErrorRate)
		active := alertManager.CheckAlerts()

		if len(active) == 0 {
			fmt.Println("✅ No alerts - system is healthy")
		} else {
			fmt.Println("⚠️  Active Alerts:")
			for _, alert := range active {
				fmt.Printf("  - %s\n", alert)
			}
			alertManager.SendAlerts(active)
		}
		return
	}

	// Default: show current status
	health := monitor.GetHealthStatus()
	fmt.Println("Report Service Status:")
	fmt.Printf("- Status: %s\n", health["status"])
	fmt.Printf("- Last Report: %s\n", health["last_run"])
	fmt.Printf("- Last Fetch: %s\n", health["last_fetch"])
	fmt.Printf("- Reports Rendered: %v\n", health["total_runs"])
	fmt.Printf("- Emails Sent: %v\n", health["emails_sent"])
	fmt.Printf("- Email Error Rate: %s\n", health["email_error_rate"])
	fmt.Printf("- Average Render Time: %s\n", health["average_render_time"])

	if warning, exists := health["warning"]; exists {
		fmt.Printf("- Warning: %s\n", warning)
	}
}
