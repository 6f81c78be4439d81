package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"tiktok-scraper/internal/config"
	"tiktok-scraper/internal/database"
	"tiktok-scraper/internal/monitoring"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/config.yaml", "Configuration file path")
		metricsFile = flag.String("metrics", "data/metrics.json", "Metrics file path")
		report      = flag.Bool("report", false, "Generate and display monitoring report")
		alerts      = flag.Bool("alerts", false, "Check and display alerts")
	)
	flag.Parse()

	// Setup logger
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize monitor
	monitor := monitoring.NewMonitor(logger, *metricsFile)

	if *report {
		// Generate and display report
		fmt.Println(monitor.GenerateReport())

		// Also show database stats
		stats, err := db.GetScrapingStats()
		if err != nil {
			logger.Errorf("Failed to get database stats: %v", err)
		} else {
			fmt.Println("\nDatabase Statistics:")
			fmt.Printf("- Total Comments: %v\n", stats["total_comments"])
			fmt.Printf("- Total Videos: %v\n", stats["total_videos"])
			fmt.Printf("- High Engagement Comments: %v\n", stats["high_engagement_comments"])
			fmt.Printf("- Average Likes: %v\n", stats["average_likes"])
			fmt.Printf("- Videos Scraped: %v\n", stats["videos_scraped"])
			fmt.Printf("- Last Scraped: %v\n", stats["last_scraped_at"])
		}
		return
	}

	if *alerts {
		// Check and display alerts
		alertManager := monitoring.NewAlertManager(monitor, logger)
		alerts := alertManager.CheckAlerts()

		if len(alerts) == 0 {
			fmt.Println("✅ No alerts - system is healthy")
		} else {
			fmt.Println("⚠️  Active Alerts:")
			for _, alert := range alerts {
				fmt.Printf("  - %s\n", alert)
			}
		}
		return
	}

	// Default: show current status
	health := monitor.GetHealthStatus()
	fmt.Println("TikTok Scraper Status:")
	fmt.Printf("- Status: %s\n", health["status"])
	fmt.Printf("- Last Run: %s\n", health["last_run"])
	fmt.Printf("- Total Runs: %v\n", health["total_runs"])
	fmt.Printf("- Error Rate: %s\n", health["error_rate"])
	fmt.Printf("- Average Runtime: %s\n", health["average_runtime"])

	if warning, exists := health["warning"]; exists {
		fmt.Printf("- Warning: %s\n", warning)
	}
}
