package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"tiktok-scraper/internal/config"
	"tiktok-scraper/internal/database"
	"tiktok-scraper/internal/monitoring"
	"tiktok-scraper/internal/scraper"
	"tiktok-scraper/internal/utils"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/config.yaml", "Configuration file path")
		videoID     = flag.String("video", "", "Video ID to fetch comments for")
		username    = flag.String("user", "", "Username to fetch")
		mode        = flag.String("mode", "comments", "Fetch mode: comments, videos, reposts, liked or info")
		metricsFile = flag.String("metrics", "data/metrics.json", "Metrics file path")
		noDB        = flag.Bool("no-db", false, "Skip database persistence")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Create logs directory if it doesn't exist
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Fatalf("Failed to create logs directory: %v", err)
	}

	logger := utils.NewLogger(cfg.Logging)

	// Initialize database
	var db *database.DB
	if !*noDB {
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.RunMigrations(); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
	}

	monitor := monitoring.NewMonitor(logger, *metricsFile)

	ttScraper, err := scraper.NewTikTokScraper(cfg, logger, db)
	if err != nil {
		logger.Fatalf("Failed to create TikTok scraper: %v", err)
	}

	timeout := time.Duration(cfg.TikTok.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ttScraper.Initialize(ctx); err != nil {
		logger.Fatalf("Failed to initialize scraper: %v", err)
	}
	defer ttScraper.Close()

	start := time.Now()

	switch *mode {
	case "comments":
		if *videoID == "" {
			logger.Fatal("comments mode requires -video")
		}
		roots, orphans, err := ttScraper.FetchComments(ctx, *videoID)
		if err != nil {
			logger.Fatalf("Failed to fetch comments: %v", err)
		}
		logger.Infof("Fetched %d top-level comments (%d orphaned replies) for video %s",
			len(roots), len(orphans), *videoID)
		monitor.RecordFetchRun(*videoID, string(ttScraper.Status()), len(roots), 0, 0, time.Since(start))
		printJSON(roots)

	case "videos":
		if *username == "" {
			logger.Fatal("videos mode requires -user")
		}
		items, err := ttScraper.FetchUserVideos(ctx, *username)
		if err != nil {
			logger.Fatalf("Failed to fetch user videos: %v", err)
		}
		logger.Infof("Fetched %d videos for user %s", len(items), *username)
		monitor.RecordFetchRun(*username, string(ttScraper.Status()), len(items), 0, 0, time.Since(start))
		printJSON(items)

	case "reposts":
		if *username == "" {
			logger.Fatal("reposts mode requires -user")
		}
		items, err := ttScraper.FetchReposts(ctx, *username)
		if err != nil {
			logger.Fatalf("Failed to fetch reposts: %v", err)
		}
		logger.Infof("Fetched %d reposts for user %s", len(items), *username)
		monitor.RecordFetchRun(*username, string(ttScraper.Status()), len(items), 0, 0, time.Since(start))
		printJSON(items)

	case "liked":
		if *username == "" {
			logger.Fatal("liked mode requires -user")
		}
		items, err := ttScraper.FetchLikedVideos(ctx, *username)
		if err != nil {
			logger.Fatalf("Failed to fetch liked videos: %v", err)
		}
		logger.Infof("Fetched %d liked videos for user %s", len(items), *username)
		monitor.RecordFetchRun(*username, string(ttScraper.Status()), len(items), 0, 0, time.Since(start))
		printJSON(items)

	case "info":
		if *username == "" {
			logger.Fatal("info mode requires -user")
		}
		profile, err := ttScraper.FetchUserInfo(ctx, *username)
		if err != nil {
			logger.Fatalf("Failed to fetch user info: %v", err)
		}
		logger.Infof("Fetched profile for %s (%d followers)", profile.Username, profile.FollowerCount)
		printJSON(profile)

	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
