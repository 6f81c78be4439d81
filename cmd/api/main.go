package main

import (
	"flag"
	"log"

	"tiktok-scraper/internal/api"
	"tiktok-scraper/internal/config"
	"tiktok-scraper/internal/database"
	"tiktok-scraper/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		port       = flag.String("port", "8080", "API server port")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(cfg.Logging)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Create API server
	server := api.NewServer(db, logger, *port)

	logger.Infof("Starting TikTok Scraper API server on port %s", *port)
	logger.Info("Available endpoints:")
	logger.Info("  GET  /api/comments - List comments with pagination")
	logger.Info("  GET  /api/comments/video/{id} - Get comments by video")
	logger.Info("  GET  /api/videos/user/{username} - Get videos by user")
	logger.Info("  GET  /api/stats - Get scraping statistics")
	logger.Info("  GET  /api/health - Health check")

	if err := server.Start(); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
