package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"tiktok-scraper/internal/config"
	"tiktok-scraper/internal/scraper"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		howto      = flag.Bool("howto", false, "Show instructions for extracting cookies")
	)
	flag.Parse()

	if *howto {
		scraper.ExtractCookiesFromBrowser()
		return
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	authManager, err := scraper.NewAuthManager(
		cfg.TikTok.Auth.CookiesFile,
		cfg.TikTok.Auth.UserAgent,
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create auth manager: %v", err)
	}

	fmt.Println("Testing cookie loading...")
	if err := authManager.LoadCookies(); err != nil {
		log.Fatalf("Failed to load cookies: %v", err)
	}

	fmt.Println("Testing authentication...")
	if err := authManager.ValidateAuth(); err != nil {
		log.Fatalf("Authentication failed: %v", err)
	}

	// Validation can refresh cookie values; write them back.
	if err := authManager.SaveCookies(); err != nil {
		log.Fatalf("Failed to save cookies: %v", err)
	}

	fmt.Println("✅ Cookies are valid and authentication successful!")
}
