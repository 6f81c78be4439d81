package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	TikTok   TikTokConfig   `yaml:"tiktok"`
	Capture  CaptureConfig  `yaml:"capture"`
	Scraper  ScraperConfig  `yaml:"scraper"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type TikTokConfig struct {
	BaseURL   string          `yaml:"base_url"`
	Timeout   int             `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Auth      AuthConfig      `yaml:"auth"`
}

type AuthConfig struct {
	CookiesFile string `yaml:"cookies_file"`
	UserAgent   string `yaml:"user_agent"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour"`
	MinDelaySeconds   int `yaml:"min_delay_seconds"`
	CooldownSeconds   int `yaml:"cooldown_seconds"`
}

type CaptureConfig struct {
	QueueSize          int `yaml:"queue_size"`
	QuietTimeoutSecs   int `yaml:"quiet_timeout_seconds"`
	MaxQuietRounds     int `yaml:"max_quiet_rounds"`
	MaxPages           int `yaml:"max_pages"`
	HardCeilingSeconds int `yaml:"hard_ceiling_seconds"`
}

type ScraperConfig struct {
	RetryAttempts int          `yaml:"retry_attempts"`
	RetryDelay    int          `yaml:"retry_delay"`
	OutputFormat  string       `yaml:"output_format"`
	Filter        FilterConfig `yaml:"filter"`
}

// FilterConfig narrows which fetched comments are kept. Zero values
// leave the corresponding criterion off.
type FilterConfig struct {
	MinLikes        int      `yaml:"min_likes"`
	MaxLikes        int      `yaml:"max_likes"`
	MinReplies      int      `yaml:"min_replies"`
	DaysBack        int      `yaml:"days_back"`
	Keywords        []string `yaml:"keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
	AuthorNames     []string `yaml:"author_names"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

func Load(configFile string) (*Config, error) {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		// .env file is optional, so don't fail if it doesn't exist
	}

	// Check if config file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configFile)
	}

	// Read config file
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if they exist
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		config.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		config.Database.Name = dbName
	}

	return &config, nil
}
