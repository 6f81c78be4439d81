package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tiktok-scraper/internal/config"
	"tiktok-scraper/internal/database/models"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type DB struct {
	conn   *sql.DB
	logger *logrus.Logger
}

func NewConnection(cfg *config.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	// Override config with environment variables if they exist
	host := getEnvOrDefault("DB_HOST", cfg.Host)
	port := getEnvOrDefault("DB_PORT", fmt.Sprintf("%d", cfg.Port))
	user := getEnvOrDefault("DB_USER", cfg.User)
	password := getEnvOrDefault("DB_PASSWORD", cfg.Password)
	dbname := getEnvOrDefault("DB_NAME", cfg.Name)
	sslmode := getEnvOrDefault("DB_SSL_MODE", cfg.SSLMode)

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	logger.Infof("Connecting to database: host=%s port=%s dbname=%s user=%s", host, port, dbname, user)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger,
	}

	logger.Info("Database connection established")
	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (db *DB) RunMigrations() error {
	db.logger.Info("Running database migrations...")

	migrationFiles, err := filepath.Glob("internal/database/migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}

	sort.Strings(migrationFiles)

	for _, file := range migrationFiles {
		db.logger.Infof("Running migration: %s", file)

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := db.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	db.logger.Info("Migrations completed successfully")
	return nil
}

func (db *DB) SaveComment(comment *models.Comment) error {
	query := `
        INSERT INTO comments (
            id, video_id, parent_id, text, author_id, author_name,
            like_count, reply_count, create_time, scraped_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        ) ON CONFLICT (id) DO UPDATE SET
            like_count = EXCLUDED.like_count,
            reply_count = EXCLUDED.reply_count,
            scraped_at = EXCLUDED.scraped_at
    `

	_, err := db.conn.Exec(query,
		comment.ID, comment.VideoID, comment.ParentID, comment.Text,
		comment.AuthorID, comment.AuthorName, comment.LikeCount,
		comment.ReplyCount, comment.CreateTime, comment.ScrapedAt,
	)

	return err
}

func (db *DB) SaveVideo(video *models.Video) error {
	query := `
        INSERT INTO videos (
            id, username, description, create_time, like_count,
            comment_count, share_count, play_count, hashtags, scraped_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
        ) ON CONFLICT (id) DO UPDATE SET
            like_count = EXCLUDED.like_count,
            comment_count = EXCLUDED.comment_count,
            share_count = EXCLUDED.share_count,
            play_count = EXCLUDED.play_count,
            scraped_at = EXCLUDED.scraped_at
    `

	_, err := db.conn.Exec(query,
		video.ID, video.Username, video.Description, video.CreateTime,
		video.LikeCount, video.CommentCount, video.ShareCount,
		video.PlayCount, video.Hashtags, video.ScrapedAt,
	)

	return err
}

func (db *DB) GetCommentsByVideo(videoID string, limit int) ([]*models.Comment, error) {
	query := `
        SELECT id, video_id, parent_id, text, author_id, author_name,
               like_count, reply_count, create_time, scraped_at
        FROM comments
        WHERE video_id = $1
        ORDER BY like_count DESC, create_time DESC
        LIMIT $2`

	rows, err := db.conn.Query(query, videoID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment := &models.Comment{}
		err := rows.Scan(
			&comment.ID, &comment.VideoID, &comment.ParentID, &comment.Text,
			&comment.AuthorID, &comment.AuthorName, &comment.LikeCount,
			&comment.ReplyCount, &comment.CreateTime, &comment.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	return comments, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
