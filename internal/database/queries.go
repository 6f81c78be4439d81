package database

import (
	"database/sql"
	"fmt"

	"tiktok-scraper/internal/database/models"
)

// GetCommentsWithPagination retrieves comments with pagination support
func (db *DB) GetCommentsWithPagination(page, pageSize, minLikes int) ([]*models.Comment, error) {
	offset := (page - 1) * pageSize

	query := `
        SELECT id, video_id, parent_id, text, author_id, author_name,
               like_count, reply_count, create_time, scraped_at
        FROM comments
        WHERE like_count >= $1
        ORDER BY like_count DESC, scraped_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := db.conn.Query(query, minLikes, pageSize, offset)
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

// GetCommentsCount returns the total count of comments matching criteria
func (db *DB) GetCommentsCount(minLikes int) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM comments
        WHERE like_count >= $1`

	var count int
	err := db.conn.QueryRow(query, minLikes).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get comments count: %w", err)
	}

	return count, nil
}

// GetVideosByUser retrieves the stored video listing for a user
func (db *DB) GetVideosByUser(username string, limit int) ([]*models.Video, error) {
	query := `
        SELECT id, username, description, create_time, like_count,
               comment_count, share_count, play_count, hashtags, scraped_at
        FROM videos
        WHERE username = $1
        ORDER BY create_time DESC
        LIMIT $2`

	rows, err := db.conn.Query(query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video := &models.Video{}
		err := rows.Scan(
			&video.ID, &video.Username, &video.Description, &video.CreateTime,
			&video.LikeCount, &video.CommentCount, &video.ShareCount,
			&video.PlayCount, &video.Hashtags, &video.ScrapedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}

	return videos, nil
}

// GetScrapingStats returns comprehensive scraping statistics
func (db *DB) GetScrapingStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	// Total comments
	var totalComments int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM comments").Scan(&totalComments)
	if err != nil {
		return nil, fmt.Errorf("failed to get total comments: %w", err)
	}
	stats["total_comments"] = totalComments

	// Total videos
	var totalVideos int
	err = db.conn.QueryRow("SELECT COUNT(*) FROM videos").Scan(&totalVideos)
	if err != nil {
		return nil, fmt.Errorf("failed to get total videos: %w", err)
	}
	stats["total_videos"] = totalVideos

	// High engagement comments (1000+ likes in past 5 days)
	var highEngagementComments int
	err = db.conn.QueryRow(`
        SELECT COUNT(*) FROM comments
        WHERE like_count >= 1000 AND scraped_at >= NOW() - INTERVAL '5 days'
    `).Scan(&highEngagementComments)
	if err != nil {
		return nil, fmt.Errorf("failed to get high engagement comments: %w", err)
	}
	stats["high_engagement_comments"] = highEngagementComments

	// Average likes
	var avgLikes sql.NullFloat64
	err = db.conn.QueryRow(`
        SELECT AVG(like_count) FROM comments
        WHERE scraped_at >= NOW() - INTERVAL '5 days'
    `).Scan(&avgLikes)
	if err != nil {
		return nil, fmt.Errorf("failed to get average likes: %w", err)
	}
	if avgLikes.Valid {
		stats["average_likes"] = avgLikes.Float64
	} else {
		stats["average_likes"] = 0
	}

	// Most commented video
	var topVideo sql.NullString
	err = db.conn.QueryRow(`
        SELECT video_id FROM comments
        GROUP BY video_id
        ORDER BY COUNT(*) DESC
        LIMIT 1
    `).Scan(&topVideo)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get top video: %w", err)
	}
	if topVideo.Valid {
		stats["top_video"] = topVideo.String
	} else {
		stats["top_video"] = "None"
	}

	// Last scraped timestamp
	var lastScraped sql.NullString
	err = db.conn.QueryRow(`
        SELECT MAX(scraped_at)::text FROM comments
    `).Scan(&lastScraped)
	if err != nil {
		return nil, fmt.Errorf("failed to get last scraped time: %w", err)
	}
	if lastScraped.Valid {
		stats["last_scraped_at"] = lastScraped.String
	} else {
		stats["last_scraped_at"] = "Never"
	}

	// Number of videos with comments scraped recently
	var videosScraped int
	err = db.conn.QueryRow(`
        SELECT COUNT(DISTINCT video_id) FROM comments
        WHERE scraped_at >= NOW() - INTERVAL '5 days'
    `).Scan(&videosScraped)
	if err != nil {
		return nil, fmt.Errorf("failed to get videos scraped: %w", err)
	}
	stats["videos_scraped"] = videosScraped

	return stats, nil
}

// Ping checks if the database connection is alive
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// GetTopCommenters returns authors with most high-engagement comments
func (db *DB) GetTopCommenters(limit int) ([]map[string]interface{}, error) {
	query := `
        SELECT author_name, COUNT(*) as comment_count, AVG(like_count) as avg_likes
        FROM comments
        WHERE like_count >= 100 AND scraped_at >= NOW() - INTERVAL '5 days'
        GROUP BY author_name
        ORDER BY comment_count DESC, avg_likes DESC
        LIMIT $1`

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top commenters: %w", err)
	}
	defer rows.Close()

	var authors []map[string]interface{}
	for rows.Next() {
		var authorName string
		var commentCount int
		var avgLikes float64

		err := rows.Scan(&authorName, &commentCount, &avgLikes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}

		authors = append(authors, map[string]interface{}{
			"author_name":   authorName,
			"comment_count": commentCount,
			"avg_likes":     avgLikes,
		})
	}

	return authors, nil
}

// GetEngagementTrends returns engagement trends over time
func (db *DB) GetEngagementTrends() ([]map[string]interface{}, error) {
	query := `
        SELECT
            DATE(scraped_at) as date,
            COUNT(*) as comments_count,
            AVG(like_count) as avg_likes,
            MAX(like_count) as max_likes
        FROM comments
        WHERE scraped_at >= NOW() - INTERVAL '30 days'
        GROUP BY DATE(scraped_at)
        ORDER BY date DESC`

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query engagement trends: %w", err)
	}
	defer rows.Close()

	var trends []map[string]interface{}
	for rows.Next() {
		var date string
		var commentsCount int
		var avgLikes, maxLikes float64

		err := rows.Scan(&date, &commentsCount, &avgLikes, &maxLikes)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trend: %w", err)
		}

		trends = append(trends, map[string]interface{}{
			"date":           date,
			"comments_count": commentsCount,
			"avg_likes":      avgLikes,
			"max_likes":      maxLikes,
		})
	}

	return trends, nil
}
