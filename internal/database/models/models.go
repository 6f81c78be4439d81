package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Comment struct {
	ID         string    `json:"id" db:"id"`
	VideoID    string    `json:"video_id" db:"video_id"`
	ParentID   string    `json:"parent_id" db:"parent_id"`
	Text       string    `json:"text" db:"text"`
	AuthorID   string    `json:"author_id" db:"author_id"`
	AuthorName string    `json:"author_name" db:"author_name"`
	LikeCount  int       `json:"like_count" db:"like_count"`
	ReplyCount int       `json:"reply_count" db:"reply_count"`
	CreateTime time.Time `json:"create_time" db:"create_time"`
	ScrapedAt  time.Time `json:"scraped_at" db:"scraped_at"`
}

type Video struct {
	ID           string      `json:"id" db:"id"`
	Username     string      `json:"username" db:"username"`
	Description  string      `json:"description" db:"description"`
	CreateTime   time.Time   `json:"create_time" db:"create_time"`
	LikeCount    int         `json:"like_count" db:"like_count"`
	CommentCount int         `json:"comment_count" db:"comment_count"`
	ShareCount   int         `json:"share_count" db:"share_count"`
	PlayCount    int         `json:"play_count" db:"play_count"`
	Hashtags     StringArray `json:"hashtags" db:"hashtags"`
	ScrapedAt    time.Time   `json:"scraped_at" db:"scraped_at"`
}

// VideoFromFields builds a Video row from a captured listing entry.
// The field layout follows TikTok's item list payloads.
func VideoFromFields(id, username string, fields map[string]interface{}) *Video {
	v := &Video{
		ID:        id,
		Username:  username,
		ScrapedAt: time.Now(),
	}

	if desc, ok := fields["desc"].(string); ok {
		v.Description = desc
	}
	if ct, ok := asInt64(fields["createTime"]); ok {
		v.CreateTime = time.Unix(ct, 0)
	}

	if stats, ok := fields["stats"].(map[string]interface{}); ok {
		if n, ok := asInt64(stats["diggCount"]); ok {
			v.LikeCount = int(n)
		}
		if n, ok := asInt64(stats["commentCount"]); ok {
			v.CommentCount = int(n)
		}
		if n, ok := asInt64(stats["shareCount"]); ok {
			v.ShareCount = int(n)
		}
		if n, ok := asInt64(stats["playCount"]); ok {
			v.PlayCount = int(n)
		}
	}

	if challenges, ok := fields["challenges"].([]interface{}); ok {
		for _, c := range challenges {
			if m, ok := c.(map[string]interface{}); ok {
				if title, ok := m["title"].(string); ok && title != "" {
					v.Hashtags = append(v.Hashtags, title)
				}
			}
		}
	}

	return v
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// StringArray for handling JSON arrays in PostgreSQL
type StringArray []string

func (sa StringArray) Value() (driver.Value, error) {
	if len(sa) == 0 {
		return "[]", nil
	}
	return json.Marshal(sa)
}

func (sa *StringArray) Scan(value interface{}) error {
	if value == nil {
		*sa = StringArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, sa)
}
