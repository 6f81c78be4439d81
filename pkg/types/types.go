package types

import (
	"fmt"
	"time"
)

// Comment is a single comment captured from the comment list API.
// After assembly, replies are nested under their parent comment and
// ParentID is empty for top-level comments.
type Comment struct {
	ID         string     `json:"id"`
	ParentID   string     `json:"parent_id,omitempty"`
	VideoID    string     `json:"video_id"`
	Text       string     `json:"text"`
	AuthorID   string     `json:"author_id"`
	AuthorName string     `json:"author_name"`
	LikeCount  int        `json:"like_count"`
	ReplyCount int        `json:"reply_count"`
	CreateTime time.Time  `json:"create_time"`
	Replies    []*Comment `json:"replies,omitempty"`
}

// ListItem is one entry of a flat paginated listing (user videos,
// reposts, liked videos). Ordinal is the first-seen position across
// all captured pages. Fields holds the raw payload fields.
type ListItem struct {
	ID      string                 `json:"id"`
	Ordinal int                    `json:"ordinal"`
	Fields  map[string]interface{} `json:"fields"`
}

// UserProfile holds the profile data extracted from a user page.
type UserProfile struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Nickname       string `json:"nickname"`
	SecUID         string `json:"sec_uid"`
	Signature      string `json:"signature"`
	Verified       bool   `json:"verified"`
	AvatarURL      string `json:"avatar_url"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	VideoCount     int    `json:"video_count"`
	HeartCount     int    `json:"heart_count"`
}

type CommentFilter struct {
	MinLikes        int       `json:"min_likes"`
	MaxLikes        int       `json:"max_likes"`
	MinReplies      int       `json:"min_replies"`
	DaysBack        int       `json:"days_back"`
	Keywords        []string  `json:"keywords"`
	ExcludeKeywords []string  `json:"exclude_keywords"`
	AuthorNames     []string  `json:"author_names"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

type FilterStats struct {
	TotalComments    int `json:"total_comments"`
	FilteredComments int `json:"filtered_comments"`
	LikesFiltered    int `json:"likes_filtered"`
	TimeFiltered     int `json:"time_filtered"`
	KeywordFiltered  int `json:"keyword_filtered"`
}

func (fs FilterStats) String() string {
	return fmt.Sprintf("Total: %d, Filtered: %d, Likes: %d, Time: %d, Keywords: %d",
		fs.TotalComments, fs.FilteredComments, fs.LikesFiltered, fs.TimeFiltered, fs.KeywordFiltered)
}
