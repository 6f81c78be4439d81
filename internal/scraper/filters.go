package scraper

import (
	"strings"
	"time"

	"tiktok-scraper/pkg/types"
)

// ApplyFilter applies the filter to a single comment
func ApplyFilter(comment *types.Comment, filter *types.CommentFilter) bool {
	// Check likes threshold
	if filter.MinLikes > 0 && comment.LikeCount < filter.MinLikes {
		return false
	}

	if filter.MaxLikes > 0 && comment.LikeCount > filter.MaxLikes {
		return false
	}

	// Check replies threshold
	if filter.MinReplies > 0 && comment.ReplyCount < filter.MinReplies {
		return false
	}

	// Check time range
	if filter.DaysBack > 0 {
		cutoffTime := time.Now().AddDate(0, 0, -filter.DaysBack)
		if comment.CreateTime.Before(cutoffTime) {
			return false
		}
	}

	// Check custom date range
	if !filter.StartDate.IsZero() && comment.CreateTime.Before(filter.StartDate) {
		return false
	}

	if !filter.EndDate.IsZero() && comment.CreateTime.After(filter.EndDate) {
		return false
	}

	// Check keywords (include)
	if len(filter.Keywords) > 0 {
		hasKeyword := false
		textLower := strings.ToLower(comment.Text)
		for _, keyword := range filter.Keywords {
			if strings.Contains(textLower, strings.ToLower(keyword)) {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword {
			return false
		}
	}

	// Check excluded keywords
	if len(filter.ExcludeKeywords) > 0 {
		textLower := strings.ToLower(comment.Text)
		for _, keyword := range filter.ExcludeKeywords {
			if strings.Contains(textLower, strings.ToLower(keyword)) {
				return false
			}
		}
	}

	// Check author names
	if len(filter.AuthorNames) > 0 {
		found := false
		for _, authorName := range filter.AuthorNames {
			if strings.EqualFold(comment.AuthorName, authorName) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// BatchFilter applies filters to multiple comments and returns statistics
func BatchFilter(comments []*types.Comment, filter *types.CommentFilter) ([]*types.Comment, types.FilterStats) {
	var filtered []*types.Comment
	stats := types.FilterStats{
		TotalComments: len(comments),
	}

	cutoffTime := time.Now().AddDate(0, 0, -filter.DaysBack)

	for _, comment := range comments {
		// Track individual filter reasons
		passedLikes := filter.MinLikes == 0 || comment.LikeCount >= filter.MinLikes
		passedTime := filter.DaysBack == 0 || comment.CreateTime.After(cutoffTime)
		passedKeywords := len(filter.Keywords) == 0 || containsAnyKeyword(comment.Text, filter.Keywords)

		if !passedLikes {
			stats.LikesFiltered++
		}
		if !passedTime {
			stats.TimeFiltered++
		}
		if !passedKeywords {
			stats.KeywordFiltered++
		}

		// Apply full filter
		if ApplyFilter(comment, filter) {
			filtered = append(filtered, comment)
		}
	}

	stats.FilteredComments = len(filtered)
	return filtered, stats
}

func containsAnyKeyword(content string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}

	contentLower := strings.ToLower(content)
	for _, keyword := range keywords {
		if strings.Contains(contentLower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
