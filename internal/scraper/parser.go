package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"tiktok-scraper/pkg/types"
)

// CommentsFromResponse extracts comments from a captured comment list
// payload. A reply_id of "0" marks a top-level comment in TikTok
// responses and is normalized to an empty ParentID.
func CommentsFromResponse(body []byte) []*types.Comment {
	var comments []*types.Comment

	gjson.GetBytes(body, "comments").ForEach(func(_, item gjson.Result) bool {
		id := item.Get("cid").String()
		if id == "" {
			return true
		}

		parentID := item.Get("reply_id").String()
		if parentID == "0" {
			parentID = ""
		}

		comments = append(comments, &types.Comment{
			ID:         id,
			ParentID:   parentID,
			VideoID:    item.Get("aweme_id").String(),
			Text:       item.Get("text").String(),
			AuthorID:   item.Get("user.uid").String(),
			AuthorName: item.Get("user.nickname").String(),
			LikeCount:  int(item.Get("digg_count").Int()),
			ReplyCount: int(item.Get("reply_comment_total").Int()),
			CreateTime: time.Unix(item.Get("create_time").Int(), 0),
		})
		return true
	})

	return comments
}

// ItemsFromResponse extracts list entries from a captured item list
// payload. TikTok uses itemList for post listings and items for some
// repost endpoints.
func ItemsFromResponse(body []byte) []types.ListItem {
	root := gjson.GetBytes(body, "itemList")
	if !root.Exists() {
		root = gjson.GetBytes(body, "items")
	}
	if !root.Exists() {
		root = gjson.GetBytes(body, "data")
	}

	var items []types.ListItem
	root.ForEach(func(_, item gjson.Result) bool {
		id := item.Get("id").String()
		if id == "" {
			return true
		}

		fields := make(map[string]interface{})
		item.ForEach(func(key, value gjson.Result) bool {
			fields[key.String()] = value.Value()
			return true
		})

		items = append(items, types.ListItem{
			ID:     id,
			Fields: fields,
		})
		return true
	})

	return items
}

// UserFromPage parses a profile from the server-rendered user page.
// Recent pages embed state in __UNIVERSAL_DATA_FOR_REHYDRATION__;
// older ones use SIGI_STATE.
func UserFromPage(html string) (*types.UserProfile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse user page: %w", err)
	}

	if raw := doc.Find("script#__UNIVERSAL_DATA_FOR_REHYDRATION__").Text(); raw != "" {
		user := gjson.Get(raw, "__DEFAULT_SCOPE__.webapp\\.user-detail.userInfo")
		if user.Exists() {
			return profileFromUserInfo(user), nil
		}
	}

	if raw := doc.Find("script#SIGI_STATE").Text(); raw != "" {
		users := gjson.Get(raw, "UserModule.users")
		stats := gjson.Get(raw, "UserModule.stats")
		var profile *types.UserProfile
		users.ForEach(func(key, user gjson.Result) bool {
			profile = &types.UserProfile{
				ID:        user.Get("id").String(),
				Username:  user.Get("uniqueId").String(),
				Nickname:  user.Get("nickname").String(),
				SecUID:    user.Get("secUid").String(),
				Signature: user.Get("signature").String(),
				Verified:  user.Get("verified").Bool(),
				AvatarURL: user.Get("avatarLarger").String(),
			}
			if s := stats.Get(key.String()); s.Exists() {
				profile.FollowerCount = int(s.Get("followerCount").Int())
				profile.FollowingCount = int(s.Get("followingCount").Int())
				profile.VideoCount = int(s.Get("videoCount").Int())
				profile.HeartCount = int(s.Get("heartCount").Int())
			}
			return false
		})
		if profile != nil {
			return profile, nil
		}
	}

	return nil, fmt.Errorf("no embedded user state found in page")
}

func profileFromUserInfo(userInfo gjson.Result) *types.UserProfile {
	user := userInfo.Get("user")
	stats := userInfo.Get("stats")
	return &types.UserProfile{
		ID:             user.Get("id").String(),
		Username:       user.Get("uniqueId").String(),
		Nickname:       user.Get("nickname").String(),
		SecUID:         user.Get("secUid").String(),
		Signature:      user.Get("signature").String(),
		Verified:       user.Get("verified").Bool(),
		AvatarURL:      user.Get("avatarLarger").String(),
		FollowerCount:  int(stats.Get("followerCount").Int()),
		FollowingCount: int(stats.Get("followingCount").Int()),
		VideoCount:     int(stats.Get("videoCount").Int()),
		HeartCount:     int(stats.Get("heartCount").Int()),
	}
}
