package scraper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentListBody = `{
  "comments": [
    {
      "cid": "7001",
      "text": "great video",
      "aweme_id": "9001",
      "create_time": 1700000000,
      "digg_count": 42,
      "reply_comment_total": 2,
      "reply_id": "0",
      "user": {"uid": "u1", "nickname": "Alice", "unique_id": "alice"}
    },
    {
      "cid": "7002",
      "text": "agreed",
      "aweme_id": "9001",
      "create_time": 1700000100,
      "digg_count": 3,
      "reply_comment_total": 0,
      "reply_id": "7001",
      "user": {"uid": "u2", "nickname": "Bob", "unique_id": "bob"}
    },
    {
      "text": "no id, skipped"
    }
  ],
  "cursor": 20,
  "has_more": true
}`

func TestCommentsFromResponse(t *testing.T) {
	comments := CommentsFromResponse([]byte(commentListBody))
	require.Len(t, comments, 2)

	first := comments[0]
	assert.Equal(t, "7001", first.ID)
	assert.Empty(t, first.ParentID, "reply_id of 0 marks a top-level comment")
	assert.Equal(t, "9001", first.VideoID)
	assert.Equal(t, "great video", first.Text)
	assert.Equal(t, "u1", first.AuthorID)
	assert.Equal(t, "Alice", first.AuthorName)
	assert.Equal(t, 42, first.LikeCount)
	assert.Equal(t, 2, first.ReplyCount)
	assert.Equal(t, time.Unix(1700000000, 0), first.CreateTime)

	second := comments[1]
	assert.Equal(t, "7002", second.ID)
	assert.Equal(t, "7001", second.ParentID)
}

func TestCommentsFromResponseEmptyPayload(t *testing.T) {
	assert.Empty(t, CommentsFromResponse([]byte(`{"cursor":0,"has_more":false}`)))
	assert.Empty(t, CommentsFromResponse([]byte(`{}`)))
}

func TestItemsFromResponseItemList(t *testing.T) {
	body := `{
      "itemList": [
        {"id": "v1", "desc": "first", "createTime": 1700000000, "stats": {"diggCount": 10}},
        {"id": "v2", "desc": "second"},
        {"desc": "no id"}
      ],
      "hasMore": true
    }`

	items := ItemsFromResponse([]byte(body))
	require.Len(t, items, 2)
	assert.Equal(t, "v1", items[0].ID)
	assert.Equal(t, "first", items[0].Fields["desc"])
	assert.Equal(t, "v2", items[1].ID)
}

func TestItemsFromResponseItemsFallback(t *testing.T) {
	body := `{"items": [{"id": "r1"}, {"id": "r2"}]}`
	items := ItemsFromResponse([]byte(body))
	require.Len(t, items, 2)
	assert.Equal(t, "r1", items[0].ID)
}

const universalDataPage = `<html><head></head><body>
<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">{
  "__DEFAULT_SCOPE__": {
    "webapp.user-detail": {
      "userInfo": {
        "user": {
          "id": "12345",
          "uniqueId": "testuser",
          "nickname": "Test User",
          "secUid": "MS4wLjABAAAA_test",
          "signature": "hello",
          "verified": true,
          "avatarLarger": "https://cdn.example/avatar.jpg"
        },
        "stats": {
          "followerCount": 1000,
          "followingCount": 50,
          "videoCount": 12,
          "heartCount": 90000
        }
      }
    }
  }
}</script>
</body></html>`

func TestUserFromPageUniversalData(t *testing.T) {
	profile, err := UserFromPage(universalDataPage)
	require.NoError(t, err)

	assert.Equal(t, "12345", profile.ID)
	assert.Equal(t, "testuser", profile.Username)
	assert.Equal(t, "Test User", profile.Nickname)
	assert.Equal(t, "MS4wLjABAAAA_test", profile.SecUID)
	assert.Equal(t, "hello", profile.Signature)
	assert.True(t, profile.Verified)
	assert.Equal(t, 1000, profile.FollowerCount)
	assert.Equal(t, 50, profile.FollowingCount)
	assert.Equal(t, 12, profile.VideoCount)
	assert.Equal(t, 90000, profile.HeartCount)
}

const sigiStatePage = `<html><body>
<script id="SIGI_STATE" type="application/json">{
  "UserModule": {
    "users": {
      "legacyuser": {
        "id": "678",
        "uniqueId": "legacyuser",
        "nickname": "Legacy",
        "secUid": "MS4wLjABAAAA_legacy",
        "verified": false
      }
    },
    "stats": {
      "legacyuser": {"followerCount": 5, "followingCount": 2, "videoCount": 1, "heartCount": 9}
    }
  }
}</script>
</body></html>`

func TestUserFromPageSigiStateFallback(t *testing.T) {
	profile, err := UserFromPage(sigiStatePage)
	require.NoError(t, err)

	assert.Equal(t, "678", profile.ID)
	assert.Equal(t, "legacyuser", profile.Username)
	assert.Equal(t, 5, profile.FollowerCount)
	assert.Equal(t, 9, profile.HeartCount)
}

func TestUserFromPageNoState(t *testing.T) {
	_, err := UserFromPage(`<html><body><p>nothing here</p></body></html>`)
	assert.Error(t, err)
}
