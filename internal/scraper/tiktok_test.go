package scraper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiktok-scraper/internal/capture"
	"tiktok-scraper/internal/config"
	"tiktok-scraper/internal/ratelimit"
	"tiktok-scraper/pkg/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeDriver stands in for a browser backend.
type fakeDriver struct {
	scrolls   atomic.Int64
	clicks    atomic.Int64
	selectors []string
	// onClick runs after each click, with the 1-based click count.
	onClick func(n int64)
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error { return nil }

func (f *fakeDriver) Scroll(ctx context.Context, deltaY int) error {
	f.scrolls.Add(1)
	return nil
}

func (f *fakeDriver) Click(ctx context.Context, selector string) error {
	n := f.clicks.Add(1)
	f.selectors = append(f.selectors, selector)
	if f.onClick != nil {
		f.onClick(n)
	}
	return nil
}

func (f *fakeDriver) PageSource(ctx context.Context) (string, error) { return "", nil }

func (f *fakeDriver) CurrentURL(ctx context.Context) (string, error) { return "", nil }

func (f *fakeDriver) SetCookies(ctx context.Context, cookies []Cookie) error { return nil }

func (f *fakeDriver) Close() {}

func newTestScraper(driver PageDriver) *TikTokScraper {
	cfg := &config.Config{}
	cfg.Capture.MaxPages = 3
	cfg.Capture.MaxQuietRounds = 2
	return &TikTokScraper{
		cfg:    cfg,
		driver: driver,
		gate:   ratelimit.New(ratelimit.Config{PerMinute: 100, PerHour: 1000}, testLogger()),
		logger: testLogger(),
	}
}

func TestRefetchRepliesClicksViewReplies(t *testing.T) {
	driver := &fakeDriver{}
	ts := newTestScraper(driver)

	session := capture.NewFetchSession("video-1", []string{commentListPattern, commentReplyPattern})
	// A completed first round already filled the page budget.
	for i := 0; i < 3; i++ {
		session.Buffer().Append(capture.CapturedResponse{Body: []byte(`{"comments":[],"has_more":true}`)})
	}
	driver.onClick = func(n int64) {
		session.Buffer().Append(capture.CapturedResponse{Body: []byte(`{"comments":[],"has_more":true}`)})
	}

	status := ts.refetchReplies(context.Background(), session)

	assert.Equal(t, capture.StatusComplete, status)
	assert.Zero(t, driver.scrolls.Load(), "reply refetch must click expanders, not scroll")
	assert.Equal(t, int64(3), driver.clicks.Load())
	for _, sel := range driver.selectors {
		assert.Equal(t, viewRepliesSelector, sel)
	}
}

func TestRefetchRepliesCapturesWithFullPageBudget(t *testing.T) {
	driver := &fakeDriver{}
	ts := newTestScraper(driver)

	session := capture.NewFetchSession("video-2", []string{commentListPattern, commentReplyPattern})
	for i := 0; i < 3; i++ {
		session.Buffer().Append(capture.CapturedResponse{Body: []byte(`{"has_more":true}`)})
	}
	driver.onClick = func(n int64) {
		session.Buffer().Append(capture.CapturedResponse{Body: []byte(`{"has_more":true}`)})
	}

	before := session.Buffer().Len()
	ts.refetchReplies(context.Background(), session)

	assert.Equal(t, before+3, session.Buffer().Len(),
		"follow-up round must capture its own pages, not stop on the old count")
}

func TestApplyCommentFilter(t *testing.T) {
	ts := newTestScraper(&fakeDriver{})
	ts.filter = commentFilterFromConfig(config.FilterConfig{MinLikes: 10})

	comments := []*types.Comment{
		{ID: "1", LikeCount: 25, CreateTime: time.Now()},
		{ID: "2", LikeCount: 3, CreateTime: time.Now()},
	}

	kept := ts.applyCommentFilter(comments)
	require.Len(t, kept, 1)
	assert.Equal(t, "1", kept[0].ID)
}

func TestApplyCommentFilterUnconfigured(t *testing.T) {
	ts := newTestScraper(&fakeDriver{})

	comments := []*types.Comment{{ID: "1"}, {ID: "2"}}
	assert.Equal(t, comments, ts.applyCommentFilter(comments))
}

func TestCommentFilterFromConfig(t *testing.T) {
	assert.Nil(t, commentFilterFromConfig(config.FilterConfig{}))

	filter := commentFilterFromConfig(config.FilterConfig{Keywords: []string{"go"}, MinLikes: 5})
	require.NotNil(t, filter)
	assert.Equal(t, []string{"go"}, filter.Keywords)
	assert.Equal(t, 5, filter.MinLikes)
}

func TestListingPatternsMatchCaptureURLs(t *testing.T) {
	tests := []struct {
		url     string
		pattern string
	}{
		{"https://www.tiktok.com/api/comment/list/?aweme_id=1", commentListPattern},
		{"https://www.tiktok.com/api/comment/list/reply/?comment_id=7001", commentReplyPattern},
		{"https://www.tiktok.com/api/post/item_list/?count=35", postItemPattern},
		{"https://www.tiktok.com/api/repost/item_list/?count=30", repostItemPattern},
		{"https://www.tiktok.com/api/favorite/item_list/?count=30&cursor=0", favoriteItemPattern},
	}
	for _, tt := range tests {
		matched, ok := capture.MatchPattern(tt.url, []string{tt.pattern})
		require.True(t, ok, tt.url)
		assert.Equal(t, tt.pattern, matched)
	}
}
