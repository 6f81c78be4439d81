package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tiktok-scraper/internal/capture"
	"tiktok-scraper/internal/config"
	"tiktok-scraper/internal/database"
	"tiktok-scraper/internal/database/models"
	"tiktok-scraper/internal/ratelimit"
	"tiktok-scraper/pkg/types"
)

const (
	commentListPattern  = "/api/comment/list/"
	commentReplyPattern = "/api/comment/list/reply/"
	postItemPattern     = "/api/post/item_list/"
	repostItemPattern   = "/api/repost/item_list/"
	favoriteItemPattern = "/api/favorite/item_list/"

	// viewRepliesSelector matches the "View N replies" expanders under
	// truncated comment threads.
	viewRepliesSelector = `[data-e2e^="view-more"]`
)

// TikTokScraper coordinates a browser session, the network capture
// pipeline and persistence. One instance owns one browser and shares
// one rate gate across all fetches.
type TikTokScraper struct {
	cfg         *config.Config
	authManager *AuthManager
	chrome      *ChromeDriver
	driver      PageDriver
	gate        *ratelimit.RateGate
	db          *database.DB
	logger      *logrus.Logger
	filter      *types.CommentFilter

	lastSession *capture.FetchSession
}

func NewTikTokScraper(cfg *config.Config, logger *logrus.Logger, db *database.DB) (*TikTokScraper, error) {
	authManager, err := NewAuthManager(cfg.TikTok.Auth.CookiesFile, cfg.TikTok.Auth.UserAgent, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth manager: %w", err)
	}

	gate := ratelimit.New(ratelimit.Config{
		PerMinute: cfg.TikTok.RateLimit.RequestsPerMinute,
		PerHour:   cfg.TikTok.RateLimit.RequestsPerHour,
		MinDelay:  time.Duration(cfg.TikTok.RateLimit.MinDelaySeconds) * time.Second,
		Cooldown:  time.Duration(cfg.TikTok.RateLimit.CooldownSeconds) * time.Second,
	}, logger)

	return &TikTokScraper{
		cfg:         cfg,
		authManager: authManager,
		gate:        gate,
		db:          db,
		logger:      logger,
		filter:      commentFilterFromConfig(cfg.Scraper.Filter),
	}, nil
}

// commentFilterFromConfig builds the comment filter from the scraper
// config, or nil when no criteria are set.
func commentFilterFromConfig(fc config.FilterConfig) *types.CommentFilter {
	filter := &types.CommentFilter{
		MinLikes:        fc.MinLikes,
		MaxLikes:        fc.MaxLikes,
		MinReplies:      fc.MinReplies,
		DaysBack:        fc.DaysBack,
		Keywords:        fc.Keywords,
		ExcludeKeywords: fc.ExcludeKeywords,
		AuthorNames:     fc.AuthorNames,
	}
	if filter.MinLikes == 0 && filter.MaxLikes == 0 && filter.MinReplies == 0 &&
		filter.DaysBack == 0 && len(filter.Keywords) == 0 &&
		len(filter.ExcludeKeywords) == 0 && len(filter.AuthorNames) == 0 {
		return nil
	}
	return filter
}

func (ts *TikTokScraper) Initialize(ctx context.Context) error {
	ts.logger.Info("Initializing TikTok scraper...")

	if err := ts.authManager.LoadCookies(); err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}

	if err := ts.authManager.ValidateAuth(); err != nil {
		ts.logger.Warnf("Authentication validation failed: %v", err)
	}

	chrome, err := NewChromeDriver(ts.cfg.TikTok.Auth.UserAgent, ts.logger)
	if err == nil {
		ts.chrome = chrome
		ts.driver = chrome
	} else {
		ts.logger.Warnf("Chrome unavailable (%v), falling back to WebDriver", err)
		sel, selErr := NewSeleniumDriver(ts.cfg.TikTok.Auth.UserAgent, ts.logger)
		if selErr != nil {
			return fmt.Errorf("no browser backend available: %w", selErr)
		}
		ts.driver = sel
	}

	// Land on the site first so the cookie domain is established.
	if err := ts.driver.Navigate(ctx, ts.cfg.TikTok.BaseURL); err != nil {
		return fmt.Errorf("failed to open TikTok: %w", err)
	}
	if err := ts.driver.SetCookies(ctx, ts.authManager.Cookies()); err != nil {
		return fmt.Errorf("failed to install cookies: %w", err)
	}

	ts.logger.Info("TikTok scraper initialized successfully")
	return nil
}

// Status reports the outcome of the most recent fetch.
func (ts *TikTokScraper) Status() capture.Status {
	if ts.lastSession == nil {
		return ""
	}
	return ts.lastSession.Status()
}

// FetchComments captures the comment list payloads for a video and
// assembles them into a reply tree. Orphaned replies trigger one
// reply-fetch round on the same session, clicking the view-replies
// expanders so the reply list endpoint fires, before final assembly.
func (ts *TikTokScraper) FetchComments(ctx context.Context, videoID string) (roots, orphans []*types.Comment, err error) {
	session, listener, err := ts.startCapture(videoID, commentListPattern, commentReplyPattern)
	if err != nil {
		return nil, nil, err
	}
	defer listener.Stop()

	// The @_ author slug is a placeholder; TikTok resolves videos by ID.
	videoURL := fmt.Sprintf("%s/@_/video/%s", ts.cfg.TikTok.BaseURL, videoID)
	if err := ts.navigate(ctx, videoURL); err != nil {
		return nil, nil, err
	}

	pd := capture.NewPaginationDriver(ts.pager(""), ts.gate, ts.logger)
	status := pd.Run(ctx, session, capture.ActionScroll, ts.stopPolicy())
	if status == capture.StatusFailed {
		return nil, nil, fmt.Errorf("comment capture failed for video %s", videoID)
	}

	roots, orphans = capture.AssembleTree(session.Buffer().Snapshot(), CommentsFromResponse)

	if len(orphans) > 0 {
		ts.logger.Infof("Found %d orphaned replies, fetching reply lists", len(orphans))
		ts.refetchReplies(ctx, session)
		roots, orphans = capture.AssembleTree(session.Buffer().Snapshot(), CommentsFromResponse)
	}

	ts.logger.Infof("Assembled %d top-level comments (%d orphans) for video %s over %d pages",
		len(roots), len(orphans), videoID, session.Buffer().Len())

	roots = ts.applyCommentFilter(roots)

	if ts.db != nil {
		ts.persistComments(videoID, roots)
	}

	return roots, orphans, nil
}

// applyCommentFilter drops comments the configured filter rejects.
// A scraper without filter criteria keeps everything.
func (ts *TikTokScraper) applyCommentFilter(roots []*types.Comment) []*types.Comment {
	if ts.filter == nil {
		return roots
	}
	filtered, stats := BatchFilter(roots, ts.filter)
	ts.logger.Infof("Applied comment filter: %s", stats)
	return filtered
}

// refetchReplies runs a click-driven capture round over the reactivated
// session, expanding view-replies controls so the reply list payloads
// land in the same buffer. The round gets its own page budget.
func (ts *TikTokScraper) refetchReplies(ctx context.Context, session *capture.FetchSession) capture.Status {
	session.Reactivate()
	pd := capture.NewPaginationDriver(ts.pager(viewRepliesSelector), ts.gate, ts.logger)
	return pd.Run(ctx, session, capture.ActionClickLoadMore, ts.stopPolicy())
}

// FetchUserVideos captures the post listing of a user profile.
func (ts *TikTokScraper) FetchUserVideos(ctx context.Context, username string) ([]types.ListItem, error) {
	items, err := ts.fetchListing(ctx, username, postItemPattern)
	if err != nil {
		return nil, err
	}

	if ts.db != nil {
		ts.persistVideos(username, items)
	}
	return items, nil
}

// FetchLikedVideos captures a user's liked tab. The listing only
// exists for accounts that expose their likes publicly, and the items
// belong to other authors, so nothing is persisted.
func (ts *TikTokScraper) FetchLikedVideos(ctx context.Context, username string) ([]types.ListItem, error) {
	return ts.fetchListing(ctx, username, favoriteItemPattern)
}

// FetchReposts captures a user's repost tab. TikTok serves this
// listing unreliably; an empty capture on a loaded page is retried
// with a page refresh.
func (ts *TikTokScraper) FetchReposts(ctx context.Context, username string) ([]types.ListItem, error) {
	attempts := ts.cfg.Scraper.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	retryDelay := time.Duration(ts.cfg.Scraper.RetryDelay) * time.Second
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	var items []types.ListItem
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		items, err = ts.fetchListing(ctx, username, repostItemPattern)
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			return items, nil
		}

		ts.logger.Warnf("Repost capture for %s came back empty (attempt %d/%d), refreshing",
			username, attempt, attempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return items, nil
}

// FetchUserInfo parses the profile data embedded in the user page.
func (ts *TikTokScraper) FetchUserInfo(ctx context.Context, username string) (*types.UserProfile, error) {
	profileURL := fmt.Sprintf("%s/@%s", ts.cfg.TikTok.BaseURL, username)
	if err := ts.navigate(ctx, profileURL); err != nil {
		return nil, err
	}

	html, err := ts.driver.PageSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile page: %w", err)
	}

	profile, err := UserFromPage(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile for %s: %w", username, err)
	}
	return profile, nil
}

func (ts *TikTokScraper) Close() {
	if ts.driver != nil {
		ts.driver.Close()
	}
}

func (ts *TikTokScraper) fetchListing(ctx context.Context, username, pattern string) ([]types.ListItem, error) {
	session, listener, err := ts.startCapture(username, pattern)
	if err != nil {
		return nil, err
	}
	defer listener.Stop()

	profileURL := fmt.Sprintf("%s/@%s", ts.cfg.TikTok.BaseURL, username)
	if err := ts.navigate(ctx, profileURL); err != nil {
		return nil, err
	}

	pd := capture.NewPaginationDriver(ts.pager(""), ts.gate, ts.logger)
	status := pd.Run(ctx, session, capture.ActionScroll, ts.stopPolicy())
	if status == capture.StatusFailed {
		return nil, fmt.Errorf("listing capture failed for %s", username)
	}

	items := capture.AssembleList(session.Buffer().Snapshot(), ItemsFromResponse)
	ts.logger.Infof("Assembled %d items for %s over %d pages", len(items), username, session.Buffer().Len())
	return items, nil
}

func (ts *TikTokScraper) startCapture(targetID string, patterns ...string) (*capture.FetchSession, *capture.NetworkListener, error) {
	if ts.chrome == nil {
		return nil, nil, fmt.Errorf("network capture requires the Chrome backend")
	}

	session := capture.NewFetchSession(targetID, patterns)
	listener := capture.NewNetworkListener(ts.chrome.TabContext(), session, ts.logger, capture.ListenerConfig{
		QueueSize: ts.cfg.Capture.QueueSize,
	})
	if err := listener.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start network listener: %w", err)
	}

	ts.lastSession = session
	return session, listener, nil
}

func (ts *TikTokScraper) navigate(ctx context.Context, url string) error {
	if err := ts.gate.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("rate gate rejected navigation: %w", err)
	}
	if err := ts.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (ts *TikTokScraper) pager(loadMoreSelector string) capture.Pager {
	return &pagerAdapter{driver: ts.driver, loadMoreSelector: loadMoreSelector}
}

func (ts *TikTokScraper) stopPolicy() capture.StopPolicy {
	return capture.StopPolicy{
		MaxPages:       ts.cfg.Capture.MaxPages,
		MaxQuietRounds: ts.cfg.Capture.MaxQuietRounds,
		QuietTimeout:   time.Duration(ts.cfg.Capture.QuietTimeoutSecs) * time.Second,
		HardCeiling:    time.Duration(ts.cfg.Capture.HardCeilingSeconds) * time.Second,
	}
}

func (ts *TikTokScraper) persistComments(videoID string, roots []*types.Comment) {
	saved := 0
	var save func(c *types.Comment)
	save = func(c *types.Comment) {
		row := &models.Comment{
			ID:         c.ID,
			VideoID:    videoID,
			ParentID:   c.ParentID,
			Text:       c.Text,
			AuthorID:   c.AuthorID,
			AuthorName: c.AuthorName,
			LikeCount:  c.LikeCount,
			ReplyCount: c.ReplyCount,
			CreateTime: c.CreateTime,
			ScrapedAt:  time.Now(),
		}
		if err := ts.db.SaveComment(row); err != nil {
			ts.logger.Warnf("Failed to save comment %s: %v", c.ID, err)
		} else {
			saved++
		}
		for _, reply := range c.Replies {
			save(reply)
		}
	}
	for _, c := range roots {
		save(c)
	}
	ts.logger.Infof("Saved %d comments for video %s", saved, videoID)
}

func (ts *TikTokScraper) persistVideos(username string, items []types.ListItem) {
	saved := 0
	for _, item := range items {
		row := models.VideoFromFields(item.ID, username, item.Fields)
		if err := ts.db.SaveVideo(row); err != nil {
			ts.logger.Warnf("Failed to save video %s: %v", item.ID, err)
			continue
		}
		saved++
	}
	ts.logger.Infof("Saved %d videos for user %s", saved, username)
}
