package scraper

import (
	"context"

	"tiktok-scraper/internal/capture"
)

// PageDriver abstracts the browser backend so the scraping logic does
// not care whether pages are driven over DevTools or WebDriver.
type PageDriver interface {
	Navigate(ctx context.Context, url string) error
	Scroll(ctx context.Context, deltaY int) error
	Click(ctx context.Context, selector string) error
	PageSource(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
	Close()
}

// pagerAdapter exposes a PageDriver as a capture.Pager. The load-more
// selector is only consulted for click-driven pagination.
type pagerAdapter struct {
	driver           PageDriver
	loadMoreSelector string
}

func (p *pagerAdapter) Scroll(ctx context.Context, deltaY int) error {
	return p.driver.Scroll(ctx, deltaY)
}

func (p *pagerAdapter) ClickLoadMore(ctx context.Context) error {
	return p.driver.Click(ctx, p.loadMoreSelector)
}

var _ capture.Pager = (*pagerAdapter)(nil)
