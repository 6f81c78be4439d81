package scraper

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// ChromeDriver drives a headless Chrome tab over DevTools. The tab
// context it holds is the same one the network listener attaches to,
// so captured responses come from the pages this driver navigates.
type ChromeDriver struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	logger      *logrus.Logger
}

func NewChromeDriver(userAgent string, logger *logrus.Logger) (*ChromeDriver, error) {
	if !isChromeAvailable() {
		return nil, fmt.Errorf("no suitable Chrome binary found for automation")
	}

	if userAgent == "" {
		userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Printf),
	)

	// Materialize the browser process up front so failures surface
	// here rather than on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	logger.Info("Using Chrome for browser automation")

	return &ChromeDriver{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		logger:      logger,
	}, nil
}

// TabContext returns the DevTools tab context used for event capture.
func (cd *ChromeDriver) TabContext() context.Context {
	return cd.tabCtx
}

func (cd *ChromeDriver) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := context.WithTimeout(cd.tabCtx, 60*time.Second)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (cd *ChromeDriver) Scroll(ctx context.Context, deltaY int) error {
	runCtx, cancel := context.WithTimeout(cd.tabCtx, 15*time.Second)
	defer cancel()

	script := fmt.Sprintf("window.scrollBy(0, %d);", deltaY)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

func (cd *ChromeDriver) Click(ctx context.Context, selector string) error {
	runCtx, cancel := context.WithTimeout(cd.tabCtx, 15*time.Second)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (cd *ChromeDriver) PageSource(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(cd.tabCtx, 15*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to get page source: %w", err)
	}
	return html, nil
}

func (cd *ChromeDriver) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(cd.tabCtx, 15*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to get current URL: %w", err)
	}
	return url, nil
}

func (cd *ChromeDriver) SetCookies(ctx context.Context, cookies []Cookie) error {
	runCtx, cancel := context.WithTimeout(cd.tabCtx, 15*time.Second)
	defer cancel()

	return chromedp.Run(runCtx, setCookiesAction(cookies))
}

func (cd *ChromeDriver) Close() {
	cd.tabCancel()
	cd.allocCancel()
}

func isChromeAvailable() bool {
	paths := []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}
	for _, path := range paths {
		if _, err := exec.LookPath(path); err == nil {
			return true
		}
	}
	return false
}
