package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/firefox"
)

// SeleniumDriver is the Firefox/geckodriver fallback used when no
// Chrome binary is available. Network capture does not work through
// WebDriver, so this backend only supports page-source operations.
type SeleniumDriver struct {
	driver  selenium.WebDriver
	service *selenium.Service
	logger  *logrus.Logger
}

func NewSeleniumDriver(userAgent string, logger *logrus.Logger) (*SeleniumDriver, error) {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:91.0) Gecko/20100101 Firefox/91.0"
	}

	firefoxCaps := selenium.Capabilities{
		"browserName": "firefox",
	}

	firefoxOptions := firefox.Capabilities{
		Args: []string{
			"--headless",
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
		},
		Prefs: map[string]interface{}{
			"general.useragent.override": userAgent,
			"dom.webdriver.enabled":      false,
			"useAutomationExtension":     false,
		},
	}

	firefoxCaps.AddFirefox(firefoxOptions)

	const port = 4444
	opts := []selenium.ServiceOption{}
	selenium.SetDebug(false)

	service, err := selenium.NewGeckoDriverService("geckodriver", port, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start GeckoDriver service: %w", err)
	}

	driver, err := selenium.NewRemote(firefoxCaps, fmt.Sprintf("http://localhost:%d", port))
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	logger.Info("Using Firefox via WebDriver for browser automation")

	return &SeleniumDriver{
		driver:  driver,
		service: service,
		logger:  logger,
	}, nil
}

func (sd *SeleniumDriver) Navigate(ctx context.Context, url string) error {
	if err := sd.driver.Get(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (sd *SeleniumDriver) Scroll(ctx context.Context, deltaY int) error {
	script := fmt.Sprintf("window.scrollBy(0, %d);", deltaY)
	if _, err := sd.driver.ExecuteScript(script, nil); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

func (sd *SeleniumDriver) Click(ctx context.Context, selector string) error {
	elem, err := sd.driver.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return fmt.Errorf("failed to find %s: %w", selector, err)
	}
	if err := elem.Click(); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

func (sd *SeleniumDriver) PageSource(ctx context.Context) (string, error) {
	source, err := sd.driver.PageSource()
	if err != nil {
		return "", fmt.Errorf("failed to get page source: %w", err)
	}
	return source, nil
}

func (sd *SeleniumDriver) CurrentURL(ctx context.Context) (string, error) {
	url, err := sd.driver.CurrentURL()
	if err != nil {
		return "", fmt.Errorf("failed to get current URL: %w", err)
	}
	return url, nil
}

func (sd *SeleniumDriver) SetCookies(ctx context.Context, cookies []Cookie) error {
	for _, cookie := range cookies {
		domain := cookie.Domain
		if domain == "" {
			domain = ".tiktok.com"
		}
		if !strings.HasPrefix(domain, ".") && domain != "tiktok.com" {
			domain = "." + domain
		}

		seleniumCookie := &selenium.Cookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: domain,
			Path:   "/",
		}

		if err := sd.driver.AddCookie(seleniumCookie); err != nil {
			sd.logger.Warnf("Failed to set cookie %s: %v", cookie.Name, err)
			continue
		}
		sd.logger.Debugf("Successfully set cookie: %s for domain: %s", cookie.Name, domain)
	}
	return nil
}

func (sd *SeleniumDriver) Close() {
	if sd.driver != nil {
		sd.driver.Quit()
	}
	if sd.service != nil {
		sd.service.Stop()
	}
}
