// internal/scraper/auth.go
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HttpOnly bool   `json:"httpOnly"`
	Expires  string `json:"expires,omitempty"`
}

type AuthManager struct {
	client      *http.Client
	cookieJar   *cookiejar.Jar
	cookiesFile string
	userAgent   string
	cookies     []Cookie
	logger      *logrus.Logger
}

func NewAuthManager(cookiesFile, userAgent string, logger *logrus.Logger) (*AuthManager, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			DisableCompression:  false,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	return &AuthManager{
		client:      client,
		cookieJar:   jar,
		cookiesFile: cookiesFile,
		userAgent:   userAgent,
		logger:      logger,
	}, nil
}

func (am *AuthManager) LoadCookies() error {
	am.logger.Info("Loading cookies from file...")

	if _, err := os.Stat(am.cookiesFile); os.IsNotExist(err) {
		return fmt.Errorf("cookies file not found: %s", am.cookiesFile)
	}

	data, err := os.ReadFile(am.cookiesFile)
	if err != nil {
		return fmt.Errorf("failed to read cookies file: %w", err)
	}

	var cookieStore map[string][]Cookie
	if err := json.Unmarshal(data, &cookieStore); err != nil {
		return fmt.Errorf("failed to parse cookies file: %w", err)
	}

	tiktokCookies, exists := cookieStore["tiktok.com"]
	if !exists {
		return fmt.Errorf("no TikTok cookies found in cookies file")
	}

	ttURL, err := url.Parse("https://www.tiktok.com")
	if err != nil {
		return fmt.Errorf("failed to parse TikTok URL: %w", err)
	}

	var httpCookies []*http.Cookie
	for _, cookie := range tiktokCookies {
		httpCookie := &http.Cookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		}

		if cookie.Expires != "" {
			if expires, err := time.Parse(time.RFC3339, cookie.Expires); err == nil {
				httpCookie.Expires = expires
			}
		}

		httpCookies = append(httpCookies, httpCookie)
	}

	am.cookieJar.SetCookies(ttURL, httpCookies)
	am.cookies = tiktokCookies
	am.logger.Infof("Loaded %d cookies for TikTok", len(httpCookies))

	return am.validateCookieFormat()
}

// Cookies returns the loaded cookie set for installing into a browser
// session.
func (am *AuthManager) Cookies() []Cookie {
	return am.cookies
}

// SetCookiesAction installs the loaded cookies into a chromedp tab.
func (am *AuthManager) SetCookiesAction() chromedp.Action {
	return setCookiesAction(am.cookies)
}

// setCookiesAction builds the chromedp action behind both
// AuthManager.SetCookiesAction and ChromeDriver.SetCookies. Cookies
// without a domain or path get the TikTok defaults.
func setCookiesAction(cookies []Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, cookie := range cookies {
			domain := cookie.Domain
			if domain == "" {
				domain = ".tiktok.com"
			}
			path := cookie.Path
			if path == "" {
				path = "/"
			}
			err := network.SetCookie(cookie.Name, cookie.Value).
				WithDomain(domain).
				WithPath(path).
				WithSecure(cookie.Secure).
				WithHTTPOnly(cookie.HttpOnly).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", cookie.Name, err)
			}
		}
		return nil
	})
}

func (am *AuthManager) ValidateAuth() error {
	am.logger.Info("Validating TikTok authentication...")

	req, err := http.NewRequest("GET", "https://www.tiktok.com/foryou", nil)
	if err != nil {
		return fmt.Errorf("failed to create validation request: %w", err)
	}

	req.Header.Set("User-Agent", am.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := am.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to validate authentication: %w", err)
	}
	defer resp.Body.Close()

	am.logger.Infof("Validation response: Status=%d, URL=%s", resp.StatusCode, resp.Request.URL.String())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		am.logger.Warnf("Failed to read response body: %v", err)
	} else {
		bodyStr := string(body)
		am.logger.Debugf("Response body length: %d", len(bodyStr))

		if strings.Contains(bodyStr, "\"isLogin\":true") ||
			strings.Contains(bodyStr, "\"uid\":") {
			am.logger.Info("Authentication validated successfully")
			return nil
		}

		if strings.Contains(bodyStr, "login-modal") || strings.Contains(bodyStr, "\"isLogin\":false") {
			return fmt.Errorf("authentication failed: session not recognized, cookies may be expired")
		}

		if strings.Contains(bodyStr, "verify") && strings.Contains(bodyStr, "captcha") {
			return fmt.Errorf("authentication failed: captcha challenge required")
		}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		am.logger.Info("Authentication validated successfully")
		return nil
	case 401:
		return fmt.Errorf("authentication failed: unauthorized (401) - invalid session")
	case 403:
		return fmt.Errorf("authentication failed: forbidden (403) - account may be restricted")
	case 429:
		return fmt.Errorf("authentication failed: rate limited (429) - too many requests")
	default:
		return fmt.Errorf("authentication failed: status code %d", resp.StatusCode)
	}
}

// SaveCookies writes the current cookie set back to the cookies file.
// Values refreshed by the server during validation come from the jar;
// attributes the jar does not expose are kept from the loaded set.
func (am *AuthManager) SaveCookies() error {
	am.logger.Info("Saving current cookies...")

	ttURL, _ := url.Parse("https://www.tiktok.com")
	jarValues := make(map[string]string)
	for _, cookie := range am.cookieJar.Cookies(ttURL) {
		jarValues[cookie.Name] = cookie.Value
	}

	cookieData := make([]Cookie, 0, len(am.cookies))
	saved := make(map[string]bool)
	for _, cookie := range am.cookies {
		if value, ok := jarValues[cookie.Name]; ok {
			cookie.Value = value
		}
		cookieData = append(cookieData, cookie)
		saved[cookie.Name] = true
	}
	for name, value := range jarValues {
		if !saved[name] {
			cookieData = append(cookieData, Cookie{Name: name, Value: value})
		}
	}

	cookieStore := map[string][]Cookie{
		"tiktok.com": cookieData,
	}

	data, err := json.MarshalIndent(cookieStore, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	err = os.WriteFile(am.cookiesFile, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	am.logger.Infof("Saved %d cookies to file", len(cookieData))
	return nil
}

// Helper function to extract cookies from browser
func ExtractCookiesFromBrowser() {
	fmt.Println(`
To extract cookies from your browser:

1. Open TikTok in your browser and log in
2. Open Developer Tools (F12)
3. Go to Application/Storage tab
4. Click on Cookies -> https://www.tiktok.com
5. Copy the following cookie values:

Required cookies:
- sessionid: Your session token
- tt_csrf_token: CSRF protection token
- msToken: Request signing token (refreshed frequently)
- ttwid: Device identifier

6. Update the configs/cookies.json file with these values`)
}

func (am *AuthManager) validateCookieFormat() error {
	requiredCookies := []string{"sessionid", "tt_csrf_token"}
	cookieMap := make(map[string]Cookie)

	for _, cookie := range am.cookies {
		cookieMap[cookie.Name] = cookie
	}

	for _, required := range requiredCookies {
		cookie, exists := cookieMap[required]
		if !exists {
			return fmt.Errorf("missing required cookie: %s", required)
		}
		if cookie.Value == "" {
			return fmt.Errorf("empty value for required cookie: %s", required)
		}
	}

	am.logger.Info("Cookie format validation passed")
	return nil
}
