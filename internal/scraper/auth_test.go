package scraper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCookiesFile(t *testing.T, cookies []Cookie) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cookies.json")
	data, err := json.MarshalIndent(map[string][]Cookie{"tiktok.com": cookies}, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestLoadCookiesRequiresSessionCookies(t *testing.T) {
	path := writeCookiesFile(t, []Cookie{
		{Name: "ttwid", Value: "device", Domain: ".tiktok.com", Path: "/"},
	})

	am, err := NewAuthManager(path, "", testLogger())
	require.NoError(t, err)

	err = am.LoadCookies()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessionid")
}

func TestSaveCookiesRoundTrip(t *testing.T) {
	path := writeCookiesFile(t, []Cookie{
		{Name: "sessionid", Value: "abc", Domain: ".tiktok.com", Path: "/", Secure: true, HttpOnly: true},
		{Name: "tt_csrf_token", Value: "tok", Domain: ".tiktok.com", Path: "/"},
	})

	am, err := NewAuthManager(path, "", testLogger())
	require.NoError(t, err)
	require.NoError(t, am.LoadCookies())
	require.NoError(t, am.SaveCookies())

	// The written file must load cleanly with attributes intact.
	reloaded, err := NewAuthManager(path, "", testLogger())
	require.NoError(t, err)
	require.NoError(t, reloaded.LoadCookies())

	byName := make(map[string]Cookie)
	for _, cookie := range reloaded.Cookies() {
		byName[cookie.Name] = cookie
	}
	require.Len(t, byName, 2)
	assert.Equal(t, "abc", byName["sessionid"].Value)
	assert.Equal(t, ".tiktok.com", byName["sessionid"].Domain)
	assert.True(t, byName["sessionid"].Secure)
	assert.True(t, byName["sessionid"].HttpOnly)
	assert.Equal(t, "tok", byName["tt_csrf_token"].Value)
}
