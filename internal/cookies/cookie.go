package cookies

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// TokenCookie is the anti-bot cookie required by the search endpoint.
const TokenCookie = "x_wbaas_token"

// UIDCookie is the visitor id cookie set on the first page load.
const UIDCookie = "_wbauid"

// Cookie is a browser cookie as stored in the cache file.
// Field names follow the WebDriver cookie JSON so cache files written by
// other tools load unchanged.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain,omitempty"`
	Path     string `json:"path,omitempty"`
	Expiry   int64  `json:"expiry,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	SameSite string `json:"sameSite,omitempty"`
}

// cacheFile is the on-disk layout of COOKIES_CACHE_FILE.
type cacheFile struct {
	Cookies []Cookie `json:"cookies"`

	// Timestamp is the harvest time in unix seconds with a fraction.
	Timestamp float64 `json:"timestamp"`
}

// hasCookie reports whether list contains a cookie called name.
func hasCookie(list []Cookie, name string) bool {
	for _, c := range list {
		if c.Name == name {
			return true
		}
	}
	return false
}

// cookieNames lists cookie names for logging; values never leave this package.
func cookieNames(list []Cookie) []string {
	names := make([]string, 0, len(list))
	for _, c := range list {
		names = append(names, c.Name)
	}
	return names
}

// ReadCache loads the cache file at path. It returns the cookies and the
// time they were harvested.
func ReadCache(path string) ([]Cookie, time.Time, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from COOKIES_CACHE_FILE
	if err != nil {
		return nil, time.Time{}, err
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse cookie cache: %w", err)
	}

	sec, frac := math.Modf(cf.Timestamp)
	return cf.Cookies, time.Unix(int64(sec), int64(frac*1e9)), nil
}

// writeCache stores cookies and their harvest time, creating parent directories.
func writeCache(path string, list []Cookie, harvested time.Time) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create cookie cache directory: %w", err)
		}
	}

	data, err := json.Marshal(cacheFile{
		Cookies:   list,
		Timestamp: float64(harvested.UnixNano()) / 1e9,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cookie cache: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookie cache: %w", err)
	}
	return os.Rename(tmp, path)
}
