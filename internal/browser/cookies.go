package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/playwright-community/playwright-go"
)

// cookieRecord is the on-disk cookie shape. Saved verbatim and reloaded on
// the next process start so a warmed identity survives restarts.
type cookieRecord struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
}

// CookieStore persists per-site cookie jars under the data directory.
type CookieStore struct {
	dir string
}

func NewCookieStore(dir string) (*CookieStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cookie dir: %w", err)
	}
	return &CookieStore{dir: dir}, nil
}

func (cs *CookieStore) path(site string) string {
	return filepath.Join(cs.dir, "cookies_"+site+".json")
}

// Save writes the session's cookies for the site. Write-then-rename so a
// crash mid-write never corrupts the previous jar.
func (cs *CookieStore) Save(site string, cookies []playwright.Cookie) error {
	records := make([]cookieRecord, 0, len(cookies))
	for _, c := range cookies {
		records = append(records, cookieRecord{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	tmp := cs.path(site) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := os.Rename(tmp, cs.path(site)); err != nil {
		return fmt.Errorf("failed to replace cookie file: %w", err)
	}
	return nil
}

// Load reads the saved jar for the site. A missing file is not an error.
func (cs *CookieStore) Load(site string) ([]playwright.OptionalCookie, error) {
	data, err := os.ReadFile(cs.path(site))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}

	var records []cookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse cookie file: %w", err)
	}

	cookies := make([]playwright.OptionalCookie, 0, len(records))
	for _, r := range records {
		r := r
		cookies = append(cookies, playwright.OptionalCookie{
			Name:     r.Name,
			Value:    r.Value,
			Domain:   &r.Domain,
			Path:     &r.Path,
			Expires:  &r.Expires,
			HttpOnly: &r.HTTPOnly,
			Secure:   &r.Secure,
		})
	}
	return cookies, nil
}
