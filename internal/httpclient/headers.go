package httpclient

import "net/http"

// Profile is one coherent browser identity. Headers are always sent as a
// matched set; mixing a Chrome user agent with Firefox client hints is an
// easy fingerprint.
type Profile struct {
	UserAgent     string
	SecChUA       string
	SecChUAMobile string
	Platform      string
}

var desktopProfiles = []Profile{
	{
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		SecChUA:       `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
		SecChUAMobile: "?0",
		Platform:      `"Windows"`,
	},
	{
		UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		SecChUA:       `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
		SecChUAMobile: "?0",
		Platform:      `"macOS"`,
	},
	{
		UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		SecChUA:       `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
		SecChUAMobile: "?0",
		Platform:      `"Linux"`,
	},
	{
		// Firefox sends no client hints at all.
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	},
	{
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	},
}

var mobileProfiles = []Profile{
	{
		UserAgent:     "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		SecChUA:       `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`,
		SecChUAMobile: "?1",
		Platform:      `"Android"`,
	},
	{
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	},
}

// apply sets the full header set for the profile on the request. The
// Accept-Language stays pinned to Indian English so pages render rupee
// prices regardless of where the tracker runs.
func (p Profile) apply(req *http.Request, referer string) {
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")

	if p.SecChUA != "" {
		req.Header.Set("Sec-Ch-Ua", p.SecChUA)
		req.Header.Set("Sec-Ch-Ua-Mobile", p.SecChUAMobile)
		req.Header.Set("Sec-Ch-Ua-Platform", p.Platform)
		req.Header.Set("Sec-Fetch-Dest", "document")
		req.Header.Set("Sec-Fetch-Mode", "navigate")
		req.Header.Set("Sec-Fetch-User", "?1")
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
		if p.SecChUA != "" {
			req.Header.Set("Sec-Fetch-Site", "same-origin")
		}
	} else if p.SecChUA != "" {
		req.Header.Set("Sec-Fetch-Site", "none")
	}
}
