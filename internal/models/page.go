package models

import "time"

// Page is one fetched document, however it was obtained. The engine
// classifies it and hands the body to the extractors; it is never stored.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       string

	// RetryAfter carries a server-provided backoff hint (429 responses).
	// Zero when absent.
	RetryAfter time.Duration
}

// OK reports whether the response status is in the 2xx range.
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// ServerError reports whether the response status is in the 5xx range.
func (p *Page) ServerError() bool {
	return p.StatusCode >= 500
}
