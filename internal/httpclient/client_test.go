package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchReturnsPage(t *testing.T) {
	var gotUA, gotLang string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c, err := New(5 * time.Second)
	require.NoError(t, err)

	page, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, page.Body, "ok")
	assert.NotEmpty(t, gotUA)
	assert.Equal(t, "en-IN,en;q=0.9", gotLang)
}

func TestFetchNon2xxIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(5 * time.Second)
	require.NoError(t, err)

	page, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.True(t, page.ServerError())
}

func TestFetchCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(5 * time.Second)
	require.NoError(t, err)

	page, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, page.StatusCode)
	assert.Equal(t, 30*time.Second, page.RetryAfter)
}

func TestFetchSendsReferer(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
	}))
	defer srv.Close()

	c, err := New(5 * time.Second)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), Request{URL: srv.URL, Referer: "https://www.google.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/", gotReferer)
}

func TestRotateIdentityChangesUserAgent(t *testing.T) {
	c, err := New(5 * time.Second)
	require.NoError(t, err)

	before := c.profile.UserAgent
	c.RotateIdentity()
	assert.NotEqual(t, before, c.profile.UserAgent)
}

func TestRotateIdentityDropsCookies(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if _, err := r.Cookie("session"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "x"})
		}
	}))
	defer srv.Close()

	c, err := New(5 * time.Second)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Fetch(ctx, Request{URL: srv.URL})
	require.NoError(t, err)

	c.RotateIdentity()

	var hadCookie bool
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, cookieErr := r.Cookie("session")
		hadCookie = cookieErr == nil
	}))
	defer srv2.Close()

	_, err = c.Fetch(ctx, Request{URL: srv2.URL})
	require.NoError(t, err)
	assert.False(t, hadCookie)
}

func TestResolveShortURL(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer target.Close()

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/product/p/itm123", http.StatusMovedPermanently)
	}))
	defer short.Close()

	c, err := New(5 * time.Second)
	require.NoError(t, err)

	final, err := c.ResolveShortURL(context.Background(), short.URL)
	require.NoError(t, err)
	assert.Equal(t, target.URL+"/product/p/itm123", final)
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	p := BackoffPolicy{Base: time.Second, Max: 10 * time.Second}

	assert.Equal(t, time.Second, p.Delay(0, 0))
	assert.Equal(t, 2*time.Second, p.Delay(1, 0))
	assert.Equal(t, 4*time.Second, p.Delay(2, 0))
	assert.Equal(t, 10*time.Second, p.Delay(6, 0))
}

func TestBackoffHonorsLongerServerHint(t *testing.T) {
	p := BackoffPolicy{Base: time.Second, Max: 60 * time.Second}

	assert.Equal(t, 30*time.Second, p.Delay(0, 30*time.Second))
	// Short hints never shrink the computed delay.
	assert.Equal(t, 4*time.Second, p.Delay(2, time.Second))
}

func TestTransportDelayExceedsStatusDelay(t *testing.T) {
	p := BackoffPolicy{Base: time.Second, Max: 10 * time.Second}

	for attempt := 0; attempt < 3; attempt++ {
		assert.Greater(t, p.TransportDelay(attempt), p.Delay(attempt, 0),
			"attempt %d", attempt)
	}

	assert.Equal(t, 2*time.Second, p.TransportDelay(0))
	assert.Equal(t, 4*time.Second, p.TransportDelay(1))
	assert.Equal(t, 10*time.Second, p.TransportDelay(5))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 15*time.Second, parseRetryAfter("15"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("garbage"))
}
