package browser

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/price-tracker/internal/models"
)

// ErrPoolExhausted is returned when every session is checked out. Callers
// treat it like any other unavailable-browser failure and fall back to the
// remaining strategies.
var ErrPoolExhausted = errors.New("all browser sessions are checked out")

// PooledSession is what the pool hands out. Satisfied by *Session; tests
// substitute fakes.
type PooledSession interface {
	Render(url string) (*models.Page, error)
	ResolveURL(shortURL string) (string, error)
	Alive() bool
	Age() time.Duration
	Close()
}

// Pool keeps a bounded set of reusable browser sessions. Sessions past
// their TTL are evicted and replaced rather than reused, bounding memory
// growth from long-lived automation processes.
type Pool struct {
	mu      sync.Mutex
	idle    []PooledSession
	live    int
	size    int
	ttl     time.Duration
	factory func() (PooledSession, error)
	closed  bool

	pw      *playwright.Playwright
	opts    *Options
	agents  []string
	cookies *CookieStore
	sites   []string
	logger  *slog.Logger
}

// NewPool starts the browser engine and prepares the session factory. A
// browser engine that cannot start at all is a configuration error for the
// whole browser strategy, returned here rather than retried.
func NewPool(opts *Options, size int, ttl time.Duration, userAgents []string, cookies *CookieStore, sites []string) (*Pool, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if size < 1 {
		size = 1
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	p := &Pool{
		size:    size,
		ttl:     ttl,
		pw:      pw,
		opts:    opts,
		agents:  userAgents,
		cookies: cookies,
		sites:   sites,
		logger:  slog.Default().With("component", "browser_pool"),
	}
	p.factory = p.createSession
	return p, nil
}

func (p *Pool) createSession() (PooledSession, error) {
	opts := *p.opts
	if len(p.agents) > 0 {
		opts.UserAgent = p.agents[rand.Intn(len(p.agents))]
	}

	session, err := newSession(p.pw, &opts)
	if err != nil {
		return nil, err
	}

	if p.cookies != nil {
		for _, site := range p.sites {
			saved, err := p.cookies.Load(site)
			if err != nil {
				p.logger.Warn("failed to load cookie jar", "site", site, "error", err)
				continue
			}
			if err := session.addCookies(saved); err != nil {
				p.logger.Warn("failed to apply cookie jar", "site", site, "error", err)
			}
		}
	}

	p.logger.Debug("created browser session", "user_agent", opts.UserAgent)
	return session, nil
}

// Acquire returns a healthy pooled session, creating one when none is
// available and the live-session bound allows it. Expired or dead sessions
// found on the way are discarded. live counts every session the pool has
// handed out and not yet closed, so concurrent acquires can never push the
// number of browser processes past size.
func (p *Pool) Acquire() (PooledSession, error) {
	p.mu.Lock()
	for len(p.idle) > 0 {
		session := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if session.Alive() && session.Age() < p.ttl {
			p.mu.Unlock()
			return session, nil
		}

		p.live--
		p.mu.Unlock()
		p.discard(session)
		p.mu.Lock()
	}

	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("pool is closed")
	}
	if p.live >= p.size {
		p.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	p.live++
	p.mu.Unlock()

	session, err := p.factory()
	if err != nil {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
		return nil, err
	}
	return session, nil
}

// Release returns a session to the pool, or discards it when it is dead,
// expired, or the pool is already full.
func (p *Pool) Release(session PooledSession) {
	if session == nil {
		return
	}

	p.mu.Lock()
	keep := !p.closed && session.Alive() && session.Age() < p.ttl && len(p.idle) < p.size
	if keep {
		p.idle = append(p.idle, session)
	} else {
		p.live--
	}
	p.mu.Unlock()

	if !keep {
		p.discard(session)
	}
}

// discard persists the session's cookie jar before closing it so the next
// session starts with whatever trust this one earned.
func (p *Pool) discard(session PooledSession) {
	p.saveCookies(session)
	session.Close()
}

func (p *Pool) saveCookies(session PooledSession) {
	real, ok := session.(*Session)
	if !ok || p.cookies == nil || !real.Alive() {
		return
	}

	all, err := real.cookies()
	if err != nil {
		p.logger.Debug("failed to read session cookies", "error", err)
		return
	}

	for _, site := range p.sites {
		var matched []playwright.Cookie
		for _, c := range all {
			if strings.Contains(c.Domain, site) {
				matched = append(matched, c)
			}
		}
		if len(matched) == 0 {
			continue
		}
		if err := p.cookies.Save(site, matched); err != nil {
			p.logger.Warn("failed to save cookie jar", "site", site, "error", err)
		}
	}
}

// IdleCount reports pooled sessions, for logging and tests.
func (p *Pool) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// LiveCount reports sessions currently alive, checked out or idle.
func (p *Pool) LiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.live -= len(idle)
	p.mu.Unlock()

	for _, session := range idle {
		p.discard(session)
	}

	if p.pw != nil {
		if err := p.pw.Stop(); err != nil {
			p.logger.Debug("failed to stop playwright", "error", err)
		}
	}
}
