// Package fetcher turns a (url, selector) pair into extracted text by
// driving a pool of headless browsers.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"
)

var (
	// ErrPoolExhausted is returned when all browsers are in use and the pool is at max capacity.
	ErrPoolExhausted = errors.New("fetcher: browser pool exhausted")
	// ErrPoolClosed is returned when trying to use a closed pool.
	ErrPoolClosed = errors.New("fetcher: browser pool is closed")
)

// PoolConfig configures browser lifecycle and capacity. Field names mirror
// scraper.* options in the configuration surface (§6).
type PoolConfig struct {
	MaxConcurrent int // scraper.max_concurrent_checks, capped at 3
	ChromePath    string
	MaxAge        time.Duration
	MaxRequests   int
	IdleTimeout   time.Duration
	RatePerSecond float64 // max navigations/sec across the whole pool
	RateBurst     int
}

// managedBrowser wraps a rod.Browser with pool bookkeeping.
type managedBrowser struct {
	id           string
	browser      *rod.Browser
	inUse        bool
	createdAt    time.Time
	lastUsedAt   time.Time
	requestCount int
}

// Pool manages a bounded set of headless browser instances shared across
// concurrent source checks.
type Pool struct {
	mu       sync.RWMutex
	browsers map[string]*managedBrowser
	waiting  []chan *managedBrowser
	cfg      PoolConfig
	logger   *slog.Logger
	closed   bool
	limiter  *rate.Limiter

	ready     bool
	readyChan chan struct{}
}

const maxPoolConcurrency = 3 // resource policy cap, §5

// NewPool creates a browser pool. MaxConcurrent is clamped to the resource
// policy cap of 3 regardless of configuration.
func NewPool(cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.MaxConcurrent <= 0 || cfg.MaxConcurrent > maxPoolConcurrency {
		cfg.MaxConcurrent = maxPoolConcurrency
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 30 * time.Minute
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 100
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = float64(cfg.MaxConcurrent)
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = cfg.MaxConcurrent
	}
	return &Pool{
		browsers:  make(map[string]*managedBrowser),
		cfg:       cfg,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		readyChan: make(chan struct{}),
	}
}

// Ready reports whether warmup has completed.
func (p *Pool) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ready
}

// WaitReady blocks until warmup completes or ctx is done.
func (p *Pool) WaitReady(ctx context.Context) error {
	select {
	case <-p.readyChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Warmup ensures Chromium is available and optionally pre-creates browsers.
func (p *Pool) Warmup(ctx context.Context, preCreate int) error {
	p.logger.Info("warming up fetcher browser pool")

	if p.cfg.ChromePath == "" {
		browserPath, err := launcher.NewBrowser().Get()
		if err != nil {
			return err
		}
		p.logger.Info("chromium ready", "path", browserPath)
	}

	if preCreate > p.cfg.MaxConcurrent {
		preCreate = p.cfg.MaxConcurrent
	}
	for i := 0; i < preCreate; i++ {
		b, err := p.createBrowser()
		if err != nil {
			return err
		}
		b.inUse = false
		p.mu.Lock()
		p.browsers[b.id] = b
		p.mu.Unlock()
	}

	p.mu.Lock()
	p.ready = true
	close(p.readyChan)
	p.mu.Unlock()
	return nil
}

// acquire gets a browser from the pool, creating one if under capacity,
// otherwise blocking until one is released. Callers are also throttled to
// the pool's navigation rate limit before a browser is handed out.
func (p *Pool) acquire(ctx context.Context) (*managedBrowser, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	for _, b := range p.browsers {
		if !b.inUse && p.isHealthy(b) {
			b.inUse = true
			b.lastUsedAt = time.Now()
			p.mu.Unlock()
			return b, nil
		}
	}

	if len(p.browsers) < p.cfg.MaxConcurrent {
		b, err := p.createBrowser()
		if err != nil {
			p.mu.Unlock()
			return nil, err
		}
		p.browsers[b.id] = b
		p.mu.Unlock()
		return b, nil
	}

	waitChan := make(chan *managedBrowser, 1)
	p.waiting = append(p.waiting, waitChan)
	p.mu.Unlock()

	select {
	case b, ok := <-waitChan:
		if !ok {
			return nil, ErrPoolClosed
		}
		return b, nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, ch := range p.waiting {
			if ch == waitChan {
				p.waiting = append(p.waiting[:i], p.waiting[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

// release returns a browser to the pool, recycling it first if it has
// exceeded its age or request budget.
func (p *Pool) release(b *managedBrowser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.closeBrowser(b)
		return
	}

	b.inUse = false
	b.requestCount++
	b.lastUsedAt = time.Now()

	if p.needsRecycle(b) {
		p.closeBrowser(b)
		delete(p.browsers, b.id)
		return
	}

	if len(p.waiting) > 0 {
		waitChan := p.waiting[0]
		p.waiting = p.waiting[1:]
		b.inUse = true
		b.lastUsedAt = time.Now()
		waitChan <- b
	}
}

// Close shuts down all browsers and releases waiters.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, b := range p.browsers {
		p.closeBrowser(b)
	}
	p.browsers = make(map[string]*managedBrowser)
	for _, ch := range p.waiting {
		close(ch)
	}
	p.waiting = nil
}

// Stats reports current pool occupancy.
type Stats struct {
	Total     int
	InUse     int
	Available int
	MaxSize   int
	Waiting   int
	Ready     bool
}

func (p *Pool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := Stats{Total: len(p.browsers), MaxSize: p.cfg.MaxConcurrent, Waiting: len(p.waiting), Ready: p.ready}
	for _, b := range p.browsers {
		if b.inUse {
			s.InUse++
		} else {
			s.Available++
		}
	}
	return s
}

func (p *Pool) createBrowser() (*managedBrowser, error) {
	l := launcher.New()
	if p.cfg.ChromePath != "" {
		l = l.Bin(p.cfg.ChromePath)
	}
	l = l.
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("window-size", "1920,1080").
		Set("lang", "en-US,en")

	u, err := l.Launch()
	if err != nil {
		return nil, err
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, err
	}

	id := ulid.Make().String()
	p.logger.Info("browser created", "id", id)
	return &managedBrowser{
		id:         id,
		browser:    b,
		inUse:      true,
		createdAt:  time.Now(),
		lastUsedAt: time.Now(),
	}, nil
}

func (p *Pool) isHealthy(b *managedBrowser) bool {
	if time.Since(b.createdAt) > p.cfg.MaxAge {
		return false
	}
	if b.requestCount >= p.cfg.MaxRequests {
		return false
	}
	if !b.inUse && time.Since(b.lastUsedAt) > p.cfg.IdleTimeout {
		return false
	}
	defer func() { recover() }()
	_, err := b.browser.Pages()
	return err == nil
}

func (p *Pool) needsRecycle(b *managedBrowser) bool {
	return time.Since(b.createdAt) > p.cfg.MaxAge || b.requestCount >= p.cfg.MaxRequests
}

func (p *Pool) closeBrowser(b *managedBrowser) {
	defer func() { recover() }()
	_ = b.browser.Close()
}
