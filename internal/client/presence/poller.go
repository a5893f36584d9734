package presence

import (
	"context"
	"sync"
	"time"

	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/client/models"
	"github.com/dipaksuthar9166/Twillio-dialer-sub001/internal/logging"
	"golang.org/x/time/rate"
)

// Fetcher performs one presence request.
type Fetcher interface {
	GetPresence(ctx context.Context, identity string) (models.Record, error)
}

// PollerConfig tunes the fallback poller.
type PollerConfig struct {
	Interval time.Duration
	// RPS and Burst bound requests across all watched keys.
	RPS   float64
	Burst int
}

// Poller periodically fetches presence for watched keys and hands raw
// records to deliver. Failures are logged and retried on the next tick.
type Poller struct {
	fetch   Fetcher
	cfg     PollerConfig
	limiter *rate.Limiter
	deliver func(key string, rec models.Record)
	logger  logging.Logger

	mu    sync.Mutex
	base  context.Context
	watch map[string]context.CancelFunc
	wg    sync.WaitGroup
}

func NewPoller(ctx context.Context, fetch Fetcher, cfg PollerConfig, deliver func(key string, rec models.Record), logger logging.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 4
	}
	return &Poller{
		fetch:   fetch,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		deliver: deliver,
		logger:  logger.With("module", "presence_poller"),
		base:    ctx,
		watch:   make(map[string]context.CancelFunc),
	}
}

// Watch starts polling identity under key. Watching a key twice is a no-op.
func (p *Poller) Watch(key, identity string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.watch[key]; ok {
		return
	}
	ctx, cancel := context.WithCancel(p.base)
	p.watch[key] = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.loop(ctx, key, identity)
	}()
}

// Unwatch stops polling key.
func (p *Poller) Unwatch(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cancel, ok := p.watch[key]; ok {
		cancel()
		delete(p.watch, key)
	}
}

// Watching reports whether key is polled.
func (p *Poller) Watching(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.watch[key]
	return ok
}

// StopAll cancels every watch and waits for the loops to exit.
func (p *Poller) StopAll() {
	p.mu.Lock()
	for k, cancel := range p.watch {
		cancel()
		delete(p.watch, k)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context, key, identity string) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.pollOnce(ctx, key, identity)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, key, identity string) {
	if err := p.limiter.Wait(ctx); err != nil {
		return
	}
	rec, err := p.fetch.GetPresence(ctx, identity)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug(ctx, "presence poll failed", "conversation", key, "error", err)
		}
		return
	}
	if rec != nil {
		p.deliver(key, rec)
	}
}
