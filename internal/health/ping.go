package health

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// HealthPinger is implemented by collaborators that can probe their
// backend (store, weaviate, ollama, redis). HealthPing returns nil when
// the component is healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// PingChecker adapts a HealthPinger into a named background checker.
type PingChecker struct {
	name        string
	pinger      HealthPinger
	pingTimeout time.Duration

	healthy atomic.Int32

	mu      sync.Mutex
	lastErr error
}

func NewPingChecker(name string, pinger HealthPinger, pingTimeout time.Duration) *PingChecker {
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	return &PingChecker{name: name, pinger: pinger, pingTimeout: pingTimeout}
}

func (p *PingChecker) Name() string { return p.name }

func (p *PingChecker) IsHealthy() bool { return p.healthy.Load() == 1 }

// Err returns the most recent ping failure, or nil while healthy.
func (p *PingChecker) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *PingChecker) check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()
	err := p.pinger.HealthPing(pctx)

	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.healthy.Store(0)
		return
	}
	p.healthy.Store(1)
}

// Start pings immediately and then on every interval tick until the
// context ends.
func (p *PingChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.check(ctx)
		}
	}
}
