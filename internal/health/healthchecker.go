// Package health runs background liveness checks over the service's
// collaborators and aggregates them into one readiness flag.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Checker is a named component-level health check.
type Checker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// ComponentStatus is one component's current state, for the monitor
// endpoint.
type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Monitor aggregates component checkers into a single service health
// flag and reports per-component status.
type Monitor struct {
	healthy atomic.Int32
	deps    []Checker
	log     zerolog.Logger
}

func NewMonitor(log zerolog.Logger, deps ...Checker) *Monitor {
	m := &Monitor{deps: deps, log: log}
	m.healthy.Store(0)
	return m
}

// IsHealthy returns the cached aggregate flag.
func (m *Monitor) IsHealthy() bool { return m.healthy.Load() == 1 }

// Components returns the current per-component view.
func (m *Monitor) Components() []ComponentStatus {
	out := make([]ComponentStatus, 0, len(m.deps))
	for _, c := range m.deps {
		s := ComponentStatus{Name: c.Name(), Healthy: c.IsHealthy()}
		if pc, ok := c.(*PingChecker); ok && !s.Healthy {
			if err := pc.Err(); err != nil {
				s.Error = err.Error()
			}
		}
		out = append(out, s)
	}
	return out
}

// Start launches every component checker and then re-evaluates the
// aggregate on each interval tick until the context ends. Transitions
// are logged once per edge.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	for _, c := range m.deps {
		go c.Start(ctx, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(-1)
	eval := func() {
		all := int32(1)
		for _, c := range m.deps {
			if !c.IsHealthy() {
				all = 0
				break
			}
		}
		m.healthy.Store(all)
		if all != prev {
			if all == 1 {
				m.log.Info().Msg("service health: UP")
			} else {
				for _, s := range m.Components() {
					if !s.Healthy {
						m.log.Error().Str("component", s.Name).Str("error", s.Error).Msg("component unhealthy")
					}
				}
				m.log.Error().Msg("service health: DOWN")
			}
			prev = all
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}
