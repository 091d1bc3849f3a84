package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type flipPinger struct {
	fail atomic.Bool
}

func (f *flipPinger) HealthPing(context.Context) error {
	if f.fail.Load() {
		return errors.New("backend unreachable")
	}
	return nil
}

func waitTrue(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPingChecker_TracksBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &flipPinger{}
	c := NewPingChecker("store", p, time.Second)
	go c.Start(ctx, 10*time.Millisecond)

	waitTrue(t, c.IsHealthy)
	assert.NoError(t, c.Err())

	p.fail.Store(true)
	waitTrue(t, func() bool { return !c.IsHealthy() })
	assert.EqualError(t, c.Err(), "backend unreachable")

	p.fail.Store(false)
	waitTrue(t, c.IsHealthy)
}

func TestMonitor_AggregatesAndRecovers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &flipPinger{}
	index := &flipPinger{}
	m := NewMonitor(zerolog.Nop(),
		NewPingChecker("store", store, time.Second),
		NewPingChecker("searchindex", index, time.Second))
	go m.Start(ctx, 10*time.Millisecond)

	waitTrue(t, m.IsHealthy)

	index.fail.Store(true)
	waitTrue(t, func() bool { return !m.IsHealthy() })

	var unhealthy []string
	for _, s := range m.Components() {
		if !s.Healthy {
			unhealthy = append(unhealthy, s.Name)
		}
	}
	assert.Equal(t, []string{"searchindex"}, unhealthy)

	index.fail.Store(false)
	waitTrue(t, m.IsHealthy)
}
