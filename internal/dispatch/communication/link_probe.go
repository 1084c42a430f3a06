package communication

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"lumen-remote/internal/dispatch/usecases"
	"lumen-remote/internal/infra/async"
)

const _defaultDialTimeout = 500 * time.Millisecond

func NewLinkProbe(ticker *time.Ticker, address string, dialTimeout time.Duration) *LinkProbe {
	if dialTimeout <= 0 {
		dialTimeout = _defaultDialTimeout
	}
	probe := &LinkProbe{
		ticker:      ticker,
		address:     address,
		dialTimeout: dialTimeout,
	}
	probe.available.Store(true)
	return probe
}

var (
	_ usecases.LinkMonitor = (*LinkProbe)(nil)
	_ async.Worker         = (*LinkProbe)(nil)
)

// LinkProbe answers IsLinkAvailable from the last TCP reachability check
// against the controller, so the dispatcher never waits on the network
// to learn the link is down.
type LinkProbe struct {
	ticker      *time.Ticker
	address     string
	dialTimeout time.Duration
	dialer      net.Dialer
	available   atomic.Bool
}

func (p *LinkProbe) IsLinkAvailable() bool {
	return p.available.Load()
}

func (p *LinkProbe) Run(ctx context.Context, done func()) {
	slog.Debug("link probe started", slog.String("address", p.address))
	defer done()
	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("link probe cancelled")
			return
		case <-p.ticker.C:
			p.Probe(ctx)
		}
	}
}

// Probe dials the controller once and records the result.
func (p *LinkProbe) Probe(ctx context.Context) bool {
	dialCtx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dialCtx, "tcp", p.address)
	up := err == nil
	if up {
		_ = conn.Close()
	}
	if p.available.Swap(up) != up {
		if up {
			slog.Info("link to controller restored", slog.String("address", p.address))
		} else {
			slog.Warn("link to controller lost", slog.String("address", p.address), slog.Any("error", err))
		}
	}
	return up
}

func (p *LinkProbe) Shutdown() {
	p.ticker.Stop()
	slog.Info("link probe shutdown")
}
