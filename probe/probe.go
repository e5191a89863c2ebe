// Package probe checks whether the current link actually reaches the internet.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-ping/ping"

	"github.com/taigrr/iwls/types"
)

var ErrNoReplies = errors.New("no ping replies")

// Prober runs the connectivity and latency checks.
type Prober struct {
	URL         string
	PingHost    string
	PingCount   int
	PingTimeout time.Duration
	Privileged  bool
	Client      *http.Client
}

// Connected reports whether a GET of p.URL succeeds with a 2xx status.
func (p *Prober) Connected(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return false
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Ping returns the average round trip time to p.PingHost. Cancelling ctx stops
// the pinger early.
func (p *Prober) Ping(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	pinger, err := ping.NewPinger(p.PingHost)
	if err != nil {
		return 0, fmt.Errorf("resolving %s: %w", p.PingHost, err)
	}
	pinger.Count = p.PingCount
	if pinger.Count < 1 {
		pinger.Count = 1
	}
	if p.PingTimeout > 0 {
		pinger.Timeout = p.PingTimeout
	}
	pinger.SetPrivileged(p.Privileged)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	runErr := pinger.Run()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if runErr != nil {
		return 0, fmt.Errorf("pinging %s: %w", p.PingHost, runErr)
	}
	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return 0, ErrNoReplies
	}
	return stats.AvgRtt, nil
}

// Check runs both probes and returns the results as records stamped with ts.
// The ping is skipped when there is no connectivity or no host configured.
func (p *Prober) Check(ctx context.Context, ts time.Time) (types.MetricSet, error) {
	var m types.MetricSet
	connected := p.URL != "" && p.Connected(ctx)
	m.Connectivity = types.ConnectivityCollection{{Timestamp: ts, Connected: connected}}
	if !connected || p.PingHost == "" {
		return m, nil
	}
	rtt, err := p.Ping(ctx)
	if err != nil {
		return m, err
	}
	m.Pings = types.PingCollection{{Timestamp: ts, RTT: rtt.Microseconds()}}
	return m, nil
}
