// Package check implements the ping check: configuration resolution,
// one echo session per invocation and report aggregation.
package check

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"github.com/infrasonar/ping-probe/internal/icmp"
	"github.com/infrasonar/ping-probe/internal/logging"
	"github.com/infrasonar/ping-probe/internal/metrics"
)

const (
	// TypeName is the report section key.
	TypeName = "icmp"
	// ItemName is the name of the single report item.
	ItemName = "ping"

	// DefaultCount is the number of echo requests per check.
	DefaultCount = 5 // 1 - 9
	// DefaultInterval is the inter-packet pause in seconds.
	DefaultInterval = 1 // 1s - 9s
	// DefaultTimeout is the per-packet reply timeout in seconds.
	DefaultTimeout = 10

	minCount    = 1
	maxCount    = 9
	minInterval = 1
	maxInterval = 9
)

// Asset identifies the monitored host a check invocation runs against.
// The asset name doubles as the default probe address.
type Asset struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Config carries the per-invocation ping settings. Zero values select
// the documented defaults.
type Config struct {
	Address  string `json:"address,omitempty" yaml:"address"`
	Count    int    `json:"count,omitempty" yaml:"count"`
	Interval int    `json:"interval,omitempty" yaml:"interval"`
	Timeout  int    `json:"timeout,omitempty" yaml:"timeout"`
}

// withDefaults fills unset fields and validates the bounds. Validation
// happens before any packet is sent.
func (c Config) withDefaults() (count, interval, timeout int, err error) {
	count = c.Count
	if count == 0 {
		count = DefaultCount
	}
	interval = c.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	timeout = c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	if count < minCount || count > maxCount {
		return 0, 0, 0, &ConfigError{Option: "count", Value: count, Min: minCount, Max: maxCount}
	}
	if interval < minInterval || interval > maxInterval {
		return 0, 0, 0, &ConfigError{Option: "interval", Value: interval, Min: minInterval, Max: maxInterval}
	}
	if timeout < 1 {
		return 0, 0, 0, &ConfigError{Option: "timeout", Value: timeout, Min: 1, Max: int(^uint(0) >> 1)}
	}
	return count, interval, timeout, nil
}

// Dialer opens a session transport for a resolved target address.
type Dialer func(addr netip.Addr) (icmp.Transport, error)

// Pinger runs ping checks. It is safe for concurrent use; every
// invocation operates on its own session and socket.
type Pinger struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	dial    Dialer
}

// NewPinger creates a Pinger using real ICMP sockets. When privileged is
// false, datagram-oriented ICMP sockets are used instead of raw ones.
func NewPinger(logger *slog.Logger, m *metrics.Metrics, privileged bool) *Pinger {
	return NewPingerWithDialer(logger, m, func(addr netip.Addr) (icmp.Transport, error) {
		return icmp.NewSocket(addr, privileged)
	})
}

// NewPingerWithDialer creates a Pinger with a custom transport dialer.
func NewPingerWithDialer(logger *slog.Logger, m *metrics.Metrics, dial Dialer) *Pinger {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Pinger{
		logger:  logger,
		metrics: m,
		dial:    dial,
	}
}

// Run executes one ping check against the asset. A fully or partially
// successful session returns a report; total loss returns a
// TotalLossError carrying the report; configuration, resolution and
// transport faults return no report at all.
func (p *Pinger) Run(ctx context.Context, asset Asset, cfg Config) (*Report, error) {
	address := cfg.Address
	if address == "" {
		address = asset.Name
	}

	count, interval, timeout, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	p.logger.Debug("ping",
		logging.KeyAsset, asset.Name,
		logging.KeyAssetID, asset.ID,
		logging.KeyAddress, address,
		logging.KeyCount, count,
		logging.KeyInterval, interval,
		logging.KeyTimeout, timeout)

	addr, err := icmp.Resolve(ctx, address)
	if err != nil {
		return nil, newFailure(err)
	}

	tr, err := p.dial(addr)
	if err != nil {
		return nil, newFailure(err)
	}
	defer tr.Close()

	session := &icmp.Session{
		Addr:     addr,
		ID:       icmp.NewIdentifier(),
		Count:    count,
		Interval: time.Duration(interval) * time.Second,
		Timeout:  time.Duration(timeout) * time.Second,
		Logger:   p.logger,
	}

	stats, err := session.Run(ctx, tr)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, newFailure(err)
	}

	p.record(asset, stats)

	report := Summarize(stats, address, count)
	if stats.PacketsSent > 0 && stats.PacketsReceived == 0 {
		return nil, &TotalLossError{Report: report}
	}
	return report, nil
}

// record updates packet level metrics from a completed session.
func (p *Pinger) record(asset Asset, stats *icmp.HostStats) {
	if p.metrics == nil {
		return
	}
	p.metrics.PacketsSent.WithLabelValues(asset.Name).Add(float64(stats.PacketsSent))
	p.metrics.PacketsReceived.WithLabelValues(asset.Name).Add(float64(stats.PacketsReceived))
	p.metrics.PacketsDropped.WithLabelValues(asset.Name).Add(float64(stats.Dropped()))
	for _, rtt := range stats.RTTs {
		p.metrics.RTTSeconds.WithLabelValues(asset.Name).Observe(rtt / 1000)
	}
}
