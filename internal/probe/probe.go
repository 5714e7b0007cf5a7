// Package probe schedules ping checks across the configured assets.
//
// Each asset gets its own worker that runs the check every
// check_interval, staggered so a probe with many assets does not burst
// all sessions at once. Session starts are additionally bounded by a
// token bucket limiter shared across workers.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/infrasonar/ping-probe/internal/check"
	"github.com/infrasonar/ping-probe/internal/config"
	"github.com/infrasonar/ping-probe/internal/health"
	"github.com/infrasonar/ping-probe/internal/hub"
	"github.com/infrasonar/ping-probe/internal/logging"
	"github.com/infrasonar/ping-probe/internal/metrics"
)

// ErrAlreadyRunning is returned by Start on a running probe.
var ErrAlreadyRunning = errors.New("probe is already running")

// result is the stored outcome of the latest check per asset.
type result struct {
	asset     check.Asset
	report    *check.Report
	err       error
	checkedAt time.Time
	duration  time.Duration
}

// Probe runs the check scheduler.
type Probe struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	pinger    *check.Pinger
	forwarder *hub.Forwarder // nil when the hub is disabled
	version   string

	limiter *rate.Limiter // nil when unlimited

	mu           sync.RWMutex
	results      map[int]*result
	checksRun    int
	checksFailed int

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a probe scheduler. The forwarder may be nil.
func New(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics,
	pinger *check.Pinger, forwarder *hub.Forwarder, version string) *Probe {

	if logger == nil {
		logger = logging.NopLogger()
	}

	var limiter *rate.Limiter
	if cfg.Probe.SessionsPerSecond > 0 {
		burst := cfg.Probe.SessionBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Probe.SessionsPerSecond), burst)
	}

	return &Probe{
		cfg:       cfg,
		logger:    logger.With(logging.KeyComponent, "probe"),
		metrics:   m,
		pinger:    pinger,
		forwarder: forwarder,
		version:   version,
		limiter:   limiter,
		results:   make(map[int]*result, len(cfg.Assets)),
	}
}

// Start launches one worker per asset.
func (p *Probe) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for i, asset := range p.cfg.Assets {
		p.wg.Add(1)
		go p.worker(ctx, i, asset)
	}

	p.logger.Info("scheduler started",
		"assets", len(p.cfg.Assets),
		logging.KeyInterval, p.cfg.Probe.CheckInterval.String())
	return nil
}

// Stop cancels all workers and waits for them to exit, bounded by ctx.
func (p *Probe) Stop(ctx context.Context) error {
	if !p.running.CompareAndSwap(true, false) {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker runs the check loop for one asset. The first run is staggered
// by the asset's position so sessions spread over the check interval.
func (p *Probe) worker(ctx context.Context, idx int, ac config.AssetConfig) {
	defer p.wg.Done()

	asset := check.Asset{ID: ac.ID, Name: ac.Name}

	stagger := time.Duration(0)
	if n := len(p.cfg.Assets); n > 1 {
		stagger = p.cfg.Probe.CheckInterval * time.Duration(idx) / time.Duration(n)
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(stagger):
	}

	ticker := time.NewTicker(p.cfg.Probe.CheckInterval)
	defer ticker.Stop()

	p.runCheck(ctx, asset, ac.Ping)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runCheck(ctx, asset, ac.Ping)
		}
	}
}

// runCheck executes one check invocation, records the result and
// forwards it to the hub.
func (p *Probe) runCheck(ctx context.Context, asset check.Asset, cfg check.Config) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}
	}

	if p.metrics != nil {
		p.metrics.SessionsActive.Inc()
		defer p.metrics.SessionsActive.Dec()
	}

	checkCtx, cancel := context.WithTimeout(ctx, p.cfg.Probe.CheckTimeout)
	defer cancel()

	started := time.Now()
	report, err := p.pinger.Run(checkCtx, asset, cfg)
	elapsed := time.Since(started)

	p.store(asset, report, err, started, elapsed)
	p.observe(asset, err, elapsed)
	p.forward(asset, report, err, started)

	switch {
	case err == nil:
		p.logger.Info("check ok",
			logging.KeyAsset, asset.Name,
			logging.KeyDropped, report.ICMP[0].Dropped,
			logging.KeyDuration, elapsed.Round(time.Millisecond).String())
	case ctx.Err() != nil:
		p.logger.Warn("check cancelled", logging.KeyAsset, asset.Name)
	default:
		p.logger.Warn("check failed",
			logging.KeyAsset, asset.Name,
			logging.KeyError, err)
	}
}

// store keeps the latest result per asset for the health server.
func (p *Probe) store(asset check.Asset, report *check.Report, err error, at time.Time, elapsed time.Duration) {
	var totalLoss *check.TotalLossError
	if errors.As(err, &totalLoss) {
		// A total loss still carries a complete report.
		report = totalLoss.Report
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.checksRun++
	if err != nil {
		p.checksFailed++
	}
	p.results[asset.ID] = &result{
		asset:     asset,
		report:    report,
		err:       err,
		checkedAt: at,
		duration:  elapsed,
	}
}

// observe updates check level metrics.
func (p *Probe) observe(asset check.Asset, err error, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.ChecksTotal.WithLabelValues(asset.Name).Inc()
	p.metrics.CheckDuration.Observe(elapsed.Seconds())
	p.metrics.LastCheck.WithLabelValues(asset.Name).SetToCurrentTime()

	if err != nil {
		p.metrics.CheckFailures.WithLabelValues(asset.Name, failureReason(err)).Inc()
	}
}

// failureReason buckets a check error for the failure counter.
func failureReason(err error) string {
	var configErr *check.ConfigError
	var totalLoss *check.TotalLossError
	var dnsErr *net.DNSError

	switch {
	case errors.As(err, &configErr):
		return metrics.ReasonConfig
	case errors.As(err, &totalLoss):
		return metrics.ReasonTotalLoss
	case errors.As(err, &dnsErr):
		return metrics.ReasonResolve
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ReasonCancelled
	default:
		return metrics.ReasonTransport
	}
}

// forward publishes the result envelope to the hub.
func (p *Probe) forward(asset check.Asset, report *check.Report, err error, at time.Time) {
	if p.forwarder == nil {
		return
	}

	env := hub.Envelope{
		Probe:     p.cfg.Probe.Name,
		Version:   p.version,
		Asset:     asset,
		Check:     check.ItemName,
		Timestamp: at,
	}
	if err != nil {
		env.Error = err.Error()
		var totalLoss *check.TotalLossError
		if errors.As(err, &totalLoss) {
			env.State = totalLoss.Report
		}
	} else {
		env.State = report
	}

	p.forwarder.Publish(env)
}

// IsRunning implements health.Provider.
func (p *Probe) IsRunning() bool {
	return p.running.Load()
}

// Stats implements health.Provider.
func (p *Probe) Stats() health.Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return health.Stats{
		Assets:       len(p.cfg.Assets),
		ChecksRun:    p.checksRun,
		ChecksFailed: p.checksFailed,
		HubEnabled:   p.forwarder != nil,
	}
}

// Reports implements health.Provider: the latest result per asset,
// ordered by asset ID.
func (p *Probe) Reports() []health.Report {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]health.Report, 0, len(p.results))
	for _, res := range p.results {
		entry := health.Report{
			Asset:     res.asset,
			CheckedAt: res.checkedAt,
			Duration:  res.duration,
			State:     res.report,
		}
		if res.err != nil {
			entry.Error = res.err.Error()
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Asset.ID < out[j].Asset.ID
	})
	return out
}
