// Package hub forwards check reports to a monitoring hub over a
// WebSocket connection.
//
// The forwarder keeps a bounded queue of report envelopes. When the hub
// is unreachable it reconnects with exponential backoff and jitter;
// while disconnected, the newest reports win and the oldest queued
// envelopes are dropped.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/infrasonar/ping-probe/internal/check"
	"github.com/infrasonar/ping-probe/internal/config"
	"github.com/infrasonar/ping-probe/internal/logging"
	"github.com/infrasonar/ping-probe/internal/metrics"
)

// Envelope is one check result as sent to the hub. Exactly one of State
// and Error is set.
type Envelope struct {
	Probe     string        `json:"probe"`
	Version   string        `json:"version"`
	Asset     check.Asset   `json:"asset"`
	Check     string        `json:"check"`
	Timestamp time.Time     `json:"timestamp"`
	State     *check.Report `json:"state,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Forwarder streams envelopes to the hub.
type Forwarder struct {
	cfg     config.HubConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	queue  chan Envelope
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewForwarder creates a forwarder for the given hub configuration.
func NewForwarder(cfg config.HubConfig, logger *slog.Logger, m *metrics.Metrics) *Forwarder {
	if logger == nil {
		logger = logging.NopLogger()
	}
	size := cfg.QueueSize
	if size < 1 {
		size = 128
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Forwarder{
		cfg:     cfg,
		logger:  logger.With(logging.KeyComponent, "hub"),
		metrics: m,
		queue:   make(chan Envelope, size),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the forwarding loop.
func (f *Forwarder) Start() {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.run()
	}()
}

// Close stops the forwarder and waits for the loop to exit. Queued but
// unsent envelopes are discarded.
func (f *Forwarder) Close() {
	f.once.Do(func() {
		f.cancel()
		f.wg.Wait()
	})
}

// Publish enqueues an envelope without blocking. When the queue is
// full, the oldest envelope is dropped to make room.
func (f *Forwarder) Publish(env Envelope) {
	select {
	case f.queue <- env:
		return
	default:
	}

	select {
	case <-f.queue:
		if f.metrics != nil {
			f.metrics.HubQueueDropped.Inc()
		}
	default:
	}

	select {
	case f.queue <- env:
	default:
		if f.metrics != nil {
			f.metrics.HubQueueDropped.Inc()
		}
	}
}

// run connects, drains the queue and reconnects on failure until the
// forwarder is closed.
func (f *Forwarder) run() {
	delay := f.cfg.Reconnect.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}

	for {
		if f.ctx.Err() != nil {
			return
		}

		conn, err := f.dial()
		if err != nil {
			f.logger.Warn("hub connection failed",
				logging.KeyHub, f.cfg.URL,
				logging.KeyError, err)

			select {
			case <-f.ctx.Done():
				return
			case <-time.After(addJitter(delay, f.cfg.Reconnect.Jitter)):
			}
			delay = nextDelay(delay, f.cfg.Reconnect)
			continue
		}

		f.logger.Info("connected to hub", logging.KeyHub, f.cfg.URL)
		if f.metrics != nil {
			f.metrics.HubConnected.Set(1)
		}
		delay = f.cfg.Reconnect.InitialDelay

		f.sendLoop(conn)

		if f.metrics != nil {
			f.metrics.HubConnected.Set(0)
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

// dial opens the hub WebSocket connection.
func (f *Forwarder) dial() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(f.ctx, 30*time.Second)
	defer cancel()

	opts := &websocket.DialOptions{}
	if f.cfg.Token != "" {
		opts.HTTPHeader = http.Header{
			"Authorization": []string{"Bearer " + f.cfg.Token},
		}
	}

	conn, _, err := websocket.Dial(ctx, f.cfg.URL, opts)
	return conn, err
}

// sendLoop writes queued envelopes until a write fails or the forwarder
// is closed.
func (f *Forwarder) sendLoop(conn *websocket.Conn) {
	for {
		select {
		case <-f.ctx.Done():
			return

		case env := <-f.queue:
			data, err := json.Marshal(env)
			if err != nil {
				f.logger.Error("marshal envelope", logging.KeyError, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(f.ctx, 10*time.Second)
			err = conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if f.metrics != nil {
					f.metrics.HubReportsFailed.Inc()
				}
				f.logger.Warn("hub write failed, reconnecting",
					logging.KeyError, err)
				return
			}
			if f.metrics != nil {
				f.metrics.HubReportsSent.Inc()
			}
		}
	}
}

// nextDelay grows the reconnect delay up to the configured maximum.
func nextDelay(current time.Duration, cfg config.ReconnectConfig) time.Duration {
	mult := cfg.Multiplier
	if mult <= 1 {
		mult = 2
	}
	next := time.Duration(float64(current) * mult)
	if cfg.MaxDelay > 0 && next > cfg.MaxDelay {
		next = cfg.MaxDelay
	}
	return next
}

// addJitter randomizes a delay by up to +/- jitter (a fraction of the
// delay) so reconnect storms spread out.
func addJitter(delay time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return delay
	}
	factor := 1 + (rand.Float64()*2-1)*jitter
	return time.Duration(float64(delay) * factor)
}
