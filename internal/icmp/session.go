package icmp

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/infrasonar/ping-probe/internal/logging"
)

// DefaultPayloadSize is the echo payload length when none is configured.
const DefaultPayloadSize = 56

// ErrTimeout is returned by a Transport when no correlated reply arrived
// within the per-packet timeout. It is the only non-fatal receive error.
var ErrTimeout = errors.New("timeout awaiting echo reply")

// Request is a single tagged ICMP echo request.
type Request struct {
	Addr    netip.Addr
	ID      uint16
	Seq     uint16
	Payload []byte
}

// Reply is a correlated ICMP response delivered by a Transport. Type and
// Code are the raw on-wire values; At is the receive timestamp used for
// round-trip measurement.
type Reply struct {
	Family Family
	Type   int
	Code   int
	At     time.Time
}

// Transport sends echo requests and delivers correlated replies. The
// production implementation is Socket; tests substitute fakes.
type Transport interface {
	// Send transmits the request. A returned error is a transport
	// fault and aborts the session.
	Send(req *Request) error

	// Receive blocks until a reply correlated with req arrives, the
	// timeout elapses (ErrTimeout) or ctx is cancelled. Uncorrelated
	// packets must be discarded without consuming the timeout budget
	// beyond the wall clock.
	Receive(ctx context.Context, req *Request, timeout time.Duration) (*Reply, error)

	// Close releases the underlying socket.
	Close() error
}

// Session describes one probing run against one address. Sessions are
// created fresh per check invocation and discarded afterwards.
type Session struct {
	// Addr is the resolved target address.
	Addr netip.Addr

	// ID tags every request of this session so replies cannot be
	// misattributed to unrelated in-flight probes.
	ID uint16

	// Count is the number of echo requests to send.
	Count int

	// Interval is the pause before every request except the first.
	Interval time.Duration

	// Timeout bounds the wait for each individual reply.
	Timeout time.Duration

	// Payload is the echo data. When empty, a random payload of
	// DefaultPayloadSize bytes is generated per session.
	Payload []byte

	// Logger receives per-attempt debug output. Nil disables logging.
	Logger *slog.Logger
}

// NewIdentifier draws a random 16-bit session identifier.
func NewIdentifier() uint16 {
	var buf [2]byte
	if _, err := cryptorand.Read(buf[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return binary.BigEndian.Uint16(buf[:])
}

// family derives the ICMP type space from the target address.
func (s *Session) family() Family {
	if s.Addr.Is6() && !s.Addr.Is4In6() {
		return FamilyIPv6
	}
	return FamilyIPv4
}

// Run executes the session: send count requests, one at a time, waiting
// interval between sends and at most timeout for each reply. Protocol
// level errors (unreachable, time exceeded, unexpected types) are
// recorded and the loop continues; only transport faults and
// cancellation abort the session.
func (s *Session) Run(ctx context.Context, tr Transport) (*HostStats, error) {
	logger := s.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	payload := s.Payload
	if len(payload) == 0 {
		payload = randomPayload(DefaultPayloadSize)
	}

	family := s.family()
	stats := &HostStats{
		Address:  s.Addr,
		RTTs:     []float64{},
		Messages: []string{},
	}

	for seq := 0; seq < s.Count; seq++ {
		if seq > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.Interval):
			}
		}

		req := &Request{
			Addr:    s.Addr,
			ID:      s.ID,
			Seq:     uint16(seq),
			Payload: payload,
		}

		if err := tr.Send(req); err != nil {
			return nil, fmt.Errorf("send echo request: %w", err)
		}
		stats.PacketsSent++
		sent := time.Now()

		reply, err := tr.Receive(ctx, req, s.Timeout)
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				logger.Debug("echo reply timeout",
					logging.KeyAddress, s.Addr.String(),
					logging.KeySequence, seq)
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("receive echo reply: %w", err)
		}

		outcome := Classify(family, reply.Type, reply.Code)
		stats.Messages = append(stats.Messages, outcome.Label)

		if outcome.Alive() {
			rtt := float64(reply.At.Sub(sent)) / float64(time.Millisecond)
			stats.RTTs = append(stats.RTTs, rtt)
			stats.PacketsReceived++
			logger.Debug("echo reply",
				logging.KeyAddress, s.Addr.String(),
				logging.KeySequence, seq,
				logging.KeyOutcome, outcome.Kind.String(),
				"rtt_ms", rtt)
		} else {
			logger.Debug("icmp error reply",
				logging.KeyAddress, s.Addr.String(),
				logging.KeySequence, seq,
				logging.KeyOutcome, outcome.Kind.String(),
				"icmp_type", outcome.Type,
				"icmp_code", outcome.Code)
		}
	}

	return stats, nil
}

// randomPayload returns n bytes of random echo data.
func randomPayload(n int) []byte {
	buf := make([]byte, n)
	if _, err := cryptorand.Read(buf); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return buf
}
