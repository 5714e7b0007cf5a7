package icmp

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// IANA protocol numbers used when parsing received datagrams.
const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58
)

// Socket network names per family. Privileged sockets are raw ICMP;
// unprivileged ones use datagram-oriented ICMP (Linux ping sockets).
var (
	networksV4 = map[bool]string{true: "ip4:icmp", false: "udp4"}
	networksV6 = map[bool]string{true: "ip6:ipv6-icmp", false: "udp6"}
)

// Socket is the production Transport, backed by a single ICMP socket
// scoped to one session. It is acquired at session start and must be
// closed on every exit path.
type Socket struct {
	conn       *icmp.PacketConn
	family     Family
	privileged bool
}

// NewSocket opens an ICMP socket suitable for the given target address.
func NewSocket(addr netip.Addr, privileged bool) (*Socket, error) {
	family := FamilyIPv4
	network := networksV4[privileged]
	bind := "0.0.0.0"
	if addr.Is6() && !addr.Is4In6() {
		family = FamilyIPv6
		network = networksV6[privileged]
		bind = "::"
	}

	conn, err := icmp.ListenPacket(network, bind)
	if err != nil {
		return nil, fmt.Errorf("create ICMP socket: %w", err)
	}

	return &Socket{
		conn:       conn,
		family:     family,
		privileged: privileged,
	}, nil
}

// Close releases the socket.
func (s *Socket) Close() error {
	return s.conn.Close()
}

// Send marshals and transmits one echo request.
func (s *Socket) Send(req *Request) error {
	var typ icmp.Type = ipv4.ICMPTypeEcho
	if s.family == FamilyIPv6 {
		typ = ipv6.ICMPTypeEchoRequest
	}

	msg := icmp.Message{
		Type: typ,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(req.ID),
			Seq:  int(req.Seq),
			Data: req.Payload,
		},
	}

	wire, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("marshal echo request: %w", err)
	}

	var dst net.Addr
	if s.privileged {
		dst = &net.IPAddr{IP: req.Addr.AsSlice()}
	} else {
		// Datagram-oriented ICMP sockets take UDP-style addressing.
		dst = &net.UDPAddr{IP: req.Addr.AsSlice()}
	}

	if _, err := s.conn.WriteTo(wire, dst); err != nil {
		return fmt.Errorf("send echo request: %w", err)
	}
	return nil
}

// Receive reads from the socket until a datagram correlated with req
// arrives or the timeout elapses. Foreign packets (other sessions,
// other sequence numbers, stray ICMP traffic) are discarded.
// Cancellation of ctx interrupts a blocked read.
func (s *Socket) Receive(ctx context.Context, req *Request, timeout time.Duration) (*Reply, error) {
	deadline := time.Now().Add(timeout)

	// Unblock the read when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, 1500)
	for {
		if time.Until(deadline) <= 0 {
			return nil, ErrTimeout
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}

		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("read ICMP socket: %w", err)
		}
		at := time.Now()

		proto := protocolICMP
		if s.family == FamilyIPv6 {
			proto = protocolIPv6ICMP
		}
		msg, err := icmp.ParseMessage(proto, buf[:n])
		if err != nil {
			// Not a parsable ICMP datagram, keep reading.
			continue
		}

		icmpType, ok := rawType(msg)
		if !ok || !s.correlated(req, msg) {
			continue
		}

		return &Reply{
			Family: s.family,
			Type:   icmpType,
			Code:   msg.Code,
			At:     at,
		}, nil
	}
}

// rawType extracts the numeric ICMP type from a parsed message.
func rawType(msg *icmp.Message) (int, bool) {
	switch t := msg.Type.(type) {
	case ipv4.ICMPType:
		return int(t), true
	case ipv6.ICMPType:
		return int(t), true
	default:
		return 0, false
	}
}

// correlated reports whether the message belongs to the given request.
// Echo replies carry the identifier and sequence directly; error replies
// embed the offending datagram, so the original echo header is parsed
// out of the body.
func (s *Socket) correlated(req *Request, msg *icmp.Message) bool {
	switch body := msg.Body.(type) {
	case *icmp.Echo:
		if uint16(body.Seq) != req.Seq {
			return false
		}
		// The kernel rewrites the identifier on datagram-oriented
		// sockets, so it only correlates on raw sockets.
		return !s.privileged || uint16(body.ID) == req.ID

	case *icmp.DstUnreach:
		return s.embeddedMatch(req, body.Data, 0)
	case *icmp.TimeExceeded:
		return s.embeddedMatch(req, body.Data, 0)
	case *icmp.ParamProb:
		return s.embeddedMatch(req, body.Data, 0)

	case *icmp.RawBody:
		// Unknown types such as redirects: the first four body bytes
		// are the type specific field (gateway address for redirects),
		// followed by the embedded datagram.
		return s.embeddedMatch(req, body.Data, 4) ||
			s.embeddedMatch(req, body.Data, 0)
	}
	return false
}

// embeddedMatch parses the echo header out of an embedded original
// datagram (IP header plus at least eight ICMP bytes) and compares the
// identifier and sequence against the request.
func (s *Socket) embeddedMatch(req *Request, data []byte, skip int) bool {
	if len(data) < skip {
		return false
	}
	data = data[skip:]

	var hdrLen int
	switch s.family {
	case FamilyIPv6:
		hdrLen = ipv6.HeaderLen
	default:
		if len(data) < 1 {
			return false
		}
		hdrLen = int(data[0]&0x0f) * 4
		if hdrLen < ipv4.HeaderLen {
			return false
		}
	}

	if len(data) < hdrLen+8 {
		return false
	}
	echo := data[hdrLen:]

	echoRequest := uint8(8)
	if s.family == FamilyIPv6 {
		echoRequest = 128
	}
	if echo[0] != echoRequest {
		return false
	}

	id := binary.BigEndian.Uint16(echo[4:6])
	seq := binary.BigEndian.Uint16(echo[6:8])
	if seq != req.Seq {
		return false
	}
	return !s.privileged || id == req.ID
}
