package icmp

import "net/netip"

// HostStats accumulates the outcome of one echo session against one host.
//
// Invariants after a completed session:
//
//	0 <= PacketsReceived <= PacketsSent <= requested count
//	len(RTTs) == PacketsReceived
//	len(Messages) == number of attempts that received any reply
type HostStats struct {
	// Address is the probed target.
	Address netip.Addr

	// PacketsSent counts echo requests handed to the transport.
	PacketsSent int

	// PacketsReceived counts replies classified as alive
	// (Success or Informational).
	PacketsReceived int

	// RTTs holds one round-trip time in milliseconds per received
	// packet, in sequence order.
	RTTs []float64

	// Messages holds one diagnostic label per attempt that received
	// any reply at all, in receipt order. Timeouts record nothing.
	Messages []string
}

// MinRTT returns the smallest recorded round-trip time in milliseconds.
// The second return value is false when no packets were received.
func (s *HostStats) MinRTT() (float64, bool) {
	if len(s.RTTs) == 0 {
		return 0, false
	}
	min := s.RTTs[0]
	for _, rtt := range s.RTTs[1:] {
		if rtt < min {
			min = rtt
		}
	}
	return min, true
}

// MaxRTT returns the largest recorded round-trip time in milliseconds.
// The second return value is false when no packets were received.
func (s *HostStats) MaxRTT() (float64, bool) {
	if len(s.RTTs) == 0 {
		return 0, false
	}
	max := s.RTTs[0]
	for _, rtt := range s.RTTs[1:] {
		if rtt > max {
			max = rtt
		}
	}
	return max, true
}

// Dropped returns the number of sent packets without an alive reply.
func (s *HostStats) Dropped() int {
	return s.PacketsSent - s.PacketsReceived
}
