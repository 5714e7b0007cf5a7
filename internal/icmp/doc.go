// Package icmp implements the ICMP echo session used by the ping check.
//
// A Session sends a bounded sequence of ICMP Echo Requests to a single
// target and collects per-attempt outcomes into HostStats. Replies are
// correlated by identifier and sequence number, and every reply (echo
// reply, redirect, unreachable, time exceeded or anything else) is run
// through Classify, which maps the raw type/code pair to a semantic
// outcome plus a human-readable label.
//
// # Transport
//
// The session never touches sockets directly; it drives a Transport. The
// production implementation is Socket, built on golang.org/x/net/icmp
// raw or datagram-oriented ICMP sockets. On Linux, unprivileged ICMP
// requires the ping_group_range sysctl:
//
//	sysctl -w net.ipv4.ping_group_range="0 65535"
//
// # Reply semantics
//
// ICMP redirects (type 5 for IPv4, type 137 for IPv6) are deliberately
// treated as a liveness signal: the host answered, just not with an echo
// reply. Unreachable, time-exceeded and unknown type/code pairs are
// recorded as diagnostic messages and counted as dropped packets, never
// as session-fatal errors. Only socket level faults abort a session.
package icmp
