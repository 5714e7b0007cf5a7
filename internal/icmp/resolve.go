package icmp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// Resolve turns an address string (IP literal, hostname or FQDN) into a
// probe target. Hostnames resolve IPv4 first and fall back to IPv6,
// matching the behavior of the classic ping utilities. Resolution
// failure is fatal to the check; no packets are sent.
func Resolve(ctx context.Context, address string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(address); err == nil {
		return addr.Unmap(), nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", address)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", address, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("resolve %s: no addresses", address)
	}

	for _, addr := range addrs {
		if addr.Is4() || addr.Is4In6() {
			return addr.Unmap(), nil
		}
	}
	return addrs[0].Unmap(), nil
}
