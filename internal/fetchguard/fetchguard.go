// Package fetchguard is the SSRF trust boundary for every outbound fetch
// the ingestor makes (spec §4.6). Every check here runs before the initial
// request and again before following each redirect.
package fetchguard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrUnsafe is wrapped by every rejection that stems from the safety
// policy itself (blocked hostname, reserved address, DNS-rebinding
// detection) — as opposed to an ordinary network failure (timeout,
// NXDOMAIN). Callers use errors.Is(err, ErrUnsafe) to distinguish
// spec §7's UnsafeTarget from ExternalFailure/Transient.
var ErrUnsafe = errors.New("fetchguard: target rejected by safety policy")

// IsUnsafe reports whether err (or anything it wraps) stems from the
// safety policy rather than an ordinary network failure.
func IsUnsafe(err error) bool {
	return errors.Is(err, ErrUnsafe)
}

// exactBlockedHosts are rejected regardless of case (spec §4.6).
var exactBlockedHosts = map[string]bool{
	"localhost":                 true,
	"0.0.0.0":                   true,
	"127.0.0.1":                 true,
	"::1":                       true,
	"metadata.google.internal":  true,
	"169.254.169.254":           true,
}

// suffixBlockedHosts are rejected when the hostname ends with one of these
// (spec §4.6).
var suffixBlockedHosts = []string{".localhost", ".local", ".internal"}

var ipv4ReservedCIDRs = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"224.0.0.0/4",
	"240.0.0.0/4",
}

var ipv6ReservedCIDRs = []string{
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"2001:db8::/32",
}

var reservedNetworks []*net.IPNet

func init() {
	for _, cidr := range ipv4ReservedCIDRs {
		_, n, err := net.ParseCIDR(cidr)
		if err == nil {
			reservedNetworks = append(reservedNetworks, n)
		}
	}
	for _, cidr := range ipv6ReservedCIDRs {
		_, n, err := net.ParseCIDR(cidr)
		if err == nil {
			reservedNetworks = append(reservedNetworks, n)
		}
	}
}

// isReservedIP reports whether ip falls in any blocked range, recursively
// unwrapping IPv4-mapped IPv6 addresses (spec §4.6 "::ffff:a.b.c.d
// recursively validated") and the IPv6 unspecified address "::".
func isReservedIP(ip net.IP) bool {
	if ip.Equal(net.IPv6unspecified) {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		for _, n := range reservedNetworks {
			if n.Contains(v4) {
				return true
			}
		}
		return false
	}
	for _, n := range reservedNetworks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func isBlockedHostname(host string) bool {
	lower := strings.ToLower(host)
	if exactBlockedHosts[lower] {
		return true
	}
	for _, suffix := range suffixBlockedHosts {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Resolver resolves hostnames to IP addresses; satisfied by *net.Resolver
// in production and a fake in tests.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// CheckHost runs every hostname-level safety check for host: blocked-name
// list, IP-literal reserved-range check, and (for non-literal hostnames)
// DNS resolution with rebinding protection — rejecting if any resolved
// address is reserved (spec §4.6). It does not consult or populate the
// decision cache; see Cache.IsSafe for the cached variant used by callers.
func CheckHost(ctx context.Context, resolver Resolver, host string) error {
	if isBlockedHostname(host) {
		return fmt.Errorf("fetchguard: host %q is blocked: %w", host, ErrUnsafe)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isReservedIP(ip) {
			return fmt.Errorf("fetchguard: literal address %q is in a reserved range: %w", host, ErrUnsafe)
		}
		return nil
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("fetchguard: resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("fetchguard: host %q resolved to no addresses", host)
	}
	for _, a := range addrs {
		if isReservedIP(a.IP) {
			return fmt.Errorf("fetchguard: host %q resolves to a reserved address %s: %w", host, a.IP, ErrUnsafe)
		}
	}
	return nil
}
