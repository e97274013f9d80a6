package transport

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// AddressFamily selects which IP versions resolution may return.
type AddressFamily int

const (
	// FamilyAny accepts IPv4 and IPv6 addresses.
	FamilyAny AddressFamily = iota
	// FamilyIPv4 accepts IPv4 addresses only.
	FamilyIPv4
	// FamilyIPv6 accepts IPv6 addresses only.
	FamilyIPv6
)

// String returns the family name.
func (f AddressFamily) String() string {
	switch f {
	case FamilyAny:
		return "any"
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// ParseAddressFamily parses "any", "ipv4"/"4" or "ipv6"/"6".
func ParseAddressFamily(s string) (AddressFamily, error) {
	switch strings.ToLower(s) {
	case "", "any":
		return FamilyAny, nil
	case "ipv4", "4", "inet":
		return FamilyIPv4, nil
	case "ipv6", "6", "inet6":
		return FamilyIPv6, nil
	default:
		return FamilyAny, fmt.Errorf("unknown address family %q", s)
	}
}

func (f AddressFamily) accepts(addr netip.Addr) bool {
	switch f {
	case FamilyIPv4:
		return addr.Is4()
	case FamilyIPv6:
		return addr.Is6()
	default:
		return true
	}
}

// Loopback addresses used for "localhost" and the empty host.
const (
	LoopbackIPv4 = "127.0.0.1"
	LoopbackIPv6 = "::1"
)

// LookupFunc performs a directory lookup of a host name.
type LookupFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

// Resolver turns a textual host into literal addresses. The zero value uses
// the system resolver.
type Resolver struct {
	// Lookup is consulted only when host is not a literal address.
	// Nil means net.DefaultResolver.LookupIPAddr.
	Lookup LookupFunc
}

// DefaultResolver is used by connections without a configured resolver.
var DefaultResolver = &Resolver{}

// Resolve returns the literal addresses host stands for, in resolver order,
// restricted to family. It never fails: an unresolvable host, a lookup
// error or a literal of the wrong family all yield an empty result.
//
// "localhost" and "" map to the loopback address without a lookup.
func (r *Resolver) Resolve(ctx context.Context, host string, family AddressFamily) []string {
	if host == "" || strings.EqualFold(host, "localhost") {
		if family == FamilyIPv6 {
			return []string{LoopbackIPv6}
		}
		return []string{LoopbackIPv4}
	}

	// Bracketed IPv6 literals are accepted as typed in URLs.
	literal := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if addr, err := netip.ParseAddr(literal); err == nil {
		addr = addr.Unmap()
		if !family.accepts(addr) {
			return nil
		}
		return []string{addr.String()}
	}

	lookup := r.lookup()
	ips, err := lookup(ctx, host)
	if err != nil {
		return nil
	}

	seen := make(map[netip.Addr]struct{}, len(ips))
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if ip.Zone != "" && addr.Is6() {
			addr = addr.WithZone(ip.Zone)
		}
		if !family.accepts(addr) {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr.String())
	}
	return addrs
}

func (r *Resolver) lookup() LookupFunc {
	if r != nil && r.Lookup != nil {
		return r.Lookup
	}
	return net.DefaultResolver.LookupIPAddr
}
