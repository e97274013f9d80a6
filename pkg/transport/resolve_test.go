package transport

import (
	"context"
	"errors"
	"net"
	"reflect"
	"testing"
)

func staticLookup(t *testing.T, want string, ips ...string) LookupFunc {
	return func(_ context.Context, host string) ([]net.IPAddr, error) {
		if host != want {
			t.Errorf("lookup host = %q, want %q", host, want)
		}
		out := make([]net.IPAddr, 0, len(ips))
		for _, s := range ips {
			out = append(out, net.IPAddr{IP: net.ParseIP(s)})
		}
		return out, nil
	}
}

func failingLookup(t *testing.T) LookupFunc {
	return func(_ context.Context, host string) ([]net.IPAddr, error) {
		t.Errorf("unexpected lookup for %q", host)
		return nil, errors.New("unexpected lookup")
	}
}

func TestResolveWithoutLookup(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		family AddressFamily
		want   []string
	}{
		{"localhost", "localhost", FamilyAny, []string{"127.0.0.1"}},
		{"localhost mixed case", "LocalHost", FamilyIPv4, []string{"127.0.0.1"}},
		{"localhost ipv6", "localhost", FamilyIPv6, []string{"::1"}},
		{"empty host", "", FamilyAny, []string{"127.0.0.1"}},
		{"ipv4 literal", "192.0.2.7", FamilyAny, []string{"192.0.2.7"}},
		{"ipv4 literal ipv4 family", "192.0.2.7", FamilyIPv4, []string{"192.0.2.7"}},
		{"ipv6 literal", "2001:db8::1", FamilyIPv6, []string{"2001:db8::1"}},
		{"bracketed ipv6", "[2001:db8::1]", FamilyAny, []string{"2001:db8::1"}},
		{"mapped ipv4", "::ffff:192.0.2.7", FamilyIPv4, []string{"192.0.2.7"}},
		{"ipv4 literal ipv6 family", "192.0.2.7", FamilyIPv6, nil},
		{"ipv6 literal ipv4 family", "::1", FamilyIPv4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{Lookup: failingLookup(t)}
			got := r.Resolve(context.Background(), tt.host, tt.family)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%q, %s) = %v, want %v", tt.host, tt.family, got, tt.want)
			}
		})
	}
}

func TestResolveWithLookup(t *testing.T) {
	records := []string{"192.0.2.1", "2001:db8::1", "192.0.2.2", "192.0.2.1"}

	tests := []struct {
		name   string
		family AddressFamily
		want   []string
	}{
		{"any keeps order and drops duplicates", FamilyAny, []string{"192.0.2.1", "2001:db8::1", "192.0.2.2"}},
		{"ipv4 only", FamilyIPv4, []string{"192.0.2.1", "192.0.2.2"}},
		{"ipv6 only", FamilyIPv6, []string{"2001:db8::1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Resolver{Lookup: staticLookup(t, "peer.example", records...)}
			got := r.Resolve(context.Background(), "peer.example", tt.family)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveLookupFailure(t *testing.T) {
	r := &Resolver{Lookup: func(context.Context, string) ([]net.IPAddr, error) {
		return nil, &net.DNSError{Err: "no such host", Name: "nowhere.invalid", IsNotFound: true}
	}}

	if got := r.Resolve(context.Background(), "nowhere.invalid", FamilyAny); len(got) != 0 {
		t.Errorf("Resolve = %v, want empty", got)
	}
}

func TestResolveNoMatchingFamily(t *testing.T) {
	r := &Resolver{Lookup: staticLookup(t, "v4only.example", "192.0.2.9")}

	if got := r.Resolve(context.Background(), "v4only.example", FamilyIPv6); len(got) != 0 {
		t.Errorf("Resolve = %v, want empty", got)
	}
}

func TestNilResolverUsesSystemLookup(t *testing.T) {
	var r *Resolver
	if got := r.Resolve(context.Background(), "127.0.0.1", FamilyAny); !reflect.DeepEqual(got, []string{"127.0.0.1"}) {
		t.Errorf("Resolve = %v", got)
	}
}

func TestParseAddressFamily(t *testing.T) {
	tests := []struct {
		in      string
		want    AddressFamily
		wantErr bool
	}{
		{"", FamilyAny, false},
		{"any", FamilyAny, false},
		{"IPv4", FamilyIPv4, false},
		{"4", FamilyIPv4, false},
		{"inet6", FamilyIPv6, false},
		{"6", FamilyIPv6, false},
		{"ipx", FamilyAny, true},
	}

	for _, tt := range tests {
		got, err := ParseAddressFamily(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAddressFamily(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAddressFamily(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
