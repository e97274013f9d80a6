package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/boxchat/boxchat-go/pkg/transport"
)

// Service constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of boxchat listeners.
	ServiceType = "_boxchat._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is advertised when PeerInfo.Port is zero.
	DefaultPort = transport.DefaultPort

	// ProtocolVersion is the advertised wire protocol version.
	ProtocolVersion = "1"
)

// TXT record keys.
const (
	TXTKeyName    = "name" // Chat name
	TXTKeyVersion = "ver"  // Protocol version
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for one-shot lookups.
	BrowseTimeout = 5 * time.Second

	// DefaultTTL is the DNS record TTL of advertisements.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxNameLen bounds the chat name carried in TXT records.
	MaxNameLen = 200
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrUnsupportedVersion  = errors.New("unsupported protocol version")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// PeerInfo is what a listening peer advertises.
type PeerInfo struct {
	// Name is the user's chat name.
	Name string

	// Port is the TCP listen port (0 = DefaultPort).
	Port uint16
}

// PeerService is an advertised peer found by browsing.
type PeerService struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Host is the advertised host name.
	Host string

	// Port is the TCP port to dial.
	Port uint16

	// Addresses are the resolved addresses, IPv4 first.
	Addresses []string

	// Name is the chat name from the TXT records.
	Name string

	// Version is the advertised protocol version.
	Version string
}

// DialHost returns the host to pass to transport.Dial: the first resolved
// address, or the advertised host name when none resolved.
func (s *PeerService) DialHost() string {
	if len(s.Addresses) > 0 {
		return s.Addresses[0]
	}
	return s.Host
}

// Address returns DialHost and Port joined as host:port.
func (s *PeerService) Address() string {
	return net.JoinHostPort(s.DialHost(), strconv.Itoa(int(s.Port)))
}
