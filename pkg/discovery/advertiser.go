package discovery

import (
	"context"
	"time"
)

// Advertiser announces a listening peer on the local link.
type Advertiser interface {
	// Advertise starts advertising info, replacing a previous advertisement.
	Advertise(ctx context.Context, info *PeerInfo) error

	// Update replaces the TXT records of the running advertisement.
	Update(info *PeerInfo) error

	// Stop withdraws the advertisement. Stopping twice is not an error.
	Stop() error
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		TTL: DefaultTTL,
	}
}
