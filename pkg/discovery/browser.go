package discovery

import (
	"context"
	"time"
)

// Browser finds advertised peers.
type Browser interface {
	// Browse streams peers as they are found. An instance is reported once
	// with the addresses known at that time. The channel is closed when ctx
	// ends.
	Browse(ctx context.Context) (<-chan *PeerService, error)

	// Find returns the first peer whose chat name or instance name equals
	// name. It gives up after BrowseTimeout unless ctx ends sooner.
	Find(ctx context.Context, name string) (*PeerService, error)
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for Find.
	// Default: 5 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}
