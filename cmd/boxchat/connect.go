package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/boxchat/boxchat-go/pkg/connection"
	"github.com/boxchat/boxchat-go/pkg/discovery"
	"github.com/boxchat/boxchat-go/pkg/transport"
)

var connectCmd = &cobra.Command{
	Use:   "connect <host[:port]>",
	Short: "Dial a listening peer and chat",
	Long: `Dial a listening peer and chat.

With --discover the argument is a chat name looked up via mDNS instead of a
host.`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().IntP("port", "p", 0, "Port to dial (default from config, 16999)")
	connectCmd.Flags().Bool("encrypt", true, "Offer our public key right after connecting")
	connectCmd.Flags().Int("retries", 0, "Extra dial attempts with exponential backoff")
	connectCmd.Flags().Bool("discover", false, "Treat the argument as an advertised chat name")
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("encrypt") {
		cfg.Encrypt, _ = cmd.Flags().GetBool("encrypt")
	}
	if cmd.Flags().Changed("retries") {
		cfg.Retries, _ = cmd.Flags().GetInt("retries")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	rt, err := newRuntime(cmd, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ctx := cmd.Context()
	host, port := args[0], cfg.Port

	if discover, _ := cmd.Flags().GetBool("discover"); discover {
		browser := discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
		peer, err := browser.Find(ctx, args[0])
		if err != nil {
			return fmt.Errorf("find %q: %w", args[0], err)
		}
		host, port = peer.DialHost(), int(peer.Port)
		rt.logger.Info().Str("name", peer.Name).Str("addr", peer.Address()).Msg("Found peer")
	} else if h, p, ok := splitHostPort(args[0]); ok {
		host, port = h, p
	}

	redialer := &connection.Redialer{
		Dial: func(ctx context.Context) (*transport.Connection, error) {
			return transport.Dial(ctx, rt.conn, host, port)
		},
		Backoff:  connection.NewBackoff(),
		Attempts: cfg.Retries + 1,
		OnRetry: func(attempt int, err error) {
			rt.logger.Warn().Err(err).Int("attempt", attempt).Msg("Dial failed, retrying")
		},
	}
	conn, err := redialer.Run(ctx)
	if err != nil {
		return err
	}
	rt.logger.Info().
		Str("remote", conn.RemoteAddr().String()).
		Str("conn_id", conn.ConnID()).
		Msg("Connected")

	return rt.runChat(ctx, conn, cfg.Encrypt)
}

// splitHostPort accepts host:port, [v6]:port and bare hosts. A bare IPv6
// literal has no port.
func splitHostPort(s string) (string, int, bool) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, false
	}
	return host, port, true
}
