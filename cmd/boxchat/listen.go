package main

import (
	"net"

	"github.com/spf13/cobra"

	"github.com/boxchat/boxchat-go/pkg/discovery"
	"github.com/boxchat/boxchat-go/pkg/transport"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Wait for one peer and chat",
	Args:  cobra.NoArgs,
	RunE:  runListen,
}

func init() {
	listenCmd.Flags().StringP("listen", "l", "", "Address to bind (default from config, :16999)")
	listenCmd.Flags().Bool("advertise", false, "Announce this listener via mDNS")
	listenCmd.Flags().Bool("encrypt", false, "Offer our public key as soon as the peer connects")
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen, _ = cmd.Flags().GetString("listen")
	}
	if cmd.Flags().Changed("advertise") {
		cfg.Advertise, _ = cmd.Flags().GetBool("advertise")
	}
	// Listeners answer a peer's key offer; offering first is opt-in.
	encrypt, _ := cmd.Flags().GetBool("encrypt")

	rt, err := newRuntime(cmd, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	ln, err := transport.Listen(cfg.Listen, rt.conn)
	if err != nil {
		return err
	}
	defer ln.Close()
	rt.logger.Info().Str("addr", ln.Addr().String()).Msg("Listening")

	ctx := cmd.Context()
	if cfg.Advertise {
		adv := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig())
		info := &discovery.PeerInfo{Name: cfg.Name}
		if addr, ok := ln.Addr().(*net.TCPAddr); ok {
			info.Port = uint16(addr.Port)
		}
		if err := adv.Advertise(ctx, info); err != nil {
			return err
		}
		defer adv.Stop()
		rt.logger.Info().Str("name", cfg.Name).Str("service", discovery.ServiceType).Msg("Advertising")
	}

	conn, err := ln.Accept(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	rt.logger.Info().
		Str("remote", conn.RemoteAddr().String()).
		Str("conn_id", conn.ConnID()).
		Msg("Peer connected")

	return rt.runChat(ctx, conn, encrypt)
}
