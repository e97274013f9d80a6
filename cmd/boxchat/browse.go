package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/boxchat/boxchat-go/pkg/discovery"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "List peers advertised on the local network",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

func init() {
	browseCmd.Flags().Duration("timeout", discovery.BrowseTimeout, "How long to browse")
	browseCmd.Flags().String("interface", "", "Network interface to browse on (default all)")
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	iface, _ := cmd.Flags().GetString("interface")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	browser := discovery.NewMDNSBrowser(discovery.BrowserConfig{
		BrowseTimeout: timeout,
		Interface:     iface,
	})
	results, err := browser.Browse(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tADDRESSES")
	seen := 0
	for peer := range results {
		seen++
		fmt.Fprintf(w, "%s\t%s\t%s\n", peer.Name, peer.Address(), strings.Join(peer.Addresses, ","))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	rt.logger.Debug().Int("peers", seen).Dur("timeout", timeout).Msg("Browse finished")
	return nil
}
