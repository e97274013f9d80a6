package main

import (
	"github.com/spf13/cobra"

	"github.com/boxchat/boxchat-go/cmd/boxchat/commands"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect protocol log files",
}

var logViewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Print events in human-readable form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter commands.ViewFilter
		filter.ConnID, _ = cmd.Flags().GetString("conn")

		if s, _ := cmd.Flags().GetString("layer"); s != "" {
			l, err := commands.ParseLayerFlag(s)
			if err != nil {
				return err
			}
			filter.Layer = &l
		}
		if s, _ := cmd.Flags().GetString("direction"); s != "" {
			d, err := commands.ParseDirectionFlag(s)
			if err != nil {
				return err
			}
			filter.Direction = &d
		}
		if s, _ := cmd.Flags().GetString("category"); s != "" {
			c, err := commands.ParseCategoryFlag(s)
			if err != nil {
				return err
			}
			filter.Category = &c
		}
		return commands.RunView(args[0], filter, cmd.OutOrStdout())
	},
}

var logStatsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Summarize events per layer, category and connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commands.RunStats(args[0], cmd.OutOrStdout())
	},
}

var logExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export events as JSON lines or CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		return commands.RunExport(args[0], format, output)
	},
}

var logFilterCmd = &cobra.Command{
	Use:   "filter <file>",
	Short: "Copy matching events into a new log file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts commands.FilterOptions
		opts.Output, _ = cmd.Flags().GetString("output")
		opts.ConnID, _ = cmd.Flags().GetString("conn")
		opts.RemoteAddr, _ = cmd.Flags().GetString("remote")
		opts.TimeStart, _ = cmd.Flags().GetString("time-start")
		opts.TimeEnd, _ = cmd.Flags().GetString("time-end")
		opts.Layer, _ = cmd.Flags().GetString("layer")
		opts.Direction, _ = cmd.Flags().GetString("direction")
		opts.Category, _ = cmd.Flags().GetString("category")
		return commands.RunFilter(args[0], opts, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{logViewCmd, logFilterCmd} {
		c.Flags().String("conn", "", "Only events of this connection ID")
		c.Flags().String("layer", "", "Only this layer (transport, wire, crypto)")
		c.Flags().String("direction", "", "Only this direction (in, out)")
		c.Flags().String("category", "", "Only this category (message, control, state, error)")
	}

	logExportCmd.Flags().String("format", "jsonl", "Output format (jsonl, csv)")
	logExportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")

	logFilterCmd.Flags().StringP("output", "o", "", "Output .blog file")
	logFilterCmd.Flags().String("remote", "", "Only events with this peer address")
	logFilterCmd.Flags().String("time-start", "", "Only events at or after this RFC3339 time")
	logFilterCmd.Flags().String("time-end", "", "Only events before this RFC3339 time")
	_ = logFilterCmd.MarkFlagRequired("output")

	logCmd.AddCommand(logViewCmd, logStatsCmd, logExportCmd, logFilterCmd)
}
