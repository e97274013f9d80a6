package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/boxchat/boxchat-go/pkg/config"
	"github.com/boxchat/boxchat-go/pkg/log"
	"github.com/boxchat/boxchat-go/pkg/metrics"
	"github.com/boxchat/boxchat-go/pkg/transport"
)

var rootCmd = &cobra.Command{
	Use:   "boxchat",
	Short: "Point-to-point chat with sealed-box encryption",
	Long: `boxchat connects two peers over TCP. Either side may offer its public
key; once both keys are exchanged every message travels as a NaCl sealed box.

Run 'boxchat listen' on one machine and 'boxchat connect <host>' on the other.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(connectCmd, listenCmd, browseCmd, logCmd)
}

// addGlobalFlags defines the flags shared by every subcommand.
func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Config file (.yaml, .yml or .toml)")
	flags.String("name", "", "Chat name shown to the peer")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("protocol-log", "", "Write protocol events to this .blog file")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9116)")
	flags.String("family", "", "Address family (any, ipv4, ipv6)")
	flags.String("framing", "", "Frame delimiter (terminator, length-prefix)")
}

// runtime is the shared state of the network commands.
type runtime struct {
	cfg    config.Config
	conn   transport.ConnectionConfig
	logger zerolog.Logger

	closers []func() error
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	overrides := map[string]*string{
		"name":         &cfg.Name,
		"log-level":    &cfg.LogLevel,
		"protocol-log": &cfg.ProtocolLog,
		"metrics-addr": &cfg.MetricsAddr,
		"family":       &cfg.Family,
		"framing":      &cfg.Framing,
	}
	for flag, field := range overrides {
		if cmd.Flags().Changed(flag) {
			*field, _ = cmd.Flags().GetString(flag)
		}
	}
	return cfg, cfg.Validate()
}

// newRuntime builds the loggers, metrics and connection configuration.
// The caller must call close.
func newRuntime(cmd *cobra.Command, cfg config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	output := zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		TimeFormat: time.RFC3339,
	}
	rt.logger = zerolog.New(output).Level(level).With().Timestamp().Str("app", "boxchat").Logger()

	rt.conn, err = cfg.ConnectionConfig()
	if err != nil {
		return nil, err
	}

	loggers := []log.Logger{log.NewZerologAdapter(rt.logger)}

	if cfg.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		rt.closers = append(rt.closers, fl.Close)
		loggers = append(loggers, fl)
		rt.logger.Info().Str("path", fl.Path()).Msg("Protocol logging enabled")
	}

	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector()
		loggers = append(loggers, collector)
		rt.serveMetrics(collector)
	}

	rt.conn.Logger = log.NewMultiLogger(loggers...)
	return rt, nil
}

func (rt *runtime) serveMetrics(collector *metrics.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{
		Addr:              rt.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		rt.logger.Info().Str("addr", srv.Addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	rt.closers = append(rt.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn().Err(err).Msg("Shutdown error")
		}
	}
}

// setup is loadConfig followed by newRuntime.
func setup(cmd *cobra.Command) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newRuntime(cmd, cfg)
}
