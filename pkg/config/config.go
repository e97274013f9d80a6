// Package config loads boxchat CLI configuration from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/boxchat/boxchat-go/pkg/transport"
)

// Config errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalidConfig     = errors.New("invalid config")
)

// Config is the on-disk CLI configuration. Durations are Go duration
// strings ("5s", "250ms"); an empty duration means no timeout.
type Config struct {
	// Name is the chat name shown to peers and advertised via mDNS.
	Name string `yaml:"name" toml:"name"`

	// Listen is the address `boxchat listen` binds.
	Listen string `yaml:"listen" toml:"listen"`

	// Port is dialed when `boxchat connect` is given no port.
	Port int `yaml:"port" toml:"port"`

	// Family restricts addresses: any, ipv4 or ipv6.
	Family string `yaml:"family" toml:"family"`

	// Framing selects terminator or length-prefix framing.
	Framing string `yaml:"framing" toml:"framing"`

	MaxMessageSize uint32 `yaml:"max_message_size" toml:"max_message_size"`

	ConnectTimeout string `yaml:"connect_timeout" toml:"connect_timeout"`
	ReadTimeout    string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout   string `yaml:"write_timeout" toml:"write_timeout"`
	CloseTimeout   string `yaml:"close_timeout" toml:"close_timeout"`

	// Encrypt makes `connect` offer its key right after dialing.
	Encrypt bool `yaml:"encrypt" toml:"encrypt"`

	// Retries is the number of extra dial attempts.
	Retries int `yaml:"retries" toml:"retries"`

	// Advertise announces `listen` via mDNS.
	Advertise bool `yaml:"advertise" toml:"advertise"`

	// LogLevel is the zerolog level for operational logs.
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// ProtocolLog is a .blog file receiving protocol events (optional).
	ProtocolLog string `yaml:"protocol_log" toml:"protocol_log"`

	// MetricsAddr serves Prometheus metrics when set (e.g. ":9116").
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	name := os.Getenv("USER")
	if name == "" {
		name = "boxchat"
	}
	return Config{
		Name:           name,
		Listen:         fmt.Sprintf(":%d", transport.DefaultPort),
		Port:           transport.DefaultPort,
		Family:         transport.FamilyAny.String(),
		Framing:        transport.FramingTerminator.String(),
		MaxMessageSize: transport.DefaultMaxMessageSize,
		ConnectTimeout: "10s",
		CloseTimeout:   "2s",
		Encrypt:        true,
		LogLevel:       "info",
	}
}

// Load reads path over Default. The format follows the extension: .yaml or
// .yml for YAML, .toml for TOML. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative", ErrInvalidConfig)
	}
	if _, err := transport.ParseAddressFamily(c.Family); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := transport.ParseFramingMode(c.Framing); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for key, value := range c.durations() {
		if _, err := parseDuration(value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
	}
	return nil
}

// ConnectionConfig maps the file settings onto a transport configuration.
func (c Config) ConnectionConfig() (transport.ConnectionConfig, error) {
	if err := c.Validate(); err != nil {
		return transport.ConnectionConfig{}, err
	}

	cfg := transport.DefaultConnectionConfig()
	cfg.Family, _ = transport.ParseAddressFamily(c.Family)
	cfg.Framing, _ = transport.ParseFramingMode(c.Framing)
	if c.MaxMessageSize > 0 {
		cfg.MaxMessageSize = c.MaxMessageSize
	}
	cfg.ConnectTimeout, _ = parseDuration(c.ConnectTimeout)
	cfg.ReadTimeout, _ = parseDuration(c.ReadTimeout)
	cfg.WriteTimeout, _ = parseDuration(c.WriteTimeout)
	if d, _ := parseDuration(c.CloseTimeout); d > 0 {
		cfg.CloseTimeout = d
	}
	return cfg, nil
}

func (c Config) durations() map[string]string {
	return map[string]string{
		"connect_timeout": c.ConnectTimeout,
		"read_timeout":    c.ReadTimeout,
		"write_timeout":   c.WriteTimeout,
		"close_timeout":   c.CloseTimeout,
	}
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}
