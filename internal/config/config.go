// Package config loads exchange configuration from the environment (and
// an optional local .env file), validates it, and applies defaults. One
// Load() entry point, explicit defaults, returns an error for invalid
// values — the teacher's config.Load shape, rebuilt on viper/godotenv
// the way vegaprotocol-vega and uhyunpark-hyperlicked do, instead of the
// teacher's hand-rolled os.Getenv/strconv parsing.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every recognized option from SPEC_FULL.md §6.3.
type Config struct {
	StartingCapital float64
	ExpectedClients int
	ShortsAllowed   bool

	ClientsPath string

	TransportHost             string
	TransportPort             int
	TransportUser             string
	TransportPass             string
	TransportMarketOrderQueue string
	TransportUpdatesExchange  string

	AdminPort int
	LogLevel  string
}

// Load reads configuration from the environment, after first loading a
// local .env file if one is present (a missing .env is not an error).
func Load() (*Config, error) {
	_ = godotenv.Load() // best-effort: a missing .env is expected in production

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("starting_capital", 100000.00)
	v.SetDefault("shorts_allowed", false)
	v.SetDefault("clients.path", "clients.json")
	v.SetDefault("transport.host", "localhost")
	v.SetDefault("transport.port", 5672)
	v.SetDefault("transport.user", "guest")
	v.SetDefault("transport.pass", "guest")
	v.SetDefault("transport.market_order_queue", "market_order")
	v.SetDefault("transport.updates_exchange", "exchange.updates")
	v.SetDefault("admin.port", 8080)
	v.SetDefault("log_level", "info")

	bindings := []string{
		"starting_capital", "expected_clients", "shorts_allowed", "clients.path",
		"transport.host", "transport.port", "transport.user", "transport.pass",
		"transport.market_order_queue", "transport.updates_exchange",
		"admin.port", "log_level",
	}
	for _, key := range bindings {
		envVar := envVarFor(key)
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("config: failed to bind %s: %w", envVar, err)
		}
	}

	if !v.IsSet("expected_clients") {
		return nil, fmt.Errorf("config: EXPECTED_CLIENTS is required")
	}

	cfg := &Config{
		StartingCapital:           v.GetFloat64("starting_capital"),
		ExpectedClients:           v.GetInt("expected_clients"),
		ShortsAllowed:             v.GetBool("shorts_allowed"),
		ClientsPath:               v.GetString("clients.path"),
		TransportHost:             v.GetString("transport.host"),
		TransportPort:             v.GetInt("transport.port"),
		TransportUser:             v.GetString("transport.user"),
		TransportPass:             v.GetString("transport.pass"),
		TransportMarketOrderQueue: v.GetString("transport.market_order_queue"),
		TransportUpdatesExchange:  v.GetString("transport.updates_exchange"),
		AdminPort:                 v.GetInt("admin.port"),
		LogLevel:                  v.GetString("log_level"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ExpectedClients <= 0 {
		return fmt.Errorf("config: expected_clients must be positive, got %d", c.ExpectedClients)
	}
	if c.StartingCapital < 0 {
		return fmt.Errorf("config: starting_capital must be non-negative, got %v", c.StartingCapital)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	if c.AdminPort <= 0 || c.AdminPort > 65535 {
		return fmt.Errorf("config: admin.port out of range: %d", c.AdminPort)
	}
	return nil
}

// envVarFor converts a dotted viper key into the uppercase, underscored
// environment variable name documented in SPEC_FULL.md §6.3, e.g.
// "transport.host" → "TRANSPORT_HOST".
func envVarFor(key string) string {
	out := make([]byte, 0, len(key))
	for _, r := range key {
		if r == '.' {
			out = append(out, '_')
			continue
		}
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		out = append(out, byte(r))
	}
	return string(out)
}
