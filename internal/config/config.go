// Package config provides configuration loading and validation.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/fd1az/swap-router/internal/apperror"
)

// Venue names as they appear under the venues section.
const (
	VenueJupiter  = "jupiter"
	VenueRaydium  = "raydium"
	VenuePumpSwap = "pumpswap"
	VenueMeteora  = "meteora"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig              `mapstructure:"app"`
	Venues     map[string]VenueConfig `mapstructure:"venues"`
	Shyft      ShyftConfig            `mapstructure:"shyft"`
	Retry      RetryConfig            `mapstructure:"retry"`
	Aggregator AggregatorConfig       `mapstructure:"aggregator"`
	Pricing    PricingConfig          `mapstructure:"pricing"`
	Solana     SolanaConfig           `mapstructure:"solana"`
	Wallet     WalletConfig           `mapstructure:"wallet"`
	Telemetry  TelemetryConfig        `mapstructure:"telemetry"`
	Health     HealthConfig           `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // set at runtime from flags
}

// VenueConfig configures one liquidity venue.
type VenueConfig struct {
	Enabled   bool            `mapstructure:"enabled"`
	APIURL    string          `mapstructure:"api_url"`
	TxURL     string          `mapstructure:"tx_url"` // raydium transaction API
	APIKey    string          `mapstructure:"api_key"`
	FeeBps    uint32          `mapstructure:"fee_bps"` // simulated venues only
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig allows Requests per Window.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// ShyftConfig configures the GraphQL account indexer used for pool discovery.
type ShyftConfig struct {
	URL     string `mapstructure:"url"`
	APIKey  string `mapstructure:"api_key"`
	Network string `mapstructure:"network"`
}

// RetryConfig is the repository retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
}

// AggregatorConfig bounds the venue fan-out.
type AggregatorConfig struct {
	VenueTimeout   time.Duration `mapstructure:"venue_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ErrorLogSize   int           `mapstructure:"error_log_size"`
}

// PricingConfig controls the token price refresh of long-running modes.
type PricingConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"` // 0 disables
}

// SolanaConfig holds the chain RPC endpoints.
type SolanaConfig struct {
	RPCURL            string        `mapstructure:"rpc_url"`
	WSURL             string        `mapstructure:"ws_url"`
	Commitment        string        `mapstructure:"commitment"`
	ConfirmTimeout    time.Duration `mapstructure:"confirm_timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	MaxReconnects     int           `mapstructure:"max_reconnects"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval"`
}

// WalletConfig holds the signing key. An empty secret key disables execution.
type WalletConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"` // console, zipkin, otlp-grpc, otlp-http
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithCause(err),
				apperror.WithContext("failed to read config"))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("failed to unmarshal config"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ROUTER_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ROUTER_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ROUTER_LOG_LEVEL", "LOG_LEVEL")

	// Solana
	v.BindEnv("solana.rpc_url", "ROUTER_RPC_URL", "RPC_URL", "SHYFT_RPC")
	v.BindEnv("solana.ws_url", "ROUTER_WS_URL", "WS_URL")
	v.BindEnv("wallet.secret_key", "ROUTER_WALLET_SECRET_KEY", "WALLET_SECRET_KEY")

	// Shyft
	v.BindEnv("shyft.api_key", "ROUTER_SHYFT_API_KEY", "SHYFT_API_KEY")

	// Venues
	v.BindEnv("venues.jupiter.api_key", "ROUTER_JUPITER_API_KEY", "JUPITER_API_KEY")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ROUTER_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ROUTER_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ROUTER_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "swap-router")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Venue defaults
	v.SetDefault("venues.jupiter.enabled", true)
	v.SetDefault("venues.jupiter.api_url", "https://lite-api.jup.ag")
	v.SetDefault("venues.jupiter.rate_limit.requests", 100)
	v.SetDefault("venues.jupiter.rate_limit.window", "60s")

	v.SetDefault("venues.raydium.enabled", true)
	v.SetDefault("venues.raydium.api_url", "https://api-v3.raydium.io")
	v.SetDefault("venues.raydium.tx_url", "https://transaction-v1.raydium.io")
	v.SetDefault("venues.raydium.rate_limit.requests", 50)
	v.SetDefault("venues.raydium.rate_limit.window", "60s")

	v.SetDefault("venues.pumpswap.enabled", true)
	v.SetDefault("venues.pumpswap.api_url", "https://programs.shyft.to")
	v.SetDefault("venues.pumpswap.fee_bps", 25)
	v.SetDefault("venues.pumpswap.rate_limit.requests", 30)
	v.SetDefault("venues.pumpswap.rate_limit.window", "60s")

	v.SetDefault("venues.meteora.enabled", true)
	v.SetDefault("venues.meteora.api_url", "https://programs.shyft.to")
	v.SetDefault("venues.meteora.fee_bps", 30)
	v.SetDefault("venues.meteora.rate_limit.requests", 30)
	v.SetDefault("venues.meteora.rate_limit.window", "60s")

	// Shyft defaults
	v.SetDefault("shyft.url", "https://programs.shyft.to/v0/graphql/accounts")
	v.SetDefault("shyft.network", "mainnet-beta")

	// Retry defaults
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")

	// Aggregator defaults
	v.SetDefault("aggregator.venue_timeout", "5s")
	v.SetDefault("aggregator.request_timeout", "15s")
	v.SetDefault("aggregator.error_log_size", 1000)

	// Pricing defaults
	v.SetDefault("pricing.refresh_interval", "60s")

	// Solana defaults
	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.ws_url", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.confirm_timeout", "60s")
	v.SetDefault("solana.poll_interval", "2s")
	v.SetDefault("solana.max_reconnects", 0) // infinite
	v.SetDefault("solana.reconnect_interval", "1s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "swap-router")
	v.SetDefault("telemetry.trace_provider", "console")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8080)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validateHTTPURL("solana.rpc_url", c.Solana.RPCURL); err != nil {
		return err
	}
	switch c.Solana.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return invalid("solana.commitment must be processed, confirmed or finalized")
	}
	for name, venue := range c.Venues {
		if !venue.Enabled {
			continue
		}
		if err := validateHTTPURL("venues."+name+".api_url", venue.APIURL); err != nil {
			return err
		}
		if venue.FeeBps > 10000 {
			return invalid("venues." + name + ".fee_bps must be at most 10000")
		}
		if venue.RateLimit.Requests > 0 && venue.RateLimit.Window <= 0 {
			return invalid("venues." + name + ".rate_limit.window must be positive")
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return invalid("retry.max_attempts must be at least 1")
	}
	if c.Aggregator.VenueTimeout <= 0 {
		return invalid("aggregator.venue_timeout must be positive")
	}
	if c.Aggregator.ErrorLogSize < 1 {
		return invalid("aggregator.error_log_size must be at least 1")
	}
	return nil
}

// Venue returns the configuration of a venue and whether it is present.
func (c *Config) Venue(name string) (VenueConfig, bool) {
	v, ok := c.Venues[name]
	return v, ok
}

func validateHTTPURL(key, raw string) error {
	if raw == "" {
		return invalid(key + " is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return invalid(key + " must be an http(s) URL")
	}
	return nil
}

func invalid(msg string) error {
	return apperror.New(apperror.CodeConfigurationError, apperror.WithMessage(msg))
}
