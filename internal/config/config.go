package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/irfndi/etfflow-go/internal/utils"
)

// Upper bound on synthesized demo rows.
const MaxDemoDataPoints = 300

// Lower bound on the dashboard refresh interval.
const MinRefreshInterval = time.Minute

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	FlowAPI     FlowAPIConfig     `mapstructure:"flow_api"`
	Market      MarketConfig      `mapstructure:"market"`
	Demo        DemoConfig        `mapstructure:"demo"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Dashboard   DashboardConfig   `mapstructure:"dashboard"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     string `mapstructure:"ttl"`
	Key     string `mapstructure:"key"`
}

// TransportConfig is shared by every upstream HTTP provider.
type TransportConfig struct {
	BaseURL         string  `mapstructure:"base_url"`
	Timeout         int     `mapstructure:"timeout"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	Burst           int     `mapstructure:"burst"`
	BreakerFailures int     `mapstructure:"breaker_failures"`
	BreakerTimeout  string  `mapstructure:"breaker_timeout"`
}

// FlowAPIConfig configures the SoSoValue ETF flow endpoint.
type FlowAPIConfig struct {
	TransportConfig `mapstructure:",squash"`
	APIKey          string `mapstructure:"api_key" json:"-" yaml:"-"`
	ETFType         string `mapstructure:"etf_type"`
}

// MarketConfig configures the CoinGecko price endpoint.
type MarketConfig struct {
	TransportConfig `mapstructure:",squash"`
	CoinID          string `mapstructure:"coin_id"`
	VsCurrency      string `mapstructure:"vs_currency"`
	LookbackDays    int    `mapstructure:"lookback_days"`
}

type DemoConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DataPoints  int     `mapstructure:"data_points"`
	InflowMin   float64 `mapstructure:"inflow_min"`
	InflowMax   float64 `mapstructure:"inflow_max"`
	Volatility  float64 `mapstructure:"volatility"`
	TrendFactor float64 `mapstructure:"trend_factor"`
	// Seed fixes the demo generator; zero picks a fresh seed per load.
	Seed uint64 `mapstructure:"seed"`
}

type CorrelationConfig struct {
	Window          int     `mapstructure:"window"`
	MinPairedPoints int     `mapstructure:"min_paired_points"`
	MinSamples      int     `mapstructure:"min_samples"`
	InflowOutlier   float64 `mapstructure:"inflow_outlier"`
	PriceOutlier    float64 `mapstructure:"price_outlier"`
	VeryStrong      float64 `mapstructure:"very_strong"`
	Strong          float64 `mapstructure:"strong"`
	Moderate        float64 `mapstructure:"moderate"`
	Weak            float64 `mapstructure:"weak"`
	// SynthSeed fixes the synthetic price walk; zero derives it from the data.
	SynthSeed uint64 `mapstructure:"synth_seed"`
}

type DashboardConfig struct {
	RefreshInterval string `mapstructure:"refresh_interval"`
	AutoRefresh     bool   `mapstructure:"auto_refresh"`
	PageSize        int    `mapstructure:"page_size"`
	TrendPeriod     int    `mapstructure:"trend_period"`
	MovingAverage   int    `mapstructure:"moving_average"`
}

type AlertsConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	LargeInflow      float64 `mapstructure:"large_inflow"`
	LargeOutflow     float64 `mapstructure:"large_outflow"`
	VolumeChangePct  float64 `mapstructure:"volume_change_pct"`
	SignificantMove  float64 `mapstructure:"significant_move"`
	MaxMovements     int     `mapstructure:"max_movements"`
	OutlierThreshold float64 `mapstructure:"outlier_threshold"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Load reads configs/config.yaml (or ./config.yaml), then environment
// overrides, and validates the result.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("flow_api.api_key", "SOSO_API_KEY", "FLOW_API_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind SOSO_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "json")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "24h")
	viper.SetDefault("cache.key", "etf:flows:us-btc-spot")

	// SoSoValue
	viper.SetDefault("flow_api.base_url", "https://api.sosovalue.xyz")
	viper.SetDefault("flow_api.timeout", 30)
	viper.SetDefault("flow_api.rate_limit", 1.0)
	viper.SetDefault("flow_api.burst", 2)
	viper.SetDefault("flow_api.breaker_failures", 3)
	viper.SetDefault("flow_api.breaker_timeout", "60s")
	viper.SetDefault("flow_api.api_key", "")
	viper.SetDefault("flow_api.etf_type", "us-btc-spot")

	// CoinGecko
	viper.SetDefault("market.base_url", "https://api.coingecko.com")
	viper.SetDefault("market.timeout", 30)
	viper.SetDefault("market.rate_limit", 0.5)
	viper.SetDefault("market.burst", 1)
	viper.SetDefault("market.breaker_failures", 3)
	viper.SetDefault("market.breaker_timeout", "60s")
	viper.SetDefault("market.coin_id", "bitcoin")
	viper.SetDefault("market.vs_currency", "usd")
	viper.SetDefault("market.lookback_days", 90)

	// Demo data
	viper.SetDefault("demo.enabled", true)
	viper.SetDefault("demo.data_points", MaxDemoDataPoints)
	viper.SetDefault("demo.inflow_min", -50_000_000)
	viper.SetDefault("demo.inflow_max", 150_000_000)
	viper.SetDefault("demo.volatility", 50_000_000)
	viper.SetDefault("demo.trend_factor", 100_000)
	viper.SetDefault("demo.seed", 0)

	// Correlation
	viper.SetDefault("correlation.window", 30)
	viper.SetDefault("correlation.min_paired_points", 10)
	viper.SetDefault("correlation.min_samples", 5)
	viper.SetDefault("correlation.inflow_outlier", 500.0)
	viper.SetDefault("correlation.price_outlier", 50.0)
	viper.SetDefault("correlation.very_strong", 0.7)
	viper.SetDefault("correlation.strong", 0.5)
	viper.SetDefault("correlation.moderate", 0.3)
	viper.SetDefault("correlation.weak", 0.1)
	viper.SetDefault("correlation.synth_seed", 0)

	// Dashboard
	viper.SetDefault("dashboard.refresh_interval", "5m")
	viper.SetDefault("dashboard.auto_refresh", true)
	viper.SetDefault("dashboard.page_size", 50)
	viper.SetDefault("dashboard.trend_period", 14)
	viper.SetDefault("dashboard.moving_average", 7)

	// Alerts
	viper.SetDefault("alerts.enabled", true)
	viper.SetDefault("alerts.large_inflow", 200_000_000)
	viper.SetDefault("alerts.large_outflow", -100_000_000)
	viper.SetDefault("alerts.volume_change_pct", 50.0)
	viper.SetDefault("alerts.significant_move", 100_000_000)
	viper.SetDefault("alerts.max_movements", 10)
	viper.SetDefault("alerts.outlier_threshold", 2.0)

	// Telegram
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", 0)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	viper.SetDefault("telemetry.service_name", "etfflow")
	viper.SetDefault("telemetry.sample_rate", 1.0)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if !c.Demo.Enabled && !c.FlowAPI.Configured() {
		errs = append(errs, utils.NewValidationError("flow_api.api_key is required when demo mode is disabled"))
	}

	if interval, err := time.ParseDuration(c.Dashboard.RefreshInterval); err != nil {
		errs = append(errs, utils.NewValidationErrorf("invalid dashboard.refresh_interval %q: %v", c.Dashboard.RefreshInterval, err))
	} else if interval < MinRefreshInterval {
		errs = append(errs, utils.NewValidationErrorf("dashboard.refresh_interval must be at least %s", MinRefreshInterval))
	}

	if c.Demo.DataPoints <= 0 || c.Demo.DataPoints > MaxDemoDataPoints {
		errs = append(errs, utils.NewValidationErrorf("demo.data_points must be between 1 and %d", MaxDemoDataPoints))
	}
	if c.Demo.InflowMax < c.Demo.InflowMin {
		errs = append(errs, utils.NewValidationError("demo.inflow_max must not be below demo.inflow_min"))
	}

	cc := c.Correlation
	if cc.Window < 2 {
		errs = append(errs, utils.NewValidationError("correlation.window must be at least 2"))
	}
	if cc.MinPairedPoints < 2 {
		errs = append(errs, utils.NewValidationError("correlation.min_paired_points must be at least 2"))
	}
	if cc.MinSamples < 2 {
		errs = append(errs, utils.NewValidationError("correlation.min_samples must be at least 2"))
	}
	if cc.InflowOutlier <= 0 || cc.PriceOutlier <= 0 {
		errs = append(errs, utils.NewValidationError("correlation outlier thresholds must be positive"))
	}
	if !(cc.VeryStrong > cc.Strong && cc.Strong > cc.Moderate && cc.Moderate > cc.Weak && cc.Weak >= 0 && cc.VeryStrong < 1) {
		errs = append(errs, utils.NewValidationError("correlation breakpoints must be strictly descending within [0, 1)"))
	}

	for name, d := range map[string]string{
		"cache.ttl":                c.Cache.TTL,
		"flow_api.breaker_timeout": c.FlowAPI.BreakerTimeout,
		"market.breaker_timeout":   c.Market.BreakerTimeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			errs = append(errs, utils.NewValidationErrorf("invalid %s %q: %v", name, d, err))
		}
	}

	if c.Dashboard.PageSize <= 0 {
		errs = append(errs, utils.NewValidationError("dashboard.page_size must be positive"))
	}

	switch c.Telemetry.Exporter {
	case "stdout", "otlp":
	default:
		errs = append(errs, utils.NewValidationErrorf("unknown telemetry.exporter %q", c.Telemetry.Exporter))
	}

	return errors.Join(errs...)
}

// IsDemoMode reports whether flows are synthesized instead of fetched.
func (c *Config) IsDemoMode() bool {
	return c.Demo.Enabled || !c.FlowAPI.Configured()
}

// Configured reports whether a usable API key is present.
func (c FlowAPIConfig) Configured() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != "your-api-key-here"
}

// GetTimeout returns the request timeout, defaulting to 30 seconds.
func (c TransportConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// GetBreakerTimeout returns how long an open breaker stays open.
func (c TransportConfig) GetBreakerTimeout() time.Duration {
	return parseDurationOr(c.BreakerTimeout, time.Minute)
}

// GetTTL returns the cache entry lifetime.
func (c CacheConfig) GetTTL() time.Duration {
	return parseDurationOr(c.TTL, 24*time.Hour)
}

// GetRefreshInterval returns the refresh interval, never below MinRefreshInterval.
func (c DashboardConfig) GetRefreshInterval() time.Duration {
	d := parseDurationOr(c.RefreshInterval, 5*time.Minute)
	if d < MinRefreshInterval {
		return MinRefreshInterval
	}
	return d
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
