package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the financial crime monitoring service
type Config struct {
	Debug      bool             `mapstructure:"debug"`
	Server     ServerConfig     `mapstructure:"server"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
	Patterns   PatternsConfig   `mapstructure:"patterns"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Narrative  NarrativeConfig  `mapstructure:"narrative"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Security   SecurityConfig   `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GeneratorConfig holds synthetic population configuration
type GeneratorConfig struct {
	// WindowDays bounds generated timestamps to the trailing window.
	WindowDays int `mapstructure:"window_days"`
	// SeedCount transactions are generated at startup; 0 disables.
	SeedCount            int     `mapstructure:"seed_count"`
	SeedHighRiskFraction float64 `mapstructure:"seed_high_risk_fraction"`
	// MaxBatchSize caps a single generation request at the API.
	MaxBatchSize int `mapstructure:"max_batch_size"`
}

// AnalysisConfig holds scoring cut points and coordinator policy.
// The documented defaults are illustrative, not hard-coded law.
type AnalysisConfig struct {
	// Score bands for assessment text.
	BandVeryHigh int `mapstructure:"band_very_high"`
	BandHigh     int `mapstructure:"band_high"`
	BandMedium   int `mapstructure:"band_medium"`

	// Recommended action cut points.
	ActionEscalate int `mapstructure:"action_escalate"`
	ActionMonitor  int `mapstructure:"action_monitor"`

	// Amounts at or above multiplier x the type's high-risk floor band
	// as very high.
	VeryHighAmountMultiplier float64 `mapstructure:"very_high_amount_multiplier"`

	// Confidence policy.
	BaseConfidence        int `mapstructure:"base_confidence"`
	AgreementConfidence   int `mapstructure:"agreement_confidence"`
	DegradedConfidenceCap int `mapstructure:"degraded_confidence_cap"`

	// MaxLatency is the soft budget for one full analysis.
	MaxLatency time.Duration `mapstructure:"max_latency"`
}

// ComplianceConfig holds regulatory threshold configuration
type ComplianceConfig struct {
	CTRThreshold         float64 `mapstructure:"ctr_threshold"`
	CrossBorderThreshold float64 `mapstructure:"cross_border_threshold"`
	HomeCountry          string  `mapstructure:"home_country"`
}

// PatternsConfig holds pattern detection configuration
type PatternsConfig struct {
	// Structuring: repeated just-under-threshold amounts.
	StructuringWindowHours  int     `mapstructure:"structuring_window_hours"`
	StructuringMinTxCount   int     `mapstructure:"structuring_min_tx_count"`
	StructuringNearFraction float64 `mapstructure:"structuring_near_fraction"`

	// Velocity: transaction count spike for one customer.
	VelocityWindowHours int `mapstructure:"velocity_window_hours"`
	VelocityMaxTxCount  int `mapstructure:"velocity_max_tx_count"`

	// Circularity: funds returning to the originating counterpart.
	CircularityWindowHours int     `mapstructure:"circularity_window_hours"`
	CircularityMinAmount   float64 `mapstructure:"circularity_min_amount"`

	// MaxPoints caps the combined pattern contribution to the score.
	MaxPoints int `mapstructure:"max_points"`
}

// RedisConfig holds the optional analysis cache backend
type RedisConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Password         string        `mapstructure:"password"`
	DB               int           `mapstructure:"db"`
	PoolSize         int           `mapstructure:"pool_size"`
	MinIdleConns     int           `mapstructure:"min_idle_conns"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	AnalysisCacheTTL time.Duration `mapstructure:"analysis_cache_ttl"`
}

// KafkaConfig holds escalation alert publishing configuration
type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	ClientID    string   `mapstructure:"client_id"`
	AlertsTopic string   `mapstructure:"alerts_topic"`
}

// NarrativeConfig holds the pluggable reasoning renderer configuration
type NarrativeConfig struct {
	// RemoteEnabled switches reasoning text to the remote renderer;
	// score and action never depend on it.
	RemoteEnabled bool          `mapstructure:"remote_enabled"`
	Endpoint      string        `mapstructure:"endpoint"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`

	// Circuit breaker around the remote endpoint.
	BreakerMaxFailures  uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenInterval time.Duration `mapstructure:"breaker_open_interval"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ServiceName   string  `mapstructure:"service_name"`
	Environment   string  `mapstructure:"environment"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRatio float64 `mapstructure:"sampling_ratio"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("FINCRIME_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/fincrime-service")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults + env
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Server defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Generator defaults
	v.SetDefault("generator.window_days", 30)
	v.SetDefault("generator.seed_count", 50)
	v.SetDefault("generator.seed_high_risk_fraction", 0.3)
	v.SetDefault("generator.max_batch_size", 1000)

	// Analysis defaults
	v.SetDefault("analysis.band_very_high", 80)
	v.SetDefault("analysis.band_high", 60)
	v.SetDefault("analysis.band_medium", 40)
	v.SetDefault("analysis.action_escalate", 70)
	v.SetDefault("analysis.action_monitor", 40)
	v.SetDefault("analysis.very_high_amount_multiplier", 2.0)
	v.SetDefault("analysis.base_confidence", 60)
	v.SetDefault("analysis.agreement_confidence", 10)
	v.SetDefault("analysis.degraded_confidence_cap", 50)
	v.SetDefault("analysis.max_latency", "200ms")

	// Compliance defaults (operating currency units)
	v.SetDefault("compliance.ctr_threshold", 10000.0)
	v.SetDefault("compliance.cross_border_threshold", 3000.0)
	v.SetDefault("compliance.home_country", "Singapore")

	// Pattern detection defaults
	v.SetDefault("patterns.structuring_window_hours", 24)
	v.SetDefault("patterns.structuring_min_tx_count", 3)
	v.SetDefault("patterns.structuring_near_fraction", 0.8)
	v.SetDefault("patterns.velocity_window_hours", 24)
	v.SetDefault("patterns.velocity_max_tx_count", 5)
	v.SetDefault("patterns.circularity_window_hours", 72)
	v.SetDefault("patterns.circularity_min_amount", 1000.0)
	v.SetDefault("patterns.max_points", 40)

	// Redis defaults (cache disabled unless configured)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.min_idle_conns", 20)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.analysis_cache_ttl", "1h")

	// Kafka defaults (alert publishing disabled unless configured)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "fincrime-service")
	v.SetDefault("kafka.alerts_topic", "banking.fincrime.alerts")

	// Narrative defaults
	v.SetDefault("narrative.remote_enabled", false)
	v.SetDefault("narrative.endpoint", "http://localhost:8090/render")
	v.SetDefault("narrative.model", "remote-renderer")
	v.SetDefault("narrative.timeout", "2s")
	v.SetDefault("narrative.breaker_max_failures", 5)
	v.SetDefault("narrative.breaker_open_interval", "30s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "fincrime-service")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 0.1)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{
		"http://localhost:5173",
		"http://localhost:3000",
	})
	v.SetDefault("security.rate_limit_per_minute", 0)
}
