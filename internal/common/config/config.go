// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Access     AccessConfig     `mapstructure:"access"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Completion CompletionConfig `mapstructure:"completion"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// PublicURL is the externally reachable base used when building access links.
	PublicURL string `mapstructure:"public_url"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	// TrustedProxies is the number of reverse proxies in front of the server
	// that append to X-Forwarded-For. Zero means the header is ignored.
	TrustedProxies int `mapstructure:"trusted_proxies"`
}

// Access backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendCookie   = "cookie"
)

// AccessConfig selects and tunes the grant store.
type AccessConfig struct {
	Backend       string `mapstructure:"backend"`
	GrantHours    int    `mapstructure:"grant_hours"`
	FilePath      string `mapstructure:"file_path"`
	CookieSecret  string `mapstructure:"cookie_secret"`
	CookieName    string `mapstructure:"cookie_name"`
	AdminKey      string `mapstructure:"admin_key"`
	CacheTTL      int    `mapstructure:"cache_ttl"` // milliseconds, postgres read-through cache
	RedisKeyspace string `mapstructure:"redis_keyspace"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Completion providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultTemperature is used when completion.temperature is not configured.
const DefaultTemperature = 0.7

// CompletionConfig holds settings for the external text-completion service.
type CompletionConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	// Temperature is nil when unset; 0 is a valid, deterministic setting.
	Temperature *float64 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	Concurrency int     `mapstructure:"concurrency"`
}

// PaymentConfig describes the manual payment instructions shown on the gate.
type PaymentConfig struct {
	Price      string `mapstructure:"price"`
	UPIID      string `mapstructure:"upi_id"`
	PayeeName  string `mapstructure:"payee_name"`
	WhatsApp   string `mapstructure:"whatsapp"`
	QRPixels   int    `mapstructure:"qr_pixels"`
	AmountINR  string `mapstructure:"amount_inr"`
	SuccessKey string `mapstructure:"success_key"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Trace exporters.
const (
	TraceExporterStdout = "stdout"
	TraceExporterOTLP   = "otlp"
)

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Exporter    string  `mapstructure:"exporter"`
	// Endpoint is the OTLP/HTTP collector URL. Empty uses the
	// OTEL_EXPORTER_OTLP_* environment defaults.
	Endpoint string `mapstructure:"endpoint"`
}
