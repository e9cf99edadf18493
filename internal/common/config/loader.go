// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// base config is optional, everything has a default or an env override
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	// ACCESS_ADMIN_KEY overrides access.admin_key and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)
	return v
}

// bindEnvKeys registers every known key so AutomaticEnv also applies to
// keys missing from the yaml files.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"app.name", "app.environment", "app.public_url",
		"server.address", "server.trusted_proxies",
		"access.backend", "access.grant_hours", "access.file_path",
		"access.cookie_secret", "access.cookie_name", "access.admin_key",
		"database.postgres.host", "database.postgres.port", "database.postgres.database",
		"database.postgres.user", "database.postgres.password", "database.postgres.sslmode",
		"database.redis.address", "database.redis.password", "database.redis.db",
		"completion.provider", "completion.base_url", "completion.api_key",
		"completion.model", "completion.timeout", "completion.temperature",
		"payment.upi_id", "payment.whatsapp", "payment.price", "payment.success_key",
		"logging.level", "logging.format", "logging.output",
		"tracing.enabled", "tracing.exporter", "tracing.endpoint",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Well-known provider variables win when the config left the field empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Completion.APIKey == "" {
		switch cfg.Completion.Provider {
		case ProviderGemini:
			if val := os.Getenv("GEMINI_API_KEY"); val != "" {
				cfg.Completion.APIKey = val
			} else if val := os.Getenv("GOOGLE_API_KEY"); val != "" {
				cfg.Completion.APIKey = val
			}
		default:
			if val := os.Getenv("OPENAI_API_KEY"); val != "" {
				cfg.Completion.APIKey = val
			}
		}
	}

	if cfg.Access.AdminKey == "" {
		if val := os.Getenv("ADMIN_KEY"); val != "" {
			cfg.Access.AdminKey = val
		}
	}
	if cfg.Access.CookieSecret == "" {
		if val := os.Getenv("COOKIE_SECRET"); val != "" {
			cfg.Access.CookieSecret = val
		}
	}

	if cfg.Server.Address == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.Server.Address = ":" + port
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "resume-tailor"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":10000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Access.Backend == "" {
		cfg.Access.Backend = BackendMemory
	}
	if cfg.Access.GrantHours == 0 {
		cfg.Access.GrantHours = 24
	}
	if cfg.Access.FilePath == "" {
		cfg.Access.FilePath = "data/access_grants.json"
	}
	if cfg.Access.CookieName == "" {
		cfg.Access.CookieName = "rt_access"
	}
	if cfg.Access.CacheTTL == 0 {
		cfg.Access.CacheTTL = 300000
	}
	if cfg.Access.RedisKeyspace == "" {
		cfg.Access.RedisKeyspace = "grant:"
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = ProviderOpenAI
	}
	if cfg.Completion.BaseURL == "" && cfg.Completion.Provider == ProviderOpenAI {
		cfg.Completion.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Completion.Model == "" {
		if cfg.Completion.Provider == ProviderGemini {
			cfg.Completion.Model = "gemini-2.5-flash"
		} else {
			cfg.Completion.Model = "gpt-3.5-turbo"
		}
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 100
	}
	if cfg.Completion.Temperature == nil {
		t := DefaultTemperature
		cfg.Completion.Temperature = &t
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 30000
	}
	if cfg.Completion.Concurrency == 0 {
		cfg.Completion.Concurrency = 4
	}

	if cfg.Payment.Price == "" {
		cfg.Payment.Price = "₹49"
	}
	if cfg.Payment.QRPixels == 0 {
		cfg.Payment.QRPixels = 256
	}

	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 20
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 5
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = TraceExporterStdout
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}

	switch cfg.Access.Backend {
	case BackendMemory:
	case BackendFile:
		if cfg.Access.FilePath == "" {
			return fmt.Errorf("access.file_path is required for the file backend")
		}
	case BackendCookie:
		if len(cfg.Access.CookieSecret) < 32 {
			return fmt.Errorf("access.cookie_secret must be at least 32 bytes for the cookie backend")
		}
	case BackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case BackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required")
		}
	default:
		return fmt.Errorf("unknown access.backend %q", cfg.Access.Backend)
	}

	if cfg.Server.TrustedProxies < 0 {
		return fmt.Errorf("server.trusted_proxies must not be negative")
	}

	if cfg.Access.GrantHours < 0 {
		return fmt.Errorf("access.grant_hours must be positive")
	}

	switch cfg.Tracing.Exporter {
	case TraceExporterStdout, TraceExporterOTLP:
	default:
		return fmt.Errorf("unknown tracing.exporter %q", cfg.Tracing.Exporter)
	}

	switch cfg.Completion.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown completion.provider %q", cfg.Completion.Provider)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GrantDuration is the lifetime of a newly issued access grant.
func (a AccessConfig) GrantDuration() time.Duration {
	if a.GrantHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.GrantHours) * time.Hour
}
