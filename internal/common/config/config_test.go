package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "ADMIN_KEY", "COOKIE_SECRET"} {
		t.Setenv(k, "")
	}
}

func TestLoadFromFile_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromFile(writeConfig(t, "app:\n  name: ResumeTailor\n"))
	require.NoError(t, err)

	assert.Equal(t, "ResumeTailor", cfg.App.Name)
	assert.Equal(t, ":10000", cfg.Server.Address)
	assert.Equal(t, BackendMemory, cfg.Access.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Access.GrantDuration())
	assert.Equal(t, "rt_access", cfg.Access.CookieName)
	assert.Equal(t, ProviderOpenAI, cfg.Completion.Provider)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Completion.BaseURL)
	assert.Equal(t, "gpt-3.5-turbo", cfg.Completion.Model)
	assert.Equal(t, 100, cfg.Completion.MaxTokens)
	require.NotNil(t, cfg.Completion.Temperature)
	assert.InDelta(t, 0.7, *cfg.Completion.Temperature, 1e-9)
	assert.Equal(t, 30*time.Second, GetDuration(cfg.Completion.Timeout))
	assert.Equal(t, "₹49", cfg.Payment.Price)
	assert.Equal(t, 0, cfg.Server.TrustedProxies)
	assert.Equal(t, TraceExporterStdout, cfg.Tracing.Exporter)
}

func TestLoadFromFile_GeminiDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	cfg, err := LoadFromFile(writeConfig(t, "completion:\n  provider: gemini\n"))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash", cfg.Completion.Model)
	assert.Empty(t, cfg.Completion.BaseURL)
	assert.Equal(t, "g-key", cfg.Completion.APIKey)
}

func TestLoadFromFile_ZeroTemperatureIsKept(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFromFile(writeConfig(t, "completion:\n  temperature: 0\n"))
	require.NoError(t, err)

	require.NotNil(t, cfg.Completion.Temperature)
	assert.Equal(t, 0.0, *cfg.Completion.Temperature)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("ADMIN_KEY", "from-env")
	t.Setenv("PAYMENT_UPI_ID", "tailor@okaxis")
	t.Setenv("TAILOR_TEST_SECRET", "expanded-secret")

	cfg, err := LoadFromFile(writeConfig(t, "completion:\n  api_key: ${TAILOR_TEST_SECRET}\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "from-env", cfg.Access.AdminKey)
	assert.Equal(t, "tailor@okaxis", cfg.Payment.UPIID)
	assert.Equal(t, "expanded-secret", cfg.Completion.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown backend",
			body:    "access:\n  backend: etcd\n",
			wantErr: "unknown access.backend",
		},
		{
			name:    "short cookie secret",
			body:    "access:\n  backend: cookie\n  cookie_secret: short\n",
			wantErr: "cookie_secret",
		},
		{
			name:    "postgres without host",
			body:    "access:\n  backend: postgres\n",
			wantErr: "database.postgres.host",
		},
		{
			name:    "redis without address",
			body:    "access:\n  backend: redis\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "negative grant hours",
			body:    "access:\n  grant_hours: -2\n",
			wantErr: "grant_hours",
		},
		{
			name:    "unknown provider",
			body:    "completion:\n  provider: bard\n",
			wantErr: "unknown completion.provider",
		},
		{
			name:    "negative trusted proxies",
			body:    "server:\n  trusted_proxies: -1\n",
			wantErr: "server.trusted_proxies",
		},
		{
			name:    "unknown trace exporter",
			body:    "tracing:\n  enabled: true\n  exporter: jaeger\n",
			wantErr: "unknown tracing.exporter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGrantDuration(t *testing.T) {
	assert.Equal(t, 24*time.Hour, AccessConfig{}.GrantDuration())
	assert.Equal(t, 48*time.Hour, AccessConfig{GrantHours: 48}.GrantDuration())
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "rt", SSLMode: "disable"}.GetDSN()
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rt sslmode=disable", dsn)
}
