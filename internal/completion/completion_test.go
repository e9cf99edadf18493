package completion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-tailor/internal/common/config"
	"resume-tailor/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestDefaults() Defaults {
	return Defaults{
		Model:       "gpt-3.5-turbo",
		MaxTokens:   100,
		Temperature: 0.7,
		Timeout:     2 * time.Second,
	}
}

func ptr(f float64) *float64 { return &f }

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

// ==========================
// OpenAI Client Tests
// ==========================

func TestOpenAIClient_Complete_Success(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatReply("  Led AWS migration for 40 services.  "))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL+"/v1/", "sk-test", createTestDefaults(), logger.NewTestLogger(t))
	text, err := client.Complete(context.Background(), Request{Prompt: "rewrite this"})

	require.NoError(t, err)
	assert.Equal(t, "Led AWS migration for 40 services.", text)
	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 100, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "rewrite this", got.Messages[0].Content)
}

func TestOpenAIClient_Complete_RequestOverridesDefaults(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, chatReply("ok"))
	}))
	defer server.Close()

	client := NewOpenAIClient(server.URL, "", createTestDefaults(), logger.NewTestLogger(t))
	_, err := client.Complete(context.Background(), Request{
		Prompt:      "p",
		Model:       "gpt-4o-mini",
		MaxTokens:   60,
		Temperature: ptr(0.2),
	})

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 60, got.MaxTokens)
	assert.InDelta(t, 0.2, got.Temperature, 1e-9)
}

func TestOpenAIClient_Complete_ZeroTemperature(t *testing.T) {
	tests := []struct {
		name     string
		defaults float64
		request  *float64
	}{
		{"requested", 0.7, ptr(0)},
		{"configured default", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw map[string]interface{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
				_, _ = io.WriteString(w, chatReply("ok"))
			}))
			defer server.Close()

			defaults := createTestDefaults()
			defaults.Temperature = tt.defaults
			client := NewOpenAIClient(server.URL, "", defaults, logger.NewTestLogger(t))
			_, err := client.Complete(context.Background(), Request{Prompt: "p", Temperature: tt.request})

			require.NoError(t, err)
			require.Contains(t, raw, "temperature")
			assert.Equal(t, float64(0), raw["temperature"])
		})
	}
}

func TestOpenAIClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"quota exceeded", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, ErrQuota},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, ErrFailed},
		{"server error", http.StatusInternalServerError, `oops`, ErrFailed},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyResponse},
		{"blank content", http.StatusOK, chatReply("   "), ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewOpenAIClient(server.URL, "k", createTestDefaults(), logger.NewTestLogger(t))
			_, err := client.Complete(context.Background(), Request{Prompt: "p"})

			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retry")
		})
	}
}

func TestOpenAIClient_Complete_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	defaults := createTestDefaults()
	defaults.Timeout = 50 * time.Millisecond
	client := NewOpenAIClient(server.URL, "k", defaults, logger.NewTestLogger(t))

	start := time.Now()
	_, err := client.Complete(context.Background(), Request{Prompt: "p"})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpenAIClient_Complete_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewOpenAIClient(url, "k", createTestDefaults(), logger.NewTestLogger(t))
	_, err := client.Complete(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrFailed)
}

// ==========================
// Gemini Client Tests
// ==========================

func TestGeminiClient_Complete(t *testing.T) {
	var path string
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Automated CI/CD pipelines on Kubernetes."}]}}]}`)
	}))
	defer server.Close()

	defaults := createTestDefaults()
	defaults.Model = "gemini-2.5-flash"
	client, err := NewGeminiClient(context.Background(), server.URL, "test-key", defaults, logger.NewTestLogger(t))
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), Request{Prompt: "rewrite"})
	require.NoError(t, err)
	assert.Equal(t, "Automated CI/CD pipelines on Kubernetes.", text)
	assert.True(t, strings.HasSuffix(path, "models/gemini-2.5-flash:generateContent"), path)
	assert.Contains(t, body, "contents")
}

func TestGeminiClient_Complete_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"empty candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyResponse},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client, err := NewGeminiClient(context.Background(), server.URL, "k", createTestDefaults(), logger.NewTestLogger(t))
			require.NoError(t, err)

			_, err = client.Complete(context.Background(), Request{Prompt: "p"})
			require.Error(t, err)
			if tt.expected != nil {
				assert.ErrorIs(t, err, tt.expected)
			}
		})
	}
}

// ==========================
// Factory Tests
// ==========================

func TestNew_SelectsProvider(t *testing.T) {
	log := logger.NewTestLogger(t)

	c, err := New(context.Background(), config.CompletionConfig{Provider: config.ProviderOpenAI, BaseURL: "http://localhost"}, log)
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = New(context.Background(), config.CompletionConfig{Provider: config.ProviderGemini, APIKey: "k"}, log)
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.Name())

	_, err = New(context.Background(), config.CompletionConfig{Provider: "markov"}, log)
	assert.Error(t, err)
}
