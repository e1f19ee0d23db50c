package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.org/v1/")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("SHELL_ASSETS", " /, /app.js ,,/app.css")

	c, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "https://api.example.org/v1", c.APIBaseURL)
	assert.Equal(t, 3*time.Second, c.HTTPTimeout)
	assert.Equal(t, 4*time.Second, c.ToastTTL)
	assert.Equal(t, []string{"/", "/app.js", "/app.css"}, c.Assets())
	assert.False(t, c.IsProduction())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Port:        "8080",
			APIBaseURL:  "https://api.example.org",
			SessionKey:  "a-session-secret-that-is-long-enough-1234",
			HTTPTimeout: time.Second,
			Env:         "production",
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid production", func(*Config) {}, false},
		{"default secret in production", func(c *Config) { c.SessionKey = defaultSecret }, true},
		{"short secret in production", func(c *Config) { c.SessionKey = "short" }, true},
		{"short secret in development", func(c *Config) { c.SessionKey = "short"; c.Env = "development" }, false},
		{"relative API URL", func(c *Config) { c.APIBaseURL = "/api" }, true},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
